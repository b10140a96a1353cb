package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"larvadet/internal/config"
	"larvadet/internal/control"
	"larvadet/internal/handler"
	"larvadet/internal/middleware"
	"larvadet/internal/repository"
	"larvadet/internal/service"
	"larvadet/internal/storage"
)

type Server struct {
	router     *gin.Engine
	db         *sqlx.DB
	cfg        *config.Config
	logger     *zap.Logger
	log        *logrus.Logger
	controlSvc *control.Service
	scheduler  handler.Scheduler
	store      *storage.Store
}

func NewServer(db *sqlx.DB, cfg *config.Config, logger *zap.Logger, log *logrus.Logger, controlSvc *control.Service, scheduler handler.Scheduler, store *storage.Store) *Server {
	router := gin.Default()

	s := &Server{
		router:     router,
		db:         db,
		cfg:        cfg,
		logger:     logger,
		log:        log,
		controlSvc: controlSvc,
		scheduler:  scheduler,
		store:      store,
	}

	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	deviceRepo := repository.NewDeviceRepository(s.db, s.logger)
	imageRepo := repository.NewImageRepository(s.db, s.logger)
	alertRepo := repository.NewAlertRepository(s.db, s.logger)
	classificationRepo := repository.NewClassificationRepository(s.db, s.logger)
	userRepo := repository.NewUserRepository(s.db, s.logger)

	authService := service.NewAuthService(deviceRepo, userRepo, s.cfg.Auth.JWTSecret, s.cfg.TokenTTL(), s.logger)
	authHandler := handler.NewAuthHandler(authService, s.logger)
	uploadHandler := handler.NewUploadHandler(imageRepo, s.store, s.scheduler, s.controlSvc, s.logger)
	controlHandler := handler.NewControlHandler(s.controlSvc, s.logger)
	dashboardHandler := handler.NewDashboardHandler(alertRepo, classificationRepo, s.logger)

	// Ping route for health check
	s.router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	api := s.router.Group("/api")
	api.GET("/health", handler.Health)
	api.POST("/auth/login", authHandler.Login)

	// Sensor node endpoints, Basic auth with device credentials
	deviceAPI := api.Group("")
	deviceAPI.Use(middleware.DeviceAuth(authService, s.logger))
	{
		deviceAPI.POST("/upload", uploadHandler.Upload)
		deviceAPI.GET("/device/info", handler.DeviceInfo)
		deviceAPI.GET("/device/:device_code/control", controlHandler.Poll)
		deviceAPI.POST("/device/:device_code/activate_servo", controlHandler.ActivateServo)
		deviceAPI.POST("/device/:device_code/stop_servo", controlHandler.StopServo)
		deviceAPI.POST("/device/:device_code/control/executed", controlHandler.MarkExecuted)
		deviceAPI.POST("/device/:device_code/control/failed", controlHandler.MarkFailed)
		deviceAPI.GET("/device/:device_code/control/status", controlHandler.GetStatus)
	}

	// Dashboard read API, JWT protected
	dashboardAPI := api.Group("")
	dashboardAPI.Use(middleware.JWTAuth(authService, s.logger))
	{
		dashboardAPI.GET("/alerts", dashboardHandler.ListAlerts)
		dashboardAPI.GET("/classifications/:device_code", dashboardHandler.ListClassifications)
	}
}

func (s *Server) Run(addr string) {
	s.log.Infof("Server starting on port %s...", addr)
	if err := s.router.Run(addr); err != nil {
		s.log.Fatalf("Server failed to start: %v", err)
	}
}
