package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"larvadet/internal/alerting"
	"larvadet/internal/classifier_client"
	"larvadet/internal/config"
	"larvadet/internal/control"
	"larvadet/internal/decision"
	"larvadet/internal/notifier_client"
	"larvadet/internal/pipeline"
	"larvadet/internal/repository"
	"larvadet/internal/server"
	"larvadet/internal/storage"
	"larvadet/internal/telegram_notifier"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync() // Flushes buffer, if any
	}()

	log := logrus.New()

	// Load configuration
	cfgPath := "configs/config.yml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Database connection
	db, err := repository.NewPostgresDB(cfg.Database.URL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	repository.MigrateDB(db, logger)

	// Image byte store
	store, err := storage.NewStore(cfg.Storage.ImageDir, logger)
	if err != nil {
		logger.Fatal("Failed to initialize image store", zap.Error(err))
	}

	// Initialize repositories
	deviceRepo := repository.NewDeviceRepository(db, logger)
	imageRepo := repository.NewImageRepository(db, logger)
	classificationRepo := repository.NewClassificationRepository(db, logger)
	alertRepo := repository.NewAlertRepository(db, logger)
	controlRepo := repository.NewControlRepository(db, logger)

	// External collaborators
	classifierClient := classifier_client.NewClient(cfg.Classifier.URL, cfg.Classifier.APIKey, cfg.ClassifierTimeout())
	notifierClient := notifier_client.NewClient(cfg.Notifier.URL, cfg.Notifier.Token, cfg.Notifier.Enabled)

	// Telegram alert notifications (optional)
	telegramNotifier, err := telegram_notifier.NewNotifier(cfg, logger)
	if err != nil {
		logger.Warn("Failed to initialize Telegram notifier, continuing without it", zap.Error(err))
		telegramNotifier = nil
	}

	// Severity thresholds for alert levels
	severity := decision.DefaultSeverityTable()
	if cfg.Alerts.WarningThreshold > 0 {
		severity.Warning = cfg.Alerts.WarningThreshold
	}
	if cfg.Alerts.CriticalThreshold > 0 {
		severity.Critical = cfg.Alerts.CriticalThreshold
	}

	// Core services
	controlSvc := control.NewService(deviceRepo, controlRepo, logger)
	alertManager := alerting.NewManager(alertRepo, severity, telegramNotifier, logger)
	classificationPipeline := pipeline.New(imageRepo, classificationRepo, deviceRepo, store,
		classifierClient, notifierClient, alertManager, controlSvc, logger,
		cfg.ClassifierTimeout(), cfg.Pipeline.QueueSize)

	// Context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Run the classification worker pool
	classificationPipeline.Start(ctx, cfg.Pipeline.Workers)

	// Initialize and run the server
	srv := server.NewServer(db, cfg, logger, log, controlSvc, classificationPipeline, store)
	srv.Run(cfg.Server.Port)

	<-ctx.Done()
	classificationPipeline.Wait()
	logger.Info("Application stopped.")
}
