package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"larvadet/internal/control"
	"larvadet/internal/middleware"
	"larvadet/internal/models"
	"larvadet/internal/repository"
	"larvadet/internal/storage"
)

// Scheduler enqueues background classification jobs. The pipeline implements
// it; tests substitute a synchronous or recording fake.
type Scheduler interface {
	Enqueue(imageID string) bool
}

type UploadHandler interface {
	Upload(c *gin.Context)
}

type uploadHandler struct {
	images     repository.ImageRepository
	store      *storage.Store
	scheduler  Scheduler
	controlSvc *control.Service
	logger     *zap.Logger
	now        func() time.Time
}

func NewUploadHandler(images repository.ImageRepository, store *storage.Store, scheduler Scheduler, controlSvc *control.Service, logger *zap.Logger) UploadHandler {
	return &uploadHandler{
		images:     images,
		store:      store,
		scheduler:  scheduler,
		controlSvc: controlSvc,
		logger:     logger,
		now:        time.Now,
	}
}

// Upload handles POST /api/upload. The response is bounded by storage I/O
// only: the image row and bytes are persisted, a classification job is
// enqueued, and the node gets an immediate fallback action derived from its
// current control state.
func (h *uploadHandler) Upload(c *gin.Context) {
	device := middleware.DeviceFromContext(c)

	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Image file is required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to open uploaded image"})
		return
	}
	defer file.Close()

	imageData, err := io.ReadAll(file)
	if err != nil || len(imageData) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Uploaded image is empty or unreadable"})
		return
	}

	capturedAt := h.parseCapturedAt(c.PostForm("captured_at"))

	path, checksum, err := h.store.Save(device.DeviceCode, imageData)
	if err != nil {
		h.logger.Error("Failed to store image bytes", zap.String("device_code", device.DeviceCode), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store image"})
		return
	}

	img := &models.Image{
		ID:         uuid.NewString(),
		DeviceID:   device.ID,
		DeviceCode: device.DeviceCode,
		ImageType:  models.ImageTypeOriginal,
		ImagePath:  path,
		Checksum:   checksum,
		CapturedAt: capturedAt,
		UploadedAt: h.now(),
	}
	if err := h.images.SaveImage(img); err != nil {
		h.logger.Error("Failed to save image record", zap.String("device_code", device.DeviceCode), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save image record"})
		return
	}

	// Only after both writes succeeded; a storage failure never leaves an
	// orphan job behind.
	h.scheduler.Enqueue(img.ID)

	c.JSON(http.StatusOK, gin.H{
		"status":      "PROCESSING",
		"message":     "Image uploaded successfully, classification in progress",
		"action":      h.controlSvc.FallbackAction(device),
		"image_id":    img.ID,
		"device_code": device.DeviceCode,
		"timestamp":   h.now().Format(time.RFC3339),
	})
}

func (h *uploadHandler) parseCapturedAt(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		now := h.now()
		return &now
	}
	return &t
}
