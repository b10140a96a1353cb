package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"larvadet/internal/control"
	"larvadet/internal/middleware"
	"larvadet/internal/models"
)

type ControlHandler interface {
	Poll(c *gin.Context)
	ActivateServo(c *gin.Context)
	StopServo(c *gin.Context)
	MarkExecuted(c *gin.Context)
	MarkFailed(c *gin.Context)
	GetStatus(c *gin.Context)
}

type controlHandler struct {
	svc    *control.Service
	logger *zap.Logger
}

func NewControlHandler(svc *control.Service, logger *zap.Logger) ControlHandler {
	return &controlHandler{svc: svc, logger: logger}
}

// authorizedDevice rejects requests whose path device_code does not match
// the authenticated device.
func (h *controlHandler) authorizedDevice(c *gin.Context) (string, bool) {
	device := middleware.DeviceFromContext(c)
	deviceCode := c.Param("device_code")
	if device.DeviceCode != deviceCode {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return "", false
	}
	return deviceCode, true
}

func (h *controlHandler) writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, control.ErrDeviceNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Device not found"})
	case errors.Is(err, control.ErrDeviceInactive):
		c.JSON(http.StatusForbidden, gin.H{"error": "Device is not active"})
	case errors.Is(err, control.ErrStateConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.logger.Error("Control operation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Control operation failed"})
	}
}

// Poll handles GET /api/device/:device_code/control, the sensor node's
// command poll.
func (h *controlHandler) Poll(c *gin.Context) {
	deviceCode, ok := h.authorizedDevice(c)
	if !ok {
		return
	}

	resp, err := h.svc.Poll(deviceCode)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"mode":      resp.Mode,
		"command":   resp.Command,
		"status":    resp.Status,
		"message":   resp.Message,
		"timestamp": resp.Timestamp.Format(time.RFC3339),
	})
}

// ActivateServo handles POST /api/device/:device_code/activate_servo.
// The endpoint itself is the command.
func (h *controlHandler) ActivateServo(c *gin.Context) {
	h.manualSet(c, models.CommandActivate)
}

// StopServo handles POST /api/device/:device_code/stop_servo.
func (h *controlHandler) StopServo(c *gin.Context) {
	h.manualSet(c, models.CommandStop)
}

func (h *controlHandler) manualSet(c *gin.Context, command string) {
	deviceCode, ok := h.authorizedDevice(c)
	if !ok {
		return
	}

	ctl, err := h.svc.ManualSet(deviceCode, command, c.PostForm("message"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"device_code": deviceCode,
		"command":     ctl.Command,
		"status":      ctl.Status,
		"message":     ctl.Message,
		"timestamp":   ctl.UpdatedAt.Format(time.RFC3339),
	})
}

// MarkExecuted handles POST /api/device/:device_code/control/executed.
func (h *controlHandler) MarkExecuted(c *gin.Context) {
	h.acknowledge(c, models.StatusExecuted)
}

// MarkFailed handles POST /api/device/:device_code/control/failed.
func (h *controlHandler) MarkFailed(c *gin.Context) {
	h.acknowledge(c, models.StatusFailed)
}

func (h *controlHandler) acknowledge(c *gin.Context, outcome string) {
	deviceCode, ok := h.authorizedDevice(c)
	if !ok {
		return
	}

	ctl, err := h.svc.Acknowledge(deviceCode, outcome, c.PostForm("message"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"device_code": deviceCode,
		"command":     ctl.Command,
		"status":      ctl.Status,
		"message":     ctl.Message,
		"timestamp":   ctl.UpdatedAt.Format(time.RFC3339),
	})
}

// GetStatus handles GET /api/device/:device_code/control/status and returns
// the full control record including created/updated timestamps.
func (h *controlHandler) GetStatus(c *gin.Context) {
	deviceCode, ok := h.authorizedDevice(c)
	if !ok {
		return
	}

	ctl, err := h.svc.Status(deviceCode)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	if ctl == nil {
		c.JSON(http.StatusOK, gin.H{
			"device_code": deviceCode,
			"command":     nil,
			"status":      "NOT_SET",
			"message":     "No control configured for this device",
			"created_at":  nil,
			"updated_at":  nil,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"device_code": ctl.DeviceCode,
		"mode":        ctl.Mode,
		"command":     ctl.Command,
		"status":      ctl.Status,
		"message":     ctl.Message,
		"created_at":  ctl.CreatedAt.Format(time.RFC3339),
		"updated_at":  ctl.UpdatedAt.Format(time.RFC3339),
	})
}
