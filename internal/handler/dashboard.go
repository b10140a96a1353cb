package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"larvadet/internal/repository"
)

// DashboardHandler serves the read-only monitoring API behind JWT auth.
type DashboardHandler interface {
	ListAlerts(c *gin.Context)
	ListClassifications(c *gin.Context)
}

type dashboardHandler struct {
	alerts          repository.AlertRepository
	classifications repository.ClassificationRepository
	logger          *zap.Logger
}

func NewDashboardHandler(alerts repository.AlertRepository, classifications repository.ClassificationRepository, logger *zap.Logger) DashboardHandler {
	return &dashboardHandler{alerts: alerts, classifications: classifications, logger: logger}
}

// ListAlerts handles GET /api/alerts. Optional query parameter:
// - resolved: "true" or "false" to filter by resolution state.
func (h *dashboardHandler) ListAlerts(c *gin.Context) {
	var resolved *bool
	if raw := c.Query("resolved"); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid resolved filter, expected true or false"})
			return
		}
		resolved = &value
	}

	alerts, err := h.alerts.ListAlerts(resolved)
	if err != nil {
		h.logger.Error("Failed to list alerts", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve alerts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

// ListClassifications handles GET /api/classifications/:device_code.
func (h *dashboardHandler) ListClassifications(c *gin.Context) {
	deviceCode := c.Param("device_code")

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = value
	}

	results, err := h.classifications.ListByDeviceCode(deviceCode, limit)
	if err != nil {
		h.logger.Error("Failed to list classifications", zap.String("device_code", deviceCode), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve classifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"classifications": results})
}
