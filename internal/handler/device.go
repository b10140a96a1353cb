package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"larvadet/internal/middleware"
)

// DeviceInfo handles GET /api/device/info for the authenticated device.
func DeviceInfo(c *gin.Context) {
	device := middleware.DeviceFromContext(c)
	c.JSON(http.StatusOK, device)
}

// Health handles GET /api/health.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
