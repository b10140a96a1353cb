package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"larvadet/internal/models"
	"larvadet/internal/service"
)

// ContextDevice is the gin context key carrying the authenticated device.
const ContextDevice = "device"

// DeviceAuth authenticates sensor nodes with HTTP Basic credentials
// (device_code as username) and stores the device on the context.
func DeviceAuth(authService service.AuthService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		deviceCode, password, ok := c.Request.BasicAuth()
		if !ok {
			c.Header("WWW-Authenticate", "Basic")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Device credentials required"})
			return
		}

		device, err := authService.AuthenticateDevice(deviceCode, password)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrInvalidCredentials):
				c.Header("WWW-Authenticate", "Basic")
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid device credentials"})
			case errors.Is(err, service.ErrDeviceInactive):
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Device is not active"})
			default:
				logger.Error("Device authentication failed", zap.String("device_code", deviceCode), zap.Error(err))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Authentication failed"})
			}
			return
		}

		c.Set(ContextDevice, device)
		c.Next()
	}
}

// DeviceFromContext returns the authenticated device stored by DeviceAuth.
func DeviceFromContext(c *gin.Context) *models.Device {
	return c.MustGet(ContextDevice).(*models.Device)
}

// JWTAuth protects the dashboard API with Bearer tokens.
func JWTAuth(authService service.AuthService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			return
		}

		claims, err := authService.ParseToken(parts[1])
		if err != nil {
			logger.Debug("Token validation failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set("username", claims.Username)
		c.Set("role", claims.Role)
		c.Next()
	}
}
