package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"larvadet/internal/control"
	"larvadet/internal/middleware"
	"larvadet/internal/models"
	"larvadet/internal/repository/repositorytest"
)

func controlTestRouter(t *testing.T) (*gin.Engine, *control.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	devices := repositorytest.NewFakeDeviceRepo()
	device := &models.Device{ID: "dev-1", DeviceCode: "node01", IsActive: true}
	devices.Add(device)
	controls := repositorytest.NewFakeControlRepo()
	svc := control.NewService(devices, controls, logger)

	h := NewControlHandler(svc, logger)

	router := gin.New()
	authed := router.Group("", func(c *gin.Context) {
		c.Set(middleware.ContextDevice, device)
		c.Next()
	})
	authed.GET("/api/device/:device_code/control", h.Poll)
	authed.POST("/api/device/:device_code/activate_servo", h.ActivateServo)
	authed.POST("/api/device/:device_code/stop_servo", h.StopServo)
	authed.POST("/api/device/:device_code/control/executed", h.MarkExecuted)
	authed.POST("/api/device/:device_code/control/failed", h.MarkFailed)
	authed.GET("/api/device/:device_code/control/status", h.GetStatus)
	return router, svc
}

func doForm(router *gin.Engine, method, path string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestControlRoundTripOverHTTP(t *testing.T) {
	router, _ := controlTestRouter(t)

	// Manual activate.
	w := doForm(router, http.MethodPost, "/api/device/node01/activate_servo", url.Values{"message": {"test"}})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, models.CommandActivate, resp["command"])
	assert.Equal(t, models.StatusPending, resp["status"])

	// Poll sees the pending manual command.
	w = doForm(router, http.MethodGet, "/api/device/node01/control", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp = decode(t, w)
	assert.Equal(t, models.ModeManual, resp["mode"])
	assert.Equal(t, models.CommandActivate, resp["command"])
	assert.Equal(t, models.StatusPending, resp["status"])

	// Device acknowledges execution.
	w = doForm(router, http.MethodPost, "/api/device/node01/control/executed", url.Values{"message": {"done"}})
	require.Equal(t, http.StatusOK, w.Code)
	resp = decode(t, w)
	assert.Equal(t, models.StatusExecuted, resp["status"])
	assert.Equal(t, "done", resp["message"])

	// Status endpoint reports the full record.
	w = doForm(router, http.MethodGet, "/api/device/node01/control/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp = decode(t, w)
	assert.Equal(t, models.ModeManual, resp["mode"])
	assert.Equal(t, models.StatusExecuted, resp["status"])
	assert.NotEmpty(t, resp["created_at"])
	assert.NotEmpty(t, resp["updated_at"])
}

func TestManualSetThenFailedAcknowledgement(t *testing.T) {
	router, _ := controlTestRouter(t)

	w := doForm(router, http.MethodPost, "/api/device/node01/activate_servo", url.Values{"message": {"test"}})
	require.Equal(t, http.StatusOK, w.Code)

	w = doForm(router, http.MethodPost, "/api/device/node01/control/failed", url.Values{"message": {"timeout"}})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, models.CommandActivate, resp["command"])
	assert.Equal(t, models.StatusFailed, resp["status"])
	assert.Equal(t, "timeout", resp["message"])
}

func TestAcknowledgeWithoutPendingIsConflict(t *testing.T) {
	router, _ := controlTestRouter(t)

	w := doForm(router, http.MethodPost, "/api/device/node01/control/executed", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDeviceCodeMismatchIsForbidden(t *testing.T) {
	router, _ := controlTestRouter(t)

	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/device/other/control"},
		{http.MethodPost, "/api/device/other/activate_servo"},
		{http.MethodPost, "/api/device/other/stop_servo"},
		{http.MethodPost, "/api/device/other/control/executed"},
		{http.MethodPost, "/api/device/other/control/failed"},
		{http.MethodGet, "/api/device/other/control/status"},
	} {
		w := doForm(router, tc.method, tc.path, nil)
		assert.Equal(t, http.StatusForbidden, w.Code, "%s %s", tc.method, tc.path)
	}
}

func TestStatusWithoutControlIsNotSet(t *testing.T) {
	router, _ := controlTestRouter(t)

	w := doForm(router, http.MethodGet, "/api/device/node01/control/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "NOT_SET", resp["status"])
}

func TestPollReportsAutoAfterAutomaticDecision(t *testing.T) {
	router, svc := controlTestRouter(t)

	require.NoError(t, svc.AutoUpdate("node01", models.CommandActivate))

	w := doForm(router, http.MethodGet, "/api/device/node01/control", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, models.ModeAuto, resp["mode"])
	assert.Equal(t, models.CommandActivate, resp["command"])
	assert.Equal(t, models.StatusAuto, resp["status"])
}
