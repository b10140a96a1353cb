package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"larvadet/internal/control"
	"larvadet/internal/middleware"
	"larvadet/internal/models"
	"larvadet/internal/repository/repositorytest"
	"larvadet/internal/storage"
)

type fakeScheduler struct {
	enqueued []string
}

func (f *fakeScheduler) Enqueue(imageID string) bool {
	f.enqueued = append(f.enqueued, imageID)
	return true
}

func uploadTestRouter(t *testing.T, images *repositorytest.FakeImageRepo, sched *fakeScheduler) (*gin.Engine, *repositorytest.FakeDeviceRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	devices := repositorytest.NewFakeDeviceRepo()
	device := &models.Device{ID: "dev-1", DeviceCode: "node01", IsActive: true}
	devices.Add(device)

	controls := repositorytest.NewFakeControlRepo()
	controlSvc := control.NewService(devices, controls, logger)

	store, err := storage.NewStore(t.TempDir(), logger)
	require.NoError(t, err)

	h := NewUploadHandler(images, store, sched, controlSvc, logger)

	router := gin.New()
	router.POST("/api/upload", func(c *gin.Context) {
		c.Set(middleware.ContextDevice, device)
		c.Next()
	}, h.Upload)
	return router, devices
}

func multipartImage(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func TestUploadReturnsBeforeClassification(t *testing.T) {
	images := repositorytest.NewFakeImageRepo()
	sched := &fakeScheduler{}
	router, _ := uploadTestRouter(t, images, sched)

	body, contentType := multipartImage(t, "image", "capture.jpg", []byte("jpeg-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "PROCESSING", resp["status"])
	assert.Equal(t, "SLEEP", resp["action"])
	assert.Equal(t, "node01", resp["device_code"])
	assert.NotEmpty(t, resp["image_id"])

	// The job was scheduled for exactly the persisted image.
	require.Len(t, sched.enqueued, 1)
	imageID := resp["image_id"].(string)
	assert.Equal(t, imageID, sched.enqueued[0])
	img, _ := images.GetImageByID(imageID)
	require.NotNil(t, img)
	assert.Equal(t, models.ImageTypeOriginal, img.ImageType)
	assert.NotEmpty(t, img.Checksum)
}

func TestUploadMissingImageIsBadRequest(t *testing.T) {
	images := repositorytest.NewFakeImageRepo()
	sched := &fakeScheduler{}
	router, _ := uploadTestRouter(t, images, sched)

	req := httptest.NewRequest(http.MethodPost, "/api/upload", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, sched.enqueued)
}

func TestUploadStorageFailureSchedulesNothing(t *testing.T) {
	images := repositorytest.NewFakeImageRepo()
	images.SaveErr = errors.New("database unavailable")
	sched := &fakeScheduler{}
	router, _ := uploadTestRouter(t, images, sched)

	body, contentType := multipartImage(t, "image", "capture.jpg", []byte("jpeg-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	// No orphan classification job.
	assert.Empty(t, sched.enqueued)
}

func TestUploadFallbackActionFollowsPendingManualActivate(t *testing.T) {
	images := repositorytest.NewFakeImageRepo()
	sched := &fakeScheduler{}

	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	devices := repositorytest.NewFakeDeviceRepo()
	device := &models.Device{ID: "dev-1", DeviceCode: "node01", IsActive: true}
	devices.Add(device)
	controls := repositorytest.NewFakeControlRepo()
	controlSvc := control.NewService(devices, controls, logger)

	_, err := controlSvc.ManualSet("node01", models.CommandActivate, "stay awake")
	require.NoError(t, err)

	store, err := storage.NewStore(t.TempDir(), logger)
	require.NoError(t, err)
	h := NewUploadHandler(images, store, sched, controlSvc, logger)

	router := gin.New()
	router.POST("/api/upload", func(c *gin.Context) {
		c.Set(middleware.ContextDevice, device)
		c.Next()
	}, h.Upload)

	body, contentType := multipartImage(t, "image", "capture.jpg", []byte("jpeg-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ACTIVATE", resp["action"])
}
