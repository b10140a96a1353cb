package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	content := `
database:
  url: "postgres://u:p@localhost:5432/larvadet?sslmode=disable"
server:
  port: ":8080"
classifier:
  url: "http://localhost:9001"
  timeout_seconds: 12
pipeline:
  workers: 8
  queue_size: 32
alerts:
  warning_threshold: 5
  critical_threshold: 20
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, 12*time.Second, cfg.ClassifierTimeout())
	assert.Equal(t, 8, cfg.Pipeline.Workers)
	assert.Equal(t, 32, cfg.Pipeline.QueueSize)
	assert.Equal(t, 5, cfg.Alerts.WarningThreshold)
	assert.Equal(t, 20, cfg.Alerts.CriticalThreshold)
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: \":8080\"\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Pipeline.Workers)
	assert.Equal(t, 64, cfg.Pipeline.QueueSize)
	assert.Equal(t, 30*time.Second, cfg.ClassifierTimeout())
	assert.Equal(t, time.Hour, cfg.TokenTTL())
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig("/nonexistent/config.yml")
	assert.Error(t, err)
}
