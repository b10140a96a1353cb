package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Store persists raw image bytes on disk, one file per upload.
type Store struct {
	baseDir string
	logger  *zap.Logger
	now     func() time.Time
}

func NewStore(baseDir string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}
	return &Store{baseDir: baseDir, logger: logger, now: time.Now}, nil
}

// Save writes the image bytes to a timestamped file and returns the file
// path and the sha256 checksum of the content.
func (s *Store) Save(deviceCode string, data []byte) (string, string, error) {
	sum := sha256.Sum256(data)
	checksum := hex.EncodeToString(sum[:])

	filename := fmt.Sprintf("%s_original_%s.jpg", deviceCode, s.now().Format("20060102_150405.000000"))
	path := filepath.Join(s.baseDir, filename)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", "", fmt.Errorf("failed to write image file: %w", err)
	}

	return path, checksum, nil
}

// Load reads back stored image bytes.
func (s *Store) Load(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image file: %w", err)
	}
	return data, nil
}
