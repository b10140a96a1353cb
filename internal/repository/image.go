package repository

import (
	"database/sql"
	"errors"

	"larvadet/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type ImageRepository interface {
	SaveImage(img *models.Image) error
	GetImageByID(id string) (*models.Image, error)
	ListByDeviceCode(deviceCode string, limit int) ([]*models.Image, error)
}

type imageRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewImageRepository(db *sqlx.DB, logger *zap.Logger) ImageRepository {
	return &imageRepository{db: db, logger: logger}
}

func (r *imageRepository) SaveImage(img *models.Image) error {
	query := `INSERT INTO images (id, device_id, device_code, image_type, image_path, checksum, captured_at, uploaded_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.Exec(query, img.ID, img.DeviceID, img.DeviceCode, img.ImageType,
		img.ImagePath, img.Checksum, img.CapturedAt, img.UploadedAt)
	return err
}

func (r *imageRepository) GetImageByID(id string) (*models.Image, error) {
	var img models.Image
	query := `SELECT id, device_id, device_code, image_type, image_path, checksum, captured_at, uploaded_at FROM images WHERE id = $1`
	err := r.db.Get(&img, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &img, nil
}

func (r *imageRepository) ListByDeviceCode(deviceCode string, limit int) ([]*models.Image, error) {
	var images []*models.Image
	query := `SELECT id, device_id, device_code, image_type, image_path, checksum, captured_at, uploaded_at
	          FROM images WHERE device_code = $1 ORDER BY uploaded_at DESC LIMIT $2`
	err := r.db.Select(&images, query, deviceCode, limit)
	if err != nil {
		return nil, err
	}
	return images, nil
}
