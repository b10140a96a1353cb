package repository

import (
	"database/sql"
	"errors"

	"larvadet/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type ClassificationRepository interface {
	SaveResult(result *models.ClassificationResult) error
	GetByImageID(imageID string) (*models.ClassificationResult, error)
	GetLatestByDeviceCode(deviceCode string) (*models.ClassificationResult, error)
	ListByDeviceCode(deviceCode string, limit int) ([]*models.ClassificationResult, error)
}

type classificationRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewClassificationRepository(db *sqlx.DB, logger *zap.Logger) ClassificationRepository {
	return &classificationRepository{db: db, logger: logger}
}

func (r *classificationRepository) SaveResult(result *models.ClassificationResult) error {
	query := `INSERT INTO classification_results
	          (id, image_id, device_id, device_code, status, total_objects, total_larvae, total_non_larvae, avg_confidence, raw_payload, error_message, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.db.Exec(query, result.ID, result.ImageID, result.DeviceID, result.DeviceCode,
		result.Status, result.TotalObjects, result.TotalLarvae, result.TotalNonLarvae,
		result.AvgConfidence, result.RawPayload, result.ErrorMessage, result.CreatedAt)
	return err
}

func (r *classificationRepository) GetByImageID(imageID string) (*models.ClassificationResult, error) {
	var result models.ClassificationResult
	query := `SELECT id, image_id, device_id, device_code, status, total_objects, total_larvae, total_non_larvae, avg_confidence, raw_payload, error_message, created_at
	          FROM classification_results WHERE image_id = $1`
	err := r.db.Get(&result, query, imageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *classificationRepository) GetLatestByDeviceCode(deviceCode string) (*models.ClassificationResult, error) {
	var result models.ClassificationResult
	query := `SELECT id, image_id, device_id, device_code, status, total_objects, total_larvae, total_non_larvae, avg_confidence, raw_payload, error_message, created_at
	          FROM classification_results WHERE device_code = $1 ORDER BY created_at DESC LIMIT 1`
	err := r.db.Get(&result, query, deviceCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *classificationRepository) ListByDeviceCode(deviceCode string, limit int) ([]*models.ClassificationResult, error) {
	var results []*models.ClassificationResult
	query := `SELECT id, image_id, device_id, device_code, status, total_objects, total_larvae, total_non_larvae, avg_confidence, raw_payload, error_message, created_at
	          FROM classification_results WHERE device_code = $1 ORDER BY created_at DESC LIMIT $2`
	err := r.db.Select(&results, query, deviceCode, limit)
	if err != nil {
		return nil, err
	}
	return results, nil
}
