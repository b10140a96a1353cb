package repository

import (
	"database/sql"
	"errors"

	"larvadet/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type DeviceRepository interface {
	GetByCode(code string) (*models.Device, error)
	GetAuthByCode(code string) (*models.DeviceAuth, error)
}

type deviceRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewDeviceRepository(db *sqlx.DB, logger *zap.Logger) DeviceRepository {
	return &deviceRepository{db: db, logger: logger}
}

// GetByCode returns the device with the given code, or nil if none exists.
func (r *deviceRepository) GetByCode(code string) (*models.Device, error) {
	var device models.Device
	query := `SELECT id, device_code, location, description, is_active, created_at FROM devices WHERE device_code = $1`
	err := r.db.Get(&device, query, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &device, nil
}

// GetAuthByCode returns the stored credential record for a device code,
// or nil if the device has no credentials.
func (r *deviceRepository) GetAuthByCode(code string) (*models.DeviceAuth, error) {
	var auth models.DeviceAuth
	query := `SELECT id, device_id, device_code, password_hash FROM device_auth WHERE device_code = $1`
	err := r.db.Get(&auth, query, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &auth, nil
}
