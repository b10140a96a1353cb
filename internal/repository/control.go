package repository

import (
	"database/sql"
	"errors"

	"larvadet/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// ErrVersionConflict is returned when a compare-and-swap update loses the
// race against another writer. Callers hold a per-device lock, so hitting
// this means another process wrote the row.
var ErrVersionConflict = errors.New("control row version conflict")

type ControlRepository interface {
	GetByDeviceID(deviceID string) (*models.DeviceControl, error)
	Insert(ctl *models.DeviceControl) error
	Update(ctl *models.DeviceControl) error
}

type controlRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewControlRepository(db *sqlx.DB, logger *zap.Logger) ControlRepository {
	return &controlRepository{db: db, logger: logger}
}

func (r *controlRepository) GetByDeviceID(deviceID string) (*models.DeviceControl, error) {
	var ctl models.DeviceControl
	query := `SELECT id, device_id, device_code, mode, command, status, message, version, created_at, updated_at
	          FROM device_controls WHERE device_id = $1`
	err := r.db.Get(&ctl, query, deviceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &ctl, nil
}

func (r *controlRepository) Insert(ctl *models.DeviceControl) error {
	query := `INSERT INTO device_controls (id, device_id, device_code, mode, command, status, message, version, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.db.Exec(query, ctl.ID, ctl.DeviceID, ctl.DeviceCode, ctl.Mode, ctl.Command,
		ctl.Status, ctl.Message, ctl.Version, ctl.CreatedAt, ctl.UpdatedAt)
	return err
}

// Update writes the row only if the stored version still matches the one the
// caller read, then bumps it. ErrVersionConflict signals a lost race.
func (r *controlRepository) Update(ctl *models.DeviceControl) error {
	query := `UPDATE device_controls
	          SET mode = $1, command = $2, status = $3, message = $4, version = version + 1, updated_at = $5
	          WHERE device_id = $6 AND version = $7`
	result, err := r.db.Exec(query, ctl.Mode, ctl.Command, ctl.Status, ctl.Message,
		ctl.UpdatedAt, ctl.DeviceID, ctl.Version)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrVersionConflict
	}

	ctl.Version++
	return nil
}
