package repository

import (
	"database/sql"
	"errors"
	"time"

	"larvadet/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type AlertRepository interface {
	CreateAlert(alert *models.Alert) error
	GetOpenByDeviceID(deviceID string) (*models.Alert, error)
	ResolveAlert(id string, resolvedAt time.Time) error
	ListAlerts(resolved *bool) ([]*models.Alert, error)
}

type alertRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewAlertRepository(db *sqlx.DB, logger *zap.Logger) AlertRepository {
	return &alertRepository{db: db, logger: logger}
}

func (r *alertRepository) CreateAlert(alert *models.Alert) error {
	query := `INSERT INTO alerts (id, device_id, device_code, larvae_count, severity, message, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.Exec(query, alert.ID, alert.DeviceID, alert.DeviceCode,
		alert.LarvaeCount, alert.Severity, alert.Message, alert.CreatedAt)
	return err
}

// GetOpenByDeviceID returns the unresolved alert for a device, or nil.
// The partial unique index on (device_id) WHERE resolved_at IS NULL
// guarantees at most one row.
func (r *alertRepository) GetOpenByDeviceID(deviceID string) (*models.Alert, error) {
	var alert models.Alert
	query := `SELECT id, device_id, device_code, larvae_count, severity, message, created_at, resolved_at
	          FROM alerts WHERE device_id = $1 AND resolved_at IS NULL`
	err := r.db.Get(&alert, query, deviceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &alert, nil
}

func (r *alertRepository) ResolveAlert(id string, resolvedAt time.Time) error {
	query := `UPDATE alerts SET resolved_at = $1 WHERE id = $2 AND resolved_at IS NULL`
	_, err := r.db.Exec(query, resolvedAt, id)
	return err
}

func (r *alertRepository) ListAlerts(resolved *bool) ([]*models.Alert, error) {
	var alerts []*models.Alert
	query := `SELECT id, device_id, device_code, larvae_count, severity, message, created_at, resolved_at FROM alerts`
	var err error
	if resolved == nil {
		query += ` ORDER BY created_at DESC`
		err = r.db.Select(&alerts, query)
	} else if *resolved {
		query += ` WHERE resolved_at IS NOT NULL ORDER BY created_at DESC`
		err = r.db.Select(&alerts, query)
	} else {
		query += ` WHERE resolved_at IS NULL ORDER BY created_at DESC`
		err = r.db.Select(&alerts, query)
	}
	if err != nil {
		return nil, err
	}
	return alerts, nil
}
