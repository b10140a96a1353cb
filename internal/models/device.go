package models

import "time"

// Device represents a registered sensor node stored in the 'devices' table.
// Rows are owned by the registration tooling; the service only reads them.
type Device struct {
	ID          string    `db:"id" json:"id"`
	DeviceCode  string    `db:"device_code" json:"device_code"`
	Location    *string   `db:"location" json:"location,omitempty"`
	Description *string   `db:"description" json:"description,omitempty"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// DeviceAuth holds the stored credential hash for a device.
type DeviceAuth struct {
	ID           string `db:"id"`
	DeviceID     string `db:"device_id"`
	DeviceCode   string `db:"device_code"`
	PasswordHash string `db:"password_hash"`
}
