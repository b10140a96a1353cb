package models

import "time"

// Control modes.
const (
	ModeManual = "MANUAL"
	ModeAuto   = "AUTO"
)

// Control commands.
const (
	CommandActivate = "ACTIVATE"
	CommandStop     = "STOP"
	CommandNoOp     = "NO_OP"
)

// Control statuses.
const (
	StatusPending  = "PENDING"
	StatusExecuted = "EXECUTED"
	StatusFailed   = "FAILED"
	StatusAuto     = "AUTO"
)

// DeviceControl is the single authoritative command record per device,
// stored in 'device_controls' (unique on device_id). The version column is
// compared-and-swapped on every update so concurrent writers never produce
// a lost update.
type DeviceControl struct {
	ID         string    `db:"id" json:"id"`
	DeviceID   string    `db:"device_id" json:"device_id"`
	DeviceCode string    `db:"device_code" json:"device_code"`
	Mode       string    `db:"mode" json:"mode"`
	Command    string    `db:"command" json:"command"`
	Status     string    `db:"status" json:"status"`
	Message    string    `db:"message" json:"message"`
	Version    int64     `db:"version" json:"-"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
