package models

import "time"

// Alert severity levels.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Alert represents a row in the 'alerts' table. A device has at most one
// alert with resolved_at IS NULL at any time.
type Alert struct {
	ID          string     `db:"id" json:"id"`
	DeviceID    string     `db:"device_id" json:"device_id"`
	DeviceCode  string     `db:"device_code" json:"device_code"`
	LarvaeCount int        `db:"larvae_count" json:"larvae_count"`
	Severity    string     `db:"severity" json:"severity"`
	Message     string     `db:"message" json:"message"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	ResolvedAt  *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
}
