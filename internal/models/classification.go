package models

import "time"

// Classification outcome statuses.
const (
	ClassificationSuccess = "success"
	ClassificationFailed  = "failed"
)

// ClassificationResult represents a row in 'classification_results'.
// At most one exists per image; a failed attempt is terminal.
type ClassificationResult struct {
	ID             string    `db:"id" json:"id"`
	ImageID        string    `db:"image_id" json:"image_id"`
	DeviceID       string    `db:"device_id" json:"device_id"`
	DeviceCode     string    `db:"device_code" json:"device_code"`
	Status         string    `db:"status" json:"status"`
	TotalObjects   int       `db:"total_objects" json:"total_objects"`
	TotalLarvae    int       `db:"total_larvae" json:"total_larvae"`
	TotalNonLarvae int       `db:"total_non_larvae" json:"total_non_larvae"`
	AvgConfidence  float64   `db:"avg_confidence" json:"avg_confidence"`
	RawPayload     []byte    `db:"raw_payload" json:"-"`
	ErrorMessage   string    `db:"error_message" json:"error_message,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
