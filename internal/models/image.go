package models

import "time"

// Image types.
const (
	ImageTypeOriginal = "original"
	ImageTypeDerived  = "derived"
)

// Image represents an uploaded capture stored in the 'images' table.
// Rows are created once per upload and never mutated.
type Image struct {
	ID         string     `db:"id" json:"id"`
	DeviceID   string     `db:"device_id" json:"device_id"`
	DeviceCode string     `db:"device_code" json:"device_code"`
	ImageType  string     `db:"image_type" json:"image_type"`
	ImagePath  string     `db:"image_path" json:"image_path"`
	Checksum   string     `db:"checksum" json:"checksum"`
	CapturedAt *time.Time `db:"captured_at" json:"captured_at,omitempty"`
	UploadedAt time.Time  `db:"uploaded_at" json:"uploaded_at"`
}
