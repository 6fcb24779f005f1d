package models

import (
	"time"
)

// Event is a normalized access/face-recognition event ingested from a device.
// Records are written once by the event fetch path and never mutated by the
// sync engine; Synced is reserved for downstream export.
type Event struct {
	ID         string    `json:"event_id"`
	DeviceAddr string    `json:"device_addr"`
	Category   string    `json:"category"`
	EventTime  time.Time `json:"event_time"`
	PictureURL string    `json:"picture_url,omitempty"`
	Synced     bool      `json:"synced"`
}
