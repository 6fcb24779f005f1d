package models

import (
	"time"
)

// DeviceStatus is the reachability of an access-control terminal.
type DeviceStatus string

const (
	StatusOnline  DeviceStatus = "online"
	StatusOffline DeviceStatus = "offline"

	// StatusError marks a per-cycle outcome where the synchronization itself
	// failed; it is never persisted as a device status.
	StatusError DeviceStatus = "error"
)

// Device represents an access-control terminal registered with the fleet.
// The address is the unique identity used for all storage operations.
type Device struct {
	Addr      string       `json:"addr"`
	Name      string       `json:"name"`
	Username  string       `json:"username"`
	Password  string       `json:"password"`
	IsActive  bool         `json:"is_active"`
	Status    DeviceStatus `json:"status"`
	LastSync  *time.Time   `json:"last_sync,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// DeviceOutcome is the result of one synchronization attempt for one device.
type DeviceOutcome struct {
	Addr   string       `json:"addr"`
	Status DeviceStatus `json:"status"`
}

// CycleSummary aggregates the outcomes of one fleet synchronization cycle.
// Error outcomes are folded into Offline, so Total == Online + Offline.
type CycleSummary struct {
	Total   int `json:"total"`
	Online  int `json:"online"`
	Offline int `json:"offline"`
}
