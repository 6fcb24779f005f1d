package db

import "errors"

var (
	ErrDatabaseNotConfigured = errors.New("database not configured")
	ErrFailedOpenDB          = errors.New("failed to open database")
	ErrDeviceNotFound        = errors.New("device not found")
	ErrEventNotFound         = errors.New("event not found")
	ErrFailedToClean         = errors.New("failed to clean old events")
)
