package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/faceterm/fleetsync/pkg/models"
)

const deviceColumns = `addr, name, username, password, is_active, status, last_sync, created_at`

// CreateDevice registers a device, upserting on its address.
func (db *DB) CreateDevice(ctx context.Context, device *models.Device) error {
	if device.Status == "" {
		device.Status = models.StatusOffline
	}

	if device.CreatedAt.IsZero() {
		device.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO devices (` + deviceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (addr) DO UPDATE SET
			name      = EXCLUDED.name,
			username  = EXCLUDED.username,
			password  = EXCLUDED.password,
			is_active = EXCLUDED.is_active`

	_, err := db.Pool.Exec(ctx, query,
		device.Addr,
		device.Name,
		device.Username,
		device.Password,
		device.IsActive,
		device.Status,
		device.LastSync,
		device.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store device %s: %w", device.Addr, err)
	}

	return nil
}

// GetDevice returns the device with the given address.
func (db *DB) GetDevice(ctx context.Context, addr string) (*models.Device, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE addr = $1`, addr)

	device, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, addr)
		}

		return nil, fmt.Errorf("failed to get device %s: %w", addr, err)
	}

	return device, nil
}

// ListDevices returns every registered device ordered by address.
func (db *DB) ListDevices(ctx context.Context) ([]*models.Device, error) {
	return db.queryDevices(ctx,
		`SELECT `+deviceColumns+` FROM devices ORDER BY addr`)
}

// ListActiveDevices returns the devices participating in synchronization.
func (db *DB) ListActiveDevices(ctx context.Context) ([]*models.Device, error) {
	return db.queryDevices(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE is_active ORDER BY addr`)
}

// UpdateDeviceStatus writes the reachability determined by a sync attempt and
// refreshes the last-sync timestamp.
func (db *DB) UpdateDeviceStatus(
	ctx context.Context, addr string, status models.DeviceStatus, lastSync time.Time) error {
	tag, err := db.Pool.Exec(ctx,
		`UPDATE devices SET status = $2, last_sync = $3 WHERE addr = $1`,
		addr, status, lastSync)
	if err != nil {
		return fmt.Errorf("failed to update status for device %s: %w", addr, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, addr)
	}

	return nil
}

// SetDeviceActive toggles whether a device participates in synchronization.
func (db *DB) SetDeviceActive(ctx context.Context, addr string, active bool) error {
	tag, err := db.Pool.Exec(ctx,
		`UPDATE devices SET is_active = $2 WHERE addr = $1`, addr, active)
	if err != nil {
		return fmt.Errorf("failed to set active flag for device %s: %w", addr, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, addr)
	}

	return nil
}

// DeleteDevice removes a device by address.
func (db *DB) DeleteDevice(ctx context.Context, addr string) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM devices WHERE addr = $1`, addr)
	if err != nil {
		return fmt.Errorf("failed to delete device %s: %w", addr, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, addr)
	}

	return nil
}

func (db *DB) queryDevices(ctx context.Context, query string, args ...interface{}) ([]*models.Device, error) {
	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query devices: %w", err)
	}
	defer rows.Close()

	var devices []*models.Device

	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan device row: %w", err)
		}

		devices = append(devices, device)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read device rows: %w", err)
	}

	return devices, nil
}

func scanDevice(row pgx.Row) (*models.Device, error) {
	var device models.Device

	err := row.Scan(
		&device.Addr,
		&device.Name,
		&device.Username,
		&device.Password,
		&device.IsActive,
		&device.Status,
		&device.LastSync,
		&device.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &device, nil
}
