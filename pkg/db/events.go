package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/faceterm/fleetsync/pkg/models"
)

// InsertEvent persists one ingested event record. Ingestion is at-least-once:
// the devices do not report stable event identifiers, so a fresh record ID is
// minted per write and no dedup key is enforced.
func (db *DB) InsertEvent(ctx context.Context, event *models.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	if event.EventTime.IsZero() {
		event.EventTime = time.Now().UTC()
	}

	_, err := db.Pool.Exec(ctx,
		`INSERT INTO events (event_id, device_addr, category, event_time, picture_url, synced)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		event.ID,
		event.DeviceAddr,
		event.Category,
		event.EventTime,
		event.PictureURL,
		event.Synced,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event for device %s: %w", event.DeviceAddr, err)
	}

	return nil
}

// ListRecentEvents returns the newest events, most recent first.
func (db *DB) ListRecentEvents(ctx context.Context, limit int) ([]*models.Event, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT event_id, device_addr, category, event_time, picture_url, synced
		FROM events ORDER BY event_time DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []*models.Event

	for rows.Next() {
		var event models.Event

		err := rows.Scan(
			&event.ID,
			&event.DeviceAddr,
			&event.Category,
			&event.EventTime,
			&event.PictureURL,
			&event.Synced,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}

		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read event rows: %w", err)
	}

	return events, nil
}

// MarkEventSynced flags an event as exported downstream.
func (db *DB) MarkEventSynced(ctx context.Context, eventID string) error {
	tag, err := db.Pool.Exec(ctx,
		`UPDATE events SET synced = TRUE WHERE event_id = $1`, eventID)
	if err != nil {
		return fmt.Errorf("failed to mark event %s synced: %w", eventID, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrEventNotFound, eventID)
	}

	return nil
}

// DeleteEventsBefore removes events older than the cutoff and reports how
// many rows were deleted. Used by the daily retention job.
func (db *DB) DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := db.Pool.Exec(ctx,
		`DELETE FROM events WHERE event_time < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrFailedToClean, err)
	}

	return tag.RowsAffected(), nil
}
