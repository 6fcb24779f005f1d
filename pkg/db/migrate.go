/*
 * Copyright 2026 Faceterm Labs.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package db

import (
	"context"
	"fmt"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS devices (
		addr       TEXT PRIMARY KEY,
		name       TEXT NOT NULL DEFAULT '',
		username   TEXT NOT NULL DEFAULT '',
		password   TEXT NOT NULL DEFAULT '',
		is_active  BOOLEAN NOT NULL DEFAULT TRUE,
		status     TEXT NOT NULL DEFAULT 'offline',
		last_sync  TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		event_id    TEXT PRIMARY KEY,
		device_addr TEXT NOT NULL,
		category    TEXT NOT NULL DEFAULT 'Unknown',
		event_time  TIMESTAMPTZ NOT NULL,
		picture_url TEXT NOT NULL DEFAULT '',
		synced      BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_event_time ON events (event_time)`,
	`CREATE INDEX IF NOT EXISTS idx_events_device_addr ON events (device_addr)`,
}

// Migrate creates the devices and events tables if they do not exist yet.
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	db.logger.Debug().Int("statements", len(migrations)).Msg("Schema migration complete")

	return nil
}
