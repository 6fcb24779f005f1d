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

// Package db pkg/db/interfaces.go
package db

import (
	"context"
	"time"

	"github.com/faceterm/fleetsync/pkg/models"
)

//go:generate mockgen -destination=mock_db.go -package=db github.com/faceterm/fleetsync/pkg/db Service

// Service represents all storage operations for the fleet database.
type Service interface {
	Close() error

	// Device operations.

	CreateDevice(ctx context.Context, device *models.Device) error
	GetDevice(ctx context.Context, addr string) (*models.Device, error)
	ListDevices(ctx context.Context) ([]*models.Device, error)
	ListActiveDevices(ctx context.Context) ([]*models.Device, error)
	UpdateDeviceStatus(ctx context.Context, addr string, status models.DeviceStatus, lastSync time.Time) error
	SetDeviceActive(ctx context.Context, addr string, active bool) error
	DeleteDevice(ctx context.Context, addr string) error

	// Event operations.

	InsertEvent(ctx context.Context, event *models.Event) error
	ListRecentEvents(ctx context.Context, limit int) ([]*models.Event, error)
	MarkEventSynced(ctx context.Context, eventID string) error
	DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
