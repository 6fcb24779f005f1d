/*
 * Copyright 2026 Faceterm Labs.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package sync implements the fleet synchronization engine: the per-device
// synchronization workflow, the concurrent fleet cycle, and the scheduler
// that drives both on a fixed cadence.
package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/faceterm/fleetsync/pkg/db"
	"github.com/faceterm/fleetsync/pkg/logger"
	"github.com/faceterm/fleetsync/pkg/models"
)

// Synchronizer drives the synchronization of individual devices and whole
// fleet cycles. It is safe for concurrent use.
type Synchronizer struct {
	store  db.Service
	client DeviceClient
	logger logger.Logger
}

// NewSynchronizer creates a synchronizer over the given storage service and
// device client.
func NewSynchronizer(store db.Service, client DeviceClient, log logger.Logger) *Synchronizer {
	return &Synchronizer{
		store:  store,
		client: client,
		logger: log,
	}
}

// RunCycle synchronizes every active device concurrently and folds the
// per-device outcomes into a cycle summary. A device failure never affects
// its siblings; the only error returned is a failure to load the device list.
func (s *Synchronizer) RunCycle(ctx context.Context) (models.CycleSummary, error) {
	devices, err := s.store.ListActiveDevices(ctx)
	if err != nil {
		return models.CycleSummary{}, fmt.Errorf("failed to list active devices: %w", err)
	}

	if len(devices) == 0 {
		s.logger.Debug().Msg("No active devices to synchronize")

		return models.CycleSummary{}, nil
	}

	var wg sync.WaitGroup

	outcomes := make(chan models.DeviceOutcome, len(devices))

	for _, device := range devices {
		wg.Add(1)

		go func(d *models.Device) {
			defer wg.Done()

			outcomes <- s.SyncDevice(ctx, d)
		}(device)
	}

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	// Barrier join: the summary is only built once every device has
	// reported, so a hung device delays the cycle but never truncates it.
	summary := models.CycleSummary{Total: len(devices)}

	for outcome := range outcomes {
		if outcome.Status == models.StatusOnline {
			summary.Online++
		} else {
			summary.Offline++
		}
	}

	return summary, nil
}

// SyncDevice runs the synchronization workflow for one device: probe, write
// the resulting status and last-sync, and ingest pending events when the
// device is online. Failures are converted into the returned outcome and
// never propagate.
func (s *Synchronizer) SyncDevice(ctx context.Context, device *models.Device) models.DeviceOutcome {
	status := s.client.Probe(ctx, device)

	if err := s.store.UpdateDeviceStatus(ctx, device.Addr, status, time.Now().UTC()); err != nil {
		s.logger.Error().Err(err).Str("device", device.Addr).Msg("Failed to persist device status")

		return models.DeviceOutcome{Addr: device.Addr, Status: models.StatusError}
	}

	if status != models.StatusOnline {
		s.logger.Debug().Str("device", device.Addr).Str("name", device.Name).Msg("Device offline")

		return models.DeviceOutcome{Addr: device.Addr, Status: status}
	}

	saved := s.ingestEvents(ctx, device)

	s.logger.Debug().
		Str("device", device.Addr).
		Str("name", device.Name).
		Int("events_saved", saved).
		Msg("Device online")

	return models.DeviceOutcome{Addr: device.Addr, Status: status}
}

// ingestEvents fetches the device's pending events and persists each record
// individually. A failed fetch or insert reduces the saved count but does not
// demote the device: it was probed online, and events will be resampled on
// the next cycle.
func (s *Synchronizer) ingestEvents(ctx context.Context, device *models.Device) int {
	result := s.client.FetchEvents(ctx, device)
	if result.Failed {
		s.logger.Warn().Str("device", device.Addr).Msg("Event fetch failed, will retry next cycle")

		return 0
	}

	saved := 0

	for _, event := range result.Events {
		if err := s.store.InsertEvent(ctx, event); err != nil {
			s.logger.Error().Err(err).Str("device", device.Addr).Msg("Failed to insert event")

			continue
		}

		saved++
	}

	return saved
}
