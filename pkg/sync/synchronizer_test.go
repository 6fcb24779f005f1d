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

package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/faceterm/fleetsync/pkg/db"
	"github.com/faceterm/fleetsync/pkg/logger"
	"github.com/faceterm/fleetsync/pkg/models"
	"github.com/faceterm/fleetsync/pkg/terminal"
)

var errStorage = errors.New("storage unavailable")

func activeDevice(addr string) *models.Device {
	return &models.Device{
		Addr:     addr,
		Name:     "terminal-" + addr,
		Username: "admin",
		Password: "secret",
		IsActive: true,
	}
}

func TestRunCycle_MixedFleet(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := db.NewMockService(ctrl)
	client := NewMockDeviceClient(ctrl)

	deviceA := activeDevice("10.0.0.1")
	deviceB := activeDevice("10.0.0.2")
	deviceC := activeDevice("10.0.0.3")

	store.EXPECT().ListActiveDevices(gomock.Any()).
		Return([]*models.Device{deviceA, deviceB, deviceC}, nil)

	// A and B probe online; C is unreachable.
	client.EXPECT().Probe(gomock.Any(), deviceA).Return(models.StatusOnline)
	client.EXPECT().Probe(gomock.Any(), deviceB).Return(models.StatusOnline)
	client.EXPECT().Probe(gomock.Any(), deviceC).Return(models.StatusOffline)

	store.EXPECT().UpdateDeviceStatus(gomock.Any(), deviceA.Addr, models.StatusOnline, gomock.Any()).Return(nil)
	store.EXPECT().UpdateDeviceStatus(gomock.Any(), deviceB.Addr, models.StatusOnline, gomock.Any()).Return(nil)
	store.EXPECT().UpdateDeviceStatus(gomock.Any(), deviceC.Addr, models.StatusOffline, gomock.Any()).Return(nil)

	// A yields two events; B's fetch fails but B stays online.
	client.EXPECT().FetchEvents(gomock.Any(), deviceA).Return(terminal.FetchResult{
		Events: []*models.Event{
			{DeviceAddr: deviceA.Addr, Category: "FaceRecognized"},
			{DeviceAddr: deviceA.Addr, Category: "CardSwipe"},
		},
	})
	client.EXPECT().FetchEvents(gomock.Any(), deviceB).Return(terminal.FetchResult{Failed: true})

	store.EXPECT().InsertEvent(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	syncer := NewSynchronizer(store, client, logger.NewTestLogger())

	summary, err := syncer.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.CycleSummary{Total: 3, Online: 2, Offline: 1}, summary)
}

func TestRunCycle_NoActiveDevices(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := db.NewMockService(ctrl)
	client := NewMockDeviceClient(ctrl)

	store.EXPECT().ListActiveDevices(gomock.Any()).Return(nil, nil)

	syncer := NewSynchronizer(store, client, logger.NewTestLogger())

	summary, err := syncer.RunCycle(context.Background())
	require.NoError(t, err)

	// Zero devices means zero network calls: no Probe or FetchEvents
	// expectations were registered, so any call would fail the test.
	assert.Equal(t, models.CycleSummary{}, summary)
}

func TestRunCycle_DeviceListError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := db.NewMockService(ctrl)
	client := NewMockDeviceClient(ctrl)

	store.EXPECT().ListActiveDevices(gomock.Any()).Return(nil, errStorage)

	syncer := NewSynchronizer(store, client, logger.NewTestLogger())

	_, err := syncer.RunCycle(context.Background())
	require.ErrorIs(t, err, errStorage)
}

func TestRunCycle_ErrorOutcomeFoldsIntoOffline(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := db.NewMockService(ctrl)
	client := NewMockDeviceClient(ctrl)

	deviceA := activeDevice("10.0.0.1")
	deviceB := activeDevice("10.0.0.2")

	store.EXPECT().ListActiveDevices(gomock.Any()).
		Return([]*models.Device{deviceA, deviceB}, nil)

	client.EXPECT().Probe(gomock.Any(), deviceA).Return(models.StatusOnline)
	client.EXPECT().Probe(gomock.Any(), deviceB).Return(models.StatusOnline)

	// B's status write fails; its outcome is error, counted as offline.
	store.EXPECT().UpdateDeviceStatus(gomock.Any(), deviceA.Addr, models.StatusOnline, gomock.Any()).Return(nil)
	store.EXPECT().UpdateDeviceStatus(gomock.Any(), deviceB.Addr, models.StatusOnline, gomock.Any()).Return(errStorage)

	client.EXPECT().FetchEvents(gomock.Any(), deviceA).Return(terminal.FetchResult{})

	syncer := NewSynchronizer(store, client, logger.NewTestLogger())

	summary, err := syncer.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.CycleSummary{Total: 2, Online: 1, Offline: 1}, summary)
	assert.Equal(t, summary.Total, summary.Online+summary.Offline)
}

func TestSyncDevice_OfflineSkipsEventFetch(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := db.NewMockService(ctrl)
	client := NewMockDeviceClient(ctrl)

	device := activeDevice("10.0.0.9")
	started := time.Now().UTC()

	client.EXPECT().Probe(gomock.Any(), device).Return(models.StatusOffline)

	store.EXPECT().
		UpdateDeviceStatus(gomock.Any(), device.Addr, models.StatusOffline, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, _ models.DeviceStatus, lastSync time.Time) error {
			// Last-sync is refreshed even when the device is unreachable.
			assert.False(t, lastSync.Before(started))
			return nil
		})

	// No FetchEvents expectation: a fetch attempt would fail the test.
	syncer := NewSynchronizer(store, client, logger.NewTestLogger())

	outcome := syncer.SyncDevice(context.Background(), device)

	assert.Equal(t, models.DeviceOutcome{Addr: device.Addr, Status: models.StatusOffline}, outcome)
}

func TestSyncDevice_StatusWriteFailureIsErrorOutcome(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := db.NewMockService(ctrl)
	client := NewMockDeviceClient(ctrl)

	device := activeDevice("10.0.0.4")

	client.EXPECT().Probe(gomock.Any(), device).Return(models.StatusOnline)
	store.EXPECT().
		UpdateDeviceStatus(gomock.Any(), device.Addr, models.StatusOnline, gomock.Any()).
		Return(errStorage)

	syncer := NewSynchronizer(store, client, logger.NewTestLogger())

	outcome := syncer.SyncDevice(context.Background(), device)

	assert.Equal(t, models.StatusError, outcome.Status)
	assert.Equal(t, device.Addr, outcome.Addr)
}

func TestSyncDevice_InsertFailureDoesNotDemoteDevice(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := db.NewMockService(ctrl)
	client := NewMockDeviceClient(ctrl)

	device := activeDevice("10.0.0.5")

	client.EXPECT().Probe(gomock.Any(), device).Return(models.StatusOnline)
	store.EXPECT().
		UpdateDeviceStatus(gomock.Any(), device.Addr, models.StatusOnline, gomock.Any()).
		Return(nil)

	client.EXPECT().FetchEvents(gomock.Any(), device).Return(terminal.FetchResult{
		Events: []*models.Event{
			{DeviceAddr: device.Addr, Category: "FaceRecognized"},
			{DeviceAddr: device.Addr, Category: "CardSwipe"},
		},
	})

	gomock.InOrder(
		store.EXPECT().InsertEvent(gomock.Any(), gomock.Any()).Return(errStorage),
		store.EXPECT().InsertEvent(gomock.Any(), gomock.Any()).Return(nil),
	)

	syncer := NewSynchronizer(store, client, logger.NewTestLogger())

	outcome := syncer.SyncDevice(context.Background(), device)

	assert.Equal(t, models.StatusOnline, outcome.Status)
}

func TestRunCycle_SlowDeviceDoesNotSerializeCycle(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := db.NewMockService(ctrl)
	client := NewMockDeviceClient(ctrl)

	const (
		fleetSize  = 8
		probeDelay = 300 * time.Millisecond
	)

	devices := make([]*models.Device, 0, fleetSize)
	for i := 0; i < fleetSize; i++ {
		devices = append(devices, activeDevice(string(rune('a'+i))))
	}

	store.EXPECT().ListActiveDevices(gomock.Any()).Return(devices, nil)

	// Every probe hangs for the full delay before resolving offline. A
	// serialized cycle would take fleetSize * probeDelay.
	client.EXPECT().Probe(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ *models.Device) models.DeviceStatus {
			time.Sleep(probeDelay)
			return models.StatusOffline
		}).
		Times(fleetSize)

	store.EXPECT().
		UpdateDeviceStatus(gomock.Any(), gomock.Any(), models.StatusOffline, gomock.Any()).
		Return(nil).
		Times(fleetSize)

	syncer := NewSynchronizer(store, client, logger.NewTestLogger())

	started := time.Now()

	summary, err := syncer.RunCycle(context.Background())
	require.NoError(t, err)

	elapsed := time.Since(started)

	assert.Equal(t, fleetSize, summary.Total)
	assert.GreaterOrEqual(t, elapsed, probeDelay)
	assert.Less(t, elapsed, time.Duration(fleetSize)*probeDelay/2,
		"cycle wall time should be bounded by the slowest device, not the sum")
}
