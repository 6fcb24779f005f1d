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
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/faceterm/fleetsync/pkg/db"
	"github.com/faceterm/fleetsync/pkg/logger"
	"github.com/faceterm/fleetsync/pkg/models"
)

func testConfig() *Config {
	cfg := &Config{Database: &models.Database{Host: "localhost", Database: "fleet"}}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	return cfg
}

func TestScheduler_SkipsInvocationWhileCycleRunning(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := db.NewMockService(ctrl)
	client := NewMockDeviceClient(ctrl)

	var listCalls atomic.Int32

	release := make(chan struct{})
	entered := make(chan struct{})

	// The first cycle blocks inside the device-list query until released;
	// the call counter shows whether a second cycle ever started.
	store.EXPECT().ListActiveDevices(gomock.Any()).
		DoAndReturn(func(_ context.Context) ([]*models.Device, error) {
			if listCalls.Add(1) == 1 {
				close(entered)
				<-release
			}
			return nil, nil
		}).
		AnyTimes()

	syncer := NewSynchronizer(store, client, logger.NewTestLogger())
	scheduler := NewScheduler(testConfig(), store, syncer, nil, logger.NewTestLogger())

	done := make(chan struct{})

	go func() {
		defer close(done)

		scheduler.runCycle(context.Background())
	}()

	<-entered

	// Invocations arriving while the first cycle runs are dropped entirely.
	scheduler.runCycle(context.Background())
	scheduler.runCycle(context.Background())
	assert.Equal(t, int32(1), listCalls.Load())

	close(release)
	<-done

	// The guard is released once the cycle completes.
	scheduler.runCycle(context.Background())
	assert.Equal(t, int32(2), listCalls.Load())
}

func TestScheduler_GuardReleasedAfterCycleError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := db.NewMockService(ctrl)
	runner := NewMockCycleRunner(ctrl)

	gomock.InOrder(
		runner.EXPECT().RunCycle(gomock.Any()).Return(models.CycleSummary{}, errStorage),
		runner.EXPECT().RunCycle(gomock.Any()).Return(models.CycleSummary{Total: 1, Online: 1}, nil),
	)

	scheduler := NewScheduler(testConfig(), store, runner, nil, logger.NewTestLogger())

	// A failing cycle must not wedge the scheduler: the next invocation
	// still acquires the guard and runs.
	scheduler.runCycle(context.Background())
	scheduler.runCycle(context.Background())
}

func TestScheduler_StartRunsInitialCycleThenTicks(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := db.NewMockService(ctrl)
	runner := NewMockCycleRunner(ctrl)
	clock := NewMockClock(ctrl)
	ticker := NewMockTicker(ctrl)

	tickCh := make(chan time.Time)

	clock.EXPECT().Now().Return(time.Now()).AnyTimes()
	clock.EXPECT().Ticker(time.Second).Return(ticker)
	ticker.EXPECT().Chan().Return((<-chan time.Time)(tickCh)).AnyTimes()
	ticker.EXPECT().Stop()

	var cycles atomic.Int32

	runner.EXPECT().RunCycle(gomock.Any()).
		DoAndReturn(func(_ context.Context) (models.CycleSummary, error) {
			cycles.Add(1)
			return models.CycleSummary{}, nil
		}).
		AnyTimes()

	scheduler := NewScheduler(testConfig(), store, runner, clock, logger.NewTestLogger())

	errCh := make(chan error, 1)

	go func() {
		errCh <- scheduler.Start(context.Background())
	}()

	// The startup cycle runs before any tick fires.
	require.Eventually(t, func() bool {
		return cycles.Load() == 1
	}, time.Second, 5*time.Millisecond)

	tickCh <- time.Now()

	require.Eventually(t, func() bool {
		return cycles.Load() == 2
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, scheduler.Stop(context.Background()))
	require.NoError(t, <-errCh)
}

func TestScheduler_StartHonorsContextCancellation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := db.NewMockService(ctrl)
	runner := NewMockCycleRunner(ctrl)
	clock := NewMockClock(ctrl)
	ticker := NewMockTicker(ctrl)

	tickCh := make(chan time.Time)

	clock.EXPECT().Now().Return(time.Now()).AnyTimes()
	clock.EXPECT().Ticker(gomock.Any()).Return(ticker)
	ticker.EXPECT().Chan().Return((<-chan time.Time)(tickCh)).AnyTimes()
	ticker.EXPECT().Stop()

	runner.EXPECT().RunCycle(gomock.Any()).Return(models.CycleSummary{}, nil)

	scheduler := NewScheduler(testConfig(), store, runner, clock, logger.NewTestLogger())

	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)

	go func() {
		errCh <- scheduler.Start(ctx)
	}()

	cancel()

	require.ErrorIs(t, <-errCh, context.Canceled)
}

func TestScheduler_RunCleanup(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := db.NewMockService(ctrl)
	runner := NewMockCycleRunner(ctrl)

	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	cfg := testConfig()

	store.EXPECT().
		DeleteEventsBefore(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, cutoff time.Time) (int64, error) {
			// Default retention is 60 days.
			assert.True(t, cutoff.Equal(now.Add(-60*24*time.Hour)), "got cutoff %v", cutoff)
			return 42, nil
		})

	scheduler := NewScheduler(cfg, store, runner, fixedClock{now: now}, logger.NewTestLogger())
	scheduler.runCleanup(context.Background())
}

func TestScheduler_RunCleanupSurvivesStorageError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := db.NewMockService(ctrl)
	runner := NewMockCycleRunner(ctrl)

	store.EXPECT().DeleteEventsBefore(gomock.Any(), gomock.Any()).Return(int64(0), errStorage)

	scheduler := NewScheduler(testConfig(), store, runner, nil, logger.NewTestLogger())
	scheduler.runCleanup(context.Background())
}

// fixedClock returns a constant time; its ticker is never used.
type fixedClock struct {
	now time.Time
}

func (f fixedClock) Now() time.Time { return f.now }

func (fixedClock) Ticker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

func TestUntilNextCleanup(t *testing.T) {
	tests := []struct {
		name     string
		now      time.Time
		at       string
		expected time.Duration
	}{
		{
			name:     "before todays cleanup",
			now:      time.Date(2026, 8, 29, 23, 0, 0, 0, time.UTC),
			at:       "23:30",
			expected: 30 * time.Minute,
		},
		{
			name:     "exactly at cleanup time rolls to next day",
			now:      time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC),
			at:       "00:00",
			expected: 24 * time.Hour,
		},
		{
			name:     "after todays cleanup",
			now:      time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC),
			at:       "00:00",
			expected: 12 * time.Hour,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, untilNextCleanup(tt.now, tt.at))
		})
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := &Config{Database: &models.Database{Host: "localhost", Database: "fleet"}}

	require.NoError(t, cfg.Validate())

	assert.Equal(t, "fleetsync", cfg.ServiceName)
	assert.Equal(t, time.Second, time.Duration(cfg.PollInterval))
	assert.Equal(t, 10*time.Second, time.Duration(cfg.Timeout))
	assert.Equal(t, 60*24*time.Hour, time.Duration(cfg.Retention))
	assert.Equal(t, "00:00", cfg.CleanupTime)
}

func TestConfigValidate_InvalidCleanupTime(t *testing.T) {
	cfg := &Config{
		Database:    &models.Database{Host: "localhost", Database: "fleet"},
		CleanupTime: "25:99",
	}

	require.Error(t, cfg.Validate())
}

func TestConfigValidate_MissingDatabase(t *testing.T) {
	cfg := &Config{}

	require.ErrorIs(t, cfg.Validate(), errDatabaseRequired)
}
