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
	"sync"
	"sync/atomic"
	"time"

	"github.com/faceterm/fleetsync/pkg/db"
	"github.com/faceterm/fleetsync/pkg/logger"
)

// Scheduler fires fleet synchronization cycles on a fixed interval and the
// event retention cleanup once a day. At most one cycle is in flight at any
// time; ticks arriving while a cycle runs are dropped, not queued.
type Scheduler struct {
	config Config
	store  db.Service
	runner CycleRunner
	clock  Clock
	logger logger.Logger

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	// cycleInFlight is the only shared mutable state the scheduler owns.
	// Acquired with CompareAndSwap in runCycle and always released by defer.
	cycleInFlight atomic.Bool
}

// NewScheduler creates a scheduler. A nil clock defaults to the real clock.
func NewScheduler(config *Config, store db.Service, runner CycleRunner, clock Clock, log logger.Logger) *Scheduler {
	if clock == nil {
		clock = realClock{}
	}

	return &Scheduler{
		config: *config,
		store:  store,
		runner: runner,
		clock:  clock,
		logger: log,
		done:   make(chan struct{}),
	}
}

// Start implements the lifecycle.Service interface. It runs one cycle
// immediately, then drives the sync ticker and the daily cleanup timer until
// ctx is canceled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	interval := time.Duration(s.config.PollInterval)

	ticker := s.clock.Ticker(interval)
	defer ticker.Stop()

	cleanupTimer := time.NewTimer(untilNextCleanup(s.clock.Now(), s.config.CleanupTime))
	defer cleanupTimer.Stop()

	s.logger.Info().
		Dur("interval", interval).
		Str("cleanup_time", s.config.CleanupTime).
		Msg("Starting fleet scheduler")

	s.wg.Add(1)
	defer s.wg.Done()

	// One synchronization runs at startup, before the first tick.
	s.runCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return nil
		case <-ticker.Chan():
			s.wg.Add(1)

			go func() {
				defer s.wg.Done()

				s.runCycle(ctx)
			}()
		case <-cleanupTimer.C:
			s.wg.Add(1)

			go func() {
				defer s.wg.Done()

				s.runCleanup(ctx)
			}()

			cleanupTimer.Reset(untilNextCleanup(s.clock.Now(), s.config.CleanupTime))
		}
	}
}

// Stop implements the lifecycle.Service interface. It halts the timers and
// waits for any in-flight cycle or cleanup to finish.
func (s *Scheduler) Stop(_ context.Context) error {
	s.closeOnce.Do(func() {
		close(s.done)
	})

	s.wg.Wait()

	return nil
}

// runCycle executes one guarded synchronization cycle. If a cycle is already
// in flight the invocation is skipped entirely; the guard is released on
// every exit path so a failing cycle can never wedge the scheduler.
func (s *Scheduler) runCycle(ctx context.Context) {
	if !s.cycleInFlight.CompareAndSwap(false, true) {
		s.logger.Debug().Msg("Previous cycle still running, skipping tick")

		return
	}

	defer s.cycleInFlight.Store(false)

	started := s.clock.Now()

	summary, err := s.runner.RunCycle(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Synchronization cycle failed")

		return
	}

	s.logger.Info().
		Int("total", summary.Total).
		Int("online", summary.Online).
		Int("offline", summary.Offline).
		Dur("elapsed", s.clock.Now().Sub(started)).
		Msg("Synchronization cycle complete")
}

// runCleanup deletes event records older than the retention window.
func (s *Scheduler) runCleanup(ctx context.Context) {
	retention := time.Duration(s.config.Retention)
	cutoff := s.clock.Now().Add(-retention)

	deleted, err := s.store.DeleteEventsBefore(ctx, cutoff)
	if err != nil {
		s.logger.Error().Err(err).Msg("Event retention cleanup failed")

		return
	}

	s.logger.Info().
		Int64("deleted", deleted).
		Dur("retention", retention).
		Msg("Event retention cleanup complete")
}

// untilNextCleanup returns the wait until the next occurrence of the daily
// cleanup time ("HH:MM", in now's location). The config is validated, so a
// parse failure here falls back to midnight.
func untilNextCleanup(now time.Time, at string) time.Duration {
	parsed, err := time.Parse(cleanupTimeLayout, at)
	if err != nil {
		parsed = time.Time{}
	}

	next := time.Date(now.Year(), now.Month(), now.Day(),
		parsed.Hour(), parsed.Minute(), 0, 0, now.Location())

	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}

	return next.Sub(now)
}
