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

// Package lifecycle runs long-lived services with signal-driven shutdown.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/faceterm/fleetsync/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// Service defines the interface for a long-running component managed by Run.
// Start blocks until the service stops or ctx is canceled; Stop requests a
// graceful shutdown.
type Service interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Options holds the configuration for running a service.
type Options struct {
	ServiceName string
	Service     Service
	Logger      logger.Logger
}

// Run starts the service and blocks until it exits or the process receives
// SIGINT/SIGTERM, then stops it with a bounded shutdown window.
func Run(ctx context.Context, opts *Options) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := opts.Logger
	if log == nil {
		log = NewTestSafeLogger()
	}

	errCh := make(chan error, 1)

	go func() {
		errCh <- opts.Service.Start(ctx)
	}()

	log.Info().Str("service", opts.ServiceName).Msg("Service started")

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("service %s exited: %w", opts.ServiceName, err)
		}

		return nil
	case <-ctx.Done():
		log.Info().Str("service", opts.ServiceName).Msg("Shutdown signal received")
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := opts.Service.Stop(stopCtx); err != nil {
		return fmt.Errorf("failed to stop service %s: %w", opts.ServiceName, err)
	}

	// Drain the Start goroutine so its error is not lost.
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Str("service", opts.ServiceName).Msg("Service returned error during shutdown")
		}
	case <-stopCtx.Done():
	}

	return nil
}

// NewTestSafeLogger returns a logger suitable when no configuration is
// available yet.
func NewTestSafeLogger() logger.Logger {
	l, err := NewLoggerImpl(logger.DefaultConfig())
	if err != nil {
		return logger.NewTestLogger()
	}

	return l
}
