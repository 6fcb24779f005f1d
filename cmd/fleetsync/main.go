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

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/faceterm/fleetsync/pkg/config"
	"github.com/faceterm/fleetsync/pkg/db"
	"github.com/faceterm/fleetsync/pkg/lifecycle"
	"github.com/faceterm/fleetsync/pkg/logger"
	"github.com/faceterm/fleetsync/pkg/sync"
	"github.com/faceterm/fleetsync/pkg/terminal"
	"github.com/faceterm/fleetsync/pkg/version"
)

var errFailedToLoadConfig = fmt.Errorf("failed to load config")

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "/etc/fleetsync/fleetsync.json", "Path to fleetsync config file")
	flag.Parse()

	ctx := context.Background()

	// Step 1: Load configuration
	cfgLoader := config.NewConfig(nil)

	var cfg sync.Config

	if err := cfgLoader.LoadAndValidate(ctx, *configPath, &cfg); err != nil {
		return fmt.Errorf("%w: %w", errFailedToLoadConfig, err)
	}

	// Step 2: Create logger from loaded config
	logConfig := cfg.Logging
	if logConfig == nil {
		logConfig = &logger.Config{
			Level:  "info",
			Output: "stdout",
		}
	}

	syncLogger, err := lifecycle.CreateComponentLogger("fleetsync", logConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	syncLogger.Info().Str("version", version.GetFullVersion()).Msg("Starting fleetsync")

	// Step 3: Open the fleet store and make sure the schema exists
	store, err := db.New(ctx, cfg.Database, syncLogger)
	if err != nil {
		return err
	}
	defer func() {
		_ = store.Close()
	}()

	if err := store.Migrate(ctx); err != nil {
		return err
	}

	// Step 4: Wire the device client, synchronizer, and scheduler
	client := terminal.NewClient(time.Duration(cfg.Timeout), syncLogger)
	syncer := sync.NewSynchronizer(store, client, syncLogger)
	scheduler := sync.NewScheduler(&cfg, store, syncer, nil, syncLogger)

	return lifecycle.Run(ctx, &lifecycle.Options{
		ServiceName: cfg.ServiceName,
		Service:     scheduler,
		Logger:      syncLogger,
	})
}
