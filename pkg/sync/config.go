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
	"fmt"
	"time"

	"github.com/faceterm/fleetsync/pkg/logger"
	"github.com/faceterm/fleetsync/pkg/models"
)

const (
	defaultPollInterval = time.Second
	defaultTimeout      = 10 * time.Second
	defaultRetention    = 60 * 24 * time.Hour
	defaultCleanupTime  = "00:00"

	cleanupTimeLayout = "15:04"
)

var errDatabaseRequired = fmt.Errorf("database configuration is required")

// Config represents the synchronization engine configuration.
type Config struct {
	ServiceName  string           `json:"service_name"`
	PollInterval models.Duration  `json:"poll_interval"`
	Timeout      models.Duration  `json:"timeout"`
	Retention    models.Duration  `json:"retention"`
	CleanupTime  string           `json:"cleanup_time,omitempty"` // "HH:MM" local time
	Database     *models.Database `json:"database"`
	Logging      *logger.Config   `json:"logging,omitempty"`
}

// Validate implements config.Validator interface.
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		c.ServiceName = "fleetsync"
	}

	if time.Duration(c.PollInterval) == 0 {
		c.PollInterval = models.Duration(defaultPollInterval)
	}

	if time.Duration(c.Timeout) == 0 {
		c.Timeout = models.Duration(defaultTimeout)
	}

	if time.Duration(c.Retention) == 0 {
		c.Retention = models.Duration(defaultRetention)
	}

	if c.CleanupTime == "" {
		c.CleanupTime = defaultCleanupTime
	}

	if _, err := time.Parse(cleanupTimeLayout, c.CleanupTime); err != nil {
		return fmt.Errorf("invalid cleanup_time %q: %w", c.CleanupTime, err)
	}

	if c.Database == nil {
		return errDatabaseRequired
	}

	return nil
}
