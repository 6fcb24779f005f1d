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

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faceterm/fleetsync/pkg/logger"
	"github.com/faceterm/fleetsync/pkg/models"
)

var errAddrRequired = errors.New("addr is required")

type testConfig struct {
	Addr     string          `json:"addr"`
	Interval models.Duration `json:"interval"`
}

func (c *testConfig) Validate() error {
	if c.Addr == "" {
		return errAddrRequired
	}

	if time.Duration(c.Interval) == 0 {
		c.Interval = models.Duration(time.Second)
	}

	return nil
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadAndValidate(t *testing.T) {
	path := writeTempConfig(t, `{"addr": "10.0.0.1:80", "interval": "5s"}`)

	var cfg testConfig

	loader := NewConfig(logger.NewTestLogger())
	require.NoError(t, loader.LoadAndValidate(context.Background(), path, &cfg))

	assert.Equal(t, "10.0.0.1:80", cfg.Addr)
	assert.Equal(t, 5*time.Second, time.Duration(cfg.Interval))
}

func TestLoadAndValidate_AppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, `{"addr": "10.0.0.1:80"}`)

	var cfg testConfig

	loader := NewConfig(nil)
	require.NoError(t, loader.LoadAndValidate(context.Background(), path, &cfg))

	assert.Equal(t, time.Second, time.Duration(cfg.Interval))
}

func TestLoadAndValidate_ValidationFailure(t *testing.T) {
	path := writeTempConfig(t, `{}`)

	var cfg testConfig

	loader := NewConfig(logger.NewTestLogger())
	require.ErrorIs(t, loader.LoadAndValidate(context.Background(), path, &cfg), errAddrRequired)
}

func TestLoadAndValidate_MissingFile(t *testing.T) {
	var cfg testConfig

	loader := NewConfig(logger.NewTestLogger())
	err := loader.LoadAndValidate(context.Background(), "/nonexistent/config.json", &cfg)

	require.ErrorIs(t, err, errLoadConfigFailed)
}

func TestLoadAndValidate_MalformedJSON(t *testing.T) {
	path := writeTempConfig(t, `{"addr": `)

	var cfg testConfig

	loader := NewConfig(logger.NewTestLogger())
	require.ErrorIs(t, loader.LoadAndValidate(context.Background(), path, &cfg), errLoadConfigFailed)
}

func TestLoadAndValidate_RejectsNonPointer(t *testing.T) {
	loader := NewConfig(logger.NewTestLogger())

	err := loader.LoadAndValidate(context.Background(), "ignored.json", testConfig{})
	require.ErrorIs(t, err, errInvalidConfigPtr)
}
