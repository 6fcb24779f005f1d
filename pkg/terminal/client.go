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

// Package terminal speaks the HTTP wire protocol of the access-control
// terminals: a status endpoint and an event-notification endpoint, both
// behind digest authentication.
package terminal

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/icholy/digest"

	"github.com/faceterm/fleetsync/pkg/logger"
	"github.com/faceterm/fleetsync/pkg/models"
)

const (
	statusPath            = "/ISAPI/System/status"
	eventNotificationPath = "/ISAPI/Event/notification"

	defaultCategory = "Unknown"
	defaultTimeout  = 10 * time.Second
)

// Client issues bounded-timeout requests against individual devices.
// Credentials vary per device, so each call builds its transport from the
// device record.
type Client struct {
	timeout time.Duration
	logger  logger.Logger
}

// NewClient creates a device client. A zero timeout falls back to the
// 10 second default.
func NewClient(timeout time.Duration, log logger.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{timeout: timeout, logger: log}
}

func (c *Client) httpClient(device *models.Device) *http.Client {
	return &http.Client{
		Timeout: c.timeout,
		Transport: &digest.Transport{
			Username: device.Username,
			Password: device.Password,
		},
	}
}

// Probe performs a single reachability check. It returns StatusOnline only
// for HTTP 200; every other response, connection failure, or timeout
// collapses to StatusOffline. Probe never fails with an error and has no
// side effects.
func (c *Client) Probe(ctx context.Context, device *models.Device) models.DeviceStatus {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+device.Addr+statusPath, http.NoBody)
	if err != nil {
		return models.StatusOffline
	}

	resp, err := c.httpClient(device).Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("device", device.Addr).Msg("Probe failed")

		return models.StatusOffline
	}

	defer c.closeResponse(resp, device.Addr)

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug().Int("status_code", resp.StatusCode).Str("device", device.Addr).Msg("Probe got non-200")

		return models.StatusOffline
	}

	return models.StatusOnline
}

// FetchEvents pulls the device's pending event list and normalizes each
// entry into an event record. Transport failures and non-200 responses are
// reported as a failed fetch rather than an error; the caller decides what a
// failed fetch means for the device.
func (c *Client) FetchEvents(ctx context.Context, device *models.Device) FetchResult {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, "http://"+device.Addr+eventNotificationPath, http.NoBody)
	if err != nil {
		return FetchResult{Failed: true}
	}

	resp, err := c.httpClient(device).Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("device", device.Addr).Msg("Event fetch failed")

		return FetchResult{Failed: true}
	}

	defer c.closeResponse(resp, device.Addr)

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug().Int("status_code", resp.StatusCode).Str("device", device.Addr).Msg("Event fetch got non-200")

		return FetchResult{Failed: true}
	}

	var notification eventNotification

	if err := json.NewDecoder(resp.Body).Decode(&notification); err != nil {
		c.logger.Debug().Err(err).Str("device", device.Addr).Msg("Event fetch body malformed")

		return FetchResult{Failed: true}
	}

	fetchedAt := time.Now().UTC()
	events := make([]*models.Event, 0, len(notification.EventList))

	for _, entry := range notification.EventList {
		events = append(events, normalizeEvent(&entry, device.Addr, fetchedAt))
	}

	return FetchResult{Events: events}
}

// normalizeEvent converts one wire entry into an event record. The device's
// own timestamp is kept when it parses; entries without a usable time are
// stamped with the fetch time.
func normalizeEvent(entry *eventEntry, deviceAddr string, fetchedAt time.Time) *models.Event {
	category := entry.Type
	if category == "" {
		category = defaultCategory
	}

	eventTime := fetchedAt

	if entry.Time != "" {
		if parsed, err := time.Parse(time.RFC3339, entry.Time); err == nil {
			eventTime = parsed.UTC()
		}
	}

	return &models.Event{
		DeviceAddr: deviceAddr,
		Category:   category,
		EventTime:  eventTime,
		PictureURL: entry.ImageURL,
		Synced:     false,
	}
}

func (c *Client) closeResponse(resp *http.Response, deviceAddr string) {
	if err := resp.Body.Close(); err != nil {
		c.logger.Debug().Err(err).Str("device", deviceAddr).Msg("Failed to close response body")
	}
}
