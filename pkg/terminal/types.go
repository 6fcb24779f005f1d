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

package terminal

import (
	"github.com/faceterm/fleetsync/pkg/models"
)

// FetchResult is the outcome of one event-notification fetch. Failed
// distinguishes a transport/protocol failure from a device that legitimately
// had no new events; both carry an empty event list.
type FetchResult struct {
	Events []*models.Event
	Failed bool
}

// eventNotification is the JSON body returned by the event-notification
// endpoint. Field names follow the device wire protocol.
type eventNotification struct {
	EventList []eventEntry `json:"EventList"`
}

type eventEntry struct {
	Type     string `json:"Type"`
	Time     string `json:"Time"`
	ImageURL string `json:"ImageURL"`
}
