/*
 * Copyright 2025 Carver Automation Corporation.
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

package discovery

import (
	"encoding/json"
	"sync"

	"github.com/carverauto/powerscan/pkg/device"
)

// State is the lifecycle phase of the engine's scan.
type State int

const (
	StateUnknown State = iota
	StateInProgress
	StateTerminated
	StateCancelledByUser
)

var stateNames = map[State]string{
	StateUnknown:         "unknown",
	StateInProgress:      "in_progress",
	StateTerminated:      "terminated",
	StateCancelledByUser: "cancelled_by_user",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}

	return stateNames[StateUnknown]
}

// ParseState maps a state name back to its State; unrecognized names are StateUnknown.
func ParseState(name string) State {
	for s, n := range stateNames {
		if n == name {
			return s
		}
	}

	return StateUnknown
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *State) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}

	*s = ParseState(name)

	return nil
}

// Status is a point-in-time copy of scan progress.
type Status struct {
	ScanID         string `json:"scanId,omitempty"`
	State          State  `json:"status"`
	NumOfAddress   int    `json:"numOfAddress"`
	AddressScanned int    `json:"addressScanned"`
	Discovered     int    `json:"discovered"`
	UPS            int    `json:"ups"`
	EPDU           int    `json:"epdu"`
	STS            int    `json:"sts"`
	Sensors        int    `json:"sensors"`
}

// Percent is the share of addresses scanned, 0 to 100.
func (s Status) Percent() int {
	if s.NumOfAddress == 0 {
		return 0
	}

	return s.AddressScanned * 100 / s.NumOfAddress
}

// Tracker holds the live scan status. The running scan job is its only
// writer; readers receive copies.
type Tracker struct {
	mu     sync.RWMutex
	status Status
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// Reset zeroes every counter and marks a new scan of n addresses as in progress.
func (t *Tracker) Reset(scanID string, n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status = Status{ScanID: scanID, State: StateInProgress, NumOfAddress: n}
}

func (t *Tracker) SetState(s State) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status.State = s
}

func (t *Tracker) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.status.State
}

// AddressScanned advances the progress counter, never past the address count.
func (t *Tracker) AddressScanned() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status.AddressScanned < t.status.NumOfAddress {
		t.status.AddressScanned++
	}
}

// Discovered counts a created asset of the given device type. It reports
// false, and counts nothing, for types the tracker does not know.
func (t *Tracker) Discovered(kind string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch device.NormalizeType(kind) {
	case device.TypeUPS:
		t.status.UPS++
	case device.TypeEPDU:
		t.status.EPDU++
	case device.TypeSTS:
		t.status.STS++
	case device.TypeSensor:
		t.status.Sensors++
	default:
		return false
	}

	t.status.Discovered++

	return true
}

func (t *Tracker) Snapshot() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.status
}
