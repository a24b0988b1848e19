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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateNames(t *testing.T) {
	t.Parallel()

	for s, name := range map[State]string{
		StateUnknown:         "unknown",
		StateInProgress:      "in_progress",
		StateTerminated:      "terminated",
		StateCancelledByUser: "cancelled_by_user",
	} {
		assert.Equal(t, name, s.String())
		assert.Equal(t, s, ParseState(name))
	}

	assert.Equal(t, "unknown", State(99).String())
	assert.Equal(t, StateUnknown, ParseState("paused"))
}

func TestTrackerCounters(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	assert.Equal(t, StateUnknown, tr.State())

	tr.Reset("scan-1", 3)

	assert.True(t, tr.Discovered("ups"))
	assert.True(t, tr.Discovered("ups"))
	assert.True(t, tr.Discovered("epdu"))
	assert.True(t, tr.Discovered("pdu"))
	assert.True(t, tr.Discovered("ats"))
	assert.True(t, tr.Discovered("sensor"))
	assert.False(t, tr.Discovered("router"))
	assert.False(t, tr.Discovered(""))

	for i := 0; i < 5; i++ {
		tr.AddressScanned()
	}

	s := tr.Snapshot()
	assert.Equal(t, "scan-1", s.ScanID)
	assert.Equal(t, StateInProgress, s.State)
	assert.Equal(t, 3, s.NumOfAddress)
	assert.Equal(t, 3, s.AddressScanned)
	assert.Equal(t, 2, s.UPS)
	assert.Equal(t, 2, s.EPDU)
	assert.Equal(t, 1, s.STS)
	assert.Equal(t, 1, s.Sensors)
	assert.Equal(t, s.UPS+s.EPDU+s.STS+s.Sensors, s.Discovered)
	assert.Equal(t, 100, s.Percent())

	tr.Reset("scan-2", 10)
	s = tr.Snapshot()
	assert.Equal(t, Status{ScanID: "scan-2", State: StateInProgress, NumOfAddress: 10}, s)
	assert.Equal(t, 0, s.Percent())
}

func TestTrackerSnapshotIsConsistent(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	tr.Reset("scan", 1000)

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()

		for i := 0; i < 1000; i++ {
			tr.Discovered("ups")
			tr.Discovered("sensor")
			tr.AddressScanned()
		}
	}()

	prev := 0

	for i := 0; i < 200; i++ {
		s := tr.Snapshot()
		require.Equal(t, s.UPS+s.EPDU+s.STS+s.Sensors, s.Discovered)
		require.LessOrEqual(t, s.AddressScanned, s.NumOfAddress)
		require.GreaterOrEqual(t, s.AddressScanned, prev)

		prev = s.AddressScanned
	}

	wg.Wait()
}

func TestStatusJSON(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(Status{
		State:          StateCancelledByUser,
		NumOfAddress:   10,
		AddressScanned: 4,
		Discovered:     3,
		UPS:            1,
		EPDU:           1,
		Sensors:        1,
	})
	require.NoError(t, err)

	assert.JSONEq(t, `{"status":"cancelled_by_user","numOfAddress":10,"addressScanned":4,
		"discovered":3,"ups":1,"epdu":1,"sts":0,"sensors":1}`, string(data))

	var back Status
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, StateCancelledByUser, back.State)
}
