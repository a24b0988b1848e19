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

package asset

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/carverauto/powerscan/internal/natstest"
	"github.com/nats-io/nats.go"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNATSServiceCreate(t *testing.T) {
	t.Parallel()

	srv := natstest.RunJetStreamServer(t)
	nc := natstest.Connect(t, srv)

	var seq atomic.Int64

	sub, err := nc.Subscribe("assets.create", func(msg *nats.Msg) {
		var req CreateRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			_ = msg.Respond([]byte(`{"error":"bad request"}`))
			return
		}

		if req.Type == "" {
			_ = msg.Respond([]byte(`{"error":"type is required"}`))
			return
		}

		reply, _ := json.Marshal(createReply{Name: fmt.Sprintf("%s-%04d", req.Type, seq.Add(1))})
		_ = msg.Respond(reply)
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sub.Unsubscribe() })
	require.NoError(t, nc.Flush())

	svc := NewNATSService(nc, "assets.create", time.Second, nil)

	name, err := svc.Create(context.Background(), CreateRequest{Type: "ups", Status: StatusNonActive})
	require.NoError(t, err)
	assert.Equal(t, "ups-0001", name)

	name, err = svc.Create(context.Background(), CreateRequest{Type: "sensor"})
	require.NoError(t, err)
	assert.Equal(t, "sensor-0002", name)

	for i := 0; i < breakerTripFailures+1; i++ {
		_, err = svc.Create(context.Background(), CreateRequest{})
		require.ErrorIs(t, err, ErrAssetRejected)
	}

	assert.Equal(t, gobreaker.StateClosed, svc.breaker.State())
}

func TestNATSServiceBreakerOpensOnTransportFailures(t *testing.T) {
	t.Parallel()

	srv := natstest.RunJetStreamServer(t)
	nc := natstest.Connect(t, srv)

	svc := NewNATSService(nc, "assets.nobody", 200*time.Millisecond, nil)

	for i := 0; i < breakerTripFailures; i++ {
		_, err := svc.Create(context.Background(), CreateRequest{Type: "ups"})
		require.Error(t, err)
		require.NotErrorIs(t, err, gobreaker.ErrOpenState)
	}

	_, err := svc.Create(context.Background(), CreateRequest{Type: "ups"})
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, gobreaker.StateOpen, svc.breaker.State())
}
