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

package natsutil

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/powerscan/internal/natstest"
	"github.com/carverauto/powerscan/pkg/discovery"
	"github.com/carverauto/powerscan/pkg/logger"
	"github.com/carverauto/powerscan/pkg/models"
)

var errTestFixture = errors.New("fixture error")

func TestEnsureSubjectList(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		subjects []string
		subject  string
		want     []string
	}{
		{
			name:    "adds subject when list empty",
			subject: "events.powerscan.>",
			want:    []string{"events.powerscan.>"},
		},
		{
			name:     "keeps list when wildcard matches",
			subjects: []string{"events.*.started"},
			subject:  "events.powerscan.started",
			want:     []string{"events.*.started"},
		},
		{
			name:     "keeps list when greater wildcard matches",
			subjects: []string{"events.>"},
			subject:  "events.powerscan.finished",
			want:     []string{"events.>"},
		},
		{
			name:     "keeps list when pattern is identical",
			subjects: []string{"events.powerscan.>"},
			subject:  "events.powerscan.>",
			want:     []string{"events.powerscan.>"},
		},
		{
			name:     "appends when unmatched",
			subjects: []string{"logs.syslog.*"},
			subject:  "events.powerscan.>",
			want:     []string{"logs.syslog.*", "events.powerscan.>"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := ensureSubjectList(append([]string(nil), tc.subjects...), tc.subject)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestMatchesSubject(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		pattern  string
		subject  string
		expected bool
	}{
		{"exact match", "events.powerscan.started", "events.powerscan.started", true},
		{"single wildcard", "events.*.started", "events.powerscan.started", true},
		{"greater wildcard", "events.>", "events.powerscan.started", true},
		{"greater wildcard needs a token", "events.powerscan.>", "events.powerscan", false},
		{"no match length", "events.*", "events.powerscan.started", false},
		{"subject longer than pattern", "events.powerscan.started.x", "events.powerscan.started", false},
		{"no match tokens", "logs.syslog.*", "events.powerscan.started", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.expected, matchesSubject(tc.pattern, tc.subject))
		})
	}
}

func TestIsStreamMissingErr(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"jetstream no stream response", jetstream.ErrNoStreamResponse, true},
		{"jetstream stream not found", jetstream.ErrStreamNotFound, true},
		{"nats no stream response", nats.ErrNoStreamResponse, true},
		{"nats stream not found", nats.ErrStreamNotFound, true},
		{"nats no responders", nats.ErrNoResponders, true},
		{"other error", errTestFixture, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.expected, isStreamMissingErr(tc.err))
		})
	}
}

func TestEventPublisherPublishesCloudEvents(t *testing.T) {
	srv := natstest.RunJetStreamServer(t)
	nc := natstest.Connect(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pub, err := CreateEventPublisher(ctx, nc, "POWERSCAN_EVENTS", "events.powerscan", logger.NewTestLogger())
	require.NoError(t, err)

	event := discovery.ScanEvent{
		ScanID: "scan-1",
		Phase:  discovery.ScanFinished,
		Status: discovery.Status{
			ScanID:         "scan-1",
			State:          discovery.StateTerminated,
			NumOfAddress:   4,
			AddressScanned: 4,
		},
		Timestamp: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, pub.PublishScanEvent(ctx, event))

	js, err := jetstream.New(nc)
	require.NoError(t, err)

	stream, err := js.Stream(ctx, "POWERSCAN_EVENTS")
	require.NoError(t, err)

	msg, err := stream.GetLastMsgForSubject(ctx, "events.powerscan.finished")
	require.NoError(t, err)

	var ce CloudEvent
	require.NoError(t, json.Unmarshal(msg.Data, &ce))

	assert.Equal(t, "1.0", ce.SpecVersion)
	assert.Equal(t, "powerscan", ce.Source)
	assert.Equal(t, "com.carverauto.powerscan.scan.finished", ce.Type)
	assert.Equal(t, "scan-1", ce.Subject)
	assert.NotEmpty(t, ce.ID)
	assert.True(t, event.Timestamp.Equal(ce.Time))

	var got discovery.ScanEvent
	require.NoError(t, json.Unmarshal(ce.Data, &got))
	assert.Equal(t, discovery.StateTerminated, got.Status.State)
	assert.Equal(t, 4, got.Status.AddressScanned)
}

func TestEnsureStreamAddsMissingSubject(t *testing.T) {
	srv := natstest.RunJetStreamServer(t)
	nc := natstest.Connect(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	js, err := jetstream.New(nc)
	require.NoError(t, err)

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{Name: "EVENTS", Subjects: []string{"logs.>"}})
	require.NoError(t, err)

	require.NoError(t, EnsureStream(ctx, js, "EVENTS", "events.powerscan.>"))
	// Second call is a no-op.
	require.NoError(t, EnsureStream(ctx, js, "EVENTS", "events.powerscan.>"))

	stream, err := js.Stream(ctx, "EVENTS")
	require.NoError(t, err)

	info, err := stream.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"logs.>", "events.powerscan.>"}, info.Config.Subjects)

	require.ErrorIs(t, EnsureStream(ctx, js, "", "x"), errStreamNameRequired)
}

func TestConnectWithSecurity(t *testing.T) {
	srv := natstest.RunJetStreamServer(t)

	nc, err := ConnectWithSecurity(context.Background(), srv.ClientURL(), nil, logger.NewTestLogger())
	require.NoError(t, err)
	t.Cleanup(nc.Close)
	assert.True(t, nc.IsConnected())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = ConnectWithSecurity(ctx, srv.ClientURL(), nil, logger.NewTestLogger())
	require.ErrorIs(t, err, context.Canceled)
}

func TestTLSConfig(t *testing.T) {
	t.Parallel()

	_, err := TLSConfig(nil)
	require.ErrorIs(t, err, ErrMTLSRequired)

	_, err = TLSConfig(&models.SecurityConfig{Mode: "none"})
	require.ErrorIs(t, err, ErrMTLSRequired)

	dir := t.TempDir()
	sec := &models.SecurityConfig{
		Mode:    "mtls",
		CertDir: dir,
		TLS:     models.TLSConfig{CertFile: "client.pem", KeyFile: "client-key.pem", CAFile: "ca.pem"},
	}

	_, err = TLSConfig(sec)
	require.Error(t, err)
	assert.Equal(t, "client.pem", sec.TLS.CertFile, "caller config must not be rewritten")

	_, err = ConnectWithSecurity(context.Background(), "nats://127.0.0.1:1", sec, logger.NewTestLogger())
	require.Error(t, err)
}
