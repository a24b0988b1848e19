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

package bus

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/powerscan/internal/natstest"
	"github.com/carverauto/powerscan/pkg/discovery"
	"github.com/carverauto/powerscan/pkg/logger"
	"github.com/carverauto/powerscan/pkg/models"
)

const testMailbox = "powerscan.test.requests"

func startServer(t *testing.T, engine Engine) *nats.Conn {
	t.Helper()

	srv := natstest.RunJetStreamServer(t)
	nc := natstest.Connect(t, srv)

	s := NewServer(nc, testMailbox, engine, logger.NewTestLogger())
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	return nc
}

func request(t *testing.T, nc *nats.Conn, subject Subject, payload string) Reply {
	t.Helper()

	env := Envelope{
		To:            "powerscan",
		From:          "gateway",
		Subject:       subject,
		CorrelationID: "corr-1",
	}
	if payload != "" {
		env.Payload = json.RawMessage(payload)
	}

	data, err := json.Marshal(env)
	require.NoError(t, err)

	msg, err := nc.Request(testMailbox, data, 5*time.Second)
	require.NoError(t, err)

	var reply Reply
	require.NoError(t, json.Unmarshal(msg.Data, &reply))

	return reply
}

// runInline makes Submit execute the handler on its own goroutine.
func runInline(engine *MockEngine) {
	engine.EXPECT().Submit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ string, fn func(context.Context)) error {
			go fn(context.Background())
			return nil
		}).AnyTimes()
}

func TestServerRejectsEmptyPayloadOnEverySubject(t *testing.T) {
	ctrl := gomock.NewController(t)
	engine := NewMockEngine(ctrl)
	runInline(engine)

	nc := startServer(t, engine)

	for _, subject := range []Subject{
		SubjectDiscovery, SubjectScan, SubjectStart, SubjectStop,
		SubjectStatus, SubjectConfigure, SubjectDetails,
	} {
		reply := request(t, nc, subject, "")

		assert.Equal(t, StatusError, reply.Status, subject)
		assert.Equal(t, "Wrong input data: payload is empty", reply.Error, subject)
		assert.Equal(t, subject, reply.Subject)
		assert.Equal(t, "corr-1", reply.CorrelationID)
		assert.Equal(t, "gateway", reply.To)
		assert.Equal(t, "powerscan", reply.From)
	}
}

func TestServerRejectsMalformedPayload(t *testing.T) {
	ctrl := gomock.NewController(t)
	engine := NewMockEngine(ctrl)
	runInline(engine)

	nc := startServer(t, engine)

	reply := request(t, nc, SubjectDetails, `["10.0.0.1"]`)
	assert.Equal(t, StatusError, reply.Status)
	assert.Equal(t, "Wrong input data: format of payload is incorrect", reply.Error)
}

func TestServerUnsupportedSubject(t *testing.T) {
	ctrl := gomock.NewController(t)
	nc := startServer(t, NewMockEngine(ctrl))

	reply := request(t, nc, Subject("reboot"), "{}")
	assert.Equal(t, StatusError, reply.Status)
	assert.Equal(t, "unsupported subject: reboot", reply.Error)
}

func TestServerUndecodableEnvelope(t *testing.T) {
	ctrl := gomock.NewController(t)
	nc := startServer(t, NewMockEngine(ctrl))

	msg, err := nc.Request(testMailbox, []byte("not json"), 5*time.Second)
	require.NoError(t, err)

	var reply Reply
	require.NoError(t, json.Unmarshal(msg.Data, &reply))
	assert.Equal(t, StatusError, reply.Status)
	assert.Equal(t, "Wrong input data: format of payload is incorrect", reply.Error)
}

func TestServerStatusAndStopAnswerInline(t *testing.T) {
	ctrl := gomock.NewController(t)
	engine := NewMockEngine(ctrl)

	status := discovery.Status{ScanID: "scan-1", State: discovery.StateInProgress, NumOfAddress: 10, AddressScanned: 3}
	engine.EXPECT().Status().Return(status).AnyTimes()
	engine.EXPECT().StopScan().Return(nil)

	nc := startServer(t, engine)

	reply := request(t, nc, SubjectStatus, "{}")
	require.Equal(t, StatusOK, reply.Status, reply.Error)

	var got discovery.Status
	require.NoError(t, json.Unmarshal(reply.Payload, &got))
	assert.Equal(t, status, got)

	reply = request(t, nc, SubjectStop, "{}")
	require.Equal(t, StatusOK, reply.Status, reply.Error)
}

func TestServerStopWithoutScan(t *testing.T) {
	ctrl := gomock.NewController(t)
	engine := NewMockEngine(ctrl)
	engine.EXPECT().StopScan().Return(discovery.ErrScanNotInProgress)

	nc := startServer(t, engine)

	reply := request(t, nc, SubjectStop, "{}")
	assert.Equal(t, StatusError, reply.Status)
	assert.Equal(t, "no scan in progress", reply.Error)
}

func TestServerScanAndStartAnswerInline(t *testing.T) {
	ctrl := gomock.NewController(t)
	engine := NewMockEngine(ctrl)

	engine.EXPECT().StartScan(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req discovery.ScanRequest) (string, error) {
			assert.Equal(t, []string{"10.0.0.1-10.0.0.4"}, req.Targets)
			return "scan-1", nil
		})
	engine.EXPECT().StartScan(gomock.Any(), discovery.ScanRequest{Defaults: &models.AssetDefaults{Priority: 2}}).
		Return("", discovery.ErrScanInProgress)
	engine.EXPECT().Status().Return(discovery.Status{ScanID: "scan-1", State: discovery.StateInProgress, NumOfAddress: 4})

	nc := startServer(t, engine)

	reply := request(t, nc, SubjectScan, `{"targets":["10.0.0.1-10.0.0.4"]}`)
	require.Equal(t, StatusOK, reply.Status, reply.Error)

	var accepted ScanAccepted
	require.NoError(t, json.Unmarshal(reply.Payload, &accepted))
	assert.Equal(t, "scan-1", accepted.ScanID)
	assert.Equal(t, 4, accepted.Status.NumOfAddress)

	reply = request(t, nc, SubjectStart, `{"defaults":{"priority":2}}`)
	assert.Equal(t, StatusError, reply.Status)
	assert.Equal(t, "scan already in progress", reply.Error)
}

func TestServerReportsQueueFull(t *testing.T) {
	ctrl := gomock.NewController(t)
	engine := NewMockEngine(ctrl)
	engine.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(discovery.ErrJobQueueFull)

	nc := startServer(t, engine)

	reply := request(t, nc, SubjectDiscovery, `{"targets":["10.0.0.1"]}`)
	assert.Equal(t, StatusError, reply.Status)
	assert.Equal(t, "job queue is full", reply.Error)
}

func TestServerRepliesToEnvelopeReplyTo(t *testing.T) {
	ctrl := gomock.NewController(t)
	engine := NewMockEngine(ctrl)
	engine.EXPECT().Status().Return(discovery.Status{State: discovery.StateTerminated})

	nc := startServer(t, engine)

	sub, err := nc.SubscribeSync("gateway.replies")
	require.NoError(t, err)
	require.NoError(t, nc.Flush())

	data, err := json.Marshal(Envelope{
		From:          "gateway",
		ReplyTo:       "gateway.replies",
		Subject:       SubjectStatus,
		CorrelationID: "corr-9",
		Payload:       json.RawMessage("{}"),
	})
	require.NoError(t, err)
	require.NoError(t, nc.Publish(testMailbox, data))

	msg, err := sub.NextMsg(5 * time.Second)
	require.NoError(t, err)

	var reply Reply
	require.NoError(t, json.Unmarshal(msg.Data, &reply))
	assert.Equal(t, StatusOK, reply.Status)
	assert.Equal(t, "corr-9", reply.CorrelationID)
}

func TestServerStartTwice(t *testing.T) {
	srv := natstest.RunJetStreamServer(t)
	nc := natstest.Connect(t, srv)

	s := NewServer(nc, testMailbox, NewMockEngine(gomock.NewController(t)), nil)
	require.NoError(t, s.Start(context.Background()))
	require.ErrorIs(t, s.Start(context.Background()), ErrAlreadyStarted)
	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, s.Stop(context.Background()))

	empty := NewServer(nc, "", nil, nil)
	require.ErrorIs(t, empty.Start(context.Background()), ErrMailboxRequired)
}
