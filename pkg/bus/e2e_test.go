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
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gosnmp/gosnmp"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/powerscan/internal/natstest"
	"github.com/carverauto/powerscan/internal/snmptest"
	"github.com/carverauto/powerscan/pkg/asset"
	"github.com/carverauto/powerscan/pkg/credentials"
	"github.com/carverauto/powerscan/pkg/device"
	"github.com/carverauto/powerscan/pkg/discovery"
	"github.com/carverauto/powerscan/pkg/logger"
	"github.com/carverauto/powerscan/pkg/models"
	"github.com/carverauto/powerscan/pkg/protocol"
)

const testAssetSubject = "powerscan.test.assets"

type noPTR struct{}

func (noPTR) LookupAddr(context.Context, string) ([]string, error) { return nil, nil }

// gatedProber holds the first probe until release is closed. When hold is
// set, only probes of that address are gated.
type gatedProber struct {
	next    protocol.Prober
	hold    string
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedProber) Probe(ctx context.Context, address string, candidates []protocol.Candidate) []protocol.ProbeResult {
	if g.hold != "" && address != g.hold {
		return g.next.Probe(ctx, address, candidates)
	}

	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})

	return g.next.Probe(ctx, address, candidates)
}

type e2eFixture struct {
	nc      *nats.Conn
	created atomic.Int64
}

func smartUPS() []gosnmp.SnmpPDU {
	return []gosnmp.SnmpPDU{
		{Name: ".1.3.6.1.2.1.1.1.0", Type: gosnmp.OctetString, Value: []byte("APC Web/SNMP Management Card")},
		{Name: ".1.3.6.1.2.1.1.2.0", Type: gosnmp.ObjectIdentifier, Value: ".1.3.6.1.4.1.318.1.3.2.12"},
		{Name: ".1.3.6.1.2.1.1.5.0", Type: gosnmp.OctetString, Value: []byte("ups-lab")},
		{Name: ".1.3.6.1.4.1.318.1.1.1.1.1.1.0", Type: gosnmp.OctetString, Value: []byte("Smart-UPS 1500")},
	}
}

// setupE2E wires a real engine, prober and reader to an embedded NATS server
// and an SNMP agent on 127.0.0.1. Other loopback addresses do not answer.
func setupE2E(t *testing.T, wrap func(protocol.Prober) protocol.Prober) *e2eFixture {
	t.Helper()

	return setupE2EWorkers(t, 0, wrap)
}

// setupE2EWorkers is setupE2E with a fixed worker pool size; zero keeps the
// default.
func setupE2EWorkers(t *testing.T, workers int, wrap func(protocol.Prober) protocol.Prober) *e2eFixture {
	t.Helper()

	agent := snmptest.Start(t, "public", smartUPS())

	srv := natstest.RunJetStreamServer(t)
	nc := natstest.Connect(t, srv)

	f := &e2eFixture{nc: nc}

	assetSub, err := nc.Subscribe(testAssetSubject, func(msg *nats.Msg) {
		var req asset.CreateRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			_ = msg.Respond([]byte(`{"error":"bad request"}`))
			return
		}

		n := f.created.Add(1)
		_ = msg.Respond([]byte(fmt.Sprintf(`{"name":"ASSET-%d"}`, n)))
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = assetSub.Unsubscribe() })

	cfg := &models.DiscoveryConfig{
		Type:          models.DiscoveryTypeIP,
		IPs:           []string{"127.0.0.1"},
		Protocols:     []models.ProtocolConfig{{Name: "snmp", Port: agent.Port()}},
		Communities:   []string{"public"},
		ProbeTimeout:  models.Duration(300 * time.Millisecond),
		ReadTimeout:   models.Duration(2 * time.Second),
		DriverTimeout: models.Duration(time.Second),
		Workers:       workers,
	}
	cfg.ApplyDefaults()

	log := logger.NewTestLogger()

	var prober protocol.Prober = protocol.NewProber(cfg, log)
	if wrap != nil {
		prober = wrap(prober)
	}

	reader, err := device.NewReader(cfg, credentials.NewStaticStore(nil), log)
	require.NoError(t, err)

	engine, err := discovery.NewEngine(cfg, discovery.Deps{
		Prober: prober,
		Reader: reader,
		Mapper: asset.NewMapper(noPTR{}, log),
		Assets: asset.NewNATSService(nc, testAssetSubject, 2*time.Second, log),
		Logger: log,
	})
	require.NoError(t, err)
	require.NoError(t, engine.Start(context.Background()))
	t.Cleanup(func() { _ = engine.Stop(context.Background()) })

	s := NewServer(nc, testMailbox, engine, log)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	return f
}

func (f *e2eFixture) waitForState(t *testing.T, want discovery.State) discovery.Status {
	t.Helper()

	var status discovery.Status

	data, err := json.Marshal(Envelope{Subject: SubjectStatus, Payload: json.RawMessage("{}")})
	require.NoError(t, err)

	var mu sync.Mutex

	assert.Eventually(t, func() bool {
		msg, err := f.nc.Request(testMailbox, data, time.Second)
		if err != nil {
			return false
		}

		var reply Reply
		if err := json.Unmarshal(msg.Data, &reply); err != nil || reply.Status != StatusOK {
			return false
		}

		var s discovery.Status
		if err := json.Unmarshal(reply.Payload, &s); err != nil {
			return false
		}

		mu.Lock()
		status = s
		mu.Unlock()

		return s.State == want
	}, 20*time.Second, 100*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	return status
}

func TestE2EEmptyPayload(t *testing.T) {
	f := setupE2E(t, nil)

	reply := request(t, f.nc, SubjectScan, "")
	assert.Equal(t, StatusError, reply.Status)
	assert.Equal(t, "Wrong input data: payload is empty", reply.Error)
}

func TestE2EDetailsUnreachableHost(t *testing.T) {
	f := setupE2E(t, nil)

	reply := request(t, f.nc, SubjectDetails, `{"address":"127.0.0.2"}`)
	assert.Equal(t, StatusError, reply.Status)
	assert.Equal(t, "Host is not available: 127.0.0.2", reply.Error)
}

func TestE2EDetailsReadsDevice(t *testing.T) {
	f := setupE2E(t, nil)

	reply := request(t, f.nc, SubjectDetails, `{"address":"127.0.0.1"}`)
	require.Equal(t, StatusOK, reply.Status, reply.Error)

	var res discovery.DetailsResult
	require.NoError(t, json.Unmarshal(reply.Payload, &res))
	require.NotNil(t, res.Device)
	assert.Equal(t, protocol.SNMP, res.Protocol)
	assert.Equal(t, device.TypeUPS, res.Device.Type)
	assert.Equal(t, "Smart-UPS 1500", res.Device.Name)
}

func TestE2EScanRunsToTermination(t *testing.T) {
	f := setupE2E(t, nil)

	reply := request(t, f.nc, SubjectScan, `{"targets":["127.0.0.1-127.0.0.3"]}`)
	require.Equal(t, StatusOK, reply.Status, reply.Error)

	var accepted ScanAccepted
	require.NoError(t, json.Unmarshal(reply.Payload, &accepted))
	require.NotEmpty(t, accepted.ScanID)

	status := f.waitForState(t, discovery.StateTerminated)

	assert.Equal(t, accepted.ScanID, status.ScanID)
	assert.Equal(t, 3, status.NumOfAddress)
	assert.Equal(t, 3, status.AddressScanned)
	assert.Equal(t, 1, status.Discovered)
	assert.Equal(t, 1, status.UPS)
	assert.Equal(t, int64(1), f.created.Load())

	// A finished scan cannot be stopped.
	reply = request(t, f.nc, SubjectStop, "{}")
	assert.Equal(t, StatusError, reply.Status)
	assert.Equal(t, "no scan in progress", reply.Error)
}

func TestE2EStopMidScan(t *testing.T) {
	gate := &gatedProber{entered: make(chan struct{}), release: make(chan struct{})}

	f := setupE2E(t, func(p protocol.Prober) protocol.Prober {
		gate.next = p
		return gate
	})

	reply := request(t, f.nc, SubjectScan, `{"targets":["127.0.0.1-127.0.0.5"]}`)
	require.Equal(t, StatusOK, reply.Status, reply.Error)

	select {
	case <-gate.entered:
	case <-time.After(10 * time.Second):
		t.Fatal("scan never probed its first address")
	}

	reply = request(t, f.nc, SubjectStart, "{}")
	assert.Equal(t, StatusError, reply.Status)
	assert.Equal(t, "scan already in progress", reply.Error)

	reply = request(t, f.nc, SubjectStop, "{}")
	require.Equal(t, StatusOK, reply.Status, reply.Error)

	close(gate.release)

	status := f.waitForState(t, discovery.StateCancelledByUser)

	assert.Equal(t, 5, status.NumOfAddress)
	assert.Less(t, status.AddressScanned, status.NumOfAddress)
}

func TestE2ESingleWorkerStaysResponsiveDuringScan(t *testing.T) {
	gate := &gatedProber{hold: "127.0.0.1", entered: make(chan struct{}), release: make(chan struct{})}

	f := setupE2EWorkers(t, 1, func(p protocol.Prober) protocol.Prober {
		gate.next = p
		return gate
	})

	release := sync.OnceFunc(func() { close(gate.release) })
	t.Cleanup(release)

	reply := request(t, f.nc, SubjectScan, `{"targets":["127.0.0.1-127.0.0.3"]}`)
	require.Equal(t, StatusOK, reply.Status, reply.Error)

	select {
	case <-gate.entered:
	case <-time.After(10 * time.Second):
		t.Fatal("scan never probed its first address")
	}

	started := time.Now()

	reply = request(t, f.nc, SubjectScan, `{"targets":["127.0.0.9"]}`)
	assert.Equal(t, StatusError, reply.Status)
	assert.Equal(t, "scan already in progress", reply.Error)
	assert.Less(t, time.Since(started), 2*time.Second)

	reply = request(t, f.nc, SubjectDetails, `{"address":"127.0.0.2"}`)
	assert.Equal(t, StatusError, reply.Status)
	assert.Equal(t, "Host is not available: 127.0.0.2", reply.Error)

	status := f.waitForState(t, discovery.StateInProgress)
	assert.Equal(t, 0, status.AddressScanned)

	release()

	status = f.waitForState(t, discovery.StateTerminated)
	assert.Equal(t, 3, status.AddressScanned)
	assert.Equal(t, 1, status.UPS)
}
