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
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/carverauto/powerscan/pkg/asset"
	"github.com/carverauto/powerscan/pkg/device"
	"github.com/carverauto/powerscan/pkg/iprange"
	"github.com/carverauto/powerscan/pkg/logger"
	"github.com/carverauto/powerscan/pkg/models"
	"github.com/carverauto/powerscan/pkg/protocol"
	"github.com/google/uuid"
)

const eventTimeout = 5 * time.Second

// ScanRequest starts a scan. Empty fields fall back to the active configuration.
type ScanRequest struct {
	Type          models.DiscoveryType    `json:"type,omitempty" validate:"omitempty,oneof=local ip multi full"`
	Targets       []string                `json:"targets,omitempty" validate:"dive,required"`
	Protocols     []models.ProtocolConfig `json:"protocols,omitempty" validate:"dive"`
	CredentialIDs []string                `json:"credential_ids,omitempty"`
	Communities   []string                `json:"communities,omitempty"`
	Defaults      *models.AssetDefaults   `json:"defaults,omitempty"`
}

// DiscoverRequest probes addresses without reading or publishing anything.
type DiscoverRequest struct {
	Targets   []string                `json:"targets" validate:"required,min=1,dive,required"`
	Protocols []models.ProtocolConfig `json:"protocols,omitempty" validate:"dive"`
}

// DiscoverResult is the first available protocol found on an address.
type DiscoverResult struct {
	Address      string                `json:"address"`
	Protocol     protocol.Kind         `json:"protocol"`
	Port         int                   `json:"port,omitempty"`
	Availability protocol.Availability `json:"availability"`
}

// DetailsRequest reads one device without publishing it.
type DetailsRequest struct {
	Address      string                  `json:"address" validate:"required,ipv4"`
	Protocols    []models.ProtocolConfig `json:"protocols,omitempty" validate:"dive"`
	CredentialID string                  `json:"credential_id,omitempty"`
	Community    string                  `json:"community,omitempty"`
}

// DetailsResult is the record read from a device plus how it was reached.
type DetailsResult struct {
	Address      string                `json:"address"`
	Protocol     protocol.Kind         `json:"protocol"`
	Port         int                   `json:"port"`
	Availability protocol.Availability `json:"availability"`
	Device       *device.Record        `json:"device"`
}

// Deps are the collaborators an Engine drives.
type Deps struct {
	Prober     protocol.Prober
	Reader     device.Reader
	Mapper     *asset.Mapper
	Assets     asset.Service
	Store      ConfigStore
	Events     EventPublisher
	Interfaces iprange.InterfaceLister
	Logger     logger.Logger
}

// Engine owns the scan state machine: at most one scan runs at a time.
type Engine struct {
	prober     protocol.Prober
	reader     device.Reader
	mapper     *asset.Mapper
	assets     asset.Service
	store      ConfigStore
	events     EventPublisher
	interfaces iprange.InterfaceLister
	logger     logger.Logger

	dispatcher *Dispatcher
	tracker    *Tracker

	mu         sync.Mutex
	cfg        *models.DiscoveryConfig
	running    bool
	baseCtx    context.Context
	stopBase   context.CancelFunc
	cancelScan context.CancelFunc
	wg         sync.WaitGroup
}

// NewEngine validates cfg and wires the collaborators. Prober, Reader and
// Assets are required.
func NewEngine(cfg *models.DiscoveryConfig, deps Deps) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: config", ErrMissingDependency)
	}

	c := cfg.Clone()
	c.ApplyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid discovery configuration: %w", err)
	}

	switch {
	case deps.Prober == nil:
		return nil, fmt.Errorf("%w: prober", ErrMissingDependency)
	case deps.Reader == nil:
		return nil, fmt.Errorf("%w: reader", ErrMissingDependency)
	case deps.Assets == nil:
		return nil, fmt.Errorf("%w: asset service", ErrMissingDependency)
	}

	log := deps.Logger
	if log == nil {
		log = logger.NewTestLogger()
	}

	e := &Engine{
		prober:     deps.Prober,
		reader:     deps.Reader,
		mapper:     deps.Mapper,
		assets:     deps.Assets,
		store:      deps.Store,
		events:     deps.Events,
		interfaces: deps.Interfaces,
		logger:     log,
		dispatcher: NewDispatcher(c.Workers, c.QueueSize, log),
		tracker:    NewTracker(),
		cfg:        c,
	}

	if e.mapper == nil {
		e.mapper = asset.NewMapper(nil, log)
	}

	if e.events == nil {
		e.events = noopPublisher{}
	}

	if e.interfaces == nil {
		e.interfaces = iprange.SystemInterfaces{}
	}

	return e, nil
}

// Start runs the worker pool, loads the persisted configuration and follows
// its updates.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return nil
	}

	e.baseCtx, e.stopBase = context.WithCancel(context.WithoutCancel(ctx))
	e.dispatcher.Start(e.baseCtx)
	e.running = true

	if e.store == nil {
		return nil
	}

	if persisted, found, err := e.store.Load(ctx); err != nil {
		e.logger.Warn().Err(err).Msg("Failed to load persisted discovery config")
	} else if found {
		e.applyLocked(persisted)
	}

	updates, err := e.store.Watch(e.baseCtx)
	if err != nil {
		e.logger.Warn().Err(err).Msg("Discovery config updates will not be followed")
		return nil
	}

	e.wg.Add(1)

	go func() {
		defer e.wg.Done()

		for cfg := range updates {
			e.mu.Lock()
			e.applyLocked(cfg)
			e.mu.Unlock()
		}
	}()

	return nil
}

// Stop cancels any running scan between addresses and stops the pool. A
// scan still in progress when Stop returns is reported as cancelled.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return nil
	}

	e.running = false
	e.stopBase()
	e.mu.Unlock()

	err := e.dispatcher.Stop(ctx)

	done := make(chan struct{})

	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		err = errors.Join(err, ctx.Err())
	}

	e.mu.Lock()
	if e.tracker.State() == StateInProgress {
		e.tracker.SetState(StateCancelledByUser)
	}

	e.cancelScan = nil
	e.mu.Unlock()

	return err
}

// Submit runs fn on the engine's worker pool.
func (e *Engine) Submit(name string, fn func(ctx context.Context)) error {
	return e.dispatcher.Submit(name, fn)
}

// Config returns a copy of the active configuration.
func (e *Engine) Config() *models.DiscoveryConfig {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.cfg.Clone()
}

// Status returns a snapshot of scan progress.
func (e *Engine) Status() Status {
	return e.tracker.Snapshot()
}

// StartScan validates req, expands its targets and schedules the scan. It
// fails with ErrScanInProgress while another scan runs.
func (e *Engine) StartScan(_ context.Context, req ScanRequest) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.tracker.State() == StateInProgress {
		return "", ErrScanInProgress
	}

	if !e.running {
		return "", ErrEngineNotRunning
	}

	job, err := e.planLocked(req)
	if err != nil {
		return "", err
	}

	job.id = uuid.NewString()

	jobCtx, cancel := context.WithCancel(e.baseCtx)

	e.tracker.Reset(job.id, len(job.targets))
	e.cancelScan = cancel

	// Scans run outside the worker pool.
	e.wg.Add(1)

	go func() {
		defer e.wg.Done()

		e.runScan(jobCtx, cancel, job)
	}()

	e.logger.Info().
		Str("scan_id", job.id).
		Int("addresses", len(job.targets)).
		Int("protocols", len(job.candidates)).
		Msg("Scan scheduled")

	return job.id, nil
}

// StopScan requests cooperative cancellation of the running scan.
func (e *Engine) StopScan() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.tracker.State() != StateInProgress || e.cancelScan == nil {
		return ErrScanNotInProgress
	}

	e.cancelScan()

	e.logger.Info().Str("scan_id", e.tracker.Snapshot().ScanID).Msg("Scan stop requested")

	return nil
}

func (e *Engine) runScan(ctx context.Context, cancel context.CancelFunc, job *scanJob) {
	defer cancel()

	e.publishEvent(ScanStarted, job.id)

	final := job.run(ctx)

	e.mu.Lock()
	e.tracker.SetState(final)
	e.cancelScan = nil
	e.mu.Unlock()

	snap := e.tracker.Snapshot()

	e.logger.Info().
		Str("scan_id", job.id).
		Str("status", final.String()).
		Int("scanned", snap.AddressScanned).
		Int("discovered", snap.Discovered).
		Msg("Scan finished")

	e.publishEvent(ScanFinished, job.id)
}

func (e *Engine) publishEvent(phase ScanPhase, scanID string) {
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	event := ScanEvent{ScanID: scanID, Phase: phase, Status: e.tracker.Snapshot(), Timestamp: time.Now().UTC()}

	if err := e.events.PublishScanEvent(ctx, event); err != nil {
		e.logger.Warn().Err(err).Str("scan_id", scanID).Str("phase", string(phase)).Msg("Failed to publish scan event")
	}
}

// planLocked resolves a request against the active config into a job.
func (e *Engine) planLocked(req ScanRequest) (*scanJob, error) {
	if err := models.ValidateStruct(&req); err != nil {
		return nil, inputError(err)
	}

	cfg := e.cfg
	expander := iprange.Expander{MaxAddresses: cfg.MaxAddresses}

	typ := req.Type
	if typ == "" && len(req.Targets) == 0 {
		typ = cfg.Type
	}

	var (
		targets []string
		err     error
	)

	switch {
	case typ == models.DiscoveryTypeLocal:
		targets, err = expander.ExpandLocal(e.interfaces)
	case len(req.Targets) > 0:
		targets, err = expander.ExpandAll(req.Targets)
	default:
		targets, err = expander.ExpandAll(cfg.Targets())
	}

	if err != nil {
		return nil, inputError(err)
	}

	if len(targets) == 0 {
		return nil, inputError(ErrNoTargets)
	}

	candidates, refs, err := resolveProbeInputs(cfg, req.Protocols, req.CredentialIDs, req.Communities)
	if err != nil {
		return nil, err
	}

	defaults := cfg.Defaults
	if req.Defaults != nil {
		defaults = *req.Defaults
	}

	return &scanJob{
		targets:     targets,
		candidates:  candidates,
		refs:        refs,
		defaults:    defaults,
		readTimeout: readBudget(cfg),
		prober:      e.prober,
		reader:      e.reader,
		mapper:      e.mapper,
		assets:      e.assets,
		tracker:     e.tracker,
		logger:      e.logger,
	}, nil
}

// resolveProbeInputs picks the request's protocols and credentials, or the
// config's when the request names none. The probe community is the last
// credential resort.
func resolveProbeInputs(cfg *models.DiscoveryConfig, protocols []models.ProtocolConfig,
	credentialIDs, communities []string) ([]protocol.Candidate, []device.CredentialRef, error) {
	if len(protocols) == 0 {
		protocols = cfg.Protocols
	}

	candidates := protocol.CandidatesFromConfig(protocols)
	if len(candidates) == 0 {
		return nil, nil, inputError(ErrNoProtocols)
	}

	if len(credentialIDs) == 0 && len(communities) == 0 {
		credentialIDs, communities = cfg.CredentialIDs, cfg.Communities
	}

	refs := device.RefsFromConfig(credentialIDs, communities)
	if len(refs) == 0 && cfg.ProbeCommunity != "" {
		refs = []device.CredentialRef{{Community: cfg.ProbeCommunity}}
	}

	if len(refs) == 0 {
		return nil, nil, inputError(ErrNoCredentials)
	}

	return candidates, refs, nil
}

// readBudget bounds one device read: NUT reads may run the driver.
func readBudget(cfg *models.DiscoveryConfig) time.Duration {
	budget := time.Duration(cfg.ReadTimeout)
	if d := time.Duration(cfg.DriverTimeout); d > budget {
		budget = d
	}

	return budget
}

// Discover probes each address and reports the first available protocol.
// Unreachable addresses are reported with availability "no".
func (e *Engine) Discover(ctx context.Context, req DiscoverRequest) ([]DiscoverResult, error) {
	if err := models.ValidateStruct(&req); err != nil {
		return nil, inputError(err)
	}

	cfg := e.Config()

	targets, err := iprange.Expander{MaxAddresses: cfg.MaxAddresses}.ExpandAll(req.Targets)
	if err != nil {
		return nil, inputError(err)
	}

	protocols := req.Protocols
	if len(protocols) == 0 {
		protocols = cfg.Protocols
	}

	candidates := protocol.CandidatesFromConfig(protocols)
	if len(candidates) == 0 {
		return nil, inputError(ErrNoProtocols)
	}

	out := make([]DiscoverResult, 0, len(targets))

	for _, address := range targets {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		result := DiscoverResult{Address: address, Protocol: protocol.Unknown, Availability: protocol.AvailabilityNo}

		for _, res := range e.prober.Probe(ctx, address, candidates) {
			if res.Reachable {
				result = DiscoverResult{Address: address, Protocol: res.Kind, Port: res.Port, Availability: res.Availability}
				break
			}
		}

		out = append(out, result)
	}

	return out, nil
}

// Details probes and reads a single address. It returns a
// *HostUnavailableError when no candidate protocol answers.
func (e *Engine) Details(ctx context.Context, req DetailsRequest) (*DetailsResult, error) {
	if err := models.ValidateStruct(&req); err != nil {
		return nil, inputError(err)
	}

	var ids, communities []string

	if req.CredentialID != "" || req.Community != "" {
		ref := device.CredentialRef{CredentialID: req.CredentialID, Community: req.Community}
		if err := ref.Validate(); err != nil {
			return nil, inputError(err)
		}

		ids, communities = []string{req.CredentialID}, []string{req.Community}
	}

	cfg := e.Config()

	candidates, refs, err := resolveProbeInputs(cfg, req.Protocols, ids, communities)
	if err != nil {
		return nil, err
	}

	var readErr error

	for _, c := range candidates {
		results := e.prober.Probe(ctx, req.Address, []protocol.Candidate{c})
		if len(results) == 0 || !results[0].Reachable {
			continue
		}

		res := results[0]

		rec, err := readDevice(ctx, e.reader, req.Address, res, refs, readBudget(cfg))
		if err != nil {
			readErr = err
			continue
		}

		return &DetailsResult{
			Address:      req.Address,
			Protocol:     res.Kind,
			Port:         res.Port,
			Availability: res.Availability,
			Device:       rec,
		}, nil
	}

	if readErr != nil {
		return nil, readErr
	}

	return nil, &HostUnavailableError{Address: req.Address}
}

// Configure validates, persists and activates a new discovery configuration.
func (e *Engine) Configure(ctx context.Context, cfg *models.DiscoveryConfig) error {
	c := cfg.Clone()
	c.ApplyDefaults()

	if err := c.Validate(); err != nil {
		return inputError(err)
	}

	if e.store != nil {
		if err := e.store.Save(ctx, c); err != nil {
			return err
		}
	}

	e.mu.Lock()
	e.cfg = c
	e.mu.Unlock()

	e.logger.Info().Str("type", string(c.Type)).Int("targets", len(c.Targets())).Msg("Discovery configuration updated")

	return nil
}

func (e *Engine) applyLocked(cfg *models.DiscoveryConfig) {
	c := cfg.Clone()
	c.ApplyDefaults()

	if err := c.Validate(); err != nil {
		e.logger.Warn().Err(err).Msg("Ignoring invalid persisted discovery config")
		return
	}

	e.cfg = c
}
