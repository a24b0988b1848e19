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

//go:generate mockgen -destination=mock_prober.go -package=protocol github.com/carverauto/powerscan/pkg/protocol Prober,Checker

package protocol

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/carverauto/powerscan/pkg/logger"
	"github.com/carverauto/powerscan/pkg/models"
	"golang.org/x/time/rate"
)

var errNoChecker = errors.New("no checker registered for protocol")

const defaultProbeTimeout = 2 * time.Second

// Prober checks which of a set of candidate protocols an address answers on.
type Prober interface {
	Probe(ctx context.Context, address string, candidates []Candidate) []ProbeResult
}

// Checker performs a bounded connectivity check for one protocol.
type Checker interface {
	Check(ctx context.Context, address string, port int) (Availability, error)
}

// CheckerProber runs the registered Checker of each candidate in order.
type CheckerProber struct {
	checkers map[Kind]Checker
	timeout  time.Duration
	limiter  *rate.Limiter
	logger   logger.Logger
}

var _ Prober = (*CheckerProber)(nil)

// NewProber wires the SNMP, XML-PDC and Powercom checkers from cfg.
func NewProber(cfg *models.DiscoveryConfig, log logger.Logger) *CheckerProber {
	timeout := time.Duration(cfg.ProbeTimeout)
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}

	tcp := &TCPChecker{}
	httpClient := &http.Client{Timeout: timeout}

	p := NewCheckerProber(map[Kind]Checker{
		SNMP:     &SNMPChecker{Community: cfg.ProbeCommunity, Timeout: timeout},
		XMLPDC:   &DescriptorChecker{TCP: tcp, Client: httpClient, Path: cfg.XMLDescriptorPath},
		Powercom: tcp,
	}, timeout, log)

	if cfg.ProbeRate > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.ProbeRate), 1)
	}

	return p
}

// NewCheckerProber builds a prober over an explicit checker table without rate limiting.
func NewCheckerProber(checkers map[Kind]Checker, timeout time.Duration, log logger.Logger) *CheckerProber {
	if log == nil {
		log = logger.NewTestLogger()
	}

	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}

	return &CheckerProber{
		checkers: checkers,
		timeout:  timeout,
		limiter:  rate.NewLimiter(rate.Inf, 0),
		logger:   log,
	}
}

// Probe returns one result per candidate, in candidate order.
func (p *CheckerProber) Probe(ctx context.Context, address string, candidates []Candidate) []ProbeResult {
	results := make([]ProbeResult, 0, len(candidates))

	for _, c := range candidates {
		results = append(results, p.probeOne(ctx, address, c))
	}

	return results
}

func (p *CheckerProber) probeOne(ctx context.Context, address string, c Candidate) ProbeResult {
	result := ProbeResult{
		Address:      address,
		Kind:         c.Kind,
		Port:         c.EffectivePort(),
		Availability: AvailabilityNo,
	}

	checker, ok := p.checkers[c.Kind]
	if !ok {
		result.Error = fmt.Sprintf("%v: %s", errNoChecker, c.Kind)
		return result
	}

	if err := p.limiter.Wait(ctx); err != nil {
		result.Error = err.Error()
		return result
	}

	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()

	avail, err := checker.Check(probeCtx, address, result.Port)
	if err != nil {
		result.Error = err.Error()
	}

	if avail.Reachable() {
		result.Reachable = true
		result.Availability = avail
	}

	p.logger.Debug().
		Str("address", address).
		Str("protocol", c.Kind.String()).
		Int("port", result.Port).
		Str("availability", result.Availability.String()).
		Dur("rtt", time.Since(start)).
		Msg("Probe finished")

	return result
}
