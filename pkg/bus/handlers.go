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
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/carverauto/powerscan/pkg/discovery"
	"github.com/carverauto/powerscan/pkg/models"
)

type handlerFunc func(ctx context.Context, payload json.RawMessage) (any, error)

// ScanAccepted is the payload answering scan and start.
type ScanAccepted struct {
	ScanID string           `json:"scanId"`
	Status discovery.Status `json:"status"`
}

func (s *Server) handler(subject Subject) (handlerFunc, bool) {
	switch subject {
	case SubjectDiscovery:
		return s.handleDiscovery, true
	case SubjectScan:
		return s.handleScan, true
	case SubjectStart:
		return s.handleStart, true
	case SubjectStop:
		return s.handleStop, true
	case SubjectStatus:
		return s.handleStatus, true
	case SubjectConfigure:
		return s.handleConfigure, true
	case SubjectDetails:
		return s.handleDetails, true
	default:
		return nil, false
	}
}

func (s *Server) handleDiscovery(ctx context.Context, payload json.RawMessage) (any, error) {
	var req discovery.DiscoverRequest
	if err := decodePayload(payload, &req); err != nil {
		return nil, err
	}

	return s.engine.Discover(ctx, req)
}

func (s *Server) handleScan(ctx context.Context, payload json.RawMessage) (any, error) {
	var req discovery.ScanRequest
	if err := decodePayload(payload, &req); err != nil {
		return nil, err
	}

	return s.startScan(ctx, req)
}

// handleStart runs a scan over the active discovery configuration. Only the
// asset defaults may be overridden.
func (s *Server) handleStart(ctx context.Context, payload json.RawMessage) (any, error) {
	var req struct {
		Defaults *models.AssetDefaults `json:"defaults,omitempty"`
	}
	if err := decodePayload(payload, &req); err != nil {
		return nil, err
	}

	return s.startScan(ctx, discovery.ScanRequest{Defaults: req.Defaults})
}

func (s *Server) startScan(ctx context.Context, req discovery.ScanRequest) (any, error) {
	id, err := s.engine.StartScan(ctx, req)
	if err != nil {
		return nil, err
	}

	return ScanAccepted{ScanID: id, Status: s.engine.Status()}, nil
}

func (s *Server) handleStop(_ context.Context, payload json.RawMessage) (any, error) {
	var req struct{}
	if err := decodePayload(payload, &req); err != nil {
		return nil, err
	}

	if err := s.engine.StopScan(); err != nil {
		return nil, err
	}

	return s.engine.Status(), nil
}

func (s *Server) handleStatus(_ context.Context, payload json.RawMessage) (any, error) {
	var req struct{}
	if err := decodePayload(payload, &req); err != nil {
		return nil, err
	}

	return s.engine.Status(), nil
}

func (s *Server) handleConfigure(ctx context.Context, payload json.RawMessage) (any, error) {
	var cfg models.DiscoveryConfig
	if err := decodePayload(payload, &cfg); err != nil {
		return nil, err
	}

	if err := s.engine.Configure(ctx, &cfg); err != nil {
		return nil, err
	}

	return s.engine.Config(), nil
}

func (s *Server) handleDetails(ctx context.Context, payload json.RawMessage) (any, error) {
	var req discovery.DetailsRequest
	if err := decodePayload(payload, &req); err != nil {
		return nil, err
	}

	return s.engine.Details(ctx, req)
}

// replyError renders err as the reply's error string. Schema violations read
// as a malformed payload; other rejected input keeps its reason.
func replyError(err error) string {
	var (
		inputErr *discovery.InputError
		verrs    validator.ValidationErrors
	)

	switch {
	case errors.Is(err, errEmptyPayload), errors.Is(err, errMalformedPayload):
		return err.Error()
	case errors.As(err, &verrs):
		return msgMalformedPayload
	case errors.As(err, &inputErr):
		return msgInputPrefix + inputErr.Err.Error()
	default:
		return err.Error()
	}
}
