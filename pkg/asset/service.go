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

//go:generate mockgen -destination=mock_service.go -package=asset github.com/carverauto/powerscan/pkg/asset Service

package asset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/carverauto/powerscan/pkg/logger"
	"github.com/nats-io/nats.go"
	"github.com/sony/gobreaker"
)

var (
	ErrAssetRejected  = errors.New("asset service rejected request")
	ErrEmptyAssetName = errors.New("asset service returned no name")
)

const (
	defaultRequestTimeout = 5 * time.Second
	breakerTripFailures   = 5
	breakerOpenTimeout    = 30 * time.Second
)

// Service creates assets and returns the name the inventory assigned.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (string, error)
}

type createReply struct {
	Name  string `json:"name"`
	Error string `json:"error,omitempty"`
}

// NATSService sends CreateRequests as NATS requests. Transport failures trip
// a circuit breaker; rejections by the service do not.
type NATSService struct {
	nc      *nats.Conn
	subject string
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker
	logger  logger.Logger
}

var _ Service = (*NATSService)(nil)

func NewNATSService(nc *nats.Conn, subject string, timeout time.Duration, log logger.Logger) *NATSService {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	s := &NATSService{
		nc:      nc,
		subject: subject,
		timeout: timeout,
		logger:  log,
	}

	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "asset-service",
		Timeout: breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerTripFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrAssetRejected) || errors.Is(err, ErrEmptyAssetName)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state changed")
		},
	})

	return s
}

func (s *NATSService) Create(ctx context.Context, req CreateRequest) (string, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal asset request: %w", err)
	}

	name, err := s.breaker.Execute(func() (interface{}, error) {
		return s.request(ctx, data)
	})
	if err != nil {
		return "", err
	}

	return name.(string), nil
}

func (s *NATSService) request(ctx context.Context, data []byte) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	msg, err := s.nc.RequestWithContext(reqCtx, s.subject, data)
	if err != nil {
		return "", fmt.Errorf("asset request on %s: %w", s.subject, err)
	}

	var reply createReply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		return "", fmt.Errorf("failed to decode asset reply: %w", err)
	}

	if reply.Error != "" {
		return "", fmt.Errorf("%w: %s", ErrAssetRejected, reply.Error)
	}

	if reply.Name == "" {
		return "", ErrEmptyAssetName
	}

	return reply.Name, nil
}
