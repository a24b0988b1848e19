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

//go:generate mockgen -destination=mock_engine.go -package=bus github.com/carverauto/powerscan/pkg/bus Engine

// Package bus serves discovery requests arriving on a NATS mailbox subject.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/carverauto/powerscan/pkg/discovery"
	"github.com/carverauto/powerscan/pkg/logger"
	"github.com/carverauto/powerscan/pkg/models"
)

const serviceName = "powerscan"

var (
	ErrAlreadyStarted  = errors.New("bus server already started")
	ErrMailboxRequired = errors.New("mailbox subject is required")
)

// Engine is the discovery engine surface the bus drives.
type Engine interface {
	Submit(name string, fn func(ctx context.Context)) error
	StartScan(ctx context.Context, req discovery.ScanRequest) (string, error)
	StopScan() error
	Status() discovery.Status
	Discover(ctx context.Context, req discovery.DiscoverRequest) ([]discovery.DiscoverResult, error)
	Details(ctx context.Context, req discovery.DetailsRequest) (*discovery.DetailsResult, error)
	Configure(ctx context.Context, cfg *models.DiscoveryConfig) error
	Config() *models.DiscoveryConfig
}

var _ Engine = (*discovery.Engine)(nil)

// Server subscribes to the mailbox and answers each envelope. Handlers run on
// the engine's worker pool, except stop and status which are answered inline.
type Server struct {
	nc      *nats.Conn
	mailbox string
	engine  Engine
	logger  logger.Logger

	mu  sync.Mutex
	sub *nats.Subscription
}

// NewServer creates a server for mailbox.
func NewServer(nc *nats.Conn, mailbox string, engine Engine, log logger.Logger) *Server {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Server{
		nc:      nc,
		mailbox: mailbox,
		engine:  engine,
		logger:  log,
	}
}

// Start subscribes to the mailbox.
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sub != nil {
		return ErrAlreadyStarted
	}

	if s.mailbox == "" {
		return ErrMailboxRequired
	}

	sub, err := s.nc.Subscribe(s.mailbox, s.handleMsg)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.mailbox, err)
	}

	if err := s.nc.Flush(); err != nil {
		_ = sub.Unsubscribe()

		return fmt.Errorf("failed to flush subscription to %s: %w", s.mailbox, err)
	}

	s.sub = sub

	s.logger.Info().Str("mailbox", s.mailbox).Msg("Listening for discovery requests")

	return nil
}

// Stop drains the mailbox subscription.
func (s *Server) Stop(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sub == nil {
		return nil
	}

	err := s.sub.Drain()
	s.sub = nil

	if err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		return fmt.Errorf("failed to drain %s: %w", s.mailbox, err)
	}

	return nil
}

func (s *Server) handleMsg(msg *nats.Msg) {
	var env Envelope

	if err := json.Unmarshal(msg.Data, &env); err != nil {
		s.logger.Warn().Err(err).Str("nats_subject", msg.Subject).Msg("Dropping undecodable envelope")
		s.respond(msg, &env, nil, errMalformedPayload)

		return
	}

	log := s.logger.With().
		Str("subject", string(env.Subject)).
		Str("correlation_id", env.CorrelationID).
		Logger()

	log.Debug().Str("from", env.From).Msg("Request received")

	h, ok := s.handler(env.Subject)
	if !ok {
		s.respond(msg, &env, nil, fmt.Errorf("unsupported subject: %s", env.Subject))

		return
	}

	if answeredInline(env.Subject) {
		payload, err := h(context.Background(), env.Payload)
		s.respond(msg, &env, payload, err)

		return
	}

	err := s.engine.Submit(string(env.Subject)+" "+env.CorrelationID, func(ctx context.Context) {
		payload, err := h(ctx, env.Payload)
		s.respond(msg, &env, payload, err)
	})
	if err != nil {
		log.Warn().Err(err).Msg("Request not scheduled")
		s.respond(msg, &env, nil, err)
	}
}

// answeredInline reports whether a subject only touches scan state and is
// answered on the subscription goroutine instead of the worker pool.
func answeredInline(subject Subject) bool {
	switch subject {
	case SubjectScan, SubjectStart, SubjectStop, SubjectStatus:
		return true
	default:
		return false
	}
}

// respond sends the reply to the NATS reply inbox, or to the envelope's
// replyTo subject when the request carried none.
func (s *Server) respond(msg *nats.Msg, env *Envelope, payload any, err error) {
	dest := msg.Reply
	if dest == "" {
		dest = env.ReplyTo
	}

	if dest == "" {
		if err != nil {
			s.logger.Warn().Err(err).Str("subject", string(env.Subject)).Msg("Request failed with nowhere to reply")
		}

		return
	}

	reply := Reply{
		To:            env.From,
		From:          env.To,
		Subject:       env.Subject,
		CorrelationID: env.CorrelationID,
		Status:        StatusOK,
	}

	if reply.From == "" {
		reply.From = serviceName
	}

	if err != nil {
		reply.Status = StatusError
		reply.Error = replyError(err)
	} else if payload != nil {
		data, mErr := json.Marshal(payload)
		if mErr != nil {
			reply.Status = StatusError
			reply.Error = mErr.Error()
		} else {
			reply.Payload = data
		}
	}

	data, mErr := json.Marshal(reply)
	if mErr != nil {
		s.logger.Error().Err(mErr).Msg("Failed to encode reply")

		return
	}

	if pErr := s.nc.Publish(dest, data); pErr != nil {
		s.logger.Error().Err(pErr).Str("reply_to", dest).Msg("Failed to publish reply")
	}
}
