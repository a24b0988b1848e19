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

// Package natsutil holds the NATS connection and JetStream helpers shared by
// the powerscan service.
package natsutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/powerscan/pkg/discovery"
	"github.com/carverauto/powerscan/pkg/logger"
	"github.com/carverauto/powerscan/pkg/models"
)

const (
	cloudEventsVersion = "1.0"
	eventSource        = "powerscan"
	eventTypePrefix    = "com.carverauto.powerscan.scan."
)

var errStreamNameRequired = errors.New("stream name is required")

// CloudEvent is the envelope scan events are published in.
type CloudEvent struct {
	SpecVersion     string          `json:"specversion"`
	ID              string          `json:"id"`
	Source          string          `json:"source"`
	Type            string          `json:"type"`
	DataContentType string          `json:"datacontenttype"`
	Subject         string          `json:"subject"`
	Time            time.Time       `json:"time"`
	Data            json.RawMessage `json:"data"`
}

// EventPublisher publishes scan lifecycle events to a JetStream stream.
type EventPublisher struct {
	js      jetstream.JetStream
	stream  string
	subject string
	logger  logger.Logger
}

// NewEventPublisher creates a publisher writing to subject.<phase> on stream.
func NewEventPublisher(js jetstream.JetStream, stream, subject string, log logger.Logger) *EventPublisher {
	return &EventPublisher{
		js:      js,
		stream:  stream,
		subject: subject,
		logger:  log,
	}
}

// CreateEventPublisher ensures the events stream exists on nc and returns a
// publisher for it.
func CreateEventPublisher(ctx context.Context, nc *nats.Conn, stream, subject string, log logger.Logger) (*EventPublisher, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if err := EnsureStream(ctx, js, stream, subject+".>"); err != nil {
		return nil, err
	}

	log.Info().Str("stream", stream).Str("subject", subject).Msg("Scan event publisher ready")

	return NewEventPublisher(js, stream, subject, log), nil
}

// PublishScanEvent wraps the event in a CloudEvent and publishes it.
func (p *EventPublisher) PublishScanEvent(ctx context.Context, event discovery.ScanEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal scan event: %w", err)
	}

	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	ce := CloudEvent{
		SpecVersion:     cloudEventsVersion,
		ID:              uuid.New().String(),
		Source:          eventSource,
		Type:            eventTypePrefix + string(event.Phase),
		DataContentType: "application/json",
		Subject:         event.ScanID,
		Time:            ts,
		Data:            data,
	}

	payload, err := json.Marshal(ce)
	if err != nil {
		return fmt.Errorf("failed to marshal cloud event: %w", err)
	}

	subject := p.subject + "." + string(event.Phase)

	if _, err := p.js.Publish(ctx, subject, payload); err != nil {
		return fmt.Errorf("failed to publish scan event to %s: %w", subject, err)
	}

	p.logger.Debug().
		Str("scan_id", event.ScanID).
		Str("subject", subject).
		Str("status", event.Status.State.String()).
		Msg("Published scan event")

	return nil
}

// EnsureStream creates stream if it is missing, or adds subject to an
// existing stream whose subjects do not already cover it.
func EnsureStream(ctx context.Context, js jetstream.JetStream, stream, subject string) error {
	if stream == "" {
		return errStreamNameRequired
	}

	existing, err := js.Stream(ctx, stream)
	if err != nil {
		if !isStreamMissingErr(err) {
			return fmt.Errorf("failed to look up stream %s: %w", stream, err)
		}

		_, err = js.CreateStream(ctx, jetstream.StreamConfig{
			Name:     stream,
			Subjects: []string{subject},
		})
		if err != nil {
			return fmt.Errorf("failed to create stream %s: %w", stream, err)
		}

		return nil
	}

	cfg := existing.CachedInfo().Config
	subjects := ensureSubjectList(cfg.Subjects, subject)

	if len(subjects) == len(cfg.Subjects) {
		return nil
	}

	cfg.Subjects = subjects

	if _, err := js.UpdateStream(ctx, cfg); err != nil {
		return fmt.Errorf("failed to update stream %s: %w", stream, err)
	}

	return nil
}

func isStreamMissingErr(err error) bool {
	return errors.Is(err, jetstream.ErrStreamNotFound) ||
		errors.Is(err, jetstream.ErrNoStreamResponse) ||
		errors.Is(err, nats.ErrStreamNotFound) ||
		errors.Is(err, nats.ErrNoStreamResponse) ||
		errors.Is(err, nats.ErrNoResponders)
}

func ensureSubjectList(subjects []string, subject string) []string {
	for _, s := range subjects {
		if matchesSubject(s, subject) {
			return subjects
		}
	}

	return append(subjects, subject)
}

// matchesSubject reports whether pattern covers subject using NATS wildcard
// rules. A pattern equal to subject, wildcards included, also matches.
func matchesSubject(pattern, subject string) bool {
	if pattern == subject {
		return true
	}

	pt := strings.Split(pattern, ".")
	st := strings.Split(subject, ".")

	for i, tok := range pt {
		if tok == ">" {
			return len(st) > i
		}

		if i >= len(st) {
			return false
		}

		if tok != "*" && tok != st[i] {
			return false
		}
	}

	return len(pt) == len(st)
}

// ConnectWithSecurity dials natsURL, enabling mTLS when sec asks for it.
func ConnectWithSecurity(ctx context.Context, natsURL string, sec *models.SecurityConfig, log logger.Logger, extraOpts ...nats.Option) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name(eventSource),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			ev := log.Error().Err(err)
			if sub != nil {
				ev = ev.Str("subject", sub.Subject)
			}

			ev.Msg("NATS async error")
		}),
	}

	if sec != nil && sec.Mode == "mtls" {
		tlsConf, err := TLSConfig(sec)
		if err != nil {
			return nil, fmt.Errorf("failed to build NATS TLS config: %w", err)
		}

		opts = append(opts, nats.Secure(tlsConf))
	}

	opts = append(opts, extraOpts...)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type result struct {
		nc  *nats.Conn
		err error
	}

	done := make(chan result, 1)

	go func() {
		nc, err := nats.Connect(natsURL, opts...)
		done <- result{nc: nc, err: err}
	}()

	select {
	case <-ctx.Done():
		go func() {
			if r := <-done; r.nc != nil {
				r.nc.Close()
			}
		}()

		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", r.err)
		}

		return r.nc, nil
	}
}
