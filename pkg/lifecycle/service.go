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

package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/carverauto/powerscan/pkg/logger"
	"golang.org/x/sync/errgroup"
)

const defaultShutdownTimeout = 15 * time.Second

// Service is a long-running component with an explicit start and stop.
type Service interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// ServerOptions configures RunServer.
type ServerOptions struct {
	ServiceName     string
	Services        []Service
	ShutdownTimeout time.Duration
	Logger          logger.Logger
}

// RunServer starts every service in order, blocks until ctx is cancelled or the
// process receives SIGINT/SIGTERM, then stops all started services concurrently.
func RunServer(ctx context.Context, opts *ServerOptions) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := opts.Logger
	if log == nil {
		log = logger.NewTestLogger()
	}

	started := make([]Service, 0, len(opts.Services))

	for _, svc := range opts.Services {
		if err := svc.Start(ctx); err != nil {
			stopAll(log, started, opts.ShutdownTimeout)

			return fmt.Errorf("failed to start %s: %w", opts.ServiceName, err)
		}

		started = append(started, svc)
	}

	log.Info().Str("service", opts.ServiceName).Msg("Service started")

	<-ctx.Done()

	log.Info().Str("service", opts.ServiceName).Msg("Shutting down")

	return stopAll(log, started, opts.ShutdownTimeout)
}

func stopAll(log logger.Logger, services []Service, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var g errgroup.Group

	errs := make([]error, len(services))

	for idx, svc := range services {
		g.Go(func() error {
			if err := svc.Stop(ctx); err != nil {
				log.Error().Err(err).Msg("Failed to stop service")
				errs[idx] = err
			}

			return nil
		})
	}

	_ = g.Wait()

	return errors.Join(errs...)
}
