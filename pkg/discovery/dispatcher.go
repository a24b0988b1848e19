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
	"sync"
	"time"

	"github.com/carverauto/powerscan/pkg/logger"
)

const defaultFallbackTimeout = 10 * time.Second

type task struct {
	name string
	fn   func(ctx context.Context)
}

// Dispatcher runs named tasks on a fixed pool of workers fed from a bounded queue.
type Dispatcher struct {
	workers int
	queue   chan task
	logger  logger.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewDispatcher(workers, queueSize int, log logger.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}

	if queueSize <= 0 {
		queueSize = workers
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Dispatcher{
		workers: workers,
		queue:   make(chan task, queueSize),
		logger:  log,
	}
}

// Start launches the workers. Tasks receive a context that is cancelled by Stop.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return
	}

	ctx, d.cancel = context.WithCancel(ctx)
	d.running = true

	d.wg.Add(d.workers)

	for i := 0; i < d.workers; i++ {
		go d.worker(ctx, i)
	}

	d.logger.Info().Int("workers", d.workers).Int("queue_size", cap(d.queue)).Msg("Dispatcher started")
}

// Submit queues fn without blocking.
func (d *Dispatcher) Submit(name string, fn func(ctx context.Context)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return ErrDispatcherNotRunning
	}

	select {
	case d.queue <- task{name: name, fn: fn}:
		return nil
	default:
		return ErrJobQueueFull
	}
}

// Stop cancels running tasks and waits for the workers. Queued tasks that
// never started are dropped.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}

	d.running = false
	d.cancel()
	d.mu.Unlock()

	done := make(chan struct{})

	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(defaultFallbackTimeout):
		return ErrDispatcherStopTimeout
	}

	dropped := 0

	for {
		select {
		case <-d.queue:
			dropped++
		default:
			d.logger.Info().Int("dropped", dropped).Msg("Dispatcher stopped")
			return nil
		}
	}
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-d.queue:
			if ctx.Err() != nil {
				return
			}

			d.run(ctx, id, t)
		}
	}
}

func (d *Dispatcher) run(ctx context.Context, id int, t task) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().Interface("panic", r).Str("task", t.name).Int("worker", id).Msg("Task panicked")
		}
	}()

	start := time.Now()

	t.fn(ctx)

	d.logger.Debug().Str("task", t.name).Int("worker", id).Dur("elapsed", time.Since(start)).Msg("Task finished")
}
