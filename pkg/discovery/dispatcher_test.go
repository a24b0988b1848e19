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
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherRunsTasks(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(2, 4, nil)
	d.Start(context.Background())

	t.Cleanup(func() { _ = d.Stop(context.Background()) })

	var ran atomic.Int32

	for i := 0; i < 4; i++ {
		require.NoError(t, d.Submit("count", func(context.Context) { ran.Add(1) }))
	}

	require.Eventually(t, func() bool { return ran.Load() == 4 }, 2*time.Second, 10*time.Millisecond)
}

func TestDispatcherQueueFull(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(1, 1, nil)
	d.Start(context.Background())

	release := make(chan struct{})
	started := make(chan struct{})

	require.NoError(t, d.Submit("block", func(context.Context) {
		close(started)
		<-release
	}))

	<-started

	require.NoError(t, d.Submit("queued", func(context.Context) {}))
	require.ErrorIs(t, d.Submit("overflow", func(context.Context) {}), ErrJobQueueFull)

	close(release)
	require.NoError(t, d.Stop(context.Background()))
}

func TestDispatcherStopCancelsTasks(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(1, 1, nil)
	require.ErrorIs(t, d.Submit("early", func(context.Context) {}), ErrDispatcherNotRunning)

	d.Start(context.Background())

	started := make(chan struct{})
	cancelled := make(chan struct{})

	require.NoError(t, d.Submit("wait", func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		close(cancelled)
	}))

	<-started
	require.NoError(t, d.Stop(context.Background()))

	select {
	case <-cancelled:
	default:
		t.Fatal("task context was not cancelled")
	}

	require.ErrorIs(t, d.Submit("late", func(context.Context) {}), ErrDispatcherNotRunning)
	require.NoError(t, d.Stop(context.Background()))
}

func TestDispatcherRecoversPanics(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(1, 2, nil)
	d.Start(context.Background())

	t.Cleanup(func() { _ = d.Stop(context.Background()) })

	var ran atomic.Bool

	require.NoError(t, d.Submit("boom", func(context.Context) { panic("boom") }))
	require.NoError(t, d.Submit("after", func(context.Context) { ran.Store(true) }))

	assert.Eventually(t, ran.Load, 2*time.Second, 10*time.Millisecond)
}
