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

//go:generate mockgen -destination=mock_interfaces.go -package=discovery github.com/carverauto/powerscan/pkg/discovery ConfigStore,EventPublisher

// Package discovery runs cancellable power-device scans: it expands address
// specs, probes and reads each address, and publishes the resulting assets.
package discovery

import (
	"context"
	"time"

	"github.com/carverauto/powerscan/pkg/models"
)

// ConfigStore persists the discovery configuration.
type ConfigStore interface {
	Save(ctx context.Context, cfg *models.DiscoveryConfig) error
	Load(ctx context.Context) (*models.DiscoveryConfig, bool, error)
	Watch(ctx context.Context) (<-chan *models.DiscoveryConfig, error)
}

// ScanPhase names a scan lifecycle event.
type ScanPhase string

const (
	ScanStarted  ScanPhase = "started"
	ScanFinished ScanPhase = "finished"
)

// ScanEvent is emitted when a scan starts and when it reaches a final state.
type ScanEvent struct {
	ScanID    string    `json:"scan_id"`
	Phase     ScanPhase `json:"phase"`
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// EventPublisher receives scan lifecycle events.
type EventPublisher interface {
	PublishScanEvent(ctx context.Context, event ScanEvent) error
}

type noopPublisher struct{}

func (noopPublisher) PublishScanEvent(context.Context, ScanEvent) error { return nil }
