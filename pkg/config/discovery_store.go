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

package config

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/carverauto/powerscan/pkg/models"
)

const discoveryConfigKey = "discovery"

// DiscoveryStore persists the discovery configuration set through the configure request.
type DiscoveryStore struct {
	kv KVStore
}

func NewDiscoveryStore(kv KVStore) *DiscoveryStore {
	return &DiscoveryStore{kv: kv}
}

// Save writes cfg as JSON under the discovery key.
func (s *DiscoveryStore) Save(ctx context.Context, cfg *models.DiscoveryConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal discovery config: %w", err)
	}

	if err := s.kv.Put(ctx, discoveryConfigKey, data); err != nil {
		return fmt.Errorf("failed to persist discovery config: %w", err)
	}

	return nil
}

// Load returns the persisted configuration, or false when none was saved yet.
func (s *DiscoveryStore) Load(ctx context.Context) (*models.DiscoveryConfig, bool, error) {
	data, found, err := s.kv.Get(ctx, discoveryConfigKey)
	if err != nil || !found {
		return nil, false, err
	}

	var cfg models.DiscoveryConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, false, fmt.Errorf("failed to decode persisted discovery config: %w", err)
	}

	return &cfg, true, nil
}

// Watch streams configurations saved after the call until ctx is done.
// Deletes and undecodable documents are skipped.
func (s *DiscoveryStore) Watch(ctx context.Context) (<-chan *models.DiscoveryConfig, error) {
	updates, err := s.kv.Watch(ctx, discoveryConfigKey)
	if err != nil {
		return nil, fmt.Errorf("failed to watch discovery config: %w", err)
	}

	out := make(chan *models.DiscoveryConfig, 1)

	go func() {
		defer close(out)

		for data := range updates {
			if data == nil {
				continue
			}

			var cfg models.DiscoveryConfig
			if err := json.Unmarshal(data, &cfg); err != nil {
				continue
			}

			select {
			case out <- &cfg:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}
