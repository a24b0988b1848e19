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

//go:generate mockgen -destination=mock_store.go -package=credentials github.com/carverauto/powerscan/pkg/credentials Store

// Package credentials resolves credential ids into SNMP and NUT secrets.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/carverauto/powerscan/pkg/models"
)

var (
	ErrCredentialNotFound = errors.New("credential not found")
	ErrInvalidCredential  = errors.New("invalid credential document")
)

// Store looks up a credential document by id.
type Store interface {
	Get(ctx context.Context, id string) (*models.Credential, error)
}

// StaticStore serves credentials declared in the service configuration.
type StaticStore struct {
	mu    sync.RWMutex
	creds map[string]models.Credential
}

var _ Store = (*StaticStore)(nil)

func NewStaticStore(creds []models.Credential) *StaticStore {
	s := &StaticStore{creds: make(map[string]models.Credential, len(creds))}
	for _, c := range creds {
		s.creds[c.ID] = c
	}

	return s
}

func (s *StaticStore) Get(_ context.Context, id string) (*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.creds[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCredentialNotFound, id)
	}

	return &c, nil
}

// Put adds or replaces a credential.
func (s *StaticStore) Put(c models.Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.creds[c.ID] = c
}

// Chain consults each store in order and returns the first hit.
type Chain []Store

func (c Chain) Get(ctx context.Context, id string) (*models.Credential, error) {
	var errs []error

	for _, s := range c {
		cred, err := s.Get(ctx, id)
		if err == nil {
			return cred, nil
		}

		errs = append(errs, err)
	}

	if len(errs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrCredentialNotFound, id)
	}

	return nil, errors.Join(errs...)
}
