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

package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"

	"github.com/carverauto/powerscan/pkg/logger"
	"github.com/carverauto/powerscan/pkg/models"
	vault "github.com/hashicorp/vault/api"
)

// VaultStore reads credentials from a Vault KV v2 mount. Each credential is a
// secret at <path>/<id> whose data fields mirror models.Credential.
type VaultStore struct {
	kv     *vault.KVv2
	path   string
	logger logger.Logger
}

var _ Store = (*VaultStore)(nil)

// NewVaultStore creates a Vault client for cfg.Address authenticated with cfg.Token.
func NewVaultStore(cfg *models.VaultConfig, log logger.Logger) (*VaultStore, error) {
	vc := vault.DefaultConfig()
	vc.Address = cfg.Address

	client, err := vault.NewClient(vc)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}

	if cfg.Token != "" {
		client.SetToken(cfg.Token)
	}

	return NewVaultStoreWithClient(client, cfg.Mount, cfg.Path, log), nil
}

func NewVaultStoreWithClient(client *vault.Client, mount, secretPath string, log logger.Logger) *VaultStore {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &VaultStore{
		kv:     client.KVv2(mount),
		path:   secretPath,
		logger: log,
	}
}

func (v *VaultStore) Get(ctx context.Context, id string) (*models.Credential, error) {
	secret, err := v.kv.Get(ctx, path.Join(v.path, id))
	if err != nil {
		if errors.Is(err, vault.ErrSecretNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCredentialNotFound, id)
		}

		return nil, fmt.Errorf("failed to read credential %s from vault: %w", id, err)
	}

	raw, err := json.Marshal(secret.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidCredential, id, err)
	}

	var cred models.Credential
	if err := json.Unmarshal(raw, &cred); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidCredential, id, err)
	}

	cred.ID = id

	if err := models.ValidateStruct(&cred); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidCredential, id, err)
	}

	v.logger.Debug().Str("credential_id", id).Str("type", string(cred.Type)).Msg("Resolved credential from vault")

	return &cred, nil
}
