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

package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDurationUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		want    time.Duration
		wantErr bool
	}{
		{name: "string", json: `"1m30s"`, want: 90 * time.Second},
		{name: "seconds", json: `5`, want: 5 * time.Second},
		{name: "fractional seconds", json: `0.5`, want: 500 * time.Millisecond},
		{name: "garbage string", json: `"soon"`, wantErr: true},
		{name: "bool", json: `true`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration

			err := json.Unmarshal([]byte(tt.json), &d)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, time.Duration(d))
		})
	}
}

func TestDurationYAML(t *testing.T) {
	var cfg struct {
		A Duration `yaml:"a"`
		B Duration `yaml:"b"`
	}

	require.NoError(t, yaml.Unmarshal([]byte("a: 250ms\nb: 3\n"), &cfg))
	assert.Equal(t, 250*time.Millisecond, time.Duration(cfg.A))
	assert.Equal(t, 3*time.Second, time.Duration(cfg.B))
}

func TestDiscoveryConfigDefaults(t *testing.T) {
	cfg := DiscoveryConfig{Defaults: AssetDefaults{Parent: "datacenter-1"}}
	cfg.ApplyDefaults()

	assert.Equal(t, DiscoveryTypeIP, cfg.Type)
	assert.Equal(t, "active", cfg.Defaults.Status)
	assert.Equal(t, defaultWorkers, cfg.Workers)
	assert.Equal(t, "public", cfg.ProbeCommunity)
	assert.Len(t, cfg.Protocols, 2)

	noParent := DiscoveryConfig{}
	noParent.ApplyDefaults()
	assert.Equal(t, "nonactive", noParent.Defaults.Status)
}

func TestDiscoveryConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     DiscoveryConfig
		wantErr bool
	}{
		{
			name: "ip list",
			cfg:  DiscoveryConfig{Type: DiscoveryTypeIP, IPs: []string{"10.0.0.1"}},
		},
		{
			name: "local needs no targets",
			cfg:  DiscoveryConfig{Type: DiscoveryTypeLocal},
		},
		{
			name:    "multi without scans",
			cfg:     DiscoveryConfig{Type: DiscoveryTypeMulti},
			wantErr: true,
		},
		{
			name:    "bad ip",
			cfg:     DiscoveryConfig{Type: DiscoveryTypeIP, IPs: []string{"10.0.0.300"}},
			wantErr: true,
		},
		{
			name: "unknown protocol",
			cfg: DiscoveryConfig{
				Type: DiscoveryTypeIP, IPs: []string{"10.0.0.1"},
				Protocols: []ProtocolConfig{{Name: "modbus"}},
			},
			wantErr: true,
		},
		{
			name: "all protocols disabled",
			cfg: DiscoveryConfig{
				Type: DiscoveryTypeIP, IPs: []string{"10.0.0.1"},
				Protocols: []ProtocolConfig{{Name: "snmp", Disabled: true}},
			},
			wantErr: true,
		},
		{
			name: "priority out of range",
			cfg: DiscoveryConfig{
				Type: DiscoveryTypeIP, IPs: []string{"10.0.0.1"},
				Defaults: AssetDefaults{Priority: 9},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			cfg.ApplyDefaults()

			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
		})
	}
}

func TestDiscoveryConfigTargets(t *testing.T) {
	cfg := DiscoveryConfig{
		Scans: []string{"10.0.0.0/30"},
		IPs:   []string{"10.0.1.5"},
	}

	cfg.Type = DiscoveryTypeIP
	assert.Equal(t, []string{"10.0.1.5"}, cfg.Targets())

	cfg.Type = DiscoveryTypeMulti
	assert.Equal(t, []string{"10.0.0.0/30"}, cfg.Targets())

	cfg.Type = DiscoveryTypeFull
	assert.Equal(t, []string{"10.0.0.0/30", "10.0.1.5"}, cfg.Targets())

	cfg.Type = DiscoveryTypeLocal
	assert.Empty(t, cfg.Targets())
}

func TestDiscoveryConfigClone(t *testing.T) {
	cfg := &DiscoveryConfig{IPs: []string{"10.0.0.1"}, Defaults: AssetDefaults{Links: []LinkSource{{Source: "feed-a"}}}}
	clone := cfg.Clone()

	clone.IPs[0] = "10.0.0.2"
	clone.Defaults.Links[0].Source = "feed-b"

	assert.Equal(t, "10.0.0.1", cfg.IPs[0])
	assert.Equal(t, "feed-a", cfg.Defaults.Links[0].Source)
}

func TestServiceConfigValidate(t *testing.T) {
	cfg := ServiceConfig{
		NATS: NATSConfig{URL: "nats://127.0.0.1:4222"},
		Credentials: []Credential{
			{ID: "c1", Type: CredentialSNMPv2c, Community: "private"},
			{ID: "c2", Type: CredentialSNMPv3, Username: "admin", AuthProtocol: "SHA"},
		},
		Discovery: DiscoveryConfig{Type: DiscoveryTypeLocal},
	}

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "powerscan.requests", cfg.NATS.Mailbox)
	assert.Equal(t, "assets.create", cfg.NATS.AssetSubject)

	cfg.Credentials = append(cfg.Credentials, Credential{ID: "c1", Type: CredentialSNMPv1, Community: "x"})
	require.ErrorIs(t, cfg.Validate(), errDuplicateCredential)

	missingCommunity := ServiceConfig{
		NATS:        NATSConfig{URL: "nats://127.0.0.1:4222"},
		Credentials: []Credential{{ID: "c1", Type: CredentialSNMPv2c}},
		Discovery:   DiscoveryConfig{Type: DiscoveryTypeLocal},
	}
	require.Error(t, missingCommunity.Validate())

	noURL := ServiceConfig{Discovery: DiscoveryConfig{Type: DiscoveryTypeLocal}}
	require.ErrorIs(t, noURL.Validate(), errNATSURLRequired)
}
