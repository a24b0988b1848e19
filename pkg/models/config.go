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
	"errors"
	"fmt"
	"time"

	"github.com/carverauto/powerscan/pkg/logger"
	"gopkg.in/yaml.v3"
)

var (
	errInvalidDuration     = errors.New("invalid duration")
	errNATSURLRequired     = errors.New("nats.url is required")
	errMailboxRequired     = errors.New("nats.mailbox is required")
	errVaultAddrRequired   = errors.New("vault.address is required when vault is configured")
	errDuplicateCredential = errors.New("duplicate credential id")
)

// Duration wraps time.Duration so it can be read from "5s" strings or plain numbers (seconds).
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	return d.set(v)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var v interface{}
	if err := node.Decode(&v); err != nil {
		return err
	}

	return d.set(v)
}

func (d *Duration) set(v interface{}) error {
	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value * float64(time.Second)))
	case int:
		*d = Duration(time.Duration(value) * time.Second)
	case string:
		dur, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%w: %w", errInvalidDuration, err)
		}

		*d = Duration(dur)
	default:
		return errInvalidDuration
	}

	return nil
}

// TLSConfig points at the PEM files used for mTLS.
type TLSConfig struct {
	CertFile string `json:"cert_file" yaml:"cert_file"`
	KeyFile  string `json:"key_file" yaml:"key_file"`
	CAFile   string `json:"ca_file" yaml:"ca_file"`
}

// SecurityConfig holds the transport security settings for the NATS connection.
type SecurityConfig struct {
	Mode       string    `json:"mode" yaml:"mode"`
	CertDir    string    `json:"cert_dir" yaml:"cert_dir"`
	ServerName string    `json:"server_name,omitempty" yaml:"server_name,omitempty"`
	TLS        TLSConfig `json:"tls" yaml:"tls"`
}

// NATSConfig describes how the service talks to the message bus.
type NATSConfig struct {
	URL            string          `json:"url" yaml:"url"`
	Mailbox        string          `json:"mailbox" yaml:"mailbox"`
	AssetSubject   string          `json:"asset_subject" yaml:"asset_subject"`
	EventsStream   string          `json:"events_stream" yaml:"events_stream"`
	EventsSubject  string          `json:"events_subject" yaml:"events_subject"`
	ConfigBucket   string          `json:"config_bucket" yaml:"config_bucket"`
	RequestTimeout Duration        `json:"request_timeout" yaml:"request_timeout"`
	Security       *SecurityConfig `json:"security,omitempty" yaml:"security,omitempty"`
}

// VaultConfig selects the Vault KV v2 mount that holds device credentials.
type VaultConfig struct {
	Address string `json:"address" yaml:"address"`
	Token   string `json:"token" yaml:"token"`
	Mount   string `json:"mount" yaml:"mount"`
	Path    string `json:"path" yaml:"path"`
}

// ServiceConfig is the top-level powerscan configuration file.
type ServiceConfig struct {
	ServiceName string          `json:"service_name" yaml:"service_name"`
	NATS        NATSConfig      `json:"nats" yaml:"nats"`
	Vault       *VaultConfig    `json:"vault,omitempty" yaml:"vault,omitempty"`
	Credentials []Credential    `json:"credentials,omitempty" yaml:"credentials,omitempty"`
	Logging     *logger.Config  `json:"logging,omitempty" yaml:"logging,omitempty"`
	Discovery   DiscoveryConfig `json:"discovery" yaml:"discovery"`
}

const (
	defaultServiceName    = "powerscan"
	defaultMailbox        = "powerscan.requests"
	defaultAssetSubject   = "assets.create"
	defaultEventsStream   = "POWERSCAN_EVENTS"
	defaultEventsSubject  = "events.powerscan"
	defaultConfigBucket   = "powerscan-config"
	defaultRequestTimeout = 5 * time.Second
	defaultVaultMount     = "secret"
	defaultVaultPath      = "powerscan/credentials"
)

// ApplyDefaults fills unset fields with their defaults.
func (c *ServiceConfig) ApplyDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = defaultServiceName
	}

	if c.NATS.Mailbox == "" {
		c.NATS.Mailbox = defaultMailbox
	}

	if c.NATS.AssetSubject == "" {
		c.NATS.AssetSubject = defaultAssetSubject
	}

	if c.NATS.EventsStream == "" {
		c.NATS.EventsStream = defaultEventsStream
	}

	if c.NATS.EventsSubject == "" {
		c.NATS.EventsSubject = defaultEventsSubject
	}

	if c.NATS.ConfigBucket == "" {
		c.NATS.ConfigBucket = defaultConfigBucket
	}

	if c.NATS.RequestTimeout <= 0 {
		c.NATS.RequestTimeout = Duration(defaultRequestTimeout)
	}

	if c.Vault != nil {
		if c.Vault.Mount == "" {
			c.Vault.Mount = defaultVaultMount
		}

		if c.Vault.Path == "" {
			c.Vault.Path = defaultVaultPath
		}
	}

	c.Discovery.ApplyDefaults()
}

// Validate implements config.Validator.
func (c *ServiceConfig) Validate() error {
	c.ApplyDefaults()

	if c.NATS.URL == "" {
		return errNATSURLRequired
	}

	if c.NATS.Mailbox == "" {
		return errMailboxRequired
	}

	if c.Vault != nil && c.Vault.Address == "" {
		return errVaultAddrRequired
	}

	seen := make(map[string]struct{}, len(c.Credentials))

	for i := range c.Credentials {
		if err := ValidateStruct(&c.Credentials[i]); err != nil {
			return fmt.Errorf("credentials[%d]: %w", i, err)
		}

		if _, dup := seen[c.Credentials[i].ID]; dup {
			return fmt.Errorf("%w: %s", errDuplicateCredential, c.Credentials[i].ID)
		}

		seen[c.Credentials[i].ID] = struct{}{}
	}

	return c.Discovery.Validate()
}
