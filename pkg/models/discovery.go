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
	"errors"
	"fmt"
	"time"
)

// DiscoveryType selects which targets a configured scan covers.
type DiscoveryType string

const (
	DiscoveryTypeLocal DiscoveryType = "local"
	DiscoveryTypeIP    DiscoveryType = "ip"
	DiscoveryTypeMulti DiscoveryType = "multi"
	DiscoveryTypeFull  DiscoveryType = "full"
)

var (
	errNoTargetsConfigured = errors.New("discovery type requires at least one scan or ip entry")
	errNoProtocolsEnabled  = errors.New("at least one protocol must be enabled")
)

// ProtocolConfig is one entry of the ordered protocol candidate list.
type ProtocolConfig struct {
	Name     string `json:"name" yaml:"name" validate:"required,oneof=snmp nut_xml_pdc nut_powercom"`
	Port     int    `json:"port,omitempty" yaml:"port,omitempty" validate:"gte=0,lte=65535"`
	Disabled bool   `json:"disabled,omitempty" yaml:"disabled,omitempty"`
}

// LinkSource is a power-chain link from a source asset to the discovered device.
type LinkSource struct {
	Source   string `json:"source" yaml:"source" validate:"required"`
	LinkType int    `json:"link_type" yaml:"link_type" validate:"gte=0"`
}

// AssetDefaults are applied to every asset created by a scan.
type AssetDefaults struct {
	Status   string       `json:"status,omitempty" yaml:"status,omitempty" validate:"omitempty,oneof=active nonactive"`
	Priority int          `json:"priority" yaml:"priority" validate:"gte=0,lte=5"`
	Parent   string       `json:"parent,omitempty" yaml:"parent,omitempty"`
	Links    []LinkSource `json:"links,omitempty" yaml:"links,omitempty" validate:"dive"`
}

// DiscoveryConfig drives address expansion, probing, reading and asset defaults.
type DiscoveryConfig struct {
	Type              DiscoveryType    `json:"type" yaml:"type" validate:"omitempty,oneof=local ip multi full"`
	Scans             []string         `json:"scans,omitempty" yaml:"scans,omitempty"`
	IPs               []string         `json:"ips,omitempty" yaml:"ips,omitempty" validate:"dive,ipv4"`
	Protocols         []ProtocolConfig `json:"protocols" yaml:"protocols" validate:"dive"`
	CredentialIDs     []string         `json:"credential_ids,omitempty" yaml:"credential_ids,omitempty"`
	Communities       []string         `json:"communities,omitempty" yaml:"communities,omitempty"`
	ProbeCommunity    string           `json:"probe_community,omitempty" yaml:"probe_community,omitempty"`
	Defaults          AssetDefaults    `json:"defaults" yaml:"defaults"`
	Workers           int              `json:"workers" yaml:"workers" validate:"gte=0"`
	QueueSize         int              `json:"queue_size" yaml:"queue_size" validate:"gte=0"`
	ProbeTimeout      Duration         `json:"probe_timeout" yaml:"probe_timeout"`
	ReadTimeout       Duration         `json:"read_timeout" yaml:"read_timeout"`
	DriverTimeout     Duration         `json:"driver_timeout" yaml:"driver_timeout"`
	ProbeRate         float64          `json:"probe_rate" yaml:"probe_rate" validate:"gte=0"`
	SNMPRetries       int              `json:"snmp_retries" yaml:"snmp_retries" validate:"gte=0"`
	MIBDatabasePath   string           `json:"mib_database_path,omitempty" yaml:"mib_database_path,omitempty"`
	FullMIBWalk       bool             `json:"full_mib_walk" yaml:"full_mib_walk"`
	NUTDriverPath     string           `json:"nut_driver_path,omitempty" yaml:"nut_driver_path,omitempty"`
	XMLDescriptorPath string           `json:"xml_descriptor_path,omitempty" yaml:"xml_descriptor_path,omitempty"`
	MaxAddresses      int              `json:"max_addresses" yaml:"max_addresses" validate:"gte=0"`
}

const (
	defaultWorkers           = 4
	defaultQueueSize         = 64
	defaultProbeTimeout      = 2 * time.Second
	defaultReadTimeout       = 10 * time.Second
	defaultDriverTimeout     = 60 * time.Second
	defaultProbeCommunity    = "public"
	defaultNUTDriverPath     = "/usr/lib/nut/nutdrv_discovery"
	defaultXMLDescriptorPath = "/product.xml"
	defaultMaxAddresses      = 1 << 20
)

// ApplyDefaults fills unset tunables with their defaults.
func (c *DiscoveryConfig) ApplyDefaults() {
	if c.Type == "" {
		c.Type = DiscoveryTypeIP
	}

	if len(c.Protocols) == 0 {
		c.Protocols = []ProtocolConfig{{Name: "snmp"}, {Name: "nut_xml_pdc"}}
	}

	if c.Workers <= 0 {
		c.Workers = defaultWorkers
	}

	if c.QueueSize <= 0 {
		c.QueueSize = defaultQueueSize
	}

	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = Duration(defaultProbeTimeout)
	}

	if c.ReadTimeout <= 0 {
		c.ReadTimeout = Duration(defaultReadTimeout)
	}

	if c.DriverTimeout <= 0 {
		c.DriverTimeout = Duration(defaultDriverTimeout)
	}

	if c.ProbeCommunity == "" {
		c.ProbeCommunity = defaultProbeCommunity
	}

	if c.NUTDriverPath == "" {
		c.NUTDriverPath = defaultNUTDriverPath
	}

	if c.XMLDescriptorPath == "" {
		c.XMLDescriptorPath = defaultXMLDescriptorPath
	}

	if c.MaxAddresses <= 0 {
		c.MaxAddresses = defaultMaxAddresses
	}

	if c.Defaults.Status == "" {
		c.Defaults.Status = "nonactive"
		if c.Defaults.Parent != "" {
			c.Defaults.Status = "active"
		}
	}
}

// Validate checks field constraints and that the selected discovery type has targets.
func (c *DiscoveryConfig) Validate() error {
	if err := ValidateStruct(c); err != nil {
		return err
	}

	if len(c.EnabledProtocols()) == 0 {
		return errNoProtocolsEnabled
	}

	if c.Type != DiscoveryTypeLocal && c.Type != "" && len(c.Targets()) == 0 {
		return fmt.Errorf("%w: %s", errNoTargetsConfigured, c.Type)
	}

	return nil
}

// EnabledProtocols returns the protocol candidates in configured order, skipping disabled ones.
func (c *DiscoveryConfig) EnabledProtocols() []ProtocolConfig {
	out := make([]ProtocolConfig, 0, len(c.Protocols))

	for _, p := range c.Protocols {
		if !p.Disabled {
			out = append(out, p)
		}
	}

	return out
}

// Targets returns the address specs selected by Type. Local discovery has none;
// interface subnets are resolved at scan time.
func (c *DiscoveryConfig) Targets() []string {
	switch c.Type {
	case DiscoveryTypeLocal:
		return nil
	case DiscoveryTypeIP:
		return append([]string(nil), c.IPs...)
	case DiscoveryTypeMulti:
		return append([]string(nil), c.Scans...)
	case DiscoveryTypeFull:
		out := make([]string, 0, len(c.Scans)+len(c.IPs))
		out = append(out, c.Scans...)

		return append(out, c.IPs...)
	default:
		return nil
	}
}

// Clone returns a deep copy.
func (c *DiscoveryConfig) Clone() *DiscoveryConfig {
	out := *c
	out.Scans = append([]string(nil), c.Scans...)
	out.IPs = append([]string(nil), c.IPs...)
	out.Protocols = append([]ProtocolConfig(nil), c.Protocols...)
	out.CredentialIDs = append([]string(nil), c.CredentialIDs...)
	out.Communities = append([]string(nil), c.Communities...)
	out.Defaults.Links = append([]LinkSource(nil), c.Defaults.Links...)

	return &out
}
