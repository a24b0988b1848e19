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

package device

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed known_devices.yaml
var defaultKnownDevices []byte

// KnownDevice describes one recognizable device model.
type KnownDevice struct {
	Name        string            `yaml:"name"`
	Vendor      string            `yaml:"vendor"`
	MIB         string            `yaml:"mib"`
	Enterprise  string            `yaml:"enterprise"`
	SysObjectID string            `yaml:"sys_object_id"`
	Type        string            `yaml:"type"`
	Subtype     string            `yaml:"subtype"`
	ProbeOID    string            `yaml:"probe_oid"`
	Attributes  map[string]string `yaml:"attributes"`
}

// KnownDevices is the device fingerprint table.
type KnownDevices struct {
	Devices []KnownDevice `yaml:"devices"`
}

// DefaultKnownDevices returns the built-in table.
func DefaultKnownDevices() (*KnownDevices, error) {
	return ParseKnownDevices(defaultKnownDevices)
}

// LoadKnownDevices reads a table from path, or the built-in one when path is empty.
func LoadKnownDevices(path string) (*KnownDevices, error) {
	if path == "" {
		return DefaultKnownDevices()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read known device table: %w", err)
	}

	return ParseKnownDevices(data)
}

func ParseKnownDevices(data []byte) (*KnownDevices, error) {
	var kd KnownDevices

	if err := yaml.Unmarshal(data, &kd); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKnownDeviceTable, err)
	}

	for i, d := range kd.Devices {
		if d.Name == "" || d.Type == "" {
			return nil, fmt.Errorf("%w: entry %d needs name and type", ErrInvalidKnownDeviceTable, i)
		}

		if d.SysObjectID == "" && d.ProbeOID == "" {
			return nil, fmt.Errorf("%w: entry %q has no sys_object_id or probe_oid", ErrInvalidKnownDeviceTable, d.Name)
		}
	}

	return &kd, nil
}

// MatchSysObjectID returns the entry with the longest sys_object_id prefix of oid.
func (k *KnownDevices) MatchSysObjectID(oid string) (*KnownDevice, bool) {
	oid = normalizeOID(oid)

	var best *KnownDevice

	for i := range k.Devices {
		d := &k.Devices[i]
		if d.SysObjectID == "" || !oidHasPrefix(oid, d.SysObjectID) {
			continue
		}

		if best == nil || len(d.SysObjectID) > len(best.SysObjectID) {
			best = d
		}
	}

	return best, best != nil
}

// MatchNamespaces returns the first entry whose enterprise is in namespaces.
func (k *KnownDevices) MatchNamespaces(namespaces []string) (*KnownDevice, bool) {
	set := make(map[string]struct{}, len(namespaces))
	for _, ns := range namespaces {
		set[normalizeOID(ns)] = struct{}{}
	}

	for i := range k.Devices {
		if _, ok := set[k.Devices[i].Enterprise]; ok && k.Devices[i].Enterprise != "" {
			return &k.Devices[i], true
		}
	}

	return nil, false
}

// MatchProbeOID returns the first entry using oid as its probe.
func (k *KnownDevices) MatchProbeOID(oid string) (*KnownDevice, bool) {
	oid = normalizeOID(oid)

	for i := range k.Devices {
		if k.Devices[i].ProbeOID == oid {
			return &k.Devices[i], true
		}
	}

	return nil, false
}

// ProbeOIDs lists the distinct probe OIDs in table order.
func (k *KnownDevices) ProbeOIDs() []string {
	seen := make(map[string]struct{}, len(k.Devices))
	out := make([]string, 0, len(k.Devices))

	for _, d := range k.Devices {
		if d.ProbeOID == "" {
			continue
		}

		if _, ok := seen[d.ProbeOID]; ok {
			continue
		}

		seen[d.ProbeOID] = struct{}{}
		out = append(out, d.ProbeOID)
	}

	return out
}

// AttributeKeys returns the entry's attribute names in sorted order.
func (d *KnownDevice) AttributeKeys() []string {
	keys := make([]string, 0, len(d.Attributes))
	for k := range d.Attributes {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

const enterprisesOID = ".1.3.6.1.4.1"

// enterpriseNamespace returns the .1.3.6.1.4.1.<n> prefix of oid, if any.
func enterpriseNamespace(oid string) (string, bool) {
	oid = normalizeOID(oid)
	if !oidHasPrefix(oid, enterprisesOID) || len(oid) == len(enterprisesOID) {
		return "", false
	}

	rest := oid[len(enterprisesOID)+1:]
	if i := strings.IndexByte(rest, '.'); i >= 0 {
		rest = rest[:i]
	}

	if rest == "" {
		return "", false
	}

	return enterprisesOID + "." + rest, true
}

func normalizeOID(oid string) string {
	if oid != "" && oid[0] != '.' {
		return "." + oid
	}

	return oid
}

// oidHasPrefix reports whether oid equals prefix or lies below it.
func oidHasPrefix(oid, prefix string) bool {
	if !strings.HasPrefix(oid, prefix) {
		return false
	}

	return len(oid) == len(prefix) || oid[len(prefix)] == '.'
}
