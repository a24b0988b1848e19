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

package asset

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/carverauto/powerscan/pkg/device"
	"github.com/carverauto/powerscan/pkg/logger"
	"github.com/carverauto/powerscan/pkg/models"
)

var ErrReverseLookup = errors.New("reverse DNS lookup failed")

// Resolver performs reverse DNS lookups. *net.Resolver satisfies it.
type Resolver interface {
	LookupAddr(ctx context.Context, addr string) ([]string, error)
}

// Mapper converts device records into asset-creation requests.
type Mapper struct {
	resolver Resolver
	logger   logger.Logger
}

func NewMapper(resolver Resolver, log logger.Logger) *Mapper {
	if resolver == nil {
		resolver = net.DefaultResolver
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Mapper{resolver: resolver, logger: log}
}

// MergeAttributes converts wire attributes into the asset attribute map.
// Entries carrying only the read_only flag are dropped.
func MergeAttributes(dst map[string]ExtAttribute, attrs []device.Attribute) map[string]ExtAttribute {
	if dst == nil {
		dst = make(map[string]ExtAttribute, len(attrs))
	}

	for _, a := range attrs {
		readOnly := a[device.AttrReadOnly] == "true"

		for key, value := range a {
			if key == device.AttrReadOnly {
				continue
			}

			dst[key] = ExtAttribute{Value: value, ReadOnly: readOnly, Update: true}
		}
	}

	return dst
}

// MapDevice builds the device request. A failed reverse lookup is returned
// alongside a fully populated request.
func (m *Mapper) MapDevice(ctx context.Context, address string, rec *device.Record, defaults models.AssetDefaults) (CreateRequest, error) {
	req := CreateRequest{
		Name:       rec.Name,
		Type:       rec.Type,
		Subtype:    rec.Subtype,
		Status:     StatusFor(defaults),
		Priority:   defaults.Priority,
		Parent:     defaults.Parent,
		Links:      linksFrom(defaults),
		Attributes: MergeAttributes(nil, rec.Attributes),
	}

	if address == "" {
		return req, nil
	}

	names, err := m.resolver.LookupAddr(ctx, address)
	if err != nil {
		m.logger.Debug().Err(err).Str("address", address).Msg("Reverse lookup failed")

		return req, fmt.Errorf("%w: %s: %w", ErrReverseLookup, address, err)
	}

	for i, name := range names {
		name = strings.TrimSuffix(name, ".")
		if name == "" {
			continue
		}

		req.Attributes[AttrDNSPrefix+strconv.Itoa(i+1)] = ExtAttribute{Value: name, Update: true}

		if _, ok := req.Attributes[AttrHostname]; !ok {
			host, _, _ := strings.Cut(name, ".")
			req.Attributes[AttrHostname] = ExtAttribute{Value: host, Update: true}
		}
	}

	return req, nil
}

// MapSensor builds the request for a sensor attached to the device created as deviceName.
func (m *Mapper) MapSensor(sensor device.Sensor, deviceName string, defaults models.AssetDefaults) CreateRequest {
	attrs := map[string]ExtAttribute{
		AttrLogicalAsset: {Value: defaults.Parent, Update: true},
		AttrParentName:   {Value: deviceName, Update: true},
	}

	typ := sensor.Type
	if typ == "" {
		typ = device.TypeSensor
	}

	return CreateRequest{
		Name:       sensor.Name,
		Type:       typ,
		Subtype:    sensor.Subtype,
		Status:     StatusFor(defaults),
		Priority:   defaults.Priority,
		Parent:     deviceName,
		Attributes: MergeAttributes(attrs, sensor.Attributes),
	}
}
