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

// Package asset turns device records into asset-creation requests and hands
// them to the inventory service.
package asset

import "github.com/carverauto/powerscan/pkg/models"

// Asset statuses.
const (
	StatusActive    = "active"
	StatusNonActive = "nonactive"
)

// Synthesized attribute keys.
const (
	AttrHostname     = "hostname"
	AttrDNSPrefix    = "dns."
	AttrLogicalAsset = "logical_asset"
	AttrParentName   = "parent_name.1"
)

// ExtAttribute is one extended attribute of an asset.
type ExtAttribute struct {
	Value    string `json:"value"`
	ReadOnly bool   `json:"readOnly"`
	Update   bool   `json:"update"`
}

// Link connects a power source asset to the created asset.
type Link struct {
	Source   string `json:"source"`
	LinkType int    `json:"linkType"`
}

// CreateRequest asks the inventory service to create one asset.
type CreateRequest struct {
	Name       string                  `json:"name,omitempty"`
	Type       string                  `json:"type"`
	Subtype    string                  `json:"subtype,omitempty"`
	Status     string                  `json:"status"`
	Priority   int                     `json:"priority"`
	Parent     string                  `json:"parent,omitempty"`
	Links      []Link                  `json:"links,omitempty"`
	Attributes map[string]ExtAttribute `json:"attributes"`
}

// StatusFor returns the explicit default status, or the parent-derived one:
// assets created under a parent are active.
func StatusFor(defaults models.AssetDefaults) string {
	if defaults.Status != "" {
		return defaults.Status
	}

	if defaults.Parent != "" {
		return StatusActive
	}

	return StatusNonActive
}

func linksFrom(defaults models.AssetDefaults) []Link {
	if len(defaults.Links) == 0 {
		return nil
	}

	out := make([]Link, 0, len(defaults.Links))
	for _, l := range defaults.Links {
		out = append(out, Link{Source: l.Source, LinkType: l.LinkType})
	}

	return out
}
