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

package protocol

import (
	"github.com/carverauto/powerscan/pkg/models"
)

// Candidate is one protocol to try, with an optional port override.
type Candidate struct {
	Kind Kind `json:"protocol"`
	Port int  `json:"port,omitempty"`
}

// EffectivePort is the override when set, else the protocol default.
func (c Candidate) EffectivePort() int {
	if c.Port > 0 {
		return c.Port
	}

	return c.Kind.DefaultPort()
}

// ProbeResult is the outcome of checking one candidate against one address.
type ProbeResult struct {
	Address      string       `json:"address"`
	Kind         Kind         `json:"protocol"`
	Port         int          `json:"port"`
	Reachable    bool         `json:"reachable"`
	Availability Availability `json:"availability"`
	Error        string       `json:"error,omitempty"`
}

// FindProtocol returns the first candidate of the given kind. Unknown never matches.
func FindProtocol(kind Kind, candidates []Candidate) (Candidate, bool) {
	if kind == Unknown {
		return Candidate{}, false
	}

	for _, c := range candidates {
		if c.Kind == kind {
			return c, true
		}
	}

	return Candidate{}, false
}

// CandidatesFromConfig converts the enabled protocol list into candidates, keeping order.
// Entries naming an unrecognized protocol are skipped.
func CandidatesFromConfig(protocols []models.ProtocolConfig) []Candidate {
	out := make([]Candidate, 0, len(protocols))

	for _, p := range protocols {
		if p.Disabled {
			continue
		}

		kind := ParseKind(p.Name)
		if kind == Unknown {
			continue
		}

		out = append(out, Candidate{Kind: kind, Port: p.Port})
	}

	return out
}
