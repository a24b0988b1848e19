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

// Package device reads identifying attributes from power devices over SNMP,
// NUT drivers and the XML-PDC HTTP descriptor.
package device

import (
	"sort"
	"strconv"
)

// Family is the client family that produced a Record.
type Family int

const (
	FamilyUnknown Family = iota
	FamilySNMP
	FamilyNUT
)

var familyNames = map[Family]string{
	FamilyUnknown: "unknown",
	FamilySNMP:    "snmp",
	FamilyNUT:     "nut",
}

func (f Family) String() string {
	if s, ok := familyNames[f]; ok {
		return s
	}

	return familyNames[FamilyUnknown]
}

func (f Family) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText maps unrecognized names to FamilyUnknown.
func (f *Family) UnmarshalText(b []byte) error {
	*f = FamilyUnknown

	for fam, name := range familyNames {
		if name == string(b) {
			*f = fam
		}
	}

	return nil
}

// Device types understood by the status tracker.
const (
	TypeUPS    = "ups"
	TypeEPDU   = "epdu"
	TypeSTS    = "sts"
	TypeSensor = "sensor"
)

// Attribute keys with special meaning.
const (
	AttrReadOnly = "read_only"
)

// Attribute is one extended attribute in wire form: a single name/value pair
// plus the "read_only" flag ("true" or "false").
type Attribute map[string]string

// NewAttribute builds an attribute entry.
func NewAttribute(key, value string, readOnly bool) Attribute {
	return Attribute{key: value, AttrReadOnly: strconv.FormatBool(readOnly)}
}

// Sensor is a sub-device attached to a Record, such as an ambient probe.
type Sensor struct {
	Name       string      `json:"name"`
	Type       string      `json:"type"`
	Subtype    string      `json:"subtype,omitempty"`
	Attributes []Attribute `json:"attributes,omitempty"`
}

// Record is everything read from one identified device.
type Record struct {
	Name       string      `json:"name"`
	Family     Family      `json:"family"`
	Type       string      `json:"type"`
	Subtype    string      `json:"subtype,omitempty"`
	MIBs       []string    `json:"mibs,omitempty"`
	Attributes []Attribute `json:"attributes,omitempty"`
	Sensors    []Sensor    `json:"sensors,omitempty"`
}

// AddMIB inserts id into the sorted MIB set.
func (r *Record) AddMIB(id string) {
	i := sort.SearchStrings(r.MIBs, id)
	if i < len(r.MIBs) && r.MIBs[i] == id {
		return
	}

	r.MIBs = append(r.MIBs, "")
	copy(r.MIBs[i+1:], r.MIBs[i:])
	r.MIBs[i] = id
}

// AddAttribute appends a non-empty attribute value.
func (r *Record) AddAttribute(key, value string, readOnly bool) {
	if value == "" {
		return
	}

	r.Attributes = append(r.Attributes, NewAttribute(key, value, readOnly))
}

// NormalizeType maps vendor type names onto the tracked device types.
func NormalizeType(t string) string {
	switch t {
	case "ups", "UPS":
		return TypeUPS
	case "pdu", "epdu", "PDU", "ePDU":
		return TypeEPDU
	case "ats", "sts", "ATS", "STS":
		return TypeSTS
	case "sensor", "ambient":
		return TypeSensor
	default:
		return t
	}
}
