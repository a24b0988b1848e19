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

// Package protocol identifies which management protocol a power device speaks.
package protocol

import (
	"encoding/json"
	"strings"
)

// Kind is a management protocol a device can be read with.
type Kind int

const (
	Unknown Kind = iota
	SNMP
	XMLPDC
	Powercom
)

var kindNames = map[Kind]string{
	Unknown:  "unknown",
	SNMP:     "snmp",
	XMLPDC:   "nut_xml_pdc",
	Powercom: "nut_powercom",
}

var kindByName = map[string]Kind{
	"unknown":      Unknown,
	"snmp":         SNMP,
	"nut_xml_pdc":  XMLPDC,
	"xml_pdc":      XMLPDC,
	"nut_powercom": Powercom,
	"powercom":     Powercom,
}

var defaultPorts = map[Kind]int{
	SNMP:     161,
	XMLPDC:   80,
	Powercom: 443,
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return kindNames[Unknown]
}

// DefaultPort returns the well-known port of k, or 0 for Unknown.
func (k Kind) DefaultPort() int {
	return defaultPorts[k]
}

// ParseKind maps a protocol name onto its Kind. Unrecognized names yield Unknown.
func ParseKind(s string) Kind {
	if k, ok := kindByName[strings.ToLower(strings.TrimSpace(s))]; ok {
		return k
	}

	return Unknown
}

func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *Kind) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}

	*k = ParseKind(s)

	return nil
}

// Availability is the outcome of probing one protocol on one address.
type Availability int

const (
	AvailabilityUnknown Availability = iota
	AvailabilityNo
	// AvailabilityMaybe means the transport answered but identity was not confirmed.
	AvailabilityMaybe
	// AvailabilityYes means an identifying attribute was read.
	AvailabilityYes
)

var availabilityNames = map[Availability]string{
	AvailabilityUnknown: "unknown",
	AvailabilityNo:      "no",
	AvailabilityMaybe:   "maybe",
	AvailabilityYes:     "yes",
}

func (a Availability) String() string {
	if name, ok := availabilityNames[a]; ok {
		return name
	}

	return availabilityNames[AvailabilityUnknown]
}

// ParseAvailability is the inverse of Availability.String.
func ParseAvailability(s string) Availability {
	for a, name := range availabilityNames {
		if name == strings.ToLower(strings.TrimSpace(s)) {
			return a
		}
	}

	return AvailabilityUnknown
}

// Reachable reports whether the transport answered.
func (a Availability) Reachable() bool {
	return a == AvailabilityMaybe || a == AvailabilityYes
}

func (a Availability) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Availability) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}

	*a = ParseAvailability(s)

	return nil
}
