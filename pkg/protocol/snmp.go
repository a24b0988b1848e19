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
	"context"
	"fmt"
	"time"

	"github.com/gosnmp/gosnmp"
)

// OIDSysObjectID identifies the agent vendor and product.
const OIDSysObjectID = ".1.3.6.1.2.1.1.2.0"

// SNMPChecker sends a single v2c GET for sysObjectID. Any response means the
// agent is reachable; a non-empty sysObjectID confirms identity.
type SNMPChecker struct {
	Community string
	Timeout   time.Duration
}

func (s *SNMPChecker) Check(ctx context.Context, address string, port int) (Availability, error) {
	timeout := s.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}

	client := &gosnmp.GoSNMP{
		Target:    address,
		Port:      uint16(port),
		Community: s.Community,
		Version:   gosnmp.Version2c,
		Timeout:   timeout,
		Retries:   0,
		MaxOids:   gosnmp.MaxOids,
		Context:   ctx,
	}

	if err := client.Connect(); err != nil {
		return AvailabilityNo, fmt.Errorf("snmp connect: %w", err)
	}

	defer func() { _ = client.Conn.Close() }()

	result, err := client.Get([]string{OIDSysObjectID})
	if err != nil {
		return AvailabilityNo, err
	}

	if result.Error != gosnmp.NoError {
		return AvailabilityMaybe, nil
	}

	for _, v := range result.Variables {
		if v.Type != gosnmp.ObjectIdentifier {
			continue
		}

		if oid, ok := v.Value.(string); ok && oid != "" {
			return AvailabilityYes, nil
		}
	}

	return AvailabilityMaybe, nil
}
