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
	"net"
	"net/http"
	"strconv"
)

// TCPChecker treats a completed TCP handshake as "maybe".
type TCPChecker struct {
	Dialer net.Dialer
}

func (t *TCPChecker) Check(ctx context.Context, address string, port int) (Availability, error) {
	conn, err := t.Dialer.DialContext(ctx, "tcp", net.JoinHostPort(address, strconv.Itoa(port)))
	if err != nil {
		if ctx.Err() != nil {
			return AvailabilityNo, ctx.Err()
		}

		return AvailabilityNo, err
	}

	_ = conn.Close()

	return AvailabilityMaybe, nil
}

// DescriptorChecker upgrades a reachable XML-PDC port to "yes" when the product
// descriptor document can be fetched.
type DescriptorChecker struct {
	TCP    *TCPChecker
	Client *http.Client
	Path   string
}

func (d *DescriptorChecker) Check(ctx context.Context, address string, port int) (Availability, error) {
	avail, err := d.TCP.Check(ctx, address, port)
	if err != nil || d.Client == nil || d.Path == "" {
		return avail, err
	}

	url := fmt.Sprintf("http://%s%s", net.JoinHostPort(address, strconv.Itoa(port)), d.Path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return AvailabilityMaybe, nil
	}

	resp, err := d.Client.Do(req)
	if err != nil {
		return AvailabilityMaybe, nil
	}

	_ = resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return AvailabilityYes, nil
	}

	return AvailabilityMaybe, nil
}
