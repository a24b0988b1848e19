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

package iprange

import (
	"fmt"
	"net"
)

// InterfaceLister reports the IPv4 networks configured on local interfaces.
type InterfaceLister interface {
	IPv4Networks() ([]*net.IPNet, error)
}

// SystemInterfaces lists networks of every up, non-loopback interface of this host.
type SystemInterfaces struct{}

func (SystemInterfaces) IPv4Networks() ([]*net.IPNet, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to list interfaces: %w", err)
	}

	var nets []*net.IPNet

	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			return nil, fmt.Errorf("failed to read addresses of %s: %w", iface.Name, err)
		}

		for _, a := range addrs {
			ipNet, ok := a.(*net.IPNet)
			if !ok || ipNet.IP.To4() == nil || ipNet.IP.IsLoopback() {
				continue
			}

			nets = append(nets, ipNet)
		}
	}

	return nets, nil
}

// ExpandLocal expands the subnet of every listed interface and concatenates
// the results. Overlapping interface subnets produce duplicate entries.
func (e Expander) ExpandLocal(lister InterfaceLister) ([]string, error) {
	if lister == nil {
		lister = SystemInterfaces{}
	}

	nets, err := lister.IPv4Networks()
	if err != nil {
		return nil, err
	}

	specs := make([]string, 0, len(nets))

	for _, n := range nets {
		ones, bits := n.Mask.Size()
		if bits == 8*net.IPv6len {
			ones -= 96
		}

		specs = append(specs, fmt.Sprintf("%s/%d", n.IP.To4(), ones))
	}

	if len(specs) == 0 {
		return nil, ErrNoLocalInterfaces
	}

	return e.ExpandAll(specs)
}
