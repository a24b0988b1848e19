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

// Package iprange expands single addresses, CIDR blocks and dash ranges into
// ordered lists of dotted-quad IPv4 addresses.
package iprange

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

var (
	ErrEmptySpec         = errors.New("empty address specification")
	ErrInvalidAddress    = errors.New("invalid IPv4 address")
	ErrMaskOutOfRange    = errors.New("CIDR mask must be between 0 and 32")
	ErrRangeReversed     = errors.New("range start is greater than range end")
	ErrTooManyAddresses  = errors.New("address specification expands to too many addresses")
	ErrNoLocalInterfaces = errors.New("no non-loopback IPv4 interfaces found")
)

// Expander expands address specifications, refusing any single call that
// would produce more than MaxAddresses entries. Zero means unlimited.
type Expander struct {
	MaxAddresses int
}

// Expand turns one specification into its address list. Supported forms are
// "a.b.c.d", "a.b.c.d/n" and "a.b.c.d-e.f.g.h". On error no addresses are returned.
func (e Expander) Expand(spec string) ([]string, error) {
	lo, hi, err := bounds(spec)
	if err != nil {
		return nil, err
	}

	if err := e.checkSize(spec, uint64(hi-lo)+1); err != nil {
		return nil, err
	}

	return enumerate(lo, hi), nil
}

// ExpandAll expands every spec in order and concatenates the results.
// Duplicates between specs are kept.
func (e Expander) ExpandAll(specs []string) ([]string, error) {
	var total uint64

	ranges := make([][2]uint32, 0, len(specs))

	for _, spec := range specs {
		lo, hi, err := bounds(spec)
		if err != nil {
			return nil, err
		}

		total += uint64(hi-lo) + 1
		ranges = append(ranges, [2]uint32{lo, hi})
	}

	if err := e.checkSize(strings.Join(specs, ","), total); err != nil {
		return nil, err
	}

	out := make([]string, 0, total)
	for _, r := range ranges {
		out = append(out, enumerate(r[0], r[1])...)
	}

	return out, nil
}

// Count reports how many addresses spec covers without enumerating them.
func Count(spec string) (uint64, error) {
	lo, hi, err := bounds(spec)
	if err != nil {
		return 0, err
	}

	return uint64(hi-lo) + 1, nil
}

// Expand is Expander{}.Expand.
func Expand(spec string) ([]string, error) {
	return Expander{}.Expand(spec)
}

func (e Expander) checkSize(spec string, n uint64) error {
	if e.MaxAddresses > 0 && n > uint64(e.MaxAddresses) {
		return fmt.Errorf("%w: %s covers %d addresses (limit %d)", ErrTooManyAddresses, spec, n, e.MaxAddresses)
	}

	return nil
}

// bounds returns the inclusive host-order interval covered by spec.
func bounds(spec string) (lo, hi uint32, err error) {
	s := strings.TrimSpace(spec)
	if s == "" {
		return 0, 0, ErrEmptySpec
	}

	if addr, bits, ok := strings.Cut(s, "/"); ok {
		return cidrBounds(addr, bits)
	}

	if start, stop, ok := strings.Cut(s, "-"); ok {
		return rangeBounds(start, stop)
	}

	v, err := parseIPv4(s)
	if err != nil {
		return 0, 0, err
	}

	return v, v, nil
}

func cidrBounds(addr, bits string) (uint32, uint32, error) {
	base, err := parseIPv4(addr)
	if err != nil {
		return 0, 0, err
	}

	n, err := strconv.Atoi(strings.TrimSpace(bits))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrMaskOutOfRange, bits)
	}

	if n < 0 || n > 32 {
		return 0, 0, fmt.Errorf("%w: /%d", ErrMaskOutOfRange, n)
	}

	var mask uint32
	if n > 0 {
		mask = ^uint32(0) << (32 - n)
	}

	network := base & mask
	broadcast := network | ^mask

	return network, broadcast, nil
}

func rangeBounds(start, stop string) (uint32, uint32, error) {
	lo, err := parseIPv4(start)
	if err != nil {
		return 0, 0, err
	}

	hi, err := parseIPv4(stop)
	if err != nil {
		return 0, 0, err
	}

	if lo > hi {
		return 0, 0, fmt.Errorf("%w: %s > %s", ErrRangeReversed, strings.TrimSpace(start), strings.TrimSpace(stop))
	}

	return lo, hi, nil
}

// enumerate walks lo..hi inclusive. The loop exits on equality so hi=255.255.255.255 does not wrap.
func enumerate(lo, hi uint32) []string {
	out := make([]string, 0, uint64(hi-lo)+1)

	for v := lo; ; v++ {
		out = append(out, FromUint32(v))

		if v == hi {
			break
		}
	}

	return out
}

func parseIPv4(s string) (uint32, error) {
	s = strings.TrimSpace(s)

	ip := net.ParseIP(s)
	if ip == nil || ip.To4() == nil || strings.Contains(s, ":") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}

	return ToUint32(ip), nil
}

// ToUint32 converts an IPv4 address to its host-order integer.
func ToUint32(ip net.IP) uint32 {
	ip = ip.To4()

	return uint32(ip[0])<<24 | uint32(ip[1])<<16 | uint32(ip[2])<<8 | uint32(ip[3])
}

// FromUint32 formats a host-order integer as a dotted quad.
func FromUint32(n uint32) string {
	return net.IPv4(byte(n>>24), byte(n>>16), byte(n>>8), byte(n)).String()
}
