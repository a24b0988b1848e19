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

// Package snmptest runs a minimal in-process SNMP v2c agent for tests.
package snmptest

import (
	"errors"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gosnmp/gosnmp"
	"github.com/stretchr/testify/require"
)

// Responder answers GET, GETNEXT and GETBULK requests from a fixed OID table.
type Responder struct {
	conn      net.PacketConn
	community string
	oids      []string
	values    map[string]gosnmp.SnmpPDU
	requests  atomic.Int64
	wg        sync.WaitGroup
}

// Start listens on 127.0.0.1 and serves pdus until the test ends. Requests with
// a community other than community are dropped, as real agents do.
func Start(t *testing.T, community string, pdus []gosnmp.SnmpPDU) *Responder {
	t.Helper()

	conn, err := net.ListenPacket("udp4", "127.0.0.1:0")
	require.NoError(t, err)

	r := &Responder{
		conn:      conn,
		community: community,
		values:    make(map[string]gosnmp.SnmpPDU, len(pdus)),
	}

	for _, p := range pdus {
		name := normalize(p.Name)
		p.Name = name
		r.values[name] = p
		r.oids = append(r.oids, name)
	}

	sort.Slice(r.oids, func(i, j int) bool { return compareOID(r.oids[i], r.oids[j]) < 0 })

	r.wg.Add(1)

	go r.serve()

	t.Cleanup(func() {
		_ = conn.Close()
		r.wg.Wait()
	})

	return r
}

// Port is the UDP port the responder listens on.
func (r *Responder) Port() int {
	return r.conn.LocalAddr().(*net.UDPAddr).Port
}

// Requests counts the requests answered so far.
func (r *Responder) Requests() int64 {
	return r.requests.Load()
}

func (r *Responder) serve() {
	defer r.wg.Done()

	buf := make([]byte, 65535)
	decoder := &gosnmp.GoSNMP{}

	for {
		n, addr, err := r.conn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}

			continue
		}

		req, err := decoder.SnmpDecodePacket(buf[:n])
		if err != nil || req.Community != r.community {
			continue
		}

		resp := &gosnmp.SnmpPacket{
			Version:   req.Version,
			Community: req.Community,
			PDUType:   gosnmp.GetResponse,
			RequestID: req.RequestID,
			Variables: r.answer(req),
		}

		out, err := resp.MarshalMsg()
		if err != nil {
			continue
		}

		r.requests.Add(1)

		_, _ = r.conn.WriteTo(out, addr)
	}
}

func (r *Responder) answer(req *gosnmp.SnmpPacket) []gosnmp.SnmpPDU {
	var out []gosnmp.SnmpPDU

	switch req.PDUType {
	case gosnmp.GetNextRequest:
		for _, v := range req.Variables {
			out = append(out, r.next(normalize(v.Name)))
		}
	case gosnmp.GetBulkRequest:
		reps := int(req.MaxRepetitions)
		if reps <= 0 {
			reps = 10
		}

		for _, v := range req.Variables {
			cursor := normalize(v.Name)

			for i := 0; i < reps; i++ {
				pdu := r.next(cursor)
				out = append(out, pdu)

				if pdu.Type == gosnmp.EndOfMibView {
					break
				}

				cursor = pdu.Name
			}
		}
	default:
		for _, v := range req.Variables {
			name := normalize(v.Name)
			if pdu, ok := r.values[name]; ok {
				out = append(out, pdu)
				continue
			}

			out = append(out, gosnmp.SnmpPDU{Name: name, Type: gosnmp.NoSuchObject})
		}
	}

	return out
}

func (r *Responder) next(oid string) gosnmp.SnmpPDU {
	i := sort.Search(len(r.oids), func(i int) bool { return compareOID(r.oids[i], oid) > 0 })
	if i == len(r.oids) {
		return gosnmp.SnmpPDU{Name: oid, Type: gosnmp.EndOfMibView}
	}

	return r.values[r.oids[i]]
}

func normalize(oid string) string {
	if strings.HasPrefix(oid, ".") {
		return oid
	}

	return "." + oid
}

func compareOID(a, b string) int {
	pa := strings.Split(strings.TrimPrefix(a, "."), ".")
	pb := strings.Split(strings.TrimPrefix(b, "."), ".")

	for i := 0; i < len(pa) && i < len(pb); i++ {
		x, _ := strconv.Atoi(pa[i])
		y, _ := strconv.Atoi(pb[i])

		if x != y {
			if x < y {
				return -1
			}

			return 1
		}
	}

	return len(pa) - len(pb)
}
