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

package device

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/carverauto/powerscan/pkg/credentials"
	"github.com/carverauto/powerscan/pkg/logger"
	"github.com/carverauto/powerscan/pkg/models"
	"github.com/carverauto/powerscan/pkg/protocol"
	"github.com/gosnmp/gosnmp"
)

const (
	oidSysDescr    = ".1.3.6.1.2.1.1.1.0"
	oidSysObjectID = ".1.3.6.1.2.1.1.2.0"
	oidSysName     = ".1.3.6.1.2.1.1.5.0"

	defaultSNMPTimeout    = 5 * time.Second
	defaultMaxRepetitions = 10
)

// SNMPReader classifies SNMP agents against a KnownDevices table.
type SNMPReader struct {
	Credentials credentials.Store
	Table       *KnownDevices
	Timeout     time.Duration
	Retries     int
	// FullWalk walks the whole enterprises subtree when the fingerprint is
	// inconclusive; otherwise only the table's probe OIDs are requested.
	FullWalk bool
	Logger   logger.Logger
}

var _ Reader = (*SNMPReader)(nil)

type fingerprint struct {
	objectID string
	descr    string
	name     string
}

func (s *SNMPReader) Read(ctx context.Context, address string, _ protocol.Kind, port int, ref CredentialRef) (*Record, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	client, err := s.createClient(ctx, address, port, ref)
	if err != nil {
		return nil, err
	}

	if err := client.Connect(); err != nil {
		return nil, fmt.Errorf("snmp connect %s: %w", address, err)
	}

	defer func() { _ = client.Conn.Close() }()

	fp, err := readFingerprint(client)
	if err != nil {
		return nil, fmt.Errorf("snmp fingerprint %s: %w", address, err)
	}

	rec := &Record{Family: FamilySNMP}

	entry, ok := s.Table.MatchSysObjectID(fp.objectID)
	if ok {
		rec.AddMIB(entry.MIB)
	} else {
		entry, ok = s.explore(client, fp, rec)
	}

	if !ok {
		return nil, fmt.Errorf("%w: %s (sysObjectID %q)", ErrUnrecognizedDevice, address, fp.objectID)
	}

	s.logger().Debug().
		Str("address", address).
		Str("sys_object_id", fp.objectID).
		Str("match", entry.Name).
		Strs("mibs", rec.MIBs).
		Msg("Classified SNMP device")

	rec.Name = entry.Name
	rec.Type = NormalizeType(entry.Type)
	rec.Subtype = entry.Subtype

	rec.AddAttribute("vendor", entry.Vendor, true)
	rec.AddAttribute("sys_object_id", fp.objectID, true)
	rec.AddAttribute("sys_descr", fp.descr, true)
	rec.AddAttribute("sys_name", fp.name, false)
	rec.AddAttribute("ip_address", address, false)

	values := readValues(client, entry)
	for _, key := range entry.AttributeKeys() {
		rec.AddAttribute(key, values[key], true)
	}

	if model := values["model"]; model != "" {
		rec.Name = model
	}

	return rec, nil
}

func (s *SNMPReader) createClient(ctx context.Context, address string, port int, ref CredentialRef) (*gosnmp.GoSNMP, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultSNMPTimeout
	}

	if port <= 0 {
		port = protocol.SNMP.DefaultPort()
	}

	client := &gosnmp.GoSNMP{
		Target:             address,
		Port:               uint16(port),
		Timeout:            timeout,
		Retries:            s.Retries,
		MaxOids:            gosnmp.MaxOids,
		MaxRepetitions:     defaultMaxRepetitions,
		ExponentialTimeout: true,
		Context:            ctx,
	}

	if ref.Community != "" {
		client.Version = gosnmp.Version2c
		client.Community = ref.Community

		return client, nil
	}

	if s.Credentials == nil {
		return nil, fmt.Errorf("%w: %s", credentials.ErrCredentialNotFound, ref.CredentialID)
	}

	cred, err := s.Credentials.Get(ctx, ref.CredentialID)
	if err != nil {
		return nil, err
	}

	if err := configureClientVersion(client, cred); err != nil {
		return nil, err
	}

	return client, nil
}

func configureClientVersion(client *gosnmp.GoSNMP, cred *models.Credential) error {
	switch cred.Type {
	case models.CredentialSNMPv1:
		client.Version = gosnmp.Version1
		client.Community = cred.Community
	case models.CredentialSNMPv2c:
		client.Version = gosnmp.Version2c
		client.Community = cred.Community
	case models.CredentialSNMPv3:
		client.Version = gosnmp.Version3

		usm := &gosnmp.UsmSecurityParameters{UserName: cred.Username}
		client.MsgFlags = gosnmp.NoAuthNoPriv

		if configureV3Authentication(usm, cred) {
			client.MsgFlags = gosnmp.AuthNoPriv

			if configureV3Privacy(usm, cred) {
				client.MsgFlags = gosnmp.AuthPriv
			}
		}

		client.SecurityModel = gosnmp.UserSecurityModel
		client.SecurityParameters = usm
	case models.CredentialUserPass:
		return fmt.Errorf("%w: %s is %s", ErrCredentialTypeMismatch, cred.ID, cred.Type)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedSNMPVersion, cred.Type)
	}

	return nil
}

func configureV3Authentication(usm *gosnmp.UsmSecurityParameters, cred *models.Credential) bool {
	switch strings.ToUpper(cred.AuthProtocol) {
	case "MD5":
		usm.AuthenticationProtocol = gosnmp.MD5
	case "SHA":
		usm.AuthenticationProtocol = gosnmp.SHA
	case "SHA224":
		usm.AuthenticationProtocol = gosnmp.SHA224
	case "SHA256":
		usm.AuthenticationProtocol = gosnmp.SHA256
	case "SHA384":
		usm.AuthenticationProtocol = gosnmp.SHA384
	case "SHA512":
		usm.AuthenticationProtocol = gosnmp.SHA512
	default:
		return false
	}

	usm.AuthenticationPassphrase = cred.AuthPassword

	return true
}

func configureV3Privacy(usm *gosnmp.UsmSecurityParameters, cred *models.Credential) bool {
	switch strings.ToUpper(cred.PrivProtocol) {
	case "DES":
		usm.PrivacyProtocol = gosnmp.DES
	case "AES":
		usm.PrivacyProtocol = gosnmp.AES
	case "AES192":
		usm.PrivacyProtocol = gosnmp.AES192
	case "AES256":
		usm.PrivacyProtocol = gosnmp.AES256
	default:
		return false
	}

	usm.PrivacyPassphrase = cred.PrivPassword

	return true
}

func readFingerprint(client *gosnmp.GoSNMP) (fingerprint, error) {
	result, err := client.Get([]string{oidSysObjectID, oidSysDescr, oidSysName})
	if err != nil {
		return fingerprint{}, err
	}

	var fp fingerprint

	for _, v := range result.Variables {
		switch normalizeOID(v.Name) {
		case oidSysObjectID:
			fp.objectID = pduString(v)
		case oidSysDescr:
			fp.descr = pduString(v)
		case oidSysName:
			fp.name = pduString(v)
		}
	}

	return fp, nil
}

// explore collects enterprise namespaces the agent answers under and matches
// them against the table.
func (s *SNMPReader) explore(client *gosnmp.GoSNMP, fp fingerprint, rec *Record) (*KnownDevice, bool) {
	if ns, ok := enterpriseNamespace(fp.objectID); ok {
		rec.AddMIB(ns)
	}

	if s.FullWalk {
		return s.walkEnterprises(client, rec)
	}

	return s.probeTable(client, rec)
}

func (s *SNMPReader) walkEnterprises(client *gosnmp.GoSNMP, rec *Record) (*KnownDevice, bool) {
	var namespaces []string

	seen := make(map[string]struct{})

	walk := client.BulkWalk
	if client.Version == gosnmp.Version1 {
		walk = client.Walk
	}

	err := walk(enterprisesOID, func(pdu gosnmp.SnmpPDU) error {
		ns, ok := enterpriseNamespace(pdu.Name)
		if !ok {
			return nil
		}

		if _, dup := seen[ns]; !dup {
			seen[ns] = struct{}{}
			namespaces = append(namespaces, ns)
			rec.AddMIB(ns)
		}

		return nil
	})
	if err != nil {
		s.logger().Debug().Err(err).Str("target", client.Target).Msg("Enterprise walk ended early")
	}

	entry, ok := s.Table.MatchNamespaces(namespaces)
	if ok {
		rec.AddMIB(entry.MIB)
	}

	return entry, ok
}

func (s *SNMPReader) probeTable(client *gosnmp.GoSNMP, rec *Record) (*KnownDevice, bool) {
	var first *KnownDevice

	for _, oid := range s.Table.ProbeOIDs() {
		result, err := client.Get([]string{oid})
		if err != nil {
			s.logger().Debug().Err(err).Str("target", client.Target).Str("oid", oid).Msg("Probe OID request failed")
			continue
		}

		if result.Error != gosnmp.NoError || len(result.Variables) == 0 || !hasValue(result.Variables[0]) {
			continue
		}

		if ns, ok := enterpriseNamespace(oid); ok {
			rec.AddMIB(ns)
		}

		entry, ok := s.Table.MatchProbeOID(oid)
		if !ok {
			continue
		}

		rec.AddMIB(entry.MIB)

		if first == nil {
			first = entry
		}
	}

	return first, first != nil
}

// readValues fetches the entry's attribute OIDs one at a time so that a
// missing object does not fail the whole set under SNMPv1.
func readValues(client *gosnmp.GoSNMP, entry *KnownDevice) map[string]string {
	out := make(map[string]string, len(entry.Attributes))

	for key, oid := range entry.Attributes {
		result, err := client.Get([]string{oid})
		if err != nil || result.Error != gosnmp.NoError || len(result.Variables) == 0 {
			continue
		}

		if v := result.Variables[0]; hasValue(v) {
			out[key] = strings.TrimSpace(pduString(v))
		}
	}

	return out
}

func hasValue(pdu gosnmp.SnmpPDU) bool {
	switch pdu.Type {
	case gosnmp.NoSuchObject, gosnmp.NoSuchInstance, gosnmp.EndOfMibView, gosnmp.Null:
		return false
	default:
		return pdu.Value != nil
	}
}

func pduString(pdu gosnmp.SnmpPDU) string {
	switch v := pdu.Value.(type) {
	case nil:
		return ""
	case []byte:
		return string(v)
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func (s *SNMPReader) logger() logger.Logger {
	if s.Logger == nil {
		return logger.NewTestLogger()
	}

	return s.Logger
}
