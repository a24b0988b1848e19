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

//go:generate mockgen -destination=mock_reader.go -package=device github.com/carverauto/powerscan/pkg/device Reader

package device

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/carverauto/powerscan/pkg/credentials"
	"github.com/carverauto/powerscan/pkg/logger"
	"github.com/carverauto/powerscan/pkg/models"
	"github.com/carverauto/powerscan/pkg/protocol"
)

// Reader retrieves identifying attributes from a device speaking kind on port.
type Reader interface {
	Read(ctx context.Context, address string, kind protocol.Kind, port int, ref CredentialRef) (*Record, error)
}

// Dispatch routes reads to the readers registered for each protocol, trying
// them in order until one succeeds.
type Dispatch struct {
	readers map[protocol.Kind][]Reader
	logger  logger.Logger
}

var _ Reader = (*Dispatch)(nil)

// NewDispatch builds a dispatcher over an explicit reader table.
func NewDispatch(readers map[protocol.Kind][]Reader, log logger.Logger) *Dispatch {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Dispatch{readers: readers, logger: log}
}

// NewReader wires the SNMP, descriptor and NUT driver readers from cfg.
// XML-PDC tries the HTTP descriptor first and falls back to the driver.
func NewReader(cfg *models.DiscoveryConfig, creds credentials.Store, log logger.Logger) (*Dispatch, error) {
	table, err := LoadKnownDevices(cfg.MIBDatabasePath)
	if err != nil {
		return nil, err
	}

	readTimeout := time.Duration(cfg.ReadTimeout)

	snmp := &SNMPReader{
		Credentials: creds,
		Table:       table,
		Timeout:     readTimeout,
		Retries:     cfg.SNMPRetries,
		FullWalk:    cfg.FullMIBWalk,
		Logger:      log,
	}

	descriptor := &DescriptorReader{
		Client:      &http.Client{Timeout: readTimeout},
		Path:        cfg.XMLDescriptorPath,
		Credentials: creds,
	}

	nut := &NUTReader{
		DriverPath:  cfg.NUTDriverPath,
		Timeout:     time.Duration(cfg.DriverTimeout),
		Credentials: creds,
		Logger:      log,
	}

	return NewDispatch(map[protocol.Kind][]Reader{
		protocol.SNMP:     {snmp},
		protocol.XMLPDC:   {descriptor, nut},
		protocol.Powercom: {nut},
	}, log), nil
}

func (d *Dispatch) Read(ctx context.Context, address string, kind protocol.Kind, port int, ref CredentialRef) (*Record, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	readers := d.readers[kind]
	if len(readers) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProtocol, kind)
	}

	var errs []error

	for _, r := range readers {
		rec, err := r.Read(ctx, address, kind, port, ref)
		if err == nil {
			return rec, nil
		}

		d.logger.Debug().Err(err).Str("address", address).Str("protocol", kind.String()).Msg("Device read attempt failed")

		errs = append(errs, err)
	}

	return nil, errors.Join(errs...)
}
