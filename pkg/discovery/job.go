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

package discovery

import (
	"context"
	"errors"
	"time"

	"github.com/carverauto/powerscan/pkg/asset"
	"github.com/carverauto/powerscan/pkg/device"
	"github.com/carverauto/powerscan/pkg/logger"
	"github.com/carverauto/powerscan/pkg/models"
	"github.com/carverauto/powerscan/pkg/protocol"
)

// scanJob processes one scan's addresses sequentially.
type scanJob struct {
	id          string
	targets     []string
	candidates  []protocol.Candidate
	refs        []device.CredentialRef
	defaults    models.AssetDefaults
	readTimeout time.Duration

	prober  protocol.Prober
	reader  device.Reader
	mapper  *asset.Mapper
	assets  asset.Service
	tracker *Tracker
	logger  logger.Logger
}

// run scans every target unless cancel is done first. Cancellation is
// checked between addresses; the address in flight always completes.
func (j *scanJob) run(cancel context.Context) State {
	work := context.WithoutCancel(cancel)

	for i, address := range j.targets {
		if cancel.Err() != nil {
			j.logger.Info().
				Str("scan_id", j.id).
				Int("scanned", i).
				Int("total", len(j.targets)).
				Msg("Scan cancelled")

			return StateCancelledByUser
		}

		j.scanAddress(work, address)
		j.tracker.AddressScanned()
	}

	return StateTerminated
}

// scanAddress tries candidates in order until one is reachable and readable.
func (j *scanJob) scanAddress(ctx context.Context, address string) bool {
	for _, c := range j.candidates {
		results := j.prober.Probe(ctx, address, []protocol.Candidate{c})
		if len(results) == 0 || !results[0].Reachable {
			continue
		}

		res := results[0]

		rec, err := readDevice(ctx, j.reader, address, res, j.refs, j.readTimeout)
		if err != nil {
			j.logger.Warn().
				Err(err).
				Str("address", address).
				Str("protocol", res.Kind.String()).
				Msg("Failed to read device")

			continue
		}

		j.publish(ctx, address, rec)

		return true
	}

	return false
}

// readDevice tries each credential in order against one reachable candidate.
func readDevice(ctx context.Context, reader device.Reader, address string, res protocol.ProbeResult,
	refs []device.CredentialRef, timeout time.Duration) (*device.Record, error) {
	var errs []error

	for _, ref := range refs {
		readCtx, cancel := context.WithTimeout(ctx, timeout)
		rec, err := reader.Read(readCtx, address, res.Kind, res.Port, ref)

		cancel()

		if err == nil {
			return rec, nil
		}

		errs = append(errs, err)
	}

	if len(errs) == 0 {
		return nil, ErrNoCredentials
	}

	return nil, errors.Join(errs...)
}

// publish creates the device asset and then each sensor under it.
func (j *scanJob) publish(ctx context.Context, address string, rec *device.Record) {
	req, err := j.mapper.MapDevice(ctx, address, rec, j.defaults)
	if err != nil {
		j.logger.Debug().Err(err).Str("address", address).Msg("Mapping degraded")
	}

	name, err := j.assets.Create(ctx, req)
	if err != nil {
		j.logger.Error().Err(err).Str("address", address).Str("type", rec.Type).Msg("Failed to create device asset")
		return
	}

	if !j.tracker.Discovered(rec.Type) {
		j.logger.Warn().Str("address", address).Str("type", rec.Type).Msg("Created asset of untracked type")
	}

	j.logger.Info().Str("scan_id", j.id).Str("address", address).Str("asset", name).Str("type", rec.Type).Msg("Device discovered")

	for _, s := range rec.Sensors {
		sensorName, err := j.assets.Create(ctx, j.mapper.MapSensor(s, name, j.defaults))
		if err != nil {
			j.logger.Error().Err(err).Str("address", address).Str("sensor", s.Name).Msg("Failed to create sensor asset")
			continue
		}

		j.tracker.Discovered(device.TypeSensor)

		j.logger.Debug().Str("asset", sensorName).Str("parent", name).Msg("Sensor discovered")
	}
}
