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
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/carverauto/powerscan/pkg/credentials"
	"github.com/carverauto/powerscan/pkg/logger"
	"github.com/carverauto/powerscan/pkg/models"
	"github.com/carverauto/powerscan/pkg/protocol"
)

const (
	defaultDriverTimeout = time.Minute
	ambientPrefix        = "ambient."
	maxStderrInError     = 256
)

// NUTReader runs a NUT driver in dump mode against one address and parses
// its "key: value" output. Each run gets its own scratch directory which is
// removed afterwards.
type NUTReader struct {
	DriverPath  string
	Timeout     time.Duration
	Credentials credentials.Store
	Logger      logger.Logger
}

var _ Reader = (*NUTReader)(nil)

func (n *NUTReader) Read(ctx context.Context, address string, kind protocol.Kind, port int, ref CredentialRef) (*Record, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	env, err := n.credentialEnv(ctx, ref)
	if err != nil {
		return nil, err
	}

	if port <= 0 {
		port = kind.DefaultPort()
	}

	out, err := n.run(ctx, address, kind, port, env)
	if err != nil {
		return nil, err
	}

	values := ParseDriverOutput(out)
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDriverOutput, address)
	}

	rec := recordFromDriver(values)
	rec.AddMIB(kind.String())
	rec.AddAttribute("ip_address", address, false)

	return rec, nil
}

func (n *NUTReader) run(ctx context.Context, address string, kind protocol.Kind, port int, env []string) ([]byte, error) {
	timeout := n.Timeout
	if timeout <= 0 {
		timeout = defaultDriverTimeout
	}

	workDir, err := os.MkdirTemp("", "powerscan-nut-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create driver work dir: %w", err)
	}

	defer func() {
		if rmErr := os.RemoveAll(workDir); rmErr != nil {
			n.logger().Warn().Err(rmErr).Str("dir", workDir).Msg("Failed to remove driver work dir")
		}
	}()

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	scheme := "http"
	if port == protocol.Powercom.DefaultPort() {
		scheme = "https"
	}

	cmd := exec.CommandContext(runCtx, n.DriverPath,
		"-a", "discovery",
		"-d", "1",
		"-x", fmt.Sprintf("port=%s://%s:%d", scheme, address, port),
		"-x", "protocol="+kind.String(),
	)
	cmd.Dir = workDir
	cmd.WaitDelay = time.Second
	cmd.Env = append(os.Environ(),
		"NUT_STATEPATH="+workDir,
		"NUT_ALTPIDPATH="+workDir,
		"NUT_PROTOCOL="+kind.String(),
		"NUT_ADDRESS="+address,
		"NUT_PORT="+strconv.Itoa(port),
	)
	cmd.Env = append(cmd.Env, env...)

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > maxStderrInError {
			msg = msg[:maxStderrInError]
		}

		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s: timed out after %s", ErrDriverFailed, address, timeout)
		}

		return nil, fmt.Errorf("%w: %s: %w: %s", ErrDriverFailed, address, err, msg)
	}

	n.logger().Debug().
		Str("address", address).
		Str("protocol", kind.String()).
		Dur("elapsed", time.Since(start)).
		Int("bytes", stdout.Len()).
		Msg("NUT driver finished")

	return stdout.Bytes(), nil
}

// credentialEnv passes secrets through the environment only.
func (n *NUTReader) credentialEnv(ctx context.Context, ref CredentialRef) ([]string, error) {
	if ref.Community != "" {
		return []string{"NUT_COMMUNITY=" + ref.Community}, nil
	}

	if n.Credentials == nil {
		return nil, fmt.Errorf("%w: %s", credentials.ErrCredentialNotFound, ref.CredentialID)
	}

	cred, err := n.Credentials.Get(ctx, ref.CredentialID)
	if err != nil {
		return nil, err
	}

	switch cred.Type {
	case models.CredentialUserPass:
		return []string{"NUT_USERNAME=" + cred.Username, "NUT_PASSWORD=" + cred.Password}, nil
	case models.CredentialSNMPv1, models.CredentialSNMPv2c:
		return []string{"NUT_COMMUNITY=" + cred.Community}, nil
	default:
		return nil, fmt.Errorf("%w: %s is %s", ErrCredentialTypeMismatch, cred.ID, cred.Type)
	}
}

// ParseDriverOutput reads "key: value" lines. Lines without a separator and
// empty keys are ignored; later duplicates win.
func ParseDriverOutput(out []byte) map[string]string {
	values := make(map[string]string)

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}

		key = strings.TrimSpace(key)
		if key == "" || strings.ContainsAny(key, " \t") {
			continue
		}

		values[key] = strings.TrimSpace(value)
	}

	return values
}

func recordFromDriver(values map[string]string) *Record {
	rec := &Record{
		Family: FamilyNUT,
		Name:   firstOf(values, "device.model", "ups.model", "device.description"),
		Type:   NormalizeType(firstOf(values, "device.type")),
	}

	if rec.Type == "" {
		rec.Type = TypeUPS
	}

	if drv := values["driver.name"]; drv != "" {
		rec.AddMIB(drv)
	}

	sensors := make(map[int]*Sensor)

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, key := range keys {
		value := values[key]

		if idx, field, ok := ambientKey(key); ok {
			s, exists := sensors[idx]
			if !exists {
				s = &Sensor{Name: ambientPrefix + strconv.Itoa(idx), Type: TypeSensor}
				sensors[idx] = s
			}

			switch field {
			case "name":
				s.Name = value
			case "type":
				s.Subtype = value
			}

			s.Attributes = append(s.Attributes, NewAttribute(field, value, true))

			continue
		}

		if strings.HasPrefix(key, "driver.") || key == "ambient.count" {
			continue
		}

		rec.AddAttribute(key, value, true)
	}

	rec.Sensors = sortedSensors(sensors)

	return rec
}

// ambientKey splits "ambient.<n>.<field>" keys.
func ambientKey(key string) (idx int, field string, ok bool) {
	rest, found := strings.CutPrefix(key, ambientPrefix)
	if !found {
		return 0, "", false
	}

	num, field, ok := strings.Cut(rest, ".")
	if !ok || field == "" {
		return 0, "", false
	}

	idx, err := strconv.Atoi(num)
	if err != nil {
		return 0, "", false
	}

	return idx, field, true
}

func sortedSensors(m map[int]*Sensor) []Sensor {
	idx := make([]int, 0, len(m))
	for k := range m {
		idx = append(idx, k)
	}

	sort.Ints(idx)

	out := make([]Sensor, 0, len(idx))
	for _, n := range idx {
		out = append(out, *m[n])
	}

	return out
}

func firstOf(values map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := values[k]; v != "" {
			return v
		}
	}

	return ""
}

func (n *NUTReader) logger() logger.Logger {
	if n.Logger == nil {
		return logger.NewTestLogger()
	}

	return n.Logger
}
