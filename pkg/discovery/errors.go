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
	"errors"
	"fmt"
)

var (
	ErrScanInProgress        = errors.New("scan already in progress")
	ErrScanNotInProgress     = errors.New("no scan in progress")
	ErrEngineNotRunning      = errors.New("discovery engine is not running")
	ErrJobQueueFull          = errors.New("job queue is full")
	ErrDispatcherNotRunning  = errors.New("dispatcher is not running")
	ErrDispatcherStopTimeout = errors.New("dispatcher stop timed out")
	ErrNoTargets             = errors.New("no scan targets")
	ErrNoProtocols           = errors.New("no protocols enabled")
	ErrNoCredentials         = errors.New("no credential id or community configured")
	ErrMissingDependency     = errors.New("missing engine dependency")
)

// InputError marks a request rejected before any network activity.
type InputError struct {
	Err error
}

func (e *InputError) Error() string {
	return e.Err.Error()
}

func (e *InputError) Unwrap() error {
	return e.Err
}

func inputError(err error) error {
	if err == nil {
		return nil
	}

	return &InputError{Err: err}
}

// HostUnavailableError reports an address on which no candidate protocol answered.
type HostUnavailableError struct {
	Address string
}

func (e *HostUnavailableError) Error() string {
	return fmt.Sprintf("Host is not available: %s", e.Address)
}
