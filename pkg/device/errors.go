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

import "errors"

var (
	ErrNoCredential            = errors.New("credential id or community is required")
	ErrAmbiguousCredential     = errors.New("credential id and community are mutually exclusive")
	ErrUnsupportedProtocol     = errors.New("unsupported protocol")
	ErrUnsupportedSNMPVersion  = errors.New("unsupported SNMP version")
	ErrCredentialTypeMismatch  = errors.New("credential type does not match protocol")
	ErrUnrecognizedDevice      = errors.New("device not recognized")
	ErrDriverFailed            = errors.New("nut driver failed")
	ErrEmptyDriverOutput       = errors.New("nut driver produced no output")
	ErrDescriptorStatus        = errors.New("unexpected descriptor status")
	ErrInvalidKnownDeviceTable = errors.New("invalid known device table")
)
