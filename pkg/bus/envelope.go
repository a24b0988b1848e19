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

package bus

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Subject names a request kind carried in the envelope.
type Subject string

const (
	SubjectDiscovery Subject = "discovery"
	SubjectScan      Subject = "scan"
	SubjectStart     Subject = "start"
	SubjectStop      Subject = "stop"
	SubjectStatus    Subject = "status"
	SubjectConfigure Subject = "configure"
	SubjectDetails   Subject = "details"
)

// ReplyStatus is the outcome carried in a reply envelope.
type ReplyStatus string

const (
	StatusOK    ReplyStatus = "ok"
	StatusError ReplyStatus = "error"
)

const (
	msgEmptyPayload     = "Wrong input data: payload is empty"
	msgMalformedPayload = "Wrong input data: format of payload is incorrect"
	msgInputPrefix      = "Wrong input data: "
)

var (
	errEmptyPayload     = errors.New(msgEmptyPayload)
	errMalformedPayload = errors.New(msgMalformedPayload)
)

// Envelope is a request received on the service mailbox.
type Envelope struct {
	To            string          `json:"to,omitempty"`
	From          string          `json:"from,omitempty"`
	ReplyTo       string          `json:"replyTo,omitempty"`
	Subject       Subject         `json:"subject"`
	CorrelationID string          `json:"correlationId,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// Reply answers an Envelope. It echoes the subject and correlation id.
type Reply struct {
	To            string          `json:"to,omitempty"`
	From          string          `json:"from,omitempty"`
	Subject       Subject         `json:"subject"`
	CorrelationID string          `json:"correlationId,omitempty"`
	Status        ReplyStatus     `json:"status"`
	Error         string          `json:"error,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// decodePayload unmarshals a non-empty JSON payload into v.
func decodePayload(raw json.RawMessage, v any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte(`""`)) {
		return errEmptyPayload
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	if err := dec.Decode(v); err != nil {
		return errMalformedPayload
	}

	if dec.More() {
		return errMalformedPayload
	}

	return nil
}
