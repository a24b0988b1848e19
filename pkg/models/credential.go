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

package models

// CredentialType identifies which fields of a Credential are meaningful.
type CredentialType string

const (
	CredentialSNMPv1   CredentialType = "snmpv1"
	CredentialSNMPv2c  CredentialType = "snmpv2c"
	CredentialSNMPv3   CredentialType = "snmpv3"
	CredentialUserPass CredentialType = "user_password"
)

// Credential is a secret document resolved from the credential store.
type Credential struct {
	ID           string         `json:"id" yaml:"id" validate:"required"`
	Type         CredentialType `json:"type" yaml:"type" validate:"required,oneof=snmpv1 snmpv2c snmpv3 user_password"`
	Community    string         `json:"community,omitempty" yaml:"community,omitempty" validate:"required_if=Type snmpv1,required_if=Type snmpv2c"`
	Username     string         `json:"username,omitempty" yaml:"username,omitempty" validate:"required_if=Type snmpv3,required_if=Type user_password"`
	Password     string         `json:"password,omitempty" yaml:"password,omitempty"`
	AuthProtocol string         `json:"auth_protocol,omitempty" yaml:"auth_protocol,omitempty"`
	AuthPassword string         `json:"auth_password,omitempty" yaml:"auth_password,omitempty"`
	PrivProtocol string         `json:"priv_protocol,omitempty" yaml:"priv_protocol,omitempty"`
	PrivPassword string         `json:"priv_password,omitempty" yaml:"priv_password,omitempty"`
}
