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

// CredentialRef names the secret a reader authenticates with. Exactly one of
// the fields is set.
type CredentialRef struct {
	CredentialID string `json:"credential_id,omitempty"`
	Community    string `json:"community,omitempty"`
}

func (c CredentialRef) Validate() error {
	switch {
	case c.CredentialID == "" && c.Community == "":
		return ErrNoCredential
	case c.CredentialID != "" && c.Community != "":
		return ErrAmbiguousCredential
	default:
		return nil
	}
}

// RefsFromConfig builds the ordered credential list a scan tries per device:
// credential ids first, then fallback communities.
func RefsFromConfig(credentialIDs, communities []string) []CredentialRef {
	refs := make([]CredentialRef, 0, len(credentialIDs)+len(communities))

	for _, id := range credentialIDs {
		if id != "" {
			refs = append(refs, CredentialRef{CredentialID: id})
		}
	}

	for _, c := range communities {
		if c != "" {
			refs = append(refs, CredentialRef{Community: c})
		}
	}

	return refs
}
