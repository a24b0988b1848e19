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

// Package version reports the powerscan build version.
package version

// Set with -ldflags "-X github.com/carverauto/powerscan/pkg/version.version=..."
//
//nolint:gochecknoglobals // ldflags injection target
var (
	version = "dev"
	buildID = "dev"
)

// Version is the release version, "dev" for local builds.
func Version() string {
	return version
}

// BuildID is the build identifier injected at link time.
func BuildID() string {
	return buildID
}

// String renders the version with its build id.
func String() string {
	return "powerscan " + version + " (build: " + buildID + ")"
}
