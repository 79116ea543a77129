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

import "fmt"

// SudoPolicy decides whether privileged provider commands may run
// unattended on a host.
type SudoPolicy string

const (
	// PolicySkip forbids privileged commands; operations needing
	// elevation are skipped and reported as such.
	PolicySkip SudoPolicy = "skip"

	// PolicyNopasswd allows privileged commands via passwordless sudo.
	PolicyNopasswd SudoPolicy = "nopasswd"
)

// Valid reports whether the policy is a known value.
func (p SudoPolicy) Valid() bool {
	return p == PolicySkip || p == PolicyNopasswd
}

// ParseSudoPolicy converts a configuration string into a SudoPolicy.
func ParseSudoPolicy(s string) (SudoPolicy, error) {
	p := SudoPolicy(s)
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidSudoPolicy, s)
	}

	return p, nil
}

// PrivilegeRequirements declares, per provider, which operations need
// elevation. Static per provider variant, consulted through the policy
// resolver before any privileged command is constructed.
type PrivilegeRequirements struct {
	Sync  bool `json:"sync"`
	Fetch bool `json:"fetch"`
}
