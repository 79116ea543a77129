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

// Package policy resolves the effective sudo policy for a host and decides
// whether a provider operation may run. Pure decision logic; no transport
// or side effects.
package policy

import "github.com/carverauto/patchradar/pkg/models"

// Resolver combines the global sudo default with per-host overrides and
// provider privilege requirements.
type Resolver struct {
	globalDefault models.SudoPolicy
}

// NewResolver creates a resolver around a global default. An invalid or
// empty default degrades to PolicySkip, the conservative choice.
func NewResolver(globalDefault models.SudoPolicy) *Resolver {
	if !globalDefault.Valid() {
		globalDefault = models.PolicySkip
	}

	return &Resolver{globalDefault: globalDefault}
}

// Effective returns the host override when present, else the global default.
func (r *Resolver) Effective(host *models.Host) models.SudoPolicy {
	if host != nil && host.SudoPolicy != nil && host.SudoPolicy.Valid() {
		return *host.SudoPolicy
	}

	return r.globalDefault
}

// CanSync reports whether the repository sync operation may run on the
// host given the provider's static requirements.
func (r *Resolver) CanSync(host *models.Host, req models.PrivilegeRequirements) bool {
	if !req.Sync {
		return true
	}

	return r.Effective(host) == models.PolicyNopasswd
}

// CanFetch reports whether the update fetch operation may run on the host.
func (r *Resolver) CanFetch(host *models.Host, req models.PrivilegeRequirements) bool {
	if !req.Fetch {
		return true
	}

	return r.Effective(host) == models.PolicyNopasswd
}
