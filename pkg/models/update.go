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

// Update is a single pending package change reported by a provider.
// Immutable once constructed; a refresh replaces a host's whole update
// list atomically rather than patching individual entries.
type Update struct {
	PackageName string `json:"package_name"`

	// CurrentVersion is nil for a newly introduced package (one that is
	// not installed yet), never for an unknown value.
	CurrentVersion *string `json:"current_version,omitempty"`

	NewVersion string `json:"new_version"`
	Security   bool   `json:"security"`
	Source     string `json:"source,omitempty"` // repository or channel identifier
}

// DeepCopy returns an independent copy of the update.
func (u *Update) DeepCopy() *Update {
	out := *u

	if u.CurrentVersion != nil {
		cur := *u.CurrentVersion
		out.CurrentVersion = &cur
	}

	return &out
}

// FilterSecurity returns the security-flagged subset of updates,
// preserving order.
func FilterSecurity(updates []Update) []Update {
	var filtered []Update

	for i := range updates {
		if updates[i].Security {
			filtered = append(filtered, updates[i])
		}
	}

	return filtered
}
