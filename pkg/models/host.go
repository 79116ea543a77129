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

// Package models defines the shared data types for the patchradar core:
// hosts, pending updates, sudo policies and per-host operation results.
package models

import "time"

// DiscoveryState tracks where a host sits in its discovery lifecycle.
type DiscoveryState string

const (
	// StateUnknown is the initial state of a host loaded from configuration.
	StateUnknown DiscoveryState = "unknown"

	// StateDiscovering marks a discovery attempt in flight. Transient,
	// never persisted.
	StateDiscovering DiscoveryState = "discovering"

	// StateDiscovered means platform detection succeeded and a package
	// manager provider is bound to the host.
	StateDiscovered DiscoveryState = "discovered"

	// StateUnsupported means the host answered discovery but no provider
	// matches its platform. Stable; not retried automatically.
	StateUnsupported DiscoveryState = "unsupported"
)

// Stable reports whether the state survives a cache save. Transient states
// collapse back to StateUnknown so a crash mid-discovery never persists a
// half-finished transition.
func (s DiscoveryState) Stable() bool {
	return s == StateDiscovered || s == StateUnsupported || s == StateUnknown
}

// OSInfo describes the detected platform of a host.
type OSInfo struct {
	Kind    string `json:"kind"`              // uname -s, lowercased (linux, freebsd, openbsd)
	Flavor  string `json:"flavor,omitempty"`  // distribution family (debian, ubuntu, rhel, ...)
	Version string `json:"version,omitempty"` // release identifier
}

// Host is a managed remote system tracked by the inventory. The inventory
// owns all hosts exclusively; nothing mutates a Host except through the
// inventory's mutation API.
type Host struct {
	Name        string `json:"name"`
	Address     string `json:"address"`
	Port        int    `json:"port"`
	Username    string `json:"username,omitempty"`
	Description string `json:"description,omitempty"`

	State      DiscoveryState `json:"state"`
	OS         *OSInfo        `json:"os,omitempty"`
	PkgManager string         `json:"pkg_manager,omitempty"` // provider tag bound at discovery

	Online      bool       `json:"online"`
	LastRefresh *time.Time `json:"last_refresh,omitempty"`
	Updates     []Update   `json:"updates,omitempty"`

	// SudoPolicy overrides the global default when set.
	SudoPolicy *SudoPolicy `json:"sudo_policy,omitempty"`
}

// IsStale reports whether the host's last successful refresh is older than
// the given threshold. A host that has never refreshed is always stale.
func (h *Host) IsStale(now time.Time, threshold time.Duration) bool {
	if h.LastRefresh == nil {
		return true
	}

	return now.Sub(*h.LastRefresh) > threshold
}

// SecurityUpdates returns the subset of pending updates flagged as
// security-relevant. The result is a filter over Updates, never an
// independently maintained list.
func (h *Host) SecurityUpdates() []Update {
	return FilterSecurity(h.Updates)
}

// DeepCopy returns an independent copy of the host, including its update
// list. Used by the scheduler to hand workers a stable view and by the
// snapshot path so readers never alias live inventory state.
func (h *Host) DeepCopy() *Host {
	if h == nil {
		return nil
	}

	out := *h

	if h.OS != nil {
		osCopy := *h.OS
		out.OS = &osCopy
	}

	if h.LastRefresh != nil {
		ts := *h.LastRefresh
		out.LastRefresh = &ts
	}

	if h.SudoPolicy != nil {
		pol := *h.SudoPolicy
		out.SudoPolicy = &pol
	}

	if h.Updates != nil {
		out.Updates = make([]Update, len(h.Updates))
		for i := range h.Updates {
			out.Updates[i] = *h.Updates[i].DeepCopy()
		}
	}

	return &out
}
