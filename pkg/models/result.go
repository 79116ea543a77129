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

import "time"

// Operation names a per-host action dispatched by the scheduler.
type Operation string

const (
	OpDiscover Operation = "discover"
	OpPing     Operation = "ping"
	OpRefresh  Operation = "refresh"
)

// SyncStatus records the outcome of the repository sync step of a refresh.
type SyncStatus string

const (
	// SyncNotRequested means the caller did not ask for a repository sync.
	SyncNotRequested SyncStatus = "not_requested"

	// SyncDone means the provider's sync command ran successfully.
	SyncDone SyncStatus = "done"

	// SyncSkippedPrivileged means the sync step needed elevation the
	// effective sudo policy forbids. Distinguishes "not attempted" from
	// "attempted and failed".
	SyncSkippedPrivileged SyncStatus = "skipped_privileged"

	// SyncFailed means the sync command was attempted and failed.
	SyncFailed SyncStatus = "failed"
)

// HostResult is the per-host outcome of a scheduled operation. Aggregate
// operations always complete with a mixed result set; a failing host
// contributes a HostResult with Err set instead of aborting siblings.
type HostResult struct {
	Host      string
	Operation Operation
	Err       error
	ErrorKind ErrorKind
	Sync      SyncStatus
	Duration  time.Duration
}

// OK reports whether the operation succeeded for this host.
func (r *HostResult) OK() bool {
	return r.Err == nil
}
