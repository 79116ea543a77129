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

import "errors"

var (
	// ErrConnection covers unreachable hosts and connect/command timeouts.
	ErrConnection = errors.New("connection failed")

	// ErrAuthentication covers rejected keys and missing agent identities.
	ErrAuthentication = errors.New("authentication failed")

	// ErrUnsupportedPlatform means no provider matches the detected platform.
	ErrUnsupportedPlatform = errors.New("unsupported platform")

	// ErrPrivilege means an operation required elevation the policy forbids.
	ErrPrivilege = errors.New("privileged operation not permitted")

	// ErrParse means provider output did not match the expected grammar,
	// usually a sign of remote tool version drift.
	ErrParse = errors.New("unparseable provider output")

	// ErrCacheCorrupt means the persisted snapshot is unreadable or of an
	// unrecognized schema version.
	ErrCacheCorrupt = errors.New("cache snapshot corrupt or incompatible")

	// ErrOperationNotSupported is returned when refresh is requested on a
	// host without a bound provider.
	ErrOperationNotSupported = errors.New("operation not supported for host")

	// ErrRefreshInProgress rejects a second concurrent refresh of one host.
	ErrRefreshInProgress = errors.New("refresh already in progress")

	// ErrHostNotFound is returned for operations naming an unknown host.
	ErrHostNotFound = errors.New("host not found in inventory")

	ErrInvalidSudoPolicy = errors.New("invalid sudo policy")
)

// ErrorKind is the coarse per-host failure classification surfaced in
// operation results and reports.
type ErrorKind string

const (
	ErrKindNone           ErrorKind = ""
	ErrKindConnection     ErrorKind = "connection"
	ErrKindAuthentication ErrorKind = "authentication"
	ErrKindUnsupported    ErrorKind = "unsupported_platform"
	ErrKindPrivilege      ErrorKind = "privilege"
	ErrKindParse          ErrorKind = "parse"
	ErrKindCache          ErrorKind = "cache_corruption"
	ErrKindInternal       ErrorKind = "internal"
)

// KindOf classifies an error against the taxonomy. Unrecognized errors map
// to ErrKindInternal so they are never silently dropped from results.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ErrKindNone
	case errors.Is(err, ErrAuthentication):
		return ErrKindAuthentication
	case errors.Is(err, ErrConnection):
		return ErrKindConnection
	case errors.Is(err, ErrUnsupportedPlatform), errors.Is(err, ErrOperationNotSupported):
		return ErrKindUnsupported
	case errors.Is(err, ErrPrivilege):
		return ErrKindPrivilege
	case errors.Is(err, ErrParse):
		return ErrKindParse
	case errors.Is(err, ErrCacheCorrupt):
		return ErrKindCache
	default:
		return ErrKindInternal
	}
}
