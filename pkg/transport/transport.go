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

//go:generate mockgen -destination=mock_transport.go -package=transport github.com/carverauto/patchradar/pkg/transport Dialer,Session

// Package transport abstracts remote command execution over SSH so the
// inventory and providers never touch the network library directly and
// tests can substitute a deterministic fake.
package transport

import (
	"context"
	"time"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultCommandTimeout = 60 * time.Second
)

// Target identifies one remote endpoint plus its per-host timeouts.
type Target struct {
	Address  string
	Port     int
	Username string

	// ConnectTimeout bounds session establishment; CommandTimeout bounds
	// each command run. Zero values fall back to package defaults.
	ConnectTimeout time.Duration
	CommandTimeout time.Duration

	// MaxDialElapsed caps the total connect retry budget for this dial,
	// overriding the dialer's configured budget. Ping-class dials set it
	// so an unreachable host cannot eat the full default retry window.
	MaxDialElapsed time.Duration
}

func (t *Target) connectTimeout() time.Duration {
	if t.ConnectTimeout > 0 {
		return t.ConnectTimeout
	}

	return defaultConnectTimeout
}

func (t *Target) commandTimeout() time.Duration {
	if t.CommandTimeout > 0 {
		return t.CommandTimeout
	}

	return defaultCommandTimeout
}

// CommandResult carries the raw outcome of one remote command.
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Failed reports a non-zero exit status.
func (r *CommandResult) Failed() bool {
	return r.ExitCode != 0
}

// Session is an established connection to one host. Sessions must be
// closed on every exit path; Run never leaves a command hanging past the
// target's command timeout.
type Session interface {
	// Run executes a single non-interactive command. A nil error with a
	// non-zero ExitCode means the command ran and failed; an error means
	// the transport itself failed (connection loss, timeout).
	Run(ctx context.Context, command string) (*CommandResult, error)
	Close() error
}

// Dialer establishes sessions. The production implementation speaks SSH;
// tests substitute a mock.
type Dialer interface {
	Dial(ctx context.Context, target Target) (Session, error)
}
