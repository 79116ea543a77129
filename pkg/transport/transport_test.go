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

package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/patchradar/pkg/logger"
	"github.com/carverauto/patchradar/pkg/models"
)

func TestTargetTimeouts(t *testing.T) {
	t.Run("zero values fall back to defaults", func(t *testing.T) {
		target := Target{Address: "10.0.0.1", Port: 22}

		assert.Equal(t, defaultConnectTimeout, target.connectTimeout())
		assert.Equal(t, defaultCommandTimeout, target.commandTimeout())
	})

	t.Run("configured values win", func(t *testing.T) {
		target := Target{
			Address:        "10.0.0.1",
			ConnectTimeout: 3 * time.Second,
			CommandTimeout: 30 * time.Second,
		}

		assert.Equal(t, 3*time.Second, target.connectTimeout())
		assert.Equal(t, 30*time.Second, target.commandTimeout())
	})
}

func TestDialBudget(t *testing.T) {
	t.Run("target override wins", func(t *testing.T) {
		target := Target{MaxDialElapsed: 2 * time.Second}
		config := &SSHConfig{MaxDialElapsed: 20 * time.Second}

		assert.Equal(t, 2*time.Second, dialBudget(&target, config))
	})

	t.Run("dialer config applies without override", func(t *testing.T) {
		config := &SSHConfig{MaxDialElapsed: 20 * time.Second}

		assert.Equal(t, 20*time.Second, dialBudget(&Target{}, config))
	})

	t.Run("package default as last resort", func(t *testing.T) {
		assert.Equal(t, defaultMaxDialElapse, dialBudget(&Target{}, &SSHConfig{}))
	})
}

func TestCommandResultFailed(t *testing.T) {
	assert.False(t, (&CommandResult{ExitCode: 0}).Failed())
	assert.True(t, (&CommandResult{ExitCode: 1}).Failed())
	assert.True(t, (&CommandResult{ExitCode: 100}).Failed())
}

func TestIsAuthError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rejected key", errors.New("ssh: unable to authenticate, attempted methods [none publickey]"), true},
		{"permission denied", errors.New("ssh: permission denied (publickey)"), true},
		{"no methods", errors.New("ssh: handshake failed: ssh: no supported methods remain"), true},
		{"connection refused", errors.New("dial tcp 10.0.0.1:22: connect: connection refused"), false},
		{"timeout", errors.New("i/o timeout"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isAuthError(tt.err))
		})
	}
}

func TestSSHDialerUnreachable(t *testing.T) {
	dialer := NewSSHDialer(&SSHConfig{
		InsecureIgnoreHostKey: true,
		MaxDialElapsed:        time.Second,
	}, logger.NewTestLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	// TEST-NET-1 address, guaranteed unroutable. Depending on the test
	// environment the dial fails either at auth-method setup (no agent,
	// no key) or at connect; both must fall inside the taxonomy.
	_, err := dialer.Dial(ctx, Target{
		Address:        "192.0.2.1",
		Port:           22,
		Username:       "ops",
		ConnectTimeout: 200 * time.Millisecond,
	})

	require.Error(t, err)
	assert.Contains(t,
		[]models.ErrorKind{models.ErrKindConnection, models.ErrKindAuthentication},
		models.KindOf(err))
}
