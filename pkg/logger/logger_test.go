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

package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("defaults to info level", func(t *testing.T) {
		log, err := New(nil)
		require.NoError(t, err)
		require.NotNil(t, log)
	})

	t.Run("debug flag wins over level", func(t *testing.T) {
		log, err := New(&Config{Level: "error", Debug: true})
		require.NoError(t, err)
		require.NotNil(t, log)
	})

	t.Run("rejects unknown level", func(t *testing.T) {
		_, err := New(&Config{Level: "loudest"})
		assert.Error(t, err)
	})
}

func TestNewWithWriter(t *testing.T) {
	var buf bytes.Buffer

	log := NewWithWriter(&buf, zerolog.InfoLevel)
	log.Info().Str("host", "web-1").Msg("host discovered")
	log.Debug().Msg("filtered out")

	var entry map[string]interface{}

	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "host discovered", entry["message"])
	assert.Equal(t, "web-1", entry["host"])
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer

	log := NewWithWriter(&buf, zerolog.InfoLevel)
	sub := log.WithComponent("scheduler")
	sub.Info().Msg("pool started")

	assert.Contains(t, buf.String(), `"component":"scheduler"`)
}

func TestTestLoggerIsSilent(t *testing.T) {
	log := NewTestLogger()

	// Must be safe to call at every level without output or panic.
	log.Trace().Msg("x")
	log.Debug().Msg("x")
	log.Info().Msg("x")
	log.Warn().Msg("x")
	log.Error().Msg("x")
}
