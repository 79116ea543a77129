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

package config

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/carverauto/patchradar/pkg/models"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadAndValidateJSON(t *testing.T) {
	path := writeConfig(t, "patchradar.json", `{
  "options": {
    "sudo_policy": "skip",
    "stale_threshold": "24h",
    "connect_timeout": "10s",
    "concurrency": 8
  },
  "ssh": {
    "private_key_path": "/etc/patchradar/id_ed25519"
  },
  "hosts": [
    {"name": "web-1", "address": "10.0.0.10", "username": "ops"},
    {"name": "db-1", "address": "10.0.0.20", "port": 2222, "sudo_policy": "nopasswd"}
  ]
}`)

	var cfg Config

	require.NoError(t, NewLoader(nil).LoadAndValidate(context.Background(), path, &cfg))

	assert.Equal(t, 8, cfg.Options.Concurrency)
	assert.Equal(t, Duration(24*time.Hour), cfg.Options.StaleThreshold)
	assert.Equal(t, Duration(10*time.Second), cfg.Options.ConnectTimeout)
	assert.Equal(t, "patchradar.json", cfg.Options.CacheFile, "cache file defaults when omitted")
	require.Len(t, cfg.Hosts, 2)
	assert.Equal(t, 2222, cfg.Hosts[1].Port)
}

func TestLoadAndValidateYAML(t *testing.T) {
	path := writeConfig(t, "patchradar.yaml", `
options:
  sudo_policy: nopasswd
  stale_threshold: 12h
  cache_file: /var/lib/patchradar/cache.json
hosts:
  - name: web-1
    address: 10.0.0.10
    username: ops
`)

	var cfg Config

	require.NoError(t, NewLoader(nil).LoadAndValidate(context.Background(), path, &cfg))

	assert.Equal(t, "nopasswd", cfg.Options.SudoPolicy)
	assert.Equal(t, Duration(12*time.Hour), cfg.Options.StaleThreshold)
	assert.Equal(t, "/var/lib/patchradar/cache.json", cfg.Options.CacheFile)
}

func TestValidate(t *testing.T) {
	ctx := context.Background()

	t.Run("no hosts", func(t *testing.T) {
		path := writeConfig(t, "empty.json", `{"hosts": []}`)

		var cfg Config

		err := NewLoader(nil).LoadAndValidate(ctx, path, &cfg)
		require.Error(t, err)
		assert.ErrorIs(t, err, errNoHosts)
	})

	t.Run("host without name", func(t *testing.T) {
		path := writeConfig(t, "noname.json", `{"hosts": [{"address": "10.0.0.1"}]}`)

		var cfg Config

		assert.ErrorIs(t, NewLoader(nil).LoadAndValidate(ctx, path, &cfg), errHostMissingName)
	})

	t.Run("host without address", func(t *testing.T) {
		path := writeConfig(t, "noaddr.json", `{"hosts": [{"name": "web-1"}]}`)

		var cfg Config

		assert.ErrorIs(t, NewLoader(nil).LoadAndValidate(ctx, path, &cfg), errHostMissingAddr)
	})

	t.Run("bad sudo policy", func(t *testing.T) {
		path := writeConfig(t, "badpol.json",
			`{"options": {"sudo_policy": "root"}, "hosts": [{"name": "a", "address": "10.0.0.1"}]}`)

		var cfg Config

		assert.ErrorIs(t, NewLoader(nil).LoadAndValidate(ctx, path, &cfg), models.ErrInvalidSudoPolicy)
	})

	t.Run("bad per-host sudo policy", func(t *testing.T) {
		path := writeConfig(t, "badhostpol.json",
			`{"hosts": [{"name": "a", "address": "10.0.0.1", "sudo_policy": "ask"}]}`)

		var cfg Config

		assert.ErrorIs(t, NewLoader(nil).LoadAndValidate(ctx, path, &cfg), models.ErrInvalidSudoPolicy)
	})

	t.Run("missing file", func(t *testing.T) {
		var cfg Config

		err := NewLoader(nil).LoadAndValidate(ctx, "/nonexistent/patchradar.json", &cfg)
		require.Error(t, err)
	})
}

func TestInventoryConversion(t *testing.T) {
	cfg := Config{
		Options: Options{
			SudoPolicy:     "skip",
			StaleThreshold: Duration(12 * time.Hour),
			ConnectTimeout: Duration(5 * time.Second),
		},
		Hosts: []HostConfig{
			{Name: "web-1", Address: "10.0.0.10", Username: "ops"},
			{Name: "db-1", Address: "10.0.0.20", SudoPolicy: "nopasswd"},
		},
	}
	require.NoError(t, cfg.Validate())

	hosts := cfg.InventoryHosts()
	require.Len(t, hosts, 2)
	assert.Equal(t, models.StateUnknown, hosts[0].State)
	assert.Nil(t, hosts[0].SudoPolicy)
	require.NotNil(t, hosts[1].SudoPolicy)
	assert.Equal(t, models.PolicyNopasswd, *hosts[1].SudoPolicy)

	opts := cfg.InventoryOptions()
	assert.Equal(t, models.PolicySkip, opts.GlobalSudoPolicy)
	assert.Equal(t, 12*time.Hour, opts.StaleThreshold)
	assert.Equal(t, 5*time.Second, opts.ConnectTimeout)
}

func TestDuration(t *testing.T) {
	t.Run("json round trip", func(t *testing.T) {
		var d Duration

		require.NoError(t, json.Unmarshal([]byte(`"90s"`), &d))
		assert.Equal(t, Duration(90*time.Second), d)

		out, err := json.Marshal(Duration(2 * time.Minute))
		require.NoError(t, err)
		assert.Equal(t, `"2m0s"`, string(out))
	})

	t.Run("yaml", func(t *testing.T) {
		var d Duration

		require.NoError(t, yaml.Unmarshal([]byte(`1h30m`), &d))
		assert.Equal(t, Duration(90*time.Minute), d)
	})

	t.Run("empty string is zero", func(t *testing.T) {
		var d Duration

		require.NoError(t, json.Unmarshal([]byte(`""`), &d))
		assert.Zero(t, d)
	})

	t.Run("invalid", func(t *testing.T) {
		var d Duration

		assert.Error(t, json.Unmarshal([]byte(`"soon"`), &d))
	})
}
