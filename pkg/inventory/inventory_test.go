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

package inventory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/patchradar/pkg/logger"
	"github.com/carverauto/patchradar/pkg/models"
	"github.com/carverauto/patchradar/pkg/provider"
	"github.com/carverauto/patchradar/pkg/transport"
)

func TestNew(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dialer := transport.NewMockDialer(ctrl)

	t.Run("defaults port and state", func(t *testing.T) {
		inv := newTestInventory(t, []*models.Host{
			{Name: "web-1", Address: "10.0.0.10", Username: "ops"},
		}, dialer, Options{})

		h, ok := inv.Get("web-1")
		require.True(t, ok)
		assert.Equal(t, 22, h.Port)
		assert.Equal(t, models.StateUnknown, h.State)
	})

	t.Run("rejects duplicate names", func(t *testing.T) {
		_, err := New([]*models.Host{
			{Name: "web-1", Address: "10.0.0.10", Username: "ops"},
			{Name: "web-1", Address: "10.0.0.11", Username: "ops"},
		}, dialer, Options{}, logger.NewTestLogger())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "web-1")
	})

	t.Run("preserves insertion order", func(t *testing.T) {
		inv := newTestInventory(t, []*models.Host{
			{Name: "zeta", Address: "10.0.0.1", Username: "ops"},
			{Name: "alpha", Address: "10.0.0.2", Username: "ops"},
			{Name: "mid", Address: "10.0.0.3", Username: "ops"},
		}, dialer, Options{})

		assert.Equal(t, []string{"zeta", "alpha", "mid"}, inv.Names())
	})
}

func TestSnapshot(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dialer := transport.NewMockDialer(ctrl)

	inv := newTestInventory(t, []*models.Host{
		discoveredHost("web-1"),
		{Name: "web-2", Address: "10.0.0.11", Username: "ops"},
	}, dialer, Options{})

	// Force a transient state the way an in-progress discovery would.
	inv.mu.Lock()
	inv.hosts["web-2"].State = models.StateDiscovering
	inv.mu.Unlock()

	snap := inv.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, models.StateDiscovered, snap[0].State)
	assert.Equal(t, models.StateUnknown, snap[1].State, "transient states collapse on snapshot")

	// Snapshot copies are detached from live state.
	snap[0].PkgManager = "mutated"
	h, _ := inv.Get("web-1")
	assert.Equal(t, provider.TagApt, h.PkgManager)
}

func TestRestore(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dialer := transport.NewMockDialer(ctrl)

	refreshed := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	current := "2.6.3"

	cached := []*models.Host{
		{
			Name:       "web-1",
			Address:    "192.168.0.99", // stale address the config has since corrected
			State:      models.StateDiscovered,
			OS:         &models.OSInfo{Kind: "linux", Flavor: "debian", Version: "12"},
			PkgManager: provider.TagApt,
			Online:     true,
			LastRefresh: &refreshed,
			Updates: []models.Update{
				{PackageName: "netdata", CurrentVersion: &current, NewVersion: "2.7.0", Source: "Debian:12.12/stable"},
			},
		},
		{Name: "retired-host", Address: "10.0.0.200", State: models.StateDiscovered},
	}

	inv := newTestInventory(t, []*models.Host{
		{Name: "web-1", Address: "10.0.0.10", Username: "ops"},
		{Name: "web-new", Address: "10.0.0.12", Username: "ops"},
	}, dialer, Options{})

	inv.Restore(cached)

	t.Run("cache supplies discovery and refresh state", func(t *testing.T) {
		h, ok := inv.Get("web-1")
		require.True(t, ok)

		assert.Equal(t, models.StateDiscovered, h.State)
		assert.Equal(t, provider.TagApt, h.PkgManager)
		assert.True(t, h.Online)
		require.NotNil(t, h.LastRefresh)
		assert.Equal(t, refreshed, *h.LastRefresh)
		require.Len(t, h.Updates, 1)
		assert.Equal(t, "netdata", h.Updates[0].PackageName)
	})

	t.Run("configuration remains the identity authority", func(t *testing.T) {
		h, _ := inv.Get("web-1")
		assert.Equal(t, "10.0.0.10", h.Address)
		assert.Equal(t, "ops", h.Username)
	})

	t.Run("hosts absent from config are pruned", func(t *testing.T) {
		_, ok := inv.Get("retired-host")
		assert.False(t, ok)
		assert.Equal(t, 2, inv.Len())
	})

	t.Run("config hosts absent from cache stay unknown", func(t *testing.T) {
		h, _ := inv.Get("web-new")
		assert.Equal(t, models.StateUnknown, h.State)
		assert.Nil(t, h.LastRefresh)
	})
}
