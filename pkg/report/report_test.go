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

package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/patchradar/pkg/cache"
	"github.com/carverauto/patchradar/pkg/models"
)

func sampleSnapshot() *cache.Snapshot {
	fresh := time.Date(2026, 8, 29, 6, 0, 0, 0, time.UTC)
	old := time.Date(2026, 8, 20, 6, 0, 0, 0, time.UTC)
	current := "3.2.1"

	return &cache.Snapshot{
		SchemaVersion: cache.SchemaVersion,
		SnapshotTime:  time.Date(2026, 8, 29, 7, 0, 0, 0, time.UTC),
		Hosts: []*models.Host{
			{
				Name:        "web-1",
				Address:     "10.0.0.10",
				State:       models.StateDiscovered,
				OS:          &models.OSInfo{Kind: "linux", Flavor: "debian", Version: "12"},
				Online:      true,
				LastRefresh: &fresh,
				Updates: []models.Update{
					{PackageName: "openssl", CurrentVersion: &current, NewVersion: "3.2.2", Security: true, Source: "stable-security"},
					{PackageName: "vim", NewVersion: "9.1", Security: false, Source: "stable"},
				},
			},
			{
				Name:        "db-1",
				Address:     "10.0.0.20",
				State:       models.StateDiscovered,
				Online:      true,
				LastRefresh: &old,
				Updates: []models.Update{
					{PackageName: "postgresql", NewVersion: "16.4", Security: false, Source: "stable"},
				},
			},
			{
				Name:    "appliance",
				Address: "10.0.0.99",
				State:   models.StateUnsupported,
				Online:  true,
			},
		},
	}
}

func TestFromSnapshot(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	view := FromSnapshot(sampleSnapshot(), 24*time.Hour, now)

	require.Len(t, view.Hosts, 3)
	assert.Equal(t, "web-1", view.Hosts[0].Name, "view preserves snapshot order")

	assert.False(t, view.Hosts[0].Stale)
	assert.True(t, view.Hosts[1].Stale, "refresh older than threshold is stale")
	assert.True(t, view.Hosts[2].Stale, "never refreshed is always stale")

	assert.Equal(t, models.StateUnsupported, view.Hosts[2].State)
}

func TestSecurityOnly(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	full := FromSnapshot(sampleSnapshot(), 24*time.Hour, now)
	security := full.SecurityOnly()

	require.Len(t, security.Hosts, 3, "hosts without security updates stay visible")

	require.Len(t, security.Hosts[0].Updates, 1)
	assert.Equal(t, "openssl", security.Hosts[0].Updates[0].PackageName)
	assert.Empty(t, security.Hosts[1].Updates)
	assert.Empty(t, security.Hosts[2].Updates)

	// The filter never mutates the source view.
	assert.Len(t, full.Hosts[0].Updates, 2)
}

func TestSecurityPartition(t *testing.T) {
	view := FromSnapshot(sampleSnapshot(), 24*time.Hour, time.Now())

	for _, h := range view.Hosts {
		security := h.SecurityUpdates()
		assert.LessOrEqual(t, len(security), len(h.Updates))

		for _, u := range security {
			assert.True(t, u.Security)
		}
	}
}

func TestWriteText(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	var sb strings.Builder

	view := FromSnapshot(sampleSnapshot(), 24*time.Hour, now)
	require.NoError(t, view.WriteText(&sb))

	out := sb.String()

	assert.Contains(t, out, "web-1 (10.0.0.10) [discovered] online")
	assert.Contains(t, out, "os: linux debian 12")
	assert.Contains(t, out, "openssl: 3.2.1 -> 3.2.2 [security]")
	assert.Contains(t, out, "vim: (new) -> 9.1")
	assert.Contains(t, out, "db-1 (10.0.0.20) [discovered] online STALE")
	assert.Contains(t, out, "appliance (10.0.0.99) [unsupported] online STALE")
}
