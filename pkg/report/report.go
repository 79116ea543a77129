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

// Package report builds read-only views over persisted snapshots. It is
// the only surface reporting collaborators consume, and it never touches
// the network or live inventory state.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/carverauto/patchradar/pkg/cache"
	"github.com/carverauto/patchradar/pkg/models"
)

// HostView is one host row of a report. Security partitioning is a filter
// over Updates, never a separate store.
type HostView struct {
	Name        string                `json:"name"`
	Address     string                `json:"address"`
	Description string                `json:"description,omitempty"`
	State       models.DiscoveryState `json:"state"`
	OS          *models.OSInfo        `json:"os,omitempty"`
	Online      bool                  `json:"online"`
	LastRefresh *time.Time            `json:"last_refresh,omitempty"`
	Stale       bool                  `json:"stale"`
	Updates     []models.Update       `json:"updates,omitempty"`
}

// SecurityUpdates returns the security-flagged subset of the host's
// pending updates.
func (h *HostView) SecurityUpdates() []models.Update {
	return models.FilterSecurity(h.Updates)
}

// View is a complete report over one snapshot.
type View struct {
	SnapshotTime time.Time  `json:"snapshot_time"`
	Hosts        []HostView `json:"hosts"`
}

// FromSnapshot derives a report view. Host order follows the snapshot,
// which follows inventory order. The stale flag is computed against the
// given threshold at the given instant.
func FromSnapshot(snap *cache.Snapshot, staleThreshold time.Duration, now time.Time) *View {
	view := &View{SnapshotTime: snap.SnapshotTime}

	for _, h := range snap.Hosts {
		view.Hosts = append(view.Hosts, HostView{
			Name:        h.Name,
			Address:     h.Address,
			Description: h.Description,
			State:       h.State,
			OS:          h.OS,
			Online:      h.Online,
			LastRefresh: h.LastRefresh,
			Stale:       h.IsStale(now, staleThreshold),
			Updates:     h.Updates,
		})
	}

	return view
}

// SecurityOnly returns a copy of the view with each host's update list
// narrowed to security updates. Hosts without security updates keep an
// empty list rather than disappearing, so the fleet shape stays visible.
func (v *View) SecurityOnly() *View {
	out := &View{SnapshotTime: v.SnapshotTime}

	for _, h := range v.Hosts {
		filtered := h
		filtered.Updates = h.SecurityUpdates()
		out.Hosts = append(out.Hosts, filtered)
	}

	return out
}

// WriteText renders the view as plain text, one host block per entry.
func (v *View) WriteText(w io.Writer) error {
	for i := range v.Hosts {
		h := &v.Hosts[i]

		status := "offline"
		if h.Online {
			status = "online"
		}

		if _, err := fmt.Fprintf(w, "%s (%s) [%s] %s", h.Name, h.Address, h.State, status); err != nil {
			return err
		}

		if h.Stale {
			if _, err := io.WriteString(w, " STALE"); err != nil {
				return err
			}
		}

		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}

		if h.OS != nil {
			if _, err := fmt.Fprintf(w, "  os: %s %s %s\n", h.OS.Kind, h.OS.Flavor, h.OS.Version); err != nil {
				return err
			}
		}

		if h.LastRefresh != nil {
			if _, err := fmt.Fprintf(w, "  last refresh: %s\n", h.LastRefresh.Format(time.RFC3339)); err != nil {
				return err
			}
		}

		for _, u := range h.Updates {
			current := "(new)"
			if u.CurrentVersion != nil {
				current = *u.CurrentVersion
			}

			marker := ""
			if u.Security {
				marker = " [security]"
			}

			if _, err := fmt.Fprintf(w, "  %s: %s -> %s%s\n", u.PackageName, current, u.NewVersion, marker); err != nil {
				return err
			}
		}

		if i < len(v.Hosts)-1 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
	}

	return nil
}
