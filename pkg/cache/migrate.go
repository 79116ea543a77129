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

package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/carverauto/patchradar/pkg/models"
)

// legacySchemaVersion is the pre-2 snapshot layout: hosts keyed by "ip"
// instead of "address", updates naming packages with "name", a boolean
// "supported" field in place of the explicit discovery state, and flat
// platform fields instead of the os descriptor.
const legacySchemaVersion = 1

type v1Snapshot struct {
	SchemaVersion int       `json:"schema_version"`
	SnapshotTime  time.Time `json:"snapshot_time"`
	Hosts         []v1Host  `json:"hosts"`
}

type v1Host struct {
	Name        string `json:"name"`
	IP          string `json:"ip"`
	Port        int    `json:"port"`
	Username    string `json:"username"`
	Description string `json:"description"`

	OS             string `json:"os"`
	Flavor         string `json:"flavor"`
	Version        string `json:"version"`
	PackageManager string `json:"package_manager"`
	Supported      *bool  `json:"supported"`

	Online      bool       `json:"online"`
	LastRefresh *time.Time `json:"last_refresh"`
	Updates     []v1Update `json:"updates"`
	SudoPolicy  string     `json:"sudo_policy"`
}

type v1Update struct {
	Name           string  `json:"name"`
	CurrentVersion *string `json:"current_version"`
	NewVersion     string  `json:"new_version"`
	Security       bool    `json:"security"`
	Source         string  `json:"source"`
}

// migrateV1 upgrades a legacy snapshot in place. Every field the old
// schema carried survives the upgrade; only the representation changes.
func migrateV1(data []byte) (*Snapshot, error) {
	var old v1Snapshot

	if err := json.Unmarshal(data, &old); err != nil {
		return nil, fmt.Errorf("%w: schema v1 payload unreadable (%v); %s",
			models.ErrCacheCorrupt, err, remedialHint)
	}

	snap := &Snapshot{
		SchemaVersion: SchemaVersion,
		SnapshotTime:  old.SnapshotTime,
		Hosts:         make([]*models.Host, 0, len(old.Hosts)),
	}

	for i := range old.Hosts {
		snap.Hosts = append(snap.Hosts, migrateV1Host(&old.Hosts[i]))
	}

	return snap, nil
}

func migrateV1Host(old *v1Host) *models.Host {
	h := &models.Host{
		Name:        old.Name,
		Address:     old.IP,
		Port:        old.Port,
		Username:    old.Username,
		Description: old.Description,
		PkgManager:  old.PackageManager,
		Online:      old.Online,
		LastRefresh: old.LastRefresh,
		State:       v1State(old),
	}

	if old.OS != "" {
		h.OS = &models.OSInfo{
			Kind:    old.OS,
			Flavor:  old.Flavor,
			Version: old.Version,
		}
	}

	if old.SudoPolicy != "" {
		if pol, err := models.ParseSudoPolicy(old.SudoPolicy); err == nil {
			h.SudoPolicy = &pol
		}
	}

	for _, u := range old.Updates {
		h.Updates = append(h.Updates, models.Update{
			PackageName:    u.Name,
			CurrentVersion: u.CurrentVersion,
			NewVersion:     u.NewVersion,
			Security:       u.Security,
			Source:         u.Source,
		})
	}

	return h
}

// v1State derives the explicit discovery state the old schema only
// implied: an explicit unsupported marker wins, a bound package manager
// means discovered, anything else was never discovered.
func v1State(old *v1Host) models.DiscoveryState {
	if old.Supported != nil && !*old.Supported {
		return models.StateUnsupported
	}

	if old.PackageManager != "" {
		return models.StateDiscovered
	}

	return models.StateUnknown
}
