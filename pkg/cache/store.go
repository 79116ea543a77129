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

// Package cache persists inventory snapshots to a single versioned JSON
// artifact. Writes are atomic (temp file + rename) so a crash mid-write
// never corrupts the previous snapshot; loads migrate older schema
// versions and refuse unrecognized data explicitly.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/carverauto/patchradar/pkg/logger"
	"github.com/carverauto/patchradar/pkg/models"
)

// SchemaVersion is the current snapshot layout. Bump on any change to the
// persisted host/update fields and add a migration for the prior version.
const SchemaVersion = 2

const snapshotFileMode = 0o600

// remedialHint is appended to corruption errors so the operator knows the
// way out: the cache is derived state and can always be rebuilt.
const remedialHint = "clear the cache file and rediscover"

// Snapshot is the persisted artifact. Report consumers read it as-is and
// never need network access.
type Snapshot struct {
	SchemaVersion int            `json:"schema_version"`
	SnapshotTime  time.Time      `json:"snapshot_time"`
	Hosts         []*models.Host `json:"hosts"`
}

// Store reads and writes the snapshot file. Single-writer: Save calls are
// serialized internally.
type Store struct {
	mu     sync.Mutex
	path   string
	now    func() time.Time
	logger logger.Logger
}

// NewStore creates a store for the given snapshot path.
func NewStore(path string, log logger.Logger) *Store {
	return &Store{
		path:   path,
		now:    time.Now,
		logger: log,
	}
}

// Path returns the snapshot file location.
func (s *Store) Path() string {
	return s.path
}

// Save writes a full snapshot of the given hosts atomically. The hosts
// slice must already be detached from live inventory state (Snapshot()
// copies), and must contain only stable discovery states.
func (s *Store) Save(hosts []*models.Host) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &Snapshot{
		SchemaVersion: SchemaVersion,
		SnapshotTime:  s.now().UTC(),
		Hosts:         hosts,
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)

	tmp, err := os.CreateTemp(dir, ".patchradar-snapshot-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}

	tmpName := tmp.Name()

	// Any failure from here on must not leave the temp file behind.
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	if _, err = tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write snapshot: %w", err)
	}

	if err = tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync snapshot: %w", err)
	}

	if err = tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close snapshot: %w", err)
	}

	if err = os.Chmod(tmpName, snapshotFileMode); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("chmod snapshot: %w", err)
	}

	if err = os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace snapshot: %w", err)
	}

	s.logger.Debug().Str("path", s.path).Int("hosts", len(hosts)).Msg("snapshot saved")

	return nil
}

// Load reads the snapshot, migrating older schema versions in place.
// A missing file is a fresh start and returns (nil, nil). Unreadable or
// unrecognized data returns ErrCacheCorrupt with a remedial hint; it is
// never silently discarded.
func (s *Store) Load() (*Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Debug().Str("path", s.path).Msg("no snapshot file, starting fresh")
			return nil, nil
		}

		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var versionProbe struct {
		SchemaVersion int `json:"schema_version"`
	}

	if err := json.Unmarshal(data, &versionProbe); err != nil {
		return nil, fmt.Errorf("%w: not valid JSON (%v); %s", models.ErrCacheCorrupt, err, remedialHint)
	}

	switch versionProbe.SchemaVersion {
	case SchemaVersion:
		var snap Snapshot

		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, fmt.Errorf("%w: %v; %s", models.ErrCacheCorrupt, err, remedialHint)
		}

		return &snap, nil
	case legacySchemaVersion:
		snap, err := migrateV1(data)
		if err != nil {
			return nil, err
		}

		s.logger.Info().Str("path", s.path).Msg("migrated snapshot from schema v1")

		return snap, nil
	default:
		return nil, fmt.Errorf("%w: unrecognized schema version %d; %s",
			models.ErrCacheCorrupt, versionProbe.SchemaVersion, remedialHint)
	}
}
