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

// Package scheduler fans per-host operations out across a bounded worker
// pool. One host's failure never aborts its siblings; results come back
// in inventory order regardless of completion order.
package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/carverauto/patchradar/pkg/inventory"
	"github.com/carverauto/patchradar/pkg/logger"
	"github.com/carverauto/patchradar/pkg/models"
)

// defaultConcurrency bounds parallel transport sessions when the caller
// does not configure a pool size.
const defaultConcurrency = 15

var errCancelled = errors.New("operation cancelled")

// Scheduler dispatches inventory operations concurrently.
type Scheduler struct {
	inventory   *inventory.Inventory
	concurrency int
	logger      logger.Logger
}

// New creates a scheduler over an inventory. A non-positive concurrency
// falls back to the default pool size.
func New(inv *inventory.Inventory, concurrency int, log logger.Logger) *Scheduler {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	return &Scheduler{
		inventory:   inv,
		concurrency: concurrency,
		logger:      log,
	}
}

// Discover runs platform detection on the selected hosts (nil selects all).
func (s *Scheduler) Discover(ctx context.Context, hosts []string) []*models.HostResult {
	return s.run(ctx, hosts, models.OpDiscover, func(ctx context.Context, name string) *models.HostResult {
		return s.inventory.Discover(ctx, name)
	})
}

// Ping checks reachability of the selected hosts (nil selects all).
func (s *Scheduler) Ping(ctx context.Context, hosts []string) []*models.HostResult {
	return s.run(ctx, hosts, models.OpPing, func(ctx context.Context, name string) *models.HostResult {
		return s.inventory.Ping(ctx, name)
	})
}

// Refresh queries pending updates on the selected hosts (nil selects all),
// optionally syncing repositories first.
func (s *Scheduler) Refresh(ctx context.Context, hosts []string, syncRepos bool) []*models.HostResult {
	return s.run(ctx, hosts, models.OpRefresh, func(ctx context.Context, name string) *models.HostResult {
		return s.inventory.Refresh(ctx, name, syncRepos)
	})
}

// run is the fan-out core. Workers write only their own result slot, so
// the slice needs no lock; ordering is fixed by selection before any task
// starts. Cancellation stops new dispatch immediately while letting
// in-flight tasks finish at their own timeout boundary.
func (s *Scheduler) run(
	ctx context.Context,
	hosts []string,
	op models.Operation,
	fn func(context.Context, string) *models.HostResult,
) []*models.HostResult {
	selected, missing := s.selectHosts(hosts)

	runID := uuid.New().String()

	s.logger.Info().Str("run_id", runID).Str("operation", string(op)).
		Int("hosts", len(selected)).Int("concurrency", s.concurrency).
		Msg("starting scheduled operation")

	results := make([]*models.HostResult, len(selected))

	var g errgroup.Group

	g.SetLimit(s.concurrency)

	for i, name := range selected {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = cancelledResult(name, op, err)
				return nil
			}

			results[i] = fn(ctx, name)

			return nil
		})
	}

	// Workers never return errors; isolation is the whole point.
	_ = g.Wait()

	for _, name := range missing {
		results = append(results, &models.HostResult{
			Host:      name,
			Operation: op,
			Err:       models.ErrHostNotFound,
			ErrorKind: models.KindOf(models.ErrHostNotFound),
			Sync:      models.SyncNotRequested,
		})
	}

	ok := 0

	for _, r := range results {
		if r.OK() {
			ok++
		}
	}

	s.logger.Info().Str("run_id", runID).Str("operation", string(op)).
		Int("ok", ok).Int("failed", len(results)-ok).
		Msg("scheduled operation complete")

	return results
}

// selectHosts resolves the requested host set against the inventory,
// preserving inventory order. Unknown names come back separately so they
// surface as per-host errors instead of being silently ignored.
func (s *Scheduler) selectHosts(requested []string) (selected, missing []string) {
	names := s.inventory.Names()

	if len(requested) == 0 {
		return names, nil
	}

	want := make(map[string]bool, len(requested))
	for _, name := range requested {
		want[name] = true
	}

	for _, name := range names {
		if want[name] {
			selected = append(selected, name)
			delete(want, name)
		}
	}

	for _, name := range requested {
		if want[name] {
			missing = append(missing, name)
			delete(want, name)
		}
	}

	return selected, missing
}

func cancelledResult(name string, op models.Operation, cause error) *models.HostResult {
	err := fmt.Errorf("%w: %w", errCancelled, cause)

	return &models.HostResult{
		Host:      name,
		Operation: op,
		Err:       err,
		ErrorKind: models.KindOf(err),
		Sync:      models.SyncNotRequested,
	}
}
