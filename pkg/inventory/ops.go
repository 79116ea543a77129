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
	"context"
	"errors"
	"time"

	"github.com/carverauto/patchradar/pkg/models"
	"github.com/carverauto/patchradar/pkg/provider"
	"github.com/carverauto/patchradar/pkg/transport"
)

const pingCommand = "/bin/true"

// begin claims a host for an operation. It enforces the at-most-one
// in-flight rule, bumps the host's attempt generation and returns a
// detached snapshot for the worker to compute on.
func (inv *Inventory) begin(name string) (snap *models.Host, gen uint64, err error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	h, ok := inv.hosts[name]
	if !ok {
		return nil, 0, models.ErrHostNotFound
	}

	if inv.inflight[name] {
		return nil, 0, models.ErrRefreshInProgress
	}

	inv.inflight[name] = true
	inv.gen[name]++

	return h.DeepCopy(), inv.gen[name], nil
}

// end releases the in-flight claim.
func (inv *Inventory) end(name string) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	delete(inv.inflight, name)
}

// commit applies a mutation to the live host under the single-writer lock.
// A result from a superseded attempt generation is discarded, so a stale
// task can never overwrite a newer completed one.
func (inv *Inventory) commit(name string, gen uint64, mutate func(*models.Host)) bool {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	h, ok := inv.hosts[name]
	if !ok || inv.gen[name] != gen {
		return false
	}

	mutate(h)

	return true
}

// Discover opens a session, detects the platform and binds a provider.
// Connection and authentication failures leave the host in its previous
// state for a later retry. A host that answers but matches no provider
// resolves to Unsupported, which is a reported outcome, not an error.
func (inv *Inventory) Discover(ctx context.Context, name string) *models.HostResult {
	res := &models.HostResult{Host: name, Operation: models.OpDiscover, Sync: models.SyncNotRequested}
	start := time.Now()

	defer func() {
		res.Duration = time.Since(start)
		res.ErrorKind = models.KindOf(res.Err)
	}()

	snap, gen, err := inv.begin(name)
	if err != nil {
		res.Err = err
		return res
	}
	defer inv.end(name)

	inv.commit(name, gen, func(h *models.Host) {
		h.State = models.StateDiscovering
	})

	// On any non-committing exit, fall back to the pre-attempt state so
	// the transient Discovering marker never leaks.
	restore := func() {
		inv.commit(name, gen, func(h *models.Host) {
			h.State = snap.State
		})
	}

	sess, err := inv.dialer.Dial(ctx, inv.target(snap))
	if err != nil {
		restore()

		inv.commit(name, gen, func(h *models.Host) { h.Online = false })

		res.Err = err

		return res
	}

	defer func() {
		if closeErr := sess.Close(); closeErr != nil {
			inv.logger.Debug().Err(closeErr).Str("host", name).Msg("failed to close session")
		}
	}()

	osInfo, err := provider.Detect(ctx, sess, inv.logger)
	if err != nil {
		if errors.Is(err, models.ErrUnsupportedPlatform) {
			inv.markUnsupported(name, gen, res)
			return res
		}

		restore()

		res.Err = err

		return res
	}

	prov, ok := provider.ForPlatform(osInfo, inv.logger)
	if !ok {
		inv.logger.Info().Str("host", name).
			Str("kind", osInfo.Kind).Str("flavor", osInfo.Flavor).
			Msg("no provider matches detected platform")
		inv.markUnsupported(name, gen, res)

		return res
	}

	inv.commit(name, gen, func(h *models.Host) {
		h.State = models.StateDiscovered
		osCopy := *osInfo
		h.OS = &osCopy
		h.PkgManager = prov.Name()
		h.Online = true
	})

	inv.logger.Info().Str("host", name).
		Str("kind", osInfo.Kind).Str("flavor", osInfo.Flavor).Str("version", osInfo.Version).
		Str("provider", prov.Name()).
		Msg("host discovered")

	return res
}

// markUnsupported commits the stable Unsupported resolution. Reported via
// ErrorKind but with a nil error: the operation itself succeeded.
func (inv *Inventory) markUnsupported(name string, gen uint64, res *models.HostResult) {
	inv.commit(name, gen, func(h *models.Host) {
		h.State = models.StateUnsupported
		h.PkgManager = ""
		h.Online = true
	})

	res.ErrorKind = models.ErrKindUnsupported
}

// Ping runs a trivial command under a short timeout. The observable
// contract is binary online/offline; the failure cause is only logged.
func (inv *Inventory) Ping(ctx context.Context, name string) *models.HostResult {
	res := &models.HostResult{Host: name, Operation: models.OpPing, Sync: models.SyncNotRequested}
	start := time.Now()

	defer func() {
		res.Duration = time.Since(start)
		if res.ErrorKind == models.ErrKindNone {
			res.ErrorKind = models.KindOf(res.Err)
		}
	}()

	snap, gen, err := inv.begin(name)
	if err != nil {
		res.Err = err
		return res
	}
	defer inv.end(name)

	target := inv.target(snap)
	target.ConnectTimeout = inv.options.pingTimeout()
	target.CommandTimeout = inv.options.pingTimeout()
	target.MaxDialElapsed = inv.options.pingTimeout()

	online := false

	if sess, dialErr := inv.dialer.Dial(ctx, target); dialErr != nil {
		inv.logger.Debug().Err(dialErr).Str("host", name).Msg("ping dial failed")
		res.Err = dialErr
	} else {
		result, runErr := sess.Run(ctx, pingCommand)

		switch {
		case runErr != nil:
			inv.logger.Debug().Err(runErr).Str("host", name).Msg("ping command failed")
			res.Err = runErr
		case result.Failed():
			inv.logger.Debug().Int("exit_code", result.ExitCode).Str("host", name).Msg("ping exited non-zero")
			res.Err = models.ErrConnection
		default:
			online = true
		}

		if closeErr := sess.Close(); closeErr != nil {
			inv.logger.Debug().Err(closeErr).Str("host", name).Msg("failed to close ping session")
		}
	}

	inv.commit(name, gen, func(h *models.Host) {
		h.Online = online
	})

	return res
}

// Refresh queries pending updates via the bound provider, optionally
// syncing repositories first. On success the whole update list is replaced
// and last_refresh set; on any failure the previous list and timestamp
// stay untouched.
func (inv *Inventory) Refresh(ctx context.Context, name string, syncRepos bool) *models.HostResult {
	res := &models.HostResult{Host: name, Operation: models.OpRefresh, Sync: models.SyncNotRequested}
	start := time.Now()

	defer func() {
		res.Duration = time.Since(start)
		res.ErrorKind = models.KindOf(res.Err)
	}()

	snap, gen, err := inv.begin(name)
	if err != nil {
		res.Err = err
		return res
	}
	defer inv.end(name)

	if snap.State != models.StateDiscovered {
		res.Err = models.ErrOperationNotSupported
		return res
	}

	prov, err := provider.ByTag(snap.PkgManager, snap.OS, inv.logger)
	if err != nil {
		res.Err = err
		return res
	}

	sess, err := inv.dialer.Dial(ctx, inv.target(snap))
	if err != nil {
		inv.commit(name, gen, func(h *models.Host) { h.Online = false })

		res.Err = err

		return res
	}

	defer func() {
		if closeErr := sess.Close(); closeErr != nil {
			inv.logger.Debug().Err(closeErr).Str("host", name).Msg("failed to close session")
		}
	}()

	if syncRepos {
		if done := inv.syncRepositories(ctx, sess, prov, snap, res); !done {
			return res
		}
	}

	updates, err := prov.FetchUpdates(ctx, sess)
	if err != nil {
		res.Err = err
		return res
	}

	now := inv.now().UTC()

	inv.commit(name, gen, func(h *models.Host) {
		h.Updates = updates
		h.LastRefresh = &now
		h.Online = true
	})

	inv.logger.Info().Str("host", name).
		Int("updates", len(updates)).
		Int("security", len(models.FilterSecurity(updates))).
		Msg("host refreshed")

	return res
}

// syncRepositories runs the policy-gated sync step. Returns false when the
// refresh must stop (sync attempted and failed); a policy skip records a
// warning and lets the refresh proceed on the existing repository cache.
func (inv *Inventory) syncRepositories(
	ctx context.Context,
	sess transport.Session,
	prov provider.Provider,
	snap *models.Host,
	res *models.HostResult,
) bool {
	if !inv.resolver.CanSync(snap, prov.Requirements()) {
		inv.logger.Warn().Str("host", snap.Name).Str("provider", prov.Name()).
			Msg("repository sync needs elevation the sudo policy forbids; proceeding without sync")

		res.Sync = models.SyncSkippedPrivileged

		return true
	}

	status, err := prov.SyncRepositories(ctx, sess, inv.resolver.Effective(snap))
	res.Sync = status

	if err != nil {
		res.Err = err
		return false
	}

	if status == models.SyncSkippedPrivileged {
		inv.logger.Warn().Str("host", snap.Name).Str("provider", prov.Name()).
			Msg("provider skipped privileged repository sync")
	}

	return true
}
