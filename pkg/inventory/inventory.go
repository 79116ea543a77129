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

// Package inventory owns the set of managed hosts and implements the
// per-host discover, ping and refresh operations. All host mutation goes
// through the inventory's single-writer commit step; workers compute on
// detached copies and never touch live state directly.
package inventory

import (
	"fmt"
	"sync"
	"time"

	"github.com/carverauto/patchradar/pkg/logger"
	"github.com/carverauto/patchradar/pkg/models"
	"github.com/carverauto/patchradar/pkg/policy"
	"github.com/carverauto/patchradar/pkg/transport"
)

const (
	defaultSSHPort        = 22
	defaultStaleThreshold = 24 * time.Hour
	defaultPingTimeout    = 5 * time.Second
)

// Options is the explicit context for inventory operations: the global
// sudo default and the network timeouts. Passed in rather than read from
// process-wide state.
type Options struct {
	GlobalSudoPolicy models.SudoPolicy
	StaleThreshold   time.Duration
	ConnectTimeout   time.Duration
	CommandTimeout   time.Duration
	PingTimeout      time.Duration
}

func (o *Options) staleThreshold() time.Duration {
	if o.StaleThreshold > 0 {
		return o.StaleThreshold
	}

	return defaultStaleThreshold
}

func (o *Options) pingTimeout() time.Duration {
	if o.PingTimeout > 0 {
		return o.PingTimeout
	}

	return defaultPingTimeout
}

// Inventory is the authoritative host registry. Insertion order is
// preserved so results and reports are deterministic.
type Inventory struct {
	mu       sync.RWMutex
	hosts    map[string]*models.Host
	order    []string
	inflight map[string]bool
	gen      map[string]uint64

	dialer   transport.Dialer
	resolver *policy.Resolver
	options  Options
	now      func() time.Time
	logger   logger.Logger
}

var errDuplicateHost = fmt.Errorf("duplicate host name in inventory")

// New builds an inventory from configuration-derived hosts. Host names
// must be unique; every host starts in its configured state (normally
// StateUnknown) until Restore or discovery says otherwise.
func New(hosts []*models.Host, dialer transport.Dialer, opts Options, log logger.Logger) (*Inventory, error) {
	inv := &Inventory{
		hosts:    make(map[string]*models.Host, len(hosts)),
		order:    make([]string, 0, len(hosts)),
		inflight: make(map[string]bool),
		gen:      make(map[string]uint64),
		dialer:   dialer,
		resolver: policy.NewResolver(opts.GlobalSudoPolicy),
		options:  opts,
		now:      time.Now,
		logger:   log,
	}

	for _, h := range hosts {
		if _, exists := inv.hosts[h.Name]; exists {
			return nil, fmt.Errorf("%w: %q", errDuplicateHost, h.Name)
		}

		hostCopy := h.DeepCopy()

		if hostCopy.Port == 0 {
			hostCopy.Port = defaultSSHPort
		}

		if hostCopy.State == "" {
			hostCopy.State = models.StateUnknown
		}

		inv.hosts[hostCopy.Name] = hostCopy
		inv.order = append(inv.order, hostCopy.Name)
	}

	return inv, nil
}

// Names returns host names in insertion order.
func (inv *Inventory) Names() []string {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	out := make([]string, len(inv.order))
	copy(out, inv.order)

	return out
}

// Len returns the number of hosts.
func (inv *Inventory) Len() int {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	return len(inv.order)
}

// Get returns a detached copy of a host.
func (inv *Inventory) Get(name string) (*models.Host, bool) {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	h, ok := inv.hosts[name]
	if !ok {
		return nil, false
	}

	return h.DeepCopy(), true
}

// Snapshot returns detached copies of all hosts in insertion order, with
// transient states collapsed to their stable form. This is the view the
// cache persists and reports consume.
func (inv *Inventory) Snapshot() []*models.Host {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	out := make([]*models.Host, 0, len(inv.order))

	for _, name := range inv.order {
		h := inv.hosts[name].DeepCopy()

		if !h.State.Stable() {
			h.State = models.StateUnknown
		}

		out = append(out, h)
	}

	return out
}

// StaleThreshold exposes the configured freshness threshold for report
// consumers.
func (inv *Inventory) StaleThreshold() time.Duration {
	return inv.options.staleThreshold()
}

// Restore merges a persisted snapshot into the configured inventory.
// Configuration is the identity authority: address, port, username,
// description and sudo policy always come from config, while discovery
// and refresh state come from the cache. Cached hosts absent from the
// configuration are dropped, which prunes them on the next save.
func (inv *Inventory) Restore(cached []*models.Host) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	byName := make(map[string]*models.Host, len(cached))
	for _, c := range cached {
		byName[c.Name] = c
	}

	for _, name := range inv.order {
		c, ok := byName[name]
		if !ok {
			continue
		}

		h := inv.hosts[name]

		h.State = c.State
		if !h.State.Stable() {
			h.State = models.StateUnknown
		}

		h.OS = nil
		if c.OS != nil {
			osCopy := *c.OS
			h.OS = &osCopy
		}

		h.PkgManager = c.PkgManager
		h.Online = c.Online

		h.LastRefresh = nil
		if c.LastRefresh != nil {
			ts := *c.LastRefresh
			h.LastRefresh = &ts
		}

		h.Updates = nil
		for i := range c.Updates {
			h.Updates = append(h.Updates, *c.Updates[i].DeepCopy())
		}
	}
}

// target builds the transport endpoint for a host snapshot.
func (inv *Inventory) target(h *models.Host) transport.Target {
	return transport.Target{
		Address:        h.Address,
		Port:           h.Port,
		Username:       h.Username,
		ConnectTimeout: inv.options.ConnectTimeout,
		CommandTimeout: inv.options.CommandTimeout,
	}
}
