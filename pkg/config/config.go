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
	"errors"
	"fmt"
	"time"

	"github.com/carverauto/patchradar/pkg/inventory"
	"github.com/carverauto/patchradar/pkg/logger"
	"github.com/carverauto/patchradar/pkg/models"
	"github.com/carverauto/patchradar/pkg/transport"
)

const (
	defaultCacheFile = "patchradar.json"
)

var (
	errNoHosts         = errors.New("no hosts configured")
	errHostMissingName = errors.New("host entry missing name")
	errHostMissingAddr = errors.New("host entry missing address")
)

// HostConfig is one inventory entry as written by the operator.
type HostConfig struct {
	Name        string `json:"name" yaml:"name"`
	Address     string `json:"address" yaml:"address"`
	Port        int    `json:"port,omitempty" yaml:"port,omitempty"`
	Username    string `json:"username,omitempty" yaml:"username,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// SudoPolicy overrides the global default for this host when set.
	SudoPolicy string `json:"sudo_policy,omitempty" yaml:"sudo_policy,omitempty"`
}

// Options holds the global knobs for inventory operations.
type Options struct {
	SudoPolicy     string   `json:"sudo_policy,omitempty" yaml:"sudo_policy,omitempty"`
	StaleThreshold Duration `json:"stale_threshold,omitempty" yaml:"stale_threshold,omitempty"`
	ConnectTimeout Duration `json:"connect_timeout,omitempty" yaml:"connect_timeout,omitempty"`
	CommandTimeout Duration `json:"command_timeout,omitempty" yaml:"command_timeout,omitempty"`
	PingTimeout    Duration `json:"ping_timeout,omitempty" yaml:"ping_timeout,omitempty"`
	Concurrency    int      `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`
	CacheFile      string   `json:"cache_file,omitempty" yaml:"cache_file,omitempty"`
}

// Config is the full patchradar configuration file.
type Config struct {
	Logging *logger.Config      `json:"logging,omitempty" yaml:"logging,omitempty"`
	Options Options             `json:"options,omitempty" yaml:"options,omitempty"`
	SSH     transport.SSHConfig `json:"ssh,omitempty" yaml:"ssh,omitempty"`
	Hosts   []HostConfig        `json:"hosts" yaml:"hosts"`
}

var _ Validator = (*Config)(nil)

// Validate checks host entries and sudo policies and fills defaults.
func (c *Config) Validate() error {
	if len(c.Hosts) == 0 {
		return errNoHosts
	}

	if c.Options.CacheFile == "" {
		c.Options.CacheFile = defaultCacheFile
	}

	if c.Options.SudoPolicy != "" {
		if _, err := models.ParseSudoPolicy(c.Options.SudoPolicy); err != nil {
			return fmt.Errorf("options.sudo_policy: %w", err)
		}
	}

	for i := range c.Hosts {
		h := &c.Hosts[i]

		if h.Name == "" {
			return fmt.Errorf("%w (entry %d)", errHostMissingName, i)
		}

		if h.Address == "" {
			return fmt.Errorf("%w: %q", errHostMissingAddr, h.Name)
		}

		if h.SudoPolicy != "" {
			if _, err := models.ParseSudoPolicy(h.SudoPolicy); err != nil {
				return fmt.Errorf("host %q: %w", h.Name, err)
			}
		}
	}

	return nil
}

// InventoryHosts converts configured entries into inventory host records.
func (c *Config) InventoryHosts() []*models.Host {
	hosts := make([]*models.Host, 0, len(c.Hosts))

	for i := range c.Hosts {
		hc := &c.Hosts[i]

		h := &models.Host{
			Name:        hc.Name,
			Address:     hc.Address,
			Port:        hc.Port,
			Username:    hc.Username,
			Description: hc.Description,
			State:       models.StateUnknown,
		}

		if hc.SudoPolicy != "" {
			// Validate() already checked the value.
			pol := models.SudoPolicy(hc.SudoPolicy)
			h.SudoPolicy = &pol
		}

		hosts = append(hosts, h)
	}

	return hosts
}

// InventoryOptions converts the global options into the inventory's
// explicit operation context.
func (c *Config) InventoryOptions() inventory.Options {
	return inventory.Options{
		GlobalSudoPolicy: models.SudoPolicy(c.Options.SudoPolicy),
		StaleThreshold:   time.Duration(c.Options.StaleThreshold),
		ConnectTimeout:   time.Duration(c.Options.ConnectTimeout),
		CommandTimeout:   time.Duration(c.Options.CommandTimeout),
		PingTimeout:      time.Duration(c.Options.PingTimeout),
	}
}
