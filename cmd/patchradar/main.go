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

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/carverauto/patchradar/pkg/cache"
	"github.com/carverauto/patchradar/pkg/config"
	"github.com/carverauto/patchradar/pkg/inventory"
	"github.com/carverauto/patchradar/pkg/logger"
	"github.com/carverauto/patchradar/pkg/models"
	"github.com/carverauto/patchradar/pkg/report"
	"github.com/carverauto/patchradar/pkg/scheduler"
	"github.com/carverauto/patchradar/pkg/transport"
)

const defaultConfigPath = "/etc/patchradar/patchradar.json"

var errUsage = fmt.Errorf("usage: patchradar <discover|ping|refresh|report> [flags]")

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	if len(os.Args) < 2 {
		return errUsage
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "discover", "ping", "refresh":
		return runOperation(command, args)
	case "report":
		return runReport(args)
	default:
		return fmt.Errorf("%w (got %q)", errUsage, command)
	}
}

// app bundles the wired components one command invocation needs.
type app struct {
	cfg       *config.Config
	logger    logger.Logger
	inventory *inventory.Inventory
	store     *cache.Store
}

// setup loads configuration, restores the cached snapshot and wires the
// inventory. A corrupt cache aborts unless the operator explicitly chose
// to reset it.
func setup(ctx context.Context, configPath string, resetCache bool) (*app, error) {
	loader := config.NewLoader(nil)

	var cfg config.Config

	if err := loader.LoadAndValidate(ctx, configPath, &cfg); err != nil {
		return nil, err
	}

	appLogger, err := logger.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	dialer := transport.NewSSHDialer(&cfg.SSH, appLogger)

	inv, err := inventory.New(cfg.InventoryHosts(), dialer, cfg.InventoryOptions(), appLogger)
	if err != nil {
		return nil, err
	}

	store := cache.NewStore(cfg.Options.CacheFile, appLogger)

	snap, err := store.Load()
	if err != nil {
		if !resetCache {
			return nil, fmt.Errorf("%w (pass -reset-cache to discard it)", err)
		}

		appLogger.Warn().Err(err).Msg("discarding unreadable cache snapshot on operator request")
	}

	if snap != nil {
		inv.Restore(snap.Hosts)
	}

	return &app{cfg: &cfg, logger: appLogger, inventory: inv, store: store}, nil
}

func runOperation(command string, args []string) error {
	fs := flag.NewFlagSet(command, flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Path to patchradar config file")
	hostsFlag := fs.String("hosts", "", "Comma-separated host names (default: all)")
	resetCache := fs.Bool("reset-cache", false, "Discard an unreadable cache snapshot instead of aborting")

	var syncRepos *bool
	if command == "refresh" {
		syncRepos = fs.Bool("sync", false, "Sync package repositories before fetching updates")
	}

	_ = fs.Parse(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx, *configPath, *resetCache)
	if err != nil {
		return err
	}

	sched := scheduler.New(a.inventory, a.cfg.Options.Concurrency, a.logger)

	var results []*models.HostResult

	hosts := splitHosts(*hostsFlag)

	switch command {
	case "discover":
		results = sched.Discover(ctx, hosts)
	case "ping":
		results = sched.Ping(ctx, hosts)
	case "refresh":
		results = sched.Refresh(ctx, hosts, *syncRepos)
	}

	// Persist whatever completed, including partial runs cut short by an
	// interrupt.
	if err := a.store.Save(a.inventory.Snapshot()); err != nil {
		return err
	}

	printResults(results)

	return nil
}

func runReport(args []string) error {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Path to patchradar config file")
	securityOnly := fs.Bool("security", false, "Limit update lists to security updates")
	asJSON := fs.Bool("json", false, "Emit the report as JSON")
	_ = fs.Parse(args)

	ctx := context.Background()

	a, err := setup(ctx, *configPath, false)
	if err != nil {
		return err
	}

	snap, err := a.store.Load()
	if err != nil {
		return err
	}

	if snap == nil {
		return fmt.Errorf("no cache snapshot at %q; run refresh first", a.store.Path())
	}

	view := report.FromSnapshot(snap, a.inventory.StaleThreshold(), time.Now())

	if *securityOnly {
		view = view.SecurityOnly()
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(view)
	}

	return view.WriteText(os.Stdout)
}

func printResults(results []*models.HostResult) {
	for _, r := range results {
		switch {
		case r.Err != nil:
			fmt.Printf("%-20s FAILED (%s): %v\n", r.Host, r.ErrorKind, r.Err)
		case r.ErrorKind == models.ErrKindUnsupported:
			fmt.Printf("%-20s unsupported platform\n", r.Host)
		case r.Sync == models.SyncSkippedPrivileged:
			fmt.Printf("%-20s ok (repository sync skipped: privileged)\n", r.Host)
		default:
			fmt.Printf("%-20s ok\n", r.Host)
		}
	}
}

func splitHosts(flagValue string) []string {
	if flagValue == "" {
		return nil
	}

	var hosts []string

	for _, name := range strings.Split(flagValue, ",") {
		if name = strings.TrimSpace(name); name != "" {
			hosts = append(hosts, name)
		}
	}

	return hosts
}
