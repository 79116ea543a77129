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

package provider

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/carverauto/patchradar/pkg/logger"
	"github.com/carverauto/patchradar/pkg/models"
	"github.com/carverauto/patchradar/pkg/transport"
)

const (
	pkgSyncCommand  = "pkg update"
	pkgFetchCommand = "pkg upgrade -n"
	pkgAuditCommand = "pkg audit -q"

	// pkgSource is the only repository label the pkg family reports.
	pkgSource = "Packages Mirror"
)

// PkgVariant distinguishes the BSDs inside the pkg family. The fetch
// contract is shared; only the sync step differs.
type PkgVariant string

const (
	// VariantFreeBSD syncs the repository catalogue with an elevated
	// pkg update.
	VariantFreeBSD PkgVariant = "freebsd"

	// VariantOpenBSD needs no sync step; the mirrors are queried directly.
	VariantOpenBSD PkgVariant = "openbsd"
)

// pkgUpgradePattern matches upgrade lines: "name: 1.2.3 -> 1.2.4".
var pkgUpgradePattern = regexp.MustCompile(`^(\S+):\s+(\S+)\s+->\s+(\S+)$`)

// pkgInstallPattern matches new-install lines: "name: 1.2.3".
var pkgInstallPattern = regexp.MustCompile(`^(\S+):\s+(\S+)$`)

// Pkg implements the provider for the FreeBSD/OpenBSD family.
type Pkg struct {
	variant PkgVariant
	logger  logger.Logger
}

var _ Provider = (*Pkg)(nil)

func NewPkg(variant PkgVariant, log logger.Logger) *Pkg {
	return &Pkg{variant: variant, logger: log}
}

func (*Pkg) Name() string { return TagPkg }

func (p *Pkg) Requirements() models.PrivilegeRequirements {
	return models.PrivilegeRequirements{Sync: p.variant == VariantFreeBSD, Fetch: false}
}

func (p *Pkg) SyncRepositories(
	ctx context.Context, sess transport.Session, pol models.SudoPolicy) (models.SyncStatus, error) {
	if p.variant == VariantOpenBSD {
		p.logger.Debug().Msg("pkg repository sync is a no-op on OpenBSD")
		return models.SyncDone, nil
	}

	if pol != models.PolicyNopasswd {
		return models.SyncSkippedPrivileged, nil
	}

	result, err := sess.Run(ctx, elevate(pkgSyncCommand))
	if err != nil {
		return models.SyncFailed, err
	}

	if result.Failed() {
		return models.SyncFailed, fmt.Errorf("%w: pkg update exited %d: %s",
			ErrRepoSyncFailed, result.ExitCode, strings.TrimSpace(result.Stderr))
	}

	return models.SyncDone, nil
}

// FetchUpdates runs the dry-run upgrade and marks entries security-relevant
// when pkg audit lists the installed package-version as vulnerable.
func (p *Pkg) FetchUpdates(ctx context.Context, sess transport.Session) ([]models.Update, error) {
	vulnerable, err := p.auditVulnerable(ctx, sess)
	if err != nil {
		return nil, err
	}

	result, err := sess.Run(ctx, pkgFetchCommand)
	if err != nil {
		return nil, err
	}

	// pkg upgrade -n exits non-zero both on real failures and when it
	// merely has pending work; stderr is what separates the two.
	if result.Failed() && strings.TrimSpace(result.Stderr) != "" {
		return nil, fmt.Errorf("%w: pkg upgrade -n exited %d: %s",
			ErrFetchFailed, result.ExitCode, strings.TrimSpace(result.Stderr))
	}

	return p.parseUpgradeOutput(result.Stdout, vulnerable), nil
}

func (p *Pkg) auditVulnerable(ctx context.Context, sess transport.Session) (map[string]bool, error) {
	result, err := sess.Run(ctx, pkgAuditCommand)
	if err != nil {
		return nil, err
	}

	// pkg audit exits non-zero when vulnerabilities exist; only treat it
	// as a failure when it also complains on stderr.
	if result.Failed() && strings.TrimSpace(result.Stderr) != "" {
		return nil, fmt.Errorf("%w: pkg audit exited %d: %s",
			ErrFetchFailed, result.ExitCode, strings.TrimSpace(result.Stderr))
	}

	vulnerable := make(map[string]bool)

	for _, line := range strings.Split(result.Stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// Audit lines are "name-version" origins.
		vulnerable[line] = true
	}

	return vulnerable, nil
}

// parseUpgradeOutput walks the dry-run report. Upgrade lines carry both
// versions; bare "name: version" lines inside the INSTALLED section are
// new dependencies with no current version.
func (p *Pkg) parseUpgradeOutput(stdout string, vulnerable map[string]bool) []models.Update {
	var updates []models.Update

	inInstallSection := false

	for _, raw := range strings.Split(stdout, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if strings.HasSuffix(line, "INSTALLED:") {
			inInstallSection = true
			continue
		}

		if strings.HasSuffix(line, "UPGRADED:") || strings.HasSuffix(line, "REINSTALLED:") {
			inInstallSection = false
			continue
		}

		if match := pkgUpgradePattern.FindStringSubmatch(line); match != nil {
			current := match[2]

			updates = append(updates, models.Update{
				PackageName:    match[1],
				CurrentVersion: &current,
				NewVersion:     match[3],
				Source:         pkgSource,
				Security:       vulnerable[match[1]+"-"+current],
			})

			continue
		}

		if !inInstallSection {
			continue
		}

		if match := pkgInstallPattern.FindStringSubmatch(line); match != nil {
			updates = append(updates, models.Update{
				PackageName: match[1],
				NewVersion:  match[2],
				Source:      pkgSource,
			})
		}
	}

	return updates
}
