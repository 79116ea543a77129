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
	aptSyncCommand  = "apt-get update"
	aptFetchCommand = "apt-get dist-upgrade -s"
)

// aptInstPattern matches simulated upgrade lines:
//
//	Inst netdata [2.6.3] (2.7.0 Debian:12.12/stable [amd64])
//
// The bracketed current version is absent for newly introduced packages.
var aptInstPattern = regexp.MustCompile(
	`^Inst\s+(\S+)\s+(?:\[([^\]]+)\]\s+)?\((\S+)\s+(.+?)\s+\[[^\]]+\]\)`,
)

// Apt implements the provider for the Debian/Ubuntu family.
type Apt struct {
	logger logger.Logger
}

var _ Provider = (*Apt)(nil)

func NewApt(log logger.Logger) *Apt {
	return &Apt{logger: log}
}

func (*Apt) Name() string { return TagApt }

// Requirements: apt-get update writes to /var/lib/apt and needs root; the
// simulated dist-upgrade is read-only.
func (*Apt) Requirements() models.PrivilegeRequirements {
	return models.PrivilegeRequirements{Sync: true, Fetch: false}
}

func (a *Apt) SyncRepositories(
	ctx context.Context, sess transport.Session, pol models.SudoPolicy) (models.SyncStatus, error) {
	if pol != models.PolicyNopasswd {
		return models.SyncSkippedPrivileged, nil
	}

	result, err := sess.Run(ctx, elevate(aptSyncCommand))
	if err != nil {
		return models.SyncFailed, err
	}

	if result.Failed() {
		return models.SyncFailed, fmt.Errorf("%w: apt-get update exited %d: %s",
			ErrRepoSyncFailed, result.ExitCode, strings.TrimSpace(result.Stderr))
	}

	return models.SyncDone, nil
}

func (a *Apt) FetchUpdates(ctx context.Context, sess transport.Session) ([]models.Update, error) {
	result, err := sess.Run(ctx, aptFetchCommand)
	if err != nil {
		return nil, err
	}

	if result.Failed() {
		return nil, fmt.Errorf("%w: %s exited %d: %s",
			ErrFetchFailed, aptFetchCommand, result.ExitCode, strings.TrimSpace(result.Stderr))
	}

	var (
		updates   []models.Update
		instLines int
	)

	for _, line := range strings.Split(result.Stdout, "\n") {
		line = strings.TrimSpace(line)

		if !strings.HasPrefix(line, "Inst ") {
			continue
		}

		instLines++

		update, ok := a.parseInstLine(line)
		if !ok {
			a.logger.Debug().Str("line", line).Msg("skipping unparseable apt Inst line")
			continue
		}

		updates = append(updates, update)
	}

	// Everything filtered out means the remote apt grammar moved under us.
	if instLines > 0 && len(updates) == 0 {
		return nil, fmt.Errorf("%w: no Inst line matched expected apt-get output format",
			models.ErrParse)
	}

	return updates, nil
}

func (*Apt) parseInstLine(line string) (models.Update, bool) {
	match := aptInstPattern.FindStringSubmatch(line)
	if match == nil {
		return models.Update{}, false
	}

	update := models.Update{
		PackageName: match[1],
		NewVersion:  match[3],
		Source:      strings.TrimSpace(match[4]),
	}

	if match[2] != "" {
		current := match[2]
		update.CurrentVersion = &current
	}

	update.Security = strings.Contains(strings.ToLower(update.Source), "security")

	return update, true
}
