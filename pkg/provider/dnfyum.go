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
	"strings"

	"github.com/carverauto/patchradar/pkg/logger"
	"github.com/carverauto/patchradar/pkg/models"
	"github.com/carverauto/patchradar/pkg/transport"
)

// checkUpdateExitUpdates is the exit status dnf/yum check-update uses to
// signal pending updates; 0 means none, anything else is a real failure.
const checkUpdateExitUpdates = 100

const rpmInstalledQuery = `rpm -qa --queryformat '%{NAME} %{EVR}\n'`

// obsoletingMarker starts the trailing check-update section we never parse.
const obsoletingMarker = "Obsoleting Packages"

// checkUpdateHeaderPrefixes are informational lines dnf and yum print ahead
// of the package rows. --quiet suppresses them on current releases, but
// older yum emits "Loaded plugins" regardless, so they are filtered here
// too before the column splitter sees them.
var checkUpdateHeaderPrefixes = []string{
	"Last metadata expiration check",
	"Loaded plugins",
	"Security:",
}

// DnfYum implements the provider for the RHEL/Fedora family. Yum is the
// same logic with a different binary name, so both variants share this
// type.
type DnfYum struct {
	binary string
	logger logger.Logger
}

var _ Provider = (*DnfYum)(nil)

func NewDnf(log logger.Logger) *DnfYum {
	return &DnfYum{binary: TagDnf, logger: log}
}

func NewYum(log logger.Logger) *DnfYum {
	return &DnfYum{binary: TagYum, logger: log}
}

func (d *DnfYum) Name() string { return d.binary }

// Requirements: makecache and check-update both run unprivileged.
func (*DnfYum) Requirements() models.PrivilegeRequirements {
	return models.PrivilegeRequirements{Sync: false, Fetch: false}
}

func (d *DnfYum) SyncRepositories(
	ctx context.Context, sess transport.Session, _ models.SudoPolicy) (models.SyncStatus, error) {
	command := fmt.Sprintf("%s makecache --refresh", d.binary)

	result, err := sess.Run(ctx, command)
	if err != nil {
		return models.SyncFailed, err
	}

	if result.Failed() {
		return models.SyncFailed, fmt.Errorf("%w: %s exited %d: %s",
			ErrRepoSyncFailed, command, result.ExitCode, strings.TrimSpace(result.Stderr))
	}

	return models.SyncDone, nil
}

// FetchUpdates reconciles three queries: the combined check-update list
// (authoritative for names, versions and sources), the security-only
// check-update list (flag source only) and one rpm pass for installed
// versions. A package pending with no installed version is a newly
// introduced dependency.
func (d *DnfYum) FetchUpdates(ctx context.Context, sess transport.Session) ([]models.Update, error) {
	securityNames, err := d.securityUpdateNames(ctx, sess)
	if err != nil {
		return nil, err
	}

	installed, err := d.installedVersions(ctx, sess)
	if err != nil {
		return nil, err
	}

	command := fmt.Sprintf("%s check-update --quiet", d.binary)

	result, err := sess.Run(ctx, command)
	if err != nil {
		return nil, err
	}

	switch result.ExitCode {
	case 0:
		return nil, nil
	case checkUpdateExitUpdates:
	default:
		return nil, fmt.Errorf("%w: %s exited %d: %s",
			ErrFetchFailed, command, result.ExitCode, strings.TrimSpace(result.Stderr))
	}

	var updates []models.Update

	for _, line := range checkUpdateLines(result.Stdout) {
		name, version, source, ok := parseCheckUpdateLine(line)
		if !ok {
			d.logger.Debug().Str("line", line).Msg("skipping unparseable check-update line")
			continue
		}

		update := models.Update{
			PackageName: name,
			NewVersion:  version,
			Source:      source,
			Security:    securityNames[name],
		}

		if current, found := installed[stripArch(name)]; found {
			update.CurrentVersion = &current
		}

		updates = append(updates, update)
	}

	if len(updates) == 0 {
		// Exit 100 promised pending updates; an empty parse means the
		// output grammar drifted.
		return nil, fmt.Errorf("%w: check-update reported updates but none parsed", models.ErrParse)
	}

	return updates, nil
}

func (d *DnfYum) securityUpdateNames(ctx context.Context, sess transport.Session) (map[string]bool, error) {
	command := fmt.Sprintf("%s check-update --security --quiet", d.binary)

	result, err := sess.Run(ctx, command)
	if err != nil {
		return nil, err
	}

	names := make(map[string]bool)

	switch result.ExitCode {
	case 0:
		return names, nil
	case checkUpdateExitUpdates:
	default:
		return nil, fmt.Errorf("%w: %s exited %d: %s",
			ErrFetchFailed, command, result.ExitCode, strings.TrimSpace(result.Stderr))
	}

	for _, line := range checkUpdateLines(result.Stdout) {
		if name, _, _, ok := parseCheckUpdateLine(line); ok {
			names[name] = true
		}
	}

	return names, nil
}

func (d *DnfYum) installedVersions(ctx context.Context, sess transport.Session) (map[string]string, error) {
	result, err := sess.Run(ctx, rpmInstalledQuery)
	if err != nil {
		return nil, err
	}

	if result.Failed() {
		return nil, fmt.Errorf("%w: rpm query exited %d: %s",
			ErrFetchFailed, result.ExitCode, strings.TrimSpace(result.Stderr))
	}

	versions := make(map[string]string)

	for _, line := range strings.Split(result.Stdout, "\n") {
		name, version, found := strings.Cut(strings.TrimSpace(line), " ")
		if !found || name == "" {
			continue
		}

		// Multiple installed versions (kernel, etc.): keep the last one
		// rpm reports, which is the most recently installed.
		versions[name] = version
	}

	return versions, nil
}

// checkUpdateLines trims check-update output down to candidate package
// lines, dropping header chatter and stopping at the Obsoleting Packages
// section.
func checkUpdateLines(stdout string) []string {
	var lines []string

	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)

		if line == "" || isCheckUpdateHeader(line) {
			continue
		}

		if strings.HasPrefix(line, obsoletingMarker) {
			break
		}

		lines = append(lines, line)
	}

	return lines
}

func isCheckUpdateHeader(line string) bool {
	for _, prefix := range checkUpdateHeaderPrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}

	return false
}

// parseCheckUpdateLine splits "name.arch  version  repo" columns.
func parseCheckUpdateLine(line string) (name, version, source string, ok bool) {
	parts := strings.Fields(line)
	if len(parts) < 3 {
		return "", "", "", false
	}

	return parts[0], parts[1], parts[2], true
}

// stripArch removes the trailing ".arch" qualifier check-update appends to
// package names, yielding the bare rpm name.
func stripArch(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx <= 0 {
		return name
	}

	return name[:idx]
}
