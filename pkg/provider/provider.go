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

//go:generate mockgen -destination=mock_provider.go -package=provider github.com/carverauto/patchradar/pkg/provider Provider

// Package provider implements platform-specific update discovery for the
// supported package manager families: apt (Debian/Ubuntu), dnf/yum
// (RHEL/Fedora) and pkg (FreeBSD/OpenBSD). The set is closed; a host's
// provider is selected once at discovery time and stored as a tag.
package provider

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/carverauto/patchradar/pkg/logger"
	"github.com/carverauto/patchradar/pkg/models"
	"github.com/carverauto/patchradar/pkg/transport"
)

// Provider tags. Persisted in host state, so these are part of the cache
// contract and must stay stable.
const (
	TagApt = "apt"
	TagDnf = "dnf"
	TagYum = "yum"
	TagPkg = "pkg"
)

// Provider is the capability surface of one package manager family.
type Provider interface {
	Name() string

	// Requirements declares which operations need elevation on this
	// platform. Static per variant.
	Requirements() models.PrivilegeRequirements

	// SyncRepositories refreshes the remote package metadata cache.
	// When the operation needs elevation the resolved policy forbids, the
	// result is SyncSkippedPrivileged with a nil error so callers can tell
	// "not attempted" from "attempted and failed".
	SyncRepositories(ctx context.Context, sess transport.Session, pol models.SudoPolicy) (models.SyncStatus, error)

	// FetchUpdates returns the full pending update list for the host with
	// security flags already reconciled against the platform's security
	// query. Read-only on the remote side.
	FetchUpdates(ctx context.Context, sess transport.Session) ([]models.Update, error)
}

// rhelMajorWithDnf is the first RHEL-family major release shipping dnf.
const rhelMajorWithDnf = 8

var debianFlavors = map[string]bool{
	"debian": true,
	"ubuntu": true,
}

var rhelFlavors = map[string]bool{
	"rhel":      true,
	"redhat":    true,
	"centos":    true,
	"fedora":    true,
	"rocky":     true,
	"almalinux": true,
}

// ForPlatform selects the provider variant matching a detected platform.
// Returns false when no variant in the closed set applies.
func ForPlatform(osInfo *models.OSInfo, log logger.Logger) (Provider, bool) {
	if osInfo == nil {
		return nil, false
	}

	switch osInfo.Kind {
	case "linux":
		return forLinuxFlavor(osInfo, log)
	case "freebsd":
		return NewPkg(VariantFreeBSD, log), true
	case "openbsd":
		return NewPkg(VariantOpenBSD, log), true
	default:
		return nil, false
	}
}

func forLinuxFlavor(osInfo *models.OSInfo, log logger.Logger) (Provider, bool) {
	flavor := strings.ToLower(osInfo.Flavor)

	switch {
	case debianFlavors[flavor]:
		return NewApt(log), true
	case rhelFlavors[flavor]:
		if flavor == "fedora" || rhelMajor(osInfo.Version) >= rhelMajorWithDnf {
			return NewDnf(log), true
		}

		return NewYum(log), true
	default:
		return nil, false
	}
}

// rhelMajor extracts the major release number from a VERSION_ID string
// such as "9.4". Unparseable versions report 0, which selects yum, the
// variant present on every RHEL-family release.
func rhelMajor(version string) int {
	major, _, _ := strings.Cut(version, ".")

	n, err := strconv.Atoi(major)
	if err != nil {
		return 0
	}

	return n
}

// ByTag reconstructs the provider for a persisted tag. The OS descriptor
// disambiguates the pkg family variants.
func ByTag(tag string, osInfo *models.OSInfo, log logger.Logger) (Provider, error) {
	switch tag {
	case TagApt:
		return NewApt(log), nil
	case TagDnf:
		return NewDnf(log), nil
	case TagYum:
		return NewYum(log), nil
	case TagPkg:
		if osInfo != nil && osInfo.Kind == "openbsd" {
			return NewPkg(VariantOpenBSD, log), nil
		}

		return NewPkg(VariantFreeBSD, log), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider tag %q", models.ErrUnsupportedPlatform, tag)
	}
}

// elevate prefixes a command for passwordless sudo. Callers only reach
// this once the policy resolver has allowed elevation; -n guarantees a
// password prompt turns into an immediate failure, never a hang.
func elevate(command string) string {
	return "sudo -n " + command
}
