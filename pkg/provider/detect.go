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

const (
	unameKernelCommand  = "uname -s"
	unameReleaseCommand = "uname -r"

	osReleaseIDCommand      = "grep ^ID= /etc/os-release"
	osReleaseIDLikeCommand  = "grep ^ID_LIKE= /etc/os-release"
	osReleaseVersionCommand = "grep ^VERSION_ID= /etc/os-release"
)

// Detect runs the fixed detection sequence over an open session and
// returns the platform descriptor. A remote that cannot answer uname is
// not POSIX-like and reports ErrUnsupportedPlatform; transport failures
// pass through with their own classification. A successfully detected
// platform may still have no matching provider, which the caller resolves
// via ForPlatform.
func Detect(ctx context.Context, sess transport.Session, log logger.Logger) (*models.OSInfo, error) {
	result, err := sess.Run(ctx, unameKernelCommand)
	if err != nil {
		return nil, err
	}

	if result.Failed() {
		return nil, fmt.Errorf("%w: uname -s exited %d, remote is not POSIX-like",
			models.ErrUnsupportedPlatform, result.ExitCode)
	}

	kind := strings.ToLower(strings.TrimSpace(result.Stdout))
	if kind == "" || strings.ContainsAny(kind, " \t") {
		return nil, fmt.Errorf("%w: unrecognized uname output %q",
			models.ErrUnsupportedPlatform, strings.TrimSpace(result.Stdout))
	}

	osInfo := &models.OSInfo{Kind: kind}

	switch kind {
	case "linux":
		if err := detectLinux(ctx, sess, osInfo, log); err != nil {
			return nil, err
		}
	case "freebsd", "openbsd":
		osInfo.Flavor = kind

		if release, runErr := sess.Run(ctx, unameReleaseCommand); runErr == nil && !release.Failed() {
			osInfo.Version = strings.TrimSpace(release.Stdout)
		}
	default:
		// POSIX-like but unknown kernel: leave flavor empty so no
		// provider matches and the host resolves to unsupported.
		log.Debug().Str("kind", kind).Msg("no detection rules for kernel")
	}

	return osInfo, nil
}

// detectLinux fills flavor and version from /etc/os-release. The ID field
// wins; when it names no supported family, the first supported entry of
// ID_LIKE does.
func detectLinux(ctx context.Context, sess transport.Session, osInfo *models.OSInfo, log logger.Logger) error {
	idResult, err := sess.Run(ctx, osReleaseIDCommand)
	if err != nil {
		return err
	}

	if idResult.Failed() {
		// No os-release: an identifiable kernel with an unidentifiable
		// distribution, which no provider can serve.
		log.Debug().Msg("no usable /etc/os-release ID field")
		return nil
	}

	id := strings.ToLower(parseOSReleaseValue(idResult.Stdout))
	osInfo.Flavor = id

	if !debianFlavors[id] && !rhelFlavors[id] {
		likeResult, runErr := sess.Run(ctx, osReleaseIDLikeCommand)
		if runErr != nil {
			return runErr
		}

		if !likeResult.Failed() {
			for _, like := range strings.Fields(parseOSReleaseValue(likeResult.Stdout)) {
				like = strings.ToLower(like)

				if debianFlavors[like] || rhelFlavors[like] {
					log.Debug().Str("id", id).Str("like", like).Msg("matched flavor via ID_LIKE")
					osInfo.Flavor = like

					break
				}
			}
		}
	}

	versionResult, err := sess.Run(ctx, osReleaseVersionCommand)
	if err != nil {
		return err
	}

	if !versionResult.Failed() {
		osInfo.Version = parseOSReleaseValue(versionResult.Stdout)
	}

	return nil
}

// parseOSReleaseValue extracts the value of a KEY=value or KEY="value"
// os-release line.
func parseOSReleaseValue(line string) string {
	_, value, found := strings.Cut(strings.TrimSpace(line), "=")
	if !found {
		return ""
	}

	return strings.Trim(value, `"'`)
}
