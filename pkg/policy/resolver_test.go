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

package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/carverauto/patchradar/pkg/models"
)

func TestEffective(t *testing.T) {
	nopasswd := models.PolicyNopasswd
	skip := models.PolicySkip
	invalid := models.SudoPolicy("always-ask")

	tests := []struct {
		name   string
		global models.SudoPolicy
		host   *models.Host
		want   models.SudoPolicy
	}{
		{"global default applies without override", models.PolicySkip, &models.Host{Name: "a"}, models.PolicySkip},
		{"host override wins", models.PolicySkip, &models.Host{Name: "a", SudoPolicy: &nopasswd}, models.PolicyNopasswd},
		{"host may restrict below a permissive global", models.PolicyNopasswd, &models.Host{Name: "a", SudoPolicy: &skip}, models.PolicySkip},
		{"invalid host override falls back to global", models.PolicyNopasswd, &models.Host{Name: "a", SudoPolicy: &invalid}, models.PolicyNopasswd},
		{"invalid global degrades to skip", models.SudoPolicy("bogus"), &models.Host{Name: "a"}, models.PolicySkip},
		{"nil host uses global", models.PolicyNopasswd, nil, models.PolicyNopasswd},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(tt.global)
			assert.Equal(t, tt.want, r.Effective(tt.host))
		})
	}
}

func TestCanSync(t *testing.T) {
	nopasswd := models.PolicyNopasswd

	t.Run("unprivileged sync is always allowed", func(t *testing.T) {
		r := NewResolver(models.PolicySkip)
		assert.True(t, r.CanSync(&models.Host{Name: "a"}, models.PrivilegeRequirements{Sync: false}))
	})

	t.Run("privileged sync needs nopasswd", func(t *testing.T) {
		req := models.PrivilegeRequirements{Sync: true}

		r := NewResolver(models.PolicySkip)
		assert.False(t, r.CanSync(&models.Host{Name: "a"}, req))
		assert.True(t, r.CanSync(&models.Host{Name: "a", SudoPolicy: &nopasswd}, req))

		r = NewResolver(models.PolicyNopasswd)
		assert.True(t, r.CanSync(&models.Host{Name: "a"}, req))
	})
}

func TestCanFetch(t *testing.T) {
	// No shipped provider needs elevation to fetch, but the gate must hold
	// if one ever does.
	r := NewResolver(models.PolicySkip)

	assert.True(t, r.CanFetch(&models.Host{Name: "a"}, models.PrivilegeRequirements{Fetch: false}))
	assert.False(t, r.CanFetch(&models.Host{Name: "a"}, models.PrivilegeRequirements{Fetch: true}))
}
