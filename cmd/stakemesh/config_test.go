// Copyright (c) 2026 The Stakemesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stakemesh/stakemesh/mesh"
	"github.com/stakemesh/stakemesh/staking/types"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, admin, err := loadConfig("")
	require.NoError(t, err)
	assert.True(t, admin.IsZero())
	assert.Equal(t, types.Asset("bond"), cfg.BondToken)
	assert.EqualValues(t, 1000, cfg.TokensPerPower.Int64())
	assert.Len(t, cfg.Tiers, 3)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
admin: "0x0000000000000000000000000000000000000042"
bondToken: atom
tokensPerPower: "500"
minBond: "2000"
tiers: [604800, 2592000]
maxFlows: 4
`), 0600))

	cfg, admin, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, mesh.MustParseAddress("0x0000000000000000000000000000000000000042"), admin)
	assert.Equal(t, types.Asset("atom"), cfg.BondToken)
	assert.EqualValues(t, 500, cfg.TokensPerPower.Int64())
	assert.EqualValues(t, 2000, cfg.MinBond.Int64())
	assert.Equal(t, []types.Tier{604800, 2592000}, cfg.Tiers)
	assert.EqualValues(t, 4, cfg.MaxFlows)
}

func TestLoadConfigMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`tokensPerPower: "-1"`), 0600))

	_, _, err := loadConfig(path)
	assert.ErrorContains(t, err, "tokensPerPower")
}
