// Copyright (c) 2026 The Stakemesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stakes

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stakemesh/stakemesh/staking/types"
)

func testConfig(minBond int64) *types.Config {
	return &types.Config{
		BondToken:      "bond",
		TokensPerPower: big.NewInt(1000),
		MinBond:        big.NewInt(minBond),
		Tiers:          []types.Tier{1000},
		MaxFlows:       6,
	}
}

func TestPower(t *testing.T) {
	cfg := testConfig(0)

	assert.Equal(t, big.NewInt(5), Power(big.NewInt(10_000), 50, cfg))
	assert.Equal(t, big.NewInt(10), Power(big.NewInt(10_000), 100, cfg))
	assert.Equal(t, big.NewInt(30), Power(big.NewInt(10_000), 300, cfg))
	assert.Equal(t, big.NewInt(4), Power(big.NewInt(2_000), 200, cfg))

	// flooring, never rounding up
	assert.Equal(t, big.NewInt(1), Power(big.NewInt(1_999), 100, cfg))
	assert.Zero(t, Power(big.NewInt(999), 100, cfg).Sign())
}

func TestPowerMinBond(t *testing.T) {
	cfg := testConfig(1000)

	assert.Zero(t, Power(big.NewInt(999), 300, cfg).Sign(), "below min bond has no power")
	assert.Equal(t, big.NewInt(1), Power(big.NewInt(1000), 100, cfg))
	assert.Zero(t, Power(big.NewInt(0), 100, cfg).Sign())
}

func TestPowerZeroMultiplier(t *testing.T) {
	cfg := testConfig(0)
	assert.Zero(t, Power(big.NewInt(50_000), 0, cfg).Sign())
}
