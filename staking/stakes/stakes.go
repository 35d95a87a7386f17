// Copyright (c) 2026 The Stakemesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package stakes derives reward power from bonded amounts.
package stakes

import (
	"math/big"

	"github.com/stakemesh/stakemesh/staking/types"
)

var percent = big.NewInt(100)

// Power computes the reward power of one bonded position:
//
//	power = bonded * multiplier / 100 / tokensPerPower
//
// floored, and zero whenever the position is below the minimum bond.
func Power(bonded *big.Int, multiplier uint32, cfg *types.Config) *big.Int {
	if bonded.Cmp(cfg.MinBond) < 0 {
		return new(big.Int)
	}
	power := new(big.Int).Mul(bonded, big.NewInt(int64(multiplier)))
	power.Quo(power, percent)
	return power.Quo(power, cfg.TokensPerPower)
}
