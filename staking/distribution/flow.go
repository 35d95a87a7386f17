// Copyright (c) 2026 The Stakemesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package distribution

import (
	"math/big"

	"github.com/stakemesh/stakemesh/curve"
	"github.com/stakemesh/stakemesh/mesh"
	"github.com/stakemesh/stakemesh/staking/types"
)

// shiftBits scales the per-point accumulator so that integer division
// loses less than one token unit per point over the lifetime of a flow.
const shiftBits = 32

// Flow is one reward distribution: a reward asset, its tier multipliers
// and the running settlement state. All amounts in Accumulated and
// Leftover are kept left-shifted by shiftBits.
type Flow struct {
	Manager     mesh.Address
	Tiers       []types.TierReward
	TotalPoints *big.Int
	Accumulated *big.Int
	Leftover    *big.Int
	Funded      *big.Int
	Distributed *big.Int
	Withdrawn   *big.Int
	Curve       *curve.Curve `rlp:"nil"`
}

func newFlow(manager mesh.Address, tiers []types.TierReward) *Flow {
	return &Flow{
		Manager:     manager,
		Tiers:       tiers,
		TotalPoints: new(big.Int),
		Accumulated: new(big.Int),
		Leftover:    new(big.Int),
		Funded:      new(big.Int),
		Distributed: new(big.Int),
		Withdrawn:   new(big.Int),
	}
}

// Multiplier returns the reward multiplier of the tier within this flow,
// zero for tiers the flow does not reward.
func (f *Flow) Multiplier(tier types.Tier) uint32 {
	for _, tr := range f.Tiers {
		if tr.Tier == tier {
			return tr.Multiplier
		}
	}
	return 0
}

// Undistributed returns the funded amount still held back by the curve.
func (f *Flow) Undistributed() *big.Int {
	return new(big.Int).Sub(f.Funded, f.Distributed)
}

// Adjustment is the per staker settlement record of one flow. The
// correction cannot be stored signed, so its magnitude and sign are
// kept apart.
type Adjustment struct {
	Points        *big.Int
	Correction    *big.Int
	CorrectionNeg bool
	Withdrawn     *big.Int
}

func (a *Adjustment) init() {
	if a.Points == nil {
		a.Points = new(big.Int)
	}
	if a.Correction == nil {
		a.Correction = new(big.Int)
	}
	if a.Withdrawn == nil {
		a.Withdrawn = new(big.Int)
	}
}

func (a *Adjustment) correction() *big.Int {
	c := new(big.Int).Set(a.Correction)
	if a.CorrectionNeg {
		c.Neg(c)
	}
	return c
}

func (a *Adjustment) setCorrection(c *big.Int) {
	a.CorrectionNeg = c.Sign() < 0
	a.Correction = new(big.Int).Abs(c)
}
