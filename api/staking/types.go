// Copyright (c) 2026 The Stakemesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"

	"github.com/stakemesh/stakemesh/curve"
	"github.com/stakemesh/stakemesh/mesh"
	"github.com/stakemesh/stakemesh/staking/types"
)

// TierReward is one tier's weight within a flow.
type TierReward struct {
	Tier       uint64 `json:"tier"`
	Multiplier uint32 `json:"multiplier"`
}

// Step is one breakpoint of a release schedule, relative to funding time.
type Step struct {
	X uint64                `json:"x"`
	Y *math.HexOrDecimal256 `json:"y"`
}

// FlowSummary describes one reward flow.
type FlowSummary struct {
	Asset         string                `json:"asset"`
	Manager       mesh.Address          `json:"manager"`
	Tiers         []TierReward          `json:"tiers"`
	TotalPoints   *math.HexOrDecimal256 `json:"totalPoints"`
	Funded        *math.HexOrDecimal256 `json:"funded"`
	Distributed   *math.HexOrDecimal256 `json:"distributed"`
	Undistributed *math.HexOrDecimal256 `json:"undistributed"`
	Claimable     *math.HexOrDecimal256 `json:"claimable"`
	Withdrawn     *math.HexOrDecimal256 `json:"withdrawn"`
}

// Reward is one asset's withdrawable balance.
type Reward struct {
	Asset  string                `json:"asset"`
	Amount *math.HexOrDecimal256 `json:"amount"`
}

// Payment is one decided payout. Moving the tokens is the caller's concern.
type Payment struct {
	Asset    string                `json:"asset"`
	Amount   *math.HexOrDecimal256 `json:"amount"`
	Receiver mesh.Address          `json:"receiver"`
}

// BondedPosition is one staker's bond at one tier.
type BondedPosition struct {
	Tier   uint64                `json:"tier"`
	Bonded *math.HexOrDecimal256 `json:"bonded"`
}

// StakerSummary describes one staker's positions.
type StakerSummary struct {
	Address             mesh.Address          `json:"address"`
	Positions           []BondedPosition      `json:"positions"`
	Total               *math.HexOrDecimal256 `json:"total"`
	DelegatedWithdrawal mesh.Address          `json:"delegatedWithdrawal"`
}

// AssetRate is one flow's annualized projection. Rate is per bonded token at
// 1e18 scale; null when the tier has no stake.
type AssetRate struct {
	Asset string                `json:"asset"`
	Rate  *math.HexOrDecimal256 `json:"rate"`
}

// TierRates groups annualized projections per tier.
type TierRates struct {
	Tier  uint64      `json:"tier"`
	Rates []AssetRate `json:"rates"`
}

// CreateFlowRequest creates a reward flow.
type CreateFlowRequest struct {
	Caller  mesh.Address `json:"caller"`
	Manager mesh.Address `json:"manager"`
	Asset   string       `json:"asset"`
	Tiers   []TierReward `json:"tiers"`
}

// FundRequest funds a flow under a relative release schedule.
type FundRequest struct {
	Caller   mesh.Address          `json:"caller"`
	Amount   *math.HexOrDecimal256 `json:"amount"`
	Schedule []Step                `json:"schedule"`
}

// BondRequest delegates or unbonds at one tier.
type BondRequest struct {
	Tier   uint64                `json:"tier"`
	Amount *math.HexOrDecimal256 `json:"amount"`
}

// RebondRequest moves a bond between tiers.
type RebondRequest struct {
	Amount *math.HexOrDecimal256 `json:"amount"`
	From   uint64                `json:"from"`
	To     uint64                `json:"to"`
}

// MassDelegateRequest credits many stakers from one funding source.
type MassDelegateRequest struct {
	Funder      mesh.Address          `json:"funder"`
	Total       *math.HexOrDecimal256 `json:"total"`
	Tier        uint64                `json:"tier"`
	Allocations []Allocation          `json:"allocations"`
}

// Allocation is one staker's share of a mass delegation.
type Allocation struct {
	Staker mesh.Address          `json:"staker"`
	Amount *math.HexOrDecimal256 `json:"amount"`
}

// WithdrawRequest settles and pays out accrued rewards.
type WithdrawRequest struct {
	Caller   mesh.Address `json:"caller"`
	Owner    mesh.Address `json:"owner"`
	Receiver mesh.Address `json:"receiver"`
}

// DelegateWithdrawalRequest points future withdrawals at a receiver.
type DelegateWithdrawalRequest struct {
	Receiver mesh.Address `json:"receiver"`
}

// HistoryEntry is one journal record.
type HistoryEntry struct {
	Sequence uint64                `json:"sequence"`
	Time     uint64                `json:"time"`
	Kind     string                `json:"kind"`
	Asset    string                `json:"asset,omitempty"`
	Staker   *mesh.Address         `json:"staker,omitempty"`
	Tier     uint64                `json:"tier,omitempty"`
	Amount   *math.HexOrDecimal256 `json:"amount,omitempty"`
	Receiver *mesh.Address         `json:"receiver,omitempty"`
}

func amount(v *big.Int) *math.HexOrDecimal256 {
	if v == nil {
		return nil
	}
	return (*math.HexOrDecimal256)(v)
}

func bigint(v *math.HexOrDecimal256) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return (*big.Int)(v)
}

func tierRewards(tiers []TierReward) []types.TierReward {
	out := make([]types.TierReward, len(tiers))
	for i, tr := range tiers {
		out[i] = types.TierReward{Tier: types.Tier(tr.Tier), Multiplier: tr.Multiplier}
	}
	return out
}

func schedule(steps []Step) (*curve.Curve, error) {
	converted := make([]curve.Step, len(steps))
	for i, s := range steps {
		converted[i] = curve.Step{X: s.X, Y: bigint(s.Y)}
	}
	return curve.PiecewiseLinear(converted)
}
