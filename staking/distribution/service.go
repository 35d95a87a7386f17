// Copyright (c) 2026 The Stakemesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package distribution implements lazy reward settlement. Each reward asset
// has one flow carrying a per-point accumulator; rewards are released from
// the flow's curve whenever the flow is touched, never on a timer. Stakers
// settle in O(1) through a signed correction that freezes the value of past
// power changes.
package distribution

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/stakemesh/stakemesh/curve"
	"github.com/stakemesh/stakemesh/mesh"
	"github.com/stakemesh/stakemesh/schema"
	"github.com/stakemesh/stakemesh/staking/types"
)

var (
	slotFlows       = schema.NameToSlot("flows")
	slotFlowAssets  = schema.NameToSlot("flow-assets")
	slotFlowCount   = schema.NameToSlot("flow-count")
	slotAdjustments = schema.NameToSlot("adjustments")
)

// adjustmentKey addresses the settlement record of one staker in one flow.
type adjustmentKey struct {
	asset  types.Asset
	staker mesh.Address
}

func (k adjustmentKey) Bytes() []byte {
	return append([]byte(k.asset), k.staker.Bytes()...)
}

// Service manages reward flows and per staker settlement records.
type Service struct {
	cfg         *types.Config
	flows       *schema.Mapping[types.Asset, *Flow]
	flowAssets  *schema.Mapping[schema.U64Key, string]
	flowCount   *schema.Uint64
	adjustments *schema.Mapping[adjustmentKey, *Adjustment]
}

// New creates the distribution service on the given storage context.
func New(cfg *types.Config, sctx *schema.Context) *Service {
	return &Service{
		cfg:         cfg,
		flows:       schema.NewMapping[types.Asset, *Flow](sctx, slotFlows),
		flowAssets:  schema.NewMapping[schema.U64Key, string](sctx, slotFlowAssets),
		flowCount:   schema.NewUint64(sctx, slotFlowCount),
		adjustments: schema.NewMapping[adjustmentKey, *Adjustment](sctx, slotAdjustments),
	}
}

// Create registers a new flow for the asset. The tier set must be drawn from
// the configured tiers, and an asset can carry at most one flow.
func (s *Service) Create(asset types.Asset, manager mesh.Address, tiers []types.TierReward) error {
	if asset == s.cfg.BondToken {
		return types.ErrBondedToken
	}
	if len(tiers) == 0 {
		return errors.Wrap(types.ErrUnknownTier, "no tiers")
	}
	seen := make(map[types.Tier]struct{}, len(tiers))
	for _, tr := range tiers {
		if !s.cfg.HasTier(tr.Tier) {
			return errors.Wrapf(types.ErrUnknownTier, "tier %d", tr.Tier)
		}
		if _, ok := seen[tr.Tier]; ok {
			return errors.Wrapf(types.ErrUnknownTier, "duplicate tier %d", tr.Tier)
		}
		seen[tr.Tier] = struct{}{}
	}

	count, err := s.flowCount.Get()
	if err != nil {
		return err
	}
	if count >= s.cfg.MaxFlows {
		return types.ErrTooManyFlows
	}
	existing, err := s.flows.Get(asset)
	if err != nil {
		return err
	}
	if existing.TotalPoints != nil {
		return types.ErrFlowExists
	}

	if err := s.flowAssets.Set(schema.U64Key(count), string(asset)); err != nil {
		return err
	}
	s.flowCount.Set(count + 1)
	return s.flows.Set(asset, newFlow(manager, tiers))
}

// Get returns the flow of the asset, or ErrNoFlow.
func (s *Service) Get(asset types.Asset) (*Flow, error) {
	flow, err := s.flows.Get(asset)
	if err != nil {
		return nil, errors.Wrap(err, "get flow")
	}
	if flow.TotalPoints == nil {
		return nil, errors.Wrapf(types.ErrNoFlow, "asset %q", asset)
	}
	return flow, nil
}

// Assets lists the reward assets of all flows in creation order.
func (s *Service) Assets() ([]types.Asset, error) {
	count, err := s.flowCount.Get()
	if err != nil {
		return nil, err
	}
	assets := make([]types.Asset, 0, count)
	for i := uint64(0); i < count; i++ {
		asset, err := s.flowAssets.Get(schema.U64Key(i))
		if err != nil {
			return nil, err
		}
		assets = append(assets, types.Asset(asset))
	}
	return assets, nil
}

// Adjustment returns the settlement record of the staker in the flow.
func (s *Service) Adjustment(asset types.Asset, staker mesh.Address) (*Adjustment, error) {
	adj, err := s.adjustments.Get(adjustmentKey{asset, staker})
	if err != nil {
		return nil, errors.Wrap(err, "get adjustment")
	}
	adj.init()
	return adj, nil
}

// Fund adds amount to the flow with a relative release schedule. The
// schedule must start at amount, never grow, and vest down to zero; it is
// anchored at now and merged with whatever the flow already has scheduled.
func (s *Service) Fund(asset types.Asset, amount *big.Int, schedule *curve.Curve, now uint64) error {
	flow, err := s.Get(asset)
	if err != nil {
		return err
	}
	release(flow, now)

	if amount.Sign() <= 0 {
		return errors.Wrap(types.ErrMalformedCurve, "amount must be positive")
	}
	if err := schedule.ValidateNonIncreasing(); err != nil {
		return errors.Wrap(types.ErrMalformedCurve, err.Error())
	}
	if schedule.ValueAt(0).Cmp(amount) != 0 {
		return errors.Wrap(types.ErrMalformedCurve, "schedule must start at the funded amount")
	}
	end, ok := schedule.End()
	if !ok || schedule.ValueAt(end).Sign() != 0 {
		return errors.Wrap(types.ErrMalformedCurve, "schedule must vest down to zero")
	}

	anchored := schedule.Shift(now)
	if flow.Curve == nil {
		flow.Curve = anchored
	} else {
		flow.Curve = flow.Curve.Combine(anchored)
	}
	flow.Funded.Add(flow.Funded, amount)
	if err := guard(flow.Funded); err != nil {
		return err
	}
	return s.flows.Set(asset, flow)
}

// Release settles the flow up to now, moving everything the curve has
// unlocked since the last touch into the accumulator. It returns the
// amount released. Anyone may trigger it; it only advances state.
func (s *Service) Release(asset types.Asset, now uint64) (*big.Int, error) {
	flow, err := s.Get(asset)
	if err != nil {
		return nil, err
	}
	released := release(flow, now)
	if err := guard(flow.Accumulated); err != nil {
		return nil, err
	}
	return released, s.flows.Set(asset, flow)
}

// release moves unlocked funds into the accumulator, in memory.
// When the flow has no points the unlocked amount parks in the leftover,
// still shifted, and is paid out by the next release that finds points.
func release(flow *Flow, now uint64) *big.Int {
	unlocked := new(big.Int)
	if flow.Curve != nil {
		unlocked.Sub(flow.Funded, flow.Curve.ValueAt(now))
		unlocked.Sub(unlocked, flow.Distributed)
		if unlocked.Sign() < 0 {
			unlocked.SetInt64(0)
		}
		flow.Distributed.Add(flow.Distributed, unlocked)
	}

	shifted := new(big.Int).Lsh(unlocked, shiftBits)
	shifted.Add(shifted, flow.Leftover)
	if flow.TotalPoints.Sign() > 0 && shifted.Sign() > 0 {
		inc, rem := new(big.Int).QuoRem(shifted, flow.TotalPoints, new(big.Int))
		flow.Accumulated.Add(flow.Accumulated, inc)
		flow.Leftover = rem
	} else {
		flow.Leftover = shifted
	}
	return unlocked
}

// PowerChange settles the flow and moves the staker to newPoints. The
// correction is adjusted so that rewards already accrued stay with the
// staker and future rewards follow the new weight.
func (s *Service) PowerChange(asset types.Asset, staker mesh.Address, newPoints *big.Int, now uint64) error {
	flow, err := s.Get(asset)
	if err != nil {
		return err
	}
	release(flow, now)

	adj, err := s.Adjustment(asset, staker)
	if err != nil {
		return err
	}
	delta := new(big.Int).Sub(newPoints, adj.Points)
	if delta.Sign() == 0 {
		return s.flows.Set(asset, flow)
	}

	correction := adj.correction()
	correction.Sub(correction, new(big.Int).Mul(flow.Accumulated, delta))
	adj.setCorrection(correction)
	adj.Points = new(big.Int).Set(newPoints)

	flow.TotalPoints.Add(flow.TotalPoints, delta)
	if flow.TotalPoints.Sign() < 0 {
		return errors.New("total points below zero")
	}
	if err := guard(flow.TotalPoints, flow.Accumulated, adj.Correction); err != nil {
		return err
	}

	if err := s.adjustments.Set(adjustmentKey{asset, staker}, adj); err != nil {
		return err
	}
	return s.flows.Set(asset, flow)
}

// Withdrawable returns what the staker could withdraw from the flow at now,
// including funds the curve has unlocked but nobody has released yet.
func (s *Service) Withdrawable(asset types.Asset, staker mesh.Address, now uint64) (*big.Int, error) {
	flow, err := s.Get(asset)
	if err != nil {
		return nil, err
	}
	release(flow, now)
	adj, err := s.Adjustment(asset, staker)
	if err != nil {
		return nil, err
	}
	return withdrawable(flow, adj), nil
}

// Totals reports the flow's distributed, undistributed and withdrawable
// amounts as of now, counting funds the curve has unlocked but nobody has
// released yet.
func (s *Service) Totals(asset types.Asset, now uint64) (distributed, undistributed, claimable *big.Int, err error) {
	flow, err := s.Get(asset)
	if err != nil {
		return nil, nil, nil, err
	}
	release(flow, now)
	distributed = flow.Distributed
	undistributed = flow.Undistributed()
	claimable = new(big.Int).Sub(flow.Distributed, flow.Withdrawn)
	return distributed, undistributed, claimable, nil
}

// Withdraw settles the flow and marks the staker's full withdrawable amount
// as paid out. The returned amount may be zero; transferring it is up to
// the caller.
func (s *Service) Withdraw(asset types.Asset, staker mesh.Address, now uint64) (*big.Int, error) {
	flow, err := s.Get(asset)
	if err != nil {
		return nil, err
	}
	release(flow, now)
	adj, err := s.Adjustment(asset, staker)
	if err != nil {
		return nil, err
	}

	amount := withdrawable(flow, adj)
	if amount.Sign() == 0 {
		return amount, s.flows.Set(asset, flow)
	}
	adj.Withdrawn.Add(adj.Withdrawn, amount)
	flow.Withdrawn.Add(flow.Withdrawn, amount)

	if err := s.adjustments.Set(adjustmentKey{asset, staker}, adj); err != nil {
		return nil, err
	}
	return amount, s.flows.Set(asset, flow)
}

// withdrawable computes the settled entitlement minus what was already paid.
func withdrawable(flow *Flow, adj *Adjustment) *big.Int {
	earned := new(big.Int).Mul(adj.Points, flow.Accumulated)
	earned.Add(earned, adj.correction())
	earned.Rsh(earned, shiftBits)
	earned.Sub(earned, adj.Withdrawn)
	if earned.Sign() < 0 {
		return new(big.Int)
	}
	return earned
}

// guard rejects values that no longer fit a 256 bit storage word.
func guard(values ...*big.Int) error {
	for _, v := range values {
		if _, overflow := uint256.FromBig(v); overflow {
			return types.ErrOverflow
		}
	}
	return nil
}
