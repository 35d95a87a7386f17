// Copyright (c) 2026 The Stakemesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package staking is the facade over the bonding ledger and the reward
// distribution engine. It enforces authorization and wraps every mutating
// operation in a checkpoint so a failing step never leaves partial state.
// The facade only decides amounts; moving tokens is the caller's concern.
package staking

import (
	"math"
	"math/big"
	"sync"

	"github.com/pkg/errors"

	"github.com/stakemesh/stakemesh/curve"
	"github.com/stakemesh/stakemesh/log"
	"github.com/stakemesh/stakemesh/mesh"
	"github.com/stakemesh/stakemesh/metrics"
	"github.com/stakemesh/stakemesh/schema"
	"github.com/stakemesh/stakemesh/staking/bonding"
	"github.com/stakemesh/stakemesh/staking/distribution"
	"github.com/stakemesh/stakemesh/staking/stakes"
	"github.com/stakemesh/stakemesh/staking/types"
	"github.com/stakemesh/stakemesh/state"
)

// SecondsPerYear is the extrapolation window of the annualized rewards query.
const SecondsPerYear = 31_536_000

var (
	logger = log.WithContext("pkg", "staking")

	slotDelegations = schema.NameToSlot("delegated-withdrawals")

	secondsPerYear = big.NewInt(SecondsPerYear)
	rateScale      = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

	metricsFlowsCreated = metrics.LazyLoadCounter("staking_flows_created_total")
	metricsReleased     = metrics.LazyLoadCounterVec("staking_released_total", []string{"asset"})
	metricsWithdrawals  = metrics.LazyLoadCounterVec("staking_withdrawals_total", []string{"asset"})
	metricsTotalBonded  = metrics.LazyLoadGauge("staking_total_bonded")
	metricsLeftover     = metrics.LazyLoadGaugeVec("staking_leftover_shifted", []string{"asset"})
)

// Allocation is one staker's share of a mass delegation.
type Allocation struct {
	Staker mesh.Address
	Amount *big.Int
}

// Reward is one asset's withdrawable balance of a staker.
type Reward struct {
	Asset  types.Asset
	Amount *big.Int
}

// AssetRate is one flow's annualized reward projection within a tier.
// Rate is scaled by 1e18 per bonded token; nil when the tier has no stake.
type AssetRate struct {
	Asset types.Asset
	Rate  *big.Int
}

// TierRates groups the annualized projections of one tier.
type TierRates struct {
	Tier  types.Tier
	Rates []AssetRate
}

// Staker is the staking ledger facade. Operations are serialized by an
// internal lock, so callers on separate goroutines observe them as if run
// one after another.
type Staker struct {
	cfg         *types.Config
	admin       mesh.Address
	state       *state.State
	bonding     *bonding.Service
	dist        *distribution.Service
	delegations *schema.Mapping[mesh.Address, mesh.Address]

	mu sync.RWMutex // guards state reads and writes
}

// New creates the facade rooted at addr on the given state.
// The admin is the only address allowed to create flows.
func New(addr mesh.Address, st *state.State, admin mesh.Address, cfg *types.Config) (*Staker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sctx := schema.NewContext(addr, st)
	return &Staker{
		cfg:         cfg,
		admin:       admin,
		state:       st,
		bonding:     bonding.New(sctx),
		dist:        distribution.New(cfg, sctx),
		delegations: schema.NewMapping[mesh.Address, mesh.Address](sctx, slotDelegations),
	}, nil
}

// atomically runs fn inside a checkpoint, reverting every write on failure.
// It holds the write lock for the whole operation.
func (s *Staker) atomically(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	checkpoint := s.state.NewCheckpoint()
	if err := fn(); err != nil {
		s.state.RevertTo(checkpoint)
		return err
	}
	return nil
}

// Exclusive runs fn while no operation is in flight. State commits go
// through it so a half-applied operation is never persisted.
func (s *Staker) Exclusive(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

// CreateFlow registers a reward flow for the asset, managed by manager.
// Admin only. Stake bonded before the flow existed counts from the start:
// creation snapshots every known staker into the flow's points. This is
// the one operation that enumerates stakers.
func (s *Staker) CreateFlow(caller, manager mesh.Address, asset types.Asset, tiers []types.TierReward, now uint64) error {
	return s.atomically(func() error {
		if caller != s.admin {
			return errors.Wrap(types.ErrUnauthorized, "create flow is admin only")
		}
		if err := s.dist.Create(asset, manager, tiers); err != nil {
			return err
		}
		flow, err := s.dist.Get(asset)
		if err != nil {
			return err
		}
		stakers, err := s.bonding.Stakers()
		if err != nil {
			return err
		}
		for _, staker := range stakers {
			if err := s.settlePower(asset, flow, staker, now); err != nil {
				return err
			}
		}
		metricsFlowsCreated().Add(1)
		logger.Info("flow created", "asset", asset, "manager", manager, "stakers", len(stakers))
		return nil
	})
}

// Fund adds amount to the asset's flow under the given release schedule.
// Flow manager only. The schedule is relative and anchored at now.
func (s *Staker) Fund(caller mesh.Address, asset types.Asset, amount *big.Int, schedule *curve.Curve, now uint64) error {
	return s.atomically(func() error {
		flow, err := s.dist.Get(asset)
		if err != nil {
			return err
		}
		if caller != flow.Manager {
			return errors.Wrap(types.ErrUnauthorized, "fund is manager only")
		}
		if err := s.dist.Fund(asset, amount, schedule, now); err != nil {
			return err
		}
		logger.Info("flow funded", "asset", asset, "amount", amount)
		return nil
	})
}

// Delegate bonds amount for the staker at the given tier and settles the
// staker's weight in every flow rewarding that tier.
func (s *Staker) Delegate(staker mesh.Address, tier types.Tier, amount *big.Int, now uint64) error {
	return s.atomically(func() error {
		if !s.cfg.HasTier(tier) {
			return errors.Wrapf(types.ErrUnknownTier, "tier %d", tier)
		}
		if _, _, err := s.bonding.Increase(staker, tier, amount); err != nil {
			return err
		}
		if err := s.updatePowers(staker, now, tier); err != nil {
			return err
		}
		s.observeTotalBonded()
		logger.Debug("delegated", "staker", staker, "tier", tier, "amount", amount)
		return nil
	})
}

// Unbond releases amount of the staker's bond at the given tier.
func (s *Staker) Unbond(staker mesh.Address, tier types.Tier, amount *big.Int, now uint64) error {
	return s.atomically(func() error {
		if !s.cfg.HasTier(tier) {
			return errors.Wrapf(types.ErrUnknownTier, "tier %d", tier)
		}
		if _, _, err := s.bonding.Decrease(staker, tier, amount); err != nil {
			return err
		}
		if err := s.updatePowers(staker, now, tier); err != nil {
			return err
		}
		s.observeTotalBonded()
		logger.Debug("unbonded", "staker", staker, "tier", tier, "amount", amount)
		return nil
	})
}

// Rebond moves amount of the staker's bond from one tier to another without
// releasing custody. Both tiers settle in the same step.
func (s *Staker) Rebond(staker mesh.Address, amount *big.Int, from, to types.Tier, now uint64) error {
	return s.atomically(func() error {
		if !s.cfg.HasTier(from) {
			return errors.Wrapf(types.ErrUnknownTier, "tier %d", from)
		}
		if !s.cfg.HasTier(to) {
			return errors.Wrapf(types.ErrUnknownTier, "tier %d", to)
		}
		if from == to {
			return errors.New("rebond: tiers are the same")
		}
		if _, _, err := s.bonding.Decrease(staker, from, amount); err != nil {
			return err
		}
		if _, _, err := s.bonding.Increase(staker, to, amount); err != nil {
			return err
		}
		if err := s.updatePowers(staker, now, from, to); err != nil {
			return err
		}
		logger.Debug("rebonded", "staker", staker, "from", from, "to", to, "amount", amount)
		return nil
	})
}

// MassDelegate credits many stakers' bonds from one funding source in a
// single pass. The allocations must sum to total, and the result is
// identical to sequential individual delegations.
func (s *Staker) MassDelegate(funder mesh.Address, total *big.Int, tier types.Tier, allocations []Allocation, now uint64) error {
	return s.atomically(func() error {
		if !s.cfg.HasTier(tier) {
			return errors.Wrapf(types.ErrUnknownTier, "tier %d", tier)
		}
		sum := new(big.Int)
		for _, a := range allocations {
			if a.Amount == nil || a.Amount.Sign() <= 0 {
				return errors.New("mass delegate: amounts must be positive")
			}
			sum.Add(sum, a.Amount)
		}
		if sum.Cmp(total) != 0 {
			return errors.New("mass delegate: allocations do not sum to total")
		}
		for _, a := range allocations {
			if _, _, err := s.bonding.Increase(a.Staker, tier, a.Amount); err != nil {
				return err
			}
			if err := s.updatePowers(a.Staker, now, tier); err != nil {
				return err
			}
		}
		s.observeTotalBonded()
		logger.Info("mass delegated", "funder", funder, "tier", tier, "total", total, "stakers", len(allocations))
		return nil
	})
}

// DelegateWithdrawal points the staker's future withdrawals at receiver.
// Last write wins; delegating to self resets the mapping.
func (s *Staker) DelegateWithdrawal(staker, receiver mesh.Address) error {
	return s.atomically(func() error {
		if receiver == staker {
			return s.delegations.Delete(staker)
		}
		return s.delegations.Set(staker, receiver)
	})
}

// Withdraw settles and pays out everything the owner has accrued, across
// all flows. A zero owner defaults to the caller; withdrawing for another
// owner requires the caller to be the owner's delegated withdrawer. The
// receiver defaults to the caller unless overridden for this single call.
func (s *Staker) Withdraw(caller, owner, receiver mesh.Address, now uint64) ([]types.Payment, error) {
	if owner.IsZero() {
		owner = caller
	}
	if receiver.IsZero() {
		receiver = caller
	}
	var payments []types.Payment
	err := s.atomically(func() error {
		if owner != caller {
			delegated, err := s.delegations.Get(owner)
			if err != nil {
				return err
			}
			if delegated != caller {
				return errors.Wrap(types.ErrUnauthorized, "not the owner's delegated withdrawer")
			}
		}
		assets, err := s.dist.Assets()
		if err != nil {
			return err
		}
		for _, asset := range assets {
			amount, err := s.dist.Withdraw(asset, owner, now)
			if err != nil {
				return err
			}
			if amount.Sign() == 0 {
				continue
			}
			payments = append(payments, types.Payment{Asset: asset, Amount: amount, Receiver: receiver})
			metricsWithdrawals().AddWithLabel(metricAmount(amount), map[string]string{"asset": string(asset)})
		}
		logger.Debug("withdrawn", "owner", owner, "receiver", receiver, "assets", len(payments))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payments, nil
}

// DistributeFunds releases whatever the asset's curve has unlocked up to
// now. Anyone may call it; it only advances shared accounting.
func (s *Staker) DistributeFunds(asset types.Asset, now uint64) (*big.Int, error) {
	var released *big.Int
	err := s.atomically(func() error {
		var err error
		released, err = s.dist.Release(asset, now)
		if err != nil {
			return err
		}
		if released.Sign() > 0 {
			metricsReleased().AddWithLabel(metricAmount(released), map[string]string{"asset": string(asset)})
			logger.Debug("funds distributed", "asset", asset, "released", released)
		}
		if flow, err := s.dist.Get(asset); err == nil {
			metricsLeftover().SetWithLabel(metricAmount(flow.Leftover), map[string]string{"asset": string(asset)})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return released, nil
}

// updatePowers resettles the staker's weight in every flow that rewards any
// of the touched tiers.
func (s *Staker) updatePowers(staker mesh.Address, now uint64, tiers ...types.Tier) error {
	assets, err := s.dist.Assets()
	if err != nil {
		return err
	}
	for _, asset := range assets {
		flow, err := s.dist.Get(asset)
		if err != nil {
			return err
		}
		if !rewardsAny(flow, tiers) {
			continue
		}
		if err := s.settlePower(asset, flow, staker, now); err != nil {
			return err
		}
	}
	return nil
}

// settlePower recomputes the staker's points in one flow from their bonded
// positions and settles the change.
func (s *Staker) settlePower(asset types.Asset, flow *distribution.Flow, staker mesh.Address, now uint64) error {
	points := new(big.Int)
	for _, tr := range flow.Tiers {
		bonded, err := s.bonding.Bonded(staker, tr.Tier)
		if err != nil {
			return err
		}
		points.Add(points, stakes.Power(bonded, tr.Multiplier, s.cfg))
	}
	return s.dist.PowerChange(asset, staker, points, now)
}

func rewardsAny(flow *distribution.Flow, tiers []types.Tier) bool {
	for _, tier := range tiers {
		if flow.Multiplier(tier) > 0 {
			return true
		}
	}
	return false
}

func (s *Staker) observeTotalBonded() {
	if total, err := s.bonding.TotalBonded(); err == nil {
		metricsTotalBonded().Set(metricAmount(total))
	}
}

// metricAmount narrows v for metric use, clamping what does not fit in 63
// bits instead of wrapping.
func metricAmount(v *big.Int) int64 {
	if v.IsInt64() {
		return v.Int64()
	}
	if v.Sign() > 0 {
		return math.MaxInt64
	}
	return math.MinInt64
}

// WithdrawableRewards returns the staker's withdrawable balance per asset,
// including funds unlocked but not yet released.
func (s *Staker) WithdrawableRewards(staker mesh.Address, now uint64) ([]Reward, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	assets, err := s.dist.Assets()
	if err != nil {
		return nil, err
	}
	rewards := make([]Reward, 0, len(assets))
	for _, asset := range assets {
		amount, err := s.dist.Withdrawable(asset, staker, now)
		if err != nil {
			return nil, err
		}
		rewards = append(rewards, Reward{Asset: asset, Amount: amount})
	}
	return rewards, nil
}

// RewardsPower returns the staker's settled weight in the asset's flow.
func (s *Staker) RewardsPower(staker mesh.Address, asset types.Asset) (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.dist.Get(asset); err != nil {
		return nil, err
	}
	adj, err := s.dist.Adjustment(asset, staker)
	if err != nil {
		return nil, err
	}
	return adj.Points, nil
}

// TotalRewardsPower returns the total active weight of the asset's flow.
func (s *Staker) TotalRewardsPower(asset types.Asset) (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	flow, err := s.dist.Get(asset)
	if err != nil {
		return nil, err
	}
	return flow.TotalPoints, nil
}

// FundsTotals reports the asset's distributed, undistributed and claimable
// amounts as of now.
func (s *Staker) FundsTotals(asset types.Asset, now uint64) (distributed, undistributed, claimable *big.Int, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dist.Totals(asset, now)
}

// Config returns the ledger configuration.
func (s *Staker) Config() *types.Config {
	return s.cfg
}

// Flows lists the reward assets with a flow, in creation order.
func (s *Staker) Flows() ([]types.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dist.Assets()
}

// Flow returns the asset's flow record.
func (s *Staker) Flow(asset types.Asset) (*distribution.Flow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dist.Get(asset)
}

// BondedAmount returns the staker's bond at the given tier.
func (s *Staker) BondedAmount(staker mesh.Address, tier types.Tier) (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bonding.Bonded(staker, tier)
}

// StakerBonded returns the staker's total bond across tiers.
func (s *Staker) StakerBonded(staker mesh.Address) (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bonding.StakerTotal(staker)
}

// TierBonded returns the total bond at the given tier.
func (s *Staker) TierBonded(tier types.Tier) (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bonding.TierTotal(tier)
}

// TotalBonded returns the ledger-wide custody total.
func (s *Staker) TotalBonded() (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bonding.TotalBonded()
}

// DelegatedWithdrawal returns the staker's withdrawal target, the staker
// itself when nothing is delegated.
func (s *Staker) DelegatedWithdrawal(staker mesh.Address) (mesh.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	receiver, err := s.delegations.Get(staker)
	if err != nil {
		return mesh.Address{}, err
	}
	if receiver.IsZero() {
		return staker, nil
	}
	return receiver, nil
}

// AnnualizedRewards projects the current funding rate of every flow over a
// year, per tier, per bonded token, at 1e18 scale. A tier with no stake
// reports a nil rate.
func (s *Staker) AnnualizedRewards(now uint64) ([]TierRates, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	assets, err := s.dist.Assets()
	if err != nil {
		return nil, err
	}
	out := make([]TierRates, 0, len(s.cfg.Tiers))
	for _, tier := range s.cfg.Tiers {
		tierTokens, err := s.bonding.TierTotal(tier)
		if err != nil {
			return nil, err
		}
		rates := make([]AssetRate, 0, len(assets))
		for _, asset := range assets {
			flow, err := s.dist.Get(asset)
			if err != nil {
				return nil, err
			}
			rates = append(rates, AssetRate{Asset: asset, Rate: s.annualRate(flow, tier, tierTokens, now)})
		}
		out = append(out, TierRates{Tier: tier, Rates: rates})
	}
	return out, nil
}

func (s *Staker) annualRate(flow *distribution.Flow, tier types.Tier, tierTokens *big.Int, now uint64) *big.Int {
	if tierTokens.Sign() == 0 {
		return nil
	}
	if flow.TotalPoints.Sign() == 0 || flow.Curve == nil {
		return new(big.Int)
	}
	perSecond := new(big.Int).Sub(flow.Curve.ValueAt(now), flow.Curve.ValueAt(now+1))
	if perSecond.Sign() <= 0 {
		return new(big.Int)
	}
	tierPoints := stakes.Power(tierTokens, flow.Multiplier(tier), s.cfg)
	rate := new(big.Int).Mul(perSecond, secondsPerYear)
	rate.Mul(rate, tierPoints)
	rate.Mul(rate, rateScale)
	rate.Quo(rate, flow.TotalPoints)
	return rate.Quo(rate, tierTokens)
}
