// Copyright (c) 2026 The Stakemesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package bonding is the bonding ledger: bonded amounts per staker per tier,
// plus custody totals. It knows nothing about rewards; power derivation and
// settlement live in the distribution service.
package bonding

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/stakemesh/stakemesh/mesh"
	"github.com/stakemesh/stakemesh/schema"
	"github.com/stakemesh/stakemesh/staking/types"
)

var (
	slotBonded      = schema.NameToSlot("bonded-amounts")
	slotStakerTotal = schema.NameToSlot("staker-totals")
	slotTierTotal   = schema.NameToSlot("tier-totals")
	slotTotalBonded = schema.NameToSlot("total-bonded")
	slotStakerCount = schema.NameToSlot("staker-count")
	slotStakerIndex = schema.NameToSlot("staker-index")
	slotStakerKnown = schema.NameToSlot("staker-known")
)

// positionKey addresses one (staker, tier) position.
type positionKey struct {
	staker mesh.Address
	tier   types.Tier
}

func (k positionKey) Bytes() []byte {
	return append(k.staker.Bytes(), k.tier.Bytes()...)
}

// Service manages the bonding ledger.
type Service struct {
	bonded       *schema.Mapping[positionKey, *big.Int]
	stakerTotals *schema.Mapping[mesh.Address, *big.Int]
	tierTotals   *schema.Mapping[types.Tier, *big.Int]
	totalBonded  *schema.BigInt
	stakerCount  *schema.Uint64
	stakerIndex  *schema.Mapping[schema.U64Key, mesh.Address]
	stakerKnown  *schema.Mapping[mesh.Address, bool]
}

// New creates the bonding service on the given storage context.
func New(sctx *schema.Context) *Service {
	return &Service{
		bonded:       schema.NewMapping[positionKey, *big.Int](sctx, slotBonded),
		stakerTotals: schema.NewMapping[mesh.Address, *big.Int](sctx, slotStakerTotal),
		tierTotals:   schema.NewMapping[types.Tier, *big.Int](sctx, slotTierTotal),
		totalBonded:  schema.NewBigInt(sctx, slotTotalBonded),
		stakerCount:  schema.NewUint64(sctx, slotStakerCount),
		stakerIndex:  schema.NewMapping[schema.U64Key, mesh.Address](sctx, slotStakerIndex),
		stakerKnown:  schema.NewMapping[mesh.Address, bool](sctx, slotStakerKnown),
	}
}

// Stakers lists every address that ever bonded, in first-bond order.
// Flow creation snapshots existing bonds through this; nothing else
// enumerates stakers.
func (s *Service) Stakers() ([]mesh.Address, error) {
	count, err := s.stakerCount.Get()
	if err != nil {
		return nil, err
	}
	stakers := make([]mesh.Address, 0, count)
	for i := uint64(0); i < count; i++ {
		staker, err := s.stakerIndex.Get(schema.U64Key(i))
		if err != nil {
			return nil, err
		}
		stakers = append(stakers, staker)
	}
	return stakers, nil
}

func (s *Service) register(staker mesh.Address) error {
	known, err := s.stakerKnown.Get(staker)
	if err != nil || known {
		return err
	}
	count, err := s.stakerCount.Get()
	if err != nil {
		return err
	}
	if err := s.stakerIndex.Set(schema.U64Key(count), staker); err != nil {
		return err
	}
	s.stakerCount.Set(count + 1)
	return s.stakerKnown.Set(staker, true)
}

// Bonded returns the bonded amount of the (staker, tier) position.
func (s *Service) Bonded(staker mesh.Address, tier types.Tier) (*big.Int, error) {
	amount, err := s.bonded.Get(positionKey{staker, tier})
	if err != nil {
		return nil, errors.Wrap(err, "get bonded amount")
	}
	return amount, nil
}

// StakerTotal returns the total bonded amount of the staker across tiers.
func (s *Service) StakerTotal(staker mesh.Address) (*big.Int, error) {
	amount, err := s.stakerTotals.Get(staker)
	if err != nil {
		return nil, errors.Wrap(err, "get staker total")
	}
	return amount, nil
}

// TierTotal returns the total bonded amount at the given tier.
func (s *Service) TierTotal(tier types.Tier) (*big.Int, error) {
	amount, err := s.tierTotals.Get(tier)
	if err != nil {
		return nil, errors.Wrap(err, "get tier total")
	}
	return amount, nil
}

// TotalBonded returns the contract-wide custody total.
func (s *Service) TotalBonded() (*big.Int, error) {
	return s.totalBonded.Get()
}

// Increase adds amount to the (staker, tier) position.
// It returns the bonded amount before and after the change.
func (s *Service) Increase(staker mesh.Address, tier types.Tier, amount *big.Int) (old, updated *big.Int, err error) {
	if amount.Sign() <= 0 {
		return nil, nil, errors.New("amount must be positive")
	}
	return s.adjust(staker, tier, amount)
}

// Decrease removes amount from the (staker, tier) position.
// It returns the bonded amount before and after the change, and fails
// without mutating anything when the position is too small.
func (s *Service) Decrease(staker mesh.Address, tier types.Tier, amount *big.Int) (old, updated *big.Int, err error) {
	if amount.Sign() <= 0 {
		return nil, nil, errors.New("amount must be positive")
	}
	return s.adjust(staker, tier, new(big.Int).Neg(amount))
}

func (s *Service) adjust(staker mesh.Address, tier types.Tier, delta *big.Int) (*big.Int, *big.Int, error) {
	key := positionKey{staker, tier}
	old, err := s.bonded.Get(key)
	if err != nil {
		return nil, nil, errors.Wrap(err, "get bonded amount")
	}

	updated := new(big.Int).Add(old, delta)
	if updated.Sign() < 0 {
		return nil, nil, types.ErrInsufficientBond
	}
	if err := s.bonded.Set(key, updated); err != nil {
		return nil, nil, errors.Wrap(err, "set bonded amount")
	}

	if delta.Sign() > 0 {
		if err := s.register(staker); err != nil {
			return nil, nil, err
		}
		stakerTotal, err := s.stakerTotals.Get(staker)
		if err != nil {
			return nil, nil, err
		}
		if err := s.stakerTotals.Set(staker, stakerTotal.Add(stakerTotal, delta)); err != nil {
			return nil, nil, err
		}
		tierTotal, err := s.tierTotals.Get(tier)
		if err != nil {
			return nil, nil, err
		}
		if err := s.tierTotals.Set(tier, tierTotal.Add(tierTotal, delta)); err != nil {
			return nil, nil, err
		}
		if err := s.totalBonded.Add(delta); err != nil {
			return nil, nil, err
		}
	} else {
		abs := new(big.Int).Neg(delta)
		stakerTotal, err := s.stakerTotals.Get(staker)
		if err != nil {
			return nil, nil, err
		}
		if err := s.stakerTotals.Set(staker, stakerTotal.Sub(stakerTotal, abs)); err != nil {
			return nil, nil, err
		}
		tierTotal, err := s.tierTotals.Get(tier)
		if err != nil {
			return nil, nil, err
		}
		if err := s.tierTotals.Set(tier, tierTotal.Sub(tierTotal, abs)); err != nil {
			return nil, nil, err
		}
		if err := s.totalBonded.Sub(abs); err != nil {
			return nil, nil, err
		}
	}
	return old, updated, nil
}
