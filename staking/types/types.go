// Copyright (c) 2026 The Stakemesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package types holds the value types shared by the staking services.
package types

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/stakemesh/stakemesh/mesh"
)

// Asset identifies one reward asset (a denom or token address string).
type Asset string

// Bytes returns the byte form of the asset, usable as a mapping key.
func (a Asset) Bytes() []byte {
	return []byte(a)
}

// Tier is an unbonding period in seconds, used as the identifier of a
// bonding tier. Reward multipliers are attached per tier per flow.
type Tier uint64

// Bytes returns the big-endian byte form of the tier, usable as a mapping key.
func (t Tier) Bytes() []byte {
	return new(big.Int).SetUint64(uint64(t)).FillBytes(make([]byte, 8))
}

// TierReward binds a tier to its reward multiplier within one flow.
// The multiplier is expressed in percent: 100 is 1x, 300 is 3x.
type TierReward struct {
	Tier       Tier
	Multiplier uint32
}

// Payment is one decided payout. Executing the transfer is up to the caller;
// the ledger only decides amounts and receivers.
type Payment struct {
	Asset    Asset
	Amount   *big.Int
	Receiver mesh.Address
}

// Config is the global staking configuration, passed explicitly so the
// settlement logic stays free of ambient state.
type Config struct {
	// BondToken is the staked asset. It can never be a reward asset.
	BondToken Asset
	// TokensPerPower is the divisor converting weighted stake to power.
	TokensPerPower *big.Int
	// MinBond is the bonded amount below which a position has zero power.
	MinBond *big.Int
	// Tiers is the closed set of unbonding tiers known to the ledger.
	Tiers []Tier
	// MaxFlows caps the number of distribution flows that can be created.
	MaxFlows uint64
}

// Validate checks the configuration for usability.
func (c *Config) Validate() error {
	if c.BondToken == "" {
		return errors.New("config: bond token must be set")
	}
	if c.TokensPerPower == nil || c.TokensPerPower.Sign() <= 0 {
		return errors.New("config: tokens per power must be positive")
	}
	if c.MinBond == nil || c.MinBond.Sign() < 0 {
		return errors.New("config: min bond must not be negative")
	}
	if len(c.Tiers) == 0 {
		return errors.New("config: at least one tier required")
	}
	seen := make(map[Tier]struct{}, len(c.Tiers))
	for _, tier := range c.Tiers {
		if _, ok := seen[tier]; ok {
			return errors.New("config: duplicate tier")
		}
		seen[tier] = struct{}{}
	}
	if c.MaxFlows == 0 {
		return errors.New("config: max flows must be positive")
	}
	return nil
}

// HasTier returns whether the given tier is configured.
func (c *Config) HasTier(tier Tier) bool {
	for _, t := range c.Tiers {
		if t == tier {
			return true
		}
	}
	return false
}
