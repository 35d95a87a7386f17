// Copyright (c) 2026 The Stakemesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"math/big"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/stakemesh/stakemesh/mesh"
	"github.com/stakemesh/stakemesh/staking/types"
)

// fileConfig is the on-disk shape of the ledger configuration.
// Amounts are decimal strings so they are not capped at 64 bits.
type fileConfig struct {
	Admin          string   `yaml:"admin"`
	BondToken      string   `yaml:"bondToken"`
	TokensPerPower string   `yaml:"tokensPerPower"`
	MinBond        string   `yaml:"minBond"`
	Tiers          []uint64 `yaml:"tiers"`
	MaxFlows       uint64   `yaml:"maxFlows"`
}

const (
	week  = 7 * 24 * 3600
	month = 30 * 24 * 3600
	year  = 365 * 24 * 3600
)

func defaultFileConfig() fileConfig {
	return fileConfig{
		BondToken:      "bond",
		TokensPerPower: "1000",
		MinBond:        "0",
		Tiers:          []uint64{week, month, year},
		MaxFlows:       16,
	}
}

// loadConfig reads the yaml configuration at path, or the defaults when path
// is empty, and resolves it into the ledger configuration plus admin address.
func loadConfig(path string) (*types.Config, mesh.Address, error) {
	fc := defaultFileConfig()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, mesh.Address{}, errors.Wrap(err, "read config")
		}
		if err := yaml.Unmarshal(raw, &fc); err != nil {
			return nil, mesh.Address{}, errors.Wrap(err, "parse config")
		}
	}

	var admin mesh.Address
	if fc.Admin != "" {
		parsed, err := mesh.ParseAddress(fc.Admin)
		if err != nil {
			return nil, mesh.Address{}, errors.Wrap(err, "config: admin")
		}
		admin = parsed
	}

	tokensPerPower, err := parseAmount(fc.TokensPerPower, "tokensPerPower")
	if err != nil {
		return nil, mesh.Address{}, err
	}
	minBond, err := parseAmount(fc.MinBond, "minBond")
	if err != nil {
		return nil, mesh.Address{}, err
	}

	tiers := make([]types.Tier, len(fc.Tiers))
	for i, t := range fc.Tiers {
		tiers[i] = types.Tier(t)
	}

	cfg := &types.Config{
		BondToken:      types.Asset(fc.BondToken),
		TokensPerPower: tokensPerPower,
		MinBond:        minBond,
		Tiers:          tiers,
		MaxFlows:       fc.MaxFlows,
	}
	if err := cfg.Validate(); err != nil {
		return nil, mesh.Address{}, errors.Wrap(err, "config")
	}
	return cfg, admin, nil
}

func parseAmount(raw, field string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok || v.Sign() < 0 {
		return nil, errors.Errorf("config: %s: malformed amount %q", field, raw)
	}
	return v, nil
}
