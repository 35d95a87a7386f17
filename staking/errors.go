// Copyright (c) 2026 The Stakemesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import "github.com/stakemesh/stakemesh/staking/types"

// The sentinel errors live in the types package so the services can share
// them; re-exported here for callers of the facade.
var (
	ErrUnauthorized     = types.ErrUnauthorized
	ErrBondedToken      = types.ErrBondedToken
	ErrInsufficientBond = types.ErrInsufficientBond
	ErrUnknownTier      = types.ErrUnknownTier
	ErrMalformedCurve   = types.ErrMalformedCurve
	ErrTooManyFlows     = types.ErrTooManyFlows
	ErrFlowExists       = types.ErrFlowExists
	ErrNoFlow           = types.ErrNoFlow
	ErrOverflow         = types.ErrOverflow
)
