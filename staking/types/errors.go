// Copyright (c) 2026 The Stakemesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package types

import "github.com/pkg/errors"

// Error taxonomy of the staking ledger. Every failing operation aborts as a
// whole and leaves the ledger untouched.
var (
	// ErrUnauthorized is returned when the caller lacks the required role.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrBondedToken is returned when the bond token is used as a reward asset.
	ErrBondedToken = errors.New("cannot distribute the bonded token")
	// ErrInsufficientBond is returned when unbonding more than is bonded.
	ErrInsufficientBond = errors.New("insufficient bonded amount")
	// ErrUnknownTier is returned for tiers outside the configured set.
	ErrUnknownTier = errors.New("unknown unbonding tier")
	// ErrMalformedCurve is returned for schedules that grow over time or
	// whose initial value does not match the funded amount.
	ErrMalformedCurve = errors.New("malformed release curve")
	// ErrTooManyFlows is returned when the flow cap is reached.
	ErrTooManyFlows = errors.New("too many distribution flows")
	// ErrFlowExists is returned when creating a second flow for an asset.
	ErrFlowExists = errors.New("distribution flow already exists")
	// ErrNoFlow is returned when an asset has no distribution flow.
	ErrNoFlow = errors.New("no distribution flow for asset")
	// ErrOverflow is returned when power or accumulator arithmetic overflows.
	ErrOverflow = errors.New("arithmetic overflow")
)
