// Copyright (c) 2026 The Stakemesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package bonding

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stakemesh/stakemesh/mesh"
	"github.com/stakemesh/stakemesh/schema"
	"github.com/stakemesh/stakemesh/staking/types"
	"github.com/stakemesh/stakemesh/state"
)

var (
	alice = mesh.BytesToAddress([]byte("alice"))
	bob   = mesh.BytesToAddress([]byte("bob"))

	tierWeek  = types.Tier(604_800)
	tierMonth = types.Tier(2_592_000)
)

func newTestService() *Service {
	st := state.New(nil)
	return New(schema.NewContext(mesh.BytesToAddress([]byte("staking")), st))
}

func TestIncreaseDecrease(t *testing.T) {
	svc := newTestService()

	old, updated, err := svc.Increase(alice, tierWeek, big.NewInt(1000))
	require.NoError(t, err)
	assert.Zero(t, old.Sign())
	assert.Equal(t, big.NewInt(1000), updated)

	old, updated, err = svc.Increase(alice, tierWeek, big.NewInt(500))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1000), old)
	assert.Equal(t, big.NewInt(1500), updated)

	old, updated, err = svc.Decrease(alice, tierWeek, big.NewInt(600))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1500), old)
	assert.Equal(t, big.NewInt(900), updated)

	bonded, err := svc.Bonded(alice, tierWeek)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(900), bonded)
}

func TestDecreaseInsufficient(t *testing.T) {
	svc := newTestService()

	_, _, err := svc.Increase(alice, tierWeek, big.NewInt(100))
	require.NoError(t, err)

	_, _, err = svc.Decrease(alice, tierWeek, big.NewInt(101))
	assert.ErrorIs(t, err, types.ErrInsufficientBond)

	// untouched
	bonded, err := svc.Bonded(alice, tierWeek)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100), bonded)

	// and the empty tier fails outright
	_, _, err = svc.Decrease(alice, tierMonth, big.NewInt(1))
	assert.ErrorIs(t, err, types.ErrInsufficientBond)
}

func TestTotals(t *testing.T) {
	svc := newTestService()

	_, _, err := svc.Increase(alice, tierWeek, big.NewInt(1000))
	require.NoError(t, err)
	_, _, err = svc.Increase(alice, tierMonth, big.NewInt(2000))
	require.NoError(t, err)
	_, _, err = svc.Increase(bob, tierWeek, big.NewInt(4000))
	require.NoError(t, err)

	stakerTotal, err := svc.StakerTotal(alice)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(3000), stakerTotal)

	tierTotal, err := svc.TierTotal(tierWeek)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(5000), tierTotal)

	total, err := svc.TotalBonded()
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(7000), total)

	_, _, err = svc.Decrease(bob, tierWeek, big.NewInt(4000))
	require.NoError(t, err)

	stakerTotal, err = svc.StakerTotal(bob)
	require.NoError(t, err)
	assert.Zero(t, stakerTotal.Sign())

	total, err = svc.TotalBonded()
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(3000), total)
}

func TestPositionsAreIsolated(t *testing.T) {
	svc := newTestService()

	_, _, err := svc.Increase(alice, tierWeek, big.NewInt(111))
	require.NoError(t, err)
	_, _, err = svc.Increase(alice, tierMonth, big.NewInt(222))
	require.NoError(t, err)
	_, _, err = svc.Increase(bob, tierWeek, big.NewInt(333))
	require.NoError(t, err)

	bonded, err := svc.Bonded(alice, tierWeek)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(111), bonded)

	bonded, err = svc.Bonded(alice, tierMonth)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(222), bonded)

	bonded, err = svc.Bonded(bob, tierWeek)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(333), bonded)

	bonded, err = svc.Bonded(bob, tierMonth)
	require.NoError(t, err)
	assert.Zero(t, bonded.Sign())
}

func TestRejectNonPositiveAmounts(t *testing.T) {
	svc := newTestService()

	_, _, err := svc.Increase(alice, tierWeek, big.NewInt(0))
	assert.ErrorContains(t, err, "must be positive")

	_, _, err = svc.Decrease(alice, tierWeek, big.NewInt(-5))
	assert.ErrorContains(t, err, "must be positive")
}
