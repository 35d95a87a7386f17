// Copyright (c) 2026 The Stakemesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package eventdb_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stakemesh/stakemesh/eventdb"
	"github.com/stakemesh/stakemesh/mesh"
)

func TestInsertAndFilter(t *testing.T) {
	db, err := eventdb.NewMem()
	require.NoError(t, err)
	defer db.Close()

	alice := mesh.BytesToAddress([]byte("alice"))
	bob := mesh.BytesToAddress([]byte("bob"))

	var events []*eventdb.Event
	for i := 0; i < 100; i++ {
		staker := alice
		if i%2 == 1 {
			staker = bob
		}
		events = append(events, &eventdb.Event{
			Time:   uint64(1000 + i),
			Kind:   eventdb.Delegated,
			Asset:  "bond",
			Staker: &staker,
			Tier:   604800,
			Amount: big.NewInt(int64(100 + i)),
		})
	}
	events = append(events, &eventdb.Event{
		Time:     2000,
		Kind:     eventdb.Withdrawn,
		Asset:    "juno",
		Staker:   &alice,
		Amount:   big.NewInt(42),
		Receiver: &bob,
	})
	require.NoError(t, db.Insert(events))

	all, err := db.Filter(nil)
	require.NoError(t, err)
	assert.Len(t, all, 101)

	limit := 5
	got, err := db.Filter(&eventdb.Filter{
		Kind:    eventdb.Delegated,
		Staker:  &alice,
		Range:   &eventdb.Range{From: 1000, To: 1010},
		Options: &eventdb.Options{Offset: 0, Limit: uint64(limit)},
		Order:   eventdb.ASC,
	})
	require.NoError(t, err)
	assert.Len(t, got, limit)
	assert.EqualValues(t, 1000, got[0].Time)
	assert.Equal(t, big.NewInt(100), got[0].Amount)

	got, err = db.Filter(&eventdb.Filter{Kind: eventdb.Withdrawn})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "juno", got[0].Asset)
	require.NotNil(t, got[0].Receiver)
	assert.Equal(t, bob, *got[0].Receiver)

	got, err = db.Filter(&eventdb.Filter{Asset: "bond", Order: eventdb.DESC})
	require.NoError(t, err)
	require.Len(t, got, 100)
	assert.EqualValues(t, 1099, got[0].Time)
}

func TestEmptyInsert(t *testing.T) {
	db, err := eventdb.NewMem()
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Insert(nil))
	got, err := db.Filter(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
