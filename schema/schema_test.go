// Copyright (c) 2026 The Stakemesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package schema

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stakemesh/stakemesh/mesh"
	"github.com/stakemesh/stakemesh/state"
)

func newTestContext() *Context {
	return NewContext(mesh.BytesToAddress([]byte("test")), state.New(nil))
}

func TestBigIntCell(t *testing.T) {
	cell := NewBigInt(newTestContext(), NameToSlot("counter"))

	v, err := cell.Get()
	require.NoError(t, err)
	assert.Zero(t, v.Sign())

	require.NoError(t, cell.Add(big.NewInt(100)))
	require.NoError(t, cell.Sub(big.NewInt(40)))

	v, err = cell.Get()
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(60), v)

	assert.Error(t, cell.Sub(big.NewInt(61)), "underflow must be rejected")
	assert.Error(t, cell.Set(big.NewInt(-1)))
}

func TestUint64Cell(t *testing.T) {
	cell := NewUint64(newTestContext(), NameToSlot("count"))

	v, err := cell.Get()
	require.NoError(t, err)
	assert.Zero(t, v)

	cell.Set(42)
	v, err = cell.Get()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), v)
}

func TestAddressCell(t *testing.T) {
	cell := NewAddress(newTestContext(), NameToSlot("manager"))

	addr, err := cell.Get()
	require.NoError(t, err)
	assert.True(t, addr.IsZero())

	want := mesh.BytesToAddress([]byte("manager-1"))
	cell.Set(want)
	addr, err = cell.Get()
	require.NoError(t, err)
	assert.Equal(t, want, addr)
}

type testEntry struct {
	Amount *big.Int
	Flag   bool
}

func TestMapping(t *testing.T) {
	ctx := newTestContext()
	m := NewMapping[mesh.Address, *testEntry](ctx, NameToSlot("entries"))

	key := mesh.BytesToAddress([]byte("staker-1"))

	// missing key yields an allocated zero value
	entry, err := m.Get(key)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Nil(t, entry.Amount)

	require.NoError(t, m.Set(key, &testEntry{Amount: big.NewInt(7), Flag: true}))
	entry, err = m.Get(key)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(7), entry.Amount)
	assert.True(t, entry.Flag)

	require.NoError(t, m.Delete(key))
	entry, err = m.Get(key)
	require.NoError(t, err)
	assert.Nil(t, entry.Amount)
}

func TestMappingRevert(t *testing.T) {
	ctx := newTestContext()
	m := NewMapping[schemaKey, *big.Int](ctx, NameToSlot("amounts"))

	require.NoError(t, m.Set(schemaKey("a"), big.NewInt(1)))
	chk := ctx.State().NewCheckpoint()
	require.NoError(t, m.Set(schemaKey("a"), big.NewInt(2)))
	ctx.State().RevertTo(chk)

	v, err := m.Get(schemaKey("a"))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1), v)
}

type schemaKey string

func (k schemaKey) Bytes() []byte { return []byte(k) }
