// Copyright (c) 2026 The Stakemesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package schema

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/stakemesh/stakemesh/mesh"
)

// BigInt is a storage cell holding one non-negative big integer.
// Values exceeding 256 bits are rejected on Set.
type BigInt struct {
	context *Context
	pos     mesh.Bytes32
}

// NewBigInt creates a big integer cell at the given slot.
func NewBigInt(context *Context, slot mesh.Bytes32) *BigInt {
	return &BigInt{context: context, pos: slot}
}

// Get returns the stored value, zero if unset.
func (b *BigInt) Get() (*big.Int, error) {
	storage, err := b.context.state.GetStorage(b.context.address, b.pos)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(storage.Bytes()), nil
}

// Set stores the given value.
func (b *BigInt) Set(value *big.Int) error {
	if value.Sign() < 0 {
		return errors.New("negative value")
	}
	if value.BitLen() > 256 {
		return errors.New("value exceeds 256 bits")
	}
	b.context.state.SetStorage(b.context.address, b.pos, mesh.BytesToBytes32(value.Bytes()))
	return nil
}

// Add increases the stored value by the given amount.
func (b *BigInt) Add(value *big.Int) error {
	storage, err := b.Get()
	if err != nil {
		return err
	}
	return b.Set(storage.Add(storage, value))
}

// Sub decreases the stored value by the given amount.
// It fails if the result would be negative.
func (b *BigInt) Sub(value *big.Int) error {
	storage, err := b.Get()
	if err != nil {
		return err
	}
	storage.Sub(storage, value)
	if storage.Sign() < 0 {
		return errors.New("subtraction underflow")
	}
	return b.Set(storage)
}

// Uint64 is a storage cell holding one uint64.
type Uint64 struct {
	context *Context
	pos     mesh.Bytes32
}

// NewUint64 creates a uint64 cell at the given slot.
func NewUint64(context *Context, slot mesh.Bytes32) *Uint64 {
	return &Uint64{context: context, pos: slot}
}

// Get returns the stored value, zero if unset.
func (u *Uint64) Get() (uint64, error) {
	storage, err := u.context.state.GetStorage(u.context.address, u.pos)
	if err != nil {
		return 0, err
	}
	return new(big.Int).SetBytes(storage.Bytes()).Uint64(), nil
}

// Set stores the given value.
func (u *Uint64) Set(value uint64) {
	u.context.state.SetStorage(u.context.address, u.pos, mesh.BytesToBytes32(new(big.Int).SetUint64(value).Bytes()))
}

// Address is a storage cell holding one address.
type Address struct {
	context *Context
	pos     mesh.Bytes32
}

// NewAddress creates an address cell at the given slot.
func NewAddress(context *Context, slot mesh.Bytes32) *Address {
	return &Address{context: context, pos: slot}
}

// Get returns the stored address, zero if unset.
func (a *Address) Get() (mesh.Address, error) {
	storage, err := a.context.state.GetStorage(a.context.address, a.pos)
	if err != nil {
		return mesh.Address{}, err
	}
	return mesh.BytesToAddress(storage.Bytes()), nil
}

// Set stores the given address.
func (a *Address) Set(addr mesh.Address) {
	a.context.state.SetStorage(a.context.address, a.pos, mesh.BytesToBytes32(addr.Bytes()))
}

// U64Key adapts a uint64 for use as a mapping key.
type U64Key uint64

// Bytes returns the big-endian byte form of the key.
func (k U64Key) Bytes() []byte {
	return new(big.Int).SetUint64(uint64(k)).FillBytes(make([]byte, 8))
}
