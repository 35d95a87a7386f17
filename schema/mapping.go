// Copyright (c) 2026 The Stakemesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package schema

import (
	"reflect"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/stakemesh/stakemesh/mesh"
)

// Key is anything usable as a mapping key.
type Key interface {
	Bytes() []byte
}

// Mapping is a key/value storage abstraction, similar to a mapping in Solidity.
// Values are RLP encoded at slots derived from the key and the mapping's base position.
type Mapping[K Key, V any] struct {
	context *Context
	basePos mesh.Bytes32
}

// NewMapping creates a mapping rooted at the given position.
func NewMapping[K Key, V any](context *Context, pos mesh.Bytes32) *Mapping[K, V] {
	return &Mapping[K, V]{context: context, basePos: pos}
}

// Get returns the value for the given key.
// A missing key yields the zero value (pointer kinds are allocated).
func (m *Mapping[K, V]) Get(key K) (value V, err error) {
	position := mesh.Blake2b(key.Bytes(), m.basePos.Bytes())
	err = m.context.state.DecodeStorage(m.context.address, position, func(raw []byte) error {
		if reflect.ValueOf(&value).Elem().Kind() == reflect.Ptr {
			value = reflect.New(reflect.TypeOf(value).Elem()).Interface().(V)
		}
		if len(raw) == 0 {
			return nil
		}
		return rlp.DecodeBytes(raw, &value)
	})
	return
}

// Set stores the value for the given key.
func (m *Mapping[K, V]) Set(key K, value V) error {
	position := mesh.Blake2b(key.Bytes(), m.basePos.Bytes())
	return m.context.state.EncodeStorage(m.context.address, position, func() ([]byte, error) {
		return rlp.EncodeToBytes(value)
	})
}

// Delete clears the value for the given key.
func (m *Mapping[K, V]) Delete(key K) error {
	position := mesh.Blake2b(key.Bytes(), m.basePos.Bytes())
	return m.context.state.EncodeStorage(m.context.address, position, func() ([]byte, error) {
		return nil, nil
	})
}
