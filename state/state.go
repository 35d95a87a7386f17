// Copyright (c) 2026 The Stakemesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"github.com/ethereum/go-ethereum/rlp"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"

	"github.com/stakemesh/stakemesh/kv"
	"github.com/stakemesh/stakemesh/mesh"
	"github.com/stakemesh/stakemesh/stackedmap"
)

const readCacheSize = 2048

// StorageKey locates one storage value in the ledger.
type StorageKey struct {
	Addr mesh.Address
	Key  mesh.Bytes32
}

func (k StorageKey) bytes() []byte {
	b := make([]byte, 0, mesh.AddressLength+32)
	b = append(b, k.Addr.Bytes()...)
	return append(b, k.Key.Bytes()...)
}

// State is the versioned ledger all staking bookkeeping lives in.
// Values are raw RLP keyed by (address, slot). Writes are journaled in a
// stacked map, so an operation wraps itself in NewCheckpoint/RevertTo and
// either fully commits or leaves the ledger untouched.
type State struct {
	src   kv.Getter // backing store, may be nil for a purely in-memory ledger
	sm    *stackedmap.StackedMap[StorageKey, []byte]
	cache *lru.Cache // raw values read through from src
}

// New creates a state instance on top of the given backing store.
// src may be nil, in which case the state starts empty.
func New(src kv.Getter) *State {
	cache, _ := lru.New(readCacheSize)
	st := &State{src: src, cache: cache}
	st.sm = stackedmap.New(st.readThrough)
	st.sm.Push() // base level
	return st
}

func (s *State) readThrough(key StorageKey) ([]byte, bool, error) {
	if s.src == nil {
		return nil, false, nil
	}
	kb := key.bytes()
	if cached, ok := s.cache.Get(string(kb)); ok {
		return cached.([]byte), true, nil
	}
	raw, err := s.src.Get(kb)
	if err != nil {
		if s.src.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, errors.Wrap(err, "read storage")
	}
	s.cache.Add(string(kb), raw)
	return raw, true, nil
}

// GetRawStorage returns the raw RLP value for the given key, nil if unset.
func (s *State) GetRawStorage(addr mesh.Address, key mesh.Bytes32) ([]byte, error) {
	raw, _, err := s.sm.Get(StorageKey{addr, key})
	return raw, err
}

// SetRawStorage sets the raw RLP value for the given key. Empty raw deletes the value.
func (s *State) SetRawStorage(addr mesh.Address, key mesh.Bytes32, raw []byte) {
	s.sm.Put(StorageKey{addr, key}, raw)
}

// GetStorage returns a Bytes32 storage value.
func (s *State) GetStorage(addr mesh.Address, key mesh.Bytes32) (mesh.Bytes32, error) {
	raw, err := s.GetRawStorage(addr, key)
	if err != nil {
		return mesh.Bytes32{}, err
	}
	if len(raw) == 0 {
		return mesh.Bytes32{}, nil
	}
	var content []byte
	if err := rlp.DecodeBytes(raw, &content); err != nil {
		return mesh.Bytes32{}, errors.Wrap(err, "decode storage")
	}
	return mesh.BytesToBytes32(content), nil
}

// SetStorage sets a Bytes32 storage value. Zero value deletes the slot.
func (s *State) SetStorage(addr mesh.Address, key, value mesh.Bytes32) {
	if value.IsZero() {
		s.SetRawStorage(addr, key, nil)
		return
	}
	v, _ := rlp.EncodeToBytes(trimLeadingZeros(value.Bytes()))
	s.SetRawStorage(addr, key, v)
}

// EncodeStorage sets the storage value encoded by the given enc function.
func (s *State) EncodeStorage(addr mesh.Address, key mesh.Bytes32, enc func() ([]byte, error)) error {
	raw, err := enc()
	if err != nil {
		return errors.Wrap(err, "encode storage")
	}
	s.SetRawStorage(addr, key, raw)
	return nil
}

// DecodeStorage decodes the storage value at key via the given dec function.
// dec receives nil when the value is unset.
func (s *State) DecodeStorage(addr mesh.Address, key mesh.Bytes32, dec func([]byte) error) error {
	raw, err := s.GetRawStorage(addr, key)
	if err != nil {
		return err
	}
	return dec(raw)
}

// NewCheckpoint makes a checkpoint of the current state.
// It returns a checkpoint id to revert to.
func (s *State) NewCheckpoint() int {
	return s.sm.Push()
}

// RevertTo reverts the state to the given checkpoint.
// Panics if the checkpoint id is invalid.
func (s *State) RevertTo(checkpoint int) {
	s.sm.PopTo(checkpoint)
}

// Commit flushes the write journal to the given store.
// Empty values are deleted, everything else is put. The journal is replayed
// bottom-up so the latest write to a key wins.
func (s *State) Commit(store kv.Putter) error {
	var err error
	s.sm.Journal(func(key StorageKey, value []byte) bool {
		kb := key.bytes()
		if len(value) == 0 {
			s.cache.Remove(string(kb))
			err = store.Delete(kb)
		} else {
			s.cache.Add(string(kb), value)
			err = store.Put(kb, value)
		}
		return err == nil
	})
	return errors.Wrap(err, "commit storage")
}

func trimLeadingZeros(b []byte) []byte {
	for len(b) > 0 && b[0] == 0 {
		b = b[1:]
	}
	return b
}
