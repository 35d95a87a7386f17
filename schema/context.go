// Copyright (c) 2026 The Stakemesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package schema provides typed storage cells on top of the versioned ledger,
// similar to declaring state variables in a smart contract.
package schema

import (
	"github.com/stakemesh/stakemesh/mesh"
	"github.com/stakemesh/stakemesh/state"
)

// Context binds storage cells to a ledger address.
type Context struct {
	address mesh.Address
	state   *state.State
}

// NewContext creates a storage context rooted at the given address.
func NewContext(address mesh.Address, st *state.State) *Context {
	return &Context{
		address: address,
		state:   st,
	}
}

// State returns the underlying state.
func (c *Context) State() *state.State {
	return c.state
}

// Address returns the ledger address the context is rooted at.
func (c *Context) Address() mesh.Address {
	return c.address
}

// NameToSlot derives a storage slot from a variable name.
func NameToSlot(name string) mesh.Bytes32 {
	return mesh.BytesToBytes32([]byte(name))
}
