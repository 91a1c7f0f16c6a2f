// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package catalog holds the symbol tables of the primary compilation unit
// and its dependencies, indexed by unit id.
package catalog

import (
	"fmt"

	"github.com/petar-djukic/docrag/pkg/types"
)

// ExternalUnit describes a dependency declared by a unit.
type ExternalUnit struct {
	Name        string
	HTMLRootURL string
}

// Table is one unit's symbol table as read from its interchange file.
type Table struct {
	Root          types.SymbolID
	FormatVersion int
	Index         map[types.SymbolID]*types.Symbol
	ExternalUnits map[types.UnitID]ExternalUnit
}

// Unit is a loaded compilation unit: its name and its symbol table.
type Unit struct {
	Name  string
	Table *Table
}

// Symbol returns the record for id, if the unit's table holds it.
func (u *Unit) Symbol(id types.SymbolID) (*types.Symbol, bool) {
	sym, ok := u.Table.Index[id]
	return sym, ok
}

// RootSymbol returns the unit's top-level module record.
func (u *Unit) RootSymbol() (*types.Symbol, error) {
	sym, ok := u.Table.Index[u.Table.Root]
	if !ok {
		return nil, fmt.Errorf("%w: unit %q root id %d is not in its index",
			types.ErrMalformedInterchange, u.Name, u.Table.Root)
	}
	return sym, nil
}

// Catalog is a fixed-size sequence of optional units. Slot 0 is always the
// primary unit; slot i > 0 holds the dependency the primary unit declares
// under external unit id i, or nothing if its file was not supplied.
type Catalog struct {
	slots []*Unit
}

// New creates a catalog sized from the primary unit's declared
// dependencies and stores the primary unit in slot 0.
func New(primary Unit) (*Catalog, error) {
	if primary.Table == nil {
		return nil, fmt.Errorf("%w: primary unit %q has no symbol table", types.ErrMalformedInterchange, primary.Name)
	}
	if _, err := primary.RootSymbol(); err != nil {
		return nil, err
	}

	size := len(primary.Table.ExternalUnits) + 1
	for id := range primary.Table.ExternalUnits {
		if int(id) >= size {
			size = int(id) + 1
		}
	}

	c := &Catalog{slots: make([]*Unit, size)}
	c.slots[0] = &primary
	return c, nil
}

// Set stores a dependency unit in slot id.
func (c *Catalog) Set(id types.UnitID, u Unit) error {
	if id == 0 {
		return fmt.Errorf("slot 0 is reserved for the primary unit")
	}
	if int(id) >= len(c.slots) {
		return fmt.Errorf("%w: id %d outside catalog of %d slots", types.ErrUnknownUnit, id, len(c.slots))
	}
	if u.Table == nil {
		return fmt.Errorf("%w: unit %q has no symbol table", types.ErrMalformedInterchange, u.Name)
	}
	c.slots[id] = &u
	return nil
}

// Lookup returns the unit in slot id, if present.
func (c *Catalog) Lookup(id types.UnitID) (*Unit, bool) {
	if int(id) >= len(c.slots) {
		return nil, false
	}
	u := c.slots[id]
	return u, u != nil
}

// Primary returns the unit in slot 0.
func (c *Catalog) Primary() *Unit {
	return c.slots[0]
}

// FindByName returns the id of the first present unit with the given name.
// Units sharing a name are not disambiguated.
func (c *Catalog) FindByName(name string) (types.UnitID, bool) {
	for i, u := range c.slots {
		if u != nil && u.Name == name {
			return types.UnitID(i), true
		}
	}
	return 0, false
}

// Len returns the number of slots, present or not.
func (c *Catalog) Len() int {
	return len(c.slots)
}

// Loaded returns the ids of present slots in ascending order.
func (c *Catalog) Loaded() []types.UnitID {
	var ids []types.UnitID
	for i, u := range c.slots {
		if u != nil {
			ids = append(ids, types.UnitID(i))
		}
	}
	return ids
}
