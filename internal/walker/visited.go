// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package walker

import "github.com/petar-djukic/docrag/pkg/types"

type visitKey struct {
	unit types.UnitID
	id   types.SymbolID
}

// VisitedSet records the (unit, symbol) pairs a walk has processed. It is
// the only cycle guard in the traversal.
type VisitedSet struct {
	seen map[visitKey]struct{}
}

// NewVisitedSet returns an empty set.
func NewVisitedSet() *VisitedSet {
	return &VisitedSet{seen: make(map[visitKey]struct{})}
}

// Mark inserts the pair and reports whether it was new.
func (v *VisitedSet) Mark(unit types.UnitID, id types.SymbolID) bool {
	key := visitKey{unit, id}
	if _, dup := v.seen[key]; dup {
		return false
	}
	v.seen[key] = struct{}{}
	return true
}

// Contains reports whether the pair has been marked.
func (v *VisitedSet) Contains(unit types.UnitID, id types.SymbolID) bool {
	_, ok := v.seen[visitKey{unit, id}]
	return ok
}

// Len returns the number of marked pairs.
func (v *VisitedSet) Len() int {
	return len(v.seen)
}
