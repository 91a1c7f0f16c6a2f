// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package walker

import (
	"fmt"
	"strings"

	"github.com/petar-djukic/docrag/internal/catalog"
	"github.com/petar-djukic/docrag/pkg/types"
)

// PathSeparator separates segments of a re-export source path.
const PathSeparator = "::"

// Path prefixes that refer to the unit containing the re-export.
const (
	prefixCurrentUnit = "crate"
	prefixParentScope = "super"
)

// TargetKind says how a Target selects its symbol.
type TargetKind int

const (
	TargetSymbol   TargetKind = iota // A specific symbol id in Unit
	TargetUnitRoot                   // The root module of Unit
)

func (k TargetKind) String() string {
	switch k {
	case TargetSymbol:
		return "symbol"
	case TargetUnitRoot:
		return "unit_root"
	default:
		return "unknown"
	}
}

// Target is the next place a walk continues at. ID is meaningful only for
// TargetSymbol.
type Target struct {
	Kind TargetKind
	Unit types.UnitID
	ID   types.SymbolID
}

// SymbolTarget returns a target for a specific symbol.
func SymbolTarget(unit types.UnitID, id types.SymbolID) Target {
	return Target{Kind: TargetSymbol, Unit: unit, ID: id}
}

// UnitRootTarget returns a target for a unit's root module.
func UnitRootTarget(unit types.UnitID) Target {
	return Target{Kind: TargetUnitRoot, Unit: unit}
}

// visitID is the id recorded in the visited set for this target.
func (t Target) visitID() types.SymbolID {
	if t.Kind == TargetUnitRoot {
		return types.RootSentinel
	}
	return t.ID
}

// Resolve decides where a re-export continues the walk.
//
// Paths starting with "crate" or "super" stay in the current unit at the
// pre-resolved id. A first segment naming a loaded unit enters that unit
// at its root, however deep the rest of the path goes. Anything else falls
// back to the pre-resolved id in the current unit, which covers glob
// imports and paths the documentation compiler left unresolved.
func Resolve(cat *catalog.Catalog, use *types.Use, current types.UnitID) (Target, error) {
	first, _, _ := strings.Cut(use.Source, PathSeparator)

	if first == prefixCurrentUnit || first == prefixParentScope {
		return sameUnit(use, current)
	}

	if unit, ok := cat.FindByName(first); ok {
		return UnitRootTarget(unit), nil
	}

	return sameUnit(use, current)
}

func sameUnit(use *types.Use, current types.UnitID) (Target, error) {
	if use.ID == nil {
		return Target{}, fmt.Errorf("%w: %q in unit %d has no target id", types.ErrUnresolvedReExport, use.Source, current)
	}
	return SymbolTarget(current, *use.ID), nil
}
