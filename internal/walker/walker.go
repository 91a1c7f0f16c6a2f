// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package walker traverses the symbol graph of a catalog, starting at the
// primary unit's root module, following re-exports across units, and
// handing every reachable struct to an Emitter.
package walker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/petar-djukic/docrag/internal/catalog"
	"github.com/petar-djukic/docrag/pkg/types"
	slogctx "github.com/veqryn/slog-context"
)

// ErrAlreadyWalked is returned when Walk is called twice on one Walker.
var ErrAlreadyWalked = errors.New("walker already used")

// Emitter receives one StructDocument per distinct struct the walk visits.
// Returning an error aborts the walk.
type Emitter interface {
	Emit(ctx context.Context, doc types.StructDocument) error
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(ctx context.Context, doc types.StructDocument) error

// Emit calls f.
func (f EmitterFunc) Emit(ctx context.Context, doc types.StructDocument) error {
	return f(ctx, doc)
}

// Stats summarizes a finished walk.
type Stats struct {
	Visited       int // Distinct (unit, symbol) pairs processed
	Emitted       int // Emitter calls
	RootFallbacks int // Lookups that fell back to the unit root
	UnitsEntered  int // Re-exports that entered a unit at its root
}

// Walker walks a catalog once. It owns its visited set and is not safe for
// concurrent use.
type Walker struct {
	cat     *catalog.Catalog
	emitter Emitter
	visited *VisitedSet
	stats   Stats
	used    bool

	// trace, if set, is called with every target after it is marked.
	trace func(Target)
}

// Option configures a Walker.
type Option func(*Walker)

// WithTrace registers a hook called for every target the walk processes,
// after the visited-set check.
func WithTrace(fn func(Target)) Option {
	return func(w *Walker) { w.trace = fn }
}

// New returns a Walker over cat that emits into emitter.
func New(cat *catalog.Catalog, emitter Emitter, opts ...Option) *Walker {
	w := &Walker{
		cat:     cat,
		emitter: emitter,
		visited: NewVisitedSet(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Walk traverses the graph depth-first from the primary unit's root. It
// either completes or returns the first error; there is no partial success.
func (w *Walker) Walk(ctx context.Context) (*Stats, error) {
	if w.used {
		return nil, ErrAlreadyWalked
	}
	w.used = true

	log := slogctx.FromCtx(ctx)
	primary := w.cat.Primary()

	// LIFO work list. Children are pushed in reverse so they pop in
	// declaration order, matching a recursive walk.
	stack := []Target{SymbolTarget(0, primary.Table.Root)}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return w.finish(), err
		}

		t := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		next, err := w.step(ctx, log, t)
		if err != nil {
			return w.finish(), err
		}
		for i := len(next) - 1; i >= 0; i-- {
			stack = append(stack, next[i])
		}
	}

	w.finish()
	log.Debug("walk finished",
		slog.Int("visited", w.stats.Visited),
		slog.Int("emitted", w.stats.Emitted),
		slog.Int("root_fallbacks", w.stats.RootFallbacks),
		slog.Int("units_entered", w.stats.UnitsEntered))

	return &w.stats, nil
}

func (w *Walker) finish() *Stats {
	w.stats.Visited = w.visited.Len()
	return &w.stats
}

// step processes one target and returns the targets to visit next, in
// declaration order.
func (w *Walker) step(ctx context.Context, log *slog.Logger, t Target) ([]Target, error) {
	if !w.visited.Mark(t.Unit, t.visitID()) {
		return nil, nil
	}
	if w.trace != nil {
		w.trace(t)
	}

	unit, ok := w.cat.Lookup(t.Unit)
	if !ok {
		return nil, fmt.Errorf("%w: unit %d is not loaded", types.ErrUnknownUnit, t.Unit)
	}

	sym, err := w.lookup(log, unit, t)
	if err != nil {
		return nil, err
	}

	kind := sym.Kind()
	switch kind {
	case types.KindModule:
		mod, ok := sym.Inner.(*types.Module)
		if !ok {
			return nil, payloadError(unit, sym)
		}
		next := make([]Target, len(mod.Items))
		for i, id := range mod.Items {
			next[i] = SymbolTarget(t.Unit, id)
		}
		return next, nil

	case types.KindUse:
		use, ok := sym.Inner.(*types.Use)
		if !ok {
			return nil, payloadError(unit, sym)
		}
		target, err := Resolve(w.cat, use, t.Unit)
		if err != nil {
			return nil, fmt.Errorf("unit %q symbol %d: %w", unit.Name, sym.ID, err)
		}
		return []Target{target}, nil

	case types.KindStruct:
		st, ok := sym.Inner.(*types.Struct)
		if !ok {
			return nil, payloadError(unit, sym)
		}
		doc, err := document(unit, sym, st)
		if err != nil {
			return nil, err
		}
		if err := w.emitter.Emit(ctx, doc); err != nil {
			return nil, fmt.Errorf("emitting %s from unit %q: %w", doc.Name, unit.Name, err)
		}
		w.stats.Emitted++
		return nil, nil

	case types.KindEnum:
		enum, ok := sym.Inner.(*types.Enum)
		if !ok {
			return nil, payloadError(unit, sym)
		}
		next := make([]Target, len(enum.Variants))
		for i, id := range enum.Variants {
			next[i] = SymbolTarget(t.Unit, id)
		}
		return next, nil

	case types.KindStructField, types.KindVariant, types.KindFunction,
		types.KindTrait, types.KindImpl, types.KindTypeAlias,
		types.KindConstant, types.KindStatic, types.KindMacro,
		types.KindProcMacro, types.KindAssocType:
		return nil, nil

	case types.KindUnion, types.KindTraitAlias, types.KindExternType,
		types.KindExternCrate, types.KindPrimitive, types.KindAssocConst:
		return nil, fmt.Errorf("%w: %s %s (unit %q, id %d)",
			types.ErrUnsupportedKind, kind, sym.DisplayName(), unit.Name, sym.ID)

	default:
		return nil, fmt.Errorf("%w: kind %d on %s (unit %q, id %d)",
			types.ErrUnsupportedKind, int(kind), sym.DisplayName(), unit.Name, sym.ID)
	}
}

func payloadError(unit *catalog.Unit, sym *types.Symbol) error {
	return fmt.Errorf("%w: %s %s (unit %q, id %d) has no %s payload",
		types.ErrMalformedInterchange, sym.Kind(), sym.DisplayName(), unit.Name, sym.ID, sym.Kind())
}

// lookup returns the record for t, substituting the unit's root record when
// the id is not resident in the unit's table.
func (w *Walker) lookup(log *slog.Logger, unit *catalog.Unit, t Target) (*types.Symbol, error) {
	if t.Kind == TargetUnitRoot {
		w.stats.UnitsEntered++
		log.Debug("entering unit at root", slog.String("unit", unit.Name))
		return unit.RootSymbol()
	}

	if sym, ok := unit.Symbol(t.ID); ok {
		return sym, nil
	}

	w.stats.RootFallbacks++
	log.Debug("symbol not in table, falling back to root",
		slog.String("unit", unit.Name), slog.Uint64("id", uint64(t.ID)))
	return unit.RootSymbol()
}

// document builds the emitter input for a struct. Named fields are looked
// up in the struct's own unit; positional fields are not documented.
func document(unit *catalog.Unit, sym *types.Symbol, s *types.Struct) (types.StructDocument, error) {
	if sym.Name == nil || *sym.Name == "" {
		return types.StructDocument{}, fmt.Errorf("%w: struct %d in unit %q has no name",
			types.ErrMalformedInterchange, sym.ID, unit.Name)
	}

	doc := types.StructDocument{
		Unit: unit.Name,
		ID:   sym.ID,
		Name: *sym.Name,
		Docs: sym.Docs,
	}

	if s.Shape != types.StructPlain {
		return doc, nil
	}

	doc.Fields = make([]types.FieldDoc, 0, len(s.Fields))
	for _, id := range s.Fields {
		field, ok := unit.Symbol(id)
		if !ok {
			return types.StructDocument{}, fmt.Errorf("%w: field %d of %s in unit %q",
				types.ErrMissingField, id, doc.Name, unit.Name)
		}
		if field.Name == nil {
			return types.StructDocument{}, fmt.Errorf("%w: field %d of %s in unit %q has no name",
				types.ErrMalformedInterchange, id, doc.Name, unit.Name)
		}
		doc.Fields = append(doc.Fields, types.FieldDoc{Name: *field.Name, Docs: field.Docs})
	}
	return doc, nil
}
