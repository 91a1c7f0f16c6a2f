// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package walker

import (
	"context"
	"testing"

	"github.com/petar-djukic/docrag/internal/catalog"
	"github.com/petar-djukic/docrag/pkg/types"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func idPtr(id types.SymbolID) *types.SymbolID { return &id }

// tableBuilder assembles a symbol table for tests.
type tableBuilder struct {
	table *catalog.Table
}

func newTable(root types.SymbolID, rootItems ...types.SymbolID) *tableBuilder {
	b := &tableBuilder{table: &catalog.Table{
		Root:          root,
		Index:         make(map[types.SymbolID]*types.Symbol),
		ExternalUnits: make(map[types.UnitID]catalog.ExternalUnit),
	}}
	b.module(root, "root", rootItems...)
	return b
}

func (b *tableBuilder) add(id types.SymbolID, name string, inner types.Inner) *tableBuilder {
	sym := &types.Symbol{ID: id, Inner: inner}
	if name != "" {
		sym.Name = strPtr(name)
	}
	b.table.Index[id] = sym
	return b
}

func (b *tableBuilder) module(id types.SymbolID, name string, items ...types.SymbolID) *tableBuilder {
	return b.add(id, name, &types.Module{Items: items})
}

func (b *tableBuilder) plainStruct(id types.SymbolID, name string, fields ...types.SymbolID) *tableBuilder {
	return b.add(id, name, &types.Struct{Shape: types.StructPlain, Fields: fields})
}

func (b *tableBuilder) field(id types.SymbolID, name string, docs *string) *tableBuilder {
	b.add(id, name, types.Opaque{K: types.KindStructField})
	b.table.Index[id].Docs = docs
	return b
}

func (b *tableBuilder) use(id types.SymbolID, source string, target *types.SymbolID) *tableBuilder {
	return b.add(id, "", &types.Use{Source: source, ID: target})
}

func (b *tableBuilder) opaque(id types.SymbolID, name string, kind types.Kind) *tableBuilder {
	return b.add(id, name, types.Opaque{K: kind})
}

func (b *tableBuilder) dep(id types.UnitID, name string) *tableBuilder {
	b.table.ExternalUnits[id] = catalog.ExternalUnit{Name: name}
	return b
}

// newCatalog builds a catalog from the primary table and the given
// dependency units, keyed by unit id.
func newCatalog(t *testing.T, primary *tableBuilder, deps map[types.UnitID]catalog.Unit) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New(catalog.Unit{Name: "app", Table: primary.table})
	require.NoError(t, err)
	for id, u := range deps {
		require.NoError(t, cat.Set(id, u))
	}
	return cat
}

// recorder collects emitted documents.
type recorder struct {
	docs []types.StructDocument
}

func (r *recorder) Emit(_ context.Context, doc types.StructDocument) error {
	r.docs = append(r.docs, doc)
	return nil
}

func (r *recorder) names() []string {
	names := make([]string, len(r.docs))
	for i, d := range r.docs {
		names[i] = d.Unit + "::" + d.Name
	}
	return names
}

// walkAll runs a full walk and returns the recorder and every traced
// target in processing order.
func walkAll(t *testing.T, cat *catalog.Catalog) (*recorder, []Target, *Stats, error) {
	t.Helper()
	rec := &recorder{}
	var traced []Target
	w := New(cat, rec, WithTrace(func(tg Target) { traced = append(traced, tg) }))
	stats, err := w.Walk(context.Background())
	return rec, traced, stats, err
}
