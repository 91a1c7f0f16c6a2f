// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package interchange reads rustdoc JSON files into catalog tables.
package interchange

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/petar-djukic/docrag/internal/catalog"
	"github.com/petar-djukic/docrag/pkg/types"
)

type rawCrate struct {
	Root           *types.SymbolID             `json:"root"`
	FormatVersion  int                         `json:"format_version"`
	Index          map[string]rawItem          `json:"index"`
	ExternalCrates map[string]rawExternalCrate `json:"external_crates"`
}

type rawExternalCrate struct {
	Name        string `json:"name"`
	HTMLRootURL string `json:"html_root_url"`
}

type rawItem struct {
	ID    *types.SymbolID `json:"id"`
	Name  *string         `json:"name"`
	Docs  *string         `json:"docs"`
	Inner json.RawMessage `json:"inner"`
}

type rawModule struct {
	Items   []types.SymbolID `json:"items"`
	IsCrate bool             `json:"is_crate"`
}

type rawUse struct {
	Source string          `json:"source"`
	Name   string          `json:"name"`
	ID     *types.SymbolID `json:"id"`
	IsGlob bool            `json:"is_glob"`
}

type rawStruct struct {
	Kind json.RawMessage `json:"kind"`
}

type rawPlain struct {
	Fields []types.SymbolID `json:"fields"`
}

type rawEnum struct {
	Variants []types.SymbolID `json:"variants"`
}

// Decode reads one rustdoc JSON document. Only the subset the walker needs
// is kept; payloads of kinds the walker never opens are dropped.
func Decode(r io.Reader) (*catalog.Table, error) {
	var raw rawCrate
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrMalformedInterchange, err)
	}
	if raw.Root == nil {
		return nil, fmt.Errorf("%w: missing root", types.ErrMalformedInterchange)
	}

	t := &catalog.Table{
		Root:          *raw.Root,
		FormatVersion: raw.FormatVersion,
		Index:         make(map[types.SymbolID]*types.Symbol, len(raw.Index)),
		ExternalUnits: make(map[types.UnitID]catalog.ExternalUnit, len(raw.ExternalCrates)),
	}

	for k, item := range raw.Index {
		id, err := parseID(k)
		if err != nil {
			return nil, fmt.Errorf("index key: %w", err)
		}
		if item.ID != nil && *item.ID != id {
			return nil, fmt.Errorf("%w: item under key %q has id %d",
				types.ErrMalformedInterchange, k, *item.ID)
		}
		inner, err := decodeInner(item.Inner)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", id, err)
		}
		t.Index[id] = &types.Symbol{
			ID:    id,
			Name:  item.Name,
			Docs:  item.Docs,
			Inner: inner,
		}
	}

	for k, c := range raw.ExternalCrates {
		id, err := parseID(k)
		if err != nil {
			return nil, fmt.Errorf("external crate key: %w", err)
		}
		t.ExternalUnits[types.UnitID(id)] = catalog.ExternalUnit{Name: c.Name, HTMLRootURL: c.HTMLRootURL}
	}
	return t, nil
}

// parseID parses a decimal map key. Keys in any other form, such as the
// "0:1:2" ids of older rustdoc formats, are malformed.
func parseID(key string) (types.SymbolID, error) {
	n, err := strconv.ParseUint(key, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: id %q is not a decimal integer", types.ErrMalformedInterchange, key)
	}
	return types.SymbolID(n), nil
}

// decodeInner decodes an externally tagged item payload: either a bare
// tag string or an object with exactly one key.
func decodeInner(data json.RawMessage) (types.Inner, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, fmt.Errorf("%w: item has no inner", types.ErrMalformedInterchange)
	}

	if data[0] == '"' {
		var tag string
		if err := json.Unmarshal(data, &tag); err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrMalformedInterchange, err)
		}
		return decodeTagged(tag, nil)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("%w: inner: %v", types.ErrMalformedInterchange, err)
	}
	if len(obj) != 1 {
		return nil, fmt.Errorf("%w: inner has %d tags, want 1", types.ErrMalformedInterchange, len(obj))
	}
	var (
		tag     string
		payload json.RawMessage
	)
	for k, v := range obj {
		tag, payload = k, v
	}
	return decodeTagged(tag, payload)
}

func decodeTagged(tag string, payload json.RawMessage) (types.Inner, error) {
	kind, ok := types.KindFromTag(tag)
	if !ok {
		return nil, fmt.Errorf("%w: unknown item kind %q", types.ErrMalformedInterchange, tag)
	}

	switch kind {
	case types.KindModule:
		var m rawModule
		if err := unmarshalPayload(tag, payload, &m); err != nil {
			return nil, err
		}
		return &types.Module{Items: m.Items, IsCrate: m.IsCrate}, nil

	case types.KindUse:
		var u rawUse
		if err := unmarshalPayload(tag, payload, &u); err != nil {
			return nil, err
		}
		return &types.Use{Source: u.Source, Name: u.Name, ID: u.ID, IsGlob: u.IsGlob}, nil

	case types.KindStruct:
		var s rawStruct
		if err := unmarshalPayload(tag, payload, &s); err != nil {
			return nil, err
		}
		return decodeStructKind(s.Kind)

	case types.KindEnum:
		var e rawEnum
		if err := unmarshalPayload(tag, payload, &e); err != nil {
			return nil, err
		}
		return &types.Enum{Variants: e.Variants}, nil

	default:
		return types.Opaque{K: kind}, nil
	}
}

func unmarshalPayload(tag string, payload json.RawMessage, v any) error {
	if len(payload) == 0 {
		return fmt.Errorf("%w: %s has no payload", types.ErrMalformedInterchange, tag)
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %s payload: %v", types.ErrMalformedInterchange, tag, err)
	}
	return nil
}

// decodeStructKind handles "unit", {"tuple": [...]} and {"plain": {...}}.
func decodeStructKind(data json.RawMessage) (*types.Struct, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var tag string
		if err := json.Unmarshal(data, &tag); err != nil {
			return nil, fmt.Errorf("%w: struct kind: %v", types.ErrMalformedInterchange, err)
		}
		if tag != "unit" {
			return nil, fmt.Errorf("%w: unknown struct kind %q", types.ErrMalformedInterchange, tag)
		}
		return &types.Struct{Shape: types.StructUnit}, nil
	}

	var obj struct {
		Tuple []*types.SymbolID `json:"tuple"`
		Plain *rawPlain         `json:"plain"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("%w: struct kind: %v", types.ErrMalformedInterchange, err)
	}
	switch {
	case obj.Plain != nil:
		return &types.Struct{Shape: types.StructPlain, Fields: obj.Plain.Fields}, nil
	case obj.Tuple != nil:
		return &types.Struct{Shape: types.StructTuple, Tuple: obj.Tuple}, nil
	default:
		return nil, fmt.Errorf("%w: struct has no kind", types.ErrMalformedInterchange)
	}
}
