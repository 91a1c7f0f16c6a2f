// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package types

// FieldDoc is the name and documentation of one named struct field.
type FieldDoc struct {
	Name string
	Docs *string
}

// StructDocument is everything the walker hands to an emitter for one
// struct. Name is never empty. Fields is empty unless the struct has named
// fields.
type StructDocument struct {
	Unit   string   // Name of the unit the struct was found in
	ID     SymbolID // Symbol id within that unit
	Name   string
	Docs   *string
	Fields []FieldDoc
}
