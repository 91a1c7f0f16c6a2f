// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package types defines shared types used across docrag packages.
package types

import "math"

// UnitID identifies a compilation unit within a catalog. Unit 0 is always
// the primary unit being documented.
type UnitID uint32

// SymbolID is an opaque symbol identifier. It is unique only within the
// symbol table of one unit.
type SymbolID uint32

// RootSentinel is the symbol id recorded in the visited set when a walk
// re-enters a unit at its root module. No interchange file assigns it.
const RootSentinel SymbolID = math.MaxUint32

// Kind identifies the category of a documented symbol.
type Kind int

const (
	KindModule      Kind = iota // Module with ordered children
	KindUse                     // Re-export of another symbol
	KindUnion                   // Untagged union
	KindStruct                  // Product record
	KindStructField             // Field of a struct or variant
	KindEnum                    // Sum record
	KindVariant                 // Variant of an enum
	KindFunction                // Free function or method
	KindTrait                   // Trait declaration
	KindTraitAlias              // Trait alias
	KindImpl                    // Impl block
	KindTypeAlias               // Type alias
	KindConstant                // Constant
	KindStatic                  // Static item
	KindExternType              // Foreign type declared in an extern block
	KindMacro                   // Declarative macro
	KindProcMacro               // Procedural macro
	KindPrimitive               // Primitive type
	KindAssocConst              // Associated constant
	KindAssocType               // Associated type
	KindExternCrate             // extern crate declaration
)

// AllKinds lists every Kind in declaration order.
var AllKinds = []Kind{
	KindModule, KindUse, KindUnion, KindStruct, KindStructField, KindEnum,
	KindVariant, KindFunction, KindTrait, KindTraitAlias, KindImpl,
	KindTypeAlias, KindConstant, KindStatic, KindExternType, KindMacro,
	KindProcMacro, KindPrimitive, KindAssocConst, KindAssocType, KindExternCrate,
}

var kindNames = map[Kind]string{
	KindModule:      "module",
	KindUse:         "use",
	KindUnion:       "union",
	KindStruct:      "struct",
	KindStructField: "struct_field",
	KindEnum:        "enum",
	KindVariant:     "variant",
	KindFunction:    "function",
	KindTrait:       "trait",
	KindTraitAlias:  "trait_alias",
	KindImpl:        "impl",
	KindTypeAlias:   "type_alias",
	KindConstant:    "constant",
	KindStatic:      "static",
	KindExternType:  "extern_type",
	KindMacro:       "macro",
	KindProcMacro:   "proc_macro",
	KindPrimitive:   "primitive",
	KindAssocConst:  "assoc_const",
	KindAssocType:   "assoc_type",
	KindExternCrate: "extern_crate",
}

// String returns the interchange tag of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// KindFromTag maps an interchange tag such as "struct" to its Kind.
func KindFromTag(tag string) (Kind, bool) {
	for k, name := range kindNames {
		if name == tag {
			return k, true
		}
	}
	return 0, false
}

// Symbol is one documented entity from a unit's symbol table.
type Symbol struct {
	ID    SymbolID
	Name  *string // Display name; nil for impls and some re-exports
	Docs  *string // Free-text documentation
	Inner Inner   // Kind-specific payload
}

// Kind returns the kind of the symbol's payload.
func (s *Symbol) Kind() Kind {
	if s.Inner == nil {
		return -1
	}
	return s.Inner.Kind()
}

// DisplayName returns the symbol name, or "<unnamed>" when it has none.
func (s *Symbol) DisplayName() string {
	if s.Name == nil || *s.Name == "" {
		return "<unnamed>"
	}
	return *s.Name
}

// Inner is the kind-specific payload of a Symbol. The set of
// implementations is closed to this package.
type Inner interface {
	Kind() Kind
	sealed()
}

// Module lists a module's children in declaration order.
type Module struct {
	Items   []SymbolID
	IsCrate bool
}

// Use is a re-export. Source is the "::"-separated path of the original
// declaration; ID is the target within the current unit, if the
// documentation compiler could resolve it.
type Use struct {
	Source string
	Name   string
	ID     *SymbolID
	IsGlob bool
}

// StructKind distinguishes the three struct shapes.
type StructKind int

const (
	StructUnit  StructKind = iota // struct S;
	StructTuple                   // struct S(A, B);
	StructPlain                   // struct S { a: A }
)

// Struct is a product record. Fields holds named field ids for plain
// structs; Tuple holds positional field ids (nil entries are stripped
// fields).
type Struct struct {
	Shape  StructKind
	Fields []SymbolID
	Tuple  []*SymbolID
}

// Enum is a sum record with variants in declaration order.
type Enum struct {
	Variants []SymbolID
}

// Opaque is the payload of every kind whose contents are not read.
type Opaque struct {
	K Kind
}

func (*Module) Kind() Kind { return KindModule }
func (*Use) Kind() Kind { return KindUse }
func (*Struct) Kind() Kind { return KindStruct }
func (*Enum) Kind() Kind { return KindEnum }
func (o Opaque) Kind() Kind { return o.K }

func (*Module) sealed() {}
func (*Use) sealed() {}
func (*Struct) sealed() {}
func (*Enum) sealed() {}
func (Opaque) sealed() {}
