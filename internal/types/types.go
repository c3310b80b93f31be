// Package types implements the interned, arena-allocated type table: a
// hash-consed table of closed tagged-variant type descriptors addressed by a
// dense TypeID, plus the side tables that carry variant-specific payloads too
// large to fit inline in the descriptor itself.
package types

import (
	"fmt"

	"fortio.org/safecast"

	"rayzor/internal/source"
)

// TypeID uniquely identifies a type inside the interner. Zero is reserved.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// SymbolID is a foreign-key reference into the symbol table. It is declared
// here (rather than imported from internal/symbols) because Type carries one
// inline and internal/symbols already depends on internal/types; symbols.SymbolID
// converts to/from this type at the package boundary.
type SymbolID uint32

// NoSymbolID marks the absence of a symbol reference.
const NoSymbolID SymbolID = 0

// LifetimeID identifies a lifetime variable assigned to a TAST expression or
// carried by a Reference type; the lifetime solver owns the id space.
type LifetimeID uint32

// NoLifetimeID marks the absence of a lifetime.
const NoLifetimeID LifetimeID = 0

// Kind enumerates the closed tagged-variant set of type kinds.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindVoid
	KindBool
	KindInt
	KindFloat
	KindChar
	KindString
	KindDynamic
	KindUnknown
	KindError
	KindClass
	KindInterface
	KindEnum
	KindAbstract
	KindTypeAlias
	KindFunction
	KindArray
	KindMap
	KindOptional
	KindTypeParameter
	KindGenericInstance
	KindAnonymous
	KindUnion
	KindIntersection
	KindReference
	KindPlaceholder
)

func (k Kind) String() string {
	switch k {
	case KindVoid:
		return "void"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindChar:
		return "char"
	case KindString:
		return "string"
	case KindDynamic:
		return "dynamic"
	case KindUnknown:
		return "unknown"
	case KindError:
		return "error"
	case KindClass:
		return "class"
	case KindInterface:
		return "interface"
	case KindEnum:
		return "enum"
	case KindAbstract:
		return "abstract"
	case KindTypeAlias:
		return "typealias"
	case KindFunction:
		return "function"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	case KindOptional:
		return "optional"
	case KindTypeParameter:
		return "typeparam"
	case KindGenericInstance:
		return "generic"
	case KindAnonymous:
		return "anonymous"
	case KindUnion:
		return "union"
	case KindIntersection:
		return "intersection"
	case KindReference:
		return "reference"
	case KindPlaceholder:
		return "placeholder"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Width captures the precision of numeric primitives; WidthAny means
// platform/inference-determined width ("int"/"float" with no fixed size).
type Width uint8

const (
	WidthAny Width = 0
	Width8   Width = 8
	Width16  Width = 16
	Width32  Width = 32
	Width64  Width = 64
)

// Flags holds boolean type attributes: complete,
// recursive, extern, abstract, final, copy, needs_drop, zero_sized.
type Flags uint16

const (
	FlagComplete Flags = 1 << iota
	FlagRecursive
	FlagExtern
	FlagAbstractFlag
	FlagFinal
	FlagCopy
	FlagNeedsDrop
	FlagZeroSized
)

// Type is the compact descriptor stored per TypeID: discriminant plus a
// small fixed-width inline payload, with larger per-variant metadata kept in
// parallel side tables addressed by Payload (see nominal.go, fn.go, etc).
type Type struct {
	Kind     Kind
	Width    Width    // KindInt / KindFloat
	A        TypeID   // primary referenced type (elem/inner/target/base)
	B        TypeID   // secondary referenced type (map value)
	Sym      SymbolID // KindClass/Interface/Enum/Abstract/TypeAlias/TypeParameter
	Lifetime LifetimeID
	Mutable  bool // KindReference
	Payload  uint32
	Flags    Flags
	Loc      source.Span
	Size     uint64 // advisory; 0 if unknown
	Align    uint32 // advisory; 0 if unknown
	HasSize  bool
}

// Builtins caches the TypeIDs of primitive types, each pre-allocated and
// retrievable in O(1).
type Builtins struct {
	Void    TypeID
	Bool    TypeID
	Int     TypeID
	Int8    TypeID
	Int16   TypeID
	Int32   TypeID
	Int64   TypeID
	Float   TypeID
	Float32 TypeID
	Float64 TypeID
	Char    TypeID
	String  TypeID
	Dynamic TypeID
	Unknown TypeID
	Error   TypeID
}

// Interner is the type table: it hash-conses every created Type so that
// structurally identical descriptors resolve to the same TypeID, and it owns
// the side tables for variant-specific payloads plus the multi-level
// query cache.
type Interner struct {
	Strings *source.Interner

	types []Type
	index map[typeKey]TypeID // simple fixed-shape kinds
	named map[string]TypeID  // compound/variable-arity kinds (generic key string)

	builtins Builtins

	classes    []NominalInfo
	interfaces []NominalInfo
	enums      []EnumInfo
	abstracts  []AbstractInfo
	aliases    []AliasInfo
	fns        []FnInfo
	params     []TypeParamInfo
	generics   []GenericInstanceInfo
	anons      []AnonymousInfo
	unions     []UnionInfo

	typeLayoutAttrs map[TypeID]LayoutAttrs

	cache L1Cache
}

// NewInterner constructs an interner seeded with the pre-allocated primitive
// types so that primitive lookups never touch the hash-cons maps.
func NewInterner() *Interner {
	in := &Interner{
		index: make(map[typeKey]TypeID, 64),
		named: make(map[string]TypeID, 64),
	}
	in.cache = newL1Cache()
	// Reserve slot 0 in every side table so Payload==0 reads as "no payload".
	in.classes = append(in.classes, NominalInfo{})
	in.interfaces = append(in.interfaces, NominalInfo{})
	in.enums = append(in.enums, EnumInfo{})
	in.abstracts = append(in.abstracts, AbstractInfo{})
	in.aliases = append(in.aliases, AliasInfo{})
	in.fns = append(in.fns, FnInfo{})
	in.params = append(in.params, TypeParamInfo{})
	in.generics = append(in.generics, GenericInstanceInfo{})
	in.anons = append(in.anons, AnonymousInfo{})
	in.unions = append(in.unions, UnionInfo{})

	in.types = append(in.types, Type{Kind: KindInvalid}) // NoTypeID sentinel

	in.builtins.Void = in.internSimple(Type{Kind: KindVoid, Flags: FlagComplete | FlagZeroSized})
	in.builtins.Bool = in.internSimple(Type{Kind: KindBool, Flags: FlagComplete | FlagCopy})
	in.builtins.Int = in.internSimple(Type{Kind: KindInt, Width: WidthAny, Flags: FlagComplete | FlagCopy})
	in.builtins.Int8 = in.internSimple(Type{Kind: KindInt, Width: Width8, Flags: FlagComplete | FlagCopy})
	in.builtins.Int16 = in.internSimple(Type{Kind: KindInt, Width: Width16, Flags: FlagComplete | FlagCopy})
	in.builtins.Int32 = in.internSimple(Type{Kind: KindInt, Width: Width32, Flags: FlagComplete | FlagCopy})
	in.builtins.Int64 = in.internSimple(Type{Kind: KindInt, Width: Width64, Flags: FlagComplete | FlagCopy})
	in.builtins.Float = in.internSimple(Type{Kind: KindFloat, Width: WidthAny, Flags: FlagComplete | FlagCopy})
	in.builtins.Float32 = in.internSimple(Type{Kind: KindFloat, Width: Width32, Flags: FlagComplete | FlagCopy})
	in.builtins.Float64 = in.internSimple(Type{Kind: KindFloat, Width: Width64, Flags: FlagComplete | FlagCopy})
	in.builtins.Char = in.internSimple(Type{Kind: KindChar, Flags: FlagComplete | FlagCopy})
	in.builtins.String = in.internSimple(Type{Kind: KindString, Flags: FlagComplete})
	in.builtins.Dynamic = in.internSimple(Type{Kind: KindDynamic, Flags: FlagComplete})
	in.builtins.Unknown = in.internSimple(Type{Kind: KindUnknown})
	in.builtins.Error = in.internSimple(Type{Kind: KindError, Flags: FlagComplete})
	return in
}

// Builtins returns the pre-allocated primitive TypeIDs.
func (in *Interner) Builtins() Builtins { return in.builtins }

// typeKey is the hash-cons key for kinds whose full identity fits in Type's
// inline fields (everything except the variable-arity compound kinds, which
// use the `named` string-keyed index instead; see cache.go).
type typeKey struct {
	Kind     Kind
	Width    Width
	A        TypeID
	B        TypeID
	Sym      SymbolID
	Lifetime LifetimeID
	Mutable  bool
}

func keyOf(t Type) typeKey {
	return typeKey{Kind: t.Kind, Width: t.Width, A: t.A, B: t.B, Sym: t.Sym, Lifetime: t.Lifetime, Mutable: t.Mutable}
}

// internSimple hash-conses a descriptor whose identity is fully captured by
// typeKey (primitives, Array, Optional, Map, Reference, Placeholder, and
// non-generic nominal references). Returns an existing id on a key hit.
func (in *Interner) internSimple(t Type) TypeID {
	key := keyOf(t)
	if id, ok := in.index[key]; ok {
		return id
	}
	return in.internRaw(t, key)
}

func (in *Interner) internRaw(t Type, key typeKey) TypeID {
	idx, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("types: type table overflow: %w", err))
	}
	id := TypeID(idx)
	in.types = append(in.types, t)
	in.index[key] = id
	return id
}

// internNamed hash-conses a descriptor under a precomputed compound string
// key (used for function/union/intersection/anonymous/generic-instance
// kinds, whose full identity includes a variable-length argument list).
func (in *Interner) internNamed(name string, build func() Type) TypeID {
	if id, ok := in.named[name]; ok {
		return id
	}
	t := build()
	idx, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("types: type table overflow: %w", err))
	}
	id := TypeID(idx)
	in.types = append(in.types, t)
	in.named[name] = id
	return id
}

// Lookup returns the descriptor for a TypeID, or (Type{}, false) for an
// invalid id. Invalid id queries never panic.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	if id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup panics when id is invalid; reserved for call sites that already
// established validity (e.g. right after interning).
func (in *Interner) MustLookup(id TypeID) Type {
	tt, ok := in.Lookup(id)
	if !ok {
		panic("types: invalid TypeID")
	}
	return tt
}

// Len reports the number of interned types, including the sentinel.
func (in *Interner) Len() int { return len(in.types) }

// IsCopy reports whether values of this type can be implicitly copied,
// matching the Copy flag plus structural rules for kinds that are always (or
// conditionally) Copy.
func (in *Interner) IsCopy(id TypeID) bool {
	tt, ok := in.Lookup(id)
	if !ok {
		return false
	}
	if tt.Flags&FlagCopy != 0 {
		return true
	}
	switch tt.Kind {
	case KindEnum, KindFunction:
		return true
	case KindReference:
		return !tt.Mutable
	case KindOptional:
		return in.IsCopy(tt.A)
	default:
		return false
	}
}
