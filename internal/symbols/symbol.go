package symbols

import (
	"fmt"

	"rayzor/internal/source"
	"rayzor/internal/types"
)

// SymbolKind classifies the semantic meaning of a symbol.
type SymbolKind uint8

const (
	SymbolInvalid SymbolKind = iota
	SymbolVariable
	SymbolParameter
	SymbolFunction
	SymbolClass
	SymbolInterface
	SymbolEnum
	SymbolTypeAlias
	SymbolAbstract
	SymbolField
	SymbolProperty
	SymbolEnumVariant
	SymbolModule
	SymbolImportAlias
	SymbolTypeParameter
	SymbolMacro
	SymbolMetadata
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolVariable:
		return "variable"
	case SymbolParameter:
		return "parameter"
	case SymbolFunction:
		return "function"
	case SymbolClass:
		return "class"
	case SymbolInterface:
		return "interface"
	case SymbolEnum:
		return "enum"
	case SymbolTypeAlias:
		return "typealias"
	case SymbolAbstract:
		return "abstract"
	case SymbolField:
		return "field"
	case SymbolProperty:
		return "property"
	case SymbolEnumVariant:
		return "enumvariant"
	case SymbolModule:
		return "module"
	case SymbolImportAlias:
		return "importalias"
	case SymbolTypeParameter:
		return "typeparameter"
	case SymbolMacro:
		return "macro"
	case SymbolMetadata:
		return "metadata"
	default:
		return "invalid"
	}
}

// RequiresUniqueName reports whether this kind participates in the
// per-scope unique-name invariant (a variable may shadow another
// variable in an inner scope, but e.g. two functions may not collide).
func (k SymbolKind) RequiresUniqueName() bool {
	switch k {
	case SymbolFunction, SymbolClass, SymbolInterface, SymbolEnum, SymbolTypeAlias,
		SymbolAbstract, SymbolField, SymbolProperty, SymbolEnumVariant, SymbolModule:
		return true
	default:
		return false
	}
}

// Visibility controls external access to a symbol.
type Visibility uint8

const (
	Public Visibility = iota
	Private
	Internal
	Protected
)

// Mutability records whether a binding can be reassigned.
type Mutability uint8

const (
	MutabilityUnknown Mutability = iota
	Immutable
	Mutable
)

// SymbolFlags encode misc attributes for quick checks.
type SymbolFlags uint16

const (
	FlagExported SymbolFlags = 1 << iota
	FlagBuiltin
	FlagUsed // mirrored from the table's used_symbols set for O(1) local reads
)

// Symbol describes a named entity available in a scope.
type Symbol struct {
	Name          source.StringID
	Kind          SymbolKind
	Scope         ScopeID
	Type          types.TypeID
	Lifetime      types.LifetimeID
	Visibility    Visibility
	Mutability    Mutability
	Decl          source.Span
	Flags         SymbolFlags
	Doc           string          // optional
	Package       uint32          // optional package id; 0 means "none"
	QualifiedName source.StringID // optional; source.NoStringID means "none"
}

func (s Symbol) String() string {
	return fmt.Sprintf("Symbol{%d kind=%s scope=%d}", s.Name, s.Kind, s.Scope)
}
