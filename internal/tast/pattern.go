package tast

import (
	"rayzor/internal/source"
	"rayzor/internal/symbols"
	"rayzor/internal/types"
)

// PatternKind enumerates match-arm pattern shapes.
type PatternKind uint8

const (
	// PatternInvalid is the zero-value kind.
	PatternInvalid PatternKind = iota
	// PatternWildcard matches anything without binding.
	PatternWildcard
	// PatternLit matches a literal value.
	PatternLit
	// PatternBinding matches anything and binds the value to a symbol.
	PatternBinding
	// PatternVariant matches one enum variant, optionally destructuring
	// its payload into sub-patterns.
	PatternVariant
	// PatternTuple destructures an aggregate positionally.
	PatternTuple
)

func (k PatternKind) String() string {
	switch k {
	case PatternWildcard:
		return "wildcard"
	case PatternLit:
		return "lit"
	case PatternBinding:
		return "binding"
	case PatternVariant:
		return "variant"
	case PatternTuple:
		return "tuple"
	default:
		return "invalid"
	}
}

// Pattern is one node of a match-arm pattern tree.
type Pattern struct {
	Kind    PatternKind
	Type    types.TypeID
	Span    source.Span
	Lit     ExprID           // PatternLit
	Binding symbols.SymbolID // PatternBinding
	Variant symbols.SymbolID // PatternVariant
	Subs    []PatternID      // PatternVariant / PatternTuple payload
}

// Patterns manages pattern allocation.
type Patterns struct {
	Arena *Arena[Pattern]
}

// NewPatterns creates the pattern arena.
func NewPatterns(capHint uint) *Patterns {
	if capHint == 0 {
		capHint = 1 << 6
	}
	return &Patterns{Arena: NewArena[Pattern](capHint)}
}

// New allocates a pattern node.
func (p *Patterns) New(pat Pattern) PatternID {
	return PatternID(p.Arena.Allocate(pat))
}

// Get returns the pattern with the given ID, or nil for NoPatternID.
func (p *Patterns) Get(id PatternID) *Pattern {
	return p.Arena.Get(uint32(id))
}
