package symbols

import (
	"rayzor/internal/source"
	"rayzor/internal/types"
)

// Hints provide optional capacity suggestions for the symbol table arenas.
type Hints struct{ Scopes, Symbols uint }

// Table aggregates symbol-related arenas and shared resources.
type Table struct {
	Scopes  *Scopes
	Symbols *Symbols
	Strings *source.Interner

	fileRoot map[source.FileID]ScopeID
	used     map[SymbolID]struct{} // used_symbols: separate, monotonic set

	typeToSymbol map[types.TypeID]SymbolID // inverse maps for named types
	symbolToType map[SymbolID]types.TypeID

	Hierarchy *HierarchyRegistry
}

// NewTable builds a fresh table with optional capacity hints. If strings is
// nil, a fresh interner is allocated.
func NewTable(h Hints, strings *source.Interner) *Table {
	scopeCap := uint32(h.Scopes)
	symCap := uint32(h.Symbols)
	if strings == nil {
		strings = source.NewInterner()
	}
	return &Table{
		Scopes:       NewScopes(scopeCap),
		Symbols:      NewSymbols(symCap),
		Strings:      strings,
		fileRoot:     make(map[source.FileID]ScopeID),
		used:         make(map[SymbolID]struct{}),
		typeToSymbol: make(map[types.TypeID]SymbolID),
		symbolToType: make(map[SymbolID]types.TypeID),
		Hierarchy:    NewHierarchyRegistry(),
	}
}

// FileRoot returns (and creates if needed) a file-level scope for the given file.
func (t *Table) FileRoot(file source.FileID, span source.Span) ScopeID {
	if scope, ok := t.fileRoot[file]; ok {
		return scope
	}
	scope := t.Scopes.New(ScopeFile, NoScopeID, NoSymbolID, span)
	t.fileRoot[file] = scope
	return scope
}

// AddSymbol stores sym in the arena and registers it in the scope's name
// index and symbol list. The table itself never rejects a name
// conflict: callers check IsNameUsed before insertion.
func (t *Table) AddSymbol(sym Symbol) SymbolID {
	id := t.Symbols.New(sym)
	scope := t.Scopes.Get(sym.Scope)
	if scope == nil {
		return id
	}
	scope.Symbols = append(scope.Symbols, id)
	if scope.NameIndex == nil {
		scope.NameIndex = make(map[source.StringID][]SymbolID, 4)
	}
	scope.NameIndex[sym.Name] = append(scope.NameIndex[sym.Name], id)
	return id
}

// IsNameUsed reports whether name is already bound by a unique-name-kind
// symbol directly in scope. Variables are excluded since they may shadow.
func (t *Table) IsNameUsed(scope ScopeID, name source.StringID) bool {
	s := t.Scopes.Get(scope)
	if s == nil {
		return false
	}
	for _, id := range s.NameIndex[name] {
		if sym := t.Symbols.Get(id); sym != nil && sym.Kind.RequiresUniqueName() {
			return true
		}
	}
	return false
}

// LookupSymbol resolves name starting at scope and walking up the parent
// chain, returning the innermost binding. O(1) per visited scope.
func (t *Table) LookupSymbol(scope ScopeID, name source.StringID) (SymbolID, bool) {
	for id := scope; id.IsValid(); {
		s := t.Scopes.Get(id)
		if s == nil {
			break
		}
		if bucket := s.NameIndex[name]; len(bucket) > 0 {
			return bucket[len(bucket)-1], true
		}
		id = s.Parent
	}
	return NoSymbolID, false
}

// MarkSymbolUsed records that id was referenced. Idempotent.
func (t *Table) MarkSymbolUsed(id SymbolID) {
	if !id.IsValid() {
		return
	}
	t.used[id] = struct{}{}
	if sym := t.Symbols.Get(id); sym != nil {
		sym.Flags |= FlagUsed
	}
}

// IsSymbolUsed reports whether MarkSymbolUsed has been called for id.
func (t *Table) IsSymbolUsed(id SymbolID) bool {
	_, ok := t.used[id]
	return ok
}

// BindType records the inverse mapping between a named-type symbol and its
// canonical TypeID. The two maps are exact inverses: every named-type
// symbol has exactly one canonical type id.
func (t *Table) BindType(sym SymbolID, ty types.TypeID) {
	t.typeToSymbol[ty] = sym
	t.symbolToType[sym] = ty
}

// TypeOfSymbol returns the canonical TypeID for a named-type symbol.
func (t *Table) TypeOfSymbol(sym SymbolID) (types.TypeID, bool) {
	ty, ok := t.symbolToType[sym]
	return ty, ok
}

// SymbolOfType returns the declaring symbol for a named TypeID.
func (t *Table) SymbolOfType(ty types.TypeID) (SymbolID, bool) {
	sym, ok := t.typeToSymbol[ty]
	return sym, ok
}
