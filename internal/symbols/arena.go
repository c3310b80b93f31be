package symbols

import (
	"fmt"

	"fortio.org/safecast"

	"rayzor/internal/source"
)

// arena is slot-0-reserved dense storage; both id spaces of this package
// sit on top of it.
type arena[T any] struct {
	slots []T
}

func newArena[T any](capacity uint) arena[T] {
	if capacity == 0 {
		capacity = 32
	}
	return arena[T]{slots: make([]T, 1, capacity+1)}
}

func (a *arena[T]) alloc(v T) uint32 {
	id, err := safecast.Conv[uint32](len(a.slots))
	if err != nil {
		panic(fmt.Errorf("symbols: arena overflow: %w", err))
	}
	a.slots = append(a.slots, v)
	return id
}

func (a *arena[T]) get(id uint32) *T {
	if id == 0 || int(id) >= len(a.slots) {
		return nil
	}
	return &a.slots[id]
}

func (a *arena[T]) len() int { return len(a.slots) - 1 }

// Scopes owns every scope of one table and keeps parent/child backlinks
// consistent as scopes are created.
type Scopes struct {
	arena arena[Scope]
}

// NewScopes creates a scope arena with an optional capacity hint.
func NewScopes(capacity uint32) *Scopes {
	return &Scopes{arena: newArena[Scope](uint(capacity))}
}

// New allocates a scope, linking it into the parent's child list.
func (s *Scopes) New(kind ScopeKind, parent ScopeID, owner SymbolID, span source.Span) ScopeID {
	id := ScopeID(s.arena.alloc(Scope{
		Kind:        kind,
		Parent:      parent,
		OwnerSymbol: owner,
		Span:        span,
	}))
	if p := s.Get(parent); p != nil {
		p.Children = append(p.Children, id)
	}
	return id
}

// Get returns the scope for id, or nil.
func (s *Scopes) Get(id ScopeID) *Scope { return s.arena.get(uint32(id)) }

// Len returns the number of allocated scopes.
func (s *Scopes) Len() int { return s.arena.len() }

// All returns the allocated scopes in id order (sentinel excluded).
func (s *Scopes) All() []Scope {
	if s.arena.len() == 0 {
		return nil
	}
	return s.arena.slots[1:]
}

// Symbols owns every declared symbol of one table.
type Symbols struct {
	arena arena[Symbol]
}

// NewSymbols creates a symbol arena with an optional capacity hint.
func NewSymbols(capacity uint32) *Symbols {
	return &Symbols{arena: newArena[Symbol](uint(capacity))}
}

// New stores sym and returns its id.
func (s *Symbols) New(sym Symbol) SymbolID {
	return SymbolID(s.arena.alloc(sym))
}

// Get returns the symbol for id, or nil.
func (s *Symbols) Get(id SymbolID) *Symbol { return s.arena.get(uint32(id)) }

// Len returns the number of stored symbols.
func (s *Symbols) Len() int { return s.arena.len() }

// All returns the stored symbols in id order (sentinel excluded).
func (s *Symbols) All() []Symbol {
	if s.arena.len() == 0 {
		return nil
	}
	return s.arena.slots[1:]
}
