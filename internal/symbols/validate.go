package symbols

import (
	"errors"
	"fmt"
)

// Validate checks the structural invariants of the table: the scope tree
// links both ways, every scope's name index covers exactly its symbol
// list, and every symbol sits in the scope it claims. Returns all found
// problems joined, or nil.
func (t *Table) Validate() error {
	var errs []error
	errs = append(errs, t.validateScopeTree()...)
	errs = append(errs, t.validateNameIndexes()...)
	errs = append(errs, t.validateSymbolScopes()...)
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

func (t *Table) eachScope(fn func(ScopeID, *Scope)) {
	for i := 1; i <= t.Scopes.Len(); i++ {
		id := ScopeID(i)
		fn(id, t.Scopes.Get(id))
	}
}

func (t *Table) validateScopeTree() []error {
	var errs []error
	t.eachScope(func(id ScopeID, sc *Scope) {
		if sc.Kind == ScopeInvalid {
			errs = append(errs, fmt.Errorf("scope %d has invalid kind", id))
		}
		if sc.Parent == id {
			errs = append(errs, fmt.Errorf("scope %d is its own parent", id))
			return
		}
		if sc.Parent.IsValid() {
			parent := t.Scopes.Get(sc.Parent)
			if parent == nil {
				errs = append(errs, fmt.Errorf("scope %d has unknown parent %d", id, sc.Parent))
			} else if !containsScope(parent.Children, id) {
				errs = append(errs, fmt.Errorf("scope %d parent %d missing backlink", id, sc.Parent))
			}
		}
		for _, child := range sc.Children {
			cs := t.Scopes.Get(child)
			switch {
			case cs == nil || child == id:
				errs = append(errs, fmt.Errorf("scope %d has invalid child %d", id, child))
			case cs.Parent != id:
				errs = append(errs, fmt.Errorf("scope %d child %d missing parent backlink", id, child))
			}
		}
	})
	return errs
}

func (t *Table) validateNameIndexes() []error {
	var errs []error
	t.eachScope(func(id ScopeID, sc *Scope) {
		owned := make(map[SymbolID]struct{}, len(sc.Symbols))
		for _, sym := range sc.Symbols {
			owned[sym] = struct{}{}
		}
		indexed := make(map[SymbolID]struct{}, len(sc.Symbols))
		for name, bucket := range sc.NameIndex {
			for _, sym := range bucket {
				if _, ok := owned[sym]; !ok {
					errs = append(errs, fmt.Errorf("scope %d name index %d references foreign symbol %d", id, name, sym))
					continue
				}
				indexed[sym] = struct{}{}
			}
		}
		for _, sym := range sc.Symbols {
			if _, ok := indexed[sym]; !ok {
				errs = append(errs, fmt.Errorf("scope %d symbol %d missing from name index", id, sym))
			}
		}
	})
	return errs
}

func (t *Table) validateSymbolScopes() []error {
	var errs []error
	for i := 1; i <= t.Symbols.Len(); i++ {
		id := SymbolID(i)
		sym := t.Symbols.Get(id)
		sc := t.Scopes.Get(sym.Scope)
		if sc == nil {
			errs = append(errs, fmt.Errorf("symbol %d has invalid scope %d", id, sym.Scope))
			continue
		}
		found := false
		for _, member := range sc.Symbols {
			if member == id {
				found = true
				break
			}
		}
		if !found {
			errs = append(errs, fmt.Errorf("symbol %d missing from scope %d member list", id, sym.Scope))
		}
	}
	return errs
}

func containsScope(list []ScopeID, id ScopeID) bool {
	for _, s := range list {
		if s == id {
			return true
		}
	}
	return false
}
