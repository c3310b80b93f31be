package tast

import (
	"rayzor/internal/source"
	"rayzor/internal/symbols"
	"rayzor/internal/types"
)

// Param is one typed function parameter.
type Param struct {
	Sym      symbols.SymbolID
	Name     source.StringID
	Type     types.TypeID
	Lifetime types.LifetimeID
}

// Func is a fully-typed function: the unit the CFG builder lowers.
type Func struct {
	ID     FuncID
	Sym    symbols.SymbolID
	Name   source.StringID
	Span   source.Span
	Params []Param
	Result types.TypeID
	Body   StmtID // a StmtBlock
}

// Module owns the TAST arenas for one compilation unit plus its function
// list. Each compilation unit builds its own Module; cross-module work goes
// through an explicit merge in the driver.
type Module struct {
	Name     source.StringID
	Stmts    *Stmts
	Exprs    *Exprs
	Patterns *Patterns

	Funcs     []*Func
	FuncBySym map[symbols.SymbolID]FuncID
}

// NewModule creates an empty typed module with fresh arenas.
func NewModule(name source.StringID) *Module {
	return &Module{
		Name:      name,
		Stmts:     NewStmts(0),
		Exprs:     NewExprs(0),
		Patterns:  NewPatterns(0),
		FuncBySym: make(map[symbols.SymbolID]FuncID),
	}
}

// AddFunc registers fn, assigns its FuncID, and indexes it by symbol.
func (m *Module) AddFunc(fn *Func) FuncID {
	id := FuncID(len(m.Funcs) + 1)
	fn.ID = id
	m.Funcs = append(m.Funcs, fn)
	if fn.Sym.IsValid() {
		m.FuncBySym[fn.Sym] = id
	}
	return id
}

// Func returns the function with the given ID, or nil.
func (m *Module) Func(id FuncID) *Func {
	if !id.IsValid() || int(id) > len(m.Funcs) {
		return nil
	}
	return m.Funcs[id-1]
}
