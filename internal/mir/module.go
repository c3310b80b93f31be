package mir

import (
	"fmt"

	"fortio.org/safecast"

	"rayzor/internal/source"
	"rayzor/internal/symbols"
)

// Module is one compilation unit's worth of lowered functions.
type Module struct {
	Name      source.StringID
	Funcs     map[FuncID]*Func
	FuncBySym map[symbols.SymbolID]FuncID

	nextFunc uint32
}

// NewModule creates an empty MIR module.
func NewModule(name source.StringID) *Module {
	return &Module{
		Name:      name,
		Funcs:     make(map[FuncID]*Func),
		FuncBySym: make(map[symbols.SymbolID]FuncID),
		nextFunc:  1,
	}
}

// AddFunc registers f, assigning its FuncID.
func (m *Module) AddFunc(f *Func) FuncID {
	id := FuncID(m.nextFunc)
	next, err := safecast.Conv[uint32](int(m.nextFunc) + 1)
	if err != nil {
		panic(fmt.Errorf("mir: function id overflow: %w", err))
	}
	m.nextFunc = next
	f.ID = id
	m.Funcs[id] = f
	if f.Sym.IsValid() {
		m.FuncBySym[f.Sym] = id
	}
	return id
}

// InsertFunc registers f under its pre-assigned ID (used by the lowerer to
// keep MIR FuncIDs aligned with TAST FuncIDs so call sites can reference
// functions that lower later).
func (m *Module) InsertFunc(f *Func) {
	if uint32(f.ID) >= m.nextFunc {
		m.nextFunc = uint32(f.ID) + 1
	}
	m.Funcs[f.ID] = f
	if f.Sym.IsValid() {
		m.FuncBySym[f.Sym] = f.ID
	}
}

// Func returns the function with the given ID, or nil.
func (m *Module) Func(id FuncID) *Func {
	return m.Funcs[id]
}

// FuncIDs returns every registered FuncID in ascending order.
func (m *Module) FuncIDs() []FuncID {
	ids := make([]FuncID, 0, len(m.Funcs))
	for id := FuncID(1); uint32(id) < m.nextFunc; id++ {
		if _, ok := m.Funcs[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// RemoveFunc deletes a function (tree-shaking).
func (m *Module) RemoveFunc(id FuncID) {
	if f, ok := m.Funcs[id]; ok {
		if f.Sym.IsValid() {
			delete(m.FuncBySym, f.Sym)
		}
		delete(m.Funcs, id)
	}
}
