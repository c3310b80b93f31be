package mir

import (
	"sort"

	"rayzor/internal/symbols"
	"rayzor/internal/types"
)

// ssaState implements on-the-fly SSA construction during lowering:
// per-block variable definitions, incomplete phis for blocks whose
// predecessor set is not final yet, and a sealed set. Trivial phis left
// behind by the construction are removed in a post-pass.
type ssaState struct {
	defs       map[BlockID]map[symbols.SymbolID]RegID
	incomplete map[BlockID]map[symbols.SymbolID]RegID
	sealed     map[BlockID]struct{}
	varTypes   map[symbols.SymbolID]types.TypeID

	// lookupParent routes variable reads in blocks entered through the
	// exception table (no CFG predecessors) to the block dominating the
	// covered region.
	lookupParent map[BlockID]BlockID
}

func newSSAState() ssaState {
	return ssaState{
		defs:         make(map[BlockID]map[symbols.SymbolID]RegID),
		incomplete:   make(map[BlockID]map[symbols.SymbolID]RegID),
		sealed:       make(map[BlockID]struct{}),
		varTypes:     make(map[symbols.SymbolID]types.TypeID),
		lookupParent: make(map[BlockID]BlockID),
	}
}

func (s *ssaState) declare(sym symbols.SymbolID, ty types.TypeID) {
	s.varTypes[sym] = ty
}

func (s *ssaState) write(sym symbols.SymbolID, block BlockID, value RegID) {
	m := s.defs[block]
	if m == nil {
		m = make(map[symbols.SymbolID]RegID, 4)
		s.defs[block] = m
	}
	m[sym] = value
}

func (s *ssaState) isSealed(block BlockID) bool {
	_, ok := s.sealed[block]
	return ok
}

// writeVar records the current SSA value of sym in the current block.
func (lo *Lowerer) writeVar(sym symbols.SymbolID, value RegID) {
	lo.ssa.write(sym, lo.cur.ID, value)
}

// readVar returns the SSA value of sym at the end of block, inserting phi
// nodes as needed.
func (lo *Lowerer) readVar(sym symbols.SymbolID, block BlockID) RegID {
	if m := lo.ssa.defs[block]; m != nil {
		if v, ok := m[sym]; ok {
			return v
		}
	}
	return lo.readVarRecursive(sym, block)
}

func (lo *Lowerer) readVarRecursive(sym symbols.SymbolID, block BlockID) RegID {
	b := lo.fn.Block(block)
	if b == nil {
		return NoRegID
	}
	var val RegID
	switch {
	case !lo.ssa.isSealed(block):
		// Predecessor set still growing: placeholder phi, completed on seal.
		val = lo.fn.NewReg(lo.ssa.varTypes[sym])
		b.Phis = append(b.Phis, Phi{Dest: val, Type: lo.ssa.varTypes[sym]})
		m := lo.ssa.incomplete[block]
		if m == nil {
			m = make(map[symbols.SymbolID]RegID, 2)
			lo.ssa.incomplete[block] = m
		}
		m[sym] = val
	case len(b.Preds) == 1:
		val = lo.readVar(sym, b.Preds[0])
	case len(b.Preds) == 0:
		if parent, ok := lo.ssa.lookupParent[block]; ok {
			val = lo.readVar(sym, parent)
			break
		}
		// Use before any definition; surfaces as NoRegID at the use site.
		return NoRegID
	default:
		val = lo.fn.NewReg(lo.ssa.varTypes[sym])
		b.Phis = append(b.Phis, Phi{Dest: val, Type: lo.ssa.varTypes[sym]})
		lo.ssa.write(sym, block, val)
		lo.addPhiOperands(sym, block, val)
	}
	lo.ssa.write(sym, block, val)
	return val
}

func (lo *Lowerer) addPhiOperands(sym symbols.SymbolID, block BlockID, dest RegID) {
	b := lo.fn.Block(block)
	var phi *Phi
	for i := range b.Phis {
		if b.Phis[i].Dest == dest {
			phi = &b.Phis[i]
			break
		}
	}
	if phi == nil {
		return
	}
	for _, pred := range b.Preds {
		phi.Incomings = append(phi.Incomings, PhiIncoming{Pred: pred, Value: lo.readVar(sym, pred)})
	}
}

// sealBlock declares the block's predecessor list final and completes any
// placeholder phis created while it was open.
func (lo *Lowerer) sealBlock(block BlockID) {
	if lo.ssa.isSealed(block) {
		return
	}
	lo.ssa.sealed[block] = struct{}{}
	pending := lo.ssa.incomplete[block]
	if len(pending) == 0 {
		return
	}
	// Deterministic completion order.
	syms := make([]symbols.SymbolID, 0, len(pending))
	for sym := range pending {
		syms = append(syms, sym)
	}
	sort.Slice(syms, func(i, j int) bool { return syms[i] < syms[j] })
	for _, sym := range syms {
		lo.addPhiOperands(sym, block, pending[sym])
	}
	delete(lo.ssa.incomplete, block)
}

func (lo *Lowerer) sealRemaining() {
	for _, b := range lo.fn.Blocks[1:] {
		if b != nil && !lo.ssa.isSealed(b.ID) {
			lo.sealBlock(b.ID)
		}
	}
}

// removeTrivialPhis deletes phis whose incomings all carry the same value
// (ignoring self-references) and rewrites their uses, iterating to a fixed
// point since removing one phi can make another trivial.
func (lo *Lowerer) removeTrivialPhis() {
	f := lo.fn
	for {
		replacements := make(map[RegID]RegID)
		f.EachBlock(func(b *Block) {
			kept := b.Phis[:0]
			for i := range b.Phis {
				phi := b.Phis[i]
				same := NoRegID
				trivial := true
				for _, in := range phi.Incomings {
					if in.Value == phi.Dest || in.Value == same {
						continue
					}
					if same != NoRegID {
						trivial = false
						break
					}
					same = in.Value
				}
				if trivial && same != NoRegID && len(phi.Incomings) > 0 {
					replacements[phi.Dest] = same
					continue
				}
				kept = append(kept, phi)
			}
			b.Phis = kept
		})
		if len(replacements) == 0 {
			return
		}
		resolve := func(r RegID) RegID {
			for {
				next, ok := replacements[r]
				if !ok {
					return r
				}
				r = next
			}
		}
		f.EachBlock(func(b *Block) {
			for i := range b.Phis {
				for j := range b.Phis[i].Incomings {
					b.Phis[i].Incomings[j].Value = resolve(b.Phis[i].Incomings[j].Value)
				}
			}
			for i := range b.Instrs {
				for old := range replacements {
					b.Instrs[i].ReplaceUses(old, resolve(old))
				}
			}
			for old := range replacements {
				b.Term.ReplaceUses(old, resolve(old))
			}
		})
		for block, m := range lo.ssa.defs {
			for sym, v := range m {
				if r := resolve(v); r != v {
					lo.ssa.defs[block][sym] = r
				}
			}
		}
	}
}
