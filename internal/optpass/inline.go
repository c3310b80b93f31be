package optpass

import (
	"rayzor/internal/mir"
)

// Inlining substitutes small direct-call targets into their callers:
// parameter registers map to argument registers, callee blocks are cloned
// with remapped ids, and returns converge on a continuation block whose
// phi carries the call's destination. Runs first at O3 so later passes see
// the exposed code.
//
// The Inlinable hook is the external contract with semantic analysis; when
// nil, a conservative cost model is used that only accepts call-free
// callees (which keeps repeated inlining strictly decreasing the module's
// call count, so the fixed point terminates).
type Inlining struct {
	Inlinable func(mir.FuncID) bool
	MaxBlocks int
	MaxInstrs int
}

// NewInlining constructs the pass; inlinable may be nil.
func NewInlining(inlinable func(mir.FuncID) bool) *Inlining {
	return &Inlining{Inlinable: inlinable, MaxBlocks: 4, MaxInstrs: 24}
}

// Name implements Pass.
func (p *Inlining) Name() string { return "inline" }

// RunOnModule implements Pass.
func (p *Inlining) RunOnModule(m *mir.Module) (Result, error) {
	var res Result
	for _, id := range m.FuncIDs() {
		caller := m.Funcs[id]
		for {
			site, ok := p.findSite(m, caller)
			if !ok {
				break
			}
			p.inlineSite(m, caller, site)
			res.Modified = true
			res.bump("inlined_calls", 1)
		}
	}
	return res, nil
}

type inlineSite struct {
	block  mir.BlockID
	index  int
	callee *mir.Func
}

func (p *Inlining) findSite(m *mir.Module, caller *mir.Func) (inlineSite, bool) {
	var site inlineSite
	found := false
	caller.EachBlock(func(b *mir.Block) {
		if found {
			return
		}
		for i := range b.Instrs {
			in := &b.Instrs[i]
			if in.Kind != mir.InstrCallDirect {
				continue
			}
			callee := m.Func(in.CallDirect.Target)
			if callee == nil || callee.ID == caller.ID {
				continue
			}
			if !p.accepts(callee) {
				continue
			}
			if len(in.CallDirect.Args) != len(callee.Params) {
				continue
			}
			site = inlineSite{block: b.ID, index: i, callee: callee}
			found = true
			return
		}
	})
	return site, found
}

func (p *Inlining) accepts(callee *mir.Func) bool {
	if p.Inlinable != nil {
		return p.Inlinable(callee.ID)
	}
	if callee.BlockCount() > p.MaxBlocks {
		return false
	}
	instrs := 0
	callFree := true
	callee.EachBlock(func(b *mir.Block) {
		instrs += len(b.Instrs)
		for i := range b.Instrs {
			switch b.Instrs[i].Kind {
			case mir.InstrCallDirect, mir.InstrCallIndirect:
				callFree = false
			}
		}
	})
	return callFree && instrs <= p.MaxInstrs
}

func (p *Inlining) inlineSite(m *mir.Module, caller *mir.Func, site inlineSite) {
	b := caller.Block(site.block)
	call := b.Instrs[site.index]
	callee := site.callee

	// Continuation: everything after the call, plus the original
	// terminator.
	cont := caller.NewBlock()
	cont.Meta = b.Meta
	cont.Instrs = append(cont.Instrs, b.Instrs[site.index+1:]...)
	cont.Term = b.Term
	if h, covered := caller.ExcHandlers[b.ID]; covered {
		caller.ExcHandlers[cont.ID] = h
	}
	b.Instrs = b.Instrs[:site.index]

	// Register map: parameters to arguments, everything else fresh.
	regMap := make(map[mir.RegID]mir.RegID, callee.RegCount())
	for i, param := range callee.Params {
		regMap[param.Reg] = call.CallDirect.Args[i]
	}
	mapReg := func(r mir.RegID) mir.RegID {
		if !r.IsValid() {
			return r
		}
		if mapped, ok := regMap[r]; ok {
			return mapped
		}
		fresh := caller.NewReg(callee.RegType(r))
		regMap[r] = fresh
		return fresh
	}

	// Block map.
	blockMap := make(map[mir.BlockID]mir.BlockID, len(callee.Blocks))
	callee.EachBlock(func(cb *mir.Block) {
		nb := caller.NewBlock()
		nb.Meta = cb.Meta
		blockMap[cb.ID] = nb.ID
	})

	type retEdge struct {
		block mir.BlockID
		value mir.RegID
		has   bool
	}
	var returns []retEdge

	callee.EachBlock(func(cb *mir.Block) {
		nb := caller.Block(blockMap[cb.ID])
		for i := range cb.Phis {
			phi := cb.Phis[i]
			np := mir.Phi{Dest: mapReg(phi.Dest), Type: phi.Type}
			for _, in := range phi.Incomings {
				np.Incomings = append(np.Incomings, mir.PhiIncoming{Pred: blockMap[in.Pred], Value: mapReg(in.Value)})
			}
			nb.Phis = append(nb.Phis, np)
		}
		for i := range cb.Instrs {
			nb.Instrs = append(nb.Instrs, remapInstr(cb.Instrs[i], mapReg))
		}
		term := cb.Term
		if term.Kind == mir.TermReturn {
			val := mir.NoRegID
			if term.Return.HasValue {
				val = mapReg(term.Return.Value)
			}
			returns = append(returns, retEdge{block: nb.ID, value: val, has: term.Return.HasValue})
			nb.Term = mir.Terminator{Kind: mir.TermJump, Jump: mir.JumpTerm{Target: cont.ID}}
			return
		}
		remapTerm(&term, mapReg, blockMap)
		nb.Term = term
	})

	// Callee exception regions move over with remapped ids; cloned blocks
	// otherwise inherit the call site's coverage.
	for covered, h := range callee.ExcHandlers {
		nh := mir.ExcHandler{
			ExcTypes: h.ExcTypes,
			Handler:  blockMap[h.Handler],
			Binding:  mapReg(h.Binding),
		}
		caller.ExcHandlers[blockMap[covered]] = nh
	}
	if h, covered := caller.ExcHandlers[b.ID]; covered {
		for _, nb := range blockMap {
			if _, own := caller.ExcHandlers[nb]; !own {
				caller.ExcHandlers[nb] = h
			}
		}
	}

	b.Term = mir.Terminator{Kind: mir.TermJump, Jump: mir.JumpTerm{Target: blockMap[callee.Entry]}}

	// The call's destination becomes a phi over the return edges.
	if call.Dest.IsValid() {
		phi := mir.Phi{Dest: call.Dest, Type: call.Type}
		for _, r := range returns {
			if r.has {
				phi.Incomings = append(phi.Incomings, mir.PhiIncoming{Pred: r.block, Value: r.value})
			}
		}
		cont.Phis = append([]mir.Phi{phi}, cont.Phis...)
	}
	_ = m

	caller.RecomputePreds()
}

func remapInstr(in mir.Instr, mapReg func(mir.RegID) mir.RegID) mir.Instr {
	out := in
	out.Dest = mapReg(in.Dest)
	switch in.Kind {
	case mir.InstrCopy:
		out.Copy.Src = mapReg(in.Copy.Src)
	case mir.InstrLoad:
		out.Load.Ptr = mapReg(in.Load.Ptr)
	case mir.InstrStore:
		out.Store.Ptr = mapReg(in.Store.Ptr)
		out.Store.Value = mapReg(in.Store.Value)
	case mir.InstrBinOp:
		out.Bin.Lhs = mapReg(in.Bin.Lhs)
		out.Bin.Rhs = mapReg(in.Bin.Rhs)
	case mir.InstrUnOp:
		out.Un.Operand = mapReg(in.Un.Operand)
	case mir.InstrCmp:
		out.Cmp.Lhs = mapReg(in.Cmp.Lhs)
		out.Cmp.Rhs = mapReg(in.Cmp.Rhs)
	case mir.InstrCast:
		out.Cast.Value = mapReg(in.Cast.Value)
	case mir.InstrSelect:
		out.Select.Cond = mapReg(in.Select.Cond)
		out.Select.Then = mapReg(in.Select.Then)
		out.Select.Else = mapReg(in.Select.Else)
	case mir.InstrAlloc:
		out.Alloc.Count = mapReg(in.Alloc.Count)
	case mir.InstrGEP:
		out.GEP.Base = mapReg(in.GEP.Base)
		out.GEP.Indexes = append([]mir.RegID(nil), in.GEP.Indexes...)
		for i := range out.GEP.Indexes {
			out.GEP.Indexes[i] = mapReg(out.GEP.Indexes[i])
		}
	case mir.InstrCallDirect:
		out.CallDirect.Args = append([]mir.RegID(nil), in.CallDirect.Args...)
		for i := range out.CallDirect.Args {
			out.CallDirect.Args[i] = mapReg(out.CallDirect.Args[i])
		}
	case mir.InstrCallIndirect:
		out.CallIndirect.Fn = mapReg(in.CallIndirect.Fn)
		out.CallIndirect.Args = append([]mir.RegID(nil), in.CallIndirect.Args...)
		for i := range out.CallIndirect.Args {
			out.CallIndirect.Args[i] = mapReg(out.CallIndirect.Args[i])
		}
	case mir.InstrThrow:
		out.Throw.Value = mapReg(in.Throw.Value)
	}
	return out
}

func remapTerm(t *mir.Terminator, mapReg func(mir.RegID) mir.RegID, blockMap map[mir.BlockID]mir.BlockID) {
	mapBlock := func(id mir.BlockID) mir.BlockID {
		if mapped, ok := blockMap[id]; ok {
			return mapped
		}
		return id
	}
	switch t.Kind {
	case mir.TermReturn:
		if t.Return.HasValue {
			t.Return.Value = mapReg(t.Return.Value)
		}
	case mir.TermJump:
		t.Jump.Target = mapBlock(t.Jump.Target)
	case mir.TermBranch:
		t.Branch.Cond = mapReg(t.Branch.Cond)
		t.Branch.Then = mapBlock(t.Branch.Then)
		t.Branch.Else = mapBlock(t.Branch.Else)
	case mir.TermSwitch:
		t.Switch.Value = mapReg(t.Switch.Value)
		t.Switch.Cases = append([]mir.SwitchCase(nil), t.Switch.Cases...)
		for i := range t.Switch.Cases {
			t.Switch.Cases[i].Target = mapBlock(t.Switch.Cases[i].Target)
		}
		t.Switch.Default = mapBlock(t.Switch.Default)
	case mir.TermThrow:
		t.Throw.Value = mapReg(t.Throw.Value)
	}
}
