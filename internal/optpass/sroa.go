package optpass

import (
	"rayzor/internal/mir"
)

// ScalarReplacementOfAggregates rewrites small non-escaping allocations
// into per-field register flow. An allocation qualifies when every use is
// a constant-index GEP consumed only by loads and stores inside the
// allocating block, so no aliasing is observable; loads then read the last
// value stored to their field and the whole memory traffic disappears.
type ScalarReplacementOfAggregates struct{}

// NewScalarReplacementOfAggregates constructs the pass.
func NewScalarReplacementOfAggregates() *ScalarReplacementOfAggregates {
	return &ScalarReplacementOfAggregates{}
}

// Name implements Pass.
func (p *ScalarReplacementOfAggregates) Name() string { return "sroa" }

// RunOnModule implements Pass.
func (p *ScalarReplacementOfAggregates) RunOnModule(m *mir.Module) (Result, error) {
	res := eachFunc(m, p.runOnFunc)
	return res, nil
}

func (p *ScalarReplacementOfAggregates) runOnFunc(f *mir.Func) Result {
	var res Result

	f.EachBlock(func(b *mir.Block) {
		for i := range b.Instrs {
			in := &b.Instrs[i]
			if in.Kind != mir.InstrAlloc || in.Alloc.Count.IsValid() {
				continue
			}
			if p.replaceAlloc(f, b, in.Dest, &res) {
				res.Modified = true
				res.bump("replaced_allocs", 1)
			}
		}
	})
	return res
}

// replaceAlloc checks escape conditions for one allocation and rewrites it
// when provably local.
func (p *ScalarReplacementOfAggregates) replaceAlloc(f *mir.Func, home *mir.Block, alloc mir.RegID, res *Result) bool {
	constInts := make(map[mir.RegID]int64)
	for i := range home.Instrs {
		in := &home.Instrs[i]
		if in.Kind == mir.InstrConst && in.Const.Kind == mir.ConstInt {
			constInts[in.Dest] = in.Const.IntVal
		}
	}

	// Field pointers: GEP dest -> field index.
	fieldPtr := make(map[mir.RegID]int64)
	escaped := false

	f.EachBlock(func(b *mir.Block) {
		if escaped {
			return
		}
		var buf []mir.RegID
		for i := range b.Instrs {
			in := &b.Instrs[i]
			usesAlloc := false
			buf = in.Uses(buf[:0])
			for _, u := range buf {
				if u == alloc {
					usesAlloc = true
				}
			}
			if !usesAlloc {
				continue
			}
			if b.ID != home.ID {
				escaped = true
				return
			}
			if in.Kind == mir.InstrGEP && in.GEP.Base == alloc && len(in.GEP.Indexes) == 1 {
				if idx, known := constInts[in.GEP.Indexes[0]]; known {
					fieldPtr[in.Dest] = idx
					continue
				}
			}
			escaped = true
			return
		}
		buf = b.Term.Uses(buf[:0])
		for _, u := range buf {
			if u == alloc {
				escaped = true
			}
		}
		for i := range b.Phis {
			for _, in := range b.Phis[i].Incomings {
				if in.Value == alloc {
					escaped = true
				}
			}
		}
	})
	if escaped {
		return false
	}

	// Field pointers must only feed loads and stores, again locally.
	usedAsPtr := func(r mir.RegID) bool {
		_, ok := fieldPtr[r]
		return ok
	}
	f.EachBlock(func(b *mir.Block) {
		if escaped {
			return
		}
		var buf []mir.RegID
		for i := range b.Instrs {
			in := &b.Instrs[i]
			buf = in.Uses(buf[:0])
			touches := false
			for _, u := range buf {
				if usedAsPtr(u) {
					touches = true
				}
			}
			if !touches {
				continue
			}
			if b.ID != home.ID {
				escaped = true
				return
			}
			switch in.Kind {
			case mir.InstrLoad:
			case mir.InstrStore:
				if usedAsPtr(in.Store.Value) {
					escaped = true
					return
				}
			default:
				escaped = true
				return
			}
		}
		buf = b.Term.Uses(buf[:0])
		for _, u := range buf {
			if usedAsPtr(u) {
				escaped = true
			}
		}
	})
	if escaped {
		return false
	}

	// Forward stored values to loads in program order; a load from a
	// never-stored field keeps the allocation alive.
	fieldVal := make(map[int64]mir.RegID)
	repl := make(map[mir.RegID]mir.RegID)
	for i := range home.Instrs {
		in := &home.Instrs[i]
		switch in.Kind {
		case mir.InstrStore:
			if idx, ok := fieldPtr[in.Store.Ptr]; ok {
				fieldVal[idx] = in.Store.Value
			}
		case mir.InstrLoad:
			if idx, ok := fieldPtr[in.Load.Ptr]; ok {
				val, stored := fieldVal[idx]
				if !stored {
					return false
				}
				repl[in.Dest] = val
			}
		}
	}

	// Delete the allocation, its GEPs, and the forwarded loads/stores.
	kept := home.Instrs[:0]
	removed := 0
	for i := range home.Instrs {
		in := home.Instrs[i]
		drop := false
		switch {
		case in.Kind == mir.InstrAlloc && in.Dest == alloc:
			drop = true
		case in.Kind == mir.InstrGEP && in.GEP.Base == alloc:
			drop = true
		case in.Kind == mir.InstrStore && isFieldPtr(fieldPtr, in.Store.Ptr):
			drop = true
		case in.Kind == mir.InstrLoad && isFieldPtr(fieldPtr, in.Load.Ptr):
			drop = true
		}
		if drop {
			removed++
			continue
		}
		kept = append(kept, in)
	}
	home.Instrs = kept
	res.EliminatedInstrs += removed

	replaceAllUses(f, repl)
	return true
}

func isFieldPtr(fieldPtr map[mir.RegID]int64, r mir.RegID) bool {
	_, ok := fieldPtr[r]
	return ok
}
