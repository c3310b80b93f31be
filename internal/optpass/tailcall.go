package optpass

import (
	"rayzor/internal/mir"
)

// TailCallMarking sets the tail flag on calls that are the last
// instruction of their block when the block returns exactly the call's
// result (or both are void). Self-recursive and external tail calls are
// counted separately.
type TailCallMarking struct{}

// NewTailCallMarking constructs the pass.
func NewTailCallMarking() *TailCallMarking { return &TailCallMarking{} }

// Name implements Pass.
func (p *TailCallMarking) Name() string { return "tailcall" }

// RunOnModule implements Pass.
func (p *TailCallMarking) RunOnModule(m *mir.Module) (Result, error) {
	res := eachFunc(m, p.runOnFunc)
	return res, nil
}

func (p *TailCallMarking) runOnFunc(f *mir.Func) Result {
	var res Result
	f.EachBlock(func(b *mir.Block) {
		if len(b.Instrs) == 0 || b.Term.Kind != mir.TermReturn {
			return
		}
		last := &b.Instrs[len(b.Instrs)-1]

		var dest mir.RegID
		var isCall, alreadyTail bool
		switch last.Kind {
		case mir.InstrCallDirect:
			dest, isCall, alreadyTail = last.Dest, true, last.CallDirect.Tail
		case mir.InstrCallIndirect:
			dest, isCall, alreadyTail = last.Dest, true, last.CallIndirect.Tail
		}
		if !isCall || alreadyTail {
			return
		}

		if b.Term.Return.HasValue {
			if b.Term.Return.Value != dest {
				return
			}
		} else if dest.IsValid() {
			return
		}

		switch last.Kind {
		case mir.InstrCallDirect:
			last.CallDirect.Tail = true
			if last.CallDirect.Target == f.ID {
				res.bump("self_tail_calls", 1)
			} else {
				res.bump("external_tail_calls", 1)
			}
		case mir.InstrCallIndirect:
			last.CallIndirect.Tail = true
			res.bump("external_tail_calls", 1)
		}
		res.Modified = true
	})
	return res
}
