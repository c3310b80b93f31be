package optpass

import (
	"rayzor/internal/mir"
)

// ControlFlowSimplification replaces conditional branches over known
// boolean constants with unconditional jumps. The dead arm becomes
// unreachable and falls to the next unreachable-elimination run.
type ControlFlowSimplification struct{}

// NewControlFlowSimplification constructs the pass.
func NewControlFlowSimplification() *ControlFlowSimplification {
	return &ControlFlowSimplification{}
}

// Name implements Pass.
func (p *ControlFlowSimplification) Name() string { return "simplify-cfg" }

// RunOnModule implements Pass.
func (p *ControlFlowSimplification) RunOnModule(m *mir.Module) (Result, error) {
	res := eachFunc(m, p.runOnFunc)
	return res, nil
}

func (p *ControlFlowSimplification) runOnFunc(f *mir.Func) Result {
	var res Result

	boolConsts := make(map[mir.RegID]bool)
	f.EachBlock(func(b *mir.Block) {
		for i := range b.Instrs {
			in := &b.Instrs[i]
			if in.Kind == mir.InstrConst && in.Const.Kind == mir.ConstBool {
				boolConsts[in.Dest] = in.Const.BoolVal
			}
		}
	})

	changed := false
	f.EachBlock(func(b *mir.Block) {
		if b.Term.Kind != mir.TermBranch {
			return
		}
		val, known := boolConsts[b.Term.Branch.Cond]
		if !known {
			return
		}
		taken := b.Term.Branch.Then
		dropped := b.Term.Branch.Else
		if !val {
			taken, dropped = dropped, taken
		}
		b.Term = mir.Terminator{Kind: mir.TermJump, Jump: mir.JumpTerm{Target: taken}}
		if d := f.Block(dropped); d != nil && dropped != taken {
			d.RemovePred(b.ID)
		}
		changed = true
		res.bump("folded_branches", 1)
	})

	if changed {
		f.RecomputePreds()
		prunePhiIncomings(f)
		res.Modified = true
	}
	return res
}
