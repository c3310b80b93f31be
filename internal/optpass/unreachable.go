package optpass

import (
	"rayzor/internal/mir"
)

// UnreachableBlockElimination drops blocks a DFS from entry (plus live
// exception handlers) cannot reach, then rebuilds predecessor lists and
// prunes phi incomings from removed edges.
type UnreachableBlockElimination struct{}

// NewUnreachableBlockElimination constructs the pass.
func NewUnreachableBlockElimination() *UnreachableBlockElimination {
	return &UnreachableBlockElimination{}
}

// Name implements Pass.
func (p *UnreachableBlockElimination) Name() string { return "unreachable-elim" }

// RunOnModule implements Pass.
func (p *UnreachableBlockElimination) RunOnModule(m *mir.Module) (Result, error) {
	res := eachFunc(m, p.runOnFunc)
	return res, nil
}

func (p *UnreachableBlockElimination) runOnFunc(f *mir.Func) Result {
	var res Result
	reachable := mir.ReachableBlocks(f)

	var removed []mir.BlockID
	f.EachBlock(func(b *mir.Block) {
		if _, ok := reachable[b.ID]; !ok {
			removed = append(removed, b.ID)
		}
	})
	if len(removed) == 0 {
		return res
	}

	for _, id := range removed {
		if b := f.Block(id); b != nil {
			res.EliminatedInstrs += len(b.Instrs)
		}
		f.RemoveBlock(id)
		delete(f.ExcHandlers, id)
	}
	f.RecomputePreds()
	prunePhiIncomings(f)

	res.Modified = true
	res.EliminatedBlocks += len(removed)
	res.bump("removed_blocks", int64(len(removed)))
	return res
}

// prunePhiIncomings drops phi entries whose predecessor edge no longer
// exists.
func prunePhiIncomings(f *mir.Func) {
	f.EachBlock(func(b *mir.Block) {
		for i := range b.Phis {
			kept := b.Phis[i].Incomings[:0]
			for _, in := range b.Phis[i].Incomings {
				if b.HasPred(in.Pred) {
					kept = append(kept, in)
				}
			}
			b.Phis[i].Incomings = kept
		}
	})
}
