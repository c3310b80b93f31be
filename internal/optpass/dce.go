package optpass

import (
	"rayzor/internal/mir"
)

// DeadCodeElimination removes instructions whose destination is never read
// and which have no side effects, plus phi nodes nothing uses. Iterates
// inside the pass until stable, since removing one dead instruction can
// orphan another.
type DeadCodeElimination struct{}

// NewDeadCodeElimination constructs the pass.
func NewDeadCodeElimination() *DeadCodeElimination { return &DeadCodeElimination{} }

// Name implements Pass.
func (p *DeadCodeElimination) Name() string { return "dce" }

// RunOnModule implements Pass.
func (p *DeadCodeElimination) RunOnModule(m *mir.Module) (Result, error) {
	res := eachFunc(m, p.runOnFunc)
	return res, nil
}

func (p *DeadCodeElimination) runOnFunc(f *mir.Func) Result {
	var res Result
	for {
		used := usedRegisters(f)
		removed := 0
		f.EachBlock(func(b *mir.Block) {
			keptPhis := b.Phis[:0]
			for _, phi := range b.Phis {
				if _, ok := used[phi.Dest]; ok {
					keptPhis = append(keptPhis, phi)
				} else {
					removed++
					res.bump("dead_phis", 1)
				}
			}
			b.Phis = keptPhis

			keptInstrs := b.Instrs[:0]
			for i := range b.Instrs {
				in := b.Instrs[i]
				_, destUsed := used[in.Dest]
				if in.HasSideEffects() || (in.Dest.IsValid() && destUsed) {
					keptInstrs = append(keptInstrs, in)
					continue
				}
				if !in.Dest.IsValid() {
					// No destination and no side effects: nothing observes it.
					removed++
					res.bump("dead_instrs", 1)
					continue
				}
				removed++
				res.bump("dead_instrs", 1)
			}
			b.Instrs = keptInstrs
		})
		if removed == 0 {
			return res
		}
		res.Modified = true
		res.EliminatedInstrs += removed
	}
}

// usedRegisters scans phi incomings, instruction uses, and terminator uses.
func usedRegisters(f *mir.Func) map[mir.RegID]struct{} {
	used := make(map[mir.RegID]struct{}, f.RegCount())
	var buf []mir.RegID
	f.EachBlock(func(b *mir.Block) {
		for i := range b.Phis {
			for _, in := range b.Phis[i].Incomings {
				used[in.Value] = struct{}{}
			}
		}
		for i := range b.Instrs {
			buf = b.Instrs[i].Uses(buf[:0])
			for _, r := range buf {
				used[r] = struct{}{}
			}
		}
		buf = b.Term.Uses(buf[:0])
		for _, r := range buf {
			used[r] = struct{}{}
		}
	})
	return used
}
