package optpass

import (
	"rayzor/internal/mir"
)

// LoopInvariantCodeMotion hoists pure, non-trapping instructions whose
// operands are defined outside the loop (or are themselves invariant) into
// the loop's preheader, innermost loops first. Every hoistable kind is pure
// and non-trapping, so an instruction is hoisted whether or not its block
// dominates the loop exits; exit dominance does not restrict hoisting.
type LoopInvariantCodeMotion struct{}

// NewLoopInvariantCodeMotion constructs the pass.
func NewLoopInvariantCodeMotion() *LoopInvariantCodeMotion {
	return &LoopInvariantCodeMotion{}
}

// Name implements Pass.
func (p *LoopInvariantCodeMotion) Name() string { return "licm" }

// RunOnModule implements Pass.
func (p *LoopInvariantCodeMotion) RunOnModule(m *mir.Module) (Result, error) {
	res := eachFunc(m, p.runOnFunc)
	return res, nil
}

func (p *LoopInvariantCodeMotion) runOnFunc(f *mir.Func) Result {
	var res Result
	dom := mir.BuildDomTree(f)
	loops := mir.FindLoops(f, dom)

	for _, loop := range loops {
		hoisted := p.hoistLoop(f, dom, loop, &res)
		if hoisted > 0 {
			res.Modified = true
			res.bump("hoisted", int64(hoisted))
			// CFG may have gained a preheader; recompute for outer loops.
			dom = mir.BuildDomTree(f)
		}
	}
	return res
}

func (p *LoopInvariantCodeMotion) hoistLoop(f *mir.Func, dom *mir.DomTree, loop *mir.Loop, res *Result) int {
	// Registers defined inside the loop.
	definedIn := make(map[mir.RegID]struct{})
	for id := range loop.Blocks {
		b := f.Block(id)
		if b == nil {
			continue
		}
		for i := range b.Phis {
			definedIn[b.Phis[i].Dest] = struct{}{}
		}
		for i := range b.Instrs {
			if b.Instrs[i].Dest.IsValid() {
				definedIn[b.Instrs[i].Dest] = struct{}{}
			}
		}
	}

	invariant := make(map[mir.RegID]struct{})
	type hoistCandidate struct {
		block mir.BlockID
		index int
	}
	var order []hoistCandidate
	picked := make(map[hoistCandidate]struct{})

	// Iterate: an instruction becomes invariant once all its uses are
	// outside the loop or already invariant.
	for changed := true; changed; {
		changed = false
		// Stable order: loop blocks by id, instructions in stream order.
		var ids []mir.BlockID
		for id := range loop.Blocks {
			ids = append(ids, id)
		}
		sortIDs(ids)
		for _, id := range ids {
			b := f.Block(id)
			if b == nil {
				continue
			}
			for i := range b.Instrs {
				in := &b.Instrs[i]
				c := hoistCandidate{block: id, index: i}
				if _, done := picked[c]; done {
					continue
				}
				if !hoistable(in) {
					continue
				}
				// Divisions and remainders never hoist: executing one on an
				// iteration the loop would have skipped can trap.
				if in.CanTrap() {
					continue
				}
				// The surviving kinds are pure and non-trapping, so they are
				// safe to speculate even from blocks that do not dominate
				// the exits; everything else must dominate every exit.
				if !speculatable(in) && !dominatesAllExits(dom, loop, id) {
					continue
				}
				uses := in.Uses(nil)
				ok := true
				for _, u := range uses {
					if _, inside := definedIn[u]; !inside {
						continue
					}
					if _, inv := invariant[u]; !inv {
						ok = false
						break
					}
				}
				if !ok {
					continue
				}
				picked[c] = struct{}{}
				order = append(order, c)
				if in.Dest.IsValid() {
					invariant[in.Dest] = struct{}{}
				}
				changed = true
			}
		}
	}

	if len(order) == 0 {
		return 0
	}

	pre := mir.EnsurePreheader(f, loop)
	preB := f.Block(pre)

	// Move in discovery order, which respects def-before-use among the
	// hoisted set.
	moved := make(map[mir.BlockID]map[int]struct{})
	for _, c := range order {
		b := f.Block(c.block)
		preB.Instrs = append(preB.Instrs, b.Instrs[c.index])
		if moved[c.block] == nil {
			moved[c.block] = make(map[int]struct{})
		}
		moved[c.block][c.index] = struct{}{}
	}
	for id, idxs := range moved {
		b := f.Block(id)
		kept := b.Instrs[:0]
		for i := range b.Instrs {
			if _, gone := idxs[i]; gone {
				continue
			}
			kept = append(kept, b.Instrs[i])
		}
		b.Instrs = kept
	}
	_ = res
	return len(order)
}

// hoistable: no side effects and not a memory read whose value the loop
// body could change.
func hoistable(in *mir.Instr) bool {
	if in.HasSideEffects() {
		return false
	}
	switch in.Kind {
	case mir.InstrConst, mir.InstrCopy, mir.InstrBinOp, mir.InstrUnOp,
		mir.InstrCmp, mir.InstrCast, mir.InstrSelect, mir.InstrGEP:
		return true
	default:
		return false
	}
}

// speculatable instructions may execute on iterations the loop never
// takes: pure register arithmetic with no faults.
func speculatable(in *mir.Instr) bool {
	return hoistable(in) && !in.CanTrap()
}

func dominatesAllExits(dom *mir.DomTree, loop *mir.Loop, block mir.BlockID) bool {
	for _, exit := range loop.Exits {
		if !dom.Dominates(block, exit) {
			return false
		}
	}
	return true
}

func sortIDs(ids []mir.BlockID) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j] < ids[j-1]; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
}
