package mir

// Loop is one natural loop: a back edge `tail -> header` where the header
// dominates the tail, plus every block that can reach the tail without
// leaving the header's dominance region.
type Loop struct {
	Header BlockID
	Blocks map[BlockID]struct{}
	Exits  []BlockID // successors of loop blocks outside the loop
	Depth  int       // nesting depth, outermost = 1
}

// Contains reports whether the loop body includes id.
func (l *Loop) Contains(id BlockID) bool {
	_, ok := l.Blocks[id]
	return ok
}

// FindLoops identifies natural loops via back edges. Loops sharing a
// header are merged. The result is sorted innermost-first (deepest
// nesting, then smallest body).
func FindLoops(f *Func, dom *DomTree) []*Loop {
	byHeader := make(map[BlockID]*Loop)

	f.EachBlock(func(b *Block) {
		for _, succ := range b.Term.Successors(nil) {
			if !dom.Dominates(succ, b.ID) {
				continue
			}
			loop := byHeader[succ]
			if loop == nil {
				loop = &Loop{Header: succ, Blocks: map[BlockID]struct{}{succ: {}}}
				byHeader[succ] = loop
			}
			collectLoopBody(f, loop, b.ID)
		}
	})

	loops := make([]*Loop, 0, len(byHeader))
	for _, l := range byHeader {
		computeExits(f, l)
		loops = append(loops, l)
	}
	computeDepths(loops)

	// Innermost first: deeper nesting, then fewer blocks, then header id
	// for determinism.
	for i := 1; i < len(loops); i++ {
		for j := i; j > 0 && loopLess(loops[j], loops[j-1]); j-- {
			loops[j], loops[j-1] = loops[j-1], loops[j]
		}
	}
	return loops
}

func loopLess(a, b *Loop) bool {
	if a.Depth != b.Depth {
		return a.Depth > b.Depth
	}
	if len(a.Blocks) != len(b.Blocks) {
		return len(a.Blocks) < len(b.Blocks)
	}
	return a.Header < b.Header
}

// collectLoopBody walks backwards from the back-edge tail, adding every
// block reaching it until the header fences the walk.
func collectLoopBody(f *Func, loop *Loop, tail BlockID) {
	if loop.Contains(tail) {
		return
	}
	stack := []BlockID{tail}
	loop.Blocks[tail] = struct{}{}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		b := f.Block(id)
		if b == nil {
			continue
		}
		for _, p := range b.Preds {
			if !loop.Contains(p) {
				loop.Blocks[p] = struct{}{}
				stack = append(stack, p)
			}
		}
	}
}

func computeExits(f *Func, loop *Loop) {
	seen := make(map[BlockID]struct{})
	for id := range loop.Blocks {
		b := f.Block(id)
		if b == nil {
			continue
		}
		for _, succ := range b.Term.Successors(nil) {
			if loop.Contains(succ) {
				continue
			}
			if _, dup := seen[succ]; dup {
				continue
			}
			seen[succ] = struct{}{}
			loop.Exits = append(loop.Exits, succ)
		}
	}
	sortBlockIDs(loop.Exits)
}

// computeDepths assigns nesting depth: a loop nested in k other loops has
// depth k+1.
func computeDepths(loops []*Loop) {
	for _, l := range loops {
		l.Depth = 1
		for _, other := range loops {
			if other == l {
				continue
			}
			if other.Contains(l.Header) && len(other.Blocks) > len(l.Blocks) {
				l.Depth++
			}
		}
	}
}

// EnsurePreheader returns the loop's preheader, creating one when the
// header has multiple non-loop predecessors (or its single outside
// predecessor has other successors). Non-loop predecessor edges and phi
// incomings are redirected through the preheader.
func EnsurePreheader(f *Func, loop *Loop) BlockID {
	header := f.Block(loop.Header)
	var outside []BlockID
	for _, p := range header.Preds {
		if !loop.Contains(p) {
			outside = append(outside, p)
		}
	}
	if len(outside) == 1 {
		p := f.Block(outside[0])
		if p != nil && len(p.Term.Successors(nil)) == 1 {
			return outside[0]
		}
	}

	pre := f.NewBlock()
	pre.Meta.LoopDepth = header.Meta.LoopDepth - 1
	pre.Term = Terminator{Kind: TermJump, Jump: JumpTerm{Target: loop.Header}}

	for _, p := range outside {
		f.Block(p).Term.RedirectTarget(loop.Header, pre.ID)
	}

	// Split phi incomings: outside values merge in the preheader when
	// there are several, then flow into the header as one edge.
	for i := range header.Phis {
		phi := &header.Phis[i]
		var insideIns []PhiIncoming
		var outsideIns []PhiIncoming
		for _, in := range phi.Incomings {
			if loop.Contains(in.Pred) {
				insideIns = append(insideIns, in)
			} else {
				outsideIns = append(outsideIns, in)
			}
		}
		switch len(outsideIns) {
		case 0:
		case 1:
			insideIns = append(insideIns, PhiIncoming{Pred: pre.ID, Value: outsideIns[0].Value})
		default:
			merged := f.NewReg(phi.Type)
			newPhi := Phi{Dest: merged, Type: phi.Type, Incomings: outsideIns}
			pre.Phis = append(pre.Phis, newPhi)
			insideIns = append(insideIns, PhiIncoming{Pred: pre.ID, Value: merged})
		}
		phi.Incomings = insideIns
	}

	f.RecomputePreds()
	return pre.ID
}
