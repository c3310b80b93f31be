package mir

import (
	"testing"

	"rayzor/internal/types"
)

// buildDiamond returns a function shaped entry -> (a, b) -> merge.
func buildDiamond(t *testing.T) (*Func, *Block, *Block, *Block, *Block) {
	t.Helper()
	ti := types.NewInterner()
	f := NewFunc(0, 0, ti.Builtins().Void)
	entry := f.NewBlock()
	a := f.NewBlock()
	b := f.NewBlock()
	merge := f.NewBlock()
	f.Entry = entry.ID

	cond := f.NewReg(ti.Builtins().Bool)
	entry.Instrs = append(entry.Instrs, Instr{Kind: InstrConst, Dest: cond, Type: ti.Builtins().Bool, Const: ConstInstr{Kind: ConstBool, BoolVal: true}})
	entry.Term = Terminator{Kind: TermBranch, Branch: BranchTerm{Cond: cond, Then: a.ID, Else: b.ID}}
	a.Term = Terminator{Kind: TermJump, Jump: JumpTerm{Target: merge.ID}}
	b.Term = Terminator{Kind: TermJump, Jump: JumpTerm{Target: merge.ID}}
	merge.Term = Terminator{Kind: TermReturn}
	f.RecomputePreds()
	return f, entry, a, b, merge
}

func TestDomTreeDiamond(t *testing.T) {
	f, entry, a, b, merge := buildDiamond(t)
	dom := BuildDomTree(f)

	for _, blk := range []*Block{a, b, merge} {
		if !dom.Dominates(entry.ID, blk.ID) {
			t.Errorf("entry must dominate block %d", blk.ID)
		}
	}
	if dom.Dominates(a.ID, merge.ID) {
		t.Error("a must not dominate merge (b bypasses it)")
	}
	if idom, _ := dom.IDom(merge.ID); idom != entry.ID {
		t.Errorf("idom(merge) = %d, want entry %d", idom, entry.ID)
	}
	pre := dom.Preorder()
	if len(pre) != 4 || pre[0] != entry.ID {
		t.Errorf("preorder = %v, want entry first over 4 blocks", pre)
	}
}

func buildLoopFunc(t *testing.T) (*Func, *Block, *Block, *Block, *Block) {
	t.Helper()
	ti := types.NewInterner()
	f := NewFunc(0, 0, ti.Builtins().Void)
	entry := f.NewBlock()
	header := f.NewBlock()
	body := f.NewBlock()
	exit := f.NewBlock()
	f.Entry = entry.ID

	cond := f.NewReg(ti.Builtins().Bool)
	entry.Term = Terminator{Kind: TermJump, Jump: JumpTerm{Target: header.ID}}
	header.Instrs = append(header.Instrs, Instr{Kind: InstrConst, Dest: cond, Type: ti.Builtins().Bool, Const: ConstInstr{Kind: ConstBool, BoolVal: true}})
	header.Term = Terminator{Kind: TermBranch, Branch: BranchTerm{Cond: cond, Then: body.ID, Else: exit.ID}}
	body.Term = Terminator{Kind: TermJump, Jump: JumpTerm{Target: header.ID}}
	exit.Term = Terminator{Kind: TermReturn}
	f.RecomputePreds()
	return f, entry, header, body, exit
}

func TestFindNaturalLoop(t *testing.T) {
	f, entry, header, body, exit := buildLoopFunc(t)
	dom := BuildDomTree(f)
	loops := FindLoops(f, dom)

	if len(loops) != 1 {
		t.Fatalf("found %d loops, want 1", len(loops))
	}
	l := loops[0]
	if l.Header != header.ID {
		t.Errorf("loop header = %d, want %d", l.Header, header.ID)
	}
	if !l.Contains(body.ID) || !l.Contains(header.ID) {
		t.Errorf("loop body = %v, must contain header and body", l.Blocks)
	}
	if l.Contains(entry.ID) || l.Contains(exit.ID) {
		t.Error("loop must not contain entry or exit")
	}
	if len(l.Exits) != 1 || l.Exits[0] != exit.ID {
		t.Errorf("loop exits = %v, want [%d]", l.Exits, exit.ID)
	}
	if l.Depth != 1 {
		t.Errorf("loop depth = %d, want 1", l.Depth)
	}
}

func TestEnsurePreheaderReusesSoleEdge(t *testing.T) {
	f, entry, header, _, _ := buildLoopFunc(t)
	dom := BuildDomTree(f)
	loops := FindLoops(f, dom)

	// Entry's sole successor is the header, so it already works as the
	// preheader.
	pre := EnsurePreheader(f, loops[0])
	if pre != entry.ID {
		t.Errorf("preheader = %d, want existing entry %d", pre, entry.ID)
	}
	_ = header
}

func TestEnsurePreheaderCreatesBlock(t *testing.T) {
	f, entry, header, _, exit := buildLoopFunc(t)
	// Give entry a second successor so it cannot serve as preheader.
	cond2 := f.NewReg(1)
	entry.Instrs = append(entry.Instrs, Instr{Kind: InstrConst, Dest: cond2, Const: ConstInstr{Kind: ConstBool, BoolVal: false}})
	entry.Term = Terminator{Kind: TermBranch, Branch: BranchTerm{Cond: cond2, Then: header.ID, Else: exit.ID}}
	f.RecomputePreds()

	dom := BuildDomTree(f)
	loops := FindLoops(f, dom)
	before := f.BlockCount()
	pre := EnsurePreheader(f, loops[0])
	if pre == entry.ID {
		t.Fatal("must not reuse a branching predecessor as preheader")
	}
	if f.BlockCount() != before+1 {
		t.Fatalf("block count = %d, want %d", f.BlockCount(), before+1)
	}
	preB := f.Block(pre)
	if preB.Term.Kind != TermJump || preB.Term.Jump.Target != header.ID {
		t.Error("preheader must jump straight to the header")
	}
	if entry.Term.Branch.Then != pre {
		t.Error("entry's loop edge must be redirected through the preheader")
	}
}
