package optpass

import (
	"testing"

	"rayzor/internal/mir"
	"rayzor/internal/types"
)

type testEnv struct {
	ti *types.Interner
	m  *mir.Module
}

func newTestEnv() *testEnv {
	return &testEnv{ti: types.NewInterner(), m: mir.NewModule(0)}
}

func (e *testEnv) newFunc(result types.TypeID) (*mir.Func, *mir.Block) {
	f := mir.NewFunc(0, 0, result)
	b := f.NewBlock()
	f.Entry = b.ID
	e.m.AddFunc(f)
	return f, b
}

func emitIntConst(f *mir.Func, b *mir.Block, ti *types.Interner, v int64) mir.RegID {
	dest := f.NewReg(ti.Builtins().Int)
	b.Instrs = append(b.Instrs, mir.Instr{
		Kind:  mir.InstrConst,
		Dest:  dest,
		Type:  ti.Builtins().Int,
		Const: mir.ConstInstr{Kind: mir.ConstInt, IntVal: v},
	})
	return dest
}

func retValue(b *mir.Block, v mir.RegID) {
	b.Term = mir.Terminator{Kind: mir.TermReturn, Return: mir.ReturnTerm{HasValue: true, Value: v}}
}

// A function returning 2 + 3 folds to a single constant 5.
func TestConstantFoldingAddition(t *testing.T) {
	e := newTestEnv()
	f, b := e.newFunc(e.ti.Builtins().Int)
	two := emitIntConst(f, b, e.ti, 2)
	three := emitIntConst(f, b, e.ti, 3)
	sum := f.NewReg(e.ti.Builtins().Int)
	b.Instrs = append(b.Instrs, mir.Instr{
		Kind: mir.InstrBinOp, Dest: sum, Type: e.ti.Builtins().Int,
		Bin: mir.BinOpInstr{Op: types.OpAdd, Lhs: two, Rhs: three},
	})
	retValue(b, sum)

	res, err := NewConstantFolding().RunOnModule(e.m)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Modified {
		t.Fatal("modification flag must be set")
	}

	folded := b.Instrs[len(b.Instrs)-1]
	if folded.Kind != mir.InstrConst || folded.Const.IntVal != 5 {
		t.Fatalf("last instruction = %+v, want Const 5", folded)
	}

	// After DCE the function is a single Const{5} plus Return.
	if _, err := NewDeadCodeElimination().RunOnModule(e.m); err != nil {
		t.Fatal(err)
	}
	if len(b.Instrs) != 1 {
		t.Fatalf("instructions after DCE = %d, want 1", len(b.Instrs))
	}
	if b.Instrs[0].Const.IntVal != 5 {
		t.Fatalf("surviving const = %d, want 5", b.Instrs[0].Const.IntVal)
	}
	if b.Term.Return.Value != b.Instrs[0].Dest {
		t.Error("return must reference the folded constant")
	}
}

func TestConstantFoldingSkipsDivByZero(t *testing.T) {
	e := newTestEnv()
	f, b := e.newFunc(e.ti.Builtins().Int)
	num := emitIntConst(f, b, e.ti, 7)
	zero := emitIntConst(f, b, e.ti, 0)
	q := f.NewReg(e.ti.Builtins().Int)
	b.Instrs = append(b.Instrs, mir.Instr{
		Kind: mir.InstrBinOp, Dest: q, Type: e.ti.Builtins().Int,
		Bin: mir.BinOpInstr{Op: types.OpDiv, Lhs: num, Rhs: zero},
	})
	retValue(b, q)

	res, err := NewConstantFolding().RunOnModule(e.m)
	if err != nil {
		t.Fatal(err)
	}
	if res.Modified {
		t.Error("division by zero must not fold")
	}
	if b.Instrs[2].Kind != mir.InstrBinOp {
		t.Error("division instruction must survive")
	}
}

// An unused Const{42} disappears; the returned Const{10} stays.
func TestDeadCodeElimination(t *testing.T) {
	e := newTestEnv()
	f, b := e.newFunc(e.ti.Builtins().Int)
	emitIntConst(f, b, e.ti, 42)
	used := emitIntConst(f, b, e.ti, 10)
	retValue(b, used)

	res, err := NewDeadCodeElimination().RunOnModule(e.m)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Modified || res.EliminatedInstrs < 1 {
		t.Fatalf("res = %+v, want >=1 elimination", res)
	}
	if len(b.Instrs) != 1 || b.Instrs[0].Const.IntVal != 10 {
		t.Fatalf("surviving instrs = %+v, want only Const 10", b.Instrs)
	}
}

func TestDCEKeepsSideEffects(t *testing.T) {
	e := newTestEnv()
	f, b := e.newFunc(e.ti.Builtins().Void)
	dest := f.NewReg(e.ti.Builtins().Int)
	b.Instrs = append(b.Instrs, mir.Instr{
		Kind: mir.InstrCallDirect, Dest: dest, Type: e.ti.Builtins().Int,
		CallDirect: mir.CallDirectInstr{Target: 99},
	})
	b.Term = mir.Terminator{Kind: mir.TermReturn}

	if _, err := NewDeadCodeElimination().RunOnModule(e.m); err != nil {
		t.Fatal(err)
	}
	if len(b.Instrs) != 1 {
		t.Fatal("call with unused result must survive DCE (side effects)")
	}
}

func TestCopyPropagation(t *testing.T) {
	e := newTestEnv()
	f, b := e.newFunc(e.ti.Builtins().Int)
	src := emitIntConst(f, b, e.ti, 1)
	cp := f.NewReg(e.ti.Builtins().Int)
	b.Instrs = append(b.Instrs, mir.Instr{Kind: mir.InstrCopy, Dest: cp, Type: e.ti.Builtins().Int, Copy: mir.CopyInstr{Src: src}})
	retValue(b, cp)

	res, err := NewCopyPropagation().RunOnModule(e.m)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Modified {
		t.Fatal("copy propagation must modify")
	}
	if b.Term.Return.Value != src {
		t.Errorf("return reads r%d, want source r%d", b.Term.Return.Value, src)
	}
	// After propagation plus DCE no live copy destination remains in use.
	if _, err := NewDeadCodeElimination().RunOnModule(e.m); err != nil {
		t.Fatal(err)
	}
	for _, in := range b.Instrs {
		if in.Kind == mir.InstrCopy {
			t.Error("dead copy must be removed by DCE")
		}
	}
}

func TestSimplifyCFGAndUnreachable(t *testing.T) {
	e := newTestEnv()
	f, b := e.newFunc(e.ti.Builtins().Int)
	dead := f.NewBlock()
	live := f.NewBlock()

	cond := f.NewReg(e.ti.Builtins().Bool)
	b.Instrs = append(b.Instrs, mir.Instr{Kind: mir.InstrConst, Dest: cond, Type: e.ti.Builtins().Bool, Const: mir.ConstInstr{Kind: mir.ConstBool, BoolVal: true}})
	b.Term = mir.Terminator{Kind: mir.TermBranch, Branch: mir.BranchTerm{Cond: cond, Then: live.ID, Else: dead.ID}}

	deadVal := emitIntConst(f, dead, e.ti, 0)
	retValue(dead, deadVal)
	liveVal := emitIntConst(f, live, e.ti, 1)
	retValue(live, liveVal)
	f.RecomputePreds()

	res, err := NewControlFlowSimplification().RunOnModule(e.m)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Modified || b.Term.Kind != mir.TermJump || b.Term.Jump.Target != live.ID {
		t.Fatalf("entry terminator = %+v, want jump to live block", b.Term)
	}

	res2, err := NewUnreachableBlockElimination().RunOnModule(e.m)
	if err != nil {
		t.Fatal(err)
	}
	if !res2.Modified || res2.EliminatedBlocks != 1 {
		t.Fatalf("unreachable elim = %+v, want 1 removed block", res2)
	}
	if f.Block(dead.ID) != nil {
		t.Error("dead block must be removed")
	}
}

func TestLocalCSECommutative(t *testing.T) {
	e := newTestEnv()
	f, b := e.newFunc(e.ti.Builtins().Int)
	a := emitIntConst(f, b, e.ti, 3)
	c := emitIntConst(f, b, e.ti, 4)

	intTy := e.ti.Builtins().Int
	s1 := f.NewReg(intTy)
	b.Instrs = append(b.Instrs, mir.Instr{Kind: mir.InstrBinOp, Dest: s1, Type: intTy, Bin: mir.BinOpInstr{Op: types.OpAdd, Lhs: a, Rhs: c}})
	s2 := f.NewReg(intTy)
	b.Instrs = append(b.Instrs, mir.Instr{Kind: mir.InstrBinOp, Dest: s2, Type: intTy, Bin: mir.BinOpInstr{Op: types.OpAdd, Lhs: c, Rhs: a}})
	sum := f.NewReg(intTy)
	b.Instrs = append(b.Instrs, mir.Instr{Kind: mir.InstrBinOp, Dest: sum, Type: intTy, Bin: mir.BinOpInstr{Op: types.OpMul, Lhs: s1, Rhs: s2}})
	retValue(b, sum)

	res, err := NewCommonSubexpressionElimination().RunOnModule(e.m)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Modified || res.EliminatedInstrs != 1 {
		t.Fatalf("res = %+v, want exactly one eliminated add", res)
	}
	mul := b.Instrs[len(b.Instrs)-1]
	if mul.Bin.Lhs != s1 || mul.Bin.Rhs != s1 {
		t.Errorf("mul operands = r%d, r%d; both must be the surviving add r%d", mul.Bin.Lhs, mul.Bin.Rhs, s1)
	}
}

func TestGVNAcrossDominatedBlocks(t *testing.T) {
	e := newTestEnv()
	f, entry := e.newFunc(e.ti.Builtins().Int)
	next := f.NewBlock()

	intTy := e.ti.Builtins().Int
	a := emitIntConst(f, entry, e.ti, 3)
	c := emitIntConst(f, entry, e.ti, 4)
	s1 := f.NewReg(intTy)
	entry.Instrs = append(entry.Instrs, mir.Instr{Kind: mir.InstrBinOp, Dest: s1, Type: intTy, Bin: mir.BinOpInstr{Op: types.OpAdd, Lhs: a, Rhs: c}})
	entry.Term = mir.Terminator{Kind: mir.TermJump, Jump: mir.JumpTerm{Target: next.ID}}

	// Same expression in a dominated block: GVN reuses it, local CSE cannot.
	s2 := f.NewReg(intTy)
	next.Instrs = append(next.Instrs, mir.Instr{Kind: mir.InstrBinOp, Dest: s2, Type: intTy, Bin: mir.BinOpInstr{Op: types.OpAdd, Lhs: a, Rhs: c}})
	retValue(next, s2)
	f.RecomputePreds()

	res, err := NewGlobalValueNumbering().RunOnModule(e.m)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Modified || res.EliminatedInstrs != 1 {
		t.Fatalf("res = %+v, want one eliminated duplicate", res)
	}
	if next.Term.Return.Value != s1 {
		t.Errorf("return reads r%d, want the dominating add r%d", next.Term.Return.Value, s1)
	}
}

func TestLICMHoistsInvariant(t *testing.T) {
	e := newTestEnv()
	f, entry := e.newFunc(e.ti.Builtins().Void)
	header := f.NewBlock()
	body := f.NewBlock()
	exit := f.NewBlock()

	intTy := e.ti.Builtins().Int
	boolTy := e.ti.Builtins().Bool

	a := emitIntConst(f, entry, e.ti, 3)
	c := emitIntConst(f, entry, e.ti, 4)
	entry.Term = mir.Terminator{Kind: mir.TermJump, Jump: mir.JumpTerm{Target: header.ID}}

	cond := f.NewReg(boolTy)
	header.Instrs = append(header.Instrs, mir.Instr{Kind: mir.InstrConst, Dest: cond, Type: boolTy, Const: mir.ConstInstr{Kind: mir.ConstBool, BoolVal: true}})
	header.Term = mir.Terminator{Kind: mir.TermBranch, Branch: mir.BranchTerm{Cond: cond, Then: body.ID, Else: exit.ID}}

	// a+c never changes inside the loop.
	inv := f.NewReg(intTy)
	body.Instrs = append(body.Instrs, mir.Instr{Kind: mir.InstrBinOp, Dest: inv, Type: intTy, Bin: mir.BinOpInstr{Op: types.OpAdd, Lhs: a, Rhs: c}})
	// Consume it so DCE-style reasoning does not apply.
	sink := f.NewReg(intTy)
	body.Instrs = append(body.Instrs, mir.Instr{Kind: mir.InstrBinOp, Dest: sink, Type: intTy, Bin: mir.BinOpInstr{Op: types.OpMul, Lhs: inv, Rhs: inv}})
	body.Term = mir.Terminator{Kind: mir.TermJump, Jump: mir.JumpTerm{Target: header.ID}}
	exit.Term = mir.Terminator{Kind: mir.TermReturn}
	f.RecomputePreds()

	res, err := NewLoopInvariantCodeMotion().RunOnModule(e.m)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Modified {
		t.Fatal("LICM must hoist the invariant add")
	}
	// The add must now sit outside the loop: not in body, and body's
	// remaining instructions must not define inv.
	for _, in := range body.Instrs {
		if in.Dest == inv {
			t.Fatal("invariant instruction still inside the loop body")
		}
	}
	// It must live in a block that dominates the header (the preheader).
	dom := mir.BuildDomTree(f)
	var homeBlock mir.BlockID
	f.EachBlock(func(b *mir.Block) {
		for _, in := range b.Instrs {
			if in.Dest == inv {
				homeBlock = b.ID
			}
		}
	})
	if !homeBlock.IsValid() || !dom.Dominates(homeBlock, header.ID) {
		t.Errorf("hoisted instruction in block %d does not dominate the loop header", homeBlock)
	}
}

func TestLICMRefusesTrappingInstr(t *testing.T) {
	e := newTestEnv()
	f, entry := e.newFunc(e.ti.Builtins().Void)
	header := f.NewBlock()
	body := f.NewBlock()
	exit := f.NewBlock()

	intTy := e.ti.Builtins().Int
	boolTy := e.ti.Builtins().Bool
	a := emitIntConst(f, entry, e.ti, 3)
	c := emitIntConst(f, entry, e.ti, 0)
	entry.Term = mir.Terminator{Kind: mir.TermJump, Jump: mir.JumpTerm{Target: header.ID}}
	cond := f.NewReg(boolTy)
	header.Instrs = append(header.Instrs, mir.Instr{Kind: mir.InstrConst, Dest: cond, Type: boolTy, Const: mir.ConstInstr{Kind: mir.ConstBool, BoolVal: false}})
	header.Term = mir.Terminator{Kind: mir.TermBranch, Branch: mir.BranchTerm{Cond: cond, Then: body.ID, Else: exit.ID}}

	div := f.NewReg(intTy)
	body.Instrs = append(body.Instrs, mir.Instr{Kind: mir.InstrBinOp, Dest: div, Type: intTy, Bin: mir.BinOpInstr{Op: types.OpDiv, Lhs: a, Rhs: c}})
	sink := f.NewReg(intTy)
	body.Instrs = append(body.Instrs, mir.Instr{Kind: mir.InstrBinOp, Dest: sink, Type: intTy, Bin: mir.BinOpInstr{Op: types.OpMul, Lhs: div, Rhs: div}})
	body.Term = mir.Terminator{Kind: mir.TermJump, Jump: mir.JumpTerm{Target: header.ID}}
	exit.Term = mir.Terminator{Kind: mir.TermReturn}
	f.RecomputePreds()

	if _, err := NewLoopInvariantCodeMotion().RunOnModule(e.m); err != nil {
		t.Fatal(err)
	}
	found := false
	for _, in := range body.Instrs {
		if in.Dest == div {
			found = true
		}
	}
	if !found {
		t.Error("a division must never be hoisted out of its guard")
	}
}

func TestTailCallMarking(t *testing.T) {
	e := newTestEnv()
	f, b := e.newFunc(e.ti.Builtins().Int)
	dest := f.NewReg(e.ti.Builtins().Int)
	b.Instrs = append(b.Instrs, mir.Instr{
		Kind: mir.InstrCallDirect, Dest: dest, Type: e.ti.Builtins().Int,
		CallDirect: mir.CallDirectInstr{Target: f.ID},
	})
	retValue(b, dest)

	res, err := NewTailCallMarking().RunOnModule(e.m)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Modified || !b.Instrs[0].CallDirect.Tail {
		t.Fatal("self-recursive return-of-call must be tail-marked")
	}
	if res.Stats["self_tail_calls"] != 1 {
		t.Errorf("self tail calls = %d, want 1", res.Stats["self_tail_calls"])
	}
	if err := mir.ValidateFunc(f); err != nil {
		t.Fatalf("tail-marked function invalid: %v", err)
	}
}

func TestTailCallNotMarkedWhenValueDiffers(t *testing.T) {
	e := newTestEnv()
	f, b := e.newFunc(e.ti.Builtins().Int)
	dest := f.NewReg(e.ti.Builtins().Int)
	b.Instrs = append(b.Instrs, mir.Instr{
		Kind: mir.InstrCallDirect, Dest: dest, Type: e.ti.Builtins().Int,
		CallDirect: mir.CallDirectInstr{Target: f.ID},
	})
	other := emitIntConst(f, b, e.ti, 1)
	retValue(b, other)

	res, err := NewTailCallMarking().RunOnModule(e.m)
	if err != nil {
		t.Fatal(err)
	}
	if res.Modified {
		t.Error("call whose result is not returned must stay unmarked")
	}
}

func TestManagerFixedPoint(t *testing.T) {
	e := newTestEnv()
	f, b := e.newFunc(e.ti.Builtins().Int)
	// (2+3)*4 with a dead constant on the side: one folding sweep folds the
	// add and then the mul, and DCE clears the dead operands on the next
	// manager iteration.
	emitIntConst(f, b, e.ti, 99)
	two := emitIntConst(f, b, e.ti, 2)
	three := emitIntConst(f, b, e.ti, 3)
	four := emitIntConst(f, b, e.ti, 4)
	intTy := e.ti.Builtins().Int
	sum := f.NewReg(intTy)
	b.Instrs = append(b.Instrs, mir.Instr{Kind: mir.InstrBinOp, Dest: sum, Type: intTy, Bin: mir.BinOpInstr{Op: types.OpAdd, Lhs: two, Rhs: three}})
	prod := f.NewReg(intTy)
	b.Instrs = append(b.Instrs, mir.Instr{Kind: mir.InstrBinOp, Dest: prod, Type: intTy, Bin: mir.BinOpInstr{Op: types.OpMul, Lhs: sum, Rhs: four}})
	retValue(b, prod)

	mgr := NewManagerForLevel(O1)
	summary, err := mgr.Run(e.m)
	if err != nil {
		t.Fatal(err)
	}
	if !summary.Converged {
		t.Fatal("O1 pipeline must converge")
	}
	if len(b.Instrs) != 1 || b.Instrs[0].Const.IntVal != 20 {
		t.Fatalf("after O1: %+v, want single Const 20", b.Instrs)
	}
}

func TestManagerIterationCap(t *testing.T) {
	mgr := NewManager(&alwaysModify{})
	mgr.MaxIterations = 3
	e := newTestEnv()
	f, b := e.newFunc(e.ti.Builtins().Void)
	b.Term = mir.Terminator{Kind: mir.TermReturn}
	_ = f

	summary, err := mgr.Run(e.m)
	var nc *NonConvergenceError
	if err == nil {
		t.Fatal("expected non-convergence error")
	}
	if !asNonConvergence(err, &nc) {
		t.Fatalf("error = %v, want NonConvergenceError", err)
	}
	if summary.Iterations != 3 {
		t.Errorf("iterations = %d, want cap 3", summary.Iterations)
	}
}

type alwaysModify struct{}

func (a *alwaysModify) Name() string { return "always-modify" }
func (a *alwaysModify) RunOnModule(*mir.Module) (Result, error) {
	return Result{Modified: true}, nil
}

func asNonConvergence(err error, target **NonConvergenceError) bool {
	nc, ok := err.(*NonConvergenceError)
	if ok {
		*target = nc
	}
	return ok
}

func TestInlineSmallCallee(t *testing.T) {
	e := newTestEnv()
	intTy := e.ti.Builtins().Int

	callee, cb := e.newFunc(intTy)
	p := callee.NewReg(intTy)
	callee.Params = append(callee.Params, mir.Param{Reg: p, Type: intTy})
	one := emitIntConst(callee, cb, e.ti, 1)
	sum := callee.NewReg(intTy)
	cb.Instrs = append(cb.Instrs, mir.Instr{Kind: mir.InstrBinOp, Dest: sum, Type: intTy, Bin: mir.BinOpInstr{Op: types.OpAdd, Lhs: p, Rhs: one}})
	retValue(cb, sum)

	caller, b := e.newFunc(intTy)
	arg := emitIntConst(caller, b, e.ti, 41)
	callDest := caller.NewReg(intTy)
	b.Instrs = append(b.Instrs, mir.Instr{
		Kind: mir.InstrCallDirect, Dest: callDest, Type: intTy,
		CallDirect: mir.CallDirectInstr{Target: callee.ID, Args: []mir.RegID{arg}},
	})
	retValue(b, callDest)

	res, err := NewInlining(nil).RunOnModule(e.m)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Modified {
		t.Fatal("small callee must be inlined")
	}
	caller.EachBlock(func(blk *mir.Block) {
		for _, in := range blk.Instrs {
			if in.Kind == mir.InstrCallDirect {
				t.Error("call must be gone after inlining")
			}
		}
	})
	if err := mir.ValidateFunc(caller); err != nil {
		t.Fatalf("inlined caller invalid: %v", err)
	}
}

func TestSROAReplacesLocalAggregate(t *testing.T) {
	e := newTestEnv()
	intTy := e.ti.Builtins().Int
	f, b := e.newFunc(intTy)

	obj := f.NewReg(intTy)
	b.Instrs = append(b.Instrs, mir.Instr{Kind: mir.InstrAlloc, Dest: obj, Type: intTy, Alloc: mir.AllocInstr{Elem: intTy}})
	idx := emitIntConst(f, b, e.ti, 0)
	ptr := f.NewReg(intTy)
	b.Instrs = append(b.Instrs, mir.Instr{Kind: mir.InstrGEP, Dest: ptr, Type: intTy, GEP: mir.GEPInstr{Base: obj, Indexes: []mir.RegID{idx}, Elem: intTy}})
	val := emitIntConst(f, b, e.ti, 7)
	b.Instrs = append(b.Instrs, mir.Instr{Kind: mir.InstrStore, Type: intTy, Store: mir.StoreInstr{Ptr: ptr, Value: val}})
	loaded := f.NewReg(intTy)
	b.Instrs = append(b.Instrs, mir.Instr{Kind: mir.InstrLoad, Dest: loaded, Type: intTy, Load: mir.LoadInstr{Ptr: ptr}})
	retValue(b, loaded)

	res, err := NewScalarReplacementOfAggregates().RunOnModule(e.m)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Modified {
		t.Fatal("local aggregate must be scalar-replaced")
	}
	for _, in := range b.Instrs {
		switch in.Kind {
		case mir.InstrAlloc, mir.InstrGEP, mir.InstrLoad, mir.InstrStore:
			t.Errorf("memory instruction %s must be gone", in.Kind)
		}
	}
	if b.Term.Return.Value != val {
		t.Errorf("return reads r%d, want forwarded store value r%d", b.Term.Return.Value, val)
	}
}

func TestSROASkipsEscapingAggregate(t *testing.T) {
	e := newTestEnv()
	intTy := e.ti.Builtins().Int
	f, b := e.newFunc(intTy)

	obj := f.NewReg(intTy)
	b.Instrs = append(b.Instrs, mir.Instr{Kind: mir.InstrAlloc, Dest: obj, Type: intTy, Alloc: mir.AllocInstr{Elem: intTy}})
	// Escapes: passed to a call.
	b.Instrs = append(b.Instrs, mir.Instr{Kind: mir.InstrCallDirect, Type: e.ti.Builtins().Void, CallDirect: mir.CallDirectInstr{Target: 42, Args: []mir.RegID{obj}}})
	retValue(b, obj)

	res, err := NewScalarReplacementOfAggregates().RunOnModule(e.m)
	if err != nil {
		t.Fatal(err)
	}
	if res.Modified {
		t.Error("escaping aggregate must not be replaced")
	}
}
