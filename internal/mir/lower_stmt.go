package mir

import (
	"rayzor/internal/diag"
	"rayzor/internal/source"
	"rayzor/internal/tast"
	"rayzor/internal/types"
)

// lowerStmt lowers one statement into the current block. It returns true
// when every path through the statement leaves the function (return, throw,
// or a jump out of straight-line flow), meaning the current block must not
// receive further statements.
func (lo *Lowerer) lowerStmt(id tast.StmtID) (bool, error) {
	st := lo.Mod.Stmts.Get(id)
	if st == nil {
		return false, internalErr(source.Span{}, "missing statement %d", id)
	}
	lo.cur.Stmts = append(lo.cur.Stmts, id)

	switch st.Kind {
	case tast.StmtExpr:
		p := lo.Mod.Stmts.Exprs.Get(uint32(st.Payload))
		_, err := lo.lowerExpr(p.Expr)
		return false, err
	case tast.StmtVarDecl:
		return false, lo.lowerVarDecl(st)
	case tast.StmtAssign:
		p := lo.Mod.Stmts.Assigns.Get(uint32(st.Payload))
		_, err := lo.lowerAssignment(p.Target, p.Value, st.Span)
		return false, err
	case tast.StmtIf:
		return lo.lowerIf(st)
	case tast.StmtWhile:
		return lo.lowerWhile(st)
	case tast.StmtForClassic:
		return lo.lowerForClassic(st)
	case tast.StmtForIn:
		return lo.lowerForIn(st)
	case tast.StmtReturn:
		p := lo.Mod.Stmts.Returns.Get(uint32(st.Payload))
		var term Terminator
		if p.Value.IsValid() {
			val, err := lo.lowerExpr(p.Value)
			if err != nil {
				return false, err
			}
			term = Terminator{Kind: TermReturn, Return: ReturnTerm{HasValue: true, Value: val}}
		} else {
			term = Terminator{Kind: TermReturn}
		}
		lo.terminate(term)
		return true, nil
	case tast.StmtThrow:
		p := lo.Mod.Stmts.Throws.Get(uint32(st.Payload))
		val, err := lo.lowerExpr(p.Value)
		if err != nil {
			return false, err
		}
		lo.terminate(Terminator{Kind: TermThrow, Throw: ThrowTerm{Value: val}})
		return true, nil
	case tast.StmtBreak:
		p := lo.Mod.Stmts.Breaks.Get(uint32(st.Payload))
		if len(lo.loopStack) == 0 {
			return false, invalidTAST(diag.LowerBreakOutsideLoop, st.Span, "'break' outside of a loop")
		}
		frame, ok := lo.resolveLoop(p.Label)
		if !ok {
			return false, invalidTAST(diag.LowerUnknownLabel, st.Span, "unknown break label")
		}
		lo.terminate(Terminator{Kind: TermJump, Jump: JumpTerm{Target: frame.breakTarget}})
		return true, nil
	case tast.StmtContinue:
		p := lo.Mod.Stmts.Continues.Get(uint32(st.Payload))
		if len(lo.loopStack) == 0 {
			return false, invalidTAST(diag.LowerContinueOutsideLoop, st.Span, "'continue' outside of a loop")
		}
		frame, ok := lo.resolveLoop(p.Label)
		if !ok {
			return false, invalidTAST(diag.LowerUnknownLabel, st.Span, "unknown continue label")
		}
		lo.terminate(Terminator{Kind: TermJump, Jump: JumpTerm{Target: frame.continueTarget}})
		return true, nil
	case tast.StmtBlock:
		p := lo.Mod.Stmts.Blocks.Get(uint32(st.Payload))
		for _, sid := range p.Stmts {
			exits, err := lo.lowerStmt(sid)
			if err != nil {
				return false, err
			}
			if exits {
				return true, nil
			}
		}
		return false, nil
	case tast.StmtSwitch:
		return lo.lowerSwitch(st)
	case tast.StmtPatternMatch:
		return lo.lowerPatternMatch(st)
	case tast.StmtTry:
		return lo.lowerTry(st)
	case tast.StmtMacroExpansion:
		return lo.lowerMacroExpansion(st)
	default:
		return false, invalidTAST(diag.LowerUnknownStmtKind, st.Span, "unknown statement kind %d", st.Kind)
	}
}

func (lo *Lowerer) lowerVarDecl(st *tast.Stmt) error {
	p := lo.Mod.Stmts.VarDecls.Get(uint32(st.Payload))
	lo.ssa.declare(p.Sym, p.Type)
	if !p.Init.IsValid() {
		return nil
	}
	val, err := lo.lowerExpr(p.Init)
	if err != nil {
		return err
	}
	lo.writeVar(p.Sym, val)
	return nil
}

// lowerIf allocates then/else/merge before terminating the current block,
// so the Branch never names a block that does not exist yet.
func (lo *Lowerer) lowerIf(st *tast.Stmt) (bool, error) {
	p := lo.Mod.Stmts.Ifs.Get(uint32(st.Payload))
	cond, err := lo.lowerExpr(p.Cond)
	if err != nil {
		return false, err
	}

	thenB := lo.newBlock()
	var elseB *Block
	if p.Else.IsValid() {
		elseB = lo.newBlock()
	}
	mergeB := lo.newBlock()

	elseTarget := mergeB.ID
	if elseB != nil {
		elseTarget = elseB.ID
	}
	lo.terminate(Terminator{Kind: TermBranch, Branch: BranchTerm{Cond: cond, Then: thenB.ID, Else: elseTarget}})
	lo.fn.RecomputePreds()
	lo.sealBlock(thenB.ID)
	if elseB != nil {
		lo.sealBlock(elseB.ID)
	}

	lo.startBlock(thenB)
	thenExits, err := lo.lowerStmt(p.Then)
	if err != nil {
		return false, err
	}
	if !thenExits {
		lo.terminate(Terminator{Kind: TermJump, Jump: JumpTerm{Target: mergeB.ID}})
	}

	elseExits := false
	if elseB != nil {
		lo.startBlock(elseB)
		elseExits, err = lo.lowerStmt(p.Else)
		if err != nil {
			return false, err
		}
		if !elseExits {
			lo.terminate(Terminator{Kind: TermJump, Jump: JumpTerm{Target: mergeB.ID}})
		}
	}

	lo.fn.RecomputePreds()
	lo.sealBlock(mergeB.ID)
	if thenExits && elseExits {
		// Merge is unreachable; the whole statement exits.
		lo.startBlock(mergeB)
		lo.terminate(Terminator{Kind: TermUnreachable})
		return true, nil
	}
	lo.startBlock(mergeB)
	return false, nil
}

func (lo *Lowerer) lowerWhile(st *tast.Stmt) (bool, error) {
	p := lo.Mod.Stmts.Whiles.Get(uint32(st.Payload))

	header := lo.newBlock()
	body := lo.newBlock()
	exit := lo.newBlock()

	lo.terminate(Terminator{Kind: TermJump, Jump: JumpTerm{Target: header.ID}})

	lo.loopDepth++
	header.Meta.LoopDepth = lo.loopDepth
	body.Meta.LoopDepth = lo.loopDepth

	// Header is left unsealed until the back edge exists.
	lo.startBlock(header)
	lo.fn.RecomputePreds()
	cond, err := lo.lowerExpr(p.Cond)
	if err != nil {
		return false, err
	}
	lo.terminate(Terminator{Kind: TermBranch, Branch: BranchTerm{Cond: cond, Then: body.ID, Else: exit.ID}})
	lo.fn.RecomputePreds()
	lo.sealBlock(body.ID)

	lo.loopStack = append(lo.loopStack, loopFrame{label: p.Label, breakTarget: exit.ID, continueTarget: header.ID})

	lo.startBlock(body)
	bodyExits, err := lo.lowerStmt(p.Body)
	if err != nil {
		return false, err
	}
	if !bodyExits {
		lo.terminate(Terminator{Kind: TermJump, Jump: JumpTerm{Target: header.ID}})
	}

	lo.loopStack = lo.loopStack[:len(lo.loopStack)-1]
	lo.loopDepth--

	lo.fn.RecomputePreds()
	lo.sealBlock(header.ID)
	lo.sealBlock(exit.ID)
	lo.startBlock(exit)
	return false, nil
}

func (lo *Lowerer) lowerForClassic(st *tast.Stmt) (bool, error) {
	p := lo.Mod.Stmts.ClassicFors.Get(uint32(st.Payload))

	if p.Init.IsValid() {
		exits, err := lo.lowerStmt(p.Init)
		if err != nil {
			return false, err
		}
		if exits {
			return true, nil
		}
	}

	header := lo.newBlock()
	body := lo.newBlock()
	update := lo.newBlock()
	exit := lo.newBlock()

	lo.terminate(Terminator{Kind: TermJump, Jump: JumpTerm{Target: header.ID}})

	lo.loopDepth++
	header.Meta.LoopDepth = lo.loopDepth
	body.Meta.LoopDepth = lo.loopDepth
	update.Meta.LoopDepth = lo.loopDepth

	lo.startBlock(header)
	lo.fn.RecomputePreds()
	if p.Cond.IsValid() {
		cond, err := lo.lowerExpr(p.Cond)
		if err != nil {
			return false, err
		}
		lo.terminate(Terminator{Kind: TermBranch, Branch: BranchTerm{Cond: cond, Then: body.ID, Else: exit.ID}})
	} else {
		lo.terminate(Terminator{Kind: TermJump, Jump: JumpTerm{Target: body.ID}})
	}
	lo.fn.RecomputePreds()
	lo.sealBlock(body.ID)

	lo.loopStack = append(lo.loopStack, loopFrame{label: p.Label, breakTarget: exit.ID, continueTarget: update.ID})

	lo.startBlock(body)
	bodyExits, err := lo.lowerStmt(p.Body)
	if err != nil {
		return false, err
	}
	if !bodyExits {
		lo.terminate(Terminator{Kind: TermJump, Jump: JumpTerm{Target: update.ID}})
	}

	lo.fn.RecomputePreds()
	lo.sealBlock(update.ID)
	lo.startBlock(update)
	if p.Update.IsValid() {
		if _, err := lo.lowerStmt(p.Update); err != nil {
			return false, err
		}
	}
	lo.terminate(Terminator{Kind: TermJump, Jump: JumpTerm{Target: header.ID}})

	lo.loopStack = lo.loopStack[:len(lo.loopStack)-1]
	lo.loopDepth--

	lo.fn.RecomputePreds()
	lo.sealBlock(header.ID)
	lo.sealBlock(exit.ID)
	lo.startBlock(exit)
	return false, nil
}

// resolveLoop finds the innermost loop frame matching label (any loop when
// label is zero).
func (lo *Lowerer) resolveLoop(label source.StringID) (loopFrame, bool) {
	for i := len(lo.loopStack) - 1; i >= 0; i-- {
		if label == 0 || lo.loopStack[i].label == label {
			return lo.loopStack[i], true
		}
	}
	return loopFrame{}, false
}

// lowerForIn lowers iteration over an indexable collection: the header
// tests an induction variable against the collection's length (kept in the
// collection header slot, which backends define), the body binds the
// element (and the index for the key-value form), and a latch increments.
func (lo *Lowerer) lowerForIn(st *tast.Stmt) (bool, error) {
	p := lo.Mod.Stmts.ForIns.Get(uint32(st.Payload))

	iter, err := lo.lowerExpr(p.Iterable)
	if err != nil {
		return false, err
	}
	intTy := lo.Types.Builtins().Int
	length := lo.fn.NewReg(intTy)
	lo.emit(Instr{Kind: InstrLoad, Dest: length, Type: intTy, Span: st.Span, Load: LoadInstr{Ptr: iter}})
	zero := lo.emitConst(ConstInstr{Kind: ConstInt, IntVal: 0}, intTy, st.Span)

	header := lo.newBlock()
	body := lo.newBlock()
	latch := lo.newBlock()
	exit := lo.newBlock()

	entryID := lo.cur.ID
	lo.terminate(Terminator{Kind: TermJump, Jump: JumpTerm{Target: header.ID}})

	lo.loopDepth++
	header.Meta.LoopDepth = lo.loopDepth
	body.Meta.LoopDepth = lo.loopDepth
	latch.Meta.LoopDepth = lo.loopDepth

	// Induction phi built by hand: both predecessors are known up front.
	idx := lo.fn.NewReg(intTy)
	next := lo.fn.NewReg(intTy)
	header.Phis = append(header.Phis, Phi{
		Dest: idx,
		Type: intTy,
		Incomings: []PhiIncoming{
			{Pred: entryID, Value: zero},
			{Pred: latch.ID, Value: next},
		},
	})

	lo.startBlock(header)
	lo.fn.RecomputePreds()
	cond := lo.fn.NewReg(lo.Types.Builtins().Bool)
	lo.emit(Instr{Kind: InstrCmp, Dest: cond, Type: lo.Types.Builtins().Bool, Span: st.Span, Cmp: CmpInstr{Op: types.OpLt, Lhs: idx, Rhs: length}})
	lo.terminate(Terminator{Kind: TermBranch, Branch: BranchTerm{Cond: cond, Then: body.ID, Else: exit.ID}})
	lo.fn.RecomputePreds()
	lo.sealBlock(body.ID)

	lo.loopStack = append(lo.loopStack, loopFrame{label: p.Label, breakTarget: exit.ID, continueTarget: latch.ID})

	lo.startBlock(body)
	elemTy := lo.elementType(p.Iterable)
	elemPtr := lo.fn.NewReg(elemTy)
	lo.emit(Instr{Kind: InstrGEP, Dest: elemPtr, Type: elemTy, Span: st.Span, GEP: GEPInstr{Base: iter, Indexes: []RegID{idx}, Elem: elemTy}})
	elem := lo.fn.NewReg(elemTy)
	lo.emit(Instr{Kind: InstrLoad, Dest: elem, Type: elemTy, Span: st.Span, Load: LoadInstr{Ptr: elemPtr}})
	if p.KeySym.IsValid() {
		lo.ssa.declare(p.KeySym, intTy)
		lo.writeVar(p.KeySym, idx)
	}
	lo.ssa.declare(p.ValueSym, elemTy)
	lo.writeVar(p.ValueSym, elem)

	bodyExits, err := lo.lowerStmt(p.Body)
	if err != nil {
		return false, err
	}
	if !bodyExits {
		lo.terminate(Terminator{Kind: TermJump, Jump: JumpTerm{Target: latch.ID}})
	}

	lo.fn.RecomputePreds()
	lo.sealBlock(latch.ID)
	lo.startBlock(latch)
	one := lo.emitConst(ConstInstr{Kind: ConstInt, IntVal: 1}, intTy, st.Span)
	lo.emit(Instr{Kind: InstrBinOp, Dest: next, Type: intTy, Span: st.Span, Bin: BinOpInstr{Op: types.OpAdd, Lhs: idx, Rhs: one}})
	lo.terminate(Terminator{Kind: TermJump, Jump: JumpTerm{Target: header.ID}})

	lo.loopStack = lo.loopStack[:len(lo.loopStack)-1]
	lo.loopDepth--

	lo.fn.RecomputePreds()
	lo.sealBlock(header.ID)
	lo.sealBlock(exit.ID)
	lo.startBlock(exit)
	return false, nil
}

// elementType resolves the element type of an iterable expression, falling
// back to dynamic when the collection shape is not statically known.
func (lo *Lowerer) elementType(iterable tast.ExprID) types.TypeID {
	e := lo.Mod.Exprs.Get(iterable)
	if e == nil {
		return lo.Types.Builtins().Dynamic
	}
	t, ok := lo.Types.Lookup(e.Type)
	if !ok {
		return lo.Types.Builtins().Dynamic
	}
	switch t.Kind {
	case types.KindArray:
		return t.A
	case types.KindMap:
		return t.B
	default:
		return lo.Types.Builtins().Dynamic
	}
}

func (lo *Lowerer) lowerSwitch(st *tast.Stmt) (bool, error) {
	p := lo.Mod.Stmts.Switches.Get(uint32(st.Payload))
	if len(p.Cases) == 0 && !p.Default.IsValid() {
		return false, invalidTAST(diag.LowerEmptySwitch, st.Span, "switch statement has no cases")
	}

	disc, err := lo.lowerExpr(p.Disc)
	if err != nil {
		return false, err
	}

	// Integer-constant case sets dispatch through a Switch terminator;
	// anything else falls back to a comparison chain.
	values := make([][]int64, len(p.Cases))
	allConst := true
	for i, c := range p.Cases {
		for _, v := range c.Values {
			iv, ok := lo.intCaseValue(v)
			if !ok {
				allConst = false
				break
			}
			values[i] = append(values[i], iv)
		}
		if !allConst {
			break
		}
	}
	if allConst {
		return lo.lowerConstSwitch(p, disc, values)
	}
	return lo.lowerCompareSwitch(p, disc, st.Span)
}

func (lo *Lowerer) lowerConstSwitch(p *tast.SwitchStmt, disc RegID, values [][]int64) (bool, error) {
	caseBlocks := make([]*Block, len(p.Cases))
	for i := range p.Cases {
		caseBlocks[i] = lo.newBlock()
	}
	var defaultB *Block
	if p.Default.IsValid() {
		defaultB = lo.newBlock()
	}
	merge := lo.newBlock()

	term := SwitchTerm{Value: disc, Default: merge.ID}
	if defaultB != nil {
		term.Default = defaultB.ID
	}
	for i, vals := range values {
		for _, v := range vals {
			term.Cases = append(term.Cases, SwitchCase{Value: v, Target: caseBlocks[i].ID})
		}
	}
	lo.terminate(Terminator{Kind: TermSwitch, Switch: term})
	lo.fn.RecomputePreds()
	for _, cb := range caseBlocks {
		lo.sealBlock(cb.ID)
	}
	if defaultB != nil {
		lo.sealBlock(defaultB.ID)
	}

	allExit := true
	for i, c := range p.Cases {
		lo.startBlock(caseBlocks[i])
		exits, err := lo.lowerStmt(c.Body)
		if err != nil {
			return false, err
		}
		if !exits {
			allExit = false
			lo.terminate(Terminator{Kind: TermJump, Jump: JumpTerm{Target: merge.ID}})
		}
	}
	if defaultB != nil {
		lo.startBlock(defaultB)
		exits, err := lo.lowerStmt(p.Default)
		if err != nil {
			return false, err
		}
		if !exits {
			allExit = false
			lo.terminate(Terminator{Kind: TermJump, Jump: JumpTerm{Target: merge.ID}})
		}
	} else {
		// No default arm: the discriminant may miss every case.
		allExit = false
	}

	lo.fn.RecomputePreds()
	lo.sealBlock(merge.ID)
	lo.startBlock(merge)
	if allExit {
		lo.terminate(Terminator{Kind: TermUnreachable})
		return true, nil
	}
	return false, nil
}

// lowerCompareSwitch lowers a switch whose case values are not integer
// constants as a sequence of equality tests.
func (lo *Lowerer) lowerCompareSwitch(p *tast.SwitchStmt, disc RegID, span source.Span) (bool, error) {
	merge := lo.newBlock()
	allExit := true

	for _, c := range p.Cases {
		bodyB := lo.newBlock()
		nextB := lo.newBlock()
		// Chain of value tests for one arm.
		for vi, v := range c.Values {
			val, err := lo.lowerExpr(v)
			if err != nil {
				return false, err
			}
			eq := lo.fn.NewReg(lo.Types.Builtins().Bool)
			lo.emit(Instr{Kind: InstrCmp, Dest: eq, Type: lo.Types.Builtins().Bool, Span: span, Cmp: CmpInstr{Op: types.OpEq, Lhs: disc, Rhs: val}})
			if vi == len(c.Values)-1 {
				lo.terminate(Terminator{Kind: TermBranch, Branch: BranchTerm{Cond: eq, Then: bodyB.ID, Else: nextB.ID}})
			} else {
				contB := lo.newBlock()
				lo.terminate(Terminator{Kind: TermBranch, Branch: BranchTerm{Cond: eq, Then: bodyB.ID, Else: contB.ID}})
				lo.fn.RecomputePreds()
				lo.sealBlock(contB.ID)
				lo.startBlock(contB)
			}
		}
		lo.fn.RecomputePreds()
		lo.sealBlock(bodyB.ID)

		lo.startBlock(bodyB)
		exits, err := lo.lowerStmt(c.Body)
		if err != nil {
			return false, err
		}
		if !exits {
			allExit = false
			lo.terminate(Terminator{Kind: TermJump, Jump: JumpTerm{Target: merge.ID}})
		}

		lo.fn.RecomputePreds()
		lo.sealBlock(nextB.ID)
		lo.startBlock(nextB)
	}

	if p.Default.IsValid() {
		exits, err := lo.lowerStmt(p.Default)
		if err != nil {
			return false, err
		}
		if !exits {
			allExit = false
			lo.terminate(Terminator{Kind: TermJump, Jump: JumpTerm{Target: merge.ID}})
		}
	} else {
		allExit = false
		lo.terminate(Terminator{Kind: TermJump, Jump: JumpTerm{Target: merge.ID}})
	}

	lo.fn.RecomputePreds()
	lo.sealBlock(merge.ID)
	lo.startBlock(merge)
	if allExit {
		lo.terminate(Terminator{Kind: TermUnreachable})
		return true, nil
	}
	return false, nil
}

// intCaseValue extracts a compile-time integer discriminant from a case
// value expression.
func (lo *Lowerer) intCaseValue(id tast.ExprID) (int64, bool) {
	e := lo.Mod.Exprs.Get(id)
	if e == nil || e.Kind != tast.ExprLit {
		return 0, false
	}
	lit := lo.Mod.Exprs.Lits.Get(uint32(e.Payload))
	if lit == nil {
		return 0, false
	}
	switch lit.Kind {
	case tast.LitInt:
		return lit.IntVal, true
	case tast.LitBool:
		if lit.BoolVal {
			return 1, true
		}
		return 0, true
	case tast.LitChar:
		return int64(lit.CharVal), true
	default:
		return 0, false
	}
}

func (lo *Lowerer) lowerMacroExpansion(st *tast.Stmt) (bool, error) {
	p := lo.Mod.Stmts.MacroExpands.Get(uint32(st.Payload))
	target := lo.newBlock()
	target.Meta.Span = p.CallSpan
	lo.terminate(Terminator{Kind: TermJump, Jump: JumpTerm{Target: target.ID}})
	lo.fn.RecomputePreds()
	lo.sealBlock(target.ID)
	lo.startBlock(target)
	for _, sid := range p.Expanded {
		exits, err := lo.lowerStmt(sid)
		if err != nil {
			return false, err
		}
		if exits {
			return true, nil
		}
	}
	return false, nil
}
