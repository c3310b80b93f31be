package mir

import (
	"rayzor/internal/diag"
	"rayzor/internal/source"
	"rayzor/internal/tast"
	"rayzor/internal/types"
)

// lowerPatternMatch lowers a pattern-match statement as a chain of arm
// tests: each arm gets a test sequence in flow order, a body block with its
// bindings, and a fall-through block leading to the next arm. The
// non-exhaustive remainder lands in an implicit unreachable default.
func (lo *Lowerer) lowerPatternMatch(st *tast.Stmt) (bool, error) {
	p := lo.Mod.Stmts.Matches.Get(uint32(st.Payload))
	if len(p.Arms) == 0 && !p.Default.IsValid() {
		return false, invalidTAST(diag.LowerEmptyPatternMatch, st.Span, "pattern match has no arms")
	}

	scrut, err := lo.lowerExpr(p.Scrutinee)
	if err != nil {
		return false, err
	}

	merge := lo.newBlock()
	allExit := true

	for _, arm := range p.Arms {
		bodyB := lo.newBlock()
		nextB := lo.newBlock()

		if err := lo.lowerPatternTest(arm.Pattern, scrut, bodyB.ID, nextB.ID, arm.Span); err != nil {
			return false, err
		}
		lo.fn.RecomputePreds()
		lo.sealBlock(bodyB.ID)

		lo.startBlock(bodyB)
		if err := lo.lowerPatternBind(arm.Pattern, scrut, arm.Span); err != nil {
			return false, err
		}

		if arm.Guard.IsValid() {
			guard, err := lo.lowerExpr(arm.Guard)
			if err != nil {
				return false, err
			}
			guardedB := lo.newBlock()
			lo.terminate(Terminator{Kind: TermBranch, Branch: BranchTerm{Cond: guard, Then: guardedB.ID, Else: nextB.ID}})
			lo.fn.RecomputePreds()
			lo.sealBlock(guardedB.ID)
			lo.startBlock(guardedB)
		}

		exits, err := lo.lowerStmt(arm.Body)
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

	// Fall-through after the last arm.
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
		// Either the arm set is exhaustive and this block can never run,
		// or the remainder is undefined behavior surfaced explicitly.
		lo.terminate(Terminator{Kind: TermUnreachable})
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

// lowerPatternTest terminates the current block with the test for pat:
// control reaches yes when the pattern matches, no otherwise. Nested
// patterns chain through intermediate blocks.
func (lo *Lowerer) lowerPatternTest(pid tast.PatternID, value RegID, yes, no BlockID, span source.Span) error {
	pat := lo.Mod.Patterns.Get(pid)
	if pat == nil {
		return internalErr(span, "missing pattern %d", pid)
	}
	switch pat.Kind {
	case tast.PatternWildcard, tast.PatternBinding:
		lo.terminate(Terminator{Kind: TermJump, Jump: JumpTerm{Target: yes}})
		return nil
	case tast.PatternLit:
		lit, err := lo.lowerExpr(pat.Lit)
		if err != nil {
			return err
		}
		eq := lo.fn.NewReg(lo.Types.Builtins().Bool)
		lo.emit(Instr{Kind: InstrCmp, Dest: eq, Type: lo.Types.Builtins().Bool, Span: span, Cmp: CmpInstr{Op: types.OpEq, Lhs: value, Rhs: lit}})
		lo.terminate(Terminator{Kind: TermBranch, Branch: BranchTerm{Cond: eq, Then: yes, Else: no}})
		return nil
	case tast.PatternVariant:
		tag := lo.fn.NewReg(lo.Types.Builtins().Int)
		lo.emit(Instr{Kind: InstrLoad, Dest: tag, Type: lo.Types.Builtins().Int, Span: span, Load: LoadInstr{Ptr: value}})
		want := lo.emitConst(ConstInstr{Kind: ConstInt, IntVal: lo.variantTag(pat)}, lo.Types.Builtins().Int, span)
		eq := lo.fn.NewReg(lo.Types.Builtins().Bool)
		lo.emit(Instr{Kind: InstrCmp, Dest: eq, Type: lo.Types.Builtins().Bool, Span: span, Cmp: CmpInstr{Op: types.OpEq, Lhs: tag, Rhs: want}})
		if !lo.hasSubTests(pat) {
			lo.terminate(Terminator{Kind: TermBranch, Branch: BranchTerm{Cond: eq, Then: yes, Else: no}})
			return nil
		}
		chain := lo.newBlock()
		lo.terminate(Terminator{Kind: TermBranch, Branch: BranchTerm{Cond: eq, Then: chain.ID, Else: no}})
		lo.fn.RecomputePreds()
		lo.sealBlock(chain.ID)
		lo.startBlock(chain)
		return lo.lowerSubTests(pat, value, yes, no, span, 1)
	case tast.PatternTuple:
		if !lo.hasSubTests(pat) {
			lo.terminate(Terminator{Kind: TermJump, Jump: JumpTerm{Target: yes}})
			return nil
		}
		return lo.lowerSubTests(pat, value, yes, no, span, 0)
	default:
		return invalidTAST(diag.LowerInvalidTAST, span, "unknown pattern kind %d", pat.Kind)
	}
}

// hasSubTests reports whether any sub-pattern needs a runtime test (a
// wildcard or binding always matches and needs none).
func (lo *Lowerer) hasSubTests(pat *tast.Pattern) bool {
	for _, sid := range pat.Subs {
		sub := lo.Mod.Patterns.Get(sid)
		if sub == nil {
			continue
		}
		if sub.Kind != tast.PatternWildcard && sub.Kind != tast.PatternBinding {
			return true
		}
	}
	return false
}

// lowerSubTests extracts each payload element and tests the sub-patterns in
// order; base is the slot offset of the first element (1 for variants whose
// slot 0 holds the tag).
func (lo *Lowerer) lowerSubTests(pat *tast.Pattern, value RegID, yes, no BlockID, span source.Span, base int64) error {
	testable := make([]int, 0, len(pat.Subs))
	for i, sid := range pat.Subs {
		sub := lo.Mod.Patterns.Get(sid)
		if sub != nil && sub.Kind != tast.PatternWildcard && sub.Kind != tast.PatternBinding {
			testable = append(testable, i)
		}
	}
	for n, i := range testable {
		sub := lo.Mod.Patterns.Get(pat.Subs[i])
		elem := lo.extractElem(value, base+int64(i), sub.Type, span)
		target := yes
		if n != len(testable)-1 {
			next := lo.newBlock()
			target = next.ID
			if err := lo.lowerPatternTest(pat.Subs[i], elem, target, no, span); err != nil {
				return err
			}
			lo.fn.RecomputePreds()
			lo.sealBlock(next.ID)
			lo.startBlock(next)
			continue
		}
		if err := lo.lowerPatternTest(pat.Subs[i], elem, target, no, span); err != nil {
			return err
		}
	}
	return nil
}

// lowerPatternBind introduces the bindings of a matched pattern in the
// current (body) block.
func (lo *Lowerer) lowerPatternBind(pid tast.PatternID, value RegID, span source.Span) error {
	pat := lo.Mod.Patterns.Get(pid)
	if pat == nil {
		return internalErr(span, "missing pattern %d", pid)
	}
	switch pat.Kind {
	case tast.PatternBinding:
		lo.ssa.declare(pat.Binding, pat.Type)
		lo.writeVar(pat.Binding, value)
		return nil
	case tast.PatternVariant:
		for i, sid := range pat.Subs {
			sub := lo.Mod.Patterns.Get(sid)
			if sub == nil {
				continue
			}
			elem := lo.extractElem(value, 1+int64(i), sub.Type, span)
			if err := lo.lowerPatternBind(sid, elem, span); err != nil {
				return err
			}
		}
		return nil
	case tast.PatternTuple:
		for i, sid := range pat.Subs {
			sub := lo.Mod.Patterns.Get(sid)
			if sub == nil {
				continue
			}
			elem := lo.extractElem(value, int64(i), sub.Type, span)
			if err := lo.lowerPatternBind(sid, elem, span); err != nil {
				return err
			}
		}
		return nil
	default:
		return nil
	}
}

func (lo *Lowerer) extractElem(value RegID, slot int64, ty types.TypeID, span source.Span) RegID {
	if ty == types.NoTypeID {
		ty = lo.Types.Builtins().Dynamic
	}
	idx := lo.emitConst(ConstInstr{Kind: ConstInt, IntVal: slot}, lo.Types.Builtins().Int, span)
	ptr := lo.fn.NewReg(ty)
	lo.emit(Instr{Kind: InstrGEP, Dest: ptr, Type: ty, Span: span, GEP: GEPInstr{Base: value, Indexes: []RegID{idx}, Elem: ty}})
	elem := lo.fn.NewReg(ty)
	lo.emit(Instr{Kind: InstrLoad, Dest: elem, Type: ty, Span: span, Load: LoadInstr{Ptr: ptr}})
	return elem
}

// variantTag resolves the runtime tag of an enum variant symbol: the
// variant's declared integer value when the enum declares one, its
// position otherwise.
func (lo *Lowerer) variantTag(pat *tast.Pattern) int64 {
	variantSym := lo.Syms.Symbols.Get(pat.Variant)
	if variantSym == nil {
		return int64(pat.Variant)
	}
	parent, ok := lo.Syms.Hierarchy.ParentEnum(pat.Variant)
	if !ok {
		return int64(pat.Variant)
	}
	enumTy, ok := lo.Syms.TypeOfSymbol(parent)
	if !ok {
		return int64(pat.Variant)
	}
	info, ok := lo.Types.EnumInfo(enumTy)
	if !ok {
		return int64(pat.Variant)
	}
	for i, v := range info.Variants {
		if v.Name == variantSym.Name {
			if v.IntValue != 0 || v.IsString {
				return v.IntValue
			}
			return int64(i)
		}
	}
	return int64(pat.Variant)
}
