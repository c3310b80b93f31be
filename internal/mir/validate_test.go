package mir

import (
	"strings"
	"testing"

	"rayzor/internal/types"
)

func intConst(f *Func, ti *types.Interner, v int64) (Instr, RegID) {
	dest := f.NewReg(ti.Builtins().Int)
	return Instr{
		Kind:  InstrConst,
		Dest:  dest,
		Type:  ti.Builtins().Int,
		Const: ConstInstr{Kind: ConstInt, IntVal: v},
	}, dest
}

func TestValidateAcceptsWellFormedFunc(t *testing.T) {
	ti := types.NewInterner()
	f := NewFunc(0, 0, ti.Builtins().Int)
	entry := f.NewBlock()
	f.Entry = entry.ID

	c, reg := intConst(f, ti, 5)
	entry.Instrs = append(entry.Instrs, c)
	entry.Term = Terminator{Kind: TermReturn, Return: ReturnTerm{HasValue: true, Value: reg}}

	if err := ValidateFunc(f); err != nil {
		t.Fatalf("well-formed function rejected: %v", err)
	}
}

func TestValidateRejectsMissingTerminator(t *testing.T) {
	ti := types.NewInterner()
	f := NewFunc(0, 0, ti.Builtins().Void)
	entry := f.NewBlock()
	f.Entry = entry.ID

	err := ValidateFunc(f)
	if err == nil || !strings.Contains(err.Error(), "no terminator") {
		t.Fatalf("expected terminator violation, got %v", err)
	}
}

func TestValidateRejectsDoubleDefinition(t *testing.T) {
	ti := types.NewInterner()
	f := NewFunc(0, 0, ti.Builtins().Int)
	entry := f.NewBlock()
	f.Entry = entry.ID

	c1, reg := intConst(f, ti, 1)
	c2 := c1 // same Dest: violates single assignment
	c2.Const.IntVal = 2
	entry.Instrs = append(entry.Instrs, c1, c2)
	entry.Term = Terminator{Kind: TermReturn, Return: ReturnTerm{HasValue: true, Value: reg}}

	err := ValidateFunc(f)
	if err == nil || !strings.Contains(err.Error(), "redefined") {
		t.Fatalf("expected SSA violation, got %v", err)
	}
}

func TestValidateRejectsPhiPredecessorMismatch(t *testing.T) {
	ti := types.NewInterner()
	f := NewFunc(0, 0, ti.Builtins().Int)
	entry := f.NewBlock()
	merge := f.NewBlock()
	f.Entry = entry.ID

	c, reg := intConst(f, ti, 1)
	entry.Instrs = append(entry.Instrs, c)
	entry.Term = Terminator{Kind: TermJump, Jump: JumpTerm{Target: merge.ID}}

	phiDest := f.NewReg(ti.Builtins().Int)
	merge.Phis = append(merge.Phis, Phi{
		Dest: phiDest,
		Type: ti.Builtins().Int,
		Incomings: []PhiIncoming{
			{Pred: entry.ID, Value: reg},
			{Pred: BlockID(99), Value: reg},
		},
	})
	merge.Term = Terminator{Kind: TermReturn, Return: ReturnTerm{HasValue: true, Value: phiDest}}
	f.RecomputePreds()

	err := ValidateFunc(f)
	if err == nil || !strings.Contains(err.Error(), "phi") {
		t.Fatalf("expected phi violation, got %v", err)
	}
}

func TestValidateRejectsMisplacedTailCall(t *testing.T) {
	ti := types.NewInterner()
	f := NewFunc(0, 0, ti.Builtins().Int)
	entry := f.NewBlock()
	f.Entry = entry.ID

	callDest := f.NewReg(ti.Builtins().Int)
	call := Instr{
		Kind:       InstrCallDirect,
		Dest:       callDest,
		Type:       ti.Builtins().Int,
		CallDirect: CallDirectInstr{Target: FuncID(1), Tail: true},
	}
	other, otherReg := intConst(f, ti, 3)
	entry.Instrs = append(entry.Instrs, call, other)
	entry.Term = Terminator{Kind: TermReturn, Return: ReturnTerm{HasValue: true, Value: otherReg}}

	err := ValidateFunc(f)
	if err == nil || !strings.Contains(err.Error(), "tail call") {
		t.Fatalf("expected tail-call violation, got %v", err)
	}
}

func TestRecomputePreds(t *testing.T) {
	ti := types.NewInterner()
	f := NewFunc(0, 0, ti.Builtins().Void)
	entry := f.NewBlock()
	then := f.NewBlock()
	alt := f.NewBlock()
	merge := f.NewBlock()
	f.Entry = entry.ID

	cond := f.NewReg(ti.Builtins().Bool)
	entry.Instrs = append(entry.Instrs, Instr{Kind: InstrConst, Dest: cond, Type: ti.Builtins().Bool, Const: ConstInstr{Kind: ConstBool, BoolVal: true}})
	entry.Term = Terminator{Kind: TermBranch, Branch: BranchTerm{Cond: cond, Then: then.ID, Else: alt.ID}}
	then.Term = Terminator{Kind: TermJump, Jump: JumpTerm{Target: merge.ID}}
	alt.Term = Terminator{Kind: TermJump, Jump: JumpTerm{Target: merge.ID}}
	merge.Term = Terminator{Kind: TermReturn}

	f.RecomputePreds()

	if len(merge.Preds) != 2 || !merge.HasPred(then.ID) || !merge.HasPred(alt.ID) {
		t.Fatalf("merge preds = %v", merge.Preds)
	}
	if len(entry.Preds) != 0 {
		t.Fatalf("entry preds = %v", entry.Preds)
	}
	if err := ValidateFunc(f); err != nil {
		t.Fatalf("diamond CFG rejected: %v", err)
	}
}
