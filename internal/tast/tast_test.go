package tast

import (
	"testing"

	"rayzor/internal/source"
	"rayzor/internal/types"
)

func TestArenaAllocateGet(t *testing.T) {
	a := NewArena[Stmt](4)
	if a.Len() != 0 {
		t.Fatalf("fresh arena len = %d, want 0", a.Len())
	}
	id := a.Allocate(Stmt{Kind: StmtReturn})
	if id != 1 {
		t.Fatalf("first allocation id = %d, want 1", id)
	}
	if got := a.Get(id); got == nil || got.Kind != StmtReturn {
		t.Fatalf("Get(%d) = %+v", id, got)
	}
	if a.Get(0) != nil {
		t.Fatal("Get(0) must return nil sentinel")
	}
	if a.Get(99) != nil {
		t.Fatal("out-of-range Get must return nil")
	}
}

func TestBuilderLiteralMeta(t *testing.T) {
	ti := types.NewInterner()
	m := NewModule(0)
	b := NewBuilder(m, ti)

	lit := b.IntLit(42, source.Span{})
	e := m.Exprs.Get(lit)
	if e == nil {
		t.Fatal("literal not allocated")
	}
	if !e.Meta.Constant {
		t.Error("literal must be marked constant")
	}
	if e.Type != ti.Builtins().Int {
		t.Errorf("literal type = %d, want int %d", e.Type, ti.Builtins().Int)
	}
	payload := m.Exprs.Lits.Get(uint32(e.Payload))
	if payload == nil || payload.IntVal != 42 {
		t.Fatalf("literal payload = %+v", payload)
	}
}

func TestBuilderBinaryMetaPropagation(t *testing.T) {
	ti := types.NewInterner()
	m := NewModule(0)
	b := NewBuilder(m, ti)

	lhs := b.IntLit(2, source.Span{})
	rhs := b.IntLit(3, source.Span{})
	sum := b.Binary(types.OpAdd, lhs, rhs, ti.Builtins().Int, source.Span{})

	e := m.Exprs.Get(sum)
	if !e.Meta.Constant {
		t.Error("const + const must stay constant")
	}
	if e.Meta.HasSideEffects {
		t.Error("pure binary op must not be side-effecting")
	}
	if e.Meta.Complexity != 3 {
		t.Errorf("complexity = %d, want 3", e.Meta.Complexity)
	}

	call := b.Call(NoExprID, 7, nil, ti.Builtins().Int, source.Span{})
	mixed := b.Binary(types.OpAdd, sum, call, ti.Builtins().Int, source.Span{})
	me := m.Exprs.Get(mixed)
	if me.Meta.Constant {
		t.Error("expr containing a call must not be constant")
	}
	if !me.Meta.HasSideEffects || !me.Meta.CanThrow {
		t.Error("call effects must propagate upward")
	}
}

func TestModuleFuncIndex(t *testing.T) {
	m := NewModule(0)
	fn := &Func{Sym: 11, Result: types.NoTypeID}
	id := m.AddFunc(fn)
	if id != 1 || fn.ID != 1 {
		t.Fatalf("first FuncID = %d (fn.ID %d), want 1", id, fn.ID)
	}
	if got := m.Func(id); got != fn {
		t.Fatal("Func(id) did not return the registered function")
	}
	if got, ok := m.FuncBySym[11]; !ok || got != id {
		t.Fatalf("FuncBySym[11] = %d, %v", got, ok)
	}
	if m.Func(NoFuncID) != nil {
		t.Fatal("Func(NoFuncID) must be nil")
	}
}

func TestStmtKindStrings(t *testing.T) {
	kinds := []StmtKind{
		StmtExpr, StmtVarDecl, StmtAssign, StmtIf, StmtWhile, StmtForClassic,
		StmtForIn, StmtReturn, StmtThrow, StmtTry, StmtSwitch, StmtPatternMatch,
		StmtBreak, StmtContinue, StmtBlock, StmtMacroExpansion,
	}
	seen := make(map[string]StmtKind, len(kinds))
	for _, k := range kinds {
		s := k.String()
		if s == "invalid" {
			t.Errorf("kind %d renders as invalid", k)
		}
		if prev, dup := seen[s]; dup {
			t.Errorf("kinds %d and %d share label %q", prev, k, s)
		}
		seen[s] = k
	}
}
