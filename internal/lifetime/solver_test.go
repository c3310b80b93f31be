package lifetime

import (
	"errors"
	"testing"

	"rayzor/internal/source"
	"rayzor/internal/tast"
	"rayzor/internal/types"
)

func TestSolveTransitiveOutlives(t *testing.T) {
	g := NewGraph(0)
	a, b, c := g.Fresh(), g.Fresh(), g.Fresh()
	g.AddOutlives(a, b)
	g.AddOutlives(b, c)

	sol, err := NewSolver(g).Solve()
	if err != nil {
		t.Fatal(err)
	}
	if !sol.Outlives(a, c) {
		t.Error("outlives must close transitively")
	}
	if sol.Outlives(c, a) {
		t.Error("closure must not invent reverse relations")
	}
}

func TestSolveMutualOutlivesMerges(t *testing.T) {
	g := NewGraph(0)
	a, b := g.Fresh(), g.Fresh()
	g.AddOutlives(a, b)
	g.AddOutlives(b, a)

	sol, err := NewSolver(g).Solve()
	if err != nil {
		t.Fatal(err)
	}
	if !sol.SameClass(a, b) {
		t.Error("mutually-outliving lifetimes must fuse into one class")
	}
	if !sol.Outlives(a, b) || !sol.Outlives(b, a) {
		t.Error("same class implies outlives both ways")
	}
}

func TestSolvePropagatesThroughEqual(t *testing.T) {
	g := NewGraph(0)
	a, b, c := g.Fresh(), g.Fresh(), g.Fresh()
	g.AddEqual(a, b)
	g.AddOutlives(b, c)

	sol, err := NewSolver(g).Solve()
	if err != nil {
		t.Fatal(err)
	}
	if !sol.Outlives(a, c) {
		t.Error("A=B and B outlives C must give A outlives C")
	}
}

func TestSolveTimeout(t *testing.T) {
	g := NewGraph(0)
	// A chain long enough that closure needs several rounds.
	ids := make([]types.LifetimeID, 64)
	for i := range ids {
		ids[i] = g.Fresh()
	}
	for i := 0; i+1 < len(ids); i++ {
		g.AddOutlives(ids[i], ids[i+1])
	}
	s := NewSolver(g)
	s.MaxIterations = 1

	_, err := s.Solve()
	var ae *AnalysisError
	if !errors.As(err, &ae) || ae.Kind != ErrConstraintSolvingTimeout {
		t.Fatalf("expected ConstraintSolvingTimeout, got %v", err)
	}
}

func TestValidateBorrowWithoutBacking(t *testing.T) {
	g := NewGraph(0)
	borrower, owner := g.Fresh(), g.Fresh()
	g.AddBorrow(borrower, owner, source.Span{})

	s := NewSolver(g)
	sol, err := s.Solve()
	if err != nil {
		t.Fatal(err)
	}
	violations := s.Validate(sol)
	if len(violations) != 1 || violations[0].Kind != InvalidCrossFunctionBorrow {
		t.Fatalf("violations = %v, want one InvalidCrossFunctionBorrow", violations)
	}
}

func TestValidateBackedBorrowPasses(t *testing.T) {
	g := NewGraph(0)
	borrower, owner := g.Fresh(), g.Fresh()
	g.AddBorrow(borrower, owner, source.Span{})
	g.AddOutlives(owner, borrower)

	s := NewSolver(g)
	sol, err := s.Solve()
	if err != nil {
		t.Fatal(err)
	}
	if violations := s.Validate(sol); len(violations) != 0 {
		t.Fatalf("violations = %v, want none", violations)
	}
}

func TestValidateLocalEscapesThroughForeignReturn(t *testing.T) {
	g := NewGraph(0)
	local, ret := g.Fresh(), g.Fresh()
	g.AddNode(local, NodeLocal, 1)
	g.AddNode(ret, NodeReturn, 2)
	g.AddOutlives(local, ret)

	s := NewSolver(g)
	sol, err := s.Solve()
	if err != nil {
		t.Fatal(err)
	}
	violations := s.Validate(sol)
	if len(violations) != 1 || violations[0].Kind != CrossFunctionUseAfterFree {
		t.Fatalf("violations = %v, want one CrossFunctionUseAfterFree", violations)
	}
}

func TestEqualClasses(t *testing.T) {
	g := NewGraph(0)
	a, b, c, d := g.Fresh(), g.Fresh(), g.Fresh(), g.Fresh()
	g.AddEqual(a, b)
	g.AddEqual(b, c)
	g.ensureNode(d)

	classes := g.EqualClasses()
	var sizes []int
	for _, cl := range classes {
		sizes = append(sizes, len(cl))
	}
	if len(classes) != 2 {
		t.Fatalf("classes = %v (sizes %v), want 2", classes, sizes)
	}
	found3 := false
	for _, cl := range classes {
		if len(cl) == 3 {
			found3 = true
		}
	}
	if !found3 {
		t.Errorf("expected a 3-element class covering %d %d %d, got %v", a, b, c, classes)
	}
	_ = d
}

func TestUnifyVirtualCallCompatible(t *testing.T) {
	g := NewGraph(0)
	base := &FunctionLifetimeSignature{Func: 1, Params: []types.LifetimeID{g.Fresh(), g.Fresh()}}
	override := &FunctionLifetimeSignature{Func: 2, Params: []types.LifetimeID{g.Fresh(), g.Fresh()}}

	rep, violations := UnifyVirtualCall(g, VirtualCall{Method: 7, Impls: []*FunctionLifetimeSignature{base, override}})
	if rep != base {
		t.Error("base implementation must be the representative")
	}
	if len(violations) != 0 {
		t.Fatalf("violations = %v, want none", violations)
	}

	sol, err := NewSolver(g).Solve()
	if err != nil {
		t.Fatal(err)
	}
	if !sol.SameClass(base.Params[0], override.Params[0]) {
		t.Error("unification must fuse corresponding parameter regions")
	}
}

func TestUnifyVirtualCallMismatch(t *testing.T) {
	g := NewGraph(0)
	p1, p2 := g.Fresh(), g.Fresh()
	base := &FunctionLifetimeSignature{Func: 1, Params: []types.LifetimeID{p1, p2}}
	q1, q2 := g.Fresh(), g.Fresh()
	override := &FunctionLifetimeSignature{
		Func:   2,
		Params: []types.LifetimeID{q1, q2},
		Bounds: []Bound{{Longer: q1, Shorter: q2}}, // base declares no such bound
	}

	_, violations := UnifyVirtualCall(g, VirtualCall{Method: 7, Impls: []*FunctionLifetimeSignature{base, override}})
	if len(violations) != 1 || violations[0].Kind != VirtualMethodLifetimeMismatch {
		t.Fatalf("violations = %v, want one VirtualMethodLifetimeMismatch", violations)
	}
}

func TestCallGraphSCCOrder(t *testing.T) {
	// 1 -> 2 <-> 3, 2 -> 4: the 2-3 cycle is one group; dependents come
	// before dependencies, so 4 (a leaf) precedes nothing that calls it.
	calls := map[tast.FuncID][]tast.FuncID{1: {2}, 2: {3, 4}, 3: {2}}
	funcs := []tast.FuncID{1, 2, 3, 4}

	groups := CallGraphSCCs(funcs, calls)
	if len(groups) != 3 {
		t.Fatalf("groups = %v, want 3", groups)
	}
	var cycle []tast.FuncID
	pos := make(map[tast.FuncID]int)
	for i, g := range groups {
		for _, f := range g {
			pos[f] = i
		}
		if len(g) == 2 {
			cycle = g
		}
	}
	if len(cycle) != 2 || cycle[0] != 2 || cycle[1] != 3 {
		t.Fatalf("cycle group = %v, want [2 3]", cycle)
	}
	if pos[4] < pos[2] {
		t.Error("callee 4 must not precede its caller group")
	}
	if pos[1] > pos[2] {
		t.Error("caller 1 must come before the 2-3 group it depends on")
	}
}

func TestRecursiveGroupConverges(t *testing.T) {
	g := NewGraph(0)
	// Self-recursive f(1): parameter and locals related across the
	// recursive call.
	param, local := g.Fresh(), g.Fresh()
	g.AddNode(param, NodeParameter, 1)
	g.AddNode(local, NodeLocal, 1)

	site := CallSiteConstraint{
		Caller:   1,
		Callee:   1,
		ArgFlows: []Flow{{From: param, To: param, Kind: FlowOutlives}},
	}
	violations, err := SolveRecursiveGroup(g, []tast.FuncID{1}, []CallSiteConstraint{site})
	if err != nil {
		t.Fatal(err)
	}
	if len(violations) != 0 {
		t.Fatalf("violations = %v, want none", violations)
	}
}

func TestAnalysisCleanModule(t *testing.T) {
	strings := source.NewInterner()
	ti := types.NewInterner()
	ti.Strings = strings
	mod := tast.NewModule(strings.Intern("m"))
	b := tast.NewBuilder(mod, ti)

	ret := b.Return(b.IntLit(1, source.Span{}), source.Span{})
	body := b.Block(0, []tast.StmtID{ret}, source.Span{})
	mod.AddFunc(&tast.Func{Result: ti.Builtins().Int, Body: body})

	violations, err := NewAnalysis(mod).Run()
	if err != nil {
		t.Fatalf("clean module must pass: %v", err)
	}
	if len(violations) != 0 {
		t.Fatalf("violations = %v, want none", violations)
	}
}
