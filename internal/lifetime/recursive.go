package lifetime

import (
	"sort"

	"rayzor/internal/graph"
	"rayzor/internal/tast"
	"rayzor/internal/types"
)

// recursiveGroupMaxIterations bounds the per-group fixed point.
const recursiveGroupMaxIterations = 100

// recursiveConvergenceThreshold: a group converges once an iteration adds
// no more than this many new relations (zero keeps the classic fixed
// point).
const recursiveConvergenceThreshold = 0

// CallGraphSCCs groups functions into strongly connected components of the
// call graph, dependents first. Functions absent from calls map to
// singleton groups.
func CallGraphSCCs(funcs []tast.FuncID, calls map[tast.FuncID][]tast.FuncID) [][]tast.FuncID {
	index := make(map[tast.FuncID]int, len(funcs))
	for i, f := range funcs {
		index[f] = i
	}
	comps := graph.SCC(len(funcs), func(v int) []int {
		var out []int
		for _, callee := range calls[funcs[v]] {
			if j, ok := index[callee]; ok {
				out = append(out, j)
			}
		}
		sort.Ints(out)
		return out
	})
	// SCC emits callees before their callers on caller->callee edges;
	// filling groups from the back puts callers (dependents) first.
	groups := make([][]tast.FuncID, len(comps))
	for i, comp := range comps {
		group := make([]tast.FuncID, len(comp))
		for j, v := range comp {
			group[j] = funcs[v]
		}
		sort.Slice(group, func(a, b int) bool { return group[a] < group[b] })
		groups[len(comps)-1-i] = group
	}
	return groups
}

// SolveRecursiveGroup iterates one call-graph SCC's constraint equations
// to a fixed point: each round re-applies the group's call-site flows over
// the current relation and stops once no new relation appears (within the
// convergence threshold). Exceeding the per-group cap reports
// RecursiveConstraintNonConvergence; a frame-local region of a group
// member forced to outlive a parameter of the same function is flagged as
// RecursiveLifetimeExtension.
func SolveRecursiveGroup(g *Graph, group []tast.FuncID, sites []CallSiteConstraint) ([]Violation, error) {
	if len(group) <= 1 && !selfRecursive(group, sites) {
		return nil, nil
	}
	inGroup := make(map[tast.FuncID]struct{}, len(group))
	for _, f := range group {
		inGroup[f] = struct{}{}
	}

	var groupSites []CallSiteConstraint
	for _, s := range sites {
		_, callerIn := inGroup[s.Caller]
		_, calleeIn := inGroup[s.Callee]
		if callerIn && calleeIn {
			groupSites = append(groupSites, s)
		}
	}

	prevSize := -1
	for iter := 0; ; iter++ {
		if iter >= recursiveGroupMaxIterations {
			return nil, &AnalysisError{Kind: ErrRecursiveNonConvergence, Functions: group}
		}
		for _, s := range groupSites {
			g.AddCallSite(s)
		}
		solver := NewSolver(g)
		sol, err := solver.Solve()
		if err != nil {
			return nil, err
		}
		size := relationSize(sol)
		if prevSize >= 0 && size-prevSize <= recursiveConvergenceThreshold {
			return detectRecursiveExtension(g, sol, group), nil
		}
		prevSize = size
	}
}

func selfRecursive(group []tast.FuncID, sites []CallSiteConstraint) bool {
	if len(group) != 1 {
		return false
	}
	for _, s := range sites {
		if s.Caller == group[0] && s.Callee == group[0] {
			return true
		}
	}
	return false
}

func relationSize(sol *Solution) int {
	n := 0
	for _, set := range sol.outlives {
		n += len(set)
	}
	classes := make(map[types.LifetimeID]struct{}, len(sol.rep))
	for _, r := range sol.rep {
		classes[r] = struct{}{}
	}
	// Merges shrink the class count; count both so either kind of change
	// registers as progress.
	return n + (len(sol.rep) - len(classes))
}

// detectRecursiveExtension flags frame-local regions of group members that
// ended up outliving a parameter of the same function: the recursion keeps
// extending a frame-bound region.
func detectRecursiveExtension(g *Graph, sol *Solution, group []tast.FuncID) []Violation {
	inGroup := make(map[tast.FuncID]struct{}, len(group))
	for _, f := range group {
		inGroup[f] = struct{}{}
	}
	var violations []Violation
	ids := g.Lifetimes()
	for _, a := range ids {
		na := g.nodes[a]
		if na.kind != NodeLocal {
			continue
		}
		if _, ok := inGroup[na.owner]; !ok {
			continue
		}
		for _, b := range ids {
			nb := g.nodes[b]
			if nb.kind != NodeParameter || nb.owner != na.owner {
				continue
			}
			if a == b || sol.SameClass(a, b) {
				continue
			}
			if sol.Outlives(a, b) {
				violations = append(violations, Violation{
					Kind:    RecursiveLifetimeExtension,
					A:       a,
					B:       b,
					Message: "recursive call chain extends a frame-local region past its parameter",
				})
			}
		}
	}
	return violations
}
