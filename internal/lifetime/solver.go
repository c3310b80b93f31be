package lifetime

import (
	"sort"

	"rayzor/internal/tast"
	"rayzor/internal/types"
)

// defaultMaxIterations caps the closure loop; the relation set is finite
// so real inputs converge far earlier, and hitting the cap surfaces as a
// ConstraintSolvingTimeout.
const defaultMaxIterations = 10000

// Solution is the solved lifetime relation: equivalence-class
// representatives and the transitive outlives closure between them.
type Solution struct {
	rep      map[types.LifetimeID]types.LifetimeID
	outlives map[types.LifetimeID]map[types.LifetimeID]struct{} // between representatives
}

// Rep returns the representative of id's equivalence class.
func (s *Solution) Rep(id types.LifetimeID) types.LifetimeID {
	if r, ok := s.rep[id]; ok {
		return r
	}
	return id
}

// Outlives reports whether a's class must live at least as long as b's
// (true when they are the same class).
func (s *Solution) Outlives(a, b types.LifetimeID) bool {
	ra, rb := s.Rep(a), s.Rep(b)
	if ra == rb {
		return true
	}
	_, ok := s.outlives[ra][rb]
	return ok
}

// SameClass reports whether a and b were fused into one region.
func (s *Solution) SameClass(a, b types.LifetimeID) bool {
	return s.Rep(a) == s.Rep(b)
}

// Solver runs the iterated closure over a constraint graph.
type Solver struct {
	G             *Graph
	MaxIterations int
}

// NewSolver wraps a graph with the default iteration cap.
func NewSolver(g *Graph) *Solver {
	return &Solver{G: g, MaxIterations: defaultMaxIterations}
}

// Solve computes the closure: Outlives propagates transitively and through
// Equal classes, and mutually-outliving classes merge into one. The loop
// runs until stable; exceeding the cap returns ConstraintSolvingTimeout.
func (s *Solver) Solve() (*Solution, error) {
	maxIter := s.MaxIterations
	if maxIter <= 0 {
		maxIter = defaultMaxIterations
	}

	// Union-find over declared Equal edges seeds the classes.
	parent := make(map[types.LifetimeID]types.LifetimeID)
	var find func(types.LifetimeID) types.LifetimeID
	find = func(x types.LifetimeID) types.LifetimeID {
		p, ok := parent[x]
		if !ok || p == x {
			return x
		}
		root := find(p)
		parent[x] = root
		return root
	}
	union := func(a, b types.LifetimeID) bool {
		ra, rb := find(a), find(b)
		if ra == rb {
			return false
		}
		// Smaller id wins for deterministic representatives.
		if rb < ra {
			ra, rb = rb, ra
		}
		parent[rb] = ra
		return true
	}

	for _, class := range s.G.EqualClasses() {
		for i := 1; i < len(class); i++ {
			union(class[0], class[i])
		}
	}

	// Class-level outlives relation, rebuilt as classes merge.
	out := make(map[types.LifetimeID]map[types.LifetimeID]struct{})
	addOut := func(a, b types.LifetimeID) bool {
		ra, rb := find(a), find(b)
		if ra == rb {
			return false
		}
		set := out[ra]
		if set == nil {
			set = make(map[types.LifetimeID]struct{}, 2)
			out[ra] = set
		}
		if _, ok := set[rb]; ok {
			return false
		}
		set[rb] = struct{}{}
		return true
	}
	for a, set := range s.G.outlives {
		for b := range set {
			addOut(a, b)
		}
	}

	iter := 0
	for changed := true; changed; {
		iter++
		if iter > maxIter {
			return nil, &AnalysisError{Kind: ErrConstraintSolvingTimeout, Iterations: iter - 1}
		}
		changed = false

		// Renormalize onto current representatives.
		norm := make(map[types.LifetimeID]map[types.LifetimeID]struct{}, len(out))
		for a, set := range out {
			ra := find(a)
			for b := range set {
				rb := find(b)
				if ra == rb {
					continue
				}
				inner := norm[ra]
				if inner == nil {
					inner = make(map[types.LifetimeID]struct{}, len(set))
					norm[ra] = inner
				}
				inner[rb] = struct{}{}
			}
		}
		out = norm

		// Transitive step: a > b and b > c gives a > c.
		for a, bs := range out {
			for b := range bs {
				for c := range out[b] {
					if addOut(a, c) {
						changed = true
					}
				}
			}
		}

		// Mutual outlives fuses the classes.
		for a, bs := range out {
			for b := range bs {
				if _, back := out[b][a]; back {
					if union(a, b) {
						changed = true
					}
				}
			}
		}
	}

	sol := &Solution{
		rep:      make(map[types.LifetimeID]types.LifetimeID, len(s.G.nodes)),
		outlives: make(map[types.LifetimeID]map[types.LifetimeID]struct{}, len(out)),
	}
	for id := range s.G.nodes {
		sol.rep[id] = find(id)
	}
	for a, set := range out {
		ra := find(a)
		for b := range set {
			rb := find(b)
			if ra == rb {
				continue
			}
			inner := sol.outlives[ra]
			if inner == nil {
				inner = make(map[types.LifetimeID]struct{}, len(set))
				sol.outlives[ra] = inner
			}
			inner[rb] = struct{}{}
		}
	}
	return sol, nil
}

// Validate checks the solved relation against the graph's node
// classifications and borrow edges, returning every named violation.
func (s *Solver) Validate(sol *Solution) []Violation {
	var violations []Violation

	// A class-level self outlives cannot survive solving (mutual pairs
	// merge), but a defensive check keeps corrupted input loud.
	for a, set := range sol.outlives {
		if _, self := set[a]; self {
			violations = append(violations, Violation{
				Kind:    RecursiveLifetimeExtension,
				A:       a,
				B:       a,
				Message: "lifetime is required to strictly outlive itself",
			})
		}
	}

	// Locals forced to outlive returns or globals of other frames escape
	// their stack frame.
	ids := s.G.Lifetimes()
	for _, a := range ids {
		na := s.G.nodes[a]
		if na.kind != NodeLocal {
			continue
		}
		for _, b := range ids {
			if a == b || !sol.Outlives(a, b) || sol.SameClass(a, b) {
				continue
			}
			nb := s.G.nodes[b]
			switch nb.kind {
			case NodeGlobal:
				violations = append(violations, Violation{
					Kind:    CrossFunctionUseAfterFree,
					A:       a,
					B:       b,
					Message: "local value is required to outlive global state",
				})
			case NodeReturn:
				if nb.owner != na.owner {
					violations = append(violations, Violation{
						Kind:    CrossFunctionUseAfterFree,
						A:       a,
						B:       b,
						Message: "local value escapes through another function's return",
					})
				}
			}
		}
	}

	// Borrow edges need a backing outlives from the owner.
	for _, b := range s.G.borrows {
		if sol.Outlives(b.owner, b.borrower) {
			continue
		}
		violations = append(violations, Violation{
			Kind:    InvalidCrossFunctionBorrow,
			A:       b.borrower,
			B:       b.owner,
			Site:    b.site,
			Message: "borrowed value does not outlive the borrow",
		})
	}

	sort.Slice(violations, func(i, j int) bool {
		if violations[i].Kind != violations[j].Kind {
			return violations[i].Kind < violations[j].Kind
		}
		if violations[i].A != violations[j].A {
			return violations[i].A < violations[j].A
		}
		return violations[i].B < violations[j].B
	})
	return violations
}

// ownerOf exposes a node's owning function for the recursive-group
// analysis.
func (g *Graph) ownerOf(id types.LifetimeID) tast.FuncID {
	return g.nodes[id].owner
}
