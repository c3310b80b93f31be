package lifetime

import (
	"sort"

	"rayzor/internal/graph"
	"rayzor/internal/source"
	"rayzor/internal/tast"
	"rayzor/internal/types"
)

// node is one lifetime variable with its classification and owning
// function (NoFuncID for globals).
type node struct {
	kind  NodeKind
	owner tast.FuncID
}

// borrowEdge records that borrower lends from owner at site.
type borrowEdge struct {
	borrower types.LifetimeID
	owner    types.LifetimeID
	site     source.Span
}

// Graph is the global lifetime constraint graph: nodes per lifetime
// variable, outlives/equal adjacency, and borrow edges validated against
// the solved closure.
type Graph struct {
	nodes    map[types.LifetimeID]node
	outlives map[types.LifetimeID]map[types.LifetimeID]struct{} // a -> set of b with `a outlives b`
	equal    map[types.LifetimeID]map[types.LifetimeID]struct{} // symmetric
	borrows  []borrowEdge

	nextFresh types.LifetimeID
}

// NewGraph creates an empty constraint graph. Fresh lifetimes minted by
// Fresh start above base so they never collide with checker-assigned ids.
func NewGraph(base types.LifetimeID) *Graph {
	return &Graph{
		nodes:     make(map[types.LifetimeID]node),
		outlives:  make(map[types.LifetimeID]map[types.LifetimeID]struct{}),
		equal:     make(map[types.LifetimeID]map[types.LifetimeID]struct{}),
		nextFresh: base + 1,
	}
}

// Fresh mints a new lifetime variable id.
func (g *Graph) Fresh() types.LifetimeID {
	id := g.nextFresh
	g.nextFresh++
	return id
}

// AddNode registers (or reclassifies) a lifetime variable.
func (g *Graph) AddNode(id types.LifetimeID, kind NodeKind, owner tast.FuncID) {
	if id == types.NoLifetimeID {
		return
	}
	if existing, ok := g.nodes[id]; ok && existing.kind != NodeInvalid && kind == NodeInvalid {
		return
	}
	g.nodes[id] = node{kind: kind, owner: owner}
}

func (g *Graph) ensureNode(id types.LifetimeID) {
	if _, ok := g.nodes[id]; !ok {
		g.nodes[id] = node{kind: NodeLocal}
	}
}

// NodeKindOf returns the registered kind of a lifetime.
func (g *Graph) NodeKindOf(id types.LifetimeID) NodeKind {
	return g.nodes[id].kind
}

// AddOutlives records `longer outlives shorter`.
func (g *Graph) AddOutlives(longer, shorter types.LifetimeID) {
	if longer == types.NoLifetimeID || shorter == types.NoLifetimeID || longer == shorter {
		return
	}
	g.ensureNode(longer)
	g.ensureNode(shorter)
	set := g.outlives[longer]
	if set == nil {
		set = make(map[types.LifetimeID]struct{}, 2)
		g.outlives[longer] = set
	}
	set[shorter] = struct{}{}
}

// AddEqual records that a and b are the same region.
func (g *Graph) AddEqual(a, b types.LifetimeID) {
	if a == types.NoLifetimeID || b == types.NoLifetimeID || a == b {
		return
	}
	g.ensureNode(a)
	g.ensureNode(b)
	for _, pair := range [2][2]types.LifetimeID{{a, b}, {b, a}} {
		set := g.equal[pair[0]]
		if set == nil {
			set = make(map[types.LifetimeID]struct{}, 2)
			g.equal[pair[0]] = set
		}
		set[pair[1]] = struct{}{}
	}
}

// AddBorrow records that borrower lends from owner; validation requires a
// backing `owner outlives borrower`.
func (g *Graph) AddBorrow(borrower, owner types.LifetimeID, site source.Span) {
	if borrower == types.NoLifetimeID || owner == types.NoLifetimeID {
		return
	}
	g.ensureNode(borrower)
	g.ensureNode(owner)
	g.borrows = append(g.borrows, borrowEdge{borrower: borrower, owner: owner, site: site})
}

// AddCallSite applies one call site's flows to the graph.
func (g *Graph) AddCallSite(c CallSiteConstraint) {
	apply := func(flows []Flow) {
		for _, f := range flows {
			switch f.Kind.edgeKind() {
			case EdgeOutlives:
				g.AddOutlives(f.From, f.To)
			case EdgeEqual:
				g.AddEqual(f.From, f.To)
			case EdgeBorrow:
				g.AddBorrow(f.From, f.To, c.Site)
			}
		}
	}
	apply(c.ArgFlows)
	apply(c.RetFlows)
	apply(c.Borrows)
}

// Lifetimes returns every registered lifetime id in ascending order.
func (g *Graph) Lifetimes() []types.LifetimeID {
	ids := make([]types.LifetimeID, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// EqualClasses computes the equivalence classes induced by Equal edges,
// using the SCC decomposition of the (symmetric) equal relation.
func (g *Graph) EqualClasses() [][]types.LifetimeID {
	ids := g.Lifetimes()
	index := make(map[types.LifetimeID]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}
	comps := graph.SCC(len(ids), func(v int) []int {
		var out []int
		for other := range g.equal[ids[v]] {
			if j, ok := index[other]; ok {
				out = append(out, j)
			}
		}
		sort.Ints(out)
		return out
	})
	classes := make([][]types.LifetimeID, len(comps))
	for i, comp := range comps {
		class := make([]types.LifetimeID, len(comp))
		for j, v := range comp {
			class[j] = ids[v]
		}
		sort.Slice(class, func(a, b int) bool { return class[a] < class[b] })
		classes[i] = class
	}
	return classes
}
