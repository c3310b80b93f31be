// Package lifetime implements the cross-function lifetime/borrow
// constraint solver: per-function signatures, call-site constraint
// generation, a global constraint graph with SCC-based equivalence
// classes, and an iterated-closure solver with violation reporting.
package lifetime

import (
	"rayzor/internal/types"
)

// NodeKind classifies a lifetime variable in the constraint graph.
type NodeKind uint8

const (
	// NodeInvalid is the zero-value kind.
	NodeInvalid NodeKind = iota
	// NodeParameter is a lifetime bound to a function parameter.
	NodeParameter
	// NodeReturn is a lifetime flowing out of a function.
	NodeReturn
	// NodeLocal is a lifetime bound to a local value.
	NodeLocal
	// NodeGlobal is the static lifetime of module state.
	NodeGlobal
)

func (k NodeKind) String() string {
	switch k {
	case NodeParameter:
		return "parameter"
	case NodeReturn:
		return "return"
	case NodeLocal:
		return "local"
	case NodeGlobal:
		return "global"
	default:
		return "invalid"
	}
}

// EdgeKind classifies a constraint edge.
type EdgeKind uint8

const (
	// EdgeOutlives requires the source to live at least as long as the
	// target.
	EdgeOutlives EdgeKind = iota
	// EdgeEqual requires both lifetimes to be the same region.
	EdgeEqual
	// EdgeBorrow records a borrow of the target for the source's extent;
	// it must be backed by a matching Outlives.
	EdgeBorrow
)

func (k EdgeKind) String() string {
	switch k {
	case EdgeOutlives:
		return "outlives"
	case EdgeEqual:
		return "equal"
	case EdgeBorrow:
		return "borrow"
	default:
		return "unknown"
	}
}

// FlowKind classifies how a value moves through a call site.
type FlowKind uint8

const (
	// FlowOutlives is a plain outlives requirement.
	FlowOutlives FlowKind = iota
	// FlowEqual requires identical regions.
	FlowEqual
	// FlowBorrow lends the value for the callee's extent.
	FlowBorrow
	// FlowMove transfers ownership; a move implies outlives.
	FlowMove
)

func (k FlowKind) String() string {
	switch k {
	case FlowOutlives:
		return "outlives"
	case FlowEqual:
		return "equal"
	case FlowBorrow:
		return "borrow"
	case FlowMove:
		return "move"
	default:
		return "unknown"
	}
}

// edgeKind maps a call-site flow onto the graph edge it induces. Move
// implies Outlives.
func (k FlowKind) edgeKind() EdgeKind {
	switch k {
	case FlowEqual:
		return EdgeEqual
	case FlowBorrow:
		return EdgeBorrow
	default:
		return EdgeOutlives
	}
}

// Flow is one `(from, to, kind)` element of a call-site constraint.
type Flow struct {
	From types.LifetimeID
	To   types.LifetimeID
	Kind FlowKind
}
