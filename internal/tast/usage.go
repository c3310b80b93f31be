package tast

// Usage records how an expression's value is consumed. The lifetime solver
// derives ownership obligations from these modes without a language-level
// pointer system.
type Usage uint8

const (
	// UsageCopy duplicates the value; the source stays live.
	UsageCopy Usage = iota
	// UsageMove transfers ownership; the source is dead afterwards.
	UsageMove
	// UsageBorrow takes a shared reference for the expression's extent.
	UsageBorrow
	// UsageBorrowMut takes an exclusive reference for the expression's extent.
	UsageBorrowMut
)

func (u Usage) String() string {
	switch u {
	case UsageCopy:
		return "copy"
	case UsageMove:
		return "move"
	case UsageBorrow:
		return "borrow"
	case UsageBorrowMut:
		return "borrow_mut"
	default:
		return "unknown"
	}
}

// ExprMeta carries per-expression analysis facts filled in by the type
// checker and consumed by the CFG builder and the inliner's cost model.
type ExprMeta struct {
	Constant       bool
	HasSideEffects bool
	CanThrow       bool
	Complexity     uint32
}
