package lifetime

import (
	"fmt"
	"strings"

	"rayzor/internal/source"
	"rayzor/internal/symbols"
	"rayzor/internal/tast"
	"rayzor/internal/types"
)

// ViolationKind names one class of cross-function lifetime violation.
type ViolationKind uint8

const (
	// CrossFunctionUseAfterFree: a value is used through a lifetime that
	// ended in another function.
	CrossFunctionUseAfterFree ViolationKind = iota
	// InvalidCrossFunctionBorrow: a borrow edge with no backing outlives
	// relation.
	InvalidCrossFunctionBorrow
	// RecursiveLifetimeExtension: a lifetime forced to outlive itself
	// through a recursive call chain.
	RecursiveLifetimeExtension
	// VirtualMethodLifetimeMismatch: implementations of one virtual
	// method disagree on lifetime bounds.
	VirtualMethodLifetimeMismatch
)

func (k ViolationKind) String() string {
	switch k {
	case CrossFunctionUseAfterFree:
		return "CrossFunctionUseAfterFree"
	case InvalidCrossFunctionBorrow:
		return "InvalidCrossFunctionBorrow"
	case RecursiveLifetimeExtension:
		return "RecursiveLifetimeExtension"
	case VirtualMethodLifetimeMismatch:
		return "VirtualMethodLifetimeMismatch"
	default:
		return "UnknownViolation"
	}
}

// Violation is one named constraint violation with the entities involved.
type Violation struct {
	Kind    ViolationKind
	A       types.LifetimeID
	B       types.LifetimeID
	Symbols []symbols.SymbolID
	Site    source.Span
	Message string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Kind, v.Message)
}

// AnalysisError is the failure surface of the solver.
type AnalysisError struct {
	Kind       AnalysisErrorKind
	Cycle      types.LifetimeID
	A, B       types.LifetimeID
	Violations []Violation
	Functions  []tast.FuncID
	Iterations int
}

// AnalysisErrorKind discriminates AnalysisError.
type AnalysisErrorKind uint8

const (
	// ErrConstraintSolvingTimeout: the closure hit its iteration cap.
	ErrConstraintSolvingTimeout AnalysisErrorKind = iota
	// ErrCyclicLifetimeConstraint: a lifetime outlives itself.
	ErrCyclicLifetimeConstraint
	// ErrContradictoryConstraints: two constraints cannot both hold.
	ErrContradictoryConstraints
	// ErrGlobalViolations: the validation pass found named violations.
	ErrGlobalViolations
	// ErrRecursiveNonConvergence: a recursive call group failed to
	// converge.
	ErrRecursiveNonConvergence
)

func (e *AnalysisError) Error() string {
	switch e.Kind {
	case ErrConstraintSolvingTimeout:
		return fmt.Sprintf("lifetime constraint solving timed out after %d iterations", e.Iterations)
	case ErrCyclicLifetimeConstraint:
		return fmt.Sprintf("cyclic lifetime constraint on lifetime %d", e.Cycle)
	case ErrContradictoryConstraints:
		return fmt.Sprintf("contradictory lifetime constraints between %d and %d", e.A, e.B)
	case ErrGlobalViolations:
		msgs := make([]string, len(e.Violations))
		for i, v := range e.Violations {
			msgs[i] = v.String()
		}
		return "lifetime violations: " + strings.Join(msgs, "; ")
	case ErrRecursiveNonConvergence:
		return fmt.Sprintf("recursive constraint group of %d function(s) did not converge", len(e.Functions))
	default:
		return "unknown lifetime analysis error"
	}
}
