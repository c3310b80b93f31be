package lifetime

import (
	"rayzor/internal/symbols"
	"rayzor/internal/types"
)

// VirtualCall describes one virtual call site with the signatures of every
// implementation the receiver may dispatch to, base (least-derived) class
// first.
type VirtualCall struct {
	Method symbols.SymbolID
	Impls  []*FunctionLifetimeSignature
}

// UnifyVirtualCall produces the representative signature a virtual call
// constrains against. The base implementation's signature is the
// representative when every override's bounds are compatible with it;
// otherwise the call is flagged as a VirtualMethodLifetimeMismatch and the
// base signature is still returned so analysis can continue.
func UnifyVirtualCall(g *Graph, call VirtualCall) (*FunctionLifetimeSignature, []Violation) {
	if len(call.Impls) == 0 {
		return nil, nil
	}
	base := call.Impls[0]
	var violations []Violation

	for _, impl := range call.Impls[1:] {
		if compatibleSignatures(base, impl) {
			// Unify: every override's parameter and return regions equal
			// the representative's.
			for i := range base.Params {
				g.AddEqual(base.Params[i], impl.Params[i])
			}
			if base.HasReturn && impl.HasReturn {
				g.AddEqual(base.Return, impl.Return)
			}
			continue
		}
		violations = append(violations, Violation{
			Kind:    VirtualMethodLifetimeMismatch,
			Symbols: []symbols.SymbolID{call.Method},
			Message: "override declares lifetime bounds incompatible with the base implementation",
		})
	}
	return base, violations
}

// compatibleSignatures checks arity and bound compatibility: an override
// may not demand a bound the base lacks.
func compatibleSignatures(base, impl *FunctionLifetimeSignature) bool {
	if len(base.Params) != len(impl.Params) {
		return false
	}
	if base.HasReturn != impl.HasReturn {
		return false
	}
	baseBounds := make(map[[2]int]struct{}, len(base.Bounds))
	for _, b := range base.Bounds {
		li, si := paramIndex(base, b.Longer), paramIndex(base, b.Shorter)
		baseBounds[[2]int{li, si}] = struct{}{}
	}
	for _, b := range impl.Bounds {
		li, si := paramIndex(impl, b.Longer), paramIndex(impl, b.Shorter)
		if li < 0 || si < 0 {
			continue
		}
		if _, ok := baseBounds[[2]int{li, si}]; !ok {
			return false
		}
	}
	return true
}

// paramIndex positions a lifetime within a signature: parameter slot, -2
// for the return, -1 when unknown.
func paramIndex(sig *FunctionLifetimeSignature, lt types.LifetimeID) int {
	for i, p := range sig.Params {
		if p == lt {
			return i
		}
	}
	if sig.HasReturn && sig.Return == lt {
		return -2
	}
	return -1
}
