package types

// Variance describes how a type parameter's subtyping relates to its use
// site: declaring symbol, constraint set, and variance.
type Variance uint8

const (
	Invariant Variance = iota
	Covariant
	Contravariant
)

// TypeParamInfo stores metadata about a generic type parameter: its
// declaring symbol, the owning type id, its index in the parameter list, and
// its upper-bound constraints plus variance.
type TypeParamInfo struct {
	Sym         SymbolID
	Owner       TypeID
	Index       uint32
	Constraints []TypeID
	Variance    Variance
}

// CreateTypeParameter returns the TypeID for a generic type parameter.
func (in *Interner) CreateTypeParameter(sym SymbolID, owner TypeID, index uint32, constraints []TypeID, variance Variance) TypeID {
	slot := in.appendParam(TypeParamInfo{Sym: sym, Owner: owner, Index: index, Constraints: cloneIDs(constraints), Variance: variance})
	return in.internSimple(Type{Kind: KindTypeParameter, Sym: sym, Payload: slot, A: owner, Flags: FlagComplete})
}

func (in *Interner) appendParam(info TypeParamInfo) uint32 {
	in.params = append(in.params, info)
	return mustSlot(len(in.params)-1, "typeparam")
}

// TypeParamInfo returns metadata for a type-parameter TypeID.
func (in *Interner) TypeParamInfo(id TypeID) (*TypeParamInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindTypeParameter || int(tt.Payload) >= len(in.params) {
		return nil, false
	}
	return &in.params[tt.Payload], true
}
