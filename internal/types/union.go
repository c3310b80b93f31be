package types

// UnionInfo stores the normalized (sorted, deduped) member set of a Union or
// Intersection type.
type UnionInfo struct {
	Members []TypeID
}

func (in *Interner) appendUnion(info UnionInfo) uint32 {
	in.unions = append(in.unions, info)
	return mustSlot(len(in.unions)-1, "union")
}

// UnionInfo returns the member set of a Union or Intersection TypeID.
func (in *Interner) UnionInfo(id TypeID) (*UnionInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok || (tt.Kind != KindUnion && tt.Kind != KindIntersection) || int(tt.Payload) >= len(in.unions) {
		return nil, false
	}
	return &in.unions[tt.Payload], true
}
