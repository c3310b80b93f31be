package types

// FindTypeWithKind returns the id of an already-interned type whose kind and
// inline payload exactly match t, if one exists. This is the hash-cons
// lookup that returns the existing id when an equal kind has already been
// interned.
func (in *Interner) FindTypeWithKind(t Type) (TypeID, bool) {
	id, ok := in.index[keyOf(t)]
	return id, ok
}

// IsClass, IsInterface, ... are convenience kind predicates used throughout
// the pass pipeline and codec.
func (in *Interner) IsClass(id TypeID) bool     { return in.kindIs(id, KindClass) }
func (in *Interner) IsInterface(id TypeID) bool { return in.kindIs(id, KindInterface) }
func (in *Interner) IsEnum(id TypeID) bool      { return in.kindIs(id, KindEnum) }
func (in *Interner) IsAbstract(id TypeID) bool  { return in.kindIs(id, KindAbstract) }
func (in *Interner) IsArray(id TypeID) bool     { return in.kindIs(id, KindArray) }
func (in *Interner) IsMap(id TypeID) bool       { return in.kindIs(id, KindMap) }
func (in *Interner) IsOptional(id TypeID) bool  { return in.kindIs(id, KindOptional) }
func (in *Interner) IsFunction(id TypeID) bool  { return in.kindIs(id, KindFunction) }
func (in *Interner) IsUnion(id TypeID) bool     { return in.kindIs(id, KindUnion) }
func (in *Interner) IsPrimitive(id TypeID) bool {
	tt, ok := in.Lookup(id)
	if !ok {
		return false
	}
	switch tt.Kind {
	case KindVoid, KindBool, KindInt, KindFloat, KindChar, KindString, KindDynamic, KindUnknown, KindError:
		return true
	default:
		return false
	}
}

func (in *Interner) kindIs(id TypeID, k Kind) bool {
	tt, ok := in.Lookup(id)
	return ok && tt.Kind == k
}
