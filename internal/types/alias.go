package types

// AliasInfo stores metadata for a type-alias symbol: the target type it
// resolves to and (for a generic alias instantiation) its type arguments.
type AliasInfo struct {
	Sym    SymbolID
	Target TypeID
	Args   []TypeID
}

func (in *Interner) appendAlias(info AliasInfo) uint32 {
	in.aliases = append(in.aliases, info)
	return mustSlot(len(in.aliases)-1, "alias")
}

// AliasInfo returns metadata for a type-alias TypeID.
func (in *Interner) AliasInfo(id TypeID) (*AliasInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindTypeAlias || int(tt.Payload) >= len(in.aliases) {
		return nil, false
	}
	return &in.aliases[tt.Payload], true
}

// AliasTarget resolves one level of aliasing, returning (target, true) or
// (NoTypeID, false) if id is not an alias.
func (in *Interner) AliasTarget(id TypeID) (TypeID, bool) {
	info, ok := in.AliasInfo(id)
	if !ok {
		return NoTypeID, false
	}
	return info.Target, true
}

// ResolveAlias follows TypeAlias chains down to the first non-alias type,
// guarding against cyclic aliasing.
func (in *Interner) ResolveAlias(id TypeID) TypeID {
	seen := make(map[TypeID]struct{}, 4)
	for {
		if _, looped := seen[id]; looped {
			return id
		}
		seen[id] = struct{}{}
		target, ok := in.AliasTarget(id)
		if !ok {
			return id
		}
		id = target
	}
}
