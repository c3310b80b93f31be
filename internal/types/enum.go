package types

import "rayzor/internal/source"

// EnumVariantInfo stores metadata for a single enum variant.
type EnumVariantInfo struct {
	Name        source.StringID
	IntValue    int64
	StringValue source.StringID
	IsString    bool
	Span        source.Span
}

// EnumInfo stores metadata for an enum type.
type EnumInfo struct {
	Sym      SymbolID
	Decl     source.Span
	Variants []EnumVariantInfo
	TypeArgs []TypeID
}

// CreateEnum returns the TypeID for a non-generic enum symbol.
func (in *Interner) CreateEnum(sym SymbolID, decl source.Span) TypeID {
	nk := namedKey{Sym: sym, Kind: KindEnum}
	if id, ok := in.cache.named[nk]; ok {
		in.cache.hits++
		return id
	}
	in.cache.misses++
	slot := in.appendEnum(EnumInfo{Sym: sym, Decl: decl})
	id := in.internSimple(Type{Kind: KindEnum, Sym: sym, Payload: slot, Loc: decl, Flags: FlagComplete | FlagCopy})
	in.cache.named[nk] = id
	return id
}

// SetEnumVariants stores the resolved variants for an enum type.
func (in *Interner) SetEnumVariants(id TypeID, variants []EnumVariantInfo) {
	info := in.enumInfo(id)
	if info == nil {
		return
	}
	cp := make([]EnumVariantInfo, len(variants))
	copy(cp, variants)
	info.Variants = cp
}

// EnumInfo returns metadata for an enum TypeID.
func (in *Interner) EnumInfo(id TypeID) (*EnumInfo, bool) {
	info := in.enumInfo(id)
	if info == nil {
		return nil, false
	}
	return info, true
}

func (in *Interner) enumInfo(id TypeID) *EnumInfo {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindEnum || int(tt.Payload) >= len(in.enums) {
		return nil
	}
	return &in.enums[tt.Payload]
}

func (in *Interner) appendEnum(info EnumInfo) uint32 {
	in.enums = append(in.enums, info)
	return mustSlot(len(in.enums)-1, "enum")
}
