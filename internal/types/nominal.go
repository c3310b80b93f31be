package types

import (
	"fmt"

	"fortio.org/safecast"

	"rayzor/internal/source"
)

// NominalInfo stores metadata shared by class and interface types: the
// declaring symbol, its source location, and (for a generic instantiation)
// its ordered type arguments.
type NominalInfo struct {
	Sym      SymbolID
	Decl     source.Span
	TypeArgs []TypeID
}

// CreateClass returns the TypeID for a non-generic class symbol.
func (in *Interner) CreateClass(sym SymbolID, decl source.Span) TypeID {
	nk := namedKey{Sym: sym, Kind: KindClass}
	if id, ok := in.cache.named[nk]; ok {
		in.cache.hits++
		return id
	}
	in.cache.misses++
	slot := in.appendClass(NominalInfo{Sym: sym, Decl: decl})
	id := in.internSimple(Type{Kind: KindClass, Sym: sym, Payload: slot, Loc: decl, Flags: FlagComplete})
	in.cache.named[nk] = id
	return id
}

// CreateInterface returns the TypeID for a non-generic interface symbol.
func (in *Interner) CreateInterface(sym SymbolID, decl source.Span) TypeID {
	nk := namedKey{Sym: sym, Kind: KindInterface}
	if id, ok := in.cache.named[nk]; ok {
		in.cache.hits++
		return id
	}
	in.cache.misses++
	slot := in.appendInterface(NominalInfo{Sym: sym, Decl: decl})
	id := in.internSimple(Type{Kind: KindInterface, Sym: sym, Payload: slot, Loc: decl, Flags: FlagComplete})
	in.cache.named[nk] = id
	return id
}

// ClassInfo returns metadata for a class TypeID.
func (in *Interner) ClassInfo(id TypeID) (*NominalInfo, bool) {
	info := in.classInfo(id)
	if info == nil {
		return nil, false
	}
	return info, true
}

// InterfaceInfo returns metadata for an interface TypeID.
func (in *Interner) InterfaceInfo(id TypeID) (*NominalInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindInterface || int(tt.Payload) >= len(in.interfaces) {
		return nil, false
	}
	return &in.interfaces[tt.Payload], true
}

func (in *Interner) classInfo(id TypeID) *NominalInfo {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindClass || int(tt.Payload) >= len(in.classes) {
		return nil
	}
	return &in.classes[tt.Payload]
}

func (in *Interner) appendClass(info NominalInfo) uint32 {
	in.classes = append(in.classes, info)
	return mustSlot(len(in.classes)-1, "class")
}

func (in *Interner) appendInterface(info NominalInfo) uint32 {
	in.interfaces = append(in.interfaces, info)
	return mustSlot(len(in.interfaces)-1, "interface")
}

func mustSlot(n int, what string) uint32 {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("types: %s info overflow: %w", what, err))
	}
	return v
}
