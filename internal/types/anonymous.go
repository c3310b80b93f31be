package types

import (
	"fmt"
	"strings"

	"rayzor/internal/source"
)

// Visibility controls external access to an anonymous-struct field.
type Visibility uint8

const (
	VisibilityPublic Visibility = iota
	VisibilityPrivate
	VisibilityInternal
	VisibilityProtected
)

// AnonymousField describes one field of an anonymous structural type.
type AnonymousField struct {
	Name       source.StringID
	Type       TypeID
	Optional   bool
	Visibility Visibility
}

// AnonymousInfo stores the ordered field list of an anonymous type.
type AnonymousInfo struct {
	Fields []AnonymousField
}

func (in *Interner) appendAnonymous(info AnonymousInfo) uint32 {
	in.anons = append(in.anons, info)
	return mustSlot(len(in.anons)-1, "anonymous")
}

// AnonymousInfo returns metadata for an anonymous TypeID.
func (in *Interner) AnonymousInfo(id TypeID) (*AnonymousInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindAnonymous || int(tt.Payload) >= len(in.anons) {
		return nil, false
	}
	return &in.anons[tt.Payload], true
}

func anonymousKey(fields []AnonymousField) string {
	var b strings.Builder
	for _, f := range fields {
		fmt.Fprintf(&b, "%d:%d:%t:%d;", f.Name, f.Type, f.Optional, f.Visibility)
	}
	return b.String()
}

// CreateAnonymous returns the TypeID for an anonymous structural type with
// the given ordered field list. Field order is part of the type's identity:
// it is not itself reordered, since it reflects declaration/positional order.
func (in *Interner) CreateAnonymous(fields []AnonymousField) TypeID {
	key := "anon(" + anonymousKey(fields) + ")"
	return in.internNamed(key, func() Type {
		cp := make([]AnonymousField, len(fields))
		copy(cp, fields)
		slot := in.appendAnonymous(AnonymousInfo{Fields: cp})
		return Type{Kind: KindAnonymous, Payload: slot, Flags: FlagComplete}
	})
}
