package types //nolint:revive

import "strings"

// LayoutAttrs describes layout-affecting attributes applied to a type
// declaration. Validation happens in the semantic layer; layout
// computation itself never emits diagnostics.
type LayoutAttrs struct {
	Packed        bool
	AlignOverride *int // nil when no alignment override is present
}

// FieldLayoutAttrs describes layout-affecting attributes applied to one
// aggregate field.
type FieldLayoutAttrs struct {
	AlignOverride *int // nil when no alignment override is present
}

func cloneIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// TypeLayoutAttrs returns the validated layout-affecting attributes recorded for the type.
func (in *Interner) TypeLayoutAttrs(id TypeID) (LayoutAttrs, bool) {
	if in == nil || id == NoTypeID || in.typeLayoutAttrs == nil {
		return LayoutAttrs{}, false
	}
	attrs, ok := in.typeLayoutAttrs[id]
	return attrs, ok
}

// SetTypeLayoutAttrs stores validated layout-affecting attributes for the type.
func (in *Interner) SetTypeLayoutAttrs(id TypeID, attrs LayoutAttrs) {
	if in == nil || id == NoTypeID {
		return
	}
	if !attrs.Packed && attrs.AlignOverride == nil {
		if in.typeLayoutAttrs != nil {
			delete(in.typeLayoutAttrs, id)
		}
		return
	}
	if in.typeLayoutAttrs == nil {
		in.typeLayoutAttrs = make(map[TypeID]LayoutAttrs, 64)
	}
	attrs.AlignOverride = cloneIntPtr(attrs.AlignOverride)
	in.typeLayoutAttrs[id] = attrs
}

// SetSizeHint records advisory size/alignment for a type descriptor.
// Hints never affect interning identity; backends own the final layout.
func (in *Interner) SetSizeHint(id TypeID, size uint64, align uint32) {
	if in == nil || id == NoTypeID || int(id) >= len(in.types) {
		return
	}
	t := &in.types[id]
	t.Size = size
	t.Align = align
	t.HasSize = true
}

// SizeHint returns the advisory size/alignment for a type, if recorded.
func (in *Interner) SizeHint(id TypeID) (size uint64, align uint32, ok bool) {
	if in == nil || id == NoTypeID || int(id) >= len(in.types) {
		return 0, 0, false
	}
	t := in.types[id]
	if !t.HasSize {
		return 0, 0, false
	}
	return t.Size, t.Align, true
}

// ApplyTargetDefaults records primitive size hints for a target triple.
// Every triple gets hints; wasm32, i686 and armv7 triples get a 4-byte int,
// all others an 8-byte int. Backends still own lowering decisions.
func (in *Interner) ApplyTargetDefaults(triple string) {
	if in == nil {
		return
	}
	wordSize := uint64(8)
	switch {
	case strings.HasPrefix(triple, "wasm32"),
		strings.HasPrefix(triple, "i686"),
		strings.HasPrefix(triple, "armv7"):
		wordSize = 4
	}
	align := uint32(wordSize)
	in.SetSizeHint(in.builtins.Bool, 1, 1)
	in.SetSizeHint(in.builtins.Char, 4, 4)
	in.SetSizeHint(in.builtins.Int, wordSize, align)
	in.SetSizeHint(in.builtins.Int8, 1, 1)
	in.SetSizeHint(in.builtins.Int16, 2, 2)
	in.SetSizeHint(in.builtins.Int32, 4, 4)
	in.SetSizeHint(in.builtins.Int64, 8, 8)
	in.SetSizeHint(in.builtins.Float, 8, 8)
	in.SetSizeHint(in.builtins.Float32, 4, 4)
	in.SetSizeHint(in.builtins.Float64, 8, 8)
}
