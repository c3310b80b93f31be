package types

import (
	"fmt"
	"strings"
)

// Label renders a human-readable representation of a type, used by
// diagnostics. An id the interner does not hold renders as "<invalid>"; a
// failed side-table lookup renders as "fn(?)", "generic<?>" or, for unions
// and intersections, an empty string.
func (in *Interner) Label(id TypeID) string {
	tt, ok := in.Lookup(id)
	if !ok {
		return "<invalid>"
	}
	switch tt.Kind {
	case KindInt:
		return widthLabel("int", tt.Width)
	case KindFloat:
		return widthLabel("float", tt.Width)
	case KindArray:
		return in.Label(tt.A) + "[]"
	case KindOptional:
		return in.Label(tt.A) + "?"
	case KindMap:
		return fmt.Sprintf("Map<%s, %s>", in.Label(tt.A), in.Label(tt.B))
	case KindReference:
		if tt.Mutable {
			return "&mut " + in.Label(tt.A)
		}
		return "&" + in.Label(tt.A)
	case KindClass:
		return "class#" + fmt.Sprint(tt.Sym)
	case KindInterface:
		return "interface#" + fmt.Sprint(tt.Sym)
	case KindEnum:
		return "enum#" + fmt.Sprint(tt.Sym)
	case KindAbstract:
		return "abstract#" + fmt.Sprint(tt.Sym)
	case KindFunction:
		info, _ := in.FnInfo(id)
		return fnLabel(in, info)
	case KindGenericInstance:
		info, _ := in.GenericInstanceInfo(id)
		return genericLabel(in, info)
	case KindUnion:
		info, _ := in.UnionInfo(id)
		return joinLabels(in, info, " | ")
	case KindIntersection:
		info, _ := in.UnionInfo(id)
		return joinLabels(in, info, " & ")
	case KindTypeAlias:
		return "alias#" + fmt.Sprint(tt.Sym)
	case KindTypeParameter:
		return "typeparam#" + fmt.Sprint(tt.Sym)
	default:
		return tt.Kind.String()
	}
}

func widthLabel(base string, w Width) string {
	if w == WidthAny {
		return base
	}
	return fmt.Sprintf("%s%d", base, w)
}

func fnLabel(in *Interner, info *FnInfo) string {
	if info == nil {
		return "fn(?)"
	}
	parts := make([]string, len(info.Params))
	for i, p := range info.Params {
		parts[i] = in.Label(p)
	}
	return fmt.Sprintf("fn(%s) -> %s", strings.Join(parts, ", "), in.Label(info.Result))
}

func genericLabel(in *Interner, info *GenericInstanceInfo) string {
	if info == nil {
		return "generic<?>"
	}
	parts := make([]string, len(info.Args))
	for i, a := range info.Args {
		parts[i] = in.Label(a)
	}
	return fmt.Sprintf("%s<%s>", in.Label(info.Base), strings.Join(parts, ", "))
}

func joinLabels(in *Interner, info *UnionInfo, sep string) string {
	if info == nil {
		return ""
	}
	parts := make([]string, len(info.Members))
	for i, m := range info.Members {
		parts[i] = in.Label(m)
	}
	return strings.Join(parts, sep)
}
