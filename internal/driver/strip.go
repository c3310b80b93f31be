package driver

import (
	"rayzor/internal/mir"
	"rayzor/internal/source"
)

// Strip tree-shakes functions unreachable from the module's entry points
// (functions named "main", or every function when none exists so library
// modules keep their exports). Returns the number of removed functions.
func Strip(m *mir.Module, strs *source.Interner) int {
	roots := entryPoints(m, strs)
	if len(roots) == 0 {
		return 0
	}

	reachable := make(map[mir.FuncID]struct{})
	stack := roots
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := reachable[id]; seen {
			continue
		}
		f := m.Func(id)
		if f == nil {
			continue
		}
		reachable[id] = struct{}{}
		f.EachBlock(func(b *mir.Block) {
			for i := range b.Instrs {
				in := &b.Instrs[i]
				switch in.Kind {
				case mir.InstrCallDirect:
					stack = append(stack, in.CallDirect.Target)
				case mir.InstrConst:
					if in.Const.Kind == mir.ConstFunc {
						stack = append(stack, in.Const.FuncVal)
					}
				}
			}
		})
	}

	removed := 0
	for _, id := range m.FuncIDs() {
		if _, keep := reachable[id]; !keep {
			m.RemoveFunc(id)
			removed++
		}
	}
	return removed
}

func entryPoints(m *mir.Module, strs *source.Interner) []mir.FuncID {
	if strs == nil {
		return nil
	}
	var roots []mir.FuncID
	for _, id := range m.FuncIDs() {
		if name, ok := strs.Lookup(m.Funcs[id].Name); ok && name == "main" {
			roots = append(roots, id)
		}
	}
	return roots
}
