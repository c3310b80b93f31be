package mir

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"rayzor/internal/source"
	"rayzor/internal/types"
)

// DumpModule writes a human-readable representation of a MIR module,
// functions sorted by id for deterministic output.
func DumpModule(w io.Writer, m *Module, ti *types.Interner, strs *source.Interner) error {
	if w == nil || m == nil {
		return nil
	}
	ids := m.FuncIDs()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if err := DumpFunc(w, m.Funcs[id], ti, strs); err != nil {
			return err
		}
	}
	return nil
}

// DumpFunc writes one function.
func DumpFunc(w io.Writer, f *Func, ti *types.Interner, strs *source.Interner) error {
	if f == nil {
		return nil
	}
	name := "?"
	if strs != nil {
		if s, ok := strs.Lookup(f.Name); ok {
			name = s
		}
	}
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = fmt.Sprintf("r%d: %s", p.Reg, typeLabel(ti, p.Type))
	}
	if _, err := fmt.Fprintf(w, "fn @%d %s(%s) -> %s {\n", f.ID, name, strings.Join(params, ", "), typeLabel(ti, f.Result)); err != nil {
		return err
	}
	for _, b := range f.Blocks[1:] {
		if b == nil {
			continue
		}
		dumpBlock(w, f, b, ti)
	}
	_, err := fmt.Fprintln(w, "}")
	return err
}

func dumpBlock(w io.Writer, f *Func, b *Block, ti *types.Interner) {
	marker := ""
	if b.ID == f.Entry {
		marker = " (entry)"
	}
	fmt.Fprintf(w, "bb%d%s:", b.ID, marker)
	if len(b.Preds) > 0 {
		preds := make([]string, len(b.Preds))
		for i, p := range b.Preds {
			preds[i] = fmt.Sprintf("bb%d", p)
		}
		fmt.Fprintf(w, " ; preds %s", strings.Join(preds, " "))
	}
	fmt.Fprintln(w)
	for i := range b.Phis {
		phi := &b.Phis[i]
		ins := make([]string, len(phi.Incomings))
		for j, in := range phi.Incomings {
			ins[j] = fmt.Sprintf("[bb%d: r%d]", in.Pred, in.Value)
		}
		fmt.Fprintf(w, "  r%d: %s = phi %s\n", phi.Dest, typeLabel(ti, phi.Type), strings.Join(ins, " "))
	}
	for i := range b.Instrs {
		fmt.Fprintf(w, "  %s\n", instrString(&b.Instrs[i], ti))
	}
	fmt.Fprintf(w, "  %s\n", termString(&b.Term))
}

func instrString(in *Instr, ti *types.Interner) string {
	dest := ""
	if in.Dest.IsValid() {
		dest = fmt.Sprintf("r%d: %s = ", in.Dest, typeLabel(ti, in.Type))
	}
	switch in.Kind {
	case InstrConst:
		return dest + "const " + constString(&in.Const)
	case InstrCopy:
		return fmt.Sprintf("%scopy r%d", dest, in.Copy.Src)
	case InstrLoad:
		return fmt.Sprintf("%sload r%d", dest, in.Load.Ptr)
	case InstrStore:
		return fmt.Sprintf("store r%d -> r%d", in.Store.Value, in.Store.Ptr)
	case InstrBinOp:
		return fmt.Sprintf("%s%s r%d, r%d", dest, in.Bin.Op, in.Bin.Lhs, in.Bin.Rhs)
	case InstrUnOp:
		return fmt.Sprintf("%s%s r%d", dest, in.Un.Op, in.Un.Operand)
	case InstrCmp:
		return fmt.Sprintf("%scmp.%s r%d, r%d", dest, in.Cmp.Op, in.Cmp.Lhs, in.Cmp.Rhs)
	case InstrCast:
		return fmt.Sprintf("%scast r%d from %s", dest, in.Cast.Value, typeLabel(ti, in.Cast.From))
	case InstrSelect:
		return fmt.Sprintf("%sselect r%d ? r%d : r%d", dest, in.Select.Cond, in.Select.Then, in.Select.Else)
	case InstrAlloc:
		if in.Alloc.Count.IsValid() {
			return fmt.Sprintf("%salloc %s x r%d", dest, typeLabel(ti, in.Alloc.Elem), in.Alloc.Count)
		}
		return fmt.Sprintf("%salloc %s", dest, typeLabel(ti, in.Alloc.Elem))
	case InstrGEP:
		idx := make([]string, len(in.GEP.Indexes))
		for i, r := range in.GEP.Indexes {
			idx[i] = fmt.Sprintf("r%d", r)
		}
		return fmt.Sprintf("%sgep r%d [%s]", dest, in.GEP.Base, strings.Join(idx, ", "))
	case InstrCallDirect:
		return fmt.Sprintf("%scall @%d(%s)%s", dest, in.CallDirect.Target, regList(in.CallDirect.Args), tailSuffix(in.CallDirect.Tail))
	case InstrCallIndirect:
		return fmt.Sprintf("%scall.indirect r%d(%s)%s", dest, in.CallIndirect.Fn, regList(in.CallIndirect.Args), tailSuffix(in.CallIndirect.Tail))
	case InstrThrow:
		return fmt.Sprintf("throw r%d", in.Throw.Value)
	default:
		return "invalid"
	}
}

func termString(t *Terminator) string {
	switch t.Kind {
	case TermReturn:
		if t.Return.HasValue {
			return fmt.Sprintf("return r%d", t.Return.Value)
		}
		return "return"
	case TermJump:
		return fmt.Sprintf("jump bb%d", t.Jump.Target)
	case TermBranch:
		return fmt.Sprintf("branch r%d ? bb%d : bb%d", t.Branch.Cond, t.Branch.Then, t.Branch.Else)
	case TermSwitch:
		cases := make([]string, len(t.Switch.Cases))
		for i, c := range t.Switch.Cases {
			cases[i] = fmt.Sprintf("%d: bb%d", c.Value, c.Target)
		}
		return fmt.Sprintf("switch r%d [%s] default bb%d", t.Switch.Value, strings.Join(cases, ", "), t.Switch.Default)
	case TermThrow:
		return fmt.Sprintf("throw r%d", t.Throw.Value)
	case TermNoReturn:
		return "noreturn"
	case TermUnreachable:
		return "unreachable"
	default:
		return "<unterminated>"
	}
}

func constString(c *ConstInstr) string {
	switch c.Kind {
	case ConstInt:
		return fmt.Sprintf("%d", c.IntVal)
	case ConstFloat:
		return fmt.Sprintf("%g", c.FloatVal)
	case ConstBool:
		return fmt.Sprintf("%t", c.BoolVal)
	case ConstString:
		return fmt.Sprintf("str#%d", c.StrVal)
	case ConstNull:
		return "null"
	case ConstFunc:
		return fmt.Sprintf("@%d", c.FuncVal)
	default:
		return "?"
	}
}

func regList(regs []RegID) string {
	out := make([]string, len(regs))
	for i, r := range regs {
		out[i] = fmt.Sprintf("r%d", r)
	}
	return strings.Join(out, ", ")
}

func tailSuffix(tail bool) string {
	if tail {
		return " tail"
	}
	return ""
}

func typeLabel(ti *types.Interner, id types.TypeID) string {
	if ti == nil {
		return fmt.Sprintf("t%d", id)
	}
	return ti.Label(id)
}
