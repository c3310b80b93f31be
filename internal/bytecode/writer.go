package bytecode

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/cespare/xxhash/v2"

	"rayzor/internal/mir"
	"rayzor/internal/source"
	"rayzor/internal/types"
)

// Writer serializes one MIR module. All multi-byte integers are
// little-endian regardless of host.
type Writer struct {
	buf  []byte
	ti   *types.Interner
	strs *source.Interner
	meta Metadata
}

// NewWriter creates a writer over the module's type and string tables.
func NewWriter(ti *types.Interner, strs *source.Interner, meta Metadata) *Writer {
	return &Writer{ti: ti, strs: strs, meta: meta}
}

// WriteModule encodes m and returns the finished bytes: header with a
// zero checksum placeholder, all sections, then the checksum over
// bytes[16:] patched into offset 8.
func (w *Writer) WriteModule(m *mir.Module) ([]byte, error) {
	w.buf = w.buf[:0]

	// Header: magic, version, checksum placeholder.
	w.buf = append(w.buf, Magic[:]...)
	w.u32(Version)
	w.u64(0)

	w.writeMetadata()
	w.writeTypeTable(m)
	w.writeFunctionTable(m)
	w.writeCFGData(m)
	w.writeConstantPool(m)

	checksum := xxhash.Sum64(w.buf[headerSize:])
	binary.LittleEndian.PutUint64(w.buf[8:16], checksum)
	return w.buf, nil
}

func (w *Writer) writeMetadata() {
	w.str(w.meta.Name)
	w.str(w.meta.SourcePath)
	w.u64(w.meta.SourceTimestamp)
	w.u64(w.meta.CompileTimestamp)
	w.u32(uint32(len(w.meta.Dependencies)))
	for _, dep := range w.meta.Dependencies {
		w.str(dep)
	}
	w.str(w.meta.CompilerVersion)
}

// writeTypeTable emits every distinct type the module references so
// readers can prewarm their interner before decoding bodies.
func (w *Writer) writeTypeTable(m *mir.Module) {
	seen := make(map[types.TypeID]struct{})
	var ordered []types.TypeID
	add := func(id types.TypeID) {
		if id == types.NoTypeID {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ordered = append(ordered, id)
	}
	for _, fid := range m.FuncIDs() {
		f := m.Funcs[fid]
		add(f.Result)
		for _, p := range f.Params {
			add(p.Type)
		}
		f.EachBlock(func(b *mir.Block) {
			for i := range b.Phis {
				add(b.Phis[i].Type)
			}
			for i := range b.Instrs {
				add(b.Instrs[i].Type)
			}
		})
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	w.u32(uint32(len(ordered)))
	for _, id := range ordered {
		w.u32(uint32(id))
		w.typ(id)
	}
}

func (w *Writer) writeFunctionTable(m *mir.Module) {
	ids := m.FuncIDs()
	w.u32(uint32(len(ids)))
	for _, fid := range ids {
		f := m.Funcs[fid]
		w.u32(uint32(fid))
		w.str(w.lookupStr(f.Name))
		w.u32(uint32(len(f.Params)))
		for _, p := range f.Params {
			w.u32(uint32(p.Reg))
			w.typ(p.Type)
		}
		w.typ(f.Result)
		w.u32(uint32(f.RegCount()))
	}
}

func (w *Writer) writeCFGData(m *mir.Module) {
	for _, fid := range m.FuncIDs() {
		f := m.Funcs[fid]
		w.u32(uint32(fid))
		w.writeCFG(f)
	}
}

func (w *Writer) writeCFG(f *mir.Func) {
	w.u32(uint32(f.BlockCount()))
	f.EachBlock(func(b *mir.Block) {
		w.u32(uint32(b.ID))

		w.u32(uint32(len(b.Phis)))
		for i := range b.Phis {
			phi := &b.Phis[i]
			w.u32(uint32(phi.Dest))
			w.typ(phi.Type)
			w.u32(uint32(len(phi.Incomings)))
			for _, in := range phi.Incomings {
				w.u32(uint32(in.Pred))
				w.u32(uint32(in.Value))
			}
		}

		w.u32(uint32(len(b.Instrs)))
		for i := range b.Instrs {
			w.writeInstr(&b.Instrs[i])
		}

		w.writeTerminator(&b.Term)
	})
	w.u32(uint32(f.Entry))
}

func (w *Writer) writeInstr(in *mir.Instr) {
	switch in.Kind {
	case mir.InstrConst:
		w.u8(opConst)
		w.u32(uint32(in.Dest))
		w.typ(in.Type)
		w.u8(uint8(in.Const.Kind))
		switch in.Const.Kind {
		case mir.ConstInt:
			w.i64(in.Const.IntVal)
		case mir.ConstFloat:
			w.f64(in.Const.FloatVal)
		case mir.ConstBool:
			w.bool(in.Const.BoolVal)
		case mir.ConstString:
			w.u32(uint32(in.Const.StrVal))
		case mir.ConstNull:
		case mir.ConstFunc:
			w.u32(uint32(in.Const.FuncVal))
		}
	case mir.InstrCopy:
		w.u8(opCopy)
		w.u32(uint32(in.Dest))
		w.typ(in.Type)
		w.u32(uint32(in.Copy.Src))
	case mir.InstrLoad:
		w.u8(opLoad)
		w.u32(uint32(in.Dest))
		w.typ(in.Type)
		w.u32(uint32(in.Load.Ptr))
	case mir.InstrStore:
		w.u8(opStore)
		w.typ(in.Type)
		w.u32(uint32(in.Store.Ptr))
		w.u32(uint32(in.Store.Value))
	case mir.InstrBinOp:
		w.u8(opBinOp)
		w.u32(uint32(in.Dest))
		w.typ(in.Type)
		w.u8(uint8(in.Bin.Op))
		w.u32(uint32(in.Bin.Lhs))
		w.u32(uint32(in.Bin.Rhs))
	case mir.InstrUnOp:
		w.u8(opUnOp)
		w.u32(uint32(in.Dest))
		w.typ(in.Type)
		w.u8(uint8(in.Un.Op))
		w.u32(uint32(in.Un.Operand))
	case mir.InstrCmp:
		w.u8(opCmp)
		w.u32(uint32(in.Dest))
		w.typ(in.Type)
		w.u8(uint8(in.Cmp.Op))
		w.u32(uint32(in.Cmp.Lhs))
		w.u32(uint32(in.Cmp.Rhs))
	case mir.InstrCast:
		w.u8(opCast)
		w.u32(uint32(in.Dest))
		w.typ(in.Type)
		w.u32(uint32(in.Cast.Value))
		w.typ(in.Cast.From)
	case mir.InstrSelect:
		w.u8(opSelect)
		w.u32(uint32(in.Dest))
		w.typ(in.Type)
		w.u32(uint32(in.Select.Cond))
		w.u32(uint32(in.Select.Then))
		w.u32(uint32(in.Select.Else))
	case mir.InstrAlloc:
		w.u8(opAlloc)
		w.u32(uint32(in.Dest))
		w.typ(in.Type)
		w.typ(in.Alloc.Elem)
		w.u32(uint32(in.Alloc.Count))
	case mir.InstrGEP:
		w.u8(opGEP)
		w.u32(uint32(in.Dest))
		w.typ(in.Type)
		w.u32(uint32(in.GEP.Base))
		w.u32(uint32(len(in.GEP.Indexes)))
		for _, idx := range in.GEP.Indexes {
			w.u32(uint32(idx))
		}
		w.typ(in.GEP.Elem)
	case mir.InstrCallDirect:
		w.u8(opCallDirect)
		w.u32(uint32(in.Dest))
		w.typ(in.Type)
		w.u32(uint32(in.CallDirect.Target))
		w.u32(uint32(len(in.CallDirect.Args)))
		for _, a := range in.CallDirect.Args {
			w.u32(uint32(a))
		}
		w.u32(uint32(len(in.CallDirect.TypeArgs)))
		for _, ta := range in.CallDirect.TypeArgs {
			w.typ(ta)
		}
		w.bool(in.CallDirect.Tail)
	case mir.InstrCallIndirect:
		w.u8(opCallIndirect)
		w.u32(uint32(in.Dest))
		w.typ(in.Type)
		w.u32(uint32(in.CallIndirect.Fn))
		w.u32(uint32(len(in.CallIndirect.Args)))
		for _, a := range in.CallIndirect.Args {
			w.u32(uint32(a))
		}
		w.bool(in.CallIndirect.Tail)
	case mir.InstrThrow:
		w.u8(opThrow)
		w.u32(uint32(in.Throw.Value))
	default:
		w.u8(opUnsupported)
	}
}

func (w *Writer) writeTerminator(t *mir.Terminator) {
	switch t.Kind {
	case mir.TermReturn:
		w.u8(termReturn)
		w.bool(t.Return.HasValue)
		if t.Return.HasValue {
			w.u32(uint32(t.Return.Value))
		}
	case mir.TermJump:
		w.u8(termBranch)
		w.u32(uint32(t.Jump.Target))
	case mir.TermBranch:
		w.u8(termCondBranch)
		w.u32(uint32(t.Branch.Cond))
		w.u32(uint32(t.Branch.Then))
		w.u32(uint32(t.Branch.Else))
	case mir.TermSwitch:
		w.u8(termSwitch)
		w.u32(uint32(t.Switch.Value))
		w.u32(uint32(len(t.Switch.Cases)))
		for _, c := range t.Switch.Cases {
			w.i64(c.Value)
			w.u32(uint32(c.Target))
		}
		w.u32(uint32(t.Switch.Default))
	case mir.TermThrow:
		w.u8(termThrow)
		w.u32(uint32(t.Throw.Value))
	case mir.TermNoReturn:
		w.u8(termNoReturn)
	default:
		w.u8(termUnreachable)
	}
}

// writeConstantPool collects string constants so readers can re-intern
// them and remap ConstString payloads.
func (w *Writer) writeConstantPool(m *mir.Module) {
	seen := make(map[source.StringID]struct{})
	var ordered []source.StringID
	for _, fid := range m.FuncIDs() {
		m.Funcs[fid].EachBlock(func(b *mir.Block) {
			for i := range b.Instrs {
				in := &b.Instrs[i]
				if in.Kind == mir.InstrConst && in.Const.Kind == mir.ConstString {
					if _, ok := seen[in.Const.StrVal]; !ok {
						seen[in.Const.StrVal] = struct{}{}
						ordered = append(ordered, in.Const.StrVal)
					}
				}
			}
		})
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })
	w.u32(uint32(len(ordered)))
	for _, id := range ordered {
		w.u32(uint32(id))
		w.str(w.lookupStr(id))
	}
}

// typ encodes a type by tag. Kinds without a tag of their own flatten to
// dynamic; references encode as pointers to their target.
func (w *Writer) typ(id types.TypeID) {
	t, ok := w.ti.Lookup(id)
	if !ok {
		w.u8(tagVoid)
		return
	}
	switch t.Kind {
	case types.KindVoid:
		w.u8(tagVoid)
	case types.KindBool:
		w.u8(tagBool)
	case types.KindInt:
		w.u8(tagInt)
	case types.KindFloat:
		w.u8(tagFloat)
	case types.KindString:
		w.u8(tagString)
	case types.KindClass, types.KindInterface, types.KindEnum:
		w.u8(tagClass)
		w.u32(uint32(t.Sym))
	case types.KindFunction:
		w.u8(tagFunction)
		info, ok := w.ti.FnInfo(id)
		if !ok {
			w.u32(0)
			w.u8(tagVoid)
			return
		}
		w.u32(uint32(len(info.Params)))
		for _, p := range info.Params {
			w.typ(p)
		}
		w.typ(info.Result)
	case types.KindReference:
		w.u8(tagPointer)
		w.typ(t.A)
	default:
		w.u8(tagDynamic)
	}
}

func (w *Writer) lookupStr(id source.StringID) string {
	if w.strs == nil {
		return ""
	}
	s, _ := w.strs.Lookup(id)
	return s
}

func (w *Writer) u8(v uint8)   { w.buf = append(w.buf, v) }
func (w *Writer) bool(v bool)  { w.u8(boolByte(v)) }
func (w *Writer) u32(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }
func (w *Writer) u64(v uint64) { w.buf = binary.LittleEndian.AppendUint64(w.buf, v) }
func (w *Writer) i64(v int64)  { w.u64(uint64(v)) }
func (w *Writer) f64(v float64) {
	w.u64(floatBits(v))
}

func (w *Writer) str(s string) {
	w.u32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

func boolByte(v bool) uint8 {
	if v {
		return 1
	}
	return 0
}

func floatBits(v float64) uint64 { return math.Float64bits(v) }
