package bytecode

import (
	"encoding/binary"
	"math"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"

	"rayzor/internal/mir"
	"rayzor/internal/source"
	"rayzor/internal/types"
)

// Reader decodes one .rzbc payload. Strings re-intern into the supplied
// interner; types decode through the supplied type table.
type Reader struct {
	data []byte
	pos  int
	ti   *types.Interner
	strs *source.Interner

	strMap map[uint32]source.StringID // file string id -> interner id
}

// NewReader wraps raw bytes with the tables to decode into.
func NewReader(data []byte, ti *types.Interner, strs *source.Interner) *Reader {
	return &Reader{data: data, ti: ti, strs: strs, strMap: make(map[uint32]source.StringID)}
}

// ReadModule verifies the header (magic, version, checksum), then decodes
// every section and returns the module with its metadata.
func (r *Reader) ReadModule() (*mir.Module, Metadata, error) {
	var meta Metadata
	if err := r.verifyHeader(); err != nil {
		return nil, meta, err
	}

	meta, err := r.readMetadata()
	if err != nil {
		return nil, meta, err
	}
	if err := r.readTypeTable(); err != nil {
		return nil, meta, err
	}

	m := mir.NewModule(r.strs.Intern(meta.Name))
	funcs, err := r.readFunctionTable(m)
	if err != nil {
		return nil, meta, err
	}
	if err := r.readCFGData(m, funcs); err != nil {
		return nil, meta, err
	}
	if err := r.readConstantPool(m); err != nil {
		return nil, meta, err
	}
	return m, meta, nil
}

func (r *Reader) verifyHeader() error {
	if len(r.data) < headerSize {
		return &Error{Kind: ErrUnexpectedEof}
	}
	if r.data[0] != Magic[0] || r.data[1] != Magic[1] || r.data[2] != Magic[2] || r.data[3] != Magic[3] {
		return &Error{Kind: ErrInvalidMagic}
	}
	version := binary.LittleEndian.Uint32(r.data[4:8])
	if version != Version {
		return &Error{Kind: ErrUnsupportedVersion, Version: version}
	}
	stored := binary.LittleEndian.Uint64(r.data[8:16])
	computed := xxhash.Sum64(r.data[headerSize:])
	if stored != computed {
		return &Error{Kind: ErrChecksumMismatch}
	}
	r.pos = headerSize
	return nil
}

func (r *Reader) readMetadata() (Metadata, error) {
	var meta Metadata
	var err error
	if meta.Name, err = r.str(); err != nil {
		return meta, &Error{Kind: ErrMissingMetadata, Cause: err}
	}
	if meta.SourcePath, err = r.str(); err != nil {
		return meta, &Error{Kind: ErrMissingMetadata, Cause: err}
	}
	if meta.SourceTimestamp, err = r.u64(); err != nil {
		return meta, &Error{Kind: ErrMissingMetadata, Cause: err}
	}
	if meta.CompileTimestamp, err = r.u64(); err != nil {
		return meta, &Error{Kind: ErrMissingMetadata, Cause: err}
	}
	depCount, err := r.u32()
	if err != nil {
		return meta, &Error{Kind: ErrMissingMetadata, Cause: err}
	}
	for i := uint32(0); i < depCount; i++ {
		dep, err := r.str()
		if err != nil {
			return meta, &Error{Kind: ErrMissingMetadata, Cause: err}
		}
		meta.Dependencies = append(meta.Dependencies, dep)
	}
	if meta.CompilerVersion, err = r.str(); err != nil {
		return meta, &Error{Kind: ErrMissingMetadata, Cause: err}
	}
	return meta, nil
}

// readTypeTable prewarms the interner with every recorded type; entries
// also sanity-check the encoding before function bodies reference it.
func (r *Reader) readTypeTable() error {
	count, err := r.u32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		if _, err := r.u32(); err != nil { // writer-side type id, advisory
			return err
		}
		if _, err := r.typ(); err != nil {
			return err
		}
	}
	return nil
}

type funcEntry struct {
	fn *mir.Func
}

func (r *Reader) readFunctionTable(m *mir.Module) (map[mir.FuncID]*funcEntry, error) {
	count, err := r.u32()
	if err != nil {
		return nil, err
	}
	funcs := make(map[mir.FuncID]*funcEntry, count)
	for i := uint32(0); i < count; i++ {
		fid, err := r.u32()
		if err != nil {
			return nil, err
		}
		name, err := r.str()
		if err != nil {
			return nil, err
		}
		paramCount, err := r.u32()
		if err != nil {
			return nil, err
		}
		type paramRec struct {
			reg mir.RegID
			ty  types.TypeID
		}
		params := make([]paramRec, paramCount)
		maxReg := mir.RegID(0)
		for j := range params {
			reg, err := r.u32()
			if err != nil {
				return nil, err
			}
			ty, err := r.typ()
			if err != nil {
				return nil, err
			}
			params[j] = paramRec{reg: mir.RegID(reg), ty: ty}
			if mir.RegID(reg) > maxReg {
				maxReg = mir.RegID(reg)
			}
		}
		ret, err := r.typ()
		if err != nil {
			return nil, err
		}
		localCount, err := r.u32()
		if err != nil {
			return nil, err
		}

		fn := mir.NewFunc(0, r.strs.Intern(name), ret)
		fn.ID = mir.FuncID(fid)
		// Pre-allocate the register file so decoded ids stay stable.
		regs := int(localCount)
		if int(maxReg) > regs {
			regs = int(maxReg)
		}
		for n := 0; n < regs; n++ {
			fn.NewReg(types.NoTypeID)
		}
		for _, p := range params {
			fn.SetRegType(p.reg, p.ty)
			fn.Params = append(fn.Params, mir.Param{Reg: p.reg, Type: p.ty})
		}
		m.InsertFunc(fn)
		funcs[fn.ID] = &funcEntry{fn: fn}
	}
	return funcs, nil
}

func (r *Reader) readCFGData(m *mir.Module, funcs map[mir.FuncID]*funcEntry) error {
	for range funcs {
		fid, err := r.u32()
		if err != nil {
			return err
		}
		entry, ok := funcs[mir.FuncID(fid)]
		if !ok {
			return &Error{Kind: ErrUnexpectedEof}
		}
		if err := r.readCFG(entry.fn); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reader) readCFG(f *mir.Func) error {
	blockCount, err := r.u32()
	if err != nil {
		return err
	}
	blocks := make(map[mir.BlockID]*mir.Block, blockCount)
	var maxBlock mir.BlockID

	type rawBlock struct {
		id     mir.BlockID
		phis   []mir.Phi
		instrs []mir.Instr
		term   mir.Terminator
	}
	raws := make([]rawBlock, 0, blockCount)

	for i := uint32(0); i < blockCount; i++ {
		bid, err := r.u32()
		if err != nil {
			return err
		}
		raw := rawBlock{id: mir.BlockID(bid)}
		if raw.id > maxBlock {
			maxBlock = raw.id
		}

		phiCount, err := r.u32()
		if err != nil {
			return err
		}
		for j := uint32(0); j < phiCount; j++ {
			dest, err := r.u32()
			if err != nil {
				return err
			}
			ty, err := r.typ()
			if err != nil {
				return err
			}
			phi := mir.Phi{Dest: mir.RegID(dest), Type: ty}
			inCount, err := r.u32()
			if err != nil {
				return err
			}
			for k := uint32(0); k < inCount; k++ {
				pred, err := r.u32()
				if err != nil {
					return err
				}
				val, err := r.u32()
				if err != nil {
					return err
				}
				phi.Incomings = append(phi.Incomings, mir.PhiIncoming{Pred: mir.BlockID(pred), Value: mir.RegID(val)})
			}
			raw.phis = append(raw.phis, phi)
		}

		instrCount, err := r.u32()
		if err != nil {
			return err
		}
		for j := uint32(0); j < instrCount; j++ {
			in, err := r.readInstr(f)
			if err != nil {
				return err
			}
			raw.instrs = append(raw.instrs, in)
		}

		term, err := r.readTerminator()
		if err != nil {
			return err
		}
		raw.term = term
		raws = append(raws, raw)
	}

	entry, err := r.u32()
	if err != nil {
		return err
	}

	// Materialize the dense block array preserving original ids.
	for f.BlockCount() < int(maxBlock) {
		b := f.NewBlock()
		blocks[b.ID] = b
	}
	present := make(map[mir.BlockID]struct{}, len(raws))
	for _, raw := range raws {
		present[raw.id] = struct{}{}
		b := f.Block(raw.id)
		if b == nil {
			return &Error{Kind: ErrUnexpectedEof}
		}
		b.Phis = raw.phis
		b.Instrs = raw.instrs
		b.Term = raw.term
	}
	// Slots the writer skipped (removed blocks) stay absent.
	f.EachBlock(func(b *mir.Block) {
		if _, ok := present[b.ID]; !ok {
			f.RemoveBlock(b.ID)
		}
	})
	f.Entry = mir.BlockID(entry)
	f.RecomputePreds()
	return nil
}

func (r *Reader) readInstr(f *mir.Func) (mir.Instr, error) {
	op, err := r.u8()
	if err != nil {
		return mir.Instr{}, err
	}
	var in mir.Instr

	readHeader := func() error {
		dest, err := r.u32()
		if err != nil {
			return err
		}
		ty, err := r.typ()
		if err != nil {
			return err
		}
		in.Dest = mir.RegID(dest)
		in.Type = ty
		r.ensureReg(f, in.Dest, ty)
		return nil
	}

	switch op {
	case opConst:
		in.Kind = mir.InstrConst
		if err := readHeader(); err != nil {
			return in, err
		}
		ck, err := r.u8()
		if err != nil {
			return in, err
		}
		in.Const.Kind = mir.ConstKind(ck)
		switch in.Const.Kind {
		case mir.ConstInt:
			v, err := r.i64()
			if err != nil {
				return in, err
			}
			in.Const.IntVal = v
		case mir.ConstFloat:
			bits, err := r.u64()
			if err != nil {
				return in, err
			}
			in.Const.FloatVal = math.Float64frombits(bits)
		case mir.ConstBool:
			b, err := r.bool()
			if err != nil {
				return in, err
			}
			in.Const.BoolVal = b
		case mir.ConstString:
			id, err := r.u32()
			if err != nil {
				return in, err
			}
			in.Const.StrVal = source.StringID(id)
		case mir.ConstNull:
		case mir.ConstFunc:
			id, err := r.u32()
			if err != nil {
				return in, err
			}
			in.Const.FuncVal = mir.FuncID(id)
		default:
			return in, &Error{Kind: ErrInvalidOpcode, Tag: ck}
		}
	case opCopy:
		in.Kind = mir.InstrCopy
		if err := readHeader(); err != nil {
			return in, err
		}
		src, err := r.u32()
		if err != nil {
			return in, err
		}
		in.Copy.Src = mir.RegID(src)
	case opLoad:
		in.Kind = mir.InstrLoad
		if err := readHeader(); err != nil {
			return in, err
		}
		ptr, err := r.u32()
		if err != nil {
			return in, err
		}
		in.Load.Ptr = mir.RegID(ptr)
	case opStore:
		in.Kind = mir.InstrStore
		ty, err := r.typ()
		if err != nil {
			return in, err
		}
		in.Type = ty
		ptr, err := r.u32()
		if err != nil {
			return in, err
		}
		val, err := r.u32()
		if err != nil {
			return in, err
		}
		in.Store.Ptr = mir.RegID(ptr)
		in.Store.Value = mir.RegID(val)
	case opBinOp:
		in.Kind = mir.InstrBinOp
		if err := readHeader(); err != nil {
			return in, err
		}
		opByte, err := r.u8()
		if err != nil {
			return in, err
		}
		lhs, err := r.u32()
		if err != nil {
			return in, err
		}
		rhs, err := r.u32()
		if err != nil {
			return in, err
		}
		in.Bin = mir.BinOpInstr{Op: types.BinaryOp(opByte), Lhs: mir.RegID(lhs), Rhs: mir.RegID(rhs)}
	case opUnOp:
		in.Kind = mir.InstrUnOp
		if err := readHeader(); err != nil {
			return in, err
		}
		opByte, err := r.u8()
		if err != nil {
			return in, err
		}
		operand, err := r.u32()
		if err != nil {
			return in, err
		}
		in.Un = mir.UnOpInstr{Op: types.UnaryOp(opByte), Operand: mir.RegID(operand)}
	case opCmp:
		in.Kind = mir.InstrCmp
		if err := readHeader(); err != nil {
			return in, err
		}
		opByte, err := r.u8()
		if err != nil {
			return in, err
		}
		lhs, err := r.u32()
		if err != nil {
			return in, err
		}
		rhs, err := r.u32()
		if err != nil {
			return in, err
		}
		in.Cmp = mir.CmpInstr{Op: types.BinaryOp(opByte), Lhs: mir.RegID(lhs), Rhs: mir.RegID(rhs)}
	case opCast:
		in.Kind = mir.InstrCast
		if err := readHeader(); err != nil {
			return in, err
		}
		val, err := r.u32()
		if err != nil {
			return in, err
		}
		from, err := r.typ()
		if err != nil {
			return in, err
		}
		in.Cast = mir.CastInstr{Value: mir.RegID(val), From: from}
	case opSelect:
		in.Kind = mir.InstrSelect
		if err := readHeader(); err != nil {
			return in, err
		}
		cond, err := r.u32()
		if err != nil {
			return in, err
		}
		then, err := r.u32()
		if err != nil {
			return in, err
		}
		els, err := r.u32()
		if err != nil {
			return in, err
		}
		in.Select = mir.SelectInstr{Cond: mir.RegID(cond), Then: mir.RegID(then), Else: mir.RegID(els)}
	case opAlloc:
		in.Kind = mir.InstrAlloc
		if err := readHeader(); err != nil {
			return in, err
		}
		elem, err := r.typ()
		if err != nil {
			return in, err
		}
		count, err := r.u32()
		if err != nil {
			return in, err
		}
		in.Alloc = mir.AllocInstr{Elem: elem, Count: mir.RegID(count)}
	case opGEP:
		in.Kind = mir.InstrGEP
		if err := readHeader(); err != nil {
			return in, err
		}
		base, err := r.u32()
		if err != nil {
			return in, err
		}
		idxCount, err := r.u32()
		if err != nil {
			return in, err
		}
		idxs := make([]mir.RegID, idxCount)
		for i := range idxs {
			v, err := r.u32()
			if err != nil {
				return in, err
			}
			idxs[i] = mir.RegID(v)
		}
		elem, err := r.typ()
		if err != nil {
			return in, err
		}
		in.GEP = mir.GEPInstr{Base: mir.RegID(base), Indexes: idxs, Elem: elem}
	case opCallDirect:
		in.Kind = mir.InstrCallDirect
		if err := readHeader(); err != nil {
			return in, err
		}
		target, err := r.u32()
		if err != nil {
			return in, err
		}
		argCount, err := r.u32()
		if err != nil {
			return in, err
		}
		args := make([]mir.RegID, argCount)
		for i := range args {
			v, err := r.u32()
			if err != nil {
				return in, err
			}
			args[i] = mir.RegID(v)
		}
		taCount, err := r.u32()
		if err != nil {
			return in, err
		}
		var typeArgs []types.TypeID
		for i := uint32(0); i < taCount; i++ {
			ta, err := r.typ()
			if err != nil {
				return in, err
			}
			typeArgs = append(typeArgs, ta)
		}
		tail, err := r.bool()
		if err != nil {
			return in, err
		}
		in.CallDirect = mir.CallDirectInstr{Target: mir.FuncID(target), Args: args, TypeArgs: typeArgs, Tail: tail}
	case opCallIndirect:
		in.Kind = mir.InstrCallIndirect
		if err := readHeader(); err != nil {
			return in, err
		}
		fnReg, err := r.u32()
		if err != nil {
			return in, err
		}
		argCount, err := r.u32()
		if err != nil {
			return in, err
		}
		args := make([]mir.RegID, argCount)
		for i := range args {
			v, err := r.u32()
			if err != nil {
				return in, err
			}
			args[i] = mir.RegID(v)
		}
		tail, err := r.bool()
		if err != nil {
			return in, err
		}
		in.CallIndirect = mir.CallIndirectInstr{Fn: mir.RegID(fnReg), Args: args, Tail: tail}
	case opThrow:
		in.Kind = mir.InstrThrow
		val, err := r.u32()
		if err != nil {
			return in, err
		}
		in.Throw.Value = mir.RegID(val)
	default:
		return in, &Error{Kind: ErrInvalidOpcode, Tag: op}
	}
	return in, nil
}

func (r *Reader) readTerminator() (mir.Terminator, error) {
	op, err := r.u8()
	if err != nil {
		return mir.Terminator{}, err
	}
	switch op {
	case termReturn:
		has, err := r.bool()
		if err != nil {
			return mir.Terminator{}, err
		}
		t := mir.Terminator{Kind: mir.TermReturn, Return: mir.ReturnTerm{HasValue: has}}
		if has {
			v, err := r.u32()
			if err != nil {
				return t, err
			}
			t.Return.Value = mir.RegID(v)
		}
		return t, nil
	case termBranch:
		target, err := r.u32()
		if err != nil {
			return mir.Terminator{}, err
		}
		return mir.Terminator{Kind: mir.TermJump, Jump: mir.JumpTerm{Target: mir.BlockID(target)}}, nil
	case termCondBranch:
		cond, err := r.u32()
		if err != nil {
			return mir.Terminator{}, err
		}
		then, err := r.u32()
		if err != nil {
			return mir.Terminator{}, err
		}
		els, err := r.u32()
		if err != nil {
			return mir.Terminator{}, err
		}
		return mir.Terminator{Kind: mir.TermBranch, Branch: mir.BranchTerm{Cond: mir.RegID(cond), Then: mir.BlockID(then), Else: mir.BlockID(els)}}, nil
	case termUnreachable:
		return mir.Terminator{Kind: mir.TermUnreachable}, nil
	case termSwitch:
		val, err := r.u32()
		if err != nil {
			return mir.Terminator{}, err
		}
		caseCount, err := r.u32()
		if err != nil {
			return mir.Terminator{}, err
		}
		t := mir.Terminator{Kind: mir.TermSwitch, Switch: mir.SwitchTerm{Value: mir.RegID(val)}}
		for i := uint32(0); i < caseCount; i++ {
			cv, err := r.i64()
			if err != nil {
				return t, err
			}
			target, err := r.u32()
			if err != nil {
				return t, err
			}
			t.Switch.Cases = append(t.Switch.Cases, mir.SwitchCase{Value: cv, Target: mir.BlockID(target)})
		}
		def, err := r.u32()
		if err != nil {
			return t, err
		}
		t.Switch.Default = mir.BlockID(def)
		return t, nil
	case termThrow:
		val, err := r.u32()
		if err != nil {
			return mir.Terminator{}, err
		}
		return mir.Terminator{Kind: mir.TermThrow, Throw: mir.ThrowTerm{Value: mir.RegID(val)}}, nil
	case termNoReturn:
		return mir.Terminator{Kind: mir.TermNoReturn}, nil
	default:
		return mir.Terminator{}, &Error{Kind: ErrInvalidOpcode, Tag: op}
	}
}

// readConstantPool re-interns string constants and remaps every
// ConstString payload onto the local interner's ids.
func (r *Reader) readConstantPool(m *mir.Module) error {
	count, err := r.u32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		fileID, err := r.u32()
		if err != nil {
			return err
		}
		s, err := r.str()
		if err != nil {
			return err
		}
		r.strMap[fileID] = r.strs.Intern(s)
	}
	for _, fid := range m.FuncIDs() {
		m.Funcs[fid].EachBlock(func(b *mir.Block) {
			for i := range b.Instrs {
				in := &b.Instrs[i]
				if in.Kind == mir.InstrConst && in.Const.Kind == mir.ConstString {
					if mapped, ok := r.strMap[uint32(in.Const.StrVal)]; ok {
						in.Const.StrVal = mapped
					}
				}
			}
		})
	}
	return nil
}

// typ decodes one type encoding into the interner.
func (r *Reader) typ() (types.TypeID, error) {
	tag, err := r.u8()
	if err != nil {
		return types.NoTypeID, err
	}
	b := r.ti.Builtins()
	switch tag {
	case tagVoid:
		return b.Void, nil
	case tagBool:
		return b.Bool, nil
	case tagInt:
		return b.Int, nil
	case tagFloat:
		return b.Float, nil
	case tagString:
		return b.String, nil
	case tagDynamic:
		return b.Dynamic, nil
	case tagClass:
		sym, err := r.u32()
		if err != nil {
			return types.NoTypeID, err
		}
		return r.ti.CreateNamed(types.KindClass, types.SymbolID(sym)), nil
	case tagFunction:
		paramCount, err := r.u32()
		if err != nil {
			return types.NoTypeID, err
		}
		params := make([]types.TypeID, paramCount)
		for i := range params {
			p, err := r.typ()
			if err != nil {
				return types.NoTypeID, err
			}
			params[i] = p
		}
		ret, err := r.typ()
		if err != nil {
			return types.NoTypeID, err
		}
		return r.ti.CreateFunction(params, ret, 0), nil
	case tagPointer:
		pointee, err := r.typ()
		if err != nil {
			return types.NoTypeID, err
		}
		return r.ti.CreateReference(pointee, false, types.NoLifetimeID), nil
	default:
		return types.NoTypeID, &Error{Kind: ErrInvalidTypeDiscriminant, Tag: tag}
	}
}

// ensureReg grows the function's register file to cover a decoded id.
func (r *Reader) ensureReg(f *mir.Func, reg mir.RegID, ty types.TypeID) {
	for f.RegCount() < int(reg) {
		f.NewReg(types.NoTypeID)
	}
	if reg.IsValid() {
		f.SetRegType(reg, ty)
	}
}

func (r *Reader) u8() (uint8, error) {
	if r.pos+1 > len(r.data) {
		return 0, &Error{Kind: ErrUnexpectedEof}
	}
	v := r.data[r.pos]
	r.pos++
	return v, nil
}

func (r *Reader) bool() (bool, error) {
	v, err := r.u8()
	return v != 0, err
}

func (r *Reader) u32() (uint32, error) {
	if r.pos+4 > len(r.data) {
		return 0, &Error{Kind: ErrUnexpectedEof}
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *Reader) u64() (uint64, error) {
	if r.pos+8 > len(r.data) {
		return 0, &Error{Kind: ErrUnexpectedEof}
	}
	v := binary.LittleEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *Reader) i64() (int64, error) {
	v, err := r.u64()
	return int64(v), err
}

func (r *Reader) str() (string, error) {
	n, err := r.u32()
	if err != nil {
		return "", err
	}
	if r.pos+int(n) > len(r.data) {
		return "", &Error{Kind: ErrUnexpectedEof}
	}
	raw := r.data[r.pos : r.pos+int(n)]
	r.pos += int(n)
	if !utf8.Valid(raw) {
		return "", &Error{Kind: ErrInvalidUtf8}
	}
	return string(raw), nil
}
