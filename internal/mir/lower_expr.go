package mir

import (
	"rayzor/internal/diag"
	"rayzor/internal/source"
	"rayzor/internal/symbols"
	"rayzor/internal/tast"
	"rayzor/internal/types"
)

// lowerExpr lowers one expression into the current block, returning the
// register holding its value.
func (lo *Lowerer) lowerExpr(id tast.ExprID) (RegID, error) {
	e := lo.Mod.Exprs.Get(id)
	if e == nil {
		return NoRegID, internalErr(source.Span{}, "missing expression %d", id)
	}

	switch e.Kind {
	case tast.ExprLit:
		return lo.lowerLit(e)
	case tast.ExprNull:
		return lo.emitConst(ConstInstr{Kind: ConstNull}, e.Type, e.Span), nil
	case tast.ExprVarRef:
		return lo.lowerVarRef(e)
	case tast.ExprThis, tast.ExprSuper:
		if len(lo.fn.Params) == 0 {
			return NoRegID, invalidTAST(diag.LowerInvalidTAST, e.Span, "'this' outside of a method")
		}
		return lo.fn.Params[0].Reg, nil
	case tast.ExprFieldAccess:
		p := lo.Mod.Exprs.Fields.Get(uint32(e.Payload))
		ptr, err := lo.fieldAddr(p, e)
		if err != nil {
			return NoRegID, err
		}
		dest := lo.fn.NewReg(e.Type)
		lo.emit(Instr{Kind: InstrLoad, Dest: dest, Type: e.Type, Span: e.Span, Load: LoadInstr{Ptr: ptr}})
		return dest, nil
	case tast.ExprStaticFieldAccess:
		return lo.lowerStaticField(e)
	case tast.ExprArrayAccess:
		p := lo.Mod.Exprs.Indexes.Get(uint32(e.Payload))
		ptr, err := lo.arrayElemAddr(p, e)
		if err != nil {
			return NoRegID, err
		}
		dest := lo.fn.NewReg(e.Type)
		lo.emit(Instr{Kind: InstrLoad, Dest: dest, Type: e.Type, Span: e.Span, Load: LoadInstr{Ptr: ptr}})
		return dest, nil
	case tast.ExprArrayLit:
		return lo.lowerArrayLit(e)
	case tast.ExprObjectLit:
		return lo.lowerObjectLit(e)
	case tast.ExprMapLit:
		return lo.lowerMapLit(e)
	case tast.ExprCall:
		return lo.lowerCall(e)
	case tast.ExprMethodCall:
		return lo.lowerMethodCall(e)
	case tast.ExprBinary:
		return lo.lowerBinary(e)
	case tast.ExprUnary:
		p := lo.Mod.Exprs.Unaries.Get(uint32(e.Payload))
		operand, err := lo.lowerExpr(p.Operand)
		if err != nil {
			return NoRegID, err
		}
		dest := lo.fn.NewReg(e.Type)
		lo.emit(Instr{Kind: InstrUnOp, Dest: dest, Type: e.Type, Span: e.Span, Un: UnOpInstr{Op: p.Op, Operand: operand}})
		return dest, nil
	case tast.ExprCast:
		p := lo.Mod.Exprs.Casts.Get(uint32(e.Payload))
		val, err := lo.lowerExpr(p.Value)
		if err != nil {
			return NoRegID, err
		}
		from := types.NoTypeID
		if v := lo.Mod.Exprs.Get(p.Value); v != nil {
			from = v.Type
		}
		dest := lo.fn.NewReg(e.Type)
		lo.emit(Instr{Kind: InstrCast, Dest: dest, Type: e.Type, Span: e.Span, Cast: CastInstr{Value: val, From: from}})
		return dest, nil
	case tast.ExprConditional:
		return lo.lowerConditional(e)
	case tast.ExprAssign:
		p := lo.Mod.Exprs.Assigns.Get(uint32(e.Payload))
		return lo.lowerAssignment(p.Target, p.Value, e.Span)
	case tast.ExprNew:
		return lo.lowerNew(e)
	case tast.ExprIs:
		return lo.lowerIs(e)
	case tast.ExprPatternPlaceholder:
		p := lo.Mod.Exprs.Placeholders.Get(uint32(e.Payload))
		val := lo.readVar(p.Binding, lo.cur.ID)
		if !val.IsValid() {
			return NoRegID, invalidTAST(diag.LowerInvalidTAST, e.Span, "pattern binding used outside its arm")
		}
		return val, nil
	default:
		return NoRegID, invalidTAST(diag.LowerUnknownExprKind, e.Span, "unknown expression kind %d", e.Kind)
	}
}

func (lo *Lowerer) lowerLit(e *tast.Expr) (RegID, error) {
	lit := lo.Mod.Exprs.Lits.Get(uint32(e.Payload))
	if lit == nil {
		return NoRegID, internalErr(e.Span, "literal without payload")
	}
	var c ConstInstr
	switch lit.Kind {
	case tast.LitInt:
		c = ConstInstr{Kind: ConstInt, IntVal: lit.IntVal}
	case tast.LitFloat:
		c = ConstInstr{Kind: ConstFloat, FloatVal: lit.FloatVal}
	case tast.LitBool:
		c = ConstInstr{Kind: ConstBool, BoolVal: lit.BoolVal}
	case tast.LitString:
		c = ConstInstr{Kind: ConstString, StrVal: lit.StrVal}
	case tast.LitChar:
		c = ConstInstr{Kind: ConstInt, IntVal: int64(lit.CharVal)}
	default:
		return NoRegID, invalidTAST(diag.LowerInvalidTAST, e.Span, "unknown literal kind %d", lit.Kind)
	}
	return lo.emitConst(c, e.Type, e.Span), nil
}

func (lo *Lowerer) lowerVarRef(e *tast.Expr) (RegID, error) {
	p := lo.Mod.Exprs.VarRefs.Get(uint32(e.Payload))
	if sym := lo.Syms.Symbols.Get(p.Sym); sym != nil && sym.Kind == symbols.SymbolFunction {
		// A function name in value position is a function constant.
		if id, ok := lo.Mod.FuncBySym[p.Sym]; ok {
			return lo.emitConst(ConstInstr{Kind: ConstFunc, FuncVal: FuncID(id)}, e.Type, e.Span), nil
		}
	}
	lo.Syms.MarkSymbolUsed(p.Sym)
	val := lo.readVar(p.Sym, lo.cur.ID)
	if !val.IsValid() {
		return NoRegID, invalidTAST(diag.LowerInvalidTAST, e.Span, "use of undefined variable (symbol %d)", p.Sym)
	}
	return val, nil
}

// lowerStaticField reads a static slot: the address is a backend-resolved
// constant keyed by the field symbol.
func (lo *Lowerer) lowerStaticField(e *tast.Expr) (RegID, error) {
	p := lo.Mod.Exprs.StaticFields.Get(uint32(e.Payload))
	addr := lo.emitConst(ConstInstr{Kind: ConstInt, IntVal: int64(p.Field)}, lo.Types.Builtins().Dynamic, e.Span)
	dest := lo.fn.NewReg(e.Type)
	lo.emit(Instr{Kind: InstrLoad, Dest: dest, Type: e.Type, Span: e.Span, Load: LoadInstr{Ptr: addr}})
	return dest, nil
}

func (lo *Lowerer) fieldAddr(p *tast.FieldAccessExpr, e *tast.Expr) (RegID, error) {
	obj, err := lo.lowerExpr(p.Object)
	if err != nil {
		return NoRegID, err
	}
	idx := lo.emitConst(ConstInstr{Kind: ConstInt, IntVal: int64(p.Index)}, lo.Types.Builtins().Int, e.Span)
	ptr := lo.fn.NewReg(e.Type)
	lo.emit(Instr{Kind: InstrGEP, Dest: ptr, Type: e.Type, Span: e.Span, GEP: GEPInstr{Base: obj, Indexes: []RegID{idx}, Elem: e.Type}})
	return ptr, nil
}

func (lo *Lowerer) arrayElemAddr(p *tast.ArrayAccessExpr, e *tast.Expr) (RegID, error) {
	arr, err := lo.lowerExpr(p.Array)
	if err != nil {
		return NoRegID, err
	}
	idx, err := lo.lowerExpr(p.Index)
	if err != nil {
		return NoRegID, err
	}
	ptr := lo.fn.NewReg(e.Type)
	lo.emit(Instr{Kind: InstrGEP, Dest: ptr, Type: e.Type, Span: e.Span, GEP: GEPInstr{Base: arr, Indexes: []RegID{idx}, Elem: e.Type}})
	return ptr, nil
}

// lowerArrayLit heap-allocates the array and stores each element.
func (lo *Lowerer) lowerArrayLit(e *tast.Expr) (RegID, error) {
	p := lo.Mod.Exprs.ArrayLits.Get(uint32(e.Payload))
	elemTy := lo.Types.Builtins().Dynamic
	if t, ok := lo.Types.Lookup(e.Type); ok && t.Kind == types.KindArray {
		elemTy = t.A
	}
	count := lo.emitConst(ConstInstr{Kind: ConstInt, IntVal: int64(len(p.Elems))}, lo.Types.Builtins().Int, e.Span)
	arr := lo.fn.NewReg(e.Type)
	lo.emit(Instr{Kind: InstrAlloc, Dest: arr, Type: e.Type, Span: e.Span, Alloc: AllocInstr{Elem: elemTy, Count: count}})
	for i, el := range p.Elems {
		val, err := lo.lowerExpr(el)
		if err != nil {
			return NoRegID, err
		}
		idx := lo.emitConst(ConstInstr{Kind: ConstInt, IntVal: int64(i)}, lo.Types.Builtins().Int, e.Span)
		ptr := lo.fn.NewReg(elemTy)
		lo.emit(Instr{Kind: InstrGEP, Dest: ptr, Type: elemTy, Span: e.Span, GEP: GEPInstr{Base: arr, Indexes: []RegID{idx}, Elem: elemTy}})
		lo.emit(Instr{Kind: InstrStore, Type: elemTy, Span: e.Span, Store: StoreInstr{Ptr: ptr, Value: val}})
	}
	return arr, nil
}

// lowerObjectLit allocates the struct and stores fields by index.
func (lo *Lowerer) lowerObjectLit(e *tast.Expr) (RegID, error) {
	p := lo.Mod.Exprs.ObjectLits.Get(uint32(e.Payload))
	obj := lo.fn.NewReg(e.Type)
	lo.emit(Instr{Kind: InstrAlloc, Dest: obj, Type: e.Type, Span: e.Span, Alloc: AllocInstr{Elem: e.Type}})
	for _, field := range p.Fields {
		val, err := lo.lowerExpr(field.Value)
		if err != nil {
			return NoRegID, err
		}
		fieldTy := lo.fn.RegType(val)
		idx := lo.emitConst(ConstInstr{Kind: ConstInt, IntVal: int64(field.Index)}, lo.Types.Builtins().Int, e.Span)
		ptr := lo.fn.NewReg(fieldTy)
		lo.emit(Instr{Kind: InstrGEP, Dest: ptr, Type: fieldTy, Span: e.Span, GEP: GEPInstr{Base: obj, Indexes: []RegID{idx}, Elem: fieldTy}})
		lo.emit(Instr{Kind: InstrStore, Type: fieldTy, Span: e.Span, Store: StoreInstr{Ptr: ptr, Value: val}})
	}
	return obj, nil
}

func (lo *Lowerer) lowerMapLit(e *tast.Expr) (RegID, error) {
	p := lo.Mod.Exprs.MapLits.Get(uint32(e.Payload))
	valTy := lo.Types.Builtins().Dynamic
	if t, ok := lo.Types.Lookup(e.Type); ok && t.Kind == types.KindMap {
		valTy = t.B
	}
	m := lo.fn.NewReg(e.Type)
	lo.emit(Instr{Kind: InstrAlloc, Dest: m, Type: e.Type, Span: e.Span, Alloc: AllocInstr{Elem: e.Type}})
	for _, entry := range p.Entries {
		key, err := lo.lowerExpr(entry.Key)
		if err != nil {
			return NoRegID, err
		}
		val, err := lo.lowerExpr(entry.Value)
		if err != nil {
			return NoRegID, err
		}
		ptr := lo.fn.NewReg(valTy)
		lo.emit(Instr{Kind: InstrGEP, Dest: ptr, Type: valTy, Span: e.Span, GEP: GEPInstr{Base: m, Indexes: []RegID{key}, Elem: valTy}})
		lo.emit(Instr{Kind: InstrStore, Type: valTy, Span: e.Span, Store: StoreInstr{Ptr: ptr, Value: val}})
	}
	return m, nil
}

// lowerCall emits a direct call when the callee resolves to a function
// symbol, an indirect call through a function-pointer register otherwise.
func (lo *Lowerer) lowerCall(e *tast.Expr) (RegID, error) {
	p := lo.Mod.Exprs.Calls.Get(uint32(e.Payload))
	args := make([]RegID, 0, len(p.Args))
	for _, a := range p.Args {
		reg, err := lo.lowerExpr(a)
		if err != nil {
			return NoRegID, err
		}
		args = append(args, reg)
	}

	dest := NoRegID
	if !lo.isVoid(e.Type) {
		dest = lo.fn.NewReg(e.Type)
	}

	if p.Sym.IsValid() {
		if fid, ok := lo.Mod.FuncBySym[p.Sym]; ok {
			lo.emit(Instr{Kind: InstrCallDirect, Dest: dest, Type: e.Type, Span: e.Span, CallDirect: CallDirectInstr{Target: FuncID(fid), Args: args, TypeArgs: p.TypeArgs}})
			return dest, nil
		}
	}
	if !p.Callee.IsValid() {
		return NoRegID, invalidTAST(diag.LowerInvalidTAST, e.Span, "call with neither a resolved symbol nor a callee expression")
	}
	fptr, err := lo.lowerExpr(p.Callee)
	if err != nil {
		return NoRegID, err
	}
	lo.emit(Instr{Kind: InstrCallIndirect, Dest: dest, Type: e.Type, Span: e.Span, CallIndirect: CallIndirectInstr{Fn: fptr, Args: args}})
	return dest, nil
}

// lowerMethodCall lowers the receiver first, then dispatches directly for
// statically-bound methods or through a vtable slot for virtual ones.
func (lo *Lowerer) lowerMethodCall(e *tast.Expr) (RegID, error) {
	p := lo.Mod.Exprs.MethodCalls.Get(uint32(e.Payload))
	recv, err := lo.lowerExpr(p.Receiver)
	if err != nil {
		return NoRegID, err
	}
	args := make([]RegID, 0, len(p.Args)+1)
	args = append(args, recv)
	for _, a := range p.Args {
		reg, err := lo.lowerExpr(a)
		if err != nil {
			return NoRegID, err
		}
		args = append(args, reg)
	}

	dest := NoRegID
	if !lo.isVoid(e.Type) {
		dest = lo.fn.NewReg(e.Type)
	}

	if !p.Virtual {
		if fid, ok := lo.Mod.FuncBySym[p.Method]; ok {
			lo.emit(Instr{Kind: InstrCallDirect, Dest: dest, Type: e.Type, Span: e.Span, CallDirect: CallDirectInstr{Target: FuncID(fid), Args: args, TypeArgs: p.TypeArgs}})
			return dest, nil
		}
	}
	// Virtual (or externally-defined) dispatch: load the function pointer
	// from the receiver's method slot.
	slot := lo.emitConst(ConstInstr{Kind: ConstInt, IntVal: int64(p.Method)}, lo.Types.Builtins().Int, e.Span)
	slotPtr := lo.fn.NewReg(lo.Types.Builtins().Dynamic)
	lo.emit(Instr{Kind: InstrGEP, Dest: slotPtr, Type: lo.Types.Builtins().Dynamic, Span: e.Span, GEP: GEPInstr{Base: recv, Indexes: []RegID{slot}, Elem: lo.Types.Builtins().Dynamic}})
	fptr := lo.fn.NewReg(lo.Types.Builtins().Dynamic)
	lo.emit(Instr{Kind: InstrLoad, Dest: fptr, Type: lo.Types.Builtins().Dynamic, Span: e.Span, Load: LoadInstr{Ptr: slotPtr}})
	lo.emit(Instr{Kind: InstrCallIndirect, Dest: dest, Type: e.Type, Span: e.Span, CallIndirect: CallIndirectInstr{Fn: fptr, Args: args}})
	return dest, nil
}

func (lo *Lowerer) lowerBinary(e *tast.Expr) (RegID, error) {
	p := lo.Mod.Exprs.Binaries.Get(uint32(e.Payload))
	if p.Op.IsShortCircuit() {
		return lo.lowerShortCircuit(p, e)
	}
	lhs, err := lo.lowerExpr(p.Left)
	if err != nil {
		return NoRegID, err
	}
	rhs, err := lo.lowerExpr(p.Right)
	if err != nil {
		return NoRegID, err
	}
	dest := lo.fn.NewReg(e.Type)
	if p.Op.IsComparison() {
		lo.emit(Instr{Kind: InstrCmp, Dest: dest, Type: e.Type, Span: e.Span, Cmp: CmpInstr{Op: p.Op, Lhs: lhs, Rhs: rhs}})
	} else {
		lo.emit(Instr{Kind: InstrBinOp, Dest: dest, Type: e.Type, Span: e.Span, Bin: BinOpInstr{Op: p.Op, Lhs: lhs, Rhs: rhs}})
	}
	return dest, nil
}

// lowerShortCircuit builds the `right` and `merge` blocks for && and ||.
// The fast path contributes the constant outcome; the slow path contributes
// the right operand's value; merge joins them with a Bool phi.
func (lo *Lowerer) lowerShortCircuit(p *tast.BinaryExpr, e *tast.Expr) (RegID, error) {
	boolTy := lo.Types.Builtins().Bool
	lhs, err := lo.lowerExpr(p.Left)
	if err != nil {
		return NoRegID, err
	}
	fastVal := lo.emitConst(ConstInstr{Kind: ConstBool, BoolVal: p.Op == types.OpOr}, boolTy, e.Span)
	fastBlock := lo.cur.ID

	right := lo.newBlock()
	merge := lo.newBlock()

	if p.Op == types.OpAnd {
		lo.terminate(Terminator{Kind: TermBranch, Branch: BranchTerm{Cond: lhs, Then: right.ID, Else: merge.ID}})
	} else {
		lo.terminate(Terminator{Kind: TermBranch, Branch: BranchTerm{Cond: lhs, Then: merge.ID, Else: right.ID}})
	}
	lo.fn.RecomputePreds()
	lo.sealBlock(right.ID)

	lo.startBlock(right)
	rhs, err := lo.lowerExpr(p.Right)
	if err != nil {
		return NoRegID, err
	}
	rightEnd := lo.cur.ID
	lo.terminate(Terminator{Kind: TermJump, Jump: JumpTerm{Target: merge.ID}})

	lo.fn.RecomputePreds()
	lo.sealBlock(merge.ID)

	dest := lo.fn.NewReg(boolTy)
	merge.Phis = append(merge.Phis, Phi{
		Dest: dest,
		Type: boolTy,
		Incomings: []PhiIncoming{
			{Pred: fastBlock, Value: fastVal},
			{Pred: rightEnd, Value: rhs},
		},
	})
	lo.startBlock(merge)
	return dest, nil
}

// lowerConditional is the expression form of if: both arms produce a value
// joined by a phi.
func (lo *Lowerer) lowerConditional(e *tast.Expr) (RegID, error) {
	p := lo.Mod.Exprs.Conditionals.Get(uint32(e.Payload))
	cond, err := lo.lowerExpr(p.Cond)
	if err != nil {
		return NoRegID, err
	}

	thenB := lo.newBlock()
	elseB := lo.newBlock()
	merge := lo.newBlock()
	lo.terminate(Terminator{Kind: TermBranch, Branch: BranchTerm{Cond: cond, Then: thenB.ID, Else: elseB.ID}})
	lo.fn.RecomputePreds()
	lo.sealBlock(thenB.ID)
	lo.sealBlock(elseB.ID)

	lo.startBlock(thenB)
	thenVal, err := lo.lowerExpr(p.Then)
	if err != nil {
		return NoRegID, err
	}
	thenEnd := lo.cur.ID
	lo.terminate(Terminator{Kind: TermJump, Jump: JumpTerm{Target: merge.ID}})

	lo.startBlock(elseB)
	elseVal, err := lo.lowerExpr(p.Else)
	if err != nil {
		return NoRegID, err
	}
	elseEnd := lo.cur.ID
	lo.terminate(Terminator{Kind: TermJump, Jump: JumpTerm{Target: merge.ID}})

	lo.fn.RecomputePreds()
	lo.sealBlock(merge.ID)

	dest := lo.fn.NewReg(e.Type)
	merge.Phis = append(merge.Phis, Phi{
		Dest: dest,
		Type: e.Type,
		Incomings: []PhiIncoming{
			{Pred: thenEnd, Value: thenVal},
			{Pred: elseEnd, Value: elseVal},
		},
	})
	lo.startBlock(merge)
	return dest, nil
}

// lowerAssignment handles both assignment statements and assignment
// expressions; the result is the assigned value.
func (lo *Lowerer) lowerAssignment(target, value tast.ExprID, span source.Span) (RegID, error) {
	val, err := lo.lowerExpr(value)
	if err != nil {
		return NoRegID, err
	}
	t := lo.Mod.Exprs.Get(target)
	if t == nil {
		return NoRegID, internalErr(span, "assignment without target")
	}
	switch t.Kind {
	case tast.ExprVarRef:
		p := lo.Mod.Exprs.VarRefs.Get(uint32(t.Payload))
		if _, tracked := lo.ssa.varTypes[p.Sym]; !tracked {
			lo.ssa.declare(p.Sym, t.Type)
		}
		lo.writeVar(p.Sym, val)
		return val, nil
	case tast.ExprFieldAccess:
		p := lo.Mod.Exprs.Fields.Get(uint32(t.Payload))
		ptr, err := lo.fieldAddr(p, t)
		if err != nil {
			return NoRegID, err
		}
		lo.emit(Instr{Kind: InstrStore, Type: t.Type, Span: span, Store: StoreInstr{Ptr: ptr, Value: val}})
		return val, nil
	case tast.ExprArrayAccess:
		p := lo.Mod.Exprs.Indexes.Get(uint32(t.Payload))
		ptr, err := lo.arrayElemAddr(p, t)
		if err != nil {
			return NoRegID, err
		}
		lo.emit(Instr{Kind: InstrStore, Type: t.Type, Span: span, Store: StoreInstr{Ptr: ptr, Value: val}})
		return val, nil
	case tast.ExprStaticFieldAccess:
		p := lo.Mod.Exprs.StaticFields.Get(uint32(t.Payload))
		addr := lo.emitConst(ConstInstr{Kind: ConstInt, IntVal: int64(p.Field)}, lo.Types.Builtins().Dynamic, span)
		lo.emit(Instr{Kind: InstrStore, Type: t.Type, Span: span, Store: StoreInstr{Ptr: addr, Value: val}})
		return val, nil
	default:
		return NoRegID, invalidTAST(diag.LowerInvalidTAST, span, "expression kind %s is not assignable", t.Kind)
	}
}

// lowerNew allocates the object and runs its constructor over it.
func (lo *Lowerer) lowerNew(e *tast.Expr) (RegID, error) {
	p := lo.Mod.Exprs.News.Get(uint32(e.Payload))
	obj := lo.fn.NewReg(e.Type)
	lo.emit(Instr{Kind: InstrAlloc, Dest: obj, Type: e.Type, Span: e.Span, Alloc: AllocInstr{Elem: p.Class}})
	args := make([]RegID, 0, len(p.Args)+1)
	args = append(args, obj)
	for _, a := range p.Args {
		reg, err := lo.lowerExpr(a)
		if err != nil {
			return NoRegID, err
		}
		args = append(args, reg)
	}
	if fid, ok := lo.Mod.FuncBySym[p.Ctor]; ok {
		lo.emit(Instr{Kind: InstrCallDirect, Type: lo.Types.Builtins().Void, Span: e.Span, CallDirect: CallDirectInstr{Target: FuncID(fid), Args: args, TypeArgs: p.TypeArgs}})
	}
	return obj, nil
}

// lowerIs emits a null test for optional values and a tag comparison
// otherwise; either way the result is Bool.
func (lo *Lowerer) lowerIs(e *tast.Expr) (RegID, error) {
	p := lo.Mod.Exprs.Iss.Get(uint32(e.Payload))
	val, err := lo.lowerExpr(p.Value)
	if err != nil {
		return NoRegID, err
	}
	boolTy := lo.Types.Builtins().Bool

	vt := types.NoTypeID
	if v := lo.Mod.Exprs.Get(p.Value); v != nil {
		vt = v.Type
	}
	if t, ok := lo.Types.Lookup(vt); ok && t.Kind == types.KindOptional && t.A == p.Target {
		null := lo.emitConst(ConstInstr{Kind: ConstNull}, vt, e.Span)
		dest := lo.fn.NewReg(boolTy)
		lo.emit(Instr{Kind: InstrCmp, Dest: dest, Type: boolTy, Span: e.Span, Cmp: CmpInstr{Op: types.OpNe, Lhs: val, Rhs: null}})
		return dest, nil
	}
	tag := lo.fn.NewReg(lo.Types.Builtins().Int)
	lo.emit(Instr{Kind: InstrLoad, Dest: tag, Type: lo.Types.Builtins().Int, Span: e.Span, Load: LoadInstr{Ptr: val}})
	want := lo.emitConst(ConstInstr{Kind: ConstInt, IntVal: int64(p.Target)}, lo.Types.Builtins().Int, e.Span)
	dest := lo.fn.NewReg(boolTy)
	lo.emit(Instr{Kind: InstrCmp, Dest: dest, Type: boolTy, Span: e.Span, Cmp: CmpInstr{Op: types.OpEq, Lhs: tag, Rhs: want}})
	return dest, nil
}

func (lo *Lowerer) isVoid(ty types.TypeID) bool {
	return ty == lo.Types.Builtins().Void || ty == types.NoTypeID
}
