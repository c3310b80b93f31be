package mir

import (
	"rayzor/internal/source"
	"rayzor/internal/types"
)

// InstrKind enumerates instruction kinds in MIR.
type InstrKind uint8

const (
	// InstrInvalid is the zero-value kind.
	InstrInvalid InstrKind = iota
	// InstrConst materializes a constant into a register.
	InstrConst
	// InstrCopy copies one register into another.
	InstrCopy
	// InstrLoad reads through a pointer register.
	InstrLoad
	// InstrStore writes a value through a pointer register.
	InstrStore
	// InstrBinOp applies an arithmetic/bitwise binary operator.
	InstrBinOp
	// InstrUnOp applies a unary operator.
	InstrUnOp
	// InstrCmp compares two operands, producing a Bool register.
	InstrCmp
	// InstrCast converts a value between types.
	InstrCast
	// InstrSelect picks between two values on a boolean condition.
	InstrSelect
	// InstrAlloc allocates an aggregate (optionally an array of count).
	InstrAlloc
	// InstrGEP computes an element/field address from a base pointer.
	InstrGEP
	// InstrCallDirect calls a statically-resolved function.
	InstrCallDirect
	// InstrCallIndirect calls through a function-pointer register.
	InstrCallIndirect
	// InstrThrow raises an exception value.
	InstrThrow
)

func (k InstrKind) String() string {
	switch k {
	case InstrConst:
		return "const"
	case InstrCopy:
		return "copy"
	case InstrLoad:
		return "load"
	case InstrStore:
		return "store"
	case InstrBinOp:
		return "binop"
	case InstrUnOp:
		return "unop"
	case InstrCmp:
		return "cmp"
	case InstrCast:
		return "cast"
	case InstrSelect:
		return "select"
	case InstrAlloc:
		return "alloc"
	case InstrGEP:
		return "gep"
	case InstrCallDirect:
		return "call"
	case InstrCallIndirect:
		return "call.indirect"
	case InstrThrow:
		return "throw"
	default:
		return "invalid"
	}
}

// Instr represents one MIR instruction. Dest is NoRegID for instructions
// that produce no value (Store, Throw, void calls).
type Instr struct {
	Kind InstrKind
	Dest RegID
	Type types.TypeID // type of Dest (or stored value for Store)
	Span source.Span

	Const        ConstInstr
	Copy         CopyInstr
	Load         LoadInstr
	Store        StoreInstr
	Bin          BinOpInstr
	Un           UnOpInstr
	Cmp          CmpInstr
	Cast         CastInstr
	Select       SelectInstr
	Alloc        AllocInstr
	GEP          GEPInstr
	CallDirect   CallDirectInstr
	CallIndirect CallIndirectInstr
	Throw        ThrowInstr
}

// ConstKind distinguishes constant payload representations.
type ConstKind uint8

const (
	// ConstInt represents an integer constant.
	ConstInt ConstKind = iota
	// ConstFloat represents a float constant.
	ConstFloat
	// ConstBool represents a boolean constant.
	ConstBool
	// ConstString represents a string constant.
	ConstString
	// ConstNull represents the null constant.
	ConstNull
	// ConstFunc represents a function reference constant.
	ConstFunc
)

// ConstInstr materializes a constant value.
type ConstInstr struct {
	Kind     ConstKind
	IntVal   int64
	FloatVal float64
	BoolVal  bool
	StrVal   source.StringID
	FuncVal  FuncID
}

// CopyInstr copies Src into Dest.
type CopyInstr struct {
	Src RegID
}

// LoadInstr reads the value at Ptr.
type LoadInstr struct {
	Ptr RegID
}

// StoreInstr writes Value to the location at Ptr.
type StoreInstr struct {
	Ptr   RegID
	Value RegID
}

// BinOpInstr applies Op to Lhs and Rhs. Integer ops use wrapping
// semantics.
type BinOpInstr struct {
	Op  types.BinaryOp
	Lhs RegID
	Rhs RegID
}

// UnOpInstr applies Op to Operand.
type UnOpInstr struct {
	Op      types.UnaryOp
	Operand RegID
}

// CmpInstr compares Lhs and Rhs with a comparison operator, yielding Bool.
type CmpInstr struct {
	Op  types.BinaryOp
	Lhs RegID
	Rhs RegID
}

// CastInstr converts Value from From to the instruction's result type.
type CastInstr struct {
	Value RegID
	From  types.TypeID
}

// SelectInstr picks Then when Cond is true, Else otherwise.
type SelectInstr struct {
	Cond RegID
	Then RegID
	Else RegID
}

// AllocInstr allocates storage for Elem (Count elements when Count is a
// valid register, a single value otherwise). Dest holds the address.
type AllocInstr struct {
	Elem  types.TypeID
	Count RegID // NoRegID for a scalar allocation
}

// GEPInstr computes the address of an element/field reached from Base
// through an ordered index chain, preserving aggregate layout.
type GEPInstr struct {
	Base    RegID
	Indexes []RegID
	Elem    types.TypeID
}

// CallDirectInstr calls Target with Args. Dest is NoRegID when the result
// is discarded. Tail is set by the tail-call marking pass only when the
// call result is the returned value of the enclosing function.
type CallDirectInstr struct {
	Target   FuncID
	Args     []RegID
	TypeArgs []types.TypeID
	Tail     bool
}

// CallIndirectInstr calls through the function pointer in Fn.
type CallIndirectInstr struct {
	Fn   RegID
	Args []RegID
	Tail bool
}

// ThrowInstr raises the exception value in Value. The enclosing block's
// terminator routes control to the active handler (or unwinds).
type ThrowInstr struct {
	Value RegID
}

// HasSideEffects reports whether the instruction must be retained even when
// its result is unused.
func (in *Instr) HasSideEffects() bool {
	switch in.Kind {
	case InstrStore, InstrCallDirect, InstrCallIndirect, InstrThrow, InstrAlloc:
		return true
	default:
		return false
	}
}

// CanTrap reports whether executing the instruction may fault on some
// operand values (divisions and remainders). LICM refuses to hoist these.
func (in *Instr) CanTrap() bool {
	if in.Kind != InstrBinOp {
		return false
	}
	return in.Bin.Op == types.OpDiv || in.Bin.Op == types.OpMod
}

// Uses appends every register the instruction reads to buf and returns it.
func (in *Instr) Uses(buf []RegID) []RegID {
	switch in.Kind {
	case InstrCopy:
		buf = append(buf, in.Copy.Src)
	case InstrLoad:
		buf = append(buf, in.Load.Ptr)
	case InstrStore:
		buf = append(buf, in.Store.Ptr, in.Store.Value)
	case InstrBinOp:
		buf = append(buf, in.Bin.Lhs, in.Bin.Rhs)
	case InstrUnOp:
		buf = append(buf, in.Un.Operand)
	case InstrCmp:
		buf = append(buf, in.Cmp.Lhs, in.Cmp.Rhs)
	case InstrCast:
		buf = append(buf, in.Cast.Value)
	case InstrSelect:
		buf = append(buf, in.Select.Cond, in.Select.Then, in.Select.Else)
	case InstrAlloc:
		if in.Alloc.Count.IsValid() {
			buf = append(buf, in.Alloc.Count)
		}
	case InstrGEP:
		buf = append(buf, in.GEP.Base)
		buf = append(buf, in.GEP.Indexes...)
	case InstrCallDirect:
		buf = append(buf, in.CallDirect.Args...)
	case InstrCallIndirect:
		buf = append(buf, in.CallIndirect.Fn)
		buf = append(buf, in.CallIndirect.Args...)
	case InstrThrow:
		buf = append(buf, in.Throw.Value)
	}
	return buf
}

// ReplaceUses rewrites every read of old to new in place. Definitions are
// not touched.
func (in *Instr) ReplaceUses(old, new RegID) {
	sub := func(r *RegID) {
		if *r == old {
			*r = new
		}
	}
	switch in.Kind {
	case InstrCopy:
		sub(&in.Copy.Src)
	case InstrLoad:
		sub(&in.Load.Ptr)
	case InstrStore:
		sub(&in.Store.Ptr)
		sub(&in.Store.Value)
	case InstrBinOp:
		sub(&in.Bin.Lhs)
		sub(&in.Bin.Rhs)
	case InstrUnOp:
		sub(&in.Un.Operand)
	case InstrCmp:
		sub(&in.Cmp.Lhs)
		sub(&in.Cmp.Rhs)
	case InstrCast:
		sub(&in.Cast.Value)
	case InstrSelect:
		sub(&in.Select.Cond)
		sub(&in.Select.Then)
		sub(&in.Select.Else)
	case InstrAlloc:
		if in.Alloc.Count.IsValid() {
			sub(&in.Alloc.Count)
		}
	case InstrGEP:
		sub(&in.GEP.Base)
		for i := range in.GEP.Indexes {
			sub(&in.GEP.Indexes[i])
		}
	case InstrCallDirect:
		for i := range in.CallDirect.Args {
			sub(&in.CallDirect.Args[i])
		}
	case InstrCallIndirect:
		sub(&in.CallIndirect.Fn)
		for i := range in.CallIndirect.Args {
			sub(&in.CallIndirect.Args[i])
		}
	case InstrThrow:
		sub(&in.Throw.Value)
	}
}
