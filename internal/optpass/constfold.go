package optpass

import (
	"math"

	"rayzor/internal/mir"
	"rayzor/internal/types"
)

// ConstantFolding rewrites BinOp/Cmp/UnOp instructions whose operands are
// all known constants into Const instructions. Integer arithmetic wraps;
// division and modulo by zero are left alone; float arithmetic follows
// IEEE-754. Folded results feed later folds, so one sweep per manager
// iteration converges.
type ConstantFolding struct{}

// NewConstantFolding constructs the pass.
func NewConstantFolding() *ConstantFolding { return &ConstantFolding{} }

// Name implements Pass.
func (p *ConstantFolding) Name() string { return "constfold" }

// RunOnModule implements Pass.
func (p *ConstantFolding) RunOnModule(m *mir.Module) (Result, error) {
	res := eachFunc(m, p.runOnFunc)
	return res, nil
}

func (p *ConstantFolding) runOnFunc(f *mir.Func) Result {
	var res Result

	consts := make(map[mir.RegID]mir.ConstInstr)
	f.EachBlock(func(b *mir.Block) {
		for i := range b.Instrs {
			if b.Instrs[i].Kind == mir.InstrConst {
				consts[b.Instrs[i].Dest] = b.Instrs[i].Const
			}
		}
	})

	// Dominator-tree preorder visits each definition before the uses it
	// dominates, so chains fold in a single sweep.
	dom := mir.BuildDomTree(f)
	for _, id := range dom.Preorder() {
		b := f.Block(id)
		if b == nil {
			continue
		}
		for i := range b.Instrs {
			in := &b.Instrs[i]
			var folded mir.ConstInstr
			var ok bool
			switch in.Kind {
			case mir.InstrBinOp:
				folded, ok = foldBinOp(in.Bin.Op, consts, in.Bin.Lhs, in.Bin.Rhs)
			case mir.InstrCmp:
				folded, ok = foldCmp(in.Cmp.Op, consts, in.Cmp.Lhs, in.Cmp.Rhs)
			case mir.InstrUnOp:
				folded, ok = foldUnOp(in.Un.Op, consts, in.Un.Operand)
			default:
				continue
			}
			if !ok {
				continue
			}
			*in = mir.Instr{Kind: mir.InstrConst, Dest: in.Dest, Type: in.Type, Span: in.Span, Const: folded}
			consts[in.Dest] = folded
			res.Modified = true
			res.bump("folded", 1)
		}
	}
	return res
}

func foldBinOp(op types.BinaryOp, consts map[mir.RegID]mir.ConstInstr, lhs, rhs mir.RegID) (mir.ConstInstr, bool) {
	l, lok := consts[lhs]
	r, rok := consts[rhs]
	if !lok || !rok {
		return mir.ConstInstr{}, false
	}
	if l.Kind == mir.ConstInt && r.Kind == mir.ConstInt {
		return foldIntBinOp(op, l.IntVal, r.IntVal)
	}
	if l.Kind == mir.ConstFloat && r.Kind == mir.ConstFloat {
		return foldFloatBinOp(op, l.FloatVal, r.FloatVal)
	}
	if l.Kind == mir.ConstBool && r.Kind == mir.ConstBool {
		switch op {
		case types.OpBitAnd:
			return mir.ConstInstr{Kind: mir.ConstBool, BoolVal: l.BoolVal && r.BoolVal}, true
		case types.OpBitOr:
			return mir.ConstInstr{Kind: mir.ConstBool, BoolVal: l.BoolVal || r.BoolVal}, true
		case types.OpBitXor:
			return mir.ConstInstr{Kind: mir.ConstBool, BoolVal: l.BoolVal != r.BoolVal}, true
		}
	}
	return mir.ConstInstr{}, false
}

// foldIntBinOp folds with wrapping two's-complement semantics; Go's int64
// arithmetic already wraps.
func foldIntBinOp(op types.BinaryOp, a, b int64) (mir.ConstInstr, bool) {
	switch op {
	case types.OpAdd:
		return intConst(a + b), true
	case types.OpSub:
		return intConst(a - b), true
	case types.OpMul:
		return intConst(a * b), true
	case types.OpDiv:
		if b == 0 {
			return mir.ConstInstr{}, false
		}
		if a == math.MinInt64 && b == -1 {
			// Wraps rather than trapping.
			return intConst(math.MinInt64), true
		}
		return intConst(a / b), true
	case types.OpMod:
		if b == 0 {
			return mir.ConstInstr{}, false
		}
		if a == math.MinInt64 && b == -1 {
			return intConst(0), true
		}
		return intConst(a % b), true
	case types.OpBitAnd:
		return intConst(a & b), true
	case types.OpBitOr:
		return intConst(a | b), true
	case types.OpBitXor:
		return intConst(a ^ b), true
	case types.OpShl:
		return intConst(a << (uint64(b) & 63)), true
	case types.OpShr:
		return intConst(a >> (uint64(b) & 63)), true
	default:
		return mir.ConstInstr{}, false
	}
}

func foldFloatBinOp(op types.BinaryOp, a, b float64) (mir.ConstInstr, bool) {
	switch op {
	case types.OpAdd:
		return floatConst(a + b), true
	case types.OpSub:
		return floatConst(a - b), true
	case types.OpMul:
		return floatConst(a * b), true
	case types.OpDiv:
		// IEEE-754: division by zero yields an infinity or NaN.
		return floatConst(a / b), true
	case types.OpMod:
		return floatConst(math.Mod(a, b)), true
	default:
		return mir.ConstInstr{}, false
	}
}

func foldCmp(op types.BinaryOp, consts map[mir.RegID]mir.ConstInstr, lhs, rhs mir.RegID) (mir.ConstInstr, bool) {
	l, lok := consts[lhs]
	r, rok := consts[rhs]
	if !lok || !rok {
		return mir.ConstInstr{}, false
	}
	if l.Kind == mir.ConstInt && r.Kind == mir.ConstInt {
		return cmpResult(op, compareInt(l.IntVal, r.IntVal))
	}
	if l.Kind == mir.ConstFloat && r.Kind == mir.ConstFloat {
		// NaN compares unordered: only Ne is true.
		if math.IsNaN(l.FloatVal) || math.IsNaN(r.FloatVal) {
			return mir.ConstInstr{Kind: mir.ConstBool, BoolVal: op == types.OpNe}, true
		}
		return cmpResult(op, compareFloat(l.FloatVal, r.FloatVal))
	}
	if l.Kind == mir.ConstBool && r.Kind == mir.ConstBool {
		switch op {
		case types.OpEq:
			return mir.ConstInstr{Kind: mir.ConstBool, BoolVal: l.BoolVal == r.BoolVal}, true
		case types.OpNe:
			return mir.ConstInstr{Kind: mir.ConstBool, BoolVal: l.BoolVal != r.BoolVal}, true
		}
	}
	return mir.ConstInstr{}, false
}

func foldUnOp(op types.UnaryOp, consts map[mir.RegID]mir.ConstInstr, operand mir.RegID) (mir.ConstInstr, bool) {
	v, ok := consts[operand]
	if !ok {
		return mir.ConstInstr{}, false
	}
	switch op {
	case types.UnNeg:
		switch v.Kind {
		case mir.ConstInt:
			return intConst(-v.IntVal), true
		case mir.ConstFloat:
			return floatConst(-v.FloatVal), true
		}
	case types.UnNot:
		if v.Kind == mir.ConstBool {
			return mir.ConstInstr{Kind: mir.ConstBool, BoolVal: !v.BoolVal}, true
		}
	case types.UnBitNot:
		if v.Kind == mir.ConstInt {
			return intConst(^v.IntVal), true
		}
	}
	return mir.ConstInstr{}, false
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpResult(op types.BinaryOp, c int) (mir.ConstInstr, bool) {
	var v bool
	switch op {
	case types.OpEq:
		v = c == 0
	case types.OpNe:
		v = c != 0
	case types.OpLt:
		v = c < 0
	case types.OpLe:
		v = c <= 0
	case types.OpGt:
		v = c > 0
	case types.OpGe:
		v = c >= 0
	default:
		return mir.ConstInstr{}, false
	}
	return mir.ConstInstr{Kind: mir.ConstBool, BoolVal: v}, true
}

func intConst(v int64) mir.ConstInstr { return mir.ConstInstr{Kind: mir.ConstInt, IntVal: v} }
func floatConst(v float64) mir.ConstInstr {
	return mir.ConstInstr{Kind: mir.ConstFloat, FloatVal: v}
}
