package optpass

import (
	"fmt"
	"strings"

	"rayzor/internal/mir"
	"rayzor/internal/types"
)

// CommonSubexpressionElimination is the local (per-block) variant: within
// one block, instructions with an identical normalized key reuse the first
// register producing that value. Loads, stores, calls, and allocations are
// never keyed.
type CommonSubexpressionElimination struct{}

// NewCommonSubexpressionElimination constructs the pass.
func NewCommonSubexpressionElimination() *CommonSubexpressionElimination {
	return &CommonSubexpressionElimination{}
}

// Name implements Pass.
func (p *CommonSubexpressionElimination) Name() string { return "cse" }

// RunOnModule implements Pass.
func (p *CommonSubexpressionElimination) RunOnModule(m *mir.Module) (Result, error) {
	res := eachFunc(m, p.runOnFunc)
	return res, nil
}

func (p *CommonSubexpressionElimination) runOnFunc(f *mir.Func) Result {
	var res Result
	repl := make(map[mir.RegID]mir.RegID)

	f.EachBlock(func(b *mir.Block) {
		seen := make(map[string]mir.RegID)
		kept := b.Instrs[:0]
		for i := range b.Instrs {
			in := b.Instrs[i]
			// Keys reflect already-recorded replacements so chains collapse
			// in one sweep.
			for old, new := range repl {
				in.ReplaceUses(old, new)
			}
			key, ok := exprKey(&in)
			if !ok {
				kept = append(kept, in)
				continue
			}
			if first, dup := seen[key]; dup && in.Dest.IsValid() {
				repl[in.Dest] = first
				res.EliminatedInstrs++
				res.bump("cse_hits", 1)
				res.Modified = true
				continue
			}
			seen[key] = in.Dest
			kept = append(kept, in)
		}
		b.Instrs = kept
	})

	replaceAllUses(f, repl)
	return res
}

// exprKey builds the value key of a pure instruction; commutative
// operators order their operands so `a+b` and `b+a` collide.
func exprKey(in *mir.Instr) (string, bool) {
	switch in.Kind {
	case mir.InstrConst:
		return fmt.Sprintf("const:%s", constKey(&in.Const)), true
	case mir.InstrBinOp:
		a, b := in.Bin.Lhs, in.Bin.Rhs
		if isCommutative(in.Bin.Op) && b < a {
			a, b = b, a
		}
		return fmt.Sprintf("bin:%d:%d:%d", in.Bin.Op, a, b), true
	case mir.InstrCmp:
		a, b := in.Cmp.Lhs, in.Cmp.Rhs
		if (in.Cmp.Op == types.OpEq || in.Cmp.Op == types.OpNe) && b < a {
			a, b = b, a
		}
		return fmt.Sprintf("cmp:%d:%d:%d", in.Cmp.Op, a, b), true
	case mir.InstrUnOp:
		return fmt.Sprintf("un:%d:%d", in.Un.Op, in.Un.Operand), true
	case mir.InstrCast:
		return fmt.Sprintf("cast:%d:%d:%d", in.Cast.Value, in.Cast.From, in.Type), true
	case mir.InstrSelect:
		return fmt.Sprintf("sel:%d:%d:%d", in.Select.Cond, in.Select.Then, in.Select.Else), true
	case mir.InstrGEP:
		var sb strings.Builder
		fmt.Fprintf(&sb, "gep:%d:%d", in.GEP.Base, in.GEP.Elem)
		for _, idx := range in.GEP.Indexes {
			fmt.Fprintf(&sb, ":%d", idx)
		}
		return sb.String(), true
	default:
		// Loads, stores, calls, allocations, throws: never CSE'd.
		return "", false
	}
}

func constKey(c *mir.ConstInstr) string {
	switch c.Kind {
	case mir.ConstInt:
		return fmt.Sprintf("i%d", c.IntVal)
	case mir.ConstFloat:
		return fmt.Sprintf("f%x", c.FloatVal)
	case mir.ConstBool:
		return fmt.Sprintf("b%t", c.BoolVal)
	case mir.ConstString:
		return fmt.Sprintf("s%d", c.StrVal)
	case mir.ConstNull:
		return "null"
	case mir.ConstFunc:
		return fmt.Sprintf("fn%d", c.FuncVal)
	default:
		return "?"
	}
}

func isCommutative(op types.BinaryOp) bool {
	switch op {
	case types.OpAdd, types.OpMul, types.OpBitAnd, types.OpBitOr, types.OpBitXor:
		return true
	default:
		return false
	}
}
