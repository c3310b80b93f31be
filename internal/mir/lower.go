package mir

import (
	"fmt"

	"rayzor/internal/diag"
	"rayzor/internal/source"
	"rayzor/internal/symbols"
	"rayzor/internal/tast"
	"rayzor/internal/types"
)

// GraphError reports a structural problem found while building a CFG:
// either an invalid TAST shape at a known location or an internal
// inconsistency in the builder itself.
type GraphError struct {
	Code diag.Code
	Span source.Span
	Msg  string
}

func (e *GraphError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code.ID(), e.Msg)
}

func invalidTAST(code diag.Code, span source.Span, format string, args ...any) *GraphError {
	return &GraphError{Code: code, Span: span, Msg: fmt.Sprintf(format, args...)}
}

func internalErr(span source.Span, format string, args ...any) *GraphError {
	return &GraphError{Code: diag.LowerInternalError, Span: span, Msg: fmt.Sprintf(format, args...)}
}

// loopFrame is one live loop's break/continue targets, with the loop's
// optional label for targeted jumps.
type loopFrame struct {
	label          source.StringID
	breakTarget    BlockID
	continueTarget BlockID
}

// excFrame is one live exception-handler region during lowering.
type excFrame struct {
	excTypes []types.TypeID
	handler  BlockID
	binding  RegID
}

// Lowerer lowers one typed function at a time into MIR. Block and register
// allocators reset per function; break/continue/exception targets are
// push/pop stacks threaded through statement traversal.
type Lowerer struct {
	Types   *types.Interner
	Syms    *symbols.Table
	Mod     *tast.Module
	Out     *Module
	Reports diag.Reporter

	// CollectStatistics tolerates unreachable blocks in the finished CFG
	// instead of failing validation, so diagnostics tooling can inspect
	// them.
	CollectStatistics bool

	fn  *Func
	tfn *tast.Func
	cur *Block

	loopStack []loopFrame
	excStack  []excFrame
	loopDepth uint32

	ssa ssaState
}

// NewLowerer creates a lowerer for one typed module.
func NewLowerer(ti *types.Interner, syms *symbols.Table, mod *tast.Module, reports diag.Reporter) *Lowerer {
	return &Lowerer{
		Types:   ti,
		Syms:    syms,
		Mod:     mod,
		Out:     NewModule(mod.Name),
		Reports: reports,
	}
}

// LowerModule lowers every function of the typed module. A construction
// error aborts only the offending function; the remaining functions are
// still lowered. Returns the MIR module and the per-function errors.
func (lo *Lowerer) LowerModule() (*Module, []error) {
	var errs []error
	for _, fn := range lo.Mod.Funcs {
		if _, err := lo.LowerFunc(fn); err != nil {
			errs = append(errs, fmt.Errorf("function %d: %w", fn.ID, err))
			lo.report(err)
		}
	}
	return lo.Out, errs
}

func (lo *Lowerer) report(err error) {
	if lo.Reports == nil {
		return
	}
	if ge, ok := err.(*GraphError); ok {
		lo.Reports.Report(ge.Code, diag.SevError, ge.Span, ge.Msg, nil, nil)
		return
	}
	lo.Reports.Report(diag.LowerInternalError, diag.SevError, source.Span{}, err.Error(), nil, nil)
}

// LowerFunc lowers one typed function and registers it in the output
// module under the same id it carries in the typed module, so call sites
// can name functions that lower later (or fail to lower at all).
func (lo *Lowerer) LowerFunc(tfn *tast.Func) (*Func, error) {
	lo.fn = NewFunc(tfn.Sym, tfn.Name, tfn.Result)
	lo.fn.ID = FuncID(tfn.ID)
	lo.fn.Span = tfn.Span
	lo.tfn = tfn
	lo.loopStack = lo.loopStack[:0]
	lo.excStack = lo.excStack[:0]
	lo.loopDepth = 0
	lo.ssa = newSSAState()

	entry := lo.newBlock()
	lo.fn.Entry = entry.ID
	lo.sealBlock(entry.ID)
	lo.startBlock(entry)

	for _, p := range tfn.Params {
		reg := lo.fn.NewReg(p.Type)
		lo.fn.Params = append(lo.fn.Params, Param{Reg: reg, Type: p.Type, Name: p.Name})
		lo.ssa.declare(p.Sym, p.Type)
		lo.ssa.write(p.Sym, entry.ID, reg)
	}

	exits, err := lo.lowerStmt(tfn.Body)
	if err != nil {
		return nil, err
	}
	if !exits {
		// Implicit return for functions falling off the end.
		lo.terminate(Terminator{Kind: TermReturn})
	}

	lo.sealRemaining()
	lo.removeTrivialPhis()
	lo.fn.RecomputePreds()

	if !lo.CollectStatistics {
		dropUnreachable(lo.fn)
	}

	lo.Out.InsertFunc(lo.fn)
	fn := lo.fn
	lo.fn, lo.tfn, lo.cur = nil, nil, nil
	return fn, nil
}

// newBlock allocates a block, tags it with the current loop depth, and
// registers it under the innermost live exception frame.
func (lo *Lowerer) newBlock() *Block {
	b := lo.fn.NewBlock()
	b.Meta.LoopDepth = lo.loopDepth
	if n := len(lo.excStack); n > 0 {
		top := lo.excStack[n-1]
		lo.fn.ExcHandlers[b.ID] = ExcHandler{ExcTypes: top.excTypes, Handler: top.handler, Binding: top.binding}
	}
	return b
}

func (lo *Lowerer) startBlock(b *Block) {
	lo.cur = b
}

// terminate writes the current block's terminator. A block that already
// has a terminator keeps it; the new one is dropped.
func (lo *Lowerer) terminate(t Terminator) {
	if lo.cur != nil && lo.cur.Term.Kind == TermNone {
		lo.cur.Term = t
	}
}

func (lo *Lowerer) emit(in Instr) RegID {
	lo.cur.Instrs = append(lo.cur.Instrs, in)
	return in.Dest
}

func (lo *Lowerer) emitConst(c ConstInstr, ty types.TypeID, span source.Span) RegID {
	dest := lo.fn.NewReg(ty)
	return lo.emit(Instr{Kind: InstrConst, Dest: dest, Type: ty, Span: span, Const: c})
}

// dropUnreachable removes blocks a finished build left unreachable (e.g.
// merge blocks whose every predecessor exits) and rebuilds predecessors.
func dropUnreachable(f *Func) {
	reachable := ReachableBlocks(f)
	f.EachBlock(func(b *Block) {
		if _, ok := reachable[b.ID]; !ok {
			f.RemoveBlock(b.ID)
			delete(f.ExcHandlers, b.ID)
		}
	})
	f.RecomputePreds()
}
