package tast

import (
	"rayzor/internal/source"
	"rayzor/internal/symbols"
	"rayzor/internal/types"
)

// Builder provides convenience constructors over a Module's arenas. The
// type checker is the primary producer; tests use it to assemble small
// typed trees by hand.
type Builder struct {
	Module *Module
	Types  *types.Interner
}

// NewBuilder wraps a module and type interner.
func NewBuilder(m *Module, ti *types.Interner) *Builder {
	return &Builder{Module: m, Types: ti}
}

// IntLit allocates an integer literal of the interner's int type.
func (b *Builder) IntLit(v int64, span source.Span) ExprID {
	payload := b.Module.Exprs.Lits.Allocate(LitExpr{Kind: LitInt, IntVal: v})
	return b.Module.Exprs.New(Expr{
		Kind:    ExprLit,
		Type:    b.Types.Builtins().Int,
		Span:    span,
		Meta:    ExprMeta{Constant: true, Complexity: 1},
		Payload: PayloadID(payload),
	})
}

// FloatLit allocates a float literal.
func (b *Builder) FloatLit(v float64, span source.Span) ExprID {
	payload := b.Module.Exprs.Lits.Allocate(LitExpr{Kind: LitFloat, FloatVal: v})
	return b.Module.Exprs.New(Expr{
		Kind:    ExprLit,
		Type:    b.Types.Builtins().Float,
		Span:    span,
		Meta:    ExprMeta{Constant: true, Complexity: 1},
		Payload: PayloadID(payload),
	})
}

// BoolLit allocates a boolean literal.
func (b *Builder) BoolLit(v bool, span source.Span) ExprID {
	payload := b.Module.Exprs.Lits.Allocate(LitExpr{Kind: LitBool, BoolVal: v})
	return b.Module.Exprs.New(Expr{
		Kind:    ExprLit,
		Type:    b.Types.Builtins().Bool,
		Span:    span,
		Meta:    ExprMeta{Constant: true, Complexity: 1},
		Payload: PayloadID(payload),
	})
}

// StringLit allocates a string literal.
func (b *Builder) StringLit(s source.StringID, span source.Span) ExprID {
	payload := b.Module.Exprs.Lits.Allocate(LitExpr{Kind: LitString, StrVal: s})
	return b.Module.Exprs.New(Expr{
		Kind:    ExprLit,
		Type:    b.Types.Builtins().String,
		Span:    span,
		Meta:    ExprMeta{Constant: true, Complexity: 1},
		Payload: PayloadID(payload),
	})
}

// Null allocates a null literal of the given (optional) type.
func (b *Builder) Null(ty types.TypeID, span source.Span) ExprID {
	return b.Module.Exprs.New(Expr{
		Kind: ExprNull,
		Type: ty,
		Span: span,
		Meta: ExprMeta{Constant: true, Complexity: 1},
	})
}

// VarRef allocates a reference to a resolved symbol with the given type.
func (b *Builder) VarRef(sym symbols.SymbolID, ty types.TypeID, span source.Span) ExprID {
	payload := b.Module.Exprs.VarRefs.Allocate(VarRefExpr{Sym: sym})
	return b.Module.Exprs.New(Expr{
		Kind:    ExprVarRef,
		Type:    ty,
		Span:    span,
		Meta:    ExprMeta{Complexity: 1},
		Payload: PayloadID(payload),
	})
}

// Binary allocates a binary expression of the given result type.
func (b *Builder) Binary(op types.BinaryOp, lhs, rhs ExprID, ty types.TypeID, span source.Span) ExprID {
	payload := b.Module.Exprs.Binaries.Allocate(BinaryExpr{Op: op, Left: lhs, Right: rhs})
	lm, rm := b.exprMeta(lhs), b.exprMeta(rhs)
	return b.Module.Exprs.New(Expr{
		Kind: ExprBinary,
		Type: ty,
		Span: span,
		Meta: ExprMeta{
			Constant:       lm.Constant && rm.Constant,
			HasSideEffects: lm.HasSideEffects || rm.HasSideEffects,
			CanThrow:       lm.CanThrow || rm.CanThrow,
			Complexity:     lm.Complexity + rm.Complexity + 1,
		},
		Payload: PayloadID(payload),
	})
}

// Unary allocates a unary expression of the given result type.
func (b *Builder) Unary(op types.UnaryOp, operand ExprID, ty types.TypeID, span source.Span) ExprID {
	payload := b.Module.Exprs.Unaries.Allocate(UnaryExpr{Op: op, Operand: operand})
	om := b.exprMeta(operand)
	return b.Module.Exprs.New(Expr{
		Kind: ExprUnary,
		Type: ty,
		Span: span,
		Meta: ExprMeta{
			Constant:       om.Constant,
			HasSideEffects: om.HasSideEffects,
			CanThrow:       om.CanThrow,
			Complexity:     om.Complexity + 1,
		},
		Payload: PayloadID(payload),
	})
}

// Call allocates a call expression. Sym names the resolved callee when it is
// a plain function symbol.
func (b *Builder) Call(callee ExprID, sym symbols.SymbolID, args []ExprID, ty types.TypeID, span source.Span) ExprID {
	payload := b.Module.Exprs.Calls.Allocate(CallExpr{Callee: callee, Sym: sym, Args: args})
	return b.Module.Exprs.New(Expr{
		Kind:    ExprCall,
		Type:    ty,
		Span:    span,
		Meta:    ExprMeta{HasSideEffects: true, CanThrow: true, Complexity: 4},
		Payload: PayloadID(payload),
	})
}

// Assign allocates an assignment expression yielding the assigned value.
func (b *Builder) Assign(target, value ExprID, span source.Span) ExprID {
	payload := b.Module.Exprs.Assigns.Allocate(AssignExpr{Target: target, Value: value})
	ty := types.NoTypeID
	if v := b.Module.Exprs.Get(value); v != nil {
		ty = v.Type
	}
	return b.Module.Exprs.New(Expr{
		Kind:    ExprAssign,
		Type:    ty,
		Span:    span,
		Meta:    ExprMeta{HasSideEffects: true, Complexity: 2},
		Payload: PayloadID(payload),
	})
}

// ExprStmt wraps an expression into a statement.
func (b *Builder) ExprStmt(expr ExprID, span source.Span) StmtID {
	payload := b.Module.Stmts.Exprs.Allocate(ExprStmt{Expr: expr})
	return b.Module.Stmts.New(StmtExpr, span, PayloadID(payload))
}

// VarDecl declares a local binding.
func (b *Builder) VarDecl(sym symbols.SymbolID, ty types.TypeID, init ExprID, mut bool, span source.Span) StmtID {
	payload := b.Module.Stmts.VarDecls.Allocate(VarDeclStmt{Sym: sym, Type: ty, Init: init, IsMut: mut})
	return b.Module.Stmts.New(StmtVarDecl, span, PayloadID(payload))
}

// AssignStmt stores value into target as a statement.
func (b *Builder) AssignStmt(target, value ExprID, span source.Span) StmtID {
	payload := b.Module.Stmts.Assigns.Allocate(AssignStmt{Target: target, Value: value})
	return b.Module.Stmts.New(StmtAssign, span, PayloadID(payload))
}

// If allocates a conditional statement. Pass NoStmtID as alt when there is
// no else branch.
func (b *Builder) If(cond ExprID, then, alt StmtID, span source.Span) StmtID {
	payload := b.Module.Stmts.Ifs.Allocate(IfStmt{Cond: cond, Then: then, Else: alt})
	return b.Module.Stmts.New(StmtIf, span, PayloadID(payload))
}

// While allocates a while loop.
func (b *Builder) While(cond ExprID, body StmtID, span source.Span) StmtID {
	payload := b.Module.Stmts.Whiles.Allocate(WhileStmt{Cond: cond, Body: body})
	return b.Module.Stmts.New(StmtWhile, span, PayloadID(payload))
}

// LabeledWhile allocates a while loop that break/continue can name.
func (b *Builder) LabeledWhile(label source.StringID, cond ExprID, body StmtID, span source.Span) StmtID {
	payload := b.Module.Stmts.Whiles.Allocate(WhileStmt{Cond: cond, Body: body, Label: label})
	return b.Module.Stmts.New(StmtWhile, span, PayloadID(payload))
}

// ForClassic allocates a C-style for loop.
func (b *Builder) ForClassic(init StmtID, cond ExprID, update, body StmtID, span source.Span) StmtID {
	payload := b.Module.Stmts.ClassicFors.Allocate(ForClassicStmt{Init: init, Cond: cond, Update: update, Body: body})
	return b.Module.Stmts.New(StmtForClassic, span, PayloadID(payload))
}

// ForIn allocates an iterator for-in loop.
func (b *Builder) ForIn(key, value symbols.SymbolID, iterable ExprID, body StmtID, span source.Span) StmtID {
	payload := b.Module.Stmts.ForIns.Allocate(ForInStmt{KeySym: key, ValueSym: value, Iterable: iterable, Body: body})
	return b.Module.Stmts.New(StmtForIn, span, PayloadID(payload))
}

// Return allocates a return statement; pass NoExprID for a bare return.
func (b *Builder) Return(value ExprID, span source.Span) StmtID {
	payload := b.Module.Stmts.Returns.Allocate(ReturnStmt{Value: value})
	return b.Module.Stmts.New(StmtReturn, span, PayloadID(payload))
}

// Throw allocates a throw statement.
func (b *Builder) Throw(value ExprID, span source.Span) StmtID {
	payload := b.Module.Stmts.Throws.Allocate(ThrowStmt{Value: value})
	return b.Module.Stmts.New(StmtThrow, span, PayloadID(payload))
}

// Try allocates a try statement.
func (b *Builder) Try(body StmtID, catches []CatchClause, finally StmtID, span source.Span) StmtID {
	payload := b.Module.Stmts.Tries.Allocate(TryStmt{Body: body, Catches: catches, Finally: finally})
	return b.Module.Stmts.New(StmtTry, span, PayloadID(payload))
}

// Switch allocates a switch statement.
func (b *Builder) Switch(disc ExprID, cases []SwitchCase, def StmtID, span source.Span) StmtID {
	payload := b.Module.Stmts.Switches.Allocate(SwitchStmt{Disc: disc, Cases: cases, Default: def})
	return b.Module.Stmts.New(StmtSwitch, span, PayloadID(payload))
}

// PatternMatch allocates a pattern-match statement.
func (b *Builder) PatternMatch(scrutinee ExprID, arms []MatchArm, def StmtID, exhaustive bool, span source.Span) StmtID {
	payload := b.Module.Stmts.Matches.Allocate(PatternMatchStmt{Scrutinee: scrutinee, Arms: arms, Default: def, Exhaustive: exhaustive})
	return b.Module.Stmts.New(StmtPatternMatch, span, PayloadID(payload))
}

// Break allocates a break statement.
func (b *Builder) Break(label source.StringID, span source.Span) StmtID {
	payload := b.Module.Stmts.Breaks.Allocate(BreakStmt{Label: label})
	return b.Module.Stmts.New(StmtBreak, span, PayloadID(payload))
}

// Continue allocates a continue statement.
func (b *Builder) Continue(label source.StringID, span source.Span) StmtID {
	payload := b.Module.Stmts.Continues.Allocate(ContinueStmt{Label: label})
	return b.Module.Stmts.New(StmtContinue, span, PayloadID(payload))
}

// Block allocates a braced statement list.
func (b *Builder) Block(scope symbols.ScopeID, stmts []StmtID, span source.Span) StmtID {
	payload := b.Module.Stmts.Blocks.Allocate(BlockStmt{Scope: scope, Stmts: stmts})
	return b.Module.Stmts.New(StmtBlock, span, PayloadID(payload))
}

// MacroExpansion allocates a pre-expanded macro statement.
func (b *Builder) MacroExpansion(macro symbols.SymbolID, callSpan source.Span, args []ExprID, expanded []StmtID) StmtID {
	payload := b.Module.Stmts.MacroExpands.Allocate(MacroExpansionStmt{Macro: macro, CallSpan: callSpan, Args: args, Expanded: expanded})
	return b.Module.Stmts.New(StmtMacroExpansion, callSpan, PayloadID(payload))
}

func (b *Builder) exprMeta(id ExprID) ExprMeta {
	if e := b.Module.Exprs.Get(id); e != nil {
		return e.Meta
	}
	return ExprMeta{}
}
