package tast

import (
	"rayzor/internal/source"
	"rayzor/internal/symbols"
	"rayzor/internal/types"
)

// ExprKind enumerates the different kinds of typed expressions.
type ExprKind uint8

const (
	// ExprInvalid is the zero-value kind; it never appears in a valid tree.
	ExprInvalid ExprKind = iota
	// ExprLit represents a literal value.
	ExprLit
	// ExprVarRef represents a reference to a variable or parameter.
	ExprVarRef
	// ExprFieldAccess represents an instance field access.
	ExprFieldAccess
	// ExprStaticFieldAccess represents a static field access.
	ExprStaticFieldAccess
	// ExprArrayAccess represents an indexed array access.
	ExprArrayAccess
	// ExprArrayLit represents an array literal.
	ExprArrayLit
	// ExprObjectLit represents a struct/object literal.
	ExprObjectLit
	// ExprMapLit represents a map literal.
	ExprMapLit
	// ExprCall represents a function call.
	ExprCall
	// ExprMethodCall represents a method call with a receiver.
	ExprMethodCall
	// ExprBinary represents a binary operation.
	ExprBinary
	// ExprUnary represents a unary operation.
	ExprUnary
	// ExprCast represents a cast.
	ExprCast
	// ExprConditional represents a ternary conditional.
	ExprConditional
	// ExprAssign represents an assignment used as an expression.
	ExprAssign
	// ExprNew represents a constructor invocation.
	ExprNew
	// ExprThis represents the receiver of the enclosing method.
	ExprThis
	// ExprSuper represents the superclass receiver.
	ExprSuper
	// ExprIs represents a runtime type/nullability test.
	ExprIs
	// ExprNull represents the null literal.
	ExprNull
	// ExprPatternPlaceholder is legal only inside pattern-match arms and is
	// expanded during pattern-match lowering.
	ExprPatternPlaceholder
)

func (k ExprKind) String() string {
	switch k {
	case ExprLit:
		return "lit"
	case ExprVarRef:
		return "varref"
	case ExprFieldAccess:
		return "field"
	case ExprStaticFieldAccess:
		return "staticfield"
	case ExprArrayAccess:
		return "index"
	case ExprArrayLit:
		return "arraylit"
	case ExprObjectLit:
		return "objectlit"
	case ExprMapLit:
		return "maplit"
	case ExprCall:
		return "call"
	case ExprMethodCall:
		return "methodcall"
	case ExprBinary:
		return "binary"
	case ExprUnary:
		return "unary"
	case ExprCast:
		return "cast"
	case ExprConditional:
		return "conditional"
	case ExprAssign:
		return "assign"
	case ExprNew:
		return "new"
	case ExprThis:
		return "this"
	case ExprSuper:
		return "super"
	case ExprIs:
		return "is"
	case ExprNull:
		return "null"
	case ExprPatternPlaceholder:
		return "placeholder"
	default:
		return "invalid"
	}
}

// Expr represents a typed expression. Every node carries its resolved type,
// source location, usage mode, and lifetime variable; Payload indexes the
// per-kind payload arena.
type Expr struct {
	Kind     ExprKind
	Type     types.TypeID
	Span     source.Span
	Usage    Usage
	Lifetime types.LifetimeID
	Meta     ExprMeta
	Payload  PayloadID
}

// LitKind distinguishes literal payload representations.
type LitKind uint8

const (
	// LitInt represents an integer literal.
	LitInt LitKind = iota
	// LitFloat represents a float literal.
	LitFloat
	// LitBool represents a boolean literal.
	LitBool
	// LitString represents a string literal.
	LitString
	// LitChar represents a character literal.
	LitChar
)

// LitExpr represents a literal value.
type LitExpr struct {
	Kind     LitKind
	IntVal   int64
	FloatVal float64
	BoolVal  bool
	StrVal   source.StringID
	CharVal  rune
}

// VarRefExpr represents a resolved variable or parameter reference.
type VarRefExpr struct {
	Sym symbols.SymbolID
}

// FieldAccessExpr represents `object.field` with a resolved field symbol.
type FieldAccessExpr struct {
	Object ExprID
	Field  symbols.SymbolID
	Index  uint32 // field position inside the aggregate layout
}

// StaticFieldAccessExpr represents `Class.field` with no receiver value.
type StaticFieldAccessExpr struct {
	Owner types.TypeID
	Field symbols.SymbolID
}

// ArrayAccessExpr represents `array[index]`.
type ArrayAccessExpr struct {
	Array ExprID
	Index ExprID
}

// ArrayLitExpr represents `[e0, e1, ...]`.
type ArrayLitExpr struct {
	Elems []ExprID
}

// ObjectLitField pairs a field symbol with its initializer.
type ObjectLitField struct {
	Field symbols.SymbolID
	Index uint32
	Value ExprID
}

// ObjectLitExpr represents a struct literal allocated by field index.
type ObjectLitExpr struct {
	Fields []ObjectLitField
}

// MapLitEntry is one `key => value` pair of a map literal.
type MapLitEntry struct {
	Key   ExprID
	Value ExprID
}

// MapLitExpr represents `[k1 => v1, ...]`.
type MapLitExpr struct {
	Entries []MapLitEntry
}

// CallExpr represents a call. Callee resolving to a function symbol lowers
// to a direct call; anything else lowers to an indirect call through a
// function-pointer register.
type CallExpr struct {
	Callee   ExprID
	Sym      symbols.SymbolID // resolved function symbol, or NoSymbolID
	Args     []ExprID
	TypeArgs []types.TypeID
}

// MethodCallExpr represents `receiver.method(args)`. The receiver is
// lowered before the arguments.
type MethodCallExpr struct {
	Receiver ExprID
	Method   symbols.SymbolID
	Args     []ExprID
	TypeArgs []types.TypeID
	Virtual  bool
}

// BinaryExpr represents a binary operation, including the short-circuit
// logical forms which lower to control flow rather than a single
// instruction.
type BinaryExpr struct {
	Op    types.BinaryOp
	Left  ExprID
	Right ExprID
}

// UnaryExpr represents a unary operation.
type UnaryExpr struct {
	Op      types.UnaryOp
	Operand ExprID
}

// CastExpr represents `expr as Type`.
type CastExpr struct {
	Value  ExprID
	Target types.TypeID
}

// ConditionalExpr represents `cond ? then : else`.
type ConditionalExpr struct {
	Cond ExprID
	Then ExprID
	Else ExprID
}

// AssignExpr represents an assignment; as an expression it yields the
// assigned value.
type AssignExpr struct {
	Target ExprID
	Value  ExprID
}

// NewExpr represents `new Class(args)`.
type NewExpr struct {
	Class    types.TypeID
	Ctor     symbols.SymbolID
	Args     []ExprID
	TypeArgs []types.TypeID
}

// IsExpr represents `expr is Type` (including the nullability test form).
type IsExpr struct {
	Value  ExprID
	Target types.TypeID
}

// PatternPlaceholderExpr refers to a binding introduced by the enclosing
// pattern-match arm.
type PatternPlaceholderExpr struct {
	Pattern PatternID
	Binding symbols.SymbolID
}

// Exprs manages allocation of typed expressions and their payloads.
type Exprs struct {
	Arena        *Arena[Expr]
	Lits         *Arena[LitExpr]
	VarRefs      *Arena[VarRefExpr]
	Fields       *Arena[FieldAccessExpr]
	StaticFields *Arena[StaticFieldAccessExpr]
	Indexes      *Arena[ArrayAccessExpr]
	ArrayLits    *Arena[ArrayLitExpr]
	ObjectLits   *Arena[ObjectLitExpr]
	MapLits      *Arena[MapLitExpr]
	Calls        *Arena[CallExpr]
	MethodCalls  *Arena[MethodCallExpr]
	Binaries     *Arena[BinaryExpr]
	Unaries      *Arena[UnaryExpr]
	Casts        *Arena[CastExpr]
	Conditionals *Arena[ConditionalExpr]
	Assigns      *Arena[AssignExpr]
	News         *Arena[NewExpr]
	Iss          *Arena[IsExpr]
	Placeholders *Arena[PatternPlaceholderExpr]
}

// NewExprs creates the expression arenas with a shared capacity hint.
func NewExprs(capHint uint) *Exprs {
	if capHint == 0 {
		capHint = 1 << 8
	}
	return &Exprs{
		Arena:        NewArena[Expr](capHint),
		Lits:         NewArena[LitExpr](capHint),
		VarRefs:      NewArena[VarRefExpr](capHint),
		Fields:       NewArena[FieldAccessExpr](capHint),
		StaticFields: NewArena[StaticFieldAccessExpr](capHint / 4),
		Indexes:      NewArena[ArrayAccessExpr](capHint / 4),
		ArrayLits:    NewArena[ArrayLitExpr](capHint / 4),
		ObjectLits:   NewArena[ObjectLitExpr](capHint / 4),
		MapLits:      NewArena[MapLitExpr](capHint / 4),
		Calls:        NewArena[CallExpr](capHint),
		MethodCalls:  NewArena[MethodCallExpr](capHint / 2),
		Binaries:     NewArena[BinaryExpr](capHint),
		Unaries:      NewArena[UnaryExpr](capHint / 2),
		Casts:        NewArena[CastExpr](capHint / 4),
		Conditionals: NewArena[ConditionalExpr](capHint / 4),
		Assigns:      NewArena[AssignExpr](capHint / 2),
		News:         NewArena[NewExpr](capHint / 4),
		Iss:          NewArena[IsExpr](capHint / 4),
		Placeholders: NewArena[PatternPlaceholderExpr](capHint / 4),
	}
}

// New allocates an expression node with the given header fields and payload.
func (e *Exprs) New(expr Expr) ExprID {
	return ExprID(e.Arena.Allocate(expr))
}

// Get returns the expression with the given ID, or nil for NoExprID.
func (e *Exprs) Get(id ExprID) *Expr {
	return e.Arena.Get(uint32(id))
}
