package driver

import (
	"rayzor/internal/source"
	"rayzor/internal/symbols"
	"rayzor/internal/tast"
	"rayzor/internal/types"
)

// stdlibFuncs is the prelinked runtime surface: intrinsic shells whose
// bodies the backends replace. Keeping them as real module functions gives
// user call sites stable direct-call targets. The std unit has no main
// entry point, so Strip keeps all of them.
var stdlibFuncs = []struct {
	name   string
	params []string
	result func(b types.Builtins) types.TypeID
}{
	{name: "trace", params: []string{"value"}, result: func(b types.Builtins) types.TypeID { return b.Void }},
	{name: "print", params: []string{"value"}, result: func(b types.Builtins) types.TypeID { return b.Void }},
	{name: "string_length", params: []string{"value"}, result: func(b types.Builtins) types.TypeID { return b.Int }},
	{name: "array_length", params: []string{"value"}, result: func(b types.Builtins) types.TypeID { return b.Int }},
	{name: "panic", params: []string{"message"}, result: func(b types.Builtins) types.TypeID { return b.Void }},
}

// StdlibUnit builds the synthetic "std" compilation unit prelinked when
// load_stdlib is enabled.
func StdlibUnit() *Unit {
	strs := source.NewInterner()
	ti := types.NewInterner()
	ti.Strings = strs
	syms := symbols.NewTable(symbols.Hints{}, strs)
	mod := tast.NewModule(strs.Intern("std"))
	b := tast.NewBuilder(mod, ti)

	scope := syms.Scopes.New(symbols.ScopeModule, symbols.NoScopeID, symbols.NoSymbolID, source.Span{})
	for _, fn := range stdlibFuncs {
		sym := syms.AddSymbol(symbols.Symbol{
			Name:       strs.Intern(fn.name),
			Kind:       symbols.SymbolFunction,
			Scope:      scope,
			Visibility: symbols.Public,
		})
		var params []tast.Param
		for _, p := range fn.params {
			pSym := syms.AddSymbol(symbols.Symbol{
				Name:  strs.Intern(p),
				Kind:  symbols.SymbolParameter,
				Scope: scope,
			})
			params = append(params, tast.Param{Sym: pSym, Name: strs.Intern(p), Type: ti.Builtins().Dynamic})
		}
		result := fn.result(ti.Builtins())
		var ret tast.StmtID
		if result == ti.Builtins().Void {
			ret = b.Return(tast.NoExprID, source.Span{})
		} else {
			ret = b.Return(b.IntLit(0, source.Span{}), source.Span{})
		}
		body := b.Block(symbols.NoScopeID, []tast.StmtID{ret}, source.Span{})
		mod.AddFunc(&tast.Func{
			Sym:    sym,
			Name:   strs.Intern(fn.name),
			Params: params,
			Result: result,
			Body:   body,
		})
	}

	return &Unit{
		Name:       "std",
		TAST:       mod,
		Types:      ti,
		Syms:       syms,
		Strings:    strs,
		Source:     []byte("rayzor:std"),
		SourcePath: "std.hx",
	}
}
