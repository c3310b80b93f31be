package driver

import (
	"context"
	"testing"

	"rayzor/internal/config"
	"rayzor/internal/mir"
	"rayzor/internal/source"
	"rayzor/internal/symbols"
	"rayzor/internal/tast"
	"rayzor/internal/types"
)

func newUnit(t *testing.T, name string, build func(b *tast.Builder, fx *unitFixture)) *Unit {
	t.Helper()
	strs := source.NewInterner()
	ti := types.NewInterner()
	ti.Strings = strs
	syms := symbols.NewTable(symbols.Hints{}, strs)
	mod := tast.NewModule(strs.Intern(name))
	b := tast.NewBuilder(mod, ti)
	fx := &unitFixture{strs: strs, ti: ti, syms: syms, mod: mod}
	build(b, fx)
	return &Unit{
		Name:       name,
		TAST:       mod,
		Types:      ti,
		Syms:       syms,
		Strings:    strs,
		Source:     []byte(name + " source"),
		SourcePath: name + ".hx",
	}
}

type unitFixture struct {
	strs *source.Interner
	ti   *types.Interner
	syms *symbols.Table
	mod  *tast.Module
}

func (fx *unitFixture) addFunc(b *tast.Builder, name string, ret int64) {
	body := b.Block(0, []tast.StmtID{b.Return(b.IntLit(ret, source.Span{}), source.Span{})}, source.Span{})
	fx.mod.AddFunc(&tast.Func{
		Name:   fx.strs.Intern(name),
		Result: fx.ti.Builtins().Int,
		Body:   body,
	})
}

func TestCompileModulesProducesBytecode(t *testing.T) {
	cfg := config.Default()
	cfg.EnableCache = false
	cfg.LoadStdlib = false
	cfg.OptLevel = "O1"
	d, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	units := []*Unit{
		newUnit(t, "alpha", func(b *tast.Builder, fx *unitFixture) { fx.addFunc(b, "f", 1) }),
		newUnit(t, "beta", func(b *tast.Builder, fx *unitFixture) { fx.addFunc(b, "g", 2) }),
	}
	results, err := d.CompileModules(context.Background(), units)
	if err != nil {
		t.Fatal(err)
	}
	for _, res := range results {
		if res.Err != nil {
			t.Fatalf("%s: %v", res.Name, res.Err)
		}
		if len(res.Bytecode) == 0 {
			t.Errorf("%s: no bytecode", res.Name)
		}
		if res.Diags.HasErrors() {
			t.Errorf("%s: unexpected diagnostics", res.Name)
		}
		if !res.Summary.Converged {
			t.Errorf("%s: pipeline did not converge", res.Name)
		}
	}
}

func TestCompileModulesCacheRoundTrip(t *testing.T) {
	cfg := config.Default()
	cfg.LoadStdlib = false
	cfg.OptLevel = "O1"
	cfg.CacheDir = t.TempDir()
	d, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	build := func() []*Unit {
		return []*Unit{newUnit(t, "cached", func(b *tast.Builder, fx *unitFixture) { fx.addFunc(b, "f", 7) })}
	}
	first, err := d.CompileModules(context.Background(), build())
	if err != nil {
		t.Fatal(err)
	}
	if first[0].CacheHit {
		t.Fatal("first compile must miss the cache")
	}

	second, err := d.CompileModules(context.Background(), build())
	if err != nil {
		t.Fatal(err)
	}
	if !second[0].CacheHit {
		t.Fatal("second compile of identical source must hit the cache")
	}
	if string(second[0].Bytecode) != string(first[0].Bytecode) {
		t.Error("cached bytecode must equal the original")
	}
}

func TestStripRemovesUnreachable(t *testing.T) {
	strs := source.NewInterner()
	ti := types.NewInterner()
	m := mir.NewModule(strs.Intern("m"))

	mkFunc := func(name string) *mir.Func {
		f := mir.NewFunc(0, strs.Intern(name), ti.Builtins().Void)
		b := f.NewBlock()
		f.Entry = b.ID
		b.Term = mir.Terminator{Kind: mir.TermReturn}
		m.AddFunc(f)
		return f
	}
	mainFn := mkFunc("main")
	used := mkFunc("used")
	mkFunc("dead")

	// main calls used.
	entry := mainFn.Block(mainFn.Entry)
	entry.Instrs = append(entry.Instrs, mir.Instr{
		Kind:       mir.InstrCallDirect,
		Type:       ti.Builtins().Void,
		CallDirect: mir.CallDirectInstr{Target: used.ID},
	})

	removed := Strip(m, strs)
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if m.Func(mainFn.ID) == nil || m.Func(used.ID) == nil {
		t.Error("main and its callee must survive")
	}
	if len(m.Funcs) != 2 {
		t.Errorf("functions = %d, want 2", len(m.Funcs))
	}
}

func TestStripKeepsEverythingWithoutEntry(t *testing.T) {
	strs := source.NewInterner()
	ti := types.NewInterner()
	m := mir.NewModule(strs.Intern("lib"))
	f := mir.NewFunc(0, strs.Intern("exported"), ti.Builtins().Void)
	b := f.NewBlock()
	f.Entry = b.ID
	b.Term = mir.Terminator{Kind: mir.TermReturn}
	m.AddFunc(f)

	if removed := Strip(m, strs); removed != 0 {
		t.Fatalf("library module must keep all functions, removed %d", removed)
	}
}
