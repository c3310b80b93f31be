package bytecode

import (
	"encoding/binary"
	"errors"
	"testing"

	"rayzor/internal/mir"
	"rayzor/internal/source"
	"rayzor/internal/types"
)

func testMeta() Metadata {
	return Metadata{
		Name:             "test.Empty",
		SourcePath:       "empty.hx",
		SourceTimestamp:  1111,
		CompileTimestamp: 2222,
		Dependencies:     nil,
		CompilerVersion:  "0.1.0",
	}
}

func TestRoundTripEmptyModule(t *testing.T) {
	ti := types.NewInterner()
	strs := source.NewInterner()
	m := mir.NewModule(strs.Intern("test.Empty"))

	data, err := NewWriter(ti, strs, testMeta()).WriteModule(m)
	if err != nil {
		t.Fatal(err)
	}

	if string(data[0:4]) != "RZBC" {
		t.Errorf("magic = %q, want RZBC", data[0:4])
	}
	if v := binary.LittleEndian.Uint32(data[4:8]); v != 1 {
		t.Errorf("version = %d, want 1", v)
	}
	if c := binary.LittleEndian.Uint64(data[8:16]); c == 0 {
		t.Error("checksum must be patched in, not left zero")
	}

	ti2 := types.NewInterner()
	strs2 := source.NewInterner()
	out, meta, err := NewReader(data, ti2, strs2).ReadModule()
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Funcs) != 0 {
		t.Errorf("functions = %d, want 0", len(out.Funcs))
	}
	if meta.Name != "test.Empty" || meta.SourcePath != "empty.hx" {
		t.Errorf("metadata = %+v", meta)
	}
	if meta.CompilerVersion != "0.1.0" {
		t.Errorf("compiler version = %q", meta.CompilerVersion)
	}
	if meta.SourceTimestamp != 1111 || meta.CompileTimestamp != 2222 {
		t.Errorf("timestamps = %d, %d", meta.SourceTimestamp, meta.CompileTimestamp)
	}
}

func buildSampleModule(ti *types.Interner, strs *source.Interner) *mir.Module {
	m := mir.NewModule(strs.Intern("sample"))
	f := mir.NewFunc(0, strs.Intern("addOne"), ti.Builtins().Int)

	p := f.NewReg(ti.Builtins().Int)
	f.Params = append(f.Params, mir.Param{Reg: p, Type: ti.Builtins().Int, Name: strs.Intern("x")})

	entry := f.NewBlock()
	exit := f.NewBlock()
	f.Entry = entry.ID

	one := f.NewReg(ti.Builtins().Int)
	entry.Instrs = append(entry.Instrs, mir.Instr{
		Kind: mir.InstrConst, Dest: one, Type: ti.Builtins().Int,
		Const: mir.ConstInstr{Kind: mir.ConstInt, IntVal: 1},
	})
	greeting := f.NewReg(ti.Builtins().String)
	entry.Instrs = append(entry.Instrs, mir.Instr{
		Kind: mir.InstrConst, Dest: greeting, Type: ti.Builtins().String,
		Const: mir.ConstInstr{Kind: mir.ConstString, StrVal: strs.Intern("hello")},
	})
	sum := f.NewReg(ti.Builtins().Int)
	entry.Instrs = append(entry.Instrs, mir.Instr{
		Kind: mir.InstrBinOp, Dest: sum, Type: ti.Builtins().Int,
		Bin: mir.BinOpInstr{Op: types.OpAdd, Lhs: p, Rhs: one},
	})
	entry.Term = mir.Terminator{Kind: mir.TermJump, Jump: mir.JumpTerm{Target: exit.ID}}
	exit.Term = mir.Terminator{Kind: mir.TermReturn, Return: mir.ReturnTerm{HasValue: true, Value: sum}}
	f.RecomputePreds()

	m.AddFunc(f)
	return m
}

func TestRoundTripFunctionCFG(t *testing.T) {
	ti := types.NewInterner()
	strs := source.NewInterner()
	m := buildSampleModule(ti, strs)

	meta := testMeta()
	meta.Dependencies = []string{"haxe.ds.StringMap", "sys.io.File"}
	data, err := NewWriter(ti, strs, meta).WriteModule(m)
	if err != nil {
		t.Fatal(err)
	}

	ti2 := types.NewInterner()
	strs2 := source.NewInterner()
	out, meta2, err := NewReader(data, ti2, strs2).ReadModule()
	if err != nil {
		t.Fatal(err)
	}

	if len(meta2.Dependencies) != 2 || meta2.Dependencies[0] != "haxe.ds.StringMap" {
		t.Errorf("dependencies = %v", meta2.Dependencies)
	}
	if len(out.Funcs) != 1 {
		t.Fatalf("functions = %d, want 1", len(out.Funcs))
	}
	var f *mir.Func
	for _, fn := range out.Funcs {
		f = fn
	}
	if got, _ := strs2.Lookup(f.Name); got != "addOne" {
		t.Errorf("function name = %q, want addOne", got)
	}
	if len(f.Params) != 1 || f.RegType(f.Params[0].Reg) != ti2.Builtins().Int {
		t.Errorf("params = %+v", f.Params)
	}
	if f.Result != ti2.Builtins().Int {
		t.Errorf("result type = %d, want int", f.Result)
	}
	if f.BlockCount() != 2 {
		t.Fatalf("blocks = %d, want 2", f.BlockCount())
	}

	entry := f.Block(f.Entry)
	if entry == nil || entry.Term.Kind != mir.TermJump {
		t.Fatalf("entry terminator mismatch: %+v", entry)
	}
	exit := f.Block(entry.Term.Jump.Target)
	if exit.Term.Kind != mir.TermReturn || !exit.Term.Return.HasValue {
		t.Fatalf("exit terminator mismatch: %+v", exit.Term)
	}
	if len(entry.Instrs) != 3 {
		t.Fatalf("entry instrs = %d, want 3", len(entry.Instrs))
	}
	if entry.Instrs[2].Kind != mir.InstrBinOp || entry.Instrs[2].Bin.Op != types.OpAdd {
		t.Errorf("third instr = %+v, want add", entry.Instrs[2])
	}
	// String constant remapped into the reader's interner.
	strInstr := entry.Instrs[1]
	if got, _ := strs2.Lookup(strInstr.Const.StrVal); got != "hello" {
		t.Errorf("string constant = %q, want hello", got)
	}
	if err := mir.ValidateFunc(f); err != nil {
		t.Fatalf("decoded function invalid: %v", err)
	}
}

func TestRejectInvalidMagic(t *testing.T) {
	ti := types.NewInterner()
	strs := source.NewInterner()
	data, _ := NewWriter(ti, strs, testMeta()).WriteModule(mir.NewModule(0))
	data[0] = 'X'

	_, _, err := NewReader(data, types.NewInterner(), source.NewInterner()).ReadModule()
	var be *Error
	if !errors.As(err, &be) || be.Kind != ErrInvalidMagic {
		t.Fatalf("err = %v, want InvalidMagic", err)
	}
}

func TestRejectUnsupportedVersion(t *testing.T) {
	ti := types.NewInterner()
	strs := source.NewInterner()
	data, _ := NewWriter(ti, strs, testMeta()).WriteModule(mir.NewModule(0))
	binary.LittleEndian.PutUint32(data[4:8], 99)

	_, _, err := NewReader(data, types.NewInterner(), source.NewInterner()).ReadModule()
	var be *Error
	if !errors.As(err, &be) || be.Kind != ErrUnsupportedVersion || be.Version != 99 {
		t.Fatalf("err = %v, want UnsupportedVersion(99)", err)
	}
}

func TestRejectChecksumMismatch(t *testing.T) {
	ti := types.NewInterner()
	strs := source.NewInterner()
	data, _ := NewWriter(ti, strs, testMeta()).WriteModule(mir.NewModule(0))
	data[len(data)-1] ^= 0xFF

	_, _, err := NewReader(data, types.NewInterner(), source.NewInterner()).ReadModule()
	var be *Error
	if !errors.As(err, &be) || be.Kind != ErrChecksumMismatch {
		t.Fatalf("err = %v, want ChecksumMismatch", err)
	}
}

func TestRejectTruncated(t *testing.T) {
	_, _, err := NewReader([]byte{'R', 'Z'}, types.NewInterner(), source.NewInterner()).ReadModule()
	var be *Error
	if !errors.As(err, &be) || be.Kind != ErrUnexpectedEof {
		t.Fatalf("err = %v, want UnexpectedEof", err)
	}
}

func TestDeterministicOutput(t *testing.T) {
	ti := types.NewInterner()
	strs := source.NewInterner()
	m := buildSampleModule(ti, strs)
	meta := testMeta()

	d1, err := NewWriter(ti, strs, meta).WriteModule(m)
	if err != nil {
		t.Fatal(err)
	}
	d2, err := NewWriter(ti, strs, meta).WriteModule(m)
	if err != nil {
		t.Fatal(err)
	}
	if string(d1) != string(d2) {
		t.Error("writer output must be byte-for-byte deterministic")
	}
}
