package diag

import (
	"testing"

	"rayzor/internal/source"
)

func TestFormatGoldenDiagnostics(t *testing.T) {
	fs := source.NewFileSet()
	fs.SetBaseDir("/workspace")

	userFile := fs.Add("/workspace/testdata/golden/sample.hx", []byte("a\nb\n"))
	internalFile := fs.Add("/workspace/internal/helper.hx", []byte("x\n"))

	diags := []*Diagnostic{
		{
			Severity: SevError,
			Code:     LowerInvalidTAST,
			Message:  "first line\nsecond",
			Primary:  source.Span{File: userFile, Start: 0, End: 1},
			Notes: []Note{
				{Span: source.Span{File: internalFile, Start: 0, End: 0}, Msg: "skip me"},
				{Span: source.Span{File: userFile, Start: 2, End: 3}, Msg: "note line"},
			},
		},
		{
			Severity: SevWarning,
			Code:     SemaError,
			Message:  "another",
			Primary:  source.Span{File: userFile, Start: 2, End: 3},
		},
	}

	expected := "error LOW2001 testdata/golden/sample.hx:1:1 first line second\n" +
		"note LOW2001 testdata/golden/sample.hx:2:1 note line\n" +
		"warning SEM1001 testdata/golden/sample.hx:2:1 another"

	if got := FormatGoldenDiagnostics(diags, fs, true); got != expected {
		t.Fatalf("unexpected golden diagnostics:\nwant:\n%s\n\ngot:\n%s", expected, got)
	}
}

func TestFormatShortKeepsInternalPaths(t *testing.T) {
	fs := source.NewFileSet()
	fs.SetBaseDir("/workspace")
	internalFile := fs.Add("/workspace/internal/helper.hx", []byte("x\n"))

	diags := []*Diagnostic{{
		Severity: SevError,
		Code:     LowerInvalidTAST,
		Message:  "inside",
		Primary:  source.Span{File: internalFile, Start: 0, End: 1},
	}}

	if got := FormatShortDiagnostics(diags, fs, false); got == "" {
		t.Fatal("short format must not filter internal paths")
	}
	if got := FormatGoldenDiagnostics(diags, fs, false); got != "" {
		t.Fatalf("golden format leaked an internal path: %q", got)
	}
}

func TestBagCapCountsDropped(t *testing.T) {
	bag := NewBag(2)
	for i := 0; i < 5; i++ {
		d := NewError(LowerInvalidTAST, source.Span{}, "boom")
		bag.Add(&d)
	}
	if bag.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", bag.Len())
	}
	if bag.Dropped() != 3 {
		t.Fatalf("Dropped() = %d, want 3", bag.Dropped())
	}
	if !bag.HasErrors() {
		t.Fatal("bag with errors reports none")
	}
}

func TestBagSortAndDedup(t *testing.T) {
	span := func(file source.FileID, start uint32) source.Span {
		return source.Span{File: file, Start: start, End: start + 1}
	}
	bag := NewBag(16)
	d1 := New(SevWarning, SemaError, span(1, 10), "later")
	d2 := NewError(LowerInvalidTAST, span(1, 2), "earlier")
	d3 := NewError(LowerInvalidTAST, span(1, 2), "earlier duplicate")
	bag.Add(&d1)
	bag.Add(&d2)
	bag.Add(&d3)

	bag.Sort()
	bag.Dedup()

	items := bag.Items()
	if len(items) != 2 {
		t.Fatalf("after dedup Len = %d, want 2", len(items))
	}
	if items[0].Message != "earlier" {
		t.Fatalf("sort put %q first", items[0].Message)
	}
}

func TestDedupReporterSuppressesRepeats(t *testing.T) {
	bag := NewBag(16)
	r := NewDedupReporter(BagReporter{Bag: bag})

	at := source.Span{File: 1, Start: 4, End: 8}
	r.Report(LowerInvalidTAST, SevError, at, "dup", nil, nil)
	r.Report(LowerInvalidTAST, SevError, at, "dup", nil, nil)
	r.Report(LowerInvalidTAST, SevError, at, "different message", nil, nil)

	if bag.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", bag.Len())
	}
}
