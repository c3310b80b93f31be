package source

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAddAssignsSequentialIDs(t *testing.T) {
	fs := NewFileSet()
	a := fs.Add("a.hx", []byte("class A {}\n"))
	b := fs.Add("b.hx", []byte("class B {}\n"))
	if a == b {
		t.Fatalf("distinct files share an id: %d", a)
	}
	if fs.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", fs.Len())
	}
	if got := fs.Get(a); got == nil || got.Path != "a.hx" {
		t.Fatalf("Get(%d) = %+v", a, got)
	}
}

func TestReAddingPathTracksLatest(t *testing.T) {
	fs := NewFileSet()
	fs.Add("mod.hx", []byte("v1"))
	second := fs.Add("mod.hx", []byte("v2"))

	f, ok := fs.ByPath("mod.hx")
	if !ok {
		t.Fatal("ByPath missed a registered path")
	}
	if f.ID != second {
		t.Fatalf("ByPath returned id %d, want latest %d", f.ID, second)
	}
	if string(f.Content) != "v2" {
		t.Fatalf("latest content = %q", f.Content)
	}
}

func TestDigestDistinguishesContent(t *testing.T) {
	fs := NewFileSet()
	a := fs.Get(fs.Add("a.hx", []byte("function f() {}")))
	b := fs.Get(fs.Add("b.hx", []byte("function g() {}")))
	c := fs.Get(fs.Add("c.hx", []byte("function f() {}")))
	if a.Digest == b.Digest {
		t.Error("different content hashed equal")
	}
	if a.Digest != c.Digest {
		t.Error("equal content hashed differently")
	}
}

func TestLoadNormalizesLineEndingsAndBOM(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "crlf.hx")
	raw := append([]byte{0xEF, 0xBB, 0xBF}, []byte("var x = 1;\r\nvar y = 2;\r\n")...)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	fs := NewFileSet()
	id, err := fs.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	f := fs.Get(id)
	if string(f.Content) != "var x = 1;\nvar y = 2;\n" {
		t.Fatalf("normalized content = %q", f.Content)
	}
	if f.Virtual {
		t.Error("disk file marked virtual")
	}
}

func TestPositionResolution(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("pos.hx", []byte("ab\ncde\n\nf"))
	f := fs.Get(id)

	cases := []struct {
		off  uint32
		want LineCol
	}{
		{0, LineCol{Line: 1, Col: 1}},
		{1, LineCol{Line: 1, Col: 2}},
		{2, LineCol{Line: 1, Col: 3}}, // the newline ends line 1
		{3, LineCol{Line: 2, Col: 1}},
		{5, LineCol{Line: 2, Col: 3}},
		{7, LineCol{Line: 3, Col: 1}}, // empty line
		{8, LineCol{Line: 4, Col: 1}},
	}
	for _, tc := range cases {
		if got := f.Position(tc.off); got != tc.want {
			t.Errorf("Position(%d) = %+v, want %+v", tc.off, got, tc.want)
		}
	}

	start, end := fs.Resolve(Span{File: id, Start: 3, End: 6})
	if start != (LineCol{Line: 2, Col: 1}) || end != (LineCol{Line: 2, Col: 4}) {
		t.Errorf("Resolve = %+v..%+v", start, end)
	}
}

func TestLineExtraction(t *testing.T) {
	fs := NewFileSet()
	f := fs.Get(fs.AddVirtual("lines.hx", []byte("first\nsecond\nthird")))

	if got := f.Line(1); got != "first" {
		t.Errorf("Line(1) = %q", got)
	}
	if got := f.Line(2); got != "second" {
		t.Errorf("Line(2) = %q", got)
	}
	if got := f.Line(3); got != "third" {
		t.Errorf("Line(3) = %q", got)
	}
	if got := f.Line(0); got != "" {
		t.Errorf("Line(0) = %q, want empty", got)
	}
	if got := f.Line(99); got != "" {
		t.Errorf("Line(99) = %q, want empty", got)
	}
	if f.LineCount() != 3 {
		t.Errorf("LineCount() = %d, want 3", f.LineCount())
	}
}

func TestDisplayPathRelativeToBase(t *testing.T) {
	fs := NewFileSet()
	fs.SetBaseDir("/workspace")
	id := fs.Add("/workspace/src/main.hx", nil)
	if got := fs.DisplayPath(id); got != "src/main.hx" {
		t.Errorf("DisplayPath = %q, want src/main.hx", got)
	}

	virtual := fs.AddVirtual("<test>", nil)
	if got := fs.DisplayPath(virtual); got != "<test>" {
		t.Errorf("virtual DisplayPath = %q", got)
	}
}

func TestSpanCoverAndContains(t *testing.T) {
	a := Span{File: 1, Start: 10, End: 20}
	b := Span{File: 1, Start: 5, End: 15}
	if got := a.Cover(b); got != (Span{File: 1, Start: 5, End: 20}) {
		t.Errorf("Cover = %+v", got)
	}
	other := Span{File: 2, Start: 0, End: 100}
	if got := a.Cover(other); got != a {
		t.Errorf("cross-file Cover = %+v, want unchanged", got)
	}
	if !a.Contains(10) || a.Contains(20) {
		t.Error("Contains should include Start and exclude End")
	}
	if (Span{File: 1, Start: 7, End: 7}).Len() != 0 {
		t.Error("empty span has nonzero Len")
	}
}
