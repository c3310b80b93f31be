package source

import (
	"sync"
	"testing"
)

func TestInternIdempotent(t *testing.T) {
	in := NewInterner()
	a := in.Intern("velocity")
	b := in.Intern("velocity")
	if a != b {
		t.Fatalf("equal bytes interned to %d and %d", a, b)
	}
	c := in.Intern("velocitY")
	if c == a {
		t.Fatal("distinct bytes share an id")
	}
	if got, _ := in.Lookup(a); got != "velocity" {
		t.Fatalf("Lookup(%d) = %q", a, got)
	}
}

func TestInternBytesMatchesString(t *testing.T) {
	in := NewInterner()
	buf := []byte("mutable")
	id := in.InternBytes(buf)
	buf[0] = 'X' // the interner must not alias the caller's buffer
	if got := in.MustLookup(id); got != "mutable" {
		t.Fatalf("interned view changed with caller buffer: %q", got)
	}
	if in.Intern("mutable") != id {
		t.Fatal("string intern disagreed with byte intern")
	}
}

func TestNoStringIDIsEmpty(t *testing.T) {
	in := NewInterner()
	if s, ok := in.Lookup(NoStringID); !ok || s != "" {
		t.Fatalf("Lookup(NoStringID) = %q, %v", s, ok)
	}
	if in.Intern("") != NoStringID {
		t.Fatal("empty string must intern to NoStringID")
	}
	if in.Len() != 1 {
		t.Fatalf("fresh interner Len() = %d, want 1", in.Len())
	}
}

func TestLookupUnknownID(t *testing.T) {
	in := NewInterner()
	if _, ok := in.Lookup(StringID(42)); ok {
		t.Fatal("Lookup accepted an id that was never produced")
	}
	if in.Has(StringID(42)) {
		t.Fatal("Has accepted a foreign id")
	}
}

func TestNormalizationFoldsEquivalentForms(t *testing.T) {
	in := NewInterner()
	in.SetNormalize(true)
	// U+00E9 vs e + U+0301: same identifier in two normal forms.
	composed := in.Intern("caf\u00e9")
	decomposed := in.Intern("cafe\u0301")
	if composed != decomposed {
		t.Fatalf("NFC folding failed: %d != %d", composed, decomposed)
	}

	raw := NewInterner()
	a := raw.Intern("caf\u00e9")
	b := raw.Intern("cafe\u0301")
	if a == b {
		t.Fatal("raw-byte interner folded distinct byte sequences")
	}
}

func TestSnapshotIndexedByID(t *testing.T) {
	in := NewInterner()
	want := []string{"", "alpha", "beta", "gamma"}
	for _, s := range want[1:] {
		in.Intern(s)
	}
	snap := in.Snapshot()
	if len(snap) != len(want) {
		t.Fatalf("Snapshot len = %d, want %d", len(snap), len(want))
	}
	for i, s := range want {
		if snap[i] != s {
			t.Errorf("snap[%d] = %q, want %q", i, snap[i], s)
		}
	}
}

func TestConcurrentInternConverges(t *testing.T) {
	in := NewInterner()
	words := []string{"load", "store", "phi", "branch", "switch", "ret"}

	var wg sync.WaitGroup
	ids := make([][]StringID, 8)
	for g := range ids {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			ids[g] = make([]StringID, len(words))
			for i, w := range words {
				ids[g][i] = in.Intern(w)
			}
		}(g)
	}
	wg.Wait()

	for g := 1; g < len(ids); g++ {
		for i := range words {
			if ids[g][i] != ids[0][i] {
				t.Fatalf("goroutine %d interned %q as %d, goroutine 0 as %d", g, words[i], ids[g][i], ids[0][i])
			}
		}
	}
	if in.Len() != len(words)+1 {
		t.Fatalf("Len() = %d, want %d", in.Len(), len(words)+1)
	}
}
