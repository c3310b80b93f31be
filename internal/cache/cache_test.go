package cache

import (
	"testing"
)

func TestPutGetRoundTrip(t *testing.T) {
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	key := Key{SourceDigest: Digest([]byte("class Main {}")), OptLevel: 2}
	in := &Payload{
		ModuleName:      "Main",
		SourcePath:      "Main.hx",
		SourceTimestamp: 42,
		CompilerVersion: "0.1.0",
		Bytecode:        []byte{'R', 'Z', 'B', 'C', 1, 0, 0, 0},
	}
	if err := c.Put(key, in); err != nil {
		t.Fatal(err)
	}

	var out Payload
	hit, err := c.Get(key, &out)
	if err != nil {
		t.Fatal(err)
	}
	if !hit {
		t.Fatal("expected cache hit")
	}
	if out.ModuleName != "Main" || string(out.Bytecode) != string(in.Bytecode) {
		t.Fatalf("payload = %+v", out)
	}
	if out.Schema != schemaVersion {
		t.Errorf("schema = %d, want %d", out.Schema, schemaVersion)
	}
}

func TestMissOnDifferentKey(t *testing.T) {
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	key := Key{SourceDigest: Digest([]byte("a")), OptLevel: 0}
	if err := c.Put(key, &Payload{ModuleName: "A"}); err != nil {
		t.Fatal(err)
	}

	var out Payload
	// Same source at a different level is a distinct entry.
	hit, err := c.Get(Key{SourceDigest: key.SourceDigest, OptLevel: 3}, &out)
	if err != nil {
		t.Fatal(err)
	}
	if hit {
		t.Error("different opt level must miss")
	}
}

func TestRemoveAndClear(t *testing.T) {
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	key := Key{SourceDigest: 7, OptLevel: 1}
	if err := c.Put(key, &Payload{}); err != nil {
		t.Fatal(err)
	}
	if err := c.Remove(key); err != nil {
		t.Fatal(err)
	}
	var out Payload
	if hit, _ := c.Get(key, &out); hit {
		t.Error("removed entry must miss")
	}
	if err := c.Remove(key); err != nil {
		t.Error("removing a missing entry must not fail")
	}
	if err := c.Clear(); err != nil {
		t.Fatal(err)
	}
}

func TestDigestStability(t *testing.T) {
	a := Digest([]byte("hello"))
	b := Digest([]byte("hello"))
	if a != b {
		t.Error("digest must be deterministic")
	}
	if Digest([]byte("hello ")) == a {
		t.Error("different content must digest differently")
	}
}
