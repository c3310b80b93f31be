package types

import "testing"

func TestPrimitivesArePreallocated(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	if b.Int == NoTypeID || b.Bool == NoTypeID || b.String == NoTypeID {
		t.Fatalf("expected primitives to be pre-allocated, got %+v", b)
	}
	if in.Builtins().Int != b.Int {
		t.Fatalf("Builtins() must be stable across calls")
	}
}

func TestHashConsArray(t *testing.T) {
	in := NewInterner()
	elem := in.Builtins().Int
	a1 := in.CreateArray(elem)
	a2 := in.CreateArray(elem)
	if a1 != a2 {
		t.Fatalf("CreateArray not hash-consed: %v != %v", a1, a2)
	}
}

func TestHashConsFunction(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	f1 := in.CreateFunction([]TypeID{b.Int, b.Bool}, b.String, EffectPure)
	f2 := in.CreateFunction([]TypeID{b.Int, b.Bool}, b.String, EffectPure)
	if f1 != f2 {
		t.Fatalf("CreateFunction not hash-consed")
	}
	f3 := in.CreateFunction([]TypeID{b.Int}, b.String, EffectPure)
	if f3 == f1 {
		t.Fatalf("different function shapes must not collide")
	}
}

func TestUnionNormalization(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	u1 := in.CreateUnion([]TypeID{b.Int, b.Bool, b.Int})
	u2 := in.CreateUnion([]TypeID{b.Bool, b.Int})
	if u1 != u2 {
		t.Fatalf("union interning must sort+dedup before hashing: %v != %v", u1, u2)
	}
	info, ok := in.UnionInfo(u1)
	if !ok || len(info.Members) != 2 {
		t.Fatalf("expected 2 deduped members, got %+v", info)
	}
}

func TestGenericInstanceCache(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	sym := SymbolID(7)
	base := in.CreateNamed(KindClass, sym)
	g1 := in.CreateGeneric(base, []TypeID{b.Int})
	g2 := in.CreateGeneric(base, []TypeID{b.Int})
	if g1 != g2 {
		t.Fatalf("generic instance cache must return stable ids")
	}
}

func TestInvalidIDLookupReturnsNone(t *testing.T) {
	in := NewInterner()
	if _, ok := in.Lookup(TypeID(999)); ok {
		t.Fatalf("expected invalid id lookup to fail, not panic")
	}
	if _, ok := in.Lookup(NoTypeID); ok {
		t.Fatalf("expected NoTypeID lookup to fail")
	}
}

func TestIDsAreMonotonic(t *testing.T) {
	in := NewInterner()
	before := in.Len()
	in.CreateArray(in.Builtins().Bool)
	if in.Len() <= before {
		t.Fatalf("expected type table to grow monotonically")
	}
}

func TestIsCopy(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	if !in.IsCopy(b.Int) {
		t.Fatalf("int should be Copy")
	}
	if in.IsCopy(b.String) {
		t.Fatalf("string should not be Copy")
	}
	ref := in.CreateReference(b.Int, false, NoLifetimeID)
	if !in.IsCopy(ref) {
		t.Fatalf("shared reference should be Copy")
	}
	mutRef := in.CreateReference(b.Int, true, NoLifetimeID)
	if in.IsCopy(mutRef) {
		t.Fatalf("mutable reference should not be Copy")
	}
}
