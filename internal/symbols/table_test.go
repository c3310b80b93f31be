package symbols

import (
	"testing"

	"rayzor/internal/source"
	"rayzor/internal/types"
)

func TestTableFileRootReuse(t *testing.T) {
	table := NewTable(Hints{}, nil)
	file := source.FileID(1)
	span := source.Span{File: file}

	first := table.FileRoot(file, span)
	second := table.FileRoot(file, span)

	if !first.IsValid() {
		t.Fatalf("expected valid scope ID")
	}
	if first != second {
		t.Fatalf("expected FileRoot to reuse existing scope, got %v and %v", first, second)
	}
	if err := table.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestAddSymbolAndLookup(t *testing.T) {
	table := NewTable(Hints{}, nil)
	file := source.FileID(10)
	root := table.FileRoot(file, source.Span{File: file})

	name := table.Strings.Intern("value")
	id := table.AddSymbol(Symbol{Name: name, Kind: SymbolVariable, Scope: root, Decl: source.Span{File: file}})

	got, ok := table.LookupSymbol(root, name)
	if !ok || got != id {
		t.Fatalf("lookup mismatch: got %v, ok=%v, want %v", got, ok, id)
	}
	if err := table.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLookupWalksParentChain(t *testing.T) {
	table := NewTable(Hints{}, nil)
	file := source.FileID(11)
	root := table.FileRoot(file, source.Span{File: file})
	child := table.Scopes.New(ScopeBlock, root, NoSymbolID, source.Span{File: file})

	name := table.Strings.Intern("outer")
	id := table.AddSymbol(Symbol{Name: name, Kind: SymbolVariable, Scope: root})

	got, ok := table.LookupSymbol(child, name)
	if !ok || got != id {
		t.Fatalf("expected to resolve %q via parent chain, got %v ok=%v", "outer", got, ok)
	}
	if _, ok := table.LookupSymbol(root, table.Strings.Intern("missing")); ok {
		t.Fatalf("expected lookup miss for undeclared name")
	}
}

func TestIsNameUsedRespectsUniqueNameKinds(t *testing.T) {
	table := NewTable(Hints{}, nil)
	file := source.FileID(12)
	root := table.FileRoot(file, source.Span{File: file})

	varName := table.Strings.Intern("v")
	table.AddSymbol(Symbol{Name: varName, Kind: SymbolVariable, Scope: root})
	if table.IsNameUsed(root, varName) {
		t.Fatalf("variables should not block shadowing")
	}

	fnName := table.Strings.Intern("f")
	table.AddSymbol(Symbol{Name: fnName, Kind: SymbolFunction, Scope: root})
	if !table.IsNameUsed(root, fnName) {
		t.Fatalf("function declarations should require unique names")
	}
}

func TestMarkSymbolUsed(t *testing.T) {
	table := NewTable(Hints{}, nil)
	file := source.FileID(13)
	root := table.FileRoot(file, source.Span{File: file})
	id := table.AddSymbol(Symbol{Name: table.Strings.Intern("x"), Kind: SymbolVariable, Scope: root})

	if table.IsSymbolUsed(id) {
		t.Fatalf("symbol should start unused")
	}
	table.MarkSymbolUsed(id)
	if !table.IsSymbolUsed(id) {
		t.Fatalf("expected symbol to be marked used")
	}
	if sym := table.Symbols.Get(id); sym.Flags&FlagUsed == 0 {
		t.Fatalf("expected FlagUsed set on symbol")
	}
}

func TestBindTypeInverseMaps(t *testing.T) {
	table := NewTable(Hints{}, nil)
	file := source.FileID(14)
	root := table.FileRoot(file, source.Span{File: file})
	id := table.AddSymbol(Symbol{Name: table.Strings.Intern("C"), Kind: SymbolClass, Scope: root})

	in := types.NewInterner()
	classTy := in.CreateClass(types.SymbolID(id), source.Span{File: file})

	table.BindType(id, classTy)
	if got, ok := table.TypeOfSymbol(id); !ok || got != classTy {
		t.Fatalf("TypeOfSymbol mismatch: %v %v", got, ok)
	}
	if got, ok := table.SymbolOfType(classTy); !ok || got != id {
		t.Fatalf("SymbolOfType mismatch: %v %v", got, ok)
	}
}

func TestHierarchyNoCycles(t *testing.T) {
	table := NewTable(Hints{}, nil)
	a, b, c := types.TypeID(1), types.TypeID(2), types.TypeID(3)
	table.Hierarchy.Register(c, b, nil)
	table.Hierarchy.Register(b, a, nil)
	table.Hierarchy.Register(a, types.NoTypeID, nil)

	if err := table.Hierarchy.ValidateNoInheritanceCycles(); err != nil {
		t.Fatalf("unexpected cycle error: %v", err)
	}
	if !table.Hierarchy.IsClassSubtypeOf(c, a) {
		t.Fatalf("expected c to be a transitive subtype of a")
	}
	subs := table.Hierarchy.GetDirectSubclasses(b)
	if len(subs) != 1 || subs[0] != c {
		t.Fatalf("unexpected direct subclasses of b: %v", subs)
	}
}

func TestHierarchyDetectsCycle(t *testing.T) {
	table := NewTable(Hints{}, nil)
	a, b := types.TypeID(1), types.TypeID(2)
	table.Hierarchy.Register(a, b, nil)
	table.Hierarchy.Register(b, a, nil)

	if err := table.Hierarchy.ValidateNoInheritanceCycles(); err == nil {
		t.Fatalf("expected cycle to be detected")
	}
}

func TestHierarchyImplementsInterface(t *testing.T) {
	table := NewTable(Hints{}, nil)
	class, iface := types.TypeID(1), types.TypeID(2)
	table.Hierarchy.Register(class, types.NoTypeID, []types.TypeID{iface})

	if !table.Hierarchy.ImplementsInterface(class, iface) {
		t.Fatalf("expected class to implement iface")
	}
	ifaces := table.Hierarchy.GetAllInterfaces(class, func(t types.TypeID) bool { return t == iface })
	if len(ifaces) != 1 || ifaces[0] != iface {
		t.Fatalf("unexpected interfaces: %v", ifaces)
	}
}
