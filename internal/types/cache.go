package types

import (
	"fmt"
	"sort"
	"strings"
)

// L1Cache is the compact-shape query cache: a miss falls through
// to the global hash-cons (the `index`/`named` maps on Interner), but a hit
// here skips descriptor construction entirely. Keyed by the same shape
// literals the resolver asks for most: ArrayType(t), OptionalType(t), MapType(k,v),
// FunctionType(params,ret), NamedType(sym,kind), GenericType(sym,args,kind),
// TypeAlias(sym), AbstractUnderlying(sym), UnionType(sorted).
type L1Cache struct {
	array     map[TypeID]TypeID
	optional  map[TypeID]TypeID
	mapShape  map[[2]TypeID]TypeID
	fnShape   map[string]TypeID
	named     map[namedKey]TypeID
	generic   map[string]TypeID
	alias     map[SymbolID]TypeID
	abstractU map[SymbolID]TypeID
	union     map[string]TypeID

	hits   uint64
	misses uint64
}

type namedKey struct {
	Sym  SymbolID
	Kind Kind
}

func newL1Cache() L1Cache {
	return L1Cache{
		array:     make(map[TypeID]TypeID, 16),
		optional:  make(map[TypeID]TypeID, 16),
		mapShape:  make(map[[2]TypeID]TypeID, 16),
		fnShape:   make(map[string]TypeID, 16),
		named:     make(map[namedKey]TypeID, 16),
		generic:   make(map[string]TypeID, 16),
		alias:     make(map[SymbolID]TypeID, 16),
		abstractU: make(map[SymbolID]TypeID, 16),
		union:     make(map[string]TypeID, 16),
	}
}

// CacheStats reports advisory L1 hit/miss counters. The counters never
// influence interning results.
func (in *Interner) CacheStats() (hits, misses uint64) {
	return in.cache.hits, in.cache.misses
}

// CreateArray returns the (hash-consed) TypeID for `elem[]`.
func (in *Interner) CreateArray(elem TypeID) TypeID {
	if id, ok := in.cache.array[elem]; ok {
		in.cache.hits++
		return id
	}
	in.cache.misses++
	id := in.internSimple(Type{Kind: KindArray, A: elem, Flags: FlagComplete})
	in.cache.array[elem] = id
	return id
}

// CreateOptional returns the TypeID for `elem?`.
func (in *Interner) CreateOptional(elem TypeID) TypeID {
	if id, ok := in.cache.optional[elem]; ok {
		in.cache.hits++
		return id
	}
	in.cache.misses++
	id := in.internSimple(Type{Kind: KindOptional, A: elem, Flags: FlagComplete})
	in.cache.optional[elem] = id
	return id
}

// CreateMap returns the TypeID for `Map<key, value>`.
func (in *Interner) CreateMap(key, value TypeID) TypeID {
	shape := [2]TypeID{key, value}
	if id, ok := in.cache.mapShape[shape]; ok {
		in.cache.hits++
		return id
	}
	in.cache.misses++
	id := in.internSimple(Type{Kind: KindMap, A: key, B: value, Flags: FlagComplete})
	in.cache.mapShape[shape] = id
	return id
}

// CreateReference returns the TypeID for `&target` (or `&mut target` with a
// lifetime variable attached).
func (in *Interner) CreateReference(target TypeID, mutable bool, lifetime LifetimeID) TypeID {
	return in.internSimple(Type{Kind: KindReference, A: target, Mutable: mutable, Lifetime: lifetime, Flags: FlagComplete | boolFlag(!mutable, FlagCopy)})
}

func boolFlag(cond bool, f Flags) Flags {
	if cond {
		return f
	}
	return 0
}

// CreatePlaceholder returns the TypeID for an as-yet-unresolved named
// placeholder type.
func (in *Interner) CreatePlaceholder(name uint32) TypeID {
	return in.internSimple(Type{Kind: KindPlaceholder, A: TypeID(name)})
}

func idsKey(ids []TypeID) string {
	var b strings.Builder
	for _, id := range ids {
		fmt.Fprintf(&b, "%d,", id)
	}
	return b.String()
}

// CreateFunction returns the TypeID for a function type with the given
// ordered parameter types, return type, and effect set.
func (in *Interner) CreateFunction(params []TypeID, ret TypeID, effects EffectSet) TypeID {
	key := fmt.Sprintf("fn(%s)->%d#%d", idsKey(params), ret, effects)
	if id, ok := in.cache.fnShape[key]; ok {
		in.cache.hits++
		return id
	}
	in.cache.misses++
	id := in.internNamed(key, func() Type {
		slot := in.appendFn(FnInfo{Params: cloneIDs(params), Result: ret, Effects: effects})
		return Type{Kind: KindFunction, Payload: slot, Flags: FlagComplete | FlagCopy}
	})
	in.cache.fnShape[key] = id
	return id
}

// CreateNamed returns the TypeID for a non-generic nominal reference to a
// Class/Interface/Enum symbol (NamedType(sym, kind) in the L1 cache).
func (in *Interner) CreateNamed(kind Kind, sym SymbolID) TypeID {
	nk := namedKey{Sym: sym, Kind: kind}
	if id, ok := in.cache.named[nk]; ok {
		in.cache.hits++
		return id
	}
	in.cache.misses++
	id := in.internSimple(Type{Kind: kind, Sym: sym, Flags: FlagComplete})
	in.cache.named[nk] = id
	return id
}

// CreateGeneric returns the TypeID for a generic instantiation `base<args...>`.
func (in *Interner) CreateGeneric(base TypeID, args []TypeID) TypeID {
	key := fmt.Sprintf("gen(%d)<%s>", base, idsKey(args))
	if id, ok := in.cache.generic[key]; ok {
		in.cache.hits++
		return id
	}
	in.cache.misses++
	id := in.internNamed(key, func() Type {
		slot := in.appendGeneric(GenericInstanceInfo{Base: base, Args: cloneIDs(args)})
		return Type{Kind: KindGenericInstance, Payload: slot, A: base, Flags: FlagComplete}
	})
	in.cache.generic[key] = id
	return id
}

// CreateTypeAlias returns the TypeID for a (possibly generic) alias symbol
// pointing at target.
func (in *Interner) CreateTypeAlias(sym SymbolID, target TypeID, args []TypeID) TypeID {
	if len(args) == 0 {
		if id, ok := in.cache.alias[sym]; ok {
			in.cache.hits++
			return id
		}
		in.cache.misses++
		slot := in.appendAlias(AliasInfo{Sym: sym, Target: target})
		id := in.internSimple(Type{Kind: KindTypeAlias, Sym: sym, Payload: slot, A: target, Flags: FlagComplete})
		in.cache.alias[sym] = id
		return id
	}
	key := fmt.Sprintf("alias(%d)<%s>->%d", sym, idsKey(args), target)
	return in.internNamed(key, func() Type {
		slot := in.appendAlias(AliasInfo{Sym: sym, Target: target, Args: cloneIDs(args)})
		return Type{Kind: KindTypeAlias, Sym: sym, Payload: slot, A: target, Flags: FlagComplete}
	})
}

// CreateAbstract returns the TypeID for an abstract type, optionally with an
// underlying representation type (AbstractUnderlying(sym) cache entry).
func (in *Interner) CreateAbstract(sym SymbolID, underlying TypeID, args []TypeID) TypeID {
	if len(args) == 0 {
		if id, ok := in.cache.abstractU[sym]; ok {
			in.cache.hits++
			return id
		}
		in.cache.misses++
		slot := in.appendAbstract(AbstractInfo{Sym: sym, Underlying: underlying})
		id := in.internSimple(Type{Kind: KindAbstract, Sym: sym, Payload: slot, A: underlying, Flags: FlagComplete | FlagAbstractFlag})
		in.cache.abstractU[sym] = id
		return id
	}
	key := fmt.Sprintf("abs(%d)<%s>~%d", sym, idsKey(args), underlying)
	return in.internNamed(key, func() Type {
		slot := in.appendAbstract(AbstractInfo{Sym: sym, Underlying: underlying, Args: cloneIDs(args)})
		return Type{Kind: KindAbstract, Sym: sym, Payload: slot, A: underlying, Flags: FlagComplete | FlagAbstractFlag}
	})
}

// normalizeSet sorts and dedups a type-id set by id, as required for
// Union/Intersection interning, so member order never affects identity.
func normalizeSet(ids []TypeID) []TypeID {
	out := cloneIDs(ids)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	deduped := out[:0]
	var last TypeID
	first := true
	for _, id := range out {
		if first || id != last {
			deduped = append(deduped, id)
			last = id
			first = false
		}
	}
	return deduped
}

// CreateUnion returns the TypeID for a (normalized) union of member types.
func (in *Interner) CreateUnion(members []TypeID) TypeID {
	return in.createUnionKind(KindUnion, members)
}

// CreateIntersection returns the TypeID for a (normalized) intersection of
// member types.
func (in *Interner) CreateIntersection(members []TypeID) TypeID {
	return in.createUnionKind(KindIntersection, members)
}

func (in *Interner) createUnionKind(kind Kind, members []TypeID) TypeID {
	norm := normalizeSet(members)
	key := fmt.Sprintf("%s(%s)", kind, idsKey(norm))
	if id, ok := in.cache.union[key]; ok {
		in.cache.hits++
		return id
	}
	in.cache.misses++
	id := in.internNamed(key, func() Type {
		slot := in.appendUnion(UnionInfo{Members: norm})
		return Type{Kind: kind, Payload: slot, Flags: FlagComplete}
	})
	in.cache.union[key] = id
	return id
}

func cloneIDs(ids []TypeID) []TypeID {
	if len(ids) == 0 {
		return nil
	}
	out := make([]TypeID, len(ids))
	copy(out, ids)
	return out
}
