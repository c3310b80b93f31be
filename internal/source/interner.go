package source

import (
	"sync"

	"golang.org/x/text/unicode/norm"
)

// StringID is the dense id of one interned string.
type StringID uint32

// NoStringID is the reserved invalid id; it resolves to "".
const NoStringID StringID = 0

// Interner maps immutable string bytes to stable dense ids. Equal bytes
// always intern to the same id, and the returned string view stays valid
// for the interner's lifetime. Safe for concurrent use: interning is the
// one structure every phase shares read-mostly.
type Interner struct {
	mu   sync.RWMutex
	strs []string
	ids  map[string]StringID
	fold bool
}

// NewInterner creates an interner with NoStringID pre-bound to "".
func NewInterner() *Interner {
	return &Interner{
		strs: []string{""},
		ids:  map[string]StringID{"": NoStringID},
	}
}

// SetNormalize toggles NFC normalization of identifier bytes before
// interning, so visually-identical identifiers entered in different
// Unicode normal forms fold to one id. Off by default: raw-byte equality
// is the contract unless a front end opts in.
func (in *Interner) SetNormalize(on bool) {
	in.mu.Lock()
	in.fold = on
	in.mu.Unlock()
}

// Intern returns the stable id for s, allocating one on first sight.
func (in *Interner) Intern(s string) StringID {
	in.mu.RLock()
	if in.fold {
		s = norm.NFC.String(s)
	}
	id, ok := in.ids[s]
	in.mu.RUnlock()
	if ok {
		return id
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	if id, ok := in.ids[s]; ok {
		// Another goroutine got here first between the two locks.
		return id
	}
	// Copy so the entry never aliases a caller-owned buffer.
	owned := string(append([]byte(nil), s...))
	id = StringID(len(in.strs))
	in.strs = append(in.strs, owned)
	in.ids[owned] = id
	return id
}

// InternBytes interns a byte slice without requiring the caller to keep
// the backing array alive.
func (in *Interner) InternBytes(b []byte) StringID {
	return in.Intern(string(b))
}

// Lookup resolves an id to its string. Unknown ids return ("", false).
func (in *Interner) Lookup(id StringID) (string, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if int(id) >= len(in.strs) {
		return "", false
	}
	return in.strs[id], true
}

// MustLookup resolves an id, panicking on an id this interner never
// produced.
func (in *Interner) MustLookup(id StringID) string {
	s, ok := in.Lookup(id)
	if !ok {
		panic("source: lookup of foreign StringID")
	}
	return s
}

// Has reports whether id belongs to this interner.
func (in *Interner) Has(id StringID) bool {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return int(id) < len(in.strs)
}

// Len returns the number of interned strings, counting NoStringID.
func (in *Interner) Len() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.strs)
}

// Snapshot copies out every interned string, indexed by id.
func (in *Interner) Snapshot() []string {
	in.mu.RLock()
	defer in.mu.RUnlock()
	out := make([]string, len(in.strs))
	copy(out, in.strs)
	return out
}
