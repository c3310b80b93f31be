package diag

import (
	"fmt"
	"sort"

	"fortio.org/safecast"
)

// Bag collects diagnostics up to a fixed cap. Once full it counts what it
// drops instead of growing, so a pathological input cannot balloon memory
// while the caller still learns how much was lost.
type Bag struct {
	items   []*Diagnostic
	limit   uint16
	dropped int
}

// NewBag creates a bag capped at limit diagnostics.
func NewBag(limit int) *Bag {
	capped, err := safecast.Conv[uint16](limit)
	if err != nil {
		panic(fmt.Errorf("diag: bag limit overflow: %w", err))
	}
	return &Bag{limit: capped}
}

// Add stores d, or counts it as dropped when the bag is full. Returns
// whether the diagnostic was stored.
func (b *Bag) Add(d *Diagnostic) bool {
	if d == nil {
		return false
	}
	if len(b.items) >= int(b.limit) {
		b.dropped++
		return false
	}
	b.items = append(b.items, d)
	return true
}

// Len returns the number of stored diagnostics.
func (b *Bag) Len() int { return len(b.items) }

// Cap returns the bag's limit.
func (b *Bag) Cap() int { return int(b.limit) }

// Dropped returns how many diagnostics the cap rejected.
func (b *Bag) Dropped() int { return b.dropped }

// Items exposes the stored diagnostics. Не модифицируйте возвращаемый
// срез — он указывает на внутренний массив Bag.
func (b *Bag) Items() []*Diagnostic { return b.items }

// HasErrors reports whether any stored diagnostic is an error.
func (b *Bag) HasErrors() bool {
	for _, d := range b.items {
		if d.Severity >= SevError {
			return true
		}
	}
	return false
}

// HasWarnings reports whether any stored diagnostic is at least a warning.
func (b *Bag) HasWarnings() bool {
	for _, d := range b.items {
		if d.Severity >= SevWarning {
			return true
		}
	}
	return false
}

// Merge appends every diagnostic of other, raising the limit when needed
// so nothing already collected is lost.
func (b *Bag) Merge(other *Bag) {
	total, err := safecast.Conv[uint16](len(b.items) + len(other.items))
	if err != nil {
		panic(fmt.Errorf("diag: bag merge overflow: %w", err))
	}
	if total > b.limit {
		b.limit = total
	}
	b.items = append(b.items, other.items...)
	b.dropped += other.dropped
}

// Sort orders diagnostics by file, span, severity (errors first within a
// position), then code, giving deterministic output across runs.
func (b *Bag) Sort() {
	sort.SliceStable(b.items, func(i, j int) bool {
		di, dj := b.items[i], b.items[j]
		if di.Primary.File != dj.Primary.File {
			return di.Primary.File < dj.Primary.File
		}
		if di.Primary.Start != dj.Primary.Start {
			return di.Primary.Start < dj.Primary.Start
		}
		if di.Primary.End != dj.Primary.End {
			return di.Primary.End < dj.Primary.End
		}
		if di.Severity != dj.Severity {
			return di.Severity > dj.Severity
		}
		return di.Code < dj.Code
	})
}

// Dedup removes diagnostics sharing a code and primary span, keeping the
// first of each group.
func (b *Bag) Dedup() {
	type key struct {
		code Code
		span string
	}
	seen := make(map[key]struct{}, len(b.items))
	kept := b.items[:0]
	for _, d := range b.items {
		k := key{code: d.Code, span: d.Primary.String()}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		kept = append(kept, d)
	}
	b.items = kept
}

// Filter keeps only diagnostics the predicate accepts.
func (b *Bag) Filter(keep func(*Diagnostic) bool) {
	kept := b.items[:0]
	for _, d := range b.items {
		if keep(d) {
			kept = append(kept, d)
		}
	}
	b.items = kept
}
