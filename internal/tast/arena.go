package tast

import (
	"fmt"

	"fortio.org/safecast"
)

// Arena is a generic typed arena for allocating TAST nodes. Index 0 is the
// reserved "invalid" sentinel; Allocate hands out 1-based indices.
type Arena[T any] struct {
	data []T
}

// NewArena creates an arena with an optional capacity hint.
func NewArena[T any](capHint uint) *Arena[T] {
	return &Arena[T]{
		data: make([]T, 1, capHint+1),
	}
}

// Allocate appends a value to the arena and returns its 1-based index.
func (a *Arena[T]) Allocate(value T) uint32 {
	a.data = append(a.data, value)
	idx, err := safecast.Conv[uint32](len(a.data) - 1)
	if err != nil {
		panic(fmt.Errorf("tast: arena overflow: %w", err))
	}
	return idx
}

// Get returns a pointer to the element at the given 1-based index, or nil
// for the zero sentinel and out-of-range indices.
func (a *Arena[T]) Get(index uint32) *T {
	if index == 0 || int(index) >= len(a.data) {
		return nil
	}
	return &a.data[index]
}

// Len returns the number of allocated elements.
func (a *Arena[T]) Len() int { return len(a.data) - 1 }
