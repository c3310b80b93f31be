package symbols

import (
	"fmt"

	"rayzor/internal/types"
)

// ClassHierarchyInfo records the declared supertype edges for one
// class/interface symbol plus its memoized transitive supertype set.
type ClassHierarchyInfo struct {
	Superclass       types.TypeID   // NoTypeID if none
	Interfaces       []types.TypeID // implemented/extended interface types
	allSupertypes    map[types.TypeID]struct{}
	InheritanceDepth int
}

// HierarchyRegistry indexes ClassHierarchyInfo by the class/interface's own
// TypeID, plus an inverse subclass index and an enum-variant parent map.
type HierarchyRegistry struct {
	byType      map[types.TypeID]*ClassHierarchyInfo
	subclasses  map[types.TypeID][]types.TypeID // superclass -> direct subclasses
	variantEnum map[SymbolID]SymbolID           // enum variant -> parent enum
}

// NewHierarchyRegistry constructs an empty registry.
func NewHierarchyRegistry() *HierarchyRegistry {
	return &HierarchyRegistry{
		byType:      make(map[types.TypeID]*ClassHierarchyInfo),
		subclasses:  make(map[types.TypeID][]types.TypeID),
		variantEnum: make(map[SymbolID]SymbolID),
	}
}

// Register declares the direct superclass and interface edges for a class
// or interface type, overwriting any prior registration for it.
func (h *HierarchyRegistry) Register(self, superclass types.TypeID, interfaces []types.TypeID) {
	info := &ClassHierarchyInfo{Superclass: superclass, Interfaces: append([]types.TypeID(nil), interfaces...)}
	h.byType[self] = info
	if superclass != types.NoTypeID {
		h.subclasses[superclass] = append(h.subclasses[superclass], self)
	}
}

// LinkEnumVariant records that variant belongs to parentEnum in the
// variant side map.
func (h *HierarchyRegistry) LinkEnumVariant(variant, parentEnum SymbolID) {
	h.variantEnum[variant] = parentEnum
}

// ParentEnum returns the enum a variant symbol belongs to.
func (h *HierarchyRegistry) ParentEnum(variant SymbolID) (SymbolID, bool) {
	parent, ok := h.variantEnum[variant]
	return parent, ok
}

// GetDirectSubclasses returns the classes directly registered with self as
// their superclass.
func (h *HierarchyRegistry) GetDirectSubclasses(self types.TypeID) []types.TypeID {
	return h.subclasses[self]
}

// Info returns the registered hierarchy info for a type, if any.
func (h *HierarchyRegistry) Info(self types.TypeID) (*ClassHierarchyInfo, bool) {
	info, ok := h.byType[self]
	return info, ok
}

// maxHierarchyDepth bounds BFS traversal to guard against pathological or
// adversarial inputs.
const maxHierarchyDepth = 1000

// ValidateNoInheritanceCycles performs a BFS from every registered class; a
// repeated visit within one class's own traversal is a cycle. Returns an
// error naming every offending class.
func (h *HierarchyRegistry) ValidateNoInheritanceCycles() error {
	var bad []string
	for self := range h.byType {
		if err := h.bfsDetectCycle(self); err != nil {
			bad = append(bad, err.Error())
		}
	}
	if len(bad) == 0 {
		return nil
	}
	msg := "inheritance cycle(s) detected:"
	for _, b := range bad {
		msg += " " + b
	}
	return fmt.Errorf("%s", msg)
}

func (h *HierarchyRegistry) bfsDetectCycle(self types.TypeID) error {
	visited := map[types.TypeID]struct{}{self: {}}
	queue := h.edgesOf(self)
	depth := 0
	for len(queue) > 0 {
		depth++
		if depth > maxHierarchyDepth {
			return fmt.Errorf("class %d exceeds max inheritance depth %d", self, maxHierarchyDepth)
		}
		next := make([]types.TypeID, 0, len(queue))
		for _, t := range queue {
			if t == self {
				return fmt.Errorf("class %d participates in an inheritance cycle", self)
			}
			if _, seen := visited[t]; seen {
				continue
			}
			visited[t] = struct{}{}
			next = append(next, h.edgesOf(t)...)
		}
		queue = next
	}
	return nil
}

func (h *HierarchyRegistry) edgesOf(self types.TypeID) []types.TypeID {
	info, ok := h.byType[self]
	if !ok {
		return nil
	}
	out := make([]types.TypeID, 0, len(info.Interfaces)+1)
	if info.Superclass != types.NoTypeID {
		out = append(out, info.Superclass)
	}
	out = append(out, info.Interfaces...)
	return out
}

// ComputeAllSupertypes performs a transitive BFS over superclass and
// interface edges, memoizing the result on the class's own info.
func (h *HierarchyRegistry) ComputeAllSupertypes(self types.TypeID) map[types.TypeID]struct{} {
	info, ok := h.byType[self]
	if !ok {
		return nil
	}
	if info.allSupertypes != nil {
		return info.allSupertypes
	}
	visited := make(map[types.TypeID]struct{})
	queue := h.edgesOf(self)
	depth := 0
	for len(queue) > 0 {
		depth++
		if depth > maxHierarchyDepth {
			break
		}
		next := make([]types.TypeID, 0, len(queue))
		for _, t := range queue {
			if _, seen := visited[t]; seen {
				continue
			}
			visited[t] = struct{}{}
			next = append(next, h.edgesOf(t)...)
		}
		queue = next
	}
	info.allSupertypes = visited
	return visited
}

// IsClassSubtypeOf reports whether self's transitive supertype set contains
// target (or self == target).
func (h *HierarchyRegistry) IsClassSubtypeOf(self, target types.TypeID) bool {
	if self == target {
		return true
	}
	_, ok := h.ComputeAllSupertypes(self)[target]
	return ok
}

// ImplementsInterface reports whether self's transitive supertype set
// contains the given interface type.
func (h *HierarchyRegistry) ImplementsInterface(self, iface types.TypeID) bool {
	return h.IsClassSubtypeOf(self, iface)
}

// GetAllInterfaces returns every interface type transitively implemented by
// self (a filtered view over ComputeAllSupertypes; callers pass a classifier
// since HierarchyRegistry itself does not know which TypeIDs are interfaces).
func (h *HierarchyRegistry) GetAllInterfaces(self types.TypeID, isInterface func(types.TypeID) bool) []types.TypeID {
	all := h.ComputeAllSupertypes(self)
	out := make([]types.TypeID, 0, len(all))
	for t := range all {
		if isInterface(t) {
			out = append(out, t)
		}
	}
	return out
}
