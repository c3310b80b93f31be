package mir

import (
	"errors"
	"fmt"
)

// Validate checks MIR module invariants: exactly one terminator per block,
// static single assignment, phi incoming lists matching predecessor sets,
// existing jump targets, entry reachability, and tail-call placement.
// Returns an error joining every violation found.
func Validate(m *Module) error {
	if m == nil {
		return nil
	}
	var errs []error
	for _, id := range m.FuncIDs() {
		if err := ValidateFunc(m.Funcs[id]); err != nil {
			errs = append(errs, fmt.Errorf("function %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// ValidateFunc checks one function's invariants.
func ValidateFunc(f *Func) error {
	if f == nil {
		return nil
	}
	var errs []error

	if !f.Entry.IsValid() || f.Block(f.Entry) == nil {
		errs = append(errs, errors.New("missing entry block"))
		return errors.Join(errs...)
	}

	errs = append(errs, validateTerminators(f)...)
	errs = append(errs, validateTargets(f)...)
	errs = append(errs, validateSSA(f)...)
	errs = append(errs, validatePhis(f)...)
	errs = append(errs, validateReachability(f)...)
	errs = append(errs, validateTailCalls(f)...)

	return errors.Join(errs...)
}

func validateTerminators(f *Func) []error {
	var errs []error
	f.EachBlock(func(b *Block) {
		if b.Term.Kind == TermNone {
			errs = append(errs, fmt.Errorf("block %d has no terminator", b.ID))
		}
	})
	return errs
}

func validateTargets(f *Func) []error {
	var errs []error
	f.EachBlock(func(b *Block) {
		for _, succ := range b.Term.Successors(nil) {
			if f.Block(succ) == nil {
				errs = append(errs, fmt.Errorf("block %d targets missing block %d", b.ID, succ))
			}
		}
	})
	return errs
}

// validateSSA checks each register has at most one defining instruction.
func validateSSA(f *Func) []error {
	var errs []error
	defined := make(map[RegID]BlockID, f.RegCount())
	for _, p := range f.Params {
		defined[p.Reg] = f.Entry
	}
	f.EachBlock(func(b *Block) {
		for i := range b.Phis {
			dest := b.Phis[i].Dest
			if prev, dup := defined[dest]; dup {
				errs = append(errs, fmt.Errorf("register %d redefined by phi in block %d (first defined in block %d)", dest, b.ID, prev))
			}
			defined[dest] = b.ID
		}
		for i := range b.Instrs {
			dest := b.Instrs[i].Dest
			if !dest.IsValid() {
				continue
			}
			if prev, dup := defined[dest]; dup {
				errs = append(errs, fmt.Errorf("register %d redefined in block %d (first defined in block %d)", dest, b.ID, prev))
			}
			defined[dest] = b.ID
		}
	})
	return errs
}

func validatePhis(f *Func) []error {
	var errs []error
	f.EachBlock(func(b *Block) {
		for i := range b.Phis {
			phi := &b.Phis[i]
			if len(phi.Incomings) != len(b.Preds) {
				errs = append(errs, fmt.Errorf("block %d phi for register %d has %d incomings, %d predecessors", b.ID, phi.Dest, len(phi.Incomings), len(b.Preds)))
				continue
			}
			for _, in := range phi.Incomings {
				if !b.HasPred(in.Pred) {
					errs = append(errs, fmt.Errorf("block %d phi for register %d names non-predecessor %d", b.ID, phi.Dest, in.Pred))
				}
			}
		}
	})
	return errs
}

func validateReachability(f *Func) []error {
	reachable := ReachableBlocks(f)
	var errs []error
	f.EachBlock(func(b *Block) {
		if _, ok := reachable[b.ID]; !ok {
			errs = append(errs, fmt.Errorf("block %d unreachable from entry", b.ID))
		}
		if b.ID != f.Entry && len(b.Preds) == 0 && !isHandlerBlock(f, b.ID) {
			if _, ok := reachable[b.ID]; ok {
				errs = append(errs, fmt.Errorf("non-entry block %d has no predecessors", b.ID))
			}
		}
	})
	return errs
}

func isHandlerBlock(f *Func, id BlockID) bool {
	for _, h := range f.ExcHandlers {
		if h.Handler == id {
			return true
		}
	}
	return false
}

// validateTailCalls checks the tail flag is only set on a call that is the
// last instruction of its block, with the block returning the call's result
// (or both being void).
func validateTailCalls(f *Func) []error {
	var errs []error
	f.EachBlock(func(b *Block) {
		for i := range b.Instrs {
			in := &b.Instrs[i]
			var tail bool
			switch in.Kind {
			case InstrCallDirect:
				tail = in.CallDirect.Tail
			case InstrCallIndirect:
				tail = in.CallIndirect.Tail
			default:
				continue
			}
			if !tail {
				continue
			}
			if i != len(b.Instrs)-1 {
				errs = append(errs, fmt.Errorf("block %d: tail call is not the last instruction", b.ID))
				continue
			}
			if b.Term.Kind != TermReturn {
				errs = append(errs, fmt.Errorf("block %d: tail call without Return terminator", b.ID))
				continue
			}
			if b.Term.Return.HasValue {
				if b.Term.Return.Value != in.Dest {
					errs = append(errs, fmt.Errorf("block %d: tail call result is not the returned value", b.ID))
				}
			} else if in.Dest.IsValid() {
				errs = append(errs, fmt.Errorf("block %d: tail call has a destination but the function returns void", b.ID))
			}
		}
	})
	return errs
}

// ReachableBlocks returns the set of blocks reachable from entry by a DFS
// over terminator successor edges. Exception-handler blocks have no CFG
// predecessors but become roots as soon as any block they cover is
// reachable, so the walk iterates until that set is stable.
func ReachableBlocks(f *Func) map[BlockID]struct{} {
	reachable := make(map[BlockID]struct{}, len(f.Blocks))
	if !f.Entry.IsValid() {
		return reachable
	}
	walk := func(root BlockID) {
		stack := []BlockID{root}
		for len(stack) > 0 {
			id := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if _, seen := reachable[id]; seen {
				continue
			}
			b := f.Block(id)
			if b == nil {
				continue
			}
			reachable[id] = struct{}{}
			stack = b.Term.Successors(stack)
		}
	}
	walk(f.Entry)
	for {
		grew := false
		for covered, h := range f.ExcHandlers {
			if _, ok := reachable[covered]; !ok {
				continue
			}
			if _, ok := reachable[h.Handler]; ok {
				continue
			}
			walk(h.Handler)
			grew = true
		}
		if !grew {
			return reachable
		}
	}
}
