package mir

import (
	"rayzor/internal/tast"
)

// lowerTry builds try/catch/finally control flow. The try body's blocks are
// registered in the exception side table while the catch frames are live;
// control reaches a catch block only through that table, never through a
// CFG edge. Finally runs on every non-exception path, and exception paths
// route catch → finally → merge.
func (lo *Lowerer) lowerTry(st *tast.Stmt) (bool, error) {
	p := lo.Mod.Stmts.Tries.Get(uint32(st.Payload))

	beforeTry := lo.cur.ID

	// Allocate handler blocks first so the frames pushed over the body can
	// name them.
	catchBlocks := make([]*Block, len(p.Catches))
	for i := range p.Catches {
		catchBlocks[i] = lo.newBlock()
		// Handler blocks have no CFG predecessors; variable reads resolve
		// against the state at try entry.
		lo.ssa.lookupParent[catchBlocks[i].ID] = beforeTry
		lo.sealBlock(catchBlocks[i].ID)
	}

	// One frame per catch clause, innermost last.
	frames := make([]excFrame, len(p.Catches))
	for i, c := range p.Catches {
		bindTy := lo.Types.Builtins().Dynamic
		if len(c.ExcTypes) == 1 {
			bindTy = c.ExcTypes[0]
		}
		frames[i] = excFrame{
			excTypes: c.ExcTypes,
			handler:  catchBlocks[i].ID,
			binding:  lo.fn.NewReg(bindTy),
		}
	}
	// Push in reverse so the first catch clause sits on top of the stack
	// and wins the side-table entry for blocks built under it.
	for i := len(frames) - 1; i >= 0; i-- {
		lo.excStack = append(lo.excStack, frames[i])
	}

	tryB := lo.newBlock()
	lo.terminate(Terminator{Kind: TermJump, Jump: JumpTerm{Target: tryB.ID}})
	lo.fn.RecomputePreds()
	lo.sealBlock(tryB.ID)
	lo.startBlock(tryB)

	tryExits, err := lo.lowerStmt(p.Body)
	if err != nil {
		return false, err
	}
	tryEnd := lo.cur

	// Frames pop before catch bodies build: a throw inside a catch body
	// escapes to the next outer region, not back into this try.
	lo.excStack = lo.excStack[:len(lo.excStack)-len(frames)]

	var finallyB *Block
	if p.Finally.IsValid() {
		finallyB = lo.newBlock()
	}

	// Merge is needed only if at least one path continues; it is always
	// allocated and the unreachable sweep drops it when every path exits.
	merge := lo.newBlock()

	// Non-exception path out of the try body.
	if !tryExits {
		lo.startBlock(tryEnd)
		if finallyB != nil {
			lo.terminate(Terminator{Kind: TermJump, Jump: JumpTerm{Target: finallyB.ID}})
		} else {
			lo.terminate(Terminator{Kind: TermJump, Jump: JumpTerm{Target: merge.ID}})
		}
	}

	// Catch bodies.
	allCatchExit := true
	for i, c := range p.Catches {
		lo.startBlock(catchBlocks[i])
		if c.Binding.IsValid() {
			bindTy := lo.fn.RegType(frames[i].binding)
			lo.ssa.declare(c.Binding, bindTy)
			lo.writeVar(c.Binding, frames[i].binding)
		}
		exits, err := lo.lowerStmt(c.Body)
		if err != nil {
			return false, err
		}
		if !exits {
			allCatchExit = false
			if finallyB != nil {
				lo.terminate(Terminator{Kind: TermJump, Jump: JumpTerm{Target: finallyB.ID}})
			} else {
				lo.terminate(Terminator{Kind: TermJump, Jump: JumpTerm{Target: merge.ID}})
			}
		}
	}

	finallyExits := false
	if finallyB != nil {
		lo.fn.RecomputePreds()
		lo.sealBlock(finallyB.ID)
		if len(finallyB.Preds) == 0 {
			// Every path into finally threw past this frame or exited.
			lo.ssa.lookupParent[finallyB.ID] = beforeTry
		}
		lo.startBlock(finallyB)
		finallyExits, err = lo.lowerStmt(p.Finally)
		if err != nil {
			return false, err
		}
		if !finallyExits {
			lo.terminate(Terminator{Kind: TermJump, Jump: JumpTerm{Target: merge.ID}})
		}
	}

	lo.fn.RecomputePreds()
	lo.sealBlock(merge.ID)
	lo.startBlock(merge)

	stmtExits := (tryExits && allCatchExit) || finallyExits
	if stmtExits {
		lo.terminate(Terminator{Kind: TermUnreachable})
		return true, nil
	}
	return false, nil
}
