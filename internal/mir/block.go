package mir

import (
	"rayzor/internal/source"
	"rayzor/internal/tast"
	"rayzor/internal/types"
)

// PhiIncoming is one `(predecessor, value)` pair of a phi node.
type PhiIncoming struct {
	Pred  BlockID
	Value RegID
}

// Phi selects a value based on the predecessor control came from. Its
// incoming list always matches the block's predecessor set.
type Phi struct {
	Dest      RegID
	Type      types.TypeID
	Incomings []PhiIncoming
}

// Incoming returns the value flowing in from pred, or NoRegID.
func (p *Phi) Incoming(pred BlockID) RegID {
	for _, in := range p.Incomings {
		if in.Pred == pred {
			return in.Value
		}
	}
	return NoRegID
}

// BlockMeta carries analysis metadata tagged onto a block during
// construction.
type BlockMeta struct {
	LoopDepth uint32
	Span      source.Span
}

// Block represents a basic block: ordered phi nodes, a linear instruction
// stream, and exactly one terminator.
type Block struct {
	ID     BlockID
	Phis   []Phi
	Instrs []Instr
	Term   Terminator
	Preds  []BlockID
	Stmts  []tast.StmtID // source statements lowered into this block
	Meta   BlockMeta
}

// Terminated reports whether the block has a terminator.
func (b *Block) Terminated() bool {
	if b == nil {
		return true
	}
	return b.Term.Kind != TermNone
}

// HasPred reports whether pred is in the block's predecessor list.
func (b *Block) HasPred(pred BlockID) bool {
	for _, p := range b.Preds {
		if p == pred {
			return true
		}
	}
	return false
}

// RemovePred drops pred from the predecessor list and from every phi's
// incoming list.
func (b *Block) RemovePred(pred BlockID) {
	out := b.Preds[:0]
	for _, p := range b.Preds {
		if p != pred {
			out = append(out, p)
		}
	}
	b.Preds = out
	for i := range b.Phis {
		ins := b.Phis[i].Incomings[:0]
		for _, in := range b.Phis[i].Incomings {
			if in.Pred != pred {
				ins = append(ins, in)
			}
		}
		b.Phis[i].Incomings = ins
	}
}
