package mir

import (
	"fmt"

	"fortio.org/safecast"

	"rayzor/internal/source"
	"rayzor/internal/symbols"
	"rayzor/internal/types"
)

// Param is one typed parameter register.
type Param struct {
	Reg  RegID
	Type types.TypeID
	Name source.StringID
}

// ExcHandler describes one exception-handler region entry: blocks covered
// by the region route thrown values of the listed types to Handler, with
// the exception bound to Binding.
type ExcHandler struct {
	ExcTypes []types.TypeID
	Handler  BlockID
	Binding  RegID
}

// Func represents one lowered function: a CFG of basic blocks over typed
// virtual registers, plus the exception-region side table consumed by
// backends.
type Func struct {
	ID   FuncID
	Sym  symbols.SymbolID
	Name source.StringID
	Span source.Span

	Params []Param
	Result types.TypeID

	// Blocks is dense: index by BlockID; slot 0 and removed blocks are nil.
	Blocks []*Block
	Entry  BlockID

	// regTypes is indexed by RegID; slot 0 is the NoRegID sentinel.
	regTypes []types.TypeID

	// ExcHandlers maps a covered block to its innermost handler entry.
	ExcHandlers map[BlockID]ExcHandler
}

// NewFunc creates an empty function with allocators reset.
func NewFunc(sym symbols.SymbolID, name source.StringID, result types.TypeID) *Func {
	return &Func{
		Sym:         sym,
		Name:        name,
		Result:      result,
		Blocks:      []*Block{nil},
		regTypes:    []types.TypeID{types.NoTypeID},
		ExcHandlers: make(map[BlockID]ExcHandler),
	}
}

// NewReg allocates a fresh typed register.
func (f *Func) NewReg(ty types.TypeID) RegID {
	idx, err := safecast.Conv[uint32](len(f.regTypes))
	if err != nil {
		panic(fmt.Errorf("mir: register allocator overflow: %w", err))
	}
	f.regTypes = append(f.regTypes, ty)
	return RegID(idx)
}

// RegType returns the declared type of a register.
func (f *Func) RegType(r RegID) types.TypeID {
	if !r.IsValid() || int(r) >= len(f.regTypes) {
		return types.NoTypeID
	}
	return f.regTypes[r]
}

// SetRegType overrides a register's type (used by scalar replacement).
func (f *Func) SetRegType(r RegID, ty types.TypeID) {
	if r.IsValid() && int(r) < len(f.regTypes) {
		f.regTypes[r] = ty
	}
}

// RegCount returns the number of allocated registers.
func (f *Func) RegCount() int { return len(f.regTypes) - 1 }

// NewBlock allocates a fresh empty block in traversal order.
func (f *Func) NewBlock() *Block {
	idx, err := safecast.Conv[uint32](len(f.Blocks))
	if err != nil {
		panic(fmt.Errorf("mir: block allocator overflow: %w", err))
	}
	b := &Block{ID: BlockID(idx)}
	f.Blocks = append(f.Blocks, b)
	return b
}

// Block returns the block with the given ID, or nil.
func (f *Func) Block(id BlockID) *Block {
	if !id.IsValid() || int(id) >= len(f.Blocks) {
		return nil
	}
	return f.Blocks[id]
}

// RemoveBlock clears the slot for id; BlockIDs are never reused.
func (f *Func) RemoveBlock(id BlockID) {
	if id.IsValid() && int(id) < len(f.Blocks) {
		f.Blocks[id] = nil
	}
}

// BlockCount returns the number of live blocks.
func (f *Func) BlockCount() int {
	n := 0
	for _, b := range f.Blocks[1:] {
		if b != nil {
			n++
		}
	}
	return n
}

// EachBlock calls fn for every live block in id order.
func (f *Func) EachBlock(fn func(*Block)) {
	for _, b := range f.Blocks[1:] {
		if b != nil {
			fn(b)
		}
	}
}

// RecomputePreds rebuilds every block's predecessor list from terminator
// successor edges.
func (f *Func) RecomputePreds() {
	f.EachBlock(func(b *Block) { b.Preds = b.Preds[:0] })
	f.EachBlock(func(b *Block) {
		for _, succ := range b.Term.Successors(nil) {
			if s := f.Block(succ); s != nil && !s.HasPred(b.ID) {
				s.Preds = append(s.Preds, b.ID)
			}
		}
	})
}
