package optpass

import (
	"rayzor/internal/mir"
)

// GlobalValueNumbering walks the dominator tree in preorder, each block
// inheriting its immediate dominator's value table. An instruction whose
// key (computed over replacement-resolved operands) already has a
// representative in the inherited scope is replaced by it everywhere.
type GlobalValueNumbering struct{}

// NewGlobalValueNumbering constructs the pass.
func NewGlobalValueNumbering() *GlobalValueNumbering { return &GlobalValueNumbering{} }

// Name implements Pass.
func (p *GlobalValueNumbering) Name() string { return "gvn" }

// RunOnModule implements Pass.
func (p *GlobalValueNumbering) RunOnModule(m *mir.Module) (Result, error) {
	res := eachFunc(m, p.runOnFunc)
	return res, nil
}

func (p *GlobalValueNumbering) runOnFunc(f *mir.Func) Result {
	var res Result
	dom := mir.BuildDomTree(f)

	// Per-block value tables; a block starts from a copy of its idom's
	// final table.
	tables := make(map[mir.BlockID]map[string]mir.RegID)
	repl := make(map[mir.RegID]mir.RegID)
	removed := make(map[mir.RegID]struct{})

	resolve := func(r mir.RegID) mir.RegID {
		for {
			next, ok := repl[r]
			if !ok {
				return r
			}
			r = next
		}
	}

	for _, id := range dom.Preorder() {
		b := f.Block(id)
		if b == nil {
			continue
		}
		var table map[string]mir.RegID
		if idom, ok := dom.IDom(id); ok && idom != id {
			parent := tables[idom]
			table = make(map[string]mir.RegID, len(parent)+8)
			for k, v := range parent {
				table[k] = v
			}
		} else {
			table = make(map[string]mir.RegID, 8)
		}

		for i := range b.Instrs {
			in := b.Instrs[i]
			// Key over the representative operands.
			var buf []mir.RegID
			buf = in.Uses(buf)
			for _, u := range buf {
				if r := resolve(u); r != u {
					in.ReplaceUses(u, r)
				}
			}
			key, ok := exprKey(&in)
			if !ok {
				continue
			}
			if rep, dup := table[key]; dup && in.Dest.IsValid() {
				repl[in.Dest] = rep
				removed[in.Dest] = struct{}{}
				res.bump("gvn_hits", 1)
				continue
			}
			table[key] = in.Dest
		}
		tables[id] = table
	}

	if len(repl) == 0 {
		return res
	}

	// Apply replacements across all instructions and terminators, then
	// drop the subsumed definitions.
	f.EachBlock(func(b *mir.Block) {
		for i := range b.Instrs {
			var buf []mir.RegID
			buf = b.Instrs[i].Uses(buf)
			for _, u := range buf {
				if r := resolve(u); r != u {
					b.Instrs[i].ReplaceUses(u, r)
				}
			}
		}
		for i := range b.Phis {
			for j := range b.Phis[i].Incomings {
				b.Phis[i].Incomings[j].Value = resolve(b.Phis[i].Incomings[j].Value)
			}
		}
		var buf []mir.RegID
		buf = b.Term.Uses(buf)
		for _, u := range buf {
			if r := resolve(u); r != u {
				b.Term.ReplaceUses(u, r)
			}
		}
		kept := b.Instrs[:0]
		for i := range b.Instrs {
			if _, dead := removed[b.Instrs[i].Dest]; dead && b.Instrs[i].Dest.IsValid() {
				res.EliminatedInstrs++
				continue
			}
			kept = append(kept, b.Instrs[i])
		}
		b.Instrs = kept
	})
	res.Modified = true
	return res
}
