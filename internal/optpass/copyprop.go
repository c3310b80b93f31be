package optpass

import (
	"rayzor/internal/mir"
)

// CopyPropagation rewrites uses of `r := copy(s)` destinations to read s
// directly, terminators included. The stranded copies fall to the next DCE
// run.
type CopyPropagation struct{}

// NewCopyPropagation constructs the pass.
func NewCopyPropagation() *CopyPropagation { return &CopyPropagation{} }

// Name implements Pass.
func (p *CopyPropagation) Name() string { return "copyprop" }

// RunOnModule implements Pass.
func (p *CopyPropagation) RunOnModule(m *mir.Module) (Result, error) {
	res := eachFunc(m, p.runOnFunc)
	return res, nil
}

func (p *CopyPropagation) runOnFunc(f *mir.Func) Result {
	var res Result

	copies := make(map[mir.RegID]mir.RegID)
	f.EachBlock(func(b *mir.Block) {
		for i := range b.Instrs {
			in := &b.Instrs[i]
			if in.Kind == mir.InstrCopy && in.Dest.IsValid() {
				copies[in.Dest] = in.Copy.Src
			}
		}
	})
	if len(copies) == 0 {
		return res
	}

	before := countCopyUses(f, copies)
	replaceAllUses(f, copies)
	if before > 0 {
		res.Modified = true
		res.bump("propagated_uses", int64(before))
	}
	return res
}

func countCopyUses(f *mir.Func, copies map[mir.RegID]mir.RegID) int {
	n := 0
	var buf []mir.RegID
	f.EachBlock(func(b *mir.Block) {
		for i := range b.Phis {
			for _, in := range b.Phis[i].Incomings {
				if _, ok := copies[in.Value]; ok {
					n++
				}
			}
		}
		for i := range b.Instrs {
			if b.Instrs[i].Kind == mir.InstrCopy {
				// The defining copy itself is not a propagation site.
				continue
			}
			buf = b.Instrs[i].Uses(buf[:0])
			for _, r := range buf {
				if _, ok := copies[r]; ok {
					n++
				}
			}
		}
		buf = b.Term.Uses(buf[:0])
		for _, r := range buf {
			if _, ok := copies[r]; ok {
				n++
			}
		}
	})
	return n
}
