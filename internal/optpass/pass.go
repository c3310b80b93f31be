// Package optpass implements the MIR optimization pipeline: a uniform pass
// contract, level presets, and module-scope fixed-point iteration.
package optpass

import (
	"rayzor/internal/mir"
)

// Result reports what one pass did to a module.
type Result struct {
	Modified         bool
	EliminatedInstrs int
	EliminatedBlocks int
	Stats            map[string]int64
}

func (r *Result) bump(key string, delta int64) {
	if r.Stats == nil {
		r.Stats = make(map[string]int64, 4)
	}
	r.Stats[key] += delta
}

func (r *Result) merge(other Result) {
	r.Modified = r.Modified || other.Modified
	r.EliminatedInstrs += other.EliminatedInstrs
	r.EliminatedBlocks += other.EliminatedBlocks
	for k, v := range other.Stats {
		r.bump(k, v)
	}
}

// Pass is the uniform contract every optimization implements.
type Pass interface {
	Name() string
	RunOnModule(m *mir.Module) (Result, error)
}

// eachFunc visits functions in ascending id order for deterministic
// results.
func eachFunc(m *mir.Module, fn func(*mir.Func) Result) Result {
	var total Result
	for _, id := range m.FuncIDs() {
		total.merge(fn(m.Funcs[id]))
	}
	return total
}

// replaceAllUses rewrites register uses across instructions, phi
// incomings, and terminators of a whole function.
func replaceAllUses(f *mir.Func, repl map[mir.RegID]mir.RegID) {
	if len(repl) == 0 {
		return
	}
	resolve := func(r mir.RegID) mir.RegID {
		seen := 0
		for {
			next, ok := repl[r]
			if !ok || seen > len(repl) {
				return r
			}
			r = next
			seen++
		}
	}
	f.EachBlock(func(b *mir.Block) {
		for i := range b.Phis {
			for j := range b.Phis[i].Incomings {
				b.Phis[i].Incomings[j].Value = resolve(b.Phis[i].Incomings[j].Value)
			}
		}
		for i := range b.Instrs {
			for old := range repl {
				b.Instrs[i].ReplaceUses(old, resolve(old))
			}
		}
		for old := range repl {
			b.Term.ReplaceUses(old, resolve(old))
		}
	})
}
