package optpass

import (
	"fmt"

	"rayzor/internal/mir"
)

// OptLevel selects a pass preset.
type OptLevel uint8

const (
	// O0 runs no passes.
	O0 OptLevel = iota
	// O1 runs the cheap cleanup set.
	O1
	// O2 adds redundancy elimination and loop optimizations.
	O2
	// O3 runs inlining first, then global value numbering, CSE, LICM,
	// tail-call marking, CFG simplification and DCE; it leaves out constant
	// folding, copy propagation and unreachable-block elimination.
	O3
)

func (l OptLevel) String() string {
	switch l {
	case O0:
		return "O0"
	case O1:
		return "O1"
	case O2:
		return "O2"
	case O3:
		return "O3"
	default:
		return fmt.Sprintf("O?(%d)", uint8(l))
	}
}

// ParseOptLevel reads "O0".."O3" (or bare digits).
func ParseOptLevel(s string) (OptLevel, error) {
	switch s {
	case "O0", "o0", "0":
		return O0, nil
	case "O1", "o1", "1":
		return O1, nil
	case "O2", "o2", "2":
		return O2, nil
	case "O3", "o3", "3":
		return O3, nil
	default:
		return O0, fmt.Errorf("unknown optimization level %q", s)
	}
}

// defaultMaxIterations caps the module-scope fixed-point loop. Every pass
// is monotone over a shrinking measure, so real modules converge in a
// handful of rounds; hitting the cap is reported as non-convergence.
const defaultMaxIterations = 64

// PassStats is the per-pass accumulated report over a Run.
type PassStats struct {
	Name             string
	Runs             int
	ModifiedRuns     int
	EliminatedInstrs int
	EliminatedBlocks int
	Stats            map[string]int64
}

// Summary reports one Manager.Run.
type Summary struct {
	Iterations int
	Converged  bool
	Passes     []PassStats
}

// NonConvergenceError reports the pipeline hitting its iteration cap while
// passes still made changes. The module stays in its last consistent
// state.
type NonConvergenceError struct {
	Iterations int
}

func (e *NonConvergenceError) Error() string {
	return fmt.Sprintf("optimization pipeline did not converge after %d iterations", e.Iterations)
}

// Manager runs registered passes in declared order, repeating the whole
// sequence until no pass reports a modification.
type Manager struct {
	passes        []Pass
	MaxIterations int
}

// NewManager creates a manager over an explicit pass list.
func NewManager(passes ...Pass) *Manager {
	return &Manager{passes: passes, MaxIterations: defaultMaxIterations}
}

// NewManagerForLevel builds the preset pipeline for an optimization level.
func NewManagerForLevel(level OptLevel) *Manager {
	switch level {
	case O1:
		return NewManager(
			NewDeadCodeElimination(),
			NewConstantFolding(),
			NewCopyPropagation(),
			NewUnreachableBlockElimination(),
		)
	case O2:
		return NewManager(
			NewDeadCodeElimination(),
			NewConstantFolding(),
			NewCopyPropagation(),
			NewUnreachableBlockElimination(),
			NewCommonSubexpressionElimination(),
			NewLoopInvariantCodeMotion(),
			NewControlFlowSimplification(),
			NewDeadCodeElimination(),
		)
	case O3:
		return NewManager(
			NewInlining(nil),
			NewGlobalValueNumbering(),
			NewCommonSubexpressionElimination(),
			NewLoopInvariantCodeMotion(),
			NewTailCallMarking(),
			NewControlFlowSimplification(),
			NewDeadCodeElimination(),
		)
	default:
		return NewManager()
	}
}

// Passes returns the registered pass names in declared order.
func (mg *Manager) Passes() []string {
	names := make([]string, len(mg.passes))
	for i, p := range mg.passes {
		names[i] = p.Name()
	}
	return names
}

// Run iterates the registered sequence to a module-scope fixed point. On
// cap exhaustion the module is left in its last consistent state and a
// NonConvergenceError is returned alongside the summary.
func (mg *Manager) Run(m *mir.Module) (Summary, error) {
	maxIter := mg.MaxIterations
	if maxIter <= 0 {
		maxIter = defaultMaxIterations
	}

	summary := Summary{Passes: make([]PassStats, len(mg.passes))}
	for i, p := range mg.passes {
		summary.Passes[i].Name = p.Name()
	}

	for iter := 0; iter < maxIter; iter++ {
		summary.Iterations = iter + 1
		anyModified := false
		for i, p := range mg.passes {
			res, err := p.RunOnModule(m)
			ps := &summary.Passes[i]
			ps.Runs++
			if res.Modified {
				ps.ModifiedRuns++
				anyModified = true
			}
			ps.EliminatedInstrs += res.EliminatedInstrs
			ps.EliminatedBlocks += res.EliminatedBlocks
			for k, v := range res.Stats {
				if ps.Stats == nil {
					ps.Stats = make(map[string]int64, 4)
				}
				ps.Stats[k] += v
			}
			if err != nil {
				return summary, fmt.Errorf("pass %s: %w", p.Name(), err)
			}
		}
		if !anyModified {
			summary.Converged = true
			return summary, nil
		}
	}
	return summary, &NonConvergenceError{Iterations: summary.Iterations}
}
