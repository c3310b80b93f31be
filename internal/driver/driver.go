// Package driver orchestrates compilation units through the core
// pipeline: TAST lowering, the optimization pipeline, stripping, and
// bytecode encoding, with per-module parallelism and a single-threaded
// merge for cross-module invariants.
package driver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"rayzor/internal/bytecode"
	"rayzor/internal/cache"
	"rayzor/internal/config"
	"rayzor/internal/diag"
	"rayzor/internal/lifetime"
	"rayzor/internal/mir"
	"rayzor/internal/optpass"
	"rayzor/internal/source"
	"rayzor/internal/symbols"
	"rayzor/internal/tast"
	"rayzor/internal/types"
	"rayzor/internal/version"
)

// Unit is one compilation unit: a typed module owning its own tables.
type Unit struct {
	Name    string
	TAST    *tast.Module
	Types   *types.Interner
	Syms    *symbols.Table
	Strings *source.Interner

	// Source is the raw source content backing the cache digest.
	Source []byte
	// SourcePath and SourceTimestamp feed the bytecode metadata.
	SourcePath      string
	SourceTimestamp uint64
	Dependencies    []string
}

// UnitResult is the per-unit outcome.
type UnitResult struct {
	Name     string
	MIR      *mir.Module
	Bytecode []byte
	Summary  optpass.Summary
	CacheHit bool
	Diags    *diag.Bag
	Err      error
}

// Stage identifies pipeline progress for observers.
type Stage uint8

const (
	// StageLower is TAST-to-MIR construction.
	StageLower Stage = iota
	// StageOptimize is the pass pipeline.
	StageOptimize
	// StageStrip is tree-shaking.
	StageStrip
	// StageEncode is bytecode serialization.
	StageEncode
	// StageDone marks unit completion.
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageLower:
		return "lower"
	case StageOptimize:
		return "optimize"
	case StageStrip:
		return "strip"
	case StageEncode:
		return "encode"
	case StageDone:
		return "done"
	default:
		return "?"
	}
}

// Progress receives stage transitions; safe for concurrent calls.
type Progress func(unit string, stage Stage, detail string)

// Driver runs units through the pipeline.
type Driver struct {
	Config   config.Config
	Cache    *cache.DiskCache
	Progress Progress
}

// New creates a driver, opening the disk cache when enabled.
func New(cfg config.Config) (*Driver, error) {
	d := &Driver{Config: cfg}
	if cfg.EnableCache {
		dir, err := cfg.EffectiveCacheDir("rayzor")
		if err != nil {
			return nil, err
		}
		c, err := cache.Open(dir)
		if err != nil {
			return nil, err
		}
		d.Cache = c
	}
	return d, nil
}

func (d *Driver) progress(unit string, stage Stage, detail string) {
	if d.Progress != nil {
		d.Progress(unit, stage, detail)
	}
}

// CompileModules compiles units concurrently, one pipeline per unit, each
// owning its own tables, then performs the single-threaded merge step
// (class-hierarchy validation and the global lifetime solve). The error
// reports the first hard failure; per-unit problems land in each result.
func (d *Driver) CompileModules(ctx context.Context, units []*Unit) ([]*UnitResult, error) {
	if d.Config.LoadStdlib {
		units = append([]*Unit{StdlibUnit()}, units...)
	}
	results := make([]*UnitResult, len(units))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	for i, unit := range units {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res := d.compileUnit(unit)
			mu.Lock()
			results[i] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}

	if err := d.merge(units, results); err != nil {
		return results, err
	}
	return results, nil
}

func (d *Driver) compileUnit(unit *Unit) *UnitResult {
	res := &UnitResult{Name: unit.Name, Diags: diag.NewBag(256)}
	level, err := d.Config.Level()
	if err != nil {
		res.Err = err
		return res
	}

	// Cache consult.
	var key cache.Key
	if d.Cache != nil && len(unit.Source) > 0 {
		key = cache.Key{SourceDigest: cache.Digest(unit.Source), OptLevel: uint8(level)}
		var payload cache.Payload
		if hit, err := d.Cache.Get(key, &payload); err == nil && hit {
			if m, _, err := d.decode(unit, payload.Bytecode); err == nil {
				res.MIR = m
				res.Bytecode = payload.Bytecode
				res.CacheHit = true
				d.progress(unit.Name, StageDone, "cached")
				return res
			}
			// Undecodable entries fall through to a fresh compile.
		}
	}

	if d.Config.TargetTriple != "" {
		unit.Types.ApplyTargetDefaults(d.Config.TargetTriple)
	}

	// Lower.
	d.progress(unit.Name, StageLower, "")
	reporter := diag.BagReporter{Bag: res.Diags}
	lo := mir.NewLowerer(unit.Types, unit.Syms, unit.TAST, reporter)
	// Construction errors abort only the offending functions (reported
	// through the bag); the rest of the module continues.
	m, _ := lo.LowerModule()
	res.MIR = m

	// Optimize.
	d.progress(unit.Name, StageOptimize, level.String())
	mgr := optpass.NewManagerForLevel(level)
	summary, err := mgr.Run(m)
	res.Summary = summary
	if err != nil {
		// Non-convergence leaves the module consistent; report and
		// continue with the last state.
		res.Diags.Add(&diag.Diagnostic{
			Severity: diag.SevWarning,
			Code:     diag.OptNonConvergence,
			Message:  err.Error(),
		})
	}

	// Strip removes MIR functions only; the lifetime solve in merge reads
	// the unit's TAST, which stripping leaves intact, so constraints of
	// stripped functions are still seen by the solver.
	if d.Config.Strip {
		d.progress(unit.Name, StageStrip, "")
		removed := Strip(m, unit.Strings)
		if removed > 0 {
			d.progress(unit.Name, StageStrip, fmt.Sprintf("%d removed", removed))
		}
	}

	// Encode.
	d.progress(unit.Name, StageEncode, "")
	meta := bytecode.Metadata{
		Name:             unit.Name,
		SourcePath:       unit.SourcePath,
		SourceTimestamp:  unit.SourceTimestamp,
		CompileTimestamp: uint64(time.Now().Unix()),
		Dependencies:     unit.Dependencies,
		CompilerVersion:  version.Version,
	}
	data, err := bytecode.NewWriter(unit.Types, unit.Strings, meta).WriteModule(m)
	if err != nil {
		res.Err = err
		return res
	}
	res.Bytecode = data

	if d.Cache != nil && len(unit.Source) > 0 {
		payload := cache.Payload{
			ModuleName:      unit.Name,
			SourcePath:      unit.SourcePath,
			SourceTimestamp: unit.SourceTimestamp,
			CompilerVersion: version.Version,
			Bytecode:        data,
		}
		if err := d.Cache.Put(key, &payload); err != nil {
			res.Diags.Add(&diag.Diagnostic{
				Severity: diag.SevWarning,
				Code:     diag.DriverCacheError,
				Message:  err.Error(),
			})
		}
	}

	d.progress(unit.Name, StageDone, "")
	return res
}

func (d *Driver) decode(unit *Unit, data []byte) (*mir.Module, bytecode.Metadata, error) {
	return bytecode.NewReader(data, unit.Types, unit.Strings).ReadModule()
}

// merge is the single-threaded cross-module step: class-hierarchy cycle
// validation per table and the global lifetime solve over every unit.
// The lifetime solver runs before any caller strips further, so entry
// reachability never hides a constraint.
func (d *Driver) merge(units []*Unit, results []*UnitResult) error {
	for i, unit := range units {
		if unit.Syms != nil {
			if err := unit.Syms.Hierarchy.ValidateNoInheritanceCycles(); err != nil {
				results[i].Diags.Add(&diag.Diagnostic{
					Severity: diag.SevError,
					Code:     diag.SemaInheritanceCycle,
					Message:  err.Error(),
				})
			}
		}
		violations, err := lifetime.NewAnalysis(unit.TAST).Run()
		if err != nil {
			var ae *lifetime.AnalysisError
			if asAnalysisError(err, &ae) && ae.Kind == lifetime.ErrGlobalViolations {
				for _, v := range violations {
					results[i].Diags.Add(&diag.Diagnostic{
						Severity: diag.SevError,
						Code:     lifetimeCode(v.Kind),
						Message:  v.Message,
						Primary:  v.Site,
					})
				}
				continue
			}
			return fmt.Errorf("merge: %s: %w", unit.Name, err)
		}
	}
	return nil
}

func asAnalysisError(err error, target **lifetime.AnalysisError) bool {
	ae, ok := err.(*lifetime.AnalysisError)
	if ok {
		*target = ae
	}
	return ok
}

func lifetimeCode(kind lifetime.ViolationKind) diag.Code {
	switch kind {
	case lifetime.CrossFunctionUseAfterFree:
		return diag.LifetimeCrossFunctionUseAfterFree
	case lifetime.InvalidCrossFunctionBorrow:
		return diag.LifetimeInvalidCrossFunctionBorrow
	case lifetime.RecursiveLifetimeExtension:
		return diag.LifetimeRecursiveExtension
	case lifetime.VirtualMethodLifetimeMismatch:
		return diag.LifetimeVirtualMethodMismatch
	default:
		return diag.LifetimeInfo
	}
}
