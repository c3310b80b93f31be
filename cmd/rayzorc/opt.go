package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"rayzor/internal/bytecode"
	"rayzor/internal/config"
	"rayzor/internal/driver"
	"rayzor/internal/mir"
	"rayzor/internal/optpass"
	"rayzor/internal/source"
	"rayzor/internal/types"
	"rayzor/internal/ui"
)

var (
	optLevelFlag  string
	optOutputFlag string
	optStatsFlag  bool
	optNoUIFlag   bool
)

var optCmd = &cobra.Command{
	Use:   "opt <file.rzbc>...",
	Short: "Run the optimization pipeline over bytecode modules",
	Long: `Reads each .rzbc module, runs the pass pipeline at the selected
optimization level, and writes the result back (in place, or to -o for a
single input). Partial writes go to a temporary file first.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runOpt,
}

func init() {
	optCmd.Flags().StringVarP(&optLevelFlag, "opt-level", "O", "", "optimization level (O0..O3)")
	optCmd.Flags().StringVarP(&optOutputFlag, "output", "o", "", "output path (single input only)")
	optCmd.Flags().BoolVar(&optStatsFlag, "stats", false, "print per-pass statistics")
	optCmd.Flags().BoolVar(&optNoUIFlag, "no-ui", false, "disable the live progress view")
}

func runOpt(cmd *cobra.Command, args []string) error {
	configureColor(cmd)
	if optOutputFlag != "" && len(args) != 1 {
		return fmt.Errorf("-o requires exactly one input file")
	}

	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if optLevelFlag != "" {
		cfg.OptLevel = optLevelFlag
	}
	level, err := cfg.Level()
	if err != nil {
		return err
	}

	quiet, _ := cmd.Flags().GetBool("quiet")
	useUI := !optNoUIFlag && !quiet && len(args) > 1 && isTerminal(os.Stdout)

	type outcome struct {
		path    string
		summary optpass.Summary
		err     error
	}
	outcomes := make([]outcome, len(args))

	process := func(report func(ui.Event)) {
		for i, path := range args {
			report(ui.Event{Unit: path, Stage: driver.StageOptimize})
			summary, err := optimizeFile(path, optOutputFlag, level)
			outcomes[i] = outcome{path: path, summary: summary, err: err}
			report(ui.Event{Unit: path, Stage: driver.StageDone, Err: err != nil})
		}
	}

	if useUI {
		events := make(chan ui.Event, 64)
		done := make(chan struct{})
		go func() {
			process(func(ev ui.Event) { events <- ev })
			close(events)
			close(done)
		}()
		model := ui.NewProgressModel(fmt.Sprintf("optimizing at %s", level), args, events)
		program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
		if _, err := program.Run(); err != nil {
			return err
		}
		<-done
	} else {
		process(func(ui.Event) {})
	}

	failed := 0
	out := cmd.OutOrStdout()
	for _, oc := range outcomes {
		if oc.err != nil {
			color.New(color.FgRed).Fprintf(out, "%s: %v\n", oc.path, oc.err)
			failed++
			continue
		}
		if !quiet {
			fmt.Fprintf(out, "%s: %d iteration(s)\n", oc.path, oc.summary.Iterations)
		}
		if optStatsFlag {
			printPassTable(out, oc.summary)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d file(s) failed", failed, len(args))
	}
	return nil
}

func optimizeFile(path, output string, level optpass.OptLevel) (optpass.Summary, error) {
	var summary optpass.Summary
	data, err := os.ReadFile(path)
	if err != nil {
		return summary, err
	}
	ti := types.NewInterner()
	strs := source.NewInterner()
	ti.Strings = strs
	m, meta, err := bytecode.NewReader(data, ti, strs).ReadModule()
	if err != nil {
		return summary, err
	}

	mgr := optpass.NewManagerForLevel(level)
	summary, err = mgr.Run(m)
	if err != nil {
		return summary, err
	}
	if err := mir.Validate(m); err != nil {
		return summary, fmt.Errorf("post-optimization MIR invalid: %w", err)
	}

	outData, err := bytecode.NewWriter(ti, strs, meta).WriteModule(m)
	if err != nil {
		return summary, err
	}
	dest := output
	if dest == "" {
		dest = path
	}
	return summary, writeAtomic(dest, outData)
}

// writeAtomic writes to a temp file and renames, so interrupted runs
// never leave a truncated module behind.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, ".rzbc-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer os.Remove(tmp)
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// printPassTable renders per-pass statistics aligned by display width.
func printPassTable(out io.Writer, summary optpass.Summary) {
	nameW := len("pass")
	for _, ps := range summary.Passes {
		if w := runewidth.StringWidth(ps.Name); w > nameW {
			nameW = w
		}
	}
	header := fmt.Sprintf("  %s  runs  modified  instrs  blocks\n", runewidth.FillRight("pass", nameW))
	fmt.Fprint(out, color.New(color.Bold).Sprint(header))
	for _, ps := range summary.Passes {
		fmt.Fprintf(out, "  %s  %4d  %8d  %6d  %6d\n",
			runewidth.FillRight(ps.Name, nameW), ps.Runs, ps.ModifiedRuns, ps.EliminatedInstrs, ps.EliminatedBlocks)
		if len(ps.Stats) > 0 {
			keys := make([]string, 0, len(ps.Stats))
			for k := range ps.Stats {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			var parts []string
			for _, k := range keys {
				parts = append(parts, fmt.Sprintf("%s=%d", k, ps.Stats[k]))
			}
			fmt.Fprintf(out, "  %s    %s\n", runewidth.FillRight("", nameW), strings.Join(parts, " "))
		}
	}
}
