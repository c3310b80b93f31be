package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"rayzor/internal/bytecode"
	"rayzor/internal/mir"
	"rayzor/internal/source"
	"rayzor/internal/types"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.rzbc>",
	Short: "Decode a bytecode module and dump its metadata and MIR",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configureColor(cmd)
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		ti := types.NewInterner()
		strs := source.NewInterner()
		ti.Strings = strs
		m, meta, err := bytecode.NewReader(data, ti, strs).ReadModule()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		bold := color.New(color.Bold)
		bold.Fprintf(out, "module %s\n", meta.Name)
		fmt.Fprintf(out, "  source:   %s\n", meta.SourcePath)
		fmt.Fprintf(out, "  compiler: %s\n", meta.CompilerVersion)
		if len(meta.Dependencies) > 0 {
			fmt.Fprintf(out, "  deps:     %v\n", meta.Dependencies)
		}
		fmt.Fprintf(out, "  functions: %d\n\n", len(m.Funcs))

		return mir.DumpModule(out, m, ti, strs)
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify <file.rzbc>...",
	Short: "Verify bytecode headers, checksums, and MIR invariants",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configureColor(cmd)
		out := cmd.OutOrStdout()
		ok := color.New(color.FgGreen)
		bad := color.New(color.FgRed)

		failed := 0
		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				bad.Fprintf(out, "%s: %v\n", path, err)
				failed++
				continue
			}
			ti := types.NewInterner()
			strs := source.NewInterner()
			ti.Strings = strs
			m, _, err := bytecode.NewReader(data, ti, strs).ReadModule()
			if err != nil {
				bad.Fprintf(out, "%s: %v\n", path, err)
				failed++
				continue
			}
			if err := mir.Validate(m); err != nil {
				bad.Fprintf(out, "%s: invalid MIR: %v\n", path, err)
				failed++
				continue
			}
			ok.Fprintf(out, "%s: ok (%d functions)\n", path, len(m.Funcs))
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d file(s) failed verification", failed, len(args))
		}
		return nil
	},
}
