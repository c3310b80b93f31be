package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rayzor/internal/version"
)

var rootCmd = &cobra.Command{
	Use:           "rayzorc",
	Short:         "Rayzor compiler core toolchain",
	Long:          `Rayzor bytecode tools: optimize, inspect, and verify .rzbc modules`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.Version = version.VersionString()

	rootCmd.AddCommand(optCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().String("config", "rayzor.toml", "path to configuration file")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "rayzorc: %v\n", err)
		os.Exit(1)
	}
}
