package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rayzor/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, _ []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "rayzorc %s\n", version.VersionString())
		return nil
	},
}
