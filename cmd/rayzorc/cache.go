package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rayzor/internal/cache"
	"rayzor/internal/config"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the incremental bytecode cache",
}

var cacheCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove every cached bytecode entry",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfgPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		dir, err := cfg.EffectiveCacheDir("rayzor")
		if err != nil {
			return err
		}
		c, err := cache.Open(dir)
		if err != nil {
			return err
		}
		if err := c.Clear(); err != nil {
			return err
		}
		quiet, _ := cmd.Flags().GetBool("quiet")
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", dir)
		}
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheCleanCmd)
}
