package cmd

import (
	"github.com/spf13/cobra"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Rank candidate release points over the configured search window",
	RunE:  runOptimize,
}

func init() {
	rootCmd.AddCommand(optimizeCmd)
}
