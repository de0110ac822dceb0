package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "taguchi-engine",
	Short: "Taguchi-method parameter optimization against a black-box target",
	Long: `taguchi-engine drives orthogonal-array experiments against an external
target executable, checkpoints progress after every trial, and reports
S/N ratios, ANOVA, and the predicted optimal configuration.`,
}

func init() {
	rootCmd.AddCommand(runCmd, resumeCmd, reportCmd)
}
