package main

import (
	"github.com/spf13/cobra"

	"github.com/arvidsen/taguchi-engine/engine"
)

var reportCmd = &cobra.Command{
	Use:   "report <checkpoint.yaml>",
	Short: "Re-run analysis over an existing checkpoint without executing trials",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl := engine.New(nil)
		payload, err := ctrl.AnalyzeOnly(args[0])
		if err != nil {
			return err
		}
		printPayload(payload)
		return nil
	},
}
