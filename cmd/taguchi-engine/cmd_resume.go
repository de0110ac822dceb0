package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/arvidsen/taguchi-engine/engine"
	"github.com/arvidsen/taguchi-engine/logging"
)

var resumeCmd = &cobra.Command{
	Use:   "resume <checkpoint.yaml>",
	Short: "Resume an interrupted experiment from its checkpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sink, err := logging.NewProduction()
		if err != nil {
			return err
		}
		defer sink.Sync()

		ctrl := engine.New(sink)
		payload, err := ctrl.Resume(context.Background(), args[0])
		if err != nil {
			return err
		}
		printPayload(payload)
		return nil
	},
}
