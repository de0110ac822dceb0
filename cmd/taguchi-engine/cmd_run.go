package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/arvidsen/taguchi-engine/config"
	"github.com/arvidsen/taguchi-engine/engine"
	"github.com/arvidsen/taguchi-engine/logging"
)

var runCmd = &cobra.Command{
	Use:   "run <config.yaml>",
	Short: "Design and execute a fresh experiment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(args[0])
		if err != nil {
			return err
		}
		sink, err := newSink(cfg.Verbose)
		if err != nil {
			return err
		}
		defer sink.Sync()

		ctrl := engine.New(sink)
		payload, err := ctrl.Start(context.Background(), cfg)
		if err != nil {
			return err
		}
		printPayload(payload)
		return nil
	},
}

func newSink(verbose bool) (logging.Sink, error) {
	if verbose {
		return logging.NewDevelopment()
	}
	return logging.NewProduction()
}
