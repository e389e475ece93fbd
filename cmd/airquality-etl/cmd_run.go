package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/i474232898/airquality-etl/internal/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run acquisition, cleaning, transformation and loading once",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStage(cmd, true, (*pipeline.Pipeline).Run)
	},
}

var acquireCmd = &cobra.Command{
	Use:   "acquire",
	Short: "Fetch and merge the sources into the raw checkpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStage(cmd, true, (*pipeline.Pipeline).Acquire)
	},
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean the raw checkpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStage(cmd, false, (*pipeline.Pipeline).Clean)
	},
}

var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Transform the cleaned checkpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStage(cmd, false, (*pipeline.Pipeline).Transform)
	},
}

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load the transformed checkpoint into the destination table",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStage(cmd, false, (*pipeline.Pipeline).Load)
	},
}

func init() {
	rootCmd.AddCommand(runCmd, acquireCmd, cleanCmd, transformCmd, loadCmd)
}

func runStage(cmd *cobra.Command, withSources bool, stage func(*pipeline.Pipeline, context.Context) (pipeline.Report, error)) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	p, err := newPipeline(cfg, logger, withSources)
	if err != nil {
		return err
	}

	_, err = stage(p, cmd.Context())
	return err
}
