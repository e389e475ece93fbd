package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/i474232898/airquality-etl/internal/acquire"
	"github.com/i474232898/airquality-etl/internal/acquire/providers"
	"github.com/i474232898/airquality-etl/internal/config"
	"github.com/i474232898/airquality-etl/internal/logging"
	"github.com/i474232898/airquality-etl/internal/pipeline"
)

var sourcesFlag []string

var rootCmd = &cobra.Command{
	Use:   "airquality-etl",
	Short: "Batch ETL for air-quality sensor readings",
	Long: `airquality-etl acquires air-quality and weather readings, cleans them,
enriches them with hourly averages and AQI categories, and loads them into
a relational table.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&sourcesFlag, "sources", nil,
		"ordered sources to acquire from (overrides SOURCES)")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads configuration and installs the process logger.
func setup() (*config.AppConfig, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if len(sourcesFlag) > 0 {
		cfg.Sources = sourcesFlag
		if err := cfg.Validate(); err != nil {
			return nil, nil, err
		}
	}

	logger := logging.New(cfg.AppEnv, cfg.LogLevel)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// newPipeline builds the pipeline. Sources are only constructed when
// withSources is set, so stage commands that start from a checkpoint
// do not need a location or provider keys.
func newPipeline(cfg *config.AppConfig, logger *slog.Logger, withSources bool) (*pipeline.Pipeline, error) {
	var sources []acquire.Source
	if withSources {
		var err error
		sources, err = providers.Build(cfg.Sources, providers.Options{
			// Shared HTTP client for outbound provider calls.
			Client:            &http.Client{Timeout: cfg.HTTPTimeout},
			Location:          cfg.Location,
			OpenWeatherAPIKey: cfg.OpenWeatherAPIKey,
			SourceFile:        cfg.SourceFile,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build sources: %w", err)
		}
	}

	return pipeline.New(pipeline.Config{
		DataDir:     cfg.DataDir,
		Checkpoints: cfg.Checkpoints,
		Lookback:    cfg.Lookback,
		DB:          cfg.DB,
		LogLevel:    cfg.LogLevel,
	}, sources, logger), nil
}
