// Package pipeline sequences acquisition, cleaning, transformation and
// loading, and runs each stage standalone from the previous checkpoint.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/i474232898/airquality-etl/internal/acquire"
	"github.com/i474232898/airquality-etl/internal/clean"
	"github.com/i474232898/airquality-etl/internal/dataset"
	"github.com/i474232898/airquality-etl/internal/load"
	"github.com/i474232898/airquality-etl/internal/logging"
	"github.com/i474232898/airquality-etl/internal/store"
	"github.com/i474232898/airquality-etl/internal/transform"
)

type Config struct {
	DataDir     string
	Checkpoints bool
	Lookback    time.Duration
	DB          store.Config
	LogLevel    slog.Level
}

// Pipeline runs the ETL stages. It holds no state between runs.
type Pipeline struct {
	cfg       Config
	sources   []acquire.Source
	artifacts dataset.Artifacts
	logger    *slog.Logger
	now       func() time.Time
}

func New(cfg Config, sources []acquire.Source, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		cfg:       cfg,
		sources:   sources,
		artifacts: dataset.NewArtifacts(cfg.DataDir),
		logger:    logger,
		now:       time.Now,
	}
}

// Run executes Acquire → Clean → Transform → Load. The first failing stage
// stops the run; its error is logged, recorded in the report and returned.
// Stages hand data over in memory; checkpoints are written on the side when
// enabled.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	r := p.begin()
	defer r.close()

	r.log.Info("starting data acquisition")
	raw, err := r.acquire(ctx)
	if err != nil {
		return r.fail(StageAcquisition, err)
	}
	if p.cfg.Checkpoints {
		if err := r.checkpoint(StageAcquisition, p.artifacts.RawPath(), raw); err != nil {
			return r.fail(StageAcquisition, err)
		}
	}

	r.log.Info("starting data cleaning")
	cleaned, err := r.clean(raw)
	if err != nil {
		return r.fail(StageCleaning, err)
	}
	if p.cfg.Checkpoints {
		if err := r.checkpoint(StageCleaning, p.artifacts.CleanedPath(), dataset.CleanedTable(cleaned)); err != nil {
			return r.fail(StageCleaning, err)
		}
	}

	r.log.Info("starting data transformation")
	transformed := r.transform(cleaned)
	if p.cfg.Checkpoints {
		if err := r.checkpoint(StageTransformation, p.artifacts.TransformedPath(), dataset.TransformedTable(transformed)); err != nil {
			return r.fail(StageTransformation, err)
		}
	}

	r.log.Info("starting database loading")
	if err := r.load(ctx, transformed); err != nil {
		return r.fail(StageLoading, err)
	}

	return r.succeed()
}

// Acquire fetches and merges the sources and writes the raw artifact.
func (p *Pipeline) Acquire(ctx context.Context) (Report, error) {
	r := p.begin()
	defer r.close()

	raw, err := r.acquire(ctx)
	if err != nil {
		return r.fail(StageAcquisition, err)
	}
	if err := r.checkpoint(StageAcquisition, p.artifacts.RawPath(), raw); err != nil {
		return r.fail(StageAcquisition, err)
	}
	return r.succeed()
}

// Clean reads the raw artifact and writes the cleaned artifact.
func (p *Pipeline) Clean(ctx context.Context) (Report, error) {
	r := p.begin()
	defer r.close()

	raw, err := dataset.ReadTable(p.artifacts.RawPath())
	if err != nil {
		return r.fail(StageCleaning, fmt.Errorf("load combined raw data: %w", err))
	}
	r.stage(StageCleaning).Info("loaded raw data", "rows", raw.Len(), "path", p.artifacts.RawPath())

	cleaned, err := r.clean(raw)
	if err != nil {
		return r.fail(StageCleaning, err)
	}
	if err := r.checkpoint(StageCleaning, p.artifacts.CleanedPath(), dataset.CleanedTable(cleaned)); err != nil {
		return r.fail(StageCleaning, err)
	}
	return r.succeed()
}

// Transform reads the cleaned artifact and writes the transformed artifact.
func (p *Pipeline) Transform(ctx context.Context) (Report, error) {
	r := p.begin()
	defer r.close()

	cleaned, err := dataset.ReadCleaned(p.artifacts.CleanedPath())
	if err != nil {
		return r.fail(StageTransformation, fmt.Errorf("load cleaned data: %w", err))
	}
	r.report.Cleaned = len(cleaned.Rows)

	transformed := r.transform(cleaned)
	if err := r.checkpoint(StageTransformation, p.artifacts.TransformedPath(), dataset.TransformedTable(transformed)); err != nil {
		return r.fail(StageTransformation, err)
	}
	return r.succeed()
}

// Load reads the transformed artifact into the destination table.
func (p *Pipeline) Load(ctx context.Context) (Report, error) {
	r := p.begin()
	defer r.close()

	transformed, err := dataset.ReadTransformed(p.artifacts.TransformedPath())
	if err != nil {
		return r.fail(StageLoading, fmt.Errorf("load transformed data: %w", err))
	}
	r.report.Transformed = len(transformed.Rows)

	if err := r.load(ctx, transformed); err != nil {
		return r.fail(StageLoading, err)
	}
	return r.succeed()
}

// run is the state of a single execution.
type run struct {
	p      *Pipeline
	logs   *logging.Run
	log    *slog.Logger
	report Report
}

func (p *Pipeline) begin() *run {
	logs := logging.NewRun(p.logger, p.artifacts.Dir, p.cfg.LogLevel)
	r := &run{
		p:    p,
		logs: logs,
		report: Report{
			RunID:     logs.ID,
			StartedAt: p.now().UTC(),
			Status:    StatusRunning,
		},
	}
	r.log = r.stageLogger("pipeline")
	return r
}

func (r *run) close() {
	if err := r.logs.Close(); err != nil {
		r.logs.Logger().Warn("closing stage logs", "err", err)
	}
}

func (r *run) stageLogger(name string) *slog.Logger {
	l, err := r.logs.Stage(name)
	if err != nil {
		r.logs.Logger().Warn("stage log file unavailable, logging to console only", "stage", name, "err", err)
	}
	return l
}

func (r *run) stage(s Stage) *slog.Logger {
	return r.stageLogger(string(s))
}

func (r *run) acquire(ctx context.Context) (dataset.Table, error) {
	log := r.stage(StageAcquisition)
	w := acquire.NewWindow(r.p.now(), r.p.cfg.Lookback)
	log.Info("acquiring", "sources", len(r.p.sources), "from", w.Start, "to", w.End)

	raw, err := acquire.New(r.p.sources, log).Acquire(ctx, w)
	if err != nil {
		return dataset.Table{}, err
	}
	r.report.Acquired = raw.Len()
	return raw, nil
}

func (r *run) clean(raw dataset.Table) (dataset.Cleaned, error) {
	cleaned, rep, err := clean.Clean(raw, r.stage(StageCleaning))
	r.report.Cleaning = rep
	if err != nil {
		return dataset.Cleaned{}, err
	}
	r.report.Cleaned = len(cleaned.Rows)
	return cleaned, nil
}

func (r *run) transform(cleaned dataset.Cleaned) dataset.Transformed {
	out := transform.Transform(cleaned, r.stage(StageTransformation))
	r.report.Transformed = len(out.Rows)
	return out
}

func (r *run) load(ctx context.Context, d dataset.Transformed) error {
	n, err := load.Load(ctx, r.p.cfg.DB, d, r.stage(StageLoading))
	if err != nil {
		return err
	}
	r.report.Loaded = n
	return nil
}

func (r *run) checkpoint(s Stage, path string, t dataset.Table) error {
	if err := dataset.WriteTable(path, t); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	r.stage(s).Info("saved checkpoint", "path", path, "rows", t.Len())
	return nil
}

func (r *run) fail(s Stage, err error) (Report, error) {
	r.report.FinishedAt = r.p.now().UTC()
	r.report.Status = StatusFailed
	r.report.FailedStage = s
	r.report.Error = err.Error()

	r.stage(s).Error("stage failed", "err", err)
	r.log.Error("pipeline failed", "stage", string(s), "err", err, "duration", r.report.Duration())
	return r.report, fmt.Errorf("%s: %w", s, err)
}

func (r *run) succeed() (Report, error) {
	r.report.FinishedAt = r.p.now().UTC()
	r.report.Status = StatusSucceeded
	r.log.Info("pipeline completed successfully",
		"acquired", r.report.Acquired,
		"cleaned", r.report.Cleaned,
		"transformed", r.report.Transformed,
		"loaded", r.report.Loaded,
		"duration", r.report.Duration(),
	)
	return r.report, nil
}
