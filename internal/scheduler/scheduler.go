package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/airquality-etl/internal/pipeline"
)

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context) (pipeline.Report, error)
}

// Recorder keeps run reports.
type Recorder interface {
	Save(r pipeline.Report)
}

// Scheduler periodically runs the pipeline. Runs never overlap: a tick that
// fires while a run is still in progress is skipped.
type Scheduler struct {
	scheduler *gocron.Scheduler
	runner    Runner
	history   Recorder
	interval  time.Duration
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new Scheduler. history may be nil.
func New(runner Runner, history Recorder, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		runner:    runner,
		history:   history,
		interval:  interval,
		logger:    logger.With("component", "scheduler"),
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
// The first run starts immediately. Cancelling ctx or calling Stop aborts
// the run in progress.
func (s *Scheduler) Start(ctx context.Context) error {
	interval := s.interval
	if interval <= 0 {
		interval = time.Hour
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	_, err := s.scheduler.Every(interval).Do(func() {
		s.RunOnce(s.ctx)
	})
	if err != nil {
		s.cancel()
		return err
	}

	s.logger.Info("scheduler started", "interval", interval)
	s.scheduler.StartAsync()
	return nil
}

// RunOnce runs the pipeline and records the report.
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.logger.Info("running pipeline job")
	rep, err := s.runner.Run(ctx)
	if s.history != nil {
		s.history.Save(rep)
	}
	if err != nil {
		s.logger.Error("pipeline job failed", "run_id", rep.RunID, "err", err)
		return
	}
	s.logger.Info("completed pipeline job", "run_id", rep.RunID, "loaded", rep.Loaded)
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
