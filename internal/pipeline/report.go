package pipeline

import (
	"time"

	"github.com/i474232898/airquality-etl/internal/clean"
)

// Stage names a pipeline step. It is also the stage log file name.
type Stage string

const (
	StageAcquisition    Stage = "acquisition"
	StageCleaning       Stage = "cleaning"
	StageTransformation Stage = "transformation"
	StageLoading        Stage = "loading"
)

type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Report summarizes one pipeline execution.
type Report struct {
	RunID       string       `json:"runId"`
	StartedAt   time.Time    `json:"startedAt"`
	FinishedAt  time.Time    `json:"finishedAt"`
	Status      Status       `json:"status"`
	FailedStage Stage        `json:"failedStage,omitempty"`
	Error       string       `json:"error,omitempty"`
	Acquired    int          `json:"acquired"`
	Cleaned     int          `json:"cleaned"`
	Transformed int          `json:"transformed"`
	Loaded      int64        `json:"loaded"`
	Cleaning    clean.Report `json:"cleaning"`
}

// Duration is the wall time of the run.
func (r Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
