package history

import (
	"errors"
	"sync"
	"time"

	"github.com/i474232898/airquality-etl/internal/pipeline"
)

var (
	// ErrNotFound is returned when no run report matches.
	ErrNotFound = errors.New("no pipeline runs recorded")
)

// Memory is a concurrency-safe in-memory history of pipeline run reports,
// ordered by start time.
type Memory struct {
	mu sync.RWMutex

	reports []pipeline.Report

	// retention configuration
	maxHistory int           // max number of reports kept
	maxAge     time.Duration // optional max age, measured from StartedAt

	now func() time.Time
}

// NewMemory creates a new Memory with optional limits.
// If maxHistory or maxAge is <= 0, that limit is disabled.
func NewMemory(maxHistory int, maxAge time.Duration) *Memory {
	return &Memory{
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// Save appends a report and enforces retention.
func (m *Memory) Save(r pipeline.Report) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reports = append(m.reports, r)

	// Enforce retention by count.
	if m.maxHistory > 0 && len(m.reports) > m.maxHistory {
		over := len(m.reports) - m.maxHistory
		m.reports = append([]pipeline.Report(nil), m.reports[over:]...)
	}

	// Enforce retention by age.
	if m.maxAge > 0 {
		cutoff := m.now().Add(-m.maxAge)
		i := 0
		for ; i < len(m.reports); i++ {
			if !m.reports[i].StartedAt.Before(cutoff) {
				break
			}
		}
		if i > 0 {
			m.reports = append([]pipeline.Report(nil), m.reports[i:]...)
		}
	}
}

// Latest returns the most recently saved report.
func (m *Memory) Latest() (pipeline.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.reports) == 0 {
		return pipeline.Report{}, ErrNotFound
	}
	return m.reports[len(m.reports)-1], nil
}

// Range returns the reports that started between from and to (inclusive).
func (m *Memory) Range(from, to time.Time) ([]pipeline.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []pipeline.Report
	for _, r := range m.reports {
		if !r.StartedAt.Before(from) && !r.StartedAt.After(to) {
			result = append(result, r)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}
