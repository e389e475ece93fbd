package acquire

import (
	"context"
	"strconv"
	"time"

	"github.com/i474232898/airquality-etl/internal/dataset"
)

const sampleLayout = "2006-01-02 15:04:05"

// SampleSource generates a deterministic hourly dataset. It ignores the
// requested window and emits un-normalized headers, like a hand-made export.
type SampleSource struct {
	Start time.Time
	Rows  int
}

// NewSampleSource returns the default sample: 100 hourly rows from 2023-01-01.
func NewSampleSource() *SampleSource {
	return &SampleSource{
		Start: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		Rows:  100,
	}
}

func (s *SampleSource) Name() string { return "sample" }

func (s *SampleSource) Fetch(_ context.Context, _ Window) (dataset.Table, error) {
	t := dataset.Table{Columns: []string{"Timestamp", "PM2_5", "PM10", "Temperature"}}
	for i := 0; i < s.Rows; i++ {
		t.Rows = append(t.Rows, []string{
			s.Start.Add(time.Duration(i) * time.Hour).Format(sampleLayout),
			strconv.Itoa(10 + i%20),
			strconv.Itoa(20 + i%30),
			strconv.Itoa(25 + i%5),
		})
	}
	return t, nil
}
