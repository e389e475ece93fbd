// Package transform resamples cleaned readings to hourly means and
// enriches every reading with the averages of its own hour.
package transform

import (
	"log/slog"
	"sort"
	"time"

	"github.com/i474232898/airquality-etl/internal/dataset"
)

// Bucket is one hour of the resampled grid. Mean holds the per-column
// average of the readings in [Start, Start+1h); a column with no values
// is null.
type Bucket struct {
	Start time.Time
	Count int
	Mean  dataset.Values
}

// Transform sorts the readings by time, joins each with the hourly means of
// its bucket and derives the AQI category when an aqi column is present.
// The input is not modified.
func Transform(in dataset.Cleaned, logger *slog.Logger) dataset.Transformed {
	if logger == nil {
		logger = slog.Default()
	}

	rows := make([]dataset.Reading, len(in.Rows))
	copy(rows, in.Rows)
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Timestamp.Before(rows[j].Timestamp)
	})

	means := hourlyMeans(rows, in.Columns)
	logger.Info("resampled to hourly buckets", "rows", len(rows), "buckets", span(rows), "occupied", len(means))

	out := dataset.Transformed{
		Columns:     in.Columns,
		HasCategory: in.Has(dataset.AQI),
		Rows:        make([]dataset.Enriched, 0, len(rows)),
	}
	categorized := 0
	for _, r := range rows {
		e := dataset.Enriched{
			Reading:   r,
			HourlyAvg: means[hourIndex(r.Timestamp)].Mean,
		}
		if out.HasCategory {
			e.Category = dataset.CategorizeAQI(r.AQI)
			if e.Category.Valid() {
				categorized++
			}
		}
		out.Rows = append(out.Rows, e)
	}
	if out.HasCategory {
		logger.Info("derived aqi categories", "categorized", categorized, "null", len(rows)-categorized)
	}

	logger.Info("transformation complete", "rows", len(out.Rows))
	return out
}

// Resample buckets sorted readings into consecutive UTC hours spanning the
// first to the last reading, empty hours included, and averages each of
// cols ignoring nulls.
func Resample(sorted []dataset.Reading, cols []dataset.Column) []Bucket {
	if len(sorted) == 0 {
		return nil
	}
	means := hourlyMeans(sorted, cols)
	first := hourIndex(sorted[0].Timestamp)

	buckets := make([]Bucket, span(sorted))
	for i := range buckets {
		h := first + int64(i)
		if b, ok := means[h]; ok {
			buckets[i] = b
			continue
		}
		buckets[i].Start = hourStart(h)
	}
	return buckets
}

// hourlyMeans averages cols per occupied hour, keyed by hourIndex.
func hourlyMeans(rows []dataset.Reading, cols []dataset.Column) map[int64]Bucket {
	type acc struct {
		sum   float64
		count int
	}
	counts := make(map[int64]int)
	sums := make(map[int64]map[dataset.Column]*acc)
	for _, r := range rows {
		h := hourIndex(r.Timestamp)
		counts[h]++
		for _, c := range cols {
			v := r.Get(c)
			if v == nil {
				continue
			}
			if sums[h] == nil {
				sums[h] = make(map[dataset.Column]*acc, len(cols))
			}
			a, ok := sums[h][c]
			if !ok {
				a = &acc{}
				sums[h][c] = a
			}
			a.sum += *v
			a.count++
		}
	}

	out := make(map[int64]Bucket, len(counts))
	for h, n := range counts {
		b := Bucket{Start: hourStart(h), Count: n}
		for c, a := range sums[h] {
			mean := a.sum / float64(a.count)
			b.Mean.Set(c, &mean)
		}
		out[h] = b
	}
	return out
}

// span is the number of hours from the first to the last of sorted,
// inclusive.
func span(sorted []dataset.Reading) int64 {
	if len(sorted) == 0 {
		return 0
	}
	return hourIndex(sorted[len(sorted)-1].Timestamp) - hourIndex(sorted[0].Timestamp) + 1
}

// hourIndex numbers UTC hours from the Unix epoch, flooring for instants
// before it.
func hourIndex(t time.Time) int64 {
	s := t.Unix()
	h := s / 3600
	if s%3600 < 0 {
		h--
	}
	return h
}

func hourStart(h int64) time.Time {
	return time.Unix(h*3600, 0).UTC()
}
