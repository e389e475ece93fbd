// Package clean turns a raw acquired table into typed, validated readings.
package clean

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/i474232898/airquality-etl/internal/dataset"
)

// Report counts what cleaning removed or nulled.
type Report struct {
	InputRows         int                    `json:"inputRows"`
	InvalidTimestamps int                    `json:"invalidTimestamps"`
	Duplicates        int                    `json:"duplicates"`
	Coerced           map[dataset.Column]int `json:"coerced,omitempty"`
	EmptyRows         int                    `json:"emptyRows"`
	OutputRows        int                    `json:"outputRows"`
}

// Clean validates and types a raw table:
//
//  1. normalize column names
//  2. require a timestamp column
//  3. drop rows with unparseable timestamps
//  4. drop duplicate timestamps, keeping the first
//  5. coerce known sensor columns to numbers, nulling bad values
//  6. drop rows where every present sensor column is null
//
// Columns other than timestamp and the known sensor columns are dropped.
// An empty table is returned as an empty result with a warning.
func Clean(raw dataset.Table, logger *slog.Logger) (dataset.Cleaned, Report, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rep := Report{InputRows: raw.Len()}

	if raw.Empty() {
		logger.Warn("received empty dataset")
		return dataset.Cleaned{Columns: knownColumns(raw.Columns)}, rep, nil
	}

	names := NormalizeColumns(raw.Columns)
	idx := make(map[string]int, len(names))
	for i, n := range names {
		if _, dup := idx[n]; dup {
			logger.Warn("duplicate column after normalization, keeping first", "column", n, "original", raw.Columns[i])
			continue
		}
		idx[n] = i
	}
	logger.Info("standardized column names", "columns", len(names))

	tsCol, ok := idx[dataset.TimestampColumn]
	if !ok {
		return dataset.Cleaned{}, rep, fmt.Errorf("%w: missing required %q column", dataset.ErrSchema, dataset.TimestampColumn)
	}

	var present []dataset.Column
	for _, c := range dataset.NumericColumns {
		if _, ok := idx[string(c)]; ok {
			present = append(present, c)
		}
	}

	out := dataset.Cleaned{Columns: present}
	seen := make(map[time.Time]struct{}, raw.Len())
	coerced := make(map[dataset.Column]int)

	for r := range raw.Rows {
		ts, ok := dataset.ParseTimestamp(raw.Cell(r, tsCol))
		if !ok {
			rep.InvalidTimestamps++
			continue
		}
		if _, dup := seen[ts]; dup {
			rep.Duplicates++
			continue
		}
		seen[ts] = struct{}{}

		reading := dataset.Reading{Timestamp: ts}
		for _, c := range present {
			v, bad := toFloat(raw.Cell(r, idx[string(c)]))
			if bad {
				coerced[c]++
			}
			reading.Set(c, v)
		}
		out.Rows = append(out.Rows, reading)
	}
	logger.Info("removed rows with invalid timestamps", "count", rep.InvalidTimestamps)
	logger.Info("removed duplicate timestamps", "count", rep.Duplicates)

	for _, c := range present {
		if n := coerced[c]; n > 0 {
			logger.Warn("converted non-numeric values to null", "column", string(c), "count", n)
		}
	}
	if len(coerced) > 0 {
		rep.Coerced = coerced
	}

	if len(present) > 0 {
		kept := out.Rows[:0]
		for _, reading := range out.Rows {
			if reading.AllNull(present) {
				rep.EmptyRows++
				continue
			}
			kept = append(kept, reading)
		}
		out.Rows = kept
		if rep.EmptyRows > 0 {
			logger.Info("removed rows missing all sensor readings", "count", rep.EmptyRows)
		}
	}

	rep.OutputRows = len(out.Rows)
	logger.Info("cleaning complete", "rows", rep.OutputRows, "columns", len(present)+1)
	return out, rep, nil
}

// NormalizeColumns trims, lowercases and replaces spaces with underscores.
func NormalizeColumns(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(c)), " ", "_")
	}
	return out
}

func knownColumns(cols []string) []dataset.Column {
	names := NormalizeColumns(cols)
	var out []dataset.Column
	for _, c := range dataset.NumericColumns {
		for _, n := range names {
			if n == string(c) {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// toFloat parses a sensor cell. Empty cells are null; cells that do not
// parse to a finite number are null and reported as bad.
func toFloat(s string) (*float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	f, err := cast.ToFloat64E(s)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, true
	}
	return &f, false
}
