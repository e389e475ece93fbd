// Package load persists a transformed dataset to the destination table.
package load

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/i474232898/airquality-etl/internal/dataset"
	"github.com/i474232898/airquality-etl/internal/store"
)

// Records maps enriched readings to destination rows. The raw aqi value and
// its hourly average are not persisted.
func Records(d dataset.Transformed) []store.Record {
	out := make([]store.Record, 0, len(d.Rows))
	for _, r := range d.Rows {
		rec := store.Record{
			Timestamp:      r.Timestamp.UTC(),
			PM25:           r.PM25,
			PM10:           r.PM10,
			Temperature:    r.Temperature,
			Humidity:       r.Humidity,
			PM25Avg:        r.HourlyAvg.PM25,
			PM10Avg:        r.HourlyAvg.PM10,
			TemperatureAvg: r.HourlyAvg.Temperature,
			HumidityAvg:    r.HourlyAvg.Humidity,
		}
		if r.Category.Valid() {
			c := string(r.Category)
			rec.Category = &c
		}
		out = append(out, rec)
	}
	return out
}

// Load opens the destination, ensures the table exists and replaces its
// contents with d. It performs one connect/write/close cycle. Every failure
// wraps dataset.ErrPersistence.
func Load(ctx context.Context, cfg store.Config, d dataset.Transformed, logger *slog.Logger) (n int64, err error) {
	if logger == nil {
		logger = slog.Default()
	}

	st, err := store.Open(ctx, cfg, logger)
	if err != nil {
		return 0, persistence(err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil && err == nil {
			err = persistence(cerr)
		}
	}()

	if err := st.EnsureSchema(ctx); err != nil {
		return 0, persistence(err)
	}
	logger.Info("destination table created/verified", "driver", cfg.Driver, "table", cfg.Table)

	n, err = st.Replace(ctx, Records(d))
	if err != nil {
		logger.Error("database loading failed", "err", err)
		return 0, persistence(err)
	}
	logger.Info("loaded rows into database", "rows", n, "table", cfg.Table)
	return n, nil
}

func persistence(err error) error {
	return fmt.Errorf("%w: %w", dataset.ErrPersistence, err)
}
