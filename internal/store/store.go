// Package store persists transformed air-quality readings to a relational
// table and reads them back for the API.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Config selects the destination database and table.
type Config struct {
	Driver string
	DSN    string
	Path   string
	Table  string
}

// Record is one persisted row of the destination table.
type Record struct {
	Timestamp      time.Time `json:"timestamp"`
	PM25           *float64  `json:"pm2_5"`
	PM10           *float64  `json:"pm10"`
	Temperature    *float64  `json:"temperature"`
	Humidity       *float64  `json:"humidity"`
	PM25Avg        *float64  `json:"pm2_5_h1_avg"`
	PM10Avg        *float64  `json:"pm10_h1_avg"`
	TemperatureAvg *float64  `json:"temperature_h1_avg"`
	HumidityAvg    *float64  `json:"humidity_h1_avg"`
	Category       *string   `json:"aqi_category"`
}

// columns is the destination schema in table order. timestamp is the key.
var columns = []string{
	"timestamp",
	"pm2_5", "pm10", "temperature", "humidity",
	"pm2_5_h1_avg", "pm10_h1_avg", "temperature_h1_avg", "humidity_h1_avg",
	"aqi_category",
}

func (r *Record) args() []any {
	return []any{
		r.Timestamp.UTC(),
		r.PM25, r.PM10, r.Temperature, r.Humidity,
		r.PM25Avg, r.PM10Avg, r.TemperatureAvg, r.HumidityAvg,
		r.Category,
	}
}

func (r *Record) dest() []any {
	return []any{
		&r.Timestamp,
		&r.PM25, &r.PM10, &r.Temperature, &r.Humidity,
		&r.PM25Avg, &r.PM10Avg, &r.TemperatureAvg, &r.HumidityAvg,
		&r.Category,
	}
}

// Store is a handle on the destination table.
type Store struct {
	db     *sql.DB
	d      dialect
	table  string
	logger *slog.Logger
}

// Open connects to the configured database. Statements are logged at debug
// level on logger.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	if cfg.Table == "" {
		return nil, fmt.Errorf("empty table name")
	}

	dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, err
	}
	conn, err := NewLoggingConnector(d.driver, dsn, logger)
	if err != nil {
		return nil, err
	}
	db := sql.OpenDB(conn)
	if d.name == DriverSQLite {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	logger.Debug("database opened", "driver", d.name, "table", cfg.Table)
	return &Store{db: db, d: d, table: cfg.Table, logger: logger}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// EnsureSchema creates the destination table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	defs := make([]string, 0, len(columns))
	for _, c := range columns {
		typ := s.d.floatType
		switch c {
		case "timestamp":
			typ = s.d.timeType + " PRIMARY KEY"
		case "aqi_category":
			typ = s.d.textType
		}
		defs = append(defs, s.d.quote(c)+" "+typ)
	}
	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", s.d.quote(s.table), strings.Join(defs, ", "))

	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

// Replace deletes every row of the table and inserts recs in a single
// transaction. It returns the number of inserted rows.
func (s *Store) Replace(ctx context.Context, recs []Record) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+s.d.quote(s.table)); err != nil {
		return 0, fmt.Errorf("clear %s: %w", s.table, err)
	}

	var n int64
	if len(recs) > 0 {
		stmt, err := tx.PrepareContext(ctx, s.insertSQL())
		if err != nil {
			return 0, fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		for i := range recs {
			if _, err := stmt.ExecContext(ctx, recs[i].args()...); err != nil {
				return 0, fmt.Errorf("insert %s: %w", recs[i].Timestamp.UTC().Format(time.RFC3339), err)
			}
			n++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

func (s *Store) insertSQL() string {
	cols := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = s.d.quote(c)
		marks[i] = s.d.placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.d.quote(s.table), strings.Join(cols, ", "), strings.Join(marks, ", "))
}

// Range returns the rows with from <= timestamp <= to ordered by timestamp.
// A zero bound is open.
func (s *Store) Range(ctx context.Context, from, to time.Time) ([]Record, error) {
	cols := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = s.d.quote(c)
	}
	ts := s.d.quote("timestamp")

	var (
		where []string
		args  []any
	)
	if !from.IsZero() {
		args = append(args, from.UTC())
		where = append(where, ts+" >= "+s.d.placeholder(len(args)))
	}
	if !to.IsZero() {
		args = append(args, to.UTC())
		where = append(where, ts+" <= "+s.d.placeholder(len(args)))
	}

	q := fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), s.d.quote(s.table))
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY " + ts

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.table, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(r.dest()...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", s.table, err)
		}
		r.Timestamp = r.Timestamp.UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count returns the number of rows in the table.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+s.d.quote(s.table)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", s.table, err)
	}
	return n, nil
}
