package store

import (
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	sqlite3 "github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite   = "sqlite3"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// dialect captures the per-database differences the store cares about.
type dialect struct {
	name        string
	driver      driver.Driver
	timeType    string
	floatType   string
	textType    string
	quote       func(string) string
	placeholder func(n int) string
}

func dialectFor(name string) (dialect, error) {
	switch name {
	case DriverSQLite, "":
		return dialect{
			name:        DriverSQLite,
			driver:      &sqlite3.SQLiteDriver{},
			timeType:    "DATETIME",
			floatType:   "REAL",
			textType:    "TEXT",
			quote:       doubleQuote,
			placeholder: func(int) string { return "?" },
		}, nil
	case DriverMySQL:
		return dialect{
			name:        DriverMySQL,
			driver:      &mysql.MySQLDriver{},
			timeType:    "DATETIME(6)",
			floatType:   "DOUBLE",
			textType:    "VARCHAR(64)",
			quote:       func(s string) string { return "`" + strings.ReplaceAll(s, "`", "``") + "`" },
			placeholder: func(int) string { return "?" },
		}, nil
	case DriverPostgres:
		return dialect{
			name:        DriverPostgres,
			driver:      &pq.Driver{},
			timeType:    "TIMESTAMPTZ",
			floatType:   "DOUBLE PRECISION",
			textType:    "TEXT",
			quote:       pq.QuoteIdentifier,
			placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
		}, nil
	default:
		return dialect{}, fmt.Errorf("unsupported DB_DRIVER %q (allowed: sqlite3, mysql, postgres)", name)
	}
}

func doubleQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// buildDSN returns the connection string for cfg in its dialect.
func buildDSN(cfg Config) (string, error) {
	switch cfg.Driver {
	case DriverMySQL:
		if cfg.DSN == "" {
			return "", fmt.Errorf("DB_DSN is required for %s", cfg.Driver)
		}
		mc, err := mysql.ParseDSN(cfg.DSN)
		if err != nil {
			return "", fmt.Errorf("parse mysql dsn: %w", err)
		}
		mc.ParseTime = true
		mc.Loc = time.UTC
		return mc.FormatDSN(), nil
	case DriverPostgres:
		if cfg.DSN == "" {
			return "", fmt.Errorf("DB_DSN is required for %s", cfg.Driver)
		}
		return cfg.DSN, nil
	default:
		return sqliteDSN(cfg)
	}
}

func sqliteDSN(cfg Config) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}

	// Ensure directory exists for file-backed sqlite db
	path := cfg.Path
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	params := []string{
		"_busy_timeout=5000",
		"_journal_mode=WAL",
	}

	if strings.HasPrefix(path, "file:") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + strings.Join(params, "&"), nil
	}
	return fmt.Sprintf("file:%s?%s", path, strings.Join(params, "&")), nil
}
