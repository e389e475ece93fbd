package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/cast"

	"github.com/i474232898/airquality-etl/internal/acquire/providers"
	"github.com/i474232898/airquality-etl/internal/logging"
	"github.com/i474232898/airquality-etl/internal/store"
)

type AppConfig struct {
	AppEnv   string `validate:"oneof=dev prod"`
	LogLevel slog.Level

	// DataDir holds the processed/ artifacts and stage logs.
	DataDir     string `validate:"required"`
	Checkpoints bool

	// Sources are fetched and merged in this order.
	Sources    []string `validate:"min=1,dive,oneof=sample file openmeteo-airquality openmeteo-weather openweather"`
	SourceFile string

	Location          providers.LocationConfig
	OpenWeatherAPIKey string

	Lookback    time.Duration `validate:"gt=0"`
	HTTPTimeout time.Duration `validate:"gt=0"`

	DB store.Config

	ScheduleInterval time.Duration `validate:"gt=0"`
	HTTPAddr         string        `validate:"required"`

	// Run report retention for the API.
	RunHistory       int           `validate:"gte=0"` // 0 = unlimited
	RunHistoryMaxAge time.Duration `validate:"gte=0"` // 0 = unlimited
}

// Load reads configuration from environment with sensible defaults. A .env
// file in the working directory is loaded first if present.
func Load() (*AppConfig, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads configuration from the process environment only.
func FromEnv() (*AppConfig, error) {
	cfg := &AppConfig{}
	var err error

	cfg.AppEnv = getenvDefault("APP_ENV", "dev")
	cfg.LogLevel, err = logging.ParseLevel(getenvDefault("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}

	cfg.DataDir = getenvDefault("DATA_DIR", "data")
	cfg.Checkpoints, err = cast.ToBoolE(getenvDefault("CHECKPOINTS", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid CHECKPOINTS: %w", err)
	}

	cfg.Sources = splitList(getenvDefault("SOURCES", "openmeteo-airquality,openmeteo-weather"))
	cfg.SourceFile = os.Getenv("SOURCE_FILE")

	cfg.Location.City = strings.TrimSpace(os.Getenv("LOCATION_CITY"))
	cfg.Location.Country = strings.TrimSpace(os.Getenv("LOCATION_COUNTRY"))
	cfg.Location.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")
	if cfg.Location.Latitude, err = getenvFloat("LATITUDE"); err != nil {
		return nil, err
	}
	if cfg.Location.Longitude, err = getenvFloat("LONGITUDE"); err != nil {
		return nil, err
	}
	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")

	if cfg.Lookback, err = getenvDuration("LOOKBACK", "24h"); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "15s"); err != nil {
		return nil, err
	}

	cfg.DB = store.Config{
		Driver: getenvDefault("DB_DRIVER", store.DriverSQLite),
		DSN:    os.Getenv("DB_DSN"),
		Path:   getenvDefault("SQLITE_PATH", "database/sustainability.db"),
		Table:  getenvDefault("DB_TABLE", "air_quality"),
	}

	if cfg.ScheduleInterval, err = getenvDuration("SCHEDULE_INTERVAL", "1h"); err != nil {
		return nil, err
	}
	cfg.HTTPAddr = getenvDefault("HTTP_ADDR", ":8080")

	cfg.RunHistory, err = cast.ToIntE(getenvDefault("RUN_HISTORY", "48"))
	if err != nil {
		return nil, fmt.Errorf("invalid RUN_HISTORY: %w", err)
	}
	if cfg.RunHistoryMaxAge, err = getenvDuration("RUN_HISTORY_MAX_AGE", "72h"); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks field constraints and the cross-field rules the tags
// cannot express.
func (c *AppConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := validate.Var(c.DB.Driver, "oneof=sqlite3 mysql postgres"); err != nil {
		return fmt.Errorf("invalid DB_DRIVER %q (allowed: sqlite3, mysql, postgres)", c.DB.Driver)
	}
	if c.DB.Table == "" {
		return fmt.Errorf("DB_TABLE must not be empty")
	}
	if c.DB.Driver != store.DriverSQLite && c.DB.DSN == "" {
		return fmt.Errorf("DB_DSN is required for DB_DRIVER=%s", c.DB.Driver)
	}
	if c.HasSource(providers.SourceFile) && c.SourceFile == "" {
		return fmt.Errorf("SOURCE_FILE is required when SOURCES includes %q", providers.SourceFile)
	}
	if (c.Location.Latitude == nil) != (c.Location.Longitude == nil) {
		return fmt.Errorf("LATITUDE and LONGITUDE must be set together")
	}
	return nil
}

// HasSource reports whether name is among the configured sources.
func (c *AppConfig) HasSource(name string) bool {
	for _, s := range c.Sources {
		if s == name {
			return true
		}
	}
	return false
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	v := getenvDefault(key, def)
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

func getenvFloat(key string) (*float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil, nil
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return &f, nil
}
