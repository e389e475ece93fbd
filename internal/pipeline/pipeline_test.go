package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/airquality-etl/internal/acquire"
	"github.com/i474232898/airquality-etl/internal/dataset"
	"github.com/i474232898/airquality-etl/internal/store"
)

type failingSource struct{ err error }

func (s failingSource) Name() string { return "failing" }

func (s failingSource) Fetch(context.Context, acquire.Window) (dataset.Table, error) {
	return dataset.Table{}, s.err
}

func testConfig(t *testing.T) Config {
	dir := t.TempDir()
	return Config{
		DataDir:     filepath.Join(dir, "data"),
		Checkpoints: true,
		Lookback:    24 * time.Hour,
		DB: store.Config{
			Driver: store.DriverSQLite,
			Path:   filepath.Join(dir, "database", "sustainability.db"),
			Table:  "air_quality",
		},
		LogLevel: slog.LevelInfo,
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func countRows(t *testing.T, cfg store.Config) int {
	t.Helper()
	st, err := store.Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer st.Close()
	n, err := st.Count(context.Background())
	require.NoError(t, err)
	return n
}

func TestRunSampleEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	p := New(cfg, []acquire.Source{acquire.NewSampleSource()}, quietLogger())

	rep, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusSucceeded, rep.Status)
	assert.NotEmpty(t, rep.RunID)
	assert.Equal(t, 100, rep.Acquired)
	assert.Equal(t, 100, rep.Cleaned)
	assert.Equal(t, 100, rep.Transformed)
	assert.EqualValues(t, 100, rep.Loaded)
	assert.False(t, rep.FinishedAt.Before(rep.StartedAt))
	assert.Equal(t, 100, countRows(t, cfg.DB))

	a := dataset.NewArtifacts(cfg.DataDir)
	for _, path := range []string{a.RawPath(), a.CleanedPath(), a.TransformedPath()} {
		assert.FileExists(t, path)
	}
	for _, name := range []string{"pipeline", "acquisition", "cleaning", "transformation", "loading"} {
		assert.FileExists(t, filepath.Join(a.Dir, name+".log"))
	}

	transformed, err := dataset.ReadTransformed(a.TransformedPath())
	require.NoError(t, err)
	assert.Equal(t, []dataset.Column{dataset.PM25, dataset.PM10, dataset.Temperature}, transformed.Columns)
	assert.False(t, transformed.HasCategory)
}

func TestRunIsRepeatable(t *testing.T) {
	cfg := testConfig(t)
	p := New(cfg, []acquire.Source{acquire.NewSampleSource()}, quietLogger())

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	_, err = p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 100, countRows(t, cfg.DB))
}

func TestRunWithoutCheckpoints(t *testing.T) {
	cfg := testConfig(t)
	cfg.Checkpoints = false
	p := New(cfg, []acquire.Source{acquire.NewSampleSource()}, quietLogger())

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	_, statErr := os.Stat(dataset.NewArtifacts(cfg.DataDir).RawPath())
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
	assert.Equal(t, 100, countRows(t, cfg.DB))
}

func TestRunStopsAtFailingStage(t *testing.T) {
	cfg := testConfig(t)
	boom := errors.New("provider down")
	p := New(cfg, []acquire.Source{failingSource{err: boom}}, quietLogger())

	rep, err := p.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StatusFailed, rep.Status)
	assert.Equal(t, StageAcquisition, rep.FailedStage)
	assert.Contains(t, rep.Error, "provider down")

	_, statErr := os.Stat(cfg.DB.Path)
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "loading must not run")
}

func TestCleanSchemaFailure(t *testing.T) {
	cfg := testConfig(t)
	a := dataset.NewArtifacts(cfg.DataDir)
	require.NoError(t, dataset.WriteTable(a.RawPath(), dataset.Table{
		Columns: []string{"when", "pm10"},
		Rows:    [][]string{{"2023-01-01", "1"}},
	}))

	rep, err := New(cfg, nil, quietLogger()).Clean(context.Background())
	assert.ErrorIs(t, err, dataset.ErrSchema)
	assert.Equal(t, StageCleaning, rep.FailedStage)
}

func TestRunPersistenceFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.DB = store.Config{Driver: store.DriverPostgres, Table: "air_quality"}

	rep, err := New(cfg, []acquire.Source{acquire.NewSampleSource()}, quietLogger()).Run(context.Background())
	assert.ErrorIs(t, err, dataset.ErrPersistence)
	assert.Equal(t, StageLoading, rep.FailedStage)
	assert.Equal(t, 100, rep.Transformed)
}

func TestStandaloneStages(t *testing.T) {
	cfg := testConfig(t)
	p := New(cfg, []acquire.Source{acquire.NewSampleSource()}, quietLogger())
	ctx := context.Background()

	_, err := p.Clean(ctx)
	assert.ErrorIs(t, err, dataset.ErrMissingInput)
	_, err = p.Transform(ctx)
	assert.ErrorIs(t, err, dataset.ErrMissingInput)
	_, err = p.Load(ctx)
	assert.ErrorIs(t, err, dataset.ErrMissingInput)

	rep, err := p.Acquire(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100, rep.Acquired)

	rep, err = p.Clean(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100, rep.Cleaned)

	rep, err = p.Transform(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100, rep.Transformed)

	rep, err = p.Load(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 100, rep.Loaded)
	assert.Equal(t, 100, countRows(t, cfg.DB))
}
