package dataset

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(f float64) *float64 { return &f }

func TestCategorizeAQIBoundaries(t *testing.T) {
	cases := []struct {
		in   *float64
		want AQICategory
	}{
		{nil, AQINone},
		{ptr(0), AQIGood},
		{ptr(50), AQIGood},
		{ptr(50.5), AQIModerate},
		{ptr(51), AQIModerate},
		{ptr(100), AQIModerate},
		{ptr(150), AQIUnhealthySensitive},
		{ptr(151), AQIUnhealthy},
		{ptr(200), AQIUnhealthy},
		{ptr(300), AQIVeryUnhealthy},
		{ptr(301), AQIHazardous},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CategorizeAQI(tc.in))
	}
	assert.False(t, AQINone.Valid())
	assert.True(t, AQIHazardous.Valid())
}

func TestDecodeTableRaggedRows(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "raw-*.csv")
	require.NoError(t, err)
	_, err = f.WriteString("timestamp,pm2_5,pm10\n2023-01-01T00:00:00Z,1\n2023-01-01T01:00:00Z,2,3\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	tbl, err := ReadTable(f.Name())
	require.NoError(t, err)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, 2, tbl.Index("pm10"))
	assert.Equal(t, -1, tbl.Index("aqi"))
	assert.Equal(t, "", tbl.Cell(0, 2))
	assert.Equal(t, "3", tbl.Cell(1, 2))
}

func TestReadMissingInput(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadTable(filepath.Join(dir, "nope.csv"))
	assert.ErrorIs(t, err, ErrMissingInput)

	_, err = ReadCleaned(filepath.Join(dir, "nope.csv"))
	assert.ErrorIs(t, err, ErrMissingInput)

	_, err = ReadTransformed(filepath.Join(dir, "nope.csv"))
	assert.ErrorIs(t, err, ErrMissingInput)
}

func TestCleanedArtifactKeepsPresentColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", CleanedFile)
	ts := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	in := Cleaned{
		Columns: []Column{PM25, Temperature},
		Rows: []Reading{
			{Timestamp: ts, Values: Values{PM25: ptr(10.5), Temperature: ptr(25)}},
			{Timestamp: ts.Add(time.Hour), Values: Values{PM25: nil, Temperature: ptr(26)}},
		},
	}
	require.NoError(t, WriteCleaned(path, in))

	raw, err := ReadTable(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"timestamp", "pm2_5", "temperature"}, raw.Columns)
	assert.Equal(t, []string{"2023-01-01T01:00:00Z", "", "26"}, raw.Rows[1])

	out, err := ReadCleaned(path)
	require.NoError(t, err)
	assert.Equal(t, in.Columns, out.Columns)
	require.Len(t, out.Rows, 2)
	assert.True(t, out.Rows[0].Timestamp.Equal(ts))
	assert.InDelta(t, 10.5, *out.Rows[0].PM25, 1e-9)
	assert.Nil(t, out.Rows[1].PM25)
	assert.Nil(t, out.Rows[1].PM10)
}

func TestTransformedArtifactColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), TransformedFile)
	ts := time.Date(2023, 1, 1, 0, 30, 0, 0, time.UTC)

	in := Transformed{
		Columns:     []Column{AQI},
		HasCategory: true,
		Rows: []Enriched{{
			Reading:   Reading{Timestamp: ts, Values: Values{AQI: ptr(120)}},
			HourlyAvg: Values{AQI: ptr(110)},
			Category:  AQIUnhealthySensitive,
		}},
	}
	require.NoError(t, WriteTransformed(path, in))

	raw, err := ReadTable(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"timestamp", "aqi", "aqi_h1_avg", "aqi_category"}, raw.Columns)

	out, err := ReadTransformed(path)
	require.NoError(t, err)
	assert.True(t, out.HasCategory)
	assert.Equal(t, []Column{AQI}, out.Columns)
	require.Len(t, out.Rows, 1)
	assert.InDelta(t, 110, *out.Rows[0].HourlyAvg.AQI, 1e-9)
	assert.Equal(t, AQIUnhealthySensitive, out.Rows[0].Category)
}

func TestReadCleanedWithoutTimestamp(t *testing.T) {
	path := filepath.Join(t.TempDir(), CleanedFile)
	require.NoError(t, WriteTable(path, Table{Columns: []string{"pm2_5"}, Rows: [][]string{{"1"}}}))

	_, err := ReadCleaned(path)
	assert.ErrorIs(t, err, ErrSchema)
}

func TestArtifactsPaths(t *testing.T) {
	a := NewArtifacts("data")
	assert.Equal(t, filepath.Join("data", "processed", "combined_raw_data.csv"), a.RawPath())
	assert.Equal(t, filepath.Join("data", "processed", "cleaned_data.csv"), a.CleanedPath())
	assert.Equal(t, filepath.Join("data", "processed", "transformed_data.csv"), a.TransformedPath())
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2023, 3, 4, 5, 6, 0, 0, time.UTC)
	for _, s := range []string{
		"2023-03-04T05:06:00Z",
		"2023-03-04T07:06:00+02:00",
		"2023-03-04 05:06:00",
		"2023-03-04 05:06",
		"2023-03-04T05:06",
		"03/04/2023 05:06",
	} {
		got, ok := ParseTimestamp(s)
		require.True(t, ok, s)
		assert.True(t, want.Equal(got), s)
		assert.Equal(t, time.UTC, got.Location(), s)
	}

	_, ok := ParseTimestamp("yesterday")
	assert.False(t, ok)
}
