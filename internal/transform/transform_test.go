package transform

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/airquality-etl/internal/dataset"
)

func f(v float64) *float64 { return &v }

var t0 = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

func TestTransformHourlySample(t *testing.T) {
	in := dataset.Cleaned{Columns: []dataset.Column{dataset.PM25, dataset.PM10, dataset.Temperature}}
	for i := 0; i < 100; i++ {
		in.Rows = append(in.Rows, dataset.Reading{
			Timestamp: t0.Add(time.Duration(i) * time.Hour),
			Values: dataset.Values{
				PM25:        f(float64(10 + i%20)),
				PM10:        f(float64(20 + i%30)),
				Temperature: f(float64(25 + i%5)),
			},
		})
	}

	out := Transform(in, nil)
	require.Len(t, out.Rows, 100)
	assert.False(t, out.HasCategory)
	for i, r := range out.Rows {
		assert.Equal(t, *r.PM25, *r.HourlyAvg.PM25, "row %d", i)
		assert.Equal(t, *r.PM10, *r.HourlyAvg.PM10, "row %d", i)
		assert.Equal(t, *r.Temperature, *r.HourlyAvg.Temperature, "row %d", i)
		assert.Nil(t, r.HourlyAvg.AQI)
		assert.Equal(t, dataset.AQINone, r.Category)
	}
}

func TestTransformSortsAndAveragesWithinHour(t *testing.T) {
	in := dataset.Cleaned{
		Columns: []dataset.Column{dataset.PM10, dataset.Humidity},
		Rows: []dataset.Reading{
			{Timestamp: t0.Add(90 * time.Minute), Values: dataset.Values{PM10: f(30)}},
			{Timestamp: t0.Add(30 * time.Minute), Values: dataset.Values{PM10: f(20), Humidity: f(50)}},
			{Timestamp: t0, Values: dataset.Values{PM10: f(10)}},
		},
	}

	out := Transform(in, nil)
	require.Len(t, out.Rows, 3)
	assert.Equal(t, t0, out.Rows[0].Timestamp)
	assert.Equal(t, t0.Add(30*time.Minute), out.Rows[1].Timestamp)

	assert.InDelta(t, 15, *out.Rows[0].HourlyAvg.PM10, 1e-9)
	assert.InDelta(t, 15, *out.Rows[1].HourlyAvg.PM10, 1e-9)
	assert.InDelta(t, 50, *out.Rows[0].HourlyAvg.Humidity, 1e-9)
	assert.InDelta(t, 30, *out.Rows[2].HourlyAvg.PM10, 1e-9)
	assert.Nil(t, out.Rows[2].HourlyAvg.Humidity)

	// input order untouched
	assert.Equal(t, t0.Add(90*time.Minute), in.Rows[0].Timestamp)
}

func TestResampleIncludesEmptyBuckets(t *testing.T) {
	rows := []dataset.Reading{
		{Timestamp: t0.Add(15 * time.Minute), Values: dataset.Values{AQI: f(10)}},
		{Timestamp: t0.Add(3*time.Hour + 5*time.Minute), Values: dataset.Values{AQI: f(20)}},
	}

	buckets := Resample(rows, []dataset.Column{dataset.AQI})
	require.Len(t, buckets, 4)
	for i, b := range buckets {
		assert.Equal(t, t0.Add(time.Duration(i)*time.Hour), b.Start)
	}
	assert.Equal(t, 0, buckets[1].Count)
	assert.Nil(t, buckets[1].Mean.AQI)
	assert.Nil(t, buckets[2].Mean.AQI)
	assert.InDelta(t, 20, *buckets[3].Mean.AQI, 1e-9)

	assert.Nil(t, Resample(nil, []dataset.Column{dataset.AQI}))
}

func TestTransformCategories(t *testing.T) {
	values := []*float64{f(50), f(51), f(300), f(301), nil}
	want := []dataset.AQICategory{
		dataset.AQIGood,
		dataset.AQIModerate,
		dataset.AQIVeryUnhealthy,
		dataset.AQIHazardous,
		dataset.AQINone,
	}

	in := dataset.Cleaned{Columns: []dataset.Column{dataset.AQI, dataset.PM25}}
	for i, v := range values {
		in.Rows = append(in.Rows, dataset.Reading{
			Timestamp: t0.Add(time.Duration(i) * time.Hour),
			Values:    dataset.Values{AQI: v, PM25: f(1)},
		})
	}

	out := Transform(in, nil)
	require.True(t, out.HasCategory)
	for i, r := range out.Rows {
		assert.Equal(t, want[i], r.Category, "row %d", i)
	}
}

func TestTransformIsIdempotentOverCheckpoint(t *testing.T) {
	in := dataset.Cleaned{
		Columns: []dataset.Column{dataset.PM25, dataset.AQI},
		Rows: []dataset.Reading{
			{Timestamp: t0.Add(70 * time.Minute), Values: dataset.Values{AQI: f(120), PM25: f(0.1)}},
			{Timestamp: t0.Add(10 * time.Minute), Values: dataset.Values{AQI: f(40), PM25: f(0.2)}},
			{Timestamp: t0.Add(20 * time.Minute), Values: dataset.Values{AQI: f(60)}},
			{Timestamp: t0.Add(5 * time.Hour), Values: dataset.Values{PM25: f(7.3)}},
		},
	}
	first := Transform(in, nil)

	path := filepath.Join(t.TempDir(), dataset.TransformedFile)
	require.NoError(t, dataset.WriteTransformed(path, first))
	saved, err := dataset.ReadTransformed(path)
	require.NoError(t, err)

	again := dataset.Cleaned{Columns: saved.Columns}
	for _, r := range saved.Rows {
		again.Rows = append(again.Rows, r.Reading)
	}
	second := Transform(again, nil)

	require.Len(t, second.Rows, len(first.Rows))
	for i := range first.Rows {
		assert.True(t, first.Rows[i].Timestamp.Equal(second.Rows[i].Timestamp), "row %d", i)
		assert.Equal(t, first.Rows[i].HourlyAvg, second.Rows[i].HourlyAvg, "row %d", i)
		assert.Equal(t, first.Rows[i].Category, second.Rows[i].Category, "row %d", i)
	}
}

func TestTransformReadingsCenturiesApart(t *testing.T) {
	old := time.Date(1700, 1, 1, 0, 0, 0, 0, time.UTC)
	in := dataset.Cleaned{
		Columns: []dataset.Column{dataset.PM25},
		Rows: []dataset.Reading{
			{Timestamp: t0, Values: dataset.Values{PM25: f(42)}},
			{Timestamp: old.Add(20 * time.Minute), Values: dataset.Values{PM25: f(5)}},
			{Timestamp: old.Add(40 * time.Minute), Values: dataset.Values{PM25: f(7)}},
		},
	}

	out := Transform(in, nil)
	require.Len(t, out.Rows, 3)
	assert.True(t, old.Add(20*time.Minute).Equal(out.Rows[0].Timestamp))
	require.NotNil(t, out.Rows[0].HourlyAvg.PM25)
	assert.InDelta(t, 6, *out.Rows[0].HourlyAvg.PM25, 1e-9)
	assert.InDelta(t, 6, *out.Rows[1].HourlyAvg.PM25, 1e-9)
	require.NotNil(t, out.Rows[2].HourlyAvg.PM25)
	assert.InDelta(t, 42, *out.Rows[2].HourlyAvg.PM25, 1e-9)
}

func TestResampleBeforeEpoch(t *testing.T) {
	start := time.Date(1969, 12, 31, 22, 0, 0, 0, time.UTC)
	rows := []dataset.Reading{
		{Timestamp: start.Add(59 * time.Minute), Values: dataset.Values{PM10: f(1)}},
		{Timestamp: start.Add(2*time.Hour + time.Minute), Values: dataset.Values{PM10: f(3)}},
	}

	buckets := Resample(rows, []dataset.Column{dataset.PM10})
	require.Len(t, buckets, 3)
	assert.True(t, start.Equal(buckets[0].Start))
	assert.InDelta(t, 1, *buckets[0].Mean.PM10, 1e-9)
	assert.Equal(t, 0, buckets[1].Count)
	assert.True(t, start.Add(2*time.Hour).Equal(buckets[2].Start))
	assert.InDelta(t, 3, *buckets[2].Mean.PM10, 1e-9)
}

func TestTransformEmpty(t *testing.T) {
	out := Transform(dataset.Cleaned{Columns: []dataset.Column{dataset.PM10}}, nil)
	assert.Empty(t, out.Rows)
	assert.Equal(t, []dataset.Column{dataset.PM10}, out.Columns)
}
