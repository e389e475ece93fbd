package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jszwec/csvutil"
)

const (
	RawFile         = "combined_raw_data.csv"
	CleanedFile     = "cleaned_data.csv"
	TransformedFile = "transformed_data.csv"
)

// Artifacts locates the checkpoint files under a data directory.
type Artifacts struct {
	Dir string
}

// NewArtifacts returns the artifact layout rooted at dataDir/processed.
func NewArtifacts(dataDir string) Artifacts {
	return Artifacts{Dir: filepath.Join(dataDir, "processed")}
}

func (a Artifacts) RawPath() string         { return filepath.Join(a.Dir, RawFile) }
func (a Artifacts) CleanedPath() string     { return filepath.Join(a.Dir, CleanedFile) }
func (a Artifacts) TransformedPath() string { return filepath.Join(a.Dir, TransformedFile) }

// cleanedRecord is the on-disk shape of a cleaned row.
type cleanedRecord struct {
	Timestamp   time.Time `csv:"timestamp"`
	PM25        *float64  `csv:"pm2_5,omitempty"`
	PM10        *float64  `csv:"pm10,omitempty"`
	AQI         *float64  `csv:"aqi,omitempty"`
	Temperature *float64  `csv:"temperature,omitempty"`
	Humidity    *float64  `csv:"humidity,omitempty"`
}

func (r cleanedRecord) reading() Reading {
	return Reading{
		Timestamp: r.Timestamp.UTC(),
		Values: Values{
			PM25:        r.PM25,
			PM10:        r.PM10,
			AQI:         r.AQI,
			Temperature: r.Temperature,
			Humidity:    r.Humidity,
		},
	}
}

// transformedRecord is the on-disk shape of an enriched row.
type transformedRecord struct {
	Timestamp      time.Time `csv:"timestamp"`
	PM25           *float64  `csv:"pm2_5,omitempty"`
	PM10           *float64  `csv:"pm10,omitempty"`
	AQI            *float64  `csv:"aqi,omitempty"`
	Temperature    *float64  `csv:"temperature,omitempty"`
	Humidity       *float64  `csv:"humidity,omitempty"`
	PM25Avg        *float64  `csv:"pm2_5_h1_avg,omitempty"`
	PM10Avg        *float64  `csv:"pm10_h1_avg,omitempty"`
	AQIAvg         *float64  `csv:"aqi_h1_avg,omitempty"`
	TemperatureAvg *float64  `csv:"temperature_h1_avg,omitempty"`
	HumidityAvg    *float64  `csv:"humidity_h1_avg,omitempty"`
	Category       string    `csv:"aqi_category,omitempty"`
}

// ReadTable reads a delimited file with a header row into a raw table.
func ReadTable(path string) (Table, error) {
	f, err := openInput(path)
	if err != nil {
		return Table{}, err
	}
	defer f.Close()

	return DecodeTable(f)
}

// DecodeTable parses CSV with a header row. Ragged rows are accepted.
func DecodeTable(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Table{}, nil
	}
	if err != nil {
		return Table{}, fmt.Errorf("read header: %w", err)
	}

	t := Table{Columns: header}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Table{}, fmt.Errorf("read row %d: %w", len(t.Rows)+1, err)
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// WriteTable writes t as CSV with a header row, creating parent directories.
func WriteTable(path string, t Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(t.Columns); err != nil {
		f.Close()
		return fmt.Errorf("write header: %w", err)
	}
	if err := w.WriteAll(t.Rows); err != nil {
		f.Close()
		return fmt.Errorf("write rows: %w", err)
	}
	return f.Close()
}

// WriteCleaned writes the cleaned dataset with only its present columns.
func WriteCleaned(path string, d Cleaned) error {
	return WriteTable(path, CleanedTable(d))
}

// CleanedTable renders d as a raw table.
func CleanedTable(d Cleaned) Table {
	t := Table{Columns: []string{TimestampColumn}}
	for _, c := range d.Columns {
		t.Columns = append(t.Columns, string(c))
	}
	for _, r := range d.Rows {
		row := []string{formatTime(r.Timestamp)}
		for _, c := range d.Columns {
			row = append(row, formatFloat(r.Get(c)))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// ReadCleaned reads a cleaned checkpoint. The present columns are taken
// from the file header.
func ReadCleaned(path string) (Cleaned, error) {
	f, err := openInput(path)
	if err != nil {
		return Cleaned{}, err
	}
	defer f.Close()

	dec, err := csvutil.NewDecoder(csv.NewReader(f))
	if errors.Is(err, io.EOF) {
		return Cleaned{}, nil
	}
	if err != nil {
		return Cleaned{}, fmt.Errorf("decode %s: %w", path, err)
	}
	if !contains(dec.Header(), TimestampColumn) {
		return Cleaned{}, fmt.Errorf("%w: %s has no %q column", ErrSchema, path, TimestampColumn)
	}

	var records []cleanedRecord
	if err := dec.Decode(&records); err != nil && !errors.Is(err, io.EOF) {
		return Cleaned{}, fmt.Errorf("decode %s: %w", path, err)
	}

	out := Cleaned{Columns: presentColumns(dec.Header())}
	for _, rec := range records {
		out.Rows = append(out.Rows, rec.reading())
	}
	return out, nil
}

// WriteTransformed writes the enriched dataset: present columns, their
// hourly averages and the category column when derived.
func WriteTransformed(path string, d Transformed) error {
	return WriteTable(path, TransformedTable(d))
}

// TransformedTable renders d as a raw table.
func TransformedTable(d Transformed) Table {
	t := Table{Columns: []string{TimestampColumn}}
	for _, c := range d.Columns {
		t.Columns = append(t.Columns, string(c))
	}
	for _, c := range d.Columns {
		t.Columns = append(t.Columns, c.HourlyName())
	}
	if d.HasCategory {
		t.Columns = append(t.Columns, AQICategoryColumn)
	}

	for _, r := range d.Rows {
		row := []string{formatTime(r.Timestamp)}
		for _, c := range d.Columns {
			row = append(row, formatFloat(r.Get(c)))
		}
		for _, c := range d.Columns {
			row = append(row, formatFloat(r.HourlyAvg.Get(c)))
		}
		if d.HasCategory {
			row = append(row, string(r.Category))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// ReadTransformed reads a transformed checkpoint.
func ReadTransformed(path string) (Transformed, error) {
	f, err := openInput(path)
	if err != nil {
		return Transformed{}, err
	}
	defer f.Close()

	dec, err := csvutil.NewDecoder(csv.NewReader(f))
	if errors.Is(err, io.EOF) {
		return Transformed{}, nil
	}
	if err != nil {
		return Transformed{}, fmt.Errorf("decode %s: %w", path, err)
	}
	header := dec.Header()
	if !contains(header, TimestampColumn) {
		return Transformed{}, fmt.Errorf("%w: %s has no %q column", ErrSchema, path, TimestampColumn)
	}

	var records []transformedRecord
	if err := dec.Decode(&records); err != nil && !errors.Is(err, io.EOF) {
		return Transformed{}, fmt.Errorf("decode %s: %w", path, err)
	}

	out := Transformed{
		Columns:     presentColumns(header),
		HasCategory: contains(header, AQICategoryColumn),
	}
	for _, rec := range records {
		out.Rows = append(out.Rows, Enriched{
			Reading: cleanedRecord{
				Timestamp:   rec.Timestamp,
				PM25:        rec.PM25,
				PM10:        rec.PM10,
				AQI:         rec.AQI,
				Temperature: rec.Temperature,
				Humidity:    rec.Humidity,
			}.reading(),
			HourlyAvg: Values{
				PM25:        rec.PM25Avg,
				PM10:        rec.PM10Avg,
				AQI:         rec.AQIAvg,
				Temperature: rec.TemperatureAvg,
				Humidity:    rec.HumidityAvg,
			},
			Category: AQICategory(rec.Category),
		})
	}
	return out, nil
}

func openInput(path string) (*os.File, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrMissingInput, path)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}

func presentColumns(header []string) []Column {
	var cols []Column
	for _, c := range NumericColumns {
		if contains(header, string(c)) {
			cols = append(cols, c)
		}
	}
	return cols
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}
