package dataset

import "time"

// Column names a known numeric sensor column.
type Column string

const (
	PM25        Column = "pm2_5"
	PM10        Column = "pm10"
	AQI         Column = "aqi"
	Temperature Column = "temperature"
	Humidity    Column = "humidity"
)

// NumericColumns lists the known sensor columns in canonical order.
var NumericColumns = []Column{PM25, PM10, AQI, Temperature, Humidity}

// HourlySuffix is appended to a column name for its hourly average.
const HourlySuffix = "_h1_avg"

// AQICategoryColumn is the name of the derived category column.
const AQICategoryColumn = "aqi_category"

// HourlyName returns the name of the hourly-average column for c.
func (c Column) HourlyName() string {
	return string(c) + HourlySuffix
}

// LookupColumn maps a normalized column name to a known sensor column.
func LookupColumn(name string) (Column, bool) {
	for _, c := range NumericColumns {
		if string(c) == name {
			return c, true
		}
	}
	return "", false
}

// Values holds one optional measurement per known sensor column.
// A nil pointer is null.
type Values struct {
	PM25        *float64
	PM10        *float64
	AQI         *float64
	Temperature *float64
	Humidity    *float64
}

// Get returns the value stored for c.
func (v Values) Get(c Column) *float64 {
	switch c {
	case PM25:
		return v.PM25
	case PM10:
		return v.PM10
	case AQI:
		return v.AQI
	case Temperature:
		return v.Temperature
	case Humidity:
		return v.Humidity
	}
	return nil
}

// Set stores f for c. Unknown columns are ignored.
func (v *Values) Set(c Column, f *float64) {
	switch c {
	case PM25:
		v.PM25 = f
	case PM10:
		v.PM10 = f
	case AQI:
		v.AQI = f
	case Temperature:
		v.Temperature = f
	case Humidity:
		v.Humidity = f
	}
}

// AllNull reports whether every column in cols is null.
func (v Values) AllNull(cols []Column) bool {
	for _, c := range cols {
		if v.Get(c) != nil {
			return false
		}
	}
	return true
}

// Reading is one cleaned row: a unique instant plus its sensor values.
type Reading struct {
	Timestamp time.Time
	Values
}

// Cleaned is the output of cleaning. Columns lists the sensor columns
// that were present in the input, in canonical order.
type Cleaned struct {
	Columns []Column
	Rows    []Reading
}

// Has reports whether c is one of the present columns.
func (d Cleaned) Has(c Column) bool {
	return hasColumn(d.Columns, c)
}

// Enriched is a reading with the hourly averages of its own bucket and an
// optional AQI category.
type Enriched struct {
	Reading
	HourlyAvg Values
	Category  AQICategory
}

// Transformed is the output of transformation: one row per cleaned reading.
// HasCategory is set when an aqi column was present.
type Transformed struct {
	Columns     []Column
	HasCategory bool
	Rows        []Enriched
}

// Has reports whether c is one of the present columns.
func (d Transformed) Has(c Column) bool {
	return hasColumn(d.Columns, c)
}

func hasColumn(cols []Column, c Column) bool {
	for _, x := range cols {
		if x == c {
			return true
		}
	}
	return false
}
