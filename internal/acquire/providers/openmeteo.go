package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/airquality-etl/internal/acquire"
	"github.com/i474232898/airquality-etl/internal/dataset"
)

const (
	openMeteoAirQualityURL = "https://air-quality-api.open-meteo.com/v1/air-quality"
	openMeteoForecastURL   = "https://api.open-meteo.com/v1/forecast"

	openMeteoTimeLayout = "2006-01-02T15:04"
)

// OpenMeteoProvider fetches hourly series from an Open-Meteo endpoint and
// maps the requested variables onto dataset columns.
type OpenMeteoProvider struct {
	name      string
	baseURL   string
	variables []string
	columns   []dataset.Column
	loc       Location
	client    *http.Client
	circuit   *gobreaker.CircuitBreaker
}

// NewOpenMeteoAirQualityProvider reads pm2_5, pm10 and the US AQI.
func NewOpenMeteoAirQualityProvider(client *http.Client, loc Location) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name:      "openmeteo-airquality",
		baseURL:   openMeteoAirQualityURL,
		variables: []string{"pm2_5", "pm10", "us_aqi"},
		columns:   []dataset.Column{dataset.PM25, dataset.PM10, dataset.AQI},
		loc:       loc,
		client:    client,
		circuit:   newCircuit("openmeteo-airquality"),
	}
}

// NewOpenMeteoWeatherProvider reads air temperature and relative humidity.
func NewOpenMeteoWeatherProvider(client *http.Client, loc Location) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name:      "openmeteo-weather",
		baseURL:   openMeteoForecastURL,
		variables: []string{"temperature_2m", "relative_humidity_2m"},
		columns:   []dataset.Column{dataset.Temperature, dataset.Humidity},
		loc:       loc,
		client:    client,
		circuit:   newCircuit("openmeteo-weather"),
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) Fetch(ctx context.Context, w acquire.Window) (dataset.Table, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", formatCoord(p.loc.Latitude))
		values.Set("longitude", formatCoord(p.loc.Longitude))
		values.Set("hourly", strings.Join(p.variables, ","))
		values.Set("start_date", w.Start.UTC().Format(time.DateOnly))
		values.Set("end_date", w.End.UTC().Format(time.DateOnly))
		values.Set("timezone", "GMT")

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequest(ctx, p.client, p.circuit, buildRequest)
	if err != nil {
		return dataset.Table{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		Hourly map[string]json.RawMessage `json:"hourly"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return dataset.Table{}, fmt.Errorf("%s: decode: %w", p.name, err)
	}

	var rawTimes []string
	if err := decodeField(payload.Hourly, "time", &rawTimes); err != nil {
		return dataset.Table{}, fmt.Errorf("%s: %w", p.name, err)
	}
	times := make([]time.Time, len(rawTimes))
	for i, s := range rawTimes {
		ts, err := time.ParseInLocation(openMeteoTimeLayout, s, time.UTC)
		if err != nil {
			return dataset.Table{}, fmt.Errorf("%s: time %q: %w", p.name, s, err)
		}
		times[i] = ts
	}

	cols := make([]series, len(p.variables))
	for i, v := range p.variables {
		var vals []*float64
		if err := decodeField(payload.Hourly, v, &vals); err != nil {
			return dataset.Table{}, fmt.Errorf("%s: %w", p.name, err)
		}
		cols[i] = series{column: p.columns[i], values: vals}
	}

	return hourlyTable(times, cols, w.Contains)
}

func decodeField(fields map[string]json.RawMessage, name string, dst any) error {
	raw, ok := fields[name]
	if !ok {
		return fmt.Errorf("hourly.%s missing from response", name)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("hourly.%s: %w", name, err)
	}
	return nil
}
