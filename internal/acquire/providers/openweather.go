package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/airquality-etl/internal/acquire"
	"github.com/i474232898/airquality-etl/internal/dataset"
)

// OpenWeatherProvider reads the OpenWeatherMap air pollution history.
// Only the particulate components are used; the provider's own 1-5 index
// is not an AQI value.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	loc     Location
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(client *http.Client, apiKey string, loc Location) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		name:    "openweather",
		apiKey:  apiKey,
		baseURL: "https://api.openweathermap.org/data/2.5/air_pollution/history",
		loc:     loc,
		client:  client,
		circuit: newCircuit("openweather"),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

func (p *OpenWeatherProvider) Fetch(ctx context.Context, w acquire.Window) (dataset.Table, error) {
	if p.apiKey == "" {
		return dataset.Table{}, fmt.Errorf("openweather api key is not configured")
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("lat", formatCoord(p.loc.Latitude))
		values.Set("lon", formatCoord(p.loc.Longitude))
		values.Set("start", strconv.FormatInt(w.Start.Unix(), 10))
		values.Set("end", strconv.FormatInt(w.End.Unix(), 10))
		values.Set("appid", p.apiKey)

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequest(ctx, p.client, p.circuit, buildRequest)
	if err != nil {
		return dataset.Table{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		List []struct {
			Dt         int64 `json:"dt"`
			Components struct {
				PM25 *float64 `json:"pm2_5"`
				PM10 *float64 `json:"pm10"`
			} `json:"components"`
		} `json:"list"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return dataset.Table{}, fmt.Errorf("%s: decode: %w", p.name, err)
	}

	times := make([]time.Time, len(payload.List))
	pm25 := make([]*float64, len(payload.List))
	pm10 := make([]*float64, len(payload.List))
	for i, item := range payload.List {
		times[i] = time.Unix(item.Dt, 0).UTC()
		pm25[i] = item.Components.PM25
		pm10[i] = item.Components.PM10
	}

	return hourlyTable(times, []series{
		{column: dataset.PM25, values: pm25},
		{column: dataset.PM10, values: pm10},
	}, nil)
}
