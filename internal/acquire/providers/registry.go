package providers

import (
	"fmt"
	"net/http"

	"github.com/i474232898/airquality-etl/internal/acquire"
)

const (
	SourceSample              = "sample"
	SourceFile                = "file"
	SourceOpenMeteoAirQuality = "openmeteo-airquality"
	SourceOpenMeteoWeather    = "openmeteo-weather"
	SourceOpenWeather         = "openweather"
)

// Options carries what the named sources need to be built.
type Options struct {
	Client            *http.Client
	Location          LocationConfig
	OpenWeatherAPIKey string
	SourceFile        string
}

// Build creates the named sources in order. The location is resolved once,
// and only if an HTTP provider is requested.
func Build(names []string, opts Options) ([]acquire.Source, error) {
	var (
		loc      Location
		resolved bool
	)
	location := func() (Location, error) {
		if resolved {
			return loc, nil
		}
		l, err := ResolveLocation(opts.Location)
		if err != nil {
			return Location{}, err
		}
		loc, resolved = l, true
		return loc, nil
	}

	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}

	sources := make([]acquire.Source, 0, len(names))
	for _, name := range names {
		switch name {
		case SourceSample:
			sources = append(sources, acquire.NewSampleSource())
		case SourceFile:
			if opts.SourceFile == "" {
				return nil, fmt.Errorf("source %q requires SOURCE_FILE", name)
			}
			sources = append(sources, &acquire.FileSource{Path: opts.SourceFile})
		case SourceOpenMeteoAirQuality, SourceOpenMeteoWeather, SourceOpenWeather:
			l, err := location()
			if err != nil {
				return nil, fmt.Errorf("source %q: %w", name, err)
			}
			switch name {
			case SourceOpenMeteoAirQuality:
				sources = append(sources, NewOpenMeteoAirQualityProvider(client, l))
			case SourceOpenMeteoWeather:
				sources = append(sources, NewOpenMeteoWeatherProvider(client, l))
			default:
				if opts.OpenWeatherAPIKey == "" {
					return nil, fmt.Errorf("source %q requires OPENWEATHER_API_KEY", name)
				}
				sources = append(sources, NewOpenWeatherProvider(client, opts.OpenWeatherAPIKey, l))
			}
		default:
			return nil, fmt.Errorf("unknown source %q", name)
		}
	}
	return sources, nil
}
