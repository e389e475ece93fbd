package providers

import (
	"errors"
	"fmt"

	"github.com/kelvins/geocoder"
)

// Location is the point HTTP providers are queried for.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// LocationConfig describes how to obtain a Location: explicit coordinates
// take precedence over geocoding the city and country.
type LocationConfig struct {
	Latitude       *float64
	Longitude      *float64
	City           string
	Country        string
	GeocoderAPIKey string
}

var errNoLocation = errors.New("no location configured: set LATITUDE/LONGITUDE or LOCATION_CITY/LOCATION_COUNTRY")

// geocode is swapped in tests.
var geocode = func(apiKey, city, country string) (Location, error) {
	geocoder.ApiKey = apiKey
	loc, err := geocoder.Geocoding(geocoder.Address{City: city, Country: country})
	if err != nil {
		return Location{}, err
	}
	return Location{Latitude: loc.Latitude, Longitude: loc.Longitude}, nil
}

// ResolveLocation returns the configured coordinates, geocoding the city
// when none are given.
func ResolveLocation(cfg LocationConfig) (Location, error) {
	if cfg.Latitude != nil && cfg.Longitude != nil {
		return Location{Latitude: *cfg.Latitude, Longitude: *cfg.Longitude}, nil
	}
	if cfg.City == "" {
		return Location{}, errNoLocation
	}
	if cfg.GeocoderAPIKey == "" {
		return Location{}, fmt.Errorf("geocoding %s requires GEOCODER_API_KEY", cfg.City)
	}

	loc, err := geocode(cfg.GeocoderAPIKey, cfg.City, cfg.Country)
	if err != nil {
		return Location{}, fmt.Errorf("geocode %s,%s: %w", cfg.City, cfg.Country, err)
	}
	return loc, nil
}
