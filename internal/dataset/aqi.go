package dataset

// AQICategory is the label derived from an AQI value. The zero value is null.
type AQICategory string

const (
	AQINone               AQICategory = ""
	AQIGood               AQICategory = "Good"
	AQIModerate           AQICategory = "Moderate"
	AQIUnhealthySensitive AQICategory = "Unhealthy for Sensitive Groups"
	AQIUnhealthy          AQICategory = "Unhealthy"
	AQIVeryUnhealthy      AQICategory = "Very Unhealthy"
	AQIHazardous          AQICategory = "Hazardous"
)

// Valid reports whether the category is not null.
func (c AQICategory) Valid() bool {
	return c != AQINone
}

// CategorizeAQI maps an AQI value to its band. Each band includes its
// upper bound; nil maps to AQINone.
func CategorizeAQI(aqi *float64) AQICategory {
	if aqi == nil {
		return AQINone
	}
	v := *aqi
	switch {
	case v <= 50:
		return AQIGood
	case v <= 100:
		return AQIModerate
	case v <= 150:
		return AQIUnhealthySensitive
	case v <= 200:
		return AQIUnhealthy
	case v <= 300:
		return AQIVeryUnhealthy
	default:
		return AQIHazardous
	}
}
