package weather

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Coordinates is a WGS84 position.
type Coordinates struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon float64 `json:"lon" validate:"gte=-180,lte=180"`
}

// Valid reports whether both components are within their geographic range.
func (c Coordinates) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// String renders the coordinates in the "lat,lon" form used by geolocation providers.
func (c Coordinates) String() string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lon, 'f', -1, 64)
}

// ParseCoordinates parses a "lat,lon" pair.
func ParseCoordinates(s string) (Coordinates, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return Coordinates{}, fmt.Errorf("%w: expected \"lat,lon\", got %q", ErrMalformedResponse, s)
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("%w: latitude %q", ErrMalformedResponse, parts[0])
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("%w: longitude %q", ErrMalformedResponse, parts[1])
	}

	c := Coordinates{Lat: lat, Lon: lon}
	if !c.Valid() {
		return Coordinates{}, fmt.Errorf("%w: coordinates out of range %q", ErrMalformedResponse, s)
	}
	return c, nil
}

// PlaceSuggestion is a single autocomplete candidate returned by a geocoder.
type PlaceSuggestion struct {
	DisplayName string      `json:"displayName"`
	Center      Coordinates `json:"center"`
}

// Conditions is a provider's current-conditions reading, normalized to metric units.
type Conditions struct {
	LocationName string
	CountryCode  string
	Coordinates  Coordinates

	TemperatureC float64
	PressureHpa  float64
	HumidityPct  float64
	WindSpeedMS  float64

	ConditionCode        int
	ConditionDescription string
}

// Snapshot is a complete weather reading for one location. A new snapshot
// always replaces the previous one; fields are never merged.
type Snapshot struct {
	LocationName string      `json:"locationName"`
	CountryCode  string      `json:"countryCode,omitempty"`
	Coordinates  Coordinates `json:"coordinates"`

	TemperatureC float64 `json:"temperatureC"`
	PressureHpa  float64 `json:"pressureHpa"`
	HumidityPct  float64 `json:"humidityPercent"`
	WindSpeedMS  float64 `json:"windSpeedMps"`

	ConditionCode        int    `json:"conditionCode"`
	ConditionDescription string `json:"conditionDescription"`

	AirQualityIndex *int `json:"airQualityIndex,omitempty"`

	FetchedAt time.Time `json:"fetchedAt"` // always UTC
}

// Target selects what a weather fetch is for: coordinates or a free-text place name.
type Target struct {
	Coordinates *Coordinates
	Place       string
}

// ForCoordinates returns a Target for the given position.
func ForCoordinates(c Coordinates) Target {
	return Target{Coordinates: &c}
}

// ForPlace returns a Target for a place name.
func ForPlace(name string) Target {
	return Target{Place: name}
}

func (t Target) String() string {
	if t.Coordinates != nil {
		return t.Coordinates.String()
	}
	return t.Place
}
