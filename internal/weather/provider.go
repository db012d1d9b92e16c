package weather

import (
	"context"
)

// ConditionsProvider abstracts a weather data source (e.g. OpenWeatherMap).
type ConditionsProvider interface {
	Name() string

	// CurrentByCoordinates returns current conditions at a position.
	CurrentByCoordinates(ctx context.Context, c Coordinates) (Conditions, error)

	// CurrentByPlace returns current conditions for a free-text place name.
	CurrentByPlace(ctx context.Context, place string) (Conditions, error)

	// AirQuality returns the air quality index at a position. ok is false when
	// the provider has no reading for it.
	AirQuality(ctx context.Context, c Coordinates) (aqi int, ok bool, err error)
}

// Locator resolves a client network address to coordinates. An empty or
// non-public address resolves the caller's own address.
type Locator interface {
	Name() string
	Locate(ctx context.Context, clientIP string) (Coordinates, error)
}

// PlaceSearcher returns place suggestions for a free-text query, in provider order.
type PlaceSearcher interface {
	SearchPlaces(ctx context.Context, query string) ([]PlaceSuggestion, error)
}
