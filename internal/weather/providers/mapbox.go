package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

const mapboxName = "mapbox"

// MapboxPlaces implements weather.PlaceSearcher using the Mapbox Geocoding API.
// Lookups are never retried: autocomplete is driven by keystrokes and the
// next keystroke is the retry.
type MapboxPlaces struct {
	name    string
	token   string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewMapboxPlaces creates a place searcher for the API at baseURL
// (e.g. https://api.mapbox.com/geocoding/v5/mapbox.places).
func NewMapboxPlaces(httpCfg HTTPClientConfig, baseURL, token string) *MapboxPlaces {
	httpCfg.Backoff.MaxRetries = 0
	return &MapboxPlaces{
		name:    mapboxName,
		token:   token,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpCfg: httpCfg,
		circuit: newCircuitBreaker(mapboxName),
	}
}

// SearchPlaces returns place-type suggestions for query in provider order.
func (m *MapboxPlaces) SearchPlaces(ctx context.Context, query string) ([]weather.PlaceSuggestion, error) {
	const op = "search"

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	params := url.Values{
		"access_token": {m.token},
		"autocomplete": {"true"},
		"types":        {"place"},
	}
	u := fmt.Sprintf("%s/%s.json?%s", m.baseURL, url.PathEscape(query), params.Encode())

	resp, err := doRequestWithResilience(ctx, m.name, op, m.httpCfg, m.circuit, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	})
	if err != nil {
		return nil, err
	}

	var payload mapboxResponse
	if err := decodeJSON(m.name, op, resp, &payload); err != nil {
		return nil, err
	}

	out := make([]weather.PlaceSuggestion, 0, len(payload.Features))
	for _, f := range payload.Features {
		// Mapbox uses lon,lat order.
		if len(f.Center) != 2 {
			return nil, malformed(m.name, op, fmt.Sprintf("invalid center for %q", f.PlaceName))
		}
		out = append(out, weather.PlaceSuggestion{
			DisplayName: f.PlaceName,
			Center:      weather.Coordinates{Lat: f.Center[1], Lon: f.Center[0]},
		})
	}
	return out, nil
}

// Mapbox API response types.

type mapboxResponse struct {
	Features []mapboxFeature `json:"features"`
}

type mapboxFeature struct {
	Center    []float64 `json:"center"` // [lon, lat]
	PlaceName string    `json:"place_name"`
}
