package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

const openWeatherName = "openweathermap"

// OpenWeatherProvider implements weather.ConditionsProvider for OpenWeatherMap:
// current conditions from /weather and the air quality index from /air_pollution.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewOpenWeatherProvider creates a provider for the API at baseURL
// (e.g. https://api.openweathermap.org/data/2.5).
func NewOpenWeatherProvider(httpCfg HTTPClientConfig, baseURL, apiKey string) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		name:    openWeatherName,
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpCfg: httpCfg,
		circuit: newCircuitBreaker(openWeatherName),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

func (p *OpenWeatherProvider) CurrentByCoordinates(ctx context.Context, c weather.Coordinates) (weather.Conditions, error) {
	values := url.Values{}
	values.Set("lat", formatCoord(c.Lat))
	values.Set("lon", formatCoord(c.Lon))
	return p.current(ctx, values)
}

func (p *OpenWeatherProvider) CurrentByPlace(ctx context.Context, place string) (weather.Conditions, error) {
	place = strings.TrimSpace(place)
	if place == "" {
		return weather.Conditions{}, fmt.Errorf("place name is required")
	}
	values := url.Values{}
	values.Set("q", place)
	return p.current(ctx, values)
}

type currentPayload struct {
	Name  string `json:"name"`
	Coord *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coord"`
	Main *struct {
		Temp     float64 `json:"temp"`
		Pressure float64 `json:"pressure"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Weather []struct {
		ID          int    `json:"id"`
		Description string `json:"description"`
	} `json:"weather"`
	Sys struct {
		Country string `json:"country"`
	} `json:"sys"`
}

func (p *OpenWeatherProvider) current(ctx context.Context, values url.Values) (weather.Conditions, error) {
	const op = "current"
	if p.apiKey == "" {
		return weather.Conditions{}, fmt.Errorf("openweather api key is not configured")
	}

	values.Set("units", "metric")
	values.Set("appid", p.apiKey)

	resp, err := doRequestWithResilience(ctx, p.name, op, p.httpCfg, p.circuit, p.get("/weather", values))
	if err != nil {
		return weather.Conditions{}, err
	}

	var payload currentPayload
	if err := decodeJSON(p.name, op, resp, &payload); err != nil {
		return weather.Conditions{}, err
	}

	// Coordinates feed the air quality call; without them the reading is unusable.
	if payload.Coord == nil {
		return weather.Conditions{}, malformed(p.name, op, "missing coord")
	}
	if payload.Main == nil {
		return weather.Conditions{}, malformed(p.name, op, "missing main")
	}

	cond := weather.Conditions{
		LocationName: payload.Name,
		CountryCode:  payload.Sys.Country,
		Coordinates:  weather.Coordinates{Lat: payload.Coord.Lat, Lon: payload.Coord.Lon},
		TemperatureC: payload.Main.Temp,
		PressureHpa:  payload.Main.Pressure,
		HumidityPct:  payload.Main.Humidity,
		WindSpeedMS:  payload.Wind.Speed,
	}
	if len(payload.Weather) > 0 {
		cond.ConditionCode = payload.Weather[0].ID
		cond.ConditionDescription = payload.Weather[0].Description
	} else {
		cond.ConditionCode = weather.DefaultConditionCode
	}
	return cond, nil
}

func (p *OpenWeatherProvider) AirQuality(ctx context.Context, c weather.Coordinates) (int, bool, error) {
	const op = "air_pollution"
	if p.apiKey == "" {
		return 0, false, fmt.Errorf("openweather api key is not configured")
	}

	values := url.Values{}
	values.Set("lat", formatCoord(c.Lat))
	values.Set("lon", formatCoord(c.Lon))
	values.Set("appid", p.apiKey)

	resp, err := doRequestWithResilience(ctx, p.name, op, p.httpCfg, p.circuit, p.get("/air_pollution", values))
	if err != nil {
		return 0, false, err
	}

	var payload struct {
		List []struct {
			Main struct {
				AQI int `json:"aqi"`
			} `json:"main"`
		} `json:"list"`
	}
	if err := decodeJSON(p.name, op, resp, &payload); err != nil {
		return 0, false, err
	}

	if len(payload.List) == 0 {
		return 0, false, nil
	}
	return payload.List[0].Main.AQI, true, nil
}

func (p *OpenWeatherProvider) get(path string, values url.Values) func(ctx context.Context) (*http.Request, error) {
	return func(ctx context.Context) (*http.Request, error) {
		u := fmt.Sprintf("%s%s?%s", p.baseURL, path, values.Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
