package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

type AppConfig struct {
	Port      string `validate:"required,numeric"`
	LogLevel  string `validate:"oneof=debug info warn error"`
	LogFormat string `validate:"oneof=json text"`

	// HTTPTimeout bounds every outbound provider call.
	HTTPTimeout time.Duration `validate:"gt=0"`

	// ProxyHeader names the header carrying the client IP behind a proxy
	// (e.g. X-Forwarded-For). Empty means use the peer address.
	ProxyHeader string

	IPAPIURL   string `validate:"required,url"`
	IPAPIToken string

	WeatherAPIURL string `validate:"required,url"`
	WeatherAPIKey string `validate:"required"`

	CityAPIURL   string `validate:"required,url"`
	CityAPIToken string `validate:"required"`

	SearchDebounce time.Duration `validate:"gte=0"`
	PlaceCacheTTL  time.Duration `validate:"gte=0"` // 0 disables the cache

	FetchMaxAttempts  int           `validate:"gte=1,lte=10"`
	FetchRetryInitial time.Duration `validate:"gt=0"`
	FetchRetryMax     time.Duration `validate:"gtefield=FetchRetryInitial"`
	ReloadDelay       time.Duration `validate:"gte=0"`
	MaxReloads        int           `validate:"gte=0"`

	// Fallback is used when IP geolocation fails. Nil means fail instead.
	Fallback *weather.Coordinates

	// In-memory session retention.
	SessionMaxAge time.Duration `validate:"gte=0"` // idle time before pruning (0 = unlimited)
	SessionMax    int           `validate:"gte=0"` // max sessions held (0 = unlimited)

	JanitorInterval time.Duration `validate:"gt=0"`
	RefreshInterval time.Duration `validate:"gte=0"` // 0 disables background refresh
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file loaded", "error", err)
	}
	cfg := &AppConfig{
		Port:          getenvDefault("PORT", "8080"),
		LogLevel:      getenvDefault("LOG_LEVEL", "info"),
		LogFormat:     getenvDefault("LOG_FORMAT", "json"),
		ProxyHeader:   os.Getenv("PROXY_HEADER"),
		IPAPIURL:      getenvDefault("IP_API_URL", "https://ipinfo.io"),
		IPAPIToken:    os.Getenv("IP_API_TOKEN"),
		WeatherAPIURL: getenvDefault("WEATHER_API_URL", "https://api.openweathermap.org/data/2.5"),
		WeatherAPIKey: os.Getenv("WEATHER_API_KEY"),
		CityAPIURL:    getenvDefault("CITY_API_URL", "https://api.mapbox.com/geocoding/v5/mapbox.places"),
		CityAPIToken:  os.Getenv("CITY_API_TOKEN"),

		FetchMaxAttempts: getenvInt("FETCH_MAX_ATTEMPTS", 3),
		MaxReloads:       getenvInt("MAX_RELOADS", 1),
		SessionMax:       getenvInt("SESSION_MAX", 1000),
	}

	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"HTTP_TIMEOUT", "10s", &cfg.HTTPTimeout},
		{"SEARCH_DEBOUNCE", "1s", &cfg.SearchDebounce},
		{"PLACE_CACHE_TTL", "5m", &cfg.PlaceCacheTTL},
		{"FETCH_RETRY_INITIAL", "500ms", &cfg.FetchRetryInitial},
		{"FETCH_RETRY_MAX", "5s", &cfg.FetchRetryMax},
		{"RELOAD_DELAY", "2s", &cfg.ReloadDelay},
		{"SESSION_MAX_AGE", "30m", &cfg.SessionMaxAge},
		{"JANITOR_INTERVAL", "1m", &cfg.JanitorInterval},
		{"REFRESH_INTERVAL", "15m", &cfg.RefreshInterval},
	}
	for _, d := range durations {
		v, err := getenvDuration(d.key, d.def)
		if err != nil {
			return nil, err
		}
		*d.dst = v
	}

	if loc := os.Getenv("FALLBACK_LOCATION"); loc != "" {
		c, err := weather.ParseCoordinates(loc)
		if err != nil {
			return nil, fmt.Errorf("invalid FALLBACK_LOCATION: %w", err)
		}
		cfg.Fallback = &c
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Recovery returns the fetch retry and restart policy.
func (c *AppConfig) Recovery() weather.RecoveryPolicy {
	return weather.RecoveryPolicy{
		MaxAttempts:     c.FetchMaxAttempts,
		InitialInterval: c.FetchRetryInitial,
		MaxInterval:     c.FetchRetryMax,
		ReloadDelay:     c.ReloadDelay,
		MaxReloads:      c.MaxReloads,
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
