package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpapi "github.com/i474232898/weather-dashboard/internal/api/http"
	"github.com/i474232898/weather-dashboard/internal/config"
	"github.com/i474232898/weather-dashboard/internal/dashboard"
	"github.com/i474232898/weather-dashboard/internal/observability"
	"github.com/i474232898/weather-dashboard/internal/scheduler"
	"github.com/i474232898/weather-dashboard/internal/store"
	"github.com/i474232898/weather-dashboard/internal/weather"
	"github.com/i474232898/weather-dashboard/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// The workflow owns retries of weather fetches, so the provider itself
	// makes a single attempt per call.
	weatherCfg := providers.DefaultHTTPConfig(httpClient, 0)
	weatherCfg.Metrics = metrics
	conditions := providers.NewOpenWeatherProvider(weatherCfg, cfg.WeatherAPIURL, cfg.WeatherAPIKey)

	placesCfg := providers.DefaultHTTPConfig(httpClient, 0)
	placesCfg.Metrics = metrics
	var places weather.PlaceSearcher = providers.NewMapboxPlaces(placesCfg, cfg.CityAPIURL, cfg.CityAPIToken)
	if cfg.PlaceCacheTTL > 0 {
		places = providers.NewCachedPlaces(places, cfg.PlaceCacheTTL, metrics)
	}

	locator := providers.NewIPInfoLocator(cfg.IPAPIURL, cfg.IPAPIToken, cfg.HTTPTimeout, metrics)

	// In-memory session store with configured retention.
	memStore := store.NewMemoryStore(cfg.SessionMax, cfg.SessionMaxAge, metrics)

	// Upper bound on one fetch: every attempt plus the waits between them.
	requestTimeout := time.Duration(cfg.FetchMaxAttempts)*(cfg.HTTPTimeout*2) + cfg.FetchRetryMax*time.Duration(cfg.FetchMaxAttempts)

	service := dashboard.NewService(memStore, conditions, locator, places, dashboard.Settings{
		Recovery:       cfg.Recovery(),
		Fallback:       cfg.Fallback,
		SearchDebounce: cfg.SearchDebounce,
		LookupTimeout:  cfg.HTTPTimeout,
		// A restart resolves the location again before fetching.
		RestartTimeout: requestTimeout + cfg.HTTPTimeout,
	}, clock, log, metrics)

	// Scheduler that prunes idle sessions and refreshes ready ones.
	sched := scheduler.New(service, cfg.JanitorInterval, cfg.RefreshInterval, requestTimeout, log)
	if err := sched.Start(); err != nil {
		log.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "weather-dashboard",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          requestTimeout + 5*time.Second,
		ProxyHeader:           cfg.ProxyHeader,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-dashboard",
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// API routes.
	httpapi.RegisterRoutes(app, httpapi.Deps{
		Sessions: service,
		Weather:  conditions,
		Locator:  locator,
		Places:   places,
		Clock:    clock,
		Timeout:  requestTimeout,
	})

	go func() {
		log.Info("http server listening", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("fiber server stopped", "error", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", "error", err)
	}
}
