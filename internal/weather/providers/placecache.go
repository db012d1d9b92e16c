package providers

import (
	"context"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/i474232898/weather-dashboard/internal/observability"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

// CachedPlaces wraps a PlaceSearcher with a TTL cache keyed by the normalized query.
type CachedPlaces struct {
	inner   weather.PlaceSearcher
	cache   *cache.Cache
	metrics *observability.Metrics
}

// NewCachedPlaces creates a cache decorator. Entries expire after ttl.
func NewCachedPlaces(inner weather.PlaceSearcher, ttl time.Duration, metrics *observability.Metrics) *CachedPlaces {
	return &CachedPlaces{
		inner:   inner,
		cache:   cache.New(ttl, 2*ttl),
		metrics: metrics,
	}
}

func (c *CachedPlaces) SearchPlaces(ctx context.Context, query string) ([]weather.PlaceSuggestion, error) {
	key := strings.ToLower(strings.TrimSpace(query))
	if key == "" {
		return nil, nil
	}

	if v, ok := c.cache.Get(key); ok {
		c.count("hit")
		return clonePlaces(v.([]weather.PlaceSuggestion)), nil
	}
	c.count("miss")

	places, err := c.inner.SearchPlaces(ctx, query)
	if err != nil {
		return nil, err
	}
	// Failures are never cached so the next keystroke reaches the provider.
	c.cache.Set(key, clonePlaces(places), cache.DefaultExpiration)
	return places, nil
}

func (c *CachedPlaces) count(result string) {
	if c.metrics != nil {
		c.metrics.PlaceCache.WithLabelValues(result).Inc()
	}
}

func clonePlaces(in []weather.PlaceSuggestion) []weather.PlaceSuggestion {
	out := make([]weather.PlaceSuggestion, len(in))
	copy(out, in)
	return out
}
