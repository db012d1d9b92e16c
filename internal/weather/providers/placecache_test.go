package providers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-dashboard/internal/observability"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

type stubSearcher struct {
	mu      sync.Mutex
	queries []string
	places  []weather.PlaceSuggestion
	err     error
}

func (s *stubSearcher) SearchPlaces(_ context.Context, query string) ([]weather.PlaceSuggestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, query)
	if s.err != nil {
		return nil, s.err
	}
	return s.places, nil
}

func TestCachedPlacesServesRepeatedQueries(t *testing.T) {
	inner := &stubSearcher{places: []weather.PlaceSuggestion{
		{DisplayName: "Lisbon, Portugal", Center: weather.Coordinates{Lat: 38.72, Lon: -9.14}},
	}}
	metrics := observability.NewMetricsForTesting()
	c := NewCachedPlaces(inner, time.Minute, metrics)

	first, err := c.SearchPlaces(context.Background(), "Lisbon")
	require.NoError(t, err)
	second, err := c.SearchPlaces(context.Background(), "  lisbon ")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, []string{"Lisbon"}, inner.queries)
	assert.Equal(t, 1.0, counterValue(t, metrics.PlaceCache.WithLabelValues("hit")))
	assert.Equal(t, 1.0, counterValue(t, metrics.PlaceCache.WithLabelValues("miss")))

	// Callers cannot corrupt the cached entry.
	second[0].DisplayName = "changed"
	third, err := c.SearchPlaces(context.Background(), "LISBON")
	require.NoError(t, err)
	assert.Equal(t, "Lisbon, Portugal", third[0].DisplayName)
}

func TestCachedPlacesDoesNotCacheFailures(t *testing.T) {
	inner := &stubSearcher{err: errors.New("geocoder down")}
	c := NewCachedPlaces(inner, time.Minute, nil)

	_, err := c.SearchPlaces(context.Background(), "Oslo")
	require.Error(t, err)

	inner.mu.Lock()
	inner.err = nil
	inner.mu.Unlock()

	_, err = c.SearchPlaces(context.Background(), "Oslo")
	require.NoError(t, err)
	assert.Len(t, inner.queries, 2)
}

func TestCachedPlacesBlankQuery(t *testing.T) {
	inner := &stubSearcher{}
	c := NewCachedPlaces(inner, time.Minute, nil)

	places, err := c.SearchPlaces(context.Background(), " ")
	require.NoError(t, err)
	assert.Empty(t, places)
	assert.Empty(t, inner.queries)
}
