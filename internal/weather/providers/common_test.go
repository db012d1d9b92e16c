package providers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-dashboard/internal/observability"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

func getRequest(url string) func(ctx context.Context) (*http.Request, error) {
	return func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	}
}

func TestCircuitOpensAfterConsecutiveServerErrors(t *testing.T) {
	srv, n := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	metrics := observability.NewMetricsForTesting()
	cfg := testHTTPConfig(0, metrics)
	cb := newCircuitBreaker("test")

	for i := 0; i < 6; i++ {
		_, err := doRequestWithResilience(context.Background(), "test", "get", cfg, cb, getRequest(srv.URL))
		require.Error(t, err)
	}

	_, err := doRequestWithResilience(context.Background(), "test", "get", cfg, cb, getRequest(srv.URL))
	require.ErrorIs(t, err, errCircuitOpen)

	var pe *weather.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusServiceUnavailable, pe.Status)
	assert.Equal(t, int32(6), n.Load())
	assert.Equal(t, 1.0, counterValue(t, metrics.ProviderRequests.WithLabelValues("test", "get", "circuit_open")))
}

func TestClientErrorsDoNotTripCircuit(t *testing.T) {
	srv, n := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"cod":"404","message":"city not found"}`))
	})
	cfg := testHTTPConfig(0, nil)
	cb := newCircuitBreaker("test")

	for i := 0; i < 10; i++ {
		_, err := doRequestWithResilience(context.Background(), "test", "get", cfg, cb, getRequest(srv.URL))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "city not found")
		assert.False(t, errors.Is(err, errCircuitOpen))
	}
	assert.Equal(t, int32(10), n.Load())
}

func TestDoRequestRejectsBadConfig(t *testing.T) {
	cb := newCircuitBreaker("test")

	_, err := doRequestWithResilience(context.Background(), "test", "get", HTTPClientConfig{}, cb, getRequest("http://example.invalid"))
	assert.ErrorIs(t, err, errNoHTTPClient)

	cfg := testHTTPConfig(0, nil)
	cfg.Backoff.InitialInterval = 0
	_, err = doRequestWithResilience(context.Background(), "test", "get", cfg, cb, getRequest("http://example.invalid"))
	assert.ErrorIs(t, err, errInvalidConfig)
}

func TestDoRequestStopsOnCancelledContext(t *testing.T) {
	srv, n := countingServer(t, func(w http.ResponseWriter, r *http.Request) {})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := doRequestWithResilience(ctx, "test", "get", testHTTPConfig(3, nil), newCircuitBreaker("test"), getRequest(srv.URL))
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, n.Load())
}

func TestProviderMessage(t *testing.T) {
	assert.Equal(t, "bad thing", providerMessage([]byte(`{"message":"bad thing"}`)))
	assert.Equal(t, "plain text", providerMessage([]byte("  plain text\n")))
	assert.Empty(t, providerMessage(nil))
}
