package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-dashboard/internal/observability"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

// BackoffConfig controls exponential backoff behaviour.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// HTTPClientConfig bundles HTTP client, resilience and instrumentation settings.
type HTTPClientConfig struct {
	Client  *http.Client
	Backoff BackoffConfig
	Metrics *observability.Metrics
}

var (
	errCircuitOpen   = errors.New("circuit breaker open")
	errNoHTTPClient  = errors.New("http client not configured")
	errInvalidConfig = errors.New("invalid backoff configuration")
)

// maxErrorBody bounds how much of an error response is read for its message.
const maxErrorBody = 4 << 10

// DefaultHTTPConfig returns the HTTP settings shared by the providers.
func DefaultHTTPConfig(client *http.Client, maxRetries int) HTTPClientConfig {
	return HTTPClientConfig{
		Client: client,
		Backoff: BackoffConfig{
			MaxRetries:      maxRetries,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		},
	}
}

func newCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
}

// doRequestWithResilience executes the HTTP request with retries, exponential backoff,
// and a circuit breaker. Client errors (4xx other than 429) do not count against
// the breaker and are never retried. Every failure is returned as a
// *weather.ProviderError carrying the provider's message when it sent one.
func doRequestWithResilience(
	ctx context.Context,
	provider, op string,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	buildRequest func(ctx context.Context) (*http.Request, error),
) (resp *http.Response, err error) {
	if cfg.Client == nil {
		return nil, errNoHTTPClient
	}
	if cfg.Backoff.MaxRetries < 0 || cfg.Backoff.InitialInterval <= 0 {
		return nil, errInvalidConfig
	}

	start := time.Now()
	defer func() { observe(cfg.Metrics, provider, op, start, err) }()

	var attempt int
	var lastErr error

	for {
		if ctx.Err() != nil {
			return nil, &weather.ProviderError{Provider: provider, Op: op, Err: ctx.Err()}
		}

		req, err := buildRequest(ctx)
		if err != nil {
			return nil, fmt.Errorf("build %s request: %w", op, err)
		}

		result, err := cb.Execute(func() (interface{}, error) {
			resp, execErr := cfg.Client.Do(req)
			if execErr != nil {
				return nil, &weather.ProviderError{Provider: provider, Op: op, Err: execErr}
			}

			// Rate limiting and server errors trip the breaker.
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return nil, statusError(provider, op, resp)
			}
			return resp, nil
		})

		if err == nil {
			resp, ok := result.(*http.Response)
			if !ok {
				return nil, fmt.Errorf("unexpected result type from circuit breaker")
			}
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				return nil, statusError(provider, op, resp)
			}
			return resp, nil
		}

		// If circuit is open, propagate immediately.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &weather.ProviderError{
				Provider: provider,
				Op:       op,
				Status:   http.StatusServiceUnavailable,
				Err:      fmt.Errorf("%w: %v", errCircuitOpen, err),
			}
		}

		lastErr = err
		if attempt >= cfg.Backoff.MaxRetries || !weather.IsTemporary(err) {
			return nil, lastErr
		}

		// Backoff with exponential delay.
		delay := cfg.Backoff.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if delay > cfg.Backoff.MaxInterval && cfg.Backoff.MaxInterval > 0 {
			delay = cfg.Backoff.MaxInterval
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, &weather.ProviderError{Provider: provider, Op: op, Err: ctx.Err()}
		case <-timer.C:
			// continue to next attempt
		}

		attempt++
	}
}

// statusError drains and closes resp, returning a ProviderError with the
// provider's own message if the body carries one.
func statusError(provider, op string, resp *http.Response) error {
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	msg := providerMessage(body)
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &weather.ProviderError{
		Provider: provider,
		Op:       op,
		Status:   resp.StatusCode,
		Message:  msg,
	}
}

// providerMessage extracts the "message" field most providers put in error
// bodies, falling back to the trimmed raw body.
func providerMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return strings.TrimSpace(string(body))
}

// decodeJSON decodes resp into v and closes the body. Decoding failures are
// reported as malformed responses.
func decodeJSON(provider, op string, resp *http.Response, v any) error {
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return malformed(provider, op, err.Error())
	}
	return nil
}

func malformed(provider, op, detail string) error {
	return &weather.ProviderError{
		Provider: provider,
		Op:       op,
		Err:      fmt.Errorf("%w: %s", weather.ErrMalformedResponse, detail),
	}
}

func observe(m *observability.Metrics, provider, op string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	switch {
	case errors.Is(err, errCircuitOpen):
		outcome = "circuit_open"
	case err != nil:
		outcome = "error"
	}
	m.ProviderRequests.WithLabelValues(provider, op, outcome).Inc()
	m.ProviderDuration.WithLabelValues(provider, op).Observe(time.Since(start).Seconds())
}
