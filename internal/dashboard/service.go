package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/i474232898/weather-dashboard/internal/observability"
	"github.com/i474232898/weather-dashboard/internal/search"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

var (
	// ErrNotFound is returned for unknown or evicted session ids.
	ErrNotFound = errors.New("session not found")

	// ErrUnknownPlace is returned when selecting a name that is not a current suggestion.
	ErrUnknownPlace = errors.New("place is not a current suggestion")
)

// Store is the contract the in-memory session store must satisfy.
type Store interface {
	Save(s *Session)
	Get(id string) (*Session, error)
	Delete(id string) error
	All() []*Session
	Prune(now time.Time) int
}

// Settings configure the sessions a Service creates.
type Settings struct {
	Recovery       weather.RecoveryPolicy
	Fallback       *weather.Coordinates
	SearchDebounce time.Duration

	// LookupTimeout bounds one autocomplete lookup.
	LookupTimeout time.Duration

	// RestartTimeout bounds an automatic restart: the IP lookup plus every
	// fetch attempt and backoff wait.
	RestartTimeout time.Duration
}

// Service creates dashboard sessions and orchestrates them against the store.
type Service struct {
	store    Store
	provider weather.ConditionsProvider
	locator  weather.Locator
	places   weather.PlaceSearcher
	settings Settings
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewService creates a new Service.
func NewService(
	store Store,
	provider weather.ConditionsProvider,
	locator weather.Locator,
	places weather.PlaceSearcher,
	settings Settings,
	clock clockwork.Clock,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if settings.LookupTimeout <= 0 {
		settings.LookupTimeout = 10 * time.Second
	}
	if settings.RestartTimeout <= 0 {
		settings.RestartTimeout = 30 * time.Second
	}
	return &Service{
		store:    store,
		provider: provider,
		locator:  locator,
		places:   places,
		settings: settings,
		clock:    clock,
		logger:   logger,
		metrics:  metrics,
	}
}

// Create builds a session, stores it and runs its initial location resolution
// for clientIP. The session is returned even when that first run fails; its
// view then carries the error.
func (s *Service) Create(ctx context.Context, clientIP string, theme Theme) (*Session, error) {
	now := s.clock.Now()
	sess := &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		theme:     theme,
		units:     weather.Metric,
		lastSeen:  now,
	}
	logger := s.logger.With("session", sess.ID)

	sess.autocomplete = search.NewAutocomplete(
		s.places,
		search.NewDebouncer(s.settings.SearchDebounce, s.clock),
		s.settings.LookupTimeout,
		logger,
	)

	opts := []weather.Option{
		weather.WithClock(s.clock),
		weather.WithRecoveryPolicy(s.settings.Recovery),
		weather.WithLogger(logger),
		weather.WithMetrics(s.metrics),
		weather.WithRestartTimeout(s.settings.RestartTimeout),
		// Every fetch attempt empties the search box.
		weather.WithSettleHook(sess.autocomplete.ClearText),
	}
	if s.settings.Fallback != nil {
		opts = append(opts, weather.WithFallback(*s.settings.Fallback))
	}
	sess.workflow = weather.NewWorkflow(s.provider, s.locator, opts...)

	s.store.Save(sess)
	logger.Info("session created", "client_ip", clientIP, "theme", theme.String())

	err := sess.Start(ctx, clientIP)
	return sess, err
}

// Get returns a session and records activity on it.
func (s *Service) Get(id string) (*Session, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	sess.Touch(s.clock.Now())
	return sess, nil
}

// Delete closes and removes a session.
func (s *Service) Delete(id string) error {
	return s.store.Delete(id)
}

// Prune evicts idle sessions and returns how many were removed.
func (s *Service) Prune() int {
	n := s.store.Prune(s.clock.Now())
	if n > 0 {
		s.logger.Info("pruned idle sessions", "count", n)
	}
	return n
}

// RefreshReady re-fetches the weather of every session in the ready state,
// concurrently, each bounded by timeout. It returns the number refreshed.
func (s *Service) RefreshReady(ctx context.Context, timeout time.Duration) int {
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		refreshed int
	)

	for _, sess := range s.store.All() {
		if sess.State() != weather.StateReady {
			continue
		}

		wg.Add(1)
		go func(sess *Session) {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			if err := sess.Refresh(ctx); err != nil {
				if !errors.Is(err, weather.ErrSuperseded) {
					s.logger.Warn("session refresh failed", "session", sess.ID, "error", err)
				}
				return
			}
			mu.Lock()
			refreshed++
			mu.Unlock()
		}(sess)
	}

	wg.Wait()
	return refreshed
}
