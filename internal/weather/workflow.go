package weather

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/i474232898/weather-dashboard/internal/observability"
)

// State is a workflow lifecycle state.
type State string

const (
	StateUninitialized     State = "uninitialized"
	StateResolvingLocation State = "resolving_location"
	StateFetchingWeather   State = "fetching_weather"
	StateReady             State = "ready"
	StateFailed            State = "failed"
)

// Fetch triggers, used as metric labels and in logs.
const (
	triggerStart       = "start"
	triggerCoordinates = "coordinates"
	triggerSearch      = "search"
	triggerRefresh     = "refresh"
)

// RecoveryPolicy controls retries of a failing fetch and restarts of a failed
// workflow.
type RecoveryPolicy struct {
	// MaxAttempts bounds provider attempts per fetch (values below 1 mean 1).
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration

	// ReloadDelay is the wait before restarting a failed workflow from scratch.
	// MaxReloads bounds consecutive restarts; once reached, failed is terminal.
	ReloadDelay time.Duration
	MaxReloads  int
}

// DefaultRecoveryPolicy returns the policy used when none is configured.
func DefaultRecoveryPolicy() RecoveryPolicy {
	return RecoveryPolicy{
		MaxAttempts:     3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		ReloadDelay:     2 * time.Second,
		MaxReloads:      1,
	}
}

// backoff returns the wait before retry number n (0-based).
func (p RecoveryPolicy) backoff(n int) time.Duration {
	d := p.InitialInterval << n
	if d <= 0 || (p.MaxInterval > 0 && d > p.MaxInterval) {
		d = p.MaxInterval
	}
	return d
}

// Status is a point-in-time copy of the workflow state.
type Status struct {
	State       State        `json:"state"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	Snapshot    *Snapshot    `json:"snapshot,omitempty"`
	Error       string       `json:"error,omitempty"`
	Reloads     int          `json:"reloads"`
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithClock replaces the real clock, e.g. with a clockwork.FakeClock in tests.
func WithClock(c clockwork.Clock) Option {
	return func(w *Workflow) { w.clock = c }
}

// WithRecoveryPolicy sets the retry and restart policy.
func WithRecoveryPolicy(p RecoveryPolicy) Option {
	return func(w *Workflow) { w.policy = p }
}

// WithFallback sets the location used when IP geolocation fails.
func WithFallback(c Coordinates) Option {
	return func(w *Workflow) { w.fallback = &c }
}

func WithLogger(l *slog.Logger) Option {
	return func(w *Workflow) { w.logger = l }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(w *Workflow) { w.metrics = m }
}

// WithSettleHook registers fn to run after every fetch attempt, successful or
// not. Refreshes of the active location do not run it.
func WithSettleHook(fn func()) Option {
	return func(w *Workflow) { w.onSettle = fn }
}

// WithRestartTimeout bounds a restart's location and weather calls.
func WithRestartTimeout(d time.Duration) Option {
	return func(w *Workflow) { w.restartTimeout = d }
}

// Workflow resolves a location and keeps the current weather snapshot for it.
//
// Every fetch takes a request number; only the result of the most recently
// issued request is applied, so a slow response can never overwrite a newer
// one.
type Workflow struct {
	provider       ConditionsProvider
	locator        Locator
	clock          clockwork.Clock
	policy         RecoveryPolicy
	fallback       *Coordinates
	logger         *slog.Logger
	metrics        *observability.Metrics
	onSettle       func()
	restartTimeout time.Duration

	mu           sync.Mutex
	state        State
	coords       *Coordinates
	snapshot     *Snapshot
	errMsg       string
	seq          uint64
	reloads      int
	clientIP     string
	restartTimer clockwork.Timer
	closed       bool
}

// NewWorkflow creates a workflow in the uninitialized state.
func NewWorkflow(provider ConditionsProvider, locator Locator, opts ...Option) *Workflow {
	w := &Workflow{
		provider:       provider,
		locator:        locator,
		clock:          clockwork.NewRealClock(),
		policy:         DefaultRecoveryPolicy(),
		logger:         slog.Default(),
		restartTimeout: 30 * time.Second,
		state:          StateUninitialized,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start resolves the client's coordinates from its network address and fetches
// the weather there. When resolution fails the fallback location is used; with
// no fallback the workflow fails with ErrNoLocation.
func (w *Workflow) Start(ctx context.Context, clientIP string) error {
	w.mu.Lock()
	w.stopRestartLocked()
	w.clientIP = clientIP
	w.seq++
	seq := w.seq
	w.state = StateResolvingLocation
	w.mu.Unlock()

	coords, err := w.locator.Locate(ctx, clientIP)
	if err != nil {
		if w.fallback == nil {
			err = fmt.Errorf("%w: %w", ErrNoLocation, err)
			w.logger.Error("location resolution failed", "provider", w.locator.Name(), "error", err)

			w.mu.Lock()
			defer w.mu.Unlock()
			if seq != w.seq {
				return ErrSuperseded
			}
			w.failLocked(err)
			return err
		}
		w.logger.Warn("location resolution failed, using fallback",
			"provider", w.locator.Name(),
			"fallback", w.fallback.String(),
			"error", err,
		)
		coords = *w.fallback
	}

	if w.superseded(seq) {
		return ErrSuperseded
	}
	return w.fetch(ctx, triggerStart, ForCoordinates(coords))
}

// SetCoordinates makes c the active location and fetches its weather, unless
// c is already active with a current snapshot.
func (w *Workflow) SetCoordinates(ctx context.Context, c Coordinates) error {
	if !c.Valid() {
		return fmt.Errorf("invalid coordinates %s", c)
	}

	w.mu.Lock()
	unchanged := w.coords != nil && *w.coords == c && w.snapshot != nil
	w.mu.Unlock()
	if unchanged {
		return nil
	}

	return w.fetch(ctx, triggerCoordinates, ForCoordinates(c))
}

// Search fetches the weather for a place name. Blank queries are ignored.
func (w *Workflow) Search(ctx context.Context, query string) error {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil
	}
	return w.fetch(ctx, triggerSearch, ForPlace(q))
}

// Refresh re-fetches the weather for the active coordinates.
func (w *Workflow) Refresh(ctx context.Context) error {
	w.mu.Lock()
	coords := w.coords
	w.mu.Unlock()
	if coords == nil {
		return ErrNoLocation
	}
	return w.fetch(ctx, triggerRefresh, ForCoordinates(*coords))
}

// Status returns a copy of the current state.
func (w *Workflow) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()

	st := Status{
		State:   w.state,
		Error:   w.errMsg,
		Reloads: w.reloads,
	}
	if w.coords != nil {
		c := *w.coords
		st.Coordinates = &c
	}
	if w.snapshot != nil {
		s := *w.snapshot
		st.Snapshot = &s
	}
	return st
}

// Close cancels any pending restart. The workflow must not be used afterwards.
func (w *Workflow) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	w.stopRestartLocked()
}

func (w *Workflow) fetch(ctx context.Context, trigger string, target Target) error {
	w.mu.Lock()
	w.stopRestartLocked()
	w.seq++
	seq := w.seq
	w.state = StateFetchingWeather
	if target.Coordinates != nil {
		c := *target.Coordinates
		w.coords = &c
	}
	w.mu.Unlock()

	if trigger != triggerRefresh {
		defer w.settle()
	}

	snap, err := w.retrieveWithRetry(ctx, seq, target)

	w.mu.Lock()
	defer w.mu.Unlock()

	if seq != w.seq {
		w.countFetch(trigger, "superseded")
		w.logger.Debug("dropping superseded weather response", "target", target.String(), "request", seq, "latest", w.seq)
		return ErrSuperseded
	}

	if err != nil {
		w.countFetch(trigger, "error")
		w.logger.Error("weather fetch failed", "trigger", trigger, "target", target.String(), "error", err)
		w.failLocked(err)
		return err
	}

	w.countFetch(trigger, "success")
	w.snapshot = &snap
	c := snap.Coordinates
	w.coords = &c
	w.state = StateReady
	w.errMsg = ""
	w.reloads = 0
	w.logger.Info("weather snapshot updated",
		"trigger", trigger,
		"location", snap.LocationName,
		"country", snap.CountryCode,
	)
	return nil
}

func (w *Workflow) retrieveWithRetry(ctx context.Context, seq uint64, target Target) (Snapshot, error) {
	attempts := w.policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := w.policy.backoff(attempt - 1)
			select {
			case <-ctx.Done():
				return Snapshot{}, ctx.Err()
			case <-w.clock.After(delay):
			}
			if w.superseded(seq) {
				return Snapshot{}, ErrSuperseded
			}
			if w.metrics != nil {
				w.metrics.WorkflowRetries.Inc()
			}
		}

		snap, err := Retrieve(ctx, w.provider, target, w.clock.Now())
		if err == nil {
			return snap, nil
		}
		lastErr = err

		if !IsTemporary(err) || ctx.Err() != nil {
			break
		}
		w.logger.Warn("weather fetch attempt failed", "attempt", attempt+1, "of", attempts, "error", err)
	}
	return Snapshot{}, lastErr
}

// failLocked records err as the error state, drops the snapshot and schedules
// a restart if the policy still allows one.
func (w *Workflow) failLocked(err error) {
	w.state = StateFailed
	w.snapshot = nil
	w.errMsg = err.Error()
	w.scheduleRestartLocked()
}

func (w *Workflow) scheduleRestartLocked() {
	if w.closed || w.policy.ReloadDelay <= 0 || w.reloads >= w.policy.MaxReloads {
		return
	}
	gen := w.seq
	w.restartTimer = w.clock.AfterFunc(w.policy.ReloadDelay, func() { w.restart(gen) })
}

func (w *Workflow) stopRestartLocked() {
	if w.restartTimer != nil {
		w.restartTimer.Stop()
		w.restartTimer = nil
	}
}

// restart runs the workflow again from the uninitialized state.
func (w *Workflow) restart(gen uint64) {
	w.mu.Lock()
	if w.closed || w.seq != gen || w.state != StateFailed {
		w.mu.Unlock()
		return
	}
	w.restartTimer = nil
	w.reloads++
	w.state = StateUninitialized
	w.coords = nil
	w.errMsg = ""
	ip := w.clientIP
	reloads := w.reloads
	w.mu.Unlock()

	if w.metrics != nil {
		w.metrics.WorkflowRestarts.Inc()
	}
	w.logger.Info("restarting workflow", "reload", reloads)

	ctx, cancel := context.WithTimeout(context.Background(), w.restartTimeout)
	defer cancel()
	_ = w.Start(ctx, ip) // outcome is recorded in the workflow state
}

func (w *Workflow) superseded(seq uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return seq != w.seq
}

func (w *Workflow) settle() {
	if w.onSettle != nil {
		w.onSettle()
	}
}

func (w *Workflow) countFetch(trigger, outcome string) {
	if w.metrics != nil {
		w.metrics.WorkflowFetches.WithLabelValues(trigger, outcome).Inc()
	}
}
