package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/i474232898/weather-dashboard/internal/observability"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

var (
	berlin = weather.Coordinates{Lat: 52.52, Lon: 13.41}
	errIP  = errors.New("ip lookup down")
)

var berlinPlaces = []weather.PlaceSuggestion{
	{DisplayName: "Berlin, Germany", Center: weather.Coordinates{Lat: 52.517, Lon: 13.3889}},
	{DisplayName: "Berlin, New Hampshire, United States", Center: weather.Coordinates{Lat: 44.4687, Lon: -71.1851}},
}

type fakeProvider struct {
	mu    sync.Mutex
	calls int
	names map[weather.Coordinates]string
	fail  error

	// deadline of the most recent conditions call
	deadline time.Time
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) CurrentByCoordinates(ctx context.Context, c weather.Coordinates) (weather.Conditions, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.deadline, _ = ctx.Deadline()
	if p.fail != nil {
		return weather.Conditions{}, p.fail
	}
	name := p.names[c]
	if name == "" {
		name = "Mitte"
	}
	return conditions(name, c), nil
}

func (p *fakeProvider) CurrentByPlace(_ context.Context, place string) (weather.Conditions, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.fail != nil {
		return weather.Conditions{}, p.fail
	}
	return conditions(place, weather.Coordinates{Lat: 48.85, Lon: 2.35}), nil
}

func (p *fakeProvider) AirQuality(context.Context, weather.Coordinates) (int, bool, error) {
	return 2, true, nil
}

func (p *fakeProvider) lastDeadline() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.deadline
}

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type fakeLocator struct {
	coords weather.Coordinates
	err    error
}

func (l *fakeLocator) Name() string { return "fake-ip" }

func (l *fakeLocator) Locate(context.Context, string) (weather.Coordinates, error) {
	return l.coords, l.err
}

type fakePlaces struct {
	places []weather.PlaceSuggestion
}

func (f *fakePlaces) SearchPlaces(_ context.Context, query string) ([]weather.PlaceSuggestion, error) {
	return f.places, nil
}

// mapStore is a minimal Store used to test the service in isolation.
type mapStore struct {
	mu     sync.Mutex
	data   map[string]*Session
	maxAge time.Duration
}

func newMapStore(maxAge time.Duration) *mapStore {
	return &mapStore{data: map[string]*Session{}, maxAge: maxAge}
}

func (s *mapStore) Save(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sess.ID] = sess
}

func (s *mapStore) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.data[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

func (s *mapStore) Delete(id string) error {
	s.mu.Lock()
	sess, ok := s.data[id]
	delete(s.data, id)
	s.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	sess.Close()
	return nil
}

func (s *mapStore) All() []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Session, 0, len(s.data))
	for _, sess := range s.data {
		out = append(out, sess)
	}
	return out
}

func (s *mapStore) Prune(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, sess := range s.data {
		if now.Sub(sess.LastSeen()) > s.maxAge {
			delete(s.data, id)
			sess.Close()
			n++
		}
	}
	return n
}

func conditions(name string, c weather.Coordinates) weather.Conditions {
	return weather.Conditions{
		LocationName:         name,
		CountryCode:          "DE",
		Coordinates:          c,
		TemperatureC:         20,
		PressureHpa:          1013,
		HumidityPct:          50,
		WindSpeedMS:          10,
		ConditionCode:        500,
		ConditionDescription: "light rain",
	}
}

type testEnv struct {
	store    *mapStore
	provider *fakeProvider
	locator  *fakeLocator
	places   *fakePlaces
	clock    *clockwork.FakeClock
	service  *Service
}

func newTestEnv(settings Settings) *testEnv {
	env := &testEnv{
		store:    newMapStore(time.Hour),
		provider: &fakeProvider{},
		locator:  &fakeLocator{coords: berlin},
		places:   &fakePlaces{places: berlinPlaces},
		clock:    clockwork.NewFakeClock(),
	}
	if settings.SearchDebounce == 0 {
		settings.SearchDebounce = time.Second
	}
	if settings.Recovery == (weather.RecoveryPolicy{}) {
		settings.Recovery = weather.DefaultRecoveryPolicy()
		settings.Recovery.MaxAttempts = 1
	}
	env.service = NewService(env.store, env.provider, env.locator, env.places, settings,
		env.clock, observability.NopLogger(), observability.NewMetricsForTesting())
	return env
}
