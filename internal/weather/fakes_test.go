package weather

import (
	"context"
	"sync"
)

// fakeProvider is a scriptable ConditionsProvider.
type fakeProvider struct {
	mu sync.Mutex

	byCoords func(ctx context.Context, c Coordinates) (Conditions, error)
	byPlace  func(ctx context.Context, place string) (Conditions, error)
	aqi      func(ctx context.Context, c Coordinates) (int, bool, error)

	coordCalls []Coordinates
	placeCalls []string
	aqiCalls   []Coordinates
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) CurrentByCoordinates(ctx context.Context, c Coordinates) (Conditions, error) {
	f.mu.Lock()
	f.coordCalls = append(f.coordCalls, c)
	fn := f.byCoords
	f.mu.Unlock()

	if fn == nil {
		return conditionsAt("Somewhere", c), nil
	}
	return fn(ctx, c)
}

func (f *fakeProvider) CurrentByPlace(ctx context.Context, place string) (Conditions, error) {
	f.mu.Lock()
	f.placeCalls = append(f.placeCalls, place)
	fn := f.byPlace
	f.mu.Unlock()

	if fn == nil {
		return conditionsAt(place, Coordinates{Lat: 1, Lon: 1}), nil
	}
	return fn(ctx, place)
}

func (f *fakeProvider) AirQuality(ctx context.Context, c Coordinates) (int, bool, error) {
	f.mu.Lock()
	f.aqiCalls = append(f.aqiCalls, c)
	fn := f.aqi
	f.mu.Unlock()

	if fn == nil {
		return 0, false, nil
	}
	return fn(ctx, c)
}

func (f *fakeProvider) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.coordCalls) + len(f.placeCalls)
}

// fakeLocator returns results in order, repeating the last one.
type fakeLocator struct {
	mu      sync.Mutex
	results []locateResult
	n       int
}

type locateResult struct {
	coords Coordinates
	err    error
}

func (l *fakeLocator) Name() string { return "fake-ip" }

func (l *fakeLocator) Locate(_ context.Context, _ string) (Coordinates, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.n
	if i >= len(l.results) {
		i = len(l.results) - 1
	}
	l.n++
	r := l.results[i]
	return r.coords, r.err
}

func (l *fakeLocator) calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.n
}

func conditionsAt(name string, c Coordinates) Conditions {
	return Conditions{
		LocationName:         name,
		CountryCode:          "DE",
		Coordinates:          c,
		TemperatureC:         18.4,
		PressureHpa:          1012,
		HumidityPct:          60,
		WindSpeedMS:          4.2,
		ConditionCode:        801,
		ConditionDescription: "few clouds",
	}
}
