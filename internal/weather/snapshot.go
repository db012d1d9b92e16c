package weather

import (
	"context"
	"fmt"
	"time"
)

// AssembleSnapshot combines a current-conditions reading with an optional air
// quality index into a new Snapshot.
func AssembleSnapshot(c Conditions, aqi *int, fetchedAt time.Time) Snapshot {
	return Snapshot{
		LocationName:         c.LocationName,
		CountryCode:          c.CountryCode,
		Coordinates:          c.Coordinates,
		TemperatureC:         c.TemperatureC,
		PressureHpa:          c.PressureHpa,
		HumidityPct:          c.HumidityPct,
		WindSpeedMS:          c.WindSpeedMS,
		ConditionCode:        c.ConditionCode,
		ConditionDescription: c.ConditionDescription,
		AirQualityIndex:      aqi,
		FetchedAt:            fetchedAt.UTC(),
	}
}

// Retrieve fetches current conditions for the target, then the air quality at
// the coordinates the provider reported for it. The calls are sequential: a
// place-name lookup may resolve to canonical coordinates that differ from the
// caller's input.
func Retrieve(ctx context.Context, p ConditionsProvider, target Target, now time.Time) (Snapshot, error) {
	var (
		cond Conditions
		err  error
	)
	if target.Coordinates != nil {
		cond, err = p.CurrentByCoordinates(ctx, *target.Coordinates)
	} else {
		cond, err = p.CurrentByPlace(ctx, target.Place)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("current conditions for %s: %w", target, err)
	}

	var aqi *int
	v, ok, err := p.AirQuality(ctx, cond.Coordinates)
	if err != nil {
		return Snapshot{}, fmt.Errorf("air quality for %s: %w", cond.Coordinates, err)
	}
	if ok {
		aqi = &v
	}

	return AssembleSnapshot(cond, aqi, now), nil
}
