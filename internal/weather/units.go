package weather

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Units selects how a snapshot is displayed. It never changes stored data.
type Units int

const (
	Metric Units = iota
	Imperial
)

// ParseUnits accepts "metric" or "imperial"; an empty string means metric.
func ParseUnits(s string) (Units, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "metric":
		return Metric, nil
	case "imperial":
		return Imperial, nil
	}
	return Metric, fmt.Errorf("unknown units %q", s)
}

// Toggle returns the other unit system.
func (u Units) Toggle() Units {
	if u == Metric {
		return Imperial
	}
	return Metric
}

func (u Units) String() string {
	if u == Imperial {
		return "imperial"
	}
	return "metric"
}

func (u Units) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.String())
}

// Reading is a display-ready value with its unit label.
type Reading struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// Display is a snapshot rendered in a unit system.
type Display struct {
	Temperature Reading `json:"temperature"`
	Pressure    Reading `json:"pressure"`
	Humidity    Reading `json:"humidity"`
	Wind        Reading `json:"wind"`
	AirQuality  *int    `json:"airQualityIndex,omitempty"`
}

const (
	hpaToInHg = 0.02953
	msToMph   = 2.237
)

// Present converts a snapshot to display values.
func Present(s Snapshot, u Units) Display {
	d := Display{
		Humidity:   Reading{Value: s.HumidityPct, Unit: "%"},
		AirQuality: s.AirQualityIndex,
	}

	if u == Imperial {
		d.Temperature = Reading{Value: math.Round(s.TemperatureC*9/5 + 32), Unit: "℉"}
		d.Pressure = Reading{Value: math.Round(s.PressureHpa*hpaToInHg*100) / 100, Unit: "inHg"}
		d.Wind = Reading{Value: math.Round(s.WindSpeedMS * msToMph), Unit: "mph"}
		return d
	}

	d.Temperature = Reading{Value: math.Round(s.TemperatureC), Unit: "℃"}
	d.Pressure = Reading{Value: s.PressureHpa, Unit: "hPa"}
	d.Wind = Reading{Value: math.Round(s.WindSpeedMS), Unit: "m/s"}
	return d
}
