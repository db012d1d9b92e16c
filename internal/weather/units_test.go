package weather

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresentMetric(t *testing.T) {
	aqi := 2
	s := Snapshot{TemperatureC: 21.6, PressureHpa: 1013, HumidityPct: 40, WindSpeedMS: 3.4, AirQualityIndex: &aqi}

	d := Present(s, Metric)
	assert.Equal(t, Reading{Value: 22, Unit: "℃"}, d.Temperature)
	assert.Equal(t, Reading{Value: 1013, Unit: "hPa"}, d.Pressure)
	assert.Equal(t, Reading{Value: 40, Unit: "%"}, d.Humidity)
	assert.Equal(t, Reading{Value: 3, Unit: "m/s"}, d.Wind)
	require.NotNil(t, d.AirQuality)
	assert.Equal(t, 2, *d.AirQuality)
}

func TestPresentImperial(t *testing.T) {
	s := Snapshot{TemperatureC: 20, PressureHpa: 1013, HumidityPct: 55, WindSpeedMS: 10}

	d := Present(s, Imperial)
	assert.Equal(t, Reading{Value: 68, Unit: "℉"}, d.Temperature)
	assert.Equal(t, Reading{Value: 29.91, Unit: "inHg"}, d.Pressure)
	assert.Equal(t, Reading{Value: 55, Unit: "%"}, d.Humidity)
	assert.Equal(t, Reading{Value: 22, Unit: "mph"}, d.Wind)
	assert.Nil(t, d.AirQuality)
}

func TestPresentRoundsTemperature(t *testing.T) {
	tests := []struct {
		celsius float64
		units   Units
		want    float64
	}{
		{20.4, Metric, 20},
		{20.4, Imperial, 69},
		{20.5, Metric, 21},
		{-5, Imperial, 23},
		{37, Imperial, 99},
	}
	for _, tt := range tests {
		d := Present(Snapshot{TemperatureC: tt.celsius}, tt.units)
		assert.Equal(t, tt.want, d.Temperature.Value, "%v°C in %s", tt.celsius, tt.units)
	}
}

func TestPresentLeavesSnapshotUntouched(t *testing.T) {
	s := Snapshot{TemperatureC: 20, PressureHpa: 1000, WindSpeedMS: 1}
	before := s

	_ = Present(s, Imperial)
	assert.Equal(t, before, s)
}

func TestUnits(t *testing.T) {
	u, err := ParseUnits("Imperial")
	require.NoError(t, err)
	assert.Equal(t, Imperial, u)

	u, err = ParseUnits("")
	require.NoError(t, err)
	assert.Equal(t, Metric, u)

	_, err = ParseUnits("kelvin")
	assert.Error(t, err)

	assert.Equal(t, Imperial, Metric.Toggle())
	assert.Equal(t, Metric, Metric.Toggle().Toggle())

	b, err := json.Marshal(Imperial)
	require.NoError(t, err)
	assert.JSONEq(t, `"imperial"`, string(b))
}
