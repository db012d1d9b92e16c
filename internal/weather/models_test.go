package weather

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCoordinates(t *testing.T) {
	c, err := ParseCoordinates("52.52,13.405")
	require.NoError(t, err)
	assert.Equal(t, Coordinates{Lat: 52.52, Lon: 13.405}, c)

	c, err = ParseCoordinates(" -33.87 , 151.21 ")
	require.NoError(t, err)
	assert.Equal(t, Coordinates{Lat: -33.87, Lon: 151.21}, c)

	for _, in := range []string{"", "52.52", "1,2,3", "north,13", "52,east", "91,0", "0,181"} {
		_, err := ParseCoordinates(in)
		assert.ErrorIs(t, err, ErrMalformedResponse, "input %q", in)
	}
}

func TestCoordinatesString(t *testing.T) {
	assert.Equal(t, "52.52,13.405", Coordinates{Lat: 52.52, Lon: 13.405}.String())
	assert.Equal(t, "Berlin", ForPlace("Berlin").String())
	assert.Equal(t, "1,2", ForCoordinates(Coordinates{Lat: 1, Lon: 2}).String())
}

func TestProviderErrorTemporary(t *testing.T) {
	tests := []struct {
		name string
		err  *ProviderError
		want bool
	}{
		{"transport", &ProviderError{Err: errors.New("connection refused")}, true},
		{"rate limited", &ProviderError{Status: http.StatusTooManyRequests}, true},
		{"server error", &ProviderError{Status: http.StatusBadGateway}, true},
		{"unauthorized", &ProviderError{Status: http.StatusUnauthorized}, false},
		{"not found", &ProviderError{Status: http.StatusNotFound}, false},
		{"malformed", &ProviderError{Err: fmt.Errorf("%w: missing loc", ErrMalformedResponse)}, false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Temporary())
			assert.ErrorIs(t, tt.err, ErrProvider)
		})
	}

	wrapped := fmt.Errorf("current conditions: %w", &ProviderError{Status: 503})
	assert.True(t, IsTemporary(wrapped))
	assert.False(t, IsTemporary(errors.New("plain")))
}

func TestProviderErrorMessage(t *testing.T) {
	err := &ProviderError{Provider: "openweathermap", Op: "current", Status: 401, Message: "Invalid API key"}
	assert.Equal(t, "openweathermap current: status 401: Invalid API key", err.Error())

	err = &ProviderError{Provider: "ipinfo", Op: "locate", Err: errors.New("timeout")}
	assert.Equal(t, "ipinfo locate: timeout", err.Error())
}
