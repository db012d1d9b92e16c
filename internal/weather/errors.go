package weather

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrProvider matches every ProviderError via errors.Is.
	ErrProvider = errors.New("provider error")

	// ErrMalformedResponse is wrapped when a provider payload has an unexpected shape.
	ErrMalformedResponse = errors.New("malformed provider response")

	// ErrNoLocation is returned when the client's position could not be resolved
	// and no fallback location is configured.
	ErrNoLocation = errors.New("location could not be resolved")

	// ErrSuperseded is returned by a fetch whose result was dropped because a
	// newer request was issued while it was in flight.
	ErrSuperseded = errors.New("superseded by a newer request")
)

// ProviderError describes a failed call to an external provider. Transport
// failures, HTTP errors and malformed payloads are all reported this way.
type ProviderError struct {
	Provider string
	Op       string
	Status   int    // HTTP status, 0 when no response was received
	Message  string // provider supplied message, if any
	Err      error
}

func (e *ProviderError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s %s: status %d: %s", e.Provider, e.Op, e.Status, msg)
	}
	return fmt.Sprintf("%s %s: %s", e.Provider, e.Op, msg)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Is makes every ProviderError match ErrProvider.
func (e *ProviderError) Is(target error) bool { return target == ErrProvider }

// Temporary reports whether retrying the same call may succeed.
func (e *ProviderError) Temporary() bool {
	if errors.Is(e.Err, ErrMalformedResponse) {
		return false
	}
	switch {
	case e.Status == 0:
		return true
	case e.Status == http.StatusTooManyRequests:
		return true
	case e.Status >= 500:
		return true
	}
	return false
}

// IsTemporary reports whether err is a retryable provider failure.
func IsTemporary(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Temporary()
	}
	return false
}
