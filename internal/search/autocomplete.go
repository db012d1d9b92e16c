package search

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

// State is a copy of the autocomplete's visible state.
type State struct {
	Text        string                    `json:"text"`
	Suggestions []weather.PlaceSuggestion `json:"suggestions"`
	Error       string                    `json:"error,omitempty"`
	Pending     bool                      `json:"pending"`
}

// Autocomplete holds the search box text and its place suggestions. Lookups
// go through a Debouncer so a burst of keystrokes costs one provider call.
type Autocomplete struct {
	searcher  weather.PlaceSearcher
	debouncer *Debouncer
	timeout   time.Duration
	logger    *slog.Logger

	mu          sync.Mutex
	text        string
	suggestions []weather.PlaceSuggestion
	errMsg      string
	seq         uint64
}

// NewAutocomplete creates an autocomplete. timeout bounds each provider lookup.
func NewAutocomplete(searcher weather.PlaceSearcher, debouncer *Debouncer, timeout time.Duration, logger *slog.Logger) *Autocomplete {
	if logger == nil {
		logger = slog.Default()
	}
	return &Autocomplete{
		searcher:    searcher,
		debouncer:   debouncer,
		timeout:     timeout,
		logger:      logger,
		suggestions: []weather.PlaceSuggestion{},
	}
}

// Input records the search box text. Non-blank text schedules a debounced
// lookup; blank text cancels any pending one.
func (a *Autocomplete) Input(text string) {
	a.mu.Lock()
	a.text = text
	a.seq++
	seq := a.seq
	a.mu.Unlock()

	query := strings.TrimSpace(text)
	if query == "" {
		a.debouncer.Cancel()
		return
	}
	a.debouncer.Trigger(func() { a.lookup(seq, query) })
}

// Flush runs a pending lookup now. It reports whether one was pending.
func (a *Autocomplete) Flush() bool {
	return a.debouncer.Flush()
}

// Cancel drops a pending lookup.
func (a *Autocomplete) Cancel() bool {
	return a.debouncer.Cancel()
}

// Lookup finds the current suggestion whose display name equals name.
func (a *Autocomplete) Lookup(name string) (weather.PlaceSuggestion, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, s := range a.suggestions {
		if s.DisplayName == name {
			return s, true
		}
	}
	return weather.PlaceSuggestion{}, false
}

// ClearText empties the search box without touching the suggestions.
func (a *Autocomplete) ClearText() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.text = ""
}

// State returns a copy of the current state.
func (a *Autocomplete) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]weather.PlaceSuggestion, len(a.suggestions))
	copy(out, a.suggestions)
	return State{
		Text:        a.text,
		Suggestions: out,
		Error:       a.errMsg,
		Pending:     a.debouncer.Pending(),
	}
}

func (a *Autocomplete) lookup(seq uint64, query string) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	places, err := a.searcher.SearchPlaces(ctx, query)

	a.mu.Lock()
	defer a.mu.Unlock()

	if seq != a.seq {
		return
	}
	if err != nil {
		a.logger.Warn("place search failed", "query", query, "error", err)
		a.errMsg = err.Error()
		return
	}
	if places == nil {
		places = []weather.PlaceSuggestion{}
	}
	a.suggestions = places
	a.errMsg = ""
}
