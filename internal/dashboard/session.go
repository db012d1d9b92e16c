package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/i474232898/weather-dashboard/internal/search"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

// Theme is the colour scheme a dashboard is rendered with.
type Theme int

const (
	Light Theme = iota
	Dark
)

// ParseTheme accepts "light" or "dark".
func ParseTheme(s string) (Theme, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "light":
		return Light, nil
	case "dark":
		return Dark, nil
	}
	return Light, fmt.Errorf("unknown theme %q", s)
}

// ThemeFromHint maps a Sec-CH-Prefers-Color-Scheme client hint to a theme.
func ThemeFromHint(hint string) Theme {
	if strings.EqualFold(strings.Trim(hint, `" `), "dark") {
		return Dark
	}
	return Light
}

func (t Theme) Toggle() Theme {
	if t == Dark {
		return Light
	}
	return Dark
}

func (t Theme) String() string {
	if t == Dark {
		return "dark"
	}
	return "light"
}

func (t Theme) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// Session is one dashboard: a weather workflow plus the presentation state
// around it (search box, unit preference, theme).
type Session struct {
	ID        string
	CreatedAt time.Time

	workflow     *weather.Workflow
	autocomplete *search.Autocomplete

	mu        sync.Mutex
	units     weather.Units
	theme     Theme
	placeName string // overrides the provider's location name after a selection
	lastSeen  time.Time
}

// Start runs the initial IP-based resolution.
func (s *Session) Start(ctx context.Context, clientIP string) error {
	return s.workflow.Start(ctx, clientIP)
}

// Input handles a change of the search box text. When the text is exactly one
// of the current suggestions, that place is selected.
func (s *Session) Input(ctx context.Context, text string) error {
	s.autocomplete.Input(text)
	return s.selectIfSuggested(ctx, text)
}

// InputNow is Input without the debounce delay: the suggestion lookup runs
// before it returns.
func (s *Session) InputNow(ctx context.Context, text string) error {
	s.autocomplete.Input(text)
	s.autocomplete.Flush()
	return s.selectIfSuggested(ctx, text)
}

func (s *Session) selectIfSuggested(ctx context.Context, text string) error {
	place, ok := s.autocomplete.Lookup(text)
	if !ok {
		s.setPlaceName("")
		return nil
	}
	return s.selectPlace(ctx, place)
}

// Select picks a suggestion by display name.
func (s *Session) Select(ctx context.Context, displayName string) error {
	place, ok := s.autocomplete.Lookup(displayName)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPlace, displayName)
	}
	return s.selectPlace(ctx, place)
}

// SelectCoordinates makes c the active location.
func (s *Session) SelectCoordinates(ctx context.Context, c weather.Coordinates) error {
	s.setPlaceName("")
	return s.workflow.SetCoordinates(ctx, c)
}

// Search submits a place-name query. Blank queries are ignored.
func (s *Session) Search(ctx context.Context, query string) error {
	if strings.TrimSpace(query) == "" {
		return nil
	}
	s.setPlaceName("")
	return s.workflow.Search(ctx, query)
}

// Refresh re-fetches the weather for the active location.
func (s *Session) Refresh(ctx context.Context) error {
	return s.workflow.Refresh(ctx)
}

func (s *Session) ToggleUnits() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.units = s.units.Toggle()
}

func (s *Session) SetUnits(u weather.Units) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.units = u
}

func (s *Session) ToggleTheme() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.theme = s.theme.Toggle()
}

func (s *Session) SetTheme(t Theme) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.theme = t
}

// State is the workflow state of the session.
func (s *Session) State() weather.State {
	return s.workflow.Status().State
}

// Touch records activity at now.
func (s *Session) Touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = now
}

// LastSeen returns the time of the last recorded activity.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Close releases the session's timers.
func (s *Session) Close() {
	if s.autocomplete != nil {
		s.autocomplete.Cancel()
	}
	if s.workflow != nil {
		s.workflow.Close()
	}
}

// View renders the session for display.
func (s *Session) View() View {
	st := s.workflow.Status()
	ac := s.autocomplete.State()

	s.mu.Lock()
	units, theme, placeName := s.units, s.theme, s.placeName
	s.mu.Unlock()

	v := View{
		ID:              s.ID,
		State:           st.State,
		Error:           st.Error,
		Units:           units,
		Theme:           theme,
		Input:           ac.Text,
		Suggestions:     ac.Suggestions,
		SuggestionError: ac.Error,
	}

	if st.Snapshot == nil {
		v.Loading = st.Error == ""
		return v
	}

	snap := st.Snapshot
	name := snap.LocationName
	if placeName != "" {
		name = placeName
	}
	v.Location = name
	if snap.CountryCode != "" {
		v.Location = name + ", " + snap.CountryCode
	}
	v.Description = snap.ConditionDescription
	v.Icon = weather.ResolveIcon(snap.ConditionCode)
	v.IconClass = weather.IconClass(snap.ConditionCode)
	d := weather.Present(*snap, units)
	v.Display = &d
	v.Coordinates = &snap.Coordinates
	v.UpdatedAt = &snap.FetchedAt
	return v
}

func (s *Session) selectPlace(ctx context.Context, place weather.PlaceSuggestion) error {
	// Geocoder and weather provider name places differently; keep the one the
	// user picked.
	name, _, _ := strings.Cut(place.DisplayName, ",")
	s.setPlaceName(strings.TrimSpace(name))
	return s.workflow.SetCoordinates(ctx, place.Center)
}

func (s *Session) setPlaceName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.placeName = name
}

// View is the JSON view model of a session.
type View struct {
	ID      string        `json:"id"`
	State   weather.State `json:"state"`
	Loading bool          `json:"loading"`
	Error   string        `json:"error,omitempty"`

	Location    string               `json:"location,omitempty"`
	Description string               `json:"description,omitempty"`
	Icon        string               `json:"icon,omitempty"`
	IconClass   string               `json:"iconClass,omitempty"`
	Display     *weather.Display     `json:"weather,omitempty"`
	Coordinates *weather.Coordinates `json:"coordinates,omitempty"`
	UpdatedAt   *time.Time           `json:"updatedAt,omitempty"`

	Units weather.Units `json:"units"`
	Theme Theme         `json:"theme"`

	Input           string                    `json:"input"`
	Suggestions     []weather.PlaceSuggestion `json:"suggestions"`
	SuggestionError string                    `json:"suggestionError,omitempty"`
}
