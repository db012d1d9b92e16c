package httpapi

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"

	"github.com/i474232898/weather-dashboard/internal/dashboard"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

var validate = validator.New()

// colorSchemeHint is the client hint used to pick a new session's theme.
const colorSchemeHint = "Sec-CH-Prefers-Color-Scheme"

// Deps are the collaborators the HTTP handlers need.
type Deps struct {
	Sessions *dashboard.Service
	Weather  weather.ConditionsProvider
	Locator  weather.Locator
	Places   weather.PlaceSearcher
	Clock    clockwork.Clock

	// Timeout bounds the provider work a single request may trigger.
	Timeout time.Duration
}

// ErrorHandler renders every handler error as {"error": true, "message": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Timeout <= 0 {
		deps.Timeout = 30 * time.Second
	}
	h := &handlers{deps: deps}

	v1 := app.Group("/api/v1")

	v1.Get("/icons/:code", h.icon)
	v1.Get("/places", h.places)
	v1.Get("/locate", h.locate)
	v1.Get("/weather", h.weather)

	v1.Post("/sessions", h.createSession)
	sessions := v1.Group("/sessions/:id", h.loadSession)
	sessions.Get("", h.viewSession)
	sessions.Delete("", h.deleteSession)
	sessions.Post("/input", h.input)
	sessions.Post("/search", h.search)
	sessions.Post("/select", h.selectPlace)
	sessions.Post("/refresh", h.refresh)
	sessions.Post("/units/toggle", h.toggleUnits)
	sessions.Put("/theme", h.setTheme)
	sessions.Post("/theme/toggle", h.toggleTheme)
}

type handlers struct {
	deps Deps
}

const sessionKey = "session"

func (h *handlers) icon(c *fiber.Ctx) error {
	code, err := c.ParamsInt("code")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "code must be an integer")
	}
	return c.JSON(fiber.Map{
		"code":  code,
		"icon":  weather.ResolveIcon(code),
		"class": weather.IconClass(code),
	})
}

type placesQuery struct {
	Q string `validate:"max=200"`
}

func (h *handlers) places(c *fiber.Ctx) error {
	q := placesQuery{Q: c.Query("q")}
	if err := validate.Struct(q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	places, err := h.deps.Places.SearchPlaces(ctx, q.Q)
	if err != nil {
		return upstreamError(err)
	}
	if places == nil {
		places = []weather.PlaceSuggestion{}
	}
	return c.JSON(fiber.Map{"query": q.Q, "suggestions": places})
}

func (h *handlers) locate(c *fiber.Ctx) error {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	coords, err := h.deps.Locator.Locate(ctx, c.IP())
	if err != nil {
		return upstreamError(err)
	}
	return c.JSON(fiber.Map{"coordinates": coords})
}

// weatherQuery holds query parameters for the one-shot weather endpoint.
type weatherQuery struct {
	Lat   *float64 `validate:"required_without=City,omitempty,gte=-90,lte=90"`
	Lon   *float64 `validate:"required_with=Lat,omitempty,gte=-180,lte=180"`
	City  string   `validate:"required_without=Lat,omitempty,max=200"`
	Units string   `validate:"omitempty,oneof=metric imperial"`
}

func (q *weatherQuery) bind(c *fiber.Ctx) error {
	var err error
	if q.Lat, err = queryFloat(c, "lat"); err != nil {
		return err
	}
	if q.Lon, err = queryFloat(c, "lon"); err != nil {
		return err
	}
	q.City = strings.TrimSpace(c.Query("city"))
	q.Units = c.Query("units")
	return validate.Struct(q)
}

func (q *weatherQuery) target() weather.Target {
	if q.Lat != nil && q.Lon != nil {
		return weather.ForCoordinates(weather.Coordinates{Lat: *q.Lat, Lon: *q.Lon})
	}
	return weather.ForPlace(q.City)
}

func (h *handlers) weather(c *fiber.Ctx) error {
	var q weatherQuery
	if err := q.bind(c); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	units := weather.Metric
	if q.Units != "" {
		units, _ = weather.ParseUnits(q.Units)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	snap, err := weather.Retrieve(ctx, h.deps.Weather, q.target(), h.deps.Clock.Now())
	if err != nil {
		return upstreamError(err)
	}
	return c.JSON(fiber.Map{
		"snapshot":  snap,
		"icon":      weather.ResolveIcon(snap.ConditionCode),
		"iconClass": weather.IconClass(snap.ConditionCode),
		"units":     units,
		"weather":   weather.Present(snap, units),
	})
}

type createSessionBody struct {
	Theme string `json:"theme" validate:"omitempty,oneof=light dark"`
}

func (h *handlers) createSession(c *fiber.Ctx) error {
	var body createSessionBody
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
	}
	if err := validate.Struct(body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	theme := dashboard.ThemeFromHint(c.Get(colorSchemeHint))
	if body.Theme != "" {
		theme, _ = dashboard.ParseTheme(body.Theme)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	// A failed first run is reported through the view, not as an HTTP error.
	sess, _ := h.deps.Sessions.Create(ctx, c.IP(), theme)
	return c.Status(fiber.StatusCreated).JSON(sess.View())
}

func (h *handlers) loadSession(c *fiber.Ctx) error {
	sess, err := h.deps.Sessions.Get(c.Params("id"))
	if err != nil {
		if errors.Is(err, dashboard.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "session not found")
		}
		return err
	}
	c.Locals(sessionKey, sess)
	return c.Next()
}

func session(c *fiber.Ctx) *dashboard.Session {
	return c.Locals(sessionKey).(*dashboard.Session)
}

func (h *handlers) viewSession(c *fiber.Ctx) error {
	return c.JSON(session(c).View())
}

func (h *handlers) deleteSession(c *fiber.Ctx) error {
	if err := h.deps.Sessions.Delete(c.Params("id")); err != nil {
		if errors.Is(err, dashboard.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "session not found")
		}
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type inputBody struct {
	Text string `json:"text" validate:"max=200"`
}

// input records search box text. ?flush=true runs the suggestion lookup
// without waiting for the debounce delay.
func (h *handlers) input(c *fiber.Ctx) error {
	var body inputBody
	if err := bindBody(c, &body); err != nil {
		return err
	}
	sess := session(c)

	ctx, cancel := h.requestContext(c)
	defer cancel()

	if c.QueryBool("flush") {
		return h.respond(c, sess, sess.InputNow(ctx, body.Text))
	}
	return h.respond(c, sess, sess.Input(ctx, body.Text))
}

type searchBody struct {
	Query string `json:"query" validate:"max=200"`
}

func (h *handlers) search(c *fiber.Ctx) error {
	var body searchBody
	if err := bindBody(c, &body); err != nil {
		return err
	}
	sess := session(c)

	ctx, cancel := h.requestContext(c)
	defer cancel()

	return h.respond(c, sess, sess.Search(ctx, body.Query))
}

type selectBody struct {
	Name string   `json:"name" validate:"required_without=Lat,omitempty,max=200"`
	Lat  *float64 `json:"lat" validate:"required_without=Name,omitempty,gte=-90,lte=90"`
	Lon  *float64 `json:"lon" validate:"required_with=Lat,omitempty,gte=-180,lte=180"`
}

func (h *handlers) selectPlace(c *fiber.Ctx) error {
	var body selectBody
	if err := bindBody(c, &body); err != nil {
		return err
	}
	sess := session(c)

	ctx, cancel := h.requestContext(c)
	defer cancel()

	var err error
	if body.Lat != nil && body.Lon != nil {
		err = sess.SelectCoordinates(ctx, weather.Coordinates{Lat: *body.Lat, Lon: *body.Lon})
	} else {
		err = sess.Select(ctx, body.Name)
	}
	return h.respond(c, sess, err)
}

func (h *handlers) refresh(c *fiber.Ctx) error {
	sess := session(c)

	ctx, cancel := h.requestContext(c)
	defer cancel()

	err := sess.Refresh(ctx)
	if errors.Is(err, weather.ErrNoLocation) {
		return fiber.NewError(fiber.StatusConflict, err.Error())
	}
	return h.respond(c, sess, err)
}

func (h *handlers) toggleUnits(c *fiber.Ctx) error {
	sess := session(c)
	sess.ToggleUnits()
	return c.JSON(sess.View())
}

type themeBody struct {
	Theme string `json:"theme" validate:"required,oneof=light dark"`
}

func (h *handlers) setTheme(c *fiber.Ctx) error {
	var body themeBody
	if err := bindBody(c, &body); err != nil {
		return err
	}
	theme, _ := dashboard.ParseTheme(body.Theme)
	sess := session(c)
	sess.SetTheme(theme)
	return c.JSON(sess.View())
}

func (h *handlers) toggleTheme(c *fiber.Ctx) error {
	sess := session(c)
	sess.ToggleTheme()
	return c.JSON(sess.View())
}

// respond renders the session view after an action. Weather failures are part
// of the view; only caller mistakes become HTTP errors.
func (h *handlers) respond(c *fiber.Ctx, sess *dashboard.Session, err error) error {
	if errors.Is(err, dashboard.ErrUnknownPlace) {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return c.JSON(sess.View())
}

func (h *handlers) requestContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), h.deps.Timeout)
}

func bindBody(c *fiber.Ctx, v any) error {
	if err := c.BodyParser(v); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(v); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

// upstreamError maps a provider failure on a stateless endpoint.
func upstreamError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.NewError(fiber.StatusGatewayTimeout, err.Error())
	case errors.Is(err, weather.ErrProvider):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	default:
		return err
	}
}

func queryFloat(c *fiber.Ctx, key string) (*float64, error) {
	s := c.Query(key)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, errors.New(key + " must be a number")
	}
	return &v, nil
}
