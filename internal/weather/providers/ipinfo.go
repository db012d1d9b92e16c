package providers

import (
	"context"
	"encoding/json"
	"net"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/i474232898/weather-dashboard/internal/observability"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

const ipinfoName = "ipinfo"

// IPInfoLocator implements weather.Locator with an ipinfo.io compatible API.
// The response's "loc" field holds "lat,long".
type IPInfoLocator struct {
	name    string
	token   string
	client  *resty.Client
	metrics *observability.Metrics
}

// NewIPInfoLocator creates a locator for the API at baseURL (e.g. https://ipinfo.io).
func NewIPInfoLocator(baseURL, token string, timeout time.Duration, metrics *observability.Metrics) *IPInfoLocator {
	return &IPInfoLocator{
		name:  ipinfoName,
		token: token,
		client: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
		metrics: metrics,
	}
}

func (l *IPInfoLocator) Name() string {
	return l.name
}

// Locate resolves clientIP. Loopback, private and unparsable addresses resolve
// the address the request arrives from instead.
func (l *IPInfoLocator) Locate(ctx context.Context, clientIP string) (_ weather.Coordinates, err error) {
	const op = "locate"

	start := time.Now()
	defer func() { observe(l.metrics, l.name, op, start, err) }()

	path := "/json"
	if ip := net.ParseIP(strings.TrimSpace(clientIP)); ip != nil && isPublic(ip) {
		path = "/" + ip.String() + "/json"
	}

	req := l.client.R().SetContext(ctx)
	if l.token != "" {
		req.SetQueryParam("token", l.token)
	}

	resp, err := req.Get(path)
	if err != nil {
		return weather.Coordinates{}, &weather.ProviderError{Provider: l.name, Op: op, Err: err}
	}
	if resp.IsError() {
		msg := ipinfoErrorMessage(resp.Body())
		if msg == "" {
			msg = resp.Status()
		}
		return weather.Coordinates{}, &weather.ProviderError{
			Provider: l.name,
			Op:       op,
			Status:   resp.StatusCode(),
			Message:  msg,
		}
	}

	var payload struct {
		Loc string `json:"loc"`
	}
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return weather.Coordinates{}, malformed(l.name, op, err.Error())
	}
	if payload.Loc == "" {
		return weather.Coordinates{}, malformed(l.name, op, "missing loc")
	}

	c, err := weather.ParseCoordinates(payload.Loc)
	if err != nil {
		return weather.Coordinates{}, &weather.ProviderError{Provider: l.name, Op: op, Err: err}
	}
	return c, nil
}

func isPublic(ip net.IP) bool {
	return !ip.IsLoopback() && !ip.IsPrivate() && !ip.IsUnspecified() &&
		!ip.IsLinkLocalUnicast() && !ip.IsMulticast()
}

// ipinfoErrorMessage reads {"error": {"title": ..., "message": ...}} bodies.
func ipinfoErrorMessage(body []byte) string {
	var payload struct {
		Error struct {
			Title   string `json:"title"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return providerMessage(body)
	}
	if payload.Error.Message != "" {
		return payload.Error.Message
	}
	if payload.Error.Title != "" {
		return payload.Error.Title
	}
	return providerMessage(body)
}
