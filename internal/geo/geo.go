// Package geo provides best-effort device location for the report form.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/m1ll3r1337/incident-report-service/internal/domain/report"
	"github.com/m1ll3r1337/incident-report-service/internal/errs"
)

type Locator interface {
	Locate(ctx context.Context) (report.Point, error)
}

// Result is the outcome of one asynchronous location request.
type Result struct {
	Point report.Point
	Err   error
	// Applied is false when the fix failed or a newer request had already won.
	Applied bool
}

// Static returns a fixed point.
type Static report.Point

func (s Static) Locate(ctx context.Context) (report.Point, error) {
	if err := ctx.Err(); err != nil {
		return report.Point{}, err
	}
	return report.Point(s), nil
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(ctx context.Context) (report.Point, error)

func (f LocatorFunc) Locate(ctx context.Context) (report.Point, error) { return f(ctx) }

const DefaultIPEndpoint = "http://ip-api.com/json/?fields=status,message,lat,lon"

// IPLocator resolves an approximate position from the caller's public IP.
type IPLocator struct {
	endpoint   string
	httpClient *http.Client
}

func NewIPLocator(endpoint string, timeout time.Duration) *IPLocator {
	if endpoint == "" {
		endpoint = DefaultIPEndpoint
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &IPLocator{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type ipLookupResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

func (l *IPLocator) Locate(ctx context.Context) (report.Point, error) {
	const op = "geo.ip_locator.locate"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.endpoint, nil)
	if err != nil {
		return report.Point{}, errs.Wrap(op, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return report.Point{}, errs.E(errs.KindUnavailable, "GEO_UNAVAILABLE", op, "location lookup failed", nil, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return report.Point{}, errs.E(errs.KindUnavailable, "GEO_UNAVAILABLE", op, fmt.Sprintf("location lookup non-200: %d", resp.StatusCode), nil, nil)
	}

	var out ipLookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return report.Point{}, errs.E(errs.KindUnavailable, "GEO_BAD_RESPONSE", op, "location lookup returned invalid json", nil, err)
	}
	if out.Status != "" && out.Status != "success" {
		return report.Point{}, errs.E(errs.KindUnavailable, "GEO_UNAVAILABLE", op, "location lookup failed: "+out.Message, nil, nil)
	}

	p := report.Point{Lat: out.Lat, Lon: out.Lon}
	if fields := p.Validate(); len(fields) > 0 {
		return report.Point{}, errs.E(errs.KindUnavailable, "GEO_BAD_RESPONSE", op, "location lookup returned invalid coordinates", fields, nil)
	}
	return p, nil
}
