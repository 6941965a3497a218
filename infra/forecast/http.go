package forecast

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	coreforecast "github.com/kdarko/wastedispatch/core/forecast"
	"github.com/kdarko/wastedispatch/infra/logger"
)

// Config defines the forecast service endpoint.
type Config struct {
	URL            string `json:"url"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = 2
	}
}

// HTTPEngine queries an external demand forecast service over HTTP. One
// transient failure is retried; the result is advisory so callers degrade
// gracefully on error.
type HTTPEngine struct {
	base   string
	client *http.Client
	log    logger.Logger
}

// NewHTTPEngine creates an HTTPEngine.
func NewHTTPEngine(cfg Config) *HTTPEngine {
	cfg.SetDefaults()
	return &HTTPEngine{
		base:   cfg.URL,
		client: &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		log:    logger.New("forecast"),
	}
}

// ZoneLoad fetches the demand hint for a zone.
func (e *HTTPEngine) ZoneLoad(ctx context.Context, zone string) (coreforecast.Hint, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		hint, err := e.fetch(ctx, zone)
		if err == nil {
			return hint, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return coreforecast.Hint{}, lastErr
}

func (e *HTTPEngine) fetch(ctx context.Context, zone string) (coreforecast.Hint, error) {
	u := fmt.Sprintf("%s/zones/%s/load", e.base, url.PathEscape(zone))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return coreforecast.Hint{}, err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return coreforecast.Hint{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return coreforecast.Hint{}, fmt.Errorf("forecast: unexpected status %d", resp.StatusCode)
	}
	var body struct {
		Zone            string  `json:"zone"`
		ExpectedReports float64 `json:"expected_reports"`
		HorizonMinutes  int     `json:"horizon_minutes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return coreforecast.Hint{}, err
	}
	return coreforecast.Hint{
		Zone:            body.Zone,
		ExpectedReports: body.ExpectedReports,
		Horizon:         time.Duration(body.HorizonMinutes) * time.Minute,
	}, nil
}
