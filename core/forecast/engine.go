package forecast

import (
	"context"
	"time"
)

// Hint is an advisory demand forecast for a zone. The engine treats it as a
// hint only: unavailability of the forecast service never blocks dispatch.
type Hint struct {
	Zone            string        `json:"zone"`
	ExpectedReports float64       `json:"expected_reports"`
	Horizon         time.Duration `json:"horizon"`
}

// Engine provides demand forecasts from an external advisory service.
type Engine interface {
	ZoneLoad(ctx context.Context, zone string) (Hint, error)
}
