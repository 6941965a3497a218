package schedule

import "fmt"

// Config defines schedule manager settings.
type Config struct {
	// Zones lists the collection zones covered by the background checker.
	Zones []string `json:"zones"`
	// CheckIntervalSeconds is the period of the background threshold check.
	CheckIntervalSeconds int `json:"check_interval_seconds"`
	// StartDelayMinutes offsets a new run's scheduled start from creation.
	StartDelayMinutes int `json:"start_delay_minutes"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.CheckIntervalSeconds == 0 {
		c.CheckIntervalSeconds = 60
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.CheckIntervalSeconds < 1 {
		return fmt.Errorf("check_interval_seconds must be at least 1")
	}
	if c.StartDelayMinutes < 0 {
		return fmt.Errorf("start_delay_minutes must be non-negative")
	}
	return nil
}
