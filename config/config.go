package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kdarko/wastedispatch/core/capacity"
	"github.com/kdarko/wastedispatch/core/fuel"
	"github.com/kdarko/wastedispatch/core/metrics"
	"github.com/kdarko/wastedispatch/core/recommend"
	"github.com/kdarko/wastedispatch/core/reports"
	"github.com/kdarko/wastedispatch/core/schedule"
	"github.com/kdarko/wastedispatch/infra/forecast"
	"github.com/kdarko/wastedispatch/infra/mqtt"
)

// Config is the aggregate engine configuration.
type Config struct {
	API       APIConfig        `json:"api"`
	Reports   reports.Config   `json:"reports"`
	Recommend recommend.Config `json:"recommend"`
	Fuel      fuel.Config      `json:"fuel"`
	Capacity  capacity.Config  `json:"capacity"`
	Schedule  schedule.Config  `json:"schedule"`
	Metrics   metrics.Config   `json:"metrics"`
	MQTT      MQTTConfig       `json:"mqtt"`
	Forecast  ForecastConfig   `json:"forecast"`
	FuelLog   FuelLogConfig    `json:"fuel_log"`
	Fleet     []VehicleSeed    `json:"fleet"`
	Facility  []FacilitySeed   `json:"facilities"`
}

// APIConfig defines the HTTP listener.
type APIConfig struct {
	Addr string `json:"addr"`
}

// SetDefaults applies sane defaults.
func (c *APIConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
}

// MQTTConfig wraps the broker config with an enable switch.
type MQTTConfig struct {
	Enabled bool `json:"enabled"`
	mqtt.Config
}

// ForecastConfig wraps the forecast endpoint with an enable switch.
type ForecastConfig struct {
	Enabled bool `json:"enabled"`
	forecast.Config
}

// FuelLogConfig defines the long-term fuel log archive.
type FuelLogConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// SetDefaults applies sane defaults.
func (c *FuelLogConfig) SetDefaults() {
	if c.Path == "" {
		c.Path = "fuel_log.db"
	}
}

// VehicleSeed declares one fleet vehicle loaded at startup.
type VehicleSeed struct {
	ID                   string  `json:"id"`
	Type                 string  `json:"type"`
	FuelEfficiencyKmPerL float64 `json:"fuel_efficiency_kmpl"`
	TankCapacityL        float64 `json:"tank_capacity_liters"`
	CurrentFuelL         float64 `json:"current_fuel_liters"`
}

// FacilitySeed declares one recycling facility loaded at startup.
type FacilitySeed struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	MaxCapacityKg float64            `json:"max_capacity_kg"`
	Composition   map[string]float64 `json:"composition"`
}

// Load reads the configuration file, applies environment overrides with the
// WD_ prefix, fills defaults and validates every section.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("WD_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "wd_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every section's defaults.
func (c *Config) SetDefaults() {
	c.API.SetDefaults()
	c.Reports.SetDefaults()
	c.Recommend.SetDefaults()
	c.Fuel.SetDefaults()
	c.Capacity.SetDefaults()
	c.Schedule.SetDefaults()
	c.Metrics.SetDefaults()
	c.MQTT.Config.SetDefaults()
	c.Forecast.Config.SetDefaults()
	c.FuelLog.SetDefaults()
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Reports.Validate(); err != nil {
		return fmt.Errorf("reports: %w", err)
	}
	if err := c.Recommend.Validate(); err != nil {
		return fmt.Errorf("recommend: %w", err)
	}
	if err := c.Fuel.Validate(); err != nil {
		return fmt.Errorf("fuel: %w", err)
	}
	if err := c.Capacity.Validate(); err != nil {
		return fmt.Errorf("capacity: %w", err)
	}
	if err := c.Schedule.Validate(); err != nil {
		return fmt.Errorf("schedule: %w", err)
	}
	for i, v := range c.Fleet {
		if v.ID == "" {
			return fmt.Errorf("fleet[%d]: id is required", i)
		}
		if v.FuelEfficiencyKmPerL <= 0 {
			return fmt.Errorf("fleet[%d]: fuel_efficiency_kmpl must be positive", i)
		}
		if v.TankCapacityL <= 0 {
			return fmt.Errorf("fleet[%d]: tank_capacity_liters must be positive", i)
		}
	}
	for i, f := range c.Facility {
		if f.ID == "" {
			return fmt.Errorf("facilities[%d]: id is required", i)
		}
		if f.MaxCapacityKg <= 0 {
			return fmt.Errorf("facilities[%d]: max_capacity_kg must be positive", i)
		}
	}
	return nil
}
