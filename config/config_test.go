package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
api:
  addr: ":8081"
schedule:
  zones: ["north", "south"]
  check_interval_seconds: 30
recommend:
  routes:
    - zone: north
      facility_id: fac-a
      distance_km: 6
fleet:
  - id: truck-1
    type: compactor
    fuel_efficiency_kmpl: 10
    tank_capacity_liters: 150
    current_fuel_liters: 120
facilities:
  - id: fac-a
    name: Central
    max_capacity_kg: 1000
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadYAML(t *testing.T) {
	cfg, err := Load(writeConfig(t, "config.yaml", sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, ":8081", cfg.API.Addr)
	assert.Equal(t, []string{"north", "south"}, cfg.Schedule.Zones)
	assert.Equal(t, 30, cfg.Schedule.CheckIntervalSeconds)
	require.Len(t, cfg.Recommend.Routes, 1)
	assert.Equal(t, "fac-a", cfg.Recommend.Routes[0].FacilityID)
	require.Len(t, cfg.Fleet, 1)
	assert.Equal(t, 150.0, cfg.Fleet[0].TankCapacityL)
	require.Len(t, cfg.Facility, 1)
	assert.Equal(t, 1000.0, cfg.Facility[0].MaxCapacityKg)

	// Unset sections fall back to defaults.
	assert.Equal(t, 5, cfg.Reports.ReportThreshold)
	assert.Equal(t, 20.0, cfg.Fuel.RefuelThresholdPct)
	assert.Equal(t, 1.2, cfg.Recommend.SafetyMargin)
	assert.Equal(t, "fuel_log.db", cfg.FuelLog.Path)
}

func TestLoadJSON(t *testing.T) {
	cfg, err := Load(writeConfig(t, "config.json", `{
		"schedule": {"zones": ["north"]},
		"api": {"addr": ":7070"}
	}`))
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.API.Addr)
	assert.Equal(t, []string{"north"}, cfg.Schedule.Zones)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("WD_API__ADDR", ":6060")
	cfg, err := Load(writeConfig(t, "config.yaml", sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, ":6060", cfg.API.Addr)
}

func TestLoadRejectsUnknownExtension(t *testing.T) {
	_, err := Load(writeConfig(t, "config.toml", "whatever"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalidSeeds(t *testing.T) {
	_, err := Load(writeConfig(t, "config.yaml", `
fleet:
  - id: truck-1
    fuel_efficiency_kmpl: 0
    tank_capacity_liters: 100
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fuel_efficiency_kmpl")

	_, err = Load(writeConfig(t, "config.yaml", `
facilities:
  - id: ""
    max_capacity_kg: 100
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id is required")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
