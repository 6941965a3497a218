package recommend

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/kdarko/wastedispatch/core/logger"
	"github.com/kdarko/wastedispatch/core/model"
	"github.com/kdarko/wastedispatch/core/store"
)

// ErrNoVehicleAvailable is returned when no vehicle meets the range and
// availability constraints. The condition is reported, not retried: the
// threshold persists and the next periodic check re-evaluates it.
var ErrNoVehicleAvailable = errors.New("recommend: no vehicle available")

// Route is a static one-way distance between a zone and a facility.
type Route struct {
	Zone       string  `json:"zone"`
	FacilityID string  `json:"facility_id"`
	DistanceKm float64 `json:"distance_km"`
}

// Config defines the recommender parameters.
type Config struct {
	// SafetyMargin scales the round-trip distance when checking vehicle
	// range eligibility.
	SafetyMargin float64 `json:"safety_margin"`
	// AvgSpeedKmh converts distance estimates into run durations.
	AvgSpeedKmh float64 `json:"avg_speed_kmh"`
	// Routes is the static zone-to-facility distance table.
	Routes []Route `json:"routes"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.SafetyMargin == 0 {
		c.SafetyMargin = 1.2
	}
	if c.AvgSpeedKmh == 0 {
		c.AvgSpeedKmh = 25
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.SafetyMargin < 1 {
		return fmt.Errorf("safety_margin %.2f must be >= 1", c.SafetyMargin)
	}
	if c.AvgSpeedKmh <= 0 {
		return fmt.Errorf("avg_speed_kmh must be positive")
	}
	for _, r := range c.Routes {
		if r.Zone == "" || r.FacilityID == "" {
			return fmt.Errorf("route with empty zone or facility")
		}
		if r.DistanceKm <= 0 {
			return fmt.Errorf("route %s->%s has non-positive distance", r.Zone, r.FacilityID)
		}
	}
	return nil
}

// Recommendation proposes a vehicle and a distance/fuel estimate for a zone.
type Recommendation struct {
	VehicleID           string  `json:"vehicle_id"`
	FacilityID          string  `json:"facility_id"`
	EstimatedDistanceKm float64 `json:"estimated_distance_km"`
	EstimatedFuelL      float64 `json:"estimated_fuel_liters"`
}

// Recommender proposes an eligible vehicle for a zone using the static
// distance table and the fleet's fuel state.
type Recommender struct {
	st  store.Store
	cfg Config
	log logger.Logger
}

// NewRecommender creates a Recommender.
func NewRecommender(st store.Store, cfg Config, log logger.Logger) *Recommender {
	return &Recommender{st: st, cfg: cfg, log: log}
}

// NearestFacility returns the facility with the shortest one-way distance to
// the zone.
func (r *Recommender) NearestFacility(zone string) (string, float64, error) {
	best := ""
	bestDist := 0.0
	for _, rt := range r.cfg.Routes {
		if rt.Zone != zone {
			continue
		}
		if best == "" || rt.DistanceKm < bestDist {
			best = rt.FacilityID
			bestDist = rt.DistanceKm
		}
	}
	if best == "" {
		return "", 0, fmt.Errorf("no route configured for zone %q", zone)
	}
	return best, bestDist, nil
}

// EstimateDuration converts a distance estimate into a run duration using the
// configured average speed.
func (r *Recommender) EstimateDuration(distanceKm float64) time.Duration {
	hours := distanceKm / r.cfg.AvgSpeedKmh
	return time.Duration(hours * float64(time.Hour))
}

// Recommend proposes a vehicle for the zone. Vehicles in exclude are skipped;
// the caller uses this to retry after a lost reservation race. Returns
// ErrNoVehicleAvailable when the eligible set is empty.
func (r *Recommender) Recommend(zone string, exclude map[string]bool) (Recommendation, error) {
	facility, oneWay, err := r.NearestFacility(zone)
	if err != nil {
		return Recommendation{}, err
	}
	distance := oneWay * 2

	type ranked struct {
		v        model.Vehicle
		zoneRuns int
		fuelCost float64
	}
	var eligible []ranked
	for _, v := range r.st.Vehicles() {
		if exclude[v.ID] {
			continue
		}
		if v.Status != model.VehicleAvailable {
			continue
		}
		if v.EstimatedRangeKm() < distance*r.cfg.SafetyMargin {
			continue
		}
		eligible = append(eligible, ranked{
			v:        v,
			zoneRuns: v.ZoneRuns[zone],
			fuelCost: distance / v.FuelEfficiencyKmPerL,
		})
	}
	if len(eligible) == 0 {
		return Recommendation{}, ErrNoVehicleAvailable
	}

	// Vehicles already assigned to the zone rank first, then lower fuel
	// consumption for the trip, then vehicle id for determinism.
	sort.Slice(eligible, func(i, j int) bool {
		hi, hj := eligible[i].zoneRuns > 0, eligible[j].zoneRuns > 0
		if hi != hj {
			return hi
		}
		if eligible[i].fuelCost != eligible[j].fuelCost {
			return eligible[i].fuelCost < eligible[j].fuelCost
		}
		return eligible[i].v.ID < eligible[j].v.ID
	})

	chosen := eligible[0]
	r.log.Debugf("zone %s: recommending %s (%.1f km round trip, %.2f L)",
		zone, chosen.v.ID, distance, chosen.fuelCost)
	return Recommendation{
		VehicleID:           chosen.v.ID,
		FacilityID:          facility,
		EstimatedDistanceKm: distance,
		EstimatedFuelL:      chosen.fuelCost,
	}, nil
}
