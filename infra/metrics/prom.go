package metrics

import (
	coremetrics "github.com/kdarko/wastedispatch/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink records engine events in Prometheus metrics.
type PromSink struct {
	runs        *prometheus.CounterVec
	fuelUsed    *prometheus.CounterVec
	distance    *prometheus.CounterVec
	fuelPct     *prometheus.GaugeVec
	utilization *prometheus.GaugeVec
	overCap     *prometheus.CounterVec
}

// NewPromSink registers engine metrics on the default Prometheus registerer.
// The Prometheus server should be started separately using cfg.PrometheusPort.
func NewPromSink(cfg coremetrics.Config) (coremetrics.Sink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(cfg coremetrics.Config, reg prometheus.Registerer) (coremetrics.Sink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "run_events_total",
		Help: "Total number of run state events",
	}, []string{"zone", "status"})
	fuelUsed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vehicle_fuel_consumed_liters_total",
		Help: "Fuel consumed by vehicle across completed legs",
	}, []string{"vehicle_id"})
	distance := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vehicle_distance_km_total",
		Help: "Distance driven by vehicle across completed legs",
	}, []string{"vehicle_id"})
	fuelPct := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "vehicle_fuel_percentage",
		Help: "Current tank fill percentage per vehicle",
	}, []string{"vehicle_id"})
	utilization := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "facility_utilization_percentage",
		Help: "Current fill percentage per facility",
	}, []string{"facility_id"})
	overCap := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "facility_over_capacity_kg_total",
		Help: "Kilograms delivered past facility maximum capacity",
	}, []string{"facility_id"})

	collectors := []prometheus.Collector{runs, fuelUsed, distance, fuelPct, utilization, overCap}
	for i, c := range collectors {
		if err := reg.Register(c); err != nil {
			are, ok := err.(prometheus.AlreadyRegisteredError)
			if !ok {
				return nil, err
			}
			collectors[i] = are.ExistingCollector
		}
	}
	return &PromSink{
		runs:        collectors[0].(*prometheus.CounterVec),
		fuelUsed:    collectors[1].(*prometheus.CounterVec),
		distance:    collectors[2].(*prometheus.CounterVec),
		fuelPct:     collectors[3].(*prometheus.GaugeVec),
		utilization: collectors[4].(*prometheus.GaugeVec),
		overCap:     collectors[5].(*prometheus.CounterVec),
	}, nil
}

// RecordRunEvent increments the run event counter.
func (s *PromSink) RecordRunEvent(ev coremetrics.RunEvent) error {
	s.runs.WithLabelValues(ev.Zone, ev.Status).Inc()
	return nil
}

// RecordFuelEvent updates the per-vehicle fuel counters and gauge.
func (s *PromSink) RecordFuelEvent(ev coremetrics.FuelEvent) error {
	if ev.FuelL > 0 {
		s.fuelUsed.WithLabelValues(ev.VehicleID).Add(ev.FuelL)
	}
	if ev.DistanceKm > 0 {
		s.distance.WithLabelValues(ev.VehicleID).Add(ev.DistanceKm)
	}
	s.fuelPct.WithLabelValues(ev.VehicleID).Set(ev.FuelPct)
	return nil
}

// RecordCapacityEvent updates the facility utilization gauge.
func (s *PromSink) RecordCapacityEvent(ev coremetrics.CapacityEvent) error {
	s.utilization.WithLabelValues(ev.FacilityID).Set(ev.Utilization)
	if ev.OverCapacityKg > 0 {
		s.overCap.WithLabelValues(ev.FacilityID).Add(ev.OverCapacityKg)
	}
	return nil
}
