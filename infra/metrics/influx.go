package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kdarko/wastedispatch/core/metrics"
	"github.com/kdarko/wastedispatch/infra/logger"
)

// InfluxSink writes engine events to an InfluxDB instance using the official
// client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.Sink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordRunEvent writes the run state change as a point.
func (s *InfluxSink) RecordRunEvent(ev coremetrics.RunEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("run_event").
		AddTag("run_id", ev.RunID).
		AddTag("zone", ev.Zone).
		AddTag("vehicle_id", ev.VehicleID).
		AddTag("status", ev.Status).
		AddTag("component", "schedule_manager").
		AddField("reports", ev.Reports).
		AddField("estimated_fuel_liters", round3(ev.EstimatedFuelL)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordFuelEvent writes a vehicle fuel snapshot.
func (s *InfluxSink) RecordFuelEvent(ev coremetrics.FuelEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("fuel_event").
		AddTag("vehicle_id", ev.VehicleID).
		AddTag("entry_type", ev.EntryType).
		AddTag("component", "fuel_ledger")
	if ev.RunID != "" {
		p = p.AddTag("run_id", ev.RunID)
	}
	p = p.AddField("distance_km", round3(ev.DistanceKm)).
		AddField("fuel_liters", round3(ev.FuelL)).
		AddField("efficiency_kmpl", round3(ev.EfficiencyKmPerL)).
		AddField("fuel_pct", round3(ev.FuelPct)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordCapacityEvent writes a facility snapshot after a delivery.
func (s *InfluxSink) RecordCapacityEvent(ev coremetrics.CapacityEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("capacity_event").
		AddTag("facility_id", ev.FacilityID).
		AddTag("component", "capacity_ledger").
		AddField("delivered_kg", round3(ev.DeliveredKg)).
		AddField("utilization_pct", round3(ev.Utilization)).
		AddField("over_capacity_kg", round3(ev.OverCapacityKg)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
