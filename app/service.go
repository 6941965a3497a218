package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	apifacilities "github.com/kdarko/wastedispatch/api/facilities"
	apifleet "github.com/kdarko/wastedispatch/api/fleet"
	apinotifications "github.com/kdarko/wastedispatch/api/notifications"
	apireports "github.com/kdarko/wastedispatch/api/reports"
	apiruns "github.com/kdarko/wastedispatch/api/runs"
	"github.com/kdarko/wastedispatch/config"
	"github.com/kdarko/wastedispatch/core/capacity"
	"github.com/kdarko/wastedispatch/core/fuel"
	coremetrics "github.com/kdarko/wastedispatch/core/metrics"
	"github.com/kdarko/wastedispatch/core/model"
	"github.com/kdarko/wastedispatch/core/notify"
	"github.com/kdarko/wastedispatch/core/recommend"
	"github.com/kdarko/wastedispatch/core/reports"
	"github.com/kdarko/wastedispatch/core/schedule"
	"github.com/kdarko/wastedispatch/core/store"
	infraforecast "github.com/kdarko/wastedispatch/infra/forecast"
	"github.com/kdarko/wastedispatch/infra/fuellog"
	"github.com/kdarko/wastedispatch/infra/logger"
	"github.com/kdarko/wastedispatch/infra/metrics"
	"github.com/kdarko/wastedispatch/infra/mqtt"
	"github.com/kdarko/wastedispatch/internal/eventbus"
)

// Service wires the engine: store, ledgers, schedule manager, notification
// fan-out and the HTTP API.
type Service struct {
	Store   *store.MemoryStore
	Manager *schedule.Manager
	Fanout  *notify.Fanout

	cfg       *config.Config
	bus       eventbus.EventBus
	log       logger.Logger
	mux       *http.ServeMux
	archive   *fuellog.SQLiteArchive
	publisher *mqtt.NotificationPublisher
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")
	st := store.NewMemoryStore()
	if err := seed(st, cfg); err != nil {
		return nil, err
	}

	var sinks []coremetrics.Sink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink(cfg.Metrics)
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.InfluxEnabled {
		sink := metrics.NewInfluxSinkWithFallback(cfg.Metrics.InfluxURL,
			cfg.Metrics.InfluxToken, cfg.Metrics.InfluxOrg, cfg.Metrics.InfluxBucket)
		sinks = append(sinks, sink)
	}
	var sink coremetrics.Sink
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = metrics.NewMultiSink(sinks...)
	}

	bus := eventbus.New()
	agg := reports.NewAggregator(st, cfg.Reports, logger.New("reports"))
	rec := recommend.NewRecommender(st, cfg.Recommend, logger.New("recommend"))
	fuelLedger := fuel.NewLedger(st, cfg.Fuel, logger.New("fuel"))
	capLedger := capacity.NewLedger(st, cfg.Capacity, logger.New("capacity"))

	svc := &Service{Store: st, cfg: cfg, bus: bus, log: logg}

	if cfg.FuelLog.Enabled {
		archive, err := fuellog.NewSQLiteArchive(cfg.FuelLog.Path)
		if err != nil {
			return nil, fmt.Errorf("fuel log archive: %w", err)
		}
		fuelLedger.SetArchive(archive)
		svc.archive = archive
	}

	mgr, err := schedule.NewManager(st, agg, rec, fuelLedger, capLedger,
		cfg.Schedule, bus, sink, logger.New("schedule"))
	if err != nil {
		return nil, err
	}
	if cfg.Forecast.Enabled {
		mgr.SetForecast(infraforecast.NewHTTPEngine(cfg.Forecast.Config))
	}
	svc.Manager = mgr

	fanout := notify.NewFanout(st, logger.New("notify"))
	if cfg.MQTT.Enabled {
		pub, err := mqtt.NewNotificationPublisher(cfg.MQTT.Config)
		if err != nil {
			return nil, fmt.Errorf("mqtt publisher: %w", err)
		}
		fanout.SetPublisher(pub)
		svc.publisher = pub
	}
	svc.Fanout = fanout

	mux := http.NewServeMux()
	apireports.NewHandler(st, agg, bus, logger.New("api")).Register(mux)
	apiruns.NewHandler(st, mgr, rec, logger.New("api")).Register(mux)
	apifleet.NewHandler(st, fuelLedger, bus, logger.New("api")).Register(mux)
	apifacilities.NewHandler(st, capLedger, bus, logger.New("api")).Register(mux)
	apinotifications.NewHandler(fanout, logger.New("api")).Register(mux)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	svc.mux = mux
	return svc, nil
}

func seed(st store.Store, cfg *config.Config) error {
	now := time.Now()
	for _, s := range cfg.Fleet {
		v := model.Vehicle{
			ID:                   s.ID,
			Type:                 s.Type,
			FuelEfficiencyKmPerL: s.FuelEfficiencyKmPerL,
			TankCapacityL:        s.TankCapacityL,
			CurrentFuelL:         s.CurrentFuelL,
			Status:               model.VehicleAvailable,
			CreatedAt:            now,
			UpdatedAt:            now,
		}
		if err := v.Validate(); err != nil {
			return fmt.Errorf("fleet seed %s: %w", s.ID, err)
		}
		st.PutVehicle(v)
	}
	for _, s := range cfg.Facility {
		st.PutFacility(model.Facility{
			ID:            s.ID,
			Name:          s.Name,
			MaxCapacityKg: s.MaxCapacityKg,
			Composition:   model.Composition(s.Composition).Clone(),
			LastUpdated:   now,
		})
	}
	return nil
}

// Handler returns the HTTP API handler, used by the server and by tests.
func (s *Service) Handler() http.Handler { return s.mux }

// Run starts the service and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	sub := s.bus.Subscribe()
	go s.Fanout.Run(ctx, sub)
	go s.Manager.Run(ctx)
	if s.cfg.Metrics.PrometheusEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusPort, s.log); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	srv := &http.Server{Addr: s.cfg.API.Addr, Handler: s.mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("http shutdown: %v", err)
		}
	}()
	s.log.Infof("listening on %s", s.cfg.API.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.bus.Close()
	if s.publisher != nil {
		s.publisher.Disconnect()
	}
	if s.archive != nil {
		return s.archive.Close()
	}
	return nil
}
