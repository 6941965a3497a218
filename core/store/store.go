package store

import (
	"errors"
	"time"

	"github.com/kdarko/wastedispatch/core/model"
)

var (
	// ErrNotFound is returned when an entity id is unknown.
	ErrNotFound = errors.New("store: not found")
	// ErrConflict is returned when a conditional update loses a race: the
	// stored state no longer matches the expected prior state.
	ErrConflict = errors.New("store: conditional update conflict")
)

// Store is the persistence boundary of the engine. Cross-entity mutations
// that must be atomic run inside Atomic; every state-machine write is a
// conditional update that fails with ErrConflict when the stored state does
// not match the expected one.
type Store interface {
	// Reports.
	PutReport(r model.Report)
	Report(id string) (model.Report, error)
	ReportsByZone(zone string, status model.ReportStatus) []model.Report
	ReportsByRun(runID string) []model.Report
	// BindReport moves a report from new to scheduled and records the run it
	// is bound to. Only reports still in status new bind successfully.
	BindReport(id, runID string) error
	// ReleaseReport reverts a report bound to runID back to new.
	ReleaseReport(id, runID string) error
	// ResolveReport marks a report bound to runID as resolved.
	ResolveReport(id, runID string) error

	// Vehicles.
	PutVehicle(v model.Vehicle)
	Vehicle(id string) (model.Vehicle, error)
	Vehicles() []model.Vehicle
	// SwapVehicleStatus is the reservation compare-and-swap: the update only
	// applies if the stored status still equals from.
	SwapVehicleStatus(id string, from, to model.VehicleStatus) error
	UpdateVehicle(id string, fn func(*model.Vehicle)) error

	// Runs.
	PutRun(r model.Run)
	Run(id string) (model.Run, error)
	Runs(zone string) []model.Run
	// ActiveRunForVehicle returns the single non-terminal run of a vehicle.
	ActiveRunForVehicle(vehicleID string) (model.Run, bool)
	// TransitionRun applies a state-machine step conditionally on the current
	// state.
	TransitionRun(id string, from, to model.RunStatus) error
	UpdateRun(id string, fn func(*model.Run)) error

	// Fuel log. Entries are append-only.
	AppendFuelLog(e model.FuelLogEntry)
	FuelLogs(vehicleID string, since time.Time) []model.FuelLogEntry

	// Facilities.
	PutFacility(f model.Facility)
	Facility(id string) (model.Facility, error)
	Facilities() []model.Facility
	UpdateFacility(id string, fn func(*model.Facility)) error

	// Deliveries.
	PutDelivery(d model.Delivery)
	Delivery(id string) (model.Delivery, error)
	DeliveryByRun(runID string) (model.Delivery, bool)
	SwapDeliveryStatus(id string, from, to model.DeliveryStatus) error
	UpdateDelivery(id string, fn func(*model.Delivery)) error
	DeleteDelivery(id string)

	// Notifications.
	PutNotification(n model.Notification)
	Notification(id string) (model.Notification, error)
	NotificationsByRole(role model.Role, includeArchived bool) []model.Notification
	UpdateNotification(id string, fn func(*model.Notification)) error

	// Atomic runs fn as one unit of work: either every mutation fn performs
	// commits, or none does. The Store passed to fn joins the same unit.
	Atomic(fn func(Store) error) error
}
