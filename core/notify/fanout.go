package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kdarko/wastedispatch/core/events"
	"github.com/kdarko/wastedispatch/core/logger"
	"github.com/kdarko/wastedispatch/core/model"
	"github.com/kdarko/wastedispatch/core/store"
	"github.com/kdarko/wastedispatch/internal/eventbus"
)

// Publisher pushes a notification to an external channel, such as a per-role
// message topic. Publishing is best-effort: a failed push never blocks the
// in-store record.
type Publisher interface {
	Publish(ctx context.Context, n model.Notification) error
}

// Fanout turns engine events into per-role notification records. Each
// (event type, context id, role) triple is delivered at most once per
// process lifetime.
type Fanout struct {
	st  store.Store
	log logger.Logger
	pub Publisher

	mu   sync.Mutex
	seen map[string]bool
}

// NewFanout creates a Fanout.
func NewFanout(st store.Store, log logger.Logger) *Fanout {
	return &Fanout{st: st, log: log, seen: make(map[string]bool)}
}

// SetPublisher configures the optional outbound channel.
func (f *Fanout) SetPublisher(p Publisher) { f.pub = p }

// Run consumes the bus subscription until the channel closes or the context
// is canceled.
func (f *Fanout) Run(ctx context.Context, sub <-chan eventbus.Event) {
	for {
		select {
		case ev, ok := <-sub:
			if !ok {
				return
			}
			f.HandleEvent(ctx, ev)
		case <-ctx.Done():
			return
		}
	}
}

// HandleEvent maps one engine event to its audience roles and records a
// notification for each.
func (f *Fanout) HandleEvent(ctx context.Context, ev eventbus.Event) {
	switch e := ev.(type) {
	case events.ReportFiled:
		f.emit(ctx, "report_filed", e.Report.ID, model.RoleDispatcher,
			"New waste report",
			fmt.Sprintf("Report filed in zone %s", e.Report.Zone),
			map[string]string{"report_id": e.Report.ID, "zone": e.Report.Zone})
	case events.RunCreated:
		meta := runMeta(e.Run)
		f.emit(ctx, "run_created", e.Run.ID, model.RoleDispatcher,
			"Collection run scheduled",
			fmt.Sprintf("Run for zone %s assigned to vehicle %s (%d reports)",
				e.Run.Zone, e.Run.VehicleID, e.Run.ReportsCount), meta)
		f.emit(ctx, "run_created", e.Run.ID, model.RoleResident,
			"Collection scheduled",
			fmt.Sprintf("Waste collection in zone %s is scheduled for %s",
				e.Run.Zone, e.Run.ScheduledStart.Format(time.RFC3339)), meta)
	case events.RunStarted:
		f.emit(ctx, "run_started", e.Run.ID, model.RoleResident,
			"Collection under way",
			fmt.Sprintf("Waste collection in zone %s has started", e.Run.Zone),
			runMeta(e.Run))
	case events.RunCompleted:
		meta := runMeta(e.Run)
		meta["facility_id"] = e.Delivery.FacilityID
		f.emit(ctx, "run_completed", e.Run.ID, model.RoleResident,
			"Collection completed",
			fmt.Sprintf("Waste collection in zone %s is complete", e.Run.Zone), meta)
		f.emit(ctx, "run_completed", e.Run.ID, model.RoleRecycler,
			"Delivery received",
			fmt.Sprintf("Vehicle %s delivered %.1f kg to facility %s",
				e.Run.VehicleID, e.Delivery.WeightKg, e.Delivery.FacilityID), meta)
	case events.RunCancelled:
		meta := runMeta(e.Run)
		meta["reason"] = e.Reason
		f.emit(ctx, "run_cancelled", e.Run.ID, model.RoleDispatcher,
			"Collection run cancelled",
			fmt.Sprintf("Run %s for zone %s was cancelled: %s", e.Run.ID, e.Run.Zone, e.Reason), meta)
		f.emit(ctx, "run_cancelled", e.Run.ID, model.RoleResident,
			"Collection postponed",
			fmt.Sprintf("Waste collection in zone %s was postponed", e.Run.Zone), meta)
	case events.DispatchConflict:
		f.emit(ctx, "dispatch_conflict", e.Zone, model.RoleDispatcher,
			"Dispatch conflict",
			fmt.Sprintf("No vehicle could be reserved for zone %s, manual review needed", e.Zone),
			map[string]string{"zone": e.Zone})
	case events.NeedsRefuel:
		f.emit(ctx, "needs_refuel", e.Vehicle.ID, model.RoleDispatcher,
			"Vehicle needs refuelling",
			fmt.Sprintf("Vehicle %s is at %d%% fuel", e.Vehicle.ID, e.Vehicle.FuelPercentageDisplay()),
			map[string]string{"vehicle_id": e.Vehicle.ID})
	case events.OverCapacity:
		meta := map[string]string{"facility_id": e.Facility.ID}
		msg := fmt.Sprintf("Facility %s exceeded its capacity by %.1f kg", e.Facility.ID, e.ExcessKg)
		f.emit(ctx, "over_capacity", e.Facility.ID, model.RoleRecycler,
			"Facility over capacity", msg, meta)
		f.emit(ctx, "over_capacity", e.Facility.ID, model.RoleDispatcher,
			"Facility over capacity", msg, meta)
	case events.HighUtilization:
		f.emit(ctx, "high_utilization", e.Facility.ID, model.RoleRecycler,
			"Facility nearly full",
			fmt.Sprintf("Facility %s is at %.1f%% capacity", e.Facility.ID, e.Utilization),
			map[string]string{"facility_id": e.Facility.ID})
	}
}

func runMeta(r model.Run) map[string]string {
	return map[string]string{
		"run_id":     r.ID,
		"zone":       r.Zone,
		"vehicle_id": r.VehicleID,
	}
}

func (f *Fanout) emit(ctx context.Context, typ, contextID string, role model.Role, title, msg string, meta map[string]string) {
	key := typ + "|" + contextID + "|" + role.String()
	f.mu.Lock()
	if f.seen[key] {
		f.mu.Unlock()
		return
	}
	f.seen[key] = true
	f.mu.Unlock()

	n := model.Notification{
		ID:        uuid.NewString(),
		Type:      typ,
		ForRole:   role,
		Title:     title,
		Message:   msg,
		Metadata:  meta,
		CreatedAt: time.Now(),
	}
	f.st.PutNotification(n)
	if f.pub != nil {
		if err := f.pub.Publish(ctx, n); err != nil {
			f.log.Warnf("notification publish %s/%s: %v", typ, role, err)
		}
	}
	f.log.Debugf("notification %s for %s: %s", typ, role, title)
}

// ByRole lists notifications for a role, newest first.
func (f *Fanout) ByRole(role model.Role, includeArchived bool) []model.Notification {
	return f.st.NotificationsByRole(role, includeArchived)
}

// MarkRead flags a notification as read.
func (f *Fanout) MarkRead(id string) (model.Notification, error) {
	return f.update(id, func(n *model.Notification) { n.Read = true })
}

// Archive flags a notification as archived. Archived notifications drop out of
// default listings but stay queryable.
func (f *Fanout) Archive(id string) (model.Notification, error) {
	return f.update(id, func(n *model.Notification) { n.Archived = true })
}

func (f *Fanout) update(id string, fn func(*model.Notification)) (model.Notification, error) {
	var out model.Notification
	err := f.st.UpdateNotification(id, func(n *model.Notification) {
		fn(n)
		out = *n
	})
	if err != nil {
		return model.Notification{}, err
	}
	return out, nil
}
