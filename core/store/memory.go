package store

import (
	"sort"
	"sync"
	"time"

	"github.com/kdarko/wastedispatch/core/model"
)

// MemoryStore is an in-memory Store guarded by a single RWMutex. Atomic takes
// a snapshot of the state and restores it when the unit of work fails, so
// partial commits never become visible.
type MemoryStore struct {
	mu sync.RWMutex
	st state
}

type state struct {
	reports       map[string]model.Report
	vehicles      map[string]model.Vehicle
	runs          map[string]model.Run
	fuelLogs      []model.FuelLogEntry
	facilities    map[string]model.Facility
	deliveries    map[string]model.Delivery
	notifications map[string]model.Notification
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{st: state{
		reports:       map[string]model.Report{},
		vehicles:      map[string]model.Vehicle{},
		runs:          map[string]model.Run{},
		facilities:    map[string]model.Facility{},
		deliveries:    map[string]model.Delivery{},
		notifications: map[string]model.Notification{},
	}}
}

func cloneVehicle(v model.Vehicle) model.Vehicle {
	v.ZoneRuns = v.CloneZoneRuns()
	return v
}

func cloneFacility(f model.Facility) model.Facility {
	f.Composition = f.Composition.Clone()
	return f
}

func cloneDelivery(d model.Delivery) model.Delivery {
	d.Composition = d.Composition.Clone()
	return d
}

func cloneNotification(n model.Notification) model.Notification {
	n.Metadata = n.CloneMetadata()
	return n
}

func (s *state) snapshot() state {
	cp := state{
		reports:       make(map[string]model.Report, len(s.reports)),
		vehicles:      make(map[string]model.Vehicle, len(s.vehicles)),
		runs:          make(map[string]model.Run, len(s.runs)),
		fuelLogs:      append([]model.FuelLogEntry(nil), s.fuelLogs...),
		facilities:    make(map[string]model.Facility, len(s.facilities)),
		deliveries:    make(map[string]model.Delivery, len(s.deliveries)),
		notifications: make(map[string]model.Notification, len(s.notifications)),
	}
	for id, r := range s.reports {
		cp.reports[id] = r
	}
	for id, v := range s.vehicles {
		cp.vehicles[id] = cloneVehicle(v)
	}
	for id, r := range s.runs {
		cp.runs[id] = r
	}
	for id, f := range s.facilities {
		cp.facilities[id] = cloneFacility(f)
	}
	for id, d := range s.deliveries {
		cp.deliveries[id] = cloneDelivery(d)
	}
	for id, n := range s.notifications {
		cp.notifications[id] = cloneNotification(n)
	}
	return cp
}

// Reports.

func (s *state) putReport(r model.Report) { s.reports[r.ID] = r }

func (s *state) report(id string) (model.Report, error) {
	r, ok := s.reports[id]
	if !ok {
		return model.Report{}, ErrNotFound
	}
	return r, nil
}

func (s *state) reportsByZone(zone string, status model.ReportStatus) []model.Report {
	var res []model.Report
	for _, r := range s.reports {
		if r.Zone == zone && r.Status == status {
			res = append(res, r)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	return res
}

func (s *state) reportsByRun(runID string) []model.Report {
	var res []model.Report
	for _, r := range s.reports {
		if r.RunID == runID {
			res = append(res, r)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

func (s *state) bindReport(id, runID string) error {
	r, ok := s.reports[id]
	if !ok {
		return ErrNotFound
	}
	if r.Status != model.ReportNew {
		return ErrConflict
	}
	r.Status = model.ReportScheduled
	r.RunID = runID
	s.reports[id] = r
	return nil
}

func (s *state) releaseReport(id, runID string) error {
	r, ok := s.reports[id]
	if !ok {
		return ErrNotFound
	}
	if r.Status != model.ReportScheduled || r.RunID != runID {
		return ErrConflict
	}
	r.Status = model.ReportNew
	r.RunID = ""
	s.reports[id] = r
	return nil
}

func (s *state) resolveReport(id, runID string) error {
	r, ok := s.reports[id]
	if !ok {
		return ErrNotFound
	}
	if r.Status != model.ReportScheduled || r.RunID != runID {
		return ErrConflict
	}
	r.Status = model.ReportResolved
	r.ResolvedAt = time.Now()
	s.reports[id] = r
	return nil
}

// Vehicles.

func (s *state) putVehicle(v model.Vehicle) { s.vehicles[v.ID] = cloneVehicle(v) }

func (s *state) vehicle(id string) (model.Vehicle, error) {
	v, ok := s.vehicles[id]
	if !ok {
		return model.Vehicle{}, ErrNotFound
	}
	return cloneVehicle(v), nil
}

func (s *state) vehicleList() []model.Vehicle {
	res := make([]model.Vehicle, 0, len(s.vehicles))
	for _, v := range s.vehicles {
		res = append(res, cloneVehicle(v))
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

func (s *state) swapVehicleStatus(id string, from, to model.VehicleStatus) error {
	v, ok := s.vehicles[id]
	if !ok {
		return ErrNotFound
	}
	if v.Status != from {
		return ErrConflict
	}
	v.Status = to
	v.UpdatedAt = time.Now()
	s.vehicles[id] = v
	return nil
}

func (s *state) updateVehicle(id string, fn func(*model.Vehicle)) error {
	v, ok := s.vehicles[id]
	if !ok {
		return ErrNotFound
	}
	v = cloneVehicle(v)
	fn(&v)
	v.UpdatedAt = time.Now()
	s.vehicles[id] = v
	return nil
}

// Runs.

func (s *state) putRun(r model.Run) { s.runs[r.ID] = r }

func (s *state) run(id string) (model.Run, error) {
	r, ok := s.runs[id]
	if !ok {
		return model.Run{}, ErrNotFound
	}
	return r, nil
}

func (s *state) runList(zone string) []model.Run {
	var res []model.Run
	for _, r := range s.runs {
		if zone == "" || r.Zone == zone {
			res = append(res, r)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	return res
}

func (s *state) activeRunForVehicle(vehicleID string) (model.Run, bool) {
	for _, r := range s.runs {
		if r.VehicleID == vehicleID && !r.Status.Terminal() {
			return r, true
		}
	}
	return model.Run{}, false
}

func (s *state) transitionRun(id string, from, to model.RunStatus) error {
	r, ok := s.runs[id]
	if !ok {
		return ErrNotFound
	}
	if r.Status != from {
		return ErrConflict
	}
	r.Status = to
	r.UpdatedAt = time.Now()
	s.runs[id] = r
	return nil
}

func (s *state) updateRun(id string, fn func(*model.Run)) error {
	r, ok := s.runs[id]
	if !ok {
		return ErrNotFound
	}
	fn(&r)
	r.UpdatedAt = time.Now()
	s.runs[id] = r
	return nil
}

// Fuel log.

func (s *state) appendFuelLog(e model.FuelLogEntry) { s.fuelLogs = append(s.fuelLogs, e) }

func (s *state) fuelLogList(vehicleID string, since time.Time) []model.FuelLogEntry {
	var res []model.FuelLogEntry
	for _, e := range s.fuelLogs {
		if vehicleID != "" && e.VehicleID != vehicleID {
			continue
		}
		if !since.IsZero() && e.LoggedAt.Before(since) {
			continue
		}
		res = append(res, e)
	}
	return res
}

// Facilities.

func (s *state) putFacility(f model.Facility) { s.facilities[f.ID] = cloneFacility(f) }

func (s *state) facility(id string) (model.Facility, error) {
	f, ok := s.facilities[id]
	if !ok {
		return model.Facility{}, ErrNotFound
	}
	return cloneFacility(f), nil
}

func (s *state) facilityList() []model.Facility {
	res := make([]model.Facility, 0, len(s.facilities))
	for _, f := range s.facilities {
		res = append(res, cloneFacility(f))
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

func (s *state) updateFacility(id string, fn func(*model.Facility)) error {
	f, ok := s.facilities[id]
	if !ok {
		return ErrNotFound
	}
	f = cloneFacility(f)
	fn(&f)
	f.LastUpdated = time.Now()
	s.facilities[id] = f
	return nil
}

// Deliveries.

func (s *state) putDelivery(d model.Delivery) { s.deliveries[d.ID] = cloneDelivery(d) }

func (s *state) delivery(id string) (model.Delivery, error) {
	d, ok := s.deliveries[id]
	if !ok {
		return model.Delivery{}, ErrNotFound
	}
	return cloneDelivery(d), nil
}

func (s *state) deliveryByRun(runID string) (model.Delivery, bool) {
	for _, d := range s.deliveries {
		if d.RunID == runID {
			return cloneDelivery(d), true
		}
	}
	return model.Delivery{}, false
}

func (s *state) swapDeliveryStatus(id string, from, to model.DeliveryStatus) error {
	d, ok := s.deliveries[id]
	if !ok {
		return ErrNotFound
	}
	if d.Status != from {
		return ErrConflict
	}
	d.Status = to
	d.UpdatedAt = time.Now()
	s.deliveries[id] = d
	return nil
}

func (s *state) updateDelivery(id string, fn func(*model.Delivery)) error {
	d, ok := s.deliveries[id]
	if !ok {
		return ErrNotFound
	}
	d = cloneDelivery(d)
	fn(&d)
	d.UpdatedAt = time.Now()
	s.deliveries[id] = d
	return nil
}

func (s *state) deleteDelivery(id string) { delete(s.deliveries, id) }

// Notifications.

func (s *state) putNotification(n model.Notification) { s.notifications[n.ID] = cloneNotification(n) }

func (s *state) notification(id string) (model.Notification, error) {
	n, ok := s.notifications[id]
	if !ok {
		return model.Notification{}, ErrNotFound
	}
	return cloneNotification(n), nil
}

func (s *state) notificationsByRole(role model.Role, includeArchived bool) []model.Notification {
	var res []model.Notification
	for _, n := range s.notifications {
		if n.ForRole != role {
			continue
		}
		if n.Archived && !includeArchived {
			continue
		}
		res = append(res, cloneNotification(n))
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].ID < res[j].ID
		}
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	return res
}

func (s *state) updateNotification(id string, fn func(*model.Notification)) error {
	n, ok := s.notifications[id]
	if !ok {
		return ErrNotFound
	}
	n = cloneNotification(n)
	fn(&n)
	s.notifications[id] = n
	return nil
}

// Locked wrappers implementing Store on *MemoryStore.

func (m *MemoryStore) PutReport(r model.Report) {
	m.mu.Lock()
	m.st.putReport(r)
	m.mu.Unlock()
}

func (m *MemoryStore) Report(id string) (model.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.report(id)
}

func (m *MemoryStore) ReportsByZone(zone string, status model.ReportStatus) []model.Report {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.reportsByZone(zone, status)
}

func (m *MemoryStore) ReportsByRun(runID string) []model.Report {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.reportsByRun(runID)
}

func (m *MemoryStore) BindReport(id, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.bindReport(id, runID)
}

func (m *MemoryStore) ReleaseReport(id, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.releaseReport(id, runID)
}

func (m *MemoryStore) ResolveReport(id, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.resolveReport(id, runID)
}

func (m *MemoryStore) PutVehicle(v model.Vehicle) {
	m.mu.Lock()
	m.st.putVehicle(v)
	m.mu.Unlock()
}

func (m *MemoryStore) Vehicle(id string) (model.Vehicle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.vehicle(id)
}

func (m *MemoryStore) Vehicles() []model.Vehicle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.vehicleList()
}

func (m *MemoryStore) SwapVehicleStatus(id string, from, to model.VehicleStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.swapVehicleStatus(id, from, to)
}

func (m *MemoryStore) UpdateVehicle(id string, fn func(*model.Vehicle)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.updateVehicle(id, fn)
}

func (m *MemoryStore) PutRun(r model.Run) {
	m.mu.Lock()
	m.st.putRun(r)
	m.mu.Unlock()
}

func (m *MemoryStore) Run(id string) (model.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.run(id)
}

func (m *MemoryStore) Runs(zone string) []model.Run {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.runList(zone)
}

func (m *MemoryStore) ActiveRunForVehicle(vehicleID string) (model.Run, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.activeRunForVehicle(vehicleID)
}

func (m *MemoryStore) TransitionRun(id string, from, to model.RunStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.transitionRun(id, from, to)
}

func (m *MemoryStore) UpdateRun(id string, fn func(*model.Run)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.updateRun(id, fn)
}

func (m *MemoryStore) AppendFuelLog(e model.FuelLogEntry) {
	m.mu.Lock()
	m.st.appendFuelLog(e)
	m.mu.Unlock()
}

func (m *MemoryStore) FuelLogs(vehicleID string, since time.Time) []model.FuelLogEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.fuelLogList(vehicleID, since)
}

func (m *MemoryStore) PutFacility(f model.Facility) {
	m.mu.Lock()
	m.st.putFacility(f)
	m.mu.Unlock()
}

func (m *MemoryStore) Facility(id string) (model.Facility, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.facility(id)
}

func (m *MemoryStore) Facilities() []model.Facility {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.facilityList()
}

func (m *MemoryStore) UpdateFacility(id string, fn func(*model.Facility)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.updateFacility(id, fn)
}

func (m *MemoryStore) PutDelivery(d model.Delivery) {
	m.mu.Lock()
	m.st.putDelivery(d)
	m.mu.Unlock()
}

func (m *MemoryStore) Delivery(id string) (model.Delivery, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.delivery(id)
}

func (m *MemoryStore) DeliveryByRun(runID string) (model.Delivery, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.deliveryByRun(runID)
}

func (m *MemoryStore) SwapDeliveryStatus(id string, from, to model.DeliveryStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.swapDeliveryStatus(id, from, to)
}

func (m *MemoryStore) UpdateDelivery(id string, fn func(*model.Delivery)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.updateDelivery(id, fn)
}

func (m *MemoryStore) DeleteDelivery(id string) {
	m.mu.Lock()
	m.st.deleteDelivery(id)
	m.mu.Unlock()
}

func (m *MemoryStore) PutNotification(n model.Notification) {
	m.mu.Lock()
	m.st.putNotification(n)
	m.mu.Unlock()
}

func (m *MemoryStore) Notification(id string) (model.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.notification(id)
}

func (m *MemoryStore) NotificationsByRole(role model.Role, includeArchived bool) []model.Notification {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.notificationsByRole(role, includeArchived)
}

func (m *MemoryStore) UpdateNotification(id string, fn func(*model.Notification)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.updateNotification(id, fn)
}

// Atomic runs fn while holding the write lock. On error the pre-transaction
// snapshot is restored, so either every mutation commits or none does.
func (m *MemoryStore) Atomic(fn func(Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.st.snapshot()
	if err := fn(&txnStore{st: &m.st}); err != nil {
		m.st = snap
		return err
	}
	return nil
}

// txnStore exposes Store operations on a state whose lock is already held.
type txnStore struct {
	st *state
}

func (t *txnStore) PutReport(r model.Report)          { t.st.putReport(r) }
func (t *txnStore) Report(id string) (model.Report, error) { return t.st.report(id) }
func (t *txnStore) ReportsByZone(zone string, status model.ReportStatus) []model.Report {
	return t.st.reportsByZone(zone, status)
}
func (t *txnStore) ReportsByRun(runID string) []model.Report { return t.st.reportsByRun(runID) }
func (t *txnStore) BindReport(id, runID string) error        { return t.st.bindReport(id, runID) }
func (t *txnStore) ReleaseReport(id, runID string) error     { return t.st.releaseReport(id, runID) }
func (t *txnStore) ResolveReport(id, runID string) error     { return t.st.resolveReport(id, runID) }

func (t *txnStore) PutVehicle(v model.Vehicle)              { t.st.putVehicle(v) }
func (t *txnStore) Vehicle(id string) (model.Vehicle, error) { return t.st.vehicle(id) }
func (t *txnStore) Vehicles() []model.Vehicle               { return t.st.vehicleList() }
func (t *txnStore) SwapVehicleStatus(id string, from, to model.VehicleStatus) error {
	return t.st.swapVehicleStatus(id, from, to)
}
func (t *txnStore) UpdateVehicle(id string, fn func(*model.Vehicle)) error {
	return t.st.updateVehicle(id, fn)
}

func (t *txnStore) PutRun(r model.Run)            { t.st.putRun(r) }
func (t *txnStore) Run(id string) (model.Run, error) { return t.st.run(id) }
func (t *txnStore) Runs(zone string) []model.Run  { return t.st.runList(zone) }
func (t *txnStore) ActiveRunForVehicle(vehicleID string) (model.Run, bool) {
	return t.st.activeRunForVehicle(vehicleID)
}
func (t *txnStore) TransitionRun(id string, from, to model.RunStatus) error {
	return t.st.transitionRun(id, from, to)
}
func (t *txnStore) UpdateRun(id string, fn func(*model.Run)) error { return t.st.updateRun(id, fn) }

func (t *txnStore) AppendFuelLog(e model.FuelLogEntry) { t.st.appendFuelLog(e) }
func (t *txnStore) FuelLogs(vehicleID string, since time.Time) []model.FuelLogEntry {
	return t.st.fuelLogList(vehicleID, since)
}

func (t *txnStore) PutFacility(f model.Facility)              { t.st.putFacility(f) }
func (t *txnStore) Facility(id string) (model.Facility, error) { return t.st.facility(id) }
func (t *txnStore) Facilities() []model.Facility              { return t.st.facilityList() }
func (t *txnStore) UpdateFacility(id string, fn func(*model.Facility)) error {
	return t.st.updateFacility(id, fn)
}

func (t *txnStore) PutDelivery(d model.Delivery)              { t.st.putDelivery(d) }
func (t *txnStore) Delivery(id string) (model.Delivery, error) { return t.st.delivery(id) }
func (t *txnStore) DeliveryByRun(runID string) (model.Delivery, bool) {
	return t.st.deliveryByRun(runID)
}
func (t *txnStore) SwapDeliveryStatus(id string, from, to model.DeliveryStatus) error {
	return t.st.swapDeliveryStatus(id, from, to)
}
func (t *txnStore) UpdateDelivery(id string, fn func(*model.Delivery)) error {
	return t.st.updateDelivery(id, fn)
}
func (t *txnStore) DeleteDelivery(id string) { t.st.deleteDelivery(id) }

func (t *txnStore) PutNotification(n model.Notification) { t.st.putNotification(n) }
func (t *txnStore) Notification(id string) (model.Notification, error) {
	return t.st.notification(id)
}
func (t *txnStore) NotificationsByRole(role model.Role, includeArchived bool) []model.Notification {
	return t.st.notificationsByRole(role, includeArchived)
}
func (t *txnStore) UpdateNotification(id string, fn func(*model.Notification)) error {
	return t.st.updateNotification(id, fn)
}

// Atomic on a transaction joins the enclosing unit of work.
func (t *txnStore) Atomic(fn func(Store) error) error { return fn(t) }
