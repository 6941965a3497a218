package fuellog

import (
	"context"
	"database/sql"
	"time"

	"github.com/kdarko/wastedispatch/core/model"
	_ "modernc.org/sqlite"
)

// SQLiteArchive persists fuel log entries in a SQLite database for long-term
// retention beyond the in-memory window.
type SQLiteArchive struct {
	db *sql.DB
}

// NewSQLiteArchive opens or creates the database and ensures schema.
func NewSQLiteArchive(path string) (*SQLiteArchive, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS fuel_log (
        id TEXT PRIMARY KEY,
        vehicle_id TEXT NOT NULL,
        run_id TEXT,
        entry_type TEXT NOT NULL,
        distance_km REAL,
        fuel_consumed_l REAL,
        efficiency_kmpl REAL,
        cost REAL,
        logged_at INTEGER NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_fuel_log_vehicle ON fuel_log(vehicle_id, logged_at);`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteArchive{db: db}, nil
}

// Append inserts the entry. Re-inserting an id is a no-op, entries are
// immutable.
func (s *SQLiteArchive) Append(ctx context.Context, e model.FuelLogEntry) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO fuel_log
        (id, vehicle_id, run_id, entry_type, distance_km, fuel_consumed_l, efficiency_kmpl, cost, logged_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO NOTHING`,
		e.ID, e.VehicleID, e.RunID, e.Type.String(), e.DistanceKm,
		e.FuelConsumedL, e.ActualEfficiencyKmPerL, e.Cost, e.LoggedAt.Unix())
	return err
}

// Query returns the entries of a vehicle logged at or after since, oldest
// first.
func (s *SQLiteArchive) Query(ctx context.Context, vehicleID string, since time.Time) ([]model.FuelLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, vehicle_id, run_id, entry_type,
        distance_km, fuel_consumed_l, efficiency_kmpl, cost, logged_at
        FROM fuel_log WHERE vehicle_id = ? AND logged_at >= ? ORDER BY logged_at`,
		vehicleID, since.Unix())
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []model.FuelLogEntry
	for rows.Next() {
		var e model.FuelLogEntry
		var typ string
		var ts int64
		if err := rows.Scan(&e.ID, &e.VehicleID, &e.RunID, &typ, &e.DistanceKm,
			&e.FuelConsumedL, &e.ActualEfficiencyKmPerL, &e.Cost, &ts); err != nil {
			return nil, err
		}
		if typ == model.FuelEntryRefuel.String() {
			e.Type = model.FuelEntryRefuel
		} else {
			e.Type = model.FuelEntryTrip
		}
		e.LoggedAt = time.Unix(ts, 0).UTC()
		res = append(res, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Close closes the underlying database.
func (s *SQLiteArchive) Close() error { return s.db.Close() }
