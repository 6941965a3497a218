package fuellog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdarko/wastedispatch/core/model"
)

func newArchive(t *testing.T) *SQLiteArchive {
	t.Helper()
	a, err := NewSQLiteArchive(filepath.Join(t.TempDir(), "fuel.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func entry(id, vehicle string, at time.Time) model.FuelLogEntry {
	return model.FuelLogEntry{
		ID: id, VehicleID: vehicle, RunID: "run-1",
		Type: model.FuelEntryTrip, DistanceKm: 100, FuelConsumedL: 10,
		ActualEfficiencyKmPerL: 10, Cost: 25, LoggedAt: at,
	}
}

func TestAppendAndQuery(t *testing.T) {
	a := newArchive(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, a.Append(ctx, entry("e1", "v1", base)))
	require.NoError(t, a.Append(ctx, entry("e2", "v1", base.Add(time.Hour))))
	require.NoError(t, a.Append(ctx, entry("e3", "v2", base)))

	got, err := a.Query(ctx, "v1", time.Time{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "e1", got[0].ID)
	assert.Equal(t, "e2", got[1].ID)
	assert.Equal(t, base, got[0].LoggedAt)
	assert.Equal(t, model.FuelEntryTrip, got[0].Type)
	assert.Equal(t, 10.0, got[0].ActualEfficiencyKmPerL)
}

func TestQuerySinceFilters(t *testing.T) {
	a := newArchive(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, a.Append(ctx, entry("old", "v1", base)))
	require.NoError(t, a.Append(ctx, entry("new", "v1", base.Add(2*time.Hour))))

	got, err := a.Query(ctx, "v1", base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].ID)
}

func TestAppendDuplicateIsNoOp(t *testing.T) {
	a := newArchive(t)
	ctx := context.Background()
	e := entry("e1", "v1", time.Now().UTC().Truncate(time.Second))

	require.NoError(t, a.Append(ctx, e))
	e.DistanceKm = 999
	require.NoError(t, a.Append(ctx, e))

	got, err := a.Query(ctx, "v1", time.Time{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 100.0, got[0].DistanceKm)
}

func TestRefuelEntryRoundTrip(t *testing.T) {
	a := newArchive(t)
	ctx := context.Background()
	e := model.FuelLogEntry{
		ID: "r1", VehicleID: "v1", Type: model.FuelEntryRefuel,
		FuelConsumedL: -50, Cost: 80,
		LoggedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, a.Append(ctx, e))

	got, err := a.Query(ctx, "v1", time.Time{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.FuelEntryRefuel, got[0].Type)
	assert.Equal(t, -50.0, got[0].FuelConsumedL)
}
