package db

import (
	"encoding/json"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/airquality.report/internal/airq/l1observations"
	"github.com/banshee-data/airquality.report/internal/timeutil"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "airq.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPragmasApplied(t *testing.T) {
	db := setupTestDB(t)

	var journalMode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)

	var busyTimeout int
	require.NoError(t, db.QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout))
	assert.Equal(t, 5000, busyTimeout)

	var synchronous int
	require.NoError(t, db.QueryRow("PRAGMA synchronous").Scan(&synchronous))
	assert.Equal(t, 1, synchronous) // NORMAL

	var tempStore int
	require.NoError(t, db.QueryRow("PRAGMA temp_store").Scan(&tempStore))
	assert.Equal(t, 2, tempStore) // MEMORY
}

func TestMigrations_UpDownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "airq.db")
	db, err := OpenDB(path)
	require.NoError(t, err)
	defer db.Close()

	v, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(0), v)
	assert.False(t, dirty)

	require.NoError(t, db.MigrateUp())
	v, _, err = db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), v)

	// second up is a no-op
	require.NoError(t, db.MigrateUp())

	require.NoError(t, db.MigrateDown())
	v, _, err = db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)

	var n int
	err = db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='analysis_runs'`).Scan(&n)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestMigrateForce(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.MigrateForce(1))
	v, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)
	assert.False(t, dirty)
}

func observation(sensor string, ts time.Time, value float64) l1observations.Observation {
	return l1observations.Observation{
		Timestamp:  ts,
		SensorID:   sensor,
		Lat:        42.36,
		Lon:        -71.05,
		Pollution:  value,
		WindDirDeg: l1observations.Missing,
		WindSpeed:  l1observations.Missing,
	}
}

func TestInsertAndLoadObservations(t *testing.T) {
	db := setupTestDB(t)
	base := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)

	withWind := observation("a", base.Add(time.Minute), 20)
	withWind.WindDirDeg = 270
	withWind.WindSpeed = 3.5

	obs := []l1observations.Observation{
		observation("b", base, 10),
		withWind,
		observation("a", base, 30),
		observation("", base, 99), // invalid
	}
	stored, skipped, err := db.InsertObservations("harbor", "pm25", obs)
	require.NoError(t, err)
	assert.Equal(t, 3, stored)
	assert.Equal(t, 1, skipped)

	got, err := db.LoadObservations("harbor", "pm25", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, got, 3)

	// ordered by time then sensor
	assert.Equal(t, "a", got[0].SensorID)
	assert.Equal(t, 30.0, got[0].Pollution)
	assert.Equal(t, "b", got[1].SensorID)
	assert.True(t, math.IsNaN(got[1].WindSpeed))
	assert.Equal(t, 270.0, got[2].WindDirDeg)
	assert.Equal(t, 3.5, got[2].WindSpeed)
	assert.True(t, got[2].Timestamp.Equal(base.Add(time.Minute)))

	// other site or pollutant sees nothing
	other, err := db.LoadObservations("harbor", "no2", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestInsertObservations_Upsert(t *testing.T) {
	db := setupTestDB(t)
	base := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)

	_, _, err := db.InsertObservations("harbor", "pm25", []l1observations.Observation{observation("a", base, 10)})
	require.NoError(t, err)
	_, _, err = db.InsertObservations("harbor", "pm25", []l1observations.Observation{observation("a", base, 12)})
	require.NoError(t, err)

	got, err := db.LoadObservations("harbor", "pm25", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 12.0, got[0].Pollution)
}

func TestLoadObservations_Range(t *testing.T) {
	db := setupTestDB(t)
	base := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	var obs []l1observations.Observation
	for i := 0; i < 5; i++ {
		obs = append(obs, observation("a", base.Add(time.Duration(i)*time.Hour), float64(i)))
	}
	_, _, err := db.InsertObservations("harbor", "pm25", obs)
	require.NoError(t, err)

	got, err := db.LoadObservations("harbor", "pm25", base.Add(time.Hour), base.Add(3*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1.0, got[0].Pollution)
	assert.Equal(t, 2.0, got[1].Pollution)

	span, err := db.ObservationSpan("harbor", "pm25")
	require.NoError(t, err)
	assert.Equal(t, 5, span.Count)
	assert.Equal(t, 1, span.Sensors)
	assert.True(t, span.First.Equal(base))
	assert.True(t, span.Last.Equal(base.Add(4*time.Hour)))

	empty, err := db.ObservationSpan("nowhere", "pm25")
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Count)
	assert.True(t, empty.First.IsZero())
}

func TestInsertAndListRuns(t *testing.T) {
	db := setupTestDB(t)
	clock := timeutil.NewMockClock(time.Date(2025, 8, 2, 9, 0, 0, 0, time.UTC))
	db.SetClock(clock)

	first := &AnalysisRun{
		Site:           "harbor",
		Pollutant:      "pm25",
		Day:            "2025-08-01",
		Frames:         288,
		Sensors:        4,
		DroppedSensors: []string{"s9"},
		Params:         json.RawMessage(`{"trend_window":5}`),
	}
	require.NoError(t, db.InsertRun(first))
	assert.NotEmpty(t, first.RunID)
	assert.True(t, first.CreatedAt.Equal(clock.Now()))

	clock.Advance(time.Hour)
	second := &AnalysisRun{Site: "harbor", Pollutant: "no2", Day: "2025-08-01"}
	require.NoError(t, db.InsertRun(second))

	runs, err := db.ListRuns("harbor", "")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.RunID, runs[0].RunID)
	assert.Empty(t, runs[0].DroppedSensors)
	assert.JSONEq(t, `{}`, string(runs[0].Params))

	assert.Equal(t, first.RunID, runs[1].RunID)
	assert.Equal(t, []string{"s9"}, runs[1].DroppedSensors)
	assert.Equal(t, 288, runs[1].Frames)
	assert.JSONEq(t, `{"trend_window":5}`, string(runs[1].Params))

	pm, err := db.ListRuns("harbor", "pm25")
	require.NoError(t, err)
	assert.Len(t, pm, 1)
}
