package db

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/banshee-data/airquality.report/internal/airq/l1observations"
)

// ObservationSpan summarises what is stored for one site and pollutant.
type ObservationSpan struct {
	Count   int
	Sensors int
	First   time.Time
	Last    time.Time
}

// InsertObservations stores obs for site and pollutant in one transaction.
// Rows with the same sensor and timestamp replace earlier imports. Invalid
// rows are skipped and counted in the second return value.
func (db *DB) InsertObservations(site, pollutant string, obs []l1observations.Observation) (stored, skipped int, err error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO observations
		(site, pollutant, sensor_id, ts_unix_nanos, lat, lon, value, wind_dir_deg, wind_speed_mps)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (site, pollutant, sensor_id, ts_unix_nanos) DO UPDATE SET
			lat = excluded.lat,
			lon = excluded.lon,
			value = excluded.value,
			wind_dir_deg = excluded.wind_dir_deg,
			wind_speed_mps = excluded.wind_speed_mps`)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range obs {
		if !o.Valid() {
			skipped++
			continue
		}
		_, err := stmt.Exec(site, pollutant, o.SensorID, o.Timestamp.UnixNano(),
			o.Lat, o.Lon, o.Pollution, nullable(o.WindDirDeg), nullable(o.WindSpeed))
		if err != nil {
			return 0, 0, fmt.Errorf("failed to insert observation for sensor %s: %w", o.SensorID, err)
		}
		stored++
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit observations: %w", err)
	}
	return stored, skipped, nil
}

// LoadObservations returns the stored observations for site and pollutant
// with from <= timestamp < to, ordered by time then sensor. A zero from or
// to leaves that end unbounded.
func (db *DB) LoadObservations(site, pollutant string, from, to time.Time) ([]l1observations.Observation, error) {
	lo := int64(math.MinInt64)
	hi := int64(math.MaxInt64)
	if !from.IsZero() {
		lo = from.UnixNano()
	}
	if !to.IsZero() {
		hi = to.UnixNano()
	}

	rows, err := db.Query(`SELECT sensor_id, ts_unix_nanos, lat, lon, value, wind_dir_deg, wind_speed_mps
		FROM observations
		WHERE site = ? AND pollutant = ? AND ts_unix_nanos >= ? AND ts_unix_nanos < ?
		ORDER BY ts_unix_nanos, sensor_id`, site, pollutant, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}
	defer rows.Close()

	var out []l1observations.Observation
	for rows.Next() {
		var (
			o          l1observations.Observation
			ts         int64
			dir, speed sql.NullFloat64
		)
		if err := rows.Scan(&o.SensorID, &ts, &o.Lat, &o.Lon, &o.Pollution, &dir, &speed); err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}
		o.Timestamp = time.Unix(0, ts).UTC()
		o.WindDirDeg = fromNullable(dir)
		o.WindSpeed = fromNullable(speed)
		out = append(out, o)
	}
	return out, rows.Err()
}

// ObservationSpan reports the count, sensor count and time range stored
// for site and pollutant. Count is zero when nothing is stored.
func (db *DB) ObservationSpan(site, pollutant string) (ObservationSpan, error) {
	var (
		span        ObservationSpan
		first, last sql.NullInt64
	)
	err := db.QueryRow(`SELECT COUNT(*), COUNT(DISTINCT sensor_id), MIN(ts_unix_nanos), MAX(ts_unix_nanos)
		FROM observations WHERE site = ? AND pollutant = ?`, site, pollutant).
		Scan(&span.Count, &span.Sensors, &first, &last)
	if err != nil {
		return ObservationSpan{}, fmt.Errorf("failed to query observation span: %w", err)
	}
	if first.Valid {
		span.First = time.Unix(0, first.Int64).UTC()
	}
	if last.Valid {
		span.Last = time.Unix(0, last.Int64).UTC()
	}
	return span, nil
}

func nullable(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func fromNullable(v sql.NullFloat64) float64 {
	if !v.Valid {
		return l1observations.Missing
	}
	return v.Float64
}
