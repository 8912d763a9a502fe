// Package l1observations owns Layer 1 (Observations) of the air-quality data
// model.
//
// Responsibilities: the immutable Observation record, calendar-day
// filtering in the site timezone, row validity, outlier screening, and
// grouping into per-sensor series that are eligible for smoothing.
// Key types: Observation, Day, SensorSeries, CleanStats.
//
// Dependency rule: L1 has no inward dependencies on higher layers.
// No file or database access is allowed in this package; readers live in
// internal/ingest and internal/db.
package l1observations
