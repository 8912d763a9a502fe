package db

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AnalysisRun records one processed day.
type AnalysisRun struct {
	RunID                string    `json:"run_id"`
	Site                 string    `json:"site"`
	Pollutant            string    `json:"pollutant"`
	Day                  string    `json:"day"`
	CreatedAt            time.Time `json:"created_at"`
	Frames               int       `json:"frames"`
	Sensors              int       `json:"sensors"`
	DroppedSensors       []string  `json:"dropped_sensors"`
	ObservationsRejected int       `json:"observations_rejected"`
	FieldFallbacks       int       `json:"field_fallbacks"`
	// Params is the effective analysis configuration as JSON.
	Params    json.RawMessage `json:"params"`
	OutputDir string          `json:"output_dir"`
}

// InsertRun stores r, assigning RunID and CreatedAt when they are unset.
func (db *DB) InsertRun(r *AnalysisRun) error {
	if r.RunID == "" {
		r.RunID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = db.clock.Now().UTC()
	}
	dropped := r.DroppedSensors
	if dropped == nil {
		dropped = []string{}
	}
	droppedJSON, err := json.Marshal(dropped)
	if err != nil {
		return fmt.Errorf("failed to encode dropped sensors: %w", err)
	}
	params := r.Params
	if len(params) == 0 {
		params = json.RawMessage("{}")
	}

	_, err = db.Exec(`INSERT INTO analysis_runs
		(run_id, site, pollutant, day, created_unix_nanos, frames, sensors,
		 dropped_sensors_json, observations_rejected, field_fallbacks, params_json, output_dir)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Site, r.Pollutant, r.Day, r.CreatedAt.UnixNano(), r.Frames, r.Sensors,
		string(droppedJSON), r.ObservationsRejected, r.FieldFallbacks, string(params), r.OutputDir)
	if err != nil {
		return fmt.Errorf("failed to insert analysis run %s: %w", r.RunID, err)
	}
	return nil
}

// ListRuns returns the runs for site, newest first. An empty pollutant
// matches every pollutant.
func (db *DB) ListRuns(site, pollutant string) ([]AnalysisRun, error) {
	rows, err := db.Query(`SELECT run_id, site, pollutant, day, created_unix_nanos, frames, sensors,
			dropped_sensors_json, observations_rejected, field_fallbacks, params_json, output_dir
		FROM analysis_runs
		WHERE site = ? AND (? = '' OR pollutant = ?)
		ORDER BY created_unix_nanos DESC, run_id`, site, pollutant, pollutant)
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis runs: %w", err)
	}
	defer rows.Close()

	var out []AnalysisRun
	for rows.Next() {
		var (
			r                   AnalysisRun
			created             int64
			droppedJSON, params string
		)
		if err := rows.Scan(&r.RunID, &r.Site, &r.Pollutant, &r.Day, &created, &r.Frames, &r.Sensors,
			&droppedJSON, &r.ObservationsRejected, &r.FieldFallbacks, &params, &r.OutputDir); err != nil {
			return nil, fmt.Errorf("failed to scan analysis run: %w", err)
		}
		r.CreatedAt = time.Unix(0, created).UTC()
		if err := json.Unmarshal([]byte(droppedJSON), &r.DroppedSensors); err != nil {
			return nil, fmt.Errorf("failed to decode dropped sensors for run %s: %w", r.RunID, err)
		}
		r.Params = json.RawMessage(params)
		out = append(out, r)
	}
	return out, rows.Err()
}
