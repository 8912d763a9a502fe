package ingest

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/airquality.report/internal/airq/l1observations"
	"github.com/banshee-data/airquality.report/internal/config"
	"github.com/banshee-data/airquality.report/internal/fsutil"
	"github.com/banshee-data/airquality.report/internal/units"
)

// ErrMissingColumn is returned when a required column cannot be found.
var ErrMissingColumn = errors.New("missing required column")

// Fallback header names tried after any configured column.
var (
	TimestampColumns = []string{"timestamp_local.x", "timestamp_local.y", "timestamp_local", "timestamp", "valid"}
	SensorColumns    = []string{"sn.x", "sn.y", "sn", "sensor_id", "sensor", "device_id"}
	LatColumns       = []string{"lat", "geo.lat", "met_lat_ASOS"}
	LonColumns       = []string{"lon", "geo.lon", "met_lon_ASOS"}
	WindDirColumns   = []string{"met_wx_wd", "met.wx_wd", "wd", "wind_dir"}
	WindSpeedColumns = []string{"met_wx_ws", "met.wx_ws", "ws", "wind_speed"}
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
}

// Options says how to read one pollutant from a file.
type Options struct {
	Columns config.ColumnMapping
	// PollutionColumn is required.
	PollutionColumn string
	// SpeedUnits are the wind speed units in the file. Empty means m/s.
	SpeedUnits string
	// Location interprets timestamps without a zone. Nil means UTC.
	Location *time.Location
	// Sheet selects the XLSX worksheet. Empty means the first.
	Sheet string
}

// OptionsFor builds Options for pollutant at site.
func OptionsFor(site *config.SiteConfig, pollutant string) (Options, error) {
	p, err := site.Pollutant(pollutant)
	if err != nil {
		return Options{}, err
	}
	loc, err := site.Location()
	if err != nil {
		return Options{}, err
	}
	return Options{
		Columns:         site.Columns,
		PollutionColumn: p.Column,
		SpeedUnits:      site.SpeedUnits(),
		Location:        loc,
	}, nil
}

// Stats counts what a load skipped.
type Stats struct {
	Rows           int
	BadTimestamps  int
	MissingSensor  int
	MissingNumeric int
}

// LoadFile reads path and converts it to observations.
func LoadFile(fsys fsutil.FileSystem, path string, opts Options) ([]l1observations.Observation, Stats, error) {
	t, err := ReadTable(fsys, path, opts.Sheet)
	if err != nil {
		return nil, Stats{}, err
	}
	return Observations(t, opts)
}

type columnIndex struct {
	ts, sensor, lat, lon, pollution, windDir, windSpeed int
}

func resolveColumns(t Table, opts Options) (columnIndex, error) {
	idx := columnIndex{
		ts:        t.Index(prepend(opts.Columns.Timestamp, TimestampColumns)...),
		sensor:    t.Index(prepend(opts.Columns.SensorID, SensorColumns)...),
		lat:       t.Index(prepend(opts.Columns.Lat, LatColumns)...),
		lon:       t.Index(prepend(opts.Columns.Lon, LonColumns)...),
		pollution: t.Index(opts.PollutionColumn),
		windDir:   t.Index(prepend(opts.Columns.WindDir, WindDirColumns)...),
		windSpeed: t.Index(prepend(opts.Columns.WindSpeed, WindSpeedColumns)...),
	}
	if idx.ts < 0 {
		return idx, fmt.Errorf("%w: timestamp (tried %v)", ErrMissingColumn, prepend(opts.Columns.Timestamp, TimestampColumns))
	}
	if opts.PollutionColumn == "" || idx.pollution < 0 {
		return idx, fmt.Errorf("%w: pollution column %q (available: %v)", ErrMissingColumn, opts.PollutionColumn, t.Header)
	}
	if idx.sensor < 0 {
		return idx, fmt.Errorf("%w: sensor id (tried %v)", ErrMissingColumn, prepend(opts.Columns.SensorID, SensorColumns))
	}
	return idx, nil
}

// Observations maps table rows to observations. Rows with unparseable
// timestamps are skipped and counted; unparseable numbers become Missing
// and are left for the observations layer to drop.
func Observations(t Table, opts Options) ([]l1observations.Observation, Stats, error) {
	idx, err := resolveColumns(t, opts)
	if err != nil {
		return nil, Stats{}, err
	}
	speedUnits := opts.SpeedUnits
	if speedUnits == "" {
		speedUnits = units.MPS
	}
	if !units.IsValid(speedUnits) {
		return nil, Stats{}, fmt.Errorf("invalid wind speed units %q, must be one of: %s", speedUnits, units.GetValidUnitsString())
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	st := Stats{Rows: len(t.Rows)}
	out := make([]l1observations.Observation, 0, len(t.Rows))
	for _, row := range t.Rows {
		ts, err := ParseTimestamp(cell(row, idx.ts), loc)
		if err != nil {
			st.BadTimestamps++
			continue
		}
		o := l1observations.Observation{
			Timestamp:  ts,
			SensorID:   cell(row, idx.sensor),
			Lat:        parseNumber(cell(row, idx.lat)),
			Lon:        parseNumber(cell(row, idx.lon)),
			Pollution:  parseNumber(cell(row, idx.pollution)),
			WindDirDeg: parseNumber(cell(row, idx.windDir)),
			WindSpeed:  parseNumber(cell(row, idx.windSpeed)),
		}
		if o.SensorID == "" {
			st.MissingSensor++
		}
		if !o.HasPollution() || !o.HasCoordinates() {
			st.MissingNumeric++
		}
		if !math.IsNaN(o.WindSpeed) {
			// units were validated above
			o.WindSpeed, _ = units.ToMPS(o.WindSpeed, speedUnits)
		}
		out = append(out, o)
	}
	return out, st, nil
}

// ParseTimestamp accepts RFC 3339, common date-time layouts and unix
// seconds. Layouts without a zone are read in loc.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil && secs > 0 {
		whole := int64(secs)
		return time.Unix(whole, int64((secs-float64(whole))*1e9)).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

func parseNumber(s string) float64 {
	switch strings.ToLower(s) {
	case "", "na", "nan", "null", "none", "-":
		return l1observations.Missing
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return l1observations.Missing
	}
	return v
}

func prepend(first string, rest []string) []string {
	if first == "" {
		return rest
	}
	return append([]string{first}, rest...)
}
