package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/airquality.report/internal/airq/l1observations"
	"github.com/banshee-data/airquality.report/internal/airq/l5frames"
	"github.com/banshee-data/airquality.report/internal/airq/pipeline"
	"github.com/banshee-data/airquality.report/internal/config"
	"github.com/banshee-data/airquality.report/internal/db"
	"github.com/banshee-data/airquality.report/internal/fsutil"
	"github.com/banshee-data/airquality.report/internal/ingest"
	"github.com/banshee-data/airquality.report/internal/monitoring"
	"github.com/banshee-data/airquality.report/internal/report"
)

// runConfig holds the parsed flags of the run command.
type runConfig struct {
	SitePath    string
	ConfigPath  string
	DBPath      string
	Input       string
	Pollutant   string
	Days        []l1observations.Day
	OutDir      string
	Plots       bool
	FieldFrame  int
	MetricsPath string
	LogLevel    string
	ShowVersion bool
}

func parseRunFlags(args []string, getenv func(string) string) (*runConfig, error) {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	rc := &runConfig{}
	fs.StringVar(&rc.SitePath, "site", getenv(envSite), "Site configuration file (.yaml, .yml or .json)")
	fs.StringVar(&rc.ConfigPath, "config", getenv(envConfig), "Analysis parameters file (.json); defaults apply when empty")
	fs.StringVar(&rc.DBPath, "db", getenv(envDB), "SQLite observation store; runs are recorded here when set")
	fs.StringVar(&rc.Input, "input", "", "CSV or XLSX observation file; when empty observations are read from -db")
	fs.StringVar(&rc.Pollutant, "pollutant", "", "Pollutant name from the site config (default: the first listed)")
	days := fs.String("days", "", "Comma-separated YYYY-MM-DD days (default: every day with data)")
	fs.StringVar(&rc.OutDir, "out", "out", "Output directory")
	fs.BoolVar(&rc.Plots, "plots", false, "Write diagnostic plots for each day")
	fs.IntVar(&rc.FieldFrame, "field-frame", -1, "Frame index for the field chart (negative: peak pollution frame)")
	fs.StringVar(&rc.MetricsPath, "metrics", "", "Write Prometheus textfile metrics to this path")
	fs.StringVar(&rc.LogLevel, "log-level", "ops", "Engine log detail: ops, diag or trace")
	fs.BoolVar(&rc.ShowVersion, "version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if rc.ShowVersion {
		return rc, nil
	}

	if rc.SitePath == "" {
		return nil, fmt.Errorf("-site is required (or set %s)", envSite)
	}
	if rc.Input == "" && rc.DBPath == "" {
		return nil, fmt.Errorf("one of -input or -db is required")
	}
	switch rc.LogLevel {
	case "ops", "diag", "trace":
	default:
		return nil, fmt.Errorf("invalid -log-level %q (want ops, diag or trace)", rc.LogLevel)
	}
	parsed, err := parseDays(*days)
	if err != nil {
		return nil, err
	}
	rc.Days = parsed
	return rc, nil
}

func parseDays(s string) ([]l1observations.Day, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []l1observations.Day
	for _, part := range strings.Split(s, ",") {
		d, err := l1observations.ParseDay(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func configureLogging(level string) {
	switch level {
	case "trace":
		monitoring.SetLogWriters(os.Stderr, os.Stderr, os.Stderr)
	case "diag":
		monitoring.SetLogWriters(os.Stderr, os.Stderr, nil)
	default:
		monitoring.SetLogWriters(os.Stderr, nil, nil)
	}
}

// runAnalysis loads the inputs, processes each day and writes the output
// tree. Days finished before a cancellation are still written.
func runAnalysis(ctx context.Context, rc *runConfig) error {
	configureLogging(rc.LogLevel)

	site, err := config.LoadSiteConfig(rc.SitePath)
	if err != nil {
		return err
	}
	acfg := config.EmptyAnalysisConfig()
	if rc.ConfigPath != "" {
		if acfg, err = config.LoadAnalysisConfig(rc.ConfigPath); err != nil {
			return err
		}
	}
	loc, err := site.Location()
	if err != nil {
		return err
	}
	pollutant := rc.Pollutant
	if pollutant == "" {
		pollutant = site.Pollutants[0].Name
	}
	pc, err := site.Pollutant(pollutant)
	if err != nil {
		return err
	}

	var database *db.DB
	if rc.DBPath != "" {
		if database, err = db.NewDB(rc.DBPath); err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer database.Close()
	}

	obs, err := loadObservations(rc, site, pollutant, database)
	if err != nil {
		return err
	}
	if n := site.FillCoordinates(obs); n > 0 {
		log.Printf("filled coordinates for %d rows from the site sensor list", n)
	}

	days := rc.Days
	if len(days) == 0 {
		days = l1observations.AvailableDays(obs, loc)
	}
	log.Printf("site %s pollutant %s: %d observations over %d day(s)", site.Name, pollutant, len(obs), len(days))

	engine, err := acfg.EngineConfig(site)
	if err != nil {
		return err
	}
	windMax, err := site.WindSpeedMaxMPS()
	if err != nil {
		return err
	}
	metrics := monitoring.NewMetrics()
	proc, err := pipeline.NewDayProcessor(pipeline.Options{
		Engine:  engine,
		Clean:   acfg.CleanOptions(windMax),
		Wind:    site.WindSource(),
		Extent:  site.Extent,
		Metrics: metrics,
	})
	if err != nil {
		return err
	}

	results, runErr := proc.Run(ctx, obs, days)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	if runErr != nil {
		log.Printf("interrupted: writing %d finished day(s)", len(results))
	}

	params, err := json.Marshal(acfg.Effective())
	if err != nil {
		return fmt.Errorf("failed to encode analysis parameters: %w", err)
	}
	w := &dayWriter{
		site:      site,
		pollutant: pc,
		threshold: acfg.GetAlignmentThreshold(),
		loc:       loc,
		plots:     rc.Plots,
		frame:     rc.FieldFrame,
		params:    params,
		database:  database,
	}
	if w.exporter, err = report.NewExporter(fsutil.OSFileSystem{}, rc.OutDir); err != nil {
		return err
	}

	processed := make([]string, 0, len(results))
	for _, r := range results {
		if err := w.write(r); err != nil {
			return err
		}
		processed = append(processed, r.Day.String())
	}
	if err := w.exporter.WriteIndex(processed); err != nil {
		return err
	}
	log.Printf("wrote %d day(s) to %s", len(processed), rc.OutDir)

	if rc.MetricsPath != "" {
		if err := metrics.WriteTextfile(rc.MetricsPath); err != nil {
			return err
		}
	}
	return runErr
}

func loadObservations(rc *runConfig, site *config.SiteConfig, pollutant string, database *db.DB) ([]l1observations.Observation, error) {
	if rc.Input == "" {
		obs, err := database.LoadObservations(site.Name, pollutant, time.Time{}, time.Time{})
		if err != nil {
			return nil, err
		}
		if len(obs) == 0 {
			return nil, fmt.Errorf("no stored observations for site %s pollutant %s; run 'airq import' first", site.Name, pollutant)
		}
		return obs, nil
	}

	opts, err := ingest.OptionsFor(site, pollutant)
	if err != nil {
		return nil, err
	}
	obs, st, err := ingest.LoadFile(fsutil.OSFileSystem{}, rc.Input, opts)
	if err != nil {
		return nil, err
	}
	log.Printf("read %s: rows=%d bad_timestamps=%d missing_sensor=%d missing_numeric=%d",
		rc.Input, st.Rows, st.BadTimestamps, st.MissingSensor, st.MissingNumeric)
	return obs, nil
}

// dayWriter exports one processed day and records its run.
type dayWriter struct {
	site      *config.SiteConfig
	pollutant config.PollutantConfig
	threshold float64
	loc       *time.Location
	plots     bool
	frame     int
	params    json.RawMessage
	database  *db.DB
	exporter  *report.Exporter
}

func (w *dayWriter) write(r pipeline.DayResult) error {
	day := r.Day.String()
	runID := uuid.NewString()
	stats := l5frames.PollutionStats(r.Result.Frames)

	visMin, visMax := w.pollutant.VisMin, w.pollutant.VisMax
	if visMax <= visMin {
		visMin, visMax = stats.Min, stats.Max
	}

	path, err := w.exporter.WriteDay(report.DayExport{
		Site:          w.site.Name,
		SiteName:      w.site.DisplayName,
		Pollutant:     w.pollutant.Name,
		PollutantName: w.pollutant.DisplayName,
		Unit:          w.pollutant.Unit,
		Day:           day,
		DayLabel:      r.Day.Label(),
		Timezone:      w.loc.String(),
		RunID:         runID,
		Stats:         stats,
		VisMin:        visMin,
		VisMax:        visMax,
		Dropped:       r.Result.Dropped,
		Frames:        r.Result.Frames,
	})
	if err != nil {
		return err
	}

	if w.plots {
		if err := w.exporter.WritePlots(day, r.Result, report.PlotOptions{
			Title:      w.title(),
			Unit:       w.pollutant.Unit,
			Names:      w.sensorNames(),
			Threshold:  w.threshold,
			Location:   w.loc,
			FieldFrame: w.frame,
			Scale:      report.FieldScale{Min: w.pollutant.VisMin, Max: w.pollutant.VisMax},
		}); err != nil {
			return fmt.Errorf("%s: failed to write plots: %w", day, err)
		}
	}

	if w.database != nil {
		run := &db.AnalysisRun{
			RunID:                runID,
			Site:                 w.site.Name,
			Pollutant:            w.pollutant.Name,
			Day:                  day,
			Frames:               len(r.Result.Frames),
			Sensors:              r.Sensors(),
			DroppedSensors:       r.Result.Dropped,
			ObservationsRejected: r.Rejected(),
			FieldFallbacks:       r.Result.FieldFallbacks,
			Params:               w.params,
			OutputDir:            filepath.Dir(path),
		}
		if err := w.database.InsertRun(run); err != nil {
			return err
		}
	}
	log.Printf("%s: %d frames, %d sensors -> %s", day, len(r.Result.Frames), r.Sensors(), path)
	return nil
}

func (w *dayWriter) title() string {
	site := w.site.DisplayName
	if site == "" {
		site = w.site.Name
	}
	name := w.pollutant.DisplayName
	if name == "" {
		name = w.pollutant.Name
	}
	return site + " " + name
}

func (w *dayWriter) sensorNames() map[string]string {
	names := make(map[string]string, len(w.site.Sensors))
	for _, s := range w.site.Sensors {
		names[s.ID] = w.site.SensorName(s.ID)
	}
	return names
}
