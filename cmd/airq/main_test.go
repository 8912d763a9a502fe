package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/airquality.report/internal/airq/l1observations"
	"github.com/banshee-data/airquality.report/internal/db"
	"github.com/banshee-data/airquality.report/internal/fsutil"
	"github.com/banshee-data/airquality.report/internal/ingest"
	"github.com/banshee-data/airquality.report/internal/report"
	"github.com/banshee-data/airquality.report/internal/synth"
	"github.com/banshee-data/airquality.report/internal/testutil"
)

const testSite = `name: harbor
display_name: Harbor District
timezone: UTC
sensors:
  - id: pier
    display_name: Pier 4
    lat: 42.350
    lon: -71.040
  - id: depot
    lat: 42.360
    lon: -71.060
  - id: school
    lat: 42.342
    lon: -71.055
  - id: park
    lat: 42.366
    lon: -71.045
pollutants:
  - name: pm25
    column: pm25
    display_name: PM2.5
    unit: ug/m3
    vis_min: 0
    vis_max: 80
  - name: no2
    column: no2
wind:
  speed_max: 15
`

var testDay = l1observations.Day{Year: 2025, Month: time.August, Day: 1}

func noEnv(string) string { return "" }

// writeFixture writes a site config and three hours of synthetic
// observations and returns their paths.
func writeFixture(t *testing.T) (sitePath, csvPath string) {
	t.Helper()
	dir := t.TempDir()
	sitePath = filepath.Join(dir, "site.yaml")
	require.NoError(t, os.WriteFile(sitePath, []byte(testSite), 0644))

	g := synth.NewGenerator(11, nil)
	g.StartHour, g.EndHour = 10, 13
	obs := g.Day(testDay, time.UTC)

	csvPath = filepath.Join(dir, "harbor.csv")
	require.NoError(t, ingest.WriteTable(fsutil.OSFileSystem{}, csvPath, ingest.ObservationTable(obs, "pm25", "", nil)))
	return sitePath, csvPath
}

func TestParseRunFlags(t *testing.T) {
	rc, err := parseRunFlags([]string{"-site", "s.yaml", "-input", "in.csv", "-days", "2025-08-01, 2025-08-03", "-plots"}, noEnv)
	require.NoError(t, err)
	assert.Equal(t, "s.yaml", rc.SitePath)
	assert.Equal(t, "out", rc.OutDir)
	assert.True(t, rc.Plots)
	assert.Equal(t, -1, rc.FieldFrame)
	assert.Equal(t, "ops", rc.LogLevel)
	assert.Equal(t, []l1observations.Day{testDay, {Year: 2025, Month: time.August, Day: 3}}, rc.Days)
}

func TestParseRunFlags_EnvDefaults(t *testing.T) {
	env := map[string]string{envSite: "env-site.yaml", envDB: "env.db", envConfig: "env.json"}
	rc, err := parseRunFlags(nil, func(k string) string { return env[k] })
	require.NoError(t, err)
	assert.Equal(t, "env-site.yaml", rc.SitePath)
	assert.Equal(t, "env.db", rc.DBPath)
	assert.Equal(t, "env.json", rc.ConfigPath)

	rc, err = parseRunFlags([]string{"-db", "flag.db"}, func(k string) string { return env[k] })
	require.NoError(t, err)
	assert.Equal(t, "flag.db", rc.DBPath, "flags override the environment")
}

func TestParseRunFlags_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing site", []string{"-input", "in.csv"}},
		{"no input or db", []string{"-site", "s.yaml"}},
		{"bad day", []string{"-site", "s.yaml", "-input", "in.csv", "-days", "08/01/2025"}},
		{"bad log level", []string{"-site", "s.yaml", "-input", "in.csv", "-log-level", "loud"}},
		{"unknown flag", []string{"-colour"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseRunFlags(tt.args, noEnv)
			assert.Error(t, err)
		})
	}
}

func TestDispatch_VersionAndUsage(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, dispatch(context.Background(), []string{"version"}, noEnv, &out))
	assert.Contains(t, out.String(), "airq dev")

	out.Reset()
	require.NoError(t, dispatch(context.Background(), []string{"-version"}, noEnv, &out))
	assert.Contains(t, out.String(), "airq dev")

	out.Reset()
	require.NoError(t, dispatch(context.Background(), nil, noEnv, &out))
	assert.Contains(t, out.String(), "Usage: airq")
}

func TestRunAnalysis_FromFile(t *testing.T) {
	sitePath, csvPath := writeFixture(t)
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	dbPath := filepath.Join(dir, "airq.db")
	metricsPath := filepath.Join(dir, "airq.prom")

	err := dispatch(context.Background(), []string{
		"-site", sitePath, "-input", csvPath, "-out", outDir,
		"-db", dbPath, "-plots", "-metrics", metricsPath,
	}, noEnv, &bytes.Buffer{})
	require.NoError(t, err)

	index, err := os.ReadFile(filepath.Join(outDir, report.IndexFile))
	require.NoError(t, err)
	assert.Equal(t, "2025-08-01\n", string(index))

	data, err := os.ReadFile(filepath.Join(outDir, "2025-08-01", report.FramesFile))
	require.NoError(t, err)
	var doc report.DayExport
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "harbor", doc.Site)
	assert.Equal(t, "PM2.5", doc.PollutantName)
	assert.Equal(t, "August 01, 2025", doc.DayLabel)
	assert.Equal(t, 80.0, doc.VisMax)
	assert.NotEmpty(t, doc.RunID)
	require.NotEmpty(t, doc.Frames)
	assert.Equal(t, "10:00", doc.Frames[0].TimeLabel)
	assert.Len(t, doc.Frames[0].Sensors, 4)

	for _, name := range []string{report.SeriesFile, report.AlignmentFile, report.FieldFile} {
		assert.FileExists(t, filepath.Join(outDir, "2025-08-01", name))
	}

	metrics, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "airq_frames_built_total")
	assert.Contains(t, string(metrics), `airq_days_total{outcome="processed"} 1`)

	database, err := db.NewDB(dbPath)
	require.NoError(t, err)
	defer database.Close()
	runs, err := database.ListRuns("harbor", "pm25")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, doc.RunID, runs[0].RunID)
	assert.Equal(t, len(doc.Frames), runs[0].Frames)
	assert.Equal(t, 4, runs[0].Sensors)
	assert.Equal(t, filepath.Join(outDir, "2025-08-01"), runs[0].OutputDir)

	var params map[string]any
	require.NoError(t, json.Unmarshal(runs[0].Params, &params))
	assert.Equal(t, 5.0, params["frame_interval_minutes"])
}

func TestRunAnalysis_SkipsEmptyDays(t *testing.T) {
	sitePath, csvPath := writeFixture(t)
	outDir := filepath.Join(t.TempDir(), "out")

	err := dispatch(context.Background(), []string{
		"-site", sitePath, "-input", csvPath, "-out", outDir, "-days", "2025-07-31,2025-08-01",
	}, noEnv, &bytes.Buffer{})
	require.NoError(t, err)

	index, err := os.ReadFile(filepath.Join(outDir, report.IndexFile))
	require.NoError(t, err)
	assert.Equal(t, "2025-08-01\n", string(index))
	assert.NoDirExists(t, filepath.Join(outDir, "2025-07-31"))
}

func TestRunAnalysis_Cancelled(t *testing.T) {
	sitePath, csvPath := writeFixture(t)
	outDir := filepath.Join(t.TempDir(), "out")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := dispatch(ctx, []string{"-site", sitePath, "-input", csvPath, "-out", outDir}, noEnv, &bytes.Buffer{})
	assert.ErrorIs(t, err, context.Canceled)

	index, err := os.ReadFile(filepath.Join(outDir, report.IndexFile))
	require.NoError(t, err)
	assert.Empty(t, index)
}

func TestImportThenRunFromStore(t *testing.T) {
	sitePath, csvPath := writeFixture(t)
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "airq.db")
	outDir := filepath.Join(dir, "out")

	require.NoError(t, dispatch(context.Background(), []string{
		"import", "-site", sitePath, "-input", csvPath, "-db", dbPath,
	}, noEnv, &bytes.Buffer{}))

	database, err := db.NewDB(dbPath)
	require.NoError(t, err)
	span, err := database.ObservationSpan("harbor", "pm25")
	require.NoError(t, err)
	assert.Equal(t, 4, span.Sensors)
	assert.Greater(t, span.Count, 0)
	require.NoError(t, database.Close())

	require.NoError(t, dispatch(context.Background(), []string{
		"-site", sitePath, "-db", dbPath, "-out", outDir, "-pollutant", "pm25",
	}, noEnv, &bytes.Buffer{}))
	assert.FileExists(t, filepath.Join(outDir, "2025-08-01", report.FramesFile))

	var out bytes.Buffer
	require.NoError(t, dispatch(context.Background(), []string{"runs", "-site", "harbor", "-db", dbPath}, noEnv, &out))
	assert.Contains(t, out.String(), "2025-08-01")
	assert.Contains(t, out.String(), "pm25")

	// no2 was never imported
	err = dispatch(context.Background(), []string{
		"-site", sitePath, "-db", dbPath, "-out", outDir, "-pollutant", "no2",
	}, noEnv, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestImport_Errors(t *testing.T) {
	sitePath, csvPath := writeFixture(t)
	dbPath := filepath.Join(t.TempDir(), "airq.db")

	_, err := parseImportFlags([]string{"-site", sitePath}, noEnv)
	assert.Error(t, err, "input is required")

	err = dispatch(context.Background(), []string{
		"import", "-site", sitePath, "-input", csvPath, "-db", dbPath, "-pollutant", "no2",
	}, noEnv, &bytes.Buffer{})
	assert.Error(t, err, "an explicit pollutant must be present in the file")
}

func TestMigrateSubcommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "airq.db")
	var out bytes.Buffer
	require.NoError(t, dispatch(context.Background(), []string{"migrate", "-db", dbPath, "up"}, noEnv, &out))
	assert.Contains(t, out.String(), "Current version: 2")

	env := func(k string) string {
		if k == envDB {
			return dbPath
		}
		return ""
	}
	out.Reset()
	require.NoError(t, dispatch(context.Background(), []string{"migrate", "status"}, env, &out))
	assert.Contains(t, out.String(), "up to date")
}

func TestServeHandler_AfterRun(t *testing.T) {
	sitePath, csvPath := writeFixture(t)
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	dbPath := filepath.Join(dir, "airq.db")
	require.NoError(t, dispatch(context.Background(), []string{
		"-site", sitePath, "-input", csvPath, "-out", outDir, "-db", dbPath,
	}, noEnv, &bytes.Buffer{}))

	sc, err := parseServeFlags([]string{"-out", outDir, "-db", dbPath}, noEnv)
	require.NoError(t, err)
	assert.Equal(t, ":8080", sc.Listen)

	handler, closeDB, err := newServeHandler(sc)
	require.NoError(t, err)
	defer closeDB()

	rec := testutil.Get(t, handler, "/api/days")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"days":["2025-08-01"]}`, rec.Body.String())

	rec = testutil.Get(t, handler, "/api/runs?site=harbor")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"day":"2025-08-01"`)
}

func TestServe_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := dispatch(ctx, []string{"serve", "-out", t.TempDir(), "-listen", "127.0.0.1:0"}, noEnv, &bytes.Buffer{})
	assert.NoError(t, err)
}
