// Package api serves finished analysis output over HTTP: the processed day
// index, each day's frames and plots, and recorded runs.
package api

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/airquality.report/internal/airq/l1observations"
	"github.com/banshee-data/airquality.report/internal/db"
	"github.com/banshee-data/airquality.report/internal/fsutil"
	"github.com/banshee-data/airquality.report/internal/httputil"
	"github.com/banshee-data/airquality.report/internal/report"
	"github.com/banshee-data/airquality.report/internal/security"
)

// ANSI escape codes for request logging
const (
	colorCyan      = "\033[36m"
	colorReset     = "\033[0m"
	colorYellow    = "\033[33m"
	colorBoldGreen = "\033[1;32m"
	colorBoldRed   = "\033[1;31m"
)

// plotTypes are the day files served by the plots route.
var plotTypes = map[string]string{
	report.SeriesFile:    "image/png",
	report.AlignmentFile: "image/png",
	report.FieldFile:     "text/html; charset=utf-8",
}

// Server reads an output tree written by report.Exporter.
type Server struct {
	fs   fsutil.FileSystem
	root string
	db   *db.DB
}

// NewServer returns a Server over root. database may be nil, in which
// case the runs route answers 404.
func NewServer(fsys fsutil.FileSystem, root string, database *db.DB) *Server {
	return &Server{fs: fsys, root: root, db: database}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// ServeMux registers the read-only routes.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/days", s.listDays)
	mux.HandleFunc("GET /api/days/{day}/frames", s.dayFrames)
	mux.HandleFunc("GET /api/days/{day}/frames/{index}", s.dayFrame)
	mux.HandleFunc("GET /api/days/{day}/plots/{name}", s.dayPlot)
	mux.HandleFunc("GET /api/runs", s.listRuns)
	return mux
}

func (s *Server) listDays(w http.ResponseWriter, r *http.Request) {
	path, err := security.SafeJoin(s.root, report.IndexFile)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	days := []string{}
	data, err := s.fs.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		httputil.InternalServerError(w, "failed to read day index")
		return
	default:
		for _, line := range strings.Split(string(data), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				days = append(days, line)
			}
		}
	}
	httputil.WriteJSONOK(w, map[string][]string{"days": days})
}

func (s *Server) dayFrames(w http.ResponseWriter, r *http.Request) {
	data, ok := s.readDayFile(w, r.PathValue("day"), report.FramesFile)
	if !ok {
		return
	}
	httputil.WriteBytes(w, "application/json", data)
}

func (s *Server) dayFrame(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || idx < 0 {
		httputil.BadRequest(w, "frame index must be a non-negative integer")
		return
	}
	data, ok := s.readDayFile(w, r.PathValue("day"), report.FramesFile)
	if !ok {
		return
	}
	var doc report.DayExport
	if err := json.Unmarshal(data, &doc); err != nil {
		httputil.InternalServerError(w, "failed to decode frames")
		return
	}
	if idx >= len(doc.Frames) {
		httputil.NotFound(w, "frame index out of range")
		return
	}
	httputil.WriteJSONOK(w, doc.Frames[idx])
}

func (s *Server) dayPlot(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	contentType, ok := plotTypes[name]
	if !ok {
		httputil.NotFound(w, "unknown plot "+name)
		return
	}
	data, ok := s.readDayFile(w, r.PathValue("day"), name)
	if !ok {
		return
	}
	httputil.WriteBytes(w, contentType, data)
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		httputil.NotFound(w, "run store not configured")
		return
	}
	site := r.URL.Query().Get("site")
	if site == "" {
		httputil.BadRequest(w, "site query parameter is required")
		return
	}
	runs, err := s.db.ListRuns(site, r.URL.Query().Get("pollutant"))
	if err != nil {
		httputil.InternalServerError(w, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []db.AnalysisRun{}
	}
	httputil.WriteJSONOK(w, runs)
}

// readDayFile validates day and reads name from its directory, writing the
// error response itself when it returns false.
func (s *Server) readDayFile(w http.ResponseWriter, day, name string) ([]byte, bool) {
	if _, err := l1observations.ParseDay(day); err != nil {
		httputil.BadRequest(w, err.Error())
		return nil, false
	}
	path, err := security.SafeJoin(s.root, day, name)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return nil, false
	}
	data, err := s.fs.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		httputil.NotFound(w, "no "+filepath.Base(path)+" for "+day)
		return nil, false
	}
	if err != nil {
		httputil.InternalServerError(w, "failed to read "+name)
		return nil, false
	}
	return data, true
}
