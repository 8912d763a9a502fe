// Package report writes analysis output: per-day frame JSON, the index of
// processed days and diagnostic plots.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/banshee-data/airquality.report/internal/airq/l5frames"
	"github.com/banshee-data/airquality.report/internal/fsutil"
	"github.com/banshee-data/airquality.report/internal/security"
)

// File names inside a day directory.
const (
	FramesFile    = "frames.json"
	IndexFile     = "index.txt"
	SeriesFile    = "series.png"
	AlignmentFile = "alignment.png"
	FieldFile     = "field.html"
)

// DayExport is the frames.json document.
type DayExport struct {
	Site          string                   `json:"site"`
	SiteName      string                   `json:"site_name,omitempty"`
	Pollutant     string                   `json:"pollutant"`
	PollutantName string                   `json:"pollutant_name,omitempty"`
	Unit          string                   `json:"unit,omitempty"`
	Day           string                   `json:"day"`
	DayLabel      string                   `json:"day_label"`
	Timezone      string                   `json:"timezone"`
	RunID         string                   `json:"run_id,omitempty"`
	Stats         l5frames.Stats           `json:"stats"`
	VisMin        float64                  `json:"vis_min"`
	VisMax        float64                  `json:"vis_max"`
	Dropped       []string                 `json:"dropped_sensors"`
	Frames        []l5frames.AnalysisFrame `json:"frames"`
}

// Exporter writes day output below Root through FS.
type Exporter struct {
	FS   fsutil.FileSystem
	Root string
}

// NewExporter returns an Exporter rooted at root. The root directory is
// created if needed.
func NewExporter(fs fsutil.FileSystem, root string) (*Exporter, error) {
	if err := fs.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", root, err)
	}
	return &Exporter{FS: fs, Root: root}, nil
}

// DayDir returns the directory for day, creating it.
func (e *Exporter) DayDir(day string) (string, error) {
	dir, err := security.SafeJoin(e.Root, day)
	if err != nil {
		return "", err
	}
	if err := e.FS.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return dir, nil
}

// WriteDay writes <root>/<day>/frames.json and returns its path.
func (e *Exporter) WriteDay(doc DayExport) (string, error) {
	if _, err := e.DayDir(doc.Day); err != nil {
		return "", err
	}
	if doc.Dropped == nil {
		doc.Dropped = []string{}
	}
	if doc.Frames == nil {
		doc.Frames = []l5frames.AnalysisFrame{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return "", fmt.Errorf("failed to encode frames for %s: %w", doc.Day, err)
	}

	path, err := security.SafeJoin(e.Root, doc.Day, FramesFile)
	if err != nil {
		return "", err
	}
	if err := e.FS.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// WriteIndex writes <root>/index.txt with one processed day per line.
func (e *Exporter) WriteIndex(days []string) error {
	path, err := security.SafeJoin(e.Root, IndexFile)
	if err != nil {
		return err
	}
	body := strings.Join(days, "\n")
	if len(days) > 0 {
		body += "\n"
	}
	if err := e.FS.WriteFile(path, []byte(body), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// PlotOptions labels the diagnostic set for one day.
type PlotOptions struct {
	Title     string
	Unit      string
	Names     map[string]string
	Threshold float64
	Location  *time.Location
	// FieldFrame picks the frame for the field chart. Negative means the
	// frame with the largest sensor value.
	FieldFrame int
	Scale      FieldScale
}

// WritePlots writes the series PNG, the alignment PNG and the field chart
// into the day directory.
func (e *Exporter) WritePlots(day string, res l5frames.Result, po PlotOptions) error {
	if len(res.Frames) == 0 {
		return nil
	}
	if _, err := e.DayDir(day); err != nil {
		return err
	}

	series, err := SeriesPlot(res.Grid, res.Tracks, po.Title+" pollution", po.Unit, po.Names, po.Location)
	if err != nil {
		return err
	}
	if err := e.writeWith(day, SeriesFile, func(b *bytes.Buffer) error { return WritePNG(b, series) }); err != nil {
		return err
	}

	align, err := AlignmentPlot(res.Frames, po.Threshold, po.Title+" alignment", po.Location)
	if err != nil {
		return err
	}
	if err := e.writeWith(day, AlignmentFile, func(b *bytes.Buffer) error { return WritePNG(b, align) }); err != nil {
		return err
	}

	idx := po.FieldFrame
	if idx < 0 || idx >= len(res.Frames) {
		idx = PeakFrame(res.Frames)
	}
	frame := res.Frames[idx]
	return e.writeWith(day, FieldFile, func(b *bytes.Buffer) error {
		return WriteFieldChart(b, frame, po.Title+" "+frame.TimeLabel, po.Scale)
	})
}

func (e *Exporter) writeWith(day, name string, render func(*bytes.Buffer) error) error {
	path, err := security.SafeJoin(e.Root, day, name)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	w, err := e.FS.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		w.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return w.Close()
}

// PeakFrame returns the index of the frame holding the largest sensor
// value, or 0 when frames carry no sensors.
func PeakFrame(frames []l5frames.AnalysisFrame) int {
	best, bestVal := 0, 0.0
	found := false
	for i, f := range frames {
		for _, s := range f.Sensors {
			if !found || s.Pollution > bestVal {
				best, bestVal, found = i, s.Pollution, true
			}
		}
	}
	return best
}
