package report

import (
	"fmt"
	"image/color"
	"io"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/airquality.report/internal/airq/l2series"
	"github.com/banshee-data/airquality.report/internal/airq/l5frames"
)

const (
	plotWidth  = 14 * vg.Inch
	plotHeight = 6 * vg.Inch
)

// SeriesPlot draws every sensor's smoothed pollution across the day.
// names maps sensor IDs to legend labels; missing entries use the ID.
func SeriesPlot(grid l2series.TimeGrid, tracks []l5frames.SensorTrack, title, unit string, names map[string]string, loc *time.Location) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Time"
	p.Y.Label.Text = "Pollution"
	if unit != "" {
		p.Y.Label.Text = fmt.Sprintf("Pollution (%s)", unit)
	}
	p.X.Tick.Marker = timeTicks(loc)

	x := grid.Seconds()
	colors := generateColors(len(tracks))
	for i, tr := range tracks {
		series := tr.PollutionSeries()
		pts := make(plotter.XYs, len(series))
		for j, v := range series {
			pts[j] = plotter.XY{X: x[j], Y: v}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("sensor %s line: %w", tr.ID(), err)
		}
		line.Color = colors[i]
		line.Width = vg.Points(1.5)
		p.Add(line)

		name := tr.ID()
		if n, ok := names[name]; ok && n != "" {
			name = n
		}
		p.Legend.Add(name, line)
	}
	configureLegend(p)
	return p, nil
}

// AlignmentPlot draws the per-frame alignment score with the
// accumulating and dispersing thresholds.
func AlignmentPlot(frames []l5frames.AnalysisFrame, threshold float64, title string, loc *time.Location) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Time"
	p.Y.Label.Text = "Wind / gradient alignment"
	p.X.Tick.Marker = timeTicks(loc)
	p.Y.Min = -1.05
	p.Y.Max = 1.05

	pts := make(plotter.XYs, len(frames))
	for i, f := range frames {
		pts[i] = plotter.XY{X: float64(f.Timestamp.Unix()), Y: f.Alignment}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("alignment line: %w", err)
	}
	line.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	line.Width = vg.Points(1.5)
	p.Add(line)
	p.Legend.Add("alignment", line)

	for _, level := range []float64{threshold, -threshold} {
		ref := plotter.NewFunction(func(float64) float64 { return level })
		ref.Color = color.Gray{Y: 128}
		ref.Width = vg.Points(1)
		ref.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
		p.Add(ref)
	}
	configureLegend(p)
	return p, nil
}

// WritePNG renders p as a PNG into w.
func WritePNG(w io.Writer, p *plot.Plot) error {
	wt, err := p.WriterTo(plotWidth, plotHeight, "png")
	if err != nil {
		return fmt.Errorf("failed to render plot: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write plot: %w", err)
	}
	return nil
}

func configureLegend(p *plot.Plot) {
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
}

func timeTicks(loc *time.Location) plot.Ticker {
	if loc == nil {
		loc = time.UTC
	}
	return plot.TimeTicks{
		Format: "15:04",
		Time: func(t float64) time.Time {
			return time.Unix(int64(t), 0).In(loc)
		},
	}
}

// generateColors creates a palette of distinct colors for sensor lines
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}

	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(n)
		r, g, b := hslToRGB(hue, 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64

	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}

	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	if t < 1.0/6.0 {
		return p + (q-p)*6*t
	}
	if t < 1.0/2.0 {
		return q
	}
	if t < 2.0/3.0 {
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
