package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/airquality.report/internal/airq/l5frames"
)

// viridis stops for the field colour scale.
var viridis = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// FieldScale fixes the colour range. A zero scale uses the field's own
// range.
type FieldScale struct {
	Min float64
	Max float64
}

// WriteFieldChart renders one frame's interpolated field as an HTML
// scatter heatmap with the sensors overlaid.
func WriteFieldChart(w io.Writer, f l5frames.AnalysisFrame, title string, scale FieldScale) error {
	field := f.Field
	if field.Resolution == 0 || len(field.Values) == 0 {
		return fmt.Errorf("frame %d has no field", f.Index)
	}

	lo, hi := scale.Min, scale.Max
	if lo == 0 && hi == 0 {
		lo, hi = field.Range()
	}
	if hi <= lo {
		hi = lo + 1
	}

	lons, lats := field.Lons(), field.Lats()
	cells := make([]opts.ScatterData, 0, field.Resolution*field.Resolution)
	for r, row := range field.Values {
		for c, v := range row {
			cells = append(cells, opts.ScatterData{Value: []interface{}{lons[c], lats[r], v}})
		}
	}
	sensors := make([]opts.ScatterData, 0, len(f.Sensors))
	for _, s := range f.Sensors {
		sensors = append(sensors, opts.ScatterData{
			Name:  s.SensorID,
			Value: []interface{}{s.Lon, s.Lat, s.Pollution},
		})
	}

	ext := field.Extent
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: fmt.Sprintf("%s transport=%s alignment=%.2f field=%s", f.TimeLabel, f.Transport, f.Alignment, f.FieldMethod),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: ext.LonMin, Max: ext.LonMax, Name: "Longitude", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: ext.LatMin, Max: ext.LatMax, Name: "Latitude", NameLocation: "middle", NameGap: 40}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(lo),
			Max:        float32(hi),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: viridis},
		}),
	)
	scatter.AddSeries("field", cells, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 22}))
	scatter.AddSeries("sensors", sensors,
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 18}),
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top", Formatter: "{b}"}),
	)

	if err := scatter.Render(w); err != nil {
		return fmt.Errorf("failed to render field chart: %w", err)
	}
	return nil
}
