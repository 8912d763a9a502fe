package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/banshee-data/airquality.report/internal/airq/l1observations"
	"github.com/banshee-data/airquality.report/internal/fsutil"
	"github.com/banshee-data/airquality.report/internal/units"
)

// ObservationHeader is the column layout written by ObservationTable.
func ObservationHeader(pollutionColumn string) []string {
	return []string{"timestamp", "sensor_id", "lat", "lon", pollutionColumn, "wind_dir", "wind_speed"}
}

// ObservationTable lays obs out under ObservationHeader. Timestamps are
// RFC 3339 in loc (UTC when nil), wind speeds are converted from m/s to
// speedUnits (m/s when empty) and missing numbers become empty cells.
func ObservationTable(obs []l1observations.Observation, pollutionColumn, speedUnits string, loc *time.Location) Table {
	if loc == nil {
		loc = time.UTC
	}
	if speedUnits == "" {
		speedUnits = units.MPS
	}
	t := Table{Header: ObservationHeader(pollutionColumn), Rows: make([][]string, 0, len(obs))}
	for _, o := range obs {
		t.Rows = append(t.Rows, []string{
			o.Timestamp.In(loc).Format(time.RFC3339),
			o.SensorID,
			formatNumber(o.Lat),
			formatNumber(o.Lon),
			formatNumber(o.Pollution),
			formatNumber(o.WindDirDeg),
			formatNumber(units.ConvertSpeed(o.WindSpeed, speedUnits)),
		})
	}
	return t
}

// WriteTable writes t to path, choosing CSV or XLSX by extension.
func WriteTable(fsys fsutil.FileSystem, path string, t Table) error {
	var buf bytes.Buffer
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		w := csv.NewWriter(&buf)
		if err := w.Write(t.Header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		if err := w.WriteAll(t.Rows); err != nil {
			return fmt.Errorf("failed to write rows: %w", err)
		}
	case ".xlsx":
		if err := writeXLSX(&buf, t); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err := fsys.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func writeXLSX(buf *bytes.Buffer, t Table) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	write := func(rowNum int, cells []string) error {
		ref, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}
		row := make([]interface{}, len(cells))
		for i, c := range cells {
			row[i] = c
		}
		return f.SetSheetRow(sheet, ref, &row)
	}
	if err := write(1, t.Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, r := range t.Rows {
		if err := write(i+2, r); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	if _, err := f.WriteTo(buf); err != nil {
		return fmt.Errorf("failed to encode workbook: %w", err)
	}
	return nil
}

func formatNumber(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
