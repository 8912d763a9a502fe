// Package ingest reads tabular observation files (CSV and XLSX) and maps
// their columns onto observations.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/banshee-data/airquality.report/internal/fsutil"
)

// ErrUnsupportedFormat is returned for files that are neither CSV nor XLSX.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Table is a header plus string rows. Rows may be shorter than the header
// when trailing cells are empty.
type Table struct {
	Header []string
	Rows   [][]string
}

// ReadTable loads path from fsys, choosing the reader by extension.
// sheet selects the XLSX worksheet; empty means the first sheet.
func ReadTable(fsys fsutil.FileSystem, path, sheet string) (Table, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return Table{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var rows [][]string
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		rows, err = readCSV(f)
	case ".xlsx":
		rows, err = readXLSX(f, sheet)
	default:
		return Table{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return Table{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return newTable(rows)
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	return reader.ReadAll()
}

func readXLSX(r io.Reader, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func newTable(rows [][]string) (Table, error) {
	if len(rows) == 0 {
		return Table{}, fmt.Errorf("file has no header row")
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		// Excel exports sometimes carry a UTF-8 BOM on the first header.
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	return Table{Header: header, Rows: rows[1:]}, nil
}

// Index returns the position of the first header equal to one of names,
// trying names in order. It returns -1 when none match.
func (t Table) Index(names ...string) int {
	for _, name := range names {
		if name == "" {
			continue
		}
		for i, h := range t.Header {
			if h == name {
				return i
			}
		}
	}
	return -1
}

// cell returns row[i] trimmed, or "" when the row is short or i < 0.
func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
