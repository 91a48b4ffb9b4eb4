package records

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

var ErrUnsupportedFormat = errors.New("unsupported format")

// ParseFormat maps a user-supplied format name; empty means CSV.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// FormatFor picks the parser for a file name. Anything that is not an
// Excel workbook is read as CSV text.
func FormatFor(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	}
	return FormatCSV
}

// Parse reads a data file, choosing the parser by name.
func Parse(r io.Reader, name string) (RecordSet, error) {
	if FormatFor(name) == FormatXLSX {
		return ParseXLSX(r, name)
	}
	return ParseCSV(r, name)
}

// ParseCSV reads comma-separated rows with a header. Ragged rows are
// accepted: short rows leave keys absent, surplus cells are dropped.
func ParseCSV(r io.Reader, name string) (RecordSet, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	rows, err := cr.ReadAll()
	if err != nil {
		return RecordSet{}, fmt.Errorf("reading %s: %w", name, err)
	}
	return fromRows(name, rows), nil
}

// ParseXLSX reads the first sheet of a workbook with the same header rules
// as ParseCSV.
func ParseXLSX(r io.Reader, name string) (RecordSet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return RecordSet{}, fmt.Errorf("opening %s: %w", name, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return RecordSet{Name: name}, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return RecordSet{}, fmt.Errorf("reading %s sheet %q: %w", name, sheets[0], err)
	}
	return fromRows(name, rows), nil
}

func fromRows(name string, rows [][]string) RecordSet {
	rs := RecordSet{Name: name, Header: []string{}, Records: []Record{}}
	if len(rows) < 1 {
		return rs
	}
	header := rows[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	rs.Header = header

	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		rec := Record{Values: map[string]string{}}
		for i, h := range header {
			if h == "" || i >= len(row) {
				continue
			}
			rec.Set(h, row[i])
		}
		rs.Records = append(rs.Records, rec)
	}
	return rs
}
