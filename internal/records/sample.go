package records

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// SampleFileName is the download name for a sample in the given format.
func SampleFileName(f Format) string {
	return fmt.Sprintf("sample %s file.%s", f, f)
}

// ContentType for a data file format.
func ContentType(f Format) string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// WriteSample writes a header of fields followed by a single row of empty
// values. No fields produce an empty document.
func WriteSample(w io.Writer, fields []string, f Format) error {
	switch f {
	case FormatCSV:
		return writeSampleCSV(w, fields)
	case FormatXLSX:
		return writeSampleXLSX(w, fields)
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
}

func writeSampleCSV(w io.Writer, fields []string) error {
	if len(fields) == 0 {
		return nil
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(fields); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if len(fields) == 1 {
		// a lone empty field would be written as a blank line, which
		// readers drop
		cw.Flush()
		if err := cw.Error(); err != nil {
			return err
		}
		_, err := io.WriteString(w, "\"\"\n")
		return err
	}
	if err := cw.Write(make([]string, len(fields))); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}
	cw.Flush()
	return cw.Error()
}

func writeSampleXLSX(w io.Writer, fields []string) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	header := make([]interface{}, len(fields))
	empty := make([]interface{}, len(fields))
	for i, h := range fields {
		header[i] = h
		empty[i] = ""
	}
	if len(fields) > 0 {
		if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		if err := f.SetSheetRow(sheet, "A2", &empty); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	return f.Write(w)
}
