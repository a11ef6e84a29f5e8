package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// LoadError describes a failed upload parse.
type LoadError struct {
	File   string
	Format Format
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s (%s): %v", e.File, e.Format, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// LoadOptions controls parsing limits.
type LoadOptions struct {
	// MaxRows caps the number of data rows read. Zero means no cap.
	MaxRows int
}

// FormatFromName picks the parser from the file extension. Only ".csv" is
// treated as delimited text; everything else is read as a workbook.
func FormatFromName(name string) Format {
	if strings.EqualFold(filepath.Ext(name), ".csv") {
		return FormatCSV
	}
	return FormatXLSX
}

// Load parses an uploaded file into a Dataset.
func Load(name string, r io.Reader, opts LoadOptions) (*Dataset, error) {
	format := FormatFromName(name)

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &LoadError{File: name, Format: format, Err: fmt.Errorf("read upload: %w", err)}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &LoadError{File: name, Format: format, Err: ErrEmptyFile}
	}

	var (
		records   [][]string
		overrides map[int]ColumnType
	)
	switch format {
	case FormatCSV:
		records, err = readCSV(bytes.NewReader(data), opts.MaxRows)
	default:
		records, overrides, err = readWorkbook(bytes.NewReader(data), opts.MaxRows)
	}
	if err != nil {
		return nil, &LoadError{File: name, Format: format, Err: err}
	}

	ds, err := build(name, format, records, overrides)
	if err != nil {
		return nil, &LoadError{File: name, Format: format, Err: err}
	}
	return ds, nil
}

// readCSV reads comma-separated records through the text sanitizer.
func readCSV(r io.Reader, maxRows int) ([][]string, error) {
	cr := csv.NewReader(newTextReader(r))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var records [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
		}
		records = append(records, rec)
		if maxRows > 0 && len(records) > maxRows {
			break
		}
	}
	return records, nil
}
