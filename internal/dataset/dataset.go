// Package dataset holds the in-memory table built from an uploaded file and
// the column-type classification that decides which columns each chart kind
// may use.
//
// A Dataset is created once per upload and never mutated afterwards. A new
// upload replaces it wholesale.
package dataset

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/google/uuid"
)

// Format identifies how an uploaded file was parsed.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

var (
	// ErrEmptyFile is returned when the upload has no header or no data rows.
	ErrEmptyFile = errors.New("empty file")

	// ErrInvalidFormat is returned when the upload cannot be parsed.
	ErrInvalidFormat = errors.New("invalid file format")

	// ErrNoColumns is returned when the header row has no usable names.
	ErrNoColumns = errors.New("no columns found")

	// ErrUnknownColumn is returned when a column name is not in the dataset.
	ErrUnknownColumn = errors.New("unknown column")
)

// missingTokens are cell values treated as missing, matched case-sensitively
// after trimming. The set mirrors the NA strings common dataframe readers
// recognize by default.
var missingTokens = map[string]bool{
	"":         true,
	"#N/A":     true,
	"#N/A N/A": true,
	"#NA":      true,
	"-1.#IND":  true,
	"-1.#QNAN": true,
	"-NaN":     true,
	"-nan":     true,
	"1.#IND":   true,
	"1.#QNAN":  true,
	"<NA>":     true,
	"N/A":      true,
	"NA":       true,
	"NULL":     true,
	"NaN":      true,
	"None":     true,
	"n/a":      true,
	"nan":      true,
	"null":     true,
}

// IsMissing reports whether a raw cell value counts as missing.
func IsMissing(s string) bool {
	return missingTokens[strings.TrimSpace(s)]
}

// naCell is the token gota recognizes as a missing element.
const naCell = "NaN"

// Dataset is an immutable table with named, typed columns.
type Dataset struct {
	ID       string
	Name     string
	Format   Format
	LoadedAt time.Time

	frame dataframe.DataFrame
	sets  ColumnSets
}

// New builds a Dataset from raw records. The first record is the header.
// Cells are trimmed, missing-value tokens are normalized, and column types
// are detected from the data.
func New(name string, format Format, records [][]string) (*Dataset, error) {
	return build(name, format, records, nil)
}

// build is New with per-column type overrides keyed by column position.
// Overrides come from sources that know more than the cell text, such as
// workbook cell types and number formats.
func build(name string, format Format, records [][]string, overrides map[int]ColumnType) (*Dataset, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no header row", ErrEmptyFile)
	}

	header, err := normalizeHeader(records[0])
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(records)-1)
	for i, rec := range records[1:] {
		if isEmptyRow(rec) {
			continue
		}
		if len(rec) > len(header) {
			return nil, fmt.Errorf("%w: line %d has %d fields, header has %d",
				ErrInvalidFormat, i+2, len(rec), len(header))
		}
		row := make([]string, len(header))
		for j := range header {
			if j < len(rec) {
				row[j] = normalizeCell(rec[j])
			} else {
				row[j] = naCell
			}
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no data rows after header", ErrEmptyFile)
	}

	frame := dataframe.LoadRecords(
		append([][]string{header}, rows...),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.DefaultType(series.String),
	)
	if frame.Err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, frame.Err)
	}

	return &Dataset{
		ID:       uuid.New().String(),
		Name:     name,
		Format:   format,
		LoadedAt: time.Now(),
		frame:    frame,
		sets:     classify(frame.Names(), frame.Types(), overrides),
	}, nil
}

// Names returns the column names in file order.
func (d *Dataset) Names() []string {
	return d.frame.Names()
}

// NumRows returns the number of data rows.
func (d *Dataset) NumRows() int {
	return d.frame.Nrow()
}

// NumCols returns the number of columns.
func (d *Dataset) NumCols() int {
	return d.frame.Ncol()
}

// Types returns the detected storage type of every column, in file order.
func (d *Dataset) Types() []series.Type {
	return d.frame.Types()
}

func (d *Dataset) column(name string) (series.Series, error) {
	for _, n := range d.frame.Names() {
		if n == name {
			return d.frame.Col(name), nil
		}
	}
	return series.Series{}, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
}

// Floats returns the values of a numeric column. Missing values are NaN.
func (d *Dataset) Floats(name string) ([]float64, error) {
	col, err := d.column(name)
	if err != nil {
		return nil, err
	}
	switch col.Type() {
	case series.Int, series.Float:
	default:
		return nil, fmt.Errorf("column %q is %s, not numeric", name, col.Type())
	}

	vals := col.Float()
	missing := col.IsNaN()
	for i := range vals {
		if missing[i] {
			vals[i] = math.NaN()
		}
	}
	return vals, nil
}

// Labels returns the values of a column as display labels plus a mask
// marking missing entries.
func (d *Dataset) Labels(name string) ([]string, []bool, error) {
	col, err := d.column(name)
	if err != nil {
		return nil, nil, err
	}
	return formatColumn(col), col.IsNaN(), nil
}

// Preview is the head of a dataset formatted for display.
type Preview struct {
	Header    []string
	Rows      [][]string
	TotalRows int
}

// Preview returns the first limit rows. A limit of zero or less returns all rows.
func (d *Dataset) Preview(limit int) Preview {
	n := d.frame.Nrow()
	if limit > 0 && limit < n {
		n = limit
	}

	names := d.frame.Names()
	cols := make([][]string, len(names))
	for j, name := range names {
		col := d.frame.Col(name)
		vals := formatColumn(col)
		missing := col.IsNaN()
		for i := range vals {
			if missing[i] {
				vals[i] = ""
			}
		}
		cols[j] = vals
	}

	rows := make([][]string, n)
	for i := 0; i < n; i++ {
		row := make([]string, len(names))
		for j := range names {
			row[j] = cols[j][i]
		}
		rows[i] = row
	}

	return Preview{Header: names, Rows: rows, TotalRows: d.frame.Nrow()}
}

// formatColumn renders every element of a series without gota's fixed
// six-decimal float formatting.
func formatColumn(col series.Series) []string {
	if col.Type() != series.Float {
		return col.Records()
	}
	vals := col.Float()
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return out
}

func normalizeHeader(raw []string) ([]string, error) {
	header := make([]string, len(raw))
	named := 0
	taken := make(map[string]bool, len(raw))
	for _, h := range raw {
		taken[strings.TrimSpace(h)] = true
	}

	used := make(map[string]bool, len(raw))
	next := make(map[string]int, len(raw))
	for i, h := range raw {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		} else {
			named++
		}
		// Duplicate names get the first numeric suffix that no other column
		// already uses, so every column stays addressable.
		if used[h] {
			base := h
			for {
				next[base]++
				h = fmt.Sprintf("%s.%d", base, next[base])
				if !used[h] && !taken[h] {
					break
				}
			}
		}
		used[h] = true
		header[i] = h
	}

	if named == 0 {
		return nil, ErrNoColumns
	}
	return header, nil
}

func normalizeCell(s string) string {
	s = strings.TrimSpace(s)
	if missingTokens[s] {
		return naCell
	}
	switch strings.ToLower(s) {
	case "true":
		return "true"
	case "false":
		return "false"
	}
	return s
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
