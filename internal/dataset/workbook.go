package dataset

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// cellKind is what a workbook cell holds once its number format is ignored.
type cellKind int

const (
	cellEmpty cellKind = iota
	cellNumber
	cellText
	cellBool
	cellDate
)

// builtinDateFormats are the built-in number format ids that render a serial
// number as a date or time, including the locale-specific ranges.
var builtinDateFormats = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 18: true, 19: true, 20: true, 21: true, 22: true,
	27: true, 28: true, 29: true, 30: true, 31: true, 32: true, 33: true, 34: true, 35: true, 36: true,
	45: true, 46: true, 47: true,
	50: true, 51: true, 52: true, 53: true, 54: true, 55: true, 56: true, 57: true, 58: true,
}

// sheetReader resolves raw cell values on one sheet, remembering which
// styles carry a date format.
type sheetReader struct {
	f          *excelize.File
	sheet      string
	date1904   bool
	dateStyles map[int]bool
}

// readWorkbook reads the first sheet of a spreadsheet. The first populated
// row is the header; rows shorter than the widest row are padded with empty
// cells. Values are read unformatted so that currency, percent and thousands
// formats do not turn numbers into text. The returned overrides mark columns
// whose type follows from their cells rather than their text: all-date
// columns are excluded, and columns mixing text or dates with other values
// are categorical.
func readWorkbook(r io.Reader, maxRows int) ([][]string, map[int]ColumnType, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("%w: workbook has no sheets", ErrInvalidFormat)
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: sheet %q: %v", ErrInvalidFormat, sheet, err)
	}

	// GetRows starts at sheet row 1, so first is the header's zero-based row.
	first := 0
	for first < len(rows) && isEmptyRow(rows[first]) {
		first++
	}
	rows = rows[first:]
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("%w: sheet %q has no rows", ErrEmptyFile, sheet)
	}
	if maxRows > 0 && len(rows) > maxRows+1 {
		rows = rows[:maxRows+1]
	}

	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	for i, row := range rows {
		if len(row) < width {
			padded := make([]string, width)
			copy(padded, row)
			rows[i] = padded
		}
	}

	sr := &sheetReader{f: f, sheet: sheet, dateStyles: make(map[int]bool)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		sr.date1904 = *props.Date1904
	}

	counts := make([]map[cellKind]int, width)
	for j := range counts {
		counts[j] = make(map[cellKind]int)
	}
	for i := 1; i < len(rows); i++ {
		for j, raw := range rows[i] {
			ref, err := excelize.CoordinatesToCellName(j+1, first+i+1)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
			}
			val, kind := sr.cell(ref, raw)
			rows[i][j] = val
			counts[j][kind]++
		}
	}

	overrides := make(map[int]ColumnType)
	for j, c := range counts {
		filled := c[cellNumber] + c[cellText] + c[cellBool] + c[cellDate]
		switch {
		case c[cellDate] > 0 && c[cellDate] == filled:
			overrides[j] = Unsupported
		case c[cellText] > 0 || c[cellDate] > 0:
			overrides[j] = Categorical
		}
	}
	return rows, overrides, nil
}

// cell returns the text stored for a cell and what kind of value it holds.
// Booleans become "true"/"false", dates become ISO 8601 text, and error
// values such as #N/A are missing.
func (sr *sheetReader) cell(ref, raw string) (string, cellKind) {
	if IsMissing(raw) {
		return raw, cellEmpty
	}

	typ, err := sr.f.GetCellType(sr.sheet, ref)
	if err != nil {
		return raw, cellText
	}
	switch typ {
	case excelize.CellTypeBool:
		switch raw {
		case "1":
			return "true", cellBool
		case "0":
			return "false", cellBool
		}
		return raw, cellBool
	case excelize.CellTypeDate:
		return raw, cellDate
	case excelize.CellTypeError:
		return "", cellEmpty
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula:
		return raw, cellText
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return raw, cellText
	}
	if sr.isDateStyled(ref) {
		if t, err := excelize.ExcelDateToTime(v, sr.date1904); err == nil {
			return formatDate(t), cellDate
		}
	}
	return raw, cellNumber
}

func (sr *sheetReader) isDateStyled(ref string) bool {
	id, err := sr.f.GetCellStyle(sr.sheet, ref)
	if err != nil {
		return false
	}
	if date, ok := sr.dateStyles[id]; ok {
		return date
	}

	date := false
	if style, err := sr.f.GetStyle(id); err == nil && style != nil {
		if style.CustomNumFmt != nil {
			date = isDateFormatCode(*style.CustomNumFmt)
		} else {
			date = builtinDateFormats[style.NumFmt]
		}
	}
	sr.dateStyles[id] = date
	return date
}

// isDateFormatCode reports whether a custom number format renders dates or
// times. Quoted literals, escaped characters and bracketed modifiers such as
// colors and currency locales are skipped; elapsed-time brackets like [h]
// count as time.
func isDateFormatCode(code string) bool {
	// Only the positive section decides how a plain value is shown.
	section, _, _ := strings.Cut(code, ";")

	var rest strings.Builder
	for i := 0; i < len(section); i++ {
		switch c := section[i]; c {
		case '"':
			end := strings.IndexByte(section[i+1:], '"')
			if end < 0 {
				i = len(section)
			} else {
				i += end + 1
			}
		case '\\', '_', '*':
			i++
		case '[':
			end := strings.IndexByte(section[i+1:], ']')
			if end < 0 {
				i = len(section)
				continue
			}
			inner := strings.ToLower(section[i+1 : i+1+end])
			if strings.Trim(inner, "hms") == "" && inner != "" {
				return true
			}
			i += end + 1
		default:
			rest.WriteByte(c)
		}
	}
	return strings.ContainsAny(strings.ToLower(rest.String()), "ymdhs")
}

func formatDate(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.DateTime)
}
