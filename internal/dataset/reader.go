package dataset

import (
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// newTextReader strips a leading UTF-8 BOM (common in files saved by Excel
// on Windows) and replaces invalid UTF-8 sequences with U+FFFD, so a stray
// Latin-1 byte does not abort the whole upload.
func newTextReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}
