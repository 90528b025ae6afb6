package csvexport

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"docuflow/internal/domain"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// Writer streams an aggregated schema table as CSV. Every cell, header
// included, is wrapped in double quotes regardless of content, with internal
// quotes doubled. Rows are separated by a bare newline.
type Writer struct {
	w   io.Writer
	err error
}

// NewWriter creates a Writer that writes CSV to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteTable writes the header row followed by every data row. Row cells are
// emitted in column order; a missing key produces an empty quoted cell.
func (w *Writer) WriteTable(table *domain.SchemaTable) error {
	w.writeRow(table.Columns)
	for _, row := range table.Rows {
		cells := make([]string, len(table.Columns))
		for i, col := range table.Columns {
			cells[i] = row[col]
		}
		w.writeRow(cells)
	}
	return w.err
}

func (w *Writer) writeRow(cells []string) {
	if w.err != nil {
		return
	}
	var sb strings.Builder
	for i, cell := range cells {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(quote(cell))
	}
	sb.WriteByte('\n')
	_, w.err = io.WriteString(w.w, sb.String())
}

// Error returns the first write error encountered.
func (w *Writer) Error() error {
	return w.err
}

// quote wraps a cell in double quotes unconditionally, doubling any internal
// quotes.
func quote(cell string) string {
	return `"` + strings.ReplaceAll(cell, `"`, `""`) + `"`
}

var (
	nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9\-_]+`)
	multiUnderscore = regexp.MustCompile(`_+`)
)

// SanitizeFilename cleans a schema name for use in Content-Disposition.
// Replaces non-alphanumeric chars (except - _) with _, collapses consecutive
// underscores, and truncates to 100 chars.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// BuildFilename returns a sanitized filename for the Content-Disposition header.
// Format: {sanitized_schema_name}_{YYYY-MM-DD}.{ext}
func BuildFilename(schemaName, ext string) string {
	sanitized := SanitizeFilename(schemaName)
	date := time.Now().Format("2006-01-02")
	return fmt.Sprintf("%s_%s.%s", sanitized, date, ext)
}
