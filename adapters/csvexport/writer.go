// Package csvexport writes run results as CSV.
package csvexport

import (
	"encoding/csv"
	"fmt"
	"io"

	"trolleymatch/domain/match"
)

// utf8BOM lets Excel detect the encoding, so "£" survives a double-click open
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Writer renders results as UTF-8 CSV with a byte order mark
type Writer struct{}

// NewWriter creates a CSV writer
func NewWriter() *Writer {
	return &Writer{}
}

// Write emits the header row followed by one record per result
func (Writer) Write(w io.Writer, results []match.Result) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(match.Header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for i, r := range results {
		if err := cw.Write(r.Record()); err != nil {
			return fmt.Errorf("failed to write CSV row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ContentType is the MIME type of the export
func (Writer) ContentType() string {
	return "text/csv; charset=utf-8"
}

// Extension is the file extension of the export
func (Writer) Extension() string {
	return ".csv"
}
