// Package sheet holds the in-memory form of an uploaded spreadsheet.
package sheet

import "strings"

// Row represents one data row keyed by header
type Row map[string]string

// Sheet is the first worksheet of an uploaded workbook
type Sheet struct {
	Name    string
	Headers []string
	Rows    []Row
}

// ColumnPreview is a column name with a few sample values for the column picker
type ColumnPreview struct {
	Name    string
	Samples []string
}

// HasColumn reports whether name is one of the headers
func (s *Sheet) HasColumn(name string) bool {
	for _, h := range s.Headers {
		if h == name {
			return true
		}
	}
	return false
}

// TotalRows returns the number of data rows, header excluded
func (s *Sheet) TotalRows() int {
	return len(s.Rows)
}

// IsBlank reports whether a cell counts as missing. "nan" is treated as blank
// because sheets exported from pandas carry it literally.
func IsBlank(value string) bool {
	v := strings.TrimSpace(value)
	return v == "" || strings.EqualFold(v, "nan")
}

// NonEmpty returns up to limit non-blank values of column in row order.
// A limit <= 0 returns all of them.
func (s *Sheet) NonEmpty(column string, limit int) []string {
	var values []string
	for _, row := range s.Rows {
		v, ok := row[column]
		if !ok || IsBlank(v) {
			continue
		}
		values = append(values, strings.TrimSpace(v))
		if limit > 0 && len(values) == limit {
			break
		}
	}
	return values
}

// Previews returns every column with up to n sample values
func (s *Sheet) Previews(n int) []ColumnPreview {
	previews := make([]ColumnPreview, 0, len(s.Headers))
	for _, h := range s.Headers {
		previews = append(previews, ColumnPreview{Name: h, Samples: s.NonEmpty(h, n)})
	}
	return previews
}
