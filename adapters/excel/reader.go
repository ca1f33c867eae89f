package excel

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"trolleymatch/domain/sheet"
	"trolleymatch/internal"
	"trolleymatch/internal/errors"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

var allowedExtensions = []string{".xlsx", ".xls"}

// AllowedExtension reports whether filename looks like a workbook we can read
func AllowedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range allowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// Reader loads the first worksheet of .xlsx (excelize) and .xls (extrame/xls) workbooks
type Reader struct {
	logger *internal.Logger
}

// NewReader creates a workbook reader
func NewReader(logger *internal.Logger) *Reader {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Reader{logger: logger.With("SheetReader")}
}

// Read returns the header and data rows of the first worksheet
func (r *Reader) Read(ctx context.Context, path string) (*sheet.Sheet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	var (
		name string
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		name, rows, err = readXLSX(path)
	case ".xls":
		name, rows, err = readXLS(path)
	default:
		return nil, errors.InvalidFileType(filepath.Base(path))
	}
	if err != nil {
		r.logger.Warn("FAILED - %s: %v", filepath.Base(path), err)
		return nil, errors.SpreadsheetUnreadable(err)
	}

	data, err := processRows(name, rows)
	if err != nil {
		return nil, errors.SpreadsheetUnreadable(err)
	}

	r.logger.Info("%s read in %.2fms (%d columns, %d rows)",
		filepath.Base(path), float64(time.Since(start).Nanoseconds())/1e6, len(data.Headers), len(data.Rows))
	return data, nil
}

func readXLSX(path string) (string, [][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return "", nil, fmt.Errorf("failed to read %s: %w", sheets[0], err)
	}
	return sheets[0], rows, nil
}

// readXLS reads legacy BIFF workbooks. extrame/xls panics on some malformed
// files, so panics are turned into errors.
func readXLS(path string) (name string, rows [][]string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("malformed xls file: %v", rec)
		}
	}()

	wb, err := xls.Open(path, "utf-8")
	if err != nil {
		return "", nil, fmt.Errorf("failed to open workbook: %w", err)
	}

	ws := wb.GetSheet(0)
	if ws == nil {
		return "", nil, fmt.Errorf("workbook has no sheets")
	}

	for i := 0; i <= int(ws.MaxRow); i++ {
		row := ws.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, row.LastCol())
		for j := row.FirstCol(); j < row.LastCol(); j++ {
			cells[j] = row.Col(j)
		}
		rows = append(rows, cells)
	}
	return ws.Name, rows, nil
}

// processRows turns raw string rows into a Sheet. The first row is the header;
// blank headers become "Unnamed: N" and repeated ones get a ".1", ".2" suffix.
// Entirely blank data rows are dropped.
func processRows(name string, rows [][]string) (*sheet.Sheet, error) {
	if len(rows) == 0 || isBlankRow(rows[0]) {
		return nil, fmt.Errorf("sheet %q has no header row", name)
	}

	headers := normalizeHeaders(rows[0])

	dataRows := make([]sheet.Row, 0, len(rows)-1)
	for _, raw := range rows[1:] {
		if isBlankRow(raw) {
			continue
		}
		row := make(sheet.Row, len(headers))
		for j, header := range headers {
			if j < len(raw) {
				row[header] = strings.TrimSpace(raw[j])
			} else {
				row[header] = ""
			}
		}
		dataRows = append(dataRows, row)
	}

	return &sheet.Sheet{Name: name, Headers: headers, Rows: dataRows}, nil
}

func normalizeHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	seen := make(map[string]int, len(raw))
	for i, cell := range raw {
		header := strings.TrimSpace(cell)
		if header == "" {
			header = fmt.Sprintf("Unnamed: %d", i)
		}
		if n, dup := seen[header]; dup {
			seen[header] = n + 1
			header = fmt.Sprintf("%s.%d", header, n+1)
		} else {
			seen[header] = 0
		}
		headers[i] = header
	}
	return headers
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
