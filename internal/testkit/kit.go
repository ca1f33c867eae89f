package testkit

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"trolleymatch/domain/match"

	"github.com/xuri/excelize/v2"
)

// WriteWorkbook writes headers and rows to Sheet1 of a new .xlsx file in dir
// and returns its path.
func WriteWorkbook(dir, filename string, headers []string, rows [][]string) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheetName = "Sheet1"
	if err := writeRow(f, sheetName, 1, headers); err != nil {
		return "", err
	}
	for i, row := range rows {
		if err := writeRow(f, sheetName, i+2, row); err != nil {
			return "", err
		}
	}

	path := filepath.Join(dir, filename)
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save workbook: %w", err)
	}
	return path, nil
}

func writeRow(f *excelize.File, sheetName string, rowNum int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return f.SetSheetRow(sheetName, cell, &cells)
}

// StubScraper is an in-memory ProductScraper keyed by product name
type StubScraper struct {
	mu       sync.Mutex
	Catalog  map[string][]match.Product
	Failures map[string]error
	Calls    []string
}

// NewStubScraper creates a scraper with an empty catalogue
func NewStubScraper() *StubScraper {
	return &StubScraper{
		Catalog:  make(map[string][]match.Product),
		Failures: make(map[string]error),
	}
}

// Search returns the catalogue entry for name, or the configured failure
func (s *StubScraper) Search(ctx context.Context, name string) ([]match.Product, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Calls = append(s.Calls, name)
	searchURL := "https://www.trolley.co.uk/search/?from=search&q=" + name
	if err := ctx.Err(); err != nil {
		return nil, searchURL, err
	}
	if err, ok := s.Failures[name]; ok {
		return nil, searchURL, err
	}
	return s.Catalog[name], searchURL, nil
}

// CallCount returns how many searches were made
func (s *StubScraper) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Calls)
}
