// Package fragments provides template path constants for the web pages
package fragments

import "strings"

// Template names, relative to ui/templates
const (
	// Layout
	Layout = "layout.html"

	// Pages, one per step of the flow
	Index        = "index.html"
	SelectColumn = "select_column.html"
	Results      = "results.html"
)

// GetAllTemplatePaths returns all template paths for registration
func GetAllTemplatePaths() []string {
	return []string{
		Layout,
		Index,
		SelectColumn,
		Results,
	}
}

// GetPagePaths returns the templates that render a full page
func GetPagePaths() []string {
	var pages []string
	for _, path := range GetAllTemplatePaths() {
		if path != Layout && strings.HasSuffix(path, ".html") {
			pages = append(pages, path)
		}
	}
	return pages
}
