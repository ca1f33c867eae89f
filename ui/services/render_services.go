package services

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"io/fs"

	"trolleymatch/internal"
	"trolleymatch/ui/templates/fragments"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// RenderService executes page templates
type RenderService struct {
	templates *template.Template
	logger    *internal.Logger
}

// NewRenderService parses every registered template from fsys
func NewRenderService(fsys fs.FS, funcs template.FuncMap, logger *internal.Logger) (*RenderService, error) {
	if logger == nil {
		logger = internal.DefaultLogger
	}

	templates := template.New("").Funcs(funcs)
	for _, path := range fragments.GetAllTemplatePaths() {
		content, err := fs.ReadFile(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("failed to read template %s: %w", path, err)
		}
		if _, err := templates.New(path).Parse(string(content)); err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", path, err)
		}
	}

	logger.With("TemplateInit").Debug("Parsed %d templates", len(fragments.GetAllTemplatePaths()))
	return &RenderService{templates: templates, logger: logger.With("Render")}, nil
}

// Render executes name into a buffer first so a failing template never
// leaves a half written page behind.
func (s *RenderService) Render(w io.Writer, name string, data interface{}) error {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error("Template error for %s: %v", name, err)
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

// RenderMarkdown converts trusted, embedded markdown to HTML
func RenderMarkdown(source []byte) template.HTML {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.HrefTargetBlank})
	return template.HTML(markdown.ToHTML(source, p, renderer))
}
