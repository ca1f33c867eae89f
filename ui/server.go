// Package ui serves the upload, configure and export pages.
package ui

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"trolleymatch/app"
	"trolleymatch/internal"
	"trolleymatch/internal/config"
	"trolleymatch/internal/metrics"
	"trolleymatch/internal/storage"
	"trolleymatch/ports"
	"trolleymatch/ui/middleware"
	"trolleymatch/ui/services"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html static help.md
var embeddedFiles embed.FS

// multipart parts above this size spill to temporary files
const multipartMemory = 8 << 20

// Deps are the collaborators the server needs
type Deps struct {
	Config  *config.Config
	Reader  ports.SheetReader
	Service *app.MatchService
	Uploads *storage.Uploads
	Results *storage.Results
	Metrics *metrics.Metrics
	Logger  *internal.Logger
}

// Server represents the web server
type Server struct {
	router  *gin.Engine
	render  *services.RenderService
	help    template.HTML
	config  *config.Config
	reader  ports.SheetReader
	service *app.MatchService
	uploads *storage.Uploads
	results *storage.Results
	metrics *metrics.Metrics
	logger  *internal.Logger
}

// NewServer creates a new web server instance with routes registered
func NewServer(deps Deps) (*Server, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Logger == nil {
		deps.Logger = internal.DefaultLogger
	}

	templatesFS, err := fs.Sub(embeddedFiles, "templates")
	if err != nil {
		return nil, fmt.Errorf("failed to create templates filesystem: %w", err)
	}
	render, err := services.NewRenderService(templatesFS, templateFuncs(), deps.Logger)
	if err != nil {
		return nil, err
	}
	helpSource, err := embeddedFiles.ReadFile("help.md")
	if err != nil {
		return nil, fmt.Errorf("failed to read help text: %w", err)
	}

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.MaxMultipartMemory = multipartMemory

	s := &Server{
		router:  router,
		render:  render,
		help:    services.RenderMarkdown(helpSource),
		config:  deps.Config,
		reader:  deps.Reader,
		service: deps.Service,
		uploads: deps.Uploads,
		results: deps.Results,
		metrics: deps.Metrics,
		logger:  deps.Logger.With("UI"),
	}

	if err := s.setupStatic(); err != nil {
		return nil, err
	}
	s.setupRoutes()
	return s, nil
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"pounds": func(v float64) string { return fmt.Sprintf("£%.2f", v) },
	}
}

func (s *Server) setupStatic() error {
	staticFS, err := fs.Sub(embeddedFiles, "static")
	if err != nil {
		return fmt.Errorf("failed to create static filesystem: %w", err)
	}
	s.router.StaticFS("/static", http.FS(staticFS))
	return nil
}

// setupRoutes configures the application routes
func (s *Server) setupRoutes() {
	cfg := s.config

	s.router.GET("/", s.handleIndex)
	s.router.POST("/upload",
		middleware.MaxBodySize(cfg.Server.MaxUploadBytes()),
		middleware.SweepFiles(cfg.Storage.FileTTL, s.logger, s.uploads.Dir(), s.results.Dir()),
		s.handleUpload,
	)
	s.router.POST("/process", s.handleProcess)
	s.router.GET("/download/:name", s.handleDownload)

	api := s.router.Group("/api")
	api.POST("/process", s.handleAPIProcess)

	s.router.GET("/healthz", s.handleHealth)
	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the web server
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting Trolley Match on http://%s", addr)
	return s.router.Run(addr)
}
