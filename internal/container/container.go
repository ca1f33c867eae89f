package container

import (
	"fmt"

	"trolleymatch/adapters/csvexport"
	"trolleymatch/adapters/excel"
	"trolleymatch/adapters/trolley"
	"trolleymatch/app"
	"trolleymatch/internal"
	"trolleymatch/internal/config"
	"trolleymatch/internal/metrics"
	"trolleymatch/internal/storage"
	"trolleymatch/ports"
	"trolleymatch/ui"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure
	Metrics *metrics.Metrics
	Uploads *storage.Uploads
	Results *storage.Results

	// Adapters
	Reader  ports.SheetReader
	Writer  ports.ResultWriter
	Scraper ports.ProductScraper

	// Services
	MatchService *app.MatchService
}

// Option overrides a dependency before the container is wired
type Option func(*Container)

// WithLogger replaces the logger built from LOG_LEVEL
func WithLogger(logger *internal.Logger) Option {
	return func(c *Container) { c.Logger = logger }
}

// WithScraper replaces the Trolley client, typically with a stub in tests
func WithScraper(scraper ports.ProductScraper) Option {
	return func(c *Container) { c.Scraper = scraper }
}

// New creates a new dependency injection container
func New(cfg *config.Config, opts ...Option) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	c := &Container{Config: cfg}
	for _, opt := range opts {
		opt(c)
	}
	if c.Logger == nil {
		c.Logger = internal.NewLogger(internal.ParseLogLevel(cfg.Log.Level))
	}

	c.initInfrastructure()
	if err := c.initAdapters(); err != nil {
		return nil, fmt.Errorf("failed to initialize adapters: %w", err)
	}
	c.MatchService = app.NewMatchService(c.Scraper, c.Writer, c.Results, c.Metrics, c.Logger)

	c.Logger.With("Container").Debug("Container initialized")
	return c, nil
}

func (c *Container) initInfrastructure() {
	c.Metrics = metrics.New()
	c.Uploads = storage.NewUploads(c.Config.Storage.UploadDir)
	c.Results = storage.NewResults(c.Config.Storage.ResultsDir)
}

func (c *Container) initAdapters() error {
	c.Reader = excel.NewReader(c.Logger)
	c.Writer = csvexport.NewWriter()

	if c.Scraper == nil {
		client, err := trolley.NewClient(c.Config.Scraper, c.Logger)
		if err != nil {
			return err
		}
		c.Scraper = client
	}
	return nil
}

// UIDeps returns the collaborators of the web server
func (c *Container) UIDeps() ui.Deps {
	return ui.Deps{
		Config:  c.Config,
		Reader:  c.Reader,
		Service: c.MatchService,
		Uploads: c.Uploads,
		Results: c.Results,
		Metrics: c.Metrics,
		Logger:  c.Logger,
	}
}
