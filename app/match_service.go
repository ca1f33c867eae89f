package app

import (
	"context"
	"io"
	"strings"
	"time"

	"trolleymatch/domain/match"
	"trolleymatch/domain/run"
	"trolleymatch/domain/sheet"
	"trolleymatch/internal"
	"trolleymatch/internal/errors"
	"trolleymatch/internal/matching"
	"trolleymatch/internal/metrics"
	"trolleymatch/ports"
)

// MatchService looks up one column of a sheet row by row and exports the matches
type MatchService struct {
	scraper ports.ProductScraper
	writer  ports.ResultWriter
	store   ports.ResultStore
	metrics *metrics.Metrics
	logger  *internal.Logger
	now     func() time.Time
}

// RunRequest describes one processing run
type RunRequest struct {
	Sheet    *sheet.Sheet
	Column   string
	Limit    run.Limit
	Filename string
}

// NewMatchService creates a match service. store may be nil when results are
// only ever streamed through Export.
func NewMatchService(scraper ports.ProductScraper, writer ports.ResultWriter, store ports.ResultStore, m *metrics.Metrics, logger *internal.Logger) *MatchService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &MatchService{
		scraper: scraper,
		writer:  writer,
		store:   store,
		metrics: m,
		logger:  logger.With("MatchService"),
		now:     time.Now,
	}
}

// Match processes the first Limit.Rows non-blank values of the column.
// Lookup failures become "No Results" rows. Only cancellation stops the run.
func (s *MatchService) Match(ctx context.Context, req RunRequest) (*run.Report, error) {
	if req.Sheet == nil {
		return nil, errors.InvalidInput("No spreadsheet loaded")
	}
	column := strings.TrimSpace(req.Column)
	if column == "" || !req.Sheet.HasColumn(column) {
		s.metrics.Run(metrics.OutcomeRejected)
		return nil, errors.InvalidColumn(column)
	}

	limit := req.Limit.Clamped()
	names := req.Sheet.NonEmpty(column, limit.Rows)
	s.logger.Info("Processing %d rows from column %q of %s (limit %d)", len(names), column, req.Filename, limit.Rows)

	results := make([]match.Result, 0, len(names))
	for i, name := range names {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("Run cancelled after %d of %d rows", i, len(names))
			s.metrics.Run(metrics.OutcomeFailed)
			return nil, err
		}

		result, err := s.lookup(ctx, name)
		if err != nil {
			s.metrics.Run(metrics.OutcomeFailed)
			return nil, err
		}
		s.logger.Debug("[%d/%d] %s -> %s (%s)", i+1, len(names), name, result.Status, result.Tier)
		s.metrics.Row(string(result.Status))
		results = append(results, result)
	}

	report := &run.Report{
		Filename:   req.Filename,
		Column:     column,
		Limit:      limit,
		Results:    results,
		TierCounts: run.CountTiers(results),
		Prices:     run.SummarizePrices(results),
	}
	s.metrics.Run(metrics.OutcomeOK)
	return report, nil
}

// Run matches the request and saves the CSV to the result store
func (s *MatchService) Run(ctx context.Context, req RunRequest) (*run.Report, error) {
	if s.store == nil {
		return nil, errors.InternalError("no result store configured")
	}

	report, err := s.Match(ctx, req)
	if err != nil {
		return nil, err
	}

	name, w, err := s.store.Create(s.now())
	if err != nil {
		return nil, err
	}
	if err := s.Export(w, report.Results); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to save results")
	}

	report.CSVName = name
	s.logger.Info("Saved %d rows to %s", report.Processed(), name)
	return report, nil
}

// Export writes results in the configured output format
func (s *MatchService) Export(w io.Writer, results []match.Result) error {
	if err := s.writer.Write(w, results); err != nil {
		return errors.Wrap(err, "failed to write results")
	}
	return nil
}

// ContentType is the media type produced by Export
func (s *MatchService) ContentType() string {
	return s.writer.ContentType()
}

// Extension is the file extension produced by Export
func (s *MatchService) Extension() string {
	return s.writer.Extension()
}

// lookup returns an error only when ctx was cancelled
func (s *MatchService) lookup(ctx context.Context, name string) (match.Result, error) {
	sku := matching.ParseSKU(name)

	start := time.Now()
	candidates, searchURL, err := s.scraper.Search(ctx, name)
	s.metrics.ObserveScrape(time.Since(start))

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return match.Result{}, ctxErr
		}
		s.logger.Warn("Search failed for %q: %v", name, err)
		return match.NewUnmatched(sku, searchURL, match.StatusNoResults), nil
	}
	if len(candidates) == 0 {
		return match.NewUnmatched(sku, searchURL, match.StatusNoResults), nil
	}

	best, ok := matching.BestMatch(sku, candidates)
	if !ok {
		return match.NewUnmatched(sku, searchURL, match.StatusNoMatch), nil
	}
	return match.NewMatched(sku, searchURL, best, matching.Classify(sku, best)), nil
}
