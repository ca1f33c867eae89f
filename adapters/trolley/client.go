// Package trolley looks product names up on trolley.co.uk search pages.
package trolley

import (
	"bytes"
	"context"
	"net/url"
	"time"

	"trolleymatch/domain/match"
	"trolleymatch/internal"
	"trolleymatch/internal/config"
	"trolleymatch/internal/errors"

	"github.com/gocolly/colly/v2"
)

// Client implements ports.ProductScraper against the Trolley search page
type Client struct {
	baseURL      string
	timeout      time.Duration
	maxRetries   int
	retryBackoff time.Duration
	userAgent    string
	parser       *Parser
	logger       *internal.Logger
}

// NewClient builds a client from scraper configuration
func NewClient(cfg config.ScraperConfig, logger *internal.Logger) (*Client, error) {
	if logger == nil {
		logger = internal.DefaultLogger
	}

	selectors, err := LoadSelectors(cfg.SelectorsFile)
	if err != nil {
		return nil, errors.Wrap(errors.ConfigInvalid(err.Error()), "failed to load scraper selectors")
	}
	parser, err := NewParser(selectors, cfg.BaseURL)
	if err != nil {
		return nil, errors.Wrap(errors.ConfigInvalid(err.Error()), "failed to configure scraper")
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	return &Client{
		baseURL:      cfg.BaseURL,
		timeout:      cfg.Timeout,
		maxRetries:   maxRetries,
		retryBackoff: cfg.RetryBackoff,
		userAgent:    cfg.UserAgent,
		parser:       parser,
		logger:       logger.With("Trolley"),
	}, nil
}

// SearchURL returns the search page address for a product name
func (c *Client) SearchURL(name string) string {
	query := url.Values{}
	query.Set("from", "search")
	query.Set("q", name)
	return c.baseURL + "/search/?" + query.Encode()
}

// Search fetches the search page for name and returns every product card on it.
// Transport and HTTP status errors are retried with a linear backoff.
func (c *Client) Search(ctx context.Context, name string) ([]match.Product, string, error) {
	searchURL := c.SearchURL(name)

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		c.logger.Debug("Searching for %q (attempt %d): %s", name, attempt, searchURL)

		body, err := c.fetch(ctx, searchURL)
		if err == nil {
			products, err := c.parser.Parse(bytes.NewReader(body), searchURL)
			if err != nil {
				return nil, searchURL, errors.ExternalServiceError("trolley", err)
			}
			c.logger.Info("Found %d products for %q", len(products), name)
			return products, searchURL, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, searchURL, ctxErr
		}
		lastErr = err
		c.logger.Warn("Request failed (attempt %d/%d): %v", attempt, c.maxRetries, err)

		if attempt < c.maxRetries {
			if err := sleep(ctx, time.Duration(attempt)*c.retryBackoff); err != nil {
				return nil, searchURL, err
			}
		}
	}

	c.logger.Error("Failed to get search results for %q after %d attempts", name, c.maxRetries)
	return nil, searchURL, errors.ExternalServiceError("trolley", lastErr)
}

// fetch downloads one page with a fresh collector so revisits and retries
// never hit colly's visited-URL cache.
func (c *Client) fetch(ctx context.Context, target string) ([]byte, error) {
	collector := colly.NewCollector(
		colly.UserAgent(c.userAgent),
		colly.StdlibContext(ctx),
		colly.AllowURLRevisit(),
	)
	if c.timeout > 0 {
		collector.SetRequestTimeout(c.timeout)
	}

	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-GB,en;q=0.5")
	})

	var body []byte
	collector.OnResponse(func(r *colly.Response) {
		body = r.Body
	})

	if err := collector.Visit(target); err != nil {
		return nil, err
	}
	collector.Wait()
	return body, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
