package ports

import (
	"context"

	"trolleymatch/domain/match"
)

// ProductScraper looks a product name up on the retailer site.
// It returns every product found for the search (possibly none) together with
// the URL of the search page, which is exported even when nothing matched.
type ProductScraper interface {
	Search(ctx context.Context, name string) ([]match.Product, string, error)
}
