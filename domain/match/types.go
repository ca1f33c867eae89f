package match

import "strconv"

// NotAvailable fills Matched_* fields of rows without a match
const NotAvailable = "N/A"

// Product is one record returned by the scraper for a search
type Product struct {
	Brand       string `json:"brand"`
	Description string `json:"description"`
	Size        string `json:"size"`
	Quantity    string `json:"quantity"`
	Price       string `json:"price"`
	URL         string `json:"url"`
	SearchURL   string `json:"search_url"`
}

// SKU is the brand, size and pack quantity parsed from an input product name.
// Quantity is 0 when it could not be determined.
type SKU struct {
	Name     string
	Brand    string
	Size     string
	Quantity int
}

// QuantityString renders the quantity the way it appears in the export
func (s SKU) QuantityString() string {
	if s.Quantity == 0 {
		return ""
	}
	return strconv.Itoa(s.Quantity)
}

// Tier describes how closely the chosen product matches the parsed SKU
type Tier string

const (
	TierPerfect   Tier = "Tier 1 (Perfect)"
	TierBrandSize Tier = "Tier 2 (Brand+Size)"
	TierBrandOnly Tier = "Tier 3 (Brand Only)"
	TierFallback  Tier = "Tier 4 (Fallback)"
	TierNone      Tier = "None"
)

// Tiers lists every tier in report order
var Tiers = []Tier{TierPerfect, TierBrandSize, TierBrandOnly, TierFallback, TierNone}

// Status is the outcome of looking up one row
type Status string

const (
	StatusMatched   Status = "Matched"
	StatusNoResults Status = "No Results"
	StatusNoMatch   Status = "No Match"
)

// Header is the column order of the exported CSV
var Header = []string{
	"SKU_Name",
	"Parsed_Brand",
	"Parsed_Size",
	"Parsed_Quantity",
	"Search_URL",
	"Match_Status",
	"Matched_Brand",
	"Matched_Description",
	"Matched_Size",
	"Matched_Quantity",
	"Matched_Price",
	"Matched_URL",
	"Match_Tier",
}

// Result is one exported row: the input value plus the scraper's fields
type Result struct {
	SKU       SKU
	SearchURL string
	Status    Status
	Matched   *Product
	Tier      Tier
}

// NewMatched builds a row for a product chosen by the matcher
func NewMatched(sku SKU, searchURL string, product Product, tier Tier) Result {
	return Result{SKU: sku, SearchURL: searchURL, Status: StatusMatched, Matched: &product, Tier: tier}
}

// NewUnmatched builds a row with N/A product fields
func NewUnmatched(sku SKU, searchURL string, status Status) Result {
	return Result{SKU: sku, SearchURL: searchURL, Status: status, Tier: TierNone}
}

// Record returns the row in Header order
func (r Result) Record() []string {
	p := Product{
		Brand:       NotAvailable,
		Description: NotAvailable,
		Size:        NotAvailable,
		Quantity:    NotAvailable,
		Price:       NotAvailable,
		URL:         NotAvailable,
	}
	if r.Matched != nil {
		p = *r.Matched
	}
	return []string{
		r.SKU.Name,
		r.SKU.Brand,
		r.SKU.Size,
		r.SKU.QuantityString(),
		r.SearchURL,
		string(r.Status),
		p.Brand,
		p.Description,
		p.Size,
		p.Quantity,
		p.Price,
		p.URL,
		string(r.Tier),
	}
}
