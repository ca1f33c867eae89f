package trolley

import (
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"trolleymatch/domain/match"

	"github.com/PuerkitoBio/goquery"
)

var (
	sizePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(\d+(?:\.\d+)?\s*(?:ml|l|g|kg|oz))`),
		regexp.MustCompile(`(\d+(?:\.\d+)?\s*[a-zA-Z]+)`),
		regexp.MustCompile(`([\d.]+\s*[a-zA-Z]+)`),
	}
	// Applied to the whole item text; a hit only counts when it is within 1..100.
	textQuantityPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(\d+)\s*[x×]\s*\d+\s*[a-z]+`),
		regexp.MustCompile(`(?i)(\d+)\s*[x×]`),
		regexp.MustCompile(`(?i)[x×]\s*(\d+)`),
		regexp.MustCompile(`(?i)(\d+)\s*pack`),
		regexp.MustCompile(`(?i)pack\s*of\s*(\d+)`),
	}
	firstNumber  = regexp.MustCompile(`(\d+)`)
	poundsAmount = regexp.MustCompile(`£[\d.,]+`)
	spaces       = regexp.MustCompile(`\s+`)
)

const (
	unknownBrand       = "Unknown"
	unknownDescription = "No description"
	unknownSize        = "Unknown"
	unknownPrice       = "Unknown"
	defaultQuantity    = "1"
	maxSizeFallback    = 20
)

// Parser reads product cards out of a search result page
type Parser struct {
	selectors Selectors
	base      *url.URL
}

// NewParser creates a parser resolving relative links against baseURL
func NewParser(selectors Selectors, baseURL string) (*Parser, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	return &Parser{selectors: selectors, base: base}, nil
}

// Parse returns every product card on the page. A page without cards yields
// an empty slice and no error.
func (p *Parser) Parse(r io.Reader, searchURL string) ([]match.Product, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var items *goquery.Selection
	for _, sel := range p.selectors.Items {
		items = doc.Find(sel)
		if items.Length() > 0 {
			break
		}
	}
	if items == nil || items.Length() == 0 {
		return []match.Product{}, nil
	}

	products := make([]match.Product, 0, items.Length())
	items.Each(func(_ int, item *goquery.Selection) {
		product := p.extract(item)
		product.SearchURL = searchURL
		products = append(products, product)
	})
	return products, nil
}

func (p *Parser) extract(item *goquery.Selection) match.Product {
	product := match.Product{
		Brand:       unknownBrand,
		Description: unknownDescription,
		Size:        unknownSize,
		Quantity:    defaultQuantity,
		Price:       unknownPrice,
	}

	if node := firstMatch(item, p.selectors.Brand); node != nil {
		product.Brand = cleanText(node)
	}
	if node := firstMatch(item, p.selectors.Description); node != nil {
		product.Description = cleanText(node)
	}

	sizeNode := firstMatch(item, p.selectors.Size)
	if sizeNode != nil {
		sizeText := cleanText(sizeNode)
		if p.selectors.SizeValue != "" {
			if inner := sizeNode.Find(p.selectors.SizeValue).First(); inner.Length() > 0 {
				sizeText = cleanText(inner)
			}
		}
		if sizeText != "" {
			product.Size = extractSize(sizeText)
		}
	}

	product.Quantity = p.extractQuantity(item, sizeNode)

	for _, sel := range p.selectors.Price {
		node := item.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		if price := poundsAmount.FindString(cleanText(node)); price != "" {
			product.Price = price
			break
		}
	}

	if p.selectors.Link != "" {
		if href, ok := item.Find(p.selectors.Link).First().Attr("href"); ok && href != "" {
			product.URL = p.resolve(href)
		}
	}

	return product
}

func (p *Parser) extractQuantity(item, sizeNode *goquery.Selection) string {
	quantity := defaultQuantity

	candidates := make([]*goquery.Selection, 0, 2*len(p.selectors.Quantity))
	for _, sel := range p.selectors.Quantity {
		candidates = append(candidates, item.Find(sel).First())
	}
	if sizeNode != nil {
		for _, sel := range p.selectors.Quantity {
			candidates = append(candidates, sizeNode.Find(sel).First())
		}
	}
	for _, node := range candidates {
		if node.Length() == 0 {
			continue
		}
		if m := firstNumber.FindString(cleanText(node)); m != "" {
			quantity = m
			break
		}
	}

	fullText := item.Text()
	for _, pattern := range textQuantityPatterns {
		m := pattern.FindStringSubmatch(fullText)
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 && n <= 100 {
			quantity = m[1]
			break
		}
	}
	return quantity
}

func (p *Parser) resolve(href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	return p.base.ResolveReference(ref).String()
}

func extractSize(text string) string {
	for _, pattern := range sizePatterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			return strings.ToLower(strings.ReplaceAll(m[1], " ", ""))
		}
	}
	runes := []rune(text)
	if len(runes) > maxSizeFallback {
		runes = runes[:maxSizeFallback]
	}
	return string(runes)
}

func firstMatch(item *goquery.Selection, selectors []string) *goquery.Selection {
	for _, sel := range selectors {
		if node := item.Find(sel).First(); node.Length() > 0 {
			return node
		}
	}
	return nil
}

func cleanText(s *goquery.Selection) string {
	return strings.TrimSpace(spaces.ReplaceAllString(s.Text(), " "))
}
