package testkit

import (
	"fmt"
	"html"
	"strings"

	"trolleymatch/domain/match"
)

// SearchPageHTML renders products using the markup of a Trolley search page.
// The Quantity field is rendered into the _qty node when set.
func SearchPageHTML(products []match.Product) string {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html><body><section id="search-results">`)
	for _, p := range products {
		b.WriteString(`<div class="product-item">`)
		fmt.Fprintf(&b, `<a href="%s">`, html.EscapeString(p.URL))
		fmt.Fprintf(&b, `<div class="_brand">%s</div>`, html.EscapeString(p.Brand))
		fmt.Fprintf(&b, `<div class="_desc">%s</div>`, html.EscapeString(p.Description))
		b.WriteString(`<div class="_size">`)
		fmt.Fprintf(&b, `<div>%s</div>`, html.EscapeString(p.Size))
		if p.Quantity != "" {
			fmt.Fprintf(&b, `<div class="_qty">%s pack</div>`, html.EscapeString(p.Quantity))
		}
		b.WriteString(`</div>`)
		fmt.Fprintf(&b, `<div class="_price">%s</div>`, html.EscapeString(p.Price))
		b.WriteString(`</a></div>`)
	}
	b.WriteString(`</section></body></html>`)
	return b.String()
}
