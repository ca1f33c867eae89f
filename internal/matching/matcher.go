package matching

import (
	"strconv"
	"strings"

	"trolleymatch/domain/match"
)

// BestMatch picks the candidate closest to the parsed SKU. Tiers are tried in
// order: brand+size+quantity, brand+size, brand only, then the first candidate.
// It reports false only when there are no candidates.
func BestMatch(sku match.SKU, candidates []match.Product) (match.Product, bool) {
	if len(candidates) == 0 {
		return match.Product{}, false
	}

	expectedQty := ""
	if sku.Quantity != 0 {
		expectedQty = strconv.Itoa(sku.Quantity)
	}

	for _, c := range candidates {
		if brandMatches(sku.Brand, c.Brand) && sizeMatches(sku.Size, c.Size) && qtyMatches(expectedQty, c.Quantity) {
			return c, true
		}
	}
	for _, c := range candidates {
		if brandMatches(sku.Brand, c.Brand) && sizeMatches(sku.Size, c.Size) {
			return c, true
		}
	}
	for _, c := range candidates {
		if brandMatches(sku.Brand, c.Brand) {
			return c, true
		}
	}
	return candidates[0], true
}

// Classify reports the tier of a chosen product. It is stricter than
// BestMatch: the parsed brand has to appear inside the product brand.
func Classify(sku match.SKU, product match.Product) match.Tier {
	brand := sku.Brand == "" || strings.Contains(strings.ToLower(product.Brand), strings.ToLower(sku.Brand))
	size := sizeMatches(sku.Size, product.Size)
	qty := sku.Quantity == 0 || strconv.Itoa(sku.Quantity) == product.Quantity

	switch {
	case brand && size && qty:
		return match.TierPerfect
	case brand && size:
		return match.TierBrandSize
	case brand:
		return match.TierBrandOnly
	default:
		return match.TierFallback
	}
}

// brandMatches is lenient: containment either way, or any word of the
// expected brand longer than three letters found in the candidate brand.
func brandMatches(expected, candidate string) bool {
	if expected == "" {
		return true
	}
	e := strings.ToLower(expected)
	c := strings.ToLower(strings.TrimSpace(candidate))
	// a blank candidate brand is not evidence of a match
	if c == "" {
		return false
	}
	if strings.Contains(c, e) || strings.Contains(e, c) {
		return true
	}
	for _, word := range strings.Fields(e) {
		if len(word) > 3 && strings.Contains(c, word) {
			return true
		}
	}
	return false
}

func sizeMatches(expected, candidate string) bool {
	if expected == "" {
		return true
	}
	return strings.Contains(strings.ToLower(candidate), strings.ToLower(expected))
}

func qtyMatches(expected, candidate string) bool {
	return expected == "" || expected == candidate
}
