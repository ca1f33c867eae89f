// Package matching parses product names into brand/size/quantity and picks the
// closest product out of a search result list.
package matching

import (
	"regexp"
	"strconv"
	"strings"

	"trolleymatch/domain/match"
)

const unitPattern = `(ml|l|g|kg|cl|oz|fl\s*oz)`

// Tried in order; the first hit wins.
var packPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d+)\s*[x×]\s*(\d+(?:\.\d+)?)\s*` + unitPattern),
	regexp.MustCompile(`(?i)(\d+)\s*[x×]\s*(\d+(?:\.\d+)?)\s*([a-z]+)`),
	regexp.MustCompile(`(?i)(\d+)\s*pack.*?(\d+(?:\.\d+)?)\s*` + unitPattern),
}

var (
	sizePattern        = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*` + unitPattern)
	digitPattern       = regexp.MustCompile(`\d`)
	trailingNoise      = regexp.MustCompile(`\s+(x|X|×|\d+)\s*$`)
	whitespace         = regexp.MustCompile(`\s+`)
	unitSpaceCollapser = strings.NewReplacer(" ", "", "\t", "")
)

// ParseSKU extracts brand, size and pack quantity from a product name such as
// "Heineken Premium Lager 15x440ml" or "Corona Extra Beer 12 x 330ml".
func ParseSKU(name string) match.SKU {
	name = strings.TrimSpace(name)
	sku := match.SKU{Name: name}

	packStart := -1
	for _, pattern := range packPatterns {
		loc := pattern.FindStringSubmatchIndex(name)
		if loc == nil {
			continue
		}
		qty, err := strconv.Atoi(name[loc[2]:loc[3]])
		if err != nil {
			continue
		}
		sku.Quantity = qty
		sku.Size = name[loc[4]:loc[5]] + normalizeUnit(name[loc[6]:loc[7]])
		packStart = loc[0]
		break
	}

	if sku.Size == "" {
		if m := sizePattern.FindStringSubmatch(name); m != nil {
			sku.Size = m[1] + normalizeUnit(m[2])
			sku.Quantity = 1
		}
	}

	var brand string
	if packStart >= 0 {
		brand = strings.TrimSpace(name[:packStart])
	} else {
		var tokens []string
		for _, token := range strings.Fields(name) {
			if digitPattern.MatchString(token) {
				break
			}
			tokens = append(tokens, token)
		}
		brand = strings.Join(tokens, " ")
	}

	brand = trailingNoise.ReplaceAllString(brand, "")
	sku.Brand = strings.TrimSpace(whitespace.ReplaceAllString(brand, " "))
	return sku
}

func normalizeUnit(unit string) string {
	return strings.ToLower(unitSpaceCollapser.Replace(unit))
}
