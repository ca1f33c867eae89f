package run

import (
	"regexp"
	"strconv"
	"strings"

	"trolleymatch/domain/match"

	"github.com/montanaflynn/stats"
)

// Report is what one run hands back to the results page and the CLI
type Report struct {
	Filename   string
	Column     string
	Limit      Limit
	Results    []match.Result
	TierCounts map[match.Tier]int
	Prices     PriceSummary
	CSVName    string
}

// Processed returns the number of exported rows
func (r *Report) Processed() int {
	return len(r.Results)
}

// TierCount is one line of the tier distribution, in report order
type TierCount struct {
	Tier  match.Tier
	Count int
}

// TierDistribution returns non-zero tier counts in Tier order
func (r *Report) TierDistribution() []TierCount {
	var out []TierCount
	for _, tier := range match.Tiers {
		if n := r.TierCounts[tier]; n > 0 {
			out = append(out, TierCount{Tier: tier, Count: n})
		}
	}
	return out
}

// CountTiers tallies the Match_Tier column of results
func CountTiers(results []match.Result) map[match.Tier]int {
	counts := make(map[match.Tier]int)
	for _, r := range results {
		counts[r.Tier]++
	}
	return counts
}

// PriceSummary describes the matched prices of a run, in pounds
type PriceSummary struct {
	Count  int
	Min    float64
	Max    float64
	Mean   float64
	Median float64
}

var poundsPattern = regexp.MustCompile(`£\s*([\d,]+(?:\.\d+)?)`)

// ParsePounds extracts the numeric value of a "£1,234.50" style price
func ParsePounds(price string) (float64, bool) {
	m := poundsPattern.FindStringSubmatch(price)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// SummarizePrices computes min/max/mean/median over matched rows with a parseable price
func SummarizePrices(results []match.Result) PriceSummary {
	var prices stats.Float64Data
	for _, r := range results {
		if r.Matched == nil {
			continue
		}
		if v, ok := ParsePounds(r.Matched.Price); ok {
			prices = append(prices, v)
		}
	}
	if len(prices) == 0 {
		return PriceSummary{}
	}

	summary := PriceSummary{Count: len(prices)}
	summary.Min, _ = prices.Min()
	summary.Max, _ = prices.Max()
	summary.Mean, _ = prices.Mean()
	summary.Median, _ = prices.Median()
	return summary
}
