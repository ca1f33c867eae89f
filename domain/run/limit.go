package run

import (
	stderrors "errors"
	"math"
	"strconv"
	"strings"

	"trolleymatch/internal/errors"
)

// MaxRows is the hard ceiling on rows processed by one run
const MaxRows = 100

// DefaultMode is used when the form does not say how many rows to process
const DefaultMode = "5"

// Limit is a resolved row limit. Rows is always within 1..cap.
type Limit struct {
	Mode      string
	Requested int // 0 for "all"
	Rows      int
	Capped    bool
}

// Clamped returns l with Rows forced into 1..MaxRows, for limits that did not
// come from ParseLimit.
func (l Limit) Clamped() Limit {
	switch {
	case l.Rows < 1:
		l.Rows = 1
	case l.Rows > MaxRows:
		l.Rows = MaxRows
		l.Capped = true
	}
	return l
}

var presetLimits = map[string]int{
	"5":  5,
	"10": 10,
	"50": 50,
}

// ParseLimit resolves the limit_mode/custom_limit pair from the configure step.
//
// mode is one of 5, 10, 50, all, custom, or a bare positive integer. "all"
// resolves to min(cap, totalRows). Values above cap are silently lowered to cap.
// cap values outside 1..MaxRows are clamped to MaxRows.
func ParseLimit(mode, custom string, totalRows, cap int) (Limit, error) {
	if cap < 1 || cap > MaxRows {
		cap = MaxRows
	}

	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		mode = DefaultMode
	}

	limit := Limit{Mode: mode}
	switch {
	case mode == "all":
		limit.Rows = cap
		if totalRows > 0 && totalRows < cap {
			limit.Rows = totalRows
		}
		limit.Capped = totalRows > cap
		return limit, nil
	case mode == "custom":
		n, err := parsePositive(custom)
		if err != nil {
			return Limit{}, err
		}
		limit.Requested = n
	default:
		if n, ok := presetLimits[mode]; ok {
			limit.Requested = n
			break
		}
		if _, err := strconv.Atoi(mode); err == nil || isDigits(mode) {
			n, err := parsePositive(mode)
			if err != nil {
				return Limit{}, err
			}
			limit.Requested = n
			break
		}
		limit.Mode = DefaultMode
		limit.Requested = presetLimits[DefaultMode]
	}

	limit.Rows = limit.Requested
	if limit.Rows > cap {
		limit.Rows = cap
		limit.Capped = true
	}
	return limit, nil
}

// parsePositive accepts a positive integer. Digit strings too large for an int
// are above any cap, so they resolve to MaxInt instead of failing.
func parsePositive(value string) (int, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "+")
	n, err := strconv.Atoi(trimmed)
	if stderrors.Is(err, strconv.ErrRange) && isDigits(trimmed) {
		return math.MaxInt, nil
	}
	if err != nil || n <= 0 {
		return 0, errors.InvalidRowLimit(value)
	}
	return n, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
