package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

// ParsePriceMinor converts a decimal price string such as "19.9" into minor
// units (1990). At most two fractional digits are accepted.
func ParsePriceMinor(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty price")
	}

	whole, frac, _ := strings.Cut(s, ".")
	if len(frac) > 2 {
		return 0, fmt.Errorf("price %q has more than two decimals", s)
	}
	frac += strings.Repeat("0", 2-len(frac))

	if whole == "" {
		whole = "0"
	}
	w, err := strconv.ParseUint(whole, 10, 62)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", s, err)
	}
	f, err := strconv.ParseUint(frac, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", s, err)
	}
	return int64(w)*100 + int64(f), nil
}
