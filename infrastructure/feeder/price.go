package feeder

import (
	"fmt"
	"strings"
)

// ParseFixedPoint converts a decimal number ("12.5", "-" not allowed) into a
// fixed-point integer with the given number of decimals. Extra fractional
// digits are truncated.
func ParseFixedPoint(text string, decimals uint8) (uint64, error) {
	s := strings.Trim(strings.TrimSpace(text), `"`)
	if s == "" {
		return 0, fmt.Errorf("empty price")
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if len(frac) > int(decimals) {
		frac = frac[:decimals]
	}
	frac += strings.Repeat("0", int(decimals)-len(frac))

	var v uint64
	for _, c := range whole + frac {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("invalid price %q", text)
		}
		next := v*10 + uint64(c-'0')
		if next/10 != v {
			return 0, fmt.Errorf("price %q overflows with %d decimals", text, decimals)
		}
		v = next
	}
	return v, nil
}
