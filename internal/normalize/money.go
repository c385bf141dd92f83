package normalize

import (
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	unitToken  = regexp.MustCompile(`(?i)uf`)
	nonNumeric = regexp.MustCompile(`[^0-9.\-]`)
)

// Amount converts a raw cell into a UF amount. Numbers pass through;
// strings are parsed with Chilean separators ("1.234,56" is 1234.56).
// Anything unparseable yields 0.
func Amount(v any) float64 {
	switch x := v.(type) {
	case string:
		return ParseAmount(x)
	case decimal.Decimal:
		f, _ := x.Float64()
		return f
	}
	if f, ok := number(v); ok && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	return 0
}

// ParseAmount parses a currency-like string. When both separators appear
// the dot groups thousands and the comma marks decimals; a lone comma is
// the decimal separator.
func ParseAmount(s string) float64 {
	s = unitToken.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), "")

	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")
	switch {
	case hasComma && hasDot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case hasComma:
		s = strings.Replace(s, ",", ".", 1)
	}
	s = nonNumeric.ReplaceAllString(s, "")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	f, _ := d.Float64()
	return f
}
