package normalize

import (
	"regexp"
	"strings"

	"github.com/gyeh/lossreport/internal/model"
)

var nonAlphanumeric = regexp.MustCompile(`[^A-Za-z0-9]`)

// Code trims, uppercases and strips non-alphanumeric characters from a
// coverage code cell. Returns "" when nothing is left.
func Code(v any) string {
	s := strings.TrimSpace(String(v))
	if s == "" {
		return ""
	}
	return nonAlphanumeric.ReplaceAllString(strings.ToUpper(s), "")
}

// Checked in priority order; the first substring hit wins.
var coverageTokens = []struct {
	token    string
	coverage string
}{
	{"dental", model.CoverageDental},
	{"catastr", model.CoverageCatastrofico},
	{"vida", model.CoverageVida},
	{"salud", model.CoverageSalud},
}

// ClaimCoverage derives a claim's coverage category. A recognized plan code
// wins; otherwise the plan description is matched, then the coverage cell
// itself. Unmatched rows default to Salud.
func ClaimCoverage(code, plan string) string {
	if c, ok := model.CoverageByCode(Code(code)); ok {
		return c
	}
	if c, ok := MatchCoverage(plan); ok {
		return c
	}
	if c, ok := MatchCoverage(code); ok {
		return c
	}
	return model.CoverageSalud
}

// MatchCoverage finds a coverage category by case- and accent-insensitive
// substring match.
func MatchCoverage(text string) (string, bool) {
	folded := Fold(text)
	if folded == "" {
		return "", false
	}
	for _, ct := range coverageTokens {
		if strings.Contains(folded, ct.token) {
			return ct.coverage, true
		}
	}
	return "", false
}
