package model

// Coverage categories a claim row can be classified into.
const (
	CoverageSalud        = "Salud"
	CoverageDental       = "Dental"
	CoverageCatastrofico = "Catastrófico"
	CoverageVida         = "Vida"

	// CoverageConsolidated is the synthetic union of Salud, Dental and
	// Catastrófico offered as a filter option and report series.
	CoverageConsolidated = "Consolidado S+D+C"
)

// ClaimCoverages lists the claim coverage categories in canonical order.
var ClaimCoverages = []string{
	CoverageSalud,
	CoverageDental,
	CoverageCatastrofico,
	CoverageVida,
}

// ConsolidatedCoverages are the categories CoverageConsolidated stands for.
var ConsolidatedCoverages = []string{
	CoverageSalud,
	CoverageDental,
	CoverageCatastrofico,
}

// IsConsolidated reports whether coverage is one of the three categories
// folded into CoverageConsolidated.
func IsConsolidated(coverage string) bool {
	for _, c := range ConsolidatedCoverages {
		if c == coverage {
			return true
		}
	}
	return false
}

// CoverageCode maps a numeric plan code found in claim feeds to a category.
type CoverageCode struct {
	Code     string // e.g. "203"
	Coverage string // e.g. "Salud"
}

// CoverageCodes lists the plan codes recognized ahead of free-text matching.
var CoverageCodes = []CoverageCode{
	{Code: "203", Coverage: CoverageSalud},
}

// CoverageByCode returns the category for the given plan code, or ok=false.
func CoverageByCode(code string) (string, bool) {
	for _, cc := range CoverageCodes {
		if cc.Code == code {
			return cc.Coverage, true
		}
	}
	return "", false
}
