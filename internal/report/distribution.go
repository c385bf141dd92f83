package report

import (
	"cmp"
	"slices"
	"strings"

	"github.com/gyeh/lossreport/internal/model"
)

// Prestation labels left out of every reimbursement sum and ranking.
var excludedPrestations = map[string]struct{}{
	"COBERTURA I-MED CONDICIONES RESTRINGIDAS": {},
	"COBERTURA I-MED SIN CONVENIO":             {},
	"PRESTACIONES SIN BONIFICACION (S)":        {},
	"BONO ELECTRONICO I-MED YA BONIFICADO":     {},
	"VALORES EXCEDEN ARANCEL UCO CONTRATADO":   {},
}

// Prestations left out of the health-system metrics.
var healthExcludedPrestations = map[string]struct{}{
	"MEDICAMENTOS": {},
	"PSICOLOGIA":   {},
	"AUD OPT":      {},
	"DENTALES":     {},
}

// Reference share of the insured portfolio per prestation, in percent.
var expectedPortfolioPercent = map[string]float64{
	"MEDICAMENTOS":    25,
	"EXAMENES":        20,
	"DENTALES":        10,
	"CONSULTAS":       12,
	"HOSPITALIZACION": 20,
	"PSICOLOGIA":      7,
	"AUD OPT":         6,
}

// Insurer label meaning "no health plan declared".
const noInsurerDeclared = "SIN PREVISION DECLARADA"

// Options bounds the ranked tables.
type Options struct {
	TopProviders int
	TopInsured   int
}

// DefaultOptions returns the standard ranking sizes.
func DefaultOptions() Options {
	return Options{TopProviders: 10, TopInsured: 20}
}

// PrestationRow is one line of the prestation distribution.
type PrestationRow struct {
	Prestation  string  `json:"prestation"`
	TotalAmount float64 `json:"totalAmount"`
	Percent     float64 `json:"percent"`
	// ExpectedPortfolioPercent is a display reference, nil for unlisted labels.
	ExpectedPortfolioPercent *float64 `json:"expectedPortfolioPercent,omitempty"`
}

// ProviderRow is one ranked provider.
type ProviderRow struct {
	Provider     string             `json:"provider"`
	TotalAmount  float64            `json:"totalAmount"`
	ByPrestation map[string]float64 `json:"byPrestation"`
}

// InsuredRow is one ranked insured person.
type InsuredRow struct {
	InsuredID    string             `json:"insuredId"`
	TotalAmount  float64            `json:"totalAmount"`
	ByPrestation map[string]float64 `json:"byPrestation"`
}

// InsurerRow counts claim lines per insurer.
type InsurerRow struct {
	Insurer string  `json:"insurer"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// HealthMetrics splits the billed amount between the health system bonus,
// the insurer reimbursement and the user's copay. Shares are fractions of
// Billed (0..1), zero when Billed is zero. Copay is the raw sum; only
// CopayShare is floored at zero.
type HealthMetrics struct {
	Billed          float64 `json:"billed"`
	Bonus           float64 `json:"bonus"`
	Reimbursed      float64 `json:"reimbursed"`
	Copay           float64 `json:"copay"`
	BonusShare      float64 `json:"bonusShare"`
	ReimbursedShare float64 `json:"reimbursedShare"`
	CopayShare      float64 `json:"copayShare"`
}

// PrestationHealth is HealthMetrics for one prestation.
type PrestationHealth struct {
	Prestation string `json:"prestation"`
	HealthMetrics
}

// Distribution is the expense distribution report for one client.
type Distribution struct {
	PrestationRows      []PrestationRow    `json:"prestationRows"`
	TotalAmount         float64            `json:"totalAmount"`
	PrestationOrder     []string           `json:"prestationOrder"`
	TopProviders        []ProviderRow      `json:"topProviders"`
	TopInsured          []InsuredRow       `json:"topInsured"`
	InsurerDistribution []InsurerRow       `json:"insurerDistribution"`
	SystemHealthMetrics HealthMetrics      `json:"systemHealthMetrics"`
	HealthByPrestation  []PrestationHealth `json:"healthByPrestation"`
}

// BuildDistribution computes the expense distribution for one client.
// Empty coverage or period selections do not restrict; the consolidated
// label selects rows of any of its components.
func BuildDistribution(claims []model.ClaimRow, client string, sel Selection, opts Options) (*Distribution, error) {
	client, err := requireClient(client)
	if err != nil {
		return nil, err
	}
	sel = sel.normalized()
	coverages := expandCoverages(sel.Coverages)
	periods := toSet(sel.Periods)

	var filtered []*model.ClaimRow
	for i := range claims {
		r := &claims[i]
		if r.ClientName != client {
			continue
		}
		if len(periods) > 0 {
			if _, ok := periods[r.Period]; !ok {
				continue
			}
		}
		if len(coverages) > 0 {
			if _, ok := coverages[r.Coverage]; !ok {
				continue
			}
		}
		filtered = append(filtered, r)
	}

	var spend []*model.ClaimRow
	for _, r := range filtered {
		if _, excluded := excludedPrestations[r.PrestationDescription]; excluded {
			continue
		}
		if r.ReimbursedAmount <= 0 {
			continue
		}
		spend = append(spend, r)
	}

	d := &Distribution{}
	d.PrestationRows, d.TotalAmount = prestationDistribution(spend)
	d.PrestationOrder = make([]string, len(d.PrestationRows))
	for i, row := range d.PrestationRows {
		d.PrestationOrder[i] = row.Prestation
	}

	for _, t := range rank(spend, func(r *model.ClaimRow) string { return r.Provider }, d.PrestationOrder, opts.TopProviders) {
		d.TopProviders = append(d.TopProviders, ProviderRow{Provider: t.key, TotalAmount: t.total, ByPrestation: t.byPrestation})
	}
	for _, t := range rank(spend, func(r *model.ClaimRow) string { return r.InsuredID }, d.PrestationOrder, opts.TopInsured) {
		d.TopInsured = append(d.TopInsured, InsuredRow{InsuredID: t.key, TotalAmount: t.total, ByPrestation: t.byPrestation})
	}
	if d.TopProviders == nil {
		d.TopProviders = []ProviderRow{}
	}
	if d.TopInsured == nil {
		d.TopInsured = []InsuredRow{}
	}

	d.InsurerDistribution = insurerDistribution(filtered)
	d.SystemHealthMetrics, d.HealthByPrestation = healthMetrics(filtered)
	return d, nil
}

func prestationDistribution(rows []*model.ClaimRow) ([]PrestationRow, float64) {
	sums := make(map[string]float64)
	for _, r := range rows {
		sums[r.PrestationDescription] += r.ReimbursedAmount
	}
	var total float64
	for _, v := range sums {
		total += v
	}

	out := make([]PrestationRow, 0, len(sums))
	for label, sum := range sums {
		row := PrestationRow{Prestation: label, TotalAmount: sum}
		if total > 0 {
			row.Percent = sum / total * 100
		}
		if p, ok := expectedPortfolioPercent[label]; ok {
			row.ExpectedPortfolioPercent = &p
		}
		out = append(out, row)
	}
	slices.SortFunc(out, func(a, b PrestationRow) int {
		return byTotalThenName(a.TotalAmount, b.TotalAmount, a.Prestation, b.Prestation)
	})
	return out, total
}

type ranked struct {
	key          string
	total        float64
	byPrestation map[string]float64
}

// rank groups rows by key, sums reimbursement per group and per prestation,
// and keeps the n largest groups. byPrestation is keyed by exactly order.
// n <= 0 keeps every group.
func rank(rows []*model.ClaimRow, key func(*model.ClaimRow) string, order []string, n int) []ranked {
	groups := make(map[string]*ranked)
	for _, r := range rows {
		k := key(r)
		g, ok := groups[k]
		if !ok {
			g = &ranked{key: k, byPrestation: make(map[string]float64, len(order))}
			for _, p := range order {
				g.byPrestation[p] = 0
			}
			groups[k] = g
		}
		g.total += r.ReimbursedAmount
		if _, ok := g.byPrestation[r.PrestationDescription]; ok {
			g.byPrestation[r.PrestationDescription] += r.ReimbursedAmount
		}
	}

	out := make([]ranked, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	slices.SortFunc(out, func(a, b ranked) int {
		return byTotalThenName(a.total, b.total, a.key, b.key)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func insurerDistribution(rows []*model.ClaimRow) []InsurerRow {
	counts := make(map[string]int)
	var total int
	for _, r := range rows {
		name := strings.TrimSpace(r.InsurerName)
		if name == "" || name == noInsurerDeclared {
			continue
		}
		counts[name]++
		total++
	}

	out := make([]InsurerRow, 0, len(counts))
	for name, n := range counts {
		row := InsurerRow{Insurer: name, Count: n}
		if total > 0 {
			row.Percent = float64(n) / float64(total) * 100
		}
		out = append(out, row)
	}
	slices.SortFunc(out, func(a, b InsurerRow) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Insurer, b.Insurer)
	})
	return out
}

type healthSums struct {
	billed, bonus, reimbursed, copay float64
}

func (s *healthSums) add(r *model.ClaimRow) {
	s.billed += r.BilledAmount
	s.bonus += r.CopayBonusAmount
	s.reimbursed += r.ReimbursedAmount
	s.copay += r.UserCopay()
}

func (s healthSums) metrics() HealthMetrics {
	m := HealthMetrics{Billed: s.billed, Bonus: s.bonus, Reimbursed: s.reimbursed, Copay: s.copay}
	if s.billed > 0 {
		m.BonusShare = s.bonus / s.billed
		m.ReimbursedShare = s.reimbursed / s.billed
		m.CopayShare = max(0, s.copay) / s.billed
	}
	return m
}

func healthMetrics(rows []*model.ClaimRow) (HealthMetrics, []PrestationHealth) {
	var overall healthSums
	per := make(map[string]*healthSums)
	for _, r := range rows {
		if r.BilledAmount <= 0 {
			continue
		}
		if _, excluded := healthExcludedPrestations[r.PrestationDescription]; excluded {
			continue
		}
		overall.add(r)
		s, ok := per[r.PrestationDescription]
		if !ok {
			s = &healthSums{}
			per[r.PrestationDescription] = s
		}
		s.add(r)
	}

	out := make([]PrestationHealth, 0, len(per))
	for label, s := range per {
		out = append(out, PrestationHealth{Prestation: label, HealthMetrics: s.metrics()})
	}
	slices.SortFunc(out, func(a, b PrestationHealth) int {
		return byTotalThenName(a.ReimbursedShare, b.ReimbursedShare, a.Prestation, b.Prestation)
	})
	return overall.metrics(), out
}

// byTotalThenName orders descending by value, then ascending by name.
func byTotalThenName(va, vb float64, na, nb string) int {
	if c := cmp.Compare(vb, va); c != 0 {
		return c
	}
	return cmp.Compare(na, nb)
}
