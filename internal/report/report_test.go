package report

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"testing"

	"github.com/gyeh/lossreport/internal/model"
)

const eps = 1e-9

func approx(a, b float64) bool {
	return math.Abs(a-b) < eps
}

func premium(client, period, coverage string, prem, claim float64) model.PremiumRow {
	return model.PremiumRow{ClientName: client, Period: period, Coverage: coverage, PremiumAmount: prem, ClaimAmount: claim}
}

func claim(client, period, coverage, prestation string, reimbursed float64) model.ClaimRow {
	return model.ClaimRow{
		ClientName:            client,
		Period:                period,
		Coverage:              coverage,
		PrestationDescription: prestation,
		ReimbursedAmount:      reimbursed,
		Provider:              model.NoProvider,
		InsuredID:             model.NoInsured,
		InsurerName:           model.NoInsurer,
	}
}

func TestParseClientPolicy(t *testing.T) {
	for in, want := range map[string]ClientPolicy{"": PolicyUnion, "Union": PolicyUnion, " intersection ": PolicyIntersection} {
		got, err := ParseClientPolicy(in)
		if err != nil || got != want {
			t.Errorf("ParseClientPolicy(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseClientPolicy("both"); err == nil {
		t.Error("expected error for unknown policy")
	}
}

func TestDiscoverFilters(t *testing.T) {
	premiums := []model.PremiumRow{
		premium("Beta", "2024-02", "Vida", 1, 0),
		premium("Acme", "2024-02", "Salud", 1, 0),
		premium("Acme", "2024-01", "Vida", 1, 0),
	}
	claims := []model.ClaimRow{
		claim("Acme", "2023-12", model.CoverageDental, "CONSULTAS", 1),
		claim("Gamma", "2024-01", model.CoverageSalud, "CONSULTAS", 1),
	}

	union := DiscoverFilters(premiums, claims, PolicyUnion)
	if !reflect.DeepEqual(union.Clients, []string{"Acme", "Beta", "Gamma"}) {
		t.Errorf("union clients = %v", union.Clients)
	}
	wantAcme := []string{"Consolidado S+D+C", "Dental", "Salud", "Vida"}
	if !reflect.DeepEqual(union.CoveragesByClient["Acme"], wantAcme) {
		t.Errorf("Acme coverages = %v, want %v", union.CoveragesByClient["Acme"], wantAcme)
	}
	if !reflect.DeepEqual(union.PeriodsByClient["Acme"], []string{"2023-12", "2024-01", "2024-02"}) {
		t.Errorf("Acme periods = %v", union.PeriodsByClient["Acme"])
	}
	if !reflect.DeepEqual(union.CoveragesByClient["Beta"], []string{"Vida"}) {
		t.Errorf("Vida alone must not add the consolidated label: %v", union.CoveragesByClient["Beta"])
	}

	inter := DiscoverFilters(premiums, claims, PolicyIntersection)
	if !reflect.DeepEqual(inter.Clients, []string{"Acme"}) {
		t.Errorf("intersection clients = %v", inter.Clients)
	}
	if _, ok := inter.CoveragesByClient["Beta"]; ok {
		t.Error("intersection should not list facets for excluded clients")
	}

	again := DiscoverFilters(premiums, claims, PolicyUnion)
	if !reflect.DeepEqual(union, again) {
		t.Error("DiscoverFilters should be idempotent")
	}
}

func TestDiscoverFiltersEmpty(t *testing.T) {
	f := DiscoverFilters(nil, nil, PolicyUnion)
	if f.Clients == nil || len(f.Clients) != 0 {
		t.Errorf("expected empty non-nil client list, got %#v", f.Clients)
	}
}

func TestParseSelection(t *testing.T) {
	sel := ParseSelection(" Salud, ,Dental,Salud", "")
	n := sel.normalized()
	if !reflect.DeepEqual(n.Coverages, []string{"Salud", "Dental"}) || n.Periods != nil {
		t.Errorf("normalized = %+v", n)
	}
}

func TestTrendEndToEnd(t *testing.T) {
	premiums := []model.PremiumRow{
		premium("Acme", "2024-01", "Salud", 10, 2),
		premium("Acme", "2024-02", "Salud", 10, 5),
	}
	got, err := BuildTrend(premiums, "Acme", Selection{Coverages: []string{"Salud"}, Periods: []string{"2024-01", "2024-02"}})
	if err != nil {
		t.Fatalf("BuildTrend: %v", err)
	}
	want := []TrendSeries{{
		Coverage: "Salud",
		Series: []TrendPoint{
			{Period: "2024-01", PremiumTotal: 10, ClaimTotal: 2},
			{Period: "2024-02", PremiumTotal: 10, ClaimTotal: 5},
		},
	}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("BuildTrend = %+v, want %+v", got, want)
	}
}

func TestTrendConsolidated(t *testing.T) {
	premiums := []model.PremiumRow{
		premium("Acme", "2024-01", model.CoverageSalud, 10, 1),
		premium("Acme", "2024-01", model.CoverageDental, 5, 2),
		premium("Acme", "2024-01", model.CoverageCatastrofico, 3, 4),
		premium("Acme", "2024-01", model.CoverageVida, 100, 100),
		premium("Acme", "2024-02", model.CoverageDental, 7, 1),
		premium("Other", "2024-01", model.CoverageSalud, 1000, 1000),
	}
	sel := Selection{Coverages: []string{model.CoverageConsolidated, model.CoverageSalud, model.CoverageDental, model.CoverageCatastrofico}}
	got, err := BuildTrend(premiums, "Acme", sel)
	if err != nil {
		t.Fatalf("BuildTrend: %v", err)
	}
	if len(got) != 4 || got[0].Coverage != model.CoverageConsolidated {
		t.Fatalf("series = %+v", got)
	}
	for pi, point := range got[0].Series {
		var prem, cl float64
		for _, s := range got[1:] {
			prem += s.Series[pi].PremiumTotal
			cl += s.Series[pi].ClaimTotal
		}
		if !approx(point.PremiumTotal, prem) || !approx(point.ClaimTotal, cl) {
			t.Errorf("%s: consolidated %+v, components premium=%v claim=%v", point.Period, point, prem, cl)
		}
	}
	if got[0].Series[0].PremiumTotal != 18 {
		t.Errorf("consolidated 2024-01 premium = %v", got[0].Series[0].PremiumTotal)
	}
	// Salud has no 2024-02 rows but the period is still emitted.
	if got[1].Series[1] != (TrendPoint{Period: "2024-02"}) {
		t.Errorf("Salud 2024-02 = %+v", got[1].Series[1])
	}
}

func TestTrendDefaultsAndOmission(t *testing.T) {
	premiums := []model.PremiumRow{
		premium("Acme", "2024-03", "Vida", 1, 0),
		premium("Acme", "2024-01", "Salud", 2, 0),
	}
	got, err := BuildTrend(premiums, "Acme", Selection{Coverages: []string{"Dental"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("coverage without rows should be omitted, got %+v", got)
	}

	got, err = BuildTrend(premiums, "Acme", Selection{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Coverage != "Vida" || got[1].Coverage != "Salud" {
		t.Fatalf("default coverages = %+v", got)
	}
	if got[0].Series[0].Period != "2024-01" || got[0].Series[1].Period != "2024-03" {
		t.Errorf("default periods should be ascending: %+v", got[0].Series)
	}
}

func TestTrendBlankCoverage(t *testing.T) {
	premiums := []model.PremiumRow{
		premium("Acme", "2024-01", "Salud", 4, 1),
		premium("Acme", "2024-01", "", 6, 2),
	}
	got, err := BuildTrend(premiums, "Acme", Selection{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[1].Coverage != "" {
		t.Fatalf("series = %+v", got)
	}
	if got[1].Series[0] != (TrendPoint{Period: "2024-01", PremiumTotal: 6, ClaimTotal: 2}) {
		t.Errorf("unlabelled series = %+v", got[1].Series)
	}
}

func TestClientRequired(t *testing.T) {
	if _, err := BuildTrend(nil, "  ", Selection{}); !errors.Is(err, ErrClientRequired) {
		t.Errorf("BuildTrend err = %v", err)
	}
	if _, err := BuildDistribution(nil, "", Selection{}, DefaultOptions()); !errors.Is(err, ErrClientRequired) {
		t.Errorf("BuildDistribution err = %v", err)
	}
}

func TestDistributionPrestations(t *testing.T) {
	claims := []model.ClaimRow{
		claim("Acme", "2024-01", model.CoverageSalud, "CONSULTAS", 30),
		claim("Acme", "2024-01", model.CoverageSalud, "MEDICAMENTOS", 50),
		claim("Acme", "2024-02", model.CoverageDental, "DENTALES", 20),
		claim("Acme", "2024-02", model.CoverageSalud, "OTROS", 0),
		claim("Acme", "2024-02", model.CoverageSalud, "OTROS", -5),
		claim("Acme", "2024-02", model.CoverageSalud, "COBERTURA I-MED SIN CONVENIO", 1000),
		claim("Acme", "2024-02", model.CoverageVida, "VIDA", 40),
		claim("Other", "2024-01", model.CoverageSalud, "CONSULTAS", 999),
	}
	d, err := BuildDistribution(claims, "Acme", Selection{Coverages: []string{model.CoverageConsolidated}}, DefaultOptions())
	if err != nil {
		t.Fatalf("BuildDistribution: %v", err)
	}
	if d.TotalAmount != 100 {
		t.Errorf("total = %v", d.TotalAmount)
	}
	if !reflect.DeepEqual(d.PrestationOrder, []string{"MEDICAMENTOS", "CONSULTAS", "DENTALES"}) {
		t.Errorf("order = %v", d.PrestationOrder)
	}
	var sum float64
	for _, r := range d.PrestationRows {
		sum += r.Percent
	}
	if !approx(sum, 100) {
		t.Errorf("percent sum = %v", sum)
	}
	if p := d.PrestationRows[0].ExpectedPortfolioPercent; p == nil || *p != 25 {
		t.Errorf("MEDICAMENTOS expected portfolio percent = %v", p)
	}

	d, err = BuildDistribution(claims, "Acme", Selection{Periods: []string{"2024-02"}, Coverages: []string{model.CoverageVida}}, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if len(d.PrestationRows) != 1 || d.PrestationRows[0].ExpectedPortfolioPercent != nil {
		t.Errorf("unlisted label should have no reference percent: %+v", d.PrestationRows)
	}
}

func TestDistributionZeroTotal(t *testing.T) {
	claims := []model.ClaimRow{
		claim("Acme", "2024-01", model.CoverageSalud, "CONSULTAS", 0),
		claim("Acme", "2024-01", model.CoverageSalud, "PRESTACIONES SIN BONIFICACION (S)", 10),
	}
	d, err := BuildDistribution(claims, "Acme", Selection{}, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if d.TotalAmount != 0 || len(d.PrestationRows) != 0 || len(d.TopProviders) != 0 {
		t.Errorf("expected empty distribution, got %+v", d)
	}
	if d.TopProviders == nil || d.TopInsured == nil || d.PrestationOrder == nil {
		t.Error("empty tables should be non-nil slices")
	}
}

func TestDistributionTopN(t *testing.T) {
	var claims []model.ClaimRow
	for i := 1; i <= 15; i++ {
		c := claim("Acme", "2024-01", model.CoverageSalud, "CONSULTAS", float64(i))
		c.Provider = fmt.Sprintf("Clinica %02d", i)
		c.InsuredID = fmt.Sprintf("%d-K", i)
		claims = append(claims, c)
	}
	extra := claim("Acme", "2024-01", model.CoverageSalud, "EXAMENES", 3)
	extra.Provider = "Clinica 01"
	extra.InsuredID = "1-K"
	claims = append(claims, extra)

	d, err := BuildDistribution(claims, "Acme", Selection{}, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if len(d.TopProviders) != 10 {
		t.Fatalf("top providers = %d", len(d.TopProviders))
	}
	for i := 1; i < len(d.TopProviders); i++ {
		if d.TopProviders[i-1].TotalAmount < d.TopProviders[i].TotalAmount {
			t.Errorf("providers not sorted at %d: %+v", i, d.TopProviders)
		}
	}
	if d.TopProviders[0].Provider != "Clinica 15" {
		t.Errorf("first provider = %q", d.TopProviders[0].Provider)
	}
	if len(d.TopInsured) != 15 {
		t.Errorf("top insured = %d (fewer than the limit)", len(d.TopInsured))
	}
	for _, p := range d.TopProviders {
		if len(p.ByPrestation) != len(d.PrestationOrder) {
			t.Errorf("%s byPrestation keys = %v, order = %v", p.Provider, p.ByPrestation, d.PrestationOrder)
		}
	}
	// 1-K totals 4 and ties with 4-K; the name breaks the tie.
	if d.TopInsured[11].InsuredID != "1-K" || d.TopInsured[11].ByPrestation["EXAMENES"] != 3 {
		t.Errorf("insured[11] = %+v", d.TopInsured[11])
	}
	last := d.TopInsured[len(d.TopInsured)-1]
	if last.InsuredID != "2-K" || last.ByPrestation["CONSULTAS"] != 2 || last.ByPrestation["EXAMENES"] != 0 {
		t.Errorf("last insured = %+v", last)
	}
}

func TestDistributionTieBreak(t *testing.T) {
	a := claim("Acme", "2024-01", model.CoverageSalud, "B", 5)
	a.Provider = "Zeta"
	b := claim("Acme", "2024-01", model.CoverageSalud, "A", 5)
	b.Provider = "Alfa"
	d, err := BuildDistribution([]model.ClaimRow{a, b}, "Acme", Selection{}, Options{TopProviders: 1})
	if err != nil {
		t.Fatal(err)
	}
	if d.PrestationOrder[0] != "A" || d.TopProviders[0].Provider != "Alfa" {
		t.Errorf("ties should break by name: %v / %+v", d.PrestationOrder, d.TopProviders)
	}
	if len(d.TopInsured) != 1 {
		t.Errorf("n <= 0 should keep every group: %+v", d.TopInsured)
	}
}

func TestInsurerDistribution(t *testing.T) {
	mk := func(insurer string, reimbursed float64, prestation string) model.ClaimRow {
		c := claim("Acme", "2024-01", model.CoverageSalud, prestation, reimbursed)
		c.InsurerName = insurer
		return c
	}
	claims := []model.ClaimRow{
		mk("Colmena", 1, "CONSULTAS"),
		mk("Colmena", -1, "COBERTURA I-MED SIN CONVENIO"),
		mk("Banmédica", 0, "CONSULTAS"),
		mk("SIN PREVISION DECLARADA", 1, "CONSULTAS"),
		mk(model.NoInsurer, 1, "CONSULTAS"),
		mk("  ", 1, "CONSULTAS"),
	}
	d, err := BuildDistribution(claims, "Acme", Selection{}, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	// The builder's default counts as its own insurer.
	want := []InsurerRow{
		{Insurer: "Colmena", Count: 2, Percent: 50},
		{Insurer: model.NoInsurer, Count: 1, Percent: 25},
		{Insurer: "Banmédica", Count: 1, Percent: 25},
	}
	if len(d.InsurerDistribution) != len(want) {
		t.Fatalf("insurers = %+v", d.InsurerDistribution)
	}
	for i := range want {
		got := d.InsurerDistribution[i]
		if got.Insurer != want[i].Insurer || got.Count != want[i].Count || !approx(got.Percent, want[i].Percent) {
			t.Errorf("insurer[%d] = %+v, want %+v", i, got, want[i])
		}
	}
}

func TestHealthMetrics(t *testing.T) {
	mk := func(prestation string, billed, bonus, reimbursed, claimed float64) model.ClaimRow {
		c := claim("Acme", "2024-01", model.CoverageSalud, prestation, reimbursed)
		c.BilledAmount = billed
		c.CopayBonusAmount = bonus
		c.ClaimedAmount = claimed
		return c
	}
	claims := []model.ClaimRow{
		mk("CONSULTAS", 100, 40, 30, 60),
		mk("EXAMENES", 100, 50, 45, 40),
		mk("MEDICAMENTOS", 100, 0, 100, 100),
		mk("CONSULTAS", 0, 10, 10, 10),
	}
	d, err := BuildDistribution(claims, "Acme", Selection{}, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	m := d.SystemHealthMetrics
	if m.Billed != 200 || m.Bonus != 90 || m.Reimbursed != 75 {
		t.Errorf("sums = %+v", m)
	}
	// copay: (60-30) + (40-45) = 25
	if m.Copay != 25 || !approx(m.CopayShare, 0.125) {
		t.Errorf("copay = %v share = %v", m.Copay, m.CopayShare)
	}
	if !approx(m.BonusShare, 0.45) || !approx(m.ReimbursedShare, 0.375) {
		t.Errorf("shares = %+v", m)
	}

	if len(d.HealthByPrestation) != 2 {
		t.Fatalf("health by prestation = %+v", d.HealthByPrestation)
	}
	ex := d.HealthByPrestation[0]
	if ex.Prestation != "EXAMENES" || !approx(ex.ReimbursedShare, 0.45) {
		t.Errorf("first = %+v", ex)
	}
	if ex.Copay != -5 || ex.CopayShare != 0 {
		t.Errorf("negative copay should only be floored in the share: %+v", ex)
	}
}

func TestHealthMetricsNoBilled(t *testing.T) {
	d, err := BuildDistribution([]model.ClaimRow{claim("Acme", "2024-01", model.CoverageSalud, "CONSULTAS", 5)}, "Acme", Selection{}, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if d.SystemHealthMetrics != (HealthMetrics{}) || len(d.HealthByPrestation) != 0 {
		t.Errorf("no billed rows should yield zero metrics: %+v", d.SystemHealthMetrics)
	}
}
