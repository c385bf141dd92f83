package report

import (
	"slices"

	"github.com/gyeh/lossreport/internal/model"
)

// TrendPoint is one period of a trend series.
type TrendPoint struct {
	Period       string  `json:"period"`
	PremiumTotal float64 `json:"premiumTotal"`
	ClaimTotal   float64 `json:"claimTotal"`
}

// TrendSeries is the premium/claims history of one coverage label.
type TrendSeries struct {
	Coverage string       `json:"coverage"`
	Series   []TrendPoint `json:"series"`
}

// BuildTrend sums premium and claim amounts per selected coverage and
// period for one client.
//
// An empty coverage selection means every coverage the client has in the
// premiums feed, in first-seen order. An empty period selection means every
// period the client has there. Periods are emitted ascending and a selected
// period with no rows yields a zero point. A coverage with no rows for the
// client is omitted. The consolidated label becomes its own series over the
// union of its components.
func BuildTrend(premiums []model.PremiumRow, client string, sel Selection) ([]TrendSeries, error) {
	client, err := requireClient(client)
	if err != nil {
		return nil, err
	}
	sel = sel.normalized()

	var rows []*model.PremiumRow
	for i := range premiums {
		if premiums[i].ClientName == client {
			rows = append(rows, &premiums[i])
		}
	}

	coverages := sel.Coverages
	if len(coverages) == 0 {
		coverages = distinct(rows, func(r *model.PremiumRow) string { return r.Coverage }, true)
	}
	periods := sel.Periods
	if len(periods) == 0 {
		periods = distinct(rows, func(r *model.PremiumRow) string { return r.Period }, false)
	}
	periods = slices.Clone(periods)
	slices.Sort(periods)

	out := []TrendSeries{}
	for _, coverage := range coverages {
		match := expandCoverages([]string{coverage})
		var matched []*model.PremiumRow
		for _, r := range rows {
			if _, ok := match[r.Coverage]; ok {
				matched = append(matched, r)
			}
		}
		if len(matched) == 0 {
			continue
		}
		out = append(out, TrendSeries{Coverage: coverage, Series: periodSeries(matched, periods)})
	}
	return out, nil
}

func periodSeries(rows []*model.PremiumRow, periods []string) []TrendPoint {
	idx := make(map[string]int, len(periods))
	points := make([]TrendPoint, len(periods))
	for i, p := range periods {
		idx[p] = i
		points[i].Period = p
	}
	for _, r := range rows {
		i, ok := idx[r.Period]
		if !ok {
			continue
		}
		points[i].PremiumTotal += r.PremiumAmount
		points[i].ClaimTotal += r.ClaimAmount
	}
	return points
}

// distinct lists key values in first-seen order. Blank values are kept only
// when keepBlank is set, so unlabelled premium rows still get a series.
func distinct(rows []*model.PremiumRow, key func(*model.PremiumRow) string, keepBlank bool) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, r := range rows {
		k := key(r)
		if k == "" && !keepBlank {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
