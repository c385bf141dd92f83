// Package report computes filter options, premium/claims trend series and
// the expense distribution family over the current record sets. Every
// function is a pure read of the rows it is given.
package report

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gyeh/lossreport/internal/model"
)

// ClientPolicy decides which clients filter discovery offers.
type ClientPolicy string

const (
	// PolicyUnion offers every client present in either feed.
	PolicyUnion ClientPolicy = "union"
	// PolicyIntersection offers only clients present in both feeds.
	PolicyIntersection ClientPolicy = "intersection"
)

// ParseClientPolicy accepts "union", "intersection" or "" (union).
func ParseClientPolicy(s string) (ClientPolicy, error) {
	switch ClientPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyUnion:
		return PolicyUnion, nil
	case PolicyIntersection:
		return PolicyIntersection, nil
	}
	return "", fmt.Errorf("unknown client policy %q (want union|intersection)", s)
}

// Filters lists the selectable clients and, per client, the coverages and
// periods observed in the data. All lists are sorted ascending.
type Filters struct {
	Clients           []string            `json:"clients"`
	CoveragesByClient map[string][]string `json:"coveragesByClient"`
	PeriodsByClient   map[string][]string `json:"periodsByClient"`
}

type clientFacets struct {
	inPremiums bool
	inClaims   bool
	coverages  map[string]struct{}
	periods    map[string]struct{}
}

// DiscoverFilters builds the filter options from both feeds. Coverage labels
// come from both feeds; the consolidated label is added for any client with
// at least one of its component coverages.
func DiscoverFilters(premiums []model.PremiumRow, claims []model.ClaimRow, policy ClientPolicy) Filters {
	facets := make(map[string]*clientFacets)
	get := func(client string) *clientFacets {
		f, ok := facets[client]
		if !ok {
			f = &clientFacets{coverages: map[string]struct{}{}, periods: map[string]struct{}{}}
			facets[client] = f
		}
		return f
	}
	for i := range premiums {
		r := &premiums[i]
		f := get(r.ClientName)
		f.inPremiums = true
		f.add(r.Coverage, r.Period)
	}
	for i := range claims {
		r := &claims[i]
		f := get(r.ClientName)
		f.inClaims = true
		f.add(r.Coverage, r.Period)
	}

	out := Filters{
		Clients:           []string{},
		CoveragesByClient: make(map[string][]string),
		PeriodsByClient:   make(map[string][]string),
	}
	for client, f := range facets {
		if policy == PolicyIntersection && !(f.inPremiums && f.inClaims) {
			continue
		}
		out.Clients = append(out.Clients, client)
		out.CoveragesByClient[client] = f.coverageList()
		out.PeriodsByClient[client] = sortedKeys(f.periods)
	}
	slices.Sort(out.Clients)
	return out
}

func (f *clientFacets) add(coverage, period string) {
	if coverage != "" {
		f.coverages[coverage] = struct{}{}
	}
	f.periods[period] = struct{}{}
}

func (f *clientFacets) coverageList() []string {
	list := sortedKeys(f.coverages)
	for _, c := range list {
		if model.IsConsolidated(c) {
			list = append(list, model.CoverageConsolidated)
			slices.Sort(list)
			break
		}
	}
	return list
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
