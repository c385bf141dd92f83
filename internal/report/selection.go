package report

import (
	"errors"
	"strings"

	"github.com/gyeh/lossreport/internal/model"
)

// ErrClientRequired is returned when a report is requested without a client.
var ErrClientRequired = errors.New("client is required")

// Selection is the caller's coverage and period filter. Empty lists mean
// "no restriction"; how that is resolved depends on the report.
type Selection struct {
	Coverages []string `json:"coverages,omitempty"`
	Periods   []string `json:"periods,omitempty"`
}

// ParseSelection splits comma-separated coverage and period lists.
func ParseSelection(coverages, periods string) Selection {
	return Selection{Coverages: splitList(coverages), Periods: splitList(periods)}
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// normalized trims entries, drops blanks and keeps the first occurrence of
// duplicates.
func (s Selection) normalized() Selection {
	return Selection{Coverages: dedupe(s.Coverages), Periods: dedupe(s.Periods)}
}

func dedupe(in []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// expandCoverages turns a coverage selection into the set of row labels it
// matches. The consolidated label contributes its three components.
func expandCoverages(selected []string) map[string]struct{} {
	set := make(map[string]struct{}, len(selected)+len(model.ConsolidatedCoverages))
	for _, c := range selected {
		if c == model.CoverageConsolidated {
			for _, part := range model.ConsolidatedCoverages {
				set[part] = struct{}{}
			}
			continue
		}
		set[c] = struct{}{}
	}
	return set
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func requireClient(client string) (string, error) {
	client = strings.TrimSpace(client)
	if client == "" {
		return "", ErrClientRequired
	}
	return client, nil
}
