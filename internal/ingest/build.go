package ingest

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/gyeh/lossreport/internal/headers"
	"github.com/gyeh/lossreport/internal/model"
	"github.com/gyeh/lossreport/internal/normalize"
	"github.com/gyeh/lossreport/internal/tablesource"
)

var (
	errNoClient  = errors.New("empty client name")
	errBadPeriod = errors.New("unparseable period")
)

// BuildStats counts what the row builder did with a table.
type BuildStats struct {
	RowsRead         int64
	RowsAccepted     int64
	DroppedNoClient  int64
	DroppedBadPeriod int64
}

// Dropped is the total number of rows that did not become records.
func (s BuildStats) Dropped() int64 {
	return s.DroppedNoClient + s.DroppedBadPeriod
}

func (s *BuildStats) count(err error) {
	s.RowsRead++
	switch {
	case err == nil:
		s.RowsAccepted++
	case errors.Is(err, errNoClient):
		s.DroppedNoClient++
	case errors.Is(err, errBadPeriod):
		s.DroppedBadPeriod++
	}
}

// cells reads canonical fields out of one header-keyed source row.
type cells struct {
	raw     map[string]any
	mapping headers.Mapping
}

func (c cells) get(f headers.Field) any {
	h, ok := c.mapping.Header(f)
	if !ok {
		return nil
	}
	return c.raw[h]
}

func (c cells) amount(f headers.Field) float64 {
	return normalize.Amount(c.get(f))
}

func (c cells) text(f headers.Field, fallback string) string {
	return normalize.Text(c.get(f), fallback)
}

// identity returns the client name and period shared by both feeds, or the
// reason the row must be dropped.
func (c cells) identity() (string, string, error) {
	client := normalize.ClientName(c.get(headers.ClientName))
	if client == "" {
		return "", "", errNoClient
	}
	period, ok := normalize.Period(c.get(headers.Period))
	if !ok {
		return "", "", errBadPeriod
	}
	return client, period, nil
}

// PremiumRow converts one raw premiums row.
func PremiumRow(raw map[string]any, m headers.Mapping) (model.PremiumRow, error) {
	c := cells{raw: raw, mapping: m}
	client, period, err := c.identity()
	if err != nil {
		return model.PremiumRow{}, err
	}
	return model.PremiumRow{
		ClientName:    client,
		ClientRut:     c.text(headers.ClientRut, ""),
		Period:        period,
		Coverage:      c.text(headers.Coverage, ""),
		PremiumAmount: c.amount(headers.PremiumAmount),
		ClaimAmount:   c.amount(headers.ClaimAmount),
	}, nil
}

// ClaimRow converts one raw claims row.
func ClaimRow(raw map[string]any, m headers.Mapping) (model.ClaimRow, error) {
	c := cells{raw: raw, mapping: m}
	client, period, err := c.identity()
	if err != nil {
		return model.ClaimRow{}, err
	}
	return model.ClaimRow{
		ClientName:            client,
		Period:                period,
		Coverage:              normalize.ClaimCoverage(c.text(headers.Coverage, ""), c.text(headers.PlanDescription, "")),
		PrestationDescription: c.text(headers.Prestation, model.NoPrestation),
		ReimbursedAmount:      c.amount(headers.ReimbursedAmount),
		Provider:              c.text(headers.Provider, model.NoProvider),
		InsuredID:             c.text(headers.InsuredID, model.NoInsured),
		InsurerName:           c.text(headers.InsurerName, model.NoInsurer),
		BilledAmount:          c.amount(headers.BilledAmount),
		CopayBonusAmount:      c.amount(headers.CopayBonusAmount),
		ClaimedAmount:         c.amount(headers.ClaimedAmount),
	}, nil
}

// BuildPremiums resolves headers once and converts every row of t. Output
// order follows input order.
func BuildPremiums(t *tablesource.Table, aliases headers.Table) ([]model.PremiumRow, BuildStats, error) {
	return build(model.FeedPremiums, t, aliases, PremiumRow)
}

// BuildClaims is BuildPremiums for the claims feed.
func BuildClaims(t *tablesource.Table, aliases headers.Table) ([]model.ClaimRow, BuildStats, error) {
	return build(model.FeedClaims, t, aliases, ClaimRow)
}

func build[T any](kind model.FeedKind, t *tablesource.Table, aliases headers.Table, convert func(map[string]any, headers.Mapping) (T, error)) ([]T, BuildStats, error) {
	m, err := resolve(kind, t, aliases)
	if err != nil {
		return nil, BuildStats{}, err
	}
	return stageRows(context.Background(), zerolog.Nop(), &PreflightResult{Kind: kind, Table: t, Mapping: m}, convert)
}

// resolve validates that t has rows and that every required field of
// aliases maps to a header.
func resolve(kind model.FeedKind, t *tablesource.Table, aliases headers.Table) (headers.Mapping, error) {
	if t == nil || t.Len() == 0 {
		return nil, &ValidationError{Feed: kind, Reason: "table has no data rows"}
	}
	m, err := headers.Resolve(t.Headers, aliases)
	if err != nil {
		var missing *headers.MissingError
		if errors.As(err, &missing) {
			return nil, &ValidationError{Feed: kind, Reason: missing.Error(), Missing: missing.Fields}
		}
		return nil, err
	}
	return m, nil
}
