package headers

import (
	"fmt"

	"github.com/gyeh/lossreport/internal/model"
)

// Field names a canonical column of a feed.
type Field string

// Premium feed fields.
const (
	ClientName    Field = "client_name"
	ClientRut     Field = "client_rut"
	Period        Field = "period"
	Coverage      Field = "coverage"
	PremiumAmount Field = "premium_amount"
	ClaimAmount   Field = "claim_amount"
)

// Claim feed fields (ClientName, Period and Coverage are shared).
const (
	Prestation       Field = "prestation_description"
	ReimbursedAmount Field = "reimbursed_amount"
	PlanDescription  Field = "plan_description"
	Provider         Field = "provider"
	InsuredID        Field = "insured_id"
	InsurerName      Field = "insurer_name"
	BilledAmount     Field = "billed_amount"
	CopayBonusAmount Field = "copay_bonus_amount"
	ClaimedAmount    Field = "claimed_amount"
)

// Alias lists the accepted source headers for one canonical field, in
// priority order.
type Alias struct {
	Field    Field
	Names    []string
	Required bool
}

// Table is the ordered alias policy for one feed.
type Table []Alias

// PremiumAliases is the built-in alias table for the premiums feed. The
// canonical snake_case names come last so exported snapshots re-ingest.
var PremiumAliases = Table{
	{Field: ClientName, Required: true, Names: []string{"Nombre Cliente", "Nombe Cliente", "Cliente", string(ClientName)}},
	{Field: ClientRut, Names: []string{"Rut Cliente", string(ClientRut)}},
	{Field: Period, Required: true, Names: []string{"Periodo", "Period", string(Period)}},
	{Field: Coverage, Required: true, Names: []string{"Cobertura", string(Coverage)}},
	{Field: PremiumAmount, Required: true, Names: []string{"Prima UF", "Prima", string(PremiumAmount)}},
	{Field: ClaimAmount, Required: true, Names: []string{"Gasto UF", "Gasto", string(ClaimAmount)}},
}

// ClaimAliases is the built-in alias table for the claims feed.
var ClaimAliases = Table{
	{Field: ClientName, Required: true, Names: []string{"Nombre Con", "Nombre Contratante", "Nombre Cliente", "Nombe Cliente", string(ClientName)}},
	{Field: Period, Required: true, Names: []string{"PERIODO", "Periodo", string(Period)}},
	{Field: Prestation, Required: true, Names: []string{"Clasif.Cob", "Desc.Cober", "Descripción Prestación", string(Prestation)}},
	{Field: ReimbursedAmount, Required: true, Names: []string{"Reembolso", "Reembolso UF", string(ReimbursedAmount)}},
	{Field: PlanDescription, Names: []string{"Desc.Plan", string(PlanDescription)}},
	{Field: Coverage, Names: []string{"Cobertura", string(Coverage)}},
	{Field: Provider, Names: []string{"Desc.Insti", "Prestador", string(Provider)}},
	{Field: InsuredID, Names: []string{"Rut", "Rut Asegurado", string(InsuredID)}},
	{Field: InsurerName, Names: []string{"Dsc.Isapre", "Isapre", string(InsurerName)}},
	{Field: BilledAmount, Names: []string{"Val.Prest.", string(BilledAmount)}},
	{Field: CopayBonusAmount, Names: []string{"Val.Bonif.", string(CopayBonusAmount)}},
	{Field: ClaimedAmount, Names: []string{"Mto.Reclam", string(ClaimedAmount)}},
}

// ForFeed returns the built-in alias table for a feed.
func ForFeed(kind model.FeedKind) Table {
	if kind == model.FeedClaims {
		return ClaimAliases
	}
	return PremiumAliases
}

// Has reports whether the table defines field.
func (t Table) Has(field Field) bool {
	for _, a := range t {
		if a.Field == field {
			return true
		}
	}
	return false
}

// Extend returns a copy of t with extra aliases appended after the built-in
// ones for each field. Unknown fields are an error.
func (t Table) Extend(extra map[string][]string) (Table, error) {
	out := make(Table, len(t))
	for i, a := range t {
		out[i] = Alias{Field: a.Field, Required: a.Required, Names: append([]string(nil), a.Names...)}
	}
	for name, names := range extra {
		found := false
		for i := range out {
			if string(out[i].Field) == name {
				out[i].Names = append(out[i].Names, names...)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown header field %q", name)
		}
	}
	return out, nil
}

// LooksLikeHeader reports whether cells contain an alias of at least one
// required field. Used to locate the header row below title banners.
func (t Table) LooksLikeHeader(cells []string) bool {
	keys := make(map[string]bool, len(cells))
	for _, c := range cells {
		if k := Key(c); k != "" {
			keys[k] = true
		}
	}
	for _, a := range t {
		if !a.Required {
			continue
		}
		for _, name := range a.Names {
			if keys[Key(name)] {
				return true
			}
		}
	}
	return false
}
