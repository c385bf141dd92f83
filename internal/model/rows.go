package model

// Defaults applied by the row builder when an optional claim column is
// missing or blank.
const (
	NoPrestation = "(Sin descripción)"
	NoProvider   = "(Sin prestador)"
	NoInsured    = "(Sin rut)"
	NoInsurer    = "(Sin isapre)"
)

// PremiumRow is the canonical form of one line of the premiums feed.
// Amounts are in UF.
type PremiumRow struct {
	ClientName    string  `json:"clientName" parquet:"client_name"`
	ClientRut     string  `json:"clientRut,omitempty" parquet:"client_rut,optional"`
	Period        string  `json:"period" parquet:"period"` // YYYY-MM
	Coverage      string  `json:"coverage" parquet:"coverage"`
	PremiumAmount float64 `json:"premiumAmount" parquet:"premium_amount"`
	ClaimAmount   float64 `json:"claimAmount" parquet:"claim_amount"`
}

// ClaimRow is the canonical form of one line of the claims (expense) feed.
// Amounts are in UF. ReimbursedAmount may be zero or negative for
// reversals; distribution sums only count positive values.
type ClaimRow struct {
	ClientName            string  `json:"clientName" parquet:"client_name"`
	Period                string  `json:"period" parquet:"period"` // YYYY-MM
	Coverage              string  `json:"coverage" parquet:"coverage"`
	PrestationDescription string  `json:"prestationDescription" parquet:"prestation_description"`
	ReimbursedAmount      float64 `json:"reimbursedAmount" parquet:"reimbursed_amount"`
	Provider              string  `json:"provider" parquet:"provider"`
	InsuredID             string  `json:"insuredId" parquet:"insured_id"`
	InsurerName           string  `json:"insurerName" parquet:"insurer_name"`

	// Health-system breakdown of the billed amount.
	BilledAmount     float64 `json:"billedAmount" parquet:"billed_amount"`
	CopayBonusAmount float64 `json:"copayBonusAmount" parquet:"copay_bonus_amount"`
	ClaimedAmount    float64 `json:"claimedAmount" parquet:"claimed_amount"`
}

// UserCopay is the portion of the claimed amount the insured paid out of
// pocket. It is not floored; callers floor aggregates where required.
func (r *ClaimRow) UserCopay() float64 {
	return r.ClaimedAmount - r.ReimbursedAmount
}
