// mkfixture writes a pair of synthetic premium and claim workbooks for local
// runs of `lossreport serve` and the report commands. Output is
// deterministic for a given seed.
// Usage: go run ./cmd/mkfixture --out testdata --clients 3 --months 12
package main

import (
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/gyeh/lossreport/internal/model"
)

var prestations = []string{
	"CONSULTAS", "EXAMENES", "MEDICAMENTOS", "HOSPITALIZACION", "DENTALES",
	"PSICOLOGIA", "KINESIOLOGIA", "MATERNIDAD", "AUD OPT", "OTROS",
}

var providers = []string{"Clinica Alemana", "Clinica Santa Maria", "Farmacias Ahumada", "RedSalud", "Integramedica", "Clinica Davila"}

var insurers = []string{"Colmena", "Banmedica", "Consalud", "Cruz Blanca", "FONASA", "SIN PREVISION DECLARADA"}

func main() {
	out := flag.String("out", "testdata", "output directory")
	clients := flag.Int("clients", 3, "number of clients")
	months := flag.Int("months", 12, "periods per client, ending 2024-12")
	claimsPer := flag.Int("claims", 40, "claim rows per client and period")
	seed := flag.Uint64("seed", 1, "random seed")
	flag.Parse()

	if err := os.MkdirAll(*out, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "create output dir: %v\n", err)
		os.Exit(1)
	}
	rng := rand.New(rand.NewPCG(*seed, *seed))

	names := make([]string, *clients)
	for i := range names {
		names[i] = fmt.Sprintf("Cliente %c S.A.", 'A'+i)
	}
	periods := make([]time.Time, *months)
	end := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
	for i := range periods {
		periods[i] = end.AddDate(0, i-*months+1, 0)
	}

	premiums := excelize.NewFile()
	sheet := "Primas"
	premiums.SetSheetName("Sheet1", sheet)
	mustRow(premiums, sheet, 1, []any{"Reporte de primas y siniestros"})
	mustRow(premiums, sheet, 3, []any{"Nombre Cliente", "Rut Cliente", "Periodo", "Cobertura", "Prima UF", "Gasto UF"})
	row := 4
	for ci, client := range names {
		rut := fmt.Sprintf("76.%03d.%03d-%d", 100+ci, rng.IntN(1000), rng.IntN(10))
		for _, p := range periods {
			for _, cov := range []string{model.CoverageSalud, model.CoverageDental, model.CoverageCatastrofico, model.CoverageVida} {
				prem := 50 + rng.Float64()*150
				mustRow(premiums, sheet, row, []any{client, rut, p, cov, round(prem), round(prem * (0.4 + rng.Float64()*0.8))})
				row++
			}
		}
	}
	premRows := row - 4

	claims := excelize.NewFile()
	sheet = "Gastos"
	claims.SetSheetName("Sheet1", sheet)
	mustRow(claims, sheet, 1, []any{"Nombre Con", "PERIODO", "Clasif.Cob", "Desc.Plan", "Desc.Insti", "Rut", "Dsc.Isapre", "Val.Prest.", "Val.Bonif.", "Mto.Reclam", "Reembolso"})
	row = 2
	for _, client := range names {
		for _, p := range periods {
			for range *claimsPer {
				prest := prestations[rng.IntN(len(prestations))]
				plan := "Plan Salud Colectivo"
				if prest == "DENTALES" {
					plan = "Plan Dental Plus"
				}
				billed := 1 + rng.Float64()*20
				bonus := billed * (0.3 + rng.Float64()*0.4)
				claimed := billed - bonus
				reimbursed := claimed * (0.5 + rng.Float64()*0.4)
				mustRow(claims, sheet, row, []any{
					client, p, prest, plan,
					providers[rng.IntN(len(providers))],
					fmt.Sprintf("%d-%d", 10_000_000+rng.IntN(90), rng.IntN(10)),
					insurers[rng.IntN(len(insurers))],
					round(billed), round(bonus), round(claimed), round(reimbursed),
				})
				row++
			}
		}
	}
	claimRows := row - 2

	for name, f := range map[string]*excelize.File{"primas.xlsx": premiums, "gastos.xlsx": claims} {
		path := filepath.Join(*out, name)
		if err := f.SaveAs(path); err != nil {
			fmt.Fprintf(os.Stderr, "write %s: %v\n", path, err)
			os.Exit(1)
		}
	}

	fmt.Printf("Wrote %d premium rows to %s\n", premRows, filepath.Join(*out, "primas.xlsx"))
	fmt.Printf("Wrote %d claim rows to %s\n", claimRows, filepath.Join(*out, "gastos.xlsx"))
	fmt.Printf("Clients: %d, periods: %s .. %s\n", len(names), periods[0].Format("2006-01"), periods[len(periods)-1].Format("2006-01"))
}

func mustRow(f *excelize.File, sheet string, row int, values []any) {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err == nil {
		err = f.SetSheetRow(sheet, cell, &values)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "write row %d: %v\n", row, err)
		os.Exit(1)
	}
}

func round(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
