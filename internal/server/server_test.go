package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/gyeh/lossreport/internal/engine"
	"github.com/gyeh/lossreport/internal/report"
	"github.com/gyeh/lossreport/internal/store"
)

const primasCSV = "Nombre Cliente,Periodo,Cobertura,Prima UF,Gasto UF\n" +
	"Acme,2024-01,Salud,10,2\n" +
	"Acme,2024-02,Salud,10,5\n"

const gastosCSV = "Nombre Con,PERIODO,Clasif.Cob,Reembolso,Desc.Insti,Rut,Dsc.Isapre\n" +
	"Acme,2024-01,CONSULTAS,30,Clinica A,1-9,Colmena\n" +
	"Acme,2024-01,MEDICAMENTOS,70,Farmacia B,2-7,Colmena\n"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	eng := engine.New(store.New(), zerolog.Nop(), engine.Options{})
	s := New(eng, zerolog.Nop(), Options{})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func upload(t *testing.T, ts *httptest.Server, feed, filename, body string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := io.WriteString(fw, body); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(ts.URL+"/upload/"+feed, mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func get(t *testing.T, ts *httptest.Server, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestUploadPremiums(t *testing.T) {
	ts := newTestServer(t)

	resp := upload(t, ts, "primas", "primas.csv", primasCSV)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var got uploadResponse
	decode(t, resp, &got)
	if got.Status != "ok" || got.Rows != 2 || got.BatchID == "" {
		t.Errorf("response = %+v", got)
	}
	if got.Headers["client_name"] != "Nombre Cliente" || got.Headers["premium_amount"] != "Prima UF" {
		t.Errorf("headers = %+v", got.Headers)
	}
}

func TestUploadMissingColumns(t *testing.T) {
	ts := newTestServer(t)

	resp := upload(t, ts, "primas", "primas.csv", "Cliente,Periodo\nAcme,2024-01\n")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var p Problem
	decode(t, resp, &p)
	if p.Status != http.StatusBadRequest || strings.Join(p.Missing, ",") != "coverage,premium_amount,claim_amount" {
		t.Errorf("problem = %+v", p)
	}
}

func TestUploadErrors(t *testing.T) {
	ts := newTestServer(t)

	if resp := upload(t, ts, "primas", "primas.pdf", "%PDF"); resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Errorf("pdf status = %d", resp.StatusCode)
	}
	if resp := upload(t, ts, "reservas", "x.csv", primasCSV); resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown feed status = %d", resp.StatusCode)
	}
	resp, err := http.Post(ts.URL+"/upload/primas", "text/plain", strings.NewReader("nope"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("no file status = %d", resp.StatusCode)
	}
}

func TestFiltersAfterUpload(t *testing.T) {
	ts := newTestServer(t)
	upload(t, ts, "primas", "primas.csv", primasCSV)
	upload(t, ts, "gastos", "gastos.csv", gastosCSV)

	var f report.Filters
	decode(t, get(t, ts, "/filters"), &f)
	if len(f.Clients) != 1 || f.Clients[0] != "Acme" {
		t.Fatalf("clients = %v", f.Clients)
	}
	if got := f.PeriodsByClient["Acme"]; len(got) != 2 || got[0] != "2024-01" {
		t.Errorf("periods = %v", got)
	}
}

func TestTrendRoute(t *testing.T) {
	ts := newTestServer(t)
	upload(t, ts, "primas", "primas.csv", primasCSV)

	resp := get(t, ts, "/report/primas?client=Acme&coverages=Salud&periods=2024-01,2024-02")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("content type = %q", ct)
	}
	var series []report.TrendSeries
	decode(t, resp, &series)
	if len(series) != 1 || len(series[0].Series) != 2 {
		t.Fatalf("series = %+v", series)
	}
	if p := series[0].Series[1]; p.Period != "2024-02" || p.PremiumTotal != 10 || p.ClaimTotal != 5 {
		t.Errorf("2024-02 = %+v", p)
	}
}

func TestReportRequiresClient(t *testing.T) {
	ts := newTestServer(t)
	for _, path := range []string{"/report/primas", "/report/gastos?client="} {
		resp := get(t, ts, path)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s status = %d", path, resp.StatusCode)
		}
	}
}

func TestDistributionRoute(t *testing.T) {
	ts := newTestServer(t)
	upload(t, ts, "gastos", "gastos.csv", gastosCSV)

	resp := get(t, ts, "/report/gastos?client=Acme")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var d report.Distribution
	decode(t, resp, &d)
	if d.TotalAmount != 100 {
		t.Errorf("total = %v", d.TotalAmount)
	}
	if len(d.PrestationOrder) != 2 || d.PrestationOrder[0] != "MEDICAMENTOS" {
		t.Errorf("order = %v", d.PrestationOrder)
	}
	if len(d.TopProviders) != 2 || d.TopProviders[0].Provider != "Farmacia B" {
		t.Errorf("providers = %+v", d.TopProviders)
	}
	if len(d.InsurerDistribution) != 1 || d.InsurerDistribution[0].Count != 2 {
		t.Errorf("insurers = %+v", d.InsurerDistribution)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	var h map[string]any
	decode(t, get(t, ts, "/healthz"), &h)
	if h["status"] != "ok" || h["premiums"] != nil {
		t.Errorf("empty health = %v", h)
	}

	upload(t, ts, "primas", "primas.csv", primasCSV)
	upload(t, ts, "primas", "bad.csv", "Foo\nbar\n")
	get(t, ts, "/report/primas?client=Acme")

	h = nil
	decode(t, get(t, ts, "/healthz"), &h)
	prem, ok := h["premiums"].(map[string]any)
	if !ok || prem["rows"] != float64(2) || prem["source"] != "primas.csv" {
		t.Errorf("health premiums = %v", h["premiums"])
	}

	body, err := io.ReadAll(get(t, ts, "/metrics").Body)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`lossreport_rows_ingested_total{feed="premiums"} 2`,
		`lossreport_ingest_failures_total{feed="premiums"} 1`,
		`lossreport_store_rows{feed="premiums"} 2`,
		`lossreport_report_duration_seconds_count{outcome="ok",report="trend"} 1`,
	} {
		if !bytes.Contains(body, []byte(want)) {
			t.Errorf("metrics missing %q", want)
		}
	}
}
