package reload

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/gyeh/lossreport/internal/engine"
	"github.com/gyeh/lossreport/internal/model"
	"github.com/gyeh/lossreport/internal/store"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

const primas = "Nombre Cliente;Periodo;Cobertura;Prima UF;Gasto UF\nAcme;2024-01;Salud;10;2\n"
const gastos = "Nombre Con,PERIODO,Clasif.Cob,Reembolso\nAcme,2024-01,CONSULTAS,30\nAcme,2024-01,DENTALES,5\n"

func TestLoadAll(t *testing.T) {
	dir := t.TempDir()
	eng := engine.New(store.New(), zerolog.Nop(), engine.Options{})

	var mu sync.Mutex
	seen := map[model.FeedKind]error{}
	l := New(eng, zerolog.Nop(), map[model.FeedKind]string{
		model.FeedPremiums: writeFile(t, dir, "primas.csv", primas),
		model.FeedClaims:   writeFile(t, dir, "gastos.csv", gastos),
	}, func(kind model.FeedKind, _ *model.IngestSummary, err error) {
		mu.Lock()
		defer mu.Unlock()
		seen[kind] = err
	})

	sums, err := l.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if sums[model.FeedPremiums].RowsAccepted != 1 || sums[model.FeedClaims].RowsAccepted != 2 {
		t.Errorf("summaries = %+v", sums)
	}
	if sums[model.FeedPremiums].SourceSHA256 == "" {
		t.Error("file hash should be carried into the summary")
	}
	if len(seen) != 2 {
		t.Errorf("hook calls = %v", seen)
	}
	v := eng.Store().View()
	if v.Premiums.Len() != 1 || v.Claims.Len() != 2 {
		t.Errorf("store = %d premiums, %d claims", v.Premiums.Len(), v.Claims.Len())
	}
}

func TestLoadAllKeepsPriorOnFailure(t *testing.T) {
	dir := t.TempDir()
	eng := engine.New(store.New(), zerolog.Nop(), engine.Options{})
	path := writeFile(t, dir, "primas.csv", primas)
	l := New(eng, zerolog.Nop(), map[model.FeedKind]string{model.FeedPremiums: path, model.FeedClaims: ""}, nil)

	if _, err := l.LoadAll(context.Background()); err != nil {
		t.Fatalf("first load: %v", err)
	}
	prior := eng.Store().Premiums()

	writeFile(t, dir, "primas.csv", "Foo\nbar\n")
	if _, err := l.LoadAll(context.Background()); err == nil {
		t.Fatal("expected error for bad file")
	}
	if eng.Store().Premiums() != prior {
		t.Error("failed reload must keep the previous snapshot")
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if _, err := l.LoadAll(context.Background()); err == nil {
		t.Fatal("expected error for missing file")
	}
	if eng.Store().Claims() != nil {
		t.Error("feed with no path should not be loaded")
	}
}

func TestFeeds(t *testing.T) {
	l := New(nil, zerolog.Nop(), map[model.FeedKind]string{model.FeedClaims: "g.csv", model.FeedPremiums: "p.csv"}, nil)
	got := l.Feeds()
	if len(got) != 2 || got[0] != model.FeedPremiums || got[1] != model.FeedClaims {
		t.Errorf("Feeds = %v", got)
	}
}

func TestSchedule(t *testing.T) {
	l := New(nil, zerolog.Nop(), map[model.FeedKind]string{model.FeedPremiums: "p.csv"}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := l.Schedule(ctx, ""); err != nil {
		t.Errorf("empty schedule: %v", err)
	}
	if err := l.Schedule(ctx, "every tuesday"); err == nil {
		t.Error("expected error for bad schedule")
	}
	if err := ValidateSchedule("@every 10m"); err != nil {
		t.Errorf("ValidateSchedule: %v", err)
	}
	if err := ValidateSchedule("61 * * * *"); err == nil {
		t.Error("expected error for out-of-range minute")
	}
}
