package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/gyeh/lossreport/internal/engine"
	"github.com/gyeh/lossreport/internal/exitcode"
	"github.com/gyeh/lossreport/internal/headers"
	"github.com/gyeh/lossreport/internal/ingest"
	"github.com/gyeh/lossreport/internal/logging"
	"github.com/gyeh/lossreport/internal/model"
	"github.com/gyeh/lossreport/internal/normalize"
	"github.com/gyeh/lossreport/internal/store"
	"github.com/gyeh/lossreport/internal/tablesource"
)

var fileArgs struct {
	feed string
	file string
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Dry-run header resolution and drop stats (no data kept)",
	RunE:  runPlan,
}

func init() {
	addFileFlags(planCmd)
	rootCmd.AddCommand(planCmd)
}

func addFileFlags(c *cobra.Command) {
	f := c.Flags()
	f.StringVar(&fileArgs.feed, "feed", "", "Feed kind: premiums|primas or claims|gastos (required)")
	f.StringVar(&fileArgs.file, "file", "", "Path to the spreadsheet (required)")
	_ = c.MarkFlagRequired("feed")
	_ = c.MarkFlagRequired("file")
}

// readSource parses fileArgs into a feed kind and a parsed ingest source.
func readSource(eng *engine.Engine) (model.FeedKind, ingest.Source, error) {
	kind, err := model.ParseFeedKind(fileArgs.feed)
	if err != nil {
		return "", ingest.Source{}, err
	}
	sha, err := normalize.FileHash(fileArgs.file)
	if err != nil {
		return "", ingest.Source{}, err
	}
	t, err := tablesource.ReadFile(fileArgs.file, eng.TableOptions(kind))
	if err != nil {
		return "", ingest.Source{}, err
	}
	return kind, ingest.Source{Name: fileArgs.file, SHA256: sha, Table: t}, nil
}

func runPlan(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat)

	opts, err := cfg.EngineOptions()
	if err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}
	eng := engine.New(store.New(), log, opts)

	kind, src, err := readSource(eng)
	if err != nil {
		log.Error().Err(err).Msg("failed to read source")
		os.Exit(exitcode.SourceError)
	}

	sum, err := ingest.Plan(context.Background(), log, kind, eng.Aliases(kind), src)
	if err != nil {
		log.Error().Err(err).Msg("plan failed")
		os.Exit(exitCodeFor(err))
	}

	fmt.Println("=== lossreport plan ===")
	fmt.Printf("File:       %s\n", src.Name)
	fmt.Printf("SHA-256:    %s\n", src.SHA256)
	fmt.Printf("Feed:       %s\n", kind)
	if sum.Sheet != "" {
		fmt.Printf("Sheet:      %s\n", sum.Sheet)
	}
	fmt.Printf("Rows read:  %d\n", sum.RowsRead)
	fmt.Printf("Accepted:   %d\n", sum.RowsAccepted)
	fmt.Printf("Dropped:    %d (no client: %d, bad period: %d)\n", sum.RowsDropped, sum.DroppedNoClient, sum.DroppedBadPeriod)
	fmt.Println()
	fmt.Println("Header mapping:")

	fields := make([]string, 0, len(sum.Headers))
	for f := range sum.Headers {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		fmt.Printf("  %-24s ← %q\n", f, sum.Headers[f])
	}
	for _, a := range eng.Aliases(kind) {
		if _, ok := sum.Headers[string(a.Field)]; !ok {
			fmt.Printf("  %-24s (not found, defaults apply)\n", a.Field)
		}
	}
	fmt.Printf("\nRequired columns: OK (%d aliases known)\n", countNames(eng.Aliases(kind)))
	return nil
}

func countNames(t headers.Table) int {
	n := 0
	for _, a := range t {
		n += len(a.Names)
	}
	return n
}
