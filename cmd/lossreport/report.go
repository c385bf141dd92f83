package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gyeh/lossreport/internal/engine"
	"github.com/gyeh/lossreport/internal/exitcode"
	"github.com/gyeh/lossreport/internal/ingest"
	"github.com/gyeh/lossreport/internal/logging"
	"github.com/gyeh/lossreport/internal/reload"
	"github.com/gyeh/lossreport/internal/report"
	"github.com/gyeh/lossreport/internal/store"
)

var reportArgs struct {
	client    string
	coverages string
	periods   string
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Load the configured files once and print a report as JSON",
}

var trendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Premium vs claims trend per coverage and period",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReport(func(eng *engine.Engine) (any, error) {
			return eng.Trend(reportArgs.client, report.ParseSelection(reportArgs.coverages, reportArgs.periods))
		})
	},
}

var distributionCmd = &cobra.Command{
	Use:   "distribution",
	Short: "Expense distribution, rankings and system health",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReport(func(eng *engine.Engine) (any, error) {
			return eng.Distribution(reportArgs.client, report.ParseSelection(reportArgs.coverages, reportArgs.periods))
		})
	},
}

var filtersCmd = &cobra.Command{
	Use:   "filters",
	Short: "Clients with their coverage and period options",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReport(func(eng *engine.Engine) (any, error) {
			return eng.Filters(), nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{trendCmd, distributionCmd} {
		f := c.Flags()
		f.StringVar(&reportArgs.client, "client", "", "Client name (required)")
		f.StringVar(&reportArgs.coverages, "coverages", "", "Comma-separated coverages (default: all of the client's)")
		f.StringVar(&reportArgs.periods, "periods", "", "Comma-separated YYYY-MM periods (default: all of the client's)")
		_ = c.MarkFlagRequired("client")
	}
	reportCmd.AddCommand(trendCmd, distributionCmd, filtersCmd)
	rootCmd.AddCommand(reportCmd)
}

func runReport(build func(*engine.Engine) (any, error)) error {
	log := logging.Setup(cfg.LogFormat)

	eng := loadEngine(log)
	out, err := build(eng)
	if err != nil {
		log.Error().Err(err).Msg("report failed")
		if errors.Is(err, report.ErrClientRequired) {
			os.Exit(exitcode.UsageError)
		}
		os.Exit(exitcode.IngestError)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// loadEngine builds an engine from cfg and ingests the configured files,
// exiting on any failure.
func loadEngine(log zerolog.Logger) *engine.Engine {
	opts, err := cfg.EngineOptions()
	if err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}
	eng := engine.New(store.New(), log, opts)

	loader := reload.New(eng, log, cfg.FeedFiles(), nil)
	if len(loader.Feeds()) == 0 {
		log.Error().Msg("--premiums or --claims is required")
		os.Exit(exitcode.UsageError)
	}
	if _, err := loader.LoadAll(context.Background()); err != nil {
		os.Exit(exitCodeFor(err))
	}
	return eng
}

// exitCodeFor maps an ingestion failure to a process exit code.
func exitCodeFor(err error) int {
	var ve *ingest.ValidationError
	if errors.As(err, &ve) {
		return exitcode.ValidationError
	}
	var pe *ingest.PipelineError
	if errors.As(err, &pe) {
		return exitcode.IngestError
	}
	return exitcode.SourceError
}
