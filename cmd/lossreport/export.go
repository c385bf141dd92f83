package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/lossreport/internal/engine"
	"github.com/gyeh/lossreport/internal/exitcode"
	"github.com/gyeh/lossreport/internal/ingest"
	"github.com/gyeh/lossreport/internal/logging"
	"github.com/gyeh/lossreport/internal/model"
	"github.com/gyeh/lossreport/internal/store"
	"github.com/gyeh/lossreport/internal/tablesource"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Normalize a feed file and write its canonical rows as Parquet",
	RunE:  runExport,
}

func init() {
	addFileFlags(exportCmd)
	exportCmd.Flags().StringVar(&exportOut, "out", "", "Output .parquet path (required)")
	_ = exportCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
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

	out, err := os.Create(exportOut)
	if err != nil {
		log.Error().Err(err).Msg("failed to create output")
		os.Exit(exitcode.ExportError)
	}
	defer out.Close()

	var stats ingest.BuildStats
	switch kind {
	case model.FeedPremiums:
		var rows []model.PremiumRow
		rows, stats, err = ingest.BuildPremiums(src.Table, eng.Aliases(kind))
		if err == nil {
			err = tablesource.WriteParquet(out, rows)
		}
	case model.FeedClaims:
		var rows []model.ClaimRow
		rows, stats, err = ingest.BuildClaims(src.Table, eng.Aliases(kind))
		if err == nil {
			err = tablesource.WriteParquet(out, rows)
		}
	}
	if err != nil {
		log.Error().Err(err).Str("feed", string(kind)).Msg("export failed")
		os.Remove(exportOut)
		if code := exitCodeFor(err); code == exitcode.ValidationError {
			os.Exit(code)
		}
		os.Exit(exitcode.ExportError)
	}
	if err := out.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close output")
		os.Exit(exitcode.ExportError)
	}

	fmt.Printf("Export complete: %d rows written to %s (%d dropped)\n", stats.RowsAccepted, exportOut, stats.Dropped())
	return nil
}
