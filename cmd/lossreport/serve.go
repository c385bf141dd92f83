package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gyeh/lossreport/internal/engine"
	"github.com/gyeh/lossreport/internal/exitcode"
	"github.com/gyeh/lossreport/internal/logging"
	"github.com/gyeh/lossreport/internal/reload"
	"github.com/gyeh/lossreport/internal/server"
	"github.com/gyeh/lossreport/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve uploads and reports over HTTP",
	RunE:  runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&flagCfg.Addr, "addr", ":8080", "Listen address (or set LOSSREPORT_ADDR)")
	f.StringVar(&flagCfg.Reload, "reload", "", `Cron schedule re-reading --premiums/--claims, e.g. "@every 10m"`)
	f.Int64Var(&flagCfg.MaxUploadBytes, "max-upload-bytes", 32<<20, "Largest accepted upload")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts, err := cfg.EngineOptions()
	if err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}
	eng := engine.New(store.New(), log, opts)
	srv := server.New(eng, log, server.Options{MaxUploadBytes: cfg.MaxUploadBytes})

	loader := reload.New(eng, log, cfg.FeedFiles(), srv.Metrics().RecordIngest)
	if len(loader.Feeds()) > 0 {
		// A bad file at startup is not fatal; uploads can still fill the slot.
		_, _ = loader.LoadAll(ctx)
	}
	if err := loader.Schedule(ctx, cfg.Reload); err != nil {
		log.Error().Err(err).Msg("reload schedule rejected")
		os.Exit(exitcode.UsageError)
	}

	if err := srv.ListenAndServe(ctx, cfg.Addr); err != nil {
		log.Error().Err(err).Msg("server failed")
		os.Exit(exitcode.ServeError)
	}
	return nil
}
