package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/gyeh/lossreport/internal/config"
)

// cfg is loaded from .env, LOSSREPORT_* and the optional YAML file before
// any command runs; flags the user set explicitly win over all of those.
var cfg *config.Config

var flagCfg config.Config

var rootCmd = &cobra.Command{
	Use:          "lossreport",
	Short:        "Insurance loss-ratio and claims-distribution reports",
	Long:         "Ingests premium and claim spreadsheets for group health accounts and serves trend and expense-distribution reports per client.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return err
		}
		if err := applyFlags(cmd.Flags(), c); err != nil {
			return err
		}
		cfg = c
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagCfg.LogFormat, "log-format", "text", "Log format: text or json (or set LOSSREPORT_LOG_FORMAT)")
	pf.StringVar(&flagCfg.ConfigFile, "config", "", "YAML file with client_policy, top_providers, top_insured and aliases")
	pf.StringVar(&flagCfg.PremiumsFile, "premiums", "", "Premiums spreadsheet (.xlsx, .xls, .csv or .parquet)")
	pf.StringVar(&flagCfg.ClaimsFile, "claims", "", "Claims spreadsheet (.xlsx, .xls, .csv or .parquet)")
	pf.StringVar(&flagCfg.ClientPolicy, "client-policy", "union", "Client list policy: union or intersection")
	pf.IntVar(&flagCfg.TopProviders, "top-providers", 10, "Providers kept in the distribution ranking")
	pf.IntVar(&flagCfg.TopInsured, "top-insured", 20, "Insured members kept in the distribution ranking")
}

// applyFlags copies explicitly set flags over c. The config file named by
// --config is merged first so the remaining flags still override it.
func applyFlags(fs *pflag.FlagSet, c *config.Config) error {
	if fs.Changed("config") {
		if err := c.LoadFromFile(flagCfg.ConfigFile); err != nil {
			return err
		}
	}
	set := map[string]func(){
		"log-format":       func() { c.LogFormat = flagCfg.LogFormat },
		"premiums":         func() { c.PremiumsFile = flagCfg.PremiumsFile },
		"claims":           func() { c.ClaimsFile = flagCfg.ClaimsFile },
		"client-policy":    func() { c.ClientPolicy = flagCfg.ClientPolicy },
		"top-providers":    func() { c.TopProviders = flagCfg.TopProviders },
		"top-insured":      func() { c.TopInsured = flagCfg.TopInsured },
		"addr":             func() { c.Addr = flagCfg.Addr },
		"reload":           func() { c.Reload = flagCfg.Reload },
		"max-upload-bytes": func() { c.MaxUploadBytes = flagCfg.MaxUploadBytes },
	}
	for name, apply := range set {
		if f := fs.Lookup(name); f != nil && f.Changed {
			apply()
		}
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
