package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/gyeh/lossreport/internal/engine"
	"github.com/gyeh/lossreport/internal/headers"
	"github.com/gyeh/lossreport/internal/model"
	"github.com/gyeh/lossreport/internal/reload"
	"github.com/gyeh/lossreport/internal/report"
)

// EnvPrefix prefixes every environment variable, e.g. LOSSREPORT_ADDR.
const EnvPrefix = "LOSSREPORT"

// Config holds all runtime configuration for a lossreport run.
type Config struct {
	LogFormat      string `envconfig:"LOG_FORMAT" default:"text" validate:"oneof=text json"`
	Addr           string `envconfig:"ADDR" default:":8080" validate:"required"`
	MaxUploadBytes int64  `envconfig:"MAX_UPLOAD_BYTES" default:"33554432" validate:"gt=0"`
	ConfigFile     string `envconfig:"CONFIG"`

	// Files loaded at startup and on every reload tick.
	PremiumsFile string `envconfig:"PREMIUMS_FILE"`
	ClaimsFile   string `envconfig:"CLAIMS_FILE"`
	Reload       string `envconfig:"RELOAD"` // cron spec, e.g. "@every 10m"

	ClientPolicy string `yaml:"client_policy" envconfig:"CLIENT_POLICY" default:"union" validate:"oneof=union intersection"`
	TopProviders int    `yaml:"top_providers" envconfig:"TOP_PROVIDERS" default:"10" validate:"gte=1"`
	TopInsured   int    `yaml:"top_insured" envconfig:"TOP_INSURED" default:"20" validate:"gte=1"`

	// Aliases adds accepted source headers per feed and canonical field,
	// tried after the built-in ones. Only settable from the YAML file.
	Aliases map[string]map[string][]string `yaml:"aliases" ignored:"true"`
}

// fileConfig is the on-disk YAML structure.
type fileConfig struct {
	ClientPolicy string                         `yaml:"client_policy"`
	TopProviders int                            `yaml:"top_providers"`
	TopInsured   int                            `yaml:"top_insured"`
	Reload       string                         `yaml:"reload"`
	Aliases      map[string]map[string][]string `yaml:"aliases"`
}

// Load reads a .env file when present, then the LOSSREPORT_* environment,
// then the YAML file named by LOSSREPORT_CONFIG if set.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	var c Config
	if err := envconfig.Process(EnvPrefix, &c); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}
	if c.ConfigFile != "" {
		if err := c.LoadFromFile(c.ConfigFile); err != nil {
			return nil, err
		}
	}
	return &c, nil
}

// LoadFromFile reads a YAML config file and merges its non-empty values
// into c.
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	if fc.ClientPolicy != "" {
		c.ClientPolicy = fc.ClientPolicy
	}
	if fc.TopProviders != 0 {
		c.TopProviders = fc.TopProviders
	}
	if fc.TopInsured != 0 {
		c.TopInsured = fc.TopInsured
	}
	if fc.Reload != "" {
		c.Reload = fc.Reload
	}
	if fc.Aliases != nil {
		c.Aliases = fc.Aliases
	}
	c.ConfigFile = path
	return c.validateAliases()
}

// validateAliases checks that every alias entry names a known feed and field.
func (c *Config) validateAliases() error {
	_, _, err := c.AliasTables()
	return err
}

// AliasTables returns the built-in alias tables extended with c.Aliases.
func (c *Config) AliasTables() (premiums, claims headers.Table, err error) {
	premiums, claims = headers.PremiumAliases, headers.ClaimAliases
	for feed, extra := range c.Aliases {
		kind, err := model.ParseFeedKind(feed)
		if err != nil {
			return nil, nil, fmt.Errorf("aliases: %w", err)
		}
		switch kind {
		case model.FeedPremiums:
			premiums, err = premiums.Extend(extra)
		case model.FeedClaims:
			claims, err = claims.Extend(extra)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("aliases for %s: %w", kind, err)
		}
	}
	return premiums, claims, nil
}

// Validate checks field constraints and the alias section.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid %s: %q fails %q", fe.Field(), fmt.Sprint(fe.Value()), fe.Tag())
		}
		return err
	}
	if err := reload.ValidateSchedule(c.Reload); err != nil {
		return err
	}
	return c.validateAliases()
}

// EngineOptions converts c into engine options.
func (c *Config) EngineOptions() (engine.Options, error) {
	policy, err := report.ParseClientPolicy(c.ClientPolicy)
	if err != nil {
		return engine.Options{}, err
	}
	premiums, claims, err := c.AliasTables()
	if err != nil {
		return engine.Options{}, err
	}
	return engine.Options{
		ClientPolicy:   policy,
		Ranking:        report.Options{TopProviders: c.TopProviders, TopInsured: c.TopInsured},
		PremiumAliases: premiums,
		ClaimAliases:   claims,
	}, nil
}

// FeedFiles returns the configured source file per feed, skipping unset ones.
func (c *Config) FeedFiles() map[model.FeedKind]string {
	out := make(map[model.FeedKind]string, 2)
	if c.PremiumsFile != "" {
		out[model.FeedPremiums] = c.PremiumsFile
	}
	if c.ClaimsFile != "" {
		out[model.FeedClaims] = c.ClaimsFile
	}
	return out
}
