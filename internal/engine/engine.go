// Package engine is the capability surface the transports call: ingest a
// feed, discover filters and build reports over one injected store.
package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/gyeh/lossreport/internal/headers"
	"github.com/gyeh/lossreport/internal/ingest"
	"github.com/gyeh/lossreport/internal/model"
	"github.com/gyeh/lossreport/internal/report"
	"github.com/gyeh/lossreport/internal/store"
	"github.com/gyeh/lossreport/internal/tablesource"
)

// Options configures an Engine. Zero values fall back to the defaults.
type Options struct {
	ClientPolicy   report.ClientPolicy
	Ranking        report.Options
	PremiumAliases headers.Table
	ClaimAliases   headers.Table
}

// Engine ties the row builder, the store and the report functions together.
// It is safe for concurrent use.
type Engine struct {
	st   *store.Store
	log  zerolog.Logger
	opts Options
}

// New returns an engine over st.
func New(st *store.Store, log zerolog.Logger, opts Options) *Engine {
	if opts.ClientPolicy == "" {
		opts.ClientPolicy = report.PolicyUnion
	}
	def := report.DefaultOptions()
	if opts.Ranking.TopProviders <= 0 {
		opts.Ranking.TopProviders = def.TopProviders
	}
	if opts.Ranking.TopInsured <= 0 {
		opts.Ranking.TopInsured = def.TopInsured
	}
	if opts.PremiumAliases == nil {
		opts.PremiumAliases = headers.PremiumAliases
	}
	if opts.ClaimAliases == nil {
		opts.ClaimAliases = headers.ClaimAliases
	}
	return &Engine{st: st, log: log, opts: opts}
}

// Store returns the underlying store.
func (e *Engine) Store() *store.Store {
	return e.st
}

// Aliases returns the alias table used for kind.
func (e *Engine) Aliases(kind model.FeedKind) headers.Table {
	if kind == model.FeedClaims {
		return e.opts.ClaimAliases
	}
	return e.opts.PremiumAliases
}

// TableOptions returns reader options that locate the header row of kind.
func (e *Engine) TableOptions(kind model.FeedKind) tablesource.Options {
	return tablesource.Options{HeaderHint: e.Aliases(kind).LooksLikeHeader}
}

// Ingest normalizes t and replaces the kind's record set. On error the
// current record set is left in place.
func (e *Engine) Ingest(ctx context.Context, kind model.FeedKind, t *tablesource.Table) (*model.IngestSummary, error) {
	return e.IngestSource(ctx, kind, ingest.Source{Table: t})
}

// IngestSource is Ingest with source metadata carried into the summary and
// snapshot.
func (e *Engine) IngestSource(ctx context.Context, kind model.FeedKind, src ingest.Source) (*model.IngestSummary, error) {
	return ingest.Run(ctx, e.st, e.log, kind, e.Aliases(kind), src)
}

// Filters lists clients and their coverage and period options.
func (e *Engine) Filters() report.Filters {
	v := e.st.View()
	return report.DiscoverFilters(v.PremiumRows(), v.ClaimRows(), e.opts.ClientPolicy)
}

// Trend builds the premium/claims trend for client.
func (e *Engine) Trend(client string, sel report.Selection) ([]report.TrendSeries, error) {
	defer e.timed("trend", time.Now())
	return report.BuildTrend(e.st.View().PremiumRows(), client, sel)
}

// Distribution builds the expense distribution for client.
func (e *Engine) Distribution(client string, sel report.Selection) (*report.Distribution, error) {
	defer e.timed("distribution", time.Now())
	return report.BuildDistribution(e.st.View().ClaimRows(), client, sel, e.opts.Ranking)
}

func (e *Engine) timed(name string, start time.Time) {
	e.log.Debug().Str("report", name).Dur("duration", time.Since(start)).Msg("report built")
}
