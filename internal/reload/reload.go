// Package reload re-ingests the configured feed files, once at startup and
// then on a cron schedule. Each run replaces the feed's record set
// wholesale, exactly like an upload; a failed run keeps the prior set.
package reload

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/gyeh/lossreport/internal/engine"
	"github.com/gyeh/lossreport/internal/ingest"
	"github.com/gyeh/lossreport/internal/model"
	"github.com/gyeh/lossreport/internal/normalize"
	"github.com/gyeh/lossreport/internal/tablesource"
)

// Hook observes every ingestion attempt, successful or not.
type Hook func(kind model.FeedKind, sum *model.IngestSummary, err error)

// Loader ingests a fixed set of files into one engine.
type Loader struct {
	eng    *engine.Engine
	log    zerolog.Logger
	files  map[model.FeedKind]string
	onLoad Hook
}

// New returns a loader for files; feeds with an empty path are skipped.
// onLoad may be nil.
func New(eng *engine.Engine, log zerolog.Logger, files map[model.FeedKind]string, onLoad Hook) *Loader {
	fs := make(map[model.FeedKind]string, len(files))
	for k, p := range files {
		if p != "" {
			fs[k] = p
		}
	}
	return &Loader{
		eng:    eng,
		log:    log.With().Str("component", "reload").Logger(),
		files:  fs,
		onLoad: onLoad,
	}
}

// Feeds returns the configured feed kinds in canonical order.
func (l *Loader) Feeds() []model.FeedKind {
	var out []model.FeedKind
	for _, k := range model.AllFeeds {
		if _, ok := l.files[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

// LoadFile reads path and ingests it as kind.
func (l *Loader) LoadFile(ctx context.Context, kind model.FeedKind, path string) (*model.IngestSummary, error) {
	sum, err := l.loadFile(ctx, kind, path)
	if l.onLoad != nil {
		l.onLoad(kind, sum, err)
	}
	return sum, err
}

func (l *Loader) loadFile(ctx context.Context, kind model.FeedKind, path string) (*model.IngestSummary, error) {
	sha, err := normalize.FileHash(path)
	if err != nil {
		return nil, err
	}
	t, err := tablesource.ReadFile(path, l.eng.TableOptions(kind))
	if err != nil {
		return nil, err
	}
	return l.eng.IngestSource(ctx, kind, ingest.Source{Name: path, SHA256: sha, Table: t})
}

// LoadAll ingests every configured file concurrently. The feeds occupy
// independent slots, so one failing does not stop the other; the first
// error is returned after both finish.
func (l *Loader) LoadAll(ctx context.Context) (map[model.FeedKind]*model.IngestSummary, error) {
	feeds := l.Feeds()
	sums := make([]*model.IngestSummary, len(feeds))
	errs := make([]error, len(feeds))

	var g errgroup.Group
	for i, kind := range feeds {
		g.Go(func() error {
			start := time.Now()
			sum, err := l.LoadFile(ctx, kind, l.files[kind])
			if err != nil {
				l.log.Error().Err(err).Str("feed", string(kind)).Str("file", l.files[kind]).Msg("load failed; keeping previous data")
				errs[i] = fmt.Errorf("%s: %w", kind, err)
				return nil
			}
			l.log.Info().
				Str("feed", string(kind)).
				Str("file", l.files[kind]).
				Int64("rows_accepted", sum.RowsAccepted).
				Int64("rows_dropped", sum.RowsDropped).
				Dur("duration", time.Since(start)).
				Msg("feed loaded")
			sums[i] = sum
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[model.FeedKind]*model.IngestSummary, len(feeds))
	for i, kind := range feeds {
		if sums[i] != nil {
			out[kind] = sums[i]
		}
	}
	for _, err := range errs {
		if err != nil {
			return out, err
		}
	}
	return out, nil
}

// Schedule starts a cron that calls LoadAll on spec until ctx is done.
// An empty spec or no configured files starts nothing.
func (l *Loader) Schedule(ctx context.Context, spec string) error {
	if spec == "" || len(l.files) == 0 {
		return nil
	}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(spec, func() {
		_, _ = l.LoadAll(ctx)
	}); err != nil {
		return fmt.Errorf("reload schedule %q: %w", spec, err)
	}
	c.Start()
	l.log.Info().Str("schedule", spec).Strs("files", l.paths()).Msg("reload scheduled")

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		l.log.Info().Msg("reload stopped")
	}()
	return nil
}

func (l *Loader) paths() []string {
	out := make([]string, 0, len(l.files))
	for _, p := range l.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// ValidateSchedule reports whether spec parses as a cron schedule.
func ValidateSchedule(spec string) error {
	if spec == "" {
		return nil
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("reload schedule %q: %w", spec, err)
	}
	return nil
}
