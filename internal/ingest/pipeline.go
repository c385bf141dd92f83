package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gyeh/lossreport/internal/headers"
	"github.com/gyeh/lossreport/internal/model"
	"github.com/gyeh/lossreport/internal/store"
	"github.com/gyeh/lossreport/internal/tablesource"
)

// PipelineError wraps an error with the phase where it occurred.
type PipelineError struct {
	Phase string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Phase, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// ValidationError reports a table that cannot be ingested at all: it has no
// data rows or lacks required columns.
type ValidationError struct {
	Feed    model.FeedKind
	Reason  string
	Missing []headers.Field
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s table: %s", e.Feed, e.Reason)
}

// MissingNames returns the missing canonical field names.
func (e *ValidationError) MissingNames() []string {
	out := make([]string, len(e.Missing))
	for i, f := range e.Missing {
		out[i] = string(f)
	}
	return out
}

// Source is a parsed table plus where it came from.
type Source struct {
	Name   string
	SHA256 string
	Table  *tablesource.Table
}

// Run executes the ingest pipeline for one feed: preflight -> stage ->
// finalize. The store slot is only replaced when every phase succeeds.
func Run(ctx context.Context, st *store.Store, log zerolog.Logger, kind model.FeedKind, aliases headers.Table, src Source) (*model.IngestSummary, error) {
	totalStart := time.Now()
	log = log.With().Str("feed", string(kind)).Logger()

	// Phase 1: Preflight
	log.Info().Str("source", src.Name).Msg("starting preflight")
	pf, err := Preflight(log, kind, aliases, src)
	if err != nil {
		return nil, &PipelineError{Phase: "preflight", Err: err}
	}

	// Phase 2: Stage
	log.Info().Msg("starting staging")
	sr, err := Stage(ctx, log, pf)
	if err != nil {
		return nil, &PipelineError{Phase: "stage", Err: err}
	}

	// Phase 3: Finalize
	if err := Finalize(ctx, st, log, pf, sr); err != nil {
		return nil, &PipelineError{Phase: "finalize", Err: err}
	}

	summary := summarize(kind, src, pf, sr)
	summary.DurationTotal = time.Since(totalStart)

	log.Info().
		Int64("rows_read", summary.RowsRead).
		Int64("rows_accepted", summary.RowsAccepted).
		Int64("rows_dropped", summary.RowsDropped).
		Str("batch_id", summary.BatchID).
		Str("total_duration", summary.DurationTotal.String()).
		Msg("ingest pipeline complete")

	return summary, nil
}

// Plan runs preflight and stage without touching any store. Used for dry
// runs.
func Plan(ctx context.Context, log zerolog.Logger, kind model.FeedKind, aliases headers.Table, src Source) (*model.IngestSummary, error) {
	pf, err := Preflight(log, kind, aliases, src)
	if err != nil {
		return nil, &PipelineError{Phase: "preflight", Err: err}
	}
	sr, err := Stage(ctx, log, pf)
	if err != nil {
		return nil, &PipelineError{Phase: "stage", Err: err}
	}
	return summarize(kind, src, pf, sr), nil
}

func summarize(kind model.FeedKind, src Source, pf *PreflightResult, sr *StageResult) *model.IngestSummary {
	return &model.IngestSummary{
		Feed:             kind,
		Source:           src.Name,
		SourceSHA256:     src.SHA256,
		BatchID:          pf.BatchID.String(),
		Sheet:            src.Table.Sheet,
		Headers:          pf.Mapping.Strings(),
		RowsRead:         sr.Stats.RowsRead,
		RowsAccepted:     sr.Stats.RowsAccepted,
		RowsDropped:      sr.Stats.Dropped(),
		DroppedNoClient:  sr.Stats.DroppedNoClient,
		DroppedBadPeriod: sr.Stats.DroppedBadPeriod,
		DurationBuild:    sr.Duration,
	}
}
