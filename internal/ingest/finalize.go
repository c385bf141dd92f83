package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gyeh/lossreport/internal/model"
	"github.com/gyeh/lossreport/internal/store"
)

// Finalize publishes the staged rows as the feed's new snapshot. The swap is
// the only point at which readers can observe the ingestion.
func Finalize(ctx context.Context, st *store.Store, log zerolog.Logger, pf *PreflightResult, sr *StageResult) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("finalize: %w", err)
	}
	start := time.Now()

	var rows int
	switch pf.Kind {
	case model.FeedPremiums:
		rows = st.ReplacePremiums(pf.BatchID, pf.Source, sr.Premiums).Len()
	case model.FeedClaims:
		rows = st.ReplaceClaims(pf.BatchID, pf.Source, sr.Claims).Len()
	default:
		return fmt.Errorf("unknown feed %q", pf.Kind)
	}

	log.Info().
		Str("batch_id", pf.BatchID.String()).
		Int("rows", rows).
		Dur("duration", time.Since(start)).
		Msg("snapshot replaced")
	return nil
}
