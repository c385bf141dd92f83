package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gyeh/lossreport/internal/headers"
	"github.com/gyeh/lossreport/internal/model"
)

// Rows between cancellation checks.
const checkEvery = 1024

// StageResult holds the normalized rows and metrics from the staging phase.
// Only the slice matching the feed kind is populated.
type StageResult struct {
	Premiums []model.PremiumRow
	Claims   []model.ClaimRow
	Stats    BuildStats
	Duration time.Duration
}

// Stage normalizes every row of the preflighted table. Dropped rows are
// counted and logged at debug level.
func Stage(ctx context.Context, log zerolog.Logger, pf *PreflightResult) (*StageResult, error) {
	start := time.Now()
	res := &StageResult{}

	var err error
	switch pf.Kind {
	case model.FeedPremiums:
		res.Premiums, res.Stats, err = stageRows(ctx, log, pf, PremiumRow)
	case model.FeedClaims:
		res.Claims, res.Stats, err = stageRows(ctx, log, pf, ClaimRow)
	default:
		return nil, fmt.Errorf("unknown feed %q", pf.Kind)
	}
	if err != nil {
		return nil, err
	}
	res.Duration = time.Since(start)

	log.Info().
		Int64("rows_read", res.Stats.RowsRead).
		Int64("rows_accepted", res.Stats.RowsAccepted).
		Int64("dropped_no_client", res.Stats.DroppedNoClient).
		Int64("dropped_bad_period", res.Stats.DroppedBadPeriod).
		Str("duration", res.Duration.String()).
		Msg("staging complete")

	return res, nil
}

func stageRows[T any](ctx context.Context, log zerolog.Logger, pf *PreflightResult, convert func(map[string]any, headers.Mapping) (T, error)) ([]T, BuildStats, error) {
	var stats BuildStats
	out := make([]T, 0, pf.Table.Len())
	for i, raw := range pf.Table.Rows {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, stats, fmt.Errorf("stage at row %d: %w", i, err)
			}
		}
		row, err := convert(raw, pf.Mapping)
		stats.count(err)
		if err != nil {
			log.Debug().Err(err).Int("row", i+1).Msg("row dropped")
			continue
		}
		out = append(out, row)
	}
	return out, stats, nil
}
