package ingest

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gyeh/lossreport/internal/headers"
	"github.com/gyeh/lossreport/internal/model"
	"github.com/gyeh/lossreport/internal/tablesource"
)

// PreflightResult holds all context resolved during the preflight phase.
type PreflightResult struct {
	// Kind is the feed being ingested.
	Kind model.FeedKind
	// Source is the name the table was read from, stored as-is.
	Source string
	// Table is the parsed source table.
	Table *tablesource.Table
	// Mapping resolves each canonical field to its source header.
	Mapping headers.Mapping
	// BatchID is a freshly generated UUIDv4 that identifies this ingest run.
	// It becomes the snapshot's batch id on finalize.
	BatchID uuid.UUID
}

// Preflight checks that the table has data rows and that every required
// column resolves. It never touches the store.
func Preflight(log zerolog.Logger, kind model.FeedKind, aliases headers.Table, src Source) (*PreflightResult, error) {
	start := time.Now()

	m, err := resolve(kind, src.Table, aliases)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			log.Warn().
				Str("source", src.Name).
				Strs("missing", ve.MissingNames()).
				Str("reason", ve.Reason).
				Msg("preflight rejected table")
		}
		return nil, err
	}

	log.Info().
		Str("source", src.Name).
		Str("sha256", src.SHA256).
		Str("sheet", src.Table.Sheet).
		Int("rows", src.Table.Len()).
		Int("resolved_columns", len(m)).
		Dur("duration", time.Since(start)).
		Msg("preflight complete")

	return &PreflightResult{
		Kind:    kind,
		Source:  src.Name,
		Table:   src.Table,
		Mapping: m,
		BatchID: uuid.New(),
	}, nil
}
