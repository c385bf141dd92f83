// Package store holds the current premium and claim record sets. Each feed
// occupies its own slot; a slot is replaced wholesale by swapping a pointer
// to an immutable snapshot, so readers see either the old or the new set.
package store

import (
	"slices"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/gyeh/lossreport/internal/model"
)

// Snapshot is one ingested record set. It must not be mutated after it has
// been published.
type Snapshot[T any] struct {
	BatchID  uuid.UUID
	LoadedAt time.Time
	Source   string
	Rows     []T
}

// Len returns the number of rows, tolerating a nil snapshot.
func (s *Snapshot[T]) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Rows)
}

// Store is the process-wide data set. The zero value is empty and ready to use.
type Store struct {
	premiums atomic.Pointer[Snapshot[model.PremiumRow]]
	claims   atomic.Pointer[Snapshot[model.ClaimRow]]
}

// New returns an empty store.
func New() *Store {
	return &Store{}
}

// View is a consistent pair of snapshots taken at one instant per slot.
type View struct {
	Premiums *Snapshot[model.PremiumRow]
	Claims   *Snapshot[model.ClaimRow]
}

// PremiumRows returns the premium rows, or nil when nothing is loaded.
func (v View) PremiumRows() []model.PremiumRow {
	if v.Premiums == nil {
		return nil
	}
	return v.Premiums.Rows
}

// ClaimRows returns the claim rows, or nil when nothing is loaded.
func (v View) ClaimRows() []model.ClaimRow {
	if v.Claims == nil {
		return nil
	}
	return v.Claims.Rows
}

// ReplacePremiums publishes a new premiums snapshot. rows is copied.
func (s *Store) ReplacePremiums(batchID uuid.UUID, source string, rows []model.PremiumRow) *Snapshot[model.PremiumRow] {
	snap := &Snapshot[model.PremiumRow]{
		BatchID:  batchID,
		LoadedAt: time.Now().UTC(),
		Source:   source,
		Rows:     slices.Clone(rows),
	}
	s.premiums.Store(snap)
	return snap
}

// ReplaceClaims publishes a new claims snapshot. rows is copied.
func (s *Store) ReplaceClaims(batchID uuid.UUID, source string, rows []model.ClaimRow) *Snapshot[model.ClaimRow] {
	snap := &Snapshot[model.ClaimRow]{
		BatchID:  batchID,
		LoadedAt: time.Now().UTC(),
		Source:   source,
		Rows:     slices.Clone(rows),
	}
	s.claims.Store(snap)
	return snap
}

// Premiums returns the current premiums snapshot, or nil.
func (s *Store) Premiums() *Snapshot[model.PremiumRow] {
	return s.premiums.Load()
}

// Claims returns the current claims snapshot, or nil.
func (s *Store) Claims() *Snapshot[model.ClaimRow] {
	return s.claims.Load()
}

// View loads both slots.
func (s *Store) View() View {
	return View{Premiums: s.premiums.Load(), Claims: s.claims.Load()}
}
