// Package memory provides in-memory storage implementations, used when
// no state path is configured and as lightweight test doubles.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/perch-labs/perch/internal/core/domain"
	"github.com/perch-labs/perch/internal/core/ports/driven"
)

// Ensure SyncStateStore implements the interface.
var _ driven.SyncStateStore = (*SyncStateStore)(nil)

// DefaultHistoryLimit caps the retained report history.
const DefaultHistoryLimit = 100

// SyncStateStore is an in-memory implementation of driven.SyncStateStore.
// State is lost on restart, which is safe: the next pass falls back to a
// full scan.
type SyncStateStore struct {
	mu          sync.RWMutex
	lastSuccess time.Time
	reports     []domain.Report
}

// NewSyncStateStore creates a new in-memory sync state store.
func NewSyncStateStore() *SyncStateStore {
	return &SyncStateStore{}
}

// SaveLastSuccess records the start time of the last clean full pass.
func (s *SyncStateStore) SaveLastSuccess(_ context.Context, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSuccess = t
	return nil
}

// LastSuccess returns the stored timestamp, zero when never set.
func (s *SyncStateStore) LastSuccess(_ context.Context) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSuccess, nil
}

// RecordReport prepends a report to the history, pruning the tail.
func (s *SyncStateStore) RecordReport(_ context.Context, report *domain.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reports = append([]domain.Report{*report}, s.reports...)
	if len(s.reports) > DefaultHistoryLimit {
		s.reports = s.reports[:DefaultHistoryLimit]
	}
	return nil
}

// History returns the most recent reports, newest first.
func (s *SyncStateStore) History(_ context.Context, limit int) ([]domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.reports) {
		limit = len(s.reports)
	}

	out := make([]domain.Report, limit)
	copy(out, s.reports[:limit])
	return out, nil
}
