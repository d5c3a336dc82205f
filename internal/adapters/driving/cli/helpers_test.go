package cli

import (
	"context"

	"github.com/perch-labs/perch/internal/adapters/driven/storage/memory"
	"github.com/perch-labs/perch/internal/core/domain"
)

// stubLibrary is a canned driving.Library for command tests.
type stubLibrary struct {
	results []domain.SearchResult
	entries []domain.IndexEntry
	post    *domain.Post
	content string
	err     error
}

func (s *stubLibrary) Search(_ context.Context, _ string, _ int) ([]domain.SearchResult, error) {
	return s.results, s.err
}

func (s *stubLibrary) List(_ context.Context, _ domain.ListOptions) ([]domain.IndexEntry, error) {
	return s.entries, s.err
}

func (s *stubLibrary) Fetch(_ context.Context, _ string) (*domain.Post, string, error) {
	if s.err != nil {
		return nil, "", s.err
	}
	return s.post, s.content, nil
}

// stubReconciler is a canned driving.Reconciler for command tests.
type stubReconciler struct {
	report      *domain.Report
	err         error
	lastTrigger domain.Trigger
}

func (s *stubReconciler) Trigger(_ context.Context, trigger domain.Trigger) (*domain.Report, error) {
	s.lastTrigger = trigger
	return s.report, s.err
}

func (s *stubReconciler) Running() bool { return false }

// setupTestServices injects stub services and returns a cleanup that
// restores the uninitialised state.
func setupTestServices(lib *stubLibrary, rec *stubReconciler) func() {
	library = lib
	reconciler = rec
	states = memory.NewSyncStateStore()
	return func() {
		library = nil
		reconciler = nil
		states = nil
		appConfig = nil
	}
}
