package mcp

import (
	"context"

	"github.com/perch-labs/perch/internal/core/domain"
)

// mockLibrary is a mock implementation of driving.Library.
type mockLibrary struct {
	results []domain.SearchResult
	entries []domain.IndexEntry
	post    *domain.Post
	content string
	err     error

	lastQuery string
	lastLimit int
	lastOpts  domain.ListOptions
	lastID    string
}

func (m *mockLibrary) Search(_ context.Context, query string, limit int) ([]domain.SearchResult, error) {
	m.lastQuery = query
	m.lastLimit = limit
	return m.results, m.err
}

func (m *mockLibrary) List(_ context.Context, opts domain.ListOptions) ([]domain.IndexEntry, error) {
	m.lastOpts = opts
	return m.entries, m.err
}

func (m *mockLibrary) Fetch(_ context.Context, identifier string) (*domain.Post, string, error) {
	m.lastID = identifier
	if m.err != nil {
		return nil, "", m.err
	}
	return m.post, m.content, nil
}

// mockReconciler is a mock implementation of driving.Reconciler.
type mockReconciler struct {
	report *domain.Report
	err    error

	lastTrigger domain.Trigger
	running     bool
}

func (m *mockReconciler) Trigger(_ context.Context, trigger domain.Trigger) (*domain.Report, error) {
	m.lastTrigger = trigger
	return m.report, m.err
}

func (m *mockReconciler) Running() bool {
	return m.running
}
