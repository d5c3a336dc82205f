package domain

import "time"

// SyncState tracks reconciliation progress. It is owned exclusively by
// the reconciler and mutated only after a pass completes. Losing it is
// harmless: the next run simply performs a full scan.
type SyncState struct {
	// LastSuccess is the start time of the last full pass that
	// finished with zero failures. Zero means no clean pass yet, and
	// the next full pass lists the entire published set.
	LastSuccess time.Time

	// IndexedKeys is the set of canonical keys believed to be in the
	// index after the last pass.
	IndexedKeys map[string]struct{}
}

// NewSyncState returns an empty state, as at process start.
func NewSyncState() *SyncState {
	return &SyncState{
		IndexedKeys: make(map[string]struct{}),
	}
}
