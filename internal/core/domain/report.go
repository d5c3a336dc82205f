package domain

import "time"

// ReconcileOp names the index operation that a failure occurred in.
type ReconcileOp string

const (
	// OpFetch is reading a post from the content source.
	OpFetch ReconcileOp = "fetch"

	// OpUpsert is writing a record to the index store.
	OpUpsert ReconcileOp = "upsert"

	// OpDelete is removing a record from the index store.
	OpDelete ReconcileOp = "delete"
)

// Failure records one post that could not be reconciled.
type Failure struct {
	// Key is the canonical key of the affected post.
	Key string

	// Op is the operation that failed.
	Op ReconcileOp

	// Message is the underlying error text.
	Message string
}

// Report is the outcome of one reconciliation pass.
type Report struct {
	// Reason is the trigger reason the pass ran under.
	Reason TriggerReason

	// Key is set for scoped passes.
	Key string

	// Coalesced is true when the trigger was dropped because an
	// equivalent pass was already in flight. All counts are zero.
	Coalesced bool

	// StartedAt is when the pass began. A fully successful full pass
	// advances SyncState.LastSuccess to this timestamp.
	StartedAt time.Time

	// Duration is how long the pass took.
	Duration time.Duration

	// Created counts posts indexed for the first time.
	Created int

	// Updated counts posts re-indexed because the source was newer.
	Updated int

	// Deleted counts orphans removed from the index.
	Deleted int

	// Unchanged counts posts skipped with no store call.
	Unchanged int

	// Failed counts posts that could not be applied.
	Failed int

	// Failures describes each failed post.
	Failures []Failure
}

// Clean reports whether the pass completed with zero failures.
func (r *Report) Clean() bool {
	return r.Failed == 0
}
