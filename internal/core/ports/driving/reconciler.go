package driving

import (
	"context"

	"github.com/perch-labs/perch/internal/core/domain"
)

// Reconciler drives the index towards source state. Poll, webhook and
// manual callers all converge on the single Trigger entry point.
type Reconciler interface {
	// Trigger runs one reconciliation pass, blocking until it
	// completes or fails. A full trigger arriving while a full pass is
	// in flight returns immediately with Report.Coalesced set; the
	// same applies to a scoped trigger for a key already being
	// reconciled. The error is non-nil only when the pass could not
	// even begin (e.g. the source listing endpoint is unreachable).
	Trigger(ctx context.Context, trigger domain.Trigger) (*domain.Report, error)

	// Running reports whether a full pass is currently in flight.
	// Diagnostic only; never a scheduling precondition.
	Running() bool
}

// Scheduler owns the periodic poll loop feeding the reconciler.
type Scheduler interface {
	// Start begins the poll loop. Blocks until the context is
	// cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop gracefully stops the loop, waiting for an in-flight pass.
	Stop() error
}
