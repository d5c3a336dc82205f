package driven

import (
	"context"
	"time"

	"github.com/perch-labs/perch/internal/core/domain"
)

// SyncStateStore persists reconciliation progress across restarts.
// Correctness never depends on it: with no stored state the next run
// performs a full scan.
type SyncStateStore interface {
	// SaveLastSuccess records the start time of the last clean full pass.
	SaveLastSuccess(ctx context.Context, t time.Time) error

	// LastSuccess returns the stored timestamp, or a zero time when
	// nothing has been recorded yet.
	LastSuccess(ctx context.Context) (time.Time, error)

	// RecordReport appends a reconciliation report to the history.
	RecordReport(ctx context.Context, report *domain.Report) error

	// History returns the most recent reports, newest first.
	History(ctx context.Context, limit int) ([]domain.Report, error)
}
