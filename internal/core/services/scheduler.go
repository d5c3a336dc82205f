package services

import (
	"context"
	"sync"
	"time"

	"github.com/perch-labs/perch/internal/core/domain"
	"github.com/perch-labs/perch/internal/core/ports/driving"
	"github.com/perch-labs/perch/internal/logger"
)

var _ driving.Scheduler = (*Scheduler)(nil)

// DefaultPollInterval is the time between scheduled reconciliation polls.
const DefaultPollInterval = 5 * time.Minute

// Scheduler drives periodic full reconciliation. It carries no state of
// its own: missed or overlapping ticks are simply absorbed, because the
// reconciler coalesces full triggers that arrive during a running pass.
type Scheduler struct {
	reconciler driving.Reconciler
	interval   time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler that polls at the given interval.
// A non-positive interval falls back to DefaultPollInterval.
func NewScheduler(reconciler driving.Reconciler, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Scheduler{
		reconciler: reconciler,
		interval:   interval,
	}
}

// Start begins the poll loop. An initial pass runs immediately so a
// fresh process converges without waiting a full interval. Blocks until
// the context is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	logger.Info("Scheduler started, polling every %s", s.interval)

	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// Stop gracefully shuts down the scheduler, waiting for an in-flight
// pass to complete.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// tick fires one poll trigger. The pass runs synchronously inside the
// loop goroutine: a pass that outlasts the interval delays the next
// tick instead of stacking, and the reconciler coalesces any full
// trigger that still slips in from elsewhere.
func (s *Scheduler) tick(ctx context.Context) {
	s.wg.Add(1)
	defer s.wg.Done()

	report, err := s.reconciler.Trigger(ctx, domain.Trigger{Reason: domain.ReasonPoll})
	if err != nil {
		logger.Warn("Scheduled reconciliation failed to start: %v", err)
		return
	}
	if report.Coalesced {
		logger.Debug("Scheduled poll coalesced into a running pass")
	}
}
