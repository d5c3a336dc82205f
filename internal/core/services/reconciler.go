package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/perch-labs/perch/internal/chunker"
	"github.com/perch-labs/perch/internal/core/domain"
	"github.com/perch-labs/perch/internal/core/ports/driven"
	"github.com/perch-labs/perch/internal/core/ports/driving"
	"github.com/perch-labs/perch/internal/logger"
	"github.com/perch-labs/perch/internal/normalise"
	"github.com/perch-labs/perch/internal/retry"
)

// Ensure Reconciler implements the interface.
var _ driving.Reconciler = (*Reconciler)(nil)

// DefaultApplyConcurrency bounds the worker pool for the apply phase.
const DefaultApplyConcurrency = 4

// Reconciler keeps the remote vector index consistent with the content
// source. It exclusively owns SyncState and is the only writer of the
// index outside of tests.
type Reconciler struct {
	source   driven.ContentSource
	index    driven.IndexStore
	resolver *Resolver
	states   driven.SyncStateStore // optional, nil disables persistence
	splitter *chunker.Splitter

	retryCfg    retry.Config
	concurrency int

	// fullMu serialises full passes; an overlapping full trigger is
	// coalesced via TryLock rather than queued.
	fullMu      sync.Mutex
	runningFull atomic.Bool

	// keys guards individual records during apply.
	keys *keyLock

	// scopedMu guards the in-flight set used to coalesce scoped
	// triggers for the same key.
	scopedMu       sync.Mutex
	scopedInFlight map[string]bool

	stateMu     sync.Mutex
	state       *domain.SyncState
	stateLoaded bool
	indexSeeded bool
}

// ReconcilerOption configures the reconciler.
type ReconcilerOption func(*Reconciler)

// WithApplyConcurrency sets the apply-phase worker pool size.
func WithApplyConcurrency(n int) ReconcilerOption {
	return func(r *Reconciler) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithRetryConfig overrides the retry policy for adapter calls.
func WithRetryConfig(cfg retry.Config) ReconcilerOption {
	return func(r *Reconciler) {
		r.retryCfg = cfg
	}
}

// WithStateStore enables durable persistence of the last-success
// timestamp and report history.
func WithStateStore(store driven.SyncStateStore) ReconcilerOption {
	return func(r *Reconciler) {
		r.states = store
	}
}

// WithSplitter overrides the chunking configuration.
func WithSplitter(s *chunker.Splitter) ReconcilerOption {
	return func(r *Reconciler) {
		r.splitter = s
	}
}

// NewReconciler creates a reconciler over the given adapters.
func NewReconciler(
	source driven.ContentSource,
	index driven.IndexStore,
	resolver *Resolver,
	opts ...ReconcilerOption,
) *Reconciler {
	r := &Reconciler{
		source:         source,
		index:          index,
		resolver:       resolver,
		splitter:       chunker.New(),
		retryCfg:       retry.DefaultConfig(domain.Retryable),
		concurrency:    DefaultApplyConcurrency,
		keys:           newKeyLock(),
		scopedInFlight: make(map[string]bool),
		state:          domain.NewSyncState(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Trigger runs one reconciliation pass. See driving.Reconciler.
func (r *Reconciler) Trigger(ctx context.Context, trigger domain.Trigger) (*domain.Report, error) {
	if trigger.Scoped() {
		return r.reconcileOne(ctx, trigger)
	}
	return r.reconcileFull(ctx, trigger)
}

// Running reports whether a full pass is in flight. Diagnostic only.
func (r *Reconciler) Running() bool {
	return r.runningFull.Load()
}

// reconcileFull compares the full source state against the index and
// applies the minimal diff. Best-effort: per-item failures are recorded
// and never abort the remaining items.
func (r *Reconciler) reconcileFull(ctx context.Context, trigger domain.Trigger) (*domain.Report, error) {
	if !r.fullMu.TryLock() {
		logger.Debug("Full reconciliation already in flight, coalescing %s trigger", trigger.Reason)
		return &domain.Report{Reason: trigger.Reason, Coalesced: true, StartedAt: time.Now()}, nil
	}
	defer r.fullMu.Unlock()

	r.runningFull.Store(true)
	defer r.runningFull.Store(false)

	started := time.Now()
	report := &domain.Report{Reason: trigger.Reason, StartedAt: started}

	// Run id correlates the log lines of one pass.
	runID := uuid.NewString()

	since := r.lastSuccess(ctx)
	if since.IsZero() {
		logger.Info("Starting full reconciliation %s (complete scan)", runID)
	} else {
		logger.Info("Starting full reconciliation %s (changes since %s)", runID, since.Format(time.RFC3339))
	}

	// Phase 1: gather. A failure here means the pass could not begin.
	posts, err := retry.DoWithResult(ctx, r.retryCfg, func() ([]domain.Post, error) {
		return r.source.ListPosts(ctx, since)
	})
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	entries, err := retry.DoWithResult(ctx, r.retryCfg, func() ([]domain.IndexEntry, error) {
		return r.index.ListEntries(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("list index entries: %w", err)
	}

	// The full reference listing is always fetched, even on incremental
	// polls: deletions produce no "since" signal.
	refs, err := retry.DoWithResult(ctx, r.retryCfg, func() ([]domain.PostRef, error) {
		return r.source.ListPostRefs(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("list post refs: %w", err)
	}

	// Phase 2: classify.
	indexed := make(map[string]domain.IndexEntry, len(entries))
	for _, entry := range entries {
		indexed[entry.Key] = entry
	}

	published := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		key, keyErr := r.resolver.KeyForPost(ref.URL, ref.Slug)
		if keyErr != nil {
			report.Failed++
			report.Failures = append(report.Failures, domain.Failure{
				Key: ref.Slug, Op: domain.OpFetch, Message: keyErr.Error(),
			})
			continue
		}
		published[key] = struct{}{}
	}

	var upserts []domain.Post
	for i := range posts {
		post := posts[i]
		key, keyErr := r.resolver.KeyForPost(post.URL, post.Slug)
		if keyErr != nil {
			report.Failed++
			report.Failures = append(report.Failures, domain.Failure{
				Key: post.Slug, Op: domain.OpFetch, Message: keyErr.Error(),
			})
			continue
		}
		post.Key = key

		entry, exists := indexed[key]
		switch {
		case !exists:
			upserts = append(upserts, post)
		case post.UpdatedAt.IsZero() || post.UpdatedAt.After(entry.UpdatedAt):
			// No source timestamp means we cannot prove freshness:
			// re-index.
			upserts = append(upserts, post)
		default:
			report.Unchanged++
		}
	}

	var orphans []string
	for key := range indexed {
		if _, ok := published[key]; !ok {
			orphans = append(orphans, key)
		}
	}

	logger.Info("Reconciliation %s diff: %d to upsert, %d orphans, %d unchanged",
		runID, len(upserts), len(orphans), report.Unchanged)

	// Phase 3: apply, best-effort with a bounded pool.
	var reportMu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.concurrency)

	created := make(map[string]bool, len(upserts))
	for i := range upserts {
		post := upserts[i]
		_, existed := indexed[post.Key]
		group.Go(func() error {
			r.keys.Lock(post.Key)
			defer r.keys.Unlock(post.Key)

			if applyErr := r.upsertPost(groupCtx, &post); applyErr != nil {
				reportMu.Lock()
				report.Failed++
				report.Failures = append(report.Failures, domain.Failure{
					Key: post.Key, Op: domain.OpUpsert, Message: applyErr.Error(),
				})
				reportMu.Unlock()
				logger.Warn("Upsert failed for %s: %v", post.Key, applyErr)
				return nil
			}

			reportMu.Lock()
			if existed {
				report.Updated++
			} else {
				report.Created++
			}
			created[post.Key] = true
			reportMu.Unlock()
			return nil
		})
	}

	deleted := make(map[string]bool, len(orphans))
	for _, key := range orphans {
		group.Go(func() error {
			r.keys.Lock(key)
			defer r.keys.Unlock(key)

			deleteErr := retry.Do(groupCtx, r.retryCfg, func() error {
				return r.index.Delete(groupCtx, key)
			})

			reportMu.Lock()
			if deleteErr != nil {
				report.Failed++
				report.Failures = append(report.Failures, domain.Failure{
					Key: key, Op: domain.OpDelete, Message: deleteErr.Error(),
				})
			} else {
				report.Deleted++
				deleted[key] = true
			}
			reportMu.Unlock()

			if deleteErr != nil {
				logger.Warn("Delete failed for %s: %v", key, deleteErr)
			}
			return nil
		})
	}

	_ = group.Wait() // workers record failures instead of returning them

	report.Duration = time.Since(started)

	// Phase 4: advance state. LastSuccess moves only on a clean pass so
	// the next run re-attempts the same window (at-least-once).
	r.stateMu.Lock()
	for key := range indexed {
		r.state.IndexedKeys[key] = struct{}{}
	}
	for key := range created {
		r.state.IndexedKeys[key] = struct{}{}
	}
	for key := range deleted {
		delete(r.state.IndexedKeys, key)
	}
	if report.Clean() {
		r.state.LastSuccess = started
	}
	r.indexSeeded = true
	r.stateMu.Unlock()

	r.persistOutcome(ctx, report)

	logger.Info("Reconciliation %s complete: %d created, %d updated, %d deleted, %d unchanged, %d failed",
		runID, report.Created, report.Updated, report.Deleted, report.Unchanged, report.Failed)

	return report, nil
}

// reconcileOne handles a trigger scoped to a single post: fetch it and
// upsert, or delete its key when it is gone. No orphan scan.
func (r *Reconciler) reconcileOne(ctx context.Context, trigger domain.Trigger) (*domain.Report, error) {
	key, err := r.resolver.Resolve(trigger.Key)
	if err != nil {
		return nil, err
	}

	r.scopedMu.Lock()
	if r.scopedInFlight[key] {
		r.scopedMu.Unlock()
		logger.Debug("Scoped reconciliation already in flight for %s, coalescing", key)
		return &domain.Report{Reason: trigger.Reason, Key: key, Coalesced: true, StartedAt: time.Now()}, nil
	}
	r.scopedInFlight[key] = true
	r.scopedMu.Unlock()

	defer func() {
		r.scopedMu.Lock()
		delete(r.scopedInFlight, key)
		r.scopedMu.Unlock()
	}()

	started := time.Now()
	report := &domain.Report{Reason: trigger.Reason, Key: key, StartedAt: started}

	r.keys.Lock(key)
	defer r.keys.Unlock(key)

	post, err := retry.DoWithResult(ctx, r.retryCfg, func() (*domain.Post, error) {
		return r.source.GetPostBySlug(ctx, r.resolver.SlugFromKey(key))
	})

	switch {
	case errors.Is(err, domain.ErrNotFound):
		// Gone or unpublished: remove its record.
		deleteErr := retry.Do(ctx, r.retryCfg, func() error {
			return r.index.Delete(ctx, key)
		})
		if deleteErr != nil {
			report.Failed++
			report.Failures = append(report.Failures, domain.Failure{
				Key: key, Op: domain.OpDelete, Message: deleteErr.Error(),
			})
		} else {
			report.Deleted++
			r.stateMu.Lock()
			delete(r.state.IndexedKeys, key)
			r.stateMu.Unlock()
		}

	case err != nil:
		report.Failed++
		report.Failures = append(report.Failures, domain.Failure{
			Key: key, Op: domain.OpFetch, Message: err.Error(),
		})

	default:
		post.Key = key
		r.ensureIndexedKeys(ctx)
		r.stateMu.Lock()
		_, existed := r.state.IndexedKeys[key]
		r.stateMu.Unlock()

		if upsertErr := r.upsertPost(ctx, post); upsertErr != nil {
			report.Failed++
			report.Failures = append(report.Failures, domain.Failure{
				Key: key, Op: domain.OpUpsert, Message: upsertErr.Error(),
			})
		} else {
			if existed {
				report.Updated++
			} else {
				report.Created++
			}
			r.stateMu.Lock()
			r.state.IndexedKeys[key] = struct{}{}
			r.stateMu.Unlock()
		}
	}

	report.Duration = time.Since(started)
	r.persistOutcome(ctx, report)

	logger.Debug("Scoped reconciliation for %s: %d created, %d updated, %d deleted, %d failed",
		key, report.Created, report.Updated, report.Deleted, report.Failed)

	return report, nil
}

// upsertPost normalises, chunks and writes one post to the index.
func (r *Reconciler) upsertPost(ctx context.Context, post *domain.Post) error {
	text := normalise.PostText(post.HTML, post.Plaintext)

	chunks := r.splitter.Split(text)
	if len(chunks) == 0 {
		// A published post with no body is still listed; index what
		// little text it carries so the record exists.
		fallback := post.Excerpt
		if fallback == "" {
			fallback = post.Title
		}
		chunks = []string{fallback}
	}

	record := domain.IndexRecord{
		Key:         post.Key,
		Title:       post.Title,
		URL:         post.URL,
		Excerpt:     post.Excerpt,
		Chunks:      chunks,
		Visibility:  post.Visibility,
		PublishedAt: post.PublishedAt,
		UpdatedAt:   post.UpdatedAt,
		Tags:        post.Tags,
		Authors:     post.Authors,
	}

	return retry.Do(ctx, r.retryCfg, func() error {
		return r.index.Upsert(ctx, record)
	})
}

// ensureIndexedKeys seeds the in-memory indexed-key set from the index
// on first use, so a scoped pass after a restart can tell an update
// from a creation. Best-effort: when the listing fails the pass still
// proceeds and the next full pass repairs the set.
func (r *Reconciler) ensureIndexedKeys(ctx context.Context) {
	r.stateMu.Lock()
	seeded := r.indexSeeded
	r.stateMu.Unlock()
	if seeded {
		return
	}

	entries, err := retry.DoWithResult(ctx, r.retryCfg, func() ([]domain.IndexEntry, error) {
		return r.index.ListEntries(ctx)
	})
	if err != nil {
		logger.Warn("Failed to seed indexed keys from the index: %v", err)
		return
	}

	r.stateMu.Lock()
	if !r.indexSeeded {
		for _, entry := range entries {
			r.state.IndexedKeys[entry.Key] = struct{}{}
		}
		r.indexSeeded = true
	}
	r.stateMu.Unlock()
}

// lastSuccess returns the in-memory timestamp, loading the persisted
// one on first use when a state store is configured.
func (r *Reconciler) lastSuccess(ctx context.Context) time.Time {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()

	if !r.stateLoaded {
		r.stateLoaded = true
		if r.states != nil {
			persisted, err := r.states.LastSuccess(ctx)
			if err != nil {
				logger.Warn("Failed to load persisted sync state: %v", err)
			} else if !persisted.IsZero() {
				r.state.LastSuccess = persisted
			}
		}
	}

	return r.state.LastSuccess
}

// persistOutcome records the report and, for clean full passes, the
// advanced last-success timestamp. Best-effort: persistence failures
// never fail a pass.
func (r *Reconciler) persistOutcome(ctx context.Context, report *domain.Report) {
	if r.states == nil {
		return
	}

	if recordErr := r.states.RecordReport(ctx, report); recordErr != nil {
		logger.Warn("Failed to record reconciliation report: %v", recordErr)
	}

	if report.Key == "" && !report.Coalesced && report.Clean() {
		if saveErr := r.states.SaveLastSuccess(ctx, report.StartedAt); saveErr != nil {
			logger.Warn("Failed to persist last-success timestamp: %v", saveErr)
		}
	}
}
