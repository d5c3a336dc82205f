package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perch-labs/perch/internal/core/domain"
)

func TestSyncStateStore_LastSuccessRoundTrip(t *testing.T) {
	store := NewSyncStateStore()
	ctx := context.Background()

	initial, err := store.LastSuccess(ctx)
	require.NoError(t, err)
	assert.True(t, initial.IsZero())

	stamp := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveLastSuccess(ctx, stamp))

	got, err := store.LastSuccess(ctx)
	require.NoError(t, err)
	assert.True(t, stamp.Equal(got))
}

func TestSyncStateStore_HistoryNewestFirst(t *testing.T) {
	store := NewSyncStateStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.RecordReport(ctx, &domain.Report{
			Reason:    domain.ReasonPoll,
			StartedAt: time.Date(2025, 6, 1, i, 0, 0, 0, time.UTC),
			Created:   i,
		}))
	}

	history, err := store.History(ctx, 2)
	require.NoError(t, err)

	require.Len(t, history, 2)
	assert.Equal(t, 2, history[0].Created)
	assert.Equal(t, 1, history[1].Created)
}

func TestSyncStateStore_HistoryPrunes(t *testing.T) {
	store := NewSyncStateStore()
	ctx := context.Background()

	for i := 0; i < DefaultHistoryLimit+10; i++ {
		require.NoError(t, store.RecordReport(ctx, &domain.Report{Created: i}))
	}

	history, err := store.History(ctx, 0)
	require.NoError(t, err)

	assert.Len(t, history, DefaultHistoryLimit)
	assert.Equal(t, DefaultHistoryLimit+9, history[0].Created, "newest survives pruning")
}

func TestSyncStateStore_ConcurrentAccess(t *testing.T) {
	store := NewSyncStateStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = store.SaveLastSuccess(ctx, time.Now())
			_ = store.RecordReport(ctx, &domain.Report{Key: fmt.Sprintf("key-%d", i)})
			_, _ = store.LastSuccess(ctx)
			_, _ = store.History(ctx, 10)
		}(i)
	}
	wg.Wait()

	history, err := store.History(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, history, 50)
}
