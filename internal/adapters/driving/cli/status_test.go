package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perch-labs/perch/internal/core/domain"
)

func TestStatusCmd_Use(t *testing.T) {
	assert.Equal(t, "status", statusCmd.Use)
}

func TestStatusCmd_NoHistory(t *testing.T) {
	cleanup := setupTestServices(&stubLibrary{}, &stubReconciler{})
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"status"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Last clean pass: never")
	assert.Contains(t, buf.String(), "No passes recorded.")
}

func TestStatusCmd_PrintsHistory(t *testing.T) {
	cleanup := setupTestServices(&stubLibrary{}, &stubReconciler{})
	defer cleanup()

	ctx := context.Background()
	stamp := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, states.SaveLastSuccess(ctx, stamp))
	require.NoError(t, states.RecordReport(ctx, &domain.Report{
		Reason:    domain.ReasonPoll,
		StartedAt: stamp,
		Created:   3,
		Unchanged: 2,
	}))

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"status"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Last clean pass: 2025-06-01T12:00:00Z")
	assert.Contains(t, buf.String(), "3 created")
	assert.Contains(t, buf.String(), "poll")
}
