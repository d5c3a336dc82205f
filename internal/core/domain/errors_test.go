package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrUnresolvableIdentifier", ErrUnresolvableIdentifier},
		{"ErrSourceUnavailable", ErrSourceUnavailable},
		{"ErrSourceRejected", ErrSourceRejected},
		{"ErrStoreUnavailable", ErrStoreUnavailable},
		{"ErrStoreRejected", ErrStoreRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestRetryable_UnavailableKinds(t *testing.T) {
	assert.True(t, Retryable(ErrSourceUnavailable))
	assert.True(t, Retryable(ErrStoreUnavailable))
}

func TestRetryable_WrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("list posts: %w", ErrSourceUnavailable)
	assert.True(t, Retryable(wrapped))

	wrapped = fmt.Errorf("upsert: %w", ErrStoreRejected)
	assert.False(t, Retryable(wrapped))
}

func TestRetryable_RejectedKinds(t *testing.T) {
	assert.False(t, Retryable(ErrSourceRejected))
	assert.False(t, Retryable(ErrStoreRejected))
	assert.False(t, Retryable(ErrUnresolvableIdentifier))
	assert.False(t, Retryable(ErrNotFound))
	assert.False(t, Retryable(errors.New("other")))
}
