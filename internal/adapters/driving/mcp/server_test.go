package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	t.Run("nil library returns error", func(t *testing.T) {
		ports := &Ports{}
		server, err := NewServer(ports)
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingLibrary)
	})

	t.Run("library only creates a read-only server", func(t *testing.T) {
		ports := &Ports{Library: &mockLibrary{}}
		server, err := NewServer(ports)
		require.NoError(t, err)
		assert.NotNil(t, server)
	})
}

func TestPorts_Validate(t *testing.T) {
	t.Run("nil library returns error", func(t *testing.T) {
		ports := &Ports{}
		assert.ErrorIs(t, ports.Validate(), ErrMissingLibrary)
	})

	t.Run("library only is valid", func(t *testing.T) {
		ports := &Ports{Library: &mockLibrary{}}
		assert.NoError(t, ports.Validate())
	})

	t.Run("all ports is valid", func(t *testing.T) {
		ports := &Ports{
			Library:    &mockLibrary{},
			Reconciler: &mockReconciler{},
		}
		assert.NoError(t, ports.Validate())
	})
}
