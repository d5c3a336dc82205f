package mcp

import (
	"github.com/perch-labs/perch/internal/core/ports/driving"
)

// Ports aggregates the driving port interfaces required by the MCP
// server. This provides a single injection point for dependency
// injection.
type Ports struct {
	// Library serves reads: fetch, list and search.
	Library driving.Library

	// Reconciler serves the sync tool. Optional; a server without it
	// is read-only.
	Reconciler driving.Reconciler
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Library == nil {
		return ErrMissingLibrary
	}
	return nil
}
