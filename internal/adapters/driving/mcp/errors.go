// Package mcp provides the Model Context Protocol server adapter for
// Perch. It exposes the indexed blog to AI assistants as tools
// (fetch, list_posts, search, sync) and resources (perch:// URIs).
package mcp

import "errors"

// ErrMissingLibrary is returned when the library service is not provided.
var ErrMissingLibrary = errors.New("mcp: library service is required")

// ErrNoReconciler is returned when the sync tool is invoked on a
// read-only server.
var ErrNoReconciler = errors.New("mcp: reconciler is not configured")
