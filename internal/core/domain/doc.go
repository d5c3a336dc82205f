// Package domain defines the core business entities for Perch.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Post: A published blog post fetched from the content source
//   - IndexRecord: The representation of a post in the vector index
//   - Trigger: A request to reconcile source and index state
//   - Report: The outcome of one reconciliation pass
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
