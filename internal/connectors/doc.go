// Package connectors provides implementations of the ContentSource
// interface for remote content APIs. Each connector knows how to fetch
// published posts from a specific platform.
package connectors
