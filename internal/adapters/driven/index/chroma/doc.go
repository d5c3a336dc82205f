// Package chroma implements the index store against a Chroma vector
// database over its REST API. Each post is stored as one document per
// chunk under ids of the form "<key>#<n>"; post-level metadata rides on
// every chunk so listings need no extra lookups.
package chroma
