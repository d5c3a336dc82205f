// Package sqlite provides durable local storage for reconciliation
// state. The database is an optimisation, not a source of truth: with
// no stored state the next pass performs a full scan.
package sqlite
