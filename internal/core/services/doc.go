// Package services implements the driving port interfaces.
// Services contain the core business logic: identity resolution,
// the reconciliation engine, the poll scheduler and the read-side
// library. They orchestrate calls to driven ports (adapters).
//
// Services are pure Go with no external dependencies beyond the
// retry and text-processing helpers.
package services
