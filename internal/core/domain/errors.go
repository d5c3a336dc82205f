package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnresolvableIdentifier indicates an identifier that matches no
	// known shape and cannot be normalised into a canonical URL.
	ErrUnresolvableIdentifier = errors.New("unresolvable identifier")

	// Content source errors.

	// ErrSourceUnavailable indicates a transient source failure
	// (network error or 5xx). Retryable.
	ErrSourceUnavailable = errors.New("content source unavailable")

	// ErrSourceRejected indicates the source refused the request
	// (auth failure or other 4xx). Not retryable; surfaced as-is.
	ErrSourceRejected = errors.New("content source rejected request")

	// Index store errors.

	// ErrStoreUnavailable indicates a transient index store failure.
	// Retryable.
	ErrStoreUnavailable = errors.New("index store unavailable")

	// ErrStoreRejected indicates the index store refused the request
	// (schema or quota). Not retryable.
	ErrStoreRejected = errors.New("index store rejected request")
)

// Retryable reports whether an error is a transient failure worth
// retrying. Only the *Unavailable kinds qualify; everything else is
// recorded immediately without retry.
func Retryable(err error) bool {
	return errors.Is(err, ErrSourceUnavailable) || errors.Is(err, ErrStoreUnavailable)
}
