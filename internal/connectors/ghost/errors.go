package ghost

import (
	"errors"
	"fmt"

	"github.com/perch-labs/perch/internal/core/domain"
)

// Ghost-specific errors.
var (
	// ErrInvalidAdminKey indicates the Admin API key is not in the
	// expected "id:secret" format with a hex-encoded secret.
	ErrInvalidAdminKey = errors.New("ghost: admin API key must be in format 'id:hexsecret'")
)

// APIError represents a Ghost Admin API error response.
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ghost: API error %d: %s (URL: %s)", e.StatusCode, e.Message, e.URL)
}

// Unwrap maps the status code onto the domain error taxonomy so the
// retry classifier and callers can branch without knowing HTTP.
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == 404:
		return domain.ErrNotFound
	case e.StatusCode >= 500 || e.StatusCode == 429:
		return domain.ErrSourceUnavailable
	default:
		return domain.ErrSourceRejected
	}
}

// IsNotFound checks if the error indicates a missing post.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
