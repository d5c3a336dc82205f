package chroma

import (
	"fmt"

	"github.com/perch-labs/perch/internal/core/domain"
)

// APIError represents a Chroma API error response.
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chroma: API error %d: %s (URL: %s)", e.StatusCode, e.Message, e.URL)
}

// Unwrap maps the status code onto the domain error taxonomy.
func (e *APIError) Unwrap() error {
	if e.StatusCode >= 500 || e.StatusCode == 429 {
		return domain.ErrStoreUnavailable
	}
	return domain.ErrStoreRejected
}
