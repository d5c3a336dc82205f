package ghost

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultPageSize is the page size used when listing posts.
	DefaultPageSize = 50

	// DefaultRequestsPerSecond is the proactive throttle rate against
	// the Admin API.
	DefaultRequestsPerSecond = 5
)

// Config holds the connection settings for a Ghost site.
type Config struct {
	// APIURL is the base URL of the Ghost instance,
	// e.g. "https://blog.example.com".
	APIURL string

	// AdminAPIKey is the Admin API key in "id:hexsecret" format.
	AdminAPIKey string

	// Timeout is the per-request HTTP timeout. Zero uses DefaultTimeout.
	Timeout time.Duration

	// PageSize is the listing page size. Zero uses DefaultPageSize.
	PageSize int

	// RequestsPerSecond throttles outbound requests. Zero uses
	// DefaultRequestsPerSecond.
	RequestsPerSecond float64
}

// Validate checks required fields and applies defaults.
func (c *Config) Validate() error {
	c.APIURL = strings.TrimRight(strings.TrimSpace(c.APIURL), "/")
	if c.APIURL == "" {
		return fmt.Errorf("ghost: api url is required")
	}
	if strings.TrimSpace(c.AdminAPIKey) == "" {
		return fmt.Errorf("ghost: admin API key is required")
	}

	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = DefaultRequestsPerSecond
	}
	return nil
}
