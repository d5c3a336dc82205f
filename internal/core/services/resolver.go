package services

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/perch-labs/perch/internal/core/domain"
)

// Resolver maps the several accepted identifier shapes for a post
// (bare slug, canonical URL, post:// or ghost:// shorthand) to the one
// canonical key used everywhere internally. Resolution is pure: the
// site base URL is static configuration, so no remote call is needed.
type Resolver struct {
	scheme string
	host   string
}

// slugPattern is the accepted shape for a bare slug.
var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// trackingParams are query parameters stripped during canonicalisation.
// Keys must be written and resolved under the same rule set or lookups
// silently miss.
var trackingParams = map[string]bool{
	"ref":      true,
	"fbclid":   true,
	"gclid":    true,
	"mc_cid":   true,
	"mc_eid":   true,
	"igshid":   true,
	"referrer": true,
}

// NewResolver creates a resolver for the configured site URL.
func NewResolver(siteURL string) (*Resolver, error) {
	parsed, err := url.Parse(strings.TrimSpace(siteURL))
	if err != nil {
		return nil, fmt.Errorf("parse site url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" || parsed.Host == "" {
		return nil, fmt.Errorf("site url must be absolute http(s): %q", siteURL)
	}

	return &Resolver{
		scheme: strings.ToLower(parsed.Scheme),
		host:   normaliseHost(parsed.Host),
	}, nil
}

// Resolve produces the canonical key for any accepted identifier.
// Returns domain.ErrUnresolvableIdentifier when the input matches no
// known shape.
func (r *Resolver) Resolve(identifier string) (string, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return "", fmt.Errorf("%w: empty identifier", domain.ErrUnresolvableIdentifier)
	}

	if strings.Contains(identifier, "://") {
		parsed, err := url.Parse(identifier)
		if err != nil {
			return "", fmt.Errorf("%w: %q", domain.ErrUnresolvableIdentifier, identifier)
		}

		switch strings.ToLower(parsed.Scheme) {
		case "http", "https":
			return r.CanonicalKey(identifier)
		case "post", "ghost":
			// post://slug parses the slug into the host; post:///slug
			// parses it into the path. Accept both.
			slug := parsed.Host
			if slug == "" {
				slug = strings.Trim(parsed.Path, "/")
			}
			return r.keyForSlug(slug)
		default:
			return "", fmt.Errorf("%w: unsupported scheme %q", domain.ErrUnresolvableIdentifier, parsed.Scheme)
		}
	}

	// Bare slug, possibly with stray slashes around it.
	return r.keyForSlug(strings.Trim(identifier, "/"))
}

// CanonicalKey canonicalises an absolute post URL into its key.
// The rule set is fixed once and applied both when writing keys into
// the index and when resolving lookups: lowercase scheme and host,
// strip tracking query parameters and fragments, no trailing slash.
func (r *Resolver) CanonicalKey(rawURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("%w: %q", domain.ErrUnresolvableIdentifier, rawURL)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" && parsed.Scheme != "HTTP" && parsed.Scheme != "HTTPS" {
		return "", fmt.Errorf("%w: %q", domain.ErrUnresolvableIdentifier, rawURL)
	}

	host := normaliseHost(parsed.Host)
	if host == "" {
		return "", fmt.Errorf("%w: %q", domain.ErrUnresolvableIdentifier, rawURL)
	}

	path := strings.TrimRight(parsed.Path, "/")

	query := parsed.Query()
	for param := range query {
		if trackingParams[param] || strings.HasPrefix(param, "utm_") {
			query.Del(param)
		}
	}

	key := r.scheme + "://" + host + path
	if encoded := query.Encode(); encoded != "" {
		key += "?" + encoded
	}
	return key, nil
}

// KeyForPost derives the canonical key for a source post, preferring
// its canonical URL and falling back to the configured base plus slug.
func (r *Resolver) KeyForPost(postURL, slug string) (string, error) {
	if strings.TrimSpace(postURL) != "" {
		return r.CanonicalKey(postURL)
	}
	return r.keyForSlug(slug)
}

// SlugFromKey extracts the source-native slug from a canonical key.
func (r *Resolver) SlugFromKey(key string) string {
	if idx := strings.Index(key, "?"); idx >= 0 {
		key = key[:idx]
	}
	key = strings.TrimRight(key, "/")
	if idx := strings.LastIndex(key, "/"); idx >= 0 {
		return key[idx+1:]
	}
	return key
}

func (r *Resolver) keyForSlug(slug string) (string, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if !slugPattern.MatchString(slug) {
		return "", fmt.Errorf("%w: %q is not a valid slug", domain.ErrUnresolvableIdentifier, slug)
	}
	return r.scheme + "://" + r.host + "/" + slug, nil
}

// normaliseHost lowercases the host, drops a leading www. and strips
// default ports so equivalent URLs produce identical keys.
func normaliseHost(host string) string {
	host = strings.ToLower(host)
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimSuffix(host, ":80")
	host = strings.TrimSuffix(host, ":443")
	return host
}
