// Package ghost implements the content source against the Ghost Admin
// API. Authentication uses short-lived JWTs minted from the Admin API
// key; listings page through /admin/posts/ filtered to published posts.
package ghost
