// Package file loads service configuration from a TOML file on the
// local filesystem. Secrets can also be supplied through environment
// variables, which take precedence over file values.
package file
