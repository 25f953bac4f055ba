// Package version exposes build metadata for the project.
//
// Variables Version, Commit, and BuildTime are injected at build time via
// Go ldflags and default to sensible values for local builds.
// Helpers render the version for CLI output, startup logs, and the
// User-Agent header on outbound HTTP requests.
package version
