// Package github provides read access to the GitHub REST API for orgdrift.
// It fetches an organization's live state (settings, members, teams and
// repository access) as a single manifest snapshot that the drift engine
// compares against the declared state.
//
// The package includes:
// - Client for raw, paginated, rate-limited API reads
// - Fetcher for assembling a consistent organization snapshot
// - AuthManager for token discovery and scope validation
// - FetchError for structured API failure reporting
package github
