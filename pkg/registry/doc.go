// Package registry provides HTTP search clients for package registry APIs.
//
// # Overview
//
// The subpackages (npm, crates, packagist) implement the feed.Feed contract
// over each registry's paginated search endpoint. This package holds what
// they share: an HTTP client with response caching, retry with backoff on
// transient failures, and status-code to error mapping.
//
// # Errors
//
// Clients translate HTTP outcomes into two sentinel errors: [ErrNotFound]
// for missing resources and [ErrNetwork] for transport failures and server
// errors. Transient failures are additionally wrapped as [RetryableError]
// so [Retry] re-attempts them before they surface.
//
// # Caching
//
// Responses are cached through a pkg/cache backend keyed by the hashed
// request URL. The cache TTL is configured per client; pass a NullCache to
// disable caching entirely.
package registry
