package feed

import (
	"context"
	"errors"
	"strings"
)

// Sentinel errors for feed operations.
var (
	// ErrForeignToken is returned when a continuation or refresh token is
	// handed to a feed that did not issue it.
	ErrForeignToken = errors.New("token was issued by a different feed")

	// ErrEmptyQuery is returned when a search is started with no query text.
	ErrEmptyQuery = errors.New("empty search query")
)

// DefaultPageSize is the number of items requested per page when a query
// does not specify one.
const DefaultPageSize = 25

// Query describes one logical search across a feed.
//
// The zero value is not a valid query; Text must be non-empty. Use
// [Query.WithDefaults] to fill in the page size.
type Query struct {
	// Text is the raw search text as typed by the user. Treat as sensitive
	// when exporting (telemetry tags it as PII).
	Text string

	// IncludePrerelease requests prerelease package versions as well.
	IncludePrerelease bool

	// PageSize is the number of items requested per page from each source.
	// Zero means DefaultPageSize.
	PageSize int
}

// WithDefaults returns a copy of q with zero fields replaced by defaults.
func (q Query) WithDefaults() Query {
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	return q
}

// ContinuationToken resumes pagination of one logical search from where the
// previous page left off. Tokens are opaque: callers thread them back into
// the feed that issued them and never inspect their contents.
type ContinuationToken interface {
	// Source returns the name of the feed that issued the token.
	Source() string
}

// RefreshToken re-polls an already-fetched page set for newly available
// results without restarting pagination. Like continuation tokens, refresh
// tokens are opaque and feed-specific.
type RefreshToken interface {
	// Source returns the name of the feed that issued the token.
	Source() string
}

// Feed is a queryable source of package search results.
//
// All operations honor context cancellation. Implementations must be safe
// for concurrent use by multiple goroutines; the aggregator fans out to all
// sources at once.
type Feed interface {
	// Name returns the stable source identifier (e.g., "npmjs.org").
	// Per-source statuses in a Page are keyed by this name.
	Name() string

	// Type returns the feed-kind classifier (e.g., "npm", "crates",
	// "aggregate") used for source-summary telemetry.
	Type() string

	// Search starts a new logical search. It must not consult any prior
	// continuation state.
	Search(ctx context.Context, q Query) (*Page, error)

	// ContinuePaging resumes a search using a token previously returned by
	// this same feed. Returns ErrForeignToken for tokens issued elsewhere.
	ContinuePaging(ctx context.Context, token ContinuationToken) (*Page, error)

	// Refresh re-queries the same logical search for a superset of prior
	// results (e.g., newly indexed packages). Returns ErrForeignToken for
	// tokens issued elsewhere.
	Refresh(ctx context.Context, token RefreshToken) (*Page, error)

	// TotalCount reports a best-effort total match count for q, capped at
	// max so a source need not fully enumerate. The result may be the cap
	// itself when the true total exceeds it.
	TotalCount(ctx context.Context, q Query, max int) (int, error)
}

// MultiFeed is implemented by feeds that fan out over underlying sources.
// The loader uses it to describe source composition in telemetry.
type MultiFeed interface {
	// Sources returns the underlying feeds in priority order.
	Sources() []Feed
}

// NormalizeName canonicalizes a package name for identity comparison:
// lowercase, trimmed, underscores replaced with hyphens.
func NormalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.ReplaceAll(name, "_", "-")
}
