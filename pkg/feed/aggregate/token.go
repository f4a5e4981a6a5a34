package aggregate

import "github.com/pkgscout/pkgscout/pkg/feed"

// continuationToken composes each source's own continuation token. The
// aggregator never inspects the nested tokens, it only routes each one back
// to the source that issued it. A source absent from the map is exhausted.
type continuationToken struct {
	source string
	tokens map[string]feed.ContinuationToken
}

// Source implements feed.ContinuationToken.
func (t *continuationToken) Source() string { return t.source }

// refreshToken composes each source's own refresh token, mirroring
// continuationToken.
type refreshToken struct {
	source string
	tokens map[string]feed.RefreshToken
}

// Source implements feed.RefreshToken.
func (t *refreshToken) Source() string { return t.source }
