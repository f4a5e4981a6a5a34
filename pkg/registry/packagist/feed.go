// Package packagist implements a search feed over the Packagist API.
package packagist

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/pkgscout/pkgscout/pkg/cache"
	"github.com/pkgscout/pkgscout/pkg/feed"
	"github.com/pkgscout/pkgscout/pkg/registry"
)

// Kind is the feed-type classifier for Packagist feeds.
const Kind = "packagist"

// DefaultName is the source name of the public Packagist registry.
const DefaultName = "packagist.org"

// DefaultBaseURL is the public registry endpoint.
const DefaultBaseURL = "https://packagist.org"

// Feed searches Packagist's search.json endpoint. Packagist signals the
// end of pagination with the absence of a "next" URL rather than through
// the total, so the feed keys its status off that field.
//
// All methods are safe for concurrent use.
type Feed struct {
	client  *registry.Client
	name    string
	baseURL string
}

// New creates a feed over the public Packagist registry.
func New(backend cache.Cache, ttl time.Duration) *Feed {
	return NewWithBaseURL(DefaultName, DefaultBaseURL, backend, ttl)
}

// NewWithBaseURL creates a feed over a Packagist-compatible API at baseURL.
// Used for mirrors and tests.
func NewWithBaseURL(name, baseURL string, backend cache.Cache, ttl time.Duration) *Feed {
	return &Feed{
		client:  registry.NewClient(backend, "packagist:", ttl, nil),
		name:    name,
		baseURL: baseURL,
	}
}

// Name implements feed.Feed.
func (f *Feed) Name() string { return f.name }

// Type implements feed.Feed.
func (f *Feed) Type() string { return Kind }

// Search implements feed.Feed.
func (f *Feed) Search(ctx context.Context, q feed.Query) (*feed.Page, error) {
	q = q.WithDefaults()
	return f.page(ctx, q, 1, q.PageSize, false)
}

// ContinuePaging implements feed.Feed.
func (f *Feed) ContinuePaging(ctx context.Context, token feed.ContinuationToken) (*feed.Page, error) {
	t, ok := token.(*continuationToken)
	if !ok || t.source != f.name {
		return nil, feed.ErrForeignToken
	}
	return f.page(ctx, t.query, t.next, t.size, false)
}

// Refresh implements feed.Feed.
func (f *Feed) Refresh(ctx context.Context, token feed.RefreshToken) (*feed.Page, error) {
	t, ok := token.(*refreshToken)
	if !ok || t.source != f.name {
		return nil, feed.ErrForeignToken
	}
	size := max(t.seen, t.query.PageSize)
	return f.page(ctx, t.query, 1, size, true)
}

// TotalCount implements feed.Feed.
func (f *Feed) TotalCount(ctx context.Context, q feed.Query, max int) (int, error) {
	q = q.WithDefaults()
	var resp searchResponse
	if err := f.client.CachedGet(ctx, f.searchURL(q.Text, 1, 1), false, &resp); err != nil {
		return 0, err
	}
	if resp.Total > max {
		return max, nil
	}
	return resp.Total, nil
}

func (f *Feed) page(ctx context.Context, q feed.Query, pageNum, size int, refresh bool) (*feed.Page, error) {
	var resp searchResponse
	if err := f.client.CachedGet(ctx, f.searchURL(q.Text, pageNum, size), refresh, &resp); err != nil {
		return nil, fmt.Errorf("packagist search %q: %w", q.Text, err)
	}

	items := make([]feed.Item, 0, len(resp.Results))
	for _, r := range resp.Results {
		items = append(items, feed.Item{
			Name:        r.Name,
			Description: r.Description,
			Downloads:   r.Downloads,
			RepoURL:     r.Repository,
			Source:      f.name,
		})
	}

	status := feed.StatusNoMoreItems
	var cont feed.ContinuationToken
	if len(items) > 0 && resp.Next != "" {
		status = feed.StatusReady
		cont = &continuationToken{source: f.name, query: q, next: pageNum + 1, size: size}
	}
	seen := (pageNum-1)*size + len(items)
	return &feed.Page{
		Items:        items,
		Statuses:     map[string]feed.LoadingStatus{f.name: status},
		Continuation: cont,
		Refresh:      &refreshToken{source: f.name, query: q, seen: seen},
	}, nil
}

func (f *Feed) searchURL(text string, pageNum, size int) string {
	v := url.Values{}
	v.Set("q", text)
	v.Set("page", fmt.Sprint(pageNum))
	v.Set("per_page", fmt.Sprint(size))
	return f.baseURL + "/search.json?" + v.Encode()
}

type continuationToken struct {
	source string
	query  feed.Query
	next   int
	size   int
}

func (t *continuationToken) Source() string { return t.source }

type refreshToken struct {
	source string
	query  feed.Query
	seen   int
}

func (t *refreshToken) Source() string { return t.source }

// searchResponse mirrors the Packagist search payload.
type searchResponse struct {
	Results []searchResult `json:"results"`
	Total   int            `json:"total"`
	Next    string         `json:"next"`
}

type searchResult struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Repository  string `json:"repository"`
	Downloads   int64  `json:"downloads"`
}

// Ensure Feed implements feed.Feed.
var _ feed.Feed = (*Feed)(nil)
