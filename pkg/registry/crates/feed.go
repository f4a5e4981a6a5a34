// Package crates implements a search feed over the crates.io API.
package crates

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/pkgscout/pkgscout/pkg/cache"
	"github.com/pkgscout/pkgscout/pkg/feed"
	"github.com/pkgscout/pkgscout/pkg/registry"
)

// Kind is the feed-type classifier for crates.io feeds.
const Kind = "crates"

// DefaultName is the source name of the public crates.io registry.
const DefaultName = "crates.io"

// DefaultBaseURL is the public registry endpoint.
const DefaultBaseURL = "https://crates.io/api/v1"

// Feed searches crates.io with page-number pagination.
//
// crates.io requires a User-Agent header; the feed sets one automatically.
// All methods are safe for concurrent use.
type Feed struct {
	client  *registry.Client
	name    string
	baseURL string
}

// New creates a feed over the public crates.io registry.
func New(backend cache.Cache, ttl time.Duration) *Feed {
	return NewWithBaseURL(DefaultName, DefaultBaseURL, backend, ttl)
}

// NewWithBaseURL creates a feed over a crates.io-compatible API at baseURL.
// Used for mirrors and tests.
func NewWithBaseURL(name, baseURL string, backend cache.Cache, ttl time.Duration) *Feed {
	headers := map[string]string{
		"User-Agent": "pkgscout (https://github.com/pkgscout/pkgscout)",
	}
	return &Feed{
		client:  registry.NewClient(backend, "crates:", ttl, headers),
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

// Refresh implements feed.Feed by re-fetching the range seen so far as one
// oversized first page.
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
	if resp.Meta.Total > max {
		return max, nil
	}
	return resp.Meta.Total, nil
}

func (f *Feed) page(ctx context.Context, q feed.Query, pageNum, size int, refresh bool) (*feed.Page, error) {
	var resp searchResponse
	if err := f.client.CachedGet(ctx, f.searchURL(q.Text, pageNum, size), refresh, &resp); err != nil {
		return nil, fmt.Errorf("crates search %q: %w", q.Text, err)
	}

	items := make([]feed.Item, 0, len(resp.Crates))
	for _, c := range resp.Crates {
		items = append(items, feed.Item{
			Name:        c.Name,
			Version:     c.MaxVersion,
			Description: c.Description,
			Downloads:   c.Downloads,
			RepoURL:     c.Repository,
			Source:      f.name,
		})
	}

	fetched := (pageNum-1)*size + len(items)
	status := feed.StatusNoMoreItems
	var cont feed.ContinuationToken
	if len(items) > 0 && fetched < resp.Meta.Total {
		status = feed.StatusReady
		cont = &continuationToken{source: f.name, query: q, next: pageNum + 1, size: size}
	}
	return &feed.Page{
		Items:        items,
		Statuses:     map[string]feed.LoadingStatus{f.name: status},
		Continuation: cont,
		Refresh:      &refreshToken{source: f.name, query: q, seen: fetched},
	}, nil
}

func (f *Feed) searchURL(text string, pageNum, size int) string {
	v := url.Values{}
	v.Set("q", text)
	v.Set("page", fmt.Sprint(pageNum))
	v.Set("per_page", fmt.Sprint(size))
	return f.baseURL + "/crates?" + v.Encode()
}

type continuationToken struct {
	source string
	query  feed.Query
	next   int // next page number, 1-based
	size   int // per-page size the page numbering is relative to
}

func (t *continuationToken) Source() string { return t.source }

type refreshToken struct {
	source string
	query  feed.Query
	seen   int
}

func (t *refreshToken) Source() string { return t.source }

// searchResponse mirrors the crates.io search payload.
type searchResponse struct {
	Crates []crateResult `json:"crates"`
	Meta   searchMeta    `json:"meta"`
}

type crateResult struct {
	Name        string `json:"name"`
	MaxVersion  string `json:"max_version"`
	Description string `json:"description"`
	Repository  string `json:"repository"`
	Downloads   int64  `json:"downloads"`
}

type searchMeta struct {
	Total int `json:"total"`
}

// Ensure Feed implements feed.Feed.
var _ feed.Feed = (*Feed)(nil)
