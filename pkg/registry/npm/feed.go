// Package npm implements a search feed over the npm registry API.
package npm

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/pkgscout/pkgscout/pkg/cache"
	"github.com/pkgscout/pkgscout/pkg/feed"
	"github.com/pkgscout/pkgscout/pkg/registry"
)

// Kind is the feed-type classifier for npm feeds.
const Kind = "npm"

// DefaultName is the source name of the public npm registry.
const DefaultName = "npmjs.org"

// DefaultBaseURL is the public registry endpoint.
const DefaultBaseURL = "https://registry.npmjs.org"

// Feed searches the npm registry's /-/v1/search endpoint with offset-based
// pagination. The registry only indexes release versions, so the
// include-prerelease query flag has no effect here.
//
// All methods are safe for concurrent use.
type Feed struct {
	client  *registry.Client
	name    string
	baseURL string
}

// New creates a feed over the public npm registry.
func New(backend cache.Cache, ttl time.Duration) *Feed {
	return NewWithBaseURL(DefaultName, DefaultBaseURL, backend, ttl)
}

// NewWithBaseURL creates a feed over an npm-compatible registry at baseURL.
// Used for mirrors and tests.
func NewWithBaseURL(name, baseURL string, backend cache.Cache, ttl time.Duration) *Feed {
	return &Feed{
		client:  registry.NewClient(backend, "npm:", ttl, nil),
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
	return f.page(ctx, q, 0, q.PageSize, false)
}

// ContinuePaging implements feed.Feed.
func (f *Feed) ContinuePaging(ctx context.Context, token feed.ContinuationToken) (*feed.Page, error) {
	t, ok := token.(*continuationToken)
	if !ok || t.source != f.name {
		return nil, feed.ErrForeignToken
	}
	return f.page(ctx, t.query, t.offset, t.query.PageSize, false)
}

// Refresh implements feed.Feed by re-querying the full range fetched so
// far, surfacing items indexed since the original pages were served.
func (f *Feed) Refresh(ctx context.Context, token feed.RefreshToken) (*feed.Page, error) {
	t, ok := token.(*refreshToken)
	if !ok || t.source != f.name {
		return nil, feed.ErrForeignToken
	}
	size := max(t.seen, t.query.PageSize)
	return f.page(ctx, t.query, 0, size, true)
}

// TotalCount implements feed.Feed. The search endpoint reports the total
// alongside any page, so a single minimal request suffices.
func (f *Feed) TotalCount(ctx context.Context, q feed.Query, max int) (int, error) {
	q = q.WithDefaults()
	var resp searchResponse
	if err := f.client.CachedGet(ctx, f.searchURL(q.Text, 0, 1), false, &resp); err != nil {
		return 0, err
	}
	if resp.Total > max {
		return max, nil
	}
	return resp.Total, nil
}

func (f *Feed) page(ctx context.Context, q feed.Query, offset, size int, refresh bool) (*feed.Page, error) {
	var resp searchResponse
	if err := f.client.CachedGet(ctx, f.searchURL(q.Text, offset, size), refresh, &resp); err != nil {
		return nil, fmt.Errorf("npm search %q: %w", q.Text, err)
	}

	items := make([]feed.Item, 0, len(resp.Objects))
	for _, obj := range resp.Objects {
		items = append(items, feed.Item{
			Name:        obj.Package.Name,
			Version:     obj.Package.Version,
			Description: obj.Package.Description,
			Authors:     obj.Package.authors(),
			RepoURL:     obj.Package.Links.Repository,
			Source:      f.name,
		})
	}

	fetched := offset + len(items)
	status := feed.StatusNoMoreItems
	var cont feed.ContinuationToken
	if len(items) > 0 && fetched < resp.Total {
		status = feed.StatusReady
		cont = &continuationToken{source: f.name, query: q, offset: fetched}
	}
	return &feed.Page{
		Items:        items,
		Statuses:     map[string]feed.LoadingStatus{f.name: status},
		Continuation: cont,
		Refresh:      &refreshToken{source: f.name, query: q, seen: fetched},
	}, nil
}

func (f *Feed) searchURL(text string, offset, size int) string {
	v := url.Values{}
	v.Set("text", text)
	v.Set("from", fmt.Sprint(offset))
	v.Set("size", fmt.Sprint(size))
	return f.baseURL + "/-/v1/search?" + v.Encode()
}

type continuationToken struct {
	source string
	query  feed.Query
	offset int
}

func (t *continuationToken) Source() string { return t.source }

type refreshToken struct {
	source string
	query  feed.Query
	seen   int
}

func (t *refreshToken) Source() string { return t.source }

// searchResponse mirrors the registry's search endpoint payload.
type searchResponse struct {
	Objects []searchObject `json:"objects"`
	Total   int            `json:"total"`
}

type searchObject struct {
	Package searchPackage `json:"package"`
}

type searchPackage struct {
	Name        string      `json:"name"`
	Version     string      `json:"version"`
	Description string      `json:"description"`
	Links       searchLinks `json:"links"`
	Author      *person     `json:"author"`
	Publisher   *person     `json:"publisher"`
}

type searchLinks struct {
	Repository string `json:"repository"`
}

type person struct {
	Name     string `json:"name"`
	Username string `json:"username"`
}

func (p searchPackage) authors() []string {
	switch {
	case p.Author != nil && p.Author.Name != "":
		return []string{p.Author.Name}
	case p.Publisher != nil && p.Publisher.Username != "":
		return []string{p.Publisher.Username}
	}
	return nil
}

// Ensure Feed implements feed.Feed.
var _ feed.Feed = (*Feed)(nil)
