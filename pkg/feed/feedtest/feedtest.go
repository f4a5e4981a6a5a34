// Package feedtest provides scripted in-memory feeds for testing the
// aggregator and loader without any networking.
package feedtest

import (
	"context"
	"sync"
	"time"

	"github.com/pkgscout/pkgscout/pkg/feed"
)

// StaticFeed serves a fixed script of pages from memory.
//
// Each element of Pages becomes one fetch step: Search returns Pages[0],
// the first ContinuePaging returns Pages[1], and so on. The per-source
// status after each step is Ready while later pages remain and NoMoreItems
// on the last one. StaticFeed is safe for concurrent use.
type StaticFeed struct {
	// FeedName identifies the feed; statuses and item provenance use it.
	FeedName string

	// FeedKind is the Type() classifier, defaulting to "static".
	FeedKind string

	// Pages is the fetch script. An empty script serves a single empty
	// exhausted page.
	Pages [][]feed.Item

	// Total overrides the TotalCount result. Zero means the sum of all
	// scripted page lengths.
	Total int

	// Err, when set, fails every operation with this error.
	Err error

	// Delay blocks each operation for the given duration or until the
	// context is cancelled, whichever comes first.
	Delay time.Duration

	mu        sync.Mutex
	refreshed []feed.Item // extra items surfaced by Refresh
	searches  int
	continues int
	refreshes int
}

type staticToken struct {
	source string
	next   int // index of the next scripted page
}

func (t *staticToken) Source() string { return t.source }

type staticRefreshToken struct {
	source string
	seen   int // number of scripted pages already fetched
}

func (t *staticRefreshToken) Source() string { return t.source }

// Name implements feed.Feed.
func (f *StaticFeed) Name() string { return f.FeedName }

// Type implements feed.Feed.
func (f *StaticFeed) Type() string {
	if f.FeedKind == "" {
		return "static"
	}
	return f.FeedKind
}

// Search implements feed.Feed by serving the first scripted page.
func (f *StaticFeed) Search(ctx context.Context, q feed.Query) (*feed.Page, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.searches++
	f.mu.Unlock()
	return f.page(0)
}

// ContinuePaging implements feed.Feed by serving the next scripted page.
func (f *StaticFeed) ContinuePaging(ctx context.Context, token feed.ContinuationToken) (*feed.Page, error) {
	t, ok := token.(*staticToken)
	if !ok || t.source != f.FeedName {
		return nil, feed.ErrForeignToken
	}
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.continues++
	f.mu.Unlock()
	return f.page(t.next)
}

// Refresh implements feed.Feed by re-serving every page fetched so far plus
// any items added with AddRefreshItems since.
func (f *StaticFeed) Refresh(ctx context.Context, token feed.RefreshToken) (*feed.Page, error) {
	t, ok := token.(*staticRefreshToken)
	if !ok || t.source != f.FeedName {
		return nil, feed.ErrForeignToken
	}
	if err := f.wait(ctx); err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.refreshes++
	var items []feed.Item
	for i := 0; i < t.seen && i < len(f.Pages); i++ {
		items = append(items, f.Pages[i]...)
	}
	items = append(items, f.refreshed...)
	f.mu.Unlock()

	status := feed.StatusNoMoreItems
	var cont feed.ContinuationToken
	if t.seen < len(f.Pages) {
		status = feed.StatusReady
		cont = &staticToken{source: f.FeedName, next: t.seen}
	}
	return &feed.Page{
		Items:        f.stamp(items),
		Statuses:     map[string]feed.LoadingStatus{f.FeedName: status},
		Continuation: cont,
		Refresh:      &staticRefreshToken{source: f.FeedName, seen: t.seen},
	}, nil
}

// TotalCount implements feed.Feed.
func (f *StaticFeed) TotalCount(ctx context.Context, q feed.Query, max int) (int, error) {
	if err := f.wait(ctx); err != nil {
		return 0, err
	}
	total := f.Total
	if total == 0 {
		for _, p := range f.Pages {
			total += len(p)
		}
	}
	if total > max {
		return max, nil
	}
	return total, nil
}

// AddRefreshItems appends items that subsequent Refresh calls will surface
// in addition to the pages already fetched.
func (f *StaticFeed) AddRefreshItems(items ...feed.Item) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshed = append(f.refreshed, items...)
}

// Calls reports how many searches, continuations, and refreshes were served.
func (f *StaticFeed) Calls() (searches, continues, refreshes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.searches, f.continues, f.refreshes
}

func (f *StaticFeed) page(idx int) (*feed.Page, error) {
	var items []feed.Item
	if idx < len(f.Pages) {
		items = f.Pages[idx]
	}

	status := feed.StatusNoMoreItems
	var cont feed.ContinuationToken
	if idx+1 < len(f.Pages) {
		status = feed.StatusReady
		cont = &staticToken{source: f.FeedName, next: idx + 1}
	}
	return &feed.Page{
		Items:        f.stamp(items),
		Statuses:     map[string]feed.LoadingStatus{f.FeedName: status},
		Continuation: cont,
		Refresh:      &staticRefreshToken{source: f.FeedName, seen: idx + 1},
	}, nil
}

// stamp fills in the Source field on items that omit it.
func (f *StaticFeed) stamp(items []feed.Item) []feed.Item {
	out := make([]feed.Item, len(items))
	for i, it := range items {
		if it.Source == "" {
			it.Source = f.FeedName
		}
		out[i] = it
	}
	return out
}

func (f *StaticFeed) wait(ctx context.Context) error {
	if f.Err != nil {
		return f.Err
	}
	if f.Delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(f.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Ensure StaticFeed implements Feed.
var _ feed.Feed = (*StaticFeed)(nil)
