package aggregate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pkgscout/pkgscout/pkg/feed"
)

// Kind is the Type() classifier reported by aggregated feeds.
const Kind = "aggregate"

// Sentinel errors for aggregator construction.
var (
	// ErrNoSources is returned when an Aggregator is built without sources.
	ErrNoSources = errors.New("no sources configured")

	// ErrDuplicateSource is returned when two sources share a name.
	ErrDuplicateSource = errors.New("duplicate source name")
)

// Aggregator implements feed.Feed over N prioritized sources.
//
// Source priority is configuration order: when two sources return items at
// the same relevance rank, the earlier source's item is listed first, and
// when two sources return the same package identity, the earlier source's
// item wins. The Aggregator is immutable after construction and safe for
// concurrent use.
type Aggregator struct {
	sources []feed.Feed
	name    string
}

// New creates an Aggregator over the given sources in priority order.
func New(sources ...feed.Feed) (*Aggregator, error) {
	if len(sources) == 0 {
		return nil, ErrNoSources
	}
	names := make([]string, len(sources))
	seen := make(map[string]bool, len(sources))
	for i, src := range sources {
		name := src.Name()
		if seen[name] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSource, name)
		}
		seen[name] = true
		names[i] = name
	}
	return &Aggregator{
		sources: sources,
		name:    Kind + "(" + strings.Join(names, ",") + ")",
	}, nil
}

// Name implements feed.Feed.
func (a *Aggregator) Name() string { return a.name }

// Type implements feed.Feed.
func (a *Aggregator) Type() string { return Kind }

// Sources implements feed.MultiFeed.
func (a *Aggregator) Sources() []feed.Feed { return a.sources }

// Search implements feed.Feed by starting a fresh search on every source
// concurrently and merging the resulting pages.
//
// Source failures are absorbed: a failing source contributes StatusError
// and zero items, and the page only fails as a whole when the context is
// invalid before fan-out. The returned error is reserved for programming
// misuse (empty query).
func (a *Aggregator) Search(ctx context.Context, q feed.Query) (*feed.Page, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, feed.ErrEmptyQuery
	}
	q = q.WithDefaults()
	results := a.fanOut(ctx, func(ctx context.Context, src feed.Feed) (*feed.Page, error) {
		return src.Search(ctx, q)
	})
	return a.merge(ctx, results), nil
}

// ContinuePaging implements feed.Feed by driving each source with its own
// prior token. Sources absent from the composite token are exhausted and
// contribute StatusNoMoreItems without being queried.
func (a *Aggregator) ContinuePaging(ctx context.Context, token feed.ContinuationToken) (*feed.Page, error) {
	t, ok := token.(*continuationToken)
	if !ok || t.source != a.name {
		return nil, feed.ErrForeignToken
	}
	results := a.fanOut(ctx, func(ctx context.Context, src feed.Feed) (*feed.Page, error) {
		tok, ok := t.tokens[src.Name()]
		if !ok {
			return exhaustedPage(src.Name()), nil
		}
		return src.ContinuePaging(ctx, tok)
	})
	return a.merge(ctx, results), nil
}

// Refresh implements feed.Feed by re-polling every source that supports it.
// Sources without a refresh token contribute StatusNoMoreItems.
func (a *Aggregator) Refresh(ctx context.Context, token feed.RefreshToken) (*feed.Page, error) {
	t, ok := token.(*refreshToken)
	if !ok || t.source != a.name {
		return nil, feed.ErrForeignToken
	}
	results := a.fanOut(ctx, func(ctx context.Context, src feed.Feed) (*feed.Page, error) {
		tok, ok := t.tokens[src.Name()]
		if !ok {
			return exhaustedPage(src.Name()), nil
		}
		return src.Refresh(ctx, tok)
	})
	return a.merge(ctx, results), nil
}

// TotalCount implements feed.Feed by summing per-source capped counts.
// The sum may exceed max; callers read any result >= max as "at least max".
// Failing sources contribute zero.
func (a *Aggregator) TotalCount(ctx context.Context, q feed.Query, max int) (int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return 0, feed.ErrEmptyQuery
	}
	q = q.WithDefaults()

	counts := make([]int, len(a.sources))
	var wg sync.WaitGroup
	for i, src := range a.sources {
		wg.Add(1)
		go func(i int, src feed.Feed) {
			defer wg.Done()
			if n, err := src.TotalCount(ctx, q, max); err == nil {
				counts[i] = n
			}
		}(i, src)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return 0, err
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	return total, nil
}

// sourceResult is one source's outcome for a fan-out step.
type sourceResult struct {
	page *feed.Page // nil when err is set
	err  error
	dur  time.Duration
}

// fanOut runs call against every source concurrently under the shared ctx
// and joins on completion of all. Results are indexed by source priority.
func (a *Aggregator) fanOut(ctx context.Context, call func(context.Context, feed.Feed) (*feed.Page, error)) []sourceResult {
	results := make([]sourceResult, len(a.sources))
	var wg sync.WaitGroup
	for i, src := range a.sources {
		wg.Add(1)
		go func(i int, src feed.Feed) {
			defer wg.Done()
			start := time.Now()
			page, err := call(ctx, src)
			results[i] = sourceResult{page: page, err: err, dur: time.Since(start)}
		}(i, src)
	}
	wg.Wait()
	return results
}

// merge reduces the N source results to one page.
func (a *Aggregator) merge(ctx context.Context, results []sourceResult) *feed.Page {
	start := time.Now()

	durations := make(map[string]time.Duration, len(results))
	for i, r := range results {
		durations[a.sources[i].Name()] = r.dur
	}

	// A cancelled fetch discards partial items and reports every source as
	// cancelled; the caller keeps items from prior completed pages.
	if ctx.Err() != nil {
		statuses := make(map[string]feed.LoadingStatus, len(a.sources))
		for _, src := range a.sources {
			statuses[src.Name()] = feed.StatusCancelled
		}
		return &feed.Page{
			Statuses:        statuses,
			SourceDurations: durations,
			MergeDuration:   time.Since(start),
		}
	}

	statuses := make(map[string]feed.LoadingStatus)
	contTokens := make(map[string]feed.ContinuationToken)
	refreshTokens := make(map[string]feed.RefreshToken)
	pages := make([]*feed.Page, len(results))

	for i, r := range results {
		name := a.sources[i].Name()
		switch {
		case r.err != nil && (errors.Is(r.err, context.Canceled) || errors.Is(r.err, context.DeadlineExceeded)):
			statuses[name] = feed.StatusCancelled
		case r.err != nil:
			statuses[name] = feed.StatusError
		default:
			pages[i] = r.page
			for k, v := range r.page.Statuses {
				statuses[k] = v
			}
			if r.page.Continuation != nil {
				contTokens[name] = r.page.Continuation
			}
			if r.page.Refresh != nil {
				refreshTokens[name] = r.page.Refresh
			}
		}
	}

	page := &feed.Page{
		Items:           a.interleave(pages),
		Statuses:        statuses,
		SourceDurations: durations,
		MergeDuration:   time.Since(start),
	}
	if len(contTokens) > 0 {
		page.Continuation = &continuationToken{source: a.name, tokens: contTokens}
	}
	if len(refreshTokens) > 0 {
		page.Refresh = &refreshToken{source: a.name, tokens: refreshTokens}
	}
	return page
}

// interleave concatenates source pages rank by rank: index i of every source
// in priority order precedes index i+1 of any source. Duplicate identities
// keep the higher-priority source's copy even when a lower-priority source
// surfaces the name at an earlier rank. With more than one source
// configured, the namespace-verified flag is cleared on every item because
// sources may disagree about reservations.
func (a *Aggregator) interleave(pages []*feed.Page) []feed.Item {
	multi := len(a.sources) > 1

	// Resolve duplicates before walking ranks: the earliest source in
	// priority order carrying an identity owns it.
	owner := make(map[string]int)
	longest := 0
	for i, p := range pages {
		if p == nil {
			continue
		}
		if len(p.Items) > longest {
			longest = len(p.Items)
		}
		for _, it := range p.Items {
			id := it.Identity()
			if _, claimed := owner[id]; !claimed {
				owner[id] = i
			}
		}
	}

	emitted := make(map[string]bool)
	var out []feed.Item
	for rank := 0; rank < longest; rank++ {
		for i, p := range pages {
			if p == nil || rank >= len(p.Items) {
				continue
			}
			it := p.Items[rank]
			id := it.Identity()
			if owner[id] != i || emitted[id] {
				continue
			}
			emitted[id] = true
			if multi {
				it.PrefixReserved = false
			}
			out = append(out, it)
		}
	}
	return out
}

// exhaustedPage stands in for a source that has no more pages to serve.
func exhaustedPage(name string) *feed.Page {
	return &feed.Page{
		Statuses: map[string]feed.LoadingStatus{name: feed.StatusNoMoreItems},
	}
}

// Ensure Aggregator satisfies the feed contracts.
var (
	_ feed.Feed      = (*Aggregator)(nil)
	_ feed.MultiFeed = (*Aggregator)(nil)
)
