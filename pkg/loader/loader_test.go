package loader_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pkgscout/pkgscout/pkg/feed"
	"github.com/pkgscout/pkgscout/pkg/feed/aggregate"
	"github.com/pkgscout/pkgscout/pkg/feed/feedtest"
	"github.com/pkgscout/pkgscout/pkg/loader"
	"github.com/pkgscout/pkgscout/pkg/telemetry"
)

func item(name, version string) feed.Item {
	return feed.Item{Name: name, Version: version}
}

// waitNotLoading polls UpdateState until the composite status leaves
// Loading, mirroring a UI without a push channel.
func waitNotLoading(t *testing.T, l *loader.Loader) feed.LoadingStatus {
	t.Helper()
	ctx := context.Background()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		l.UpdateState(ctx)
		if s := l.State().Status; s != feed.StatusLoading {
			return s
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("fetch did not complete in time")
	return feed.StatusUnknown
}

func TestLoadNext_RequiresSearch(t *testing.T) {
	l := loader.New(&feedtest.StaticFeed{FeedName: "alpha"})
	if err := l.LoadNext(context.Background()); !errors.Is(err, loader.ErrNoSearch) {
		t.Errorf("expected ErrNoSearch, got %v", err)
	}
	if _, err := l.TotalCount(context.Background(), 100); !errors.Is(err, loader.ErrNoSearch) {
		t.Errorf("expected ErrNoSearch from TotalCount, got %v", err)
	}
}

func TestLoadNext_IncrementalPages(t *testing.T) {
	f := &feedtest.StaticFeed{FeedName: "alpha", Pages: [][]feed.Item{
		{item("p1", "1.0.0"), item("p2", "1.0.0")},
		{item("p3", "1.0.0")},
	}}
	l := loader.New(f)
	ctx := context.Background()

	l.StartSearch(feed.Query{Text: "p"})
	if st := l.State(); st.Status != feed.StatusUnknown || st.ItemCount != 0 {
		t.Fatalf("fresh search state = %+v", st)
	}

	if err := l.LoadNext(ctx); err != nil {
		t.Fatal(err)
	}
	if st := l.State().Status; st != feed.StatusLoading {
		t.Fatalf("status after LoadNext = %v, want loading", st)
	}
	if got := waitNotLoading(t, l); got != feed.StatusReady {
		t.Fatalf("status after first page = %v, want ready", got)
	}
	if n := len(l.Current()); n != 2 {
		t.Fatalf("items after first page = %d, want 2", n)
	}

	if err := l.LoadNext(ctx); err != nil {
		t.Fatal(err)
	}
	if got := waitNotLoading(t, l); got != feed.StatusNoMoreItems {
		t.Fatalf("status after last page = %v, want no-more-items", got)
	}
	if n := len(l.Current()); n != 3 {
		t.Fatalf("items after last page = %d, want 3", n)
	}

	// With every source exhausted, another LoadNext completes immediately
	// with no further items and the status stays terminal.
	if err := l.LoadNext(ctx); err != nil {
		t.Fatal(err)
	}
	if got := waitNotLoading(t, l); got != feed.StatusNoMoreItems {
		t.Fatalf("status after exhausted LoadNext = %v, want no-more-items", got)
	}
	if n := len(l.Current()); n != 3 {
		t.Fatalf("exhausted LoadNext changed item count to %d", n)
	}
}

func TestLoadNext_ErrorStatusHoldsUntilNewSearch(t *testing.T) {
	// A leaf feed driven directly surfaces its failure as a fetch error;
	// the resulting Error status must survive further LoadNext calls.
	f := &feedtest.StaticFeed{FeedName: "alpha", Err: errors.New("registry down")}
	mem := &telemetry.Memory{}
	l := loader.New(f, loader.WithEmitter(mem))
	ctx := context.Background()

	l.StartSearch(feed.Query{Text: "p"})
	if err := l.LoadNext(ctx); err != nil {
		t.Fatal(err)
	}
	if st := waitNotLoading(t, l); st != feed.StatusError {
		t.Fatalf("after failed fetch status = %v, want error", st)
	}
	eventsAfterError := len(mem.Names())

	if err := l.LoadNext(ctx); err != nil {
		t.Fatal(err)
	}
	if st := waitNotLoading(t, l); st != feed.StatusError {
		t.Errorf("LoadNext after error regressed status to %v", st)
	}
	if got := len(mem.Names()); got != eventsAfterError {
		t.Errorf("LoadNext after error emitted %d extra events: %v", got-eventsAfterError, mem.Names()[eventsAfterError:])
	}

	// A brand-new search leaves the terminal state behind.
	l.StartSearch(feed.Query{Text: "p"})
	if st := l.State().Status; st != feed.StatusUnknown {
		t.Errorf("StartSearch did not reset status, got %v", st)
	}
}

func TestCurrent_MonotonicGrowth(t *testing.T) {
	f := &feedtest.StaticFeed{FeedName: "alpha", Pages: [][]feed.Item{
		{item("p1", "1")}, {item("p2", "1")}, {item("p3", "1")},
	}}
	l := loader.New(f)
	ctx := context.Background()

	l.StartSearch(feed.Query{Text: "p"})
	last := 0
	for i := 0; i < 3; i++ {
		if err := l.LoadNext(ctx); err != nil {
			t.Fatal(err)
		}
		waitNotLoading(t, l)
		n := len(l.Current())
		if n < last {
			t.Fatalf("item count shrank from %d to %d", last, n)
		}
		last = n
	}

	l.StartSearch(feed.Query{Text: "q"})
	if n := len(l.Current()); n != 0 {
		t.Errorf("new search should clear the list, got %d items", n)
	}
}

func TestStartSearch_NewCorrelationID(t *testing.T) {
	l := loader.New(&feedtest.StaticFeed{FeedName: "alpha"})

	l.StartSearch(feed.Query{Text: "a"})
	first := l.State().SearchID
	l.StartSearch(feed.Query{Text: "b"})
	second := l.State().SearchID

	if first == second {
		t.Error("new search must generate a different correlation id")
	}
}

func TestLoadNext_RejectedWhileLoading(t *testing.T) {
	f := &feedtest.StaticFeed{
		FeedName: "alpha",
		Pages:    [][]feed.Item{{item("p1", "1")}},
		Delay:    100 * time.Millisecond,
	}
	l := loader.New(f)
	ctx := context.Background()

	l.StartSearch(feed.Query{Text: "p"})
	if err := l.LoadNext(ctx); err != nil {
		t.Fatal(err)
	}
	if err := l.LoadNext(ctx); !errors.Is(err, loader.ErrLoadInProgress) {
		t.Errorf("expected ErrLoadInProgress, got %v", err)
	}

	// The rejected call must not corrupt the in-flight fetch.
	if got := waitNotLoading(t, l); got != feed.StatusNoMoreItems {
		t.Errorf("status after fetch = %v, want no-more-items", got)
	}
	if n := len(l.Current()); n != 1 {
		t.Errorf("items = %d, want 1", n)
	}
}

func TestTelemetry_EventSequence(t *testing.T) {
	a := &feedtest.StaticFeed{FeedName: "alpha", FeedKind: "npm", Pages: [][]feed.Item{
		{item("p1", "1")}, {item("p2", "1")},
	}}
	b := &feedtest.StaticFeed{FeedName: "beta", FeedKind: "crates"}
	agg, err := aggregate.New(a, b)
	if err != nil {
		t.Fatal(err)
	}

	sink := &telemetry.Memory{}
	l := loader.New(agg, loader.WithEmitter(sink))
	ctx := context.Background()

	l.StartSearch(feed.Query{Text: "secret query", IncludePrerelease: true})
	for i := 0; i < 2; i++ {
		if err := l.LoadNext(ctx); err != nil {
			t.Fatal(err)
		}
		waitNotLoading(t, l)
	}

	names := sink.Names()
	want := []string{
		loader.EventSearch,
		loader.EventSourceSummary,
		loader.EventSearchPage,
		loader.EventSearchPage,
	}
	if len(names) != len(want) {
		t.Fatalf("event names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("event %d = %q, want %q", i, names[i], want[i])
		}
	}

	events := sink.Events()
	searchID := events[0].Properties["search-id"]
	if searchID != l.State().SearchID.String() {
		t.Errorf("search event id %v does not match loader state", searchID)
	}
	if got := events[0].PII["query"]; got != "secret query" {
		t.Errorf("query should be PII-tagged, got %v", got)
	}
	if got := events[1].Properties["num-sources"]; got != 2 {
		t.Errorf("num-sources = %v, want 2", got)
	}

	for i, ev := range events[2:] {
		if got := ev.Properties["page-index"]; got != i {
			t.Errorf("page %d index = %v", i, got)
		}
		if got := ev.Properties["search-id"]; got != searchID {
			t.Errorf("page %d correlation id %v != %v", i, got, searchID)
		}
	}
}

func TestUpdateState_CancellationKeepsPublishedItems(t *testing.T) {
	f := &feedtest.StaticFeed{FeedName: "alpha", Pages: [][]feed.Item{
		{item("p1", "1")},
		{item("p2", "1")},
	}}
	agg, err := aggregate.New(f)
	if err != nil {
		t.Fatal(err)
	}
	l := loader.New(agg)

	l.StartSearch(feed.Query{Text: "p"})
	if err := l.LoadNext(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitNotLoading(t, l)
	if n := len(l.Current()); n != 1 {
		t.Fatalf("items after first page = %d, want 1", n)
	}

	// Slow the second page down, then cancel before any source responds.
	f.Delay = time.Minute
	ctx, cancel := context.WithCancel(context.Background())
	if err := l.LoadNext(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()

	if got := waitNotLoading(t, l); got != feed.StatusCancelled {
		t.Fatalf("status after cancel = %v, want cancelled", got)
	}
	if n := len(l.Current()); n != 1 {
		t.Errorf("previously published items lost: %d items", n)
	}
}

func TestRefresh_ReplacesWithSuperset(t *testing.T) {
	f := &feedtest.StaticFeed{FeedName: "alpha", Pages: [][]feed.Item{
		{item("p1", "1")},
	}}
	l := loader.New(f)
	ctx := context.Background()

	l.StartSearch(feed.Query{Text: "p"})
	if err := l.Refresh(ctx); !errors.Is(err, loader.ErrNoRefreshToken) {
		t.Fatalf("expected ErrNoRefreshToken before any page, got %v", err)
	}

	if err := l.LoadNext(ctx); err != nil {
		t.Fatal(err)
	}
	waitNotLoading(t, l)

	f.AddRefreshItems(item("p1b", "1"))
	if err := l.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	waitNotLoading(t, l)

	if n := len(l.Current()); n != 2 {
		t.Errorf("items after refresh = %d, want 2", n)
	}
}

func TestTotalCount_DoesNotMutateState(t *testing.T) {
	f := &feedtest.StaticFeed{FeedName: "alpha", Total: 250, Pages: [][]feed.Item{
		{item("p1", "1")},
	}}
	l := loader.New(f)
	ctx := context.Background()

	l.StartSearch(feed.Query{Text: "p"})
	n, err := l.TotalCount(ctx, 100)
	if err != nil {
		t.Fatal(err)
	}
	if n < 100 {
		t.Errorf("TotalCount = %d, want at-least-100 semantics", n)
	}
	if st := l.State(); st.Status != feed.StatusUnknown || st.ItemCount != 0 {
		t.Errorf("TotalCount mutated state: %+v", st)
	}
}
