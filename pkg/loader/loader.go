package loader

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pkgscout/pkgscout/pkg/feed"
	"github.com/pkgscout/pkgscout/pkg/telemetry"
)

// Sentinel errors for loader misuse. These signal programming errors at the
// call site, never transient conditions: source-level failures surface
// through [State.Status] instead.
var (
	// ErrNoSearch is returned when LoadNext or TotalCount is called before
	// StartSearch.
	ErrNoSearch = errors.New("no search started")

	// ErrLoadInProgress is returned when LoadNext is called while a fetch
	// is already outstanding. Callers must serialize page requests.
	ErrLoadInProgress = errors.New("load already in progress")

	// ErrNoRefreshToken is returned by Refresh when the current search has
	// no refreshable page set.
	ErrNoRefreshToken = errors.New("no refresh token for current search")
)

// State is the externally observable loader snapshot.
type State struct {
	// Status is the composite loading status reduced from the most recently
	// completed page's per-source statuses.
	Status feed.LoadingStatus

	// SearchID correlates every page and telemetry event of one logical
	// search. It is regenerated by StartSearch and stable until the next one.
	SearchID uuid.UUID

	// ItemCount is the number of items accumulated so far.
	ItemCount int
}

// Option configures a Loader.
type Option func(*Loader)

// WithEmitter sets the telemetry sink. Absent, emission is a no-op.
func WithEmitter(e telemetry.Emitter) Option {
	return func(l *Loader) {
		if e != nil {
			l.emitter = e
		}
	}
}

// Loader incrementally loads search results from a feed.
//
// LoadNext, UpdateState, and Refresh must be called from one goroutine (the
// driving caller); Current and State are safe to call concurrently with
// them at any time.
type Loader struct {
	feed    feed.Feed
	emitter telemetry.Emitter

	mu        sync.Mutex
	query     feed.Query
	searchID  uuid.UUID
	started   bool // first fetch issued for the current search
	items     []feed.Item
	status    feed.LoadingStatus
	statuses  map[string]feed.LoadingStatus
	cont      feed.ContinuationToken
	refresh   feed.RefreshToken
	pageIndex int
	op        *operation
}

// New creates a Loader over the given feed. Call StartSearch before LoadNext.
func New(f feed.Feed, opts ...Option) *Loader {
	l := &Loader{
		feed:    f,
		emitter: telemetry.Noop{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// StartSearch begins a new logical search: the visible item list is
// cleared, composite status resets to Unknown, and a fresh correlation id
// is generated. Any in-flight fetch from a previous search is abandoned and
// its result discarded on arrival.
func (l *Loader) StartSearch(q feed.Query) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.query = q.WithDefaults()
	l.searchID = uuid.New()
	l.started = false
	l.items = nil
	l.status = feed.StatusUnknown
	l.statuses = nil
	l.cont = nil
	l.refresh = nil
	l.pageIndex = 0
	l.op = nil
}

// LoadNext starts fetching the next page as a non-blocking background
// operation: a fresh search on the first call for the current query, a
// continuation on subsequent calls, and an immediate empty completion once
// every source is exhausted. The composite status transitions to Loading
// synchronously before LoadNext returns.
//
// Calling LoadNext while a fetch is outstanding returns ErrLoadInProgress
// without disturbing loader state. The ctx cancels the fetch; a cancelled
// fetch publishes StatusCancelled and discards its partial items while
// previously published pages remain visible. After a fetch that failed or
// was cancelled at the loader level, LoadNext is a no-op: the terminal
// status holds until StartSearch begins a new search.
func (l *Loader) LoadNext(ctx context.Context) error {
	l.mu.Lock()
	if l.searchID == uuid.Nil {
		l.mu.Unlock()
		return ErrNoSearch
	}
	if l.op != nil {
		l.mu.Unlock()
		return ErrLoadInProgress
	}
	// A fetch that failed (or was cancelled) at the loader level leaves no
	// per-source statuses behind. Nothing can be continued, so keep the
	// terminal status instead of regressing through an empty completion.
	if l.started && l.cont == nil && len(l.statuses) == 0 && l.status.Terminal() {
		l.mu.Unlock()
		return nil
	}

	op := &operation{
		done:         make(chan struct{}),
		searchID:     l.searchID,
		first:        !l.started,
		query:        l.query,
		cont:         l.cont,
		lastStatuses: l.statuses,
		start:        time.Now(),
	}
	l.started = true
	l.status = feed.StatusLoading
	l.op = op
	l.mu.Unlock()

	if op.first {
		l.emitter.Emit(searchEvent(op.query, op.searchID))
		l.emitter.Emit(sourceSummaryEvent(l.feed, op.searchID))
	}

	go l.fetch(ctx, op)
	return nil
}

// Refresh re-polls the current logical page set for newly available results
// without restarting pagination. It follows the same Loading/UpdateState
// cycle as LoadNext but drives the feed's refresh token.
func (l *Loader) Refresh(ctx context.Context) error {
	l.mu.Lock()
	if l.searchID == uuid.Nil {
		l.mu.Unlock()
		return ErrNoSearch
	}
	if l.op != nil {
		l.mu.Unlock()
		return ErrLoadInProgress
	}
	if l.refresh == nil {
		l.mu.Unlock()
		return ErrNoRefreshToken
	}

	op := &operation{
		done:       make(chan struct{}),
		searchID:   l.searchID,
		refreshing: true,
		refreshTok: l.refresh,
		start:      time.Now(),
	}
	l.status = feed.StatusLoading
	l.op = op
	l.mu.Unlock()

	go l.fetch(ctx, op)
	return nil
}

// UpdateState is the non-blocking poll. If the in-flight fetch has
// completed it atomically publishes the page (items appended, composite
// status replaced) and emits the page's telemetry event; otherwise it has
// no visible effect and may be invoked repeatedly.
//
// A ctx that is already cancelled while the fetch is still pending
// publishes StatusCancelled immediately and abandons the fetch.
func (l *Loader) UpdateState(ctx context.Context) {
	l.mu.Lock()
	op := l.op
	l.mu.Unlock()
	if op == nil {
		return
	}

	select {
	case <-op.done:
		l.publish(op)
	default:
		if ctx.Err() != nil {
			l.abandon(op)
		}
	}
}

// Current returns an immutable snapshot of the accumulated item list. It
// never blocks and is safe to call concurrently with LoadNext/UpdateState.
func (l *Loader) Current() []feed.Item {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]feed.Item, len(l.items))
	copy(out, l.items)
	return out
}

// State returns the observable loader snapshot.
func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return State{
		Status:    l.status,
		SearchID:  l.searchID,
		ItemCount: len(l.items),
	}
}

// Statuses returns a copy of the per-source statuses from the most
// recently published page. It is empty until the first page lands.
func (l *Loader) Statuses() map[string]feed.LoadingStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]feed.LoadingStatus, len(l.statuses))
	for name, st := range l.statuses {
		out[name] = st
	}
	return out
}

// TotalCount asks the feed set for a best-effort total match count, capped
// at max so sources need not fully enumerate. It does not mutate loader
// state.
func (l *Loader) TotalCount(ctx context.Context, max int) (int, error) {
	l.mu.Lock()
	q := l.query
	none := l.searchID == uuid.Nil
	l.mu.Unlock()
	if none {
		return 0, ErrNoSearch
	}
	return l.feed.TotalCount(ctx, q, max)
}

// operation is one in-flight fetch. The fetch goroutine fills page/err and
// closes done; publication happens on the polling side so that pages are
// appended strictly in order.
type operation struct {
	done chan struct{}

	searchID   uuid.UUID
	first      bool
	refreshing bool
	query      feed.Query
	cont       feed.ContinuationToken
	refreshTok feed.RefreshToken

	// lastStatuses carries the prior page's per-source map for the
	// exhausted case, where no source is queried.
	lastStatuses map[string]feed.LoadingStatus

	start   time.Time
	elapsed time.Duration
	page    *feed.Page
	err     error
}

func (l *Loader) fetch(ctx context.Context, op *operation) {
	defer close(op.done)

	switch {
	case op.refreshing:
		op.page, op.err = l.feed.Refresh(ctx, op.refreshTok)
	case op.first:
		op.page, op.err = l.feed.Search(ctx, op.query)
	case op.cont != nil:
		op.page, op.err = l.feed.ContinuePaging(ctx, op.cont)
	default:
		// Every source is exhausted: complete immediately with an empty
		// page that re-states the last observed statuses.
		op.page = &feed.Page{Statuses: op.lastStatuses}
	}
	op.elapsed = time.Since(op.start)
}

// publish applies a completed operation. Results from an abandoned
// operation or a superseded search are discarded.
func (l *Loader) publish(op *operation) {
	l.mu.Lock()
	if l.op != op || op.searchID != l.searchID {
		l.mu.Unlock()
		return
	}
	l.op = nil

	if op.err != nil {
		// The feed contract absorbs source failures into statuses, so an
		// error here is cancellation or caller misuse.
		if errors.Is(op.err, context.Canceled) || errors.Is(op.err, context.DeadlineExceeded) {
			l.status = feed.StatusCancelled
		} else {
			l.status = feed.StatusError
		}
		l.mu.Unlock()
		return
	}

	status := op.page.Status()
	if status == feed.StatusCancelled {
		// Partial items from the cancelled fetch are discarded; items from
		// prior completed pages stay visible.
		l.status = feed.StatusCancelled
		l.mu.Unlock()
		return
	}

	if op.refreshing {
		// A refresh re-serves the same logical page set as a superset, so
		// it replaces the visible list instead of appending to it. The
		// count still only grows.
		l.items = op.page.Items
	} else {
		l.items = append(l.items, op.page.Items...)
	}
	l.statuses = op.page.Statuses
	l.cont = op.page.Continuation
	if op.page.Refresh != nil {
		l.refresh = op.page.Refresh
	}
	l.status = status

	idx := l.pageIndex
	l.pageIndex++
	ev := pageEvent(op, status, idx)
	l.mu.Unlock()

	l.emitter.Emit(ev)
}

// abandon gives up on a pending operation whose caller cancelled. The fetch
// goroutine may still complete later; its result is discarded by publish's
// identity check.
func (l *Loader) abandon(op *operation) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.op != op || op.searchID != l.searchID {
		return
	}
	l.op = nil
	l.status = feed.StatusCancelled
}
