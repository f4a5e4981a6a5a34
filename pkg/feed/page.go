package feed

import "time"

// Page is the unit a feed returns for one query step.
//
// A page carries the ordered items produced by the step, the loading status
// of every source after the step, and the tokens needed to resume. A nil
// Continuation means no further pages exist; a nil Refresh means the feed
// does not support re-polling this page set.
type Page struct {
	// Items in source relevance order (possibly empty, never reordered).
	Items []Item

	// Statuses maps source name to that source's status after this step.
	// A leaf feed reports a single entry for itself; the aggregator carries
	// one entry per underlying source.
	Statuses map[string]LoadingStatus

	// Continuation resumes pagination, nil when no more pages may exist.
	Continuation ContinuationToken

	// Refresh re-polls the same logical page set, nil when unsupported.
	Refresh RefreshToken

	// SourceDurations records per-source fetch time for telemetry.
	SourceDurations map[string]time.Duration

	// MergeDuration is the aggregation-only time spent combining source
	// pages, zero for leaf feeds.
	MergeDuration time.Duration
}

// Status reduces the page's per-source statuses to one composite status.
func (p *Page) Status() LoadingStatus {
	return ReduceStatus(p.Statuses)
}
