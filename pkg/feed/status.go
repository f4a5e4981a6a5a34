package feed

// LoadingStatus describes how far along a source (or the composite of all
// sources) is in producing results for one logical search.
type LoadingStatus int

const (
	// StatusUnknown is the pre-query state: no fetch has been issued yet.
	StatusUnknown LoadingStatus = iota

	// StatusLoading means a fetch is outstanding.
	StatusLoading

	// StatusReady means at least one page was produced and more may exist.
	StatusReady

	// StatusNoMoreItems is terminal success: the source is exhausted.
	StatusNoMoreItems

	// StatusError is terminal failure: the source's last fetch failed.
	StatusError

	// StatusCancelled is terminal failure: the fetch was cancelled before
	// the source responded.
	StatusCancelled
)

// String returns the lowercase status name.
func (s LoadingStatus) String() string {
	switch s {
	case StatusUnknown:
		return "unknown"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusNoMoreItems:
		return "no-more-items"
	case StatusError:
		return "error"
	case StatusCancelled:
		return "cancelled"
	default:
		return "invalid"
	}
}

// Terminal reports whether the status is stable until a new search starts.
func (s LoadingStatus) Terminal() bool {
	switch s {
	case StatusNoMoreItems, StatusError, StatusCancelled:
		return true
	}
	return false
}

// ReduceStatus collapses a per-source status map into one composite status.
//
// The reduction is a total order with graceful degradation on partial
// failure: a single erroring source never fails the composite unless every
// source errored. In priority order:
//
//   - StatusError when every source errored
//   - StatusLoading when any source still has a fetch outstanding
//   - StatusReady when any source has more pages and none are fetching
//   - StatusNoMoreItems when every surviving source is exhausted
//   - StatusCancelled when the fetch was cancelled before sources responded
//
// An empty map reduces to StatusUnknown.
func ReduceStatus(statuses map[string]LoadingStatus) LoadingStatus {
	if len(statuses) == 0 {
		return StatusUnknown
	}

	var loading, ready, exhausted, errored, cancelled int
	for _, s := range statuses {
		switch s {
		case StatusLoading:
			loading++
		case StatusReady:
			ready++
		case StatusNoMoreItems:
			exhausted++
		case StatusError:
			errored++
		case StatusCancelled:
			cancelled++
		}
	}

	n := len(statuses)
	switch {
	case errored == n:
		return StatusError
	case loading > 0:
		return StatusLoading
	case ready > 0:
		return StatusReady
	case exhausted > 0 && exhausted+errored == n:
		return StatusNoMoreItems
	case cancelled > 0:
		return StatusCancelled
	default:
		return StatusUnknown
	}
}
