// Package feed defines the search feed contract shared by every package
// source in pkgscout.
//
// A feed answers three query shapes: a fresh search, a continuation of an
// earlier search (paging), and a refresh of an already-fetched page set.
// Each answer is a [Page]: an ordered batch of items plus per-source loading
// statuses and opaque tokens for resuming. Concrete feeds live in
// pkg/registry; the multi-source fan-out feed lives in pkg/feed/aggregate
// and satisfies the same contract, so it can be used anywhere a single
// feed is expected.
//
// Tokens are opaque to callers. A feed only ever understands tokens it
// issued itself; handing a token to a different feed returns
// [ErrForeignToken].
package feed
