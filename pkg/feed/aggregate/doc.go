// Package aggregate implements the multi-source search feed.
//
// An [Aggregator] fans a single logical query out to every configured source
// concurrently, waits for all of them to complete (or for the shared
// cancellation signal), and reduces the independent source pages to one:
// items are interleaved by rank with configuration order as the stable
// priority, duplicates are dropped with the higher-priority source winning,
// and the per-source statuses are carried forward so callers can reduce
// them to a composite status.
//
// The Aggregator itself satisfies the feed.Feed contract, so it is
// substitutable anywhere a single feed is expected, including inside
// another Aggregator. It holds no state across calls beyond the immutable
// source list.
package aggregate
