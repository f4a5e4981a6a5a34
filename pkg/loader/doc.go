// Package loader implements the caller-facing incremental search engine.
//
// A [Loader] drives one feed (usually the multi-source aggregator) and owns
// the growing result list, the composite loading-state machine, in-flight
// fetch bookkeeping, and telemetry sequencing. Callers without a push
// channel poll it: LoadNext starts a background fetch and returns
// immediately, UpdateState publishes a completed fetch without blocking,
// and Current returns a snapshot of everything published so far.
//
// Within one logical search the visible item list only ever grows; starting
// a new search clears it and issues a fresh correlation id. At most one
// fetch is outstanding per Loader at any time, which is also what makes the
// item list and composite status safe to publish without extra locking
// beyond the snapshot mutex.
package loader
