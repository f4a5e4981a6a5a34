package loader

import (
	"github.com/google/uuid"

	"github.com/pkgscout/pkgscout/pkg/feed"
	"github.com/pkgscout/pkgscout/pkg/telemetry"
)

// Telemetry event names. One logical search emits exactly one EventSearch
// followed by exactly one EventSourceSummary, then one EventSearchPage per
// completed page with a strictly increasing page index.
const (
	EventSearch        = "Search"
	EventSourceSummary = "SearchPackageSourceSummary"
	EventSearchPage    = "SearchPage"
)

// searchEvent describes a brand-new search. The raw query text is tagged as
// PII; everything else is exportable.
func searchEvent(q feed.Query, id uuid.UUID) telemetry.Event {
	return telemetry.Event{
		Name: EventSearch,
		Properties: map[string]any{
			"search-id":          id.String(),
			"include-prerelease": q.IncludePrerelease,
			"page-size":          q.PageSize,
		},
		PII: map[string]any{
			"query": q.Text,
		},
	}
}

// sourceSummaryEvent describes the feed composition behind a search: how
// many sources of each feed type were queried.
func sourceSummaryEvent(f feed.Feed, id uuid.UUID) telemetry.Event {
	byType := make(map[string]int)
	numSources := 1
	if mf, ok := f.(feed.MultiFeed); ok {
		sources := mf.Sources()
		numSources = len(sources)
		for _, src := range sources {
			byType[src.Type()]++
		}
	} else {
		byType[f.Type()] = 1
	}

	props := map[string]any{
		"search-id":   id.String(),
		"num-sources": numSources,
	}
	for kind, n := range byType {
		props["sources."+kind] = n
	}
	return telemetry.Event{Name: EventSourceSummary, Properties: props}
}

// pageEvent describes one completed page: how long the fetch took overall,
// how much of that was aggregation, and the per-source breakdown.
func pageEvent(op *operation, status feed.LoadingStatus, index int) telemetry.Event {
	props := map[string]any{
		"search-id":         op.searchID.String(),
		"page-index":        index,
		"status":            status.String(),
		"result-count":      len(op.page.Items),
		"duration-ms":       op.elapsed.Milliseconds(),
		"merge-duration-ms": op.page.MergeDuration.Milliseconds(),
	}
	for name, d := range op.page.SourceDurations {
		props["source."+name+".duration-ms"] = d.Milliseconds()
	}
	return telemetry.Event{Name: EventSearchPage, Properties: props}
}
