package cli

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/pkgscout/pkgscout/pkg/feed"
	"github.com/pkgscout/pkgscout/pkg/history"
	"github.com/pkgscout/pkgscout/pkg/loader"
	"github.com/pkgscout/pkgscout/pkg/telemetry"
)

// pollInterval is how often the search loop checks for fetch completion.
const pollInterval = 50 * time.Millisecond

// countCap bounds how far sources are asked to count matches.
const countCap = 1000

// searchCommand creates the search command.
func (c *CLI) searchCommand() *cobra.Command {
	var (
		sources    []string
		pages      int
		all        bool
		pageSize   int
		prerelease bool
		count      bool
		noCache    bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search package registries",
		Long: `Search all configured package registries and print merged results.

Results arrive incrementally: each page is fetched from every source
concurrently, merged in configured priority order, and printed as soon
as it is ready. Use --pages or --all to keep paging.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			agg, backend, _, err := c.buildAggregate(ctx, noCache, sources)
			if err != nil {
				return err
			}
			defer backend.Close()

			q := feed.Query{
				Text:              args[0],
				IncludePrerelease: prerelease,
				PageSize:          pageSize,
			}

			ld := loader.New(agg, loader.WithEmitter(&telemetry.LogEmitter{Logger: c.Logger}))
			ld.StartSearch(q)

			if count {
				return c.runCount(ctx, ld, args[0])
			}

			if all {
				pages = 0
			}
			return c.runSearch(ctx, ld, args[0], pages)
		},
	}

	cmd.Flags().StringSliceVarP(&sources, "source", "s", nil, "search only the named sources (repeatable)")
	cmd.Flags().IntVar(&pages, "pages", 1, "number of pages to load")
	cmd.Flags().BoolVar(&all, "all", false, "keep paging until every source is exhausted")
	cmd.Flags().IntVar(&pageSize, "page-size", feed.DefaultPageSize, "results per source per page")
	cmd.Flags().BoolVar(&prerelease, "prerelease", false, "include prerelease versions where supported")
	cmd.Flags().BoolVar(&count, "count", false, "print the total match count instead of results")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the response cache")

	return cmd
}

// runCount prints the capped total match count across all sources.
func (c *CLI) runCount(ctx context.Context, ld *loader.Loader, query string) error {
	sp := newSpinnerWithContext(ctx, "Counting matches...")
	sp.Start()
	total, err := ld.TotalCount(ctx, countCap)
	sp.Stop()
	if err != nil {
		return err
	}
	if total >= countCap {
		printInfo("%s matches for %s", StyleNumber.Render(fmt.Sprintf("%d+", total)), StyleHighlight.Render(query))
	} else {
		printInfo("%s matches for %s", StyleNumber.Render(fmt.Sprintf("%d", total)), StyleHighlight.Render(query))
	}
	return nil
}

// runSearch drives the loader page by page, printing each page as it
// lands. maxPages <= 0 means page until every source reports exhaustion.
func (c *CLI) runSearch(ctx context.Context, ld *loader.Loader, query string, maxPages int) error {
	prog := newProgress(loggerFromContext(ctx))
	printed := 0

	for page := 0; maxPages <= 0 || page < maxPages; page++ {
		if err := ld.LoadNext(ctx); err != nil {
			return err
		}
		state := c.waitForPage(ctx, ld)

		items := ld.Current()
		for _, item := range items[printed:] {
			printItem(item)
		}
		printed = len(items)

		if state.Status == feed.StatusError {
			return fmt.Errorf("all sources failed")
		}
		if state.Status.Terminal() {
			break
		}
	}

	state := ld.State()
	if state.Status == feed.StatusCancelled {
		printWarning("Search cancelled")
		return ctx.Err()
	}

	printNewline()
	if state.Status == feed.StatusNoMoreItems {
		prog.done(fmt.Sprintf("Loaded all %d results", printed))
	} else {
		prog.done(fmt.Sprintf("Loaded %d results (more available, use --all)", printed))
	}

	c.recordHistory(ld, query, state)
	return nil
}

// waitForPage polls UpdateState until the in-flight fetch publishes.
func (c *CLI) waitForPage(ctx context.Context, ld *loader.Loader) loader.State {
	sp := newSpinnerWithContext(ctx, "Searching...")
	sp.Start()
	defer sp.Stop()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		ld.UpdateState(ctx)
		state := ld.State()
		if state.Status != feed.StatusLoading {
			return state
		}
		select {
		case <-ctx.Done():
			// One more poll so the loader observes the cancellation.
			ld.UpdateState(ctx)
			return ld.State()
		case <-ticker.C:
		}
	}
}

// recordHistory appends the finished search to the history store.
// History failures are logged, never fatal.
func (c *CLI) recordHistory(ld *loader.Loader, query string, state loader.State) {
	store, err := history.NewStore("")
	if err != nil {
		c.Logger.Debug("history unavailable", "err", err)
		return
	}
	seen := make(map[string]bool)
	var sources []string
	for _, item := range ld.Current() {
		if !seen[item.Source] {
			seen[item.Source] = true
			sources = append(sources, item.Source)
		}
	}
	err = store.Append(history.Entry{
		Query:     query,
		SearchID:  state.SearchID,
		Sources:   sources,
		ItemCount: state.ItemCount,
	})
	if err != nil {
		c.Logger.Debug("history append failed", "err", err)
	}
}

// printItem renders one search result line plus a dim description line.
func printItem(item feed.Item) {
	line := StyleHighlight.Render(item.Name) + " " + StyleValue.Render(item.Version)
	line += " " + StyleDim.Render("("+item.Source+")")
	if item.Downloads > 0 {
		line += " " + StyleDim.Render(fmt.Sprintf("%s downloads", formatCount(item.Downloads)))
	}
	if item.PrefixReserved {
		line += " " + StyleSuccess.Render(iconSuccess)
	}
	fmt.Println(line)
	if item.Description != "" {
		printDetail("%s", truncate(item.Description, 100))
	}
}

// formatCount renders large counts compactly (12.3k, 4.5M).
func formatCount(n int64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fk", float64(n)/1_000)
	}
	return fmt.Sprintf("%d", n)
}

// truncate shortens s to at most max runes, never splitting a multi-byte
// character.
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-1]) + "…"
}
