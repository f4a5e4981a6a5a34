package feed

// Item is one package search result.
//
// Items are immutable once produced by a feed. Identity is the normalized
// package name plus version; the aggregator deduplicates on the normalized
// name with source priority deciding the winner.
type Item struct {
	Name        string // Package name as reported by the source (never empty)
	Version     string // Latest matching version (e.g., "2.1.0")
	Description string // Short description (may be empty)
	Authors     []string
	Downloads   int64  // Total download count, 0 when the source does not report one
	RepoURL     string // Source repository URL (may be empty)

	// PrefixReserved reports whether the package's namespace prefix is
	// verified-reserved on its source. Only trustworthy for single-source
	// queries: the aggregator clears it whenever more than one source is
	// configured, regardless of what any one source reports.
	PrefixReserved bool

	// Source is the name of the feed that produced the item.
	Source string
}

// Identity returns the normalized name used for deduplication across sources.
func (i Item) Identity() string {
	return NormalizeName(i.Name)
}
