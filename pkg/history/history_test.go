package history

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newEntry(query string, ts time.Time) Entry {
	return Entry{
		Query:     query,
		SearchID:  uuid.New(),
		Sources:   []string{"npmjs.org", "crates.io"},
		ItemCount: 25,
		Timestamp: ts,
	}
}

func TestStore_AppendAndRecent(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		if err := store.Append(newEntry(fmt.Sprintf("query-%d", i), base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	entries, err := store.Recent(2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Recent(2) returned %d entries", len(entries))
	}
	if entries[0].Query != "query-2" || entries[1].Query != "query-1" {
		t.Errorf("expected newest first, got %q then %q", entries[0].Query, entries[1].Query)
	}
	if len(entries[0].Sources) != 2 {
		t.Errorf("sources not round-tripped: %v", entries[0].Sources)
	}
}

func TestStore_PrunesBeyondLimit(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < maxEntries+5; i++ {
		if err := store.Append(newEntry(fmt.Sprintf("query-%d", i), base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	entries, err := store.Recent(0)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != maxEntries {
		t.Fatalf("expected %d entries after prune, got %d", maxEntries, len(entries))
	}
	if entries[0].Query != fmt.Sprintf("query-%d", maxEntries+4) {
		t.Errorf("newest entry = %q", entries[0].Query)
	}
	if entries[len(entries)-1].Query != "query-5" {
		t.Errorf("oldest surviving entry = %q", entries[len(entries)-1].Query)
	}
}

func TestStore_Clear(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if err := store.Append(newEntry("react", time.Now())); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	entries, err := store.Recent(0)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty store, got %d entries", len(entries))
	}
}
