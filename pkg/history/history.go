// Package history persists recent searches so they can be replayed from
// the CLI. Entries are stored as one JSON file per search under a config
// directory and pruned beyond a fixed limit.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// maxEntries bounds how many searches are kept on disk.
const maxEntries = 50

// Entry records one completed search.
type Entry struct {
	Query     string    `json:"query"`
	SearchID  uuid.UUID `json:"search_id"`
	Sources   []string  `json:"sources"`
	ItemCount int       `json:"item_count"`
	Timestamp time.Time `json:"timestamp"`
}

// Store is a file-per-entry history store.
type Store struct {
	mu  sync.Mutex
	dir string
}

// NewStore creates a history store rooted at dir. If dir is empty it
// defaults to os.UserConfigDir()/pkgscout/history.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("locate config dir: %w", err)
		}
		dir = filepath.Join(base, "pkgscout", "history")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Path returns the directory entries are stored in.
func (s *Store) Path() string { return s.dir }

// Append writes one entry and prunes the store to maxEntries.
func (s *Store) Append(e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history entry: %w", err)
	}

	// Timestamp-prefixed names keep directory order equal to search order.
	name := fmt.Sprintf("%d-%s.json", e.Timestamp.UnixNano(), e.SearchID)
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o600); err != nil {
		return fmt.Errorf("write history entry: %w", err)
	}
	return s.prune()
}

// Recent returns up to n entries, newest first.
func (s *Store) Recent(n int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := s.entryNames()
	if err != nil {
		return nil, err
	}
	if n > 0 && len(names) > n {
		names = names[:n]
	}

	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			continue
		}
		var e Entry
		if err := json.Unmarshal(data, &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Clear removes every stored entry.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := s.entryNames()
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove history entry: %w", err)
		}
	}
	return nil
}

// entryNames lists entry files newest first. Callers hold s.mu.
func (s *Store) entryNames() ([]string, error) {
	dirents, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read history dir: %w", err)
	}
	names := make([]string, 0, len(dirents))
	for _, d := range dirents {
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			continue
		}
		names = append(names, d.Name())
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// prune removes the oldest entries beyond maxEntries. Callers hold s.mu.
func (s *Store) prune() error {
	names, err := s.entryNames()
	if err != nil {
		return err
	}
	for _, name := range names[min(len(names), maxEntries):] {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("prune history entry: %w", err)
		}
	}
	return nil
}
