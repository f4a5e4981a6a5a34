package crates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/pkgscout/pkgscout/pkg/cache"
	"github.com/pkgscout/pkgscout/pkg/feed"
)

func fakeRegistry(t *testing.T, total int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			http.Error(w, "user agent required", http.StatusForbidden)
			return
		}
		if r.URL.Path != "/crates" {
			http.NotFound(w, r)
			return
		}
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		size, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

		resp := searchResponse{Meta: searchMeta{Total: total}}
		start := (page - 1) * size
		for i := start; i < start+size && i < total; i++ {
			resp.Crates = append(resp.Crates, crateResult{
				Name:       fmt.Sprintf("crate-%d", i),
				MaxVersion: "0.3.1",
				Downloads:  int64(1000 - i),
			})
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestFeed_PaginatesToExhaustion(t *testing.T) {
	server := fakeRegistry(t, 5)
	defer server.Close()

	f := NewWithBaseURL("test-crates", server.URL, cache.NewNullCache(), 0)
	ctx := context.Background()

	var all []feed.Item
	page, err := f.Search(ctx, feed.Query{Text: "crate", PageSize: 2})
	if err != nil {
		t.Fatal(err)
	}
	all = append(all, page.Items...)

	for page.Continuation != nil {
		page, err = f.ContinuePaging(ctx, page.Continuation)
		if err != nil {
			t.Fatal(err)
		}
		all = append(all, page.Items...)
	}

	if len(all) != 5 {
		t.Fatalf("collected %d items, want 5", len(all))
	}
	if page.Statuses["test-crates"] != feed.StatusNoMoreItems {
		t.Errorf("final status = %v, want no-more-items", page.Statuses["test-crates"])
	}
	for i, it := range all {
		if want := fmt.Sprintf("crate-%d", i); it.Name != want {
			t.Errorf("item %d = %q, want %q (source order must be preserved)", i, it.Name, want)
		}
	}
}

func TestFeed_TotalCount(t *testing.T) {
	server := fakeRegistry(t, 42)
	defer server.Close()

	f := NewWithBaseURL("test-crates", server.URL, cache.NewNullCache(), 0)
	n, err := f.TotalCount(context.Background(), feed.Query{Text: "crate"}, 100)
	if err != nil {
		t.Fatal(err)
	}
	if n != 42 {
		t.Errorf("TotalCount = %d, want exact total below the cap", n)
	}
}
