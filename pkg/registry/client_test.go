package registry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkgscout/pkgscout/pkg/cache"
)

func TestRetry_OnlyRetriesRetryable(t *testing.T) {
	ctx := context.Background()

	calls := 0
	err := Retry(ctx, 3, time.Millisecond, func() error {
		calls++
		return errors.New("permanent")
	})
	if err == nil || calls != 1 {
		t.Errorf("permanent error retried %d times, want 1", calls)
	}

	calls = 0
	err = Retry(ctx, 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return &RetryableError{Err: errors.New("transient")}
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Errorf("transient error: err=%v calls=%d, want nil err after 3 calls", err, calls)
	}
}

func TestRetry_RespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, 3, time.Minute, func() error {
		return &RetryableError{Err: errors.New("transient")}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestCheckStatus(t *testing.T) {
	if err := checkStatus(http.StatusOK); err != nil {
		t.Errorf("200 should be nil, got %v", err)
	}
	if err := checkStatus(http.StatusNotFound); !errors.Is(err, ErrNotFound) {
		t.Errorf("404 should be ErrNotFound, got %v", err)
	}
	err := checkStatus(http.StatusBadGateway)
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("502 should wrap ErrNetwork, got %v", err)
	}
	if !isRetryable(err) {
		t.Error("5xx should be retryable")
	}
	if err := checkStatus(http.StatusForbidden); isRetryable(err) {
		t.Error("4xx should not be retryable")
	}
}

func TestCachedGet_ServesSecondReadFromCache(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"value":"fresh"}`))
	}))
	defer server.Close()

	backend, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	c := NewClient(backend, "test:", time.Hour, nil)
	ctx := context.Background()

	var out struct {
		Value string `json:"value"`
	}
	for i := 0; i < 2; i++ {
		if err := c.CachedGet(ctx, server.URL, false, &out); err != nil {
			t.Fatal(err)
		}
		if out.Value != "fresh" {
			t.Fatalf("value = %q", out.Value)
		}
	}
	if hits.Load() != 1 {
		t.Errorf("server hit %d times, want 1", hits.Load())
	}

	// refresh bypasses the cache.
	if err := c.CachedGet(ctx, server.URL, true, &out); err != nil {
		t.Fatal(err)
	}
	if hits.Load() != 2 {
		t.Errorf("server hit %d times after refresh, want 2", hits.Load())
	}
}

func TestGet_SetsHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "pkgscout-test" {
			http.Error(w, "missing user agent", http.StatusForbidden)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := NewClient(cache.NewNullCache(), "test:", 0, map[string]string{"User-Agent": "pkgscout-test"})
	var out map[string]any
	if err := c.Get(context.Background(), server.URL, &out); err != nil {
		t.Fatalf("Get with headers failed: %v", err)
	}
}
