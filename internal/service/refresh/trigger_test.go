package refresh

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"FollowFeed/pkg/cache"
)

func TestHTTPTriggerPosts(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := NewHTTPTrigger(srv.URL, time.Second).Trigger(context.Background()); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("expected one call")
	}
}

func TestHTTPTriggerNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if err := NewHTTPTrigger(srv.URL, time.Second).Trigger(context.Background()); err == nil {
		t.Fatalf("expected error for 500")
	}
}

func TestHTTPTriggerLockDedupes(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	mc := cache.NewMemoryCache()
	defer mc.Close()
	a := NewHTTPTrigger(srv.URL, time.Second, WithLock(mc, time.Minute))
	b := NewHTTPTrigger(srv.URL, time.Second, WithLock(mc, time.Minute))

	_ = a.Trigger(context.Background())
	_ = b.Trigger(context.Background())
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("expected a single upstream call, got %d", got)
	}
}

func TestHTTPTriggerReleasesLockOnFailure(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	mc := cache.NewMemoryCache()
	defer mc.Close()
	tr := NewHTTPTrigger(srv.URL, time.Second, WithLock(mc, time.Minute))

	if err := tr.Trigger(context.Background()); err == nil {
		t.Fatalf("first call should fail")
	}
	if err := tr.Trigger(context.Background()); err != nil {
		t.Fatalf("retry after failure should go through: %v", err)
	}
	if atomic.LoadInt32(&hits) != 2 {
		t.Fatalf("expected 2 upstream calls")
	}
}
