package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestLimiter(t *testing.T, rpm int) (*Limiter, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	rl := NewLimiter(Config{RequestsPerMinute: rpm, Now: clock.Now})
	t.Cleanup(rl.Stop)
	return rl, clock
}

func TestLimiter_AllowWithinWindow(t *testing.T) {
	rl, clock := newTestLimiter(t, 3)

	for i := 0; i < 3; i++ {
		if !rl.Allow("a") {
			t.Fatalf("request %d rejected", i+1)
		}
	}
	if rl.Allow("a") {
		t.Fatal("fourth request allowed")
	}
	if !rl.Allow("b") {
		t.Fatal("other client rejected")
	}

	clock.Advance(time.Minute)
	if !rl.Allow("a") {
		t.Fatal("request after window rejected")
	}
	if got := rl.GetMetrics().TotalHits; got != 1 {
		t.Fatalf("hits = %d, want 1", got)
	}
}

// A steady trickle must not keep the window open forever.
func TestLimiter_WindowDoesNotSlide(t *testing.T) {
	rl, clock := newTestLimiter(t, 2)

	rl.Allow("a")
	clock.Advance(40 * time.Second)
	rl.Allow("a")
	clock.Advance(30 * time.Second)
	if !rl.Allow("a") {
		t.Fatal("request in a new window rejected")
	}
}

func TestLimiter_RetryAfter(t *testing.T) {
	rl, clock := newTestLimiter(t, 1)

	if got := rl.RetryAfter("a"); got != 0 {
		t.Fatalf("unknown client retry = %d", got)
	}
	rl.Allow("a")
	clock.Advance(15500 * time.Millisecond)
	if got := rl.RetryAfter("a"); got != 45 {
		t.Fatalf("retry = %d, want 45", got)
	}
}

func TestLimiter_CleanupStaleEntries(t *testing.T) {
	rl, clock := newTestLimiter(t, 5)

	rl.Allow("old")
	clock.Advance(11 * time.Minute)
	rl.Allow("new")

	if removed := rl.cleanupStaleEntries(); removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if got := rl.ActiveClients(); got != 1 {
		t.Fatalf("active = %d, want 1", got)
	}
}

func TestLimiter_Middleware(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	handler := rl.Middleware(
		func(*http.Request) string { return "client" },
		nil,
	)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("first status = %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "60" {
		t.Fatalf("Retry-After = %q", rr.Header().Get("Retry-After"))
	}
}

func TestLimiter_StopTwice(t *testing.T) {
	rl := NewLimiter(Config{})
	rl.Stop()
	rl.Stop()
}
