package limit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// fixedClock returns a func() time.Time that reads *t.
func fixedClock(t *time.Time) func() time.Time { return func() time.Time { return *t } }

func TestAllow_BurstThenLimited(t *testing.T) {
	now := time.Unix(1700000000, 0)
	l := New(1, 2, time.Hour)
	l.now = fixedClock(&now)

	for i := 0; i < 2; i++ {
		if ok, _ := l.Allow("k"); !ok {
			t.Fatalf("request %d: limited within burst", i+1)
		}
	}
	ok, wait := l.Allow("k")
	if ok {
		t.Fatal("third request: allowed, want limited")
	}
	if wait != time.Second {
		t.Errorf("wait: got %v, want 1s", wait)
	}

	// Other keys have their own bucket.
	if ok, _ := l.Allow("other"); !ok {
		t.Error("other key: limited, want allowed")
	}

	now = now.Add(time.Second)
	if ok, _ := l.Allow("k"); !ok {
		t.Error("after refill: limited, want allowed")
	}
}

func TestAllow_CancelledReservationKeepsToken(t *testing.T) {
	now := time.Unix(1700000000, 0)
	l := New(1, 1, time.Hour)
	l.now = fixedClock(&now)

	l.Allow("k")
	// Repeated rejections must not push the refill further out.
	for i := 0; i < 5; i++ {
		if ok, wait := l.Allow("k"); ok || wait != time.Second {
			t.Fatalf("rejection %d: ok=%v wait=%v", i, ok, wait)
		}
	}
	now = now.Add(time.Second)
	if ok, _ := l.Allow("k"); !ok {
		t.Error("after 1s: limited, want allowed")
	}
}

func TestAllow_Disabled(t *testing.T) {
	l := New(0, 0, time.Hour)
	for i := 0; i < 100; i++ {
		if ok, _ := l.Allow("k"); !ok {
			t.Fatal("disabled limiter rejected a request")
		}
	}
	if l.Count() != 0 {
		t.Errorf("Count: got %d, want 0", l.Count())
	}
}

func TestEvict(t *testing.T) {
	base := time.Unix(1700000000, 0)
	now := base
	l := New(10, 10, 5*time.Minute)
	l.now = fixedClock(&now)

	l.Allow("old")
	now = base.Add(4 * time.Minute)
	l.Allow("new")

	if n := l.Evict(base.Add(6 * time.Minute)); n != 1 {
		t.Errorf("Evict: got %d removed, want 1", n)
	}
	if l.Count() != 1 {
		t.Errorf("Count after evict: got %d, want 1", l.Count())
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	l := New(10, 10, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestMiddleware(t *testing.T) {
	now := time.Unix(1700000000, 0)
	l := New(0.5, 1, time.Hour)
	l.now = fixedClock(&now)

	h := l.Middleware("x-api-key")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	call := func(key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/patients", nil)
		if key != "" {
			req.Header.Set("x-api-key", key)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	if rr := call("a"); rr.Code != http.StatusOK {
		t.Fatalf("first: got %d, want 200", rr.Code)
	}
	rr := call("a")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second: got %d, want 429", rr.Code)
	}
	if ra := rr.Header().Get("Retry-After"); ra != "2" {
		t.Errorf("Retry-After: got %q, want 2", ra)
	}

	// Keyless requests are bucketed by remote IP (httptest uses 192.0.2.1).
	if rr := call(""); rr.Code != http.StatusOK {
		t.Errorf("keyless first: got %d, want 200", rr.Code)
	}
	if rr := call(""); rr.Code != http.StatusTooManyRequests {
		t.Errorf("keyless second: got %d, want 429", rr.Code)
	}
}
