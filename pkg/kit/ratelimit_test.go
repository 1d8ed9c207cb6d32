package kit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIPRateLimiter_SlidingWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewIPRateLimiter(2, time.Minute)
	l.now = func() time.Time { return now }

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatalf("first two hits must pass")
	}
	if l.Allow("a") {
		t.Fatalf("third hit inside the window must fail")
	}
	if !l.Allow("b") {
		t.Fatalf("keys are independent")
	}

	now = now.Add(61 * time.Second)
	if !l.Allow("a") {
		t.Fatalf("window should have slid")
	}
	if _, ok := l.hits["b"]; ok {
		t.Fatalf("expired key not swept")
	}
}

func TestIPRateLimiter_SweepsOncePerWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewIPRateLimiter(5, time.Minute)
	l.now = func() time.Time { return now }

	l.Allow("first") // sweeps, window starts
	now = now.Add(30 * time.Second)
	l.Allow("stale")
	now = now.Add(31 * time.Second)
	l.Allow("x") // sweeps again, stale still inside its window

	now = now.Add(59 * time.Second)
	l.Allow("y")
	if _, ok := l.hits["stale"]; !ok {
		t.Fatalf("swept before the window passed")
	}

	now = now.Add(time.Second)
	l.Allow("z")
	if _, ok := l.hits["stale"]; ok {
		t.Fatalf("stale key not swept once the window passed")
	}
	if len(l.hits) != 2 {
		t.Fatalf("keys=%d want y, z", len(l.hits))
	}
}

func TestIPRateLimiter_Middleware(t *testing.T) {
	l := NewIPRateLimiter(1, time.Minute)
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	hit := func(xff string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/checkout", nil)
		req.Header.Set("X-Forwarded-For", xff)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	if w := hit("10.0.0.1"); w.Code != http.StatusOK {
		t.Fatalf("first=%d", w.Code)
	}
	w := hit("10.0.0.1, 172.16.0.1")
	if w.Code != http.StatusTooManyRequests || w.Header().Get("Retry-After") != "60" {
		t.Fatalf("second=%d retry=%q", w.Code, w.Header().Get("Retry-After"))
	}
	if w := hit("10.0.0.2"); w.Code != http.StatusOK {
		t.Fatalf("other ip=%d", w.Code)
	}
}

func TestIPRateLimiter_Disabled(t *testing.T) {
	l := NewIPRateLimiter(0, time.Minute)
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	for i := 0; i < 10; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("hit %d=%d", i, w.Code)
		}
	}
}
