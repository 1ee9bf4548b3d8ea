package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIPRateLimiterAllowsWithinBurst(t *testing.T) {
	limiter := NewIPRateLimiter(1, time.Hour, 3, time.Hour)

	for i := 0; i < 3; i++ {
		if !limiter.Allow("10.0.0.1") {
			t.Fatalf("expected request %d within burst to be allowed", i+1)
		}
	}

	if limiter.Allow("10.0.0.1") {
		t.Fatal("expected request beyond burst to be denied")
	}

	// A different key has its own budget.
	if !limiter.Allow("10.0.0.2") {
		t.Fatal("expected a fresh key to be allowed")
	}
}

func TestIPRateLimiterExpiresIdleVisitors(t *testing.T) {
	limiter := NewIPRateLimiter(1, time.Hour, 1, time.Minute).(*ipRateLimiter)

	current := time.Now()
	limiter.WithNowFunc(func() time.Time { return current })

	if !limiter.Allow("10.0.0.1") {
		t.Fatal("expected first request to be allowed")
	}
	if limiter.Allow("10.0.0.1") {
		t.Fatal("expected second request to be denied")
	}

	// Advance past the ttl and touch another key so the sweep runs; the idle
	// visitor is dropped and its budget resets.
	current = current.Add(2 * time.Minute)
	limiter.Allow("10.0.0.2")
	if !limiter.Allow("10.0.0.1") {
		t.Fatal("expected request after expiry to be allowed")
	}
}

type staticLimiter bool

func (l staticLimiter) Allow(string) bool { return bool(l) }

func TestRateLimitMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	limited := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	for _, tc := range []struct {
		allow staticLimiter
		want  int
	}{
		{allow: true, want: http.StatusOK},
		{allow: false, want: http.StatusTooManyRequests},
	} {
		handler := RateLimit(tc.allow, limited)(next)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", nil)
		req.RemoteAddr = "192.0.2.10:51234"
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != tc.want {
			t.Fatalf("allow=%v: expected status %d got %d", tc.allow, tc.want, rec.Code)
		}
	}
}

func TestClientIPStripsPort(t *testing.T) {
	for _, tc := range []struct {
		remote string
		want   string
	}{
		{remote: "192.0.2.10:51234", want: "192.0.2.10"},
		{remote: "[2001:db8::1]:443", want: "2001:db8::1"},
		{remote: "no-port-here", want: "no-port-here"},
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tc.remote
		if got := clientIP(req); got != tc.want {
			t.Fatalf("clientIP(%q) = %q, want %q", tc.remote, got, tc.want)
		}
	}
}

func TestIPRateLimiterIndependentKeys(t *testing.T) {
	limiter := NewIPRateLimiter(1, time.Hour, 1, time.Hour)

	for i := 0; i < 5; i++ {
		key := fmt.Sprintf("10.0.1.%d", i)
		if !limiter.Allow(key) {
			t.Fatalf("expected first request for %s to be allowed", key)
		}
		if limiter.Allow(key) {
			t.Fatalf("expected second request for %s to be denied", key)
		}
	}
}
