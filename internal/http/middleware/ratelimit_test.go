package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterRefills(t *testing.T) {
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 2)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatalf("expected burst of 2")
	}
	if rl.Allow("a") {
		t.Fatalf("expected third call to be limited")
	}
	if !rl.Allow("b") {
		t.Fatalf("expected keys to be independent")
	}
	now = now.Add(time.Second)
	if !rl.Allow("a") {
		t.Fatalf("expected refill after one second")
	}

	now = now.Add(time.Hour)
	if removed := rl.Sweep(time.Minute); removed != 2 {
		t.Fatalf("expected 2 idle keys swept, got %d", removed)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := NewRateLimiter(0.001, 1)
	handler := RateLimit(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	for i, want := range []int{http.StatusCreated, http.StatusTooManyRequests} {
		req := httptest.NewRequest(http.MethodPost, "/v1/sessions", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Fatalf("request %d: expected status %d, got %d", i, want, rec.Code)
		}
	}
}
