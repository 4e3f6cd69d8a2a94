package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSourceLimiterBurst(t *testing.T) {
	l := NewSourceLimiter(1, 3)
	defer l.Stop()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if !l.Allow(ctx, "10.0.0.1") {
			t.Fatalf("request %d within burst denied", i)
		}
	}
	if l.Allow(ctx, "10.0.0.1") {
		t.Error("request beyond burst allowed")
	}
}

func TestSourceLimiterIsolatesKeys(t *testing.T) {
	l := NewSourceLimiter(1, 1)
	defer l.Stop()
	ctx := context.Background()

	if !l.Allow(ctx, "10.0.0.1") {
		t.Fatal("first source denied")
	}
	if !l.Allow(ctx, "10.0.0.2") {
		t.Error("second source throttled by the first one's bucket")
	}
}

func TestMiddlewareRejectsWith429(t *testing.T) {
	l := NewSourceLimiter(1, 1)
	defer l.Stop()

	handler := Middleware(l)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", nil)
	req.RemoteAddr = "10.0.0.1:4000"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429", rec.Code)
	}
}

func TestClientKeyStripsPort(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.5:51234"
	if got := clientKey(req); got != "192.168.1.5" {
		t.Errorf("clientKey = %q, want 192.168.1.5", got)
	}

	req.RemoteAddr = "192.168.1.5"
	if got := clientKey(req); got != "192.168.1.5" {
		t.Errorf("clientKey = %q, want bare address passthrough", got)
	}
}
