package logger

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
)

func TestCtxFallsBackToDefault(t *testing.T) {
	if got := Ctx(context.Background()); got != slog.Default() {
		t.Error("expected default logger for a bare context")
	}
}

func TestMiddlewareAttachesRequestLogger(t *testing.T) {
	var got *slog.Logger
	h := middleware.RequestID(Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = Ctx(r.Context())
	})))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got == nil || got == slog.Default() {
		t.Error("expected a request-scoped logger with req_id attached")
	}
}
