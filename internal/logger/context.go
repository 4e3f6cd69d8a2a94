package logger

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

type ctxKey struct{}

// Middleware attaches a request-scoped logger carrying the chi request
// id. It has to run after chi's RequestID middleware to see one.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := slog.Default()
		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			log = log.With("req_id", reqID)
		}
		ctx := context.WithValue(r.Context(), ctxKey{}, log)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Ctx returns the request-scoped logger, or the default logger when the
// context carries none.
func Ctx(ctx context.Context) *slog.Logger {
	if log, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return log
	}
	return slog.Default()
}
