package middleware

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/LibraryGo/pkg/logger"
)

// RequestLogger stores a logger enriched with correlation_id, user,
// trace_id and span_id in the request context, where handlers read it with
// logger.FromContext. Mount it after RequestLogging and Tracing; mount it
// again after Auth to pick up the principal.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if p, ok := PrincipalFromContext(ctx); ok {
				ctx = logger.WithUsername(ctx, p.Subject())
			}
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
