package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/utafrali/LibraryGo/pkg/httputil"
)

// Recovery turns a panic in a downstream handler into a generic 500.
func Recovery(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				l.ErrorContext(r.Context(), "panic recovered",
					slog.Any("panic", rec),
					slog.String("stack", string(debug.Stack())),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				)

				httputil.WriteErrorBody(w, r, http.StatusInternalServerError, httputil.ErrorResponse{
					Code:    "INTERNAL_ERROR",
					Message: "an internal error occurred",
				})
			}()

			next.ServeHTTP(w, r)
		})
	}
}
