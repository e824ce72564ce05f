package middleware

import (
	"mime"
	"net/http"

	"github.com/utafrali/LibraryGo/pkg/httputil"
)

// ContentTypeJSON rejects POST, PUT and PATCH requests that carry a body in
// anything other than application/json. Body-less commands such as a
// checkout pass through.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
		default:
			next.ServeHTTP(w, r)
			return
		}
		if r.ContentLength == 0 {
			next.ServeHTTP(w, r)
			return
		}

		mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || mediaType != "application/json" {
			httputil.WriteErrorBody(w, r, http.StatusUnsupportedMediaType, httputil.ErrorResponse{
				Code:    "UNSUPPORTED_MEDIA_TYPE",
				Message: "Content-Type must be application/json",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
