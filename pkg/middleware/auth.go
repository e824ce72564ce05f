package middleware

import (
	"context"
	"net/http"
	"strings"

	apperrors "github.com/utafrali/LibraryGo/pkg/errors"
	"github.com/utafrali/LibraryGo/pkg/httputil"
)

type contextKeyType string

const principalKey contextKeyType = "principal"

// Principal is the authenticated identity attached to a request after its
// bearer token has been validated. Implementations must tolerate a nil
// receiver.
type Principal interface {
	Subject() string
	HasRole(role string) bool
}

// TokenValidator turns a raw bearer token into a principal or fails.
type TokenValidator[P Principal] func(ctx context.Context, token string) (P, error)

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the request's principal, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	if !ok || p == nil || p.Subject() == "" {
		return nil, false
	}
	return p, true
}

// PrincipalAs returns the request's principal as its concrete type.
func PrincipalAs[P Principal](ctx context.Context) (P, bool) {
	var zero P
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return zero, false
	}
	typed, ok := p.(P)
	return typed, ok
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Allow is the role guard: it fails with Unauthorized when there is no
// principal and with Forbidden when the principal holds none of roles.
// An empty roles list admits any authenticated principal.
func Allow(p Principal, roles ...string) error {
	if p == nil || p.Subject() == "" {
		return apperrors.Unauthorized("authentication required")
	}
	if len(roles) == 0 {
		return nil
	}
	for _, role := range roles {
		if p.HasRole(role) {
			return nil
		}
	}
	return apperrors.Forbidden("insufficient permissions")
}

// Auth validates the bearer token on every request and stores the
// resulting principal in the request context.
func Auth[P Principal](validate TokenValidator[P]) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				writeAuthError(w, r, "missing authorization header")
				return
			}
			token, ok := BearerToken(r)
			if !ok {
				writeAuthError(w, r, "invalid authorization header format")
				return
			}

			principal, err := validate(r.Context(), token)
			if err != nil {
				writeAuthError(w, r, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// RequireRole rejects requests whose principal does not hold one of roles.
// It must be mounted after Auth.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, _ := PrincipalFromContext(r.Context())
			if err := Allow(principal, roles...); err != nil {
				httputil.WriteError(w, r, err, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeAuthError(w http.ResponseWriter, r *http.Request, message string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="library"`)
	httputil.WriteErrorBody(w, r, http.StatusUnauthorized, httputil.ErrorResponse{
		Code:    "UNAUTHORIZED",
		Message: message,
	})
}
