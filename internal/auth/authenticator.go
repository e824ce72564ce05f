package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/utafrali/LibraryGo/internal/domain"
	"github.com/utafrali/LibraryGo/internal/repository"
)

// ErrTokenRevoked is returned for a token that was logged out.
var ErrTokenRevoked = errors.New("token has been revoked")

// Authenticator turns bearer tokens into sessions.
type Authenticator struct {
	jwt     *JWTManager
	revoked repository.TokenRevocationStore
	logger  *slog.Logger
}

// NewAuthenticator creates an authenticator. revoked may be nil, in which
// case logout has no effect on validation.
func NewAuthenticator(jwt *JWTManager, revoked repository.TokenRevocationStore, logger *slog.Logger) *Authenticator {
	return &Authenticator{jwt: jwt, revoked: revoked, logger: logger}
}

// Validate verifies the token and rejects it when its ID is on the denylist.
// A denylist lookup failure rejects the token.
func (a *Authenticator) Validate(ctx context.Context, token string) (*Session, error) {
	claims, err := a.jwt.Parse(token)
	if err != nil {
		return nil, err
	}
	if !domain.IsValidRole(claims.Role) {
		return nil, fmt.Errorf("unknown role %q", claims.Role)
	}

	if a.revoked != nil {
		revoked, err := a.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			a.logger.ErrorContext(ctx, "token revocation lookup failed", slog.String("error", err.Error()))
			return nil, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
	}

	return &Session{
		Username:  claims.Subject,
		Role:      claims.Role,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
