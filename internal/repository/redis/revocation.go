package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "library:revoked:"

// RevocationStore keeps logged-out token IDs until the tokens would have
// expired anyway, after which Redis forgets them.
type RevocationStore struct {
	client *goredis.Client
	now    func() time.Time
}

// NewRevocationStore creates a Redis-backed token denylist.
func NewRevocationStore(client *goredis.Client) *RevocationStore {
	return &RevocationStore{client: client, now: time.Now}
}

func revokedKey(tokenID string) string {
	return revokedKeyPrefix + tokenID
}

// Revoke denies tokenID until expiresAt. A token that has already expired
// needs no entry.
func (s *RevocationStore) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if tokenID == "" {
		return errors.New("revoke: empty token id")
	}
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, revokedKey(tokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether tokenID is on the denylist.
func (s *RevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, revokedKey(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("check token revocation: %w", err)
	}
	return n > 0, nil
}
