package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims are the access token claims. Role and UserType carry the same
// value; UserType is what the browser client reads.
type Claims struct {
	Role     string `json:"role"`
	UserType string `json:"userType"`
	jwt.RegisteredClaims
}

// IssuedToken is a signed token and the instant it stops being valid.
type IssuedToken struct {
	Token     string
	TokenID   string
	ExpiresAt time.Time
}

// JWTManager signs and verifies HS256 access tokens.
type JWTManager struct {
	secret   []byte
	issuer   string
	audience string
	expiry   time.Duration
	now      func() time.Time
}

// NewJWTManager creates a manager. The same expiry is used for the token's
// exp claim and the expiration reported to the client.
func NewJWTManager(secret, issuer, audience string, expiry time.Duration) *JWTManager {
	return &JWTManager{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		expiry:   expiry,
		now:      time.Now,
	}
}

// Issue creates a signed token for username with a fresh token ID.
func (m *JWTManager) Issue(username, role string) (*IssuedToken, error) {
	now := m.now().UTC().Truncate(time.Second)
	expiresAt := now.Add(m.expiry)
	tokenID := uuid.NewString()

	claims := &Claims{
		Role:     role,
		UserType: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Subject:   username,
			Issuer:    m.issuer,
			Audience:  jwt.ClaimStrings{m.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	return &IssuedToken{Token: signed, TokenID: tokenID, ExpiresAt: expiresAt}, nil
}

// Parse verifies the signature, issuer, audience and expiry of a token.
func (m *JWTManager) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(m.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid access token claims")
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, errors.New("access token missing subject or id")
	}

	return claims, nil
}
