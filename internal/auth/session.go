package auth

import "time"

// Session is the identity behind a validated bearer token.
type Session struct {
	Username  string
	Role      string
	TokenID   string
	ExpiresAt time.Time
}

// Subject returns the username, or "" for a nil session.
func (s *Session) Subject() string {
	if s == nil {
		return ""
	}
	return s.Username
}

// HasRole reports whether the session holds role.
func (s *Session) HasRole(role string) bool {
	return s != nil && s.Role == role
}
