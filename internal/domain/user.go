package domain

import (
	"strings"
	"time"
)

// Role constants define the allowed user roles.
const (
	RoleCustomer  = "Customer"
	RoleLibrarian = "Librarian"
)

// User is a registered account. The role is fixed at registration.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"-"`
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token      string    `json:"token"`
	Expiration time.Time `json:"expiration"`
}

// RoleFromUserType maps the registration userType to a role. Only
// "Librarian" (any case) grants the librarian role.
func RoleFromUserType(userType string) string {
	if strings.EqualFold(strings.TrimSpace(userType), RoleLibrarian) {
		return RoleLibrarian
	}
	return RoleCustomer
}

// IsValidRole checks whether role is a known role.
func IsValidRole(role string) bool {
	return role == RoleCustomer || role == RoleLibrarian
}
