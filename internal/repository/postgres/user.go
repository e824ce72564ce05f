package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/LibraryGo/internal/domain"
	"github.com/utafrali/LibraryGo/pkg/database"
	apperrors "github.com/utafrali/LibraryGo/pkg/errors"
)

// UserRepository implements repository.UserRepository using PostgreSQL.
// Usernames and emails are unique ignoring case through lower() indexes.
type UserRepository struct {
	pool database.DBTX
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(pool database.DBTX) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (id, username, email, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		u.ID,
		u.Username,
		u.Email,
		u.PasswordHash,
		u.Role,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			if strings.Contains(database.ConstraintName(err), "email") {
				return apperrors.AlreadyExists("user", "email", u.Email)
			}
			return apperrors.AlreadyExists("user", "username", u.Username)
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetByUsername retrieves a user by username, ignoring case.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `
		SELECT id, username, email, password_hash, role, created_at, updated_at
		FROM users
		WHERE lower(username) = lower($1)`

	var u domain.User
	err := r.pool.QueryRow(ctx, query, username).Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFoundMessage("user not found")
		}
		return nil, fmt.Errorf("get user by username: %w", err)
	}

	return &u, nil
}

// ExistsByUsername reports whether a user with this username exists.
func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE lower(username) = lower($1))`, username)
}

// ExistsByEmail reports whether a user with this email exists.
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE lower(email) = lower($1))`, email)
}

func (r *UserRepository) exists(ctx context.Context, query, value string) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, query, value).Scan(&exists); err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return exists, nil
}
