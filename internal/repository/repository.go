package repository

import (
	"context"
	"time"

	"github.com/utafrali/LibraryGo/internal/domain"
)

// BookFilter narrows a book listing.
type BookFilter struct {
	// Search matches titles containing the value, case-insensitively.
	Search *string
	// Available restricts to available (true) or checked-out (false) books.
	Available *bool
	// Random orders the result randomly instead of by title.
	Random bool
	// Limit caps the result size when positive.
	Limit int
}

// BookRepository defines book persistence.
type BookRepository interface {
	// Create inserts b and sets its ID.
	Create(ctx context.Context, b *domain.Book) error

	// GetByID returns the book with its rating aggregate.
	GetByID(ctx context.Context, id int64) (*domain.Book, error)

	// List returns books with rating aggregates matching filter.
	List(ctx context.Context, filter BookFilter) ([]domain.Book, error)

	// Count returns the number of books in the catalog.
	Count(ctx context.Context) (int, error)

	// Update overwrites the descriptive fields of b. Availability, checkout
	// dates and cover image are left untouched.
	Update(ctx context.Context, b *domain.Book) error

	// Delete removes the book and, by cascade, its reviews.
	Delete(ctx context.Context, id int64) error

	// CheckOut marks an available book as lent. It fails with Conflict when
	// the book is already checked out.
	CheckOut(ctx context.Context, id int64, at, due time.Time) error

	// Return makes the book available regardless of its prior state.
	Return(ctx context.Context, id int64, at time.Time) (wasAvailable bool, err error)
}

// ReviewRepository defines review persistence.
type ReviewRepository interface {
	// Create inserts r and sets its ID and CreatedAt.
	Create(ctx context.Context, r *domain.Review) error

	// ListByBookID returns a book's reviews, newest first.
	ListByBookID(ctx context.Context, bookID int64) ([]domain.Review, error)
}

// UserRepository defines user persistence.
type UserRepository interface {
	// Create inserts u. A duplicate username or email fails with AlreadyExists.
	Create(ctx context.Context, u *domain.User) error

	// GetByUsername looks a user up case-insensitively.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// ExistsByUsername reports whether the username is taken, ignoring case.
	ExistsByUsername(ctx context.Context, username string) (bool, error)

	// ExistsByEmail reports whether the email is taken, ignoring case.
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// TokenRevocationStore is the logout denylist.
type TokenRevocationStore interface {
	// Revoke denies tokenID until expiresAt.
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error

	// IsRevoked reports whether tokenID has been revoked.
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
