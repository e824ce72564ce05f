package postgres

import (
	"context"
	"fmt"
	"strconv"

	"github.com/utafrali/LibraryGo/internal/domain"
	"github.com/utafrali/LibraryGo/pkg/database"
	apperrors "github.com/utafrali/LibraryGo/pkg/errors"
)

// ReviewRepository implements review persistence operations using PostgreSQL.
type ReviewRepository struct {
	pool database.DBTX
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(pool database.DBTX) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// Create inserts a new review. A missing parent book yields NotFound.
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	query := `
		INSERT INTO reviews (book_id, message, rating, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	err := r.pool.QueryRow(ctx, query,
		review.BookID,
		review.Message,
		review.Rating,
		review.CreatedAt,
	).Scan(&review.ID)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return apperrors.NotFound("book", strconv.FormatInt(review.BookID, 10))
		}
		return fmt.Errorf("insert review: %w", err)
	}

	return nil
}

// ListByBookID returns all reviews for a book, newest first.
func (r *ReviewRepository) ListByBookID(ctx context.Context, bookID int64) ([]domain.Review, error) {
	query := `
		SELECT id, book_id, message, rating, created_at
		FROM reviews
		WHERE book_id = $1
		ORDER BY created_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, query, bookID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []domain.Review{}
	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(
			&rv.ID,
			&rv.BookID,
			&rv.Message,
			&rv.Rating,
			&rv.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, rv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review rows: %w", err)
	}

	return reviews, nil
}
