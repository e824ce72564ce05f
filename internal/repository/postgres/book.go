package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/utafrali/LibraryGo/internal/domain"
	"github.com/utafrali/LibraryGo/internal/repository"
	"github.com/utafrali/LibraryGo/pkg/database"
	apperrors "github.com/utafrali/LibraryGo/pkg/errors"
)

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// bookColumns are selected by every book read, followed by the rating aggregate.
var bookColumns = []string{
	"b.id", "b.title", "b.author", "b.description", "b.cover_image", "b.publisher",
	"b.publication_date", "b.category", "b.isbn", "b.page_count", "b.is_available",
	"b.checked_out_date", "b.return_date", "b.created_at", "b.updated_at",
	"AVG(r.rating)::float8 AS average_rating", "COUNT(r.id) AS review_count",
}

// BookRepository implements repository.BookRepository using PostgreSQL.
type BookRepository struct {
	pool database.DBTX
}

// NewBookRepository creates a new PostgreSQL-backed book repository.
func NewBookRepository(pool database.DBTX) *BookRepository {
	return &BookRepository{pool: pool}
}

func selectBooks() sq.SelectBuilder {
	return qb.Select(bookColumns...).
		From("books b").
		LeftJoin("reviews r ON r.book_id = b.id").
		GroupBy("b.id")
}

// escapeLike escapes the LIKE metacharacters so s matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// Create inserts a new book and fills in its ID and timestamps.
func (r *BookRepository) Create(ctx context.Context, b *domain.Book) (err error) {
	query := `
		INSERT INTO books (title, author, description, cover_image, publisher, publication_date,
		                   category, isbn, page_count, is_available, checked_out_date, return_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at`

	ctx, end := database.TraceQuery(ctx, "books.Create", query)
	defer func() { end(err) }()

	err = r.pool.QueryRow(ctx, query,
		b.Title,
		b.Author,
		b.Description,
		b.CoverImage,
		b.Publisher,
		b.PublicationDate,
		b.Category,
		b.ISBN,
		b.PageCount,
		b.IsAvailable,
		b.CheckedOutDate,
		b.ReturnDate,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if database.SQLState(err) == database.CodeCheckViolation {
			return apperrors.InvalidInput("book violates constraint " + database.ConstraintName(err))
		}
		return fmt.Errorf("insert book: %w", err)
	}

	return nil
}

// GetByID retrieves a book with its rating aggregate.
func (r *BookRepository) GetByID(ctx context.Context, id int64) (_ *domain.Book, err error) {
	query, args, err := selectBooks().Where(sq.Eq{"b.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get book query: %w", err)
	}

	ctx, end := database.TraceQuery(ctx, "books.GetByID", query)
	defer func() { end(err) }()

	b, err := scanBook(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("book", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("get book %d: %w", id, err)
	}

	return b, nil
}

// List returns books matching filter, ordered by title unless Random is set.
func (r *BookRepository) List(ctx context.Context, filter repository.BookFilter) (_ []domain.Book, err error) {
	q := selectBooks()

	if filter.Search != nil && *filter.Search != "" {
		q = q.Where(sq.ILike{"b.title": "%" + escapeLike(*filter.Search) + "%"})
	}
	if filter.Available != nil {
		q = q.Where(sq.Eq{"b.is_available": *filter.Available})
	}
	if filter.Random {
		q = q.OrderBy("random()")
	} else {
		q = q.OrderBy("b.title", "b.id")
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list books query: %w", err)
	}

	ctx, end := database.TraceQuery(ctx, "books.List", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	books := []domain.Book{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book row: %w", err)
		}
		books = append(books, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate book rows: %w", err)
	}

	return books, nil
}

// Count returns the number of books in the catalog.
func (r *BookRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM books`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count books: %w", err)
	}
	return n, nil
}

// Update overwrites the descriptive fields of a book.
func (r *BookRepository) Update(ctx context.Context, b *domain.Book) (err error) {
	query := `
		UPDATE books
		SET title = $2, author = $3, description = $4, publisher = $5, publication_date = $6,
		    category = $7, isbn = $8, page_count = $9, updated_at = $10
		WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "books.Update", query)
	defer func() { end(err) }()

	tag, err := r.pool.Exec(ctx, query,
		b.ID,
		b.Title,
		b.Author,
		b.Description,
		b.Publisher,
		b.PublicationDate,
		b.Category,
		b.ISBN,
		b.PageCount,
		b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update book %d: %w", b.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("book", strconv.FormatInt(b.ID, 10))
	}

	return nil
}

// Delete removes a book. Its reviews go with it through ON DELETE CASCADE.
func (r *BookRepository) Delete(ctx context.Context, id int64) (err error) {
	query := `DELETE FROM books WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "books.Delete", query)
	defer func() { end(err) }()

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete book %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("book", strconv.FormatInt(id, 10))
	}

	return nil
}

// CheckOut lends an available book in a single conditional update, so two
// concurrent checkouts of the same book cannot both succeed.
func (r *BookRepository) CheckOut(ctx context.Context, id int64, at, due time.Time) (err error) {
	query := `
		UPDATE books
		SET is_available = FALSE, checked_out_date = $2, return_date = $3, updated_at = $2
		WHERE id = $1 AND is_available = TRUE`

	ctx, end := database.TraceQuery(ctx, "books.CheckOut", query)
	defer func() { end(err) }()

	tag, err := r.pool.Exec(ctx, query, id, at, due)
	if err != nil {
		return fmt.Errorf("check out book %d: %w", id, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM books WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check book %d exists: %w", id, err)
	}
	if !exists {
		return apperrors.NotFound("book", strconv.FormatInt(id, 10))
	}
	return apperrors.Conflict("Book not available for checkout.")
}

// Return makes a book available and clears its checkout dates whatever its
// prior state, reporting whether it was already available.
func (r *BookRepository) Return(ctx context.Context, id int64, at time.Time) (wasAvailable bool, err error) {
	query := `
		UPDATE books b
		SET is_available = TRUE, checked_out_date = NULL, return_date = NULL, updated_at = $2
		FROM (SELECT id, is_available AS was_available FROM books WHERE id = $1 FOR UPDATE) prev
		WHERE b.id = prev.id
		RETURNING prev.was_available`

	ctx, end := database.TraceQuery(ctx, "books.Return", query)
	defer func() { end(err) }()

	if err = r.pool.QueryRow(ctx, query, id, at).Scan(&wasAvailable); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, apperrors.NotFound("book", strconv.FormatInt(id, 10))
		}
		return false, fmt.Errorf("return book %d: %w", id, err)
	}

	return wasAvailable, nil
}

func scanBook(row pgx.Row) (*domain.Book, error) {
	var (
		b   domain.Book
		avg *float64
	)
	if err := row.Scan(
		&b.ID,
		&b.Title,
		&b.Author,
		&b.Description,
		&b.CoverImage,
		&b.Publisher,
		&b.PublicationDate,
		&b.Category,
		&b.ISBN,
		&b.PageCount,
		&b.IsAvailable,
		&b.CheckedOutDate,
		&b.ReturnDate,
		&b.CreatedAt,
		&b.UpdatedAt,
		&avg,
		&b.ReviewCount,
	); err != nil {
		return nil, err
	}
	b.AverageRating = avg
	return &b, nil
}
