package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/LibraryGo/internal/domain"
	"github.com/utafrali/LibraryGo/pkg/database"
	apperrors "github.com/utafrali/LibraryGo/pkg/errors"
)

func TestReviewRepository_Create(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewReviewRepository(mock)

	rv := &domain.Review{BookID: 7, Message: "Loved it", Rating: 5, CreatedAt: testNow}
	mock.ExpectQuery("INSERT INTO reviews").
		WithArgs(int64(7), "Loved it", 5, testNow).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(3)))

	require.NoError(t, repo.Create(context.Background(), rv))
	assert.Equal(t, int64(3), rv.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_Create_MissingBook(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewReviewRepository(mock)

	mock.ExpectQuery("INSERT INTO reviews").WithArgs(anyArgs(4)...).
		WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "reviews_book_id_fkey"})

	err = repo.Create(context.Background(), &domain.Review{BookID: 404, Rating: 2, CreatedAt: testNow})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestReviewRepository_ListByBookID(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewReviewRepository(mock)

	older := testNow.Add(-time.Hour)
	mock.ExpectQuery("SELECT id, book_id, message, rating, created_at FROM reviews WHERE book_id = \\$1 ORDER BY created_at DESC").
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "book_id", "message", "rating", "created_at"}).
			AddRow(int64(2), int64(7), "second", 3, testNow).
			AddRow(int64(1), int64(7), "first", 5, older))

	reviews, err := repo.ListByBookID(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.Equal(t, "second", reviews[0].Message)
	assert.Equal(t, 5, reviews[1].Rating)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_ListByBookID_Empty(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewReviewRepository(mock)

	mock.ExpectQuery("FROM reviews").
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "book_id", "message", "rating", "created_at"}))

	reviews, err := repo.ListByBookID(context.Background(), 7)
	require.NoError(t, err)
	assert.NotNil(t, reviews)
	assert.Empty(t, reviews)
}
