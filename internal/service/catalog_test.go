package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/LibraryGo/internal/domain"
	"github.com/utafrali/LibraryGo/internal/event"
	"github.com/utafrali/LibraryGo/internal/repository"
	apperrors "github.com/utafrali/LibraryGo/pkg/errors"
)

var testNow = time.Date(2026, 6, 1, 9, 30, 0, 0, time.UTC)

func newTestCatalogService(books *mockBookRepository, reviews *mockReviewRepository) *CatalogService {
	svc := NewCatalogService(books, reviews, newTestEventProducer(), DefaultCatalogConfig(), newTestLogger())
	svc.now = func() time.Time { return testNow }
	return svc
}

func validCreateInput() *CreateBookInput {
	return &CreateBookInput{
		Title:           "Dune",
		Author:          "Frank Herbert",
		Description:     "Desert planet.",
		CoverImage:      "https://covers.example.com/dune.jpg",
		Publisher:       "Chilton",
		PublicationDate: time.Date(1965, 8, 1, 0, 0, 0, 0, time.UTC),
		Category:        domain.CategoryScienceFiction,
		ISBN:            "9780441013593",
		PageCount:       412,
	}
}

// --- List Tests ---

func TestListBooks_Success(t *testing.T) {
	books := new(mockBookRepository)
	svc := newTestCatalogService(books, new(mockReviewRepository))
	ctx := context.Background()

	books.On("List", ctx, repository.BookFilter{}).Return([]domain.Book{{ID: 1, Title: "Dune"}}, nil)

	result, err := svc.ListBooks(ctx)

	require.NoError(t, err)
	assert.Len(t, result, 1)
	books.AssertExpectations(t)
}

func TestListViews_EmptyIsNotFound(t *testing.T) {
	tests := []struct {
		name    string
		call    func(*CatalogService, context.Context) ([]domain.Book, error)
		message string
	}{
		{"all", (*CatalogService).ListBooks, "No books found."},
		{"featured", (*CatalogService).ListFeatured, "No featured books found."},
		{"checked out", (*CatalogService).ListCheckedOut, "No checked out books found."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			books := new(mockBookRepository)
			svc := newTestCatalogService(books, new(mockReviewRepository))
			ctx := context.Background()

			books.On("List", ctx, mock.AnythingOfType("repository.BookFilter")).Return([]domain.Book{}, nil)

			result, err := tt.call(svc, ctx)

			assert.Nil(t, result)
			assert.ErrorIs(t, err, apperrors.ErrNotFound)
			var appErr *apperrors.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.message, appErr.Message)
		})
	}
}

func TestListFeatured_UsesRandomLimitedFilter(t *testing.T) {
	books := new(mockBookRepository)
	svc := newTestCatalogService(books, new(mockReviewRepository))
	ctx := context.Background()

	books.On("List", ctx, repository.BookFilter{Random: true, Limit: domain.DefaultFeaturedLimit}).
		Return([]domain.Book{{ID: 3}, {ID: 1}}, nil)

	result, err := svc.ListFeatured(ctx)

	require.NoError(t, err)
	assert.Len(t, result, 2)
	books.AssertExpectations(t)
}

func TestListCheckedOut_FiltersUnavailable(t *testing.T) {
	books := new(mockBookRepository)
	svc := newTestCatalogService(books, new(mockReviewRepository))
	ctx := context.Background()

	books.On("List", ctx, mock.MatchedBy(func(f repository.BookFilter) bool {
		return f.Available != nil && !*f.Available && f.Search == nil
	})).Return([]domain.Book{{ID: 7, IsAvailable: false}}, nil)

	result, err := svc.ListCheckedOut(ctx)

	require.NoError(t, err)
	assert.Len(t, result, 1)
	books.AssertExpectations(t)
}

func TestListBooks_RepositoryError(t *testing.T) {
	books := new(mockBookRepository)
	svc := newTestCatalogService(books, new(mockReviewRepository))
	ctx := context.Background()

	books.On("List", ctx, repository.BookFilter{}).Return(nil, errors.New("connection refused"))

	_, err := svc.ListBooks(ctx)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "list books")
}

// --- Search Tests ---

func TestSearch_PassesTrimmedQuery(t *testing.T) {
	books := new(mockBookRepository)
	svc := newTestCatalogService(books, new(mockReviewRepository))
	ctx := context.Background()

	books.On("List", ctx, mock.MatchedBy(func(f repository.BookFilter) bool {
		return f.Search != nil && *f.Search == "Harry"
	})).Return([]domain.Book{{ID: 2, Title: "Harry Potter"}}, nil)

	result, err := svc.Search(ctx, "  Harry ")

	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "Harry Potter", result[0].Title)
}

func TestSearch_BlankQueryMatchesAll(t *testing.T) {
	books := new(mockBookRepository)
	svc := newTestCatalogService(books, new(mockReviewRepository))
	ctx := context.Background()

	books.On("List", ctx, repository.BookFilter{}).Return([]domain.Book{{ID: 1}, {ID: 2}}, nil)

	result, err := svc.Search(ctx, "   ")

	require.NoError(t, err)
	assert.Len(t, result, 2)
}

func TestSearch_NoMatchIsEmptyList(t *testing.T) {
	books := new(mockBookRepository)
	svc := newTestCatalogService(books, new(mockReviewRepository))
	ctx := context.Background()

	books.On("List", ctx, mock.AnythingOfType("repository.BookFilter")).Return(nil, nil)

	result, err := svc.Search(ctx, "zzz")

	require.NoError(t, err)
	assert.NotNil(t, result)
	assert.Empty(t, result)
}

// --- Details Tests ---

func TestGetDetails_Success(t *testing.T) {
	books := new(mockBookRepository)
	reviews := new(mockReviewRepository)
	svc := newTestCatalogService(books, reviews)
	ctx := context.Background()

	avg := 4.0
	books.On("GetByID", ctx, int64(5)).Return(&domain.Book{ID: 5, Title: "Emma", AverageRating: &avg, ReviewCount: 3}, nil)
	reviews.On("ListByBookID", ctx, int64(5)).Return([]domain.Review{{ID: 9, BookID: 5, Rating: 4}}, nil)

	detail, err := svc.GetDetails(ctx, 5)

	require.NoError(t, err)
	assert.Equal(t, "Emma", detail.Title)
	assert.Equal(t, 4.0, *detail.AverageRating)
	assert.Len(t, detail.Reviews, 1)
	books.AssertExpectations(t)
	reviews.AssertExpectations(t)
}

func TestGetDetails_NotFound(t *testing.T) {
	books := new(mockBookRepository)
	reviews := new(mockReviewRepository)
	svc := newTestCatalogService(books, reviews)
	ctx := context.Background()

	books.On("GetByID", ctx, int64(404)).Return(nil, apperrors.NotFound("book", "404"))

	_, err := svc.GetDetails(ctx, 404)

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	reviews.AssertNotCalled(t, "ListByBookID", mock.Anything, mock.Anything)
}

// --- Create Tests ---

func TestCreateBook_DefaultsToAvailable(t *testing.T) {
	books := new(mockBookRepository)
	svc := newTestCatalogService(books, new(mockReviewRepository))
	ctx := context.Background()

	books.On("Create", ctx, mock.AnythingOfType("*domain.Book")).
		Run(func(args mock.Arguments) { args.Get(1).(*domain.Book).ID = 11 }).
		Return(nil)

	book, err := svc.CreateBook(ctx, validCreateInput())

	require.NoError(t, err)
	assert.Equal(t, int64(11), book.ID)
	assert.True(t, book.IsAvailable)
	assert.Nil(t, book.CheckedOutDate)
	assert.Nil(t, book.ReturnDate)
	assert.Equal(t, "Frank Herbert", book.Author)
	assert.Equal(t, testNow, book.CreatedAt)
	assert.True(t, book.Consistent())
	books.AssertExpectations(t)
}

func TestCreateBook_UnavailableIsStampedCheckedOut(t *testing.T) {
	books := new(mockBookRepository)
	svc := newTestCatalogService(books, new(mockReviewRepository))
	ctx := context.Background()

	books.On("Create", ctx, mock.AnythingOfType("*domain.Book")).Return(nil)

	input := validCreateInput()
	input.IsAvailable = boolPtr(false)
	book, err := svc.CreateBook(ctx, input)

	require.NoError(t, err)
	assert.False(t, book.IsAvailable)
	require.NotNil(t, book.CheckedOutDate)
	require.NotNil(t, book.ReturnDate)
	assert.Equal(t, testNow, *book.CheckedOutDate)
	assert.Equal(t, testNow.Add(5*24*time.Hour), *book.ReturnDate)
	assert.True(t, book.Consistent())
}

func TestCreateBook_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateBookInput)
	}{
		{"empty title", func(in *CreateBookInput) { in.Title = "  " }},
		{"title too long", func(in *CreateBookInput) { in.Title = strings.Repeat("x", 201) }},
		{"empty author", func(in *CreateBookInput) { in.Author = "" }},
		{"empty publisher", func(in *CreateBookInput) { in.Publisher = "" }},
		{"empty isbn", func(in *CreateBookInput) { in.ISBN = "" }},
		{"isbn too long", func(in *CreateBookInput) { in.ISBN = strings.Repeat("9", 21) }},
		{"description too long", func(in *CreateBookInput) { in.Description = strings.Repeat("d", 501) }},
		{"cover too long", func(in *CreateBookInput) { in.CoverImage = strings.Repeat("c", 251) }},
		{"unknown category", func(in *CreateBookInput) { in.Category = "Poetry" }},
		{"negative pages", func(in *CreateBookInput) { in.PageCount = -1 }},
		{"missing publication date", func(in *CreateBookInput) { in.PublicationDate = time.Time{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			books := new(mockBookRepository)
			svc := newTestCatalogService(books, new(mockReviewRepository))

			input := validCreateInput()
			tt.mutate(input)
			book, err := svc.CreateBook(context.Background(), input)

			assert.Nil(t, book)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			books.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestCreateBook_PublishFailureDoesNotFail(t *testing.T) {
	books := new(mockBookRepository)
	svc := NewCatalogService(books, new(mockReviewRepository),
		event.NewProducer(failingPublisher{}, newTestLogger()), DefaultCatalogConfig(), newTestLogger())
	ctx := context.Background()

	books.On("Create", ctx, mock.AnythingOfType("*domain.Book")).Return(nil)

	book, err := svc.CreateBook(ctx, validCreateInput())

	require.NoError(t, err)
	assert.NotNil(t, book)
}

// --- Update / Delete Tests ---

func TestUpdateBook_OverwritesDescriptiveFields(t *testing.T) {
	books := new(mockBookRepository)
	svc := newTestCatalogService(books, new(mockReviewRepository))
	ctx := context.Background()

	books.On("Update", ctx, mock.MatchedBy(func(b *domain.Book) bool {
		return b.ID == 8 && b.Title == "Dune Messiah" && b.PageCount == 256 && b.UpdatedAt.Equal(testNow)
	})).Return(nil)

	err := svc.UpdateBook(ctx, 8, &UpdateBookInput{
		Title:           "Dune Messiah",
		Author:          "Frank Herbert",
		Publisher:       "Putnam",
		PublicationDate: time.Date(1969, 1, 1, 0, 0, 0, 0, time.UTC),
		Category:        domain.CategoryScienceFiction,
		ISBN:            "9780593098233",
		PageCount:       256,
	})

	require.NoError(t, err)
	books.AssertExpectations(t)
}

func TestUpdateBook_NotFound(t *testing.T) {
	books := new(mockBookRepository)
	svc := newTestCatalogService(books, new(mockReviewRepository))
	ctx := context.Background()

	books.On("Update", ctx, mock.AnythingOfType("*domain.Book")).Return(apperrors.NotFound("book", "8"))

	in := validCreateInput()
	err := svc.UpdateBook(ctx, 8, &UpdateBookInput{
		Title: in.Title, Author: in.Author, Publisher: in.Publisher, PublicationDate: in.PublicationDate,
		Category: in.Category, ISBN: in.ISBN, PageCount: in.PageCount,
	})

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDeleteBook(t *testing.T) {
	books := new(mockBookRepository)
	svc := newTestCatalogService(books, new(mockReviewRepository))
	ctx := context.Background()

	books.On("Delete", ctx, int64(3)).Return(nil)
	books.On("Delete", ctx, int64(4)).Return(apperrors.NotFound("book", "4"))

	assert.NoError(t, svc.DeleteBook(ctx, 3))
	assert.ErrorIs(t, svc.DeleteBook(ctx, 4), apperrors.ErrNotFound)
	books.AssertExpectations(t)
}

// --- Checkout / Return Tests ---

func TestCheckOut_SetsDueDate(t *testing.T) {
	books := new(mockBookRepository)
	svc := newTestCatalogService(books, new(mockReviewRepository))
	ctx := context.Background()

	due := testNow.Add(domain.DefaultCheckoutPeriod)
	books.On("CheckOut", ctx, int64(2), testNow, due).Return(nil)
	lent := &domain.Book{ID: 2, Title: "Rebecca"}
	lent.CheckOut(testNow, domain.DefaultCheckoutPeriod)
	books.On("GetByID", ctx, int64(2)).Return(lent, nil)

	book, err := svc.CheckOut(ctx, 2)

	require.NoError(t, err)
	assert.False(t, book.IsAvailable)
	assert.Equal(t, book.CheckedOutDate.Add(5*24*time.Hour), *book.ReturnDate)
	books.AssertExpectations(t)
}

func TestCheckOut_CustomPeriod(t *testing.T) {
	books := new(mockBookRepository)
	svc := NewCatalogService(books, new(mockReviewRepository), newTestEventProducer(),
		CatalogConfig{CheckoutPeriod: 14 * 24 * time.Hour}, newTestLogger())
	svc.now = func() time.Time { return testNow }
	ctx := context.Background()

	books.On("CheckOut", ctx, int64(2), testNow, testNow.Add(14*24*time.Hour)).Return(nil)
	books.On("GetByID", ctx, int64(2)).Return(&domain.Book{ID: 2}, nil)

	_, err := svc.CheckOut(ctx, 2)

	require.NoError(t, err)
	books.AssertExpectations(t)
}

func TestCheckOut_Unavailable(t *testing.T) {
	books := new(mockBookRepository)
	svc := newTestCatalogService(books, new(mockReviewRepository))
	ctx := context.Background()

	books.On("CheckOut", ctx, int64(2), mock.Anything, mock.Anything).
		Return(apperrors.Conflict("Book not available for checkout."))

	book, err := svc.CheckOut(ctx, 2)

	assert.Nil(t, book)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	books.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestReturnBook_Idempotent(t *testing.T) {
	for _, wasAvailable := range []bool{false, true} {
		books := new(mockBookRepository)
		svc := newTestCatalogService(books, new(mockReviewRepository))
		ctx := context.Background()

		books.On("Return", ctx, int64(6), testNow).Return(wasAvailable, nil)
		books.On("GetByID", ctx, int64(6)).Return(&domain.Book{ID: 6, IsAvailable: true}, nil)

		book, err := svc.ReturnBook(ctx, 6)

		require.NoError(t, err)
		assert.True(t, book.IsAvailable)
		assert.True(t, book.Consistent())
		books.AssertExpectations(t)
	}
}

func TestReturnBook_NotFound(t *testing.T) {
	books := new(mockBookRepository)
	svc := newTestCatalogService(books, new(mockReviewRepository))
	ctx := context.Background()

	books.On("Return", ctx, int64(6), testNow).Return(false, apperrors.NotFound("book", "6"))

	_, err := svc.ReturnBook(ctx, 6)

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

// --- Review Tests ---

func TestAddReview_Success(t *testing.T) {
	reviews := new(mockReviewRepository)
	svc := newTestCatalogService(new(mockBookRepository), reviews)
	ctx := context.Background()

	reviews.On("Create", ctx, mock.MatchedBy(func(r *domain.Review) bool {
		return r.BookID == 4 && r.Rating == 5 && r.CreatedAt.Equal(testNow)
	})).Run(func(args mock.Arguments) { args.Get(1).(*domain.Review).ID = 100 }).Return(nil)

	review, err := svc.AddReview(ctx, &AddReviewInput{BookID: 4, Message: "Loved it", Rating: 5})

	require.NoError(t, err)
	assert.Equal(t, int64(100), review.ID)
	assert.Equal(t, "Loved it", review.Message)
	reviews.AssertExpectations(t)
}

func TestAddReview_Validation(t *testing.T) {
	tests := []struct {
		name  string
		input AddReviewInput
	}{
		{"rating too low", AddReviewInput{BookID: 1, Rating: 0}},
		{"rating too high", AddReviewInput{BookID: 1, Rating: 6}},
		{"message too long", AddReviewInput{BookID: 1, Rating: 3, Message: strings.Repeat("m", 1001)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reviews := new(mockReviewRepository)
			svc := newTestCatalogService(new(mockBookRepository), reviews)

			review, err := svc.AddReview(context.Background(), &tt.input)

			assert.Nil(t, review)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			reviews.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestAddReview_BookMissing(t *testing.T) {
	reviews := new(mockReviewRepository)
	svc := newTestCatalogService(new(mockBookRepository), reviews)
	ctx := context.Background()

	reviews.On("Create", ctx, mock.AnythingOfType("*domain.Review")).Return(apperrors.NotFound("book", "99"))

	_, err := svc.AddReview(ctx, &AddReviewInput{BookID: 99, Rating: 4})

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
