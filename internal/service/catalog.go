package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/utafrali/LibraryGo/internal/domain"
	"github.com/utafrali/LibraryGo/internal/event"
	"github.com/utafrali/LibraryGo/internal/repository"
	apperrors "github.com/utafrali/LibraryGo/pkg/errors"
)

// Field limits for books.
const (
	maxTitleLength       = 200
	maxAuthorLength      = 100
	maxDescriptionLength = 500
	maxCoverImageLength  = 250
	maxPublisherLength   = 100
	maxISBNLength        = 20
)

// CatalogConfig holds the tunables of the catalog.
type CatalogConfig struct {
	CheckoutPeriod time.Duration
	FeaturedLimit  int
}

// DefaultCatalogConfig returns a five day checkout period and ten featured books.
func DefaultCatalogConfig() CatalogConfig {
	return CatalogConfig{
		CheckoutPeriod: domain.DefaultCheckoutPeriod,
		FeaturedLimit:  domain.DefaultFeaturedLimit,
	}
}

// CatalogService implements the business logic for books, reviews and
// the checkout workflow.
type CatalogService struct {
	books    repository.BookRepository
	reviews  repository.ReviewRepository
	producer *event.Producer
	cfg      CatalogConfig
	logger   *slog.Logger
	now      func() time.Time
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(
	books repository.BookRepository,
	reviews repository.ReviewRepository,
	producer *event.Producer,
	cfg CatalogConfig,
	logger *slog.Logger,
) *CatalogService {
	if cfg.CheckoutPeriod <= 0 {
		cfg.CheckoutPeriod = domain.DefaultCheckoutPeriod
	}
	if cfg.FeaturedLimit <= 0 {
		cfg.FeaturedLimit = domain.DefaultFeaturedLimit
	}
	return &CatalogService{
		books:    books,
		reviews:  reviews,
		producer: producer,
		cfg:      cfg,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateBookInput holds the parameters for creating a book. A nil
// IsAvailable means available.
type CreateBookInput struct {
	Title           string
	Author          string
	Description     string
	CoverImage      string
	Publisher       string
	PublicationDate time.Time
	Category        string
	ISBN            string
	PageCount       int
	IsAvailable     *bool
}

// UpdateBookInput holds the descriptive fields a librarian may overwrite.
type UpdateBookInput struct {
	Title           string
	Author          string
	Description     string
	Publisher       string
	PublicationDate time.Time
	Category        string
	ISBN            string
	PageCount       int
}

// AddReviewInput holds the parameters for reviewing a book.
type AddReviewInput struct {
	BookID  int64
	Message string
	Rating  int
}

// ListBooks returns the whole catalog ordered by title.
func (s *CatalogService) ListBooks(ctx context.Context) ([]domain.Book, error) {
	books, err := s.books.List(ctx, repository.BookFilter{})
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	if len(books) == 0 {
		return nil, apperrors.NotFoundMessage("No books found.")
	}
	return books, nil
}

// ListFeatured returns a fresh random sample of the catalog.
func (s *CatalogService) ListFeatured(ctx context.Context) ([]domain.Book, error) {
	books, err := s.books.List(ctx, repository.BookFilter{Random: true, Limit: s.cfg.FeaturedLimit})
	if err != nil {
		return nil, fmt.Errorf("list featured books: %w", err)
	}
	if len(books) == 0 {
		return nil, apperrors.NotFoundMessage("No featured books found.")
	}
	return books, nil
}

// ListCheckedOut returns the books currently lent out.
func (s *CatalogService) ListCheckedOut(ctx context.Context) ([]domain.Book, error) {
	available := false
	books, err := s.books.List(ctx, repository.BookFilter{Available: &available})
	if err != nil {
		return nil, fmt.Errorf("list checked out books: %w", err)
	}
	if len(books) == 0 {
		return nil, apperrors.NotFoundMessage("No checked out books found.")
	}
	return books, nil
}

// Search returns books whose title contains query, ignoring case. A blank
// query matches every book; no match is an empty list, not an error.
func (s *CatalogService) Search(ctx context.Context, query string) ([]domain.Book, error) {
	var filter repository.BookFilter
	if q := strings.TrimSpace(query); q != "" {
		filter.Search = &q
	}

	books, err := s.books.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}
	if books == nil {
		books = []domain.Book{}
	}
	return books, nil
}

// GetDetails returns a book with its reviews.
func (s *CatalogService) GetDetails(ctx context.Context, id int64) (*domain.BookDetail, error) {
	book, err := s.books.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	reviews, err := s.reviews.ListByBookID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list reviews for book %d: %w", id, err)
	}

	return &domain.BookDetail{Book: *book, Reviews: reviews}, nil
}

// CreateBook adds a book to the catalog. A book created as unavailable is
// stamped as checked out now.
func (s *CatalogService) CreateBook(ctx context.Context, input *CreateBookInput) (*domain.Book, error) {
	if err := validateBookFields(input.Title, input.Author, input.Description, input.Publisher,
		input.Category, input.ISBN, input.PageCount, input.PublicationDate); err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(input.CoverImage) > maxCoverImageLength {
		return nil, apperrors.InvalidInput(fmt.Sprintf("cover image must be at most %d characters", maxCoverImageLength))
	}

	now := s.now()
	book := &domain.Book{
		Title:           strings.TrimSpace(input.Title),
		Author:          strings.TrimSpace(input.Author),
		Description:     input.Description,
		CoverImage:      input.CoverImage,
		Publisher:       strings.TrimSpace(input.Publisher),
		PublicationDate: input.PublicationDate,
		Category:        input.Category,
		ISBN:            strings.TrimSpace(input.ISBN),
		PageCount:       input.PageCount,
		IsAvailable:     true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if input.IsAvailable != nil && !*input.IsAvailable {
		book.CheckOut(now, s.cfg.CheckoutPeriod)
	}

	if err := s.books.Create(ctx, book); err != nil {
		return nil, fmt.Errorf("create book: %w", err)
	}

	if err := s.producer.PublishBookCreated(ctx, book); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish book.created event",
			slog.Int64("book_id", book.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "book created",
		slog.Int64("book_id", book.ID),
		slog.String("title", book.Title),
	)

	return book, nil
}

// UpdateBook overwrites the descriptive fields of a book. Availability,
// checkout dates and the cover image are kept.
func (s *CatalogService) UpdateBook(ctx context.Context, id int64, input *UpdateBookInput) error {
	if err := validateBookFields(input.Title, input.Author, input.Description, input.Publisher,
		input.Category, input.ISBN, input.PageCount, input.PublicationDate); err != nil {
		return err
	}

	book := &domain.Book{
		ID:              id,
		Title:           strings.TrimSpace(input.Title),
		Author:          strings.TrimSpace(input.Author),
		Description:     input.Description,
		Publisher:       strings.TrimSpace(input.Publisher),
		PublicationDate: input.PublicationDate,
		Category:        input.Category,
		ISBN:            strings.TrimSpace(input.ISBN),
		PageCount:       input.PageCount,
		UpdatedAt:       s.now(),
	}

	if err := s.books.Update(ctx, book); err != nil {
		return fmt.Errorf("update book: %w", err)
	}

	if err := s.producer.PublishBookUpdated(ctx, book); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish book.updated event",
			slog.Int64("book_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "book updated", slog.Int64("book_id", id))
	return nil
}

// DeleteBook removes a book and its reviews.
func (s *CatalogService) DeleteBook(ctx context.Context, id int64) error {
	if err := s.books.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete book: %w", err)
	}

	if err := s.producer.PublishBookDeleted(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish book.deleted event",
			slog.Int64("book_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "book deleted", slog.Int64("book_id", id))
	return nil
}

// CheckOut lends an available book until now plus the checkout period.
func (s *CatalogService) CheckOut(ctx context.Context, id int64) (*domain.Book, error) {
	now := s.now()
	due := now.Add(s.cfg.CheckoutPeriod)

	if err := s.books.CheckOut(ctx, id, now, due); err != nil {
		return nil, fmt.Errorf("check out book: %w", err)
	}

	book, err := s.books.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload book %d: %w", id, err)
	}

	if err := s.producer.PublishBookCheckedOut(ctx, book); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish book.checked_out event",
			slog.Int64("book_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "book checked out",
		slog.Int64("book_id", id),
		slog.Time("return_date", due),
	)

	return book, nil
}

// ReturnBook makes a book available again. Returning an available book is
// not an error.
func (s *CatalogService) ReturnBook(ctx context.Context, id int64) (*domain.Book, error) {
	now := s.now()

	wasAvailable, err := s.books.Return(ctx, id, now)
	if err != nil {
		return nil, fmt.Errorf("return book: %w", err)
	}

	book, err := s.books.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload book %d: %w", id, err)
	}

	if err := s.producer.PublishBookReturned(ctx, id, now, wasAvailable); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish book.returned event",
			slog.Int64("book_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "book returned",
		slog.Int64("book_id", id),
		slog.Bool("was_available", wasAvailable),
	)

	return book, nil
}

// AddReview records a rating and optional message for a book.
func (s *CatalogService) AddReview(ctx context.Context, input *AddReviewInput) (*domain.Review, error) {
	if input.Rating < domain.MinRating || input.Rating > domain.MaxRating {
		return nil, apperrors.InvalidInput(fmt.Sprintf("rating must be between %d and %d", domain.MinRating, domain.MaxRating))
	}
	if utf8.RuneCountInString(input.Message) > domain.MaxReviewMessage {
		return nil, apperrors.InvalidInput(fmt.Sprintf("review must be at most %d characters", domain.MaxReviewMessage))
	}

	review := &domain.Review{
		BookID:    input.BookID,
		Message:   input.Message,
		Rating:    input.Rating,
		CreatedAt: s.now(),
	}

	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}

	if err := s.producer.PublishReviewCreated(ctx, review); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.created event",
			slog.Int64("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review created",
		slog.Int64("review_id", review.ID),
		slog.Int64("book_id", review.BookID),
		slog.Int("rating", review.Rating),
	)

	return review, nil
}

func validateBookFields(title, author, description, publisher, category, isbn string, pageCount int, published time.Time) error {
	required := []struct {
		name  string
		value string
		max   int
	}{
		{"title", title, maxTitleLength},
		{"author", author, maxAuthorLength},
		{"publisher", publisher, maxPublisherLength},
		{"isbn", isbn, maxISBNLength},
	}
	for _, f := range required {
		v := strings.TrimSpace(f.value)
		if v == "" {
			return apperrors.InvalidInput(f.name + " is required")
		}
		if utf8.RuneCountInString(v) > f.max {
			return apperrors.InvalidInput(fmt.Sprintf("%s must be at most %d characters", f.name, f.max))
		}
	}
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		return apperrors.InvalidInput(fmt.Sprintf("description must be at most %d characters", maxDescriptionLength))
	}
	if !domain.IsValidCategory(category) {
		return apperrors.InvalidInput("category must be one of: " + strings.Join(domain.Categories(), ", "))
	}
	if pageCount < 0 {
		return apperrors.InvalidInput("page count must not be negative")
	}
	if published.IsZero() {
		return apperrors.InvalidInput("publication date is required")
	}
	return nil
}
