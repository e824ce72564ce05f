// Package seed fills an empty catalog with randomly generated books.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/utafrali/LibraryGo/internal/domain"
	"github.com/utafrali/LibraryGo/internal/repository"
)

// DefaultCount is the number of books generated when no count is given.
const DefaultCount = 100

const (
	minPages          = 100
	maxPages          = 1000
	isbnLength        = 13
	publicationYears  = 10
	recentCheckoutMax = 5 * 24 * time.Hour
	recentCheckoutMin = 24 * time.Hour
)

// Seeder generates books into a repository.
type Seeder struct {
	books  repository.BookRepository
	logger *slog.Logger
	faker  *gofakeit.Faker
	now    func() time.Time
}

// NewSeeder creates a seeder with a random seed.
func NewSeeder(books repository.BookRepository, logger *slog.Logger) *Seeder {
	return NewSeederWithSeed(books, logger, 0)
}

// NewSeederWithSeed creates a seeder whose output is fixed by seed. A zero
// seed picks a random one.
func NewSeederWithSeed(books repository.BookRepository, logger *slog.Logger, seed uint64) *Seeder {
	return &Seeder{
		books:  books,
		logger: logger,
		faker:  gofakeit.New(seed),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Seed inserts count random books and returns how many were created. A
// non-empty catalog is left alone unless force is set.
func (s *Seeder) Seed(ctx context.Context, count int, force bool) (int, error) {
	if count <= 0 {
		count = DefaultCount
	}

	if !force {
		existing, err := s.books.Count(ctx)
		if err != nil {
			return 0, fmt.Errorf("count books: %w", err)
		}
		if existing > 0 {
			s.logger.InfoContext(ctx, "catalog already populated, skipping seed",
				slog.Int("existing", existing),
			)
			return 0, nil
		}
	}

	for i := range count {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		book := s.randomBook()
		if err := s.books.Create(ctx, book); err != nil {
			return i, fmt.Errorf("create book %d of %d: %w", i+1, count, err)
		}
	}

	s.logger.InfoContext(ctx, "catalog seeded", slog.Int("books", count))
	return count, nil
}

func (s *Seeder) randomBook() *domain.Book {
	f := s.faker
	now := s.now()
	book := &domain.Book{
		Title:           f.BookTitle(),
		Author:          f.BookAuthor(),
		Description:     f.Paragraph(1, 2, 8, " "),
		CoverImage:      fmt.Sprintf("https://picsum.photos/seed/%d/640/480", f.IntRange(1, 1_000_000)),
		Publisher:       f.Company(),
		PublicationDate: f.DateRange(now.AddDate(-publicationYears, 0, 0), now),
		Category:        f.RandomString(domain.Categories()),
		ISBN:            f.Numerify("978##########"),
		PageCount:       f.IntRange(minPages, maxPages),
		IsAvailable:     true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if f.Bool() {
		checkedOut := f.DateRange(now.Add(-recentCheckoutMax), now.Add(-recentCheckoutMin))
		book.CheckOut(checkedOut, domain.DefaultCheckoutPeriod)
	}
	return book
}
