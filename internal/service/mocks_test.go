package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/utafrali/LibraryGo/internal/domain"
	"github.com/utafrali/LibraryGo/internal/event"
	"github.com/utafrali/LibraryGo/internal/repository"
	pkgkafka "github.com/utafrali/LibraryGo/pkg/kafka"
)

// --- Mock Book Repository ---

type mockBookRepository struct {
	mock.Mock
}

func (m *mockBookRepository) Create(ctx context.Context, b *domain.Book) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *mockBookRepository) GetByID(ctx context.Context, id int64) (*domain.Book, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Book), args.Error(1)
}

func (m *mockBookRepository) List(ctx context.Context, filter repository.BookFilter) ([]domain.Book, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Book), args.Error(1)
}

func (m *mockBookRepository) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockBookRepository) Update(ctx context.Context, b *domain.Book) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *mockBookRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockBookRepository) CheckOut(ctx context.Context, id int64, at, due time.Time) error {
	args := m.Called(ctx, id, at, due)
	return args.Error(0)
}

func (m *mockBookRepository) Return(ctx context.Context, id int64, at time.Time) (bool, error) {
	args := m.Called(ctx, id, at)
	return args.Bool(0), args.Error(1)
}

// --- Mock Review Repository ---

type mockReviewRepository struct {
	mock.Mock
}

func (m *mockReviewRepository) Create(ctx context.Context, r *domain.Review) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *mockReviewRepository) ListByBookID(ctx context.Context, bookID int64) ([]domain.Review, error) {
	args := m.Called(ctx, bookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Review), args.Error(1)
}

// --- Mock User Repository ---

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, u *domain.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *mockUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

// --- Mock Revocation Store ---

type mockRevocationStore struct {
	mock.Mock
}

func (m *mockRevocationStore) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	args := m.Called(ctx, tokenID, expiresAt)
	return args.Error(0)
}

func (m *mockRevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	args := m.Called(ctx, tokenID)
	return args.Bool(0), args.Error(1)
}

// --- Test Helpers ---

// failingPublisher rejects every event, as a down broker would.
type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, string, *pkgkafka.Event) error {
	return errors.New("kafka unavailable")
}

func (failingPublisher) Close() error { return nil }

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestEventProducer() *event.Producer {
	return event.NewProducer(pkgkafka.NopPublisher{}, newTestLogger())
}

func boolPtr(b bool) *bool {
	return &b
}
