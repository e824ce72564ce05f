package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/LibraryGo/internal/auth"
	"github.com/utafrali/LibraryGo/internal/domain"
	"github.com/utafrali/LibraryGo/internal/event"
	"github.com/utafrali/LibraryGo/internal/repository"
	"github.com/utafrali/LibraryGo/internal/service"
	"github.com/utafrali/LibraryGo/pkg/health"
	"github.com/utafrali/LibraryGo/pkg/httputil"
	pkgkafka "github.com/utafrali/LibraryGo/pkg/kafka"
)

// ============================================================================
// Mock Repositories
// ============================================================================

type mockBookRepo struct {
	mock.Mock
}

func (m *mockBookRepo) Create(ctx context.Context, b *domain.Book) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *mockBookRepo) GetByID(ctx context.Context, id int64) (*domain.Book, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Book), args.Error(1)
}

func (m *mockBookRepo) List(ctx context.Context, filter repository.BookFilter) ([]domain.Book, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Book), args.Error(1)
}

func (m *mockBookRepo) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockBookRepo) Update(ctx context.Context, b *domain.Book) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *mockBookRepo) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockBookRepo) CheckOut(ctx context.Context, id int64, at, due time.Time) error {
	args := m.Called(ctx, id, at, due)
	return args.Error(0)
}

func (m *mockBookRepo) Return(ctx context.Context, id int64, at time.Time) (bool, error) {
	args := m.Called(ctx, id, at)
	return args.Bool(0), args.Error(1)
}

type mockReviewRepo struct {
	mock.Mock
}

func (m *mockReviewRepo) Create(ctx context.Context, r *domain.Review) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *mockReviewRepo) ListByBookID(ctx context.Context, bookID int64) ([]domain.Review, error) {
	args := m.Called(ctx, bookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Review), args.Error(1)
}

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, u *domain.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

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

// ============================================================================
// Test Helpers
// ============================================================================

const testSecret = "handler-test-secret-that-is-long-enough"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// testEnv is the production router wired to mock repositories.
type testEnv struct {
	books   *mockBookRepo
	reviews *mockReviewRepo
	users   *mockUserRepo
	revoked *mockRevocationStore
	jwt     *auth.JWTManager
	handler http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := testLogger()

	env := &testEnv{
		books:   new(mockBookRepo),
		reviews: new(mockReviewRepo),
		users:   new(mockUserRepo),
		revoked: new(mockRevocationStore),
		jwt:     auth.NewJWTManager(testSecret, "library", "library-client", time.Hour),
	}

	producer := event.NewProducer(pkgkafka.NopPublisher{}, logger)
	catalog := service.NewCatalogService(env.books, env.reviews, producer, service.DefaultCatalogConfig(), logger)
	users := service.NewUserService(env.users, env.revoked, env.jwt, producer, logger)
	authenticator := auth.NewAuthenticator(env.jwt, env.revoked, logger)

	env.handler = NewRouter(catalog, users, authenticator.Validate, health.NewHandler(), RouterConfig{
		ServiceName: "library-test",
		CORSOrigin:  "http://localhost:3000",
	}, logger)
	return env
}

// token issues a token for role and marks it as not revoked.
func (e *testEnv) token(t *testing.T, username, role string) string {
	t.Helper()
	issued, err := e.jwt.Issue(username, role)
	require.NoError(t, err)
	e.revoked.On("IsRevoked", mock.Anything, issued.TokenID).Return(false, nil).Maybe()
	return issued.Token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) *httputil.ErrorResponse {
	t.Helper()
	var body httputil.ErrorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.NotNil(t, body.Error)
	return body.Error
}

func sampleBook(id int64) *domain.Book {
	return &domain.Book{
		ID:              id,
		Title:           "Dune",
		Author:          "Frank Herbert",
		Publisher:       "Chilton",
		PublicationDate: time.Date(1965, 8, 1, 0, 0, 0, 0, time.UTC),
		Category:        domain.CategoryScienceFiction,
		ISBN:            "9780441013593",
		PageCount:       412,
		IsAvailable:     true,
	}
}

func newRequest(method, path string, body []byte) *http.Request {
	return httptest.NewRequest(method, path, bytes.NewReader(body))
}

func serve(env *testEnv, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	return rec
}
