package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/utafrali/LibraryGo/internal/auth"
	"github.com/utafrali/LibraryGo/internal/domain"
	"github.com/utafrali/LibraryGo/internal/event"
	"github.com/utafrali/LibraryGo/internal/repository"
	apperrors "github.com/utafrali/LibraryGo/pkg/errors"
	"github.com/utafrali/LibraryGo/pkg/validator"
)

// bcryptCost is the cost factor for bcrypt password hashing.
const bcryptCost = 12

// minPasswordLength is the minimum password length required.
const minPasswordLength = 6

// maxPasswordBytes is the most input bcrypt accepts.
const maxPasswordBytes = 72

// usernameSymbols are the non-alphanumeric characters a username may hold.
const usernameSymbols = "-._@+"

// Registration rule messages.
const (
	msgUsernameRequired  = "Username is required."
	msgUsernameInvalid   = "Username may only contain letters, digits and -._@+."
	msgEmailInvalid      = "Email must be a valid email address."
	msgUsernameTaken     = "Username already exists."
	msgEmailTaken        = "Email already exists."
	msgPasswordShort     = "Password must be at least 6 characters long."
	msgPasswordTooLong   = "Password must be at most 72 bytes long."
	msgPasswordUpper     = "Password must contain at least one uppercase letter."
	msgPasswordLower     = "Password must contain at least one lowercase letter."
	msgPasswordDigit     = "Password must contain at least one digit."
	msgPasswordSymbol    = "Password must contain at least one non-alphanumeric character."
	msgInvalidLogin      = "Invalid login attempt."
	msgRegistrationError = "registration failed"
)

// UserService implements registration, login and logout.
type UserService struct {
	users      repository.UserRepository
	revoked    repository.TokenRevocationStore
	jwtManager *auth.JWTManager
	producer   *event.Producer
	logger     *slog.Logger
	hashCost   int
	now        func() time.Time
}

// NewUserService creates a new user service. revoked may be nil, in which
// case logout is a no-op.
func NewUserService(
	users repository.UserRepository,
	revoked repository.TokenRevocationStore,
	jwtManager *auth.JWTManager,
	producer *event.Producer,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		users:      users,
		revoked:    revoked,
		jwtManager: jwtManager,
		producer:   producer,
		logger:     logger,
		hashCost:   bcryptCost,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// RegisterInput holds the parameters for registering a new user.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	UserType string
}

// LoginInput holds the parameters for user login.
type LoginInput struct {
	Username string
	Password string
}

// Register creates an account. Every violated rule is reported at once.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(input.Email)

	var problems []string

	usernameOK := false
	switch {
	case username == "":
		problems = append(problems, msgUsernameRequired)
	case !validUsername(username):
		problems = append(problems, msgUsernameInvalid)
	default:
		usernameOK = true
	}

	emailOK := validator.Var(email, "required,email") == nil
	if !emailOK {
		problems = append(problems, msgEmailInvalid)
	}

	if usernameOK {
		taken, err := s.users.ExistsByUsername(ctx, username)
		if err != nil {
			return nil, fmt.Errorf("check username: %w", err)
		}
		if taken {
			problems = append(problems, msgUsernameTaken)
		}
	}
	if emailOK {
		taken, err := s.users.ExistsByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("check email: %w", err)
		}
		if taken {
			problems = append(problems, msgEmailTaken)
		}
	}

	problems = append(problems, passwordProblems(input.Password)...)
	if len(problems) > 0 {
		return nil, apperrors.Validation(msgRegistrationError, problems...)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user := &domain.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hashedPassword),
		Role:         domain.RoleFromUserType(input.UserType),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		// A concurrent registration won the unique index.
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && errors.Is(err, apperrors.ErrAlreadyExists) {
			msg := msgUsernameTaken
			if strings.Contains(appErr.Message, "with email") {
				msg = msgEmailTaken
			}
			return nil, apperrors.Validation(msgRegistrationError, msg)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := s.producer.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
		slog.String("role", user.Role),
	)

	return user, nil
}

// Login verifies credentials and issues an access token. Unknown users and
// wrong passwords fail the same way.
func (s *UserService) Login(ctx context.Context, input LoginInput) (*domain.LoginResult, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" || input.Password == "" {
		return nil, apperrors.Unauthorized(msgInvalidLogin)
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized(msgInvalidLogin)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, apperrors.Unauthorized(msgInvalidLogin)
	}

	issued, err := s.jwtManager.Issue(user.Username, user.Role)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged in",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return &domain.LoginResult{Token: issued.Token, Expiration: issued.ExpiresAt}, nil
}

// Logout revokes the session's token until it would have expired.
func (s *UserService) Logout(ctx context.Context, session *auth.Session) error {
	if session == nil {
		return apperrors.Unauthorized("authentication required")
	}
	if s.revoked == nil {
		return nil
	}

	if err := s.revoked.Revoke(ctx, session.TokenID, session.ExpiresAt); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged out", slog.String("username", session.Username))
	return nil
}

func validUsername(username string) bool {
	for _, r := range username {
		if r > unicode.MaxASCII {
			return false
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(usernameSymbols, r) {
			continue
		}
		return false
	}
	return true
}

func passwordProblems(password string) []string {
	var problems []string
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case !unicode.IsLetter(r):
			hasSymbol = true
		}
	}

	if len([]rune(password)) < minPasswordLength {
		problems = append(problems, msgPasswordShort)
	}
	if len(password) > maxPasswordBytes {
		problems = append(problems, msgPasswordTooLong)
	}
	if !hasUpper {
		problems = append(problems, msgPasswordUpper)
	}
	if !hasLower {
		problems = append(problems, msgPasswordLower)
	}
	if !hasDigit {
		problems = append(problems, msgPasswordDigit)
	}
	if !hasSymbol {
		problems = append(problems, msgPasswordSymbol)
	}
	return problems
}
