// Package usecase contains application business logic services.
package usecase

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	obsctx "github.com/fairyhunter13/ai-interview-coach/internal/observability"
)

const minPasswordLen = 6

// UserService registers and authenticates users.
type UserService struct {
	Users  domain.UserRepository
	Hasher domain.PasswordHasher
}

// NewUserService constructs a UserService with its dependencies.
func NewUserService(u domain.UserRepository, h domain.PasswordHasher) UserService {
	return UserService{Users: u, Hasher: h}
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// Register creates a user. A taken email is ErrConflict.
func (s UserService) Register(ctx domain.Context, name, email, password string) (domain.User, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)
	if name == "" || email == "" {
		return domain.User{}, domain.NewPublicError(domain.ErrInvalidArgument, "Name and email are required")
	}
	if len(password) < minPasswordLen {
		return domain.User{}, domain.NewPublicError(domain.ErrInvalidArgument, fmt.Sprintf("Password must be at least %d characters", minPasswordLen))
	}

	exists, err := s.Users.ExistsByEmail(ctx, email)
	if err != nil {
		return domain.User{}, fmt.Errorf("op=user.register: %w", err)
	}
	if exists {
		return domain.User{}, domain.NewPublicError(domain.ErrConflict, "Email already registered")
	}

	hash, err := s.Hasher.Hash(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("op=user.register: hash: %w", err)
	}
	u := domain.User{Name: name, Email: email, PasswordHash: hash, CreatedAt: time.Now().UTC()}
	id, err := s.Users.Create(ctx, u)
	if err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, domain.ErrConflict) {
			return domain.User{}, domain.NewPublicError(domain.ErrConflict, "Email already registered")
		}
		return domain.User{}, fmt.Errorf("op=user.register: %w", err)
	}
	u.ID = id
	obsctx.LoggerFromContext(ctx).Info("user registered", slog.Int64("user_id", id))
	return u, nil
}

// Login checks credentials. Unknown email and wrong password are
// indistinguishable to the caller.
func (s UserService) Login(ctx domain.Context, email, password string) (domain.User, error) {
	email = NormalizeEmail(email)
	u, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, invalidCredentials()
		}
		return domain.User{}, fmt.Errorf("op=user.login: %w", err)
	}
	if !s.Hasher.Verify(password, u.PasswordHash) {
		obsctx.LoggerFromContext(ctx).Info("login rejected", slog.Int64("user_id", u.ID))
		return domain.User{}, invalidCredentials()
	}
	return u, nil
}

func invalidCredentials() error {
	return domain.NewPublicError(domain.ErrUnauthorized, "Invalid email or password")
}
