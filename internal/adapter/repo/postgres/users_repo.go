package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

const uniqueViolation = "23505"

// UserRepo persists users.
type UserRepo struct{ Pool PgxPool }

// NewUserRepo constructs a UserRepo with the given pool.
func NewUserRepo(p PgxPool) *UserRepo { return &UserRepo{Pool: p} }

var _ domain.UserRepository = (*UserRepo)(nil)

// Create inserts u and returns the generated id. A duplicate email is ErrConflict.
func (r *UserRepo) Create(ctx domain.Context, u domain.User) (int64, error) {
	ctx, span := observability.Tracer().Start(ctx, "users.Create")
	defer span.End()

	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	q := `INSERT INTO users (name, email, password_hash, created_at) VALUES ($1,$2,$3,$4) RETURNING id`
	var id int64
	if err := r.Pool.QueryRow(ctx, q, u.Name, u.Email, u.PasswordHash, createdAt).Scan(&id); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return 0, fmt.Errorf("op=user.create: %w", domain.ErrConflict)
		}
		return 0, fmt.Errorf("op=user.create: %w", err)
	}
	return id, nil
}

// GetByEmail loads a user by exact (already normalised) email.
func (r *UserRepo) GetByEmail(ctx domain.Context, email string) (domain.User, error) {
	ctx, span := observability.Tracer().Start(ctx, "users.GetByEmail")
	defer span.End()

	q := `SELECT id, name, email, password_hash, created_at FROM users WHERE email=$1`
	var u domain.User
	if err := r.Pool.QueryRow(ctx, q, email).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, fmt.Errorf("op=user.get_by_email: %w", domain.ErrNotFound)
		}
		return domain.User{}, fmt.Errorf("op=user.get_by_email: %w", err)
	}
	return u, nil
}

// ExistsByEmail reports whether a user with email is registered.
func (r *UserRepo) ExistsByEmail(ctx domain.Context, email string) (bool, error) {
	ctx, span := observability.Tracer().Start(ctx, "users.ExistsByEmail")
	defer span.End()

	var exists bool
	if err := r.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email=$1)`, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("op=user.exists_by_email: %w", err)
	}
	return exists, nil
}
