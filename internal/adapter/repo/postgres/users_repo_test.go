package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

func TestUserRepo_Create(t *testing.T) {
	p := &poolStub{row: valuesRow(int64(7))}
	id, err := NewUserRepo(p).Create(context.Background(), domain.User{Name: "Ann", Email: "ann@example.com", PasswordHash: "h"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.Contains(t, p.lastSQL, "INSERT INTO users")
	require.Len(t, p.lastArgs, 4)
	assert.Equal(t, "ann@example.com", p.lastArgs[1])
}

func TestUserRepo_Create_DuplicateEmail(t *testing.T) {
	p := &poolStub{row: errRow(&pgconn.PgError{Code: "23505"})}
	_, err := NewUserRepo(p).Create(context.Background(), domain.User{Email: "dup@example.com"})
	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestUserRepo_Create_OtherError(t *testing.T) {
	p := &poolStub{row: errRow(errors.New("boom"))}
	_, err := NewUserRepo(p).Create(context.Background(), domain.User{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrConflict)
	assert.Contains(t, err.Error(), "op=user.create")
}

func TestUserRepo_GetByEmail(t *testing.T) {
	now := time.Now().UTC()
	p := &poolStub{row: valuesRow(int64(3), "Bob", "bob@example.com", "hash", now)}
	u, err := NewUserRepo(p).GetByEmail(context.Background(), "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.User{ID: 3, Name: "Bob", Email: "bob@example.com", PasswordHash: "hash", CreatedAt: now}, u)
}

func TestUserRepo_GetByEmail_NotFound(t *testing.T) {
	p := &poolStub{row: errRow(pgx.ErrNoRows)}
	_, err := NewUserRepo(p).GetByEmail(context.Background(), "nobody@example.com")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserRepo_ExistsByEmail(t *testing.T) {
	p := &poolStub{row: valuesRow(true)}
	ok, err := NewUserRepo(p).ExistsByEmail(context.Background(), "a@b.c")
	require.NoError(t, err)
	assert.True(t, ok)

	p = &poolStub{row: errRow(errors.New("down"))}
	_, err = NewUserRepo(p).ExistsByEmail(context.Background(), "a@b.c")
	require.Error(t, err)
}
