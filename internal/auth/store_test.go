package auth

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/speechtotext/internal/models"
)

func TestPostgresStore_CreateUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("a@x.com", "A", "hash").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(id, now))

	u, err := NewPostgresStore(mock).CreateUser(context.Background(), &models.User{
		Email: "a@x.com", Name: "A", PasswordHash: "hash",
	})
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, "a@x.com", u.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateUser_Duplicate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("a@x.com", "", "hash").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	_, err = NewPostgresStore(mock).CreateUser(context.Background(), &models.User{
		Email: "a@x.com", PasswordHash: "hash",
	})
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetUserByEmail(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, name, password_hash, created_at FROM users")).
		WithArgs("a@x.com").
		WillReturnRows(pgxmock.NewRows([]string{"id", "email", "name", "password_hash", "created_at"}).
			AddRow(id, "a@x.com", "", "hash", now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, name, password_hash, created_at FROM users")).
		WithArgs("ghost@x.com").
		WillReturnError(pgx.ErrNoRows)

	store := NewPostgresStore(mock)

	u, err := store.GetUserByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, "hash", u.PasswordHash)

	_, err = store.GetUserByEmail(context.Background(), "ghost@x.com")
	assert.ErrorIs(t, err, ErrUserNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
