package postgres_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwatkins/billtrack/internal/domain"
	"github.com/dwatkins/billtrack/internal/platform/postgres"
	"github.com/dwatkins/billtrack/internal/store"
)

var userRowColumns = []string{"id", "email", "display_name", "created_at", "updated_at"}

func newMockUserStore(t *testing.T) (*postgres.PostgresUserStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return postgres.NewPostgresUserStore(db, nil), mock
}

func TestPostgresUserStore_Create(t *testing.T) {
	t.Parallel()

	user, err := domain.NewUser("Reviewer@Example.com", "Reviewer")
	require.NoError(t, err)

	userStore, mock := newMockUserStore(t)

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(user.ID, "reviewer@example.com", "Reviewer",
			user.CreatedAt, user.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = userStore.Create(context.Background(), user)
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserStore_Create_DuplicateEmail(t *testing.T) {
	t.Parallel()

	user, err := domain.NewUser("reviewer@example.com", "Reviewer")
	require.NoError(t, err)

	userStore, mock := newMockUserStore(t)

	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	err = userStore.Create(context.Background(), user)
	assert.ErrorIs(t, err, store.ErrEmailExists)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserStore_GetByID(t *testing.T) {
	t.Parallel()

	user, err := domain.NewUser("reviewer@example.com", "Reviewer")
	require.NoError(t, err)

	userStore, mock := newMockUserStore(t)

	mock.ExpectQuery(`(?s)SELECT .+\s+FROM users\s+WHERE id = \$1`).
		WithArgs(user.ID).
		WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow(
			user.ID.String(), user.Email, user.DisplayName,
			user.CreatedAt, user.UpdatedAt))

	got, err := userStore.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, user.Email, got.Email)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserStore_GetByID_NotFound(t *testing.T) {
	t.Parallel()

	userStore, mock := newMockUserStore(t)
	id := uuid.New()

	mock.ExpectQuery(`(?s)SELECT .+\s+FROM users\s+WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(userRowColumns))

	got, err := userStore.GetByID(context.Background(), id)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, store.ErrUserNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserStore_GetByEmail_NotFound(t *testing.T) {
	t.Parallel()

	userStore, mock := newMockUserStore(t)

	mock.ExpectQuery(`(?s)SELECT .+\s+FROM users\s+WHERE email = \$1`).
		WithArgs("missing@example.com").
		WillReturnRows(sqlmock.NewRows(userRowColumns))

	got, err := userStore.GetByEmail(context.Background(), "missing@example.com")
	assert.Nil(t, got)
	assert.ErrorIs(t, err, store.ErrUserNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
