package balances

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/socialmaster/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresRepository(db), mock, db
}

func TestGet_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT\s+token_balance\s+FROM\s+user_tokens\s+WHERE\s+account_id\s*=\s*\$1`).
		WithArgs("acc1").
		WillReturnRows(sqlmock.NewRows([]string{"token_balance"}).AddRow(int64(27)))

	got, err := repo.Get(context.Background(), "acc1")
	require.NoError(t, err)
	assert.Equal(t, int64(27), got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+user_tokens`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestGet_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+user_tokens`).
		WithArgs("acc1").
		WillReturnError(errors.New("conn reset"))

	_, err := repo.Get(context.Background(), "acc1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error: conn reset")
}

func TestGetForUpdate_LocksRow(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)SELECT\s+token_balance.*FOR\s+UPDATE`).
		WithArgs("acc1").
		WillReturnRows(sqlmock.NewRows([]string{"token_balance"}).AddRow(int64(9)))

	got, err := repo.GetForUpdate(context.Background(), "acc1")
	require.NoError(t, err)
	assert.Equal(t, int64(9), got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubtract_ReturnsNewBalance(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)UPDATE\s+user_tokens\s+SET\s+token_balance\s*=\s*token_balance\s*-\s*\$2.*RETURNING\s+token_balance`).
		WithArgs("acc1", int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"token_balance"}).AddRow(int64(1)))

	got, err := repo.Subtract(context.Background(), "acc1", 8)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
}

func TestSubtract_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`UPDATE\s+user_tokens`).
		WithArgs("missing", int64(1)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Subtract(context.Background(), "missing", 1)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}
