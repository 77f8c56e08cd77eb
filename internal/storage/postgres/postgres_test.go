package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/sol1corejz/gobank/internal/models"
	"github.com/sol1corejz/gobank/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(sqlx.NewDb(db, "pgx")), mock
}

func accountRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "account_number", "type", "balance", "status"})
}

func TestInitCreatesAllTables(t *testing.T) {
	store, mock := newMock(t)
	for range tables {
		mock.ExpectExec(".*").WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, store.Init(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInitReportsFailure(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectExec(".*").WillReturnError(errors.New("permission denied"))

	assert.ErrorIs(t, store.Init(context.Background()), ErrCreatingTableFailed)
}

func TestRunAtomicCommits(t *testing.T) {
	store, mock := newMock(t)
	ctx := context.Background()
	owner := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM accounts WHERE id = $1 FOR UPDATE;`)).
		WithArgs(int64(7)).
		WillReturnRows(accountRows().AddRow(int64(7), owner.String(), "UA0000000000000007", "DEBIT", "100.00", "ACTIVE"))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE accounts SET type = $2, balance = $3, status = $4 WHERE id = $1;`)).
		WithArgs(int64(7), "DEBIT", sqlmock.AnyArg(), "ACTIVE").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM accounts WHERE id = $1;`)).
		WithArgs(int64(7)).
		WillReturnRows(accountRows().AddRow(int64(7), owner.String(), "UA0000000000000007", "DEBIT", "60.00", "ACTIVE"))
	mock.ExpectCommit()

	err := store.RunAtomic(ctx, func(q storage.Queries) error {
		acct, err := q.LockAccount(ctx, 7)
		if err != nil {
			return err
		}
		assert.Equal(t, owner, acct.UserID)
		assert.Equal(t, models.AccountDebit, acct.Type)
		acct.Balance = acct.Balance.Sub(decimal.NewFromInt(40))
		updated, err := q.UpdateAccount(ctx, acct)
		if err != nil {
			return err
		}
		assert.True(t, updated.Balance.Equal(decimal.NewFromInt(60)))
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunAtomicRollsBackOnError(t *testing.T) {
	store, mock := newMock(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := store.RunAtomic(context.Background(), func(q storage.Queries) error { return boom })
	assert.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAccountNotFound(t *testing.T) {
	store, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM accounts WHERE id = $1;`)).
		WithArgs(int64(99)).
		WillReturnRows(accountRows())

	err := store.View(ctx, func(q storage.Queries) error {
		_, err := q.GetAccount(ctx, 99)
		return err
	})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUniqueViolationBecomesDuplicate(t *testing.T) {
	for name, driverErr := range map[string]error{
		"pgx": &pgconn.PgError{Code: uniqueViolation, ConstraintName: "accounts_account_number_key"},
		"pq":  &pq.Error{Code: uniqueViolation, Constraint: "accounts_account_number_key"},
	} {
		t.Run(name, func(t *testing.T) {
			store, mock := newMock(t)
			ctx := context.Background()

			mock.ExpectBegin()
			mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO accounts`)).WillReturnError(driverErr)
			mock.ExpectRollback()

			err := store.RunAtomic(ctx, func(q storage.Queries) error {
				_, err := q.CreateAccount(ctx, models.Account{
					UserID:        uuid.New(),
					AccountNumber: "UA0000000000000001",
					Type:          models.AccountDebit,
					Balance:       decimal.Zero,
					Status:        models.AccountActive,
				})
				return err
			})
			assert.ErrorIs(t, err, storage.ErrDuplicate)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestListApplicationsBuildsFilters(t *testing.T) {
	store, mock := newMock(t)
	ctx := context.Background()
	status := models.ApplicationNew

	mock.ExpectQuery(regexp.QuoteMeta(`FROM applications WHERE status = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3;`)).
		WithArgs("NEW", 10, 20).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "account_id", "type", "status", "comment", "created_at", "updated_at"}))

	err := store.View(ctx, func(q storage.Queries) error {
		apps, err := q.ListApplications(ctx, storage.ApplicationFilter{Status: &status}, storage.Page{Offset: 20, Limit: 10})
		assert.Empty(t, apps)
		return err
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotRunsInReadOnlyTransaction(t *testing.T) {
	store, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM applications`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))
	mock.ExpectRollback()

	var n int64
	err := store.Snapshot(ctx, func(q storage.Queries) error {
		var err error
		n, err = q.CountApplications(ctx, storage.ApplicationFilter{})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	require.NoError(t, mock.ExpectationsWereMet())
}
