package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sol1corejz/gobank/internal/logger"
	"github.com/sol1corejz/gobank/internal/storage"
	"go.uber.org/zap"
)

const uniqueViolation = "23505"

var (
	ErrConnectionFailed    = errors.New("db connection failed")
	ErrCreatingTableFailed = errors.New("creating table failed")
)

type Store struct {
	db *sqlx.DB
}

var _ storage.Store = (*Store)(nil)

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Open connects with the pgx stdlib driver ("pgx") or lib/pq ("postgres").
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, ErrConnectionFailed
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		logger.Log.Error("Error opening database connection", zap.Error(err))
		return nil, ErrConnectionFailed
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		logger.Log.Error("Error pinging database", zap.Error(err))
		return nil, ErrConnectionFailed
	}

	return New(db), nil
}

var tables = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY NOT NULL,
		username VARCHAR(255) UNIQUE NOT NULL,
		email VARCHAR(255) UNIQUE NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		role VARCHAR(20) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,
	`CREATE TABLE IF NOT EXISTS clients (
		id BIGSERIAL PRIMARY KEY NOT NULL,
		user_id UUID UNIQUE NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		full_name VARCHAR(255) NOT NULL DEFAULT '',
		phone_number VARCHAR(50) NOT NULL DEFAULT '',
		blocked BOOLEAN NOT NULL DEFAULT FALSE
	);`,
	`CREATE TABLE IF NOT EXISTS employees (
		id BIGSERIAL PRIMARY KEY NOT NULL,
		user_id UUID UNIQUE NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		full_name VARCHAR(255) NOT NULL DEFAULT '',
		phone_number VARCHAR(50) NOT NULL DEFAULT ''
	);`,
	`CREATE TABLE IF NOT EXISTS accounts (
		id BIGSERIAL PRIMARY KEY NOT NULL,
		user_id UUID NOT NULL REFERENCES users(id),
		account_number VARCHAR(18) UNIQUE NOT NULL,
		type VARCHAR(20) NOT NULL,
		balance DECIMAL(15, 2) NOT NULL DEFAULT 0.00 CHECK (balance >= 0),
		status VARCHAR(20) NOT NULL DEFAULT 'ACTIVE'
	);`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id BIGSERIAL PRIMARY KEY NOT NULL,
		from_account_id BIGINT NOT NULL,
		to_account_id BIGINT,
		to_external VARCHAR(34),
		amount DECIMAL(15, 2) NOT NULL CHECK (amount > 0),
		type VARCHAR(20) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,
	`CREATE INDEX IF NOT EXISTS transactions_accounts_idx ON transactions (from_account_id, to_account_id, created_at);`,
	`CREATE TABLE IF NOT EXISTS applications (
		id BIGSERIAL PRIMARY KEY NOT NULL,
		user_id UUID NOT NULL REFERENCES users(id),
		account_id BIGINT NOT NULL,
		type VARCHAR(20) NOT NULL,
		status VARCHAR(20) NOT NULL,
		comment TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ
	);`,
}

// Init creates the tables when they do not exist yet.
func (s *Store) Init(ctx context.Context) error {
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, table); err != nil {
			logger.Log.Error("Error creating table", zap.Error(err))
			return ErrCreatingTableFailed
		}
	}
	return nil
}

func (s *Store) View(ctx context.Context, fn func(q storage.Queries) error) error {
	return fn(&queries{ext: s.db})
}

func (s *Store) Snapshot(ctx context.Context, fn func(q storage.Queries) error) error {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return err
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			logger.Log.Error("Error rolling back transaction", zap.Error(rbErr))
		}
	}()
	return fn(&queries{ext: tx})
}

func (s *Store) RunAtomic(ctx context.Context, fn func(q storage.Queries) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(&queries{ext: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Log.Error("Error rolling back transaction", zap.Error(rbErr))
		}
		return err
	}

	return tx.Commit()
}

func (s *Store) Close() error {
	return s.db.Close()
}

// translate maps driver errors onto the storage sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", pgErr.ConstraintName, storage.ErrDuplicate)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", pqErr.Constraint, storage.ErrDuplicate)
	}
	return err
}

// affected turns "no rows touched" into storage.ErrNotFound.
func affected(res sql.Result, err error) error {
	if err != nil {
		return translate(err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}
