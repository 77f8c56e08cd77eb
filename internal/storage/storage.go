// Package storage defines the ledger store used by the banking core.
//
// Implementations live in the memory and postgres subpackages. All reads and
// writes go through Queries, obtained either from View (plain reads) or from
// RunAtomic (one commit/rollback unit).
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sol1corejz/gobank/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate key")
)

type AccountFilter struct {
	UserID *uuid.UUID
	Status *models.AccountStatus
	Type   *models.AccountType
}

type ApplicationFilter struct {
	UserID    *uuid.UUID
	AccountID *int64
	Type      *models.ApplicationType
	Status    *models.ApplicationStatus
}

// Page selects a window of rows. A zero Limit means no limit.
type Page struct {
	Offset int
	Limit  int
}

// TimeRange is a closed interval; a zero bound leaves that side open.
type TimeRange struct {
	From time.Time
	To   time.Time
}

func (r TimeRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

type Queries interface {
	CreateUser(ctx context.Context, u models.User) (models.User, error)
	UpdateUser(ctx context.Context, u models.User) (models.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error

	CreateClient(ctx context.Context, c models.Client) (models.Client, error)
	UpdateClient(ctx context.Context, c models.Client) (models.Client, error)
	GetClient(ctx context.Context, id int64) (models.Client, error)
	GetClientByUserID(ctx context.Context, userID uuid.UUID) (models.Client, error)
	ListClients(ctx context.Context) ([]models.Client, error)

	CreateEmployee(ctx context.Context, e models.Employee) (models.Employee, error)
	UpdateEmployee(ctx context.Context, e models.Employee) (models.Employee, error)
	GetEmployee(ctx context.Context, id int64) (models.Employee, error)
	GetEmployeeByUserID(ctx context.Context, userID uuid.UUID) (models.Employee, error)
	ListEmployees(ctx context.Context) ([]models.Employee, error)
	DeleteEmployee(ctx context.Context, id int64) error

	CreateAccount(ctx context.Context, a models.Account) (models.Account, error)
	UpdateAccount(ctx context.Context, a models.Account) (models.Account, error)
	GetAccount(ctx context.Context, id int64) (models.Account, error)
	// LockAccount reads the account and holds a row lock on it until the
	// surrounding atomic unit ends.
	LockAccount(ctx context.Context, id int64) (models.Account, error)
	GetAccountByNumber(ctx context.Context, number string) (models.Account, error)
	ListAccounts(ctx context.Context, f AccountFilter) ([]models.Account, error)
	CountAccounts(ctx context.Context, f AccountFilter) (int64, error)
	DeleteAccount(ctx context.Context, id int64) error

	CreateTransaction(ctx context.Context, t models.Transaction) (models.Transaction, error)
	// ListTransactions returns transactions where the account is source or
	// destination, newest first.
	ListTransactions(ctx context.Context, accountID int64, r TimeRange) ([]models.Transaction, error)

	CreateApplication(ctx context.Context, a models.Application) (models.Application, error)
	UpdateApplication(ctx context.Context, a models.Application) (models.Application, error)
	GetApplication(ctx context.Context, id int64) (models.Application, error)
	LockApplication(ctx context.Context, id int64) (models.Application, error)
	// ListApplications returns matching applications, newest first.
	ListApplications(ctx context.Context, f ApplicationFilter, p Page) ([]models.Application, error)
	CountApplications(ctx context.Context, f ApplicationFilter) (int64, error)
	CountApplicationsByStatus(ctx context.Context) (map[models.ApplicationStatus]int64, error)
}

type Store interface {
	// View runs fn against the committed state without a transaction.
	View(ctx context.Context, fn func(q Queries) error) error
	// Snapshot runs fn read-only against one consistent state, so several
	// reads in fn agree with each other.
	Snapshot(ctx context.Context, fn func(q Queries) error) error
	// RunAtomic runs fn in one unit: every write commits if fn returns nil,
	// none does otherwise.
	RunAtomic(ctx context.Context, fn func(q Queries) error) error
	Close() error
}
