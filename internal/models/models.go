package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleUser     Role = "USER"
	RoleEmployee Role = "EMPLOYEE"
	RoleAdmin    Role = "ADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleEmployee, RoleAdmin:
		return true
	}
	return false
}

type AccountType string

const (
	AccountDebit   AccountType = "DEBIT"
	AccountCredit  AccountType = "CREDIT"
	AccountSavings AccountType = "SAVINGS"
)

func (t AccountType) Valid() bool {
	switch t {
	case AccountDebit, AccountCredit, AccountSavings:
		return true
	}
	return false
}

type AccountStatus string

const (
	AccountActive  AccountStatus = "ACTIVE"
	AccountBlocked AccountStatus = "BLOCKED"
)

func (s AccountStatus) Valid() bool {
	return s == AccountActive || s == AccountBlocked
}

type TransactionType string

const (
	TransactionInternal TransactionType = "INTERNAL"
	TransactionExternal TransactionType = "EXTERNAL"
)

type ApplicationType string

const (
	ApplicationCardIssue    ApplicationType = "CARD_ISSUE"
	ApplicationAccountClose ApplicationType = "ACCOUNT_CLOSE"
)

type ApplicationStatus string

const (
	ApplicationNew        ApplicationStatus = "NEW"
	ApplicationInProgress ApplicationStatus = "IN_PROGRESS"
	ApplicationApproved   ApplicationStatus = "APPROVED"
	ApplicationRejected   ApplicationStatus = "REJECTED"
)

// ApplicationStatuses lists every status in workflow order.
var ApplicationStatuses = []ApplicationStatus{
	ApplicationNew,
	ApplicationInProgress,
	ApplicationApproved,
	ApplicationRejected,
}

func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationNew, ApplicationInProgress, ApplicationApproved, ApplicationRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed.
func (s ApplicationStatus) Terminal() bool {
	return s == ApplicationApproved || s == ApplicationRejected
}

// Open reports whether the application still awaits a decision.
func (s ApplicationStatus) Open() bool {
	return s == ApplicationNew || s == ApplicationInProgress
}

type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         Role      `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

type Client struct {
	ID          int64     `db:"id" json:"id"`
	UserID      uuid.UUID `db:"user_id" json:"userId"`
	FullName    string    `db:"full_name" json:"fullName"`
	PhoneNumber string    `db:"phone_number" json:"phoneNumber"`
	Blocked     bool      `db:"blocked" json:"blocked"`
}

type Employee struct {
	ID          int64     `db:"id" json:"id"`
	UserID      uuid.UUID `db:"user_id" json:"userId"`
	FullName    string    `db:"full_name" json:"fullName"`
	PhoneNumber string    `db:"phone_number" json:"phoneNumber"`
}

type Account struct {
	ID            int64           `db:"id" json:"id"`
	UserID        uuid.UUID       `db:"user_id" json:"userId"`
	AccountNumber string          `db:"account_number" json:"accountNumber"`
	Type          AccountType     `db:"type" json:"type"`
	Balance       decimal.Decimal `db:"balance" json:"balance"`
	Status        AccountStatus   `db:"status" json:"status"`
}

// OwnedBy reports whether userID owns the account.
func (a Account) OwnedBy(userID uuid.UUID) bool {
	return a.UserID == userID
}

type Transaction struct {
	ID            int64           `db:"id" json:"id"`
	FromAccountID int64           `db:"from_account_id" json:"fromAccountId"`
	ToAccountID   *int64          `db:"to_account_id" json:"toAccountId"`
	ToExternal    *string         `db:"to_external" json:"toExternal"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	Type          TransactionType `db:"type" json:"type"`
	CreatedAt     time.Time       `db:"created_at" json:"createdAt"`
}

// Touches reports whether the account is the source or the destination.
func (t Transaction) Touches(accountID int64) bool {
	return t.FromAccountID == accountID || (t.ToAccountID != nil && *t.ToAccountID == accountID)
}

type Application struct {
	ID        int64             `db:"id" json:"id"`
	UserID    uuid.UUID         `db:"user_id" json:"userId"`
	AccountID int64             `db:"account_id" json:"accountId"`
	Type      ApplicationType   `db:"type" json:"type"`
	Status    ApplicationStatus `db:"status" json:"status"`
	Comment   *string           `db:"comment" json:"comment"`
	CreatedAt time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt *time.Time        `db:"updated_at" json:"updatedAt"`
}
