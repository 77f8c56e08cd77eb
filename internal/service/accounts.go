package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sol1corejz/gobank/internal/apperr"
	"github.com/sol1corejz/gobank/internal/logger"
	"github.com/sol1corejz/gobank/internal/metrics"
	"github.com/sol1corejz/gobank/internal/models"
	"github.com/sol1corejz/gobank/internal/storage"
	"go.uber.org/zap"
)

// AccountUpdate carries the editable account fields; nil fields are left as is.
type AccountUpdate struct {
	Type *models.AccountType `json:"type"`
}

type AccountStats struct {
	TotalAccounts  int64 `json:"totalAccounts"`
	ActiveAccounts int64 `json:"activeAccounts"`
}

type Accounts struct {
	store   storage.Store
	now     Clock
	numbers NumberGenerator
}

func NewAccounts(store storage.Store) *Accounts {
	return &Accounts{
		store:   store,
		now:     utcNow,
		numbers: RandomAccountNumber,
	}
}

// Create opens an empty ACTIVE account for the owner under a fresh number.
func (s *Accounts) Create(ctx context.Context, ownerID uuid.UUID, accountType models.AccountType) (models.Account, error) {
	if !accountType.Valid() {
		return models.Account{}, apperr.InvalidArgument("unknown account type %q", accountType)
	}

	var lastErr error
	for attempt := 0; attempt < accountNumberAttempts; attempt++ {
		number, err := s.numbers()
		if err != nil {
			return models.Account{}, err
		}

		var created models.Account
		// a failed insert poisons a postgres transaction, so every draw gets its own unit
		err = s.store.RunAtomic(ctx, func(q storage.Queries) error {
			var err error
			created, err = q.CreateAccount(ctx, models.Account{
				UserID:        ownerID,
				AccountNumber: number,
				Type:          accountType,
				Balance:       decimal.Zero,
				Status:        models.AccountActive,
			})
			return err
		})
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, storage.ErrDuplicate) {
			return models.Account{}, err
		}
		logger.Log.Warn("account number collision", zap.String("number", number), zap.Int("attempt", attempt+1))
		lastErr = err
	}
	return models.Account{}, lastErr
}

func (s *Accounts) Get(ctx context.Context, callerID uuid.UUID, accountID int64) (models.Account, error) {
	var account models.Account
	err := s.store.View(ctx, func(q storage.Queries) error {
		var err error
		account, err = ownedAccount(ctx, q.GetAccount, callerID, accountID)
		return err
	})
	return account, err
}

func (s *Accounts) ListOwn(ctx context.Context, callerID uuid.UUID) ([]models.Account, error) {
	return s.list(ctx, storage.AccountFilter{UserID: &callerID})
}

// Close deletes an owned account whose balance is exactly zero.
func (s *Accounts) Close(ctx context.Context, callerID uuid.UUID, accountID int64) error {
	return s.store.RunAtomic(ctx, func(q storage.Queries) error {
		account, err := ownedAccount(ctx, q.LockAccount, callerID, accountID)
		if err != nil {
			return err
		}
		if !account.Balance.IsZero() {
			return apperr.InvalidState("account balance must be zero to close, current balance %s", money(account.Balance))
		}
		return q.DeleteAccount(ctx, account.ID)
	})
}

func (s *Accounts) Update(ctx context.Context, callerID uuid.UUID, accountID int64, upd AccountUpdate) (models.Account, error) {
	if upd.Type != nil && !upd.Type.Valid() {
		return models.Account{}, apperr.InvalidArgument("unknown account type %q", *upd.Type)
	}

	var account models.Account
	err := s.store.RunAtomic(ctx, func(q storage.Queries) error {
		var err error
		account, err = ownedAccount(ctx, q.LockAccount, callerID, accountID)
		if err != nil {
			return err
		}
		if upd.Type == nil {
			return nil
		}
		account.Type = *upd.Type
		account, err = q.UpdateAccount(ctx, account)
		return err
	})
	return account, err
}

// TransferInternal moves money between two accounts of the caller.
func (s *Accounts) TransferInternal(ctx context.Context, callerID uuid.UUID, fromID, toID int64, amount decimal.Decimal) (tx models.Transaction, err error) {
	defer func() { metrics.ObserveTransfer(models.TransactionInternal, err) }()

	if err := checkAmount(amount); err != nil {
		return models.Transaction{}, err
	}

	err = s.store.RunAtomic(ctx, func(q storage.Queries) error {
		from, to, err := lockPair(ctx, q, fromID, toID)
		if err != nil {
			return err
		}
		if !from.OwnedBy(callerID) {
			return apperr.Forbidden("source account does not belong to the caller")
		}
		if !to.OwnedBy(callerID) {
			return apperr.Forbidden("destination account does not belong to the caller")
		}
		if from.ID == to.ID {
			return apperr.InvalidArgument("cannot transfer to the same account")
		}
		if err := checkActive(from, "source"); err != nil {
			return err
		}
		if err := checkActive(to, "destination"); err != nil {
			return err
		}
		if err := checkFunds(from, amount); err != nil {
			return err
		}

		from.Balance = from.Balance.Sub(amount)
		to.Balance = to.Balance.Add(amount)
		if _, err := q.UpdateAccount(ctx, from); err != nil {
			return err
		}
		if _, err := q.UpdateAccount(ctx, to); err != nil {
			return err
		}

		tx, err = q.CreateTransaction(ctx, models.Transaction{
			FromAccountID: from.ID,
			ToAccountID:   &to.ID,
			Amount:        amount,
			Type:          models.TransactionInternal,
			CreatedAt:     s.now(),
		})
		return err
	})
	if err != nil {
		return models.Transaction{}, err
	}
	return tx, nil
}

// TransferExternal debits an owned account and records the destination by
// number only; the destination balance is not touched.
func (s *Accounts) TransferExternal(ctx context.Context, callerID uuid.UUID, fromID int64, toNumber string, amount decimal.Decimal) (tx models.Transaction, err error) {
	defer func() { metrics.ObserveTransfer(models.TransactionExternal, err) }()

	if err := checkAmount(amount); err != nil {
		return models.Transaction{}, err
	}
	toNumber = strings.TrimSpace(toNumber)
	if toNumber == "" {
		return models.Transaction{}, apperr.InvalidArgument("external account number must not be blank")
	}

	err = s.store.RunAtomic(ctx, func(q storage.Queries) error {
		from, err := q.LockAccount(ctx, fromID)
		if err != nil {
			return notFound(err, "source account not found")
		}
		if !from.OwnedBy(callerID) {
			return apperr.Forbidden("source account does not belong to the caller")
		}
		if from.AccountNumber == toNumber {
			return apperr.InvalidArgument("cannot transfer to the same account")
		}
		if err := checkActive(from, "source"); err != nil {
			return err
		}

		to, err := q.GetAccountByNumber(ctx, toNumber)
		if err != nil {
			return notFound(err, "destination account not found")
		}
		if err := checkActive(to, "destination"); err != nil {
			return err
		}
		if err := checkFunds(from, amount); err != nil {
			return err
		}

		from.Balance = from.Balance.Sub(amount)
		if _, err := q.UpdateAccount(ctx, from); err != nil {
			return err
		}

		tx, err = q.CreateTransaction(ctx, models.Transaction{
			FromAccountID: from.ID,
			ToExternal:    &toNumber,
			Amount:        amount,
			Type:          models.TransactionExternal,
			CreatedAt:     s.now(),
		})
		return err
	})
	if err != nil {
		return models.Transaction{}, err
	}
	return tx, nil
}

// ListTransactions returns every transaction touching an owned account within
// the closed range, newest first.
func (s *Accounts) ListTransactions(ctx context.Context, callerID uuid.UUID, accountID int64, r storage.TimeRange) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := s.store.View(ctx, func(q storage.Queries) error {
		if _, err := ownedAccount(ctx, q.GetAccount, callerID, accountID); err != nil {
			return err
		}
		var err error
		txs, err = q.ListTransactions(ctx, accountID, r)
		return err
	})
	return txs, err
}

// ParseTimeRange reads RFC 3339 bounds. A blank start means the Unix epoch and
// a blank end means now.
func (s *Accounts) ParseTimeRange(start, end string) (storage.TimeRange, error) {
	r := storage.TimeRange{From: time.Unix(0, 0).UTC(), To: s.now()}

	if start = strings.TrimSpace(start); start != "" {
		t, err := parseTimestamp(start)
		if err != nil {
			return storage.TimeRange{}, apperr.InvalidArgument("invalid start date %q", start)
		}
		r.From = t
	}
	if end = strings.TrimSpace(end); end != "" {
		t, err := parseTimestamp(end)
		if err != nil {
			return storage.TimeRange{}, apperr.InvalidArgument("invalid end date %q", end)
		}
		r.To = t
	}
	return r, nil
}

// timestamps without a zone are read as UTC
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTimestamp(value string) (time.Time, error) {
	var err error
	for _, layout := range timestampLayouts {
		var t time.Time
		if t, err = time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, err
}

// --- admin ------------------------------------------------------------------

func (s *Accounts) ListAll(ctx context.Context) ([]models.Account, error) {
	return s.list(ctx, storage.AccountFilter{})
}

func (s *Accounts) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Account, error) {
	return s.list(ctx, storage.AccountFilter{UserID: &ownerID})
}

func (s *Accounts) ListByStatus(ctx context.Context, status models.AccountStatus) ([]models.Account, error) {
	if !status.Valid() {
		return nil, apperr.InvalidArgument("unknown account status %q", status)
	}
	return s.list(ctx, storage.AccountFilter{Status: &status})
}

func (s *Accounts) ListByType(ctx context.Context, accountType models.AccountType) ([]models.Account, error) {
	if !accountType.Valid() {
		return nil, apperr.InvalidArgument("unknown account type %q", accountType)
	}
	return s.list(ctx, storage.AccountFilter{Type: &accountType})
}

func (s *Accounts) Block(ctx context.Context, accountID int64) (models.Account, error) {
	return s.setStatus(ctx, accountID, models.AccountBlocked)
}

func (s *Accounts) Unblock(ctx context.Context, accountID int64) (models.Account, error) {
	return s.setStatus(ctx, accountID, models.AccountActive)
}

func (s *Accounts) Stats(ctx context.Context) (AccountStats, error) {
	var stats AccountStats
	active := models.AccountActive
	err := s.store.View(ctx, func(q storage.Queries) error {
		var err error
		if stats.TotalAccounts, err = q.CountAccounts(ctx, storage.AccountFilter{}); err != nil {
			return err
		}
		stats.ActiveAccounts, err = q.CountAccounts(ctx, storage.AccountFilter{Status: &active})
		return err
	})
	return stats, err
}

func (s *Accounts) list(ctx context.Context, f storage.AccountFilter) ([]models.Account, error) {
	var accounts []models.Account
	err := s.store.View(ctx, func(q storage.Queries) error {
		var err error
		accounts, err = q.ListAccounts(ctx, f)
		return err
	})
	return accounts, err
}

func (s *Accounts) setStatus(ctx context.Context, accountID int64, status models.AccountStatus) (models.Account, error) {
	var account models.Account
	err := s.store.RunAtomic(ctx, func(q storage.Queries) error {
		var err error
		account, err = q.LockAccount(ctx, accountID)
		if err != nil {
			return notFound(err, "account %d not found", accountID)
		}
		account.Status = status
		account, err = q.UpdateAccount(ctx, account)
		return err
	})
	return account, err
}

// --- shared checks ----------------------------------------------------------

// ownedAccount loads an account and hides it from anyone but its owner.
func ownedAccount(ctx context.Context, load func(context.Context, int64) (models.Account, error), callerID uuid.UUID, accountID int64) (models.Account, error) {
	account, err := load(ctx, accountID)
	if err != nil {
		return models.Account{}, notFound(err, "account %d not found", accountID)
	}
	if !account.OwnedBy(callerID) {
		return models.Account{}, apperr.NotFound("account %d not found", accountID)
	}
	return account, nil
}

// lockPair locks both transfer accounts in ascending id order so concurrent
// transfers over the same pair cannot deadlock.
func lockPair(ctx context.Context, q storage.Queries, fromID, toID int64) (from, to models.Account, err error) {
	if fromID == toID {
		from, err = q.LockAccount(ctx, fromID)
		if err != nil {
			return from, to, notFound(err, "source account not found")
		}
		return from, from, nil
	}

	first, second := fromID, toID
	if first > second {
		first, second = second, first
	}
	firstAcc, firstErr := q.LockAccount(ctx, first)
	if firstErr != nil && !errors.Is(firstErr, storage.ErrNotFound) {
		return from, to, firstErr
	}
	secondAcc, secondErr := q.LockAccount(ctx, second)
	if secondErr != nil && !errors.Is(secondErr, storage.ErrNotFound) {
		return from, to, secondErr
	}

	fromErr, toErr := firstErr, secondErr
	from, to = firstAcc, secondAcc
	if first != fromID {
		fromErr, toErr = secondErr, firstErr
		from, to = secondAcc, firstAcc
	}
	if fromErr != nil {
		return from, to, apperr.NotFound("source account not found")
	}
	if toErr != nil {
		return from, to, apperr.NotFound("destination account not found")
	}
	return from, to, nil
}

func checkActive(a models.Account, role string) error {
	switch a.Status {
	case models.AccountActive:
		return nil
	case models.AccountBlocked:
		return apperr.InvalidState("%s account is BLOCKED", role)
	default:
		return apperr.InvalidState("%s account is not active", role)
	}
}

func checkFunds(a models.Account, amount decimal.Decimal) error {
	if a.Balance.LessThan(amount) {
		return apperr.InvalidState("insufficient funds: available %s, requested %s", money(a.Balance), money(amount))
	}
	return nil
}
