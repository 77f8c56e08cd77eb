// Package service holds the banking rules: account ownership and transfers,
// and the card/close application workflow. Every operation takes the caller
// explicitly and runs its checks before the first write, inside one
// storage.Store atomic unit.
package service

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sol1corejz/gobank/internal/apperr"
	"github.com/sol1corejz/gobank/internal/storage"
)

const (
	accountNumberPrefix = "UA"
	accountNumberDigits = 16
	// attempts at drawing an unused account number before giving up
	accountNumberAttempts = 5
	moneyScale            = 2
)

var accountNumberLimit = new(big.Int).Exp(big.NewInt(10), big.NewInt(accountNumberDigits), nil)

// NumberGenerator draws a candidate account number.
type NumberGenerator func() (string, error)

// RandomAccountNumber returns "UA" followed by 16 random decimal digits.
func RandomAccountNumber() (string, error) {
	n, err := rand.Int(rand.Reader, accountNumberLimit)
	if err != nil {
		return "", fmt.Errorf("drawing account number: %w", err)
	}
	return fmt.Sprintf("%s%0*d", accountNumberPrefix, accountNumberDigits, n), nil
}

// Clock returns the current time; tests pin it.
type Clock func() time.Time

func utcNow() time.Time { return time.Now().UTC() }

// checkAmount validates a transfer amount.
func checkAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperr.InvalidArgument("amount must be greater than zero")
	}
	if amount.Exponent() < -moneyScale && !amount.Equal(amount.Round(moneyScale)) {
		return apperr.InvalidArgument("amount must have at most %d fraction digits", moneyScale)
	}
	return nil
}

// notFound maps a storage miss to a categorized NotFound and passes every
// other error through untouched.
func notFound(err error, format string, args ...any) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.NotFound(format, args...)
	}
	return err
}

func money(d decimal.Decimal) string {
	return d.StringFixed(moneyScale)
}
