// Package reporting builds the read-only views used by employees and
// administrators. Joins are explicit id lookups against the ledger store.
package reporting

import (
	"context"
	"errors"
	"math"

	"github.com/shopspring/decimal"
	"github.com/sol1corejz/gobank/internal/apperr"
	"github.com/sol1corejz/gobank/internal/models"
	"github.com/sol1corejz/gobank/internal/storage"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// AccountView is an account together with its owner's username.
type AccountView struct {
	models.Account
	OwnerUsername string `json:"ownerUsername"`
}

type AccountInfo struct {
	ID            int64                `json:"id"`
	AccountNumber string               `json:"accountNumber"`
	Balance       decimal.Decimal      `json:"balance"`
	Status        models.AccountStatus `json:"status"`
}

type ClientInfo struct {
	ID          int64  `json:"id"`
	FullName    string `json:"fullName"`
	PhoneNumber string `json:"phoneNumber"`
	Email       string `json:"email"`
	Blocked     bool   `json:"blocked"`
}

// ApplicationInfo joins an application with its account and applicant.
// Account and Client are nil in list views when the joined row is gone.
type ApplicationInfo struct {
	models.Application
	Account *AccountInfo `json:"account"`
	Client  *ClientInfo  `json:"client"`
}

type Page struct {
	Number int
	Size   int
}

type ApplicationStats struct {
	Counts       map[models.ApplicationStatus]int64 `json:"counts"`
	Applications []ApplicationInfo                  `json:"applications"`
	TotalCount   int64                              `json:"totalCount"`
	Page         int                                `json:"page"`
	Size         int                                `json:"size"`
}

type Reports struct {
	store storage.Store
}

func New(store storage.Store) *Reports {
	return &Reports{store: store}
}

// AdminAccounts lists the accounts matching f with owner usernames.
func (r *Reports) AdminAccounts(ctx context.Context, f storage.AccountFilter) ([]AccountView, error) {
	var views []AccountView
	err := r.store.View(ctx, func(q storage.Queries) error {
		accounts, err := q.ListAccounts(ctx, f)
		if err != nil {
			return err
		}

		usernames := make(map[string]string)
		views = make([]AccountView, 0, len(accounts))
		for _, a := range accounts {
			key := a.UserID.String()
			name, ok := usernames[key]
			if !ok {
				user, err := q.GetUser(ctx, a.UserID)
				if err != nil && !errors.Is(err, storage.ErrNotFound) {
					return err
				}
				name = user.Username
				usernames[key] = name
			}
			views = append(views, AccountView{Account: a, OwnerUsername: name})
		}
		return nil
	})
	return views, err
}

// Applications lists every application, newest first, tolerating missing joins.
func (r *Reports) Applications(ctx context.Context) ([]ApplicationInfo, error) {
	var infos []ApplicationInfo
	err := r.store.View(ctx, func(q storage.Queries) error {
		apps, err := q.ListApplications(ctx, storage.ApplicationFilter{}, storage.Page{})
		if err != nil {
			return err
		}
		infos, err = joinAll(ctx, q, apps)
		return err
	})
	return infos, err
}

// Application returns one application with every join present.
func (r *Reports) Application(ctx context.Context, id int64) (ApplicationInfo, error) {
	var info ApplicationInfo
	err := r.store.View(ctx, func(q storage.Queries) error {
		app, err := q.GetApplication(ctx, id)
		if err != nil {
			return notFound(err, "application %d not found", id)
		}
		info, err = join(ctx, q, app, true)
		return err
	})
	if err != nil {
		return ApplicationInfo{}, err
	}
	return info, nil
}

// ApplicationStats returns zero-filled per-status counts over all applications
// and one page of the applications matching status, newest first.
func (r *Reports) ApplicationStats(ctx context.Context, status *models.ApplicationStatus, p Page) (ApplicationStats, error) {
	if status != nil && !status.Valid() {
		return ApplicationStats{}, apperr.InvalidArgument("unknown application status %q", *status)
	}
	if p.Number < 0 {
		return ApplicationStats{}, apperr.InvalidArgument("page must not be negative")
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	if p.Number > math.MaxInt/p.Size {
		return ApplicationStats{}, apperr.InvalidArgument("page %d is out of range", p.Number)
	}

	stats := ApplicationStats{
		Counts: make(map[models.ApplicationStatus]int64, len(models.ApplicationStatuses)),
		Page:   p.Number,
		Size:   p.Size,
	}
	for _, s := range models.ApplicationStatuses {
		stats.Counts[s] = 0
	}

	err := r.store.Snapshot(ctx, func(q storage.Queries) error {
		counts, err := q.CountApplicationsByStatus(ctx)
		if err != nil {
			return err
		}
		for s, n := range counts {
			stats.Counts[s] = n
		}

		f := storage.ApplicationFilter{Status: status}
		if stats.TotalCount, err = q.CountApplications(ctx, f); err != nil {
			return err
		}
		apps, err := q.ListApplications(ctx, f, storage.Page{Offset: p.Number * p.Size, Limit: p.Size})
		if err != nil {
			return err
		}
		stats.Applications, err = joinAll(ctx, q, apps)
		return err
	})
	if err != nil {
		return ApplicationStats{}, err
	}
	return stats, nil
}

func joinAll(ctx context.Context, q storage.Queries, apps []models.Application) ([]ApplicationInfo, error) {
	infos := make([]ApplicationInfo, 0, len(apps))
	for _, app := range apps {
		info, err := join(ctx, q, app, false)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// join resolves account, user and client for app. With strict set a missing
// part is reported as NotFound; otherwise it is left nil.
func join(ctx context.Context, q storage.Queries, app models.Application, strict bool) (ApplicationInfo, error) {
	info := ApplicationInfo{Application: app}

	account, err := q.GetAccount(ctx, app.AccountID)
	switch {
	case err == nil:
		info.Account = &AccountInfo{
			ID:            account.ID,
			AccountNumber: account.AccountNumber,
			Balance:       account.Balance,
			Status:        account.Status,
		}
	case !errors.Is(err, storage.ErrNotFound):
		return ApplicationInfo{}, err
	case strict:
		return ApplicationInfo{}, apperr.NotFound("account not found")
	}

	user, err := q.GetUser(ctx, app.UserID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return ApplicationInfo{}, err
		}
		if strict {
			return ApplicationInfo{}, apperr.NotFound("user not found")
		}
		return info, nil
	}

	client, err := q.GetClientByUserID(ctx, user.ID)
	switch {
	case err == nil:
		info.Client = &ClientInfo{
			ID:          client.ID,
			FullName:    client.FullName,
			PhoneNumber: client.PhoneNumber,
			Email:       user.Email,
			Blocked:     client.Blocked,
		}
	case !errors.Is(err, storage.ErrNotFound):
		return ApplicationInfo{}, err
	case strict:
		return ApplicationInfo{}, apperr.NotFound("client not found")
	}
	return info, nil
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.NotFound(format, args...)
	}
	return err
}
