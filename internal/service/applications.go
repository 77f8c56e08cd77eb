package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/sol1corejz/gobank/internal/apperr"
	"github.com/sol1corejz/gobank/internal/metrics"
	"github.com/sol1corejz/gobank/internal/models"
	"github.com/sol1corejz/gobank/internal/storage"
)

// ApprovalHook runs inside the status update unit when an application is
// approved. Returning an error rolls the approval back.
type ApprovalHook interface {
	OnApproved(ctx context.Context, q storage.Queries, app models.Application) error
}

// ApprovalHookFunc adapts a plain function to ApprovalHook.
type ApprovalHookFunc func(ctx context.Context, q storage.Queries, app models.Application) error

func (f ApprovalHookFunc) OnApproved(ctx context.Context, q storage.Queries, app models.Application) error {
	return f(ctx, q, app)
}

// NopHook approves without side effects.
var NopHook ApprovalHook = ApprovalHookFunc(func(context.Context, storage.Queries, models.Application) error {
	return nil
})

// CloseAccountOnApproval deletes the account of an approved ACCOUNT_CLOSE
// application. The balance must be zero at approval time.
var CloseAccountOnApproval ApprovalHook = ApprovalHookFunc(func(ctx context.Context, q storage.Queries, app models.Application) error {
	if app.Type != models.ApplicationAccountClose {
		return nil
	}
	account, err := q.LockAccount(ctx, app.AccountID)
	if err != nil {
		return notFound(err, "account %d not found", app.AccountID)
	}
	if !account.Balance.IsZero() {
		return apperr.InvalidState("account balance must be zero to close, current balance %s", money(account.Balance))
	}
	return q.DeleteAccount(ctx, account.ID)
})

type Applications struct {
	store storage.Store
	hook  ApprovalHook
	now   Clock
}

func NewApplications(store storage.Store, hook ApprovalHook) *Applications {
	if hook == nil {
		hook = NopHook
	}
	return &Applications{store: store, hook: hook, now: utcNow}
}

// SubmitCard files a card issue request for an owned ACTIVE account.
func (s *Applications) SubmitCard(ctx context.Context, callerID uuid.UUID, accountID int64, comment *string) (models.Application, error) {
	return s.submit(ctx, callerID, accountID, models.ApplicationCardIssue, comment)
}

// SubmitClose files an account closure request. Blocked accounts may be closed.
func (s *Applications) SubmitClose(ctx context.Context, callerID uuid.UUID, accountID int64, comment *string) (models.Application, error) {
	return s.submit(ctx, callerID, accountID, models.ApplicationAccountClose, comment)
}

func (s *Applications) submit(ctx context.Context, callerID uuid.UUID, accountID int64, appType models.ApplicationType, comment *string) (models.Application, error) {
	var app models.Application
	err := s.store.RunAtomic(ctx, func(q storage.Queries) error {
		account, err := ownedAccount(ctx, q.LockAccount, callerID, accountID)
		if err != nil {
			return err
		}
		if appType == models.ApplicationCardIssue {
			if err := checkActive(account, "account"); err != nil {
				return err
			}
		}
		if err := checkNoOpenApplication(ctx, q, account.ID, appType); err != nil {
			return err
		}

		app, err = q.CreateApplication(ctx, models.Application{
			UserID:    callerID,
			AccountID: account.ID,
			Type:      appType,
			Status:    models.ApplicationNew,
			Comment:   comment,
			CreatedAt: s.now(),
		})
		return err
	})
	if err != nil {
		return models.Application{}, err
	}
	return app, nil
}

func checkNoOpenApplication(ctx context.Context, q storage.Queries, accountID int64, appType models.ApplicationType) error {
	for _, status := range models.ApplicationStatuses {
		if !status.Open() {
			continue
		}
		status := status
		n, err := q.CountApplications(ctx, storage.ApplicationFilter{
			AccountID: &accountID,
			Type:      &appType,
			Status:    &status,
		})
		if err != nil {
			return err
		}
		if n > 0 {
			return apperr.InvalidState("account %d already has an active %s application", accountID, appType)
		}
	}
	return nil
}

// UpdateStatus moves an application along NEW -> IN_PROGRESS -> APPROVED|REJECTED.
// A non-nil comment replaces the stored one.
func (s *Applications) UpdateStatus(ctx context.Context, applicationID int64, status models.ApplicationStatus, comment *string) (models.Application, error) {
	if !status.Valid() {
		return models.Application{}, apperr.InvalidArgument("unknown application status %q", status)
	}

	var app models.Application
	err := s.store.RunAtomic(ctx, func(q storage.Queries) error {
		var err error
		app, err = q.LockApplication(ctx, applicationID)
		if err != nil {
			return notFound(err, "application %d not found", applicationID)
		}
		if app.Status.Terminal() {
			return apperr.InvalidState("application %d is already %s", app.ID, app.Status)
		}
		if status == models.ApplicationNew && app.Status != models.ApplicationNew {
			return apperr.InvalidState("application %d cannot return to %s", app.ID, status)
		}

		now := s.now()
		app.Status = status
		app.UpdatedAt = &now
		if comment != nil {
			app.Comment = comment
		}
		if app, err = q.UpdateApplication(ctx, app); err != nil {
			return err
		}

		if status == models.ApplicationApproved {
			return s.hook.OnApproved(ctx, q, app)
		}
		return nil
	})
	if err != nil {
		return models.Application{}, err
	}
	metrics.ObserveTransition(status)
	return app, nil
}

func (s *Applications) ListOwn(ctx context.Context, callerID uuid.UUID) ([]models.Application, error) {
	var apps []models.Application
	err := s.store.View(ctx, func(q storage.Queries) error {
		var err error
		apps, err = q.ListApplications(ctx, storage.ApplicationFilter{UserID: &callerID}, storage.Page{})
		return err
	})
	return apps, err
}

func (s *Applications) GetOwn(ctx context.Context, callerID uuid.UUID, applicationID int64) (models.Application, error) {
	var app models.Application
	err := s.store.View(ctx, func(q storage.Queries) error {
		var err error
		app, err = q.GetApplication(ctx, applicationID)
		if err != nil {
			return notFound(err, "application %d not found", applicationID)
		}
		if app.UserID != callerID {
			return apperr.NotFound("application %d not found", applicationID)
		}
		return nil
	})
	if err != nil {
		return models.Application{}, err
	}
	return app, nil
}
