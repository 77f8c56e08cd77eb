package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sol1corejz/gobank/internal/apperr"
	"github.com/sol1corejz/gobank/internal/models"
	"github.com/sol1corejz/gobank/internal/storage"
	"github.com/sol1corejz/gobank/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApplications(t *testing.T, hook ApprovalHook) (*Applications, *memory.Store) {
	t.Helper()
	store := memory.New()
	s := NewApplications(store, hook)
	s.now = fixedClock(testNow)
	return s, store
}

func strPtr(s string) *string { return &s }

func TestSubmitCard(t *testing.T) {
	s, store := newApplications(t, nil)
	alice := seedUser(t, store, "alice", models.RoleUser)
	account := seedAccount(t, store, alice.ID, "0", models.AccountActive)

	app, err := s.SubmitCard(context.Background(), alice.ID, account.ID, strPtr("virtual card please"))
	require.NoError(t, err)

	assert.Equal(t, models.ApplicationNew, app.Status)
	assert.Equal(t, models.ApplicationCardIssue, app.Type)
	assert.Equal(t, alice.ID, app.UserID)
	assert.Equal(t, account.ID, app.AccountID)
	assert.Equal(t, testNow, app.CreatedAt)
	assert.Nil(t, app.UpdatedAt)
	require.NotNil(t, app.Comment)
	assert.Equal(t, "virtual card please", *app.Comment)
}

func TestSubmitCardChecks(t *testing.T) {
	s, store := newApplications(t, nil)
	alice := seedUser(t, store, "alice", models.RoleUser)
	bob := seedUser(t, store, "bob", models.RoleUser)
	blocked := seedAccount(t, store, alice.ID, "0", models.AccountBlocked)
	foreign := seedAccount(t, store, bob.ID, "0", models.AccountActive)

	_, err := s.SubmitCard(context.Background(), alice.ID, 9999, nil)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = s.SubmitCard(context.Background(), alice.ID, foreign.ID, nil)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = s.SubmitCard(context.Background(), alice.ID, blocked.ID, nil)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
}

func TestSubmitCardOneActivePerAccount(t *testing.T) {
	s, store := newApplications(t, nil)
	alice := seedUser(t, store, "alice", models.RoleUser)
	account := seedAccount(t, store, alice.ID, "0", models.AccountActive)
	ctx := context.Background()

	first, err := s.SubmitCard(ctx, alice.ID, account.ID, nil)
	require.NoError(t, err)

	_, err = s.SubmitCard(ctx, alice.ID, account.ID, nil)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	_, err = s.UpdateStatus(ctx, first.ID, models.ApplicationInProgress, nil)
	require.NoError(t, err)
	_, err = s.SubmitCard(ctx, alice.ID, account.ID, nil)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	// a close request is a different type and is not blocked by the card request
	_, err = s.SubmitClose(ctx, alice.ID, account.ID, nil)
	require.NoError(t, err)

	_, err = s.UpdateStatus(ctx, first.ID, models.ApplicationRejected, strPtr("incomplete documents"))
	require.NoError(t, err)
	second, err := s.SubmitCard(ctx, alice.ID, account.ID, nil)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestSubmitCloseAllowsBlockedAccount(t *testing.T) {
	s, store := newApplications(t, nil)
	alice := seedUser(t, store, "alice", models.RoleUser)
	blocked := seedAccount(t, store, alice.ID, "0", models.AccountBlocked)

	app, err := s.SubmitClose(context.Background(), alice.ID, blocked.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationAccountClose, app.Type)

	_, err = s.SubmitClose(context.Background(), alice.ID, blocked.ID, nil)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
}

func TestUpdateStatusTransitions(t *testing.T) {
	tests := []struct {
		name  string
		path  []models.ApplicationStatus
		next  models.ApplicationStatus
		kind  error
		final models.ApplicationStatus
	}{
		{name: "new to in progress", next: models.ApplicationInProgress, final: models.ApplicationInProgress},
		{name: "new to approved", next: models.ApplicationApproved, final: models.ApplicationApproved},
		{name: "in progress to rejected", path: []models.ApplicationStatus{models.ApplicationInProgress}, next: models.ApplicationRejected, final: models.ApplicationRejected},
		{name: "approved is terminal", path: []models.ApplicationStatus{models.ApplicationApproved}, next: models.ApplicationInProgress, kind: apperr.ErrInvalidState, final: models.ApplicationApproved},
		{name: "rejected is terminal", path: []models.ApplicationStatus{models.ApplicationRejected}, next: models.ApplicationApproved, kind: apperr.ErrInvalidState, final: models.ApplicationRejected},
		{name: "no way back to new", path: []models.ApplicationStatus{models.ApplicationInProgress}, next: models.ApplicationNew, kind: apperr.ErrInvalidState, final: models.ApplicationInProgress},
		{name: "unknown status", next: models.ApplicationStatus("ARCHIVED"), kind: apperr.ErrInvalidArgument, final: models.ApplicationNew},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, store := newApplications(t, nil)
			alice := seedUser(t, store, "alice", models.RoleUser)
			account := seedAccount(t, store, alice.ID, "0", models.AccountActive)
			ctx := context.Background()

			app, err := s.SubmitCard(ctx, alice.ID, account.ID, nil)
			require.NoError(t, err)
			for _, step := range tt.path {
				_, err := s.UpdateStatus(ctx, app.ID, step, nil)
				require.NoError(t, err)
			}

			updated, err := s.UpdateStatus(ctx, app.ID, tt.next, nil)
			if tt.kind != nil {
				assert.ErrorIs(t, err, tt.kind)
			} else {
				require.NoError(t, err)
				require.NotNil(t, updated.UpdatedAt)
				assert.Equal(t, testNow, *updated.UpdatedAt)
			}

			got, err := s.GetOwn(ctx, alice.ID, app.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.final, got.Status)
		})
	}
}

func TestUpdateStatusComment(t *testing.T) {
	s, store := newApplications(t, nil)
	alice := seedUser(t, store, "alice", models.RoleUser)
	account := seedAccount(t, store, alice.ID, "0", models.AccountActive)
	ctx := context.Background()

	app, err := s.SubmitCard(ctx, alice.ID, account.ID, strPtr("original"))
	require.NoError(t, err)

	kept, err := s.UpdateStatus(ctx, app.ID, models.ApplicationInProgress, nil)
	require.NoError(t, err)
	assert.Equal(t, "original", *kept.Comment)

	s.now = fixedClock(testNow.Add(time.Hour))
	replaced, err := s.UpdateStatus(ctx, app.ID, models.ApplicationApproved, strPtr("card shipped"))
	require.NoError(t, err)
	assert.Equal(t, "card shipped", *replaced.Comment)
	assert.Equal(t, testNow.Add(time.Hour), *replaced.UpdatedAt)
	assert.Equal(t, testNow, replaced.CreatedAt)
}

func TestUpdateStatusNotFound(t *testing.T) {
	s, _ := newApplications(t, nil)

	_, err := s.UpdateStatus(context.Background(), 42, models.ApplicationApproved, nil)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestApprovalHookRunsInsideUnit(t *testing.T) {
	var calls []models.Application
	hook := ApprovalHookFunc(func(_ context.Context, _ storage.Queries, app models.Application) error {
		calls = append(calls, app)
		return nil
	})
	s, store := newApplications(t, hook)
	alice := seedUser(t, store, "alice", models.RoleUser)
	account := seedAccount(t, store, alice.ID, "0", models.AccountActive)
	ctx := context.Background()

	app, err := s.SubmitCard(ctx, alice.ID, account.ID, nil)
	require.NoError(t, err)
	_, err = s.UpdateStatus(ctx, app.ID, models.ApplicationInProgress, nil)
	require.NoError(t, err)
	assert.Empty(t, calls)

	_, err = s.UpdateStatus(ctx, app.ID, models.ApplicationApproved, nil)
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, models.ApplicationApproved, calls[0].Status)
}

func TestApprovalHookFailureRollsBack(t *testing.T) {
	boom := errors.New("card issuer unavailable")
	hook := ApprovalHookFunc(func(context.Context, storage.Queries, models.Application) error {
		return boom
	})
	s, store := newApplications(t, hook)
	alice := seedUser(t, store, "alice", models.RoleUser)
	account := seedAccount(t, store, alice.ID, "0", models.AccountActive)
	ctx := context.Background()

	app, err := s.SubmitCard(ctx, alice.ID, account.ID, nil)
	require.NoError(t, err)

	_, err = s.UpdateStatus(ctx, app.ID, models.ApplicationApproved, strPtr("ok"))
	assert.ErrorIs(t, err, boom)

	got, err := s.GetOwn(ctx, alice.ID, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationNew, got.Status)
	assert.Nil(t, got.Comment)
	assert.Nil(t, got.UpdatedAt)
}

func TestCloseAccountOnApproval(t *testing.T) {
	s, store := newApplications(t, CloseAccountOnApproval)
	alice := seedUser(t, store, "alice", models.RoleUser)
	empty := seedAccount(t, store, alice.ID, "0", models.AccountActive)
	funded := seedAccount(t, store, alice.ID, "12.00", models.AccountActive)
	ctx := context.Background()

	closeEmpty, err := s.SubmitClose(ctx, alice.ID, empty.ID, nil)
	require.NoError(t, err)
	closeFunded, err := s.SubmitClose(ctx, alice.ID, funded.ID, nil)
	require.NoError(t, err)
	card, err := s.SubmitCard(ctx, alice.ID, funded.ID, nil)
	require.NoError(t, err)

	_, err = s.UpdateStatus(ctx, closeEmpty.ID, models.ApplicationApproved, nil)
	require.NoError(t, err)
	err = store.View(ctx, func(q storage.Queries) error {
		_, err := q.GetAccount(ctx, empty.ID)
		return err
	})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = s.UpdateStatus(ctx, closeFunded.ID, models.ApplicationApproved, nil)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	_, err = s.UpdateStatus(ctx, card.ID, models.ApplicationApproved, nil)
	require.NoError(t, err)
	assert.Equal(t, "12.00", balanceOf(t, store, funded.ID).StringFixed(2))
}

func TestListAndGetOwnApplications(t *testing.T) {
	s, store := newApplications(t, nil)
	alice := seedUser(t, store, "alice", models.RoleUser)
	bob := seedUser(t, store, "bob", models.RoleUser)
	a := seedAccount(t, store, alice.ID, "0", models.AccountActive)
	b := seedAccount(t, store, bob.ID, "0", models.AccountActive)
	ctx := context.Background()

	first, err := s.SubmitCard(ctx, alice.ID, a.ID, nil)
	require.NoError(t, err)
	s.now = fixedClock(testNow.Add(time.Minute))
	second, err := s.SubmitClose(ctx, alice.ID, a.ID, nil)
	require.NoError(t, err)
	bobs, err := s.SubmitCard(ctx, bob.ID, b.ID, nil)
	require.NoError(t, err)

	own, err := s.ListOwn(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, own, 2)
	assert.Equal(t, second.ID, own[0].ID)
	assert.Equal(t, first.ID, own[1].ID)

	_, err = s.GetOwn(ctx, alice.ID, bobs.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = s.GetOwn(ctx, alice.ID, 9999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
