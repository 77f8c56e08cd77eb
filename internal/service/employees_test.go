package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sol1corejz/gobank/internal/apperr"
	"github.com/sol1corejz/gobank/internal/auth"
	"github.com/sol1corejz/gobank/internal/models"
	"github.com/sol1corejz/gobank/internal/storage"
	"github.com/sol1corejz/gobank/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEmployees(t *testing.T) (*Employees, *memory.Store) {
	t.Helper()
	store := memory.New()
	s := NewEmployees(store)
	s.now = fixedClock(testNow)
	return s, store
}

func employeeBob() EmployeeRequest {
	return EmployeeRequest{
		Username:    "bob",
		Email:       "bob@bank.test",
		Password:    "teller",
		FullName:    "Bob Teller",
		PhoneNumber: "+380671234567",
	}
}

func TestEmployeeLifecycle(t *testing.T) {
	s, store := newEmployees(t)
	ctx := context.Background()

	created, err := s.Create(ctx, employeeBob())
	require.NoError(t, err)
	assert.Equal(t, "bob", created.Username)
	assert.Equal(t, "Bob Teller", created.FullName)

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	newEmail := "robert@bank.test"
	newPassword := "manager"
	updated, err := s.Update(ctx, created.ID, EmployeeUpdate{
		FullName:    "Robert Teller",
		PhoneNumber: "+380670000000",
		Email:       &newEmail,
		Password:    &newPassword,
	})
	require.NoError(t, err)
	assert.Equal(t, "Robert Teller", updated.FullName)
	assert.Equal(t, newEmail, updated.Email)

	var user models.User
	require.NoError(t, store.View(ctx, func(q storage.Queries) error {
		user, err = q.GetUser(ctx, created.UserID)
		return err
	}))
	assert.Equal(t, models.RoleEmployee, user.Role)
	assert.True(t, auth.CheckPassword(user.PasswordHash, "manager"))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, s.Delete(ctx, created.ID))

	_, err = s.Get(ctx, created.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	err = store.View(ctx, func(q storage.Queries) error {
		_, err := q.GetUser(ctx, created.UserID)
		return err
	})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestEmployeeErrors(t *testing.T) {
	s, _ := newEmployees(t)
	ctx := context.Background()

	_, err := s.Create(ctx, employeeBob())
	require.NoError(t, err)

	_, err = s.Create(ctx, employeeBob())
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = s.Get(ctx, 9999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = s.Update(ctx, 9999, EmployeeUpdate{FullName: "x"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	assert.ErrorIs(t, s.Delete(ctx, 9999), apperr.ErrNotFound)

	empty := ""
	_, err = s.Update(ctx, 1, EmployeeUpdate{Password: &empty})
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
}

func TestEmployeeEmailConflict(t *testing.T) {
	s, _ := newEmployees(t)
	ctx := context.Background()

	bob, err := s.Create(ctx, employeeBob())
	require.NoError(t, err)
	carol := employeeBob()
	carol.Username, carol.Email = "carol", "carol@bank.test"
	_, err = s.Create(ctx, carol)
	require.NoError(t, err)

	taken := "carol@bank.test"
	_, err = s.Update(ctx, bob.ID, EmployeeUpdate{FullName: "Bob", Email: &taken})
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

// racyStore makes every atomic unit see the given user lookup and update
// failures, as when a concurrent writer claims the same email.
type racyStore struct {
	*memory.Store
	lookupErr error
	updateErr error
}

func (s racyStore) RunAtomic(ctx context.Context, fn func(q storage.Queries) error) error {
	return s.Store.RunAtomic(ctx, func(q storage.Queries) error {
		return fn(racyQueries{Queries: q, store: s})
	})
}

type racyQueries struct {
	storage.Queries
	store racyStore
}

func (q racyQueries) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	if q.store.lookupErr != nil {
		return models.User{}, q.store.lookupErr
	}
	return q.Queries.GetUserByEmail(ctx, email)
}

func (q racyQueries) UpdateUser(ctx context.Context, u models.User) (models.User, error) {
	if q.store.updateErr != nil {
		return models.User{}, q.store.updateErr
	}
	return q.Queries.UpdateUser(ctx, u)
}

func TestEmployeeEmailLostUniqueRace(t *testing.T) {
	s, store := newEmployees(t)
	ctx := context.Background()
	bob, err := s.Create(ctx, employeeBob())
	require.NoError(t, err)

	email := "bobby@bank.test"

	s.store = racyStore{Store: store, updateErr: storage.ErrDuplicate}
	_, err = s.Update(ctx, bob.ID, EmployeeUpdate{FullName: "Bob", Email: &email})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	lookupFailed := errors.New("connection reset")
	s.store = racyStore{Store: store, lookupErr: lookupFailed}
	_, err = s.Update(ctx, bob.ID, EmployeeUpdate{FullName: "Bob", Email: &email})
	assert.ErrorIs(t, err, lookupFailed)
	assert.NotErrorIs(t, err, apperr.ErrConflict)

	got, err := s.Get(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob@bank.test", got.Email)
}
