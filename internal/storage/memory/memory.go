// Package memory is an in-process ledger store for tests and local runs.
//
// RunAtomic serializes writers and works on a private copy of the state that
// replaces the live one only when the unit succeeds, so a failed unit leaves
// nothing behind.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sol1corejz/gobank/internal/models"
	"github.com/sol1corejz/gobank/internal/storage"
)

type Store struct {
	mu  sync.RWMutex
	st  *state
	now func() time.Time
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		st: &state{
			users:        make(map[uuid.UUID]models.User),
			clients:      make(map[int64]models.Client),
			employees:    make(map[int64]models.Employee),
			accounts:     make(map[int64]models.Account),
			applications: make(map[int64]models.Application),
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) View(ctx context.Context, fn func(q storage.Queries) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&queries{st: s.st, now: s.now, readOnly: true})
}

// Snapshot is View; the read lock keeps the state fixed for fn.
func (s *Store) Snapshot(ctx context.Context, fn func(q storage.Queries) error) error {
	return s.View(ctx, fn)
}

func (s *Store) RunAtomic(ctx context.Context, fn func(q storage.Queries) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(&queries{st: work, now: s.now}); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *Store) Close() error { return nil }

type state struct {
	seq          int64
	users        map[uuid.UUID]models.User
	clients      map[int64]models.Client
	employees    map[int64]models.Employee
	accounts     map[int64]models.Account
	transactions []models.Transaction
	applications map[int64]models.Application
}

func (st *state) clone() *state {
	cp := &state{
		seq:          st.seq,
		users:        make(map[uuid.UUID]models.User, len(st.users)),
		clients:      make(map[int64]models.Client, len(st.clients)),
		employees:    make(map[int64]models.Employee, len(st.employees)),
		accounts:     make(map[int64]models.Account, len(st.accounts)),
		transactions: slices.Clone(st.transactions),
		applications: make(map[int64]models.Application, len(st.applications)),
	}
	for k, v := range st.users {
		cp.users[k] = v
	}
	for k, v := range st.clients {
		cp.clients[k] = v
	}
	for k, v := range st.employees {
		cp.employees[k] = v
	}
	for k, v := range st.accounts {
		cp.accounts[k] = v
	}
	for k, v := range st.applications {
		cp.applications[k] = v
	}
	return cp
}

func (st *state) nextID() int64 {
	st.seq++
	return st.seq
}

type queries struct {
	st       *state
	now      func() time.Time
	readOnly bool
}

func (q *queries) writable() error {
	if q.readOnly {
		return fmt.Errorf("memory store: write outside RunAtomic")
	}
	return nil
}

// --- users ------------------------------------------------------------------

func (q *queries) CreateUser(_ context.Context, u models.User) (models.User, error) {
	if err := q.writable(); err != nil {
		return models.User{}, err
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	for _, existing := range q.st.users {
		if existing.ID == u.ID || existing.Username == u.Username || existing.Email == u.Email {
			return models.User{}, fmt.Errorf("user %s: %w", u.Username, storage.ErrDuplicate)
		}
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = q.now()
	}
	q.st.users[u.ID] = u
	return u, nil
}

func (q *queries) UpdateUser(_ context.Context, u models.User) (models.User, error) {
	if err := q.writable(); err != nil {
		return models.User{}, err
	}
	original, ok := q.st.users[u.ID]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	for _, existing := range q.st.users {
		if existing.ID != u.ID && (existing.Username == u.Username || existing.Email == u.Email) {
			return models.User{}, fmt.Errorf("user %s: %w", u.Username, storage.ErrDuplicate)
		}
	}
	u.CreatedAt = original.CreatedAt
	q.st.users[u.ID] = u
	return u, nil
}

func (q *queries) GetUser(_ context.Context, id uuid.UUID) (models.User, error) {
	u, ok := q.st.users[id]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (q *queries) GetUserByUsername(_ context.Context, username string) (models.User, error) {
	for _, u := range q.st.users {
		if u.Username == username {
			return u, nil
		}
	}
	return models.User{}, storage.ErrNotFound
}

func (q *queries) GetUserByEmail(_ context.Context, email string) (models.User, error) {
	for _, u := range q.st.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, storage.ErrNotFound
}

func (q *queries) ListUsers(_ context.Context) ([]models.User, error) {
	out := make([]models.User, 0, len(q.st.users))
	for _, u := range q.st.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (q *queries) DeleteUser(_ context.Context, id uuid.UUID) error {
	if err := q.writable(); err != nil {
		return err
	}
	if _, ok := q.st.users[id]; !ok {
		return storage.ErrNotFound
	}
	delete(q.st.users, id)
	// mirrors ON DELETE CASCADE on clients and employees
	for cid, c := range q.st.clients {
		if c.UserID == id {
			delete(q.st.clients, cid)
		}
	}
	for eid, e := range q.st.employees {
		if e.UserID == id {
			delete(q.st.employees, eid)
		}
	}
	return nil
}

// --- clients ----------------------------------------------------------------

func (q *queries) CreateClient(_ context.Context, c models.Client) (models.Client, error) {
	if err := q.writable(); err != nil {
		return models.Client{}, err
	}
	if _, ok := q.st.users[c.UserID]; !ok {
		return models.Client{}, fmt.Errorf("client user %s: %w", c.UserID, storage.ErrNotFound)
	}
	for _, existing := range q.st.clients {
		if existing.UserID == c.UserID {
			return models.Client{}, fmt.Errorf("client for %s: %w", c.UserID, storage.ErrDuplicate)
		}
	}
	c.ID = q.st.nextID()
	q.st.clients[c.ID] = c
	return c, nil
}

func (q *queries) UpdateClient(_ context.Context, c models.Client) (models.Client, error) {
	if err := q.writable(); err != nil {
		return models.Client{}, err
	}
	if _, ok := q.st.clients[c.ID]; !ok {
		return models.Client{}, storage.ErrNotFound
	}
	q.st.clients[c.ID] = c
	return c, nil
}

func (q *queries) GetClient(_ context.Context, id int64) (models.Client, error) {
	c, ok := q.st.clients[id]
	if !ok {
		return models.Client{}, storage.ErrNotFound
	}
	return c, nil
}

func (q *queries) GetClientByUserID(_ context.Context, userID uuid.UUID) (models.Client, error) {
	for _, c := range q.st.clients {
		if c.UserID == userID {
			return c, nil
		}
	}
	return models.Client{}, storage.ErrNotFound
}

func (q *queries) ListClients(_ context.Context) ([]models.Client, error) {
	out := make([]models.Client, 0, len(q.st.clients))
	for _, c := range q.st.clients {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- employees --------------------------------------------------------------

func (q *queries) CreateEmployee(_ context.Context, e models.Employee) (models.Employee, error) {
	if err := q.writable(); err != nil {
		return models.Employee{}, err
	}
	if _, ok := q.st.users[e.UserID]; !ok {
		return models.Employee{}, fmt.Errorf("employee user %s: %w", e.UserID, storage.ErrNotFound)
	}
	for _, existing := range q.st.employees {
		if existing.UserID == e.UserID {
			return models.Employee{}, fmt.Errorf("employee for %s: %w", e.UserID, storage.ErrDuplicate)
		}
	}
	e.ID = q.st.nextID()
	q.st.employees[e.ID] = e
	return e, nil
}

func (q *queries) UpdateEmployee(_ context.Context, e models.Employee) (models.Employee, error) {
	if err := q.writable(); err != nil {
		return models.Employee{}, err
	}
	if _, ok := q.st.employees[e.ID]; !ok {
		return models.Employee{}, storage.ErrNotFound
	}
	q.st.employees[e.ID] = e
	return e, nil
}

func (q *queries) GetEmployee(_ context.Context, id int64) (models.Employee, error) {
	e, ok := q.st.employees[id]
	if !ok {
		return models.Employee{}, storage.ErrNotFound
	}
	return e, nil
}

func (q *queries) GetEmployeeByUserID(_ context.Context, userID uuid.UUID) (models.Employee, error) {
	for _, e := range q.st.employees {
		if e.UserID == userID {
			return e, nil
		}
	}
	return models.Employee{}, storage.ErrNotFound
}

func (q *queries) ListEmployees(_ context.Context) ([]models.Employee, error) {
	out := make([]models.Employee, 0, len(q.st.employees))
	for _, e := range q.st.employees {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (q *queries) DeleteEmployee(_ context.Context, id int64) error {
	if err := q.writable(); err != nil {
		return err
	}
	if _, ok := q.st.employees[id]; !ok {
		return storage.ErrNotFound
	}
	delete(q.st.employees, id)
	return nil
}

// --- accounts ---------------------------------------------------------------

func (q *queries) CreateAccount(_ context.Context, a models.Account) (models.Account, error) {
	if err := q.writable(); err != nil {
		return models.Account{}, err
	}
	for _, existing := range q.st.accounts {
		if existing.AccountNumber == a.AccountNumber {
			return models.Account{}, fmt.Errorf("account %s: %w", a.AccountNumber, storage.ErrDuplicate)
		}
	}
	a.ID = q.st.nextID()
	q.st.accounts[a.ID] = a
	return a, nil
}

func (q *queries) UpdateAccount(_ context.Context, a models.Account) (models.Account, error) {
	if err := q.writable(); err != nil {
		return models.Account{}, err
	}
	original, ok := q.st.accounts[a.ID]
	if !ok {
		return models.Account{}, storage.ErrNotFound
	}
	// owner and number never change after creation
	a.UserID = original.UserID
	a.AccountNumber = original.AccountNumber
	q.st.accounts[a.ID] = a
	return a, nil
}

func (q *queries) GetAccount(_ context.Context, id int64) (models.Account, error) {
	a, ok := q.st.accounts[id]
	if !ok {
		return models.Account{}, storage.ErrNotFound
	}
	return a, nil
}

// LockAccount needs no row lock here: RunAtomic already holds the writer lock.
func (q *queries) LockAccount(ctx context.Context, id int64) (models.Account, error) {
	return q.GetAccount(ctx, id)
}

func (q *queries) GetAccountByNumber(_ context.Context, number string) (models.Account, error) {
	for _, a := range q.st.accounts {
		if a.AccountNumber == number {
			return a, nil
		}
	}
	return models.Account{}, storage.ErrNotFound
}

func matchAccount(a models.Account, f storage.AccountFilter) bool {
	if f.UserID != nil && a.UserID != *f.UserID {
		return false
	}
	if f.Status != nil && a.Status != *f.Status {
		return false
	}
	if f.Type != nil && a.Type != *f.Type {
		return false
	}
	return true
}

func (q *queries) ListAccounts(_ context.Context, f storage.AccountFilter) ([]models.Account, error) {
	out := make([]models.Account, 0)
	for _, a := range q.st.accounts {
		if matchAccount(a, f) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (q *queries) CountAccounts(_ context.Context, f storage.AccountFilter) (int64, error) {
	var n int64
	for _, a := range q.st.accounts {
		if matchAccount(a, f) {
			n++
		}
	}
	return n, nil
}

func (q *queries) DeleteAccount(_ context.Context, id int64) error {
	if err := q.writable(); err != nil {
		return err
	}
	if _, ok := q.st.accounts[id]; !ok {
		return storage.ErrNotFound
	}
	delete(q.st.accounts, id)
	return nil
}

// --- transactions -----------------------------------------------------------

func (q *queries) CreateTransaction(_ context.Context, t models.Transaction) (models.Transaction, error) {
	if err := q.writable(); err != nil {
		return models.Transaction{}, err
	}
	t.ID = q.st.nextID()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = q.now()
	}
	q.st.transactions = append(q.st.transactions, t)
	return t, nil
}

func (q *queries) ListTransactions(_ context.Context, accountID int64, r storage.TimeRange) ([]models.Transaction, error) {
	out := make([]models.Transaction, 0)
	for _, t := range q.st.transactions {
		if t.Touches(accountID) && r.Contains(t.CreatedAt) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// --- applications -----------------------------------------------------------

func (q *queries) CreateApplication(_ context.Context, a models.Application) (models.Application, error) {
	if err := q.writable(); err != nil {
		return models.Application{}, err
	}
	a.ID = q.st.nextID()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = q.now()
	}
	q.st.applications[a.ID] = a
	return a, nil
}

func (q *queries) UpdateApplication(_ context.Context, a models.Application) (models.Application, error) {
	if err := q.writable(); err != nil {
		return models.Application{}, err
	}
	original, ok := q.st.applications[a.ID]
	if !ok {
		return models.Application{}, storage.ErrNotFound
	}
	a.CreatedAt = original.CreatedAt
	q.st.applications[a.ID] = a
	return a, nil
}

func (q *queries) GetApplication(_ context.Context, id int64) (models.Application, error) {
	a, ok := q.st.applications[id]
	if !ok {
		return models.Application{}, storage.ErrNotFound
	}
	return a, nil
}

func (q *queries) LockApplication(ctx context.Context, id int64) (models.Application, error) {
	return q.GetApplication(ctx, id)
}

func matchApplication(a models.Application, f storage.ApplicationFilter) bool {
	if f.UserID != nil && a.UserID != *f.UserID {
		return false
	}
	if f.AccountID != nil && a.AccountID != *f.AccountID {
		return false
	}
	if f.Type != nil && a.Type != *f.Type {
		return false
	}
	if f.Status != nil && a.Status != *f.Status {
		return false
	}
	return true
}

func (q *queries) ListApplications(_ context.Context, f storage.ApplicationFilter, p storage.Page) ([]models.Application, error) {
	out := make([]models.Application, 0)
	for _, a := range q.st.applications {
		if matchApplication(a, f) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if p.Offset > 0 {
		if p.Offset >= len(out) {
			return []models.Application{}, nil
		}
		out = out[p.Offset:]
	}
	if p.Limit > 0 && p.Limit < len(out) {
		out = out[:p.Limit]
	}
	return out, nil
}

func (q *queries) CountApplications(_ context.Context, f storage.ApplicationFilter) (int64, error) {
	var n int64
	for _, a := range q.st.applications {
		if matchApplication(a, f) {
			n++
		}
	}
	return n, nil
}

func (q *queries) CountApplicationsByStatus(_ context.Context) (map[models.ApplicationStatus]int64, error) {
	out := make(map[models.ApplicationStatus]int64)
	for _, a := range q.st.applications {
		out[a.Status]++
	}
	return out, nil
}
