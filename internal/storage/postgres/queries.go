package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sol1corejz/gobank/internal/models"
	"github.com/sol1corejz/gobank/internal/storage"
)

const (
	userColumns        = `id, username, email, password_hash, role, created_at`
	clientColumns      = `id, user_id, full_name, phone_number, blocked`
	employeeColumns    = `id, user_id, full_name, phone_number`
	accountColumns     = `id, user_id, account_number, type, balance, status`
	transactionColumns = `id, from_account_id, to_account_id, to_external, amount, type, created_at`
	applicationColumns = `id, user_id, account_id, type, status, comment, created_at, updated_at`
)

// queries runs against either the pool or an open transaction.
type queries struct {
	ext sqlx.ExtContext
}

var _ storage.Queries = (*queries)(nil)

type where struct {
	conds []string
	args  []any
}

// add appends a condition; format holds one %d for the placeholder index.
func (w *where) add(format string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, fmt.Sprintf(format, len(w.args)))
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func (q *queries) get(ctx context.Context, dest any, query string, args ...any) error {
	return translate(sqlx.GetContext(ctx, q.ext, dest, query, args...))
}

func (q *queries) selectAll(ctx context.Context, dest any, query string, args ...any) error {
	return translate(sqlx.SelectContext(ctx, q.ext, dest, query, args...))
}

// --- users ------------------------------------------------------------------

func (q *queries) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	err := q.ext.QueryRowxContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at;
	`, u.ID, u.Username, u.Email, u.PasswordHash, string(u.Role)).Scan(&u.CreatedAt)
	if err != nil {
		return models.User{}, translate(err)
	}
	return u, nil
}

func (q *queries) UpdateUser(ctx context.Context, u models.User) (models.User, error) {
	err := affected(q.ext.ExecContext(ctx, `
		UPDATE users SET username = $2, email = $3, password_hash = $4 WHERE id = $1;
	`, u.ID, u.Username, u.Email, u.PasswordHash))
	if err != nil {
		return models.User{}, err
	}
	return q.GetUser(ctx, u.ID)
}

func (q *queries) GetUser(ctx context.Context, id uuid.UUID) (models.User, error) {
	var u models.User
	err := q.get(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id = $1;`, id)
	return u, err
}

func (q *queries) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	var u models.User
	err := q.get(ctx, &u, `SELECT `+userColumns+` FROM users WHERE username = $1;`, username)
	return u, err
}

func (q *queries) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	err := q.get(ctx, &u, `SELECT `+userColumns+` FROM users WHERE email = $1;`, email)
	return u, err
}

func (q *queries) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := q.selectAll(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY created_at, id;`)
	return users, err
}

func (q *queries) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return affected(q.ext.ExecContext(ctx, `DELETE FROM users WHERE id = $1;`, id))
}

// --- clients ----------------------------------------------------------------

func (q *queries) CreateClient(ctx context.Context, c models.Client) (models.Client, error) {
	err := q.ext.QueryRowxContext(ctx, `
		INSERT INTO clients (user_id, full_name, phone_number, blocked)
		VALUES ($1, $2, $3, $4)
		RETURNING id;
	`, c.UserID, c.FullName, c.PhoneNumber, c.Blocked).Scan(&c.ID)
	if err != nil {
		return models.Client{}, translate(err)
	}
	return c, nil
}

func (q *queries) UpdateClient(ctx context.Context, c models.Client) (models.Client, error) {
	err := affected(q.ext.ExecContext(ctx, `
		UPDATE clients SET full_name = $2, phone_number = $3, blocked = $4 WHERE id = $1;
	`, c.ID, c.FullName, c.PhoneNumber, c.Blocked))
	if err != nil {
		return models.Client{}, err
	}
	return q.GetClient(ctx, c.ID)
}

func (q *queries) GetClient(ctx context.Context, id int64) (models.Client, error) {
	var c models.Client
	err := q.get(ctx, &c, `SELECT `+clientColumns+` FROM clients WHERE id = $1;`, id)
	return c, err
}

func (q *queries) GetClientByUserID(ctx context.Context, userID uuid.UUID) (models.Client, error) {
	var c models.Client
	err := q.get(ctx, &c, `SELECT `+clientColumns+` FROM clients WHERE user_id = $1;`, userID)
	return c, err
}

func (q *queries) ListClients(ctx context.Context) ([]models.Client, error) {
	var clients []models.Client
	err := q.selectAll(ctx, &clients, `SELECT `+clientColumns+` FROM clients ORDER BY id;`)
	return clients, err
}

// --- employees --------------------------------------------------------------

func (q *queries) CreateEmployee(ctx context.Context, e models.Employee) (models.Employee, error) {
	err := q.ext.QueryRowxContext(ctx, `
		INSERT INTO employees (user_id, full_name, phone_number)
		VALUES ($1, $2, $3)
		RETURNING id;
	`, e.UserID, e.FullName, e.PhoneNumber).Scan(&e.ID)
	if err != nil {
		return models.Employee{}, translate(err)
	}
	return e, nil
}

func (q *queries) UpdateEmployee(ctx context.Context, e models.Employee) (models.Employee, error) {
	err := affected(q.ext.ExecContext(ctx, `
		UPDATE employees SET full_name = $2, phone_number = $3 WHERE id = $1;
	`, e.ID, e.FullName, e.PhoneNumber))
	if err != nil {
		return models.Employee{}, err
	}
	return q.GetEmployee(ctx, e.ID)
}

func (q *queries) GetEmployee(ctx context.Context, id int64) (models.Employee, error) {
	var e models.Employee
	err := q.get(ctx, &e, `SELECT `+employeeColumns+` FROM employees WHERE id = $1;`, id)
	return e, err
}

func (q *queries) GetEmployeeByUserID(ctx context.Context, userID uuid.UUID) (models.Employee, error) {
	var e models.Employee
	err := q.get(ctx, &e, `SELECT `+employeeColumns+` FROM employees WHERE user_id = $1;`, userID)
	return e, err
}

func (q *queries) ListEmployees(ctx context.Context) ([]models.Employee, error) {
	var employees []models.Employee
	err := q.selectAll(ctx, &employees, `SELECT `+employeeColumns+` FROM employees ORDER BY id;`)
	return employees, err
}

func (q *queries) DeleteEmployee(ctx context.Context, id int64) error {
	return affected(q.ext.ExecContext(ctx, `DELETE FROM employees WHERE id = $1;`, id))
}

// --- accounts ---------------------------------------------------------------

func (q *queries) CreateAccount(ctx context.Context, a models.Account) (models.Account, error) {
	err := q.ext.QueryRowxContext(ctx, `
		INSERT INTO accounts (user_id, account_number, type, balance, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id;
	`, a.UserID, a.AccountNumber, string(a.Type), a.Balance, string(a.Status)).Scan(&a.ID)
	if err != nil {
		return models.Account{}, translate(err)
	}
	return a, nil
}

func (q *queries) UpdateAccount(ctx context.Context, a models.Account) (models.Account, error) {
	err := affected(q.ext.ExecContext(ctx, `
		UPDATE accounts SET type = $2, balance = $3, status = $4 WHERE id = $1;
	`, a.ID, string(a.Type), a.Balance, string(a.Status)))
	if err != nil {
		return models.Account{}, err
	}
	return q.GetAccount(ctx, a.ID)
}

func (q *queries) GetAccount(ctx context.Context, id int64) (models.Account, error) {
	var a models.Account
	err := q.get(ctx, &a, `SELECT `+accountColumns+` FROM accounts WHERE id = $1;`, id)
	return a, err
}

func (q *queries) LockAccount(ctx context.Context, id int64) (models.Account, error) {
	var a models.Account
	err := q.get(ctx, &a, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE;`, id)
	return a, err
}

func (q *queries) GetAccountByNumber(ctx context.Context, number string) (models.Account, error) {
	var a models.Account
	err := q.get(ctx, &a, `SELECT `+accountColumns+` FROM accounts WHERE account_number = $1;`, number)
	return a, err
}

func accountWhere(f storage.AccountFilter) *where {
	w := &where{}
	if f.UserID != nil {
		w.add("user_id = $%d", *f.UserID)
	}
	if f.Status != nil {
		w.add("status = $%d", string(*f.Status))
	}
	if f.Type != nil {
		w.add("type = $%d", string(*f.Type))
	}
	return w
}

func (q *queries) ListAccounts(ctx context.Context, f storage.AccountFilter) ([]models.Account, error) {
	w := accountWhere(f)
	var accounts []models.Account
	err := q.selectAll(ctx, &accounts, `SELECT `+accountColumns+` FROM accounts`+w.String()+` ORDER BY id;`, w.args...)
	return accounts, err
}

func (q *queries) CountAccounts(ctx context.Context, f storage.AccountFilter) (int64, error) {
	w := accountWhere(f)
	var n int64
	err := q.get(ctx, &n, `SELECT COUNT(*) FROM accounts`+w.String()+`;`, w.args...)
	return n, err
}

func (q *queries) DeleteAccount(ctx context.Context, id int64) error {
	return affected(q.ext.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1;`, id))
}

// --- transactions -----------------------------------------------------------

func (q *queries) CreateTransaction(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	err := q.ext.QueryRowxContext(ctx, `
		INSERT INTO transactions (from_account_id, to_account_id, to_external, amount, type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id;
	`, t.FromAccountID, t.ToAccountID, t.ToExternal, t.Amount, string(t.Type), t.CreatedAt).Scan(&t.ID)
	if err != nil {
		return models.Transaction{}, translate(err)
	}
	return t, nil
}

func (q *queries) ListTransactions(ctx context.Context, accountID int64, r storage.TimeRange) ([]models.Transaction, error) {
	w := &where{}
	w.add("(from_account_id = $%[1]d OR to_account_id = $%[1]d)", accountID)
	if !r.From.IsZero() {
		w.add("created_at >= $%d", r.From)
	}
	if !r.To.IsZero() {
		w.add("created_at <= $%d", r.To)
	}

	var txs []models.Transaction
	err := q.selectAll(ctx, &txs, `SELECT `+transactionColumns+` FROM transactions`+w.String()+
		` ORDER BY created_at DESC, id DESC;`, w.args...)
	return txs, err
}

// --- applications -----------------------------------------------------------

func (q *queries) CreateApplication(ctx context.Context, a models.Application) (models.Application, error) {
	err := q.ext.QueryRowxContext(ctx, `
		INSERT INTO applications (user_id, account_id, type, status, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id;
	`, a.UserID, a.AccountID, string(a.Type), string(a.Status), a.Comment, a.CreatedAt).Scan(&a.ID)
	if err != nil {
		return models.Application{}, translate(err)
	}
	return a, nil
}

func (q *queries) UpdateApplication(ctx context.Context, a models.Application) (models.Application, error) {
	err := affected(q.ext.ExecContext(ctx, `
		UPDATE applications SET status = $2, comment = $3, updated_at = $4 WHERE id = $1;
	`, a.ID, string(a.Status), a.Comment, a.UpdatedAt))
	if err != nil {
		return models.Application{}, err
	}
	return q.GetApplication(ctx, a.ID)
}

func (q *queries) GetApplication(ctx context.Context, id int64) (models.Application, error) {
	var a models.Application
	err := q.get(ctx, &a, `SELECT `+applicationColumns+` FROM applications WHERE id = $1;`, id)
	return a, err
}

func (q *queries) LockApplication(ctx context.Context, id int64) (models.Application, error) {
	var a models.Application
	err := q.get(ctx, &a, `SELECT `+applicationColumns+` FROM applications WHERE id = $1 FOR UPDATE;`, id)
	return a, err
}

func applicationWhere(f storage.ApplicationFilter) *where {
	w := &where{}
	if f.UserID != nil {
		w.add("user_id = $%d", *f.UserID)
	}
	if f.AccountID != nil {
		w.add("account_id = $%d", *f.AccountID)
	}
	if f.Type != nil {
		w.add("type = $%d", string(*f.Type))
	}
	if f.Status != nil {
		w.add("status = $%d", string(*f.Status))
	}
	return w
}

func (q *queries) ListApplications(ctx context.Context, f storage.ApplicationFilter, p storage.Page) ([]models.Application, error) {
	w := applicationWhere(f)
	query := `SELECT ` + applicationColumns + ` FROM applications` + w.String() + ` ORDER BY created_at DESC, id DESC`
	args := w.args
	if p.Limit > 0 {
		args = append(args, p.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if p.Offset > 0 {
		args = append(args, p.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	var apps []models.Application
	err := q.selectAll(ctx, &apps, query+";", args...)
	return apps, err
}

func (q *queries) CountApplications(ctx context.Context, f storage.ApplicationFilter) (int64, error) {
	w := applicationWhere(f)
	var n int64
	err := q.get(ctx, &n, `SELECT COUNT(*) FROM applications`+w.String()+`;`, w.args...)
	return n, err
}

func (q *queries) CountApplicationsByStatus(ctx context.Context) (map[models.ApplicationStatus]int64, error) {
	var rows []struct {
		Status models.ApplicationStatus `db:"status"`
		Count  int64                    `db:"count"`
	}
	if err := q.selectAll(ctx, &rows, `SELECT status, COUNT(*) AS count FROM applications GROUP BY status;`); err != nil {
		return nil, err
	}

	out := make(map[models.ApplicationStatus]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.Count
	}
	return out, nil
}
