package service

import (
	"context"
	"errors"
	"strings"

	"github.com/sol1corejz/gobank/internal/apperr"
	"github.com/sol1corejz/gobank/internal/auth"
	"github.com/sol1corejz/gobank/internal/models"
	"github.com/sol1corejz/gobank/internal/storage"
)

type EmployeeRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	FullName    string `json:"fullName"`
	PhoneNumber string `json:"phoneNumber"`
}

// EmployeeUpdate replaces the profile fields; Email and Password change only
// when set.
type EmployeeUpdate struct {
	FullName    string  `json:"fullName"`
	PhoneNumber string  `json:"phoneNumber"`
	Email       *string `json:"email"`
	Password    *string `json:"password"`
}

// EmployeeView is an employee joined with its login.
type EmployeeView struct {
	models.Employee
	Username string `json:"username"`
	Email    string `json:"email"`
}

type Employees struct {
	store storage.Store
	now   Clock
}

func NewEmployees(store storage.Store) *Employees {
	return &Employees{store: store, now: utcNow}
}

func (s *Employees) Create(ctx context.Context, req EmployeeRequest) (EmployeeView, error) {
	signup := SignupRequest{Username: req.Username, Email: req.Email, Password: req.Password}
	if err := signup.validate(); err != nil {
		return EmployeeView{}, err
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return EmployeeView{}, err
	}

	var view EmployeeView
	err = s.store.RunAtomic(ctx, func(q storage.Queries) error {
		user, err := createUser(ctx, q, models.User{
			Username:     strings.TrimSpace(req.Username),
			Email:        strings.TrimSpace(req.Email),
			PasswordHash: hash,
			Role:         models.RoleEmployee,
			CreatedAt:    s.now(),
		})
		if err != nil {
			return err
		}
		employee, err := q.CreateEmployee(ctx, models.Employee{
			UserID:      user.ID,
			FullName:    req.FullName,
			PhoneNumber: req.PhoneNumber,
		})
		if err != nil {
			return err
		}
		view = EmployeeView{Employee: employee, Username: user.Username, Email: user.Email}
		return nil
	})
	if err != nil {
		return EmployeeView{}, err
	}
	return view, nil
}

func (s *Employees) Get(ctx context.Context, id int64) (EmployeeView, error) {
	var view EmployeeView
	err := s.store.View(ctx, func(q storage.Queries) error {
		employee, err := q.GetEmployee(ctx, id)
		if err != nil {
			return notFound(err, "employee %d not found", id)
		}
		view, err = employeeView(ctx, q, employee)
		return err
	})
	return view, err
}

func (s *Employees) List(ctx context.Context) ([]EmployeeView, error) {
	var views []EmployeeView
	err := s.store.View(ctx, func(q storage.Queries) error {
		employees, err := q.ListEmployees(ctx)
		if err != nil {
			return err
		}
		views = make([]EmployeeView, 0, len(employees))
		for _, e := range employees {
			v, err := employeeView(ctx, q, e)
			if err != nil {
				return err
			}
			views = append(views, v)
		}
		return nil
	})
	return views, err
}

func (s *Employees) Update(ctx context.Context, id int64, upd EmployeeUpdate) (EmployeeView, error) {
	var hash string
	if upd.Password != nil {
		if *upd.Password == "" {
			return EmployeeView{}, apperr.InvalidArgument("password must not be empty")
		}
		var err error
		if hash, err = auth.HashPassword(*upd.Password); err != nil {
			return EmployeeView{}, err
		}
	}

	var view EmployeeView
	err := s.store.RunAtomic(ctx, func(q storage.Queries) error {
		employee, err := q.GetEmployee(ctx, id)
		if err != nil {
			return notFound(err, "employee %d not found", id)
		}
		user, err := q.GetUser(ctx, employee.UserID)
		if err != nil {
			return notFound(err, "employee %d has no user", id)
		}

		if upd.Email != nil {
			email := strings.TrimSpace(*upd.Email)
			if email == "" || !strings.Contains(email, "@") {
				return apperr.InvalidArgument("a valid email is required")
			}
			if email != user.Email {
				if _, err := q.GetUserByEmail(ctx, email); err == nil {
					return apperr.Conflict("email %q is already registered", email)
				} else if !errors.Is(err, storage.ErrNotFound) {
					return err
				}
			}
			user.Email = email
		}
		if hash != "" {
			user.PasswordHash = hash
		}
		if user, err = q.UpdateUser(ctx, user); err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				return apperr.Conflict("email %q is already registered", user.Email)
			}
			return err
		}

		employee.FullName = upd.FullName
		employee.PhoneNumber = upd.PhoneNumber
		if employee, err = q.UpdateEmployee(ctx, employee); err != nil {
			return err
		}
		view = EmployeeView{Employee: employee, Username: user.Username, Email: user.Email}
		return nil
	})
	if err != nil {
		return EmployeeView{}, err
	}
	return view, nil
}

// Delete removes the employee together with its user.
func (s *Employees) Delete(ctx context.Context, id int64) error {
	return s.store.RunAtomic(ctx, func(q storage.Queries) error {
		employee, err := q.GetEmployee(ctx, id)
		if err != nil {
			return notFound(err, "employee %d not found", id)
		}
		return q.DeleteUser(ctx, employee.UserID)
	})
}

func employeeView(ctx context.Context, q storage.Queries, e models.Employee) (EmployeeView, error) {
	user, err := q.GetUser(ctx, e.UserID)
	if err != nil {
		return EmployeeView{}, notFound(err, "employee %d has no user", e.ID)
	}
	return EmployeeView{Employee: e, Username: user.Username, Email: user.Email}, nil
}
