package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/sol1corejz/gobank/internal/apperr"
	"github.com/sol1corejz/gobank/internal/auth"
	"github.com/sol1corejz/gobank/internal/logger"
	"github.com/sol1corejz/gobank/internal/models"
	"github.com/sol1corejz/gobank/internal/storage"
	"go.uber.org/zap"
)

// TokenIssuer signs access tokens for an authenticated identity.
type TokenIssuer interface {
	GenerateToken(id auth.Identity) (string, error)
}

type SignupRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	FullName    string `json:"fullName"`
	PhoneNumber string `json:"phoneNumber"`
}

type Session struct {
	Token    string           `json:"token"`
	User     models.User      `json:"user"`
	Role     models.Role      `json:"role"`
	Client   *models.Client   `json:"client,omitempty"`
	Employee *models.Employee `json:"employee,omitempty"`
}

type Users struct {
	store  storage.Store
	tokens TokenIssuer
	now    Clock
}

func NewUsers(store storage.Store, tokens TokenIssuer) *Users {
	return &Users{store: store, tokens: tokens, now: utcNow}
}

// Signup registers a USER together with its client profile.
func (s *Users) Signup(ctx context.Context, req SignupRequest) (models.User, models.Client, error) {
	if err := req.validate(); err != nil {
		return models.User{}, models.Client{}, err
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return models.User{}, models.Client{}, err
	}

	var (
		user   models.User
		client models.Client
	)
	err = s.store.RunAtomic(ctx, func(q storage.Queries) error {
		var err error
		user, err = createUser(ctx, q, models.User{
			Username:     strings.TrimSpace(req.Username),
			Email:        strings.TrimSpace(req.Email),
			PasswordHash: hash,
			Role:         models.RoleUser,
			CreatedAt:    s.now(),
		})
		if err != nil {
			return err
		}
		client, err = q.CreateClient(ctx, models.Client{
			UserID:      user.ID,
			FullName:    req.FullName,
			PhoneNumber: req.PhoneNumber,
		})
		return err
	})
	if err != nil {
		return models.User{}, models.Client{}, err
	}
	return user, client, nil
}

// Signin checks the credentials and issues a token.
func (s *Users) Signin(ctx context.Context, username, password string) (Session, error) {
	var session Session
	err := s.store.View(ctx, func(q storage.Queries) error {
		user, err := q.GetUserByUsername(ctx, strings.TrimSpace(username))
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return apperr.Unauthenticated("invalid username or password")
			}
			return err
		}
		if !auth.CheckPassword(user.PasswordHash, password) {
			return apperr.Unauthenticated("invalid username or password")
		}
		session.User = user
		session.Role = user.Role

		switch user.Role {
		case models.RoleUser:
			client, err := q.GetClientByUserID(ctx, user.ID)
			if err != nil {
				return notFound(err, "client profile not found")
			}
			if client.Blocked {
				return apperr.Forbidden("client is blocked")
			}
			session.Client = &client
		case models.RoleEmployee:
			employee, err := q.GetEmployeeByUserID(ctx, user.ID)
			if err != nil {
				return notFound(err, "employee profile not found")
			}
			session.Employee = &employee
		}
		return nil
	})
	if err != nil {
		return Session{}, err
	}

	session.Token, err = s.tokens.GenerateToken(auth.Identity{UserID: session.User.ID, Role: session.Role})
	if err != nil {
		return Session{}, err
	}
	return session, nil
}

// ListUsers returns every user in creation order.
func (s *Users) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.store.View(ctx, func(q storage.Queries) error {
		var err error
		users, err = q.ListUsers(ctx)
		return err
	})
	return users, err
}

func (s *Users) ListClients(ctx context.Context) ([]models.Client, error) {
	var clients []models.Client
	err := s.store.View(ctx, func(q storage.Queries) error {
		var err error
		clients, err = q.ListClients(ctx)
		return err
	})
	return clients, err
}

func (s *Users) BlockClient(ctx context.Context, clientID int64) (models.Client, error) {
	return s.setClientBlocked(ctx, clientID, true)
}

func (s *Users) UnblockClient(ctx context.Context, clientID int64) (models.Client, error) {
	return s.setClientBlocked(ctx, clientID, false)
}

func (s *Users) setClientBlocked(ctx context.Context, clientID int64, blocked bool) (models.Client, error) {
	var client models.Client
	err := s.store.RunAtomic(ctx, func(q storage.Queries) error {
		var err error
		client, err = q.GetClient(ctx, clientID)
		if err != nil {
			return notFound(err, "client %d not found", clientID)
		}
		client.Blocked = blocked
		client, err = q.UpdateClient(ctx, client)
		return err
	})
	return client, err
}

// EnsureAdmin creates the bootstrap ADMIN user unless the username is taken.
func (s *Users) EnsureAdmin(ctx context.Context, username, email, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	return s.store.RunAtomic(ctx, func(q storage.Queries) error {
		_, err := q.GetUserByUsername(ctx, username)
		if err == nil {
			return nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		admin, err := createUser(ctx, q, models.User{
			Username:     username,
			Email:        strings.TrimSpace(email),
			PasswordHash: hash,
			Role:         models.RoleAdmin,
			CreatedAt:    s.now(),
		})
		if err != nil {
			return err
		}
		logger.Log.Info("bootstrap admin created", zap.String("username", admin.Username))
		return nil
	})
}

// createUser inserts a user after checking that the username and email are
// free. The unique constraints still back the checks up under concurrency.
func createUser(ctx context.Context, q storage.Queries, u models.User) (models.User, error) {
	if _, err := q.GetUserByUsername(ctx, u.Username); err == nil {
		return models.User{}, apperr.Conflict("username %q is already taken", u.Username)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return models.User{}, err
	}
	if _, err := q.GetUserByEmail(ctx, u.Email); err == nil {
		return models.User{}, apperr.Conflict("email %q is already registered", u.Email)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return models.User{}, err
	}

	u.ID = uuid.New()
	created, err := q.CreateUser(ctx, u)
	if errors.Is(err, storage.ErrDuplicate) {
		return models.User{}, apperr.Conflict("username or email is already registered")
	}
	return created, err
}

func (r SignupRequest) validate() error {
	switch {
	case strings.TrimSpace(r.Username) == "":
		return apperr.InvalidArgument("username is required")
	case strings.TrimSpace(r.Email) == "" || !strings.Contains(r.Email, "@"):
		return apperr.InvalidArgument("a valid email is required")
	case r.Password == "":
		return apperr.InvalidArgument("password is required")
	}
	return nil
}
