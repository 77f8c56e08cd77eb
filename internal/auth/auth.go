package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/sol1corejz/gobank/internal/apperr"
	"github.com/sol1corejz/gobank/internal/models"
	"golang.org/x/crypto/bcrypt"
)

const DefaultTokenExp = time.Hour * 24

// Identity is the pre-validated caller handed to the banking core.
type Identity struct {
	UserID uuid.UUID
	Role   models.Role
}

type Claims struct {
	jwt.RegisteredClaims
	UserID string      `json:"userID"`
	Role   models.Role `json:"role"`
}

type Manager struct {
	secret   []byte
	tokenExp time.Duration
	now      func() time.Time
}

func NewManager(secret string, tokenExp time.Duration) *Manager {
	if tokenExp <= 0 {
		tokenExp = DefaultTokenExp
	}
	return &Manager{secret: []byte(secret), tokenExp: tokenExp, now: time.Now}
}

func (m *Manager) TokenExp() time.Duration { return m.tokenExp }

func (m *Manager) GenerateToken(id Identity) (string, error) {
	now := m.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   id.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenExp)),
		},
		UserID: id.UserID.String(),
		Role:   id.Role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *Manager) Parse(tokenString string) (Identity, error) {
	if tokenString == "" {
		return Identity{}, apperr.Unauthenticated("Unauthorized")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, apperr.Unauthenticated("Invalid or expired token")
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil || !claims.Role.Valid() {
		return Identity{}, apperr.Unauthenticated("Invalid or expired token")
	}

	return Identity{UserID: userID, Role: claims.Role}, nil
}

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
