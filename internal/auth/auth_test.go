package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/sol1corejz/gobank/internal/apperr"
	"github.com/sol1corejz/gobank/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	m := NewManager("secret", time.Hour)
	id := Identity{UserID: uuid.New(), Role: models.RoleEmployee}

	token, err := m.GenerateToken(id)
	require.NoError(t, err)

	got, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestParseRejectsForeignAndExpiredTokens(t *testing.T) {
	m := NewManager("secret", time.Hour)
	id := Identity{UserID: uuid.New(), Role: models.RoleUser}

	other, err := NewManager("other", time.Hour).GenerateToken(id)
	require.NoError(t, err)
	_, err = m.Parse(other)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := m.GenerateToken(id)
	require.NoError(t, err)
	_, err = m.Parse(expired)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	_, err = m.Parse("")
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestParseRejectsNoneAlgorithm(t *testing.T) {
	m := NewManager("secret", time.Hour)
	token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: uuid.NewString(), Role: models.RoleAdmin})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = m.Parse(signed)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)

	assert.True(t, CheckPassword(hash, "hunter2"))
	assert.False(t, CheckPassword(hash, "hunter3"))
}
