package tokenstorage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRevokeUntilExpiry(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	s := New()
	s.now = func() time.Time { return now }

	s.Revoke("a", now.Add(time.Hour))
	assert.True(t, s.IsRevoked("a"))
	assert.False(t, s.IsRevoked("b"))

	now = now.Add(2 * time.Hour)
	assert.False(t, s.IsRevoked("a"))

	s.Revoke("b", now.Add(time.Minute))
	assert.Len(t, s.revoked, 1)
}
