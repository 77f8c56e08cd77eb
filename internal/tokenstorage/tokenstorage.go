// Package tokenstorage keeps the tokens revoked by sign-out until they would
// have expired anyway.
package tokenstorage

import (
	"sync"
	"time"
)

type Store struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

func New() *Store {
	return &Store{revoked: make(map[string]time.Time), now: time.Now}
}

func (s *Store) Revoke(token string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked()
	s.revoked[token] = expiresAt
}

func (s *Store) IsRevoked(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.revoked[token]
	return ok && s.now().Before(exp)
}

func (s *Store) pruneLocked() {
	now := s.now()
	for token, exp := range s.revoked {
		if !now.Before(exp) {
			delete(s.revoked, token)
		}
	}
}
