package revocations

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// MemoryStore is the single-process fallback used when no Redis URL is
// configured. Expired entries are pruned on every Revoke.
type MemoryStore struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	revoked map[string]time.Time
	users   map[int64]cutoff
}

type cutoff struct {
	before time.Time
	until  time.Time
}

func NewMemoryStore(clock clockwork.Clock) *MemoryStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryStore{clock: clock, revoked: make(map[string]time.Time), users: make(map[int64]cutoff)}
}

func (s *MemoryStore) Revoke(_ context.Context, jti string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	for k, exp := range s.revoked {
		if !exp.After(now) {
			delete(s.revoked, k)
		}
	}
	if until.After(now) {
		s.revoked[jti] = until
	}
	return nil
}

func (s *MemoryStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.revoked[jti]
	return ok && exp.After(s.clock.Now()), nil
}

func (s *MemoryStore) RevokeUser(_ context.Context, userID int64, issuedBefore, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	for id, c := range s.users {
		if !c.until.After(now) {
			delete(s.users, id)
		}
	}
	if until.After(now) {
		s.users[userID] = cutoff{before: issuedBefore.Truncate(time.Second), until: until}
	}
	return nil
}

func (s *MemoryStore) UserCutoff(_ context.Context, userID int64) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.users[userID]
	if !ok || !c.until.After(s.clock.Now()) {
		return time.Time{}, nil
	}
	return c.before, nil
}

func (s *MemoryStore) Close() error { return nil }

// Len reports how many entries are held, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.revoked) + len(s.users)
}
