// Package session implements the process-global opaque-cookie session
// table: at most one record per id, expiry renewed on every
// authenticated touch.
package session

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jacobsa/syncutil"
	"github.com/jacobsa/timeutil"
)

// DefaultTTL is the lifetime assigned to a freshly created or touched
// session.
const DefaultTTL = time.Hour

// Session is one process-global record keyed by its id.
type Session struct {
	ID        string
	CreatedAt time.Time
	ExpiresAt time.Time
	Data      map[string]string
}

func (s Session) expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Store is the single mutex-guarded owner of the session table.
type Store struct {
	clock timeutil.Clock

	mu syncutil.InvariantMutex
	// GUARDED_BY(mu)
	byID map[string]*Session
}

// NewStore creates an empty session store using the real wall clock.
func NewStore() *Store {
	return NewStoreWithClock(timeutil.RealClock())
}

// NewStoreWithClock creates an empty session store using clock, so
// tests can control expiry deterministically without sleeping.
func NewStoreWithClock(clock timeutil.Clock) *Store {
	s := &Store{
		clock: clock,
		byID:  make(map[string]*Session),
	}
	s.mu = syncutil.NewInvariantMutex(s.checkInvariants)
	return s
}

// checkInvariants verifies each record is stored under its own id.
func (s *Store) checkInvariants() {
	for id, sess := range s.byID {
		if sess.ID != id {
			panic(fmt.Sprintf("session %q stored under key %q", sess.ID, id))
		}
	}
}

// Create inserts a new session under a fresh UUIDv4 id and returns the
// id.
func (s *Store) Create() string {
	now := s.clock.Now()
	id := uuid.New().String()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.byID[id] = &Session{
		ID:        id,
		CreatedAt: now,
		ExpiresAt: now.Add(DefaultTTL),
		Data:      make(map[string]string),
	}

	return id
}

// Touch looks up id, and if present and not expired, renews its expiry
// to now+1h and returns (session, true). A missing or expired id
// returns (nil, false); an expired entry is evicted.
func (s *Store) Touch(id string) (*Session, bool) {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	if sess.expired(now) {
		delete(s.byID, id)
		return nil, false
	}

	sess.ExpiresAt = now.Add(DefaultTTL)
	return sess, true
}

// Lookup returns id's session without renewing its expiry, or
// (nil, false) if absent or expired.
func (s *Store) Lookup(id string) (*Session, bool) {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.byID[id]
	if !ok || sess.expired(now) {
		return nil, false
	}
	return sess, true
}

// PublicPaths are the two routes that bypass the session check
// regardless of per-route configuration.
var PublicPaths = map[string]bool{
	"/session":        true,
	"/create-session": true,
}
