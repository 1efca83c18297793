package memory

import (
	"context"
	"sync"
	"time"

	"ai-assistant-be/pkg/store"

	"github.com/patrickmn/go-cache"
)

// SessionStore keeps sessions in process memory with a sliding
// expiration. All access to a session, including the cleanup sweep,
// goes through a per-key lock; different sessions proceed
// independently.
type SessionStore struct {
	cache *cache.Cache
	ttl   time.Duration

	mu    sync.Mutex
	locks map[string]*sessionLock
}

// sessionLock is reference-counted so the locks map can shed entries
// the moment the last holder releases, instead of growing with every
// session id ever seen.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// NewSessionStore creates a store whose sessions expire after ttl of
// inactivity. Expired items are purged every ttl/4 (minimum 1 minute).
func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	sweep := ttl / 4
	if sweep < time.Minute {
		sweep = time.Minute
	}
	return &SessionStore{
		cache: cache.New(ttl, sweep),
		ttl:   ttl,
		locks: map[string]*sessionLock{},
	}
}

// acquire blocks until the caller holds the per-session lock.
func (s *SessionStore) acquire(sessionID string) *sessionLock {
	s.mu.Lock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		s.locks[sessionID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return l
}

// release unlocks and drops the map entry once nobody waits on it.
func (s *SessionStore) release(sessionID string, l *sessionLock) {
	l.mu.Unlock()

	s.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(s.locks, sessionID)
	}
	s.mu.Unlock()
}

func (s *SessionStore) AddMessage(ctx context.Context, sessionID string, msg store.Message) (*store.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l := s.acquire(sessionID)
	defer s.release(sessionID, l)

	now := time.Now()
	var session *store.Session
	if x, found := s.cache.Get(sessionID); found {
		session = x.(*store.Session)
	} else {
		session = &store.Session{ID: sessionID, CreatedAt: now}
	}

	session.Messages = append(session.Messages, msg)
	session.MessageCount = len(session.Messages)
	session.LastActiveAt = now

	// Set refreshes the sliding expiration.
	s.cache.Set(sessionID, session, cache.DefaultExpiration)

	return snapshot(session), nil
}

func (s *SessionStore) Get(ctx context.Context, sessionID string) (*store.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l := s.acquire(sessionID)
	defer s.release(sessionID, l)

	if x, found := s.cache.Get(sessionID); found {
		return snapshot(x.(*store.Session)), nil
	}
	return nil, nil
}

func (s *SessionStore) GetRecentMessages(ctx context.Context, sessionID string, limit int) ([]store.Message, error) {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil || limit <= 0 {
		return []store.Message{}, nil
	}
	msgs := session.Messages
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l := s.acquire(sessionID)
	defer s.release(sessionID, l)
	s.cache.Delete(sessionID)
	return nil
}

// Cleanup sweeps sessions idle longer than maxAge, independent of the
// cache's own expiration, and returns the number reclaimed. Only ids
// are collected from the snapshot; each session is re-read and its
// expiry re-checked under the per-session lock, so the sweep never
// touches state a concurrent append may be mutating.
func (s *SessionStore) Cleanup(ctx context.Context, maxAge time.Duration) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	ids := make([]string, 0, s.cache.ItemCount())
	for id := range s.cache.Items() {
		ids = append(ids, id)
	}

	now := time.Now()
	reclaimed := 0
	for _, id := range ids {
		l := s.acquire(id)
		if x, found := s.cache.Get(id); found {
			if session, ok := x.(*store.Session); ok && now.Sub(session.LastActiveAt) > maxAge {
				s.cache.Delete(id)
				reclaimed++
			}
		}
		s.release(id, l)
	}
	return reclaimed, nil
}

func (s *SessionStore) Close() error { return nil }

// snapshot copies the session so callers never share the mutable slice
// backing live state.
func snapshot(session *store.Session) *store.Session {
	cp := *session
	cp.Messages = make([]store.Message, len(session.Messages))
	copy(cp.Messages, session.Messages)
	return &cp
}

var _ store.SessionStore = (*SessionStore)(nil)
