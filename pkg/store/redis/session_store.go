package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ai-assistant-be/internal/pkg/apperror"
	"ai-assistant-be/pkg/store"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "chat:session:"
	sessionIndexKey  = "chat:sessions"

	// casAttempts bounds the optimistic retry loop on WATCH conflicts.
	casAttempts = 16
)

// SessionStore persists sessions as JSON values with a sliding TTL.
// Lost updates are prevented with a WATCH-based check-and-set loop:
// the session key is watched, the append happens in a transaction, and
// the write is retried if another writer touched the key in between.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionStore connects to Redis at url (redis:// form) and applies
// ttl as the sliding expiration on every write.
func NewSessionStore(url string, ttl time.Duration) (*SessionStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionStore{
		client: redis.NewClient(opts),
		ttl:    ttl,
	}, nil
}

func sessionKey(sessionID string) string {
	return sessionKeyPrefix + sessionID
}

func (s *SessionStore) AddMessage(ctx context.Context, sessionID string, msg store.Message) (*store.Session, error) {
	key := sessionKey(sessionID)
	var result *store.Session

	txn := func(tx *redis.Tx) error {
		now := time.Now()
		session := &store.Session{ID: sessionID, CreatedAt: now}

		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			if err := json.Unmarshal(raw, session); err != nil {
				// Undecodable record: data loss for this key, start over.
				*session = store.Session{ID: sessionID, CreatedAt: now}
			}
		case errors.Is(err, redis.Nil):
			// First message for an unseen session id.
		default:
			return err
		}

		session.Messages = append(session.Messages, msg)
		session.MessageCount = len(session.Messages)
		session.LastActiveAt = now

		encoded, err := json.Marshal(session)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, s.ttl)
			pipe.SAdd(ctx, sessionIndexKey, sessionID)
			return nil
		})
		if err != nil {
			return err
		}
		result = session
		return nil
	}

	for i := 0; i < casAttempts; i++ {
		err := s.client.Watch(ctx, txn, key)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue // concurrent writer, re-read and retry
		}
		return nil, err
	}
	return nil, fmt.Errorf("session %s: append contention exceeded %d attempts", sessionID, casAttempts)
}

func (s *SessionStore) Get(ctx context.Context, sessionID string) (*store.Session, error) {
	raw, err := s.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var session store.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, apperror.Wrap(apperror.ErrCorruptState, fmt.Errorf("decode session %s: %w", sessionID, err))
	}
	return &session, nil
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
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, sessionKey(sessionID))
	pipe.SRem(ctx, sessionIndexKey, sessionID)
	_, err := pipe.Exec(ctx)
	return err
}

// Cleanup walks the session index and removes entries whose keys have
// already expired or whose last activity exceeds maxAge. Redis TTLs do
// the real reclamation; this keeps the index set honest.
func (s *SessionStore) Cleanup(ctx context.Context, maxAge time.Duration) (int, error) {
	ids, err := s.client.SMembers(ctx, sessionIndexKey).Result()
	if err != nil {
		return 0, err
	}
	now := time.Now()
	reclaimed := 0
	for _, id := range ids {
		session, err := s.Get(ctx, id)
		if err != nil {
			continue
		}
		if session == nil || now.Sub(session.LastActiveAt) > maxAge {
			if err := s.Delete(ctx, id); err == nil {
				reclaimed++
			}
		}
	}
	return reclaimed, nil
}

func (s *SessionStore) Close() error {
	return s.client.Close()
}

var _ store.SessionStore = (*SessionStore)(nil)
