package store

import (
	"context"
	"time"
)

// Message roles in provider-agnostic form.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is a single conversation turn. Immutable once appended.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is the durable conversation state for one external session id.
// Messages are append-only; insertion order is chronological order.
type Session struct {
	ID           string    `json:"id"`
	Messages     []Message `json:"messages"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
	MessageCount int       `json:"message_count"`
}

// SessionStore is the persistence boundary for conversation state.
//
// AddMessage must be atomic with respect to its read-modify-write cycle:
// two concurrent appends for the same session id must never silently
// drop one of the two messages. Appends for different sessions need no
// coordination.
type SessionStore interface {
	// AddMessage appends a message, creating the session on first use.
	// Returns the session state after the append.
	AddMessage(ctx context.Context, sessionID string, msg Message) (*Session, error)

	// Get returns the session, or (nil, nil) for an unseen id.
	Get(ctx context.Context, sessionID string) (*Session, error)

	// GetRecentMessages returns the most recent limit messages in
	// chronological order (oldest of the slice first). Unseen sessions
	// yield an empty slice, not an error.
	GetRecentMessages(ctx context.Context, sessionID string, limit int) ([]Message, error)

	// Delete removes the session. Deleting an unseen id is a no-op.
	Delete(ctx context.Context, sessionID string) error

	// Cleanup reclaims sessions idle longer than maxAge and returns how
	// many were removed. Backends with native expiration may reclaim
	// lazily and return 0.
	Cleanup(ctx context.Context, maxAge time.Duration) (int, error)

	Close() error
}
