package dto

import "time"

// SendMessageRequest is the inbound chat payload. The session id is
// caller-chosen; an unseen id starts a new session.
type SendMessageRequest struct {
	SessionID string `json:"session_id" validate:"required,min=1,max=100,session_id"`
	Message   string `json:"message" validate:"required"`
}

// SendMessageResponse carries the assistant reply.
type SendMessageResponse struct {
	Reply     string         `json:"reply"`
	SessionID string         `json:"session_id"`
	Timestamp time.Time      `json:"timestamp"`
	Plugin    *PluginInfoDTO `json:"plugin,omitempty"`
}

// PluginInfoDTO surfaces structured plugin output when one matched.
type PluginInfoDTO struct {
	Matched bool           `json:"matched"`
	Data    map[string]any `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// SessionHistoryResponse lists recent messages for one session.
type SessionHistoryResponse struct {
	SessionID    string           `json:"session_id"`
	MessageCount int              `json:"message_count"`
	Messages     []ChatMessageDTO `json:"messages"`
}

type ChatMessageDTO struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthResponse reports process and retrieval readiness.
type HealthResponse struct {
	Status       string `json:"status"`
	RagReady     bool   `json:"rag_ready"`
	IndexedCount int    `json:"indexed_chunks"`
}
