// Package events defines the contract and concrete payloads for
// system events published after request handling.
package events

import "time"

// Event is the contract for anything placed on the event bus.
type Event interface {
	// EventType returns the unique code for this event.
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is a plain implementation used for constructed events.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// ExchangeRecordedType marks a completed user/assistant exchange.
const ExchangeRecordedType = "CHAT_EXCHANGE_RECORDED"

// NewExchangeRecorded builds the event emitted after both sides of an
// exchange have been durably appended.
func NewExchangeRecorded(sessionID string, pluginMatched bool, degraded bool, at time.Time) BaseEvent {
	return BaseEvent{
		Type: ExchangeRecordedType,
		Data: map[string]interface{}{
			"session_id":     sessionID,
			"plugin_matched": pluginMatched,
			"degraded":       degraded,
			"at":             at.Format(time.RFC3339),
		},
		OccurredAt: at,
	}
}
