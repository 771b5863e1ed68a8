package websocket

import (
	"encoding/json"
	"time"
)

// MessageType identifies the type of WebSocket message.
type MessageType string

const (
	// Server -> Client event types
	TypeSyncCompleted MessageType = "sync.completed"
	TypeSyncError     MessageType = "sync.error"
	TypeMappingsReset MessageType = "mappings.reset"

	// Client -> Server command types
	TypePing MessageType = "ping"

	// Server -> Client response types
	TypePong  MessageType = "pong"
	TypeError MessageType = "error"
)

// Message represents a WebSocket message envelope.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   any         `json:"payload"`
}

// NewMessage creates a new message with the current timestamp.
func NewMessage(msgType MessageType, payload any) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// JSON serializes the message to JSON bytes.
func (m Message) JSON() ([]byte, error) {
	return json.Marshal(m)
}

// SyncPayload is the payload for sync.completed events.
type SyncPayload struct {
	RunID         string  `json:"run_id"`
	Trigger       string  `json:"trigger"`
	EventsFound   int     `json:"events_found"`
	NewEvents     int     `json:"new_events"`
	UpdatedEvents int     `json:"updated_events"`
	DeletedEvents int     `json:"deleted_events"`
	Failed        int     `json:"failed"`
	DurationSecs  float64 `json:"duration_seconds"`
}

// SyncErrorPayload is the payload for sync.error events.
type SyncErrorPayload struct {
	RunID   string `json:"run_id"`
	Trigger string `json:"trigger"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// MappingsResetPayload is the payload for mappings.reset events.
type MappingsResetPayload struct {
	Cleared int `json:"cleared"`
}

// ErrorPayload is the payload for error messages.
type ErrorPayload struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	OriginalType string `json:"original_type,omitempty"`
}
