package websocket

import (
	"go.uber.org/zap"

	"github.com/fhdsa/eventbridge/internal/storage/models"
)

// EventBroadcaster turns sync outcomes into WebSocket messages.
type EventBroadcaster struct {
	hub *Hub
}

// NewEventBroadcaster creates a new event broadcaster.
func NewEventBroadcaster(hub *Hub) *EventBroadcaster {
	return &EventBroadcaster{hub: hub}
}

// SyncCompleted sends a sync.completed event.
func (b *EventBroadcaster) SyncCompleted(result models.SyncResult) {
	b.broadcast(NewMessage(TypeSyncCompleted, SyncPayload{
		RunID:         result.RunID,
		Trigger:       result.Trigger,
		EventsFound:   result.EventsFound,
		NewEvents:     result.NewEvents,
		UpdatedEvents: result.UpdatedEvents,
		DeletedEvents: result.DeletedEvents,
		Failed:        result.Failed,
		DurationSecs:  result.Duration().Seconds(),
	}))
}

// SyncFailed sends a sync.error event.
func (b *EventBroadcaster) SyncFailed(result models.SyncResult, err error) {
	b.broadcast(NewMessage(TypeSyncError, SyncErrorPayload{
		RunID:   result.RunID,
		Trigger: result.Trigger,
		Error:   "sync_error",
		Message: err.Error(),
	}))
}

// MappingsReset sends a mappings.reset event.
func (b *EventBroadcaster) MappingsReset(cleared int) {
	b.broadcast(NewMessage(TypeMappingsReset, MappingsResetPayload{Cleared: cleared}))
}

func (b *EventBroadcaster) broadcast(msg Message) {
	data, err := msg.JSON()
	if err != nil {
		b.hub.logger.Error("encoding websocket message", zap.Error(err))
		return
	}
	b.hub.Broadcast(data)
}
