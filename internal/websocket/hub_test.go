package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/fhdsa/eventbridge/internal/storage/models"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data := <-c.Send():
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return Message{}
	}
}

func TestHub_RegisterAndBroadcast(t *testing.T) {
	hub := startHub(t)
	client := NewClient(hub)
	hub.Register(client)
	assert.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	NewEventBroadcaster(hub).SyncCompleted(models.SyncResult{RunID: "r1", Trigger: models.TriggerManual, NewEvents: 2})

	msg := receive(t, client)
	assert.Equal(t, TypeSyncCompleted, msg.Type)
	payload := msg.Payload.(map[string]any)
	assert.Equal(t, "r1", payload["run_id"])
	assert.EqualValues(t, 2, payload["new_events"])

	hub.Unregister(client)
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestEventBroadcaster_SyncFailed(t *testing.T) {
	hub := startHub(t)
	client := NewClient(hub)
	hub.Register(client)

	NewEventBroadcaster(hub).SyncFailed(models.SyncResult{RunID: "r2"}, errors.New("source down"))

	msg := receive(t, client)
	assert.Equal(t, TypeSyncError, msg.Type)
	assert.Equal(t, "source down", msg.Payload.(map[string]any)["message"])
}

func TestHub_SendTo(t *testing.T) {
	hub := startHub(t)
	client := NewClient(hub)
	assert.False(t, hub.SendTo(client, []byte(`{}`)))

	hub.Register(client)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	assert.True(t, hub.SendTo(client, []byte(`{"type":"pong"}`)))
	assert.Equal(t, TypePong, receive(t, client).Type)
}

func TestHub_RegisterAfterStopDoesNotBlock(t *testing.T) {
	hub := NewHub(zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	live := NewClient(hub)
	hub.Register(live)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	<-stopped

	_, ok := <-live.Send()
	assert.False(t, ok, "stopping the hub closes registered clients")

	late := NewClient(hub)
	returned := make(chan struct{})
	go func() {
		hub.Register(late)
		hub.Unregister(late)
		hub.Unregister(live)
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("Register/Unregister blocked after the hub stopped")
	}
	_, ok = <-late.Send()
	assert.False(t, ok, "a client registered after stop is closed")
	assert.Zero(t, hub.ClientCount())
}
