package platform

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/fhdsa/eventbridge/internal/storage/models"
)

func sampleEvent() models.Event {
	return models.Event{
		SourceID:        "abc-123",
		Title:           "Canvass",
		Description:     "Knock doors #outreach",
		RegistrationURL: "https://actionnetwork.org/events/canvass",
		Start:           "2025-07-02T00:00:00Z",
		End:             "2025-07-02T02:00:00Z",
		Location:        "Park, Manhattan",
		Status:          models.StatusConfirmed,
	}
}

func newTestDiscord(t *testing.T, h http.HandlerFunc) *Discord {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewDiscord(DiscordConfig{BaseURL: srv.URL, BotToken: "tok", GuildID: "42"}, zaptest.NewLogger(t))
}

func TestDiscord_Configured(t *testing.T) {
	logger := zaptest.NewLogger(t)
	assert.False(t, NewDiscord(DiscordConfig{BotToken: "tok"}, logger).Configured())
	assert.False(t, NewDiscord(DiscordConfig{GuildID: "42"}, logger).Configured())
	assert.True(t, NewDiscord(DiscordConfig{BotToken: "tok", GuildID: "42"}, logger).Configured())
}

func TestDiscord_Create(t *testing.T) {
	var got map[string]any
	d := newTestDiscord(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/guilds/42/scheduled-events", r.URL.Path)
		assert.Equal(t, "Bot tok", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"id":"998877"}`))
	})

	ref, err := d.Create(context.Background(), sampleEvent())
	require.NoError(t, err)
	assert.Equal(t, "998877", ref.EventID)

	assert.Equal(t, "Canvass", got["name"])
	assert.EqualValues(t, 2, got["privacy_level"])
	assert.EqualValues(t, 3, got["entity_type"])
	assert.Equal(t, "2025-07-02T00:00:00Z", got["scheduled_start_time"])
	assert.Equal(t, "2025-07-02T02:00:00Z", got["scheduled_end_time"])
	assert.Equal(t, map[string]any{"location": "Park, Manhattan"}, got["entity_metadata"])
	assert.Contains(t, got["description"], "Register: https://actionnetwork.org/events/canvass")
}

func TestDiscord_CreateDefaultsLocation(t *testing.T) {
	var got discordEvent
	d := newTestDiscord(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"id":"1"}`))
	})

	ev := sampleEvent()
	ev.Location = ""
	_, err := d.Create(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, "TBD", got.EntityMetadata.Location)
}

func TestDiscord_CreateTruncatesDescription(t *testing.T) {
	var got discordEvent
	d := newTestDiscord(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"id":"1"}`))
	})

	ev := sampleEvent()
	ev.Description = strings.Repeat("a", 1500)
	_, err := d.Create(context.Background(), ev)
	require.NoError(t, err)
	assert.Len(t, []rune(got.Description), 1000)
	assert.True(t, strings.HasSuffix(got.Description, "..."))
}

func TestDiscord_CreateRejectsWrongStatus(t *testing.T) {
	d := newTestDiscord(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"1"}`))
	})

	_, err := d.Create(context.Background(), sampleEvent())
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusCreated, se.StatusCode)
	assert.Equal(t, models.PlatformDiscord, se.Platform)
}

func TestDiscord_UpdateOmitsCreateOnlyFields(t *testing.T) {
	var got map[string]any
	d := newTestDiscord(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/guilds/42/scheduled-events/555", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"id":"555"}`))
	})

	err := d.Update(context.Background(), models.DestinationRef{EventID: "555"}, sampleEvent())
	require.NoError(t, err)
	assert.NotContains(t, got, "privacy_level")
	assert.NotContains(t, got, "entity_type")
}

func TestDiscord_Delete(t *testing.T) {
	d := newTestDiscord(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/guilds/42/scheduled-events/555", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})
	assert.NoError(t, d.Delete(context.Background(), models.DestinationRef{EventID: "555"}))

	notFound := newTestDiscord(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"Unknown Guild Scheduled Event"}`))
	})
	err := notFound.Delete(context.Background(), models.DestinationRef{EventID: "555"})
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.Contains(t, se.Body, "Unknown Guild")
}

func TestDiscord_TestConnection(t *testing.T) {
	d := newTestDiscord(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/guilds/42", r.URL.Path)
		w.Write([]byte(`{"id":"42"}`))
	})
	assert.True(t, d.TestConnection(context.Background()))

	denied := newTestDiscord(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	assert.False(t, denied.TestConnection(context.Background()))

	assert.False(t, NewDiscord(DiscordConfig{}, zaptest.NewLogger(t)).TestConnection(context.Background()))
}
