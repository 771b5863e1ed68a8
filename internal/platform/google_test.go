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
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/fhdsa/eventbridge/internal/routing"
	"github.com/fhdsa/eventbridge/internal/storage/models"
)

func googleResolver() *routing.Resolver {
	return routing.NewResolver([]routing.Route{
		{Tag: "#action", Target: "action@group", Name: "Direct Action"},
		{Tag: "#outreach", Target: "outreach@group", Name: "Outreach"},
	}, "dsa@group", "Chapter")
}

func newTestGoogle(t *testing.T, resolver *routing.Resolver, h http.HandlerFunc) *Google {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	svc, err := calendar.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return NewGoogleWithService(svc, resolver, zaptest.NewLogger(t))
}

func TestGoogle_Unconfigured(t *testing.T) {
	g, err := NewGoogle(context.Background(), GoogleConfig{}, googleResolver(), zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.False(t, g.Configured())
	assert.False(t, g.TestConnection(context.Background()))
}

func TestGoogle_InvalidCredentials(t *testing.T) {
	_, err := NewGoogle(context.Background(), GoogleConfig{ServiceAccountJSON: "{not json"}, googleResolver(), zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestGoogle_CreateRoutesByHashtag(t *testing.T) {
	var got calendar.Event
	var gotPath string
	g := newTestGoogle(t, googleResolver(), func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"gcal-1"}`))
	})

	ref, err := g.Create(context.Background(), sampleEvent())
	require.NoError(t, err)
	assert.Equal(t, models.DestinationRef{EventID: "gcal-1", CalendarID: "outreach@group"}, ref)

	assert.True(t, strings.HasSuffix(gotPath, "/calendars/outreach@group/events"), gotPath)
	assert.Equal(t, "Canvass", got.Summary)
	assert.Equal(t, "2025-07-02T00:00:00Z", got.Start.DateTime)
	assert.Equal(t, "UTC", got.Start.TimeZone)
	assert.Equal(t, "UTC", got.End.TimeZone)
	assert.Equal(t, "Knock doors #outreach\n\nRegister: https://actionnetwork.org/events/canvass", got.Description)
}

func TestGoogle_CreateFallsBackToDefault(t *testing.T) {
	var gotPath string
	g := newTestGoogle(t, googleResolver(), func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"gcal-2"}`))
	})

	ev := sampleEvent()
	ev.Description = "plain"
	ref, err := g.Create(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, "dsa@group", ref.CalendarID)
	assert.True(t, strings.HasSuffix(gotPath, "/calendars/dsa@group/events"), gotPath)
}

func TestGoogle_CreateWithoutTarget(t *testing.T) {
	g := newTestGoogle(t, routing.NewResolver(nil, "", ""), func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL.Path)
	})

	_, err := g.Create(context.Background(), sampleEvent())
	assert.ErrorIs(t, err, ErrNotRouted)
}

func TestGoogle_APIErrorBecomesStatusError(t *testing.T) {
	g := newTestGoogle(t, googleResolver(), func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"code":403,"message":"forbidden"}}`))
	})

	_, err := g.Create(context.Background(), sampleEvent())
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusForbidden, se.StatusCode)
	assert.Equal(t, models.PlatformGoogle, se.Platform)
}

func TestGoogle_UpdateAndDelete(t *testing.T) {
	var methods, paths []string
	g := newTestGoogle(t, googleResolver(), func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		paths = append(paths, r.URL.Path)
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"gcal-1"}`))
	})

	ref := models.DestinationRef{EventID: "gcal-1", CalendarID: "action@group"}
	require.NoError(t, g.Update(context.Background(), ref, sampleEvent()))
	require.NoError(t, g.Delete(context.Background(), ref))

	assert.Equal(t, []string{http.MethodPut, http.MethodDelete}, methods)
	for _, p := range paths {
		assert.True(t, strings.HasSuffix(p, "/calendars/action@group/events/gcal-1"), p)
	}
}

func TestGoogle_DeleteStatus(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"no content", http.StatusNoContent, false},
		{"ok", http.StatusOK, false},
		{"gone", http.StatusGone, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGoogle(t, googleResolver(), func(w http.ResponseWriter, r *http.Request) {
				if tt.status >= 300 {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(tt.status)
					w.Write([]byte(`{"error":{"code":410,"message":"Resource has been deleted"}}`))
					return
				}
				w.WriteHeader(tt.status)
			})

			err := g.Delete(context.Background(), models.DestinationRef{EventID: "gcal-1", CalendarID: "dsa@group"})
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var se *StatusError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.status, se.StatusCode)
			assert.Equal(t, "delete", se.Op)
		})
	}
}

func TestGoogle_UpdateWithoutCalendar(t *testing.T) {
	g := newTestGoogle(t, googleResolver(), func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL.Path)
	})

	err := g.Update(context.Background(), models.DestinationRef{EventID: "gcal-1"}, sampleEvent())
	assert.ErrorIs(t, err, ErrNotRouted)
}

func TestGoogle_TestConnection(t *testing.T) {
	g := newTestGoogle(t, googleResolver(), func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/users/me/calendarList"), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items":[]}`))
	})
	assert.True(t, g.TestConnection(context.Background()))
}
