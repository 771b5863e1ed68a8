package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/fhdsa/eventbridge/internal/platform"
	"github.com/fhdsa/eventbridge/internal/storage"
	"github.com/fhdsa/eventbridge/internal/storage/models"
)

func TestScheduler_DefaultInterval(t *testing.T) {
	s := NewScheduler(nil, 0, zaptest.NewLogger(t))
	assert.Equal(t, DefaultInterval, s.Interval())
	assert.Nil(t, s.NextRun())
	assert.False(t, s.Running())
}

func TestScheduler_SyncOnStartAndStop(t *testing.T) {
	src := &fakeSource{}
	src.set(srcEvent("abc-123", "Canvass", "confirmed", "m1"))
	google := newFake(models.PlatformGoogle)
	store := storage.NewMemoryStore()
	engine := NewEngine(src, store, []platform.Adapter{google}, zaptest.NewLogger(t))

	s := NewScheduler(engine, time.Hour, zaptest.NewLogger(t))
	require.NoError(t, s.Start(true))
	assert.True(t, s.Running())

	next := s.NextRun()
	require.NotNil(t, next)
	assert.WithinDuration(t, time.Now().Add(time.Hour), *next, time.Minute)

	// Stop waits for the startup pass.
	s.Stop()
	assert.False(t, s.Running())
	assert.Equal(t, 1, store.Len())
	require.NotNil(t, engine.LastResult())
	assert.Equal(t, models.TriggerStartup, engine.LastResult().Trigger)
}

func TestScheduler_Trigger(t *testing.T) {
	src := &fakeSource{}
	src.set(srcEvent("abc-123", "Canvass", "confirmed", "m1"))
	store := storage.NewMemoryStore()
	engine := NewEngine(src, store, []platform.Adapter{newFake(models.PlatformDiscord)}, zaptest.NewLogger(t))

	s := NewScheduler(engine, time.Hour, zaptest.NewLogger(t))
	require.NoError(t, s.Start(false))
	s.Trigger(models.TriggerWebhook)
	s.Stop()

	require.NotNil(t, engine.LastResult())
	assert.Equal(t, models.TriggerWebhook, engine.LastResult().Trigger)
	assert.Equal(t, 1, store.Len())
}
