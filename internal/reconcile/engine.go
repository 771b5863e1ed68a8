// Package reconcile mirrors the source event list into the destination
// platforms, one sync pass at a time.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/fhdsa/eventbridge/internal/normalize"
	"github.com/fhdsa/eventbridge/internal/platform"
	"github.com/fhdsa/eventbridge/internal/routing"
	"github.com/fhdsa/eventbridge/internal/source"
	"github.com/fhdsa/eventbridge/internal/storage"
	"github.com/fhdsa/eventbridge/internal/storage/models"
)

// Page sizes requested from the source API.
const (
	DefaultPageSize     = 25
	ForceUpdatePageSize = 100
)

// Engine errors.
var (
	ErrMappingNotFound     = errors.New("event not found in mappings")
	ErrSourceEventNotFound = errors.New("event not found in source")
	ErrUpdateFailed        = errors.New("update failed on every platform")
)

// Source lists upstream events.
type Source interface {
	FetchEvents(ctx context.Context, limit int) ([]models.SourceEvent, error)
}

// Notifier is told about finished sync passes.
type Notifier interface {
	SyncCompleted(result models.SyncResult)
	SyncFailed(result models.SyncResult, err error)
}

type outcome int

const (
	outcomeUnchanged outcome = iota
	outcomeCreated
	outcomeUpdated
	outcomeDeleted
	outcomeSkipped
	outcomeFailed
)

// Engine runs sync passes against a mapping store.
type Engine struct {
	source   Source
	adapters []platform.Adapter
	store    storage.MappingStore
	notifier Notifier
	logger   *zap.Logger
	pageSize int
	now      func() time.Time

	group singleflight.Group
	// passMu serialises mapping writes between sync passes and force updates.
	passMu sync.Mutex

	mu       sync.RWMutex
	last     *models.SyncResult
	snapshot []models.Event
}

// NewEngine creates a reconciliation engine. Adapters without credentials are
// skipped on every pass.
func NewEngine(src Source, store storage.MappingStore, adapters []platform.Adapter, logger *zap.Logger) *Engine {
	return &Engine{
		source:   src,
		adapters: adapters,
		store:    store,
		logger:   logger.Named("engine"),
		pageSize: DefaultPageSize,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetNotifier registers a listener for finished passes.
func (e *Engine) SetNotifier(n Notifier) {
	e.notifier = n
}

// SetPageSize overrides how many source events one pass fetches.
func (e *Engine) SetPageSize(n int) {
	if n > 0 {
		e.pageSize = n
	}
}

// Adapters returns every registered adapter, configured or not.
func (e *Engine) Adapters() []platform.Adapter {
	return e.adapters
}

// Store returns the mapping store.
func (e *Engine) Store() storage.MappingStore {
	return e.store
}

// LastResult returns the most recent pass result, or nil before the first.
func (e *Engine) LastResult() *models.SyncResult {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.last == nil {
		return nil
	}
	r := *e.last
	return &r
}

// Snapshot returns the active events seen by the last successful pass.
func (e *Engine) Snapshot() []models.Event {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]models.Event, len(e.snapshot))
	copy(out, e.snapshot)
	return out
}

// Sync runs one pass. Calls made while a pass is in flight wait for it and
// share its result instead of starting another.
//
// The pass itself ignores cancellation of ctx: a pass started by one caller is
// shared with every other caller and always runs to completion. Cancelling ctx
// only stops this caller from waiting for the result.
func (e *Engine) Sync(ctx context.Context, trigger string) (*models.SyncResult, error) {
	passCtx := context.WithoutCancel(ctx)
	ch := e.group.DoChan("sync", func() (any, error) {
		return e.run(passCtx, trigger)
	})

	select {
	case res := <-ch:
		if res.Shared {
			e.logger.Debug("joined in-flight sync pass", zap.String("trigger", trigger))
		}
		result, _ := res.Val.(*models.SyncResult)
		return result, res.Err
	case <-ctx.Done():
		e.logger.Warn("stopped waiting for sync pass", zap.String("trigger", trigger), zap.Error(ctx.Err()))
		return nil, ctx.Err()
	}
}

func (e *Engine) run(ctx context.Context, trigger string) (*models.SyncResult, error) {
	e.passMu.Lock()
	defer e.passMu.Unlock()

	result := &models.SyncResult{
		RunID:     uuid.NewString(),
		Trigger:   trigger,
		StartedAt: e.now(),
	}
	logger := e.logger.With(zap.String("run_id", result.RunID), zap.String("trigger", trigger))
	adapters := platform.ConfiguredOnly(e.adapters)

	events, err := e.source.FetchEvents(ctx, e.pageSize)
	if err != nil {
		err = fmt.Errorf("fetching source events: %w", err)
		result.FinishedAt = e.now()
		result.Error = err.Error()
		logger.Error("sync pass failed", zap.Error(err))
		e.record(result, nil)
		if e.notifier != nil {
			e.notifier.SyncFailed(*result, err)
		}
		return result, err
	}

	result.EventsFound = len(events)
	logger.Info("sync pass started", zap.Int("events", len(events)), zap.Int("platforms", len(adapters)))

	active := make([]models.Event, 0, len(events))
	for _, src := range events {
		out, ev := e.processSafely(ctx, logger, src, adapters)
		switch out {
		case outcomeCreated:
			result.NewEvents++
		case outcomeUpdated:
			result.UpdatedEvents++
		case outcomeDeleted:
			result.DeletedEvents++
		case outcomeSkipped:
			result.Skipped++
		case outcomeFailed:
			result.Failed++
		default:
			result.Unchanged++
		}
		if ev != nil {
			active = append(active, *ev)
		}
	}

	result.FinishedAt = e.now()
	logger.Info("sync pass complete",
		zap.Int("new", result.NewEvents),
		zap.Int("updated", result.UpdatedEvents),
		zap.Int("deleted", result.DeletedEvents),
		zap.Int("unchanged", result.Unchanged),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
		zap.Duration("duration", result.Duration()))

	e.record(result, active)
	if e.notifier != nil {
		e.notifier.SyncCompleted(*result)
	}
	return result, nil
}

func (e *Engine) record(result *models.SyncResult, active []models.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r := *result
	e.last = &r
	if active != nil {
		e.snapshot = active
	}
}

// processSafely applies the state machine to one event. A panic is logged and
// counted as a failure so the rest of the batch still runs.
func (e *Engine) processSafely(ctx context.Context, logger *zap.Logger, src models.SourceEvent, adapters []platform.Adapter) (out outcome, active *models.Event) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("event processing panicked",
				zap.String("title", src.Title),
				zap.Any("panic", r))
			out, active = outcomeFailed, nil
		}
	}()
	return e.process(ctx, logger, src, adapters)
}

func (e *Engine) process(ctx context.Context, logger *zap.Logger, src models.SourceEvent, adapters []platform.Adapter) (outcome, *models.Event) {
	id := source.ExtractID(src)
	if id == "" {
		logger.Warn("skipping event without identifier", zap.String("title", src.Title))
		return outcomeSkipped, nil
	}
	logger = logger.With(zap.String("source_id", id), zap.String("title", src.TitleOr(normalize.UntitledEvent)))

	mapping, mapped := e.store.Get(id)

	if src.IsCancelled() {
		if !mapped {
			logger.Info("skipping cancelled event that was never synced")
			return outcomeSkipped, nil
		}
		return e.remove(ctx, logger, mapping, adapters), nil
	}

	ev := normalize.Normalize(src, id)

	if !mapped {
		return e.create(ctx, logger, src, ev, adapters), &ev
	}

	changed, reasons := mapping.NeedsUpdate(ev.LastModified, ev.Status)
	if !changed {
		logger.Debug("no changes")
		return outcomeUnchanged, &ev
	}
	logger.Info("update detected", zap.String("reasons", strings.Join(reasons, ", ")))
	if e.update(ctx, logger, mapping, ev, adapters) {
		return outcomeUpdated, &ev
	}
	return outcomeFailed, &ev
}

// create mirrors a new event on every configured platform. The row is
// recorded when any platform succeeded; platforms that failed are not retried
// on later passes.
func (e *Engine) create(ctx context.Context, logger *zap.Logger, src models.SourceEvent, ev models.Event, adapters []platform.Adapter) outcome {
	if len(adapters) == 0 {
		logger.Warn("no platforms configured, event not created")
		return outcomeFailed
	}

	destinations := make(map[models.Platform]models.DestinationRef)
	var created []models.Platform
	for _, a := range adapters {
		ref, err := a.Create(ctx, ev)
		if err != nil || ref.EventID == "" {
			continue
		}
		destinations[a.Platform()] = ref
		created = append(created, a.Platform())
	}

	if len(destinations) == 0 {
		logger.Error("failed to create event on any platform")
		return outcomeFailed
	}

	e.store.Put(models.Mapping{
		SourceID:     ev.SourceID,
		Destinations: destinations,
		LastModified: ev.LastModified,
		Status:       ev.Status,
		Title:        ev.Title,
		SourceURL:    src.BrowserURL,
		RoutedTag:    e.routedTag(ev),
	})
	logger.Info("created event", zap.Strings("platforms", displayNames(created)))
	return outcomeCreated
}

// update pushes ev to every platform holding a recorded id and reports
// whether any succeeded. Metadata is recorded only on success.
func (e *Engine) update(ctx context.Context, logger *zap.Logger, mapping models.Mapping, ev models.Event, adapters []platform.Adapter) bool {
	updated := e.pushUpdate(ctx, mapping, ev, adapters)
	if len(updated) == 0 {
		logger.Error("failed to update event on any platform")
		return false
	}

	mapping.LastModified = ev.LastModified
	mapping.Status = ev.Status
	mapping.Title = ev.Title
	e.store.Put(mapping)
	logger.Info("updated event", zap.Strings("platforms", displayNames(updated)))
	return true
}

// pushUpdate sends ev to each adapter with a recorded id and returns the
// platforms that accepted it.
func (e *Engine) pushUpdate(ctx context.Context, mapping models.Mapping, ev models.Event, adapters []platform.Adapter) []models.Platform {
	var updated []models.Platform
	for _, a := range adapters {
		ref, ok := mapping.Ref(a.Platform())
		if !ok {
			continue
		}
		if err := a.Update(ctx, ref, ev); err != nil {
			continue
		}
		updated = append(updated, a.Platform())
	}
	return updated
}

func displayNames(platforms []models.Platform) []string {
	names := make([]string, len(platforms))
	for i, p := range platforms {
		names[i] = p.DisplayName()
	}
	return names
}

// remove deletes a cancelled event from every platform holding a recorded id
// and drops the row whatever the outcome.
func (e *Engine) remove(ctx context.Context, logger *zap.Logger, mapping models.Mapping, adapters []platform.Adapter) outcome {
	attempted, deleted := 0, 0
	for _, a := range adapters {
		ref, ok := mapping.Ref(a.Platform())
		if !ok {
			continue
		}
		attempted++
		if err := a.Delete(ctx, ref); err == nil {
			deleted++
		}
	}
	e.store.Delete(mapping.SourceID)

	if attempted > 0 && deleted == 0 {
		logger.Error("removed cancelled event mapping but every platform delete failed",
			zap.Int("attempted", attempted))
		return outcomeFailed
	}
	logger.Info("removed cancelled event", zap.Int("deleted", deleted), zap.Int("attempted", attempted))
	return outcomeDeleted
}

// routedTag reports the hashtag the first routed adapter picked for ev.
func (e *Engine) routedTag(ev models.Event) string {
	for _, a := range e.adapters {
		if r, ok := a.(interface{ Resolver() *routing.Resolver }); ok && a.Configured() {
			tag, _ := r.Resolver().Resolve(ev.Description)
			return tag
		}
	}
	return ""
}

// ForceUpdate re-pushes one mapped event to its recorded platforms whether or
// not it changed upstream.
//
// It waits for any in-flight pass so a row that pass drops is not written
// back.
func (e *Engine) ForceUpdate(ctx context.Context, sourceID string) (*models.ForceUpdateResult, error) {
	e.passMu.Lock()
	defer e.passMu.Unlock()

	mapping, ok := e.store.Get(sourceID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMappingNotFound, sourceID)
	}

	events, err := e.source.FetchEvents(ctx, ForceUpdatePageSize)
	if err != nil {
		return nil, fmt.Errorf("fetching source events: %w", err)
	}

	var src *models.SourceEvent
	for i := range events {
		if source.ExtractID(events[i]) == sourceID {
			src = &events[i]
			break
		}
	}
	if src == nil {
		return nil, fmt.Errorf("%w: %s", ErrSourceEventNotFound, sourceID)
	}

	ev := normalize.Normalize(*src, sourceID)
	logger := e.logger.With(zap.String("source_id", sourceID), zap.String("title", ev.Title))
	logger.Info("force update requested")

	result := &models.ForceUpdateResult{
		SourceID:     sourceID,
		Title:        ev.Title,
		Platforms:    e.pushUpdate(ctx, mapping, ev, platform.ConfiguredOnly(e.adapters)),
		Destinations: mapping.Clone().Destinations,
	}
	if len(result.Platforms) == 0 {
		logger.Error("force update failed on every platform")
		return result, fmt.Errorf("%w: %s", ErrUpdateFailed, sourceID)
	}

	mapping.LastModified = ev.LastModified
	mapping.Status = ev.Status
	mapping.Title = ev.Title
	e.store.Put(mapping)
	logger.Info("force update complete", zap.Int("platforms", len(result.Platforms)))
	return result, nil
}
