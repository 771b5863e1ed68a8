package reconcile

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fhdsa/eventbridge/internal/storage/models"
)

// DefaultInterval is how often the scheduler runs a pass.
const DefaultInterval = 30 * time.Minute

// Scheduler runs sync passes on a fixed interval.
type Scheduler struct {
	cron     *cron.Cron
	engine   *Engine
	logger   *zap.Logger
	interval time.Duration

	entryID cron.EntryID
	wg      sync.WaitGroup

	mu      sync.RWMutex
	running bool
}

// NewScheduler creates a sync scheduler. Non-positive intervals fall back to
// DefaultInterval.
func NewScheduler(engine *Engine, interval time.Duration, logger *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		engine:   engine,
		logger:   logger.Named("scheduler"),
		interval: interval,
	}
}

// Start schedules the periodic pass and, when syncOnStart is set, runs one
// immediately in the background.
func (s *Scheduler) Start(syncOnStart bool) error {
	id, err := s.cron.AddFunc("@every "+s.interval.String(), func() {
		s.runPass(models.TriggerSchedule)
	})
	if err != nil {
		return err
	}
	s.entryID = id
	s.cron.Start()

	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	s.logger.Info("sync scheduler started", zap.Duration("interval", s.interval))

	if syncOnStart {
		s.async(models.TriggerStartup)
	}
	return nil
}

// Stop halts the schedule and waits for any running pass to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping sync scheduler")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.wg.Wait()

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	s.logger.Info("sync scheduler stopped")
}

// Running reports whether the schedule is active.
func (s *Scheduler) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Interval returns the configured pass interval.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Trigger starts a pass in the background and returns immediately.
func (s *Scheduler) Trigger(trigger string) {
	s.async(trigger)
}

// NextRun returns when the next scheduled pass fires.
func (s *Scheduler) NextRun() *time.Time {
	if s.entryID == 0 {
		return nil
	}
	entry := s.cron.Entry(s.entryID)
	if entry.Next.IsZero() {
		return nil
	}
	next := entry.Next
	return &next
}

func (s *Scheduler) async(trigger string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runPass(trigger)
	}()
}

// runPass never lets a failure escape; errors are already logged and
// broadcast by the engine.
func (s *Scheduler) runPass(trigger string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("sync pass panicked", zap.String("trigger", trigger), zap.Any("panic", r))
		}
	}()

	if _, err := s.engine.Sync(context.Background(), trigger); err != nil {
		s.logger.Warn("scheduled sync pass failed", zap.String("trigger", trigger), zap.Error(err))
	}
}
