package models

import (
	"time"
)

// Sync trigger sources.
const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
	TriggerWebhook  = "webhook"
	TriggerStartup  = "startup"
)

// SyncResult summarizes one sync pass.
type SyncResult struct {
	RunID         string    `json:"run_id"`
	Trigger       string    `json:"trigger"`
	EventsFound   int       `json:"events_found"`
	NewEvents     int       `json:"new_events"`
	UpdatedEvents int       `json:"updated_events"`
	DeletedEvents int       `json:"deleted_events"`
	Unchanged     int       `json:"unchanged"`
	Skipped       int       `json:"skipped"`
	Failed        int       `json:"failed"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	Error         string    `json:"error,omitempty"`
}

// Duration returns how long the pass took.
func (r SyncResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// ForceUpdateResult describes a forced re-push of one mapped event.
type ForceUpdateResult struct {
	SourceID     string                      `json:"source_id"`
	Title        string                      `json:"title"`
	Platforms    []Platform                  `json:"platforms_updated"`
	Destinations map[Platform]DestinationRef `json:"destinations"`
}
