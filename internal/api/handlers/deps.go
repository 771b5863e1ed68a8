// Package handlers provides HTTP request handlers for the API endpoints.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fhdsa/eventbridge/internal/source"
	"github.com/fhdsa/eventbridge/internal/storage/models"
)

// Syncer runs and reports on sync passes.
type Syncer interface {
	Sync(ctx context.Context, trigger string) (*models.SyncResult, error)
	ForceUpdate(ctx context.Context, sourceID string) (*models.ForceUpdateResult, error)
	LastResult() *models.SyncResult
	Snapshot() []models.Event
}

// Scheduler runs background passes.
type Scheduler interface {
	Trigger(trigger string)
	NextRun() *time.Time
	Running() bool
	Interval() time.Duration
}

// SourceProbe checks the upstream events API.
type SourceProbe interface {
	Configured() bool
	APIKeyLength() int
	TestConnection(ctx context.Context) bool
	Probe(ctx context.Context) []source.ProbeResult
}

// ResetNotifier is told when the mapping table is cleared.
type ResetNotifier interface {
	MappingsReset(cleared int)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	json.NewEncoder(w).Encode(v)
}
