package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/fhdsa/eventbridge/internal/api/middleware"
	"github.com/fhdsa/eventbridge/internal/platform"
	"github.com/fhdsa/eventbridge/internal/reconcile"
	"github.com/fhdsa/eventbridge/internal/storage"
	"github.com/fhdsa/eventbridge/internal/storage/models"
)

// SyncResponse is returned by a manual sync.
type SyncResponse struct {
	Status          string             `json:"status"`
	Message         string             `json:"message"`
	Result          *models.SyncResult `json:"result"`
	TotalMapped     int                `json:"total_mapped_events"`
	PlatformsSynced []string           `json:"platforms_synced"`
}

// TriggerSync returns a handler that runs a pass and waits for it.
func TriggerSync(syncer Syncer, adapters []platform.Adapter, store storage.MappingStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := syncer.Sync(r.Context(), models.TriggerManual)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrSyncFailed, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, SyncResponse{
			Status: "success",
			Message: fmt.Sprintf("Sync completed. %d new, %d updated, %d deleted.",
				result.NewEvents, result.UpdatedEvents, result.DeletedEvents),
			Result:          result,
			TotalMapped:     store.Len(),
			PlatformsSynced: configuredNames(adapters),
		})
	}
}

// ForceUpdateResponse is returned by a forced update.
type ForceUpdateResponse struct {
	Status  string                    `json:"status"`
	Message string                    `json:"message"`
	Result  *models.ForceUpdateResult `json:"result"`
}

// ForceUpdate returns a handler that re-pushes one mapped event.
func ForceUpdate(syncer Syncer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		result, err := syncer.ForceUpdate(r.Context(), id)
		switch {
		case errors.Is(err, reconcile.ErrMappingNotFound):
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound,
				fmt.Sprintf("Event ID %s not found in mappings", id))
			return
		case errors.Is(err, reconcile.ErrSourceEventNotFound):
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound,
				fmt.Sprintf("Event ID %s not found in Action Network", id))
			return
		case errors.Is(err, reconcile.ErrUpdateFailed):
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrUpdateFailed,
				"Failed to update event in any platform")
			return
		case err != nil:
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, ForceUpdateResponse{
			Status:  "success",
			Message: "Successfully force updated event: " + result.Title,
			Result:  result,
		})
	}
}

// Webhook returns a handler that schedules a background pass and answers
// 202 without waiting for it.
func Webhook(sched Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sched.Trigger(models.TriggerWebhook)
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "syncing"})
	}
}
