package handlers

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/fhdsa/eventbridge/internal/api/middleware"
	"github.com/fhdsa/eventbridge/internal/storage"
	"github.com/fhdsa/eventbridge/internal/storage/models"
)

// clearWarning is returned whenever the mapping table is reset.
const clearWarning = "This may create duplicates if events already exist on the destination platforms. Consider manually cleaning them first."

// MappingsResponse lists every mapping.
type MappingsResponse struct {
	Total    int              `json:"total_events"`
	Mappings []models.Mapping `json:"mappings"`
}

// ListMappings returns a handler that exports the mapping table.
func ListMappings(store storage.MappingStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all := store.All()
		writeJSON(w, http.StatusOK, MappingsResponse{Total: len(all), Mappings: all})
	}
}

// GetMapping returns a handler for a single mapping.
func GetMapping(store storage.MappingStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		m, ok := store.Get(id)
		if !ok {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Mapping not found")
			return
		}
		writeJSON(w, http.StatusOK, m)
	}
}

// ClearResponse reports a mapping reset.
type ClearResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Cleared int    `json:"cleared"`
	Warning string `json:"warning"`
}

// ClearMappings returns a handler that empties the mapping table. The next
// pass treats every event as new.
func ClearMappings(store storage.MappingStore, notifier ResetNotifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count := store.Reset()
		if notifier != nil {
			notifier.MappingsReset(count)
		}
		writeJSON(w, http.StatusOK, ClearResponse{
			Status:  "success",
			Message: fmt.Sprintf("Cleared %d event mappings. Next sync will treat all events as new.", count),
			Cleared: count,
			Warning: clearWarning,
		})
	}
}
