package handlers

import (
	"net/http"
	"time"

	"github.com/fhdsa/eventbridge/internal/platform"
	"github.com/fhdsa/eventbridge/internal/routing"
	"github.com/fhdsa/eventbridge/internal/storage"
	"github.com/fhdsa/eventbridge/internal/storage/models"
)

// PlatformHealth is the configuration and connectivity of one platform.
type PlatformHealth struct {
	Configured bool `json:"configured"`
	Connected  bool `json:"connected"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status           string                    `json:"status"`
	Timestamp        time.Time                 `json:"timestamp"`
	Platforms        map[string]PlatformHealth `json:"platforms"`
	TotalMapped      int                       `json:"total_mapped_events"`
	SchedulerRunning bool                      `json:"background_sync_running"`
	PlatformsSyncing []string                  `json:"platforms_syncing"`
}

// HealthCheck returns a handler that reports configuration presence and
// live connectivity for the source and every destination.
func HealthCheck(src SourceProbe, adapters []platform.Adapter, store storage.MappingStore, sched Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		platforms := map[string]PlatformHealth{
			"action_network": {Configured: src.Configured()},
		}
		if src.Configured() {
			platforms["action_network"] = PlatformHealth{Configured: true, Connected: src.TestConnection(ctx)}
		}

		syncing := []string{}
		for _, a := range adapters {
			h := PlatformHealth{Configured: a.Configured()}
			if h.Configured {
				h.Connected = a.TestConnection(ctx)
			}
			if h.Connected {
				syncing = append(syncing, a.Platform().DisplayName())
			}
			platforms[string(a.Platform())] = h
		}

		writeJSON(w, http.StatusOK, HealthResponse{
			Status:           "healthy",
			Timestamp:        time.Now().UTC(),
			Platforms:        platforms,
			TotalMapped:      store.Len(),
			SchedulerRunning: sched != nil && sched.Running(),
			PlatformsSyncing: syncing,
		})
	}
}

// StatusResponse represents the sync status response.
type StatusResponse struct {
	TotalMapped         int                `json:"total_mapped_events"`
	LastSync            *models.SyncResult `json:"last_sync,omitempty"`
	NextSyncAt          *time.Time         `json:"next_sync_at,omitempty"`
	SyncInterval        string             `json:"sync_interval"`
	PlatformsConfigured []string           `json:"platforms_configured"`
}

// Status returns a handler that reports the last pass and the schedule.
func Status(syncer Syncer, sched Scheduler, adapters []platform.Adapter, store storage.MappingStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := StatusResponse{
			TotalMapped:         store.Len(),
			LastSync:            syncer.LastResult(),
			PlatformsConfigured: configuredNames(adapters),
		}
		if sched != nil {
			resp.NextSyncAt = sched.NextRun()
			resp.SyncInterval = sched.Interval().String()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// InfoResponse describes the service.
type InfoResponse struct {
	Service        string                       `json:"service"`
	Status         string                       `json:"status"`
	SyncInterval   string                       `json:"sync_interval"`
	Platforms      map[string]string            `json:"platforms"`
	HashtagRouting map[string]map[string]string `json:"hashtag_mapping"`
	Endpoints      map[string]string            `json:"endpoints"`
}

// ServiceInfo returns a handler describing platforms, routing tables and
// endpoints.
func ServiceInfo(adapters []platform.Adapter, sched Scheduler, routes map[string]*routing.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		platforms := map[string]string{"action_network": "source"}
		for _, a := range adapters {
			state := "not configured"
			if a.Configured() {
				state = "events sync"
			}
			platforms[string(a.Platform())] = state
		}

		tables := make(map[string]map[string]string, len(routes))
		for name, resolver := range routes {
			table := make(map[string]string)
			for _, route := range resolver.Routes() {
				table[route.Tag] = route.Name
			}
			tables[name] = table
		}

		interval := ""
		if sched != nil {
			interval = sched.Interval().String()
		}

		writeJSON(w, http.StatusOK, InfoResponse{
			Service:        "Action Network event bridge",
			Status:         "running",
			SyncInterval:   interval,
			Platforms:      platforms,
			HashtagRouting: tables,
			Endpoints: map[string]string{
				"health":         "/api/health",
				"status":         "/api/status",
				"sync_now":       "/api/sync",
				"force_update":   "/api/force-update/{id}",
				"mappings":       "/api/mappings",
				"clear_mappings": "/api/clear-mappings",
				"debug":          "/api/debug/action-network",
				"webhook":        "/api/webhook/action-network",
				"calendar":       "/api/calendar.ics",
				"websocket":      "/api/ws",
			},
		})
	}
}

func configuredNames(adapters []platform.Adapter) []string {
	names := []string{}
	for _, a := range platform.ConfiguredOnly(adapters) {
		names = append(names, a.Platform().DisplayName())
	}
	return names
}
