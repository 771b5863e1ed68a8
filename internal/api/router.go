// Package api provides HTTP routing and handlers for the REST API.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/fhdsa/eventbridge/internal/api/handlers"
	"github.com/fhdsa/eventbridge/internal/api/middleware"
	"github.com/fhdsa/eventbridge/internal/platform"
	"github.com/fhdsa/eventbridge/internal/routing"
	"github.com/fhdsa/eventbridge/internal/storage"
	"github.com/fhdsa/eventbridge/internal/websocket"
)

// Services holds everything the routes need.
type Services struct {
	Syncer      handlers.Syncer
	Scheduler   handlers.Scheduler
	Source      handlers.SourceProbe
	Adapters    []platform.Adapter
	Store       storage.MappingStore
	Hub         *websocket.Hub
	Broadcaster *websocket.EventBroadcaster
	Routes      map[string]*routing.Resolver
	CORSOrigins []string
	Logger      *zap.Logger
}

// NewRouter creates the mux router with all API routes.
func NewRouter(s Services) *mux.Router {
	logger := s.Logger.Named("http")

	r := mux.NewRouter()

	// Apply global middleware
	r.Use(middleware.Logging(logger))
	r.Use(middleware.ErrorRecovery(logger))

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/", handlers.ServiceInfo(s.Adapters, s.Scheduler, s.Routes)).Methods("GET")
	api.HandleFunc("/health", handlers.HealthCheck(s.Source, s.Adapters, s.Store, s.Scheduler)).Methods("GET")
	api.HandleFunc("/status", handlers.Status(s.Syncer, s.Scheduler, s.Adapters, s.Store)).Methods("GET")

	// Sync triggers
	api.HandleFunc("/sync", handlers.TriggerSync(s.Syncer, s.Adapters, s.Store)).Methods("POST")
	api.HandleFunc("/force-update/{id}", handlers.ForceUpdate(s.Syncer)).Methods("POST")
	api.HandleFunc("/webhook/action-network", handlers.Webhook(s.Scheduler)).Methods("POST")

	// Mapping inspection and reset
	var resetNotifier handlers.ResetNotifier
	if s.Broadcaster != nil {
		resetNotifier = s.Broadcaster
	}
	api.HandleFunc("/mappings", handlers.ListMappings(s.Store)).Methods("GET")
	api.HandleFunc("/mappings", handlers.ClearMappings(s.Store, resetNotifier)).Methods("DELETE")
	api.HandleFunc("/mappings/{id}", handlers.GetMapping(s.Store)).Methods("GET")
	api.HandleFunc("/clear-mappings", handlers.ClearMappings(s.Store, resetNotifier)).Methods("POST")

	api.HandleFunc("/debug/action-network", handlers.DebugActionNetwork(s.Source)).Methods("GET")
	api.HandleFunc("/calendar.ics", handlers.CalendarFeed(s.Syncer)).Methods("GET")

	if s.Hub != nil {
		api.HandleFunc("/ws", handlers.WebSocketUpgrade(s.Hub, logger)).Methods("GET")
	}

	return r
}

// NewHandler wraps the router with CORS.
func NewHandler(s Services) http.Handler {
	origins := s.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}).Handler(NewRouter(s))
}
