// Package main is the entry point for the Action Network event bridge.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/fhdsa/eventbridge/internal/api"
	"github.com/fhdsa/eventbridge/internal/config"
	"github.com/fhdsa/eventbridge/internal/logging"
	"github.com/fhdsa/eventbridge/internal/platform"
	"github.com/fhdsa/eventbridge/internal/reconcile"
	"github.com/fhdsa/eventbridge/internal/routing"
	"github.com/fhdsa/eventbridge/internal/source"
	"github.com/fhdsa/eventbridge/internal/storage"
	"github.com/fhdsa/eventbridge/internal/websocket"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

func main() {
	configPath := flag.String("config", "", "Optional YAML configuration file")
	envFile := flag.String("env-file", ".env", "Optional dotenv file loaded before reading the environment")
	healthCheck := flag.Bool("health-check", false, "Run health check and exit")
	flag.Parse()

	// A missing .env is normal in containers
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("Failed to load %s: %v", *envFile, err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Health check mode for Docker HEALTHCHECK
	if *healthCheck {
		if err := runHealthCheck(cfg.Server.ListenAddr); err != nil {
			log.Fatalf("Health check failed: %v", err)
		}
		os.Exit(0)
	}

	if envVer := os.Getenv("VERSION"); envVer != "" {
		version = envVer
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("starting event bridge", zap.String("version", version))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Source
	src := source.NewClient(source.Config{
		BaseURL: cfg.ActionNetwork.BaseURL,
		APIKey:  cfg.ActionNetwork.APIKey,
		Timeout: cfg.Sync.HTTPTimeout,
	}, logger)
	if !src.Configured() {
		logger.Warn("ACTION_NETWORK_API_KEY not set, background sync disabled")
	}

	// Destinations
	googleRoutes := cfg.GoogleResolver()
	teamUpRoutes := cfg.TeamUpResolver()

	google, err := platform.NewGoogle(ctx, platform.GoogleConfig{
		ServiceAccountJSON: cfg.Google.ServiceAccountJSON,
		Timeout:            cfg.Sync.HTTPTimeout,
	}, googleRoutes, logger)
	if err != nil {
		logger.Error("google calendar disabled", zap.Error(err))
	}
	discord := platform.NewDiscord(platform.DiscordConfig{
		BaseURL:  cfg.Discord.BaseURL,
		BotToken: cfg.Discord.BotToken,
		GuildID:  cfg.Discord.GuildID,
		Timeout:  cfg.Sync.HTTPTimeout,
	}, logger)
	teamUp := platform.NewTeamUp(platform.TeamUpConfig{
		BaseURL:     cfg.TeamUp.BaseURL,
		APIKey:      cfg.TeamUp.APIKey,
		CalendarKey: cfg.TeamUp.CalendarKey,
		Timeout:     cfg.Sync.HTTPTimeout,
	}, teamUpRoutes, logger)

	adapters := []platform.Adapter{google, discord, teamUp}
	for _, a := range adapters {
		logger.Info("platform",
			zap.String("name", a.Platform().DisplayName()),
			zap.Bool("configured", a.Configured()))
	}
	if !googleRoutes.HasTargets() && google.Configured() {
		logger.Warn("google calendar configured without any calendar ids")
	}

	// Notifications
	hub := websocket.NewHub(logger)
	go hub.Run(ctx)
	broadcaster := websocket.NewEventBroadcaster(hub)

	// Engine and schedule
	store := storage.NewMemoryStore()
	engine := reconcile.NewEngine(src, store, adapters, logger)
	engine.SetPageSize(cfg.Sync.PageSize)
	engine.SetNotifier(broadcaster)

	scheduler := reconcile.NewScheduler(engine, cfg.Sync.Interval, logger)
	if src.Configured() {
		if err := scheduler.Start(cfg.Sync.OnStart); err != nil {
			return fmt.Errorf("starting scheduler: %w", err)
		}
		defer scheduler.Stop()
	}

	handler := api.NewHandler(api.Services{
		Syncer:      engine,
		Scheduler:   scheduler,
		Source:      src,
		Adapters:    adapters,
		Store:       store,
		Hub:         hub,
		Broadcaster: broadcaster,
		Routes: map[string]*routing.Resolver{
			"google_calendars":    googleRoutes,
			"teamup_subcalendars": teamUpRoutes,
		},
		CORSOrigins: cfg.Server.CORSAllowedOrigins,
		Logger:      logger,
	})

	// Manual syncs hold the response open for a full pass
	server := &http.Server{
		Addr:         cfg.Server.ListenAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", cfg.Server.ListenAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("listening: %w", err)
	}

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// runHealthCheck performs a health check against the running server.
func runHealthCheck(addr string) error {
	host := addr
	if strings.HasPrefix(addr, ":") {
		host = "localhost" + addr
	}
	resp, err := http.Get("http://" + host + "/api/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
