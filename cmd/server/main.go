package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/garnizeh/talentmatch/api"
	"github.com/garnizeh/talentmatch/internal/app"
	"github.com/garnizeh/talentmatch/internal/config"
	"github.com/garnizeh/talentmatch/internal/persist"
	"github.com/garnizeh/talentmatch/internal/telemetry"
	"github.com/garnizeh/talentmatch/internal/validate"
	"github.com/garnizeh/talentmatch/pkg/models"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	var configPath = flag.String("config", "", "Path to config YAML file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", "talentmatch-server")
	api.SetLogger(logger)

	log.Printf("Starting talentmatch server version %s (built at %s)", version, buildTime)

	ctx := context.Background()

	shutdownTracing, err := telemetry.Setup(ctx, "talentmatch-server", cfg.Telemetry.Endpoint)
	if err != nil {
		log.Fatalf("Failed to set up tracing: %v", err)
	}

	backends, err := app.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open backends: %v", err)
	}

	mode := persist.ParseMode(cfg.PersistenceMode, logger)
	seekerQueue, listingQueue := backends.Senders(cfg.Worker.MaxAttempts)
	seekerMatches, listingMatches := backends.Notifiers(logger)

	handler := api.SetupRoutes(cfg, version, buildTime, api.Services{
		Seekers:        persist.New[models.Seeker, models.SeekerInput]("seeker", mode, validate.Seekers{}, backends.Seekers, seekerQueue, logger),
		Listings:       persist.New[models.Listing, models.ListingInput]("listing", mode, validate.Listings{}, backends.Listings, listingQueue, logger),
		SeekerMatches:  seekerMatches,
		ListingMatches: listingMatches,
		Checks:         backends.Checks(),
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.APITimeout,
		WriteTimeout: cfg.APITimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on %s (%s mode, %s store)", cfg.Addr, mode, cfg.Store.Driver)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	if err := backends.Close(); err != nil {
		log.Printf("Error closing backends: %v", err)
	}
	if err := shutdownTracing(ctx); err != nil {
		log.Printf("Error flushing traces: %v", err)
	}

	log.Println("Server exited")
}
