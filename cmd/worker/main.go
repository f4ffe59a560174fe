package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/garnizeh/talentmatch/internal/app"
	"github.com/garnizeh/talentmatch/internal/config"
	"github.com/garnizeh/talentmatch/internal/jobs"
	"github.com/garnizeh/talentmatch/internal/match"
	"github.com/garnizeh/talentmatch/internal/persist"
	"github.com/garnizeh/talentmatch/internal/pubsub"
	"github.com/garnizeh/talentmatch/internal/scheduler"
	"github.com/garnizeh/talentmatch/internal/telemetry"
	"github.com/garnizeh/talentmatch/internal/validate"
	"github.com/garnizeh/talentmatch/internal/worker"
	"github.com/garnizeh/talentmatch/pkg/models"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	var (
		configPath   = flag.String("config", "", "Path to config YAML file")
		printMatches = flag.Bool("print-matches", false, "Log match summaries received on the redis topics")
	)
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", "talentmatch-worker")
	log.Printf("Starting talentmatch worker version %s (built at %s)", version, buildTime)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "talentmatch-worker", cfg.Telemetry.Endpoint)
	if err != nil {
		log.Fatalf("Failed to set up tracing: %v", err)
	}

	backends, err := app.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open backends: %v", err)
	}

	// Queued writes are applied here, so the worker always writes directly.
	seekerQueue, listingQueue := backends.Senders(cfg.Worker.MaxAttempts)
	seekerMatches, listingMatches := backends.Notifiers(logger)
	seekers := worker.New(
		persist.New[models.Seeker, models.SeekerInput]("seeker", persist.Direct, validate.Seekers{}, backends.Seekers, seekerQueue, logger),
		seekerMatches, logger)
	listings := worker.New(
		persist.New[models.Listing, models.ListingInput]("listing", persist.Direct, validate.Listings{}, backends.Listings, listingQueue, logger),
		listingMatches, logger)

	pool := jobs.NewWorkerPool(backends.Jobs, map[string]jobs.BatchHandler{
		app.SeekerQueue:  seekers.JobHandler(),
		app.ListingQueue: listings.JobHandler(),
	}, logger, jobs.Options{
		Workers:      cfg.Worker.Count,
		BatchSize:    cfg.Worker.BatchSize,
		PollInterval: cfg.Worker.PollInterval,
	})
	pool.Start(ctx)

	janitor := scheduler.New(backends.Jobs, cfg.Janitor.Schedule, cfg.Janitor.Retention, logger)
	if err := janitor.Start(ctx); err != nil {
		log.Fatalf("Failed to start janitor: %v", err)
	}

	if *printMatches {
		if err := watchMatches(ctx, cfg.PubSub.URL, logger); err != nil {
			log.Printf("Match watcher disabled: %v", err)
		}
	}

	<-ctx.Done()
	log.Println("Shutting down worker...")

	janitor.Stop()
	pool.Stop()

	if err := backends.Close(); err != nil {
		log.Printf("Error closing backends: %v", err)
	}
	if err := shutdownTracing(context.Background()); err != nil {
		log.Printf("Error flushing traces: %v", err)
	}

	log.Println("Worker exited")
}

// watchMatches subscribes to both match topics and logs every summary until
// ctx is done.
func watchMatches(ctx context.Context, redisURL string, logger *slog.Logger) error {
	client, err := pubsub.NewRedisClient(ctx, redisURL)
	if err != nil {
		return err
	}
	sub, err := pubsub.Subscribe(ctx, client, match.TopicListingMatches, match.TopicSeekerMatches)
	if err != nil {
		client.Close()
		return err
	}
	go func() {
		defer client.Close()
		defer sub.Close()
		sub.Run(ctx, func(topic, body string) {
			logger.Info("match received", "topic", topic, "summary", body)
		})
	}()
	return nil
}
