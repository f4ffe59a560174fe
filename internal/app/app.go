// Package app opens the backends shared by the server and the worker.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/garnizeh/talentmatch/api"
	dbfs "github.com/garnizeh/talentmatch/db"
	"github.com/garnizeh/talentmatch/internal/config"
	"github.com/garnizeh/talentmatch/internal/db"
	"github.com/garnizeh/talentmatch/internal/jobs"
	"github.com/garnizeh/talentmatch/internal/match"
	"github.com/garnizeh/talentmatch/internal/pubsub"
	"github.com/garnizeh/talentmatch/internal/repository/postgres"
	"github.com/garnizeh/talentmatch/internal/repository/sqlite"
	"github.com/garnizeh/talentmatch/pkg/models"
	"github.com/garnizeh/talentmatch/pkg/repository"
)

// Queue names double as job types in the jobs table.
const (
	SeekerQueue  = "seekers"
	ListingQueue = "listings"
)

// Backends holds every open connection. Close releases them in reverse order.
type Backends struct {
	DB        *db.DB
	Jobs      *jobs.Repository
	Seekers   repository.Store[models.Seeker]
	Listings  repository.Store[models.Listing]
	Publisher pubsub.Publisher

	pool *pgxpool.Pool
}

// Open connects the SQLite file (which always carries the job queue), the
// record store selected by cfg.Store.Driver and the match publisher.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backends, error) {
	conn, err := db.New(ctx, cfg.Store.DatabasePath, logger)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Migrate(ctx, conn, dbfs.Migrations); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	b := &Backends{DB: conn, Jobs: jobs.NewRepository(conn)}

	switch cfg.Store.Driver {
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.pool = pool
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			b.Close()
			return nil, err
		}
		b.Seekers = postgres.NewSeekers(pool, logger)
		b.Listings = postgres.NewListings(pool, logger)
	default:
		b.Seekers = sqlite.NewSeekers(conn, logger)
		b.Listings = sqlite.NewListings(conn, logger)
	}

	pub, err := pubsub.Open(ctx, cfg.PubSub.Driver, cfg.PubSub.URL, logger)
	if err != nil {
		b.Close()
		return nil, err
	}
	b.Publisher = pub

	return b, nil
}

// Senders returns the queues that deferred writes and match requests go to.
func (b *Backends) Senders(maxAttempts int) (seekers, listings *jobs.Sender) {
	return jobs.NewSender(b.Jobs, SeekerQueue, maxAttempts), jobs.NewSender(b.Jobs, ListingQueue, maxAttempts)
}

// Notifiers returns the matcher for seekers (finding listings) and the one
// for listings (finding seekers).
func (b *Backends) Notifiers(logger *slog.Logger) (*match.Notifier[models.Seeker, models.Listing], *match.Notifier[models.Listing, models.Seeker]) {
	return match.NewListingNotifier(b.Listings, b.Publisher, logger), match.NewSeekerNotifier(b.Seekers, b.Publisher, logger)
}

// Checks returns a reachability check per open database, for /health.
func (b *Backends) Checks() map[string]api.HealthCheck {
	checks := map[string]api.HealthCheck{"sqlite": b.DB.Ping}
	if b.pool != nil {
		checks["postgres"] = b.pool.Ping
	}
	return checks
}

func (b *Backends) Close() error {
	var err error
	if b.Publisher != nil {
		err = b.Publisher.Close()
	}
	if b.pool != nil {
		b.pool.Close()
	}
	if cerr := b.DB.Close(); err == nil {
		err = cerr
	}
	return err
}
