package app_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/garnizeh/talentmatch/internal/app"
	"github.com/garnizeh/talentmatch/internal/config"
	"github.com/garnizeh/talentmatch/internal/match"
	"github.com/garnizeh/talentmatch/pkg/models"
)

func sqliteConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Store.DatabasePath = filepath.Join(t.TempDir(), "tm.db")
	return cfg
}

func TestOpen_SQLiteBackends(t *testing.T) {
	ctx := context.Background()
	b, err := app.Open(ctx, sqliteConfig(t), nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer b.Close()

	seekers, _ := b.Senders(3)
	env, err := models.NewEnvelope(models.OpMatch, models.Key{ID: "s-1", Segment: "Tech"})
	if err != nil {
		t.Fatalf("envelope: %v", err)
	}
	if _, err := seekers.Send(ctx, env); err != nil {
		t.Fatalf("send: %v", err)
	}
	batch, err := b.Jobs.FetchBatch(ctx, app.SeekerQueue, 10, time.Minute)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(batch) != 1 || batch[0].MaxAttempts != 3 {
		t.Fatalf("expected one queued seeker job, got %+v", batch)
	}

	if _, err := b.Listings.Put(ctx, models.Listing{ID: "l-1", Segment: "Tech", CompanyName: "Acme", JobTitle: "Backend", Status: models.ListingOpen, HardSkillsTags: []string{"go"}}); err != nil {
		t.Fatalf("put listing: %v", err)
	}
	forSeekers, forListings := b.Notifiers(nil)
	if forSeekers.Topic() != match.TopicListingMatches || forListings.Topic() != match.TopicSeekerMatches {
		t.Fatalf("unexpected topics %q %q", forSeekers.Topic(), forListings.Topic())
	}
	found, err := forSeekers.Match(ctx, models.Seeker{ID: "s-1", Segment: "Tech", HardSkillsTags: []string{"go"}})
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if len(found) != 1 || found[0].ID != "l-1" {
		t.Fatalf("expected l-1, got %+v", found)
	}
}

func TestChecks_SQLite(t *testing.T) {
	b, err := app.Open(context.Background(), sqliteConfig(t), nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer b.Close()

	checks := b.Checks()
	if len(checks) != 1 || checks["sqlite"] == nil {
		t.Fatalf("expected only the sqlite check, got %v", checks)
	}
	if err := checks["sqlite"](context.Background()); err != nil {
		t.Fatalf("sqlite check: %v", err)
	}
}

func TestOpen_UnknownPubSubDriver(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.PubSub.Driver = "carrier-pigeon"
	if _, err := app.Open(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected error for unknown pubsub driver")
	}
}
