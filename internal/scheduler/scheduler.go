// Package scheduler runs the queue janitor: a cron job that deletes jobs
// which finished longer ago than the retention period.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Purger deletes finished jobs last touched before cutoff.
type Purger interface {
	PurgeDone(ctx context.Context, cutoff time.Time) (int64, error)
}

// Janitor wraps robfig/cron and owns the purge schedule.
type Janitor struct {
	cron      *cron.Cron
	purger    Purger
	spec      string // cron spec, e.g. "@every 1h"
	retention time.Duration
	logger    *slog.Logger
}

func New(purger Purger, spec string, retention time.Duration, logger *slog.Logger) *Janitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{
		cron:      cron.New(cron.WithLogger(cron.DefaultLogger)),
		purger:    purger,
		spec:      spec,
		retention: retention,
		logger:    logger,
	}
}

// Start registers the purge job and starts the scheduler.
func (j *Janitor) Start(ctx context.Context) error {
	_, err := j.cron.AddFunc(j.spec, func() {
		j.RunOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}
	j.cron.Start()
	j.logger.Info("janitor started", "spec", j.spec, "retention", j.retention.String())
	return nil
}

// Stop halts the scheduler and waits for a running purge to finish.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
	j.logger.Info("janitor stopped")
}

// RunOnce purges finished jobs older than the retention period.
func (j *Janitor) RunOnce(ctx context.Context) {
	n, err := j.purger.PurgeDone(ctx, time.Now().Add(-j.retention))
	if err != nil {
		j.logger.Error("purge done jobs", "err", err)
		return
	}
	if n > 0 {
		j.logger.Info("purged done jobs", "count", n)
	}
}
