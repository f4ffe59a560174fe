package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Defaults applied by NewWorkerPool for zero Options fields.
const (
	DefaultBatchSize    = 10
	DefaultPollInterval = 500 * time.Millisecond
	DefaultVisibility   = 5 * time.Minute
)

// Options tune a WorkerPool. Workers defaults to 1 so that a queue's batches
// are applied strictly one after another.
type Options struct {
	Workers      int
	BatchSize    int
	PollInterval time.Duration
	Visibility   time.Duration
}

type WorkerPool struct {
	repo     *Repository
	handlers map[string]BatchHandler
	types    []string
	logger   *slog.Logger
	opts     Options
	stop     chan struct{}
	once     sync.Once
	wg       sync.WaitGroup
}

func NewWorkerPool(repo *Repository, handlers map[string]BatchHandler, logger *slog.Logger, opts Options) *WorkerPool {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Visibility <= 0 {
		opts.Visibility = DefaultVisibility
	}
	if logger == nil {
		logger = slog.Default()
	}
	types := make([]string, 0, len(handlers))
	for t := range handlers {
		types = append(types, t)
	}
	sort.Strings(types)
	return &WorkerPool{repo: repo, handlers: handlers, types: types, logger: logger, opts: opts, stop: make(chan struct{})}
}

// Start launches the worker goroutines
func (p *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < p.opts.Workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// Stop signals workers to stop and waits for them. A batch in progress is
// finished first.
func (p *WorkerPool) Stop() {
	p.once.Do(func() { close(p.stop) })
	p.wg.Wait()
}

func (p *WorkerPool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-p.stop:
			p.logger.Info("worker stopping", "id", id)
			return
		case <-ctx.Done():
			p.logger.Info("context canceled, worker exiting", "id", id)
			return
		default:
		}

		worked, err := p.poll(ctx)
		if err != nil {
			p.logger.Error("fetch jobs", "err", err)
		}
		if worked {
			continue
		}
		// nothing to do
		select {
		case <-p.stop:
		case <-ctx.Done():
		case <-time.After(p.opts.PollInterval):
		}
	}
}

// poll runs at most one batch per queue and reports whether any job ran.
func (p *WorkerPool) poll(ctx context.Context) (bool, error) {
	worked := false
	for _, typ := range p.types {
		batch, err := p.repo.FetchBatch(ctx, typ, p.opts.BatchSize, p.opts.Visibility)
		if err != nil {
			return worked, err
		}
		if len(batch) == 0 {
			continue
		}
		worked = true
		p.process(ctx, typ, batch)
	}
	return worked, nil
}

// process runs a claimed batch. Jobs before the failing one are done, the
// failing one is retried or dead-lettered, and the rest go back to the queue
// without using up an attempt.
func (p *WorkerPool) process(ctx context.Context, typ string, batch []*Job) {
	n, err := p.handlers[typ](ctx, batch)
	n = max(0, min(n, len(batch)))
	if err == nil || n == len(batch) {
		n = len(batch)
	}
	if uerr := p.repo.SetStatus(ctx, StatusDone, batch[:n]); uerr != nil {
		p.logger.Error("mark jobs done", "type", typ, "err", uerr)
	}
	if n == len(batch) {
		if err != nil {
			p.logger.Error("batch handler reported error after completing every job", "type", typ, "err", err)
		}
		return
	}

	failed := batch[n]
	failed.Attempts++
	failed.LastError = err.Error()
	if failed.Attempts >= failed.MaxAttempts {
		failed.Status = StatusFailed
		failed.LastError = fmt.Sprintf("%v: %s", ErrMaxAttempts, err)
		if mvErr := p.repo.MoveToDeadLetter(ctx, failed); mvErr != nil {
			p.logger.Error("move to dead letter", "job_id", failed.ID, "err", mvErr)
		} else {
			p.logger.Warn("job dead-lettered", "type", typ, "job_id", failed.ID, "attempts", failed.Attempts, "err", err)
		}
	} else {
		t := time.Now().Add(BackoffDuration(failed.Attempts))
		failed.NextTryAt = &t
		failed.Status = StatusRetry
		if upErr := p.repo.UpdateJob(ctx, failed); upErr != nil {
			p.logger.Error("update job for retry", "job_id", failed.ID, "err", upErr)
		} else {
			p.logger.Warn("job scheduled for retry", "type", typ, "job_id", failed.ID, "attempts", failed.Attempts, "next_try_at", t, "err", err)
		}
	}

	if rest := batch[n+1:]; len(rest) > 0 {
		if rlErr := p.repo.SetStatus(ctx, StatusQueued, rest); rlErr != nil {
			p.logger.Error("release unprocessed jobs", "type", typ, "err", rlErr)
		}
	}
}
