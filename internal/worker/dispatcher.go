// Package worker applies queued operations. Delivery is at least once, so
// CREATE checks whether the record already exists before inserting it. That
// check relies on the store returning a record written by an earlier
// delivery by the time the duplicate is processed.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/garnizeh/talentmatch/internal/apperr"
	"github.com/garnizeh/talentmatch/internal/match"
	"github.com/garnizeh/talentmatch/internal/persist"
	"github.com/garnizeh/talentmatch/pkg/models"
	"github.com/garnizeh/talentmatch/pkg/repository"
)

// queuedIdentity is the part of a queued CREATE or UPDATE payload that is
// assigned by the system rather than taken as input.
type queuedIdentity struct {
	ID        string    `json:"id"`
	Segment   string    `json:"segment"`
	CreatedAt time.Time `json:"createdAt"`
}

// Dispatcher applies envelopes for records of type T. MATCH and unknown
// operations run the notifier for the counterpart type C.
type Dispatcher[T repository.Record, I any, C match.Summarizer] struct {
	coord    *persist.Coordinator[T, I]
	notifier *match.Notifier[T, C]
	logger   *slog.Logger
	tracer   trace.Tracer
}

// New builds a dispatcher. coord should be in Direct mode: the worker is
// where deferred writes finally happen.
func New[T repository.Record, I any, C match.Summarizer](coord *persist.Coordinator[T, I], notifier *match.Notifier[T, C], logger *slog.Logger) *Dispatcher[T, I, C] {
	if logger == nil {
		logger = slog.Default()
	}
	if coord.Mode() != persist.Direct {
		logger.Warn("worker coordinator is not in DIRECT mode, queued writes will be re-queued", "mode", string(coord.Mode()))
	}
	return &Dispatcher[T, I, C]{
		coord:    coord,
		notifier: notifier,
		logger:   logger,
		tracer:   otel.Tracer("github.com/garnizeh/talentmatch/internal/worker"),
	}
}

// HandleBatch processes envelopes in order, one at a time, and stops at the
// first failure. It returns how many envelopes completed so the caller can
// redeliver the rest.
func (d *Dispatcher[T, I, C]) HandleBatch(ctx context.Context, batch []models.Envelope) (int, error) {
	for i, env := range batch {
		if err := d.Handle(ctx, env); err != nil {
			return i, err
		}
	}
	return len(batch), nil
}

// Handle applies one envelope. Errors are returned unchanged for the queue
// layer to retry or dead-letter.
func (d *Dispatcher[T, I, C]) Handle(ctx context.Context, env models.Envelope) (err error) {
	ctx, span := d.tracer.Start(ctx, "worker.handle", trace.WithAttributes(attribute.String("operation", string(env.Operation))))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	var key models.Key
	switch env.Operation {
	case models.OpCreate, models.OpUpdate:
		// CREATE and UPDATE payloads are decoded as input so that a field the
		// producer left out stays distinct from one it emptied.
		var (
			id queuedIdentity
			in I
		)
		if err := decodePayload(env, &id, &in); err != nil {
			return err
		}
		key = models.Key{ID: id.ID, Segment: id.Segment}
		if env.Operation == models.OpCreate {
			var rec *T
			if rec, err = d.create(ctx, id, &in); err == nil {
				key = (*rec).Key()
			}
		} else {
			_, err = d.coord.Update(ctx, key, &in)
		}
	case models.OpDelete:
		var rec T
		if err := decodePayload(env, &rec); err != nil {
			return err
		}
		key = rec.Key()
		_, err = d.coord.Delete(ctx, key)
	default:
		var rec T
		if err := decodePayload(env, &rec); err != nil {
			return err
		}
		key = rec.Key()
		if env.Operation != models.OpMatch {
			d.logger.Info("unknown operation treated as match", "operation", string(env.Operation))
		}
		_, err = d.notifier.Match(ctx, rec)
	}
	if err != nil {
		return err
	}
	d.logger.Debug("operation applied", "operation", string(env.Operation), "key", key.String())
	return nil
}

func decodePayload(env models.Envelope, dst ...any) error {
	for _, v := range dst {
		if err := json.Unmarshal(env.Payload, v); err != nil {
			return apperr.User("worker.decode", fmt.Sprintf("invalid %s payload: %v", env.Operation, err))
		}
	}
	return nil
}

// create inserts a queued record unless an earlier delivery already did.
func (d *Dispatcher[T, I, C]) create(ctx context.Context, id queuedIdentity, in *I) (*T, error) {
	rec, err := d.coord.Revalidate(in, id.ID, id.CreatedAt)
	if err != nil {
		return nil, err
	}
	if id.ID != "" {
		found, err := d.coord.Get(ctx, (*rec).Key())
		if err != nil {
			return nil, err
		}
		if found != nil {
			d.logger.Info("duplicate create skipped", "key", (*found).Key().String())
			return found, nil
		}
	}
	return d.coord.Persist(ctx, rec)
}
