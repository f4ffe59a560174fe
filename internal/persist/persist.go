// Package persist coordinates validation, storage and queueing for one
// entity type.
//
// In Direct mode a write goes to the store and is followed by a best-effort
// MATCH request on the queue; a failure to enqueue that request is logged and
// never fails the write. In Deferred mode the queue is the only durability
// path: the validated operation is enqueued, the store is not touched, and a
// failure to enqueue fails the call.
package persist

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/garnizeh/talentmatch/internal/apperr"
	"github.com/garnizeh/talentmatch/pkg/models"
	"github.com/garnizeh/talentmatch/pkg/repository"
)

const tracerName = "github.com/garnizeh/talentmatch/internal/persist"

// Rules validates payloads of input type I into records of type T.
type Rules[T, I any] interface {
	Create(in *I) (*T, error)
	Update(in *I, original *T) (*T, error)
	Delete(original *T) (*T, error)
	Revalidate(in *I, id string, createdAt time.Time) (*T, error)
	UpdateFields() []string
}

// Coordinator runs create, update and delete for records of type T built
// from payloads of type I.
type Coordinator[T repository.Record, I any] struct {
	name   string
	mode   Mode
	rules  Rules[T, I]
	store  repository.Store[T]
	queue  repository.Queue
	logger *slog.Logger
	tracer trace.Tracer
}

// New returns a coordinator for the entity called name ("seeker", "listing").
func New[T repository.Record, I any](name string, mode Mode, rules Rules[T, I], store repository.Store[T], queue repository.Queue, logger *slog.Logger) *Coordinator[T, I] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator[T, I]{
		name:   name,
		mode:   mode,
		rules:  rules,
		store:  store,
		queue:  queue,
		logger: logger.With("entity", name, "mode", string(mode)),
		tracer: otel.Tracer(tracerName),
	}
}

func (c *Coordinator[T, I]) Mode() Mode { return c.mode }

// Get returns the record stored under key, or nil when there is none.
func (c *Coordinator[T, I]) Get(ctx context.Context, key models.Key) (*T, error) {
	ctx, span := c.start(ctx, "get", key)
	rec, err := c.store.Get(ctx, key)
	err = apperr.Internal(c.method("get"), err)
	end(span, err)
	return rec, err
}

// Create validates in and either stores it or enqueues a CREATE.
func (c *Coordinator[T, I]) Create(ctx context.Context, in *I) (rec *T, err error) {
	ctx, span := c.start(ctx, "create", models.Key{})
	defer func() { end(span, err) }()

	rec, err = c.rules.Create(in)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("record.id", (*rec).Key().ID))

	if c.mode == Deferred {
		if err := c.enqueue(ctx, models.OpCreate, rec, "create"); err != nil {
			return nil, err
		}
		return rec, nil
	}
	return c.Persist(ctx, rec)
}

// Persist writes an already validated record and requests a match pass. It
// always has Direct semantics and is what the queue worker uses for CREATE.
func (c *Coordinator[T, I]) Persist(ctx context.Context, rec *T) (*T, error) {
	inserted, err := c.store.Put(ctx, *rec)
	if err != nil {
		return nil, apperr.Internal(c.method("create"), err)
	}
	c.logDispatch(c.dispatchMatch(ctx, inserted))
	return inserted, nil
}

// Update fetches the record under key, merges in over it and either writes
// the result or enqueues an UPDATE.
func (c *Coordinator[T, I]) Update(ctx context.Context, key models.Key, in *I) (rec *T, err error) {
	ctx, span := c.start(ctx, "update", key)
	defer func() { end(span, err) }()

	original, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, apperr.Internal(c.method("update"), err)
	}
	rec, err = c.rules.Update(in, original)
	if err != nil {
		return nil, err
	}

	if c.mode == Deferred {
		if err := c.enqueue(ctx, models.OpUpdate, rec, "update"); err != nil {
			return nil, err
		}
		return rec, nil
	}

	updated, err := c.store.Update(ctx, key, c.rules.UpdateFields(), *rec)
	if err != nil {
		return nil, apperr.Internal(c.method("update"), err)
	}
	c.logDispatch(c.dispatchMatch(ctx, updated))
	return updated, nil
}

// Delete fetches the record under key and either removes it or enqueues a
// DELETE. No match pass follows a delete.
func (c *Coordinator[T, I]) Delete(ctx context.Context, key models.Key) (rec *T, err error) {
	ctx, span := c.start(ctx, "delete", key)
	defer func() { end(span, err) }()

	original, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, apperr.Internal(c.method("delete"), err)
	}
	existing, err := c.rules.Delete(original)
	if err != nil {
		return nil, err
	}

	if c.mode == Deferred {
		if err := c.enqueue(ctx, models.OpDelete, existing, "delete"); err != nil {
			return nil, err
		}
		return existing, nil
	}

	deleted, err := c.store.Delete(ctx, key)
	if err != nil {
		return nil, apperr.Internal(c.method("delete"), err)
	}
	if deleted == nil {
		deleted = existing
	}
	return deleted, nil
}

// Revalidate checks a payload received from the queue before it is written,
// keeping the identity it was queued with.
func (c *Coordinator[T, I]) Revalidate(in *I, id string, createdAt time.Time) (*T, error) {
	return c.rules.Revalidate(in, id, createdAt)
}

func (c *Coordinator[T, I]) enqueue(ctx context.Context, op models.Operation, rec *T, action string) error {
	env, err := models.NewEnvelope(op, rec)
	if err != nil {
		return apperr.Internal(c.method(action), err)
	}
	msgID, err := c.queue.Send(ctx, env)
	if err != nil {
		return apperr.Internal(c.method(action), err)
	}
	c.logger.Info("operation queued", "operation", string(op), "key", (*rec).Key().String(), "message_id", msgID)
	return nil
}

// Dispatch is the outcome of a best-effort MATCH request. It is reported
// through the logger only.
type Dispatch struct {
	Key       models.Key
	MessageID string
	Err       error
}

func (c *Coordinator[T, I]) dispatchMatch(ctx context.Context, rec *T) Dispatch {
	d := Dispatch{Key: (*rec).Key()}
	env, err := models.NewEnvelope(models.OpMatch, rec)
	if err != nil {
		d.Err = err
		return d
	}
	d.MessageID, d.Err = c.queue.Send(ctx, env)
	return d
}

func (c *Coordinator[T, I]) logDispatch(d Dispatch) {
	if d.Err != nil {
		c.logger.Warn("match dispatch failed", "key", d.Key.String(), "err", d.Err)
		return
	}
	c.logger.Debug("match dispatched", "key", d.Key.String(), "message_id", d.MessageID)
}

func (c *Coordinator[T, I]) method(action string) string {
	return "persist." + c.name + "." + action
}

func (c *Coordinator[T, I]) start(ctx context.Context, action string, key models.Key) (context.Context, trace.Span) {
	ctx, span := c.tracer.Start(ctx, c.method(action))
	span.SetAttributes(attribute.String("persist.mode", string(c.mode)))
	if key.ID != "" {
		span.SetAttributes(attribute.String("record.id", key.ID), attribute.String("record.segment", key.Segment))
	}
	return ctx, span
}

func end(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
