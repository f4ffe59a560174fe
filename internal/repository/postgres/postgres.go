// Package postgres stores seekers and listings as jsonb documents in
// PostgreSQL. It mirrors the sqlite store for deployments that share one
// database between several API and worker processes.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/garnizeh/talentmatch/internal/repository/document"
	"github.com/garnizeh/talentmatch/pkg/models"
	"github.com/garnizeh/talentmatch/pkg/repository"
)

// NewPool creates and verifies a pgxpool connection pool.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the record tables when they are missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, table := range []string{"seekers", "listings"} {
		_, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+table+` (
			segment    TEXT NOT NULL,
			id         TEXT NOT NULL,
			doc        JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (segment, id)
		)`)
		if err != nil {
			return fmt.Errorf("create table %s: %w", table, err)
		}
	}
	return nil
}

// Store implements repository.Store for records of type T.
type Store[T repository.Record] struct {
	pool   *pgxpool.Pool
	table  string
	logger *slog.Logger
}

var _ repository.Store[models.Seeker] = (*Store[models.Seeker])(nil)

func NewSeekers(pool *pgxpool.Pool, logger *slog.Logger) *Store[models.Seeker] {
	return newStore[models.Seeker](pool, "seekers", logger)
}

func NewListings(pool *pgxpool.Pool, logger *slog.Logger) *Store[models.Listing] {
	return newStore[models.Listing](pool, "listings", logger)
}

func newStore[T repository.Record](pool *pgxpool.Pool, table string, logger *slog.Logger) *Store[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store[T]{pool: pool, table: table, logger: logger.With("table", table)}
}

func (s *Store[T]) Get(ctx context.Context, key models.Key) (*T, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT doc FROM `+s.table+` WHERE segment = $1 AND id = $2`, key.Segment, key.ID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %s: %w", s.table, key, err)
	}
	return document.Decode[T](raw)
}

func (s *Store[T]) Put(ctx context.Context, item T) (*T, error) {
	key := item.Key()
	raw, err := document.Encode(item)
	if err != nil {
		return nil, err
	}
	_, err = s.pool.Exec(ctx, `INSERT INTO `+s.table+` (segment, id, doc) VALUES ($1, $2, $3)
		ON CONFLICT (segment, id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()`,
		key.Segment, key.ID, raw)
	if err != nil {
		return nil, fmt.Errorf("put %s %s: %w", s.table, key, err)
	}
	return &item, nil
}

// Update overwrites the fields named in spec with those of values. The row
// is locked for the read-merge-write.
func (s *Store[T]) Update(ctx context.Context, key models.Key, spec repository.UpdateSpec, values T) (*T, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var stored []byte
	err = tx.QueryRow(ctx, `SELECT doc FROM `+s.table+` WHERE segment = $1 AND id = $2 FOR UPDATE`, key.Segment, key.ID).Scan(&stored)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("update %s %s: not found", s.table, key)
	}
	if err != nil {
		return nil, fmt.Errorf("update %s %s: %w", s.table, key, err)
	}
	merged, err := document.Overlay(stored, spec, values)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `UPDATE `+s.table+` SET doc = $1, updated_at = now() WHERE segment = $2 AND id = $3`, merged, key.Segment, key.ID); err != nil {
		return nil, fmt.Errorf("update %s %s: %w", s.table, key, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return document.Decode[T](merged)
}

func (s *Store[T]) Delete(ctx context.Context, key models.Key) (*T, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `DELETE FROM `+s.table+` WHERE segment = $1 AND id = $2 RETURNING doc`, key.Segment, key.ID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("delete %s %s: %w", s.table, key, err)
	}
	return document.Decode[T](raw)
}

// Query reads one segment and applies the filter expression in Go.
func (s *Store[T]) Query(ctx context.Context, q repository.Query) ([]T, error) {
	f, err := document.Compile(q)
	if err != nil {
		return nil, err
	}

	var rows pgx.Rows
	if f.Field == "segment" {
		rows, err = s.pool.Query(ctx, `SELECT doc FROM `+s.table+` WHERE segment = $1 ORDER BY id COLLATE "C"`, f.Value)
	} else {
		s.logger.Warn("query partition is not the segment column, scanning table", "field", f.Field)
		rows, err = s.pool.Query(ctx, `SELECT doc FROM `+s.table+` ORDER BY id COLLATE "C"`)
	}
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.table, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("query %s scan: %w", s.table, err)
		}
		ok, err := f.Match(raw)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		item, err := document.Decode[T](raw)
		if err != nil {
			return nil, err
		}
		out = append(out, *item)
	}
	return out, rows.Err()
}
