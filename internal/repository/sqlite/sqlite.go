// Package sqlite stores seekers and listings as JSON documents in SQLite,
// one table per entity keyed by (segment, id).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/garnizeh/talentmatch/internal/db"
	"github.com/garnizeh/talentmatch/internal/repository/document"
	"github.com/garnizeh/talentmatch/pkg/models"
	"github.com/garnizeh/talentmatch/pkg/repository"
)

// Table names created by the migrations.
const (
	SeekersTable  = "seekers"
	ListingsTable = "listings"
)

// Store implements repository.Store for records of type T.
type Store[T repository.Record] struct {
	conn   *db.DB
	table  string
	logger *slog.Logger
}

// Ensure Store implements the public interface.
var _ repository.Store[models.Seeker] = (*Store[models.Seeker])(nil)
var _ repository.Store[models.Listing] = (*Store[models.Listing])(nil)

func NewSeekers(conn *db.DB, logger *slog.Logger) *Store[models.Seeker] {
	return newStore[models.Seeker](conn, SeekersTable, logger)
}

func NewListings(conn *db.DB, logger *slog.Logger) *Store[models.Listing] {
	return newStore[models.Listing](conn, ListingsTable, logger)
}

func newStore[T repository.Record](conn *db.DB, table string, logger *slog.Logger) *Store[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store[T]{conn: conn, table: table, logger: logger.With("table", table)}
}

func now() int64 {
	return time.Now().UTC().UnixMilli()
}

func (s *Store[T]) Get(ctx context.Context, key models.Key) (*T, error) {
	var raw string
	row := s.conn.QueryRow(ctx, `SELECT doc FROM `+s.table+` WHERE segment = ? AND id = ?`, key.Segment, key.ID)
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get %s %s: %w", s.table, key, err)
	}
	return document.Decode[T]([]byte(raw))
}

// Put inserts item, replacing any document already stored under its key.
func (s *Store[T]) Put(ctx context.Context, item T) (*T, error) {
	key := item.Key()
	raw, err := document.Encode(item)
	if err != nil {
		return nil, err
	}
	ts := now()
	_, err = s.conn.Exec(ctx, `INSERT INTO `+s.table+` (segment, id, doc, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(segment, id) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at`,
		key.Segment, key.ID, string(raw), ts, ts)
	if err != nil {
		return nil, fmt.Errorf("put %s %s: %w", s.table, key, err)
	}
	return &item, nil
}

// Update overwrites the fields named in spec with those of values and returns
// the stored result. Updating a missing key is an error.
func (s *Store[T]) Update(ctx context.Context, key models.Key, spec repository.UpdateSpec, values T) (*T, error) {
	tx, err := s.conn.GetConn().BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var stored string
	if err := tx.QueryRowContext(ctx, `SELECT doc FROM `+s.table+` WHERE segment = ? AND id = ?`, key.Segment, key.ID).Scan(&stored); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("update %s %s: not found", s.table, key)
		}
		return nil, fmt.Errorf("update %s %s: %w", s.table, key, err)
	}
	merged, err := document.Overlay([]byte(stored), spec, values)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE `+s.table+` SET doc = ?, updated_at = ? WHERE segment = ? AND id = ?`,
		string(merged), now(), key.Segment, key.ID); err != nil {
		return nil, fmt.Errorf("update %s %s: %w", s.table, key, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return document.Decode[T](merged)
}

// Delete removes the document under key and returns what was stored, or nil
// when there was nothing to remove.
func (s *Store[T]) Delete(ctx context.Context, key models.Key) (*T, error) {
	var raw string
	row := s.conn.QueryRow(ctx, `DELETE FROM `+s.table+` WHERE segment = ? AND id = ? RETURNING doc`, key.Segment, key.ID)
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("delete %s %s: %w", s.table, key, err)
	}
	return document.Decode[T]([]byte(raw))
}

// Query reads the partition named by q's partition predicate and keeps the
// documents its filter expression accepts, ordered by id.
func (s *Store[T]) Query(ctx context.Context, q repository.Query) ([]T, error) {
	f, err := document.Compile(q)
	if err != nil {
		return nil, err
	}

	var rows *sql.Rows
	if f.Field == "segment" {
		rows, err = s.conn.Query(ctx, `SELECT doc FROM `+s.table+` WHERE segment = ? ORDER BY id`, f.Value)
	} else {
		s.logger.Warn("query partition is not the segment column, scanning table", "field", f.Field)
		rows, err = s.conn.Query(ctx, `SELECT doc FROM `+s.table+` ORDER BY id`)
	}
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.table, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("query %s: %w", s.table, err)
		}
		ok, err := f.Match([]byte(raw))
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		item, err := document.Decode[T]([]byte(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, *item)
	}
	return out, rows.Err()
}
