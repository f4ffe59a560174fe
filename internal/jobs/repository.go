package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/garnizeh/talentmatch/internal/db"
)

const jobColumns = `id, type, payload, status, attempts, max_attempts, priority, scheduled_at, next_try_at, last_error, created, updated`

// Repository stores jobs in the jobs and dead_letter_jobs tables.
// scheduled_at and next_try_at are unix seconds; created and updated are unix
// milliseconds.
type Repository struct {
	db *db.DB
}

func NewRepository(d *db.DB) *Repository { return &Repository{db: d} }

// Enqueue inserts a job into the jobs table and returns the new ID
func (r *Repository) Enqueue(ctx context.Context, j *Job) (int64, error) {
	if j.MaxAttempts == 0 {
		j.MaxAttempts = 5
	}
	if j.ScheduledAt.IsZero() {
		j.ScheduledAt = time.Now()
	}
	now := time.Now().UTC().UnixMilli()
	q := `INSERT INTO jobs(type, payload, status, attempts, max_attempts, priority, scheduled_at, created, updated) VALUES(?,?,?,?,?,?,?,?,?)`
	res, err := r.db.Exec(ctx, q, j.Type, string(j.Payload), StatusQueued, j.Attempts, j.MaxAttempts, j.Priority, j.ScheduledAt.UTC().Unix(), now, now)
	if err != nil {
		return 0, fmt.Errorf("enqueue failed: %w", err)
	}
	return res.LastInsertId()
}

// FetchBatch claims up to limit runnable jobs of type typ by marking them
// running. Jobs left running for longer than visibility (a worker died
// mid-batch) are claimed again. The batch is ordered by priority, schedule
// and insertion.
func (r *Repository) FetchBatch(ctx context.Context, typ string, limit int, visibility time.Duration) ([]*Job, error) {
	if limit <= 0 {
		limit = 1
	}
	if visibility <= 0 {
		visibility = DefaultVisibility
	}
	now := time.Now().UTC()
	q := `UPDATE jobs SET status = ?, updated = ? WHERE id IN (
		SELECT id FROM jobs
		WHERE type = ?
		  AND ((status IN (?, ?) AND (next_try_at IS NULL OR next_try_at <= ?) AND scheduled_at <= ?)
		    OR (status = ? AND updated <= ?))
		ORDER BY priority ASC, scheduled_at ASC, id ASC
		LIMIT ?)
	RETURNING ` + jobColumns
	rows, err := r.db.Query(ctx, q,
		StatusRunning, now.UnixMilli(),
		typ,
		StatusQueued, StatusRetry, now.Unix(), now.Unix(),
		StatusRunning, now.Add(-visibility).UnixMilli(),
		limit)
	if err != nil {
		return nil, fmt.Errorf("fetch batch: %w", err)
	}
	defer rows.Close()

	var batch []*Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("fetch batch: %w", err)
		}
		batch = append(batch, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch batch: %w", err)
	}
	sort.Slice(batch, func(i, k int) bool {
		a, b := batch[i], batch[k]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if !a.ScheduledAt.Equal(b.ScheduledAt) {
			return a.ScheduledAt.Before(b.ScheduledAt)
		}
		return a.ID < b.ID
	})
	return batch, nil
}

// Get returns the job with id, or nil when it is not in the jobs table.
func (r *Repository) Get(ctx context.Context, id int64) (*Job, error) {
	rows, err := r.db.Query(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanJob(rows)
}

// UpdateJob updates attempts, status, next_try_at, last_error
func (r *Repository) UpdateJob(ctx context.Context, j *Job) error {
	var nextTry any
	if j.NextTryAt != nil {
		nextTry = j.NextTryAt.Unix()
	}
	q := `UPDATE jobs SET status = ?, attempts = ?, next_try_at = ?, last_error = ?, updated = ? WHERE id = ?`
	_, err := r.db.Exec(ctx, q, j.Status, j.Attempts, nextTry, j.LastError, time.Now().UTC().UnixMilli(), j.ID)
	return err
}

// SetStatus moves the given jobs to status in one statement.
func (r *Repository) SetStatus(ctx context.Context, status string, jobs []*Job) error {
	if len(jobs) == 0 {
		return nil
	}
	args := []any{status, time.Now().UTC().UnixMilli()}
	marks := make([]string, len(jobs))
	for i, j := range jobs {
		marks[i] = "?"
		args = append(args, j.ID)
	}
	q := `UPDATE jobs SET status = ?, updated = ? WHERE id IN (` + strings.Join(marks, ",") + `)`
	_, err := r.db.Exec(ctx, q, args...)
	return err
}

// MoveToDeadLetter moves a job to dead_letter_jobs and deletes the original
func (r *Repository) MoveToDeadLetter(ctx context.Context, j *Job) error {
	tx, err := r.db.GetConn().BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	insert := `INSERT INTO dead_letter_jobs(job_id, type, payload, attempts, last_error, failed_at) VALUES(?,?,?,?,?,?)`
	if _, err := tx.ExecContext(ctx, insert, j.ID, j.Type, string(j.Payload), j.Attempts, j.LastError, time.Now().UTC().Unix()); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, j.ID); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// CountDeadLetters returns how many jobs of type typ were dead-lettered.
func (r *Repository) CountDeadLetters(ctx context.Context, typ string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(1) FROM dead_letter_jobs WHERE type = ?`, typ).Scan(&n)
	return n, err
}

// PurgeDone deletes finished jobs last touched before cutoff.
func (r *Repository) PurgeDone(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.Exec(ctx, `DELETE FROM jobs WHERE status = ? AND updated < ?`, StatusDone, cutoff.UTC().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("purge done jobs: %w", err)
	}
	return res.RowsAffected()
}

func scanJob(rows *sql.Rows) (*Job, error) {
	var (
		j           Job
		payload     sql.NullString
		scheduledAt int64
		nextTry     sql.NullInt64
		lastError   sql.NullString
		created     int64
		updated     int64
	)
	if err := rows.Scan(&j.ID, &j.Type, &payload, &j.Status, &j.Attempts, &j.MaxAttempts, &j.Priority, &scheduledAt, &nextTry, &lastError, &created, &updated); err != nil {
		return nil, err
	}
	j.ScheduledAt = time.Unix(scheduledAt, 0)
	j.Created = time.UnixMilli(created)
	j.Updated = time.UnixMilli(updated)
	if payload.Valid {
		j.Payload = json.RawMessage(payload.String)
	}
	if nextTry.Valid {
		t := time.Unix(nextTry.Int64, 0)
		j.NextTryAt = &t
	}
	if lastError.Valid {
		j.LastError = lastError.String
	}
	return &j, nil
}
