package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const jobColumns = "id, video_id, kind, status, attempts, error_message, enqueued_at, started_at, finished_at, last_heartbeat"

// Enqueue inserts a job for a video unless an active job of the same kind
// already exists. The queue delivers at-least-once; this dedupe keeps
// duplicate triggers from producing parallel mutation sequences on one
// record. Returns the active job either way, with a flag reporting whether
// a new row was inserted.
func (s *Store) Enqueue(ctx context.Context, videoID int64, kind JobKind) (*Job, bool, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO jobs (video_id, kind, status, attempts, enqueued_at)
         SELECT ?, ?, ?, 0, ?
         WHERE NOT EXISTS (
             SELECT 1 FROM jobs
             WHERE video_id = ? AND kind = ? AND status IN (?, ?)
         )`,
		videoID, kind, JobQueued, timestamp,
		videoID, kind, JobQueued, JobRunning,
	)
	if err != nil {
		return nil, false, fmt.Errorf("enqueue job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("rows affected: %w", err)
	}

	job, err := s.activeJob(ctx, videoID, kind)
	if err != nil {
		return nil, false, err
	}
	return job, affected > 0, nil
}

func (s *Store) activeJob(ctx context.Context, videoID int64, kind JobKind) (*Job, error) {
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT `+jobColumns+` FROM jobs
         WHERE video_id = ? AND kind = ? AND status IN (?, ?)
         ORDER BY id LIMIT 1`,
		videoID, kind, JobQueued, JobRunning,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("active job: %w", err)
	}
	return job, nil
}

// GetJob fetches a job by identifier.
func (s *Store) GetJob(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// ClaimNext atomically claims the oldest queued job. The compare-and-swap
// UPDATE guarantees at-most-one worker wins a given job even when several
// poll concurrently. Returns (nil, nil) when the queue is empty.
func (s *Store) ClaimNext(ctx context.Context) (*Job, error) {
	ctx = ensureContext(ctx)
	for {
		row := s.db.QueryRowContext(
			ctx,
			`SELECT `+jobColumns+` FROM jobs WHERE status = ? ORDER BY enqueued_at, id LIMIT 1`,
			JobQueued,
		)
		job, err := scanJob(row)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("next queued job: %w", err)
		}

		now := time.Now().UTC()
		timestamp := now.Format(time.RFC3339Nano)
		res, err := s.execWithRetry(
			ctx,
			`UPDATE jobs
             SET status = ?, attempts = attempts + 1, started_at = ?, last_heartbeat = ?
             WHERE id = ? AND status = ?`,
			JobRunning, timestamp, timestamp, job.ID, JobQueued,
		)
		if err != nil {
			return nil, fmt.Errorf("claim job: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			// Another worker won the swap; try the next queued job.
			continue
		}

		job.Status = JobRunning
		job.Attempts++
		job.StartedAt = &now
		job.LastHeartbeat = &now
		return job, nil
	}
}

// FinishJob records a terminal job outcome.
func (s *Store) FinishJob(ctx context.Context, id int64, status JobStatus, errorMessage string) error {
	if status != JobDone && status != JobFailed {
		return fmt.Errorf("finish job: status %q is not terminal", status)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, error_message = ?, finished_at = ?, last_heartbeat = NULL
         WHERE id = ?`,
		status, nullableString(errorMessage), now, id,
	)
	if err != nil {
		return fmt.Errorf("finish job: %w", err)
	}
	return nil
}

// JobHeartbeat refreshes the heartbeat timestamp for an in-flight job.
func (s *Store) JobHeartbeat(ctx context.Context, id int64) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET last_heartbeat = ? WHERE id = ? AND status = ?`,
		now, id, JobRunning,
	)
	if err != nil {
		return fmt.Errorf("job heartbeat: %w", err)
	}
	return nil
}

// ReclaimStaleJobs returns running jobs whose heartbeat expired back to
// queued, so a crashed worker's claim is eventually re-delivered.
func (s *Store) ReclaimStaleJobs(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, started_at = NULL, last_heartbeat = NULL
         WHERE status = ? AND last_heartbeat IS NOT NULL AND last_heartbeat < ?`,
		JobQueued, JobRunning, cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale jobs: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailedJobs moves failed jobs back to queued. With no ids, all failed
// jobs are retried.
func (s *Store) RetryFailedJobs(ctx context.Context, ids ...int64) (int64, error) {
	if len(ids) == 0 {
		res, err := s.execWithRetry(
			ctx,
			`UPDATE jobs SET status = ?, error_message = NULL, finished_at = NULL WHERE status = ?`,
			JobQueued, JobFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed jobs: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+2)
	args = append(args, JobQueued, JobFailed)
	for _, id := range ids {
		args = append(args, id)
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, error_message = NULL, finished_at = NULL
         WHERE status = ? AND id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("retry selected jobs: %w", err)
	}
	return res.RowsAffected()
}

// ListJobs returns jobs filtered by status set (or all), oldest first.
func (s *Store) ListJobs(ctx context.Context, statuses ...JobStatus) ([]*Job, error) {
	baseQuery := `SELECT ` + jobColumns + ` FROM jobs`
	orderClause := ` ORDER BY enqueued_at, id`

	var (
		rows *sql.Rows
		err  error
	)
	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ensureContext(ctx), baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		rows, err = s.db.QueryContext(ensureContext(ctx), baseQuery+` WHERE status IN (`+placeholders+`)`+orderClause, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// ClearFinishedJobs removes done and failed jobs from the queue.
func (s *Store) ClearFinishedJobs(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE status IN (?, ?)`, JobDone, JobFailed)
	if err != nil {
		return 0, fmt.Errorf("clear finished jobs: %w", err)
	}
	return res.RowsAffected()
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id           int64
		videoID      int64
		kindStr      string
		statusStr    string
		attempts     int
		errorMessage sql.NullString
		enqueuedRaw  sql.NullString
		startedRaw   sql.NullString
		finishedRaw  sql.NullString
		heartbeatRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&videoID,
		&kindStr,
		&statusStr,
		&attempts,
		&errorMessage,
		&enqueuedRaw,
		&startedRaw,
		&finishedRaw,
		&heartbeatRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:           id,
		VideoID:      videoID,
		Kind:         JobKind(kindStr),
		Status:       JobStatus(statusStr),
		Attempts:     attempts,
		ErrorMessage: errorMessage.String,
	}
	if enqueued, err := parseTimeString(enqueuedRaw.String); err == nil {
		job.EnqueuedAt = enqueued
	}
	if startedRaw.Valid {
		if started, err := parseTimeString(startedRaw.String); err == nil {
			job.StartedAt = &started
		}
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			job.FinishedAt = &finished
		}
	}
	if heartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(heartbeatRaw.String); err == nil {
			job.LastHeartbeat = &heartbeat
		}
	}
	return job, nil
}
