package queue

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// AppendLog records an append-only audit entry for a video. Audit writes
// are best-effort from callers' perspective but still report failures.
func (s *Store) AppendLog(ctx context.Context, videoID int64, event, detail string) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO processing_log (video_id, event, detail, created_at) VALUES (?, ?, ?, ?)`,
		videoID, event, nullableString(detail), timestamp,
	)
	if err != nil {
		return fmt.Errorf("append processing log: %w", err)
	}
	return nil
}

// LogsForVideo returns audit entries for a video in append order.
func (s *Store) LogsForVideo(ctx context.Context, videoID int64) ([]*LogEntry, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT id, video_id, event, detail, created_at FROM processing_log WHERE video_id = ? ORDER BY id`,
		videoID,
	)
	if err != nil {
		return nil, fmt.Errorf("query processing log: %w", err)
	}
	defer rows.Close()

	var entries []*LogEntry
	for rows.Next() {
		var (
			entry      LogEntry
			detail     sql.NullString
			createdRaw sql.NullString
		)
		if err := rows.Scan(&entry.ID, &entry.VideoID, &entry.Event, &detail, &createdRaw); err != nil {
			return nil, err
		}
		entry.Detail = detail.String
		if created, err := parseTimeString(createdRaw.String); err == nil {
			entry.CreatedAt = created
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}
