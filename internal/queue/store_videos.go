package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const videoColumns = "id, title, file_path, processed_path, has_subtitles, transcript, status, error_message, youtube_url, niche_id, created_at, updated_at"

// NewVideo inserts a freshly uploaded video record.
func (s *Store) NewVideo(ctx context.Context, title, filePath string) (*Video, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO videos (title, file_path, has_subtitles, status, created_at, updated_at)
         VALUES (?, ?, 0, ?, ?, ?)`,
		nullableString(title),
		filePath,
		StatusUploaded,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert video: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetVideo(ctx, id)
}

// GetVideo fetches a video by identifier. Missing videos return (nil, nil).
func (s *Store) GetVideo(ctx context.Context, id int64) (*Video, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+videoColumns+` FROM videos WHERE id = ?`, id)
	video, err := scanVideo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get video: %w", err)
	}
	return video, nil
}

// UpdateVideo persists changes to an existing video record.
func (s *Store) UpdateVideo(ctx context.Context, video *Video) error {
	if video == nil {
		return errors.New("video is nil")
	}
	video.UpdatedAt = time.Now().UTC()
	_, err := s.execWithRetry(
		ctx,
		`UPDATE videos
         SET title = ?, file_path = ?, processed_path = ?, has_subtitles = ?,
             transcript = ?, status = ?, error_message = ?, youtube_url = ?,
             niche_id = ?, updated_at = ?
         WHERE id = ?`,
		nullableString(video.Title),
		video.FilePath,
		nullableString(video.ProcessedPath),
		boolToInt(video.HasSubtitles),
		nullableString(video.Transcript),
		video.Status,
		nullableString(video.ErrorMessage),
		nullableString(video.YouTubeURL),
		nullableID(video.NicheID),
		video.UpdatedAt.Format(time.RFC3339Nano),
		video.ID,
	)
	if err != nil {
		return fmt.Errorf("update video: %w", err)
	}
	return nil
}

// ListVideos returns videos filtered by status set (or all when no status
// is provided), oldest first.
func (s *Store) ListVideos(ctx context.Context, statuses ...Status) ([]*Video, error) {
	baseQuery := `SELECT ` + videoColumns + ` FROM videos`
	orderClause := ` ORDER BY created_at, id`

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
		return nil, fmt.Errorf("list videos: %w", err)
	}
	defer rows.Close()

	var videos []*Video
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, video)
	}
	return videos, rows.Err()
}

// DeleteVideo removes a video record. Associated jobs cascade.
func (s *Store) DeleteVideo(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM videos WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete video: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Stats returns a count of videos grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM videos GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("video stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates video and job counts for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch status {
		case StatusUploaded:
			health.Uploaded += count
		case StatusProcessed:
			health.Processed += count
		case StatusPublished:
			health.Published += count
		case StatusFailed, StatusUploadFailed:
			health.Failed += count
		default:
			if IsInFlight(status) {
				health.InFlight += count
			}
		}
	}

	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT COUNT(1) FROM jobs WHERE status = ?`, JobQueued)
	if err := row.Scan(&health.QueuedJobs); err != nil {
		return health, fmt.Errorf("count queued jobs: %w", err)
	}
	return health, nil
}

func scanVideo(scanner interface{ Scan(dest ...any) error }) (*Video, error) {
	var (
		id            int64
		title         sql.NullString
		filePath      string
		processedPath sql.NullString
		hasSubtitles  sql.NullInt64
		transcript    sql.NullString
		statusStr     string
		errorMessage  sql.NullString
		youtubeURL    sql.NullString
		nicheID       sql.NullInt64
		createdRaw    sql.NullString
		updatedRaw    sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&title,
		&filePath,
		&processedPath,
		&hasSubtitles,
		&transcript,
		&statusStr,
		&errorMessage,
		&youtubeURL,
		&nicheID,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	video := &Video{
		ID:            id,
		Title:         title.String,
		FilePath:      filePath,
		ProcessedPath: processedPath.String,
		HasSubtitles:  hasSubtitles.Valid && hasSubtitles.Int64 != 0,
		Transcript:    transcript.String,
		Status:        Status(statusStr),
		ErrorMessage:  errorMessage.String,
		YouTubeURL:    youtubeURL.String,
	}
	if nicheID.Valid {
		v := nicheID.Int64
		video.NicheID = &v
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		video.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		video.UpdatedAt = updated
	}
	return video, nil
}
