package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const nicheColumns = "id, name, description, created_at"

// NewNiche inserts a niche category. Names are unique.
func (s *Store) NewNiche(ctx context.Context, name, description string) (*Niche, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO niches (name, description, created_at) VALUES (?, ?, ?)`,
		name, nullableString(description), timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert niche: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetNiche(ctx, id)
}

// GetNiche fetches a niche by identifier. Missing niches return (nil, nil).
func (s *Store) GetNiche(ctx context.Context, id int64) (*Niche, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+nicheColumns+` FROM niches WHERE id = ?`, id)
	niche, err := scanNiche(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get niche: %w", err)
	}
	return niche, nil
}

// ListNiches returns all niches ordered by name.
func (s *Store) ListNiches(ctx context.Context) ([]*Niche, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT `+nicheColumns+` FROM niches ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list niches: %w", err)
	}
	defer rows.Close()

	var niches []*Niche
	for rows.Next() {
		niche, err := scanNiche(rows)
		if err != nil {
			return nil, err
		}
		niches = append(niches, niche)
	}
	return niches, rows.Err()
}

func scanNiche(scanner interface{ Scan(dest ...any) error }) (*Niche, error) {
	var (
		id          int64
		name        string
		description sql.NullString
		createdRaw  sql.NullString
	)
	if err := scanner.Scan(&id, &name, &description, &createdRaw); err != nil {
		return nil, err
	}
	niche := &Niche{ID: id, Name: name, Description: description.String}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		niche.CreatedAt = created
	}
	return niche, nil
}
