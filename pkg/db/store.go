package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"transcript-search/pkg/domain"
)

// ErrNotFound is returned when no transcript exists for a source identifier.
var ErrNotFound = errors.New("transcript not found")

// schemaStatements creates the transcript tables. The search_vector column is
// generated and indexed by Postgres itself; application code never writes it.
// Weights mirror the importance of each field: identifier and title highest,
// then the plain transcript body, then the raw SRT (which duplicates the body
// but carries timestamps).
var schemaStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS pg_trgm`,

	`CREATE TABLE IF NOT EXISTS transcripts (
		id            BIGSERIAL PRIMARY KEY,
		source_id     TEXT NOT NULL UNIQUE,
		title         TEXT NOT NULL DEFAULT '',
		srt_content   TEXT NOT NULL DEFAULT '',
		text_content  TEXT NOT NULL DEFAULT '',
		duration_ms   BIGINT NOT NULL DEFAULT 0,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		search_vector tsvector GENERATED ALWAYS AS (
			setweight(to_tsvector('english', coalesce(source_id, '')), 'A') ||
			setweight(to_tsvector('english', coalesce(title, '')), 'A') ||
			setweight(to_tsvector('english', coalesce(text_content, '')), 'B') ||
			setweight(to_tsvector('english', coalesce(srt_content, '')), 'C')
		) STORED
	)`,

	`CREATE INDEX IF NOT EXISTS transcript_search_idx
		ON transcripts USING GIN (search_vector)`,

	`CREATE TABLE IF NOT EXISTS transcript_segments (
		id            BIGSERIAL PRIMARY KEY,
		transcript_id BIGINT NOT NULL REFERENCES transcripts(id) ON DELETE CASCADE,
		segment_index INT NOT NULL,
		start_ms      BIGINT NOT NULL,
		end_ms        BIGINT NOT NULL,
		text          TEXT NOT NULL,
		UNIQUE (transcript_id, segment_index)
	)`,

	`CREATE INDEX IF NOT EXISTS transcript_segment_trgm_idx
		ON transcript_segments USING GIN (text gin_trgm_ops)`,
}

// TranscriptHit is one ranked full-text search result.
type TranscriptHit struct {
	SourceID string  `json:"source_id"`
	Title    string  `json:"title"`
	Rank     float64 `json:"rank"`
	Headline string  `json:"headline"`
}

// SegmentHit is one trigram-similarity segment result with its timing, so a
// match can be jumped to inside the recording.
type SegmentHit struct {
	SourceID     string  `json:"source_id"`
	SegmentIndex int     `json:"segment_index"`
	StartMS      int64   `json:"start_ms"`
	EndMS        int64   `json:"end_ms"`
	Text         string  `json:"text"`
	Similarity   float64 `json:"similarity"`
}

// Store persists transcripts and their segments in Postgres.
type Store struct {
	db *sql.DB
}

// NewStore creates a transcript store on top of a connected database client.
func NewStore(provider DBProvider) *Store {
	return &Store{db: provider.DB()}
}

// EnsureSchema creates the transcript tables and indexes if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// Exists reports whether a transcript with the given source identifier is
// already stored.
func (s *Store) Exists(ctx context.Context, sourceID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM transcripts WHERE source_id = $1)`, sourceID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check transcript existence: %w", err)
	}
	return exists, nil
}

// Create inserts a new transcript and its segments in one transaction.
func (s *Store) Create(ctx context.Context, t *domain.Transcript) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO transcripts (source_id, title, srt_content, text_content, duration_ms)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		t.SourceID, t.Title, t.SRTContent, t.BodyText, t.Duration.Milliseconds()).Scan(&id)
	if err != nil {
		return fmt.Errorf("insert transcript %s: %w", t.SourceID, err)
	}

	if err := insertSegments(ctx, tx, id, t.Segments); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transcript %s: %w", t.SourceID, err)
	}
	return nil
}

// Update replaces the mutable fields and segments of an existing transcript
// in one transaction. Returns ErrNotFound when the source identifier is
// unknown.
func (s *Store) Update(ctx context.Context, t *domain.Transcript) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, `
		UPDATE transcripts
		SET title = $2, srt_content = $3, text_content = $4, duration_ms = $5, updated_at = now()
		WHERE source_id = $1
		RETURNING id`,
		t.SourceID, t.Title, t.SRTContent, t.BodyText, t.Duration.Milliseconds()).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update transcript %s: %w", t.SourceID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update transcript %s: %w", t.SourceID, err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM transcript_segments WHERE transcript_id = $1`, id); err != nil {
		return fmt.Errorf("delete segments of %s: %w", t.SourceID, err)
	}

	if err := insertSegments(ctx, tx, id, t.Segments); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transcript %s: %w", t.SourceID, err)
	}
	return nil
}

// Get loads a transcript and its segments by source identifier.
func (s *Store) Get(ctx context.Context, sourceID string) (*domain.Transcript, error) {
	var (
		id         int64
		t          domain.Transcript
		durationMS int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, source_id, title, srt_content, text_content, duration_ms, created_at, updated_at
		FROM transcripts
		WHERE source_id = $1`, sourceID).
		Scan(&id, &t.SourceID, &t.Title, &t.SRTContent, &t.BodyText, &durationMS, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get transcript %s: %w", sourceID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get transcript %s: %w", sourceID, err)
	}
	t.Duration = time.Duration(durationMS) * time.Millisecond

	rows, err := s.db.QueryContext(ctx, `
		SELECT segment_index, start_ms, end_ms, text
		FROM transcript_segments
		WHERE transcript_id = $1
		ORDER BY segment_index`, id)
	if err != nil {
		return nil, fmt.Errorf("get segments of %s: %w", sourceID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			seg     domain.Segment
			startMS int64
			endMS   int64
		)
		if err := rows.Scan(&seg.Index, &startMS, &endMS, &seg.Text); err != nil {
			return nil, fmt.Errorf("scan segment of %s: %w", sourceID, err)
		}
		seg.Start = time.Duration(startMS) * time.Millisecond
		seg.End = time.Duration(endMS) * time.Millisecond
		t.Segments = append(t.Segments, seg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate segments of %s: %w", sourceID, err)
	}

	return &t, nil
}

// SearchTranscripts runs a ranked full-text search over the generated search
// vector using websearch query syntax.
func (s *Store) SearchTranscripts(ctx context.Context, query string, limit int) ([]TranscriptHit, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT source_id, title,
		       ts_rank(search_vector, q) AS rank,
		       ts_headline('english', text_content, q,
		                   'MaxFragments=2, MaxWords=18, MinWords=8') AS headline
		FROM transcripts, websearch_to_tsquery('english', $1) AS q
		WHERE search_vector @@ q
		ORDER BY rank DESC
		LIMIT $2`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("full-text search: %w", err)
	}
	defer rows.Close()

	var hits []TranscriptHit
	for rows.Next() {
		var h TranscriptHit
		if err := rows.Scan(&h.SourceID, &h.Title, &h.Rank, &h.Headline); err != nil {
			return nil, fmt.Errorf("scan search hit: %w", err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search hits: %w", err)
	}

	return hits, nil
}

// SearchSegments finds segments by trigram similarity (pg_trgm), ordered by
// similarity score.
func (s *Store) SearchSegments(ctx context.Context, query string, limit int) ([]SegmentHit, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT t.source_id, s.segment_index, s.start_ms, s.end_ms, s.text,
		       similarity(s.text, $1) AS sim
		FROM transcript_segments s
		JOIN transcripts t ON t.id = s.transcript_id
		WHERE similarity(s.text, $1) > 0.05
		ORDER BY sim DESC
		LIMIT $2`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("trigram search: %w", err)
	}
	defer rows.Close()

	var hits []SegmentHit
	for rows.Next() {
		var h SegmentHit
		if err := rows.Scan(&h.SourceID, &h.SegmentIndex, &h.StartMS, &h.EndMS, &h.Text, &h.Similarity); err != nil {
			return nil, fmt.Errorf("scan segment hit: %w", err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate segment hits: %w", err)
	}

	return hits, nil
}

// insertSegments inserts all segments of a transcript inside the caller's
// transaction.
func insertSegments(ctx context.Context, tx *sql.Tx, transcriptID int64, segments []domain.Segment) error {
	if len(segments) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transcript_segments (transcript_id, segment_index, start_ms, end_ms, text)
		VALUES ($1, $2, $3, $4, $5)`)
	if err != nil {
		return fmt.Errorf("prepare segment insert: %w", err)
	}
	defer stmt.Close()

	for _, seg := range segments {
		if _, err := stmt.ExecContext(ctx,
			transcriptID, seg.Index, seg.Start.Milliseconds(), seg.End.Milliseconds(), seg.Text); err != nil {
			return fmt.Errorf("insert segment %d: %w", seg.Index, err)
		}
	}

	return nil
}
