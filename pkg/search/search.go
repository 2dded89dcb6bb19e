package search

import (
	"context"
	"fmt"
	"strings"

	"transcript-search/pkg/db"
)

// Type selects a search method.
type Type string

const (
	// TypeFullText ranks whole transcripts with PostgreSQL full-text search.
	TypeFullText Type = "fts"

	// TypeTrigram finds individual segments by pg_trgm similarity.
	TypeTrigram Type = "trigram"

	// TypeHybrid runs every enabled method and combines the results.
	TypeHybrid Type = "hybrid"
)

// Config enables or disables individual search methods and sets the default
// dispatch type.
type Config struct {
	FullTextEnabled bool
	TrigramEnabled  bool
	DefaultType     Type
}

// DefaultConfig enables both methods with hybrid dispatch.
func DefaultConfig() Config {
	return Config{
		FullTextEnabled: true,
		TrigramEnabled:  true,
		DefaultType:     TypeHybrid,
	}
}

// Backend is the query surface the service needs. Implemented by db.Store.
type Backend interface {
	SearchTranscripts(ctx context.Context, query string, limit int) ([]db.TranscriptHit, error)
	SearchSegments(ctx context.Context, query string, limit int) ([]db.SegmentHit, error)
}

// Results bundles the hits of one search dispatch.
type Results struct {
	Type        Type               `json:"type"`
	Transcripts []db.TranscriptHit `json:"transcripts"`
	Segments    []db.SegmentHit    `json:"segments"`
}

// Service dispatches queries to the enabled search methods.
type Service struct {
	cfg     Config
	backend Backend
}

// New creates a search service.
func New(cfg Config, backend Backend) *Service {
	if cfg.DefaultType == "" {
		cfg.DefaultType = TypeHybrid
	}
	return &Service{cfg: cfg, backend: backend}
}

// Search runs a query with the requested type. An empty type uses the
// configured default; a requested method that is disabled falls back to
// hybrid dispatch over whatever is enabled. Empty queries return empty
// results.
func (s *Service) Search(ctx context.Context, query string, typ Type, limit int) (*Results, error) {
	query = strings.TrimSpace(query)
	if typ == "" {
		typ = s.cfg.DefaultType
	}

	if query == "" {
		return &Results{Type: typ}, nil
	}

	// Fall back to hybrid when the requested method is disabled.
	if typ == TypeFullText && !s.cfg.FullTextEnabled {
		typ = TypeHybrid
	}
	if typ == TypeTrigram && !s.cfg.TrigramEnabled {
		typ = TypeHybrid
	}

	results := &Results{Type: typ}

	switch typ {
	case TypeFullText:
		hits, err := s.backend.SearchTranscripts(ctx, query, limit)
		if err != nil {
			return nil, err
		}
		results.Transcripts = hits

	case TypeTrigram:
		hits, err := s.backend.SearchSegments(ctx, query, limit)
		if err != nil {
			return nil, err
		}
		results.Segments = hits

	case TypeHybrid:
		if s.cfg.FullTextEnabled {
			hits, err := s.backend.SearchTranscripts(ctx, query, limit)
			if err != nil {
				return nil, err
			}
			results.Transcripts = hits
		}
		if s.cfg.TrigramEnabled {
			hits, err := s.backend.SearchSegments(ctx, query, limit)
			if err != nil {
				return nil, err
			}
			results.Segments = hits
		}

	default:
		return nil, fmt.Errorf("unknown search type %q", typ)
	}

	return results, nil
}

// ParseType validates a user-supplied search type string.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case "", TypeFullText, TypeTrigram, TypeHybrid:
		return Type(s), nil
	default:
		return "", fmt.Errorf("unknown search type %q (want fts, trigram or hybrid)", s)
	}
}
