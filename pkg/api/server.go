package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"transcript-search/pkg/db"
	"transcript-search/pkg/domain"
	"transcript-search/pkg/search"
)

// DefaultLimit caps result counts when the client does not ask for one.
const DefaultLimit = 20

// MaxLimit is the hard ceiling on the limit query parameter.
const MaxLimit = 100

// Searcher runs search queries. Implemented by search.Service.
type Searcher interface {
	Search(ctx context.Context, query string, typ search.Type, limit int) (*search.Results, error)
}

// TranscriptGetter loads a single transcript. Implemented by db.Store.
type TranscriptGetter interface {
	Get(ctx context.Context, sourceID string) (*domain.Transcript, error)
}

// Server exposes the search and transcript lookups over HTTP.
type Server struct {
	searcher Searcher
	getter   TranscriptGetter
}

// NewServer creates the HTTP API server.
func NewServer(searcher Searcher, getter TranscriptGetter) *Server {
	return &Server{searcher: searcher, getter: getter}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /search", s.handleSearch)
	mux.HandleFunc("GET /transcripts/{sourceID}", s.handleGetTranscript)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

// handleSearch serves GET /search?q=...&type=...&limit=...
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	typ, err := search.ParseType(r.URL.Query().Get("type"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	results, err := s.searcher.Search(r.Context(), query, typ, limit)
	if err != nil {
		log.Printf("Search failed for %q: %v", query, err)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	writeJSON(w, http.StatusOK, results)
}

// handleGetTranscript serves GET /transcripts/{sourceID}
func (s *Server) handleGetTranscript(w http.ResponseWriter, r *http.Request) {
	sourceID := r.PathValue("sourceID")

	transcript, err := s.getter.Get(r.Context(), sourceID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, http.StatusNotFound, "transcript not found")
			return
		}
		log.Printf("Get transcript %q failed: %v", sourceID, err)
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, transcript)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// parseLimit validates the limit query parameter.
func parseLimit(raw string) (int, error) {
	if raw == "" {
		return DefaultLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, errors.New("limit must be a positive integer")
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return limit, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
