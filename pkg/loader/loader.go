package loader

import (
	"context"
	"fmt"
	"log"

	"transcript-search/pkg/captions"
	"transcript-search/pkg/domain"
)

// Status describes what happened to one caption pair during a run.
type Status string

const (
	StatusCreated Status = "created"
	StatusUpdated Status = "updated"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Result is the per-file outcome reported for both dry runs and real runs.
type Result struct {
	Stem   string
	Status Status
	Detail string
	Err    error
}

// Summary aggregates the per-file statuses of a run.
type Summary struct {
	Created int
	Updated int
	Skipped int
	Failed  int
}

// Summarize counts results by status.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		switch r.Status {
		case StatusCreated:
			s.Created++
		case StatusUpdated:
			s.Updated++
		case StatusSkipped:
			s.Skipped++
		case StatusFailed:
			s.Failed++
		}
	}
	return s
}

func (s Summary) String() string {
	return fmt.Sprintf("Created: %d  Updated: %d  Skipped: %d  Failed: %d",
		s.Created, s.Updated, s.Skipped, s.Failed)
}

// TranscriptStore is the storage surface the loader needs. Implemented by
// db.Store; tests use an in-memory fake.
type TranscriptStore interface {
	Exists(ctx context.Context, sourceID string) (bool, error)
	Create(ctx context.Context, t *domain.Transcript) error
	Update(ctx context.Context, t *domain.Transcript) error
}

// Config holds the loader settings, constructed once at process start and
// passed down explicitly.
type Config struct {
	// Dir is the captions directory containing <stem>.srt / <stem>.txt pairs.
	Dir string

	// DryRun parses and validates everything but writes nothing.
	DryRun bool

	// Overwrite updates transcripts whose source identifier already exists;
	// without it re-imports are skipped.
	Overwrite bool
}

// Loader scans a captions directory and upserts transcript records.
type Loader struct {
	cfg   Config
	store TranscriptStore
}

// New creates a loader.
func New(cfg Config, store TranscriptStore) *Loader {
	return &Loader{cfg: cfg, store: store}
}

// Run processes every caption pair in the directory sequentially and returns
// one result per stem.
//
// Parse failures are recorded as failed results and processing continues
// with the remaining files. Storage failures abort the batch: the results
// collected so far are returned together with the error.
func (l *Loader) Run(ctx context.Context) ([]Result, error) {
	reader := captions.NewReader(l.cfg.Dir)

	stems, err := reader.Scan()
	if err != nil {
		return nil, err
	}
	log.Printf("Found %d caption pairs in %s", len(stems), l.cfg.Dir)

	var results []Result
	for _, stem := range stems {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		transcript, warnings, err := reader.Read(stem)
		for _, w := range warnings {
			log.Printf("%s: %s", stem, w)
		}
		if err != nil {
			results = append(results, Result{Stem: stem, Status: StatusFailed, Err: err})
			l.logResult(results[len(results)-1])
			continue
		}

		result, err := l.apply(ctx, transcript)
		if err != nil {
			return results, fmt.Errorf("store %s: %w", stem, err)
		}
		results = append(results, result)
		l.logResult(result)
	}

	return results, nil
}

// apply decides created/updated/skipped for one transcript and performs the
// write unless this is a dry run. Storage errors are returned to the caller
// to abort the batch.
func (l *Loader) apply(ctx context.Context, t *domain.Transcript) (Result, error) {
	exists, err := l.store.Exists(ctx, t.SourceID)
	if err != nil {
		return Result{}, err
	}

	detail := fmt.Sprintf("SRT=%d chars, TXT=%d chars, segments=%d",
		len(t.SRTContent), len(t.BodyText), len(t.Segments))

	switch {
	case exists && !l.cfg.Overwrite:
		return Result{Stem: t.SourceID, Status: StatusSkipped, Detail: "already exists"}, nil

	case exists:
		if !l.cfg.DryRun {
			if err := l.store.Update(ctx, t); err != nil {
				return Result{}, err
			}
		}
		return Result{Stem: t.SourceID, Status: StatusUpdated, Detail: detail}, nil

	default:
		if !l.cfg.DryRun {
			if err := l.store.Create(ctx, t); err != nil {
				return Result{}, err
			}
		}
		return Result{Stem: t.SourceID, Status: StatusCreated, Detail: detail}, nil
	}
}

// logResult prints the per-file status line.
func (l *Loader) logResult(r Result) {
	prefix := ""
	if l.cfg.DryRun {
		prefix = "[DRY RUN] "
	}
	if r.Err != nil {
		log.Printf("%s%s %s: %v", prefix, r.Status, r.Stem, r.Err)
		return
	}
	log.Printf("%s%s %s: %s", prefix, r.Status, r.Stem, r.Detail)
}
