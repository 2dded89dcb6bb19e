package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"transcript-search/pkg/domain"
)

const lecture1SRT = `1
00:00:00,000 --> 00:00:02,000
Hello and welcome.

2
00:00:02,100 --> 00:00:04,000
Today we cover parsing.
`

// fakeStore is an in-memory TranscriptStore for loader tests.
type fakeStore struct {
	transcripts map[string]*domain.Transcript
	creates     int
	updates     int
	failWith    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{transcripts: make(map[string]*domain.Transcript)}
}

func (f *fakeStore) Exists(ctx context.Context, sourceID string) (bool, error) {
	if f.failWith != nil {
		return false, f.failWith
	}
	_, ok := f.transcripts[sourceID]
	return ok, nil
}

func (f *fakeStore) Create(ctx context.Context, t *domain.Transcript) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.creates++
	f.transcripts[t.SourceID] = t
	return nil
}

func (f *fakeStore) Update(ctx context.Context, t *domain.Transcript) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.updates++
	f.transcripts[t.SourceID] = t
	return nil
}

func writeCaptions(t *testing.T, dir, stem, srtContent, txtContent string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, stem+".srt"), []byte(srtContent), 0o644); err != nil {
		t.Fatalf("Failed to write SRT: %v", err)
	}
	if txtContent != "" {
		if err := os.WriteFile(filepath.Join(dir, stem+".txt"), []byte(txtContent), 0o644); err != nil {
			t.Fatalf("Failed to write TXT: %v", err)
		}
	}
}

func statuses(results []Result) map[string]Status {
	m := make(map[string]Status, len(results))
	for _, r := range results {
		m[r.Stem] = r.Status
	}
	return m
}

func TestRun_CreatesNewTranscript(t *testing.T) {
	dir := t.TempDir()
	writeCaptions(t, dir, "lecture1", lecture1SRT, "Hello and welcome. Today we cover parsing.")

	store := newFakeStore()
	results, err := New(Config{Dir: dir}, store).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}
	if results[0].Status != StatusCreated {
		t.Fatalf("Expected status created, got %s", results[0].Status)
	}
	if len(store.transcripts) != 1 {
		t.Fatalf("Expected 1 stored transcript, got %d", len(store.transcripts))
	}

	stored := store.transcripts["lecture1"]
	if len(stored.Segments) != 2 {
		t.Errorf("Expected 2 segments, got %d", len(stored.Segments))
	}
}

func TestRun_SecondLoadWithoutOverwriteSkips(t *testing.T) {
	dir := t.TempDir()
	writeCaptions(t, dir, "lecture1", lecture1SRT, "original body")

	store := newFakeStore()
	if _, err := New(Config{Dir: dir}, store).Run(context.Background()); err != nil {
		t.Fatalf("First run returned error: %v", err)
	}

	results, err := New(Config{Dir: dir}, store).Run(context.Background())
	if err != nil {
		t.Fatalf("Second run returned error: %v", err)
	}

	if results[0].Status != StatusSkipped {
		t.Fatalf("Expected status skipped, got %s", results[0].Status)
	}
	if len(store.transcripts) != 1 {
		t.Fatalf("Expected exactly 1 stored transcript, got %d", len(store.transcripts))
	}
	if store.updates != 0 {
		t.Errorf("Expected no updates, got %d", store.updates)
	}
}

func TestRun_SecondLoadWithOverwriteUpdates(t *testing.T) {
	dir := t.TempDir()
	writeCaptions(t, dir, "lecture1", lecture1SRT, "original body")

	store := newFakeStore()
	if _, err := New(Config{Dir: dir}, store).Run(context.Background()); err != nil {
		t.Fatalf("First run returned error: %v", err)
	}

	writeCaptions(t, dir, "lecture1", lecture1SRT, "revised body")
	results, err := New(Config{Dir: dir, Overwrite: true}, store).Run(context.Background())
	if err != nil {
		t.Fatalf("Second run returned error: %v", err)
	}

	if results[0].Status != StatusUpdated {
		t.Fatalf("Expected status updated, got %s", results[0].Status)
	}
	if len(store.transcripts) != 1 {
		t.Fatalf("Expected exactly 1 stored transcript, got %d", len(store.transcripts))
	}
	if got := store.transcripts["lecture1"].BodyText; got != "revised body" {
		t.Errorf("Expected updated body text, got %q", got)
	}
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	dir := t.TempDir()
	writeCaptions(t, dir, "one", lecture1SRT, "")
	writeCaptions(t, dir, "two", lecture1SRT, "")
	writeCaptions(t, dir, "three", lecture1SRT, "")

	store := newFakeStore()
	results, err := New(Config{Dir: dir, DryRun: true}, store).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	for _, r := range results {
		if r.Status != StatusCreated {
			t.Errorf("Expected would-be status created for %s, got %s", r.Stem, r.Status)
		}
	}
	if len(store.transcripts) != 0 || store.creates != 0 || store.updates != 0 {
		t.Fatal("Dry run must not write to the store")
	}
}

func TestRun_ParseFailureDoesNotAffectSiblings(t *testing.T) {
	dir := t.TempDir()
	writeCaptions(t, dir, "good", lecture1SRT, "")
	writeCaptions(t, dir, "broken", "completely unparsable\ncontent", "")

	store := newFakeStore()
	results, err := New(Config{Dir: dir}, store).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	got := statuses(results)
	if got["broken"] != StatusFailed {
		t.Errorf("Expected broken to fail, got %s", got["broken"])
	}
	if got["good"] != StatusCreated {
		t.Errorf("Expected good to be created, got %s", got["good"])
	}

	summary := Summarize(results)
	if summary.Created != 1 || summary.Failed != 1 {
		t.Errorf("Unexpected summary: %+v", summary)
	}
}

func TestRun_StorageErrorAbortsBatch(t *testing.T) {
	dir := t.TempDir()
	writeCaptions(t, dir, "a", lecture1SRT, "")
	writeCaptions(t, dir, "b", lecture1SRT, "")

	store := newFakeStore()
	store.failWith = errors.New("connection refused")

	results, err := New(Config{Dir: dir}, store).Run(context.Background())
	if err == nil {
		t.Fatal("Run should propagate storage errors")
	}
	if len(results) != 0 {
		t.Fatalf("Expected no completed results before the abort, got %d", len(results))
	}
}

func TestRun_MissingDirectoryIsError(t *testing.T) {
	store := newFakeStore()
	if _, err := New(Config{Dir: filepath.Join(t.TempDir(), "missing")}, store).Run(context.Background()); err == nil {
		t.Fatal("Run should fail on a missing captions directory")
	}
}

func TestSummaryString(t *testing.T) {
	s := Summary{Created: 2, Updated: 1, Skipped: 3, Failed: 0}
	want := "Created: 2  Updated: 1  Skipped: 3  Failed: 0"
	if s.String() != want {
		t.Errorf("Summary.String() = %q, want %q", s.String(), want)
	}
}
