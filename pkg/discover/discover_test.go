package discover

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const feedTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Test Podcast</title>
    <item>
      <title>Episode One: Parsing</title>
      <link>%[1]s/episodes/1</link>
      <enclosure url="%[1]s/media/ep1.mp3" type="audio/mpeg" length="100"/>
    </item>
    <item>
      <title></title>
      <link>%[1]s/episodes/2</link>
      <enclosure url="%[1]s/media/ep2.mp3" type="audio/mpeg" length="100"/>
    </item>
    <item>
      <title>Video Only</title>
      <enclosure url="%[1]s/media/ep3.mp4" type="video/mp4" length="100"/>
    </item>
  </channel>
</rss>`

const episodeOnePage = `<html><head><title>Episode One: Parsing</title></head><body>
<article>
<p>In this episode we talk about parsing subtitle files: how the block structure
of SubRip works, why the comma in its timestamp format trips up so many tools,
and what it takes to keep millisecond precision through a full round trip from
parsed segments back to serialized text. Our guest walks through the common
failure modes seen in real caption archives, from missing separators to blocks
whose timings run backwards.</p>
<p>In the second half we move on to storage: how a relational database can keep
a transcript searchable without the application maintaining any index of its
own, and where segment-level lookups beat whole-document ranking. We close with
a practical checklist for anyone building their own caption pipeline.</p>
</article>
</body></html>`

// newFeedServer serves a small RSS feed, episode pages and fake audio.
func newFeedServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	var server *httptest.Server

	mux.HandleFunc("/feed.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, feedTemplate, server.URL)
	})
	mux.HandleFunc("/episodes/1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, episodeOnePage)
	})
	mux.HandleFunc("/episodes/2", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>Episode Two: Recovery</title></head><body></body></html>`)
	})
	mux.HandleFunc("/media/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "fake audio bytes")
	})

	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestRun_DownloadsAudioEpisodes(t *testing.T) {
	server := newFeedServer(t)
	mediaDir := t.TempDir()

	svc := New(Config{
		FeedURL:  server.URL + "/feed.xml",
		MediaDir: mediaDir,
		Workers:  2,
	})

	results, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	// The video-only item has no audio enclosure and is not an episode.
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d: %+v", len(results), results)
	}

	byTitle := map[string]Result{}
	for _, r := range results {
		if r.Status != StatusDownloaded {
			t.Errorf("Expected downloaded, got %s for %q (%v)", r.Status, r.Title, r.Err)
		}
		byTitle[r.Title] = r
	}

	if _, ok := byTitle["Episode One: Parsing"]; !ok {
		t.Errorf("Missing episode one in results: %+v", results)
	}
	// The untitled item falls back to its page title.
	if _, ok := byTitle["Episode Two: Recovery"]; !ok {
		t.Errorf("Missing page-title fallback in results: %+v", results)
	}

	data, err := os.ReadFile(filepath.Join(mediaDir, "episode-one-parsing.mp3"))
	if err != nil {
		t.Fatalf("Failed to read downloaded media: %v", err)
	}
	if string(data) != "fake audio bytes" {
		t.Errorf("Unexpected media content: %q", data)
	}
}

func TestRun_WritesEpisodeNotes(t *testing.T) {
	server := newFeedServer(t)
	mediaDir := t.TempDir()

	svc := New(Config{
		FeedURL:  server.URL + "/feed.xml",
		MediaDir: mediaDir,
		Max:      1,
		Workers:  1,
	})

	results, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(results) != 1 || results[0].Status != StatusDownloaded {
		t.Fatalf("Unexpected results: %+v", results)
	}

	wantPath := filepath.Join(mediaDir, "episode-one-parsing.notes.txt")
	if results[0].NotesPath != wantPath {
		t.Errorf("NotesPath = %q, want %q", results[0].NotesPath, wantPath)
	}

	notes, err := os.ReadFile(wantPath)
	if err != nil {
		t.Fatalf("Failed to read notes file: %v", err)
	}
	if !strings.Contains(string(notes), "millisecond precision") {
		t.Errorf("Notes missing episode page text:\n%s", notes)
	}
}

func TestRun_SkipsExistingFiles(t *testing.T) {
	server := newFeedServer(t)
	mediaDir := t.TempDir()

	existing := filepath.Join(mediaDir, "episode-one-parsing.mp3")
	if err := os.WriteFile(existing, []byte("already here"), 0o644); err != nil {
		t.Fatalf("Failed to seed media file: %v", err)
	}

	svc := New(Config{
		FeedURL:  server.URL + "/feed.xml",
		MediaDir: mediaDir,
		Workers:  1,
	})

	results, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	skipped := 0
	for _, r := range results {
		if r.Status == StatusSkipped {
			skipped++
		}
	}
	if skipped != 1 {
		t.Errorf("Expected 1 skipped episode, got %d: %+v", skipped, results)
	}

	data, _ := os.ReadFile(existing)
	if string(data) != "already here" {
		t.Error("Existing file should not be overwritten")
	}
}

func TestRun_MaxLimitsEpisodes(t *testing.T) {
	server := newFeedServer(t)

	svc := New(Config{
		FeedURL:  server.URL + "/feed.xml",
		MediaDir: t.TempDir(),
		Max:      1,
		Workers:  1,
	})

	results, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("Expected 1 result with Max=1, got %d", len(results))
	}
}

func TestRun_EmptyFeedURL(t *testing.T) {
	svc := New(Config{MediaDir: t.TempDir()})
	if _, err := svc.Run(context.Background()); !errors.Is(err, ErrEmptyFeedURL) {
		t.Errorf("Expected ErrEmptyFeedURL, got %v", err)
	}
}

func TestRun_FeedWithoutAudio(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<?xml version="1.0"?><rss version="2.0"><channel><title>Empty</title></channel></rss>`)
	}))
	defer server.Close()

	svc := New(Config{FeedURL: server.URL, MediaDir: t.TempDir()})
	if _, err := svc.Run(context.Background()); !errors.Is(err, ErrNoEpisodes) {
		t.Errorf("Expected ErrNoEpisodes, got %v", err)
	}
}

func TestRun_MediaFailureIsPerEpisode(t *testing.T) {
	mux := http.NewServeMux()
	var server *httptest.Server
	mux.HandleFunc("/feed.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<?xml version="1.0"?><rss version="2.0"><channel><title>T</title>
			<item><title>Broken</title><enclosure url="%[1]s/gone.mp3" type="audio/mpeg"/></item>
			<item><title>Fine</title><enclosure url="%[1]s/media/ok.mp3" type="audio/mpeg"/></item>
			</channel></rss>`, server.URL)
	})
	mux.HandleFunc("/gone.mp3", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/media/ok.mp3", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "audio")
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	svc := New(Config{FeedURL: server.URL + "/feed.xml", MediaDir: t.TempDir(), Workers: 1})

	results, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	statuses := map[string]Status{}
	for _, r := range results {
		statuses[r.Title] = r.Status
	}
	if statuses["Broken"] != StatusFailed {
		t.Errorf("Expected failed for 404 media, got %s", statuses["Broken"])
	}
	if statuses["Fine"] != StatusDownloaded {
		t.Errorf("One bad episode should not affect the others, got %s", statuses["Fine"])
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Episode One: Parsing":     "episode-one-parsing",
		"  Spaces   everywhere  ":  "spaces-everywhere",
		"Already-slugged":          "already-slugged",
		"UPPER & lower, 42 things": "upper-lower-42-things",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExtensionFromURL(t *testing.T) {
	cases := map[string]string{
		"https://cdn.example.com/ep.m4a":        ".m4a",
		"https://cdn.example.com/ep.MP3?x=1":    ".mp3",
		"https://cdn.example.com/stream/noext":  ".mp3",
		"https://cdn.example.com/deep/path.ogg": ".ogg",
	}
	for in, want := range cases {
		if got := extensionFromURL(in); got != want {
			t.Errorf("extensionFromURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStemFromURL(t *testing.T) {
	if got := stemFromURL("https://cdn.example.com/shows/ep-42.mp3"); got != "ep-42" {
		t.Errorf("stemFromURL = %q, want ep-42", got)
	}
	if got := stemFromURL("https://cdn.example.com/"); got != "episode" {
		t.Errorf("stemFromURL fallback = %q, want episode", got)
	}
}
