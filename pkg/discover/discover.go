package discover

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mmcdole/gofeed"

	"transcript-search/pkg/content"
	"transcript-search/pkg/httpclient"
)

var (
	ErrEmptyFeedURL = errors.New("feed URL is empty")
	ErrNoEpisodes   = errors.New("feed contains no audio episodes")
)

// Status describes what happened to one feed episode.
type Status string

const (
	StatusDownloaded Status = "downloaded"
	StatusSkipped    Status = "skipped"
	StatusFailed     Status = "failed"
)

// Result is the per-episode outcome of a discovery run.
type Result struct {
	Title  string
	URL    string
	Path   string
	Status Status
	Err    error

	// NotesPath is set when episode notes were extracted from the item page
	// and saved alongside the media file.
	NotesPath string
}

// Config holds the discovery settings.
type Config struct {
	// FeedURL is the podcast RSS/Atom feed to read.
	FeedURL string

	// MediaDir receives the downloaded audio files.
	MediaDir string

	// Max limits the number of episodes processed. <= 0 means no limit.
	Max int

	// Workers is the number of parallel download workers.
	Workers int
}

// Service discovers audio episodes in a feed and downloads them for later
// transcription.
type Service struct {
	cfg        Config
	feedParser *gofeed.Parser
	client     *httpclient.HTTPClient
}

// New creates a discovery service.
func New(cfg Config) *Service {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Service{
		cfg:        cfg,
		feedParser: gofeed.NewParser(),
		client:     httpclient.New(),
	}
}

// episode is one downloadable feed item.
type episode struct {
	title    string
	mediaURL string
	pageURL  string
}

// Run parses the feed and downloads every audio enclosure that is not
// already present in the media directory.
func (s *Service) Run(ctx context.Context) ([]Result, error) {
	if s.cfg.FeedURL == "" {
		return nil, ErrEmptyFeedURL
	}

	feed, err := s.feedParser.ParseURLWithContext(s.cfg.FeedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	episodes := collectEpisodes(feed)
	if len(episodes) == 0 {
		return nil, ErrNoEpisodes
	}
	if s.cfg.Max > 0 && len(episodes) > s.cfg.Max {
		episodes = episodes[:s.cfg.Max]
	}

	if err := os.MkdirAll(s.cfg.MediaDir, 0o755); err != nil {
		return nil, fmt.Errorf("create media directory: %w", err)
	}

	return s.downloadAll(ctx, episodes), nil
}

// downloadAll distributes episodes over a bounded worker pool.
func (s *Service) downloadAll(ctx context.Context, episodes []episode) []Result {
	jobs := make(chan episode)

	var (
		mu      sync.Mutex
		results []Result
		wg      sync.WaitGroup
	)

	wg.Add(s.cfg.Workers)
	for i := 0; i < s.cfg.Workers; i++ {
		go func() {
			defer wg.Done()
			for ep := range jobs {
				result := s.download(ctx, ep)
				mu.Lock()
				results = append(results, result)
				mu.Unlock()
			}
		}()
	}

	for _, ep := range episodes {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return results
		case jobs <- ep:
		}
	}

	close(jobs)
	wg.Wait()
	return results
}

// download fetches one episode's audio enclosure into the media directory.
// When the item links an episode page it is fetched once and mined for a
// title fallback and for episode notes.
func (s *Service) download(ctx context.Context, ep episode) Result {
	var pageHTML string
	title := ep.title
	if title == "" && ep.pageURL != "" {
		pageHTML = s.fetchPage(ctx, ep.pageURL)
		if t, err := content.ExtractTitle(pageHTML); err == nil {
			title = t
		}
	}
	if title == "" {
		title = stemFromURL(ep.mediaURL)
	}

	filename := Slugify(title) + extensionFromURL(ep.mediaURL)
	dest := filepath.Join(s.cfg.MediaDir, filename)

	result := Result{Title: title, URL: ep.mediaURL, Path: dest}

	if _, err := os.Stat(dest); err == nil {
		result.Status = StatusSkipped
		return result
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.mediaURL, nil)
	if err != nil {
		result.Status = StatusFailed
		result.Err = err
		return result
	}

	resp, err := s.client.Do(req)
	if err != nil {
		result.Status = StatusFailed
		result.Err = fmt.Errorf("fetch media: %w", err)
		return result
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		result.Status = StatusFailed
		result.Err = fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		return result
	}

	file, err := os.Create(dest)
	if err != nil {
		result.Status = StatusFailed
		result.Err = err
		return result
	}

	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		_ = os.Remove(dest)
		result.Status = StatusFailed
		result.Err = fmt.Errorf("write media file: %w", err)
		return result
	}
	if err := file.Close(); err != nil {
		result.Status = StatusFailed
		result.Err = err
		return result
	}

	if pageHTML == "" && ep.pageURL != "" {
		pageHTML = s.fetchPage(ctx, ep.pageURL)
	}
	result.NotesPath = s.writeNotes(dest, pageHTML)
	result.Status = StatusDownloaded
	return result
}

// writeNotes extracts the readable episode notes from a fetched item page and
// saves them next to the media file. Best-effort: pages without extractable
// content just produce no notes file.
func (s *Service) writeNotes(mediaPath, pageHTML string) string {
	if pageHTML == "" {
		return ""
	}

	notes, err := content.ExtractText(pageHTML)
	if err != nil || notes == "" {
		return ""
	}

	notesPath := strings.TrimSuffix(mediaPath, filepath.Ext(mediaPath)) + ".notes.txt"
	if err := os.WriteFile(notesPath, []byte(notes+"\n"), 0o644); err != nil {
		return ""
	}
	return notesPath
}

// fetchPage fetches an episode page. Best-effort: failures just mean the
// fallback naming is used and no notes are written.
func (s *Service) fetchPage(ctx context.Context, pageURL string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return ""
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return ""
	}

	return string(body)
}

// collectEpisodes extracts the audio enclosures from a parsed feed.
func collectEpisodes(feed *gofeed.Feed) []episode {
	var episodes []episode
	for _, item := range feed.Items {
		for _, enc := range item.Enclosures {
			if enc == nil || enc.URL == "" || !isAudioEnclosure(enc) {
				continue
			}
			episodes = append(episodes, episode{
				title:    strings.TrimSpace(item.Title),
				mediaURL: enc.URL,
				pageURL:  item.Link,
			})
			break // one media file per item
		}
	}
	return episodes
}

var audioExtensions = map[string]bool{
	".mp3":  true,
	".m4a":  true,
	".wav":  true,
	".ogg":  true,
	".flac": true,
}

// isAudioEnclosure accepts enclosures with an audio MIME type or a known
// audio file extension.
func isAudioEnclosure(enc *gofeed.Enclosure) bool {
	if strings.HasPrefix(enc.Type, "audio/") {
		return true
	}
	return audioExtensions[strings.ToLower(extensionFromURL(enc.URL))]
}

// extensionFromURL returns the file extension of a URL path, defaulting to
// .mp3 when none is present.
func extensionFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ".mp3"
	}
	ext := strings.ToLower(path.Ext(parsed.Path))
	if ext == "" {
		return ".mp3"
	}
	return ext
}

// stemFromURL derives a name from the last path element of a URL.
func stemFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "episode"
	}
	base := path.Base(parsed.Path)
	stem := strings.TrimSuffix(base, path.Ext(base))
	if stem == "" || stem == "." || stem == "/" {
		return "episode"
	}
	return stem
}

// Slugify turns an episode title into a safe filename stem.
func Slugify(s string) string {
	var b strings.Builder
	lastDash := true // avoid a leading dash
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
