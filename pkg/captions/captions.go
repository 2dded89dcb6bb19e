package captions

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"transcript-search/pkg/domain"
	"transcript-search/pkg/srt"
)

var (
	// ErrNoCaptionFile is returned when a stem has no .srt counterpart.
	// Without the subtitle file there is no timing data to load.
	ErrNoCaptionFile = errors.New("no subtitle file found for stem")
)

// Reader reads caption file pairs (<stem>.srt + <stem>.txt) from a directory.
type Reader struct {
	dir string
}

// NewReader creates a caption reader rooted at the given directory.
func NewReader(dir string) *Reader {
	return &Reader{dir: dir}
}

// Scan enumerates the filename stems in the directory that have at least a
// subtitle file, sorted alphabetically. The extension match is exact: Read
// opens the literal "<stem>.srt", so enumerating other casings would promise
// files it cannot open on case-sensitive filesystems.
func (r *Reader) Scan() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("read captions directory: %w", err)
	}

	var stems []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if filepath.Ext(name) == ".srt" {
			stems = append(stems, strings.TrimSuffix(name, ".srt"))
		}
	}

	sort.Strings(stems)
	return stems, nil
}

// Read loads the caption pair for a stem and builds a transcript record.
//
// The .srt file is required; a missing .txt counterpart is tolerated and the
// body text is reconstructed from the segment texts instead. Warnings from
// skipped malformed subtitle blocks are returned alongside the record.
func (r *Reader) Read(stem string) (*domain.Transcript, []string, error) {
	srtPath := filepath.Join(r.dir, stem+".srt")
	srtBytes, err := os.ReadFile(srtPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: %s", ErrNoCaptionFile, srtPath)
		}
		return nil, nil, fmt.Errorf("read subtitle file: %w", err)
	}

	srtContent := string(srtBytes)
	segments, warnings, err := srt.Parse(srtContent)
	if err != nil {
		return nil, warnings, fmt.Errorf("parse %s: %w", srtPath, err)
	}

	bodyText, err := r.readBodyText(stem, segments)
	if err != nil {
		return nil, warnings, err
	}

	transcript := &domain.Transcript{
		SourceID:   stem,
		Title:      TitleFromStem(stem),
		SRTContent: srtContent,
		BodyText:   bodyText,
		Segments:   segments,
		Duration:   srt.Duration(segments),
	}

	return transcript, warnings, nil
}

// readBodyText reads the .txt counterpart for a stem, falling back to the
// concatenated segment texts when the file is missing.
func (r *Reader) readBodyText(stem string, segments []domain.Segment) (string, error) {
	txtPath := filepath.Join(r.dir, stem+".txt")
	txtBytes, err := os.ReadFile(txtPath)
	if err != nil {
		if os.IsNotExist(err) {
			return srt.PlainText(segments), nil
		}
		return "", fmt.Errorf("read text file: %w", err)
	}
	return strings.TrimSpace(string(txtBytes)), nil
}

// TitleFromStem derives a human-readable title from a filename stem by
// normalizing separators to spaces ("intro_lecture-1" -> "intro lecture 1").
func TitleFromStem(stem string) string {
	title := strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(stem)
	return strings.Join(strings.Fields(title), " ")
}
