package domain

import "time"

// Segment is a single timed caption parsed from an SRT file.
type Segment struct {
	// Index is the 1-based position of the segment within its transcript.
	Index int `json:"index"`

	// Start and End are offsets from the beginning of the recording.
	// SRT timing syntax (HH:MM:SS,mmm) carries millisecond precision, so
	// both values are always whole milliseconds.
	Start time.Duration `json:"start_ms"`
	End   time.Duration `json:"end_ms"`

	// Text is the caption text with any inline markup stripped.
	Text string `json:"text"`
}

// Transcript represents one transcribed recording stored in the database.
type Transcript struct {
	// SourceID is the natural key derived from the original media filename
	// (e.g., the stem of "lecture1.mp3"). Unique and immutable after creation.
	SourceID string `json:"source_id"`

	// Title is a human-readable label derived from the filename, mutable.
	Title string `json:"title"`

	// SRTContent is the raw SubRip file content as produced by the
	// transcription tool.
	SRTContent string `json:"srt_content,omitempty"`

	// BodyText is the flat plain-text transcript. When no .txt counterpart
	// exists it is reconstructed from the segment texts.
	BodyText string `json:"body_text"`

	// Segments are the timed captions in file order.
	Segments []Segment `json:"segments,omitempty"`

	// Duration is the end time of the last segment.
	Duration time.Duration `json:"duration_ms"`

	// CreatedAt and UpdatedAt are set by the storage layer.
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
