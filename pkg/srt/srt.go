package srt

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"transcript-search/pkg/content"
	"transcript-search/pkg/domain"
)

// ErrNoSegments is returned when an SRT file yields zero parsable segments.
var ErrNoSegments = errors.New("no parsable segments in SRT content")

// Parse parses SubRip subtitle text into ordered timed segments.
//
// The expected structure is sequential blocks of:
//
//	1
//	00:00:00,000 --> 00:00:01,830
//	one or more text lines
//	<blank line>
//
// Malformed blocks are skipped and reported as warnings; they are not fatal
// unless the whole file is unparsable (zero segments), in which case
// ErrNoSegments is returned. Segment indices are renumbered sequentially,
// inline markup in caption text is stripped, and blocks whose start time
// moves backwards relative to the previous segment are rejected.
func Parse(srtContent string) ([]domain.Segment, []string, error) {
	normalized := strings.ReplaceAll(srtContent, "\r\n", "\n")

	var (
		segments []domain.Segment
		warnings []string
	)
	lastStart := time.Duration(-1)

	for i, block := range splitBlocks(normalized) {
		seg, err := parseBlock(block)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("block %d: %v", i+1, err))
			continue
		}

		if seg.Start < lastStart {
			warnings = append(warnings, fmt.Sprintf(
				"block %d: starts at %s, before the previous segment", i+1, FormatTimestamp(seg.Start)))
			continue
		}
		lastStart = seg.Start

		seg.Index = len(segments) + 1
		segments = append(segments, seg)
	}

	if len(segments) == 0 {
		return nil, warnings, ErrNoSegments
	}

	return segments, warnings, nil
}

// Serialize renders segments back into SubRip text. Timings round-trip
// through Parse at millisecond precision.
func Serialize(segments []domain.Segment) string {
	var b strings.Builder
	for i, seg := range segments {
		fmt.Fprintf(&b, "%d\n", i+1)
		fmt.Fprintf(&b, "%s --> %s\n", FormatTimestamp(seg.Start), FormatTimestamp(seg.End))
		b.WriteString(seg.Text)
		b.WriteString("\n\n")
	}
	return b.String()
}

// PlainText reconstructs a flat transcript body from segment texts,
// one segment per line. Used when a caption pair has no .txt counterpart.
func PlainText(segments []domain.Segment) string {
	lines := make([]string, 0, len(segments))
	for _, seg := range segments {
		if seg.Text != "" {
			lines = append(lines, seg.Text)
		}
	}
	return strings.Join(lines, "\n")
}

// Duration returns the end time of the last segment, or zero for an empty
// segment list.
func Duration(segments []domain.Segment) time.Duration {
	if len(segments) == 0 {
		return 0
	}
	return segments[len(segments)-1].End
}

// ParseTimestamp parses an SRT timestamp of the form HH:MM:SS,mmm.
// A dot before the millisecond field is tolerated since some tools emit it.
func ParseTimestamp(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)

	normalized := strings.Replace(s, ".", ",", 1)
	timePart, msPart, ok := strings.Cut(normalized, ",")
	if !ok {
		return 0, fmt.Errorf("invalid timestamp %q: missing millisecond separator", s)
	}

	fields := strings.Split(timePart, ":")
	if len(fields) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q: want HH:MM:SS,mmm", s)
	}
	if len(msPart) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q: milliseconds must be three digits", s)
	}

	hours, err1 := strconv.Atoi(fields[0])
	minutes, err2 := strconv.Atoi(fields[1])
	seconds, err3 := strconv.Atoi(fields[2])
	millis, err4 := strconv.Atoi(msPart)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return 0, fmt.Errorf("invalid timestamp %q: non-numeric field", s)
	}
	if hours < 0 || minutes < 0 || minutes > 59 || seconds < 0 || seconds > 59 || millis < 0 {
		return 0, fmt.Errorf("invalid timestamp %q: field out of range", s)
	}

	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(millis)*time.Millisecond, nil
}

// FormatTimestamp renders a duration as an SRT timestamp (HH:MM:SS,mmm).
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	ms := d.Milliseconds()
	hours := ms / 3_600_000
	ms -= hours * 3_600_000
	minutes := ms / 60_000
	ms -= minutes * 60_000
	seconds := ms / 1_000
	ms -= seconds * 1_000

	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, ms)
}

// splitBlocks splits SRT text into blocks separated by one or more blank lines.
func splitBlocks(s string) []string {
	var blocks []string
	var current []string

	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) == "" {
			if len(current) > 0 {
				blocks = append(blocks, strings.Join(current, "\n"))
				current = nil
			}
			continue
		}
		current = append(current, line)
	}

	if len(current) > 0 {
		blocks = append(blocks, strings.Join(current, "\n"))
	}

	return blocks
}

// parseBlock parses a single SRT block into a segment. The segment index is
// assigned by the caller.
func parseBlock(block string) (domain.Segment, error) {
	lines := strings.Split(block, "\n")

	timingIdx := -1
	for i, line := range lines {
		if strings.Contains(line, "-->") {
			timingIdx = i
			break
		}
	}
	if timingIdx == -1 {
		return domain.Segment{}, errors.New("missing timestamp line")
	}

	// Anything before the timing line should be the sequential counter.
	for i := 0; i < timingIdx; i++ {
		if l := strings.TrimSpace(lines[i]); l != "" && !isDigitOnly(l) {
			return domain.Segment{}, fmt.Errorf("unexpected line %q before timestamps", l)
		}
	}

	startRaw, endRaw, _ := strings.Cut(lines[timingIdx], "-->")

	start, err := ParseTimestamp(startRaw)
	if err != nil {
		return domain.Segment{}, err
	}
	end, err := ParseTimestamp(endRaw)
	if err != nil {
		return domain.Segment{}, err
	}
	if end < start {
		return domain.Segment{}, fmt.Errorf(
			"segment ends at %s before it starts at %s", FormatTimestamp(end), FormatTimestamp(start))
	}

	text := strings.TrimSpace(strings.Join(lines[timingIdx+1:], "\n"))
	text = content.StripTags(text)

	return domain.Segment{Start: start, End: end, Text: text}, nil
}

// isDigitOnly reports whether a string consists solely of ASCII digits.
func isDigitOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
