package subtitles

import (
	"fmt"
	"os"
	"strings"
)

// Segment is one timed caption produced by transcription. Start and End
// are offsets from stream start in seconds.
type Segment struct {
	Start float64
	End   float64
	Text  string
}

// FormatTimestamp renders seconds as an SRT timestamp (HH:MM:SS,mmm).
// Milliseconds are truncated, never rounded up, so a cue can never be
// stamped past its real position.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	totalMillis := int64(seconds * 1000)
	hours := totalMillis / 3_600_000
	minutes := (totalMillis % 3_600_000) / 60_000
	secs := (totalMillis % 60_000) / 1000
	millis := totalMillis % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}

// RenderSRT serializes segments into SRT text, one index/timestamp/text
// block per segment in input order, blocks separated by a blank line.
// Segments with empty trimmed text are skipped and do not consume an index.
func RenderSRT(segments []Segment) string {
	var builder strings.Builder
	index := 0
	for _, segment := range segments {
		text := strings.TrimSpace(segment.Text)
		if text == "" {
			continue
		}
		index++
		fmt.Fprintf(&builder, "%d\n%s --> %s\n%s\n\n", index, FormatTimestamp(segment.Start), FormatTimestamp(segment.End), text)
	}
	return builder.String()
}

// WriteSRT renders segments and writes the artifact to path.
func WriteSRT(path string, segments []Segment) error {
	content := RenderSRT(segments)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write srt: %w", err)
	}
	return nil
}

// Transcript joins the trimmed segment texts with newlines.
func Transcript(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, segment := range segments {
		if text := strings.TrimSpace(segment.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n")
}
