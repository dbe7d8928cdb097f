package subtitles

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"shortcast/internal/config"
	"shortcast/internal/services"
)

// Generator transcribes a video's audio into timed segments using the
// whisper CLI and serializes them as an SRT artifact.
type Generator struct {
	whisperBinary string
	model         string
	language      string
	outputDir     string

	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewGenerator builds a Generator from processing configuration. SRT
// artifacts land in the processed directory next to the eventual output.
func NewGenerator(cfg *config.Config) *Generator {
	generator := &Generator{
		whisperBinary: cfg.Processing.WhisperBinary,
		model:         cfg.Processing.WhisperModel,
		language:      cfg.Processing.Language,
		outputDir:     cfg.Paths.ProcessedDir,
	}
	if generator.whisperBinary == "" {
		generator.whisperBinary = "whisper"
	}
	if generator.model == "" {
		generator.model = "base"
	}
	return generator
}

// WithCommandRunner sets a custom command runner (for testing).
func (g *Generator) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	g.commandRunner = runner
}

// Generate transcribes videoFile and writes <stem>.srt into the processed
// directory. Returns the newline-joined transcript and the SRT path.
func (g *Generator) Generate(ctx context.Context, videoFile string) (string, string, error) {
	if strings.TrimSpace(videoFile) == "" {
		return "", "", services.Wrap(services.ErrGeneration, "generator", "generate", "video path required", nil)
	}
	if err := os.MkdirAll(g.outputDir, 0o755); err != nil {
		return "", "", services.WrapPath(services.ErrGeneration, "generator", "generate", "ensure output dir", g.outputDir, err)
	}

	stem := strings.TrimSuffix(filepath.Base(videoFile), filepath.Ext(videoFile))
	args := []string{
		videoFile,
		"--model", g.model,
		"--output_format", "json",
		"--output_dir", g.outputDir,
		"--verbose", "False",
	}
	if g.language != "" {
		args = append(args, "--language", g.language)
	}
	if err := g.run(ctx, g.whisperBinary, args...); err != nil {
		return "", "", services.WrapPath(services.ErrGeneration, "generator", "transcribe", "whisper transcription failed", videoFile, err)
	}

	jsonPath := filepath.Join(g.outputDir, stem+".json")
	segments, err := loadWhisperSegments(jsonPath)
	if err != nil {
		return "", "", services.WrapPath(services.ErrGeneration, "generator", "parse", "read whisper output", jsonPath, err)
	}
	if len(segments) == 0 {
		return "", "", services.WrapPath(services.ErrGeneration, "generator", "parse", "transcription produced no segments", videoFile, nil)
	}

	srtPath := filepath.Join(g.outputDir, stem+".srt")
	if err := WriteSRT(srtPath, segments); err != nil {
		return "", "", services.WrapPath(services.ErrGeneration, "generator", "write_srt", "write subtitle artifact", srtPath, err)
	}
	return Transcript(segments), srtPath, nil
}

func (g *Generator) run(ctx context.Context, name string, args ...string) error {
	if g.commandRunner != nil {
		return g.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

type whisperSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type whisperPayload struct {
	Text     string           `json:"text"`
	Segments []whisperSegment `json:"segments"`
}

// loadWhisperSegments parses whisper's JSON output into ordered segments.
// Whisper emits segments in transcription order already; the sort is a
// guard against tools that merge passes out of order.
func loadWhisperSegments(jsonPath string) ([]Segment, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, err
	}
	var payload whisperPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse whisper json: %w", err)
	}
	segments := make([]Segment, 0, len(payload.Segments))
	for _, seg := range payload.Segments {
		if strings.TrimSpace(seg.Text) == "" {
			continue
		}
		segments = append(segments, Segment{Start: seg.Start, End: seg.End, Text: seg.Text})
	}
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].Start < segments[j].Start
	})
	return segments, nil
}
