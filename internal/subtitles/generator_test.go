package subtitles

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shortcast/internal/services"
	"shortcast/internal/testsupport"
)

func TestGenerateWritesTranscriptAndSRT(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	generator := NewGenerator(cfg)
	videoFile := writeTestVideo(t)

	payload := `{
		"text": "hello world again",
		"segments": [
			{"start": 0.0, "end": 1.5, "text": " hello world "},
			{"start": 1.5, "end": 3.0, "text": "again"}
		]
	}`
	generator.WithCommandRunner(func(_ context.Context, name string, args ...string) error {
		stem := strings.TrimSuffix(filepath.Base(videoFile), filepath.Ext(videoFile))
		jsonPath := filepath.Join(cfg.Paths.ProcessedDir, stem+".json")
		return os.WriteFile(jsonPath, []byte(payload), 0o644)
	})

	transcript, srtPath, err := generator.Generate(context.Background(), videoFile)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if transcript != "hello world\nagain" {
		t.Fatalf("transcript = %q", transcript)
	}
	if filepath.Dir(srtPath) != cfg.Paths.ProcessedDir {
		t.Fatalf("srt path %q outside processed dir", srtPath)
	}

	data, err := os.ReadFile(srtPath)
	if err != nil {
		t.Fatalf("read srt: %v", err)
	}
	want := "1\n00:00:00,000 --> 00:00:01,500\nhello world\n\n" +
		"2\n00:00:01,500 --> 00:00:03,000\nagain\n\n"
	if string(data) != want {
		t.Fatalf("srt content = %q, want %q", string(data), want)
	}
}

func TestGenerateEngineFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	generator := NewGenerator(cfg)
	videoFile := writeTestVideo(t)

	generator.WithCommandRunner(func(_ context.Context, _ string, _ ...string) error {
		return fmt.Errorf("unsupported audio codec")
	})

	_, _, err := generator.Generate(context.Background(), videoFile)
	if !errors.Is(err, services.ErrGeneration) {
		t.Fatalf("expected generation error, got %v", err)
	}
	details := services.Details(err)
	if details.Operation != "transcribe" {
		t.Fatalf("operation = %q", details.Operation)
	}
}

func TestGenerateEmptySegments(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	generator := NewGenerator(cfg)
	videoFile := writeTestVideo(t)

	generator.WithCommandRunner(func(_ context.Context, _ string, _ ...string) error {
		stem := strings.TrimSuffix(filepath.Base(videoFile), filepath.Ext(videoFile))
		jsonPath := filepath.Join(cfg.Paths.ProcessedDir, stem+".json")
		return os.WriteFile(jsonPath, []byte(`{"text": "", "segments": []}`), 0o644)
	})

	_, _, err := generator.Generate(context.Background(), videoFile)
	if !errors.Is(err, services.ErrGeneration) {
		t.Fatalf("expected generation error, got %v", err)
	}
}

func TestLoadWhisperSegmentsOrdersByStart(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "clip.json")
	payload := `{
		"segments": [
			{"start": 2.0, "end": 3.0, "text": "second"},
			{"start": 0.0, "end": 1.0, "text": "first"}
		]
	}`
	if err := os.WriteFile(jsonPath, []byte(payload), 0o644); err != nil {
		t.Fatalf("write json: %v", err)
	}

	segments, err := loadWhisperSegments(jsonPath)
	if err != nil {
		t.Fatalf("loadWhisperSegments: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("segments = %d", len(segments))
	}
	if strings.TrimSpace(segments[0].Text) != "first" {
		t.Fatalf("segments out of order: %+v", segments)
	}
}
