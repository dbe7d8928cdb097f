package subtitles

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shortcast/internal/services"
	"shortcast/internal/testsupport"
)

func writeTestSRT(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.srt")
	if err := WriteSRT(path, []Segment{{Start: 0, End: 1, Text: "hi"}}); err != nil {
		t.Fatalf("write srt: %v", err)
	}
	return path
}

func TestBurnProducesDerivedOutput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	overlay := NewOverlay(cfg)
	videoFile := writeTestVideo(t)
	srtPath := writeTestSRT(t)

	var invoked bool
	overlay.WithBurnRunner(func(_ context.Context, _ string, args ...string) error {
		invoked = true
		// ffmpeg writes the last argument.
		return os.WriteFile(args[len(args)-1], []byte("mp4"), 0o644)
	})
	overlay.WithOutputVerifier(func(_ context.Context, _ string) error {
		return nil
	})

	outPath, err := overlay.Burn(context.Background(), videoFile, srtPath)
	if err != nil {
		t.Fatalf("Burn: %v", err)
	}
	if !invoked {
		t.Fatal("burn runner not invoked")
	}
	if !strings.HasSuffix(outPath, "_subtitled.mp4") {
		t.Fatalf("outPath = %q", outPath)
	}
	if filepath.Dir(outPath) != cfg.Paths.ProcessedDir {
		t.Fatalf("output %q outside processed dir", outPath)
	}
	if outPath == videoFile {
		t.Fatal("output must not overwrite the source")
	}
}

func TestBurnCarriesTranscoderDiagnostic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	overlay := NewOverlay(cfg)
	videoFile := writeTestVideo(t)
	srtPath := writeTestSRT(t)

	overlay.WithBurnRunner(func(_ context.Context, _ string, _ ...string) error {
		return &transcodeError{diagnostic: "Error initializing filter 'subtitles'"}
	})

	_, err := overlay.Burn(context.Background(), videoFile, srtPath)
	if !errors.Is(err, services.ErrOverlay) {
		t.Fatalf("expected overlay error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Error initializing filter") {
		t.Fatalf("diagnostic lost: %v", err)
	}
}

func TestBurnRejectsUnverifiedOutput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	overlay := NewOverlay(cfg)
	videoFile := writeTestVideo(t)
	srtPath := writeTestSRT(t)

	overlay.WithBurnRunner(func(_ context.Context, _ string, args ...string) error {
		return os.WriteFile(args[len(args)-1], []byte("truncated"), 0o644)
	})
	overlay.WithOutputVerifier(func(_ context.Context, _ string) error {
		return &transcodeError{diagnostic: "output has no video stream"}
	})

	_, err := overlay.Burn(context.Background(), videoFile, srtPath)
	if !errors.Is(err, services.ErrOverlay) {
		t.Fatalf("expected overlay error, got %v", err)
	}
	details := services.Details(err)
	if details.Operation != "verify" {
		t.Fatalf("operation = %q", details.Operation)
	}
}

func TestBurnMissingArtifact(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	overlay := NewOverlay(cfg)
	videoFile := writeTestVideo(t)

	_, err := overlay.Burn(context.Background(), videoFile, filepath.Join(t.TempDir(), "absent.srt"))
	if !errors.Is(err, services.ErrOverlay) {
		t.Fatalf("expected overlay error, got %v", err)
	}
}

func TestEscapeFilterPath(t *testing.T) {
	got := escapeFilterPath(`/tmp/a:b's,[c].srt`)
	want := `/tmp/a\:b\'s\,\[c\].srt`
	if got != want {
		t.Fatalf("escapeFilterPath = %q, want %q", got, want)
	}
}
