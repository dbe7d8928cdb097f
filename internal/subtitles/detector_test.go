package subtitles

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"shortcast/internal/services"
	"shortcast/internal/testsupport"
)

func writeTestVideo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte("fake video"), 0o644); err != nil {
		t.Fatalf("write test video: %v", err)
	}
	return path
}

func TestDetectShortCircuitsOnFirstHit(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithDetectMaxFrames(10))
	detector := NewDetector(cfg)
	videoFile := writeTestVideo(t)

	const hitFrame = 3
	var extracted, recognized int
	detector.WithFrameExtractor(func(_ context.Context, _ string, frameIndex int, dest string) error {
		extracted++
		return os.WriteFile(dest, []byte("png"), 0o644)
	})
	detector.WithTextRecognizer(func(_ context.Context, imagePath string) (string, error) {
		recognized++
		if recognized == hitFrame+1 {
			return "  caption text  ", nil
		}
		return "   ", nil
	})

	found, err := detector.Detect(context.Background(), videoFile)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if !found {
		t.Fatal("expected detection")
	}
	if extracted != hitFrame+1 {
		t.Fatalf("extracted %d frames, want %d", extracted, hitFrame+1)
	}
	if recognized != hitFrame+1 {
		t.Fatalf("ran OCR %d times, want %d", recognized, hitFrame+1)
	}
}

func TestDetectExhaustsFrameBudget(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithDetectMaxFrames(5))
	detector := NewDetector(cfg)
	videoFile := writeTestVideo(t)

	var extracted int
	detector.WithFrameExtractor(func(_ context.Context, _ string, _ int, dest string) error {
		extracted++
		return os.WriteFile(dest, []byte("png"), 0o644)
	})
	detector.WithTextRecognizer(func(_ context.Context, _ string) (string, error) {
		return "", nil
	})

	found, err := detector.Detect(context.Background(), videoFile)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if found {
		t.Fatal("expected no detection")
	}
	if extracted != 5 {
		t.Fatalf("extracted %d frames, want 5", extracted)
	}
}

func TestDetectFirstFrameDecodeFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	detector := NewDetector(cfg)
	videoFile := writeTestVideo(t)

	detector.WithFrameExtractor(func(_ context.Context, _ string, _ int, _ string) error {
		return fmt.Errorf("moov atom not found")
	})
	detector.WithTextRecognizer(func(_ context.Context, _ string) (string, error) {
		t.Fatal("OCR should not run when decode fails")
		return "", nil
	})

	_, err := detector.Detect(context.Background(), videoFile)
	if err == nil {
		t.Fatal("expected decode error")
	}
	if !errors.Is(err, services.ErrDetection) {
		t.Fatalf("error kind = %v", err)
	}
}

func TestDetectStopsAtEndOfStream(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithDetectMaxFrames(10))
	detector := NewDetector(cfg)
	videoFile := writeTestVideo(t)

	detector.WithFrameExtractor(func(_ context.Context, _ string, frameIndex int, dest string) error {
		if frameIndex >= 2 {
			return fmt.Errorf("past end of stream")
		}
		return os.WriteFile(dest, []byte("png"), 0o644)
	})
	detector.WithTextRecognizer(func(_ context.Context, _ string) (string, error) {
		return "", nil
	})

	found, err := detector.Detect(context.Background(), videoFile)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if found {
		t.Fatal("short clip without text should not detect")
	}
}

func TestDetectMissingFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	detector := NewDetector(cfg)

	_, err := detector.Detect(context.Background(), filepath.Join(t.TempDir(), "absent.mp4"))
	if !errors.Is(err, services.ErrDetection) {
		t.Fatalf("expected detection error, got %v", err)
	}
}
