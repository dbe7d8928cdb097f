package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"shortcast/internal/services"
	"shortcast/internal/testsupport"
)

type stubDetector struct {
	found bool
	err   error
	calls int
}

func (d *stubDetector) Detect(_ context.Context, _ string) (bool, error) {
	d.calls++
	return d.found, d.err
}

type stubGenerator struct {
	transcript string
	srtPath    string
	err        error
	calls      int
}

func (g *stubGenerator) Generate(_ context.Context, _ string) (string, string, error) {
	g.calls++
	return g.transcript, g.srtPath, g.err
}

type stubOverlay struct {
	outPath string
	err     error
	calls   int
}

func (o *stubOverlay) Burn(_ context.Context, _, _ string) (string, error) {
	o.calls++
	return o.outPath, o.err
}

func TestProcessSkipsGenerationWhenDetected(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	detector := &stubDetector{found: true}
	generator := &stubGenerator{}
	overlay := &stubOverlay{}
	pipe := NewWithStages(cfg, nil, detector, generator, overlay)

	result, err := pipe.Process(context.Background(), "/videos/clip.mp4")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.ProcessedPath != "/videos/clip.mp4" {
		t.Fatalf("processed path = %q, want original", result.ProcessedPath)
	}
	if !result.HasSubtitles {
		t.Fatal("hasSubtitles must be true")
	}
	if result.Transcript != "" {
		t.Fatalf("transcript = %q, want empty", result.Transcript)
	}
	if generator.calls != 0 || overlay.calls != 0 {
		t.Fatal("generation branch should not run when captions detected")
	}
}

func TestProcessGeneratesAndOverlays(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	detector := &stubDetector{found: false}
	generator := &stubGenerator{transcript: "hello", srtPath: "/out/clip.srt"}
	overlay := &stubOverlay{outPath: "/out/clip_subtitled.mp4"}
	pipe := NewWithStages(cfg, nil, detector, generator, overlay)

	result, err := pipe.Process(context.Background(), "/videos/clip.mp4")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.ProcessedPath != "/out/clip_subtitled.mp4" {
		t.Fatalf("processed path = %q", result.ProcessedPath)
	}
	if !result.HasSubtitles {
		t.Fatal("hasSubtitles must be true after the generated branch too")
	}
	if result.Transcript != "hello" {
		t.Fatalf("transcript = %q", result.Transcript)
	}
	if generator.calls != 1 || overlay.calls != 1 {
		t.Fatalf("generator calls = %d, overlay calls = %d", generator.calls, overlay.calls)
	}
}

func TestProcessPropagatesStageErrors(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	detectErr := services.Wrap(services.ErrDetection, "detector", "detect", "boom", nil)
	pipe := NewWithStages(cfg, nil, &stubDetector{err: detectErr}, &stubGenerator{}, &stubOverlay{})
	if _, err := pipe.Process(context.Background(), "clip.mp4"); !errors.Is(err, services.ErrDetection) {
		t.Fatalf("expected detection error, got %v", err)
	}

	genErr := services.Wrap(services.ErrGeneration, "generator", "transcribe", "boom", nil)
	pipe = NewWithStages(cfg, nil, &stubDetector{found: false}, &stubGenerator{err: genErr}, &stubOverlay{})
	if _, err := pipe.Process(context.Background(), "clip.mp4"); !errors.Is(err, services.ErrGeneration) {
		t.Fatalf("expected generation error, got %v", err)
	}

	burnErr := services.Wrap(services.ErrOverlay, "overlay", "burn", "boom", nil)
	pipe = NewWithStages(cfg, nil, &stubDetector{found: false}, &stubGenerator{srtPath: "x.srt"}, &stubOverlay{err: burnErr})
	if _, err := pipe.Process(context.Background(), "clip.mp4"); !errors.Is(err, services.ErrOverlay) {
		t.Fatalf("expected overlay error, got %v", err)
	}
}

func TestProcessEnforcesTimeBudget(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Processing.TimeBudgetSeconds = 10
	pipe := NewWithStages(cfg, nil, &stubDetector{found: true}, &stubGenerator{}, &stubOverlay{})

	base := time.Now()
	tick := 0
	pipe.WithClock(func() time.Time {
		tick++
		if tick == 1 {
			return base
		}
		return base.Add(11 * time.Second)
	})

	_, err := pipe.Process(context.Background(), "clip.mp4")
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestProcessWithinBudgetSucceeds(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Processing.TimeBudgetSeconds = 10
	pipe := NewWithStages(cfg, nil, &stubDetector{found: true}, &stubGenerator{}, &stubOverlay{})

	base := time.Now()
	pipe.WithClock(func() time.Time { return base })

	if _, err := pipe.Process(context.Background(), "clip.mp4"); err != nil {
		t.Fatalf("Process: %v", err)
	}
}
