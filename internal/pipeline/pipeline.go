// Package pipeline composes subtitle detection, generation, and overlay
// into one idempotent processing operation per video.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"shortcast/internal/config"
	"shortcast/internal/logging"
	"shortcast/internal/services"
	"shortcast/internal/subtitles"
)

// Detector reports whether a video already carries burned-in captions.
type Detector interface {
	Detect(ctx context.Context, videoFile string) (bool, error)
}

// Generator produces a transcript and an SRT artifact for a video.
type Generator interface {
	Generate(ctx context.Context, videoFile string) (transcript string, srtPath string, err error)
}

// Overlay burns an SRT artifact into a video, returning the output path.
type Overlay interface {
	Burn(ctx context.Context, videoFile, srtPath string) (string, error)
}

// Result is the outcome of one successful processing attempt.
// HasSubtitles is always true on success: detection only decides whether
// the generate/overlay branch runs, never whether the output is captioned.
type Result struct {
	ProcessedPath string
	HasSubtitles  bool
	Transcript    string
	SRTPath       string
}

// Pipeline runs the detect / generate / overlay sequence under a
// wall-clock budget.
type Pipeline struct {
	detector  Detector
	generator Generator
	overlay   Overlay
	budget    time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// New builds a Pipeline with real stage implementations from config.
func New(cfg *config.Config, logger *slog.Logger) *Pipeline {
	return NewWithStages(cfg, logger,
		subtitles.NewDetector(cfg),
		subtitles.NewGenerator(cfg),
		subtitles.NewOverlay(cfg),
	)
}

// NewWithStages builds a Pipeline around explicit stage implementations.
func NewWithStages(cfg *config.Config, logger *slog.Logger, detector Detector, generator Generator, overlay Overlay) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	budget := time.Duration(cfg.Processing.TimeBudgetSeconds) * time.Second
	if budget <= 0 {
		budget = 300 * time.Second
	}
	return &Pipeline{
		detector:  detector,
		generator: generator,
		overlay:   overlay,
		budget:    budget,
		logger:    logger.With(logging.String(logging.FieldComponent, "pipeline")),
		now:       time.Now,
	}
}

// WithClock replaces the wall-clock source (for testing).
func (p *Pipeline) WithClock(now func() time.Time) {
	p.now = now
}

// Process runs one attempt over videoFile. When the detector finds
// existing captions the original file is returned untouched with an
// empty transcript; otherwise the generate and overlay stages run and
// the burned output is returned. The elapsed budget is checked only
// after the branch completes, so an over-budget attempt fails even
// though its artifacts exist on disk.
func (p *Pipeline) Process(ctx context.Context, videoFile string) (Result, error) {
	started := p.now()

	detected, err := p.detector.Detect(ctx, videoFile)
	if err != nil {
		return Result{}, err
	}

	result := Result{HasSubtitles: true}
	if detected {
		p.logger.InfoContext(ctx, "existing captions detected, skipping generation",
			logging.String("video_file", videoFile))
		result.ProcessedPath = videoFile
	} else {
		transcript, srtPath, err := p.generator.Generate(ctx, videoFile)
		if err != nil {
			return Result{}, err
		}
		outPath, err := p.overlay.Burn(ctx, videoFile, srtPath)
		if err != nil {
			return Result{}, err
		}
		result.ProcessedPath = outPath
		result.Transcript = transcript
		result.SRTPath = srtPath
	}

	if elapsed := p.now().Sub(started); elapsed > p.budget {
		return Result{}, services.WrapPath(services.ErrTimeout, "pipeline", "process",
			"processing exceeded time budget", videoFile, nil)
	}

	p.logger.InfoContext(ctx, "processing attempt complete",
		logging.String("video_file", videoFile),
		logging.String("processed_path", result.ProcessedPath),
		logging.Bool("generated", result.Transcript != ""))
	return result, nil
}
