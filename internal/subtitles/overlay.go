package subtitles

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"shortcast/internal/config"
	"shortcast/internal/media/ffprobe"
	"shortcast/internal/services"
)

// Overlay burns an SRT artifact into a video's frames with ffmpeg,
// producing a new file in the processed directory.
type Overlay struct {
	ffmpegBinary  string
	ffprobeBinary string
	outputDir     string

	burnRunner   func(ctx context.Context, name string, args ...string) error
	verifyOutput func(ctx context.Context, path string) error
}

// NewOverlay builds an Overlay from processing configuration.
func NewOverlay(cfg *config.Config) *Overlay {
	overlay := &Overlay{
		ffmpegBinary:  cfg.Processing.FFmpegBinary,
		ffprobeBinary: cfg.Processing.FFprobeBinary,
		outputDir:     cfg.Paths.ProcessedDir,
	}
	if overlay.ffmpegBinary == "" {
		overlay.ffmpegBinary = "ffmpeg"
	}
	if overlay.ffprobeBinary == "" {
		overlay.ffprobeBinary = "ffprobe"
	}
	overlay.burnRunner = overlay.runFFmpeg
	overlay.verifyOutput = overlay.probeOutput
	return overlay
}

// WithBurnRunner replaces the ffmpeg invocation (for testing).
func (o *Overlay) WithBurnRunner(runner func(ctx context.Context, name string, args ...string) error) {
	o.burnRunner = runner
}

// WithOutputVerifier replaces the ffprobe verification step (for testing).
func (o *Overlay) WithOutputVerifier(fn func(ctx context.Context, path string) error) {
	o.verifyOutput = fn
}

// OutputPath returns the deterministic burn-in destination for a source
// file: <stem>_subtitled.mp4 in the processed directory.
func (o *Overlay) OutputPath(videoFile string) string {
	stem := strings.TrimSuffix(filepath.Base(videoFile), filepath.Ext(videoFile))
	return filepath.Join(o.outputDir, stem+"_subtitled.mp4")
}

// Burn renders srtPath into videoFile's frames and returns the output
// path. Any existing file at the destination is overwritten. Success is
// judged by ffmpeg's exit status plus an ffprobe pass over the result; a
// partially written file is never reported as success.
func (o *Overlay) Burn(ctx context.Context, videoFile, srtPath string) (string, error) {
	if strings.TrimSpace(videoFile) == "" {
		return "", services.Wrap(services.ErrOverlay, "overlay", "burn", "video path required", nil)
	}
	if _, err := os.Stat(srtPath); err != nil {
		return "", services.WrapPath(services.ErrOverlay, "overlay", "burn", "subtitle artifact unreadable", srtPath, err)
	}
	if err := os.MkdirAll(o.outputDir, 0o755); err != nil {
		return "", services.WrapPath(services.ErrOverlay, "overlay", "burn", "ensure output dir", o.outputDir, err)
	}

	outPath := o.OutputPath(videoFile)
	args := []string{
		"-hide_banner", "-v", "error",
		"-i", videoFile,
		"-vf", "subtitles=" + escapeFilterPath(srtPath),
		"-c:a", "copy",
		"-y", outPath,
	}
	if err := o.burnRunner(ctx, o.ffmpegBinary, args...); err != nil {
		return "", services.WrapPath(services.ErrOverlay, "overlay", "burn", "subtitle burn-in failed", videoFile, err)
	}
	if err := o.verifyOutput(ctx, outPath); err != nil {
		return "", services.WrapPath(services.ErrOverlay, "overlay", "verify", "output failed verification", outPath, err)
	}
	return outPath, nil
}

func (o *Overlay) runFFmpeg(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		diag := strings.TrimSpace(stderr.String())
		if diag == "" {
			return err
		}
		return &transcodeError{cause: err, diagnostic: diag}
	}
	return nil
}

func (o *Overlay) probeOutput(ctx context.Context, path string) error {
	result, err := ffprobe.Inspect(ctx, o.ffprobeBinary, path)
	if err != nil {
		return err
	}
	if result.VideoStreamCount() == 0 {
		return &transcodeError{diagnostic: "output has no video stream"}
	}
	return nil
}

// transcodeError carries ffmpeg's stderr so failures are diagnosable
// without re-running the command.
type transcodeError struct {
	cause      error
	diagnostic string
}

func (e *transcodeError) Error() string {
	if e.cause == nil {
		return e.diagnostic
	}
	return e.cause.Error() + ": " + e.diagnostic
}

func (e *transcodeError) Unwrap() error {
	return e.cause
}

// escapeFilterPath quotes characters that ffmpeg's filter graph parser
// treats specially in the subtitles= argument.
func escapeFilterPath(path string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`:`, `\:`,
		`'`, `\'`,
		`[`, `\[`,
		`]`, `\]`,
		`,`, `\,`,
		`;`, `\;`,
	)
	return replacer.Replace(path)
}
