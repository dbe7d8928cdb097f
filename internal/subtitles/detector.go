package subtitles

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"shortcast/internal/config"
	"shortcast/internal/services"
)

// Detector decides whether a video already carries burned-in captions by
// sampling frames from the start of the stream and running OCR over the
// lower half of each one.
type Detector struct {
	ffmpegBinary    string
	tesseractBinary string
	maxFrames       int
	language        string

	extractFrame  func(ctx context.Context, videoFile string, frameIndex int, dest string) error
	recognizeText func(ctx context.Context, imagePath string) (string, error)
}

// NewDetector builds a Detector from processing configuration.
func NewDetector(cfg *config.Config) *Detector {
	detector := &Detector{
		ffmpegBinary:    cfg.Processing.FFmpegBinary,
		tesseractBinary: cfg.Processing.TesseractBinary,
		maxFrames:       cfg.Processing.DetectMaxFrames,
		language:        cfg.Processing.Language,
	}
	if detector.ffmpegBinary == "" {
		detector.ffmpegBinary = "ffmpeg"
	}
	if detector.tesseractBinary == "" {
		detector.tesseractBinary = "tesseract"
	}
	if detector.maxFrames <= 0 {
		detector.maxFrames = 10
	}
	detector.extractFrame = detector.extractFrameCmd
	detector.recognizeText = detector.recognizeTextCmd
	return detector
}

// WithFrameExtractor replaces the ffmpeg frame extraction step (for testing).
func (d *Detector) WithFrameExtractor(fn func(ctx context.Context, videoFile string, frameIndex int, dest string) error) {
	d.extractFrame = fn
}

// WithTextRecognizer replaces the OCR step (for testing).
func (d *Detector) WithTextRecognizer(fn func(ctx context.Context, imagePath string) (string, error)) {
	d.recognizeText = fn
}

// Detect reports whether a sampled frame contains recognizable text.
// Frames are examined one at a time and OCR stops at the first hit, so
// the dominant cost is bounded by the position of the first caption.
func (d *Detector) Detect(ctx context.Context, videoFile string) (bool, error) {
	if strings.TrimSpace(videoFile) == "" {
		return false, services.Wrap(services.ErrDetection, "detector", "detect", "video path required", nil)
	}
	if _, err := os.Stat(videoFile); err != nil {
		return false, services.WrapPath(services.ErrDetection, "detector", "detect", "video file unreadable", videoFile, err)
	}

	workDir, err := os.MkdirTemp("", "shortcast-detect-")
	if err != nil {
		return false, services.Wrap(services.ErrDetection, "detector", "detect", "create work dir", err)
	}
	defer os.RemoveAll(workDir)

	for frameIndex := 0; frameIndex < d.maxFrames; frameIndex++ {
		if err := ctx.Err(); err != nil {
			return false, services.Wrap(services.ErrDetection, "detector", "detect", "cancelled", err)
		}
		framePath := filepath.Join(workDir, fmt.Sprintf("frame_%03d.png", frameIndex))
		if err := d.extractFrame(ctx, videoFile, frameIndex, framePath); err != nil {
			// Running off the end of a short clip is not a failure;
			// an error on the very first frame means the file cannot
			// be decoded at all.
			if frameIndex == 0 {
				return false, services.WrapPath(services.ErrDetection, "detector", "extract_frame", "decode first frame", videoFile, err)
			}
			return false, nil
		}
		if _, err := os.Stat(framePath); err != nil {
			// ffmpeg exits zero past end of stream without writing output.
			return false, nil
		}

		text, err := d.recognizeText(ctx, framePath)
		if err != nil {
			return false, services.WrapPath(services.ErrDetection, "detector", "ocr", "recognize frame text", framePath, err)
		}
		if strings.TrimSpace(text) != "" {
			return true, nil
		}
	}
	return false, nil
}

// extractFrameCmd decodes frame frameIndex, crops the lower half where
// captions render, converts to greyscale, and writes a PNG to dest.
func (d *Detector) extractFrameCmd(ctx context.Context, videoFile string, frameIndex int, dest string) error {
	filter := fmt.Sprintf("select=eq(n\\,%d),crop=iw:ih/2:0:ih/2,format=gray", frameIndex)
	cmd := exec.CommandContext(ctx, d.ffmpegBinary,
		"-hide_banner", "-v", "error",
		"-i", videoFile,
		"-vf", filter,
		"-frames:v", "1",
		"-fps_mode", "passthrough",
		"-y", dest,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", d.ffmpegBinary, err, strings.TrimSpace(string(output)))
	}
	return nil
}

func (d *Detector) recognizeTextCmd(ctx context.Context, imagePath string) (string, error) {
	args := []string{imagePath, "stdout", "--psm", "6"}
	if d.language != "" {
		args = append(args, "-l", tesseractLanguage(d.language))
	}
	cmd := exec.CommandContext(ctx, d.tesseractBinary, args...)
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("%s: %w", d.tesseractBinary, err)
	}
	return string(output), nil
}

// tesseractLanguage maps common ISO-639-1 codes onto tesseract's
// three-letter traineddata names.
func tesseractLanguage(code string) string {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "en", "eng", "":
		return "eng"
	case "es", "spa":
		return "spa"
	case "fr", "fra":
		return "fra"
	case "de", "deu":
		return "deu"
	case "pt", "por":
		return "por"
	default:
		return "eng"
	}
}
