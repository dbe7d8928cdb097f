// Package deps verifies the external binaries shortcast shells out to.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"shortcast/internal/config"
)

// Requirement defines an external dependency the pipeline relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements returns the external binaries the configured pipeline needs.
// Tesseract is optional: without it detection fails open and every video is
// transcribed instead.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.Processing.FFmpegBinary,
			Description: "frame extraction and subtitle burn-in",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.Processing.FFprobeBinary,
			Description: "output verification",
		},
		{
			Name:        "Whisper",
			Command:     cfg.Processing.WhisperBinary,
			Description: "speech to text transcription",
		},
		{
			Name:        "Tesseract",
			Command:     cfg.Processing.TesseractBinary,
			Description: "burned-in subtitle detection",
			Optional:    true,
		},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// MissingRequired returns the names of unavailable non-optional dependencies.
func MissingRequired(statuses []Status) []string {
	var missing []string
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status.Name)
		}
	}
	return missing
}
