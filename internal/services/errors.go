package services

import (
	"errors"
	"fmt"
	"strings"

	"shortcast/internal/queue"
)

// Sentinel markers used to classify component failures. Wrap tags an
// error with one of these so the orchestrator can map it to a terminal
// video status without string matching.
var (
	ErrDetection     = errors.New("subtitle detection error")
	ErrGeneration    = errors.New("subtitle generation error")
	ErrOverlay       = errors.New("subtitle overlay error")
	ErrTimeout       = errors.New("processing timeout")
	ErrAuth          = errors.New("authentication error")
	ErrUpload        = errors.New("upload error")
	ErrValidation    = errors.New("validation error")
	ErrNotFound      = errors.New("not found")
	ErrConfiguration = errors.New("configuration error")
	ErrExternalTool  = errors.New("external tool error")
	ErrTransient     = errors.New("transient failure")
)

// ErrorDetails captures the structured fields a wrapped error carries for
// logging and failure classification.
type ErrorDetails struct {
	Kind       error
	Component  string
	Operation  string
	Message    string
	DetailPath string
	Cause      error
}

type wrappedError struct {
	marker     error
	component  string
	operation  string
	message    string
	detailPath string
	cause      error
}

func (e *wrappedError) Error() string {
	detail := buildDetail(e.component, e.operation, e.message)
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.marker.Error(), detail, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.marker.Error(), detail)
}

func (e *wrappedError) Unwrap() []error {
	if e.cause != nil {
		return []error{e.marker, e.cause}
	}
	return []error{e.marker}
}

// Wrap builds an error that includes component context while tagging it
// with the provided marker. The marker should be one of the exported
// sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	return &wrappedError{
		marker:    marker,
		component: component,
		operation: operation,
		message:   message,
		cause:     err,
	}
}

// WrapPath is Wrap with an offending filesystem path attached for logging.
func WrapPath(marker error, component, operation, message, path string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	return &wrappedError{
		marker:     marker,
		component:  component,
		operation:  operation,
		message:    message,
		detailPath: path,
		cause:      err,
	}
}

// Details extracts structured fields from an error produced by Wrap.
// Plain errors yield a Details with only Cause and Message populated.
func Details(err error) ErrorDetails {
	var wrapped *wrappedError
	if errors.As(err, &wrapped) {
		return ErrorDetails{
			Kind:       wrapped.marker,
			Component:  wrapped.component,
			Operation:  wrapped.operation,
			Message:    buildDetail(wrapped.component, wrapped.operation, wrapped.message),
			DetailPath: wrapped.detailPath,
			Cause:      wrapped.cause,
		}
	}
	if err == nil {
		return ErrorDetails{}
	}
	return ErrorDetails{Message: err.Error(), Cause: err}
}

// KindLabel returns a short stable label for the marker carried by err,
// suitable for structured log fields.
func KindLabel(err error) string {
	switch {
	case errors.Is(err, ErrDetection):
		return "detection"
	case errors.Is(err, ErrGeneration):
		return "generation"
	case errors.Is(err, ErrOverlay):
		return "overlay"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrAuth):
		return "auth"
	case errors.Is(err, ErrUpload):
		return "upload"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrExternalTool):
		return "external_tool"
	default:
		return "transient"
	}
}

// FailureStatus maps a failed job to the video status the orchestrator
// should persist. The mapping is deterministic per job kind so a retried
// job always sees consistent prior state.
func FailureStatus(kind queue.JobKind) queue.Status {
	if kind == queue.JobPublish {
		return queue.StatusUploadFailed
	}
	return queue.StatusFailed
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
