package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a video.
type Status string

const (
	StatusUploaded     Status = "uploaded"
	StatusProcessing   Status = "processing"
	StatusProcessed    Status = "processed"
	StatusFailed       Status = "failed"
	StatusPublishing   Status = "publishing"
	StatusPublished    Status = "published"
	StatusUploadFailed Status = "upload_failed"
)

var allStatuses = []Status{
	StatusUploaded,
	StatusProcessing,
	StatusProcessed,
	StatusFailed,
	StatusPublishing,
	StatusPublished,
	StatusUploadFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var inFlightStatuses = map[Status]struct{}{
	StatusProcessing: {},
	StatusPublishing: {},
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsInFlight reports whether a status reflects an in-progress job.
func IsInFlight(status Status) bool {
	_, ok := inFlightStatuses[status]
	return ok
}

// Video is the central entity persisted in SQLite.
type Video struct {
	ID            int64
	Title         string
	FilePath      string
	ProcessedPath string
	HasSubtitles  bool
	Transcript    string
	Status        Status
	ErrorMessage  string
	YouTubeURL    string
	NicheID       *int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CanPublish reports whether processing has completed with a usable output.
// Publish eligibility is decided by this field, not by job ordering, because
// jobs may be retried out of order.
func (v *Video) CanPublish() bool {
	return strings.TrimSpace(v.ProcessedPath) != ""
}

// SetFailed marks the video with a terminal failure status and message.
func (v *Video) SetFailed(status Status, message string) {
	v.Status = status
	v.ErrorMessage = message
}

// Niche is a categorical tag applied to videos.
type Niche struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
}

// JobKind identifies a background job type. Dispatch is a closed switch
// over these variants, never dynamic.
type JobKind string

const (
	JobProcess JobKind = "process"
	JobPublish JobKind = "publish"
	JobCleanup JobKind = "cleanup"
)

var allJobKinds = []JobKind{JobProcess, JobPublish, JobCleanup}

// ParseJobKind converts a string into a known JobKind.
func ParseJobKind(value string) (JobKind, bool) {
	normalized := JobKind(strings.ToLower(strings.TrimSpace(value)))
	for _, kind := range allJobKinds {
		if kind == normalized {
			return kind, true
		}
	}
	return "", false
}

// JobStatus represents the lifecycle of a queued job.
type JobStatus string

const (
	JobQueued  JobStatus = "queued"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// Job is one unit of background work keyed by video identity.
type Job struct {
	ID            int64
	VideoID       int64
	Kind          JobKind
	Status        JobStatus
	Attempts      int
	ErrorMessage  string
	EnqueuedAt    time.Time
	StartedAt     *time.Time
	FinishedAt    *time.Time
	LastHeartbeat *time.Time
}

// LogEntry is one append-only audit record for a video.
type LogEntry struct {
	ID        int64
	VideoID   int64
	Event     string
	Detail    string
	CreatedAt time.Time
}

// HealthSummary describes aggregated counts per key lifecycle state.
type HealthSummary struct {
	Total      int
	Uploaded   int
	InFlight   int
	Processed  int
	Published  int
	Failed     int
	QueuedJobs int
}
