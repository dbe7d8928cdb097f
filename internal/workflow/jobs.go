package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"shortcast/internal/fileutil"
	"shortcast/internal/logging"
	"shortcast/internal/publish"
	"shortcast/internal/queue"
	"shortcast/internal/services"
)

// RunJob executes one claimed job to a terminal job status. Dispatch is
// a closed switch over the known kinds; an unknown kind is itself a
// terminal failure rather than a crash.
func (o *Orchestrator) RunJob(ctx context.Context, job *queue.Job) {
	ctx = services.WithVideoID(ctx, job.VideoID)
	ctx = services.WithJobKind(ctx, string(job.Kind))
	logger := o.logger.With(
		logging.Int64(logging.FieldVideoID, job.VideoID),
		logging.Int64(logging.FieldJobID, job.ID),
		logging.String(logging.FieldJobKind, string(job.Kind)),
	)

	stopHeartbeat := o.startHeartbeat(ctx, job.ID)
	defer stopHeartbeat()

	video, err := o.store.GetVideo(ctx, job.VideoID)
	if err != nil {
		logger.ErrorContext(ctx, "load video for job", logging.Error(err))
		o.finishJob(ctx, logger, job.ID, queue.JobFailed, err.Error())
		return
	}
	if video == nil {
		// The record was deleted after the job was enqueued. Terminal,
		// never retried.
		logger.WarnContext(ctx, "job references missing video")
		o.finishJob(ctx, logger, job.ID, queue.JobDone, "video not found")
		return
	}

	switch job.Kind {
	case queue.JobProcess:
		o.runProcess(ctx, logger, job, video)
	case queue.JobPublish:
		o.runPublish(ctx, logger, job, video)
	case queue.JobCleanup:
		o.runCleanup(ctx, logger, job, video)
	default:
		logger.ErrorContext(ctx, "unknown job kind")
		o.finishJob(ctx, logger, job.ID, queue.JobFailed, fmt.Sprintf("unknown job kind %q", job.Kind))
	}
}

func (o *Orchestrator) runProcess(ctx context.Context, logger *slog.Logger, job *queue.Job, video *queue.Video) {
	video.Status = queue.StatusProcessing
	video.ErrorMessage = ""
	if err := o.store.UpdateVideo(ctx, video); err != nil {
		logger.ErrorContext(ctx, "mark video processing", logging.Error(err))
		o.finishJob(ctx, logger, job.ID, queue.JobFailed, err.Error())
		return
	}
	o.appendLog(ctx, logger, video.ID, "process_started", "")

	result, err := o.processor.Process(ctx, video.FilePath)
	if err != nil {
		o.failVideo(ctx, logger, job, video, err)
		return
	}

	video.Status = queue.StatusProcessed
	video.ProcessedPath = result.ProcessedPath
	video.HasSubtitles = result.HasSubtitles
	video.Transcript = result.Transcript
	video.ErrorMessage = ""
	if err := o.store.UpdateVideo(ctx, video); err != nil {
		logger.ErrorContext(ctx, "persist processed video", logging.Error(err))
		o.finishJob(ctx, logger, job.ID, queue.JobFailed, err.Error())
		return
	}
	o.appendLog(ctx, logger, video.ID, "process_completed", result.ProcessedPath)
	o.finishJob(ctx, logger, job.ID, queue.JobDone, "")
	logger.InfoContext(ctx, "processing complete",
		logging.String("processed_path", result.ProcessedPath),
		logging.Bool("generated", result.Transcript != ""))

	if err := o.notifier.NotifyProcessingCompleted(ctx, video.Title, result.Transcript != ""); err != nil {
		logger.WarnContext(ctx, "processing notification failed", logging.Error(err))
	}
}

func (o *Orchestrator) runPublish(ctx context.Context, logger *slog.Logger, job *queue.Job, video *queue.Video) {
	// Publish eligibility is a field check so retried jobs delivered out
	// of order cannot upload an unprocessed file.
	if !video.CanPublish() {
		logger.WarnContext(ctx, "publish rejected, video not processed")
		o.appendLog(ctx, logger, video.ID, "publish_rejected", "video not processed yet")
		o.finishJob(ctx, logger, job.ID, queue.JobFailed, "video not processed yet")
		return
	}

	video.Status = queue.StatusPublishing
	video.ErrorMessage = ""
	if err := o.store.UpdateVideo(ctx, video); err != nil {
		logger.ErrorContext(ctx, "mark video publishing", logging.Error(err))
		o.finishJob(ctx, logger, job.ID, queue.JobFailed, err.Error())
		return
	}
	o.appendLog(ctx, logger, video.ID, "publish_started", "")

	title := strings.TrimSpace(video.Title)
	if title == "" {
		title = publish.DefaultTitle(o.nicheName(ctx, video))
	}

	id, url, err := o.publisher.Publish(ctx, video.ProcessedPath, title, "", o.cfg.YouTube.DefaultTags)
	if err != nil {
		o.failVideo(ctx, logger, job, video, err)
		return
	}

	video.Status = queue.StatusPublished
	video.YouTubeURL = url
	video.ErrorMessage = ""
	if err := o.store.UpdateVideo(ctx, video); err != nil {
		logger.ErrorContext(ctx, "persist published video", logging.Error(err))
		o.finishJob(ctx, logger, job.ID, queue.JobFailed, err.Error())
		return
	}
	o.appendLog(ctx, logger, video.ID, "publish_completed", url)
	o.finishJob(ctx, logger, job.ID, queue.JobDone, "")
	logger.InfoContext(ctx, "publish complete",
		logging.String("external_id", id),
		logging.String("youtube_url", url))

	if err := o.notifier.NotifyPublishCompleted(ctx, title, url); err != nil {
		logger.WarnContext(ctx, "publish notification failed", logging.Error(err))
	}
}

func (o *Orchestrator) runCleanup(ctx context.Context, logger *slog.Logger, job *queue.Job, video *queue.Video) {
	// Cleanup is gated on a successful publish; an early cleanup is a
	// no-op with an explicit outcome, never a file deletion.
	if strings.TrimSpace(video.YouTubeURL) == "" {
		logger.InfoContext(ctx, "cleanup skipped, video not yet published")
		o.appendLog(ctx, logger, video.ID, "cleanup_skipped", "not yet published")
		o.finishJob(ctx, logger, job.ID, queue.JobDone, "not yet published")
		return
	}

	for _, path := range []string{video.FilePath, video.ProcessedPath} {
		if path == "" {
			continue
		}
		removed, err := fileutil.RemoveIfExists(path)
		if err != nil {
			logger.ErrorContext(ctx, "remove local file", logging.Error(err), logging.String("path", path))
			o.appendLog(ctx, logger, video.ID, "cleanup_failed", err.Error())
			o.finishJob(ctx, logger, job.ID, queue.JobFailed, err.Error())
			return
		}
		if removed {
			logger.InfoContext(ctx, "removed local file", logging.String("path", path))
		}
	}

	o.appendLog(ctx, logger, video.ID, "cleanup_completed", "")
	o.finishJob(ctx, logger, job.ID, queue.JobDone, "")
}

// failVideo persists the failure status the job kind maps to along with
// the error message, then marks the job failed so the retry command can
// re-queue it.
func (o *Orchestrator) failVideo(ctx context.Context, logger *slog.Logger, job *queue.Job, video *queue.Video, cause error) {
	details := services.Details(cause)
	video.SetFailed(services.FailureStatus(job.Kind), cause.Error())
	if err := o.store.UpdateVideo(ctx, video); err != nil {
		logger.ErrorContext(ctx, "persist failure status", logging.Error(err))
	}
	o.appendLog(ctx, logger, video.ID, string(job.Kind)+"_failed", details.Message)
	o.finishJob(ctx, logger, job.ID, queue.JobFailed, cause.Error())
	logger.ErrorContext(ctx, "job failed",
		logging.Error(cause),
		logging.String(logging.FieldErrorKind, services.KindLabel(cause)),
		logging.String(logging.FieldErrorOperation, details.Operation),
		logging.String(logging.FieldErrorDetailPath, details.DetailPath))

	if err := o.notifier.NotifyError(ctx, cause, string(job.Kind)); err != nil {
		logger.WarnContext(ctx, "error notification failed", logging.Error(err))
	}
}

func (o *Orchestrator) nicheName(ctx context.Context, video *queue.Video) string {
	if video.NicheID == nil {
		return ""
	}
	niche, err := o.store.GetNiche(ctx, *video.NicheID)
	if err != nil || niche == nil {
		return ""
	}
	return niche.Name
}

func (o *Orchestrator) appendLog(ctx context.Context, logger *slog.Logger, videoID int64, event, detail string) {
	if err := o.store.AppendLog(ctx, videoID, event, detail); err != nil {
		logger.WarnContext(ctx, "append processing log", logging.Error(err), logging.String(logging.FieldEventType, event))
	}
}

func (o *Orchestrator) finishJob(ctx context.Context, logger *slog.Logger, jobID int64, status queue.JobStatus, message string) {
	if err := o.store.FinishJob(ctx, jobID, status, message); err != nil {
		logger.ErrorContext(ctx, "finish job", logging.Error(err))
	}
}

// startHeartbeat refreshes the job's heartbeat until the returned stop
// function runs, keeping the reclaimer from re-queueing live work.
func (o *Orchestrator) startHeartbeat(ctx context.Context, jobID int64) func() {
	done := make(chan struct{})
	var once sync.Once
	go func() {
		ticker := time.NewTicker(o.heartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := o.store.JobHeartbeat(ctx, jobID); err != nil {
					o.logger.WarnContext(ctx, "job heartbeat", logging.Error(err), logging.Int64(logging.FieldJobID, jobID))
				}
			}
		}
	}()
	return func() { once.Do(func() { close(done) }) }
}
