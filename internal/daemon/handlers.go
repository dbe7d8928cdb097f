package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"shortcast/internal/config"
	"shortcast/internal/fileutil"
	"shortcast/internal/logging"
	"shortcast/internal/notifications"
	"shortcast/internal/queue"
	"shortcast/internal/services"
)

// allowedExtensions is the upload whitelist. Anything else is rejected
// before a record or job exists.
var allowedExtensions = map[string]struct{}{
	".mp4": {},
	".mov": {},
	".avi": {},
}

const maxUploadBytes = 2 << 30

type handlers struct {
	cfg      *config.Config
	store    *queue.Store
	logger   *slog.Logger
	notifier notifications.Service
}

// NewHandler builds the HTTP API. The bearer token from config guards
// every route when set.
func NewHandler(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) http.Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	h := &handlers{cfg: cfg, store: store, logger: logger, notifier: notifier}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/videos/upload", h.handleUpload)
	mux.HandleFunc("GET /api/videos", h.handleListVideos)
	mux.HandleFunc("GET /api/videos/processed", h.handleListProcessed)
	mux.HandleFunc("POST /api/videos/{id}/save", h.handleSave)
	mux.HandleFunc("POST /api/videos/{id}/discard", h.handleDiscard)
	mux.HandleFunc("GET /api/niches", h.handleListNiches)
	mux.HandleFunc("POST /api/niches", h.handleCreateNiche)
	mux.HandleFunc("GET /api/health", h.handleHealth)

	return authMiddleware(cfg.Paths.APIToken, mux)
}

type videoPayload struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	FilePath      string `json:"file_path"`
	ProcessedPath string `json:"processed_path,omitempty"`
	HasSubtitles  bool   `json:"has_subtitles"`
	Transcript    string `json:"transcript,omitempty"`
	Status        string `json:"status"`
	ErrorMessage  string `json:"error_message,omitempty"`
	YouTubeURL    string `json:"youtube_url,omitempty"`
	NicheID       *int64 `json:"niche_id,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func toVideoPayload(video *queue.Video) videoPayload {
	return videoPayload{
		ID:            video.ID,
		Title:         video.Title,
		FilePath:      video.FilePath,
		ProcessedPath: video.ProcessedPath,
		HasSubtitles:  video.HasSubtitles,
		Transcript:    video.Transcript,
		Status:        string(video.Status),
		ErrorMessage:  video.ErrorMessage,
		YouTubeURL:    video.YouTubeURL,
		NicheID:       video.NicheID,
		CreatedAt:     video.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *handlers) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("video")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "missing video file")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if _, ok := allowedExtensions[ext]; !ok {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("file type %q not allowed", ext))
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		title = strings.TrimSuffix(header.Filename, filepath.Ext(header.Filename))
	}

	storedName := uuid.NewString() + ext
	destPath := filepath.Join(h.cfg.Paths.UploadDir, storedName)
	if _, err := fileutil.WriteStream(destPath, file); err != nil {
		h.logger.ErrorContext(r.Context(), "store upload", logging.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	video, err := h.store.NewVideo(r.Context(), title, destPath)
	if err != nil {
		_, _ = fileutil.RemoveIfExists(destPath)
		h.logger.ErrorContext(r.Context(), "create video record", logging.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to record upload")
		return
	}

	if _, _, err := h.store.Enqueue(r.Context(), video.ID, queue.JobProcess); err != nil {
		h.logger.ErrorContext(r.Context(), "enqueue process job", logging.Error(err),
			logging.Int64(logging.FieldVideoID, video.ID))
		h.writeError(w, http.StatusInternalServerError, "failed to enqueue processing")
		return
	}
	h.appendLog(r, video.ID, "uploaded", header.Filename)

	if err := h.notifier.NotifyVideoReceived(r.Context(), title); err != nil {
		h.logger.WarnContext(r.Context(), "upload notification failed", logging.Error(err))
	}

	h.logger.InfoContext(r.Context(), "video uploaded",
		logging.Int64(logging.FieldVideoID, video.ID),
		logging.String("stored_path", destPath))
	h.writeJSON(w, http.StatusCreated, toVideoPayload(video))
}

func (h *handlers) handleListVideos(w http.ResponseWriter, r *http.Request) {
	var statuses []queue.Status
	for _, value := range r.URL.Query()["status"] {
		status, ok := queue.ParseStatus(value)
		if !ok {
			h.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", value))
			return
		}
		statuses = append(statuses, status)
	}

	videos, err := h.store.ListVideos(r.Context(), statuses...)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeVideoList(w, videos)
}

func (h *handlers) handleListProcessed(w http.ResponseWriter, r *http.Request) {
	videos, err := h.store.ListVideos(r.Context(), queue.StatusProcessed)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeVideoList(w, videos)
}

type saveRequest struct {
	NicheID *int64 `json:"niche_id"`
	Title   string `json:"title"`
}

func (h *handlers) handleSave(w http.ResponseWriter, r *http.Request) {
	video, ok := h.videoFromPath(w, r)
	if !ok {
		return
	}

	var req saveRequest
	if r.Body != nil {
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			h.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	if req.NicheID != nil {
		niche, err := h.store.GetNiche(r.Context(), *req.NicheID)
		if err != nil {
			h.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if niche == nil {
			h.writeError(w, http.StatusBadRequest, "unknown niche")
			return
		}
		video.NicheID = req.NicheID
	}
	if title := strings.TrimSpace(req.Title); title != "" {
		video.Title = title
	}
	if err := h.store.UpdateVideo(r.Context(), video); err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if _, _, err := h.store.Enqueue(r.Context(), video.ID, queue.JobPublish); err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.appendLog(r, video.ID, "publish_requested", "")
	h.writeJSON(w, http.StatusAccepted, toVideoPayload(video))
}

func (h *handlers) handleDiscard(w http.ResponseWriter, r *http.Request) {
	video, ok := h.videoFromPath(w, r)
	if !ok {
		return
	}

	// Files go before the record so a crash between the two steps leaves
	// a re-discardable record rather than orphaned files.
	for _, path := range []string{video.FilePath, video.ProcessedPath} {
		if path == "" {
			continue
		}
		if _, err := fileutil.RemoveIfExists(path); err != nil {
			h.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	if _, err := h.store.DeleteVideo(r.Context(), video.ID); err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.logger.InfoContext(r.Context(), "video discarded", logging.Int64(logging.FieldVideoID, video.ID))
	h.writeJSON(w, http.StatusOK, map[string]any{"discarded": video.ID})
}

type nicheRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type nichePayload struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (h *handlers) handleListNiches(w http.ResponseWriter, r *http.Request) {
	niches, err := h.store.ListNiches(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	payload := make([]nichePayload, 0, len(niches))
	for _, niche := range niches {
		payload = append(payload, nichePayload{ID: niche.ID, Name: niche.Name, Description: niche.Description})
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"niches": payload})
}

func (h *handlers) handleCreateNiche(w http.ResponseWriter, r *http.Request) {
	var req nicheRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		h.writeError(w, http.StatusBadRequest, "niche name required")
		return
	}

	niche, err := h.store.NewNiche(r.Context(), strings.TrimSpace(req.Name), strings.TrimSpace(req.Description))
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusCreated, nichePayload{ID: niche.ID, Name: niche.Name, Description: niche.Description})
}

func (h *handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	health, err := h.store.Health(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"total":       health.Total,
		"uploaded":    health.Uploaded,
		"in_flight":   health.InFlight,
		"processed":   health.Processed,
		"published":   health.Published,
		"failed":      health.Failed,
		"queued_jobs": health.QueuedJobs,
	})
}

func (h *handlers) videoFromPath(w http.ResponseWriter, r *http.Request) (*queue.Video, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid video id")
		return nil, false
	}
	video, err := h.store.GetVideo(r.Context(), id)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	if video == nil {
		h.writeError(w, http.StatusNotFound, services.ErrNotFound.Error())
		return nil, false
	}
	return video, true
}

func (h *handlers) appendLog(r *http.Request, videoID int64, event, detail string) {
	if err := h.store.AppendLog(r.Context(), videoID, event, detail); err != nil {
		h.logger.WarnContext(r.Context(), "append processing log", logging.Error(err))
	}
}

func (h *handlers) writeVideoList(w http.ResponseWriter, videos []*queue.Video) {
	payload := make([]videoPayload, 0, len(videos))
	for _, video := range videos {
		payload = append(payload, toVideoPayload(video))
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"videos": payload})
}

func (h *handlers) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (h *handlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
