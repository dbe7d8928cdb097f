package daemon_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"shortcast/internal/config"
	"shortcast/internal/daemon"
	"shortcast/internal/queue"
	"shortcast/internal/testsupport"
)

func newTestServer(t *testing.T, cfg *config.Config, store *queue.Store) *httptest.Server {
	t.Helper()
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	server := httptest.NewServer(daemon.NewHandler(cfg, store, nil, nil))
	t.Cleanup(server.Close)
	return server
}

func uploadRequest(t *testing.T, url, filename, title string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("video", filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := part.Write([]byte("fake video bytes")); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if title != "" {
		if err := writer.WriteField("title", title); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, url+"/api/videos/upload", &body)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func decodeBody(t *testing.T, resp *http.Response, target any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestUploadAcceptedAndQueued(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	server := newTestServer(t, cfg, store)

	resp, err := http.DefaultClient.Do(uploadRequest(t, server.URL, "kitchen tour.mp4", ""))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	var payload struct {
		ID       int64  `json:"id"`
		Title    string `json:"title"`
		FilePath string `json:"file_path"`
		Status   string `json:"status"`
	}
	decodeBody(t, resp, &payload)

	if payload.Title != "kitchen tour" {
		t.Errorf("title = %q, want filename stem", payload.Title)
	}
	if payload.Status != string(queue.StatusUploaded) {
		t.Errorf("status = %q, want %q", payload.Status, queue.StatusUploaded)
	}
	if filepath.Dir(payload.FilePath) != cfg.Paths.UploadDir {
		t.Errorf("stored outside upload dir: %s", payload.FilePath)
	}
	if filepath.Ext(payload.FilePath) != ".mp4" {
		t.Errorf("stored file lost extension: %s", payload.FilePath)
	}
	if _, err := os.Stat(payload.FilePath); err != nil {
		t.Errorf("stored file missing: %v", err)
	}

	job, err := store.ClaimNext(context.Background())
	if err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	if job == nil || job.Kind != queue.JobProcess || job.VideoID != payload.ID {
		t.Fatalf("expected queued process job for video %d, got %+v", payload.ID, job)
	}
}

func TestUploadRejectsUnsupportedExtension(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	server := newTestServer(t, cfg, store)

	resp, err := http.DefaultClient.Do(uploadRequest(t, server.URL, "malware.exe", ""))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	videos, err := store.ListVideos(context.Background())
	if err != nil {
		t.Fatalf("ListVideos: %v", err)
	}
	if len(videos) != 0 {
		t.Errorf("rejected upload created %d records", len(videos))
	}
}

func TestBearerTokenRequiredWhenConfigured(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIToken = "sekrit"
	store := testsupport.MustOpenStore(t, cfg)
	server := newTestServer(t, cfg, store)

	resp, err := http.Get(server.URL + "/api/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d, want 401", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/api/health", nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("authed get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("authenticated status = %d, want 200", resp.StatusCode)
	}
}

func TestListVideosFiltersByStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	server := newTestServer(t, cfg, store)
	ctx := context.Background()

	testsupport.NewVideo(t, store, cfg, "fresh")
	done := testsupport.NewVideo(t, store, cfg, "done")
	done.Status = queue.StatusProcessed
	done.ProcessedPath = filepath.Join(cfg.Paths.ProcessedDir, "done_subtitled.mp4")
	if err := store.UpdateVideo(ctx, done); err != nil {
		t.Fatalf("UpdateVideo: %v", err)
	}

	resp, err := http.Get(server.URL + "/api/videos/processed")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var payload struct {
		Videos []struct {
			Title  string `json:"title"`
			Status string `json:"status"`
		} `json:"videos"`
	}
	decodeBody(t, resp, &payload)
	if len(payload.Videos) != 1 || payload.Videos[0].Title != "done" {
		t.Fatalf("processed list = %+v, want only %q", payload.Videos, "done")
	}

	resp, err = http.Get(server.URL + "/api/videos?status=bogus")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown status filter = %d, want 400", resp.StatusCode)
	}
}

func TestSaveAssignsNicheAndQueuesPublish(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	server := newTestServer(t, cfg, store)
	ctx := context.Background()

	niche, err := store.NewNiche(ctx, "cooking", "")
	if err != nil {
		t.Fatalf("NewNiche: %v", err)
	}
	video := testsupport.NewVideo(t, store, cfg, "clip")
	video.Status = queue.StatusProcessed
	video.ProcessedPath = filepath.Join(cfg.Paths.ProcessedDir, "clip_subtitled.mp4")
	if err := store.UpdateVideo(ctx, video); err != nil {
		t.Fatalf("UpdateVideo: %v", err)
	}

	body := bytes.NewBufferString(fmt.Sprintf(`{"niche_id": %d}`, niche.ID))
	resp, err := http.Post(fmt.Sprintf("%s/api/videos/%d/save", server.URL, video.ID), "application/json", body)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}

	saved, err := store.GetVideo(ctx, video.ID)
	if err != nil {
		t.Fatalf("GetVideo: %v", err)
	}
	if saved.NicheID == nil || *saved.NicheID != niche.ID {
		t.Errorf("niche not assigned: %+v", saved.NicheID)
	}

	job, err := store.ClaimNext(ctx)
	if err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	if job == nil || job.Kind != queue.JobPublish {
		t.Fatalf("expected publish job, got %+v", job)
	}
}

func TestSaveUnknownVideoReturns404(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	server := newTestServer(t, cfg, store)

	resp, err := http.Post(server.URL+"/api/videos/9999/save", "application/json", bytes.NewBufferString("{}"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestDiscardRemovesFilesAndRecord(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	server := newTestServer(t, cfg, store)
	ctx := context.Background()

	video := testsupport.NewVideo(t, store, cfg, "trash")

	resp, err := http.Post(fmt.Sprintf("%s/api/videos/%d/discard", server.URL, video.ID), "application/json", nil)
	if err != nil {
		t.Fatalf("discard: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	if _, err := os.Stat(video.FilePath); !os.IsNotExist(err) {
		t.Errorf("source file survived discard: %v", err)
	}
	got, err := store.GetVideo(ctx, video.ID)
	if err != nil {
		t.Fatalf("GetVideo: %v", err)
	}
	if got != nil {
		t.Errorf("record survived discard: %+v", got)
	}
}

func TestNicheCreateAndList(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	server := newTestServer(t, cfg, store)

	resp, err := http.Post(server.URL+"/api/niches", "application/json",
		bytes.NewBufferString(`{"name": "fitness", "description": "workout shorts"}`))
	if err != nil {
		t.Fatalf("create niche: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	resp, err = http.Post(server.URL+"/api/niches", "application/json", bytes.NewBufferString(`{"name": "  "}`))
	if err != nil {
		t.Fatalf("create blank niche: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("blank name status = %d, want 400", resp.StatusCode)
	}

	resp, err = http.Get(server.URL + "/api/niches")
	if err != nil {
		t.Fatalf("list niches: %v", err)
	}
	var payload struct {
		Niches []struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		} `json:"niches"`
	}
	decodeBody(t, resp, &payload)
	if len(payload.Niches) != 1 || payload.Niches[0].Name != "fitness" {
		t.Fatalf("niches = %+v, want one named fitness", payload.Niches)
	}
}

func TestHealthReportsCounts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	server := newTestServer(t, cfg, store)

	testsupport.NewVideo(t, store, cfg, "one")
	testsupport.NewVideo(t, store, cfg, "two")

	resp, err := http.Get(server.URL + "/api/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	var payload struct {
		Status   string `json:"status"`
		Total    int    `json:"total"`
		Uploaded int    `json:"uploaded"`
	}
	decodeBody(t, resp, &payload)
	if payload.Status != "ok" || payload.Total != 2 || payload.Uploaded != 2 {
		t.Fatalf("health = %+v, want 2 uploaded of 2", payload)
	}
}
